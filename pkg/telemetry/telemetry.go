/*
 * Copyright (c) 2019 OysterPack, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package telemetry collects job metrics, which are pushed to a Prometheus Pushgateway.
//
// Worker processes are short lived relative to a scrape interval, and are not addressable. Thus, metrics are pushed
// after each job instead of being scraped.
package telemetry

import (
	"context"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/kelseyhightower/envconfig"
	"github.com/oysterpack/synapse/pkg/queue"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	dto "github.com/prometheus/client_model/go"
	"sync"
	"time"
)

// EnvPrefix is the default env var name prefix
const EnvPrefix = "APP12X"

// metric names
const (
	JobsTotal   = "synapse_jobs_total"
	JobDuration = "synapse_job_duration_seconds"
)

// job outcome label values
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Config is used to load the telemetry config from env vars
type Config struct {
	// PushgatewayURL enables pushing metrics when set
	PushgatewayURL string        `envconfig:"telemetry_pushgateway_url"`
	Job            string        `default:"synapse" envconfig:"telemetry_job"`
	RetryMax       int           `default:"3" envconfig:"telemetry_retry_max"`
	Timeout        time.Duration `default:"5s" envconfig:"telemetry_timeout"`
}

// LoadConfig loads the Config from env vars using the specified prefix. If the prefix is blank, then EnvPrefix is used.
func LoadConfig(prefix string) (Config, error) {
	if prefix == "" {
		prefix = EnvPrefix
	}
	var cfg Config
	err := envconfig.Process(prefix, &cfg)
	return cfg, err
}

// Client records job metrics
type Client struct {
	registry  *prometheus.Registry
	jobs      *prometheus.CounterVec
	durations *prometheus.HistogramVec
	pusher    *push.Pusher

	m       sync.Mutex
	started map[string]time.Time
}

// New constructs a new Client. instance is used as the Pushgateway grouping key, i.e., each worker process pushes its own
// metrics group.
func New(cfg Config, instance string) *Client {
	c := &Client{
		registry: prometheus.NewRegistry(),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: JobsTotal,
			Help: "The number of jobs performed",
		}, []string{"queue", "class", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    JobDuration,
			Help:    "Job execution time",
			Buckets: prometheus.DefBuckets,
		}, []string{"queue", "class"}),
		started: make(map[string]time.Time),
	}
	c.registry.MustRegister(c.jobs, c.durations)

	if cfg.PushgatewayURL != "" {
		client := retryablehttp.NewClient()
		client.Logger = nil
		client.RetryMax = cfg.RetryMax
		client.HTTPClient.Timeout = cfg.Timeout
		c.pusher = push.New(cfg.PushgatewayURL, cfg.Job).
			Gatherer(c.registry).
			Grouping("instance", instance).
			Client(client.StandardClient())
	}
	return c
}

// Registry returns the metrics registry
func (c *Client) Registry() *prometheus.Registry {
	return c.registry
}

// Begin marks the start of the job
func (c *Client) Begin(job *queue.Job) {
	c.m.Lock()
	c.started[job.ID] = time.Now()
	c.m.Unlock()
}

// End records the job outcome. The job duration is recorded only if Begin was called for the job.
func (c *Client) End(job *queue.Job, err error) {
	status := StatusOK
	if err != nil {
		status = StatusFailed
	}
	c.jobs.WithLabelValues(job.Queue, job.Class, status).Inc()

	c.m.Lock()
	start, ok := c.started[job.ID]
	delete(c.started, job.ID)
	c.m.Unlock()
	if ok {
		c.durations.WithLabelValues(job.Queue, job.Class).Observe(time.Since(start).Seconds())
	}
}

// Flush pushes the metrics to the Pushgateway. If no Pushgateway is configured, then Flush is a no-op.
func (c *Client) Flush(ctx context.Context) error {
	if c.pusher == nil {
		return nil
	}
	return errors.Wrap(c.pusher.PushContext(ctx), "failed to push metrics")
}

// MetricFamily returns the gathered metric family with the specified name, or nil if not found
func (c *Client) MetricFamily(name string) (*dto.MetricFamily, error) {
	mfs, err := c.registry.Gather()
	if err != nil {
		return nil, err
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf, nil
		}
	}
	return nil, nil
}
