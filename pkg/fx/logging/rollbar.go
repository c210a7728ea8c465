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

package logging

import (
	"bytes"
	"encoding/json"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"os"
	"runtime"
	"time"
)

// rollbarHandler posts error level log events as Rollbar items, one request per event
type rollbarHandler struct {
	client      *retryablehttp.Client
	endpoint    string
	token       string
	environment string
	root        string
	host        string
}

func newRollbarHandler(cfg Config, client *retryablehttp.Client) *rollbarHandler {
	host, _ := os.Hostname()
	return &rollbarHandler{
		client:      client,
		endpoint:    cfg.RollbarURL,
		token:       cfg.RollbarToken,
		environment: cfg.Environment,
		root:        cfg.RollbarRoot,
		host:        host,
	}
}

type rollbarItem struct {
	AccessToken string      `json:"access_token"`
	Data        rollbarData `json:"data"`
}

type rollbarData struct {
	Environment string          `json:"environment"`
	Level       string          `json:"level"`
	Timestamp   int64           `json:"timestamp"`
	Platform    string          `json:"platform"`
	Language    string          `json:"language"`
	Body        rollbarBody     `json:"body"`
	Server      rollbarServer   `json:"server"`
	Custom      json.RawMessage `json:"custom,omitempty"`
}

type rollbarBody struct {
	Message struct {
		Body string `json:"body"`
	} `json:"message"`
}

type rollbarServer struct {
	Host string `json:"host,omitempty"`
	Root string `json:"root,omitempty"`
}

// Write ignores events with no level
func (h *rollbarHandler) Write(p []byte) (int, error) {
	return len(p), nil
}

// WriteLevel posts events at error level and above
func (h *rollbarHandler) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.ErrorLevel || level == zerolog.NoLevel || level == zerolog.Disabled {
		return len(p), nil
	}
	if err := h.post(level, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (h *rollbarHandler) post(level zerolog.Level, p []byte) error {
	event := bytes.TrimSpace(p)
	item := rollbarItem{
		AccessToken: h.token,
		Data: rollbarData{
			Environment: h.environment,
			Level:       rollbarLevel(level),
			Timestamp:   time.Now().Unix(),
			Platform:    runtime.GOOS,
			Language:    "go",
			Server:      rollbarServer{Host: h.host, Root: h.root},
		},
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(event, &fields); err == nil {
		item.Data.Custom = event
		if msg, ok := fields[zerolog.MessageFieldName]; ok {
			_ = json.Unmarshal(msg, &item.Data.Body.Message.Body)
		}
	}
	if item.Data.Body.Message.Body == "" {
		item.Data.Body.Message.Body = string(event)
	}

	body, err := json.Marshal(item)
	if err != nil {
		return errors.Wrap(err, "failed to marshal rollbar item")
	}
	req, err := retryablehttp.NewRequest("POST", h.endpoint, body)
	if err != nil {
		return errors.Wrap(err, "failed to create rollbar request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to post rollbar item")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.Errorf("rollbar item post failed: %s", resp.Status)
	}
	return nil
}

func rollbarLevel(level zerolog.Level) string {
	switch level {
	case zerolog.ErrorLevel:
		return "error"
	default:
		return "critical"
	}
}
