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
	"fmt"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"time"
)

// EnvPrefix is the default env var name prefix
const EnvPrefix = "APP12X"

// Config is used to load log config settings from env vars
type Config struct {
	// Level specifies the global log level
	Level  Level `default:"info" envconfig:"log_level"`
	Stderr bool  `default:"true" envconfig:"log_stderr"`

	// FilePath enables the file handler when set
	FilePath string `envconfig:"log_file_path"`
	// SyslogIdent enables the syslog handler when set
	SyslogIdent string `envconfig:"log_syslog_ident"`

	LogglyEnable bool   `envconfig:"log_loggly_enable"`
	LogglyToken  string `envconfig:"log_loggly_token"`
	LogglyTag    string `default:"synapse" envconfig:"log_loggly_tag"`
	LogglyURL    string `default:"https://logs-01.loggly.com" envconfig:"log_loggly_url"`

	RollbarEnable bool   `envconfig:"log_rollbar_enable"`
	RollbarToken  string `envconfig:"log_rollbar_token"`
	RollbarRoot   string `envconfig:"log_rollbar_root"`
	RollbarURL    string `default:"https://api.rollbar.com/api/1/item/" envconfig:"log_rollbar_url"`

	// Environment is reported with each Rollbar item
	Environment string `default:"development" envconfig:"environment"`

	// HTTPRetryMax is the max number of retries when posting to Loggly or Rollbar
	HTTPRetryMax  int           `default:"3" envconfig:"log_http_retry_max"`
	HTTPRetryWait time.Duration `default:"1s" envconfig:"log_http_retry_wait"`
	HTTPTimeout   time.Duration `default:"10s" envconfig:"log_http_timeout"`
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

// Apply applies the global zerolog level
func (c Config) Apply() {
	zerolog.SetGlobalLevel(zerolog.Level(c.Level))
}

func (c Config) String() string {
	return fmt.Sprintf("Config{Level=%s, Stderr=%v, FilePath=%q, SyslogIdent=%q, Loggly=%v, Rollbar=%v}",
		c.Level, c.Stderr, c.FilePath, c.SyslogIdent, c.LogglyEnable, c.RollbarEnable)
}

// Level is a type alias for zerolog.Level in order to be able to implement the `envconfig.Decoder` interface on it
type Level zerolog.Level

// Decode implements `envconfig.Decoder` interface
func (l *Level) Decode(value string) error {
	level, err := zerolog.ParseLevel(value)
	if err != nil {
		return err
	}
	*l = Level(level)
	return nil
}

func (l Level) String() string {
	return zerolog.Level(l).String()
}
