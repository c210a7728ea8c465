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
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"io"
	"os"
	"sync"
)

// config errors
var (
	ErrLogglyTokenNotSet  = errors.New("loggly is enabled but the token is not set")
	ErrRollbarTokenNotSet = errors.New("rollbar is enabled but the post_server_item access token is not set")
)

// Writer is the app log writer
type Writer interface {
	zerolog.LevelWriter
}

// Flusher is implemented by log handlers that buffer log events
type Flusher interface {
	Flush() error
}

// Handlers fans log events out to the handlers enabled by config.
type Handlers struct {
	names  []string
	writer zerolog.LevelWriter

	flushers []Flusher
	closers  []io.Closer

	closeOnce sync.Once
}

// New assembles the handlers enabled by the config.
//
// If no handler is enabled, then log events are discarded.
func New(cfg Config) (*Handlers, error) {
	h := &Handlers{}
	var writers []io.Writer
	// stderr is never closed
	add := func(name string, w io.Writer, closer io.Closer) {
		h.names = append(h.names, name)
		writers = append(writers, w)
		if f, ok := w.(Flusher); ok {
			h.flushers = append(h.flushers, f)
		}
		if closer != nil {
			h.closers = append(h.closers, closer)
		}
	}

	if cfg.LogglyEnable && cfg.LogglyToken == "" {
		return nil, ErrLogglyTokenNotSet
	}
	if cfg.RollbarEnable && cfg.RollbarToken == "" {
		return nil, ErrRollbarTokenNotSet
	}

	if cfg.Stderr {
		add("stderr", zerolog.LevelWriterAdapter{Writer: os.Stderr}, nil)
	}
	if cfg.FilePath != "" {
		f, err := newFileHandler(cfg.FilePath)
		if err != nil {
			h.Close()
			return nil, err
		}
		add("file", f, f)
	}
	if cfg.LogglyEnable {
		add("loggly", newLogglyHandler(cfg, newHTTPClient(cfg)), nil)
	}
	if cfg.RollbarEnable {
		add("rollbar", newRollbarHandler(cfg, newHTTPClient(cfg)), nil)
	}
	if cfg.SyslogIdent != "" {
		w, err := newSyslogHandler(cfg.SyslogIdent)
		if err != nil {
			h.Close()
			return nil, err
		}
		add("syslog", w, w)
	}

	if len(writers) == 0 {
		h.writer = zerolog.LevelWriterAdapter{Writer: io.Discard}
	} else {
		h.writer = zerolog.MultiLevelWriter(writers...)
	}
	return h, nil
}

// Names returns the names of the enabled handlers, in the order they were added
func (h *Handlers) Names() []string {
	return h.names
}

func (h *Handlers) Write(p []byte) (int, error) {
	return h.writer.Write(p)
}

// WriteLevel implements zerolog.LevelWriter
func (h *Handlers) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	return h.writer.WriteLevel(level, p)
}

// Flush flushes all buffered handlers
func (h *Handlers) Flush() (err error) {
	for _, f := range h.flushers {
		err = multierr.Append(err, f.Flush())
	}
	return
}

// Close flushes and then closes all handlers
func (h *Handlers) Close() (err error) {
	h.closeOnce.Do(func() {
		err = h.Flush()
		for _, c := range h.closers {
			err = multierr.Append(err, c.Close())
		}
	})
	return
}

type syslogHandler interface {
	zerolog.LevelWriter
	io.Closer
}

type fileHandler struct {
	zerolog.FilteredLevelWriter
	file *os.File
}

func newFileHandler(path string) (*fileHandler, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open log file: %q", path)
	}
	return &fileHandler{
		FilteredLevelWriter: zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: f},
			Level:  zerolog.InfoLevel,
		},
		file: f,
	}, nil
}

func (h *fileHandler) Close() error {
	return h.file.Close()
}

func newHTTPClient(cfg Config) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = cfg.HTTPRetryMax
	client.RetryWaitMin = cfg.HTTPRetryWait
	if client.RetryWaitMax < cfg.HTTPRetryWait {
		client.RetryWaitMax = cfg.HTTPRetryWait
	}
	client.HTTPClient.Timeout = cfg.HTTPTimeout
	return client
}
