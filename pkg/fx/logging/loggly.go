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
	"fmt"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"net/url"
	"strings"
	"sync"
)

// the buffer is flushed when it reaches this many events
const logglyMaxBufferedEvents = 100

// logglyHandler buffers log events and posts them to the Loggly bulk endpoint on Flush
type logglyHandler struct {
	client   *retryablehttp.Client
	endpoint string

	m      sync.Mutex
	events [][]byte
}

func newLogglyHandler(cfg Config, client *retryablehttp.Client) *logglyHandler {
	return &logglyHandler{
		client: client,
		endpoint: fmt.Sprintf("%s/bulk/%s/tag/%s/",
			strings.TrimSuffix(cfg.LogglyURL, "/"),
			url.PathEscape(cfg.LogglyToken),
			url.PathEscape(cfg.LogglyTag),
		),
	}
}

func (h *logglyHandler) Write(p []byte) (int, error) {
	event := make([]byte, len(p))
	copy(event, p)

	h.m.Lock()
	h.events = append(h.events, event)
	full := len(h.events) >= logglyMaxBufferedEvents
	h.m.Unlock()

	if full {
		if err := h.Flush(); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// WriteLevel drops events below info level
func (h *logglyHandler) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.InfoLevel {
		return len(p), nil
	}
	return h.Write(p)
}

// Flush posts all buffered events in a single bulk request
func (h *logglyHandler) Flush() error {
	h.m.Lock()
	events := h.events
	h.events = nil
	h.m.Unlock()
	if len(events) == 0 {
		return nil
	}

	var body bytes.Buffer
	for _, event := range events {
		body.Write(bytes.TrimRight(event, "\n"))
		body.WriteByte('\n')
	}
	req, err := retryablehttp.NewRequest("POST", h.endpoint, body.Bytes())
	if err != nil {
		return errors.Wrap(err, "failed to create loggly request")
	}
	req.Header.Set("Content-Type", "text/plain")
	resp, err := h.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to post log events to loggly")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.Errorf("loggly bulk post failed: %s", resp.Status)
	}
	return nil
}
