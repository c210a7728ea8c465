//go:build !windows && !plan9

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
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"log/syslog"
)

type syslogWriter struct {
	zerolog.LevelWriter
	w *syslog.Writer
}

func newSyslogHandler(ident string) (syslogHandler, error) {
	w, err := syslog.New(syslog.LOG_INFO|syslog.LOG_USER, ident)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to syslog")
	}
	return &syslogWriter{
		LevelWriter: zerolog.SyslogLevelWriter(w),
		w:           w,
	}, nil
}

func (s *syslogWriter) Close() error {
	return s.w.Close()
}
