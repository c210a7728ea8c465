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

package app

import (
	"github.com/oklog/ulid"
	"io"
)

// Opts configures the app Module.
//
// Build info injected at link time takes precedence over the env. Unset fields are loaded from:
//
//	${EnvPrefix}_ID
//	${EnvPrefix}_RELEASE_ID
//	${EnvPrefix}_VERSION
type Opts struct {
	// EnvPrefix defaults to EnvPrefix
	EnvPrefix string
	ID        ulid.ULID
	ReleaseID ulid.ULID
	// Version must be a semantic version. It defaults to "0.0.0".
	Version string

	// LogWriter overrides the logging.Writer. Tests use it to capture the log.
	LogWriter io.Writer
}
