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

package main

import (
	"context"
	"fmt"
	"github.com/oysterpack/synapse/internal/cli"
	"os"
)

// build info, injected via ldflags:
//
//	go build -ldflags "-X main.appID=... -X main.releaseID=... -X main.version=..."
//
// Blank values are loaded from the APP12X_ID, APP12X_RELEASE_ID, and APP12X_VERSION env vars.
var (
	appID     string
	releaseID string
	version   string
)

func main() {
	cmd := cli.NewRootCommand(cli.Build{
		AppID:     appID,
		ReleaseID: releaseID,
		Version:   version,
	})
	err := cmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "synapse: %v\n", err)
	}
	os.Exit(cli.ExitCode(err))
}
