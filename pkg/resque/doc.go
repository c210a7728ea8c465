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

// Package resque runs resque workers, either in-process or as a supervised pool of worker processes.
//
// The supervisor spawns worker processes by re-executing the app binary as a worker, tracks their PIDs, reaps exited
// workers, and relays the signals it receives to its workers:
//   - SIGTERM, SIGINT, SIGQUIT terminate the pool. The supervisor returns only after every worker has been reaped.
//   - SIGUSR1, SIGUSR2, SIGCONT, SIGPIPE are relayed to the workers.
//
// Workers poll their queues in list order. Lifecycle hooks fire around each job that is performed.
package resque
