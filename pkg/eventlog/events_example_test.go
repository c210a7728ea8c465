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

package eventlog_test

import (
	"github.com/oysterpack/synapse/pkg/eventlog"
	"github.com/rs/zerolog"
	"os"
)

type QueueName string

func (q QueueName) MarshalZerologObject(e *zerolog.Event) {
	e.Str("queue", string(q))
}

func ExampleEvent_NewLogger() {
	// Define your application events
	const (
		QueueDrained eventlog.Event = "01DHBMT3Q2ZR8VF6W7N0XGCKPE"
	)

	// Create your application logging functions
	logger := zerolog.New(os.Stdout)
	logQueueDrained := QueueDrained.NewLogger(&logger, zerolog.InfoLevel)

	// tagging events makes it easy to find where the event was logged from in the code
	logQueueDrained(QueueName("mail"), "queue drained", "01DHBMV0C4GK1Y6NAXJWE8RT5S")
	logQueueDrained(nil, "all queues drained")

	// Output:
	// {"l":"info","n":"01DHBMT3Q2ZR8VF6W7N0XGCKPE","01DHBMT3Q2ZR8VF6W7N0XGCKPE":{"queue":"mail"},"g":["01DHBMV0C4GK1Y6NAXJWE8RT5S"],"m":"queue drained"}
	// {"l":"info","n":"01DHBMT3Q2ZR8VF6W7N0XGCKPE","m":"all queues drained"}
}
