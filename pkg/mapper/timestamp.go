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

package mapper

import (
	"database/sql/driver"
	"github.com/pkg/errors"
	"time"
)

// Timestamp is stored as Unix milliseconds. A zero Timestamp is stored as NULL.
type Timestamp struct {
	time.Time
}

// Now returns the current time truncated to millisecond precision
func Now() Timestamp {
	return Timestamp{time.Now().Truncate(time.Millisecond)}
}

// Value implements driver.Valuer
func (t Timestamp) Value() (driver.Value, error) {
	if t.IsZero() {
		return nil, nil
	}
	return t.UnixMilli(), nil
}

// Scan implements sql.Scanner
func (t *Timestamp) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
	case int64:
		t.Time = time.UnixMilli(v)
	case int32:
		t.Time = time.UnixMilli(int64(v))
	default:
		return errors.Errorf("unsupported timestamp column type: %T", src)
	}
	return nil
}
