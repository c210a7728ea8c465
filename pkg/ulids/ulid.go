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

// Package ulids provides the ULID generators used for app IDs, log event IDs, and job IDs.
package ulids

import (
	"crypto/rand"
	"github.com/oklog/ulid"
	"github.com/pkg/errors"
	"sync"
)

// ErrZero is returned when parsing a ULID that is all zeros.
var ErrZero = errors.New("ULID must not be zero")

// Generator returns a new ULID each time it is called.
type Generator func() ulid.ULID

// Monotonic returns a Generator that produces ULIDs in strictly increasing order within the process.
//
// Jobs are ordered by their ULID, which is what makes each queue FIFO.
//   - is safe for concurrent use
//   - panics if the entropy source fails
func Monotonic() Generator {
	var m sync.Mutex
	entropy := ulid.Monotonic(rand.Reader, 0)

	return func() (id ulid.ULID) {
		m.Lock()
		id = ulid.MustNew(ulid.Now(), entropy)
		m.Unlock()
		return
	}
}

// MustNew generates a new crypto/rand based ULID.
func MustNew() ulid.ULID {
	return ulid.MustNew(ulid.Now(), rand.Reader)
}

// Parse tries to parse the id into a non-zero ULID.
func Parse(id string) (ulid.ULID, error) {
	uid, err := ulid.Parse(id)
	if err != nil {
		return uid, errors.Wrapf(err, "invalid ULID: %q", id)
	}
	if IsZero(uid) {
		return uid, ErrZero
	}
	return uid, nil
}

// IsZero returns true if the id is a zero value
func IsZero(id ulid.ULID) bool {
	return ulid.ULID{} == id
}
