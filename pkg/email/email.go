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

// Package email provides the email entity, its mapper, and the "email.send" job class which delivers emails over SMTP.
package email

import (
	"database/sql"
	"github.com/oysterpack/synapse/pkg/fx/db"
	"github.com/oysterpack/synapse/pkg/mapper"
	"github.com/pkg/errors"
)

// Status is the email delivery status
type Status string

// email statuses
const (
	Pending Status = "pending"
	Sent    Status = "sent"
	Failed  Status = "failed"
)

// Table is the emails table name
const Table = "emails"

// Schema creates the emails table
var Schema = db.Schema{
	Name: Table,
	DDL: func(db.Driver) []string {
		return []string{
			`CREATE TABLE IF NOT EXISTS emails (
				id         VARCHAR(26) PRIMARY KEY,
				status     VARCHAR(16) NOT NULL,
				sender     VARCHAR(255) NOT NULL DEFAULT '',
				recipient  VARCHAR(255) NOT NULL,
				subject    VARCHAR(255) NOT NULL DEFAULT '',
				message    TEXT NOT NULL DEFAULT '',
				html       TEXT NOT NULL DEFAULT '',
				last_error TEXT NOT NULL DEFAULT '',
				created_at BIGINT,
				sent_at    BIGINT
			)`,
		}
	},
}

// Email is a row in the emails table
type Email struct {
	ID     string
	Status Status
	// Sender defaults to the configured SMTP from address
	Sender    string
	Recipient string
	Subject   string
	// Message is the plain text body
	Message string
	// HTML is the optional HTML alternative body
	HTML      string
	LastError string
	CreatedAt mapper.Timestamp
	SentAt    mapper.Timestamp
}

// Columns implements mapper.Entity
func (e *Email) Columns() []string {
	return []string{"id", "status", "sender", "recipient", "subject", "message", "html", "last_error", "created_at", "sent_at"}
}

// DbValues implements mapper.Entity
func (e *Email) DbValues() []interface{} {
	return []interface{}{e.ID, string(e.Status), e.Sender, e.Recipient, e.Subject, e.Message, e.HTML, e.LastError, e.CreatedAt, e.SentAt}
}

// ScanTargets implements mapper.Entity
func (e *Email) ScanTargets() []interface{} {
	return []interface{}{&e.ID, (*statusColumn)(&e.Status), &e.Sender, &e.Recipient, &e.Subject, &e.Message, &e.HTML, &e.LastError, &e.CreatedAt, &e.SentAt}
}

type statusColumn Status

func (c *statusColumn) Scan(src interface{}) error {
	var s sql.NullString
	if err := s.Scan(src); err != nil {
		return errors.Wrap(err, "invalid email status")
	}
	*c = statusColumn(s.String)
	return nil
}

// Mapper is a general purpose mapper for the emails table, i.e., it implements all of the mapper traits
type Mapper struct {
	*mapper.Mapper[*Email]
}

// NewMapper constructs a new Mapper
func NewMapper(handle *db.Handle) *Mapper {
	return &Mapper{mapper.New(handle, Table, func() *Email { return new(Email) })}
}
