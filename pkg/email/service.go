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

package email

import (
	"context"
	sq "github.com/Masterminds/squirrel"
	"github.com/oysterpack/synapse/pkg/eventlog"
	"github.com/oysterpack/synapse/pkg/mapper"
	"github.com/oysterpack/synapse/pkg/queue"
	"github.com/oysterpack/synapse/pkg/security"
	"github.com/oysterpack/synapse/pkg/ulids"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// SendClass is the job class that sends an email
const SendClass = "email.send"

// SendArgs are the SendClass job args
type SendArgs struct {
	ID string `json:"id"`
}

// email events
const (
	EmailSentEvent   eventlog.Event = "01DHDB4SXK0C3BAM5TN8N30J2Q"
	EmailFailedEvent eventlog.Event = "01DHDB7JX2E5M1RX1KQ4VYSK8D"
)

type emailInfo struct {
	*Email
}

func (e emailInfo) MarshalZerologObject(event *zerolog.Event) {
	event.Str("id", e.ID).
		Str("recipient", e.Recipient).
		Str("status", string(e.Status))
}

// Addresser is implemented by users that have an email address
type Addresser interface {
	EmailAddress() string
}

// Service enqueues emails, and sends them when the job is performed.
//
// If a security context is set, then emails that are enqueued without a sender are sent from the current user, if the
// user is an Addresser.
type Service struct {
	security.Aware

	emails *Mapper
	jobs   *queue.Store
	sender Sender
	queue  string
	newID  ulids.Generator

	logSent   eventlog.Logger
	logFailed eventlog.ErrorLogger
}

// NewService constructs a new Service. Jobs are pushed onto the specified queue.
func NewService(emails *Mapper, jobs *queue.Store, sender Sender, queueName string, logger *zerolog.Logger) *Service {
	logger = eventlog.ForComponent(logger, "email.Service")
	return &Service{
		emails: emails,
		jobs:   jobs,
		sender: sender,
		queue:  queueName,
		newID:  ulids.Monotonic(),

		logSent:   EmailSentEvent.NewLogger(logger, zerolog.InfoLevel),
		logFailed: EmailFailedEvent.NewErrorLogger(logger),
	}
}

// Enqueue inserts the email as pending, and pushes the job that sends it
func (s *Service) Enqueue(ctx context.Context, email *Email) (*queue.Job, error) {
	if email.Recipient == "" {
		return nil, errors.New("email recipient is required")
	}
	if email.Sender == "" {
		if user, ok := s.User().(Addresser); ok {
			email.Sender = user.EmailAddress()
		}
	}
	email.ID = s.newID().String()
	email.Status = Pending
	email.LastError = ""
	email.CreatedAt = mapper.Now()
	email.SentAt = mapper.Timestamp{}
	if err := s.emails.Insert(ctx, email); err != nil {
		return nil, err
	}
	return s.jobs.Push(ctx, s.queue, SendClass, SendArgs{ID: email.ID})
}

// Perform is the SendClass job Performer.
//
// An email that was already sent is not sent again. If the send fails, then the email status is set to failed, and the
// error is returned, which fails the job.
func (s *Service) Perform(ctx context.Context, job *queue.Job) error {
	var args SendArgs
	if err := job.DecodeArgs(&args); err != nil {
		return err
	}
	if args.ID == "" {
		return errors.New("email id is required")
	}
	email, err := s.emails.FindBy(ctx, sq.Eq{"id": args.ID})
	if err != nil {
		return errors.Wrapf(err, "email not found: %s", args.ID)
	}
	if email.Status == Sent {
		return nil
	}

	if sendErr := s.sender.Send(ctx, email); sendErr != nil {
		email.Status = Failed
		email.LastError = sendErr.Error()
		s.logFailed(emailInfo{email}, sendErr, "failed to send email")
		if _, err := s.emails.Update(context.WithoutCancel(ctx), email, sq.Eq{"id": email.ID}); err != nil {
			s.logFailed(emailInfo{email}, err, "failed to update email status")
		}
		return sendErr
	}

	email.Status = Sent
	email.LastError = ""
	email.SentAt = mapper.Now()
	if _, err := s.emails.Update(ctx, email, sq.Eq{"id": email.ID}); err != nil {
		return err
	}
	s.logSent(emailInfo{email}, "email sent")
	return nil
}
