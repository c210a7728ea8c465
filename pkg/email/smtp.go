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
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/wneessen/go-mail"
	"strings"
	"time"
)

// EnvPrefix is the default env var name prefix
const EnvPrefix = "APP12X"

// Config is used to load the SMTP config from env vars
type Config struct {
	Host     string `default:"localhost" envconfig:"smtp_host"`
	Port     int    `default:"25" envconfig:"smtp_port"`
	Username string `envconfig:"smtp_username"`
	Password string `envconfig:"smtp_password"`
	// TLS makes TLS mandatory; otherwise TLS is used opportunistically
	TLS bool `envconfig:"smtp_tls"`
	// From is the default sender address
	From    string        `default:"synapse@localhost" envconfig:"smtp_from"`
	Timeout time.Duration `default:"15s" envconfig:"smtp_timeout"`
	// Queue is the queue that email jobs are pushed onto
	Queue string `default:"email" envconfig:"email_queue"`
}

// LoadConfig loads the Config from env vars using the specified prefix. If the prefix is blank, then EnvPrefix is used.
func LoadConfig(prefix string) (Config, error) {
	if prefix == "" {
		prefix = EnvPrefix
	}
	var cfg Config
	err := envconfig.Process(prefix, &cfg)
	return cfg, err
}

// Sender delivers emails
type Sender interface {
	Send(ctx context.Context, email *Email) error
}

// SMTPSender delivers each email over a new SMTP connection.
type SMTPSender struct {
	cfg Config
}

// NewSMTPSender constructs a new SMTPSender
func NewSMTPSender(cfg Config) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send implements Sender
func (s *SMTPSender) Send(ctx context.Context, email *Email) error {
	msg, err := s.message(email)
	if err != nil {
		return err
	}
	client, err := mail.NewClient(s.cfg.Host, s.options()...)
	if err != nil {
		return errors.Wrap(err, "failed to create SMTP client")
	}
	return errors.Wrapf(client.DialAndSendWithContext(ctx, msg), "failed to send email: %s", email.ID)
}

func (s *SMTPSender) message(email *Email) (*mail.Msg, error) {
	from := email.Sender
	if from == "" {
		from = s.cfg.From
	}
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, errors.Wrapf(err, "invalid sender: %q", from)
	}
	if err := msg.To(email.Recipient); err != nil {
		return nil, errors.Wrapf(err, "invalid recipient: %q", email.Recipient)
	}
	// CR/LF would inject headers
	msg.Subject(strings.NewReplacer("\r", "", "\n", "").Replace(email.Subject))
	msg.SetBodyString(mail.TypeTextPlain, email.Message)
	if email.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, email.HTML)
	}
	return msg, nil
}

func (s *SMTPSender) options() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(s.cfg.Timeout),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}
	return opts
}
