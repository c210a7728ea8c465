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

package email_test

import (
	"bufio"
	"context"
	"errors"
	sq "github.com/Masterminds/squirrel"
	"github.com/oysterpack/synapse/pkg/email"
	"github.com/oysterpack/synapse/pkg/eventlog"
	"github.com/oysterpack/synapse/pkg/fx/app"
	"github.com/oysterpack/synapse/pkg/fx/db"
	"github.com/oysterpack/synapse/pkg/fxapptest"
	"github.com/oysterpack/synapse/pkg/mapper"
	"github.com/oysterpack/synapse/pkg/queue"
	"github.com/oysterpack/synapse/pkg/security"
	"github.com/oysterpack/synapse/pkg/ulids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// compile time checks
var (
	_ mapper.Inserter[*email.Email] = &email.Mapper{}
	_ mapper.Finder[*email.Email]   = &email.Mapper{}
	_ mapper.Updater[*email.Email]  = &email.Mapper{}
	_ mapper.Deleter                = &email.Mapper{}
	_ email.Sender                  = &email.SMTPSender{}
)

func openDB(t *testing.T) *db.Handle {
	h, err := db.Open(db.Config{
		Driver:      db.SQLite,
		DSN:         filepath.Join(t.TempDir(), "email.db"),
		BusyTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	require.NoError(t, h.Migrate(context.Background(), email.Schema, queue.Schema))
	return h
}

type fakeSender struct {
	m    sync.Mutex
	sent []string
	err  error
}

func (s *fakeSender) Send(ctx context.Context, e *email.Email) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, e.ID)
	return nil
}

func TestMapper(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	emails := email.NewMapper(openDB(t))
	assert.Equal(t, email.Table, emails.Table())

	e := &email.Email{
		ID:        ulids.MustNew().String(),
		Status:    email.Pending,
		Recipient: "alice@example.com",
		Subject:   "hello",
		Message:   "ciao mundo",
		CreatedAt: mapper.Now(),
	}
	require.NoError(t, emails.Insert(ctx, e))

	found, err := emails.FindBy(ctx, sq.Eq{"id": e.ID})
	require.NoError(t, err)
	assert.Equal(t, email.Pending, found.Status)
	assert.Equal(t, e.Recipient, found.Recipient)
	assert.Equal(t, e.CreatedAt.UnixMilli(), found.CreatedAt.UnixMilli())
	assert.True(t, found.SentAt.IsZero())

	found.Status = email.Sent
	found.SentAt = mapper.Now()
	n, err := emails.Update(ctx, found, sq.Eq{"id": e.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	sent, err := emails.FindAllBy(ctx, sq.Eq{"status": string(email.Sent)})
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.False(t, sent[0].SentAt.IsZero())

	n, err = emails.Delete(ctx, sq.Eq{"id": e.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = emails.FindBy(ctx, sq.Eq{"id": e.ID})
	assert.Equal(t, mapper.ErrNotFound, err)
}

func newService(t *testing.T, sender email.Sender) (*email.Service, *email.Mapper, *queue.Store, *fxapptest.SyncLog) {
	h := openDB(t)
	emails, store := email.NewMapper(h), queue.NewStore(h)
	log := fxapptest.NewSyncLog()
	logger := eventlog.NewZeroLogger(log)
	return email.NewService(emails, store, sender, "email", &logger), emails, store, log
}

func TestService_EnqueueAndSend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sender := &fakeSender{}
	service, emails, store, log := newService(t, sender)

	_, err := service.Enqueue(ctx, &email.Email{Subject: "no recipient"})
	assert.Error(t, err)

	e := &email.Email{Recipient: "alice@example.com", Subject: "hello", Message: "ciao mundo"}
	job, err := service.Enqueue(ctx, e)
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "email", job.Queue)
	assert.Equal(t, email.SendClass, job.Class)

	popped, err := store.Pop(ctx, []string{"email"}, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, popped)
	var args email.SendArgs
	require.NoError(t, popped.DecodeArgs(&args))
	assert.Equal(t, e.ID, args.ID)

	require.NoError(t, service.Perform(ctx, popped))
	assert.Equal(t, []string{e.ID}, sender.sent)
	found, err := emails.FindBy(ctx, sq.Eq{"id": e.ID})
	require.NoError(t, err)
	assert.Equal(t, email.Sent, found.Status)
	assert.False(t, found.SentAt.IsZero())

	// an email is sent at most once
	require.NoError(t, service.Perform(ctx, popped))
	assert.Len(t, sender.sent, 1)

	events, err := log.Events()
	require.NoError(t, err)
	assert.Len(t, fxapptest.FilterByName(events, string(email.EmailSentEvent)), 1)
}

func TestService_SendFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sendErr := errors.New("mailbox unavailable")
	service, emails, store, log := newService(t, &fakeSender{err: sendErr})

	e := &email.Email{Recipient: "bob@example.com", Subject: "hello"}
	_, err := service.Enqueue(ctx, e)
	require.NoError(t, err)
	job, err := store.Pop(ctx, []string{"email"}, "worker-1")
	require.NoError(t, err)

	assert.Equal(t, sendErr, service.Perform(ctx, job), "the send error fails the job")
	found, err := emails.FindBy(ctx, sq.Eq{"id": e.ID})
	require.NoError(t, err)
	assert.Equal(t, email.Failed, found.Status)
	assert.Equal(t, sendErr.Error(), found.LastError)
	assert.True(t, found.SentAt.IsZero())

	events, err := log.Events()
	require.NoError(t, err)
	failed := fxapptest.FilterByName(events, string(email.EmailFailedEvent))
	require.Len(t, failed, 1)
	assert.Equal(t, sendErr.Error(), failed[0].Err())
}

type user string

func (u user) EmailAddress() string {
	return string(u)
}

func TestService_SenderFromSecurityContext(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	service, emails, _, _ := newService(t, &fakeSender{})

	e := &email.Email{Recipient: "bob@example.com"}
	_, err := service.Enqueue(ctx, e)
	require.NoError(t, err)
	assert.Empty(t, e.Sender, "no security context")

	service.SetSecurityContext(security.NewStaticContext(security.NewUserToken(user("alice@example.com"))))
	e = &email.Email{Recipient: "bob@example.com"}
	_, err = service.Enqueue(ctx, e)
	require.NoError(t, err)
	found, err := emails.FindBy(ctx, sq.Eq{"id": e.ID})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", found.Sender)

	e = &email.Email{Sender: "carol@example.com", Recipient: "bob@example.com"}
	_, err = service.Enqueue(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", e.Sender, "an explicit sender is kept")
}

func TestService_InvalidArgs(t *testing.T) {
	t.Parallel()
	service, _, _, _ := newService(t, &fakeSender{})
	assert.Error(t, service.Perform(context.Background(), &queue.Job{ID: "1", Args: []byte(`{}`)}))
	assert.Error(t, service.Perform(context.Background(), &queue.Job{ID: "2", Args: []byte(`{"id":"unknown"}`)}))
}

// smtpServer is a minimal SMTP server that accepts every command, and records the message data
type smtpServer struct {
	listener net.Listener
	m        sync.Mutex
	messages []string
}

func startSMTPServer(t *testing.T) *smtpServer {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &smtpServer{listener: l}
	t.Cleanup(func() { l.Close() })
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	return s
}

func (s *smtpServer) port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *smtpServer) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	reply := func(line string) {
		conn.Write([]byte(line + "\r\n"))
	}
	reply("220 localhost ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			reply("250-localhost")
			reply("250 8BITMIME")
		case cmd == "DATA":
			reply("354 end data with <CR><LF>.<CR><LF>")
			var data strings.Builder
			for {
				line, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if line == ".\r\n" {
					break
				}
				data.WriteString(line)
			}
			s.m.Lock()
			s.messages = append(s.messages, data.String())
			s.m.Unlock()
			reply("250 OK")
		case cmd == "QUIT":
			reply("221 bye")
			return
		default:
			reply("250 OK")
		}
	}
}

func (s *smtpServer) received() []string {
	s.m.Lock()
	defer s.m.Unlock()
	return append([]string(nil), s.messages...)
}

func TestSMTPSender(t *testing.T) {
	t.Parallel()
	server := startSMTPServer(t)
	sender := email.NewSMTPSender(email.Config{
		Host:    "127.0.0.1",
		Port:    server.port(),
		From:    "synapse@example.com",
		Timeout: 5 * time.Second,
	})
	err := sender.Send(context.Background(), &email.Email{
		ID:        "1",
		Recipient: "alice@example.com",
		Subject:   "hello\r\nBcc: mallory@example.com",
		Message:   "ciao mundo",
	})
	require.NoError(t, err)
	messages := server.received()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "From: <synapse@example.com>")
	assert.Contains(t, messages[0], "To: <alice@example.com>")
	assert.Contains(t, messages[0], "Subject: helloBcc: mallory@example.com")
	assert.NotContains(t, messages[0], "\r\nBcc:")
	assert.Contains(t, messages[0], "ciao mundo")
}

func TestSMTPSender_Unreachable(t *testing.T) {
	t.Parallel()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	sender := email.NewSMTPSender(email.Config{Host: "127.0.0.1", Port: port, From: "synapse@example.com", Timeout: time.Second})
	err = sender.Send(context.Background(), &email.Email{ID: "1", Recipient: "alice@example.com"})
	assert.Error(t, err)

	err = sender.Send(context.Background(), &email.Email{ID: "2", Recipient: "not an address"})
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	env := map[string]string{
		"EMAILTEST_SMTP_HOST": "smtp.example.com",
		"EMAILTEST_SMTP_PORT": "587",
		"EMAILTEST_SMTP_TLS":  "true",
	}
	for k, v := range env {
		require.NoError(t, os.Setenv(k, v))
	}
	defer func() {
		for k := range env {
			os.Unsetenv(k)
		}
	}()
	cfg, err := email.LoadConfig("emailtest")
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com", cfg.Host)
	assert.Equal(t, 587, cfg.Port)
	assert.True(t, cfg.TLS)
	assert.Equal(t, "synapse@localhost", cfg.From)
	assert.Equal(t, "email", cfg.Queue)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
}

func TestModule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fx.db")
	require.NoError(t, os.Setenv("EMAILFXTEST_DB_DSN", path))
	require.NoError(t, os.Setenv("EMAILFXTEST_SMTP_PORT", strconv.Itoa(2525)))
	defer os.Unsetenv("EMAILFXTEST_DB_DSN")
	defer os.Unsetenv("EMAILFXTEST_SMTP_PORT")

	var (
		service  *email.Service
		registry *queue.Registry
		migrate  db.Migrator
		cfg      email.Config
	)
	fxapp := fxtest.New(t,
		app.Module(app.Opts{
			ID:        ulids.MustNew(),
			ReleaseID: ulids.MustNew(),
			LogWriter: fxapptest.NewSyncLog(),
		}),
		db.Module(db.Opts{EnvPrefix: "emailfxtest"}),
		queue.Module(),
		email.Module(email.Opts{EnvPrefix: "emailfxtest"}),
		fx.Provide(func() security.Context {
			return security.NewStaticContext(security.NewUserToken(user("alice@example.com")))
		}),
		fx.Populate(&service, &registry, &migrate, &cfg),
	)
	fxapp.RequireStart()
	defer fxapp.RequireStop()

	assert.Equal(t, 2525, cfg.Port)
	assert.Equal(t, []string{email.SendClass}, registry.Names())
	require.NoError(t, migrate(context.Background()))
	e := &email.Email{Recipient: "bob@example.com"}
	_, err := service.Enqueue(context.Background(), e)
	assert.NoError(t, err)
	assert.Equal(t, "alice@example.com", e.Sender)
}
