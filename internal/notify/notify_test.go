package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bookify/apiserver/config"
	"github.com/bookify/apiserver/internal/logging"
	"github.com/bookify/apiserver/internal/mq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Email
	err  error
	done chan struct{}
}

func (r *recordingSender) Send(_ context.Context, to, subject, htmlBody string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, Email{To: to, Subject: subject, HTMLBody: htmlBody})
	if r.done != nil {
		close(r.done)
		r.done = nil
	}
	return nil
}

type capturePublisher struct {
	channel string
	data    []byte
	attrs   map[string]string
	err     error
}

func (c *capturePublisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	c.channel, c.data, c.attrs = channel, data, attrs
	return "msg-1", c.err
}

func TestQueueSender_PublishesJSONJob(t *testing.T) {
	pub := &capturePublisher{}
	sender := NewQueueSender(pub, "email.verification")

	require.NoError(t, sender.Send(context.Background(), "alice@example.com", "Confirm", "<p>hi</p>"))

	assert.Equal(t, "email.verification", pub.channel)
	assert.Equal(t, "application/json", pub.attrs[mq.AttrContentType])

	var job Email
	require.NoError(t, json.Unmarshal(pub.data, &job))
	assert.Equal(t, Email{To: "alice@example.com", Subject: "Confirm", HTMLBody: "<p>hi</p>"}, job)

	pub.err = errors.New("broker down")
	assert.ErrorContains(t, sender.Send(context.Background(), "a@b.c", "s", "b"), "broker down")
}

func TestWorker_DeliversQueuedMail(t *testing.T) {
	backend := mq.NewMemory(8)
	t.Cleanup(func() { _ = backend.Close() })

	delivered := make(chan struct{})
	sink := &recordingSender{done: delivered}
	worker := NewWorker(backend, "email.verification", sink, logging.Nop())

	require.NoError(t, NewQueueSender(backend, "email.verification").Send(context.Background(), "alice@example.com", "Confirm", "<p>hi</p>"))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- worker.Run(ctx) }()

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("mail not delivered")
	}
	cancel()
	assert.NoError(t, <-errCh)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.sent, 1)
	assert.Equal(t, "alice@example.com", sink.sent[0].To)
}

func TestWorker_Handle(t *testing.T) {
	sink := &recordingSender{}
	worker := NewWorker(mq.NewMemory(1), "c", sink, nil)
	ctx := context.Background()

	assert.NoError(t, worker.Handle(ctx, mq.Message{ID: "1", Data: []byte("{")}))
	assert.NoError(t, worker.Handle(ctx, mq.Message{ID: "2", Data: []byte(`{"subject":"x"}`)}))
	assert.Empty(t, sink.sent)

	sink.err = errors.New("smtp down")
	err := worker.Handle(ctx, mq.Message{ID: "3", Data: []byte(`{"to":"a@b.c","subject":"x"}`)})
	assert.ErrorIs(t, err, sink.err)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, NewLogSender(logger).Send(context.Background(), "alice@example.com", "Confirm", "<p>hi</p>"))

	assert.Contains(t, buf.String(), "to=alice@example.com")
	assert.Contains(t, buf.String(), "subject=Confirm")
}

func TestNewSMTPSender(t *testing.T) {
	_, err := NewSMTPSender(config.SMTPConfig{From: "no-reply@bookify.local", Port: 587})
	assert.ErrorContains(t, err, "host")

	_, err = NewSMTPSender(config.SMTPConfig{Host: "localhost", Port: 587})
	assert.ErrorContains(t, err, "from")

	sender, err := NewSMTPSender(config.SMTPConfig{
		Host:     "localhost",
		Port:     465,
		Username: "bookify",
		Password: "secret",
		From:     "no-reply@bookify.local",
		UseSSL:   true,
	})
	require.NoError(t, err)
	assert.NotNil(t, sender)
}

func TestNewMessage(t *testing.T) {
	msg, err := newMessage("no-reply@bookify.local", "alice@example.com", "Confirm", "<p>hi</p>")
	require.NoError(t, err)
	require.Len(t, msg.GetToString(), 1)
	assert.Contains(t, msg.GetToString()[0], "alice@example.com")

	_, err = newMessage("not an address", "alice@example.com", "s", "b")
	assert.Error(t, err)

	_, err = newMessage("no-reply@bookify.local", "", "s", "b")
	assert.Error(t, err)
}
