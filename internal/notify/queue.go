package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bookify/apiserver/internal/logging"
	"github.com/bookify/apiserver/internal/mq"
)

const jobType = "email"

// QueueSender publishes messages for a Worker to deliver.
type QueueSender struct {
	publisher mq.Publisher
	channel   string
}

func NewQueueSender(publisher mq.Publisher, channel string) *QueueSender {
	return &QueueSender{publisher: publisher, channel: channel}
}

func (s *QueueSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	data, err := json.Marshal(Email{To: to, Subject: subject, HTMLBody: htmlBody})
	if err != nil {
		return fmt.Errorf("encode email job: %w", err)
	}
	attrs := map[string]string{
		mq.AttrContentType: "application/json",
		"type":             jobType,
	}
	if _, err := s.publisher.Publish(ctx, s.channel, data, attrs); err != nil {
		return fmt.Errorf("publish email job: %w", err)
	}
	return nil
}

// Worker drains the email channel and hands each job to a Sender.
type Worker struct {
	subscriber mq.Subscriber
	channel    string
	sender     Sender
	logger     logging.Logger
}

func NewWorker(subscriber mq.Subscriber, channel string, sender Sender, logger logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Worker{subscriber: subscriber, channel: channel, sender: sender, logger: logger}
}

// Run blocks until ctx is cancelled or the subscription fails.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info(ctx, "email worker started", "channel", w.channel)
	err := w.subscriber.Subscribe(ctx, w.channel, w.Handle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Handle delivers a single job. Malformed jobs are dropped; delivery
// failures are returned so the broker can redeliver.
func (w *Worker) Handle(ctx context.Context, msg mq.Message) error {
	var email Email
	if err := json.Unmarshal(msg.Data, &email); err != nil {
		w.logger.Error(ctx, "dropping malformed email job", "message_id", msg.ID, "error", err)
		return nil
	}
	if strings.TrimSpace(email.To) == "" {
		w.logger.Error(ctx, "dropping email job without recipient", "message_id", msg.ID)
		return nil
	}

	if err := w.sender.Send(ctx, email.To, email.Subject, email.HTMLBody); err != nil {
		w.logger.Warn(ctx, "email delivery failed", "message_id", msg.ID, "error", err)
		return err
	}
	w.logger.Debug(ctx, "email delivered", "message_id", msg.ID)
	return nil
}
