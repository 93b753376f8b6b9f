package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/bookify/apiserver/config"
	"github.com/bookify/apiserver/internal/logging"
	"github.com/bookify/apiserver/internal/mq"
	"github.com/bookify/apiserver/internal/notify"
	"github.com/bookify/apiserver/internal/services"
	"github.com/bookify/apiserver/internal/storage"
	"github.com/bookify/apiserver/internal/store"
)

type closeFunc func() error

func noopClose() error { return nil }

// OpenQueue connects to the broker selected by cfg.Notify.Backend.
func OpenQueue(ctx context.Context, cfg config.Config) (*mq.MQ, error) {
	switch backend := strings.ToLower(cfg.Notify.Backend); backend {
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return mq.New(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("notify backend %q has no queue", backend)
	}
}

// newMailSender builds the sender the API uses after registration.
func newMailSender(ctx context.Context, cfg config.Config, logger logging.Logger) (notify.Sender, closeFunc, error) {
	switch backend := strings.ToLower(cfg.Notify.Backend); backend {
	case "", "log":
		return notify.NewLogSender(logger), noopClose, nil
	case "smtp":
		sender, err := notify.NewSMTPSender(cfg.SMTP)
		if err != nil {
			return nil, nil, err
		}
		return sender, noopClose, nil
	case "memory":
		return startMemoryQueue(ctx, cfg, logger)
	case "rabbitmq", "pubsub":
		queue, err := OpenQueue(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s queue: %w", backend, err)
		}
		return notify.NewQueueSender(queue, cfg.Notify.Channel), queue.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown notify backend %q", backend)
	}
}

// startMemoryQueue runs the email worker inside the API process, delivering
// over SMTP through an in-process queue.
func startMemoryQueue(ctx context.Context, cfg config.Config, logger logging.Logger) (notify.Sender, closeFunc, error) {
	smtpSender, err := notify.NewSMTPSender(cfg.SMTP)
	if err != nil {
		return nil, nil, err
	}
	return startWorker(ctx, mq.NewMemory(0), cfg.Notify.Channel, smtpSender, logger)
}

func startWorker(ctx context.Context, queue *mq.Memory, channel string, delivery notify.Sender, logger logging.Logger) (notify.Sender, closeFunc, error) {
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	worker := notify.NewWorker(queue, channel, delivery, logger.With("component", "email-worker"))
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := worker.Run(workerCtx); err != nil && !errors.Is(err, mq.ErrClosed) {
			logger.Error(workerCtx, "email worker stopped", "error", err)
		}
	}()

	closer := func() error {
		cancel()
		err := queue.Close()
		<-done
		return err
	}
	return notify.NewQueueSender(queue, channel), closer, nil
}

// newTemplateSource selects where email templates are read from.
func newTemplateSource(ctx context.Context, cfg config.Config, dbConn *sql.DB) (services.TemplateSource, closeFunc, error) {
	switch source := strings.ToLower(cfg.Templates.Source); source {
	case "", "db":
		return store.NewEmailTemplateRepository(dbConn), noopClose, nil
	case "minio", "gcs":
		templates, closer, err := OpenTemplateStore(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return templates, closer, nil
	default:
		return nil, nil, fmt.Errorf("unknown template source %q", source)
	}
}

// OpenTemplateStore opens the object storage template store selected by
// cfg.Templates.Source.
func OpenTemplateStore(ctx context.Context, cfg config.Config) (*storage.TemplateStore, func() error, error) {
	switch source := strings.ToLower(cfg.Templates.Source); source {
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewTemplateStore(client, cfg.Templates.Prefix), noopClose, nil
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewTemplateStore(client, cfg.Templates.Prefix), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("template source %q is not object storage", source)
	}
}
