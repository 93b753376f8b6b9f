package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bookify/apiserver/config"
	"github.com/bookify/apiserver/internal/handlers"
	"github.com/bookify/apiserver/internal/logging"
	"github.com/bookify/apiserver/internal/mq"
	"github.com/bookify/apiserver/internal/notify"
	"github.com/bookify/apiserver/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRouter_Healthz(t *testing.T) {
	router := NewRouter(handlers.NewUserHandler(nil, nil, nil, "secret", nil), logging.Nop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRouter_MeRequiresToken(t *testing.T) {
	router := NewRouter(handlers.NewUserHandler(nil, nil, nil, "secret", nil), logging.Nop())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNewRouter_UnknownRoutesUseErrorBody(t *testing.T) {
	router := NewRouter(handlers.NewUserHandler(nil, nil, nil, "secret", nil), logging.Nop())

	tests := []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/nope", http.StatusNotFound},
		{http.MethodPost, "/users/unknown/deeper", http.StatusNotFound},
		{http.MethodDelete, "/healthz", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

		assert.Equal(t, tt.status, rec.Code, tt.path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var body handlers.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, []string{http.StatusText(tt.status)}, body.ErrorMessages)
	}
}

type capturedMail struct {
	mu  sync.Mutex
	got []notify.Email
}

func (c *capturedMail) Send(_ context.Context, to, subject, htmlBody string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, notify.Email{To: to, Subject: subject, HTMLBody: htmlBody})
	return nil
}

func (c *capturedMail) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

func TestStartWorker_DeliversInProcess(t *testing.T) {
	delivery := &capturedMail{}
	sender, closer, err := startWorker(context.Background(), mq.NewMemory(0), "email.verification", delivery, logging.Nop())
	require.NoError(t, err)

	require.NoError(t, sender.Send(context.Background(), "alice@example.com", "Welcome", "<p>hi</p>"))
	require.Eventually(t, func() bool { return delivery.count() == 1 }, time.Second, 10*time.Millisecond)
	assert.NoError(t, closer())

	assert.Equal(t, notify.Email{To: "alice@example.com", Subject: "Welcome", HTMLBody: "<p>hi</p>"}, delivery.got[0])
	assert.Error(t, sender.Send(context.Background(), "bob@example.com", "Welcome", "<p>hi</p>"))
}

func TestNewMailSender(t *testing.T) {
	cfg := config.Config{Notify: config.NotifyConfig{Backend: "log"}}
	sender, closer, err := newMailSender(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	assert.IsType(t, &notify.LogSender{}, sender)
	assert.NoError(t, closer())

	cfg.Notify.Backend = "smtp"
	cfg.SMTP = config.SMTPConfig{Host: "localhost", Port: 25, From: "no-reply@bookify.local"}
	sender, _, err = newMailSender(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	assert.IsType(t, &notify.SMTPSender{}, sender)

	cfg.Notify.Backend = "memory"
	cfg.Notify.Channel = "email.verification"
	sender, closer, err = newMailSender(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	assert.IsType(t, &notify.QueueSender{}, sender)
	assert.NoError(t, closer())

	cfg.Notify.Backend = "carrier-pigeon"
	_, _, err = newMailSender(context.Background(), cfg, logging.Nop())
	assert.ErrorContains(t, err, "unknown notify backend")
}

func TestNewTemplateSource(t *testing.T) {
	dbConn, _, err := sqlmock.New()
	require.NoError(t, err)
	defer dbConn.Close()

	source, _, err := newTemplateSource(context.Background(), config.Config{Templates: config.TemplateConfig{Source: "db"}}, dbConn)
	require.NoError(t, err)
	assert.IsType(t, &store.EmailTemplateRepository{}, source)

	_, _, err = newTemplateSource(context.Background(), config.Config{Templates: config.TemplateConfig{Source: "minio"}}, dbConn)
	assert.ErrorContains(t, err, "minio endpoint is required")

	_, _, err = newTemplateSource(context.Background(), config.Config{Templates: config.TemplateConfig{Source: "ftp"}}, dbConn)
	assert.ErrorContains(t, err, "unknown template source")
}

func TestOpenQueue_RequiresBroker(t *testing.T) {
	_, err := OpenQueue(context.Background(), config.Config{Notify: config.NotifyConfig{Backend: "log"}})
	assert.Error(t, err)

	_, err = OpenQueue(context.Background(), config.Config{Notify: config.NotifyConfig{Backend: "pubsub"}})
	assert.ErrorContains(t, err, "project id")
}
