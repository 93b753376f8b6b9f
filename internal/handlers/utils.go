package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bookify/apiserver/internal/logging"
	"github.com/bookify/apiserver/internal/services"
)

const (
	maxBodyBytes      = 1 << 20
	unexpectedMessage = "An unexpected error occurred."
)

type contextKey string

const contextSubjectKey contextKey = "sub"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	ErrorMessages []string `json:"errorMessages"`
}

func accountIDFromContext(ctx context.Context) (string, error) {
	subject, ok := ctx.Value(contextSubjectKey).(string)
	if !ok {
		return "", errors.New("missing subject")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", errors.New("invalid subject")
	}
	return subject, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return errors.New("request body is not valid JSON")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, messages ...string) {
	if messages == nil {
		messages = []string{}
	}
	writeJSON(w, status, ErrorResponse{ErrorMessages: messages})
}

// writeServiceError renders err. A *services.Error carries its own status
// and messages; anything else is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		if svcErr.Status >= http.StatusInternalServerError {
			logger.Error(r.Context(), "request failed", "kind", svcErr.Kind, "path", r.URL.Path, "error", err)
		}
		writeError(w, svcErr.Status, svcErr.Messages...)
		return
	}

	logger.Error(r.Context(), "unexpected error", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, unexpectedMessage)
}
