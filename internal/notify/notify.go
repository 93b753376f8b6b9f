// Package notify delivers outbound mail, either directly over SMTP or
// through a message queue drained by a worker.
package notify

import "context"

// Sender delivers one HTML message.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Email is the queued form of a message.
type Email struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"htmlBody"`
}
