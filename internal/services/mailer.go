package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bookify/apiserver/config"
	"github.com/bookify/apiserver/types"
)

// TemplateSource resolves email templates by name.
type TemplateSource interface {
	GetByName(ctx context.Context, name string) (types.EmailTemplate, error)
}

// MailSender delivers a single HTML message.
type MailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// VerificationMailer sends the registration mail carrying the verification
// link.
type VerificationMailer struct {
	templates TemplateSource
	sender    MailSender
	baseURL   string
	path      string
	contact   string
}

func NewVerificationMailer(templates TemplateSource, sender MailSender, cfg config.VerificationConfig) *VerificationMailer {
	return &VerificationMailer{
		templates: templates,
		sender:    sender,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		path:      strings.Trim(cfg.Path, "/"),
		contact:   cfg.ContactEmail,
	}
}

// VerificationLink builds {base}/{path}/{encodedToken}.
func (m *VerificationMailer) VerificationLink(encodedToken string) string {
	if m.path == "" {
		return m.baseURL + "/" + encodedToken
	}
	return m.baseURL + "/" + m.path + "/" + encodedToken
}

// SendVerification renders the UserRegistration template with the link and
// the contact address and hands it to the sender.
func (m *VerificationMailer) SendVerification(ctx context.Context, to, encodedToken string) error {
	tmpl, err := m.templates.GetByName(ctx, types.TemplateUserRegistration)
	if err != nil {
		return fmt.Errorf("load template %s: %w", types.TemplateUserRegistration, err)
	}

	body := FormatTemplate(tmpl.Body, m.VerificationLink(encodedToken), m.contact)
	if err := m.sender.Send(ctx, to, tmpl.Subject, body); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	return nil
}

// FormatTemplate replaces the positional placeholders {0}, {1}, ... in body
// with args. Placeholders without a matching argument are left untouched.
func FormatTemplate(body string, args ...string) string {
	if len(args) == 0 {
		return body
	}
	pairs := make([]string, 0, len(args)*2)
	for i, arg := range args {
		pairs = append(pairs, "{"+strconv.Itoa(i)+"}", arg)
	}
	return strings.NewReplacer(pairs...).Replace(body)
}
