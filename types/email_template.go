package types

// TemplateUserRegistration names the template mailed after registration.
const TemplateUserRegistration = "UserRegistration"

// EmailTemplate is a named subject/body pair used for outbound mail.
// Body may contain positional placeholders {0}, {1}, ... which are replaced
// in order when the template is rendered.
type EmailTemplate struct {
	// ID is the unique identifier of the template.
	ID int `json:"id" db:"id"`

	// Name is the unique lookup key of the template.
	Name string `json:"name" db:"name"`

	// Subject is the mail subject line.
	Subject string `json:"subject" db:"subject"`

	// Body is the HTML body with positional placeholders.
	Body string `json:"body" db:"body"`
}
