package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Template names a template set under pkg/mailer/templates rendered with Data;
// when it is empty Subject, Text and HTML are sent as given.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // "universal", or an email type such as "verify_otp"
	Data     map[string]any `json:"data,omitempty"`
}
