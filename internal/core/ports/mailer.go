package ports

import "context"

// MailMessage is an outbound email.
type MailMessage struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers outbound email.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}
