package mail

import (
	"context"
	"errors"
)

var ErrNoRecipients = errors.New("mail: message has no recipients")

// Message is an outgoing mail. When both bodies are set the text body is
// sent as the plain alternative of the HTML one.
type Message struct {
	From     string
	To       []string
	Cc       []string
	Bcc      []string
	Subject  string
	TextBody string
	HTMLBody string
}

func (m *Message) validate() error {
	if len(m.To)+len(m.Cc)+len(m.Bcc) == 0 {
		return ErrNoRecipients
	}
	return nil
}

type MailSender interface {
	Send(ctx context.Context, message *Message) error
}
