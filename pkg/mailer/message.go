package mailer

import (
	"context"
	"errors"

	mailtpl "github.com/oksasatya/go-tour-booking/pkg/mailer/templates"
)

// Message is one rendered email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
	Tag     string
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var ErrNoRecipient = errors.New("email job has no recipient")

// Compose renders job into a message. Jobs naming a template are rendered
// from it; others are sent as given.
func Compose(job EmailJob) (Message, error) {
	if job.To == "" {
		return Message{}, ErrNoRecipient
	}
	job.Ensure()
	msg := Message{To: job.To, Subject: job.Subject, Text: job.Text, HTML: job.HTML, Tag: job.Template}
	if job.Template == "" {
		return msg, nil
	}
	s, t, h, err := mailtpl.Render(job.Template, job.Data)
	if err != nil {
		return Message{}, err
	}
	msg.Subject, msg.Text, msg.HTML = s, t, h
	return msg, nil
}
