package email

import (
	"context"
	"time"

	"github.com/oksasatya/go-tour-booking/internal/application"
	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/pkg/mailer"
	mailtpl "github.com/oksasatya/go-tour-booking/pkg/mailer/templates"
)

// Publisher is satisfied by helpers.RabbitPublisher.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// QueueNotifier hands account emails to the email worker through the queue.
// A nil error means the job was queued, not that it was delivered.
type QueueNotifier struct {
	pub      Publisher
	brand    mailtpl.Brand
	resetTTL time.Duration
}

func NewQueueNotifier(pub Publisher, brand mailtpl.Brand, resetTTL time.Duration) *QueueNotifier {
	return &QueueNotifier{pub: pub, brand: brand, resetTTL: resetTTL}
}

func (n *QueueNotifier) Welcome(ctx context.Context, u *entity.User, url string) error {
	return n.pub.PublishJSON(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: mailtpl.Welcome,
		Data:     mailtpl.NewWelcomeData(n.brand, u.Name, u.Email, url),
	})
}

func (n *QueueNotifier) PasswordReset(ctx context.Context, u *entity.User, resetURL string) error {
	var opts []mailtpl.Option
	if u.PasswordResetExpires != nil {
		opts = append(opts, mailtpl.WithExpiresAt(*u.PasswordResetExpires))
	} else if n.resetTTL > 0 {
		opts = append(opts, mailtpl.WithExpiresIn(n.resetTTL))
	}
	return n.pub.PublishJSON(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: mailtpl.PasswordReset,
		Data:     mailtpl.NewPasswordResetData(n.brand, u.Name, u.Email, resetURL, opts...),
	})
}

// Discard drops every email; used when mail sending is disabled.
type Discard struct{}

func (Discard) Welcome(context.Context, *entity.User, string) error       { return nil }
func (Discard) PasswordReset(context.Context, *entity.User, string) error { return nil }

var (
	_ application.Notifier = (*QueueNotifier)(nil)
	_ application.Notifier = Discard{}
)
