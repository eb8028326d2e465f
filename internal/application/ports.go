package application

import (
	"context"
	"io"

	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
)

// Notifier delivers account emails. Implementations may queue.
type Notifier interface {
	Welcome(ctx context.Context, u *entity.User, url string) error
	PasswordReset(ctx context.Context, u *entity.User, resetURL string) error
}

// MediaStore keeps uploaded images and returns their public URL.
type MediaStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CheckoutProvider creates a hosted payment session for one tour.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, tour *entity.Tour, user *entity.User, successURL, cancelURL string) (CheckoutSession, error)
}

// SearchIndex mirrors tours into a full text index.
type SearchIndex interface {
	IndexTour(ctx context.Context, t *entity.Tour) error
	RemoveTour(ctx context.Context, id string) error
	SearchTours(ctx context.Context, q string, size int) ([]string, error)
}

const (
	AuditSignup          = "signup"
	AuditLogin           = "login"
	AuditLoginFailed     = "login_failed"
	AuditResetIssued     = "password_reset_issued"
	AuditResetConsumed   = "password_reset_consumed"
	AuditResetFailed     = "password_reset_failed"
	AuditPasswordChanged = "password_changed"
)

type AuditEvent struct {
	UserID    string
	Email     string
	Action    string
	IP        string
	UserAgent string
	Metadata  map[string]any
}

// AuditLog records credential events. Recording is best effort.
type AuditLog interface {
	Record(ctx context.Context, ev AuditEvent) error
}
