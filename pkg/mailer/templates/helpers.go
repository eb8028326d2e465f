package templates

import (
	"strings"
	"time"
)

// Brand is the sender identity stamped on every email.
type Brand struct {
	CompanyName string
	SupportURL  string
}

// Option pattern
type Option func(*EmailData)

func WithURL(url string) Option { return func(d *EmailData) { d.URL = url } }

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04 MST")
	}
}

func WithExpiresIn(dur time.Duration) Option {
	return WithExpiresAt(time.Now().Add(dur))
}

// NewBaseEmailData fills the common fields, then applies opts.
func NewBaseEmailData(b Brand, typ, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:        name,
		FirstName:   firstName(name),
		Email:       email,
		Type:        typ,
		CompanyName: b.CompanyName,
		SupportURL:  b.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewWelcomeData(b Brand, name, email, url string, opts ...Option) map[string]any {
	opts = append([]Option{WithURL(url)}, opts...)
	return ToMap(NewBaseEmailData(b, Welcome, name, email, opts...))
}

func NewPasswordResetData(b Brand, name, email, resetURL string, opts ...Option) map[string]any {
	opts = append([]Option{WithURL(resetURL)}, opts...)
	return ToMap(NewBaseEmailData(b, PasswordReset, name, email, opts...))
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return name
}
