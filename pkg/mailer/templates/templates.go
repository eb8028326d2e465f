package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	htmpl "html/template"
	"strings"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

const (
	Welcome       = "welcome"
	PasswordReset = "password_reset"
)

var ErrUnknownTemplate = errors.New("unknown email template")

// EmailData is the variable set every template can rely on.
type EmailData struct {
	Name      string `json:"Name"`
	FirstName string `json:"FirstName"`
	Email     string `json:"Email"`
	Type      string `json:"Type"`

	CompanyName string `json:"CompanyName"`
	SupportURL  string `json:"SupportURL"`

	// URL is the call to action: the account page or the reset link
	URL           string    `json:"URL"`
	ExpiresAt     time.Time `json:"ExpiresAt"`
	ExpiresAtText string    `json:"ExpiresAtText"`
}

// ToMap flattens d into the loosely typed Data of a queued job.
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// fallbackTo supports {{ .CompanyName | default "Natours" }}. Queued data
// arrives as decoded JSON, so only strings and nil need handling.
func fallbackTo(fallback string, value any) any {
	switch x := value.(type) {
	case nil:
		return fallback
	case string:
		if strings.TrimSpace(x) == "" {
			return fallback
		}
	}
	return value
}

func funcs() map[string]any {
	return map[string]any{
		"upper":   strings.ToUpper,
		"default": fallbackTo,
	}
}

// set is the three parts of one email, parsed once at start.
type set struct {
	subject *texttpl.Template
	text    *texttpl.Template
	html    *htmpl.Template
}

var sets = map[string]*set{
	Welcome:       mustParse(Welcome),
	PasswordReset: mustParse(PasswordReset),
}

func mustParse(name string) *set {
	return &set{
		subject: texttpl.Must(texttpl.New(name).Funcs(funcs()).ParseFS(FS, name+".subject.tmpl")),
		text:    texttpl.Must(texttpl.New(name).Funcs(funcs()).ParseFS(FS, name+".text.tmpl")),
		html:    htmpl.Must(htmpl.New(name).Funcs(funcs()).ParseFS(FS, name+".html.tmpl")),
	}
}

// Render produces the subject, plain text and HTML bodies of template name.
func Render(name string, data any) (subject, text, html string, err error) {
	s, ok := sets[name]
	if !ok {
		return "", "", "", fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	var sb, tb, hb bytes.Buffer
	if err = s.subject.ExecuteTemplate(&sb, name+".subject.tmpl", data); err != nil {
		return "", "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	if err = s.text.ExecuteTemplate(&tb, name+".text.tmpl", data); err != nil {
		return "", "", "", fmt.Errorf("render %s text: %w", name, err)
	}
	if err = s.html.ExecuteTemplate(&hb, name+".html.tmpl", data); err != nil {
		return "", "", "", fmt.Errorf("render %s html: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), tb.String(), hb.String(), nil
}
