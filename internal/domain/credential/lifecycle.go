// Package credential owns every rule about user secrets: hashing, change
// detection and single-use reset tokens. It never reads the environment;
// callers pass a Config.
package credential

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/internal/domain/query"
	"github.com/oksasatya/go-tour-booking/internal/domain/repository"
	"github.com/oksasatya/go-tour-booking/pkg/apperror"
)

type Config struct {
	Cost       int
	ResetTTL   time.Duration
	ChangeSkew time.Duration
	MinLength  int
	Now        func() time.Time
}

func DefaultConfig() Config {
	return Config{
		Cost:       12,
		ResetTTL:   10 * time.Minute,
		ChangeSkew: time.Second,
		MinLength:  8,
		Now:        time.Now,
	}
}

type Lifecycle struct {
	cfg Config
}

// New fills zero fields of cfg from DefaultConfig.
func New(cfg Config) *Lifecycle {
	def := DefaultConfig()
	if cfg.Cost == 0 {
		cfg.Cost = def.Cost
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = def.ResetTTL
	}
	if cfg.ChangeSkew < 0 {
		cfg.ChangeSkew = def.ChangeSkew
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = def.MinLength
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	return &Lifecycle{cfg: cfg}
}

func (l *Lifecycle) now() time.Time { return l.cfg.Now().UTC() }

// HashAndStore replaces u.Password with the bcrypt hash of plaintext and clears
// the transient confirmation.
func (l *Lifecycle) HashAndStore(u *entity.User, plaintext string) error {
	hash, err := l.hash(plaintext, u.PasswordConfirm)
	if err != nil {
		return err
	}
	u.Password = hash
	u.PasswordConfirm = ""
	return nil
}

func (l *Lifecycle) hash(plaintext, confirm string) (string, error) {
	if len(plaintext) < l.cfg.MinLength {
		return "", apperror.FieldError("password", fmt.Sprintf("must be at least %d characters long", l.cfg.MinLength))
	}
	if confirm != "" && confirm != plaintext {
		return "", apperror.FieldError("passwordConfirm", "passwords are not the same")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), l.cfg.Cost)
	if err != nil {
		return "", apperror.Wrap(apperror.Internal, "hash password", err)
	}
	return string(b), nil
}

// RecordChangeTimestamp is applied on password updates, never on creation. The
// skew keeps a token issued in the same second as the change valid.
func (l *Lifecycle) RecordChangeTimestamp(u *entity.User) {
	t := l.changedAt()
	u.PasswordChangedAt = &t
}

func (l *Lifecycle) changedAt() time.Time {
	return l.now().Add(-l.cfg.ChangeSkew)
}

func (l *Lifecycle) Verify(plaintext, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// WasChangedAfter compares in whole seconds since token iat has no finer resolution.
func (l *Lifecycle) WasChangedAfter(u *entity.User, issuedAt time.Time) bool {
	if u == nil || u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < u.PasswordChangedAt.Unix()
}

// IssueResetToken stores the token digest and expiry on u and returns the
// plaintext, which is never persisted. Reissuing overwrites the previous digest.
func (l *Lifecycle) IssueResetToken(u *entity.User) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", apperror.Wrap(apperror.Internal, "generate reset token", err)
	}
	token := hex.EncodeToString(b)
	exp := l.now().Add(l.cfg.ResetTTL)
	u.PasswordResetToken = HashToken(token)
	u.PasswordResetExpires = &exp
	return token, nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Updater is the atomic find-and-update a store must provide for reset consumption.
type Updater interface {
	UpdateOne(ctx context.Context, where []query.Condition, set map[string]any, unset []string) (*entity.User, error)
}

// ConsumeResetToken sets newPassword on the active user holding an unexpired
// token and clears the token in the same store call, so of any number of
// concurrent attempts at most one succeeds.
func (l *Lifecycle) ConsumeResetToken(ctx context.Context, users Updater, token, newPassword, confirm string) (*entity.User, error) {
	if token == "" {
		return nil, apperror.New(apperror.TokenInvalidOrExpired, "token is invalid or has expired")
	}
	hash, err := l.hash(newPassword, confirm)
	if err != nil {
		return nil, err
	}
	now := l.now()
	where := []query.Condition{
		{Field: "passwordResetToken", Op: query.Eq, Value: HashToken(token)},
		{Field: "passwordResetExpires", Op: query.Gt, Value: now},
		{Field: "active", Op: query.Ne, Value: false},
	}
	set := map[string]any{
		"password":          hash,
		"passwordChangedAt": l.changedAt(),
	}
	u, err := users.UpdateOne(ctx, where, set, []string{"passwordResetToken", "passwordResetExpires"})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.New(apperror.TokenInvalidOrExpired, "token is invalid or has expired")
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, "consume reset token", err)
	}
	return u, nil
}
