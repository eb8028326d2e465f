package application

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-tour-booking/internal/domain/credential"
	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/internal/domain/query"
	"github.com/oksasatya/go-tour-booking/pkg/apperror"
	"github.com/oksasatya/go-tour-booking/pkg/helpers"
)

var (
	errBadCredentials  = apperror.New(apperror.Unauthorized, "incorrect email or password")
	errNotLoggedIn     = apperror.New(apperror.Unauthorized, "you are not logged in, please log in to get access")
	errUserGone        = apperror.New(apperror.Unauthorized, "the user belonging to this token no longer exists")
	errPasswordChanged = apperror.New(apperror.Unauthorized, "user recently changed password, please log in again")
)

// Session is what a successful signup or login hands back to the transport.
type Session struct {
	User      *entity.User
	Token     string
	ExpiresAt time.Time
}

// RequestMeta describes the caller for the audit trail.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type SignupInput struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
}

type AuthService struct {
	users    *Resource[entity.User]
	creds    *credential.Lifecycle
	jwt      *helpers.JWTManager
	notifier Notifier
	audit    AuditLog
	logger   *logrus.Logger
}

// NewAuthService wires the credential flows. notifier and audit may be nil.
func NewAuthService(users *Resource[entity.User], creds *credential.Lifecycle, jwt *helpers.JWTManager, notifier Notifier, audit AuditLog, logger *logrus.Logger) *AuthService {
	return &AuthService{users: users, creds: creds, jwt: jwt, notifier: notifier, audit: audit, logger: logger}
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput, welcomeURL string, meta RequestMeta) (*Session, error) {
	u := entity.NewUser()
	u.Name = in.Name
	u.Email = in.Email
	u.Password = in.Password
	u.PasswordConfirm = in.PasswordConfirm
	created, err := s.users.Create(ctx, u)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if err := s.notifier.Welcome(ctx, created, welcomeURL); err != nil {
			orStd(s.logger).WithError(err).WithField("user_id", created.ID.Hex()).Warn("welcome email failed")
		}
	}
	s.record(ctx, created, AuditSignup, meta, nil)
	return s.issue(created)
}

func (s *AuthService) Login(ctx context.Context, email, password string, meta RequestMeta) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperror.New(apperror.ValidationFailed, "please provide email and password")
	}
	u, err := s.users.FindOne(ctx, query.New().Where("email", query.Eq, email))
	if err != nil && !apperror.IsKind(err, apperror.NotFound) {
		return nil, err
	}
	if u == nil || !s.creds.Verify(password, u.Password) {
		s.record(ctx, u, AuditLoginFailed, meta, map[string]any{"email": email})
		return nil, errBadCredentials
	}
	s.record(ctx, u, AuditLogin, meta, nil)
	return s.issue(u)
}

// Authenticate resolves a bearer token to its user. Tokens of removed users
// and tokens issued before the last password change are rejected.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*entity.User, error) {
	if token == "" {
		return nil, errNotLoggedIn
	}
	claims, err := s.jwt.Parse(token)
	if err != nil {
		return nil, apperror.Wrap(apperror.Unauthorized, "invalid token, please log in again", err)
	}
	u, err := s.users.FindOne(ctx, byID(claims.UserID))
	if err != nil {
		if apperror.IsKind(err, apperror.NotFound) {
			return nil, errUserGone
		}
		return nil, err
	}
	if s.creds.WasChangedAfter(u, claims.IssuedAtTime()) {
		return nil, errPasswordChanged
	}
	return u, nil
}

// ForgotPassword issues a reset token and mails resetURL(token). When the
// mail cannot be handed off, the token is withdrawn again.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, resetURL func(token string) string, meta RequestMeta) error {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.FindOne(ctx, query.New().Where("email", query.Eq, email))
	if err != nil {
		if apperror.IsKind(err, apperror.NotFound) {
			return apperror.New(apperror.NotFound, "there is no user with that email address")
		}
		return err
	}

	var token string
	u, err = s.users.Modify(ctx, u.ID.Hex(), func(doc *entity.User) ([]string, error) {
		t, err := s.creds.IssueResetToken(doc)
		if err != nil {
			return nil, err
		}
		token = t
		return resetFields, nil
	})
	if err != nil {
		return err
	}

	if s.notifier == nil {
		err = apperror.New(apperror.Internal, "no notifier configured")
	} else {
		err = s.notifier.PasswordReset(ctx, u, resetURL(token))
	}
	if err != nil {
		orStd(s.logger).WithError(err).WithField("user_id", u.ID.Hex()).Error("password reset email failed")
		if _, cErr := s.users.Modify(ctx, u.ID.Hex(), clearResetToken); cErr != nil {
			orStd(s.logger).WithError(cErr).WithField("user_id", u.ID.Hex()).Error("withdraw reset token failed")
		}
		return apperror.Wrap(apperror.Internal, "there was an error sending the email, try again later", err)
	}
	s.record(ctx, u, AuditResetIssued, meta, nil)
	return nil
}

var resetFields = []string{"passwordResetToken", "passwordResetExpires"}

func clearResetToken(doc *entity.User) ([]string, error) {
	doc.PasswordResetToken = ""
	doc.PasswordResetExpires = nil
	return resetFields, nil
}

// ResetPassword consumes a reset token and logs the user in.
func (s *AuthService) ResetPassword(ctx context.Context, token, password, confirm string, meta RequestMeta) (*Session, error) {
	if err := requireConfirm(confirm); err != nil {
		return nil, err
	}
	u, err := s.creds.ConsumeResetToken(ctx, s.users.Store(), token, password, confirm)
	if err != nil {
		if apperror.IsKind(err, apperror.TokenInvalidOrExpired) {
			s.record(ctx, nil, AuditResetFailed, meta, nil)
		}
		return nil, err
	}
	s.record(ctx, u, AuditResetConsumed, meta, nil)
	return s.issue(u)
}

// UpdatePassword changes the password of an authenticated user after checking
// the current one, then issues a fresh token.
func (s *AuthService) UpdatePassword(ctx context.Context, user *entity.User, current, password, confirm string, meta RequestMeta) (*Session, error) {
	if err := requireConfirm(confirm); err != nil {
		return nil, err
	}
	u, err := s.users.FindOne(ctx, byID(user.ID.Hex()))
	if err != nil {
		return nil, err
	}
	if !s.creds.Verify(current, u.Password) {
		return nil, apperror.New(apperror.Unauthorized, "your current password is wrong")
	}
	updated, err := s.users.Modify(ctx, u.ID.Hex(), func(doc *entity.User) ([]string, error) {
		doc.Password = password
		doc.PasswordConfirm = confirm
		return []string{"password"}, nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, updated, AuditPasswordChanged, meta, nil)
	return s.issue(updated)
}

// requireConfirm applies to every password change made by the account owner.
func requireConfirm(confirm string) error {
	if confirm == "" {
		return apperror.FieldError("passwordConfirm", "please confirm your password")
	}
	return nil
}

func (s *AuthService) issue(u *entity.User) (*Session, error) {
	token, exp, err := s.jwt.Issue(u.ID.Hex())
	if err != nil {
		orStd(s.logger).WithError(err).WithField("user_id", u.ID.Hex()).Error("issue token failed")
		return nil, apperror.Wrap(apperror.Internal, "issue token", err)
	}
	return &Session{User: u, Token: token, ExpiresAt: exp}, nil
}

// record is best effort; audit failures never fail the request.
func (s *AuthService) record(ctx context.Context, u *entity.User, action string, meta RequestMeta, extra map[string]any) {
	if s.audit == nil {
		return
	}
	ev := AuditEvent{Action: action, IP: meta.IP, UserAgent: meta.UserAgent, Metadata: extra}
	if u != nil {
		ev.UserID = u.ID.Hex()
		ev.Email = u.Email
	}
	if err := s.audit.Record(ctx, ev); err != nil {
		orStd(s.logger).WithError(err).WithField("action", action).Warn("audit record failed")
	}
}

func byID(id string) *query.Query {
	oid, err := ParseID(id)
	if err != nil {
		// matches nothing
		return query.New().Where("_id", query.In, []any{})
	}
	return query.New().Where("_id", query.Eq, oid)
}
