package application

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-tour-booking/internal/domain/credential"
	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/internal/domain/hooks"
	"github.com/oksasatya/go-tour-booking/internal/domain/query"
	"github.com/oksasatya/go-tour-booking/internal/domain/repository"
	"github.com/oksasatya/go-tour-booking/pkg/apperror"
)

var userSchema = query.Schema{
	"_id":       query.ID,
	"name":      query.String,
	"email":     query.String,
	"role":      query.String,
	"photo":     query.String,
	"createdAt": query.Time,
}

var userMutable = []string{"name", "email", "photo", "role"}

func NewUserResource(store repository.Collection[entity.User], creds *credential.Lifecycle, logger *logrus.Logger) *Resource[entity.User] {
	reg := hooks.NewRegistry[entity.User]().
		On("normalize-email", normalizeEmail, hooks.BeforeCreate, hooks.BeforeUpdate).
		On("defaults", userDefaults, hooks.BeforeCreate).
		On("hash-password", hashPassword(creds), hooks.BeforeCreate, hooks.BeforeUpdate).
		On("active-only", activeOnly, hooks.BeforeRead)

	return NewResource(Descriptor[entity.User]{
		Name:    "user",
		Schema:  userSchema,
		Mutable: userMutable,
		New:     entity.NewUser,
		Hooks:   reg,
	}, store, logger)
}

func normalizeEmail(_ *hooks.OpContext, ev *hooks.Event[entity.User]) error {
	if ev.Changed.Has("email") {
		ev.Doc.Email = strings.ToLower(strings.TrimSpace(ev.Doc.Email))
	}
	return nil
}

func userDefaults(_ *hooks.OpContext, ev *hooks.Event[entity.User]) error {
	if ev.Doc.Role == "" {
		ev.Doc.Role = entity.RoleUser
		ev.Changed.Touch("role")
	}
	if ev.Doc.Photo == "" {
		ev.Doc.Photo = entity.DefaultPhoto
		ev.Changed.Touch("photo")
	}
	return nil
}

// hashPassword runs only when the password field was written. On updates it
// also records the change timestamp so older tokens stop working.
func hashPassword(creds *credential.Lifecycle) hooks.Func[entity.User] {
	return func(oc *hooks.OpContext, ev *hooks.Event[entity.User]) error {
		ev.Changed.Drop("passwordConfirm")
		if !ev.Changed.Has("password") || ev.Doc.Password == "" {
			if oc.Op == hooks.OpCreate {
				return apperror.FieldError("password", "is required")
			}
			ev.Changed.Drop("password")
			return nil
		}
		if err := creds.HashAndStore(ev.Doc, ev.Doc.Password); err != nil {
			return err
		}
		if oc.Op == hooks.OpUpdate {
			creds.RecordChangeTimestamp(ev.Doc)
			ev.Changed.Touch("passwordChangedAt")
		}
		return nil
	}
}

func activeOnly(_ *hooks.OpContext, ev *hooks.Event[entity.User]) error {
	ev.Query.Prepend("active", query.Ne, false)
	return nil
}
