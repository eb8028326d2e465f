package application

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/pkg/apperror"
)

// fields a user may change on their own profile
var selfServiceFields = map[string]bool{"name": true, "email": true, "photo": true}

var photoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type UserService struct {
	users  *Resource[entity.User]
	media  MediaStore
	logger *logrus.Logger
}

// NewUserService wires the self-service flows. media may be nil, in which
// case photo uploads are rejected.
func NewUserService(users *Resource[entity.User], media MediaStore, logger *logrus.Logger) *UserService {
	return &UserService{users: users, media: media, logger: logger}
}

func (s *UserService) Me(ctx context.Context, u *entity.User) (*entity.User, error) {
	return s.users.ReadOne(ctx, u.ID.Hex())
}

// UpdateMe applies a profile patch. Password fields are refused with a pointer
// to the dedicated route; other unknown keys are dropped.
func (s *UserService) UpdateMe(ctx context.Context, u *entity.User, body map[string]any) (*entity.User, error) {
	if _, ok := body["password"]; ok {
		return nil, apperror.New(apperror.ValidationFailed, "this route is not for password updates, please use /update-password")
	}
	if _, ok := body["passwordConfirm"]; ok {
		return nil, apperror.New(apperror.ValidationFailed, "this route is not for password updates, please use /update-password")
	}
	patch := make(map[string]any, len(body))
	for k, v := range body {
		if selfServiceFields[k] {
			patch[k] = v
		}
	}
	return s.users.Update(ctx, u.ID.Hex(), patch)
}

// UploadPhoto stores the image and points the user's photo at it.
func (s *UserService) UploadPhoto(ctx context.Context, u *entity.User, r io.Reader, filename, contentType string) (*entity.User, error) {
	if s.media == nil {
		return nil, apperror.New(apperror.Internal, "photo storage is not configured")
	}
	ext, ok := photoTypes[strings.ToLower(contentType)]
	if !ok {
		return nil, apperror.FieldError("photo", "not an image, please upload only images")
	}
	if e := strings.ToLower(filepath.Ext(filename)); e != "" {
		ext = e
	}
	objectPath := filepath.ToSlash(filepath.Join("users", u.ID.Hex(), uuid.NewString()+ext))
	url, err := s.media.Upload(ctx, objectPath, contentType, r)
	if err != nil {
		orStd(s.logger).WithError(err).WithField("user_id", u.ID.Hex()).Error("photo upload failed")
		return nil, apperror.Wrap(apperror.Internal, "upload photo", err)
	}
	return s.users.Update(ctx, u.ID.Hex(), map[string]any{"photo": url})
}

// DeleteMe deactivates the account. The document stays; reads stop seeing it.
func (s *UserService) DeleteMe(ctx context.Context, u *entity.User) error {
	_, err := s.users.Modify(ctx, u.ID.Hex(), func(doc *entity.User) ([]string, error) {
		doc.Active = false
		return []string{"active"}, nil
	})
	return err
}
