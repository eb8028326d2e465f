package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-tour-booking/internal/application"
	"github.com/oksasatya/go-tour-booking/internal/interface/middleware"
	"github.com/oksasatya/go-tour-booking/pkg/apperror"
	"github.com/oksasatya/go-tour-booking/pkg/response"
)

const maxPhotoBytes = 5 << 20

type UserHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

func (h *UserHandler) GetMe(c *gin.Context) {
	u, err := h.Svc.Me(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		WriteError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, u, "", nil)
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	body, err := bindBody(c)
	if err != nil {
		WriteError(c, h.Logger, err)
		return
	}
	u, err := h.Svc.UpdateMe(c.Request.Context(), middleware.CurrentUser(c), body)
	if err != nil {
		WriteError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, u, "profile updated", nil)
}

// UploadPhoto accepts a multipart form with a "photo" file.
func (h *UserHandler) UploadPhoto(c *gin.Context) {
	fh, err := c.FormFile("photo")
	if err != nil {
		WriteError(c, h.Logger, apperror.FieldError("photo", "is required"))
		return
	}
	if fh.Size > maxPhotoBytes {
		WriteError(c, h.Logger, apperror.FieldError("photo", "must be at most 5MB"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		WriteError(c, h.Logger, apperror.Wrap(apperror.Internal, "open upload", err))
		return
	}
	defer func() { _ = f.Close() }()

	u, err := h.Svc.UploadPhoto(c.Request.Context(), middleware.CurrentUser(c), f, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		WriteError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, u, "photo updated", nil)
}

func (h *UserHandler) DeleteMe(c *gin.Context) {
	if err := h.Svc.DeleteMe(c.Request.Context(), middleware.CurrentUser(c)); err != nil {
		WriteError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
