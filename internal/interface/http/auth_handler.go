package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-tour-booking/internal/application"
	"github.com/oksasatya/go-tour-booking/internal/interface/middleware"
	"github.com/oksasatya/go-tour-booking/pkg/apperror"
	"github.com/oksasatya/go-tour-booking/pkg/helpers"
	"github.com/oksasatya/go-tour-booking/pkg/response"
	"github.com/oksasatya/go-tour-booking/pkg/validation"
)

type AuthHandler struct {
	Svc       *application.AuthService
	Logger    *logrus.Logger
	Cookies   *helpers.Manager
	PublicURL string
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger, cookies *helpers.Manager, publicURL string) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: cookies, PublicURL: publicURL}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetRequest struct {
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
}

type updatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent" binding:"required"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
}

type sessionResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req application.SignupInput
	if !h.bind(c, &req) {
		return
	}
	sess, err := h.Svc.Signup(c.Request.Context(), req, h.PublicURL+"/me", middleware.Meta(c))
	if err != nil {
		WriteError(c, h.Logger, err)
		return
	}
	h.sendSession(c, http.StatusCreated, sess, "signed up")
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}
	sess, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password, middleware.Meta(c))
	if err != nil {
		WriteError(c, h.Logger, err)
		return
	}
	h.sendSession(c, http.StatusOK, sess, "logged in")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, nil, "logged out", nil)
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotRequest
	if !h.bind(c, &req) {
		return
	}
	resetURL := func(token string) string {
		return h.PublicURL + "/api/v1/users/reset-password/" + token
	}
	if err := h.Svc.ForgotPassword(c.Request.Context(), req.Email, resetURL, middleware.Meta(c)); err != nil {
		WriteError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "token sent to email", nil)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetRequest
	if !h.bind(c, &req) {
		return
	}
	sess, err := h.Svc.ResetPassword(c.Request.Context(), c.Param("token"), req.Password, req.PasswordConfirm, middleware.Meta(c))
	if err != nil {
		WriteError(c, h.Logger, err)
		return
	}
	h.sendSession(c, http.StatusOK, sess, "password reset")
}

func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if !h.bind(c, &req) {
		return
	}
	sess, err := h.Svc.UpdatePassword(c.Request.Context(), middleware.CurrentUser(c), req.PasswordCurrent, req.Password, req.PasswordConfirm, middleware.Meta(c))
	if err != nil {
		WriteError(c, h.Logger, err)
		return
	}
	h.sendSession(c, http.StatusOK, sess, "password updated")
}

func (h *AuthHandler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		WriteError(c, h.Logger, apperror.Validation(validation.ToDetails(err)))
		return false
	}
	return true
}

func (h *AuthHandler) sendSession(c *gin.Context, status int, sess *application.Session, msg string) {
	h.Cookies.SetToken(c, sess.Token, sess.ExpiresAt)
	response.Success(c, status, sessionResponse{Token: sess.Token, User: sess.User}, msg, nil)
}
