package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-tour-booking/internal/application"
	"github.com/oksasatya/go-tour-booking/internal/domain/query"
	"github.com/oksasatya/go-tour-booking/internal/interface/middleware"
	"github.com/oksasatya/go-tour-booking/pkg/response"
)

type ReviewHandler struct {
	Svc    *application.ReviewService
	Logger *logrus.Logger
}

func NewReviewHandler(svc *application.ReviewService, logger *logrus.Logger) *ReviewHandler {
	return &ReviewHandler{Svc: svc, Logger: logger}
}

// Create takes the tour id from the path parameter tourParam when the route
// is nested, otherwise from the body.
func (h *ReviewHandler) Create(tourParam string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := bindBody(c)
		if err != nil {
			WriteError(c, h.Logger, err)
			return
		}
		rv, err := h.Svc.Create(c.Request.Context(), middleware.CurrentUser(c), c.Param(tourParam), body)
		if err != nil {
			WriteError(c, h.Logger, err)
			return
		}
		response.Success(c, http.StatusCreated, rv, "review created", nil)
	}
}

// Scope limits a nested list to the tour in path parameter tourParam.
func (h *ReviewHandler) Scope(tourParam string) ScopeFunc {
	return func(c *gin.Context) ([]query.Condition, error) {
		return h.Svc.Scope(c.Param(tourParam))
	}
}
