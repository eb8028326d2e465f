package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-tour-booking/internal/application"
	"github.com/oksasatya/go-tour-booking/internal/interface/middleware"
	"github.com/oksasatya/go-tour-booking/pkg/response"
)

type BookingHandler struct {
	Svc       *application.BookingService
	Logger    *logrus.Logger
	PublicURL string
}

func NewBookingHandler(svc *application.BookingService, logger *logrus.Logger, publicURL string) *BookingHandler {
	return &BookingHandler{Svc: svc, Logger: logger, PublicURL: publicURL}
}

func (h *BookingHandler) MyTours(c *gin.Context) {
	tours, err := h.Svc.MyTours(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		WriteError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, tours, "", response.ListMeta{Results: len(tours)})
}

func (h *BookingHandler) CheckoutSession(c *gin.Context) {
	sess, err := h.Svc.CheckoutSession(c.Request.Context(), middleware.CurrentUser(c), c.Param("tourId"),
		h.PublicURL+"/my-tours", h.PublicURL+"/tours")
	if err != nil {
		WriteError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, sess, "", nil)
}
