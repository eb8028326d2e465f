package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-tour-booking/internal/application"
	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	handlers "github.com/oksasatya/go-tour-booking/internal/interface/http"
	"github.com/oksasatya/go-tour-booking/internal/interface/middleware"
)

type BookingModule struct {
	Handler *handlers.BookingHandler
	Factory *handlers.Factory[entity.Booking]
	Auth    *application.AuthService
}

func NewBookingModule(h *handlers.BookingHandler, f *handlers.Factory[entity.Booking], auth *application.AuthService) *BookingModule {
	return &BookingModule{Handler: h, Factory: f, Auth: auth}
}

func (m *BookingModule) Register(rg *gin.RouterGroup) {
	bookings := rg.Group("/bookings")
	bookings.Use(middleware.Protect(m.Auth))
	{
		bookings.GET("/my-tours", m.Handler.MyTours)
		bookings.GET("/checkout-session/:tourId", m.Handler.CheckoutSession)
	}

	staff := bookings.Group("")
	staff.Use(middleware.RestrictTo(entity.RoleAdmin, entity.RoleLeadGuide))
	{
		staff.GET("", m.Factory.ReadMany())
		staff.POST("", m.Factory.Create())
		staff.GET("/:id", m.Factory.ReadOne())
		staff.PATCH("/:id", m.Factory.Update())
		staff.DELETE("/:id", m.Factory.Delete())
	}
}
