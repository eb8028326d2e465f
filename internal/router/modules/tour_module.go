package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-tour-booking/internal/application"
	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	handlers "github.com/oksasatya/go-tour-booking/internal/interface/http"
	"github.com/oksasatya/go-tour-booking/internal/interface/middleware"
)

// TourModule mounts /tours, the derived tour endpoints and the reviews nested
// under a tour.
type TourModule struct {
	Handler       *handlers.TourHandler
	Factory       *handlers.Factory[entity.Tour]
	Reviews       *handlers.ReviewHandler
	ReviewFactory *handlers.Factory[entity.Review]
	Auth          *application.AuthService
}

func NewTourModule(h *handlers.TourHandler, f *handlers.Factory[entity.Tour], rh *handlers.ReviewHandler, rf *handlers.Factory[entity.Review], auth *application.AuthService) *TourModule {
	return &TourModule{Handler: h, Factory: f, Reviews: rh, ReviewFactory: rf, Auth: auth}
}

func (m *TourModule) Register(rg *gin.RouterGroup) {
	protect := middleware.Protect(m.Auth)
	editors := middleware.RestrictTo(entity.RoleAdmin, entity.RoleLeadGuide)

	tours := rg.Group("/tours")
	tours.GET("/top-5-cheap", handlers.AliasTopCheap(), m.Factory.ReadMany())
	tours.GET("/tour-stats", m.Handler.Stats)
	tours.GET("/monthly-plan/:year", protect,
		middleware.RestrictTo(entity.RoleAdmin, entity.RoleLeadGuide, entity.RoleGuide), m.Handler.MonthlyPlan)
	tours.GET("/tours-within/:distance/center/:latlng/unit/:unit", m.Handler.Within)
	tours.GET("/distances/:latlng/unit/:unit", m.Handler.Distances)
	tours.GET("/search", m.Handler.Search)

	tours.GET("", m.Factory.ReadMany())
	tours.GET("/:id", m.Factory.ReadOne())
	tours.POST("", protect, editors, m.Factory.Create())
	tours.PATCH("/:id", protect, editors, m.Factory.Update())
	tours.DELETE("/:id", protect, editors, m.Factory.Delete())

	nested := tours.Group("/:id/reviews")
	nested.Use(protect)
	{
		nested.GET("", m.ReviewFactory.WithScope(m.Reviews.Scope("id")).ReadMany())
		nested.POST("", middleware.RestrictTo(entity.RoleUser), m.Reviews.Create("id"))
	}
}
