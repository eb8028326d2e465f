package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-tour-booking/internal/application"
	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	handlers "github.com/oksasatya/go-tour-booking/internal/interface/http"
	"github.com/oksasatya/go-tour-booking/internal/interface/middleware"
)

type ReviewModule struct {
	Handler *handlers.ReviewHandler
	Factory *handlers.Factory[entity.Review]
	Auth    *application.AuthService
}

func NewReviewModule(h *handlers.ReviewHandler, f *handlers.Factory[entity.Review], auth *application.AuthService) *ReviewModule {
	return &ReviewModule{Handler: h, Factory: f, Auth: auth}
}

func (m *ReviewModule) Register(rg *gin.RouterGroup) {
	reviews := rg.Group("/reviews")
	reviews.Use(middleware.Protect(m.Auth))
	{
		reviews.GET("", m.Factory.ReadMany())
		reviews.POST("", middleware.RestrictTo(entity.RoleUser), m.Handler.Create(""))
		reviews.GET("/:id", m.Factory.ReadOne())

		owners := middleware.RestrictTo(entity.RoleUser, entity.RoleAdmin)
		reviews.PATCH("/:id", owners, m.Factory.Update())
		reviews.DELETE("/:id", owners, m.Factory.Delete())
	}
}
