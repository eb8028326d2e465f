package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-tour-booking/internal/application"
	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	handlers "github.com/oksasatya/go-tour-booking/internal/interface/http"
	"github.com/oksasatya/go-tour-booking/internal/interface/middleware"
)

// UserModule wires the self-service profile routes and the admin user CRUD.
// Accounts are created through /users/signup only.
type UserModule struct {
	Handler *handlers.UserHandler
	Factory *handlers.Factory[entity.User]
	Auth    *application.AuthService
}

func NewUserModule(h *handlers.UserHandler, f *handlers.Factory[entity.User], auth *application.AuthService) *UserModule {
	return &UserModule{Handler: h, Factory: f, Auth: auth}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.Use(middleware.Protect(m.Auth))
	{
		users.GET("/me", m.Handler.GetMe)
		users.PATCH("/update-me", m.Handler.UpdateMe)
		users.PATCH("/update-my-photo", m.Handler.UploadPhoto)
		users.DELETE("/delete-me", m.Handler.DeleteMe)
	}

	admin := users.Group("")
	admin.Use(middleware.RestrictTo(entity.RoleAdmin))
	{
		admin.GET("", m.Factory.ReadMany())
		admin.GET("/:id", m.Factory.ReadOne())
		admin.PATCH("/:id", m.Factory.Update())
		admin.DELETE("/:id", m.Factory.Delete())
	}
}
