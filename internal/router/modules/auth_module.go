package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-tour-booking/internal/application"
	handlers "github.com/oksasatya/go-tour-booking/internal/interface/http"
	"github.com/oksasatya/go-tour-booking/internal/interface/middleware"
)

// AuthModule mounts the credential routes under /users.
type AuthModule struct {
	Handler *handlers.AuthHandler
	Auth    *application.AuthService
}

func NewAuthModule(h *handlers.AuthHandler, auth *application.AuthService) *AuthModule {
	return &AuthModule{Handler: h, Auth: auth}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.POST("/signup", m.Handler.Signup)
	users.POST("/login", m.Handler.Login)
	users.GET("/logout", m.Handler.Logout)
	users.POST("/forgot-password", m.Handler.ForgotPassword)
	users.PATCH("/reset-password/:token", m.Handler.ResetPassword)

	users.PATCH("/update-password", middleware.Protect(m.Auth), m.Handler.UpdatePassword)
}
