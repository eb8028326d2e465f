package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-tour-booking/internal/application"
	"github.com/oksasatya/go-tour-booking/internal/domain/entity"
	"github.com/oksasatya/go-tour-booking/pkg/apperror"
	"github.com/oksasatya/go-tour-booking/pkg/helpers"
	"github.com/oksasatya/go-tour-booking/pkg/response"
)

const (
	CtxUserKey   = "user"
	CtxUserIDKey = "userID"
)

// Protect resolves the bearer token (Authorization header first, then the
// jwt cookie) to a live user and stores it in the Gin context.
func Protect(auth *application.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := auth.Authenticate(c.Request.Context(), TokenFrom(c))
		if err != nil {
			abort(c, err)
			return
		}
		c.Set(CtxUserKey, u)
		c.Set(CtxUserIDKey, u.ID.Hex())
		c.Next()
	}
}

// RestrictTo must run after Protect.
func RestrictTo(roles ...entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil || !u.Role.In(roles...) {
			abort(c, apperror.New(apperror.Forbidden, "you do not have permission to perform this action"))
			return
		}
		c.Next()
	}
}

func TokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if t, err := c.Cookie(helpers.TokenCookie); err == nil {
		return t
	}
	return ""
}

func CurrentUser(c *gin.Context) *entity.User {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*entity.User)
	return u
}

func abort(c *gin.Context, err error) {
	response.Fail(c, nil, err)
}
