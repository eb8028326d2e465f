package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-tour-booking/internal/application"
)

const CtxRealIPKey = "real_ip"

// RealIP stores the client IP under CtxRealIPKey. CF-Connecting-IP wins over
// the left-most X-Forwarded-For entry, which wins over c.ClientIP().
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(CtxRealIPKey, realIP(c))
		c.Next()
	}
}

func realIP(c *gin.Context) string {
	if ip := parseIP(c.GetHeader("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := parseIP(first); ip != "" {
			return ip
		}
	}
	return c.ClientIP()
}

func parseIP(s string) string {
	if ip := net.ParseIP(strings.TrimSpace(s)); ip != nil {
		return ip.String()
	}
	return ""
}

// Meta describes the caller for the credential audit trail.
func Meta(c *gin.Context) application.RequestMeta {
	return application.RequestMeta{IP: ipFromCtx(c), UserAgent: c.Request.UserAgent()}
}
