package router

import "github.com/gin-gonic/gin"

// Module is one feature area; it mounts its routes on the versioned API group.
type Module interface {
	Register(rg *gin.RouterGroup)
}
