package router

import "github.com/gin-gonic/gin"

// Module mounts one feature's routes under /api.
type Module interface {
	Name() string
	Register(rg *gin.RouterGroup)
}
