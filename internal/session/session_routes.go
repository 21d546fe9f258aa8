package session

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the session catalog endpoints. All reads are
// public; session generation is lazy and safe to trigger redundantly.
func RegisterRoutes(router *gin.RouterGroup, service *Service) {
	ctl := NewController(service)

	sessions := router.Group("/sessions")
	{
		sessions.GET("", ctl.ListUpcoming)
		sessions.GET("/:id", ctl.Get)
		sessions.POST("/ensure", ctl.EnsureUpcoming)
	}
}
