package team

import (
	"github.com/gin-gonic/gin"

	"github.com/courtside/rally/internal/middleware"
)

// RegisterRoutes mounts the roster store endpoints. Everything here
// requires an authenticated caller.
func RegisterRoutes(router *gin.RouterGroup, service *Service, identitySecret string) {
	ctl := NewController(service)

	teams := router.Group("/teams")
	teams.Use(middleware.RequireIdentity(identitySecret))
	{
		teams.POST("", ctl.Create)
		teams.GET("", ctl.ListMine)
		teams.GET("/:id", ctl.Get)
		teams.PUT("/:id", ctl.Update)
		teams.POST("/:id/members", ctl.AddMember)
		teams.DELETE("/:id/members/:memberId", ctl.RemoveMember)
		teams.PATCH("/:id/members/:memberId/default-status", ctl.UpdateDefaultStatus)
	}
}
