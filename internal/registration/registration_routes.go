package registration

import (
	"github.com/gin-gonic/gin"

	"github.com/courtside/rally/internal/middleware"
)

// RegisterRoutes mounts the registration engine endpoints. Registration
// management is captain territory and requires identity; invite responses
// are authorized by token possession alone, with identity attached when
// present.
func RegisterRoutes(router *gin.RouterGroup, service *Service, identitySecret string) {
	ctl := NewController(service)

	registrations := router.Group("/registrations")
	registrations.Use(middleware.RequireIdentity(identitySecret))
	{
		registrations.POST("", ctl.Register)
		registrations.GET("", ctl.GetForTeamAndSession)
		registrations.GET("/mine", ctl.ListMine)
		registrations.PUT("/:id/members", ctl.UpdateMembers)
		registrations.POST("/:id/leave", ctl.Leave)
	}

	invites := router.Group("/invites")
	invites.Use(middleware.OptionalIdentity(identitySecret))
	{
		invites.GET("/:token", ctl.GetInvite)
		invites.POST("/:token/respond", ctl.RespondToInvite)
	}
}
