package freeagent

import (
	"github.com/gin-gonic/gin"

	"github.com/courtside/rally/internal/middleware"
)

// RegisterRoutes mounts the free-agent board. Signup and withdrawal work
// for anonymous callers; identity is attached when present so withdrawals
// can be matched by subject id as well as email.
func RegisterRoutes(router *gin.RouterGroup, service *Service, identitySecret string) {
	ctl := NewController(service)

	sessions := router.Group("/sessions")
	sessions.Use(middleware.OptionalIdentity(identitySecret))
	{
		sessions.POST("/:id/free-agents", ctl.SignUp)
		sessions.GET("/:id/free-agents", ctl.ListBySession)
	}

	agents := router.Group("/free-agents")
	agents.Use(middleware.OptionalIdentity(identitySecret))
	{
		agents.POST("/:id/withdraw", ctl.Withdraw)
	}
}
