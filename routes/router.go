package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/courtside/rally/config"
	"github.com/courtside/rally/internal/freeagent"
	"github.com/courtside/rally/internal/person"
	"github.com/courtside/rally/internal/registration"
	"github.com/courtside/rally/internal/session"
	"github.com/courtside/rally/internal/team"
)

// SetupRoutes wires repositories, services, and controllers onto a gin
// engine. The registration engine doubles as the session catalog's team
// lister and the roster store's session registrar.
func SetupRoutes(db *gorm.DB, cfg *config.Config) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())

	peopleRepo := person.NewRepository(db)
	sessionRepo := session.NewRepository(db)
	teamRepo := team.NewRepository(db)
	registrationRepo := registration.NewRepository(db)
	freeAgentRepo := freeagent.NewRepository(db)

	registrationService := registration.NewService(
		registrationRepo, teamRepo, sessionRepo, peopleRepo,
		cfg.League.ConfirmedThreshold,
	)
	sessionService := session.NewService(
		sessionRepo, registrationService,
		cfg.League.MaxTeamsPerSession, cfg.League.DefaultWeeksAhead,
	)
	teamService := team.NewService(teamRepo, peopleRepo, registrationService)
	freeAgentService := freeagent.NewService(freeAgentRepo, sessionRepo)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")
	session.RegisterRoutes(api, sessionService)
	team.RegisterRoutes(api, teamService, cfg.Identity.Secret)
	registration.RegisterRoutes(api, registrationService, cfg.Identity.Secret)
	freeagent.RegisterRoutes(api, freeAgentService, cfg.Identity.Secret)

	return r
}
