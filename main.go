package main

import (
	"github.com/courtside/rally/config"
	"github.com/courtside/rally/internal/freeagent"
	"github.com/courtside/rally/internal/person"
	"github.com/courtside/rally/internal/registration"
	"github.com/courtside/rally/internal/session"
	"github.com/courtside/rally/internal/team"
	"github.com/courtside/rally/pkg/logger"
	"github.com/courtside/rally/routes"
)

// @title Rally League API
// @version 1.0
// @description Session registration and roster coordination for a weekly volleyball league.
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	log := logger.Default()

	if err := config.Initialize(); err != nil {
		log.Fatal("failed to initialize application", "error", err)
	}
	cfg := config.GetConfig()

	err := config.DB.AutoMigrate(
		&person.Person{},
		&session.Session{},
		&team.Team{}, &team.RosterMember{},
		&registration.Registration{}, &registration.RegistrationMember{},
		&freeagent.FreeAgent{},
	)
	if err != nil {
		log.Fatal("automigrate failed", "error", err)
	}

	r := routes.SetupRoutes(config.DB, cfg)

	log.Info("starting server", "port", cfg.App.Port, "env", cfg.App.Env)
	if err := r.Run(":" + cfg.App.Port); err != nil {
		log.Fatal("failed to run server", "error", err)
	}
}
