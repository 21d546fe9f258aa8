// Package testdb provides an isolated in-memory database with the full
// schema for package tests. The sqlite driver is pure Go, so tests run
// without a postgres instance or cgo.
package testdb

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/courtside/rally/internal/freeagent"
	"github.com/courtside/rally/internal/person"
	"github.com/courtside/rally/internal/registration"
	"github.com/courtside/rally/internal/session"
	"github.com/courtside/rally/internal/team"
)

// Open returns a migrated database private to the calling test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	err = db.AutoMigrate(
		&person.Person{},
		&session.Session{},
		&team.Team{}, &team.RosterMember{},
		&registration.Registration{}, &registration.RegistrationMember{},
		&freeagent.FreeAgent{},
	)
	if err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}
