package team

import (
	"gorm.io/gorm"

	"github.com/courtside/rally/internal/person"
)

const (
	RoleCaptain = "captain"
	RolePlayer  = "player"

	// Weekly availability, both as roster default and per-registration
	// status.
	WeeklyActive     = "active"
	WeeklyInactive   = "inactive"
	WeeklyNotInvited = "not_invited"

	// A team is the captain plus 2 or 3 invited players at creation, and
	// never grows beyond 4 people total.
	MinInvitedPlayers = 2
	MaxInvitedPlayers = 3
	MaxRosterSize     = 4
)

// ValidWeeklyStatus reports whether s is one of the weekly availability
// values.
func ValidWeeklyStatus(s string) bool {
	return s == WeeklyActive || s == WeeklyInactive || s == WeeklyNotInvited
}

// Team is a captain-led group of players. Teams relate to sessions only
// through registrations, never directly.
type Team struct {
	gorm.Model
	Name             string `json:"name" gorm:"not null"`
	CaptainSubjectID string `json:"captain_subject_id" gorm:"index;not null"`
	CaptainName      string `json:"captain_name"`
	CaptainEmail     string `json:"captain_email"`
}

// RosterMember is a person's standing association with a team, independent
// of any specific week. Archived members are kept forever because
// historical registrations reference their person.
type RosterMember struct {
	gorm.Model
	TeamID   uint   `json:"team_id" gorm:"index;not null"`
	PersonID uint   `json:"person_id" gorm:"index;not null"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role" gorm:"default:'player'"`
	// DefaultWeeklyStatus seeds the member's weekly status on future
	// registrations.
	DefaultWeeklyStatus string `json:"default_weekly_status" gorm:"default:'active'"`
	IsArchived          bool   `json:"is_archived" gorm:"default:false"`
}

// PlayerInput is a to-be-invited player supplied at team creation or when
// adding a member.
type PlayerInput struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

// TeamDetail is a team with its roster, as returned to members.
type TeamDetail struct {
	Team
	Members   []RosterMember `json:"members"`
	CanManage bool           `json:"can_manage"`
}

// SessionRegistrar registers a freshly created team into a session within
// the same transaction as the team insert. Satisfied by the registration
// engine; declared here so the roster store does not depend on it.
type SessionRegistrar interface {
	RegisterWithinTx(tx *gorm.DB, actor person.Identity, teamID, sessionID uint) (uint, error)
}
