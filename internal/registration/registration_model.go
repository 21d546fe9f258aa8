package registration

import (
	"time"

	"gorm.io/gorm"

	"github.com/courtside/rally/internal/session"
	"github.com/courtside/rally/internal/team"
)

// Registration status. A cancelled registration is terminal; rejoining a
// session means creating a new registration. Waitlisted survives only for
// historical rows written by the old creation-order ranking.
const (
	StatusForming    = "forming"
	StatusConfirmed  = "confirmed"
	StatusWaitlisted = "waitlisted"
	StatusCancelled  = "cancelled"
)

// Invite status, derived from the weekly status plus the member's response.
const (
	InviteInvited    = "invited"
	InviteConfirmed  = "confirmed"
	InviteDeclined   = "declined"
	InviteInactive   = "inactive"
	InviteNotInvited = "not_invited"
)

// Registration binds one team to one session for one week. At most one
// non-cancelled registration may exist per (team, session). Never deleted;
// cancellation is a status transition so history stays available to the
// weekly conflict scan.
type Registration struct {
	gorm.Model
	SessionID uint   `json:"session_id" gorm:"index;not null"`
	TeamID    uint   `json:"team_id" gorm:"index;not null"`
	WeekOf    string `json:"week_of" gorm:"index;not null"`
	Status    string `json:"status" gorm:"default:'forming'"`
}

// RegistrationMember is one person's line item within a registration.
// InviteToken is minted when the member is invited (weekly status active)
// and authorizes one response; a responded token stays on the row, inert,
// so repeat attempts get a precise error. Leaving active clears it.
type RegistrationMember struct {
	gorm.Model
	RegistrationID uint       `json:"registration_id" gorm:"index;not null"`
	PersonID       uint       `json:"person_id" gorm:"index;not null"`
	WeeklyStatus   string     `json:"weekly_status" gorm:"default:'not_invited'"`
	InviteStatus   string     `json:"invite_status" gorm:"default:'not_invited'"`
	InviteToken    *string    `json:"invite_token,omitempty" gorm:"uniqueIndex"`
	RespondedAt    *time.Time `json:"responded_at,omitempty"`
}

// MemberSelection is a captain's explicit weekly-status choice for one
// roster member.
type MemberSelection struct {
	PersonID     uint   `json:"person_id" binding:"required"`
	WeeklyStatus string `json:"weekly_status" binding:"required,oneof=active inactive not_invited"`
}

// WeeklyConflict is a hit from the system-wide conflict scan: the person is
// already active in another registration for the same week.
type WeeklyConflict struct {
	PersonID       uint
	RegistrationID uint
	TeamID         uint
	SessionID      uint
}

// MemberDetail is a registration member joined with their person profile.
type MemberDetail struct {
	RegistrationMember
	PersonName  string `json:"person_name"`
	PersonEmail string `json:"person_email"`
}

// RegistrationDetail is a registration with its members, for the captain's
// session view.
type RegistrationDetail struct {
	Registration
	Members []MemberDetail `json:"members"`
}

// MyRegistration is one row of a captain's registration overview.
type MyRegistration struct {
	Registration
	TeamName string           `json:"team_name"`
	Session  *session.Session `json:"session,omitempty"`
}

// InviteDetail is the invite landing-page payload looked up by token.
type InviteDetail struct {
	Member     RegistrationMember `json:"member"`
	PersonName string             `json:"person_name"`
	TeamName   string             `json:"team_name"`
	Session    *session.Session   `json:"session,omitempty"`
}

// StatusFromActiveCount derives the aggregate registration status from the
// number of active members. Capacity never waitlists automatically;
// maxTeams only drives the informational spots-remaining figure.
func StatusFromActiveCount(activeCount, confirmedThreshold int) string {
	if activeCount >= confirmedThreshold {
		return StatusConfirmed
	}
	return StatusForming
}

// InviteStatusForWeekly maps a weekly status to the invite status a fresh
// (unresponded) member gets.
func InviteStatusForWeekly(weeklyStatus string) string {
	switch weeklyStatus {
	case team.WeeklyActive:
		return InviteInvited
	case team.WeeklyInactive:
		return InviteInactive
	default:
		return InviteNotInvited
	}
}
