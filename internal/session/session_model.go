package session

import (
	"time"

	"gorm.io/gorm"
)

// Play-night weekdays. Offsets are days after the Monday of the week.
const (
	DayTuesday   = "tuesday"
	DayWednesday = "wednesday"
	DayThursday  = "thursday"
)

// ISO calendar date layout used for Date and WeekOf fields. String dates
// keep comparisons and grouping timezone-proof.
const DateLayout = "2006-01-02"

var sessionDays = []struct {
	Label  string
	Offset int
}{
	{DayTuesday, 1},
	{DayWednesday, 2},
	{DayThursday, 3},
}

// Session is a single day of play. Immutable once created; the calendar
// date is the natural dedup key.
type Session struct {
	gorm.Model
	Date     string `json:"date" gorm:"uniqueIndex;not null"`
	Day      string `json:"day" gorm:"not null"`
	WeekOf   string `json:"week_of" gorm:"index;not null"`
	MaxTeams int    `json:"max_teams" gorm:"not null"`
}

// Summary is a session annotated with live occupancy.
type Summary struct {
	Session
	TeamCount      int `json:"team_count"`
	SpotsRemaining int `json:"spots_remaining"`
}

// RegisteredTeam is one team's presence in a session, assembled by the
// registration engine for the session detail view.
type RegisteredTeam struct {
	RegistrationID     uint               `json:"registration_id"`
	TeamID             uint               `json:"team_id"`
	TeamName           string             `json:"team_name"`
	RegistrationStatus string             `json:"registration_status"`
	Members            []RegisteredMember `json:"members"`
}

// RegisteredMember is one person's line item inside a RegisteredTeam.
type RegisteredMember struct {
	PersonID     uint   `json:"person_id"`
	Name         string `json:"name"`
	WeeklyStatus string `json:"weekly_status"`
	InviteStatus string `json:"invite_status"`
}

// Detail is a session with its full nested team breakdown.
type Detail struct {
	Summary
	Teams []RegisteredTeam `json:"teams"`
}

// RegisteredTeamLister supplies the nested team breakdown for a session.
// Implemented by the registration engine and wired in at route setup.
type RegisteredTeamLister interface {
	RegisteredTeams(sessionID uint) ([]RegisteredTeam, error)
}

// StartOfWeekMonday returns midnight UTC of the Monday of t's week.
func StartOfWeekMonday(t time.Time) time.Time {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	diffToMonday := (int(t.Weekday()) + 6) % 7
	return midnight.AddDate(0, 0, -diffToMonday)
}

// WeekOfDate returns the WeekOf key for an arbitrary time.
func WeekOfDate(t time.Time) string {
	return StartOfWeekMonday(t).Format(DateLayout)
}
