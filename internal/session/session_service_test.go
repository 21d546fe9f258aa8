package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/courtside/rally/internal/session"
	"github.com/courtside/rally/internal/testdb"
)

type stubTeamLister struct {
	teams map[uint][]session.RegisteredTeam
}

func (s *stubTeamLister) RegisteredTeams(sessionID uint) ([]session.RegisteredTeam, error) {
	return s.teams[sessionID], nil
}

func newSessionService(t *testing.T) (*session.Service, *gorm.DB, *stubTeamLister) {
	t.Helper()
	db := testdb.Open(t)
	lister := &stubTeamLister{teams: map[uint][]session.RegisteredTeam{}}
	svc := session.NewService(session.NewRepository(db), lister, 24, 3)
	return svc, db, lister
}

func TestStartOfWeekMonday(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want string
	}{
		{"monday stays put", time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC), "2024-06-03"},
		{"thursday rolls back", time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC), "2024-06-03"},
		{"sunday belongs to the week before", time.Date(2024, 6, 9, 23, 59, 0, 0, time.UTC), "2024-06-03"},
		{"year boundary", time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC), "2024-12-30"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := session.StartOfWeekMonday(tc.in)
			assert.Equal(t, tc.want, got.Format(session.DateLayout))
			assert.Equal(t, time.Monday, got.Weekday())
			assert.Equal(t, tc.want, session.WeekOfDate(tc.in))
		})
	}
}

func TestEnsureUpcomingSessionsIsIdempotent(t *testing.T) {
	svc, db, _ := newSessionService(t)

	inserted, err := svc.EnsureUpcomingSessions(3)
	require.NoError(t, err)
	assert.Equal(t, 9, inserted, "three play nights for three weeks")

	inserted, err = svc.EnsureUpcomingSessions(3)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted, "second run must not duplicate")

	var sessions []session.Session
	require.NoError(t, db.Order("date").Find(&sessions).Error)
	require.Len(t, sessions, 9)

	weekStart := session.StartOfWeekMonday(time.Now())
	seenDates := map[string]bool{}
	dayCounts := map[string]int{}
	for _, sess := range sessions {
		assert.False(t, seenDates[sess.Date], "duplicate date %s", sess.Date)
		seenDates[sess.Date] = true
		dayCounts[sess.Day]++
		assert.Equal(t, 24, sess.MaxTeams)

		date, err := time.Parse(session.DateLayout, sess.Date)
		require.NoError(t, err)
		assert.Equal(t, session.WeekOfDate(date), sess.WeekOf, "week_of must be the Monday of the date's week")
		assert.False(t, date.Before(weekStart))
		assert.True(t, date.Before(weekStart.AddDate(0, 0, 21)))
	}
	assert.Equal(t, 3, dayCounts[session.DayTuesday])
	assert.Equal(t, 3, dayCounts[session.DayWednesday])
	assert.Equal(t, 3, dayCounts[session.DayThursday])
}

func TestEnsureUpcomingSessionsTopsUpHorizon(t *testing.T) {
	svc, _, _ := newSessionService(t)

	inserted, err := svc.EnsureUpcomingSessions(1)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	inserted, err = svc.EnsureUpcomingSessions(2)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted, "only the added week is new")
}

func TestEnsureUpcomingSessionsClampsWeeks(t *testing.T) {
	svc, _, _ := newSessionService(t)

	inserted, err := svc.EnsureUpcomingSessions(0)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted, "non-positive horizon falls back to one week")
}

func TestListUpcomingSkipsPastSessions(t *testing.T) {
	svc, db, _ := newSessionService(t)

	now := time.Now().UTC()
	past := now.AddDate(0, 0, -7)
	future := now.AddDate(0, 0, 7)
	require.NoError(t, db.Create(&session.Session{
		Date: past.Format(session.DateLayout), Day: session.DayTuesday,
		WeekOf: session.WeekOfDate(past), MaxTeams: 24,
	}).Error)
	require.NoError(t, db.Create(&session.Session{
		Date: future.Format(session.DateLayout), Day: session.DayTuesday,
		WeekOf: session.WeekOfDate(future), MaxTeams: 24,
	}).Error)
	require.NoError(t, db.Create(&session.Session{
		Date: now.Format(session.DateLayout), Day: session.DayWednesday,
		WeekOf: session.WeekOfDate(now), MaxTeams: 24,
	}).Error)

	summaries, err := svc.ListUpcoming()
	require.NoError(t, err)
	require.Len(t, summaries, 2, "today counts as upcoming, last week does not")
	assert.Equal(t, now.Format(session.DateLayout), summaries[0].Date)
	assert.Equal(t, future.Format(session.DateLayout), summaries[1].Date)
	for _, s := range summaries {
		assert.Equal(t, 0, s.TeamCount)
		assert.Equal(t, 24, s.SpotsRemaining)
	}
}

func TestListUpcomingCountsActiveRegistrations(t *testing.T) {
	svc, db, _ := newSessionService(t)

	future := time.Now().UTC().AddDate(0, 0, 7)
	sess := &session.Session{
		Date: future.Format(session.DateLayout), Day: session.DayThursday,
		WeekOf: session.WeekOfDate(future), MaxTeams: 24,
	}
	require.NoError(t, db.Create(sess).Error)

	insert := func(teamID uint, status string) {
		require.NoError(t, db.Table("registrations").Create(map[string]interface{}{
			"session_id": sess.ID,
			"team_id":    teamID,
			"week_of":    sess.WeekOf,
			"status":     status,
			"created_at": time.Now(),
			"updated_at": time.Now(),
		}).Error)
	}
	insert(1, "confirmed")
	insert(2, "forming")
	insert(3, "cancelled")

	summaries, err := svc.ListUpcoming()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].TeamCount, "cancelled registrations do not occupy a spot")
	assert.Equal(t, 22, summaries[0].SpotsRemaining)
}

func TestGetDetail(t *testing.T) {
	svc, db, lister := newSessionService(t)

	detail, err := svc.GetDetail(404)
	require.NoError(t, err)
	assert.Nil(t, detail, "missing session is not an error")

	sess := &session.Session{Date: "2099-06-02", Day: session.DayTuesday, WeekOf: "2099-06-01", MaxTeams: 24}
	require.NoError(t, db.Create(sess).Error)
	lister.teams[sess.ID] = []session.RegisteredTeam{
		{RegistrationID: 1, TeamID: 10, TeamName: "Net Gains", RegistrationStatus: "confirmed"},
		{RegistrationID: 2, TeamID: 11, TeamName: "Block Party", RegistrationStatus: "forming"},
	}

	detail, err = svc.GetDetail(sess.ID)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, 2, detail.TeamCount)
	assert.Equal(t, 22, detail.SpotsRemaining)
	require.Len(t, detail.Teams, 2)
	assert.Equal(t, "Net Gains", detail.Teams[0].TeamName)
}
