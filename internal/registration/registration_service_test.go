package registration_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/courtside/rally/internal/person"
	"github.com/courtside/rally/internal/registration"
	"github.com/courtside/rally/internal/session"
	"github.com/courtside/rally/internal/team"
	"github.com/courtside/rally/internal/testdb"
	"github.com/courtside/rally/pkg/apperrors"
)

type engineEnv struct {
	db      *gorm.DB
	regs    *registration.Service
	teams   *team.Service
	people  person.Repository
	regRepo registration.Repository
}

func newEngineEnv(t *testing.T) *engineEnv {
	t.Helper()
	db := testdb.Open(t)
	peopleRepo := person.NewRepository(db)
	teamRepo := team.NewRepository(db)
	sessionRepo := session.NewRepository(db)
	regRepo := registration.NewRepository(db)

	regSvc := registration.NewService(regRepo, teamRepo, sessionRepo, peopleRepo, 3)
	teamSvc := team.NewService(teamRepo, peopleRepo, regSvc)
	return &engineEnv{db: db, regs: regSvc, teams: teamSvc, people: peopleRepo, regRepo: regRepo}
}

func (e *engineEnv) createSession(t *testing.T, date, day, weekOf string) *session.Session {
	t.Helper()
	s := &session.Session{Date: date, Day: day, WeekOf: weekOf, MaxTeams: 24}
	require.NoError(t, e.db.Create(s).Error)
	return s
}

func captain(n int) person.Identity {
	return person.Identity{
		SubjectID: fmt.Sprintf("subj-captain-%d", n),
		Email:     fmt.Sprintf("captain%d@example.com", n),
		Name:      fmt.Sprintf("Captain %d", n),
	}
}

func (e *engineEnv) createTeam(t *testing.T, actor person.Identity, name string, playerEmails ...string) uint {
	t.Helper()
	players := make([]team.PlayerInput, len(playerEmails))
	for i, email := range playerEmails {
		players[i] = team.PlayerInput{Name: "Player " + email, Email: email}
	}
	teamID, err := e.teams.CreateTeam(actor, name, players, nil)
	require.NoError(t, err)
	return teamID
}

func (e *engineEnv) personID(t *testing.T, email string) uint {
	t.Helper()
	p, err := e.people.GetByEmail(email)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.ID
}

func TestRegisterTeamConfirmedWhenThreeActive(t *testing.T) {
	env := newEngineEnv(t)
	cap := captain(1)
	teamID := env.createTeam(t, cap, "Net Gains", "a@example.com", "b@example.com")
	sess := env.createSession(t, "2024-06-04", session.DayTuesday, "2024-06-03")

	regID, err := env.regs.RegisterTeamForSession(cap, teamID, sess.ID, nil)
	require.NoError(t, err)

	reg, err := env.regRepo.GetByID(regID)
	require.NoError(t, err)
	require.NotNil(t, reg)
	assert.Equal(t, registration.StatusConfirmed, reg.Status)
	assert.Equal(t, "2024-06-03", reg.WeekOf)

	members, err := env.regRepo.ListMembers(regID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	for _, m := range members {
		assert.Equal(t, team.WeeklyActive, m.WeeklyStatus)
		assert.Equal(t, registration.InviteInvited, m.InviteStatus)
		require.NotNil(t, m.InviteToken, "active member must have an invite token")
		assert.Nil(t, m.RespondedAt)
	}
}

func TestRegisterTeamFormingWithInactiveSelections(t *testing.T) {
	env := newEngineEnv(t)
	cap := captain(1)
	teamID := env.createTeam(t, cap, "Block Party", "a@example.com", "b@example.com")
	sess := env.createSession(t, "2024-06-04", session.DayTuesday, "2024-06-03")

	selections := []registration.MemberSelection{
		{PersonID: env.personID(t, "a@example.com"), WeeklyStatus: team.WeeklyInactive},
		{PersonID: env.personID(t, "b@example.com"), WeeklyStatus: team.WeeklyNotInvited},
	}
	regID, err := env.regs.RegisterTeamForSession(cap, teamID, sess.ID, selections)
	require.NoError(t, err)

	reg, err := env.regRepo.GetByID(regID)
	require.NoError(t, err)
	assert.Equal(t, registration.StatusForming, reg.Status)

	members, err := env.regRepo.ListMembers(regID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	byPerson := map[uint]registration.RegistrationMember{}
	for _, m := range members {
		byPerson[m.PersonID] = m
	}

	inactive := byPerson[env.personID(t, "a@example.com")]
	assert.Equal(t, registration.InviteInactive, inactive.InviteStatus)
	assert.Nil(t, inactive.InviteToken)

	notInvited := byPerson[env.personID(t, "b@example.com")]
	assert.Equal(t, registration.InviteNotInvited, notInvited.InviteStatus)
	assert.Nil(t, notInvited.InviteToken)

	capMember := byPerson[env.personID(t, cap.Email)]
	assert.Equal(t, registration.InviteInvited, capMember.InviteStatus)
	assert.NotNil(t, capMember.InviteToken)
}

func TestRegisterTeamRejectsDuplicateJoin(t *testing.T) {
	env := newEngineEnv(t)
	cap := captain(1)
	teamID := env.createTeam(t, cap, "Serve Aces", "a@example.com", "b@example.com")
	sess := env.createSession(t, "2024-06-04", session.DayTuesday, "2024-06-03")

	_, err := env.regs.RegisterTeamForSession(cap, teamID, sess.ID, nil)
	require.NoError(t, err)

	_, err = env.regs.RegisterTeamForSession(cap, teamID, sess.ID, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.Contains(t, err.Error(), "already joined")
}

func TestRegisterTeamRequiresCaptain(t *testing.T) {
	env := newEngineEnv(t)
	cap := captain(1)
	teamID := env.createTeam(t, cap, "Spiked Punch", "a@example.com", "b@example.com")
	sess := env.createSession(t, "2024-06-04", session.DayTuesday, "2024-06-03")

	_, err := env.regs.RegisterTeamForSession(captain(2), teamID, sess.ID, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))

	_, err = env.regs.RegisterTeamForSession(person.Identity{}, teamID, sess.ID, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthenticated))
}

func TestRegisterTeamIgnoresUnknownSelections(t *testing.T) {
	env := newEngineEnv(t)
	cap := captain(1)
	teamID := env.createTeam(t, cap, "Dig It", "a@example.com", "b@example.com")
	sess := env.createSession(t, "2024-06-04", session.DayTuesday, "2024-06-03")

	selections := []registration.MemberSelection{
		{PersonID: 99999, WeeklyStatus: team.WeeklyInactive},
	}
	regID, err := env.regs.RegisterTeamForSession(cap, teamID, sess.ID, selections)
	require.NoError(t, err)

	members, err := env.regRepo.ListMembers(regID)
	require.NoError(t, err)
	assert.Len(t, members, 3, "unknown selection must not add a member")

	reg, err := env.regRepo.GetByID(regID)
	require.NoError(t, err)
	assert.Equal(t, registration.StatusConfirmed, reg.Status)
}

func TestWeeklyConflictAcrossTeams(t *testing.T) {
	env := newEngineEnv(t)
	capA := captain(1)
	capB := captain(2)
	// p1 sits on both rosters via the same email.
	teamA := env.createTeam(t, capA, "Team A", "p1@example.com", "p2@example.com")
	teamB := env.createTeam(t, capB, "Team B", "p1@example.com", "p3@example.com")

	tuesday := env.createSession(t, "2024-06-04", session.DayTuesday, "2024-06-03")
	wednesday := env.createSession(t, "2024-06-05", session.DayWednesday, "2024-06-03")

	_, err := env.regs.RegisterTeamForSession(capA, teamA, tuesday.ID, nil)
	require.NoError(t, err)

	_, err = env.regs.RegisterTeamForSession(capB, teamB, wednesday.ID, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.Contains(t, err.Error(), "Player p1@example.com")
	assert.Contains(t, err.Error(), "Team A")
	assert.Contains(t, err.Error(), "2024-06-04")

	// Marking the shared person inactive clears the way.
	selections := []registration.MemberSelection{
		{PersonID: env.personID(t, "p1@example.com"), WeeklyStatus: team.WeeklyInactive},
	}
	_, err = env.regs.RegisterTeamForSession(capB, teamB, wednesday.ID, selections)
	require.NoError(t, err)
}

func TestWeeklyConflictScopedToWeek(t *testing.T) {
	env := newEngineEnv(t)
	capA := captain(1)
	capB := captain(2)
	teamA := env.createTeam(t, capA, "Team A", "p1@example.com", "p2@example.com")
	teamB := env.createTeam(t, capB, "Team B", "p1@example.com", "p3@example.com")

	thisWeek := env.createSession(t, "2024-06-04", session.DayTuesday, "2024-06-03")
	nextWeek := env.createSession(t, "2024-06-11", session.DayTuesday, "2024-06-10")

	_, err := env.regs.RegisterTeamForSession(capA, teamA, thisWeek.ID, nil)
	require.NoError(t, err)

	_, err = env.regs.RegisterTeamForSession(capB, teamB, nextWeek.ID, nil)
	require.NoError(t, err, "same person active in a different week is fine")
}

func TestCancelledRegistrationExcludedFromConflicts(t *testing.T) {
	env := newEngineEnv(t)
	capA := captain(1)
	capB := captain(2)
	teamA := env.createTeam(t, capA, "Team A", "p1@example.com", "p2@example.com")
	teamB := env.createTeam(t, capB, "Team B", "p1@example.com", "p3@example.com")

	tuesday := env.createSession(t, "2024-06-04", session.DayTuesday, "2024-06-03")
	wednesday := env.createSession(t, "2024-06-05", session.DayWednesday, "2024-06-03")

	regA, err := env.regs.RegisterTeamForSession(capA, teamA, tuesday.ID, nil)
	require.NoError(t, err)
	require.NoError(t, env.regs.LeaveSession(capA, regA))

	_, err = env.regs.RegisterTeamForSession(capB, teamB, wednesday.ID, nil)
	require.NoError(t, err, "cancelled registrations must not count as conflicts")
}

func TestUpdateMembersRecomputesStatusAndTokens(t *testing.T) {
	env := newEngineEnv(t)
	cap := captain(1)
	teamID := env.createTeam(t, cap, "Side Out", "a@example.com", "b@example.com")
	sess := env.createSession(t, "2024-06-04", session.DayTuesday, "2024-06-03")

	regID, err := env.regs.RegisterTeamForSession(cap, teamID, sess.ID, nil)
	require.NoError(t, err)

	personA := env.personID(t, "a@example.com")
	err = env.regs.UpdateRegistrationMembers(cap, regID, []registration.MemberSelection{
		{PersonID: personA, WeeklyStatus: team.WeeklyInactive},
	})
	require.NoError(t, err)

	reg, err := env.regRepo.GetByID(regID)
	require.NoError(t, err)
	assert.Equal(t, registration.StatusForming, reg.Status, "dropping to 2 active demotes to forming")

	members, err := env.regRepo.ListMembers(regID)
	require.NoError(t, err)
	var a *registration.RegistrationMember
	for i := range members {
		if members[i].PersonID == personA {
			a = &members[i]
		}
	}
	require.NotNil(t, a)
	assert.Equal(t, team.WeeklyInactive, a.WeeklyStatus)
	assert.Equal(t, registration.InviteInactive, a.InviteStatus)
	assert.Nil(t, a.InviteToken, "leaving active clears the token")

	// Back to active: re-invited with a fresh token.
	err = env.regs.UpdateRegistrationMembers(cap, regID, []registration.MemberSelection{
		{PersonID: personA, WeeklyStatus: team.WeeklyActive},
	})
	require.NoError(t, err)

	members, err = env.regRepo.ListMembers(regID)
	require.NoError(t, err)
	for _, m := range members {
		if m.PersonID == personA {
			assert.Equal(t, registration.InviteInvited, m.InviteStatus)
			assert.NotNil(t, m.InviteToken)
			assert.Nil(t, m.RespondedAt)
		}
	}

	reg, err = env.regRepo.GetByID(regID)
	require.NoError(t, err)
	assert.Equal(t, registration.StatusConfirmed, reg.Status)
}

func TestUpdateMembersExcludesOwnRegistration(t *testing.T) {
	env := newEngineEnv(t)
	cap := captain(1)
	teamID := env.createTeam(t, cap, "Net Assets", "a@example.com", "b@example.com")
	sess := env.createSession(t, "2024-06-04", session.DayTuesday, "2024-06-03")

	regID, err := env.regs.RegisterTeamForSession(cap, teamID, sess.ID, nil)
	require.NoError(t, err)

	// Re-affirming the same active set must not conflict with itself.
	err = env.regs.UpdateRegistrationMembers(cap, regID, []registration.MemberSelection{
		{PersonID: env.personID(t, "a@example.com"), WeeklyStatus: team.WeeklyActive},
		{PersonID: env.personID(t, "b@example.com"), WeeklyStatus: team.WeeklyActive},
	})
	require.NoError(t, err)
}

func TestLeaveSessionCancelsAndAllowsRejoin(t *testing.T) {
	env := newEngineEnv(t)
	cap := captain(1)
	teamID := env.createTeam(t, cap, "Ace Holes", "a@example.com", "b@example.com")
	sess := env.createSession(t, "2024-06-04", session.DayTuesday, "2024-06-03")

	regID, err := env.regs.RegisterTeamForSession(cap, teamID, sess.ID, nil)
	require.NoError(t, err)

	members, err := env.regRepo.ListMembers(regID)
	require.NoError(t, err)

	require.NoError(t, env.regs.LeaveSession(cap, regID))

	reg, err := env.regRepo.GetByID(regID)
	require.NoError(t, err)
	assert.Equal(t, registration.StatusCancelled, reg.Status)

	// Members and their tokens survive cancellation, but are inert.
	kept, err := env.regRepo.ListMembers(regID)
	require.NoError(t, err)
	assert.Len(t, kept, len(members))
	err = env.regs.RespondToInvite(*kept[0].InviteToken, registration.InviteConfirmed, "", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.Contains(t, err.Error(), "cancelled")

	// A cancelled registration is terminal; rejoining means a new one.
	newRegID, err := env.regs.RegisterTeamForSession(cap, teamID, sess.ID, nil)
	require.NoError(t, err)
	assert.NotEqual(t, regID, newRegID)
}

func TestLeaveSessionCaptainOnly(t *testing.T) {
	env := newEngineEnv(t)
	cap := captain(1)
	teamID := env.createTeam(t, cap, "Bump Set Psych", "a@example.com", "b@example.com")
	sess := env.createSession(t, "2024-06-04", session.DayTuesday, "2024-06-03")

	regID, err := env.regs.RegisterTeamForSession(cap, teamID, sess.ID, nil)
	require.NoError(t, err)

	err = env.regs.LeaveSession(captain(2), regID)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
}

func TestRespondToInviteLifecycle(t *testing.T) {
	env := newEngineEnv(t)
	cap := captain(1)
	teamID := env.createTeam(t, cap, "The Blockbusters", "a@example.com", "b@example.com")
	sess := env.createSession(t, "2024-06-04", session.DayTuesday, "2024-06-03")

	regID, err := env.regs.RegisterTeamForSession(cap, teamID, sess.ID, nil)
	require.NoError(t, err)

	personA := env.personID(t, "a@example.com")
	members, err := env.regRepo.ListMembers(regID)
	require.NoError(t, err)
	var tokenA string
	for _, m := range members {
		if m.PersonID == personA {
			require.NotNil(t, m.InviteToken)
			tokenA = *m.InviteToken
		}
	}

	responder := person.Identity{SubjectID: "subj-player-a", Email: "a@example.com"}
	err = env.regs.RespondToInvite(tokenA, registration.InviteConfirmed, "Aretha", &responder)
	require.NoError(t, err)

	members, err = env.regRepo.ListMembers(regID)
	require.NoError(t, err)
	for _, m := range members {
		if m.PersonID == personA {
			assert.Equal(t, registration.InviteConfirmed, m.InviteStatus)
			assert.NotNil(t, m.RespondedAt)
		}
	}

	// Responding updated the person's name and linked their identity.
	p, err := env.people.GetByID(personA)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Aretha", p.Name)
	require.NotNil(t, p.SubjectID)
	assert.Equal(t, "subj-player-a", *p.SubjectID)

	// A token authorizes exactly one response.
	err = env.regs.RespondToInvite(tokenA, registration.InviteConfirmed, "", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	assert.Contains(t, err.Error(), "already been responded")

	err = env.regs.RespondToInvite("no-such-token", registration.InviteDeclined, "", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestGetForTeamAndSessionRedactsTokens(t *testing.T) {
	env := newEngineEnv(t)
	cap := captain(1)
	teamID := env.createTeam(t, cap, "Vertical Limit", "a@example.com", "b@example.com")
	sess := env.createSession(t, "2024-06-04", session.DayTuesday, "2024-06-03")

	_, err := env.regs.RegisterTeamForSession(cap, teamID, sess.ID, nil)
	require.NoError(t, err)

	detail, err := env.regs.GetForTeamAndSession(cap, teamID, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, detail)
	require.Len(t, detail.Members, 3)
	for _, m := range detail.Members {
		assert.NotNil(t, m.InviteToken, "captain sees invite tokens")
		assert.NotEmpty(t, m.PersonName)
	}

	stranger := captain(7)
	detail, err = env.regs.GetForTeamAndSession(stranger, teamID, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, detail)
	for _, m := range detail.Members {
		assert.Nil(t, m.InviteToken, "tokens are redacted for non-captains")
	}
}

// TestWeeklyConflictInvariantRandomized drives random register/update
// operations and asserts after each commit that no person appears active in
// two non-cancelled registrations of the same week.
func TestWeeklyConflictInvariantRandomized(t *testing.T) {
	env := newEngineEnv(t)
	rng := rand.New(rand.NewSource(7))

	playerEmails := []string{
		"p1@example.com", "p2@example.com", "p3@example.com",
		"p4@example.com", "p5@example.com",
	}
	captains := []person.Identity{captain(1), captain(2), captain(3)}
	teamIDs := make([]uint, len(captains))
	for i, cap := range captains {
		a := playerEmails[rng.Intn(len(playerEmails))]
		b := playerEmails[rng.Intn(len(playerEmails))]
		for b == a {
			b = playerEmails[rng.Intn(len(playerEmails))]
		}
		teamIDs[i] = env.createTeam(t, cap, fmt.Sprintf("Rand Team %d", i), a, b)
	}

	sessions := []*session.Session{
		env.createSession(t, "2024-06-04", session.DayTuesday, "2024-06-03"),
		env.createSession(t, "2024-06-05", session.DayWednesday, "2024-06-03"),
		env.createSession(t, "2024-06-11", session.DayTuesday, "2024-06-10"),
	}
	statuses := []string{team.WeeklyActive, team.WeeklyInactive, team.WeeklyNotInvited}

	var registrationIDs []uint
	for i := 0; i < 40; i++ {
		pick := rng.Intn(len(captains))
		switch {
		case len(registrationIDs) == 0 || rng.Intn(2) == 0:
			sess := sessions[rng.Intn(len(sessions))]
			var selections []registration.MemberSelection
			for _, email := range playerEmails {
				if p, _ := env.people.GetByEmail(email); p != nil && rng.Intn(2) == 0 {
					selections = append(selections, registration.MemberSelection{
						PersonID:     p.ID,
						WeeklyStatus: statuses[rng.Intn(len(statuses))],
					})
				}
			}
			if regID, err := env.regs.RegisterTeamForSession(captains[pick], teamIDs[pick], sess.ID, selections); err == nil {
				registrationIDs = append(registrationIDs, regID)
			}
		default:
			regID := registrationIDs[rng.Intn(len(registrationIDs))]
			reg, err := env.regRepo.GetByID(regID)
			require.NoError(t, err)
			owner := captains[0]
			for i, id := range teamIDs {
				if id == reg.TeamID {
					owner = captains[i]
				}
			}
			members, err := env.regRepo.ListMembers(regID)
			require.NoError(t, err)
			var selections []registration.MemberSelection
			for _, m := range members {
				selections = append(selections, registration.MemberSelection{
					PersonID:     m.PersonID,
					WeeklyStatus: statuses[rng.Intn(len(statuses))],
				})
			}
			_ = env.regs.UpdateRegistrationMembers(owner, regID, selections)
		}

		assertNoWeeklyOverlap(t, env.db)
	}
}

func assertNoWeeklyOverlap(t *testing.T, db *gorm.DB) {
	t.Helper()
	var rows []struct {
		WeekOf   string
		PersonID uint
		Total    int
	}
	err := db.Table("registration_members AS rm").
		Select("r.week_of, rm.person_id, count(*) as total").
		Joins("JOIN registrations r ON r.id = rm.registration_id").
		Where("rm.weekly_status = ? AND r.status <> ?", team.WeeklyActive, registration.StatusCancelled).
		Where("rm.deleted_at IS NULL AND r.deleted_at IS NULL").
		Group("r.week_of, rm.person_id").
		Having("count(*) > 1").
		Scan(&rows).Error
	require.NoError(t, err)
	assert.Emptyf(t, rows, "persons active twice in one week: %+v", rows)
}
