package registration

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/courtside/rally/internal/person"
	"github.com/courtside/rally/internal/session"
	"github.com/courtside/rally/internal/team"
	"github.com/courtside/rally/pkg/apperrors"
	"github.com/courtside/rally/pkg/logger"
)

// Service is the registration engine. It owns the binding of teams to
// sessions, the per-member weekly statuses, and the system-wide guarantee
// that a person is active on at most one team per week.
type Service struct {
	repo               Repository
	teams              team.Repository
	sessions           session.Repository
	people             person.Repository
	confirmedThreshold int
	log                *logger.Logger
}

func NewService(repo Repository, teams team.Repository, sessions session.Repository, people person.Repository, confirmedThreshold int) *Service {
	return &Service{
		repo:               repo,
		teams:              teams,
		sessions:           sessions,
		people:             people,
		confirmedThreshold: confirmedThreshold,
		log:                logger.Default().With("component", "registration"),
	}
}

// RegisterTeamForSession registers a team into a session for its week.
// Captain-only. Members start from their roster defaults, overlaid with any
// explicit selections; selections for people not on the roster are ignored.
// The whole operation commits atomically or not at all.
func (s *Service) RegisterTeamForSession(actor person.Identity, teamID, sessionID uint, selections []MemberSelection) (uint, error) {
	var registrationID uint
	err := s.repo.WithTransaction(func(tx *gorm.DB, _ Repository) error {
		id, err := s.registerTx(tx, actor, teamID, sessionID, selections)
		if err != nil {
			return err
		}
		registrationID = id
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("team registered", "registration_id", registrationID, "team_id", teamID, "session_id", sessionID)
	return registrationID, nil
}

// RegisterWithinTx runs the registration flow inside a caller-owned
// transaction. It backs the team-creation bootstrap path, where team and
// registration must commit together.
func (s *Service) RegisterWithinTx(tx *gorm.DB, actor person.Identity, teamID, sessionID uint) (uint, error) {
	return s.registerTx(tx, actor, teamID, sessionID, nil)
}

func (s *Service) registerTx(tx *gorm.DB, actor person.Identity, teamID, sessionID uint, selections []MemberSelection) (uint, error) {
	repo := s.repo.WithTx(tx)
	teams := s.teams.WithTx(tx)
	sessions := s.sessions.WithTx(tx)

	if _, err := s.requireCaptainTx(teams, actor, teamID); err != nil {
		return 0, err
	}

	sess, err := sessions.GetByID(sessionID)
	if err != nil {
		return 0, err
	}
	if sess == nil {
		return 0, apperrors.NotFound("Session")
	}

	// Serialize against other registrations touching this week before any
	// read the conflict decision depends on.
	if err := repo.LockWeek(sess.WeekOf); err != nil {
		return 0, err
	}

	existing, err := repo.GetActiveByTeamAndSession(teamID, sessionID)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, apperrors.Conflict("This team is already joined to this session.")
	}

	roster, err := teams.ListRoster(teamID, false)
	if err != nil {
		return 0, err
	}
	if len(roster) == 0 {
		return 0, apperrors.Validation("Team has no active roster members.")
	}

	statusByPerson := make(map[uint]string, len(roster))
	for _, member := range roster {
		statusByPerson[member.PersonID] = member.DefaultWeeklyStatus
	}
	for _, selected := range selections {
		if _, onRoster := statusByPerson[selected.PersonID]; onRoster && team.ValidWeeklyStatus(selected.WeeklyStatus) {
			statusByPerson[selected.PersonID] = selected.WeeklyStatus
		}
	}

	activeIDs := activePersonIDs(statusByPerson)
	if err := s.enforceWeeklyConflicts(tx, sess.WeekOf, activeIDs, 0); err != nil {
		return 0, err
	}

	reg := &Registration{
		SessionID: sessionID,
		TeamID:    teamID,
		WeekOf:    sess.WeekOf,
		Status:    StatusFromActiveCount(len(activeIDs), s.confirmedThreshold),
	}
	if err := repo.Create(reg); err != nil {
		return 0, err
	}

	for _, member := range roster {
		weekly := statusByPerson[member.PersonID]
		rm := &RegistrationMember{
			RegistrationID: reg.ID,
			PersonID:       member.PersonID,
			WeeklyStatus:   weekly,
			InviteStatus:   InviteStatusForWeekly(weekly),
		}
		if weekly == team.WeeklyActive {
			rm.InviteToken = newInviteToken()
		}
		if err := repo.CreateMember(rm); err != nil {
			return 0, err
		}
	}

	return reg.ID, nil
}

// UpdateRegistrationMembers upserts member selections on an existing
// registration, re-running the weekly conflict scan over the new active set
// (excluding this registration) and recomputing the aggregate status.
func (s *Service) UpdateRegistrationMembers(actor person.Identity, registrationID uint, selections []MemberSelection) error {
	return s.repo.WithTransaction(func(tx *gorm.DB, repo Repository) error {
		teams := s.teams.WithTx(tx)

		reg, err := repo.GetByID(registrationID)
		if err != nil {
			return err
		}
		if reg == nil {
			return apperrors.NotFound("Registration")
		}
		if _, err := s.requireCaptainTx(teams, actor, reg.TeamID); err != nil {
			return err
		}
		if reg.Status == StatusCancelled {
			return apperrors.Conflict("This registration has been cancelled.")
		}

		if err := repo.LockWeek(reg.WeekOf); err != nil {
			return err
		}

		activeIDs := make([]uint, 0, len(selections))
		for _, sel := range selections {
			if !team.ValidWeeklyStatus(sel.WeeklyStatus) {
				return apperrors.Validation("Unknown weekly status %q.", sel.WeeklyStatus)
			}
			if sel.WeeklyStatus == team.WeeklyActive {
				activeIDs = append(activeIDs, sel.PersonID)
			}
		}

		if err := s.enforceWeeklyConflicts(tx, reg.WeekOf, activeIDs, reg.ID); err != nil {
			return err
		}

		current, err := repo.ListMembers(reg.ID)
		if err != nil {
			return err
		}
		byPerson := make(map[uint]*RegistrationMember, len(current))
		for i := range current {
			byPerson[current[i].PersonID] = &current[i]
		}

		for _, sel := range selections {
			existing := byPerson[sel.PersonID]
			if existing == nil {
				rm := &RegistrationMember{
					RegistrationID: reg.ID,
					PersonID:       sel.PersonID,
					WeeklyStatus:   sel.WeeklyStatus,
					InviteStatus:   InviteStatusForWeekly(sel.WeeklyStatus),
				}
				if sel.WeeklyStatus == team.WeeklyActive {
					rm.InviteToken = newInviteToken()
				}
				if err := repo.CreateMember(rm); err != nil {
					return err
				}
				continue
			}

			switch {
			case sel.WeeklyStatus == team.WeeklyActive && existing.WeeklyStatus != team.WeeklyActive:
				// Entering active: (re)invite with a fresh single-use token.
				existing.WeeklyStatus = sel.WeeklyStatus
				existing.InviteStatus = InviteInvited
				existing.InviteToken = newInviteToken()
				existing.RespondedAt = nil
			case sel.WeeklyStatus == team.WeeklyActive:
				// Staying active: keep the response (or pending invite) as is.
			default:
				existing.WeeklyStatus = sel.WeeklyStatus
				existing.InviteStatus = InviteStatusForWeekly(sel.WeeklyStatus)
				existing.InviteToken = nil
			}
			if err := repo.UpdateMember(existing); err != nil {
				return err
			}
		}

		// Aggregate status is a pure function of the resulting member set.
		updated, err := repo.ListMembers(reg.ID)
		if err != nil {
			return err
		}
		activeCount := 0
		for _, m := range updated {
			if m.WeeklyStatus == team.WeeklyActive {
				activeCount++
			}
		}
		return repo.UpdateStatus(reg.ID, StatusFromActiveCount(activeCount, s.confirmedThreshold))
	})
}

// LeaveSession cancels a registration. Members and their history are kept;
// any outstanding invite tokens become inert because responses check the
// registration status.
func (s *Service) LeaveSession(actor person.Identity, registrationID uint) error {
	reg, err := s.repo.GetByID(registrationID)
	if err != nil {
		return err
	}
	if reg == nil {
		return apperrors.NotFound("Registration")
	}
	if _, err := s.requireCaptainTx(s.teams, actor, reg.TeamID); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(reg.ID, StatusCancelled); err != nil {
		return err
	}
	s.log.Info("registration cancelled", "registration_id", reg.ID, "team_id", reg.TeamID)
	return nil
}

// RespondToInvite consumes an invite token, recording the member's
// confirmed/declined answer. Token possession is the sole authorization,
// and a token authorizes exactly one response.
func (s *Service) RespondToInvite(tokenValue, response string, name string, actor *person.Identity) error {
	if response != InviteConfirmed && response != InviteDeclined {
		return apperrors.Validation("Response must be %q or %q.", InviteConfirmed, InviteDeclined)
	}

	return s.repo.WithTransaction(func(tx *gorm.DB, repo Repository) error {
		member, err := repo.GetMemberByToken(tokenValue)
		if err != nil {
			return err
		}
		if member == nil {
			return apperrors.NotFound("Invite")
		}
		if member.InviteStatus != InviteInvited {
			return apperrors.Conflict("This invite has already been responded to.")
		}

		reg, err := repo.GetByID(member.RegistrationID)
		if err != nil {
			return err
		}
		if reg == nil || reg.Status == StatusCancelled {
			return apperrors.Conflict("This registration has been cancelled.")
		}

		// The token row is kept after the response so a second attempt
		// can be told apart from an unknown token; the status check above
		// is what makes the token single-use.
		now := time.Now()
		member.InviteStatus = response
		member.RespondedAt = &now
		if err := repo.UpdateMember(member); err != nil {
			return err
		}

		// Responding may teach us the person's preferred name and link
		// their external identity.
		people := s.people.WithTx(tx)
		p, err := people.GetByID(member.PersonID)
		if err != nil {
			return err
		}
		if p != nil {
			changed := false
			if trimmed := strings.TrimSpace(name); trimmed != "" && trimmed != p.Name {
				p.Name = trimmed
				changed = true
			}
			if actor != nil && actor.SubjectID != "" && p.SubjectID == nil {
				subject := actor.SubjectID
				p.SubjectID = &subject
				changed = true
			}
			if changed {
				if err := people.Update(p); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// GetInviteByToken returns the invite landing-page detail, or nil when the
// token is unknown.
func (s *Service) GetInviteByToken(tokenValue string) (*InviteDetail, error) {
	member, err := s.repo.GetMemberByToken(tokenValue)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, nil
	}

	reg, err := s.repo.GetByID(member.RegistrationID)
	if err != nil {
		return nil, err
	}
	detail := &InviteDetail{Member: *member}
	if reg != nil {
		t, err := s.teams.GetTeamByID(reg.TeamID)
		if err != nil {
			return nil, err
		}
		if t != nil {
			detail.TeamName = t.Name
		}
		sess, err := s.sessions.GetByID(reg.SessionID)
		if err != nil {
			return nil, err
		}
		detail.Session = sess
	}
	p, err := s.people.GetByID(member.PersonID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		detail.PersonName = p.Name
	}
	return detail, nil
}

// GetForTeamAndSession returns the team's non-cancelled registration for a
// session with member details, or nil. Invite tokens are only included for
// the captain.
func (s *Service) GetForTeamAndSession(actor person.Identity, teamID, sessionID uint) (*RegistrationDetail, error) {
	reg, err := s.repo.GetActiveByTeamAndSession(teamID, sessionID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, nil
	}

	t, err := s.teams.GetTeamByID(teamID)
	if err != nil {
		return nil, err
	}
	isCaptain := t != nil && t.CaptainSubjectID == actor.SubjectID

	members, err := s.memberDetails(reg.ID)
	if err != nil {
		return nil, err
	}
	if !isCaptain {
		for i := range members {
			members[i].InviteToken = nil
		}
	}
	return &RegistrationDetail{Registration: *reg, Members: members}, nil
}

// ListMyRegistrations returns the active registrations of every team the
// caller captains, ordered by session date.
func (s *Service) ListMyRegistrations(actor person.Identity) ([]MyRegistration, error) {
	if actor.SubjectID == "" {
		return nil, apperrors.Unauthenticated("")
	}
	teams, err := s.teams.ListByCaptainSubject(actor.SubjectID)
	if err != nil {
		return nil, err
	}

	var result []MyRegistration
	for _, t := range teams {
		regs, err := s.repo.ListActiveByTeam(t.ID)
		if err != nil {
			return nil, err
		}
		for _, reg := range regs {
			sess, err := s.sessions.GetByID(reg.SessionID)
			if err != nil {
				return nil, err
			}
			result = append(result, MyRegistration{Registration: reg, TeamName: t.Name, Session: sess})
		}
	}

	sortMyRegistrations(result)
	return result, nil
}

// RegisteredTeams implements session.RegisteredTeamLister for the session
// detail view.
func (s *Service) RegisteredTeams(sessionID uint) ([]session.RegisteredTeam, error) {
	regs, err := s.repo.ListActiveBySession(sessionID)
	if err != nil {
		return nil, err
	}

	result := make([]session.RegisteredTeam, 0, len(regs))
	for _, reg := range regs {
		t, err := s.teams.GetTeamByID(reg.TeamID)
		if err != nil {
			return nil, err
		}
		if t == nil {
			continue
		}
		members, err := s.memberDetails(reg.ID)
		if err != nil {
			return nil, err
		}

		entry := session.RegisteredTeam{
			RegistrationID:     reg.ID,
			TeamID:             t.ID,
			TeamName:           t.Name,
			RegistrationStatus: reg.Status,
			Members:            make([]session.RegisteredMember, len(members)),
		}
		for i, m := range members {
			entry.Members[i] = session.RegisteredMember{
				PersonID:     m.PersonID,
				Name:         m.PersonName,
				WeeklyStatus: m.WeeklyStatus,
				InviteStatus: m.InviteStatus,
			}
		}
		result = append(result, entry)
	}
	return result, nil
}

func (s *Service) memberDetails(registrationID uint) ([]MemberDetail, error) {
	members, err := s.repo.ListMembers(registrationID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(members))
	for i, m := range members {
		ids[i] = m.PersonID
	}
	people, err := s.people.GetByIDs(ids)
	if err != nil {
		return nil, err
	}

	details := make([]MemberDetail, len(members))
	for i, m := range members {
		details[i] = MemberDetail{RegistrationMember: m}
		if p := people[m.PersonID]; p != nil {
			details[i].PersonName = p.Name
			details[i].PersonEmail = p.Email
		}
	}
	return details, nil
}

// enforceWeeklyConflicts aborts when any of the given persons is already
// active in another non-cancelled registration of the same week, anywhere
// in the system. The error names the person, team, and date involved.
func (s *Service) enforceWeeklyConflicts(tx *gorm.DB, weekOf string, activeIDs []uint, excludeRegistrationID uint) error {
	repo := s.repo.WithTx(tx)
	conflicts, err := repo.FindWeeklyConflicts(weekOf, activeIDs, excludeRegistrationID)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		return nil
	}

	conflict := conflicts[0]
	personName := "Member"
	teamName := "another team"
	date := "this week"

	if p, err := s.people.WithTx(tx).GetByID(conflict.PersonID); err == nil && p != nil {
		personName = p.Name
	}
	if t, err := s.teams.WithTx(tx).GetTeamByID(conflict.TeamID); err == nil && t != nil {
		teamName = t.Name
	}
	if sess, err := s.sessions.WithTx(tx).GetByID(conflict.SessionID); err == nil && sess != nil {
		date = sess.Date
	}
	return apperrors.Conflict("%s is already active for %s on %s.", personName, teamName, date)
}

func (s *Service) requireCaptainTx(teams team.Repository, actor person.Identity, teamID uint) (*team.Team, error) {
	if actor.SubjectID == "" {
		return nil, apperrors.Unauthenticated("")
	}
	t, err := teams.GetTeamByID(teamID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperrors.NotFound("Team")
	}
	if t.CaptainSubjectID != actor.SubjectID {
		return nil, apperrors.Forbidden("Only captains can manage session registrations.")
	}
	return t, nil
}

func activePersonIDs(statusByPerson map[uint]string) []uint {
	ids := make([]uint, 0, len(statusByPerson))
	for personID, status := range statusByPerson {
		if status == team.WeeklyActive {
			ids = append(ids, personID)
		}
	}
	return ids
}

func newInviteToken() *string {
	t := uuid.NewString()
	return &t
}

func sortMyRegistrations(regs []MyRegistration) {
	sort.Slice(regs, func(i, j int) bool {
		return sessionDate(regs[i]) < sessionDate(regs[j])
	})
}

func sessionDate(r MyRegistration) string {
	if r.Session == nil {
		return ""
	}
	return r.Session.Date
}
