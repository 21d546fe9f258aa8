package team

import (
	"strings"

	"gorm.io/gorm"

	"github.com/courtside/rally/internal/person"
	"github.com/courtside/rally/pkg/apperrors"
	"github.com/courtside/rally/pkg/logger"
)

// Service implements the roster store rules: team creation, roster edits,
// and the captain-only permission model.
type Service struct {
	repo      Repository
	people    person.Repository
	registrar SessionRegistrar
	log       *logger.Logger
}

func NewService(repo Repository, people person.Repository, registrar SessionRegistrar) *Service {
	return &Service{
		repo:      repo,
		people:    people,
		registrar: registrar,
		log:       logger.Default().With("component", "team"),
	}
}

// CreateTeam creates a team with the caller as captain plus 2-3 invited
// players. When sessionID is given the team is also registered into that
// session in the same transaction, under the usual weekly conflict rule.
func (s *Service) CreateTeam(actor person.Identity, name string, players []PlayerInput, sessionID *uint) (uint, error) {
	if actor.SubjectID == "" {
		return 0, apperrors.Unauthenticated("")
	}
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return 0, apperrors.Validation("Team name must be at least 2 characters.")
	}
	if len(players) < MinInvitedPlayers || len(players) > MaxInvitedPlayers {
		return 0, apperrors.Validation("Teams must include captain plus %d or %d invited players.", MinInvitedPlayers, MaxInvitedPlayers)
	}

	captainEmail := person.NormalizeEmail(actor.Email)
	if captainEmail == "" {
		return 0, apperrors.Validation("Captain account must include an email.")
	}

	normalized := make([]PlayerInput, len(players))
	seen := map[string]bool{captainEmail: true}
	for i, p := range players {
		normalized[i] = PlayerInput{
			Name:  strings.TrimSpace(p.Name),
			Email: person.NormalizeEmail(p.Email),
		}
		if normalized[i].Name == "" || normalized[i].Email == "" {
			return 0, apperrors.Validation("All players need both name and email.")
		}
		if !person.IsValidEmail(normalized[i].Email) {
			return 0, apperrors.Validation("All players must have valid email addresses.")
		}
		if seen[normalized[i].Email] {
			return 0, apperrors.Validation("All players must have unique email addresses.")
		}
		seen[normalized[i].Email] = true
	}

	captainName := actor.Name
	if strings.TrimSpace(captainName) == "" {
		captainName = "Captain"
	}

	var teamID uint
	err := s.repo.WithTransaction(func(tx *gorm.DB, repo Repository) error {
		people := s.people.WithTx(tx)

		captain, err := people.FromIdentity(actor)
		if err != nil {
			return err
		}

		t := &Team{
			Name:             name,
			CaptainSubjectID: actor.SubjectID,
			CaptainName:      captainName,
			CaptainEmail:     captainEmail,
		}
		if err := repo.CreateTeam(t); err != nil {
			return err
		}
		teamID = t.ID

		if err := repo.AddRosterMember(&RosterMember{
			TeamID:              t.ID,
			PersonID:            captain.ID,
			Name:                captain.Name,
			Email:               captain.Email,
			Role:                RoleCaptain,
			DefaultWeeklyStatus: WeeklyActive,
		}); err != nil {
			return err
		}

		for _, p := range normalized {
			member, err := people.Upsert(p.Name, p.Email, nil)
			if err != nil {
				return err
			}
			if err := repo.AddRosterMember(&RosterMember{
				TeamID:              t.ID,
				PersonID:            member.ID,
				Name:                member.Name,
				Email:               member.Email,
				Role:                RolePlayer,
				DefaultWeeklyStatus: WeeklyActive,
			}); err != nil {
				return err
			}
		}

		if sessionID != nil {
			if _, err := s.registrar.RegisterWithinTx(tx, actor, t.ID, *sessionID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("team created", "team_id", teamID, "captain", actor.SubjectID)
	return teamID, nil
}

// AddMember invites another player onto the roster. An archived member for
// the same person is revived rather than duplicated.
func (s *Service) AddMember(actor person.Identity, teamID uint, input PlayerInput) (uint, error) {
	t, err := s.requireCaptain(actor, teamID)
	if err != nil {
		return 0, err
	}

	name := strings.TrimSpace(input.Name)
	email := person.NormalizeEmail(input.Email)
	if name == "" {
		return 0, apperrors.Validation("Player name is required.")
	}
	if !person.IsValidEmail(email) {
		return 0, apperrors.Validation("Player email is invalid.")
	}

	var memberID uint
	err = s.repo.WithTransaction(func(tx *gorm.DB, repo Repository) error {
		people := s.people.WithTx(tx)

		p, err := people.Upsert(name, email, nil)
		if err != nil {
			return err
		}

		existing, err := repo.GetRosterMemberByPerson(t.ID, p.ID)
		if err != nil {
			return err
		}
		if existing != nil && !existing.IsArchived {
			return apperrors.Conflict("This player is already on the team.")
		}

		live, err := repo.ListRoster(t.ID, false)
		if err != nil {
			return err
		}
		if len(live) >= MaxRosterSize {
			return apperrors.Conflict("Team already has %d players.", MaxRosterSize)
		}

		if existing != nil {
			existing.IsArchived = false
			existing.Name = p.Name
			existing.Email = p.Email
			existing.DefaultWeeklyStatus = WeeklyActive
			if err := repo.UpdateRosterMember(existing); err != nil {
				return err
			}
			memberID = existing.ID
			return nil
		}

		m := &RosterMember{
			TeamID:              t.ID,
			PersonID:            p.ID,
			Name:                p.Name,
			Email:               p.Email,
			Role:                RolePlayer,
			DefaultWeeklyStatus: WeeklyActive,
		}
		if err := repo.AddRosterMember(m); err != nil {
			return err
		}
		memberID = m.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return memberID, nil
}

// RemoveMember archives a roster member. The captain can never be removed,
// and nothing is hard-deleted because historical registrations reference
// the person.
func (s *Service) RemoveMember(actor person.Identity, teamID, memberID uint) error {
	t, err := s.requireCaptain(actor, teamID)
	if err != nil {
		return err
	}

	m, err := s.repo.GetRosterMember(t.ID, memberID)
	if err != nil {
		return err
	}
	if m == nil {
		return apperrors.NotFound("Member")
	}
	if m.Role == RoleCaptain {
		return apperrors.Forbidden("Cannot remove captain.")
	}

	m.IsArchived = true
	m.DefaultWeeklyStatus = WeeklyNotInvited
	return s.repo.UpdateRosterMember(m)
}

// UpdateDefaultWeeklyStatus changes a member's availability default. No
// conflict check here: defaults only take effect at the next registration.
func (s *Service) UpdateDefaultWeeklyStatus(actor person.Identity, teamID, memberID uint, status string) error {
	t, err := s.requireCaptain(actor, teamID)
	if err != nil {
		return err
	}
	if !ValidWeeklyStatus(status) {
		return apperrors.Validation("Unknown weekly status %q.", status)
	}

	m, err := s.repo.GetRosterMember(t.ID, memberID)
	if err != nil {
		return err
	}
	if m == nil || m.IsArchived {
		return apperrors.NotFound("Member")
	}

	m.DefaultWeeklyStatus = status
	return s.repo.UpdateRosterMember(m)
}

// UpdateTeam renames a team. Captain-only.
func (s *Service) UpdateTeam(actor person.Identity, teamID uint, name string) error {
	t, err := s.requireCaptain(actor, teamID)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return apperrors.Validation("Team name must be at least 2 characters.")
	}
	t.Name = name
	return s.repo.UpdateTeam(t)
}

// GetTeam returns the team with its roster when the caller is the captain
// or appears on the roster (by linked identity or matching email). Returns
// nil for outsiders and missing teams alike.
func (s *Service) GetTeam(actor person.Identity, teamID uint) (*TeamDetail, error) {
	t, err := s.repo.GetTeamByID(teamID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}

	members, err := s.repo.ListRoster(t.ID, true)
	if err != nil {
		return nil, err
	}

	isCaptain := t.CaptainSubjectID == actor.SubjectID
	if !isCaptain {
		email := person.NormalizeEmail(actor.Email)
		onRoster := false
		for _, m := range members {
			if email != "" && m.Email == email {
				onRoster = true
				break
			}
		}
		if !onRoster {
			return nil, nil
		}
	}

	return &TeamDetail{Team: *t, Members: members, CanManage: isCaptain}, nil
}

// ListMyTeams returns the teams captained by the caller.
func (s *Service) ListMyTeams(actor person.Identity) ([]Team, error) {
	if actor.SubjectID == "" {
		return nil, apperrors.Unauthenticated("")
	}
	return s.repo.ListByCaptainSubject(actor.SubjectID)
}

func (s *Service) requireCaptain(actor person.Identity, teamID uint) (*Team, error) {
	if actor.SubjectID == "" {
		return nil, apperrors.Unauthenticated("")
	}
	t, err := s.repo.GetTeamByID(teamID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperrors.NotFound("Team")
	}
	if t.CaptainSubjectID != actor.SubjectID {
		return nil, apperrors.Forbidden("Only the captain can manage this team.")
	}
	return t, nil
}
