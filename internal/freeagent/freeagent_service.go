package freeagent

import (
	"strings"

	"github.com/courtside/rally/internal/person"
	"github.com/courtside/rally/internal/session"
	"github.com/courtside/rally/pkg/apperrors"
	"github.com/courtside/rally/pkg/logger"
)

// Service implements the free-agent board rules.
type Service struct {
	repo     Repository
	sessions session.Repository
	log      *logger.Logger
}

func NewService(repo Repository, sessions session.Repository) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		log:      logger.Default().With("component", "freeagent"),
	}
}

// SignUp adds a person to a session's free-agent list. Works for anonymous
// callers; an authenticated caller gets their subject id attached so they
// can withdraw from any device. Duplicate available signups for the same
// email are rejected, case-insensitively.
func (s *Service) SignUp(actor *person.Identity, sessionID uint, name, email, phone string) (uint, error) {
	sess, err := s.sessions.GetByID(sessionID)
	if err != nil {
		return 0, err
	}
	if sess == nil {
		return 0, apperrors.NotFound("Session")
	}

	name = strings.TrimSpace(name)
	email = person.NormalizeEmail(email)
	if name == "" {
		return 0, apperrors.Validation("Name is required.")
	}
	if !person.IsValidEmail(email) {
		return 0, apperrors.Validation("Email is invalid.")
	}

	exists, err := s.repo.HasAvailableSignup(sessionID, email)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, apperrors.Conflict("You are already signed up as a free agent for this session.")
	}

	fa := &FreeAgent{
		SessionID: sessionID,
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(phone),
		Status:    StatusAvailable,
	}
	if actor != nil && actor.SubjectID != "" {
		subject := actor.SubjectID
		fa.SubjectID = &subject
	}
	if err := s.repo.Create(fa); err != nil {
		return 0, err
	}

	s.log.Info("free agent signed up", "free_agent_id", fa.ID, "session_id", sessionID)
	return fa.ID, nil
}

// ListBySession returns the available free agents for a session.
func (s *Service) ListBySession(sessionID uint) ([]FreeAgent, error) {
	return s.repo.ListAvailableBySession(sessionID)
}

// Withdraw retires a signup. Permitted for the linked identity or anyone
// who can prove the matching email through their identity provider.
func (s *Service) Withdraw(actor *person.Identity, freeAgentID uint) error {
	fa, err := s.repo.GetByID(freeAgentID)
	if err != nil {
		return err
	}
	if fa == nil {
		return apperrors.NotFound("Free agent record")
	}

	canWithdraw := false
	if actor != nil {
		if actor.SubjectID != "" && fa.SubjectID != nil && *fa.SubjectID == actor.SubjectID {
			canWithdraw = true
		}
		if actor.Email != "" && person.NormalizeEmail(actor.Email) == fa.Email {
			canWithdraw = true
		}
	}
	if !canWithdraw {
		return apperrors.Forbidden("You do not have permission to withdraw this free-agent signup.")
	}

	fa.Status = StatusAssigned
	return s.repo.Update(fa)
}
