package registration

import (
	"errors"

	"gorm.io/gorm"

	"github.com/courtside/rally/internal/team"
)

// Repository owns Registration and RegistrationMember rows.
type Repository interface {
	Create(reg *Registration) error
	GetByID(id uint) (*Registration, error)
	UpdateStatus(id uint, status string) error
	// GetActiveByTeamAndSession returns the single non-cancelled
	// registration for the pair, if any.
	GetActiveByTeamAndSession(teamID, sessionID uint) (*Registration, error)
	ListActiveBySession(sessionID uint) ([]Registration, error)
	ListActiveByTeam(teamID uint) ([]Registration, error)

	CreateMember(m *RegistrationMember) error
	UpdateMember(m *RegistrationMember) error
	ListMembers(registrationID uint) ([]RegistrationMember, error)
	GetMemberByToken(token string) (*RegistrationMember, error)

	// FindWeeklyConflicts scans every non-cancelled registration of the
	// given week for members of the given persons with active weekly
	// status, excluding one registration (0 to exclude none). Backed by
	// the person/week indexes, not a table walk.
	FindWeeklyConflicts(weekOf string, personIDs []uint, excludeRegistrationID uint) ([]WeeklyConflict, error)

	// LockWeek serializes writers touching the same week. On postgres it
	// takes a transaction-scoped advisory lock; other dialects fall back
	// to their single-writer semantics.
	LockWeek(weekOf string) error

	WithTransaction(fn func(tx *gorm.DB, r Repository) error) error
	WithTx(tx *gorm.DB) Repository
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) WithTransaction(fn func(tx *gorm.DB, repo Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx, &repository{db: tx})
	})
}

func (r *repository) LockWeek(weekOf string) error {
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	return r.db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", weekOf).Error
}

func (r *repository) Create(reg *Registration) error {
	return r.db.Create(reg).Error
}

func (r *repository) GetByID(id uint) (*Registration, error) {
	var reg Registration
	if err := r.db.First(&reg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reg, nil
}

func (r *repository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&Registration{}).Where("id = ?", id).Update("status", status).Error
}

func (r *repository) GetActiveByTeamAndSession(teamID, sessionID uint) (*Registration, error) {
	var reg Registration
	err := r.db.Where("team_id = ? AND session_id = ? AND status <> ?", teamID, sessionID, StatusCancelled).
		First(&reg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reg, nil
}

func (r *repository) ListActiveBySession(sessionID uint) ([]Registration, error) {
	var regs []Registration
	err := r.db.Where("session_id = ? AND status <> ?", sessionID, StatusCancelled).
		Order("created_at asc").Find(&regs).Error
	if err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *repository) ListActiveByTeam(teamID uint) ([]Registration, error) {
	var regs []Registration
	err := r.db.Where("team_id = ? AND status <> ?", teamID, StatusCancelled).
		Order("created_at asc").Find(&regs).Error
	if err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *repository) CreateMember(m *RegistrationMember) error {
	return r.db.Create(m).Error
}

func (r *repository) UpdateMember(m *RegistrationMember) error {
	return r.db.Save(m).Error
}

func (r *repository) ListMembers(registrationID uint) ([]RegistrationMember, error) {
	var members []RegistrationMember
	err := r.db.Where("registration_id = ?", registrationID).
		Order("created_at asc").Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) GetMemberByToken(token string) (*RegistrationMember, error) {
	var m RegistrationMember
	if err := r.db.Where("invite_token = ?", token).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *repository) FindWeeklyConflicts(weekOf string, personIDs []uint, excludeRegistrationID uint) ([]WeeklyConflict, error) {
	if len(personIDs) == 0 {
		return nil, nil
	}
	query := r.db.Table("registration_members AS rm").
		Select("rm.person_id, rm.registration_id, r.team_id, r.session_id").
		Joins("JOIN registrations r ON r.id = rm.registration_id").
		Where("rm.person_id IN ? AND rm.weekly_status = ?", personIDs, team.WeeklyActive).
		Where("r.week_of = ? AND r.status <> ?", weekOf, StatusCancelled).
		Where("rm.deleted_at IS NULL AND r.deleted_at IS NULL")
	if excludeRegistrationID != 0 {
		query = query.Where("r.id <> ?", excludeRegistrationID)
	}

	var conflicts []WeeklyConflict
	if err := query.Scan(&conflicts).Error; err != nil {
		return nil, err
	}
	return conflicts, nil
}
