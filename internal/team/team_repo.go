package team

import (
	"errors"

	"gorm.io/gorm"
)

// Repository defines the roster store's data operations.
type Repository interface {
	CreateTeam(t *Team) error
	GetTeamByID(id uint) (*Team, error)
	UpdateTeam(t *Team) error
	ListByCaptainSubject(subjectID string) ([]Team, error)

	AddRosterMember(m *RosterMember) error
	GetRosterMember(teamID, memberID uint) (*RosterMember, error)
	GetRosterMemberByPerson(teamID, personID uint) (*RosterMember, error)
	// ListRoster returns the team's members, optionally including
	// archived ones.
	ListRoster(teamID uint, includeArchived bool) ([]RosterMember, error)
	UpdateRosterMember(m *RosterMember) error

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

func (r *repository) CreateTeam(t *Team) error {
	return r.db.Create(t).Error
}

func (r *repository) GetTeamByID(id uint) (*Team, error) {
	var t Team
	if err := r.db.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *repository) UpdateTeam(t *Team) error {
	return r.db.Save(t).Error
}

func (r *repository) ListByCaptainSubject(subjectID string) ([]Team, error) {
	var teams []Team
	if err := r.db.Where("captain_subject_id = ?", subjectID).Order("created_at desc").Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *repository) AddRosterMember(m *RosterMember) error {
	return r.db.Create(m).Error
}

func (r *repository) GetRosterMember(teamID, memberID uint) (*RosterMember, error) {
	var m RosterMember
	if err := r.db.Where("team_id = ? AND id = ?", teamID, memberID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *repository) GetRosterMemberByPerson(teamID, personID uint) (*RosterMember, error) {
	var m RosterMember
	if err := r.db.Where("team_id = ? AND person_id = ?", teamID, personID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *repository) ListRoster(teamID uint, includeArchived bool) ([]RosterMember, error) {
	var members []RosterMember
	query := r.db.Where("team_id = ?", teamID)
	if !includeArchived {
		query = query.Where("is_archived = ?", false)
	}
	if err := query.Order("created_at asc").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) UpdateRosterMember(m *RosterMember) error {
	return r.db.Save(m).Error
}
