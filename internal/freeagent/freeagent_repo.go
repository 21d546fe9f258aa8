package freeagent

import (
	"errors"

	"gorm.io/gorm"
)

// Repository owns FreeAgent rows.
type Repository interface {
	Create(fa *FreeAgent) error
	GetByID(id uint) (*FreeAgent, error)
	Update(fa *FreeAgent) error
	ListAvailableBySession(sessionID uint) ([]FreeAgent, error)
	// HasAvailableSignup reports whether the normalized email already has
	// an available signup for the session.
	HasAvailableSignup(sessionID uint, email string) (bool, error)
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

func (r *repository) Create(fa *FreeAgent) error {
	return r.db.Create(fa).Error
}

func (r *repository) GetByID(id uint) (*FreeAgent, error) {
	var fa FreeAgent
	if err := r.db.First(&fa, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &fa, nil
}

func (r *repository) Update(fa *FreeAgent) error {
	return r.db.Save(fa).Error
}

func (r *repository) ListAvailableBySession(sessionID uint) ([]FreeAgent, error) {
	var agents []FreeAgent
	err := r.db.Where("session_id = ? AND status = ?", sessionID, StatusAvailable).
		Order("created_at asc").Find(&agents).Error
	if err != nil {
		return nil, err
	}
	return agents, nil
}

func (r *repository) HasAvailableSignup(sessionID uint, email string) (bool, error) {
	var count int64
	err := r.db.Model(&FreeAgent{}).
		Where("session_id = ? AND email = ? AND status = ?", sessionID, email, StatusAvailable).
		Count(&count).Error
	return count > 0, err
}
