package session

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository owns Session rows and their live occupancy counts.
type Repository interface {
	// CreateIfAbsent inserts the session unless one with the same date
	// already exists. Reports whether a row was inserted.
	CreateIfAbsent(s *Session) (bool, error)
	GetByID(id uint) (*Session, error)
	ListFromDate(date string) ([]Session, error)
	// ActiveTeamCounts returns the number of non-cancelled registrations
	// per session id.
	ActiveTeamCounts(sessionIDs []uint) (map[uint]int, error)
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

func (r *repository) CreateIfAbsent(s *Session) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoNothing: true,
	}).Create(s)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) GetByID(id uint) (*Session, error) {
	var s Session
	if err := r.db.First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) ListFromDate(date string) ([]Session, error) {
	var sessions []Session
	if err := r.db.Where("date >= ?", date).Order("date asc").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repository) ActiveTeamCounts(sessionIDs []uint) (map[uint]int, error) {
	counts := make(map[uint]int, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		SessionID uint
		Total     int
	}
	err := r.db.Table("registrations").
		Select("session_id, count(*) as total").
		Where("session_id IN ? AND status <> ? AND deleted_at IS NULL", sessionIDs, "cancelled").
		Group("session_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.SessionID] = row.Total
	}
	return counts, nil
}
