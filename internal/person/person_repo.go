package person

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/courtside/rally/pkg/apperrors"
)

// Repository resolves and maintains canonical Person records.
type Repository interface {
	GetByID(id uint) (*Person, error)
	GetByEmail(email string) (*Person, error)
	GetBySubjectID(subjectID string) (*Person, error)
	GetByIDs(ids []uint) (map[uint]*Person, error)

	// Upsert deduplicates by normalized email first, then by subject id,
	// and inserts only when neither matches. Matching records get their
	// name (and identity linkage) refreshed.
	Upsert(name, email string, subjectID *string) (*Person, error)

	// FromIdentity resolves the authenticated caller to a Person. The
	// identity must carry an email.
	FromIdentity(identity Identity) (*Person, error)

	Update(p *Person) error

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

func (r *repository) GetByID(id uint) (*Person, error) {
	var p Person
	if err := r.db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetByEmail(email string) (*Person, error) {
	var p Person
	if err := r.db.Where("email = ?", NormalizeEmail(email)).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetBySubjectID(subjectID string) (*Person, error) {
	var p Person
	if err := r.db.Where("subject_id = ?", subjectID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetByIDs(ids []uint) (map[uint]*Person, error) {
	byID := make(map[uint]*Person, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}
	var people []Person
	if err := r.db.Where("id IN ?", ids).Find(&people).Error; err != nil {
		return nil, err
	}
	for i := range people {
		byID[people[i].ID] = &people[i]
	}
	return byID, nil
}

func (r *repository) Update(p *Person) error {
	return r.db.Save(p).Error
}

func (r *repository) Upsert(name, email string, subjectID *string) (*Person, error) {
	email = NormalizeEmail(email)
	name = trimmedOrDefault(name, "Player")
	if !IsValidEmail(email) {
		return nil, apperrors.Validation("Invalid email.")
	}

	existing, err := r.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.Name = name
		if subjectID != nil && *subjectID != "" {
			existing.SubjectID = subjectID
		}
		if err := r.db.Save(existing).Error; err != nil {
			return nil, err
		}
		return existing, nil
	}

	if subjectID != nil && *subjectID != "" {
		existing, err = r.GetBySubjectID(*subjectID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			existing.Name = name
			existing.Email = email
			if err := r.db.Save(existing).Error; err != nil {
				return nil, err
			}
			return existing, nil
		}
	}

	p := &Person{Name: name, Email: email, SubjectID: subjectID}
	if err := r.db.Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repository) FromIdentity(identity Identity) (*Person, error) {
	email := NormalizeEmail(identity.Email)
	if email == "" {
		return nil, apperrors.Validation("Signed in account is missing an email.")
	}
	subjectID := identity.SubjectID
	return r.Upsert(identity.Name, email, &subjectID)
}

func trimmedOrDefault(s, fallback string) string {
	if trimmed := strings.TrimSpace(s); trimmed != "" {
		return trimmed
	}
	return fallback
}
