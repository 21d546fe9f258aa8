package person

import (
	"regexp"
	"strings"

	"gorm.io/gorm"
)

// Person is the canonical league-wide profile. One row per human, shared by
// every team roster and registration that references them. Never deleted.
type Person struct {
	gorm.Model
	Name  string `json:"name" gorm:"not null"`
	Email string `json:"email" gorm:"uniqueIndex;not null"`
	// SubjectID is the stable id from the external identity provider,
	// attached the first time the person signs in.
	SubjectID *string `json:"subject_id,omitempty" gorm:"uniqueIndex"`
}

// Identity is the authenticated caller as supplied by the external identity
// provider. Email and Name may be empty depending on the provider.
type Identity struct {
	SubjectID string
	Email     string
	Name      string
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail lower-cases and trims an email so it can be used as a
// dedup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail reports whether an email looks deliverable enough to invite.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
