package person_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/rally/internal/person"
	"github.com/courtside/rally/internal/testdb"
	"github.com/courtside/rally/pkg/apperrors"
)

func TestUpsertDeduplicatesByEmail(t *testing.T) {
	repo := person.NewRepository(testdb.Open(t))

	first, err := repo.Upsert("Ann", "Ann@Example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", first.Email, "emails are stored normalized")
	assert.Nil(t, first.SubjectID)

	subject := "subj-ann"
	second, err := repo.Upsert("Annabel", "ANN@example.com ", &subject)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "same email resolves to the same person")
	assert.Equal(t, "Annabel", second.Name, "name is refreshed")
	require.NotNil(t, second.SubjectID)
	assert.Equal(t, "subj-ann", *second.SubjectID, "identity gets linked on sign-in")
}

func TestUpsertDeduplicatesBySubject(t *testing.T) {
	repo := person.NewRepository(testdb.Open(t))

	subject := "subj-bob"
	first, err := repo.Upsert("Bob", "bob@old.example.com", &subject)
	require.NoError(t, err)

	// Same account returning with a new email address.
	second, err := repo.Upsert("Bob", "bob@new.example.com", &subject)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "bob@new.example.com", second.Email)
}

func TestUpsertInsertsNewPerson(t *testing.T) {
	repo := person.NewRepository(testdb.Open(t))

	p, err := repo.Upsert("", "cid@example.com", nil)
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, "Player", p.Name, "blank names get a placeholder")

	other, err := repo.Upsert("Dee", "dee@example.com", nil)
	require.NoError(t, err)
	assert.NotEqual(t, p.ID, other.ID)
}

func TestUpsertRejectsInvalidEmail(t *testing.T) {
	repo := person.NewRepository(testdb.Open(t))

	_, err := repo.Upsert("Eve", "not-an-email", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestFromIdentity(t *testing.T) {
	repo := person.NewRepository(testdb.Open(t))

	_, err := repo.FromIdentity(person.Identity{SubjectID: "subj-x", Name: "X"})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation), "identity without email cannot be resolved")

	p, err := repo.FromIdentity(person.Identity{SubjectID: "subj-casey", Email: "casey@example.com", Name: "Casey"})
	require.NoError(t, err)
	require.NotNil(t, p.SubjectID)
	assert.Equal(t, "subj-casey", *p.SubjectID)

	found, err := repo.GetBySubjectID("subj-casey")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, p.ID, found.ID)

	missing, err := repo.GetBySubjectID("subj-nobody")
	require.NoError(t, err)
	assert.Nil(t, missing, "unknown subject is not an error")
}

func TestGetByIDs(t *testing.T) {
	repo := person.NewRepository(testdb.Open(t))

	a, err := repo.Upsert("Ann", "ann@example.com", nil)
	require.NoError(t, err)
	b, err := repo.Upsert("Bob", "bob@example.com", nil)
	require.NoError(t, err)

	byID, err := repo.GetByIDs([]uint{a.ID, b.ID, 404})
	require.NoError(t, err)
	assert.Len(t, byID, 2)
	assert.Equal(t, "Ann", byID[a.ID].Name)
	assert.Equal(t, "Bob", byID[b.ID].Name)

	empty, err := repo.GetByIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
