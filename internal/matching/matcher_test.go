package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arkisys/registrar-api/internal/models"
)

func roster() []models.Student {
	return []models.Student{
		{ID: "s1", LRN: "123456789012", FirstName: "Patty", LastName: "Aspiras"},
		{ID: "s2", LRN: "210987654321", FirstName: "Juan", LastName: "Dela Cruz"},
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "juan dela cruz 2024", Normalize("  Juan—Dela\tCruz, (2024)!! "))
	assert.Equal(t, "", Normalize("...---..."))
}

func TestMatchFuzzySpacedName(t *testing.T) {
	m := NewMatcher(zap.NewNop())
	res := m.Match("This is to certify that P A T T Y  ASPIRAS has completed", roster())
	require.NotNil(t, res.Student)
	assert.Equal(t, "s1", res.Student.ID)
	assert.False(t, res.Ambiguous)
}

func TestMatchRequiresBothNameTokens(t *testing.T) {
	m := NewMatcher(zap.NewNop())
	res := m.Match("certificate issued to patty for good conduct", roster())
	assert.Nil(t, res.Student)
}

func TestMatchByLRNSubstring(t *testing.T) {
	m := NewMatcher(zap.NewNop())
	res := m.Match("learner reference number 123456789012 enrolled", roster())
	require.NotNil(t, res.Student)
	assert.Equal(t, "s1", res.Student.ID)
}

func TestMatchLRNHasNoGapTolerance(t *testing.T) {
	m := NewMatcher(zap.NewNop())
	res := m.Match("lrn 1 2 3 4 5 6 7 8 9 0 1 2", roster())
	assert.Nil(t, res.Student)
}

func TestMatchFirstMatchWinsAndFlagsAmbiguity(t *testing.T) {
	twins := []models.Student{
		{ID: "a", FirstName: "Maria", LastName: "Santos", LRN: "111111111111"},
		{ID: "b", FirstName: "Maria", LastName: "Santos", LRN: "222222222222"},
	}
	m := NewMatcher(zap.NewNop())
	res := m.Match("issued to maria santos", twins)
	require.NotNil(t, res.Student)
	assert.Equal(t, "a", res.Student.ID)
	assert.True(t, res.Ambiguous)
	assert.Len(t, res.Candidates, 2)
}

func TestMatchEmptyText(t *testing.T) {
	m := NewMatcher(zap.NewNop())
	res := m.Match("   ", roster())
	assert.Nil(t, res.Student)
}
