package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSkipsMetadataRows(t *testing.T) {
	raw := [][]string{
		{"Department of Education"},
		{"Region V"},
		{"Enrollment Masterlist"},
		{"No", "Student LRN", "Last Name", "First Name"},
		{"1", "123456789012", "Aspiras", "Patty"},
		{"2", "210987654321", "Dela Cruz", "Juan"},
	}
	sheet, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"No", "Student LRN", "Last Name", "First Name"}, sheet.Headers)
	assert.Equal(t, 1, sheet.LRNColumn)
	assert.Len(t, sheet.Rows, 2)
}

func TestNormalizeHeaderNotFound(t *testing.T) {
	raw := [][]string{
		{"No", "Name", "Section"},
		{"1", "Patty Aspiras", "STEM-A"},
	}
	_, err := Normalize(raw)
	require.ErrorIs(t, err, ErrHeaderNotFound)
}

func TestNormalizeStripsTrailingDotsFromLRNOnly(t *testing.T) {
	raw := [][]string{
		{"LRN", "Remarks"},
		{"123456789012...", "promoted..."},
	}
	sheet, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "123456789012", sheet.Rows[0][0])
	// Non-LRN columns are left untouched.
	assert.Equal(t, "promoted...", sheet.Rows[0][1])
}

func TestNormalizeFiltersBlankRows(t *testing.T) {
	raw := [][]string{
		{"LRN", "Name"},
		{"", "  "},
		{"123456789012", "Patty"},
		{},
	}
	sheet, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, "123456789012", sheet.Rows[0][0])
}

func TestNormalizePadsShortRows(t *testing.T) {
	raw := [][]string{
		{"LRN", "Last Name", "First Name"},
		{"123456789012", "Aspiras"},
	}
	sheet, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, sheet.Rows[0], 3)
	assert.Equal(t, "", sheet.Rows[0][2])
}

func TestReadRowsCSV(t *testing.T) {
	content := []byte("banner\nLRN,Name\n123.,Patty\n")
	rows, err := ReadRows("roster.csv", content)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"LRN", "Name"}, rows[1])
}

func TestReadRowsUnsupported(t *testing.T) {
	_, err := ReadRows("roster.ods", nil)
	require.Error(t, err)
}
