package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCSV(t *testing.T) {
	data, err := RenderCSV(Dataset{
		Headers: []string{"LRN", "Last Name"},
		Rows: []map[string]string{
			{"LRN": "123456789012", "Last Name": "Aspiras"},
			{"LRN": "123456789013"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "LRN,Last Name\n123456789012,Aspiras\n123456789013,\n", string(data))
}

func TestRenderCSVRequiresHeaders(t *testing.T) {
	_, err := RenderCSV(Dataset{})
	assert.Error(t, err)
}
