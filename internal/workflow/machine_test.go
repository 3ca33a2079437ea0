package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatusCaseInsensitive(t *testing.T) {
	for raw, want := range map[string]Status{
		"pending":   StatusPending,
		"PROCESSED": StatusProcessed,
		" Signatory ": StatusSignatory,
		"release":   StatusRelease,
		"Completed": StatusCompleted,
		"cancelled": StatusCancelled,
	} {
		got, err := ParseStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestParseStatusUnknown(t *testing.T) {
	_, err := ParseStatus("archived")
	require.Error(t, err)
}

func TestNextActionTable(t *testing.T) {
	tests := []struct {
		status    Status
		wantLabel string
		wantNext  Status
	}{
		{StatusPending, LabelMarkProcessed, StatusProcessed},
		{StatusProcessed, LabelProceedSignatory, StatusSignatory},
		{StatusSignatory, LabelSetReleaseSchedule, StatusRelease},
		{StatusRelease, LabelMarkCompleted, StatusCompleted},
	}
	for _, tt := range tests {
		action := NextAction(tt.status, true, false)
		assert.Equal(t, tt.wantLabel, action.Label, tt.status)
		assert.Equal(t, tt.wantNext, action.Next, tt.status)
		assert.True(t, action.Enabled, tt.status)
		assert.False(t, action.Terminal, tt.status)
	}
}

func TestNextActionTerminalStatusesDisabled(t *testing.T) {
	completed := NextAction(StatusCompleted, true, true)
	assert.True(t, completed.Terminal)
	assert.False(t, completed.Enabled)
	assert.Equal(t, LabelCompleted, completed.Label)

	cancelled := NextAction(StatusCancelled, true, true)
	assert.True(t, cancelled.Terminal)
	assert.False(t, cancelled.Enabled)
	assert.Equal(t, LabelCancelled, cancelled.Label)
}

func TestNextActionPendingRequiresDocsOrTemplate(t *testing.T) {
	assert.False(t, NextAction(StatusPending, false, false).Enabled)
	assert.True(t, NextAction(StatusPending, true, false).Enabled)
	// Diploma/certificate/CAV requests are template-generated and need no
	// pre-existing documents.
	assert.True(t, NextAction(StatusPending, false, true).Enabled)
}

func TestNextActionSignatoryIsTwoPhase(t *testing.T) {
	action := NextAction(StatusSignatory, true, false)
	assert.True(t, action.RequiresSchedule)
	assert.Equal(t, StatusRelease, action.Next)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusProcessed, false))
	assert.True(t, CanTransition(StatusProcessed, StatusSignatory, false))
	assert.True(t, CanTransition(StatusRelease, StatusCompleted, false))

	// Signatory only exits through a submitted schedule.
	assert.False(t, CanTransition(StatusSignatory, StatusRelease, false))
	assert.True(t, CanTransition(StatusSignatory, StatusRelease, true))

	// No stage skipping.
	assert.False(t, CanTransition(StatusPending, StatusSignatory, false))
	assert.False(t, CanTransition(StatusProcessed, StatusCompleted, false))

	// Terminal states never move.
	assert.False(t, CanTransition(StatusCompleted, StatusRelease, true))
	assert.False(t, CanTransition(StatusCancelled, StatusPending, true))

	// Cancellation is reachable from every non-terminal stage.
	for _, from := range []Status{StatusPending, StatusProcessed, StatusSignatory, StatusRelease} {
		assert.True(t, CanTransition(from, StatusCancelled, false), from)
	}
}
