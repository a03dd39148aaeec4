package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/crudcheck/internal/models"
	"github.com/ternarybob/crudcheck/internal/scenarios"
)

const validationMessage = "Contact validation failed: birthdate: Birthdate is invalid"

func mixedResults() []scenarios.Result {
	return []scenarios.Result{
		{Suite: "login", Name: "valid login", Duration: 120 * time.Millisecond},
		{Suite: "login", Name: "empty password", Duration: 85*time.Millisecond + 300*time.Microsecond},
		{
			Suite:      "contacts",
			Name:       "add contact",
			Err:        errors.New("create contact: " + validationMessage),
			Kind:       models.KindSaveError,
			Message:    validationMessage,
			Duration:   2500 * time.Millisecond,
			Screenshot: "results/screenshots/run1-contacts-add-contact.png",
		},
		{
			Suite:     "contacts",
			Name:      "delete contact",
			Err:       errors.New("scenario panicked: boom"),
			Kind:      models.KindInternal,
			Duration:  10 * time.Second,
			CrashFile: "results/crashes/crash-delete-contact.log",
		},
	}
}

func TestRenderGolden(t *testing.T) {
	tests := []struct {
		name    string
		runID   string
		results []scenarios.Result
	}{
		{"summary_failures", "run1", mixedResults()},
		{"summary_passed", "run2", []scenarios.Result{
			{Suite: "login", Name: "valid login", Duration: 120 * time.Millisecond},
			{Suite: "contacts", Name: "view contacts", Duration: 1204 * time.Millisecond},
		}},
	}

	g := goldie.New(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Render(&buf, tt.runID, tt.results))
			g.Assert(t, tt.name, buf.Bytes())
		})
	}
}

func TestCount(t *testing.T) {
	counts := Count(mixedResults())
	assert.Equal(t, Counts{Total: 4, Passed: 2, Failed: 2}, counts)
	assert.False(t, counts.OK())

	assert.True(t, Count(mixedResults()[:2]).OK())
	assert.False(t, Count(nil).OK())
}

func TestWriteJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	started := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	path, err := WriteJSON(dir, NewRun("run1", started, mixedResults()))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run-run1.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var run Run
	require.NoError(t, json.Unmarshal(data, &run))
	assert.Equal(t, "run1", run.RunID)
	assert.True(t, started.Equal(run.Started))
	assert.Equal(t, 2, run.Passed)
	assert.Equal(t, 2, run.Failed)
	require.Len(t, run.Results, 4)

	assert.True(t, run.Results[0].Passed)
	assert.Empty(t, run.Results[0].Error)
	assert.Equal(t, int64(85), run.Results[1].DurationMS)

	saveFailure := run.Results[2]
	assert.False(t, saveFailure.Passed)
	assert.Equal(t, models.KindSaveError, saveFailure.Kind)
	assert.Equal(t, validationMessage, saveFailure.Message)
	assert.Equal(t, "results/screenshots/run1-contacts-add-contact.png", saveFailure.Screenshot)
	assert.Equal(t, "results/crashes/crash-delete-contact.log", run.Results[3].CrashFile)
}
