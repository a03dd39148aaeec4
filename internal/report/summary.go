// Package report renders scenario results for the console and writes them to
// the results directory.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/crudcheck/internal/scenarios"
)

// Counts tallies results
type Counts struct {
	Total  int
	Passed int
	Failed int
}

// Count tallies results
func Count(results []scenarios.Result) Counts {
	c := Counts{Total: len(results)}
	for _, r := range results {
		if r.Passed() {
			c.Passed++
		} else {
			c.Failed++
		}
	}
	return c
}

// OK reports whether every scenario passed. An empty run is not OK.
func (c Counts) OK() bool {
	return c.Total > 0 && c.Failed == 0
}

var columns = []string{"SUITE", "SCENARIO", "RESULT", "DURATION", "DETAIL"}

// Render writes the run summary table followed by failure details
func Render(w io.Writer, runID string, results []scenarios.Result) error {
	counts := Count(results)

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: %d scenarios, %d passed, %d failed\n\n", runID, counts.Total, counts.Passed, counts.Failed)

	rows := [][]string{columns}
	for _, r := range results {
		status := "PASS"
		if !r.Passed() {
			status = "FAIL"
		}
		rows = append(rows, []string{r.Suite, r.Name, status, formatDuration(r.Duration), r.Kind})
	}
	writeTable(&b, rows)

	if counts.Failed > 0 {
		b.WriteString("\nFailures:\n")
		for _, r := range results {
			if r.Passed() {
				continue
			}
			fmt.Fprintf(&b, "  %s/%s\n", r.Suite, r.Name)
			detail(&b, "kind", r.Kind)
			detail(&b, "error", r.Err.Error())
			detail(&b, "message", r.Message)
			detail(&b, "screenshot", r.Screenshot)
			detail(&b, "crash file", r.CrashFile)
		}
	}

	if counts.OK() {
		b.WriteString("\nResult: PASSED\n")
	} else {
		b.WriteString("\nResult: FAILED\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func detail(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "    %-12s%s\n", label+":", value)
}

// writeTable left-aligns columns two spaces apart; the last column is not padded
func writeTable(b *strings.Builder, rows [][]string) {
	widths := make([]int, len(columns))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}
	for _, row := range rows {
		var line strings.Builder
		for i, cell := range row {
			if i == len(row)-1 {
				line.WriteString(cell)
				break
			}
			fmt.Fprintf(&line, "%-*s", widths[i]+2, cell)
		}
		b.WriteString(strings.TrimRight(line.String(), " "))
		b.WriteString("\n")
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	return d.Round(time.Millisecond).String()
}

// Record is the JSON form of a scenario result
type Record struct {
	Suite      string `json:"suite"`
	Name       string `json:"name"`
	Passed     bool   `json:"passed"`
	Kind       string `json:"kind,omitempty"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Screenshot string `json:"screenshot,omitempty"`
	CrashFile  string `json:"crash_file,omitempty"`
}

// Run is the JSON document written for a run
type Run struct {
	RunID   string    `json:"run_id"`
	Started time.Time `json:"started"`
	Passed  int       `json:"passed"`
	Failed  int       `json:"failed"`
	Results []Record  `json:"results"`
}

// NewRun converts results to their JSON form
func NewRun(runID string, started time.Time, results []scenarios.Result) Run {
	counts := Count(results)
	run := Run{
		RunID:   runID,
		Started: started,
		Passed:  counts.Passed,
		Failed:  counts.Failed,
		Results: make([]Record, 0, len(results)),
	}
	for _, r := range results {
		rec := Record{
			Suite:      r.Suite,
			Name:       r.Name,
			Passed:     r.Passed(),
			Kind:       r.Kind,
			Message:    r.Message,
			DurationMS: r.Duration.Milliseconds(),
			Screenshot: r.Screenshot,
			CrashFile:  r.CrashFile,
		}
		if r.Err != nil {
			rec.Error = r.Err.Error()
		}
		run.Results = append(run.Results, rec)
	}
	return run
}

// WriteJSON saves the run as <dir>/run-<runID>.json and returns the path
func WriteJSON(dir string, run Run) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}
	path := filepath.Join(dir, "run-"+run.RunID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write results: %w", err)
	}
	return path, nil
}
