package scenarios

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/crudcheck/internal/browser"
	"github.com/ternarybob/crudcheck/internal/common"
	"github.com/ternarybob/crudcheck/internal/interfaces"
)

const diagnosticsTimeout = 10 * time.Second

// captureDiagnostics logs a page summary for a failed scenario and saves a
// screenshot when configured. It returns the screenshot path, if any.
func (r *Runner) captureDiagnostics(ctx context.Context, sc Scenario, b interfaces.Browser) string {
	inspector, ok := b.(interfaces.PageInspector)
	if !ok {
		return ""
	}

	// The scenario context may already be past its deadline
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), diagnosticsTimeout)
	defer cancel()

	pageURL, _ := b.CurrentURL(dctx)
	if html, err := inspector.HTML(dctx); err != nil {
		r.logger.Warn().Err(err).Str("scenario", sc.Name).Msg("Failed to read page for diagnostics")
	} else if snap, err := browser.ParseSnapshot(pageURL, html); err == nil {
		r.logger.Warn().
			Str("scenario", sc.Name).
			Str("url", snap.URL).
			Str("title", snap.Title).
			Strs("buttons", snap.Buttons).
			Strs("errors", snap.Errors).
			Msg("Page state at failure")
		r.logger.Debug().Str("scenario", sc.Name).Msg(snap.String())
	}

	if !r.config.Output.ScreenshotsOnFailure {
		return ""
	}
	png, err := inspector.Screenshot(dctx)
	if err != nil {
		r.logger.Warn().Err(err).Str("scenario", sc.Name).Msg("Failed to capture screenshot")
		return ""
	}
	path, err := r.writeScreenshot(sc, png)
	if err != nil {
		r.logger.Warn().Err(err).Str("scenario", sc.Name).Msg("Failed to save screenshot")
		return ""
	}
	r.logger.Info().Str("scenario", sc.Name).Str("path", path).Msg("Screenshot saved")
	return path
}

func (r *Runner) writeScreenshot(sc Scenario, png []byte) (string, error) {
	dir := filepath.Join(r.config.Output.ResultsDir, "screenshots")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s-%s.png", r.runID, common.SafeFileName(sc.Suite), common.SafeFileName(sc.Name)))
	if err := os.WriteFile(path, png, 0644); err != nil {
		return "", err
	}
	return path, nil
}
