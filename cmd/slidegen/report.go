package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/k1LoW/errors"

	"github.com/manash/slidegen/internal/config"
)

type errorData struct {
	Error       string    `json:"error"`
	LatestLogs  []any     `json:"latest_logs"`
	StackTraces any       `json:"stack_traces"`
	CreatedAt   time.Time `json:"created_at"`
	Version     string    `json:"version"`
	Commit      string    `json:"commit"`
}

// writeErrorReport dumps err with its stack traces and the latest log records
// to error.json in the state directory.
func writeErrorReport(app *App, err error) error {
	paths, perr := config.ResolvePaths(app.GetEnv)
	if perr != nil {
		return perr
	}

	var latestLogs []any
	if app.Tail != nil {
		for _, line := range app.Tail.Lines() {
			// Request bodies carry the template and prompt.
			if strings.Contains(line, `"level":"DEBUG"`) && strings.Contains(line, `"body":`) {
				continue
			}
			var m map[string]any
			if jerr := json.Unmarshal([]byte(line), &m); jerr != nil {
				latestLogs = append(latestLogs, line)
			} else {
				latestLogs = append(latestLogs, m)
			}
		}
	}

	d := &errorData{
		Error:       err.Error(),
		LatestLogs:  latestLogs,
		StackTraces: errors.StackTraces(err),
		CreatedAt:   app.Now(),
		Version:     version,
		Commit:      commit,
	}
	b, merr := json.Marshal(d)
	if merr != nil {
		return merr
	}

	if err := os.MkdirAll(paths.StateDir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	dumpPath := filepath.Join(paths.StateDir, "error.json")
	if err := os.WriteFile(dumpPath, b, 0o600); err != nil {
		return fmt.Errorf("failed to write error.json to %s: %w", dumpPath, err)
	}
	return nil
}
