package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zk/qjunit/internal/naming"
)

// ErrNoSource is returned when a result has no source identifier to name the file by
var ErrNoSource = errors.New("result has no source identifier")

// Writer persists rendered reports as <dir>/TEST-<name>.xml
type Writer struct {
	dir    string
	policy naming.Policy
	logger Logger
}

// NewWriter creates a writer rooted at dir
func NewWriter(dir string, policy naming.Policy, logger Logger) *Writer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Writer{dir: dir, policy: policy, logger: logger}
}

// Path returns where the report for source is written
func (w *Writer) Path(source string) string {
	return filepath.Join(w.dir, "TEST-"+SanitizeFileName(w.policy.File(source))+".xml")
}

// Write renders result and writes it, returning the file path
func (w *Writer) Write(result *SourceResult) (string, error) {
	if result == nil || result.Source == "" {
		return "", ErrNoSource
	}

	path := w.Path(result.Source)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	if result.TimedOut {
		w.logger.Debug("Writing timeout report to %s", path)
	} else {
		w.logger.Debug("Writing results to %s", path)
	}
	if err := os.WriteFile(path, []byte(Render(result, w.policy)), 0644); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return path, nil
}
