package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zk/qjunit/internal/logger"
	"github.com/zk/qjunit/internal/naming"
)

func TestWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")
	log := logger.NewTestLogger()
	w := NewWriter(dir, naming.DefaultPolicy(), log)

	agg := NewAggregator(nil)
	applyAll(agg, mathRun())

	path, err := w.Write(agg.Result())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "TEST-math.xml"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Render(agg.Result(), naming.DefaultPolicy()), string(content))
	assert.Contains(t, log.GetDebugMessages(), "Writing results to "+path)
}

func TestWriter_WriteTimeout(t *testing.T) {
	dir := t.TempDir()
	log := logger.NewTestLogger()
	w := NewWriter(dir, naming.DefaultPolicy(), log)

	path, err := w.Write(TimeoutResult("http://h/run.html?seed=1"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "TEST-run.xml"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, RenderTimeout("http://h/run.html?seed=1", naming.DefaultPolicy()), string(content))
	assert.Contains(t, log.GetDebugMessages(), "Writing timeout report to "+path)
}

func TestWriter_NoSource(t *testing.T) {
	w := NewWriter(t.TempDir(), naming.DefaultPolicy(), nil)

	_, err := w.Write(nil)
	assert.ErrorIs(t, err, ErrNoSource)

	_, err = w.Write(&SourceResult{})
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestWriter_PathStaysInsideDir(t *testing.T) {
	dir := t.TempDir()
	policy := naming.Policy{FileNamer: func(source string) string { return source }}
	w := NewWriter(dir, policy, nil)

	path := w.Path("../../etc/passwd")
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, "TEST-_.._etc_passwd.xml", filepath.Base(path))
}

func TestWriter_DirectoryIsAFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	w := NewWriter(blocker, naming.DefaultPolicy(), nil)
	_, err := w.Write(TimeoutResult("s"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create report directory")
}
