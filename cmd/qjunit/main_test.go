package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/acarl005/stripansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zk/qjunit/internal/ipc"
)

// execute runs the root command in a scratch directory
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeRun(t *testing.T, path, url string) {
	t.Helper()
	for _, e := range []ipc.Event{
		ipc.NewSpawnEvent(url),
		ipc.NewModuleStartEvent("suite one"),
		ipc.NewTestStartEvent("passes"),
		ipc.NewTestDoneEvent("passes", 0, 1, 1, 12),
		ipc.NewModuleDoneEvent("suite one", 0, 1, 1),
		ipc.NewDoneEvent(0, 1, 1, 15),
	} {
		require.NoError(t, ipc.AppendEvent(path, e))
	}
}

func TestRootCmd_RequiresEventFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := execute(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestRootCmd_Version(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}

func TestRootCmd_WritesReports(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeRun(t, "events.jsonl", "http://h/tests/login.html")

	out, err := execute(t, "-d", "out", "events.jsonl")
	require.NoError(t, err)

	path := filepath.Join("out", "TEST-login.xml")
	assert.Equal(t, "PASS "+path+" (1 suite, 1 test, 0 failures, 0 errors)\n", stripansi.Strip(out))

	doc, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(doc), `<testsuite name="suite_one" errors="0" failures="0" tests="1" time="0.01">`)

	_, err = os.Stat(filepath.Join(".qjunit", "debug.log"))
	assert.NoError(t, err)
}

func TestRootCmd_ConfigFileAndFlagPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeRun(t, "events.jsonl", "http://h/fixtures/auth/login.html")
	require.NoError(t, os.WriteFile(".qjunit.yaml", []byte(`
dest: from-yaml
metrics_file: qjunit.prom
namers:
  file:
    pattern: 'fixtures/(.*)\.html$'
    replace: $1
    separator: .
  test:
    prefix_module: true
`), 0644))

	_, err := execute(t, "events.jsonl")
	require.NoError(t, err)
	doc, err := os.ReadFile(filepath.Join("from-yaml", "TEST-auth.login.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(doc), `name="suite one: passes"`)

	metrics, err := os.ReadFile("qjunit.prom")
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `qjunit_reports_total{outcome="passed"} 1`)

	_, err = execute(t, "--dest", "from-flag", "events.jsonl")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join("from-flag", "TEST-auth.login.xml"))
	assert.NoError(t, err)
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("bad.yaml", []byte("timeout: -1s\n"), 0644))

	_, err := execute(t, "-c", "bad.yaml", "events.jsonl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRunCore_WriteFailureExitCode(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeRun(t, "events.jsonl", "http://h/a.html")
	require.NoError(t, os.WriteFile("blocked", []byte("file"), 0644))

	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--dest", "blocked"}))

	var out bytes.Buffer
	exitCode, err := runCore(t.Context(), cmd.Flags(), []string{"events.jsonl"}, &out)
	require.Error(t, err)
	assert.Equal(t, 1, exitCode)
	assert.False(t, strings.Contains(out.String(), "PASS"))
}
