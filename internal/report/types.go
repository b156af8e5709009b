package report

// Kind classifies a LogEntry
type Kind string

const (
	KindFailure Kind = "failure" // Assertion mismatch
	KindError   Kind = "error"   // Uncaught runtime error
)

// LogEntry is one failed assertion or runtime error within a test
type LogEntry struct {
	Kind    Kind
	Message string
	Stack   string // Empty unless the message was a runtime error
	Source  string // Source location reported by the runner, if any
}

// Test is one executed test case
type Test struct {
	Name       string
	Passed     int
	Failed     int // Assertion failures only; errors are counted in Errored
	Total      int
	Errored    int
	DurationMs float64
	Logs       []LogEntry
}

// Module is a named group of tests
type Module struct {
	Name    string
	Failed  int
	Errored int
	Passed  int
	Total   int
	Tests   []Test
}

// SourceResult is the complete outcome for one test source
type SourceResult struct {
	Source    string
	Modules   []Module
	Failed    int
	Passed    int
	Total     int
	RuntimeMs float64
	TimedOut  bool // Degraded result produced by a timeout
}

// Counts sums failures and errors over every module
func (r *SourceResult) Counts() (tests, failures, errors int) {
	for _, m := range r.Modules {
		tests += len(m.Tests)
		failures += m.Failed
		errors += m.Errored
	}
	return tests, failures, errors
}

// HasFailures reports whether any module recorded a failure or error
func (r *SourceResult) HasFailures() bool {
	_, failures, errors := r.Counts()
	return failures > 0 || errors > 0
}
