package report

import (
	"github.com/zk/qjunit/internal/ipc"
	"github.com/zk/qjunit/internal/naming"
)

// TimeoutMessage is the diagnostic recorded when a source never completes
const TimeoutMessage = "Test timed out, possibly due to a missing start() call."

// Logger interface for protocol warnings and debug output
type Logger interface {
	Debug(format string, args ...interface{})
	Warn(format string, args ...interface{})
}

// testBuffer accumulates the log of the test currently running
type testBuffer struct {
	name   string
	logs   []LogEntry
	errors int
}

// Aggregator reduces the ordered event stream of one test source into a
// SourceResult. It is not safe for concurrent use; create one per source.
type Aggregator struct {
	logger Logger

	source     string
	moduleName string // Name from the last moduleStart, used when moduleDone omits it
	modules    []Module
	tests      []Test // Finished tests not yet sealed into a module
	current    *testBuffer

	result   *SourceResult
	warnings int
	subs     []ipc.Subscription
}

// NewAggregator creates an aggregator. logger may be nil.
func NewAggregator(logger Logger) *Aggregator {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Aggregator{logger: logger}
}

// Source returns the identifier recorded by OnSpawn
func (a *Aggregator) Source() string {
	return a.source
}

// Done reports whether a terminal event has been applied
func (a *Aggregator) Done() bool {
	return a.result != nil
}

// Result returns the terminal result, or nil before done/timeout
func (a *Aggregator) Result() *SourceResult {
	return a.result
}

// Warnings returns the number of protocol anomalies seen so far
func (a *Aggregator) Warnings() int {
	return a.warnings
}

func (a *Aggregator) warn(format string, args ...interface{}) {
	a.warnings++
	a.logger.Warn(format, args...)
}

// retired reports (and logs) events arriving after a terminal event
func (a *Aggregator) retired(event ipc.EventType) bool {
	if a.result == nil {
		return false
	}
	a.logger.Debug("Ignoring %s for %s: report already finished", event, a.source)
	return true
}

// OnSpawn records the source identifier and resets all accumulators
func (a *Aggregator) OnSpawn(source string) {
	if a.retired(ipc.EventTypeSpawn) {
		return
	}
	if a.source != "" && (len(a.modules) > 0 || len(a.tests) > 0 || a.current != nil) {
		a.warn("Spawn of %s discards unfinished results for %s", source, a.source)
	}
	a.source = source
	a.moduleName = ""
	a.modules = nil
	a.tests = nil
	a.current = nil
}

// OnBegin is part of the protocol but carries nothing to record
func (a *Aggregator) OnBegin() {}

// OnModuleStart opens a module. Tests still pending from an unclosed module
// are sealed into an implicit global module first.
func (a *Aggregator) OnModuleStart(name string) {
	if a.retired(ipc.EventTypeModuleStart) {
		return
	}
	if len(a.tests) > 0 {
		a.warn("Unexpected moduleStart %q with %d tests already recorded for %s", name, len(a.tests), a.source)
		failed, passed, total := 0, 0, 0
		for _, t := range a.tests {
			failed += t.Failed + t.Errored
			passed += t.Passed
			total += t.Total
		}
		a.seal(naming.GlobalModule, failed, passed, total)
	}
	a.moduleName = name
}

// OnTestStart opens a fresh log buffer
func (a *Aggregator) OnTestStart(name string) {
	if a.retired(ipc.EventTypeTestStart) {
		return
	}
	if a.current != nil {
		a.warn("Test %q started before %q finished; discarding %d log entries", name, a.current.name, len(a.current.logs))
	}
	a.current = &testBuffer{name: name}
}

// OnLog records a failed assertion. Passing assertions are ignored. The
// runner's actual/expected values are not reported; they remain available
// raw on ipc.LogPayload for callers that need them.
func (a *Aggregator) OnLog(passed bool, message, source string) {
	if a.retired(ipc.EventTypeLog) || passed {
		return
	}
	if a.current == nil {
		a.warn("Assertion logged outside of a test in %s", a.source)
		a.current = &testBuffer{}
	}

	d := ParseDiagnostic(message)
	if d.Kind == KindError {
		a.current.errors++
	}
	a.current.logs = append(a.current.logs, LogEntry{
		Kind:    d.Kind,
		Message: d.Message,
		Stack:   d.Stack,
		Source:  source,
	})
}

// OnTestDone finalizes the current test. failed from the runner includes
// runtime errors, which are split out into Errored.
func (a *Aggregator) OnTestDone(name string, failed, passed, total int, durationMs float64) {
	if a.retired(ipc.EventTypeTestDone) {
		return
	}
	buf := a.current
	if buf == nil {
		a.warn("testDone %q without testStart in %s", name, a.source)
		buf = &testBuffer{}
	}

	pureFailed := failed - buf.errors
	if pureFailed < 0 {
		a.warn("Test %q reports %d failures but %d errors were logged", name, failed, buf.errors)
		pureFailed = 0
	}
	a.tests = append(a.tests, Test{
		Name:       name,
		Passed:     passed,
		Failed:     pureFailed,
		Total:      total,
		Errored:    buf.errors,
		DurationMs: durationMs,
		Logs:       buf.logs,
	})
	a.current = nil
}

// OnModuleDone seals the pending tests into a module
func (a *Aggregator) OnModuleDone(name string, failed, passed, total int) {
	if a.retired(ipc.EventTypeModuleDone) {
		return
	}
	if a.current != nil {
		a.warn("moduleDone %q while test %q is still running", name, a.current.name)
	}
	if name == "" {
		name = a.moduleName
	}
	a.seal(name, failed, passed, total)
}

// seal moves the pending tests into a new module. failed is the runner's
// count, which includes errors.
func (a *Aggregator) seal(name string, failed, passed, total int) {
	errored := 0
	for _, t := range a.tests {
		errored += t.Errored
	}
	pureFailed := failed - errored
	if pureFailed < 0 {
		a.warn("Module %q reports %d failures but %d errors were logged", name, failed, errored)
		pureFailed = 0
	}

	tests := make([]Test, len(a.tests))
	copy(tests, a.tests)
	a.modules = append(a.modules, Module{
		Name:    name,
		Failed:  pureFailed,
		Errored: errored,
		Passed:  passed,
		Total:   total,
		Tests:   tests,
	})
	a.tests = nil
	a.moduleName = ""
}

// OnDone is the terminal success transition. Tests reported outside any
// module are sealed into the global module using the run totals less what
// the sealed modules already account for.
func (a *Aggregator) OnDone(failed, passed, total int, runtimeMs float64) {
	if a.retired(ipc.EventTypeDone) {
		return
	}
	if a.current != nil {
		a.warn("Test %q never finished in %s; discarding %d log entries", a.current.name, a.source, len(a.current.logs))
	}
	if len(a.tests) > 0 {
		gFailed, gPassed, gTotal := failed, passed, total
		for _, m := range a.modules {
			gFailed -= m.Failed + m.Errored
			gPassed -= m.Passed
			gTotal -= m.Total
		}
		a.seal(naming.GlobalModule, gFailed, max(gPassed, 0), max(gTotal, 0))
	}

	modules := make([]Module, len(a.modules))
	copy(modules, a.modules)
	a.result = &SourceResult{
		Source:    a.source,
		Modules:   modules,
		Failed:    failed,
		Passed:    passed,
		Total:     total,
		RuntimeMs: runtimeMs,
	}
	a.reset()
}

// OnTimeout is the terminal failure transition. Partial results are discarded.
func (a *Aggregator) OnTimeout() {
	if a.retired(ipc.EventTypeTimeout) {
		return
	}
	a.result = TimeoutResult(a.source)
	a.reset()
}

func (a *Aggregator) reset() {
	a.modules = nil
	a.tests = nil
	a.current = nil
	a.moduleName = ""
}

// TimeoutResult builds the degraded result for a source that never completed
func TimeoutResult(source string) *SourceResult {
	test := Test{
		Name:       "main",
		Total:      1,
		Errored:    1,
		DurationMs: FloorMs,
		Logs:       []LogEntry{{Kind: KindError, Message: TimeoutMessage}},
	}
	module := Module{Name: naming.GlobalModule, Errored: 1, Total: 1, Tests: []Test{test}}
	return &SourceResult{
		Source:   source,
		Modules:  []Module{module},
		Failed:   1,
		Total:    1,
		TimedOut: true,
	}
}

// Apply dispatches a decoded runner event. Unknown events are ignored.
func (a *Aggregator) Apply(event ipc.Event) {
	switch e := event.(type) {
	case ipc.SpawnEvent:
		a.OnSpawn(e.Payload.URL)
	case ipc.BeginEvent:
		a.OnBegin()
	case ipc.ModuleStartEvent:
		a.OnModuleStart(e.Payload.Name)
	case ipc.TestStartEvent:
		a.OnTestStart(e.Payload.Name)
	case ipc.LogEvent:
		a.OnLog(e.Payload.Result, e.Payload.Message, e.Payload.Source)
	case ipc.TestDoneEvent:
		duration := 0.0
		if e.Payload.Duration != nil {
			duration = *e.Payload.Duration
		}
		a.OnTestDone(e.Payload.Name, e.Payload.Failed, e.Payload.Passed, e.Payload.Total, duration)
	case ipc.ModuleDoneEvent:
		a.OnModuleDone(e.Payload.Name, e.Payload.Failed, e.Payload.Passed, e.Payload.Total)
	case ipc.DoneEvent:
		a.OnDone(e.Payload.Failed, e.Payload.Passed, e.Payload.Total, e.Payload.Runtime)
	case ipc.TimeoutEvent:
		a.OnTimeout()
	default:
		a.logger.Debug("Unknown event type: %T", event)
	}
}

// protocolEvents are the event types an attached aggregator listens to
var protocolEvents = []ipc.EventType{
	ipc.EventTypeSpawn,
	ipc.EventTypeBegin,
	ipc.EventTypeModuleStart,
	ipc.EventTypeTestStart,
	ipc.EventTypeLog,
	ipc.EventTypeTestDone,
	ipc.EventTypeModuleDone,
	ipc.EventTypeDone,
	ipc.EventTypeTimeout,
}

// Attach subscribes the aggregator to every protocol event on bus
func (a *Aggregator) Attach(bus *ipc.Bus) {
	for _, et := range protocolEvents {
		a.subs = append(a.subs, bus.On(et, a.Apply))
	}
}

// Detach removes every subscription made by Attach
func (a *Aggregator) Detach(bus *ipc.Bus) {
	for _, sub := range a.subs {
		bus.Off(sub)
	}
	a.subs = nil
}

// Attached reports whether the aggregator currently holds subscriptions
func (a *Aggregator) Attached() bool {
	return len(a.subs) > 0
}

type noopLogger struct{}

func (noopLogger) Debug(format string, args ...interface{}) {}
func (noopLogger) Warn(format string, args ...interface{})  {}
