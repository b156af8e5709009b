package ipc

import "encoding/json"

// EventType represents the type of IPC event
type EventType string

const (
	EventTypeSpawn       EventType = "spawn"
	EventTypeBegin       EventType = "begin"
	EventTypeModuleStart EventType = "moduleStart"
	EventTypeTestStart   EventType = "testStart"
	EventTypeLog         EventType = "log"
	EventTypeTestDone    EventType = "testDone"
	EventTypeModuleDone  EventType = "moduleDone"
	EventTypeDone        EventType = "done"
	EventTypeTimeout     EventType = "fail.timeout"
)

// IsTerminal reports whether the event type ends a source's lifecycle.
func (t EventType) IsTerminal() bool {
	return t == EventTypeDone || t == EventTypeTimeout
}

// Event is the base interface for all IPC events
type Event interface {
	Type() EventType
}

// SpawnEvent announces the test source the following events belong to
type SpawnEvent struct {
	EventType EventType    `json:"eventType"`
	Payload   SpawnPayload `json:"payload"`
}

func (e SpawnEvent) Type() EventType { return EventTypeSpawn }

type SpawnPayload struct {
	URL string `json:"url"`
}

// BeginEvent is sent once the runner starts executing; carries no data
type BeginEvent struct {
	EventType EventType `json:"eventType"`
	Payload   struct{}  `json:"payload"`
}

func (e BeginEvent) Type() EventType { return EventTypeBegin }

// ModuleStartEvent opens a named module
type ModuleStartEvent struct {
	EventType EventType   `json:"eventType"`
	Payload   NamePayload `json:"payload"`
}

func (e ModuleStartEvent) Type() EventType { return EventTypeModuleStart }

// TestStartEvent opens a test
type TestStartEvent struct {
	EventType EventType   `json:"eventType"`
	Payload   NamePayload `json:"payload"`
}

func (e TestStartEvent) Type() EventType { return EventTypeTestStart }

type NamePayload struct {
	Name string `json:"name"`
}

// LogEvent reports a single assertion result
type LogEvent struct {
	EventType EventType  `json:"eventType"`
	Payload   LogPayload `json:"payload"`
}

func (e LogEvent) Type() EventType { return EventTypeLog }

type LogPayload struct {
	Result   bool            `json:"result"`
	Actual   json.RawMessage `json:"actual,omitempty"`
	Expected json.RawMessage `json:"expected,omitempty"`
	Message  string          `json:"message,omitempty"`
	Source   string          `json:"source,omitempty"`
}

// TestDoneEvent closes the current test
type TestDoneEvent struct {
	EventType EventType       `json:"eventType"`
	Payload   TestDonePayload `json:"payload"`
}

func (e TestDoneEvent) Type() EventType { return EventTypeTestDone }

type TestDonePayload struct {
	Name     string   `json:"name"`
	Failed   int      `json:"failed"`
	Passed   int      `json:"passed"`
	Total    int      `json:"total"`
	Duration *float64 `json:"duration,omitempty"` // Milliseconds; older runners omit it
}

// ModuleDoneEvent closes the current module
type ModuleDoneEvent struct {
	EventType EventType     `json:"eventType"`
	Payload   TotalsPayload `json:"payload"`
}

func (e ModuleDoneEvent) Type() EventType { return EventTypeModuleDone }

type TotalsPayload struct {
	Name   string `json:"name,omitempty"`
	Failed int    `json:"failed"`
	Passed int    `json:"passed"`
	Total  int    `json:"total"`
}

// DoneEvent indicates the runner finished the source
type DoneEvent struct {
	EventType EventType   `json:"eventType"`
	Payload   DonePayload `json:"payload"`
}

func (e DoneEvent) Type() EventType { return EventTypeDone }

type DonePayload struct {
	Failed  int     `json:"failed"`
	Passed  int     `json:"passed"`
	Total   int     `json:"total"`
	Runtime float64 `json:"runtime"`
}

// TimeoutEvent indicates the source hung and will never send done
type TimeoutEvent struct {
	EventType EventType `json:"eventType"`
	Payload   struct{}  `json:"payload"`
}

func (e TimeoutEvent) Type() EventType { return EventTypeTimeout }

// Helper functions to create events

// NewSpawnEvent creates a spawn event for the given source
func NewSpawnEvent(url string) SpawnEvent {
	return SpawnEvent{EventType: EventTypeSpawn, Payload: SpawnPayload{URL: url}}
}

// NewModuleStartEvent creates a module start event
func NewModuleStartEvent(name string) ModuleStartEvent {
	return ModuleStartEvent{EventType: EventTypeModuleStart, Payload: NamePayload{Name: name}}
}

// NewTestStartEvent creates a test start event
func NewTestStartEvent(name string) TestStartEvent {
	return TestStartEvent{EventType: EventTypeTestStart, Payload: NamePayload{Name: name}}
}

// NewLogEvent creates an assertion log event
func NewLogEvent(result bool, message, source string) LogEvent {
	return LogEvent{
		EventType: EventTypeLog,
		Payload:   LogPayload{Result: result, Message: message, Source: source},
	}
}

// NewTestDoneEvent creates a test done event; a negative duration is omitted
func NewTestDoneEvent(name string, failed, passed, total int, durationMs float64) TestDoneEvent {
	e := TestDoneEvent{
		EventType: EventTypeTestDone,
		Payload:   TestDonePayload{Name: name, Failed: failed, Passed: passed, Total: total},
	}
	if durationMs >= 0 {
		e.Payload.Duration = &durationMs
	}
	return e
}

// NewModuleDoneEvent creates a module done event
func NewModuleDoneEvent(name string, failed, passed, total int) ModuleDoneEvent {
	return ModuleDoneEvent{
		EventType: EventTypeModuleDone,
		Payload:   TotalsPayload{Name: name, Failed: failed, Passed: passed, Total: total},
	}
}

// NewDoneEvent creates a done event
func NewDoneEvent(failed, passed, total int, runtimeMs float64) DoneEvent {
	return DoneEvent{
		EventType: EventTypeDone,
		Payload:   DonePayload{Failed: failed, Passed: passed, Total: total, Runtime: runtimeMs},
	}
}

// NewTimeoutEvent creates a timeout event
func NewTimeoutEvent() TimeoutEvent {
	return TimeoutEvent{EventType: EventTypeTimeout}
}
