package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrUnknownEvent is returned by DecodeEvent for well-formed lines whose
// eventType is not part of the runner protocol.
var ErrUnknownEvent = errors.New("unknown event type")

// DecodeEvent parses one JSONL line into a typed event.
func DecodeEvent(line []byte) (Event, error) {
	var envelope struct {
		EventType string `json:"eventType"`
	}
	if err := json.Unmarshal(line, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse event: %w", err)
	}
	if envelope.EventType == "" {
		return nil, fmt.Errorf("event missing eventType field")
	}

	var event Event
	var err error
	switch EventType(envelope.EventType) {
	case EventTypeSpawn:
		var e SpawnEvent
		err = json.Unmarshal(line, &e)
		event = e
	case EventTypeBegin:
		var e BeginEvent
		err = json.Unmarshal(line, &e)
		event = e
	case EventTypeModuleStart:
		var e ModuleStartEvent
		err = json.Unmarshal(line, &e)
		event = e
	case EventTypeTestStart:
		var e TestStartEvent
		err = json.Unmarshal(line, &e)
		event = e
	case EventTypeLog:
		var e LogEvent
		err = json.Unmarshal(line, &e)
		event = e
	case EventTypeTestDone:
		var e TestDoneEvent
		err = json.Unmarshal(line, &e)
		event = e
	case EventTypeModuleDone:
		var e ModuleDoneEvent
		err = json.Unmarshal(line, &e)
		event = e
	case EventTypeDone:
		var e DoneEvent
		err = json.Unmarshal(line, &e)
		event = e
	case EventTypeTimeout:
		var e TimeoutEvent
		err = json.Unmarshal(line, &e)
		event = e
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, envelope.EventType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s event: %w", envelope.EventType, err)
	}
	return event, nil
}

// ReadEvents decodes every line of r and calls fn for each event in order.
// Malformed lines and unknown events are logged and skipped; the returned
// count is the number of skipped lines.
func ReadEvents(r io.Reader, logger Logger, fn func(Event)) (int, error) {
	if logger == nil {
		logger = &noopLogger{}
	}

	scanner := bufio.NewScanner(r)
	// Stack traces in log messages can be long
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var skipped int
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		event, err := DecodeEvent(line)
		if err != nil {
			skipped++
			logDecodeError(logger, err)
			continue
		}
		fn(event)
	}
	if err := scanner.Err(); err != nil {
		return skipped, fmt.Errorf("failed to read events: %w", err)
	}
	return skipped, nil
}

func logDecodeError(logger Logger, err error) {
	if errors.Is(err, ErrUnknownEvent) {
		logger.Error("%v", err)
		return
	}
	logger.Debug("Skipping malformed event: %v", err)
}
