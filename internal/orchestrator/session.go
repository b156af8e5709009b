package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/zk/qjunit/internal/ipc"
	"github.com/zk/qjunit/internal/report"
)

// session drives one event stream. At most one aggregator is attached to
// its bus at a time; sessions never share state with each other.
type session struct {
	o       *Orchestrator
	path    string
	bus     *ipc.Bus
	current *report.Aggregator
	seen    int
	errs    []error
}

func newSession(o *Orchestrator, path string) *session {
	return &session{o: o, path: path, bus: ipc.NewBus()}
}

func (s *session) run(ctx context.Context) error {
	var err error
	if s.o.watch {
		err = s.tail(ctx)
	} else {
		err = s.replay(ctx)
	}
	return s.end(err)
}

// end reports a source left open when the stream stopped and collects errors
func (s *session) end(err error) error {
	if s.current != nil {
		s.o.logger.Warn("Event stream %s ended before %s finished", s.path, s.current.Source())
		s.timeout()
	}
	if s.seen == 0 && err == nil {
		s.o.logger.Warn("No events received from %s", s.path)
	}
	return errors.Join(append([]error{err}, s.errs...)...)
}

// replay reads a complete event file once
func (s *session) replay(ctx context.Context) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open event file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return s.replayFrom(ctx, f)
}

// replayFrom handles events from r until EOF or until ctx is cancelled.
// Events read after cancellation are dropped.
func (s *session) replayFrom(ctx context.Context, r io.Reader) error {
	skipped, err := ipc.ReadEvents(contextReader{ctx: ctx, r: r}, s.o.logger, func(event ipc.Event) {
		if ctx.Err() == nil {
			s.handle(event)
		}
	})
	if skipped > 0 {
		s.o.logger.Debug("Skipped %d unreadable line(s) in %s", skipped, s.path)
	}
	if ctx.Err() != nil {
		s.o.logger.Debug("Stopped reading %s: %v", s.path, ctx.Err())
		return nil
	}
	return err
}

// contextReader fails reads once ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// tail follows an event file that is still being written. A source that
// stays silent for the timeout is reported as timed out; the stream ends
// once it stays silent with no source open.
func (s *session) tail(ctx context.Context) error {
	mgr, err := ipc.NewManager(s.path, s.o.logger)
	if err != nil {
		return err
	}
	defer func() { _ = mgr.Cleanup() }()

	if err := mgr.WatchEvents(); err != nil {
		return err
	}

	timer := time.NewTimer(s.o.timeout)
	defer timer.Stop()

	for {
		select {
		case event, ok := <-mgr.Events:
			if !ok {
				return nil
			}
			s.handle(event)
			timer.Reset(s.o.timeout)

		case <-timer.C:
			if s.current == nil {
				s.o.logger.Debug("No events from %s for %s, stopping", s.path, s.o.timeout)
				return nil
			}
			s.o.logger.Info("No events from %s for %s, reporting timeout", s.current.Source(), s.o.timeout)
			s.timeout()
			timer.Reset(s.o.timeout)

		case <-ctx.Done():
			s.o.logger.Debug("Stopped tailing %s: %v", s.path, ctx.Err())
			return nil
		}
	}
}

// handle routes one event to the attached aggregator
func (s *session) handle(event ipc.Event) {
	s.seen++
	s.o.metrics.RecordEvent(string(event.Type()))

	if event.Type() == ipc.EventTypeSpawn {
		if s.current != nil {
			s.o.logger.Debug("Detaching existing reporter for %s", s.current.Source())
			s.timeout()
		}
		s.current = report.NewAggregator(s.o.logger)
		s.current.Attach(s.bus)
	} else if s.current == nil {
		s.o.logger.Warn("Dropping %s event from %s: no source is open", event.Type(), s.path)
		return
	}

	s.bus.Publish(event)
	if s.current.Done() {
		s.finish()
	}
}

// timeout fires the timeout event for the open source and reports it
func (s *session) timeout() {
	s.bus.Publish(ipc.NewTimeoutEvent())
	s.finish()
}

func (s *session) finish() {
	agg := s.current
	s.current = nil
	agg.Detach(s.bus)

	s.o.metrics.RecordWarnings(agg.Warnings())
	if err := s.o.report(agg.Result()); err != nil {
		s.errs = append(s.errs, err)
	}
}
