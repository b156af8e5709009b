package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zk/qjunit/internal/metrics"
	"github.com/zk/qjunit/internal/naming"
	"github.com/zk/qjunit/internal/report"
)

// Orchestrator turns runner event streams into JUnit report files
type Orchestrator struct {
	sources     []string
	writer      *report.Writer
	timeout     time.Duration
	watch       bool
	metricsFile string
	metrics     *metrics.Metrics
	logger      Logger

	// Console output and results, shared by all streams
	mu       sync.Mutex
	out      io.Writer
	written  []string
	exitCode int
}

// Logger interface for logging
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Config holds orchestrator configuration
type Config struct {
	Sources     []string // Event files, each processed as its own stream
	Dest        string
	Policy      naming.Policy
	Timeout     time.Duration // Inactivity deadline for an open source
	Watch       bool          // Tail the event files instead of reading them once
	MetricsFile string
	Metrics     *metrics.Metrics // Created when nil
	Logger      Logger
	Output      io.Writer // Summary lines; os.Stdout when nil
}

// New creates a new orchestrator
func New(config Config) (*Orchestrator, error) {
	if config.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if len(config.Sources) == 0 {
		return nil, fmt.Errorf("at least one event file is required")
	}
	if config.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}

	m := config.Metrics
	if m == nil {
		m = metrics.New()
	}
	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	return &Orchestrator{
		sources:     config.Sources,
		writer:      report.NewWriter(config.Dest, config.Policy, config.Logger),
		timeout:     config.Timeout,
		watch:       config.Watch,
		metricsFile: config.MetricsFile,
		metrics:     m,
		logger:      config.Logger,
		out:         out,
	}, nil
}

// Run processes every event stream in parallel and returns once each stream
// has ended and every source seen has been reported. Only failures to write
// reports or metrics are returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	start := time.Now()
	o.logger.Info("Processing %d event stream(s), watch=%t", len(o.sources), o.watch)

	// Only the caller's ctx stops a session; a failing stream leaves the others running
	var g errgroup.Group
	for _, path := range o.sources {
		s := newSession(o, path)
		g.Go(func() error {
			return s.run(ctx)
		})
	}
	err := g.Wait()

	if o.metricsFile != "" {
		if merr := o.metrics.WriteToTextfile(o.metricsFile); merr != nil {
			o.logger.Error("%v", merr)
			err = errors.Join(err, merr)
		} else {
			o.logger.Debug("Wrote metrics to %s", o.metricsFile)
		}
	}

	if err != nil {
		o.mu.Lock()
		o.exitCode = 1
		o.mu.Unlock()
	}
	o.logger.Info("Wrote %d report(s) in %s", len(o.Written()), time.Since(start))
	return err
}

// report writes a finished result and prints its summary line
func (o *Orchestrator) report(result *report.SourceResult) error {
	path, err := o.writer.Write(result)
	if err != nil {
		o.metrics.RecordWriteError()
		o.logger.Error("Failed to write report for %q: %v", result.Source, err)
		return err
	}
	o.metrics.RecordReport(result)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.written = append(o.written, path)
	o.displayResult(path, result)
	return nil
}

// Written returns the paths of every report written so far
func (o *Orchestrator) Written() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.written...)
}

// GetExitCode returns the process exit code for the run
func (o *Orchestrator) GetExitCode() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.exitCode
}
