package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// IPCPathEnv names the variable runner adapters read to find the event file.
const IPCPathEnv = "QJUNIT_IPC_PATH"

// Manager tails a JSONL event file written by a runner adapter
type Manager struct {
	IPCPath   string
	watcher   *fsnotify.Watcher
	Events    chan Event
	stopChan  chan struct{}
	stopped   chan struct{} // Signals when watchLoop has stopped
	mu        sync.RWMutex
	closeOnce sync.Once
	logger    Logger
	file      *os.File
	reader    *bufio.Reader
	readerMu  sync.Mutex // Protects concurrent access to reader
	pending   []byte     // Partial line left over from the last read
	drained   bool       // Set by Cleanup after the final read
}

// Logger interface for debug logging
type Logger interface {
	Debug(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// NewManager creates a new IPC manager for reading events
func NewManager(ipcPath string, logger Logger) (*Manager, error) {
	if logger == nil {
		logger = &noopLogger{}
	}

	// The runner may not have created the file yet
	ipcDir := filepath.Dir(ipcPath)
	if err := os.MkdirAll(ipcDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create IPC directory: %w", err)
	}

	file, err := os.OpenFile(ipcPath, os.O_CREATE|os.O_RDONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open IPC file: %w", err)
	}

	return &Manager{
		IPCPath:  ipcPath,
		Events:   make(chan Event, 10000), // Large buffer for handling burst of events
		stopChan: make(chan struct{}),
		stopped:  make(chan struct{}),
		logger:   logger,
		file:     file,
		reader:   bufio.NewReader(file),
	}, nil
}

// WatchEvents starts watching the IPC file for new events
func (m *Manager) WatchEvents() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	m.watcher = watcher

	if err := watcher.Add(m.IPCPath); err != nil {
		_ = watcher.Close()
		m.watcher = nil
		return fmt.Errorf("failed to watch IPC file: %w", err)
	}

	// Start the single watch loop that handles both existing and new events
	go m.watchLoop()

	// Trigger initial read of any existing content
	go m.readEvents()

	return nil
}

// readEvents reads complete lines from the current position in the file
func (m *Manager) readEvents() {
	m.readerMu.Lock()
	defer m.readerMu.Unlock()

	if m.drained {
		return
	}
	m.readLocked()
}

// readLocked drains the reader; callers hold readerMu
func (m *Manager) readLocked() {
	for {
		chunk, err := m.reader.ReadBytes('\n')
		if len(chunk) > 0 {
			m.pending = append(m.pending, chunk...)
		}
		if err != nil {
			if err != io.EOF {
				m.logger.Error("Error reading events: %v", err)
			}
			// Keep a partial line until the writer finishes it
			break
		}

		line := m.pending
		m.pending = nil
		if len(line) > 1 {
			m.parseAndSendEvent(line)
		}
	}
}

// watchLoop watches for file changes and triggers reads
func (m *Manager) watchLoop() {
	defer close(m.stopped)

	for {
		select {
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Write == fsnotify.Write {
				m.logger.Debug("IPC file modified: %s", event.Name)
				m.readEvents()
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Error("Watcher error: %v", err)

		case <-m.stopChan:
			return
		}
	}
}

// parseAndSendEvent parses a JSON line and sends it as an event
func (m *Manager) parseAndSendEvent(line []byte) {
	event, err := DecodeEvent(line)
	if err != nil {
		logDecodeError(m.logger, err)
		return
	}

	// Blocking send for natural backpressure
	m.Events <- event
	m.logger.Debug("Processing IPC event: %s", event.Type())
}

// Cleanup stops watching and closes resources. Events written before
// Cleanup is called are still delivered.
func (m *Manager) Cleanup() error {
	select {
	case <-m.stopChan:
		// Already closed
	default:
		close(m.stopChan)
	}

	if m.watcher != nil {
		<-m.stopped
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Late writes may not have produced a notification yet
	m.readerMu.Lock()
	if !m.drained && m.file != nil {
		m.readLocked()
	}
	m.drained = true
	m.readerMu.Unlock()

	if m.watcher != nil {
		_ = m.watcher.Close()
		m.watcher = nil
	}

	if m.file != nil {
		_ = m.file.Close()
		m.file = nil
	}

	m.closeOnce.Do(func() {
		if m.Events != nil {
			close(m.Events)
		}
	})

	return nil
}

// SendEvent appends an event to the file named by QJUNIT_IPC_PATH (for adapters)
func SendEvent(event Event) error {
	ipcPath := os.Getenv(IPCPathEnv)
	if ipcPath == "" {
		return fmt.Errorf("%s not set", IPCPathEnv)
	}
	return AppendEvent(ipcPath, event)
}

// AppendEvent writes event as one JSON line at the end of the file at ipcPath
func AppendEvent(ipcPath string, event Event) error {
	ipcDir := filepath.Dir(ipcPath)
	if err := os.MkdirAll(ipcDir, 0755); err != nil {
		return fmt.Errorf("failed to create IPC directory: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	data = append(data, '\n')

	file, err := os.OpenFile(ipcPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open IPC file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Single write keeps concurrent appenders from interleaving lines
	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// noopLogger is a default logger that does nothing
type noopLogger struct{}

func (n *noopLogger) Debug(format string, args ...interface{}) {}
func (n *noopLogger) Error(format string, args ...interface{}) {}
