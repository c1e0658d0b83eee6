package session

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"

	"github.com/opd-ai/filedrop/limits"
)

// Status is the lifecycle state of a Manager's session.
type Status uint8

const (
	// StatusIdle indicates no session is bound.
	StatusIdle Status = iota
	// StatusRunning indicates a session is serving its file.
	StatusRunning
	// StatusStopping indicates Stop is tearing the session down.
	StatusStopping
	// StatusError indicates the server failed and awaits acknowledgement.
	StatusError
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// DefaultShutdownWait bounds how long Stop waits for the server goroutine.
const DefaultShutdownWait = time.Second

// TimeProvider abstracts time operations for deterministic testing.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// DefaultTimeProvider uses the standard library time functions.
type DefaultTimeProvider struct{}

// Now returns the current time.
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// Since returns the duration since t.
func (DefaultTimeProvider) Since(t time.Time) time.Duration { return time.Since(t) }

// Options tunes a Manager.
type Options struct {
	// MaxConnections caps simultaneous client connections. Zero is unlimited.
	MaxConnections int
	// ShutdownWait bounds how long Stop waits for the server to exit.
	ShutdownWait time.Duration
	// TimeProvider supplies session timestamps. Nil selects DefaultTimeProvider.
	TimeProvider TimeProvider
}

// Info describes a running session.
type Info struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	Port      int       `json:"port"`
	FilePath  string    `json:"file_path"`
	Filename  string    `json:"filename"`
	Directory string    `json:"directory"`
	StartedAt time.Time `json:"started_at"`
}

// HostPort returns the bound address in host:port form.
func (i *Info) HostPort() string {
	return net.JoinHostPort(i.Address, strconv.Itoa(i.Port))
}

// StopResult reports the outcome of Stop. Stop never fails; problems that do
// not prevent the session from returning to idle are reported as Warning.
type StopResult struct {
	WasRunning bool   `json:"was_running"`
	Info       *Info  `json:"info,omitempty"`
	Warning    string `json:"warning,omitempty"`
}

// Manager owns at most one file-serving session and its listening socket.
//
// Start, Stop and Acknowledge are serialized; status reads never block on a
// transition in progress.
type Manager struct {
	transition sync.Mutex

	mu     sync.RWMutex
	status Status
	info   *Info
	server *http.Server
	done   chan struct{}
	fault  error

	active atomic.Int64
	served atomic.Int64

	opts   Options
	listen func(network, address string) (net.Listener, error)
}

// NewManager creates an idle session manager.
func NewManager(opts Options) *Manager {
	if opts.ShutdownWait <= 0 {
		opts.ShutdownWait = DefaultShutdownWait
	}
	if opts.TimeProvider == nil {
		opts.TimeProvider = DefaultTimeProvider{}
	}

	logrus.WithFields(logrus.Fields{
		"function":        "NewManager",
		"max_connections": opts.MaxConnections,
		"shutdown_wait":   opts.ShutdownWait,
	}).Debug("Creating session manager")

	return &Manager{
		status: StatusIdle,
		opts:   opts,
		listen: net.Listen,
	}
}

// Start validates the request, binds address:port and begins serving the
// file at /<filename>. On any error the manager stays idle and holds no
// socket. A running session is never replaced: Start returns
// ErrAlreadyRunning and leaves it untouched.
func (m *Manager) Start(filePath, address string, port int) (*Info, error) {
	m.transition.Lock()
	defer m.transition.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":  "Start",
		"file_path": filePath,
		"address":   address,
		"port":      port,
	}).Info("Starting session")

	m.mu.RLock()
	status, current := m.status, m.info
	m.mu.RUnlock()

	switch status {
	case StatusRunning:
		logrus.WithFields(logrus.Fields{
			"function":   "Start",
			"session_id": current.ID,
			"bound":      current.HostPort(),
		}).Warn("Session already running")
		return nil, newError("start", current.HostPort(), ErrAlreadyRunning, nil)
	case StatusError:
		return nil, newError("start", "", ErrSessionFaulted, m.Fault())
	}

	hostPort, err := validateBind(address, port)
	if err != nil {
		return nil, err
	}

	absPath, err := validateFile(filePath)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "Start",
			"file_path": filePath,
			"error":     err.Error(),
		}).Error("File validation failed")
		return nil, err
	}

	ln, err := m.listen("tcp", hostPort)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Start",
			"address":  hostPort,
			"error":    err.Error(),
		}).Error("Failed to bind listener")
		return nil, classifyBindError(hostPort, err)
	}
	if m.opts.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, m.opts.MaxConnections)
	}

	info := &Info{
		ID:        uuid.NewString(),
		Address:   address,
		Port:      port,
		FilePath:  absPath,
		Filename:  filepath.Base(absPath),
		Directory: filepath.Dir(absPath),
		StartedAt: m.opts.TimeProvider.Now(),
	}
	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		info.Port = tcp.Port
	}

	server := &http.Server{
		Handler: &fileHandler{
			sessionID: info.ID,
			path:      info.FilePath,
			filename:  info.Filename,
			active:    &m.active,
			served:    &m.served,
		},
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          newServerErrorLog(info.ID),
	}
	done := make(chan struct{})

	m.mu.Lock()
	m.status = StatusRunning
	m.info = info
	m.server = server
	m.done = done
	m.fault = nil
	m.mu.Unlock()

	go m.serve(server, ln, done)

	logrus.WithFields(logrus.Fields{
		"function":   "Start",
		"session_id": info.ID,
		"bound":      info.HostPort(),
		"filename":   info.Filename,
		"directory":  info.Directory,
	}).Info("Session started")

	snapshot := *info
	return &snapshot, nil
}

// serve runs the HTTP server until it is closed. An unexpected exit moves the
// session into StatusError.
func (m *Manager) serve(server *http.Server, ln net.Listener, done chan struct{}) {
	defer close(done)

	err := server.Serve(ln)
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return
	}

	m.mu.Lock()
	if m.done != done || m.status != StatusRunning {
		m.mu.Unlock()
		return
	}
	m.status = StatusError
	m.fault = err
	id := m.info.ID
	m.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":   "serve",
		"session_id": id,
		"error":      err.Error(),
	}).Error("Session server failed")

	// Abort transfers still attached to the dead listener.
	server.Close()
}

// Stop tears the session down, aborting in-flight transfers. Stopping an
// idle manager is a successful no-op; stopping a failed session acknowledges
// the failure and reports it as a warning.
func (m *Manager) Stop() StopResult {
	m.transition.Lock()
	defer m.transition.Unlock()

	m.mu.Lock()
	switch m.status {
	case StatusIdle:
		m.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "Stop",
		}).Debug("Stop requested while idle")
		return StopResult{}
	case StatusError:
		info, fault := m.info, m.fault
		m.resetLocked()
		m.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function":   "Stop",
			"session_id": info.ID,
		}).Info("Failed session acknowledged")
		return StopResult{Info: info, Warning: fmt.Sprintf("session had failed: %v", fault)}
	}

	m.status = StatusStopping
	info, server, done := m.info, m.server, m.done
	m.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":         "Stop",
		"session_id":       info.ID,
		"active_transfers": m.active.Load(),
	}).Info("Stopping session")

	// Close blocks until Serve leaves Accept, so it must not hold up the
	// bounded wait.
	closeResult := make(chan error, 1)
	go func() { closeResult <- server.Close() }()
	closed := (<-chan error)(closeResult)

	var warnings []string
	timer := time.NewTimer(m.opts.ShutdownWait)
	defer timer.Stop()
	for closed != nil || done != nil {
		select {
		case err := <-closed:
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("closing listener: %v", err))
			}
			closed = nil
		case <-done:
			done = nil
		case <-timer.C:
			warnings = append(warnings, fmt.Sprintf("server did not exit within %v", m.opts.ShutdownWait))
			closed, done = nil, nil
		}
	}

	m.mu.Lock()
	m.resetLocked()
	m.mu.Unlock()

	result := StopResult{WasRunning: true, Info: info}
	if len(warnings) > 0 {
		result.Warning = strings.Join(warnings, "; ") +
			fmt.Sprintf("; port %d may remain reserved briefly", info.Port)
		logrus.WithFields(logrus.Fields{
			"function":   "Stop",
			"session_id": info.ID,
			"warning":    result.Warning,
		}).Warn("Session stopped with warnings")
	} else {
		logrus.WithFields(logrus.Fields{
			"function":   "Stop",
			"session_id": info.ID,
		}).Info("Session stopped successfully")
	}
	return result
}

// Acknowledge clears a failed session, returning the failure it cleared.
// It is a no-op in every other state.
func (m *Manager) Acknowledge() error {
	m.transition.Lock()
	defer m.transition.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusError {
		return nil
	}
	fault := m.fault
	m.resetLocked()
	return fault
}

// resetLocked returns the manager to idle. m.mu must be held.
func (m *Manager) resetLocked() {
	m.status = StatusIdle
	m.info = nil
	m.server = nil
	m.done = nil
	m.fault = nil
}

// Status returns the current lifecycle state.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Info returns a copy of the current session description, if any.
func (m *Manager) Info() (*Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.info == nil {
		return nil, false
	}
	snapshot := *m.info
	return &snapshot, true
}

// Uptime returns how long the current session has been up.
func (m *Manager) Uptime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.info == nil || m.status != StatusRunning {
		return 0
	}
	return m.opts.TimeProvider.Since(m.info.StartedAt)
}

// Fault returns the error that moved the session into StatusError.
func (m *Manager) Fault() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fault
}

// ActiveDownloads returns the number of transfers currently streaming.
func (m *Manager) ActiveDownloads() int64 {
	return m.active.Load()
}

// CompletedDownloads returns the number of transfers that finished.
func (m *Manager) CompletedDownloads() int64 {
	return m.served.Load()
}

// validateBind checks the port and address and returns the host:port to bind.
func validateBind(address string, port int) (string, error) {
	if err := limits.ValidatePort(port); err != nil {
		return "", newError("start", "", ErrInvalidPort, err)
	}
	if address != "localhost" && net.ParseIP(address) == nil {
		return "", newError("start", address, ErrInvalidAddress, nil)
	}
	return net.JoinHostPort(address, strconv.Itoa(port)), nil
}

// validateFile checks that path names a readable regular file and returns its
// absolute form.
func validateFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", newError("start", "", ErrFileNotFound, err)
	}

	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "", newError("start", "", ErrFileNotFound, err)
	case errors.Is(err, os.ErrPermission):
		return "", newError("start", "", ErrPermissionDenied, err)
	case err != nil:
		return "", newError("start", "", ErrFileNotFound, err)
	}
	if !info.Mode().IsRegular() {
		return "", newError("start", "", ErrNotRegularFile, fmt.Errorf("%s", abs))
	}

	f, err := os.Open(abs)
	if err != nil {
		return "", newError("start", "", ErrPermissionDenied, err)
	}
	f.Close()

	return abs, nil
}

func classifyBindError(hostPort string, err error) error {
	switch {
	case isAddrInUse(err):
		return newError("bind", hostPort, ErrPortInUse, err)
	case isBindDenied(err):
		return newError("bind", hostPort, ErrPermissionDenied, err)
	case isAddrNotAvailable(err):
		return newError("bind", hostPort, ErrInvalidAddress, err)
	default:
		var addrErr *net.AddrError
		if errors.As(err, &addrErr) {
			return newError("bind", hostPort, ErrInvalidAddress, err)
		}
		return &Error{Op: "bind", Addr: hostPort, Err: err}
	}
}
