package session

import (
	"errors"
	"fmt"
)

// Common session errors
var (
	// ErrPortInUse indicates another socket already holds the requested port
	ErrPortInUse = errors.New("port already in use")

	// ErrPermissionDenied indicates the OS refused the bind or the file read
	ErrPermissionDenied = errors.New("permission denied")

	// ErrFileNotFound indicates the file to serve does not exist
	ErrFileNotFound = errors.New("file not found")

	// ErrNotRegularFile indicates the path to serve is a directory or device
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrAlreadyRunning indicates a session is already serving
	ErrAlreadyRunning = errors.New("session already running")

	// ErrInvalidAddress indicates a bind address that is not an IP literal or localhost,
	// or that is not assigned to this host
	ErrInvalidAddress = errors.New("invalid bind address")

	// ErrInvalidPort indicates a port outside 1-65535
	ErrInvalidPort = errors.New("invalid port")

	// ErrSessionFaulted indicates the previous session failed and has not been acknowledged
	ErrSessionFaulted = errors.New("session failed and must be acknowledged")
)

// Error represents a session error with additional context
type Error struct {
	Op   string // operation that caused the error
	Addr string // bind address if relevant
	Err  error  // underlying error
}

func (e *Error) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("session %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("session %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError creates a new Error, joining the sentinel kind with its cause
func newError(op, addr string, kind, cause error) *Error {
	if cause == nil {
		return &Error{Op: op, Addr: addr, Err: kind}
	}
	return &Error{Op: op, Addr: addr, Err: fmt.Errorf("%w: %w", kind, cause)}
}
