package chunk

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidChunkSize indicates a chunk size outside the accepted range
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrSourceUnreadable indicates the source file cannot be opened or read
	ErrSourceUnreadable = errors.New("source file unreadable")

	// ErrInsufficientDiskSpace indicates the output volume cannot hold the chunks
	ErrInsufficientDiskSpace = errors.New("insufficient disk space")

	// ErrWriteFailed indicates a chunk file could not be written
	ErrWriteFailed = errors.New("chunk write failed")
)

// Error records a failed chunking operation and the file it concerned.
type Error struct {
	Op   string // operation that failed
	Path string // file or directory involved
	Err  error  // underlying error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("chunk %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("chunk %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, path string, kind, cause error) *Error {
	if cause == nil {
		return &Error{Op: op, Path: path, Err: kind}
	}
	return &Error{Op: op, Path: path, Err: fmt.Errorf("%w: %w", kind, cause)}
}
