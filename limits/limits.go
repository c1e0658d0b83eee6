// Package limits provides the operator-facing size and range limits shared by
// the chunker, the transcoder and the session manager.
package limits

import (
	"errors"
	"fmt"
	"math"
)

const (
	// KiB is one kibibyte.
	KiB = 1024

	// MiB is one mebibyte.
	MiB = 1024 * KiB

	// MinChunkSize is the smallest chunk size accepted by default (16 KiB).
	MinChunkSize = 16 * KiB

	// MaxChunkSize is the largest chunk size accepted by default (10 MiB).
	MaxChunkSize = 10 * MiB

	// DefaultChunkSizeKB is the chunk size used when the caller gives none.
	DefaultChunkSizeKB = 1024

	// MaxEncodeSize caps the source size for base64 encoding (256 MiB).
	// The whole file and its encoding are held in memory at once.
	MaxEncodeSize = 256 * MiB

	// MinPort is the lowest bindable TCP port.
	MinPort = 1

	// MaxPort is the highest bindable TCP port.
	MaxPort = 65535

	// DefaultPort matches the port the transfer tool has always offered first.
	DefaultPort = 8000
)

var (
	// ErrOutOfRange indicates a value outside its permitted range
	ErrOutOfRange = errors.New("value out of range")

	// ErrTooLarge indicates a size above its cap
	ErrTooLarge = errors.New("size exceeds limit")
)

// ValidateRange checks that value lies in [min, max].
// Returns an error with context including the value and the bounds.
func ValidateRange(name string, value, min, max int64) error {
	if value < min || value > max {
		return fmt.Errorf("%w: %s %d not in [%d, %d]", ErrOutOfRange, name, value, min, max)
	}
	return nil
}

// ValidateChunkSize validates a chunk size in bytes against [min, max].
// Zero bounds fall back to MinChunkSize and MaxChunkSize.
func ValidateChunkSize(size, min, max int64) error {
	if min <= 0 {
		min = MinChunkSize
	}
	if max <= 0 {
		max = MaxChunkSize
	}
	return ValidateRange("chunk size", size, min, max)
}

// KiBToBytes converts a size in kibibytes to bytes, rejecting negative
// values and values whose byte count would overflow int64.
func KiBToBytes(kb int64) (int64, error) {
	if err := ValidateRange("size in KiB", kb, 0, math.MaxInt64/KiB); err != nil {
		return 0, err
	}
	return kb * KiB, nil
}

// ValidatePort validates a TCP port number.
func ValidatePort(port int) error {
	return ValidateRange("port", int64(port), MinPort, MaxPort)
}

// ValidateSize validates size against the cap max.
// A non-positive max disables the check.
func ValidateSize(size, max int64) error {
	if max <= 0 {
		return nil
	}
	if size > max {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrTooLarge, size, max)
	}
	return nil
}
