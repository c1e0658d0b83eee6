//go:build linux || darwin || freebsd

package chunk

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestWriteErrorClassification(t *testing.T) {
	tests := []struct {
		name  string
		cause error
		want  error
	}{
		{"disk full", unix.ENOSPC, ErrInsufficientDiskSpace},
		{"quota exceeded", unix.EDQUOT, ErrInsufficientDiskSpace},
		{"io error", unix.EIO, ErrWriteFailed},
		{"read only", unix.EROFS, ErrWriteFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cause := &os.PathError{Op: "write", Path: "/out/a.001", Err: tt.cause}
			err := writeError("/out/a.001", cause)

			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.cause)
			other := ErrWriteFailed
			if tt.want == ErrWriteFailed {
				other = ErrInsufficientDiskSpace
			}
			assert.False(t, errors.Is(err, other))

			var chunkErr *Error
			require.ErrorAs(t, err, &chunkErr)
			assert.Equal(t, "write", chunkErr.Op)
			assert.Equal(t, "/out/a.001", chunkErr.Path)
		})
	}
}

func TestFreeSpaceReportsTempDir(t *testing.T) {
	avail, ok := freeSpace(t.TempDir())
	assert.True(t, ok)
	assert.Greater(t, avail, uint64(0))
}
