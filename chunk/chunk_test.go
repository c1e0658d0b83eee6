package chunk

import (
	"bytes"
	"crypto/rand"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/opd-ai/filedrop/commands"
	"github.com/opd-ai/filedrop/limits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// relaxed lets tests use chunk sizes far below the operator-facing minimum.
var relaxed = Options{MinChunkSize: 1, MaxChunkSize: limits.MaxChunkSize}

func writeRandomFile(t *testing.T, dir, name string, size int) (string, []byte) {
	t.Helper()
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path, data
}

func concat(t *testing.T, set *Set) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, c := range set.Chunks {
		data, err := os.ReadFile(c.Path)
		require.NoError(t, err)
		buf.Write(data)
	}
	return buf.Bytes()
}

// TestSplitRoundTrip verifies concatenation reproduces the source for a range of sizes
func TestSplitRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		fileSize  int
		chunkSize int64
	}{
		{"single byte chunks", 7, 1},
		{"exact multiple", 4096, 1024},
		{"short last chunk", 5000, 1024},
		{"chunk equals file", 3000, 3000},
		{"one byte short of two chunks", 2047, 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, data := writeRandomFile(t, t.TempDir(), "payload.bin", tt.fileSize)

			set, err := Split(path, tt.chunkSize, relaxed)
			require.NoError(t, err)

			assert.Equal(t, data, concat(t, set))
			assert.Equal(t, int64(tt.fileSize), set.TotalSize)
			assert.Equal(t, "payload.bin", set.OriginalFilename)

			for i, c := range set.Chunks {
				assert.Equal(t, i+1, c.Index)
				if i < len(set.Chunks)-1 {
					assert.Equal(t, tt.chunkSize, c.Size)
				} else {
					assert.LessOrEqual(t, c.Size, tt.chunkSize)
					assert.Greater(t, c.Size, int64(0))
				}
			}
		})
	}
}

// TestSplitTenMiBIntoFourMiBChunks checks the documented 10 MiB / 4096 KiB case
func TestSplitTenMiBIntoFourMiBChunks(t *testing.T) {
	path, _ := writeRandomFile(t, t.TempDir(), "big.iso", 10*limits.MiB)

	set, err := Split(path, 4096*limits.KiB, Options{})
	require.NoError(t, err)

	require.Len(t, set.Chunks, 3)
	assert.Equal(t, int64(4096*1024), set.Chunks[0].Size)
	assert.Equal(t, int64(4096*1024), set.Chunks[1].Size)
	assert.Equal(t, int64(10*1024*1024-2*4096*1024), set.Chunks[2].Size)
	assert.Equal(t, []string{"big.iso.001", "big.iso.002", "big.iso.003"}, set.Names())
	assert.Equal(t, DefaultDir(path), set.Directory)
}

func TestSplitEmptyFile(t *testing.T) {
	path, _ := writeRandomFile(t, t.TempDir(), "empty.txt", 0)

	set, err := Split(path, limits.MinChunkSize, Options{})
	require.NoError(t, err)
	assert.Empty(t, set.Chunks)
	assert.Equal(t, int64(0), set.TotalSize)
	assert.Equal(t, ": > 'empty.txt'", set.ReassemblyCommand(commands.ShellPOSIX))
}

func TestSplitRejectsChunkSizeOutsideDefaults(t *testing.T) {
	path, _ := writeRandomFile(t, t.TempDir(), "a.bin", 100)

	for _, size := range []int64{0, limits.MinChunkSize - 1, limits.MaxChunkSize + 1} {
		set, err := Split(path, size, Options{})
		assert.Nil(t, set)
		assert.ErrorIs(t, err, ErrInvalidChunkSize, "size %d", size)
		assert.ErrorIs(t, err, limits.ErrOutOfRange)
	}
}

func TestSplitSourceErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Split(filepath.Join(dir, "missing.bin"), limits.MinChunkSize, Options{})
	assert.ErrorIs(t, err, ErrSourceUnreadable)

	_, err = Split(dir, limits.MinChunkSize, Options{})
	assert.ErrorIs(t, err, ErrSourceUnreadable)

	var chunkErr *Error
	require.ErrorAs(t, err, &chunkErr)
	assert.Equal(t, dir, chunkErr.Path)
}

func TestSplitWriteFailureReturnsNoSet(t *testing.T) {
	dir := t.TempDir()
	path, _ := writeRandomFile(t, dir, "a.bin", 64)

	// A regular file where the output directory should be.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	set, err := Split(path, 16, Options{OutputDir: blocker, MinChunkSize: 1})
	assert.Nil(t, set)
	assert.ErrorIs(t, err, ErrWriteFailed)
}

func TestSplitRejectsWhenSpaceIsShort(t *testing.T) {
	path, _ := writeRandomFile(t, t.TempDir(), "a.bin", 4096)

	var checked string
	restore := availableSpace
	availableSpace = func(dir string) (uint64, bool) {
		checked = dir
		return 1000, true
	}
	t.Cleanup(func() { availableSpace = restore })

	set, err := Split(path, 1024, relaxed)
	assert.Nil(t, set)
	assert.ErrorIs(t, err, ErrInsufficientDiskSpace)
	assert.Equal(t, DefaultDir(path), checked)
	assert.NoFileExists(t, filepath.Join(DefaultDir(path), "a.bin.001"))

	// Unknown free space skips the check.
	availableSpace = func(string) (uint64, bool) { return 0, false }
	set, err = Split(path, 1024, relaxed)
	require.NoError(t, err)
	assert.Len(t, set.Chunks, 4)
}

func TestSplitClearsStaleChunksInDefaultDir(t *testing.T) {
	dir := t.TempDir()
	path, data := writeRandomFile(t, dir, "log.txt", 30)

	_, err := Split(path, 5, relaxed)
	require.NoError(t, err)
	outDir := DefaultDir(path)
	assert.FileExists(t, filepath.Join(outDir, "log.txt.006"))

	unrelated := filepath.Join(outDir, "log.txt.notes")
	require.NoError(t, os.WriteFile(unrelated, []byte("keep"), 0o644))

	set, err := Split(path, 10, relaxed)
	require.NoError(t, err)
	require.Len(t, set.Chunks, 3)
	assert.NoFileExists(t, filepath.Join(outDir, "log.txt.004"))
	assert.NoFileExists(t, filepath.Join(outDir, "log.txt.006"))
	assert.FileExists(t, unrelated)
	assert.Equal(t, data, concat(t, set))
}

func TestSplitConfiguredOutputDir(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "parts", "nested")
	path, _ := writeRandomFile(t, dir, "x.dat", 40)

	set, err := Split(path, 16, Options{OutputDir: out, MinChunkSize: 1})
	require.NoError(t, err)
	assert.Equal(t, out, set.Directory)
	for _, c := range set.Chunks {
		assert.Equal(t, out, filepath.Dir(c.Path))
	}
}

func TestReassemblyCommand(t *testing.T) {
	set := &Set{
		OriginalFilename: "report.pdf",
		Chunks: []Chunk{
			{Index: 1, Name: "report.pdf.001"},
			{Index: 2, Name: "report.pdf.002"},
		},
	}

	assert.Equal(t, "cat 'report.pdf.001' 'report.pdf.002' > 'report.pdf'",
		set.ReassemblyCommand(commands.ShellPOSIX))
	assert.Equal(t, `copy /b "report.pdf.001" + "report.pdf.002" "report.pdf"`,
		set.ReassemblyCommand(commands.ShellWindowsCmd))
	assert.Equal(t, `cmd /c copy /b 'report.pdf.001' + 'report.pdf.002' 'report.pdf'`,
		set.ReassemblyCommand(commands.ShellPowerShell))

	percent := &Set{
		OriginalFilename: "100%PATH%.txt",
		Chunks:           []Chunk{{Index: 1, Name: "100%PATH%.txt.001"}},
	}
	assert.Equal(t, `copy /b "100"^%"PATH"^%".txt.001" "100"^%"PATH"^%".txt"`,
		percent.ReassemblyCommand(commands.ShellWindowsCmd))
}

// TestReassemblyCommandRunsInShell executes the POSIX command in the chunk directory.
func TestReassemblyCommandRunsInShell(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	path, data := writeRandomFile(t, t.TempDir(), "it's data.bin", 100)

	set, err := Split(path, 33, relaxed)
	require.NoError(t, err)

	cmd := exec.Command(sh, "-c", set.ReassemblyCommand(commands.ShellPOSIX))
	cmd.Dir = set.Directory
	require.NoError(t, cmd.Run())

	rebuilt, err := os.ReadFile(filepath.Join(set.Directory, "it's data.bin"))
	require.NoError(t, err)
	assert.Equal(t, data, rebuilt)
}

func TestJoin(t *testing.T) {
	dir := t.TempDir()
	path, data := writeRandomFile(t, dir, "j.bin", 1000)

	set, err := Split(path, 300, relaxed)
	require.NoError(t, err)

	dst := filepath.Join(dir, "joined.bin")
	require.NoError(t, Join(set, dst))
	joined, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, joined)

	require.NoError(t, os.Truncate(set.Chunks[1].Path, 10))
	assert.ErrorIs(t, Join(set, dst), ErrSourceUnreadable)
}

func TestIsChunkName(t *testing.T) {
	assert.True(t, isChunkName("a.txt.001", "a.txt"))
	assert.True(t, isChunkName("a.txt.1000", "a.txt"))
	assert.False(t, isChunkName("a.txt.01", "a.txt"))
	assert.False(t, isChunkName("a.txt.00a", "a.txt"))
	assert.False(t, isChunkName("b.txt.001", "a.txt"))
}

func TestName(t *testing.T) {
	assert.Equal(t, "f.001", Name("f", 1))
	assert.Equal(t, "f.042", Name("f", 42))
	assert.Equal(t, "f.1001", Name("f", 1001))
}
