// Package chunk splits a file into fixed-size, sequentially numbered parts
// and describes how to put them back together.
//
// Example:
//
//	set, err := chunk.Split("/tmp/report.pdf", 4*limits.MiB, chunk.Options{})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(set.ReassemblyCommand(commands.ShellPOSIX))
package chunk

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/opd-ai/filedrop/commands"
	"github.com/opd-ai/filedrop/limits"
	"github.com/sirupsen/logrus"
)

// DirSuffix is appended to the source name to form the default output directory.
const DirSuffix = "_chunks"

// availableSpace reports free bytes for the output directory. Tests replace it.
var availableSpace = freeSpace

// Options tunes a Split call. The zero value uses the default limits and
// writes into <source dir>/<name>_chunks.
type Options struct {
	// OutputDir receives the chunk files. Empty selects the default directory.
	OutputDir string
	// MinChunkSize and MaxChunkSize bound the accepted chunk size.
	// Zero selects limits.MinChunkSize and limits.MaxChunkSize.
	MinChunkSize int64
	MaxChunkSize int64
}

// Chunk describes one written part.
type Chunk struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Path  string `json:"path"`
	Size  int64  `json:"size"`
}

// Set describes every chunk written by one Split call, in ascending order.
type Set struct {
	OriginalFilename string  `json:"original_file"`
	Chunks           []Chunk `json:"chunks"`
	ChunkSize        int64   `json:"chunk_size"`
	TotalSize        int64   `json:"total_size"`
	Directory        string  `json:"chunk_dir"`
}

// Name returns the chunk file name for the given 1-based ordinal.
func Name(original string, index int) string {
	return fmt.Sprintf("%s.%03d", original, index)
}

// DefaultDir returns the directory Split writes to when no OutputDir is set.
func DefaultDir(sourcePath string) string {
	return filepath.Join(filepath.Dir(sourcePath), filepath.Base(sourcePath)+DirSuffix)
}

// Split reads filePath sequentially in chunkSize windows and writes each
// window to its own file. Either every chunk is written and a Set returned,
// or an error is returned; chunk files already written before a failure are
// left on disk.
func Split(filePath string, chunkSize int64, opts Options) (*Set, error) {
	logrus.WithFields(logrus.Fields{
		"function":   "Split",
		"file_path":  filePath,
		"chunk_size": chunkSize,
		"output_dir": opts.OutputDir,
	}).Info("Splitting file into chunks")

	if err := limits.ValidateChunkSize(chunkSize, opts.MinChunkSize, opts.MaxChunkSize); err != nil {
		return nil, newError("split", filePath, ErrInvalidChunkSize, err)
	}

	src, info, err := openSource(filePath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	original := filepath.Base(filePath)
	outDir, err := prepareOutputDir(filePath, original, opts.OutputDir)
	if err != nil {
		return nil, err
	}

	if avail, ok := availableSpace(outDir); ok && avail < uint64(info.Size()) {
		logrus.WithFields(logrus.Fields{
			"function":   "Split",
			"output_dir": outDir,
			"available":  avail,
			"required":   info.Size(),
		}).Error("Not enough free space for chunks")
		return nil, newError("split", outDir, ErrInsufficientDiskSpace,
			fmt.Errorf("need %d bytes, %d available", info.Size(), avail))
	}

	set := &Set{
		OriginalFilename: original,
		Chunks:           make([]Chunk, 0, expectedChunks(info.Size(), chunkSize)),
		ChunkSize:        chunkSize,
		Directory:        outDir,
	}

	buf := make([]byte, chunkSize)
	for index := 1; ; index++ {
		n, readErr := io.ReadFull(src, buf)
		if n > 0 {
			c, err := writeChunk(outDir, original, index, buf[:n])
			if err != nil {
				return nil, err
			}
			set.Chunks = append(set.Chunks, c)
			set.TotalSize += c.Size
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			logrus.WithFields(logrus.Fields{
				"function":  "Split",
				"file_path": filePath,
				"index":     index,
				"error":     readErr.Error(),
			}).Error("Failed to read source window")
			return nil, newError("read", filePath, ErrSourceUnreadable, readErr)
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Split",
		"file_path":  filePath,
		"chunks":     len(set.Chunks),
		"total_size": set.TotalSize,
		"output_dir": outDir,
	}).Info("File split successfully")

	return set, nil
}

func openSource(filePath string) (*os.File, os.FileInfo, error) {
	src, err := os.Open(filePath)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "openSource",
			"file_path": filePath,
			"error":     err.Error(),
		}).Error("Failed to open source file")
		return nil, nil, newError("open", filePath, ErrSourceUnreadable, err)
	}
	info, err := src.Stat()
	if err != nil {
		src.Close()
		return nil, nil, newError("stat", filePath, ErrSourceUnreadable, err)
	}
	if !info.Mode().IsRegular() {
		src.Close()
		return nil, nil, newError("open", filePath, ErrSourceUnreadable, errors.New("not a regular file"))
	}
	return src, info, nil
}

// prepareOutputDir creates the output directory. The derived default
// directory is also cleared of chunk files left by an earlier split.
func prepareOutputDir(filePath, original, configured string) (string, error) {
	outDir := configured
	derived := outDir == ""
	if derived {
		outDir = DefaultDir(filePath)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		if isNoSpace(err) {
			return "", newError("mkdir", outDir, ErrInsufficientDiskSpace, err)
		}
		return "", newError("mkdir", outDir, ErrWriteFailed, err)
	}

	if derived {
		if err := removeStale(outDir, original); err != nil {
			return "", newError("clean", outDir, ErrWriteFailed, err)
		}
	}
	return outDir, nil
}

// removeStale deletes <original>.<digits> files in dir.
func removeStale(dir, original string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !isChunkName(entry.Name(), original) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"function": "removeStale",
			"file":     entry.Name(),
		}).Debug("Removed stale chunk")
	}
	return nil
}

func isChunkName(name, original string) bool {
	suffix, ok := strings.CutPrefix(name, original+".")
	if !ok || len(suffix) < 3 {
		return false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func writeChunk(dir, original string, index int, data []byte) (Chunk, error) {
	name := Name(original, index)
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return Chunk{}, writeError(path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return Chunk{}, writeError(path, err)
	}
	if err := f.Close(); err != nil {
		return Chunk{}, writeError(path, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "writeChunk",
		"chunk":    name,
		"size":     len(data),
	}).Debug("Chunk written")

	return Chunk{Index: index, Name: name, Path: path, Size: int64(len(data))}, nil
}

func writeError(path string, err error) error {
	logrus.WithFields(logrus.Fields{
		"function": "writeChunk",
		"path":     path,
		"error":    err.Error(),
	}).Error("Failed to write chunk")
	if isNoSpace(err) {
		return newError("write", path, ErrInsufficientDiskSpace, err)
	}
	return newError("write", path, ErrWriteFailed, err)
}

func expectedChunks(size, chunkSize int64) int {
	if size <= 0 {
		return 0
	}
	return int((size + chunkSize - 1) / chunkSize)
}

// Names returns the chunk file names in order.
func (s *Set) Names() []string {
	names := make([]string, len(s.Chunks))
	for i, c := range s.Chunks {
		names[i] = c.Name
	}
	return names
}

// ReassemblyCommand returns the command that concatenates the chunks, run
// from the directory holding them, back into the original file name.
// Chunks are listed explicitly so ordering never depends on glob sorting.
func (s *Set) ReassemblyCommand(shell commands.Shell) string {
	quoted := make([]string, len(s.Chunks))
	for i, c := range s.Chunks {
		quoted[i] = commands.Quote(shell, c.Name)
	}
	target := commands.Quote(shell, s.OriginalFilename)

	switch shell {
	case commands.ShellWindowsCmd:
		if len(quoted) == 0 {
			return "type nul > " + target
		}
		return "copy /b " + strings.Join(quoted, " + ") + " " + target
	case commands.ShellPowerShell:
		if len(quoted) == 0 {
			return "New-Item -ItemType File -Force " + target
		}
		return "cmd /c copy /b " + strings.Join(quoted, " + ") + " " + target
	default:
		if len(quoted) == 0 {
			return ": > " + target
		}
		return "cat " + strings.Join(quoted, " ") + " > " + target
	}
}

// Join concatenates the chunks of set into dst. It exists so an operator can
// check a split locally before moving the parts.
func Join(set *Set, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return newError("join", dst, ErrWriteFailed, err)
	}

	for _, c := range set.Chunks {
		if err := appendChunk(out, c); err != nil {
			out.Close()
			return err
		}
	}

	if err := out.Close(); err != nil {
		return newError("join", dst, ErrWriteFailed, err)
	}
	return nil
}

func appendChunk(out *os.File, c Chunk) error {
	in, err := os.Open(c.Path)
	if err != nil {
		return newError("join", c.Path, ErrSourceUnreadable, err)
	}
	defer in.Close()

	n, err := io.Copy(out, in)
	if err != nil {
		return newError("join", c.Path, ErrWriteFailed, err)
	}
	if n != c.Size {
		return newError("join", c.Path, ErrSourceUnreadable,
			fmt.Errorf("chunk is %d bytes, expected %d", n, c.Size))
	}
	return nil
}
