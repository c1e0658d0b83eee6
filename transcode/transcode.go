// Package transcode turns a file into base64 text and renders the shell
// command that turns that text back into the file on another host.
package transcode

import (
	"encoding/base64"
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

var (
	// ErrSourceUnreadable indicates the source file cannot be opened or read
	ErrSourceUnreadable = errors.New("source file unreadable")

	// ErrFileTooLarge indicates the source exceeds the encode cap
	ErrFileTooLarge = errors.New("file too large to encode")

	// ErrInvalidPayload indicates text that is not valid base64
	ErrInvalidPayload = errors.New("invalid base64 payload")
)

// stagingFile is the intermediate file the Windows decode command writes.
const stagingFile = "encoded.b64"

// cmdLineWidth is the base64 text written per echo line. cmd.exe refuses
// lines longer than 8191 characters; certutil writes 64-character lines.
const cmdLineWidth = 64

// Payload is a file rendered as base64 text.
type Payload struct {
	SourceFilename string `json:"filename"`
	Text           string `json:"data"`
	OriginalSize   int64  `json:"original_size"`
}

// Encode reads filePath and returns its base64 encoding. Files larger than
// maxSize are rejected before any data is read; a non-positive maxSize
// disables the cap.
func Encode(filePath string, maxSize int64) (*Payload, error) {
	logrus.WithFields(logrus.Fields{
		"function":  "Encode",
		"file_path": filePath,
		"max_size":  maxSize,
	}).Info("Encoding file to base64")

	f, err := os.Open(filePath)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "Encode",
			"file_path": filePath,
			"error":     err.Error(),
		}).Error("Failed to open source file")
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrSourceUnreadable, filePath)
	}
	if err := limits.ValidateSize(info.Size(), maxSize); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "Encode",
			"file_path": filePath,
			"size":      info.Size(),
			"max_size":  maxSize,
		}).Warn("File exceeds encode cap")
		return nil, fmt.Errorf("%w: %w", ErrFileTooLarge, err)
	}

	var text strings.Builder
	text.Grow(base64.StdEncoding.EncodedLen(int(info.Size())))
	enc := base64.NewEncoder(base64.StdEncoding, &text)
	n, err := io.Copy(enc, f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}

	p := &Payload{
		SourceFilename: filepath.Base(filePath),
		Text:           text.String(),
		OriginalSize:   n,
	}

	logrus.WithFields(logrus.Fields{
		"function":      "Encode",
		"file_path":     filePath,
		"original_size": p.OriginalSize,
		"encoded_size":  len(p.Text),
	}).Info("File encoded successfully")

	return p, nil
}

// Decode returns the bytes encoded in text. Whitespace, including the line
// breaks certutil and base64 insert, is ignored.
func Decode(text string) ([]byte, error) {
	compact := strings.Join(strings.Fields(text), "")
	data, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return data, nil
}

// DecodeCommand renders the command that recreates filename from p on a
// host running shell. The full payload is always embedded; for cmd.exe it
// is spread over several lines.
func DecodeCommand(shell commands.Shell, filename string, p *Payload) string {
	switch shell {
	case commands.ShellWindowsCmd:
		return windowsDecodeCommand(filename, p.Text)
	case commands.ShellPowerShell:
		return "[IO.File]::WriteAllBytes(" + commands.QuotePowerShell(filename) +
			", [Convert]::FromBase64String('" + p.Text + "'))"
	default:
		return "echo '" + p.Text + "' | base64 -d > " + commands.QuotePOSIX(filename)
	}
}

// windowsDecodeCommand stages text in short echo lines, the first one
// truncating the staging file, and decodes it with certutil.
func windowsDecodeCommand(filename, text string) string {
	target := commands.QuoteWindowsCmd(filename)
	if text == "" {
		return "type nul > " + target
	}

	lines := make([]string, 0, len(text)/cmdLineWidth+3)
	redirect := " > "
	for start := 0; start < len(text); start += cmdLineWidth {
		end := min(start+cmdLineWidth, len(text))
		lines = append(lines, "echo "+text[start:end]+redirect+stagingFile)
		redirect = " >> "
	}
	lines = append(lines,
		"certutil -decode "+stagingFile+" "+target,
		"del "+stagingFile)
	return strings.Join(lines, "\n")
}

// Preview shortens text to its first and last keep characters for display.
// It is never applied to Payload.Text or to DecodeCommand output.
func Preview(text string, keep int) string {
	if keep <= 0 || len(text) <= 2*keep {
		return text
	}
	return text[:keep] + "..." + text[len(text)-keep:]
}
