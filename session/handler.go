package session

import (
	"io"
	"log"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// fileHandler serves exactly one file at /<filename>.
type fileHandler struct {
	sessionID string
	path      string
	filename  string

	active *atomic.Int64
	served *atomic.Int64
}

// ServeHTTP streams the file for GET /<filename>. Every other path is 404 and
// every other method on the file path is 405.
func (h *fileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logrus.WithFields(logrus.Fields{
		"function":   "ServeHTTP",
		"session_id": h.sessionID,
		"remote":     r.RemoteAddr,
		"method":     r.Method,
		"path":       r.URL.Path,
	}).Info("HTTP request")

	// URL.Path is already percent-decoded.
	if r.URL.Path != "/"+h.filename {
		http.Error(w, "File not found. Only serving '"+h.filename+"'", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.active.Add(1)
	defer h.active.Add(-1)

	f, err := os.Open(h.path)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "ServeHTTP",
			"session_id": h.sessionID,
			"file_path":  h.path,
			"error":      err.Error(),
		}).Error("Failed to open served file")
		http.Error(w, "Error serving file", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "Error serving file", http.StatusInternalServerError)
		return
	}

	header := w.Header()
	header.Set("Content-Type", "application/octet-stream")
	header.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": h.filename}))
	w.WriteHeader(http.StatusOK)

	n, err := io.CopyN(w, f, info.Size())
	if err != nil {
		// Client went away or the session was stopped mid-transfer.
		logrus.WithFields(logrus.Fields{
			"function":   "ServeHTTP",
			"session_id": h.sessionID,
			"remote":     r.RemoteAddr,
			"sent":       n,
			"size":       info.Size(),
			"error":      err.Error(),
		}).Warn("Transfer aborted")
		return
	}

	h.served.Add(1)
	logrus.WithFields(logrus.Fields{
		"function":   "ServeHTTP",
		"session_id": h.sessionID,
		"remote":     r.RemoteAddr,
		"sent":       n,
	}).Info("File served")
}

// serverErrorWriter forwards net/http's internal error log to logrus.
type serverErrorWriter struct {
	sessionID string
}

func (w serverErrorWriter) Write(p []byte) (int, error) {
	logrus.WithFields(logrus.Fields{
		"function":   "http.Server",
		"session_id": w.sessionID,
	}).Warn(strings.TrimSpace(string(p)))
	return len(p), nil
}

func newServerErrorLog(sessionID string) *log.Logger {
	return log.New(serverErrorWriter{sessionID: sessionID}, "", 0)
}
