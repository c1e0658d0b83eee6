package filedrop

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/filedrop/chunk"
	"github.com/opd-ai/filedrop/commands"
	"github.com/opd-ai/filedrop/config"
	"github.com/opd-ai/filedrop/limits"
	"github.com/opd-ai/filedrop/netaddr"
	"github.com/opd-ai/filedrop/session"
	"github.com/opd-ai/filedrop/transcode"
)

// AddressSource reports the local addresses a session can be reached on.
type AddressSource interface {
	ListAddresses() []string
	AdvertiseAddress(bound string) string
}

// Options contains the collaborators used by a Controller.
type Options struct {
	Config       *config.Config
	Addresses    AddressSource
	TimeProvider session.TimeProvider
}

// NewOptions returns options backed by the default configuration and the
// host's network interfaces.
func NewOptions() *Options {
	return &Options{
		Config:       config.Default(),
		Addresses:    netaddr.New(),
		TimeProvider: session.DefaultTimeProvider{},
	}
}

// Controller is the request/response boundary used by a front end.
// Every method reports failures in its response instead of returning an
// error, and is safe to call from multiple goroutines.
type Controller struct {
	cfg       *config.Config
	addresses AddressSource
	sessions  *session.Manager
}

// New creates a Controller. Nil options, or nil fields, select defaults.
func New(options *Options) *Controller {
	if options == nil {
		options = NewOptions()
	}
	cfg := options.Config
	if cfg == nil {
		cfg = config.Default()
	}
	addresses := options.Addresses
	if addresses == nil {
		addresses = netaddr.New()
	}

	logrus.WithFields(logrus.Fields{
		"function":        "New",
		"address":         cfg.Address,
		"port":            cfg.Port,
		"max_connections": cfg.MaxConnections,
	}).Debug("Creating controller")

	return &Controller{
		cfg:       cfg,
		addresses: addresses,
		sessions: session.NewManager(session.Options{
			MaxConnections: cfg.MaxConnections,
			ShutdownWait:   cfg.ShutdownWait,
			TimeProvider:   options.TimeProvider,
		}),
	}
}

// Sessions exposes the underlying session manager.
func (c *Controller) Sessions() *session.Manager {
	return c.sessions
}

// ListAddresses returns candidate addresses, preferred first and 127.0.0.1 last.
func (c *Controller) ListAddresses() []string {
	return c.addresses.ListAddresses()
}

// StartRequest asks for Path to be served on Address:Port. Zero values
// select the configured address and port.
type StartRequest struct {
	Path    string `json:"path"`
	Port    int    `json:"port,omitempty"`
	Address string `json:"address,omitempty"`
}

// StartResponse describes the started session.
type StartResponse struct {
	Success   bool              `json:"success"`
	Filename  string            `json:"filename,omitempty"`
	Directory string            `json:"directory,omitempty"`
	Port      int               `json:"port,omitempty"`
	IP        string            `json:"ip,omitempty"`
	URL       string            `json:"url,omitempty"`
	Commands  map[string]string `json:"commands,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Start begins serving a file.
func (c *Controller) Start(req StartRequest) StartResponse {
	address := req.Address
	if address == "" {
		address = c.cfg.Address
	}
	port := req.Port
	if port == 0 {
		port = c.cfg.Port
	}

	info, err := c.sessions.Start(req.Path, address, port)
	if err != nil {
		return StartResponse{Error: err.Error()}
	}

	ip := c.addresses.AdvertiseAddress(info.Address)
	rendered := commands.Render(ip, info.Port, info.Filename)
	cmds := make(map[string]string, len(rendered))
	for tool, cmd := range rendered {
		cmds[string(tool)] = cmd
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Start",
		"session_id": info.ID,
		"ip":         ip,
		"port":       info.Port,
	}).Info("Serving file")

	return StartResponse{
		Success:   true,
		Filename:  info.Filename,
		Directory: info.Directory,
		Port:      info.Port,
		IP:        ip,
		URL:       commands.URL(ip, info.Port, info.Filename),
		Commands:  cmds,
	}
}

// StopResponse reports the outcome of Stop. Stop always succeeds; problems
// releasing the port are reported as Warning.
type StopResponse struct {
	Success bool   `json:"success"`
	Warning string `json:"warning,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Stop ends the current session, if any.
func (c *Controller) Stop() StopResponse {
	result := c.sessions.Stop()
	return StopResponse{Success: true, Warning: result.Warning}
}

// StatusResponse is a snapshot of the session.
type StatusResponse struct {
	Success   bool   `json:"success"`
	Status    string `json:"status"`
	Filename  string `json:"filename,omitempty"`
	Address   string `json:"address,omitempty"`
	Port      int    `json:"port,omitempty"`
	Uptime    string `json:"uptime,omitempty"`
	Active    int64  `json:"active_downloads"`
	Completed int64  `json:"completed_downloads"`
	Error     string `json:"error,omitempty"`
}

// Status reports the session state and download counters.
func (c *Controller) Status() StatusResponse {
	resp := StatusResponse{
		Success:   true,
		Status:    c.sessions.Status().String(),
		Active:    c.sessions.ActiveDownloads(),
		Completed: c.sessions.CompletedDownloads(),
	}
	if info, ok := c.sessions.Info(); ok {
		resp.Filename = info.Filename
		resp.Address = info.Address
		resp.Port = info.Port
		resp.Uptime = c.sessions.Uptime().String()
	}
	if fault := c.sessions.Fault(); fault != nil {
		resp.Error = fault.Error()
	}
	return resp
}

// EncodeRequest asks for Path to be base64 encoded. Shell selects the decode
// command dialect ("posix", "windows", "powershell"); empty uses the
// configured default.
type EncodeRequest struct {
	Path  string `json:"path"`
	Shell string `json:"shell,omitempty"`
}

// EncodeResponse carries the full encoded text and a matching decode command.
type EncodeResponse struct {
	Success       bool   `json:"success"`
	Data          string `json:"data"`
	Filename      string `json:"filename,omitempty"`
	Size          int    `json:"size"`
	OriginalSize  int64  `json:"original_size"`
	DecodeCommand string `json:"decode_command,omitempty"`
	Error         string `json:"error,omitempty"`
}

// EncodeToBase64 encodes a file for text-only transfer.
func (c *Controller) EncodeToBase64(req EncodeRequest) EncodeResponse {
	shell := c.cfg.Shell()
	if req.Shell != "" {
		parsed, err := commands.ParseShell(req.Shell)
		if err != nil {
			return EncodeResponse{Error: err.Error()}
		}
		shell = parsed
	}

	p, err := transcode.Encode(req.Path, c.cfg.Encode.MaxSize)
	if err != nil {
		return EncodeResponse{Error: err.Error()}
	}

	return EncodeResponse{
		Success:       true,
		Data:          p.Text,
		Filename:      p.SourceFilename,
		Size:          len(p.Text),
		OriginalSize:  p.OriginalSize,
		DecodeCommand: transcode.DecodeCommand(shell, p.SourceFilename, p),
	}
}

// SplitRequest asks for Path to be split into ChunkSizeKB kibibyte parts.
// Zero selects the configured chunk size.
type SplitRequest struct {
	Path        string `json:"path"`
	ChunkSizeKB int64  `json:"chunk_size_kb,omitempty"`
}

// ChunkEntry describes one written chunk file.
type ChunkEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// SplitResponse describes the written chunks and how to reassemble them.
type SplitResponse struct {
	Success      bool              `json:"success"`
	Chunks       []ChunkEntry      `json:"chunks"`
	OriginalFile string            `json:"original_file,omitempty"`
	TotalSize    int64             `json:"total_size"`
	ChunkSize    int64             `json:"chunk_size,omitempty"`
	ChunkDir     string            `json:"chunk_dir,omitempty"`
	Reassembly   map[string]string `json:"reassembly,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// SplitFile splits a file into sequential chunks.
func (c *Controller) SplitFile(req SplitRequest) SplitResponse {
	sizeKB := req.ChunkSizeKB
	if sizeKB == 0 {
		sizeKB = c.cfg.Chunk.SizeKB
	}

	size, err := limits.KiBToBytes(sizeKB)
	if err != nil {
		return SplitResponse{Error: fmt.Errorf("%w: %w", chunk.ErrInvalidChunkSize, err).Error()}
	}

	set, err := chunk.Split(req.Path, size, chunk.Options{
		OutputDir:    c.cfg.Chunk.OutputDir,
		MinChunkSize: c.cfg.Chunk.MinSize,
		MaxChunkSize: c.cfg.Chunk.MaxSize,
	})
	if err != nil {
		return SplitResponse{Error: err.Error()}
	}

	entries := make([]ChunkEntry, len(set.Chunks))
	for i, ch := range set.Chunks {
		entries[i] = ChunkEntry{Name: ch.Name, Path: ch.Path, Size: ch.Size}
	}

	return SplitResponse{
		Success:      true,
		Chunks:       entries,
		OriginalFile: set.OriginalFilename,
		TotalSize:    set.TotalSize,
		ChunkSize:    set.ChunkSize,
		ChunkDir:     set.Directory,
		Reassembly: map[string]string{
			commands.ShellPOSIX.String():      set.ReassemblyCommand(commands.ShellPOSIX),
			commands.ShellWindowsCmd.String(): set.ReassemblyCommand(commands.ShellWindowsCmd),
		},
	}
}

// SplitFileAsync runs SplitFile on a worker goroutine. The returned channel
// receives exactly one response. Cancelling ctx abandons the wait, not the
// split; the response then reports the context error.
func (c *Controller) SplitFileAsync(ctx context.Context, req SplitRequest) <-chan SplitResponse {
	out := make(chan SplitResponse, 1)
	go func() {
		out <- await(ctx, func() SplitResponse { return c.SplitFile(req) },
			func(err error) SplitResponse { return SplitResponse{Error: err.Error()} })
	}()
	return out
}

// EncodeToBase64Async runs EncodeToBase64 on a worker goroutine with the same
// delivery rules as SplitFileAsync.
func (c *Controller) EncodeToBase64Async(ctx context.Context, req EncodeRequest) <-chan EncodeResponse {
	out := make(chan EncodeResponse, 1)
	go func() {
		out <- await(ctx, func() EncodeResponse { return c.EncodeToBase64(req) },
			func(err error) EncodeResponse { return EncodeResponse{Error: err.Error()} })
	}()
	return out
}

// await runs work in its own goroutine and returns its result, or the
// cancellation response if ctx ends first.
func await[T any](ctx context.Context, work func() T, cancelled func(error) T) T {
	result := make(chan T, 1)
	go func() {
		result <- work()
	}()

	select {
	case r := <-result:
		return r
	case <-ctx.Done():
		logrus.WithFields(logrus.Fields{
			"function": "await",
			"error":    ctx.Err().Error(),
		}).Warn("Abandoned wait for background operation")
		return cancelled(fmt.Errorf("operation abandoned: %w", ctx.Err()))
	}
}
