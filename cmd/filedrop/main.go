package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/mdp/qrterminal/v3"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/filedrop"
	"github.com/opd-ai/filedrop/chunk"
	"github.com/opd-ai/filedrop/commands"
	"github.com/opd-ai/filedrop/config"
	"github.com/opd-ai/filedrop/transcode"
)

// Exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// CLIConfig holds the flags shared by every subcommand plus the ones
// specific to the selected subcommand. Zero values defer to the loaded
// configuration.
type CLIConfig struct {
	command    string
	configFile string
	logLevel   string
	path       string

	// serve
	address        string
	port           int
	maxConnections int
	noQR           bool

	// split
	chunkSizeKB int64
	outputDir   string
	verify      bool

	// encode
	shell    string
	dataOnly bool
}

// parseCLIFlags parses args (without the program name) into a CLIConfig.
func parseCLIFlags(args []string, stderr io.Writer) (*CLIConfig, error) {
	if len(args) == 0 {
		return nil, errors.New("missing subcommand")
	}

	cli := &CLIConfig{command: args[0]}
	fs := flag.NewFlagSet(cli.command, flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cli.configFile, "config", "", "Config file (json, yaml or toml)")
	fs.StringVar(&cli.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	switch cli.command {
	case "addrs":
	case "serve":
		fs.StringVar(&cli.address, "address", "", "Bind address (default from config: 0.0.0.0)")
		fs.IntVar(&cli.port, "port", 0, "Bind port (default from config: 8000)")
		fs.IntVar(&cli.maxConnections, "max-connections", -1, "Concurrent connection cap, 0 for unlimited")
		fs.BoolVar(&cli.noQR, "no-qr", false, "Do not print a QR code of the download URL")
	case "split":
		fs.Int64Var(&cli.chunkSizeKB, "size-kb", 0, "Chunk size in KiB (default from config: 1024)")
		fs.StringVar(&cli.outputDir, "out", "", "Chunk directory (default <file>_chunks)")
		fs.BoolVar(&cli.verify, "verify", false, "Rejoin the chunks locally and compare with the source")
	case "encode":
		fs.StringVar(&cli.shell, "shell", "", "Decode command dialect: posix, windows or powershell")
		fs.BoolVar(&cli.dataOnly, "data-only", false, "Print only the base64 text")
	default:
		return nil, fmt.Errorf("unknown subcommand %q", cli.command)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}

	if cli.command != "addrs" {
		if fs.NArg() != 1 {
			return nil, fmt.Errorf("%s expects exactly one file argument", cli.command)
		}
		cli.path = fs.Arg(0)
	}
	return cli, nil
}

// printUsage prints the usage information.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "filedrop - expose one file over HTTP, or prepare it for offline transfer")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  filedrop addrs")
	fmt.Fprintln(w, "  filedrop serve  [-address ip] [-port n] [-max-connections n] [-no-qr] <file>")
	fmt.Fprintln(w, "  filedrop split  [-size-kb n] [-out dir] [-verify] <file>")
	fmt.Fprintln(w, "  filedrop encode [-shell posix|windows|powershell] [-data-only] <file>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Every subcommand also accepts -config <file> and -log-level <level>.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  filedrop serve -port 9000 ./report.pdf")
	fmt.Fprintln(w, "  filedrop split -size-kb 4096 -verify ./disk.img")
	fmt.Fprintln(w, "  filedrop encode -shell windows ./tool.exe")
}

// validateCLIConfig checks flag values that the configuration layer does not.
func validateCLIConfig(cli *CLIConfig) error {
	if cli.port < 0 || cli.port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", cli.port)
	}
	if cli.chunkSizeKB < 0 {
		return fmt.Errorf("chunk size cannot be negative")
	}
	if cli.shell != "" {
		if _, err := commands.ParseShell(cli.shell); err != nil {
			return err
		}
	}
	if cli.command != "addrs" && cli.path == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	return nil
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig(cli *CLIConfig) (*config.Config, error) {
	cfg, err := config.Load(cli.configFile)
	if err != nil {
		return nil, err
	}

	if cli.logLevel != "" {
		cfg.LogLevel = cli.logLevel
	}
	if cli.address != "" {
		cfg.Address = cli.address
	}
	if cli.port != 0 {
		cfg.Port = cli.port
	}
	if cli.maxConnections >= 0 && cli.command == "serve" {
		cfg.MaxConnections = cli.maxConnections
	}
	if cli.chunkSizeKB != 0 {
		cfg.Chunk.SizeKB = cli.chunkSizeKB
	}
	if cli.outputDir != "" {
		cfg.Chunk.OutputDir = cli.outputDir
	}
	if cli.shell != "" {
		cfg.Encode.Shell = cli.shell
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging configures the global logrus logger.
func setupLogging(cfg *config.Config, w io.Writer) {
	logrus.SetOutput(w)
	logrus.SetLevel(cfg.Level())
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// setupSignalHandling cancels ctx on interrupt.
func setupSignalHandling(cancel context.CancelFunc, stderr io.Writer) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	go func() {
		sig := <-sigChan
		fmt.Fprintf(stderr, "\nReceived signal %v, stopping...\n", sig)
		cancel()
	}()
}

// run executes one subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && (args[0] == "help" || args[0] == "-help" || args[0] == "-h") {
		printUsage(stdout)
		return exitOK
	}

	cli, err := parseCLIFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n\n", err)
		printUsage(stderr)
		return exitUsage
	}
	if err := validateCLIConfig(cli); err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return exitUsage
	}

	cfg, err := loadConfig(cli)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return exitUsage
	}
	setupLogging(cfg, stderr)

	ctrl := filedrop.New(&filedrop.Options{Config: cfg})

	switch cli.command {
	case "addrs":
		for _, addr := range ctrl.ListAddresses() {
			fmt.Fprintln(stdout, addr)
		}
		return exitOK
	case "serve":
		return runServe(ctx, ctrl, cli, stdout, stderr)
	case "split":
		return runSplit(ctrl, cli, stdout, stderr)
	default:
		return runEncode(ctrl, cli, stdout, stderr)
	}
}

func runServe(ctx context.Context, ctrl *filedrop.Controller, cli *CLIConfig, stdout, stderr io.Writer) int {
	resp := ctrl.Start(filedrop.StartRequest{Path: cli.path})
	if !resp.Success {
		fmt.Fprintf(stderr, "Failed to start: %s\n", resp.Error)
		return exitError
	}

	fmt.Fprintf(stdout, "Serving %s from %s\n", resp.Filename, resp.Directory)
	fmt.Fprintf(stdout, "URL: %s\n\n", resp.URL)
	for _, tool := range commands.Tools() {
		fmt.Fprintf(stdout, "%-10s %s\n", tool, resp.Commands[string(tool)])
	}
	if !cli.noQR {
		fmt.Fprintln(stdout)
		printQR(stdout, resp.URL)
	}
	fmt.Fprintln(stdout, "\nPress Ctrl+C to stop.")

	<-ctx.Done()

	stop := ctrl.Stop()
	if stop.Warning != "" {
		fmt.Fprintf(stderr, "Warning: %s\n", stop.Warning)
	}
	status := ctrl.Status()
	fmt.Fprintf(stdout, "Stopped after %d completed download(s).\n", status.Completed)
	return exitOK
}

func printQR(w io.Writer, url string) {
	qrterminal.GenerateWithConfig(url, qrterminal.Config{
		Level:          qrterminal.M,
		Writer:         w,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
		QuietZone:      1,
	})
}

func runSplit(ctrl *filedrop.Controller, cli *CLIConfig, stdout, stderr io.Writer) int {
	resp := ctrl.SplitFile(filedrop.SplitRequest{Path: cli.path})
	if !resp.Success {
		fmt.Fprintf(stderr, "Split failed: %s\n", resp.Error)
		return exitError
	}

	fmt.Fprintf(stdout, "Wrote %d chunk(s) of %s (%d bytes) to %s\n",
		len(resp.Chunks), resp.OriginalFile, resp.TotalSize, resp.ChunkDir)
	for _, c := range resp.Chunks {
		fmt.Fprintf(stdout, "  %s  %d\n", c.Name, c.Size)
	}
	fmt.Fprintf(stdout, "\nReassemble (POSIX):   %s\n", resp.Reassembly[commands.ShellPOSIX.String()])
	fmt.Fprintf(stdout, "Reassemble (Windows): %s\n", resp.Reassembly[commands.ShellWindowsCmd.String()])

	if cli.verify {
		if err := verifySplit(cli.path, resp); err != nil {
			fmt.Fprintf(stderr, "Verification failed: %v\n", err)
			return exitError
		}
		fmt.Fprintln(stdout, "Verified: chunks rejoin to the original file.")
	}
	return exitOK
}

// verifySplit joins the chunks into a temporary file and compares digests
// with the source.
func verifySplit(source string, resp filedrop.SplitResponse) error {
	set := &chunk.Set{
		OriginalFilename: resp.OriginalFile,
		ChunkSize:        resp.ChunkSize,
		TotalSize:        resp.TotalSize,
		Directory:        resp.ChunkDir,
	}
	for i, c := range resp.Chunks {
		set.Chunks = append(set.Chunks, chunk.Chunk{Index: i + 1, Name: c.Name, Path: c.Path, Size: c.Size})
	}

	tmp, err := os.CreateTemp(resp.ChunkDir, ".verify-*")
	if err != nil {
		return err
	}
	joined := tmp.Name()
	tmp.Close()
	defer os.Remove(joined)

	if err := chunk.Join(set, joined); err != nil {
		return err
	}

	want, err := fileDigest(source)
	if err != nil {
		return err
	}
	got, err := fileDigest(joined)
	if err != nil {
		return err
	}
	if want != got {
		return fmt.Errorf("digest mismatch for %s", filepath.Base(source))
	}
	return nil
}

func fileDigest(path string) ([sha256.Size]byte, error) {
	var sum [sha256.Size]byte
	f, err := os.Open(path)
	if err != nil {
		return sum, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return sum, err
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

func runEncode(ctrl *filedrop.Controller, cli *CLIConfig, stdout, stderr io.Writer) int {
	resp := ctrl.EncodeToBase64(filedrop.EncodeRequest{Path: cli.path, Shell: cli.shell})
	if !resp.Success {
		fmt.Fprintf(stderr, "Encode failed: %s\n", resp.Error)
		return exitError
	}

	fmt.Fprintf(stderr, "%s: %d bytes -> %d base64 characters (%s)\n",
		resp.Filename, resp.OriginalSize, resp.Size, transcode.Preview(resp.Data, 24))
	if cli.dataOnly {
		fmt.Fprintln(stdout, resp.Data)
	} else {
		fmt.Fprintln(stdout, resp.DecodeCommand)
	}
	return exitOK
}

// main is the entry point for the filedrop tool.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupSignalHandling(cancel, os.Stderr)

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
