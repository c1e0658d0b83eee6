// Package filedrop exposes one local file to remote clients over plain HTTP
// and prepares offline fallbacks for networks where HTTP is blocked.
//
// # Getting Started
//
// Create a Controller and start serving a file:
//
//	ctrl := filedrop.New(nil)
//
//	resp := ctrl.Start(filedrop.StartRequest{Path: "/srv/report.pdf", Port: 8000})
//	if !resp.Success {
//	    log.Fatal(resp.Error)
//	}
//	fmt.Println(resp.Commands["curl"])
//
//	// Later
//	stop := ctrl.Stop()
//	if stop.Warning != "" {
//	    log.Println(stop.Warning)
//	}
//
// # Core Types
//
//   - [Controller]: request/response boundary for a front end
//   - [Options]: configuration and collaborators for a Controller
//   - [AddressSource]: local address discovery, see package netaddr
//
// # Transfer Modes
//
// Direct HTTP: [Controller.Start] binds a listener and serves the file at
// GET /<url-encoded filename>. Only one session exists per Controller.
// [Controller.Stop] closes the listener and aborts transfers in flight.
//
// Base64: [Controller.EncodeToBase64] returns the complete encoding of a file
// and a shell command that rebuilds it on the receiving side.
//
// Chunks: [Controller.SplitFile] writes <name>.001, <name>.002, ... into
// <name>_chunks and returns the commands that concatenate them back.
//
// Splitting and encoding block on disk I/O. [Controller.SplitFileAsync] and
// [Controller.EncodeToBase64Async] run them on a worker goroutine.
//
// # Subpackages
//
//   - session: HTTP session lifecycle
//   - chunk: file splitting and reassembly commands
//   - transcode: base64 encoding and decode commands
//   - commands: retrieval commands and shell quoting
//   - netaddr: interface enumeration
//   - config: viper-backed configuration
//   - limits: size and range validation
package filedrop
