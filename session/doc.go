// Package session serves a single local file over plain HTTP for the
// lifetime of one session.
//
// # Lifecycle
//
// A Manager owns at most one session at a time:
//
//	Idle --Start--> Running --Stop--> Stopping --> Idle
//	Running --server failure--> Error --Stop/Acknowledge--> Idle
//
// Start, Stop and Acknowledge are serialized, so two starts can never race
// to bind ports. Start never replaces a running session; it fails with
// ErrAlreadyRunning instead. Stop is always safe to call: on an idle manager
// it is a no-op, and problems releasing the socket are reported as a warning
// rather than an error.
//
//	m := session.NewManager(session.Options{})
//	info, err := m.Start("/srv/report.pdf", "0.0.0.0", 8000)
//	if errors.Is(err, session.ErrPortInUse) {
//	    // pick another port
//	}
//	defer m.Stop()
//
// # Wire Surface
//
// The session answers GET /<percent-encoded filename> with the file bytes as
// application/octet-stream and a Content-Length. Any other path is 404 and
// any other method on the file path is 405. Each request opens the file
// independently, so concurrent clients each receive the full content.
//
// Stop closes the listener and every open connection; transfers still
// streaming are cut off.
package session
