// Package commands renders the client-side commands an operator hands to a
// remote host to retrieve the served file.
//
// Every function in this package is pure: no I/O, and the same inputs always
// produce the same output.
package commands

import (
	"net"
	"strconv"
	"strings"
)

// Tool names a client program a retrieval command is rendered for.
type Tool string

const (
	// ToolCurl downloads with curl.
	ToolCurl Tool = "curl"
	// ToolWget downloads with wget.
	ToolWget Tool = "wget"
	// ToolPython downloads with a python3 one-liner.
	ToolPython Tool = "python"
	// ToolPowerShell downloads with Invoke-WebRequest.
	ToolPowerShell Tool = "powershell"
	// ToolFileless pipes the file straight into bash.
	ToolFileless Tool = "fileless"
)

const (
	pythonExecutable     = "python3"
	powershellExecutable = "powershell.exe"
)

// Set maps each tool to its rendered command.
type Set map[Tool]string

// Tools returns every supported tool in display order.
func Tools() []Tool {
	return []Tool{ToolCurl, ToolWget, ToolPython, ToolPowerShell, ToolFileless}
}

// Render returns the retrieval command for every tool in Tools.
func Render(address string, port int, filename string) Set {
	url := URL(address, port, filename)
	return Set{
		ToolCurl: "curl -o " + QuotePOSIX(filename) + " " + url,
		ToolWget: "wget --output-document=" + QuotePOSIX(filename) + " " + url,
		ToolPython: pythonExecutable + ` -c "` + escapeDoubleQuoted(
			"import urllib.request; urllib.request.urlretrieve("+quotePython(url)+", "+quotePython(filename)+")") + `"`,
		ToolPowerShell: powershellExecutable + ` -Command "Invoke-WebRequest -Uri ` + url +
			" -OutFile " + QuotePowerShell(filename) + `"`,
		ToolFileless: "curl -s " + url + " | bash",
	}
}

// URL returns the address of filename on a session bound to address:port.
// IPv6 literals are bracketed.
func URL(address string, port int, filename string) string {
	return "http://" + net.JoinHostPort(address, strconv.Itoa(port)) + "/" + EscapeFilename(filename)
}

// EscapeFilename percent-encodes every byte of name outside the RFC 3986
// unreserved set, so the result is also a safe unquoted shell word.
func EscapeFilename(name string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}
