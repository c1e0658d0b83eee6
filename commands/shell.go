package commands

import (
	"fmt"
	"strings"
)

// Shell identifies the command interpreter a rendered command targets.
type Shell uint8

const (
	// ShellPOSIX targets sh, bash and compatible shells.
	ShellPOSIX Shell = iota
	// ShellWindowsCmd targets cmd.exe.
	ShellWindowsCmd
	// ShellPowerShell targets Windows PowerShell and pwsh.
	ShellPowerShell
)

// String returns the configuration name of the shell.
func (s Shell) String() string {
	switch s {
	case ShellPOSIX:
		return "posix"
	case ShellWindowsCmd:
		return "windows"
	case ShellPowerShell:
		return "powershell"
	default:
		return "unknown"
	}
}

// ParseShell maps a configuration name to a Shell. "linux", "sh" and "bash"
// are accepted for ShellPOSIX and "cmd" for ShellWindowsCmd.
func ParseShell(name string) (Shell, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "posix", "linux", "sh", "bash", "":
		return ShellPOSIX, nil
	case "windows", "cmd", "windowscmd":
		return ShellWindowsCmd, nil
	case "powershell", "pwsh":
		return ShellPowerShell, nil
	default:
		return ShellPOSIX, fmt.Errorf("unknown shell %q", name)
	}
}

// Quote quotes s as a single literal word for shell.
func Quote(shell Shell, s string) string {
	switch shell {
	case ShellWindowsCmd:
		return QuoteWindowsCmd(s)
	case ShellPowerShell:
		return QuotePowerShell(s)
	default:
		return QuotePOSIX(s)
	}
}

// QuotePOSIX wraps s in single quotes, splicing embedded single quotes as '\''.
func QuotePOSIX(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// QuoteWindowsCmd wraps s in double quotes. Windows file names cannot contain
// double quotes, so any that appear are dropped. cmd.exe expands %VAR% even
// inside quotes, so each % is moved outside them as ^%; no variable name can
// then form between two percent signs, and the caret yields a literal %.
func QuoteWindowsCmd(s string) string {
	s = strings.ReplaceAll(s, `"`, "")
	return `"` + strings.ReplaceAll(s, "%", `"^%"`) + `"`
}

// QuotePowerShell wraps s in single quotes, doubling embedded single quotes.
func QuotePowerShell(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quotePython renders s as a single-quoted Python string literal.
func quotePython(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)
	return "'" + r.Replace(s) + "'"
}

// escapeDoubleQuoted escapes the characters that stay special inside a POSIX
// double-quoted string.
func escapeDoubleQuoted(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")
	return r.Replace(s)
}
