// Package sanitize cleans provisioner log output for MCP tool responses and
// plain terminal output. Terraform colours its output, and those escape
// sequences are noise once the text leaves a terminal.
package sanitize

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"provisioner-watch/src/provider"
)

// StripANSI removes ANSI escape sequences.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// Clean strips escape sequences, drops carriage returns and trims surrounding whitespace.
func Clean(s string) string {
	s = StripANSI(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.TrimSpace(s)
}

// FormatLogs renders job logs one per line, prefixed by stage whenever it changes:
//
//	== Setting up
//	[info] Initializing the backend...
func FormatLogs(logs []provider.ProvisionerJobLog) string {
	var b strings.Builder
	stage := ""
	for _, log := range logs {
		if log.Stage != "" && log.Stage != stage {
			stage = log.Stage
			fmt.Fprintf(&b, "== %s\n", stage)
		}
		line := Clean(log.Output)
		if line == "" {
			continue
		}
		if log.Level != "" {
			fmt.Fprintf(&b, "[%s] %s\n", log.Level, line)
		} else {
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}
