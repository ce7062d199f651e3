package mcp

import (
	"fmt"
	"regexp"
	"strings"
)

// timestampPattern matches leading timestamps such as those written with TF_LOG set:
// - 2024-05-21T10:00:05.123Z
// - 2024-05-21 10:00:05,123
// - 2024-05-21T10:00:05+00:00
var timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}[.,]?\d*[Z]?([+-]\d{2}:?\d{2})?\s*`)

// stripTimestamps removes leading timestamps from a line.
func stripTimestamps(line string) string {
	return timestampPattern.ReplaceAllString(line, "")
}

// longPathPattern matches absolute paths with 3+ directories.
// Captures the filename (and optional line number) at the end.
var longPathPattern = regexp.MustCompile(`/(?:[^/\s]+/){3,}([^/\s:]+(?::\d+)?)`)

// compressPath shortens long file paths to .../filename.
func compressPath(line string) string {
	return longPathPattern.ReplaceAllString(line, ".../$1")
}

// whitespacePattern matches multiple consecutive whitespace characters.
var whitespacePattern = regexp.MustCompile(`\s+`)

// normalizeWhitespace collapses multiple spaces/tabs and trims.
func normalizeWhitespace(line string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(line, " "))
}

// progressPattern matches terraform's periodic progress lines, e.g.
// "docker_container.workspace[0]: Still creating... [10s elapsed]".
var progressPattern = regexp.MustCompile(`^(.+): Still [a-z]+\.\.\. \[[0-9hms]+ elapsed\]$`)

// collapseLines drops all but the last progress line of each resource run and
// folds consecutive duplicates into "line (xN)".
func collapseLines(lines []string) []string {
	var out []string
	var counts []int

	for _, line := range lines {
		last := len(out) - 1
		if last >= 0 {
			if line == out[last] {
				counts[last]++
				continue
			}
			if m := progressPattern.FindStringSubmatch(line); m != nil {
				if prev := progressPattern.FindStringSubmatch(out[last]); prev != nil && prev[1] == m[1] {
					out[last] = line
					continue
				}
			}
		}
		out = append(out, line)
		counts = append(counts, 1)
	}

	for i, n := range counts {
		if n > 1 {
			out[i] = fmt.Sprintf("%s (x%d)", out[i], n)
		}
	}
	return out
}

// compressLogs shrinks formatted provisioner logs for LLM consumption and keeps
// at most limit lines from the end. limit <= 0 keeps everything.
func compressLogs(text string, limit int) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = normalizeWhitespace(compressPath(stripTimestamps(line)))
		if line != "" {
			lines = append(lines, line)
		}
	}
	lines = collapseLines(lines)

	if limit > 0 && len(lines) > limit {
		omitted := len(lines) - limit
		lines = append([]string{fmt.Sprintf("... %d earlier lines omitted", omitted)}, lines[omitted:]...)
	}
	return strings.Join(lines, "\n")
}
