package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

const ellipsis = "..."

// CleanLine prepares provisioner output for display: escape sequences are
// stripped, carriage returns dropped and tabs expanded.
func CleanLine(s string) string {
	s = ansi.Strip(s)
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\t", "    ")
}

// LogLines cleans one log entry's output and splits it into its non-blank lines.
func LogLines(output string) []string {
	var lines []string
	for _, line := range strings.Split(CleanLine(output), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// VisualWidth returns the number of terminal columns s occupies.
func VisualWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Truncate fits s into width columns, ending it with "..." when withEllipsis
// is set and there is room for it.
func Truncate(s string, width int, withEllipsis bool) string {
	s = strings.TrimSpace(s)
	if width <= 0 {
		return ""
	}
	tail := ""
	if withEllipsis && width > len(ellipsis) {
		tail = ellipsis
	}
	return runewidth.Truncate(s, width, tail)
}

// Wrap breaks text into lines of at most width columns at spaces. Words wider
// than a line, such as provider URLs, are split across lines.
func Wrap(text string, width int) string {
	words := strings.Fields(text)
	if width <= 0 || len(words) == 0 {
		return text
	}

	var lines []string
	var line strings.Builder
	used := 0
	flush := func() {
		if used > 0 {
			lines = append(lines, line.String())
			line.Reset()
			used = 0
		}
	}

	for _, word := range words {
		w := VisualWidth(word)
		switch {
		case w > width:
			flush()
			chunks := breakWord(word, width)
			lines = append(lines, chunks[:len(chunks)-1]...)
			last := chunks[len(chunks)-1]
			line.WriteString(last)
			used = VisualWidth(last)
		case used == 0:
			line.WriteString(word)
			used = w
		case used+1+w <= width:
			line.WriteString(" " + word)
			used += 1 + w
		default:
			flush()
			line.WriteString(word)
			used = w
		}
	}
	flush()
	return strings.Join(lines, "\n")
}

// breakWord splits word into chunks of at most width columns.
func breakWord(word string, width int) []string {
	var chunks []string
	var chunk strings.Builder
	used := 0
	for _, r := range word {
		rw := runewidth.RuneWidth(r)
		if used+rw > width && used > 0 {
			chunks = append(chunks, chunk.String())
			chunk.Reset()
			used = 0
		}
		chunk.WriteRune(r)
		used += rw
	}
	return append(chunks, chunk.String())
}
