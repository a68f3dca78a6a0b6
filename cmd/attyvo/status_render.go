package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"attyvo/internal/daemonctl"
)

// badge is the bracketed marker of a status line. Daemon states and doctor
// results share one palette.
type badge string

const (
	badgeNone    badge = ""
	badgeRunning badge = "running"
	badgeStale   badge = "stale"
	badgeReused  badge = "reused"
	badgeCorrupt badge = "corrupt"
	badgePass    badge = "pass"
	badgeFail    badge = "fail"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	fieldLabelWidth = 14
	fieldIndent     = "  "
)

func stateBadge(s daemonctl.Status) badge {
	return badge(s.State())
}

func (b badge) color() string {
	switch b {
	case badgeRunning, badgePass:
		return ansiGreen
	case badgeStale, badgeReused:
		return ansiYellow
	case badgeCorrupt, badgeFail:
		return ansiRed
	default:
		return ""
	}
}

// renderField renders "label: [BADGE] value". Lines without a badge carry
// only the value and are never colored.
func renderField(label string, b badge, value string, colorize bool) string {
	text := value
	if b != badgeNone {
		text = "[" + strings.ToUpper(string(b)) + "]"
		if value != "" {
			text += " " + value
		}
	}
	line := fmt.Sprintf("%s%-*s %s", fieldIndent, fieldLabelWidth, label+":", text)
	return paint(line, b, colorize)
}

func paint(text string, b badge, colorize bool) string {
	if !colorize || b.color() == "" {
		return text
	}
	return b.color() + text + ansiReset
}

func renderHeading(title string, colorize bool) string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	if colorize {
		return ansiBlue + line + ansiReset
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
