// Package dialogue parses two-host scripts into speaker-tagged segments.
package dialogue

import "strings"

// Default speaker tags produced by the script generation prompt.
const (
	SpeakerHostA = "Host A"
	SpeakerHostB = "Host B"
)

// Line is one spoken script line attributed to a speaker.
type Line struct {
	Speaker string
	Text    string
}

// Parse splits a script on newlines and attributes each non-blank line to a
// speaker by its "Host A:" / "Host B:" prefix. Lines without a recognized
// prefix are spoken by the first speaker; parsing is lenient and never
// fails. Blank lines are dropped.
func Parse(script string) []Line {
	return ParseSpeakers(script, SpeakerHostA, SpeakerHostB)
}

// ParseSpeakers behaves like Parse with custom speaker tags. The first
// speaker doubles as the fallback for untagged lines.
func ParseSpeakers(script string, speakers ...string) []Line {
	if len(speakers) == 0 {
		speakers = []string{SpeakerHostA, SpeakerHostB}
	}

	var lines []Line
	for _, raw := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(stripMarkup(raw))
		if trimmed == "" {
			continue
		}

		speaker, text := attribute(trimmed, speakers)
		if text == "" {
			continue
		}
		lines = append(lines, Line{Speaker: speaker, Text: text})
	}
	return lines
}

func attribute(line string, speakers []string) (string, string) {
	for _, speaker := range speakers {
		rest, ok := matchPrefix(line, speaker)
		if ok {
			return speaker, strings.TrimSpace(rest)
		}
	}
	return speakers[0], line
}

// matchPrefix recognizes "<speaker>:" case-insensitively, tolerating spaces
// before the colon and an optional parenthetical annotation such as
// "Host B (excited):". The annotation is stripped, not spoken.
func matchPrefix(line, speaker string) (string, bool) {
	if len(line) < len(speaker) {
		return "", false
	}
	if !strings.EqualFold(line[:len(speaker)], speaker) {
		return "", false
	}
	rest := line[len(speaker):]
	rest = strings.TrimLeft(rest, " \t")
	if strings.HasPrefix(rest, "(") {
		closing := strings.Index(rest, ")")
		if closing < 0 {
			return "", false
		}
		rest = strings.TrimLeft(rest[closing+1:], " \t")
	}
	if !strings.HasPrefix(rest, ":") {
		return "", false
	}
	return rest[1:], true
}

// stripMarkup removes markdown emphasis the model occasionally wraps around
// speaker tags.
func stripMarkup(line string) string {
	return strings.NewReplacer("**", "", "__", "").Replace(line)
}
