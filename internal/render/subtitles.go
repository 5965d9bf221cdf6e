package render

import (
	"fmt"
	"strings"

	"blogcast/internal/timeline"
)

// assHeader is the static preamble of the generated subtitle track. PlayRes
// matches the render resolution so margins scale predictably.
const assHeader = `[Script Info]
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
WrapStyle: 0

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: HostA,Arial,52,&H00FFFFFF,&H000000FF,&H00303030,&H80000000,0,0,0,0,100,100,0,0,1,3,1,2,80,80,60,1
Style: HostB,Arial,52,&H00D7F5FF,&H000000FF,&H00303030,&H80000000,0,0,0,0,100,100,0,0,1,3,1,2,80,80,60,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`

// Subtitles renders the cue timeline as an ASS subtitle track with one
// styled dialogue event per cue.
func Subtitles(cues []timeline.Cue, width, height int) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, assHeader, width, height)
	for _, cue := range cues {
		style := "HostA"
		if strings.EqualFold(cue.Speaker, "Host B") {
			style = "HostB"
		}
		fmt.Fprintf(&builder, "Dialogue: 0,%s,%s,%s,%s,0,0,0,,%s\n",
			assTimestamp(cue.Start),
			assTimestamp(cue.End),
			style,
			strings.ReplaceAll(escapeASS(cue.Speaker), ",", " "),
			escapeASS(cue.Text),
		)
	}
	return builder.String()
}

// assTimestamp formats seconds as H:MM:SS.CC (centisecond precision).
func assTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	centis := int(seconds*100 + 0.5)
	hours := centis / 360000
	centis %= 360000
	minutes := centis / 6000
	centis %= 6000
	secs := centis / 100
	centis %= 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centis)
}

// escapeASS neutralizes override blocks and hard newlines. Commas are safe
// in the trailing Text field.
func escapeASS(text string) string {
	replacer := strings.NewReplacer("\n", "\\N", "{", "(", "}", ")")
	return replacer.Replace(text)
}
