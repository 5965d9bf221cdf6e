// Package timeline computes caption cue timings from measured or estimated
// segment durations. All functions are pure.
package timeline

import "strings"

// Cue is one caption interval in the rendered video.
type Cue struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker"`
}

// Segment pairs a spoken line with its measured clip duration in seconds.
type Segment struct {
	Speaker  string
	Text     string
	Duration float64
}

// Minimum spoken duration and reading speed for the estimate fallback.
const (
	minEstimateSeconds = 2.0
	wordsPerSecond     = 2.5
)

// Build lays segments back to back: the first cue starts at zero and each
// subsequent cue starts where the previous one ended. No gaps, no overlap.
func Build(segments []Segment) []Cue {
	cues := make([]Cue, 0, len(segments))
	cursor := 0.0
	for _, segment := range segments {
		end := cursor + segment.Duration
		cues = append(cues, Cue{
			Start:   cursor,
			End:     end,
			Text:    segment.Text,
			Speaker: segment.Speaker,
		})
		cursor = end
	}
	return cues
}

// EstimateDuration predicts how long a line takes to speak from its word
// count, with a floor for very short lines.
func EstimateDuration(text string) float64 {
	words := len(strings.Fields(text))
	estimated := float64(words) / wordsPerSecond
	if estimated < minEstimateSeconds {
		return minEstimateSeconds
	}
	return estimated
}

// Estimate derives a fallback timeline from script segments when no measured
// durations exist. Segments are consumed in order only while the running
// total still fits inside totalDuration; the remainder is dropped.
func Estimate(segments []Segment, totalDuration float64) []Cue {
	var cues []Cue
	cursor := 0.0
	for _, segment := range segments {
		duration := EstimateDuration(segment.Text)
		if cursor+duration > totalDuration {
			break
		}
		cues = append(cues, Cue{
			Start:   cursor,
			End:     cursor + duration,
			Text:    segment.Text,
			Speaker: segment.Speaker,
		})
		cursor += duration
	}
	return cues
}

// Shift returns a copy of cues with every interval moved by offset seconds.
// Used by the renderer to place captions after the silent intro.
func Shift(cues []Cue, offset float64) []Cue {
	shifted := make([]Cue, len(cues))
	for i, cue := range cues {
		cue.Start += offset
		cue.End += offset
		shifted[i] = cue
	}
	return shifted
}
