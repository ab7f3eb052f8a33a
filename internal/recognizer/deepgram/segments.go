package deepgram

import "strings"

// appendSegment merges a finalized segment, collapsing repeats and
// continuations of the previous one.
func appendSegment(segments []string, transcript string) []string {
	transcript = cleanSegment(transcript)
	if transcript == "" {
		return segments
	}
	if len(segments) == 0 {
		return append(segments, transcript)
	}

	last := segments[len(segments)-1]
	switch {
	case transcript == last, strings.HasPrefix(last, transcript):
		return segments
	case strings.HasPrefix(transcript, last):
		segments[len(segments)-1] = transcript
		return segments
	default:
		return append(segments, transcript)
	}
}

// cleanSegment normalizes transcript whitespace.
func cleanSegment(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
