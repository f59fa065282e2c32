package chunk

import "strings"

// Window is a half-open range [Start, End) over a token sequence.
type Window struct {
	Start int
	End   int
}

func (w Window) Len() int {
	return w.End - w.Start
}

// TokenWindows covers n tokens with windows of at most size tokens that overlap by overlap tokens.
func TokenWindows(n, size, overlap int) []Window {
	if n <= 0 || size <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	step := size - overlap
	out := make([]Window, 0, n/step+1)
	for start := 0; start < n; start += step {
		end := min(start+size, n)
		out = append(out, Window{Start: start, End: end})
		if end == n {
			break
		}
	}
	return out
}

type Segment struct {
	Index     int
	StartWord int
	EndWord   int
	Text      string
}

// SlidingWindow splits text into whitespace-word segments for inputs too long to analyse in one piece.
func SlidingWindow(text string, segmentWords, overlapWords int) []Segment {
	words := strings.Fields(text)
	windows := TokenWindows(len(words), segmentWords, overlapWords)
	if len(windows) == 0 {
		return nil
	}
	segments := make([]Segment, 0, len(windows))
	for i, w := range windows {
		segments = append(segments, Segment{
			Index:     i,
			StartWord: w.Start,
			EndWord:   w.End,
			Text:      strings.Join(words[w.Start:w.End], " "),
		})
	}
	return segments
}
