package main

import (
	"bytes"
	"strings"
)

// EventKind tells a sink how to apply a StreamEvent.
type EventKind int

const (
	// FullLine is a finished line of output; it is appended.
	FullLine EventKind = iota
	// ProgressUpdate redraws the in-place progress line.
	ProgressUpdate
	// SpinnerTick redraws the in-place line with a spinner glyph.
	SpinnerTick
	// Terminated marks the end of the child's output.
	Terminated
)

func (k EventKind) String() string {
	switch k {
	case FullLine:
		return "line"
	case ProgressUpdate:
		return "progress"
	case SpinnerTick:
		return "spinner"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ExitInfo describes how the child process ended.
type ExitInfo struct {
	Code int
	Err  error
}

// StreamEvent is one classified chunk of child output.
type StreamEvent struct {
	Kind EventKind
	Text string
	Exit *ExitInfo
}

// ReplacesLast reports whether the event overwrites the in-place line
// rather than adding a new one.
func (e StreamEvent) ReplacesLast() bool {
	return e.Kind == ProgressUpdate || e.Kind == SpinnerTick
}

// ChunkClassifier recognises one shape of output chunk.
// Implement this interface to teach the streamer about other redraw
// conventions.
type ChunkClassifier interface {
	// Name returns the classifier name (for logging)
	Name() string

	// Matches returns true if this classifier handles the chunk
	Matches(chunk string) bool

	// Classify builds the event for a matching chunk
	Classify(chunk string) StreamEvent
}

// registeredClassifiers holds the active classifiers in priority order.
// A chunk that none of them matches is a FullLine.
var registeredClassifiers = []ChunkClassifier{
	&CarriageReturnClassifier{},
	&ByteSizeClassifier{},
	&SpinnerClassifier{},
}

// RegisterClassifier adds a classifier at the highest priority.
func RegisterClassifier(c ChunkClassifier) {
	registeredClassifiers = append([]ChunkClassifier{c}, registeredClassifiers...)
}

// Classify maps one chunk of output to a StreamEvent. The result
// depends only on the chunk's content.
func Classify(chunk string) StreamEvent {
	for _, c := range registeredClassifiers {
		if c.Matches(chunk) {
			return c.Classify(chunk)
		}
	}
	return StreamEvent{Kind: FullLine, Text: strings.TrimRight(chunk, " \t\r\n")}
}

// =============================================================================
// Built-in Classifiers
// =============================================================================

// CarriageReturnClassifier handles chunks that return the cursor to
// column zero, the usual way a terminal progress bar redraws itself.
type CarriageReturnClassifier struct{}

func (c *CarriageReturnClassifier) Name() string { return "carriage-return" }

func (c *CarriageReturnClassifier) Matches(chunk string) bool {
	return strings.Contains(chunk, "\r")
}

func (c *CarriageReturnClassifier) Classify(chunk string) StreamEvent {
	return StreamEvent{Kind: ProgressUpdate, Text: strings.TrimSpace(strings.ReplaceAll(chunk, "\r", ""))}
}

// ByteSizeClassifier handles download counters ("1.50 MB / 20.0 MB")
// printed without a carriage return.
type ByteSizeClassifier struct{}

func (c *ByteSizeClassifier) Name() string { return "byte-size" }

func (c *ByteSizeClassifier) Matches(chunk string) bool {
	return strings.Contains(chunk, "KB") || strings.Contains(chunk, "MB")
}

func (c *ByteSizeClassifier) Classify(chunk string) StreamEvent {
	return StreamEvent{Kind: ProgressUpdate, Text: strings.TrimSpace(chunk)}
}

// SpinnerClassifier handles the single-glyph spinner frames winget
// prints while it waits.
type SpinnerClassifier struct{}

func (c *SpinnerClassifier) Name() string { return "spinner" }

// spinnerGlyphs are the frames of winget's text spinner.
var spinnerGlyphs = map[string]bool{
	"-":  true,
	"\\": true,
	"|":  true,
	"/":  true,
}

func (c *SpinnerClassifier) Matches(chunk string) bool {
	return spinnerGlyphs[strings.TrimSpace(chunk)]
}

func (c *SpinnerClassifier) Classify(chunk string) StreamEvent {
	return StreamEvent{Kind: SpinnerTick, Text: strings.TrimSpace(chunk)}
}

// =============================================================================
// Chunking
// =============================================================================

// splitChunks is a bufio.SplitFunc that yields one chunk per line or
// per carriage-return redraw. The terminator stays on the token so the
// classifier can see it; CRLF is folded into a plain newline.
func splitChunks(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	i := bytes.IndexAny(data, "\r\n")
	if i < 0 {
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
	if data[i] == '\n' {
		return i + 1, data[:i+1], nil
	}
	// A trailing CR may be the first half of CRLF.
	if i+1 == len(data) && !atEOF {
		return 0, nil, nil
	}
	if i+1 < len(data) && data[i+1] == '\n' {
		line := make([]byte, 0, i+1)
		line = append(line, data[:i]...)
		line = append(line, '\n')
		return i + 2, line, nil
	}
	return i + 1, data[:i+1], nil
}
