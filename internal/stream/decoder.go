package stream

import (
	"bytes"
	"strings"
)

// Line prefixes recognized by the decoder. The producer emits
// "event: <type>" and "data: <payload>" lines separated by blank lines.
const (
	eventPrefix = "event:"
	dataPrefix  = "data:"
)

// Decoder turns successive byte chunks into complete frames. A chunk
// may end mid-line; the remainder is buffered and prefixed onto the
// next chunk, so frame boundaries are independent of read boundaries.
//
// An "event:" line sets the type for the next data line only; without
// one, a data line produces a "text" frame. Empty data lines are
// keepalive padding and produce nothing. Lines that are neither marker
// nor data are skipped silently.
type Decoder struct {
	buf       bytes.Buffer
	eventType string
}

// NewDecoder returns a decoder with an empty buffer.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Write consumes one chunk and returns the frames completed by it.
func (d *Decoder) Write(chunk []byte) []Frame {
	d.buf.Write(chunk)

	var frames []Frame
	for {
		raw := d.buf.Bytes()
		idx := bytes.IndexByte(raw, '\n')
		if idx < 0 {
			break
		}
		line := string(raw[:idx])
		d.buf.Next(idx + 1)

		if f, ok := d.consumeLine(line); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

// Flush drains a trailing unterminated line, if any. Call once at end
// of stream so a truncated final data line is not lost.
func (d *Decoder) Flush() []Frame {
	if d.buf.Len() == 0 {
		return nil
	}
	line := d.buf.String()
	d.buf.Reset()

	if f, ok := d.consumeLine(line); ok {
		return []Frame{f}
	}
	return nil
}

// consumeLine applies one complete line to the decoder state and
// returns the frame it completes, if any.
func (d *Decoder) consumeLine(line string) (Frame, bool) {
	line = strings.TrimRight(line, "\r")

	switch {
	case line == "":
		return Frame{}, false

	case strings.HasPrefix(line, eventPrefix):
		d.eventType = strings.TrimSpace(line[len(eventPrefix):])
		return Frame{}, false

	case strings.HasPrefix(line, dataPrefix):
		payload := strings.TrimPrefix(line[len(dataPrefix):], " ")
		if payload == "" {
			// Keepalive padding, not a frame.
			return Frame{}, false
		}
		typ := d.eventType
		if typ == "" {
			typ = EventText
		}
		// Explicit types are not sticky across frames.
		d.eventType = ""
		return Frame{Type: typ, Payload: payload}, true

	default:
		// Not a recognized marker or data line. Skipping favors
		// availability over strict protocol conformance.
		return Frame{}, false
	}
}
