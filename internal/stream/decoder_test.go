package stream_test

import (
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/streamagent/streamchat-go/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// event renders one wire unit the way the producer emits it.
func event(typ, payload string) string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", typ, b64(payload))
}

func TestDecoderSingleChunk(t *testing.T) {
	d := stream.NewDecoder()

	frames := d.Write([]byte(event("text", "Hello") + event("done", "{}")))
	require.Len(t, frames, 2)
	assert.Equal(t, stream.EventText, frames[0].Type)
	assert.Equal(t, b64("Hello"), frames[0].Payload)
	assert.Equal(t, stream.EventDone, frames[1].Type)
}

func TestDecoderDefaultTypeIsText(t *testing.T) {
	d := stream.NewDecoder()

	frames := d.Write([]byte("data: " + b64("implicit") + "\n\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, stream.EventText, frames[0].Type)
}

func TestDecoderTypeNotSticky(t *testing.T) {
	d := stream.NewDecoder()

	wire := event("tool_start", "search") + "data: " + b64("after") + "\n\n"
	frames := d.Write([]byte(wire))
	require.Len(t, frames, 2)
	assert.Equal(t, stream.EventToolStart, frames[0].Type)
	assert.Equal(t, stream.EventText, frames[1].Type,
		"type marker must reset after a frame is emitted")
}

func TestDecoderPartialFrameAcrossChunks(t *testing.T) {
	d := stream.NewDecoder()

	wire := event("text", "Hello world")
	var frames []stream.Frame
	// Deliver one byte at a time.
	for i := 0; i < len(wire); i++ {
		frames = append(frames, d.Write([]byte{wire[i]})...)
	}
	require.Len(t, frames, 1)
	assert.Equal(t, stream.EventText, frames[0].Type)
	assert.Equal(t, b64("Hello world"), frames[0].Payload)
}

// Folding the same byte stream delivered whole vs. split at every
// possible position yields identical frames.
func TestDecoderChunkBoundaryIndependence(t *testing.T) {
	wire := event("text", "Hel") + event("text", "lo") +
		event("tool_start", "search") +
		event("tool_end", `{"output":"ok","durationMs":120}`) +
		event("done", `{"conversationId":"abc"}`)

	whole := stream.NewDecoder().Write([]byte(wire))

	for split := 1; split < len(wire); split++ {
		d := stream.NewDecoder()
		frames := d.Write([]byte(wire[:split]))
		frames = append(frames, d.Write([]byte(wire[split:]))...)
		frames = append(frames, d.Flush()...)
		assert.Equal(t, whole, frames, "split at %d diverged", split)
	}
}

func TestDecoderSkipsEmptyDataLines(t *testing.T) {
	d := stream.NewDecoder()

	frames := d.Write([]byte("data: \n\ndata:\n\n" + event("text", "x")))
	require.Len(t, frames, 1)
	assert.Equal(t, b64("x"), frames[0].Payload)
}

func TestDecoderSkipsMalformedLines(t *testing.T) {
	d := stream.NewDecoder()

	wire := "garbage line\n: comment\n" + event("text", "kept")
	frames := d.Write([]byte(wire))
	require.Len(t, frames, 1)
	assert.Equal(t, b64("kept"), frames[0].Payload)
}

func TestDecoderCarriageReturns(t *testing.T) {
	d := stream.NewDecoder()

	frames := d.Write([]byte("event: text\r\ndata: " + b64("crlf") + "\r\n\r\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, b64("crlf"), frames[0].Payload)
}

func TestDecoderFlushDrainsTrailingLine(t *testing.T) {
	d := stream.NewDecoder()

	frames := d.Write([]byte("event: text\ndata: " + b64("truncated")))
	assert.Empty(t, frames, "unterminated line must stay buffered")

	frames = d.Flush()
	require.Len(t, frames, 1)
	assert.Equal(t, b64("truncated"), frames[0].Payload)

	assert.Empty(t, d.Flush(), "flush is idempotent")
}
