package stream_test

import (
	"testing"

	"github.com/streamagent/streamchat-go/internal/stream"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeDecodesBase64(t *testing.T) {
	f := stream.Normalize(stream.Frame{Type: stream.EventText, Payload: b64("héllo\nworld")})
	assert.Equal(t, stream.EventText, f.Type)
	assert.Equal(t, "héllo\nworld", f.Payload)
}

func TestNormalizeKeepsDeclaredType(t *testing.T) {
	f := stream.Normalize(stream.Frame{Type: stream.EventToolStart, Payload: b64("search")})
	assert.Equal(t, stream.EventToolStart, f.Type)
	assert.Equal(t, "search", f.Payload)
}

// A payload that fails to decode passes through as plain text so the
// transcript never loses data when framing breaks.
func TestNormalizeDecodeFailureDegradesToText(t *testing.T) {
	f := stream.Normalize(stream.Frame{Type: stream.EventToolEnd, Payload: "%%not base64%%"})
	assert.Equal(t, stream.EventText, f.Type)
	assert.Equal(t, "%%not base64%%", f.Payload)
}
