// Package stream implements the streaming transcript pipeline: an
// incremental frame decoder for the chat event stream, a payload
// normalizer for the transport encoding, and a pure reducer that folds
// decoded frames into a transcript message.
package stream

// Frame types carried on the wire.
const (
	EventText      = "text"
	EventToolStart = "tool_start"
	EventToolEnd   = "tool_end"
	EventCitation  = "citation"
	EventDone      = "done"
	EventError     = "error"
)

// Frame is one decoded (type, payload) unit from the wire stream.
// Payload is the raw data-line content, still transport-encoded; see
// Normalize.
type Frame struct {
	Type    string
	Payload string
}
