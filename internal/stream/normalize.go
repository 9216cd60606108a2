package stream

import "encoding/base64"

// Normalize decodes a frame's transport encoding. Payloads are base64
// encoded by the producer so multi-line content survives the
// line-delimited transport.
//
// A payload that fails to decode is passed through verbatim as a text
// frame regardless of its declared type: broken framing must never
// lose transcript data, it only loses metadata.
func Normalize(f Frame) Frame {
	decoded, err := base64.StdEncoding.DecodeString(f.Payload)
	if err != nil {
		return Frame{Type: EventText, Payload: f.Payload}
	}
	return Frame{Type: f.Type, Payload: string(decoded)}
}
