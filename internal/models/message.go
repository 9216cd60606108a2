// Package models defines data structures for the streamchat client.
package models

import (
	"time"
)

// Role values for a transcript message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ToolStatus is the lifecycle state of a tool invocation.
type ToolStatus string

const (
	ToolRunning ToolStatus = "running"
	ToolSuccess ToolStatus = "success"
	ToolError   ToolStatus = "error"
)

// ToolInvocation is one tool call lifecycle nested inside a Message.
// It is created in "running" state by a tool_start frame; a matching
// tool_end frame transitions it to "success" or "error" and attaches
// output and duration. A stream that ends without the matching tool_end
// leaves it "running".
type ToolInvocation struct {
	Name       string     `json:"name"`
	Status     ToolStatus `json:"status"`
	Output     *string    `json:"output,omitempty"`
	DurationMs *int64     `json:"durationMs,omitempty"`
}

// Citation is one evidence reference attached to a Message.
type Citation struct {
	SourceID       string  `json:"sourceId"`
	SourceLabel    string  `json:"sourceLabel"`
	PageNumber     *int    `json:"pageNumber,omitempty"`
	Section        *string `json:"section,omitempty"`
	Snippet        string  `json:"snippet"`
	RelevanceScore float64 `json:"relevanceScore"`
}

// Message is one entry in a conversation transcript. The ID is
// client-temporary until the server persists the message.
//
// During an in-flight turn Content, ToolInvocations and Citations are
// append-only, and Pending transitions from true to false exactly once.
type Message struct {
	ID              string           `json:"id"`
	Role            string           `json:"role"`
	Content         string           `json:"content"`
	ToolInvocations []ToolInvocation `json:"toolInvocations,omitempty"`
	Citations       []Citation       `json:"citations,omitempty"`
	Pending         bool             `json:"pending"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// Clone returns a deep copy of the message. The reducer folds frames
// into a copy so every published snapshot is an independent value.
func (m Message) Clone() Message {
	out := m
	if m.ToolInvocations != nil {
		out.ToolInvocations = make([]ToolInvocation, len(m.ToolInvocations))
		for i, t := range m.ToolInvocations {
			tc := t
			if t.Output != nil {
				v := *t.Output
				tc.Output = &v
			}
			if t.DurationMs != nil {
				v := *t.DurationMs
				tc.DurationMs = &v
			}
			out.ToolInvocations[i] = tc
		}
	}
	if m.Citations != nil {
		out.Citations = make([]Citation, len(m.Citations))
		for i, c := range m.Citations {
			cc := c
			if c.PageNumber != nil {
				v := *c.PageNumber
				cc.PageNumber = &v
			}
			if c.Section != nil {
				v := *c.Section
				cc.Section = &v
			}
			out.Citations[i] = cc
		}
	}
	return out
}

// LastRunning returns the index of the most recently added running tool
// invocation, or -1 if none. tool_end frames carry no invocation id, so
// matching is last-running-wins.
func (m Message) LastRunning() int {
	for i := len(m.ToolInvocations) - 1; i >= 0; i-- {
		if m.ToolInvocations[i].Status == ToolRunning {
			return i
		}
	}
	return -1
}
