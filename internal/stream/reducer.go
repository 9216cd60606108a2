package stream

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/streamagent/streamchat-go/internal/models"
)

// Result carries the side signals of one fold. Terminal is true for
// done and error frames; SessionID is the server-assigned conversation
// id from a done payload, when present.
// Anomaly marks a fold that degraded to a no-op because a known frame
// type carried an unparseable payload.
type Result struct {
	Terminal   bool
	Failed     bool
	ErrMessage string
	SessionID  string
	Anomaly    bool
}

// Reducer folds normalized frames into a transcript message. Apply is
// a pure function over a message snapshot: it returns a new value and
// never mutates its input. It also never fails; a malformed payload
// inside a known frame type degrades to a logged no-op so one bad
// frame cannot corrupt an otherwise healthy transcript.
type Reducer struct {
	logger *slog.Logger
}

// NewReducer creates a reducer. A nil logger falls back to
// slog.Default.
func NewReducer(logger *slog.Logger) *Reducer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reducer{logger: logger}
}

// toolEndPayload tolerates both the documented {output, durationMs}
// form and the producer's {name, output} form.
type toolEndPayload struct {
	Name       string `json:"name"`
	Output     string `json:"output"`
	DurationMs *int64 `json:"durationMs"`
}

// citationPayload accepts the documented field names alongside the
// retrieval service's chunk-oriented ones.
type citationPayload struct {
	SourceID       string   `json:"sourceId"`
	ChunkID        string   `json:"chunkId"`
	SourceLabel    string   `json:"sourceLabel"`
	DocumentName   string   `json:"documentName"`
	PageNumber     *int     `json:"pageNumber"`
	Section        *string  `json:"section"`
	Snippet        string   `json:"snippet"`
	ContentPreview string   `json:"contentPreview"`
	Content        string   `json:"content"`
	RelevanceScore *float64 `json:"relevanceScore"`
	Score          *float64 `json:"score"`
}

// donePayload tolerates the conversation id under any of the keys the
// producer has used across versions.
type donePayload struct {
	SessionID       string `json:"sessionId"`
	ConversationID  string `json:"conversationId"`
	ConversationID2 string `json:"conversation_id"`
}

func (p donePayload) id() string {
	switch {
	case p.SessionID != "":
		return p.SessionID
	case p.ConversationID != "":
		return p.ConversationID
	default:
		return p.ConversationID2
	}
}

// Apply folds one frame into msg and returns the new message snapshot.
func (r *Reducer) Apply(msg models.Message, f Frame) (models.Message, Result) {
	out := msg.Clone()

	switch f.Type {
	case EventText:
		out.Content += f.Payload
		return out, Result{}

	case EventToolStart:
		out.ToolInvocations = append(out.ToolInvocations, models.ToolInvocation{
			Name:   f.Payload,
			Status: models.ToolRunning,
		})
		return out, Result{}

	case EventToolEnd:
		var p toolEndPayload
		if err := json.Unmarshal([]byte(f.Payload), &p); err != nil {
			r.logger.Warn("malformed tool_end payload, skipping frame", "error", err)
			return out, Result{Anomaly: true}
		}
		i := out.LastRunning()
		if i < 0 {
			r.logger.Warn("tool_end without a running invocation, skipping frame",
				"tool", p.Name)
			return out, Result{Anomaly: true}
		}
		out.ToolInvocations[i].Status = models.ToolSuccess
		output := p.Output
		out.ToolInvocations[i].Output = &output
		if p.DurationMs != nil {
			v := *p.DurationMs
			out.ToolInvocations[i].DurationMs = &v
		}
		return out, Result{}

	case EventCitation:
		var p citationPayload
		if err := json.Unmarshal([]byte(f.Payload), &p); err != nil {
			r.logger.Warn("malformed citation payload, skipping frame", "error", err)
			return out, Result{Anomaly: true}
		}
		out.Citations = append(out.Citations, p.toCitation())
		return out, Result{}

	case EventError:
		reason := strings.TrimSpace(f.Payload)
		if reason == "" {
			reason = "stream reported an error"
		}
		return out, Result{Terminal: true, Failed: true, ErrMessage: reason}

	case EventDone:
		var p donePayload
		if err := json.Unmarshal([]byte(f.Payload), &p); err != nil {
			// Still terminal: the stream is over, only the session id
			// was lost.
			r.logger.Warn("malformed done payload", "error", err)
			out.Pending = false
			return out, Result{Terminal: true, Anomaly: true}
		}
		out.Pending = false
		return out, Result{Terminal: true, SessionID: p.id()}

	default:
		// Unknown frame types are ignored for forward compatibility.
		r.logger.Debug("ignoring unknown frame type", "type", f.Type)
		return out, Result{}
	}
}

func (p citationPayload) toCitation() models.Citation {
	c := models.Citation{
		SourceID:    p.SourceID,
		SourceLabel: p.SourceLabel,
		PageNumber:  p.PageNumber,
		Section:     p.Section,
		Snippet:     p.Snippet,
	}
	if c.SourceID == "" {
		c.SourceID = p.ChunkID
	}
	if c.SourceLabel == "" {
		c.SourceLabel = p.DocumentName
	}
	if c.Snippet == "" {
		if p.ContentPreview != "" {
			c.Snippet = p.ContentPreview
		} else {
			c.Snippet = p.Content
		}
	}
	switch {
	case p.RelevanceScore != nil:
		c.RelevanceScore = *p.RelevanceScore
	case p.Score != nil:
		c.RelevanceScore = *p.Score
	}
	return c
}
