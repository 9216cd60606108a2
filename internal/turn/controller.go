// Package turn orchestrates one request/stream lifecycle: it opens the
// transport, drives bytes through the decoder, normalizer and reducer,
// publishes incremental snapshots to an observer, and reconciles a
// server-assigned session identity into the session directory.
package turn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/streamagent/streamchat-go/internal/client"
	"github.com/streamagent/streamchat-go/internal/metrics"
	"github.com/streamagent/streamchat-go/internal/models"
	"github.com/streamagent/streamchat-go/internal/session"
	"github.com/streamagent/streamchat-go/internal/stream"
)

// ErrTurnInFlight indicates a turn is already streaming on the
// conversation. Overlapping turns are rejected, not queued.
var ErrTurnInFlight = errors.New("turn already in flight")

// readBufferSize is the transport read granularity. Frames routinely
// split across reads; the decoder reassembles them.
const readBufferSize = 4096

// Lifecycle phases, logged as the turn advances. Finalizing,
// Cancelling and Failing are absorbing: once entered, no further
// frames are folded even if bytes are already buffered.
const (
	phaseIdle       = "idle"
	phaseOpening    = "opening"
	phaseStreaming  = "streaming"
	phaseFinalizing = "finalizing"
	phaseCancelling = "cancelling"
	phaseFailing    = "failing"
)

// Transport opens one streamed turn request against the backend.
// *client.Client satisfies it.
type Transport interface {
	OpenChatStream(ctx context.Context, req client.ChatRequest) (*client.ChatStream, error)
}

// Observer receives the updated message snapshot after each fold.
// Delivery of intermediate states is at-least-once.
type Observer func(models.Message)

// Request describes one turn: optional existing session, the new user
// content, optional inline attachments and per-call key overrides.
type Request struct {
	SessionID string
	Content   string
	Images    []string
	APIKeys   map[string]string
}

// Controller runs turns. It is safe for use across conversations; at
// most one turn per conversation may be in flight at a time.
type Controller struct {
	transport Transport
	directory *session.Directory
	reducer   *stream.Reducer
	logger    *slog.Logger
	collector *metrics.Collector

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewController creates a turn controller. Directory, logger and
// collector may be nil; nil disables the respective side effect.
func NewController(transport Transport, directory *session.Directory, logger *slog.Logger, collector *metrics.Collector) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		transport: transport,
		directory: directory,
		reducer:   stream.NewReducer(logger),
		logger:    logger,
		collector: collector,
		inFlight:  make(map[string]bool),
	}
}

// Run executes one turn to completion. It blocks until the stream
// reaches a terminal state; cancel ctx to abort the transport. The
// returned message always carries whatever content was folded before
// the terminal transition, and the outcome is produced exactly once.
//
// The only error return is ErrTurnInFlight; every stream-level failure
// is reported through the outcome instead so partial transcripts are
// never lost behind an error path.
func (c *Controller) Run(ctx context.Context, req Request, observe Observer) (models.Message, models.StreamOutcome, error) {
	if !c.acquire(req.SessionID) {
		return models.Message{}, models.StreamOutcome{}, fmt.Errorf("%w: session %q", ErrTurnInFlight, req.SessionID)
	}
	defer c.release(req.SessionID)

	// The placeholder is appended before any network activity so the
	// caller can show progress immediately.
	msg := models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleAssistant,
		Pending:   true,
		CreatedAt: time.Now(),
	}
	publish(observe, msg)

	started := time.Now()
	c.logger.Debug("turn state", "phase", phaseOpening, "session", req.SessionID)

	s, err := c.transport.OpenChatStream(ctx, client.ChatRequest{
		ConversationID: req.SessionID,
		Content:        req.Content,
		Images:         req.Images,
		APIKeys:        req.APIKeys,
	})
	if c.collector != nil {
		c.collector.RecordTiming(metrics.OpStreamOpen, time.Since(started))
	}
	if err != nil {
		if ctx.Err() != nil {
			return c.finish(msg, observe, phaseCancelling, models.StreamOutcome{Status: models.OutcomeCancelled}, started, 0, 0, 0)
		}
		return c.finish(msg, observe, phaseFailing, models.StreamOutcome{
			Status: models.OutcomeFailed,
			Reason: err.Error(),
		}, started, 0, 0, 0)
	}
	defer s.Body.Close()

	c.logger.Debug("turn state", "phase", phaseStreaming, "session", req.SessionID)

	decoder := stream.NewDecoder()
	buf := make([]byte, readBufferSize)

	var frames, bytesRead, anomalies int64

	fold := func(fs []stream.Frame) (stream.Result, bool) {
		for _, f := range fs {
			// Abort requested: buffered frames are not folded.
			if ctx.Err() != nil {
				return stream.Result{}, false
			}
			frames++
			var res stream.Result
			msg, res = c.reducer.Apply(msg, stream.Normalize(f))
			if res.Anomaly {
				anomalies++
			}
			publish(observe, msg)
			if res.Terminal {
				return res, true
			}
		}
		return stream.Result{}, false
	}

	for {
		n, readErr := s.Body.Read(buf)
		if n > 0 {
			bytesRead += int64(n)
			if res, terminal := fold(decoder.Write(buf[:n])); terminal {
				return c.terminal(req, s, msg, observe, res, started, frames, bytesRead, anomalies)
			}
		}
		if ctx.Err() != nil {
			return c.finish(msg, observe, phaseCancelling, models.StreamOutcome{Status: models.OutcomeCancelled}, started, frames, bytesRead, anomalies)
		}
		if readErr != nil {
			if res, terminal := fold(decoder.Flush()); terminal {
				return c.terminal(req, s, msg, observe, res, started, frames, bytesRead, anomalies)
			}
			reason := "stream ended before terminal frame"
			if !errors.Is(readErr, io.EOF) {
				reason = readErr.Error()
			}
			return c.finish(msg, observe, phaseFailing, models.StreamOutcome{
				Status: models.OutcomeFailed,
				Reason: reason,
			}, started, frames, bytesRead, anomalies)
		}
	}
}

// terminal resolves a done or error frame into the final outcome and,
// for a newly created session, registers it in the directory.
func (c *Controller) terminal(req Request, s *client.ChatStream, msg models.Message, observe Observer, res stream.Result, started time.Time, frames, bytesRead, anomalies int64) (models.Message, models.StreamOutcome, error) {
	if res.Failed {
		return c.finish(msg, observe, phaseFailing, models.StreamOutcome{
			Status: models.OutcomeFailed,
			Reason: res.ErrMessage,
		}, started, frames, bytesRead, anomalies)
	}

	if req.SessionID == "" {
		id := res.SessionID
		if id == "" {
			id = s.ConversationID
		}
		if id != "" && c.directory != nil {
			title := turnTitle(req.Content)
			c.directory.Register(models.Session{
				ID:        id,
				Title:     title,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			})
			c.logger.Info("registered new session", "session", id, "title", title)
		}
	}

	return c.finish(msg, observe, phaseFinalizing, models.StreamOutcome{Status: models.OutcomeCompleted}, started, frames, bytesRead, anomalies)
}

// finish marks the message non-pending, publishes the final snapshot
// and records turn metrics. No rollback: folded content is kept for
// every outcome.
func (c *Controller) finish(msg models.Message, observe Observer, phase string, outcome models.StreamOutcome, started time.Time, frames, bytesRead, anomalies int64) (models.Message, models.StreamOutcome, error) {
	c.logger.Debug("turn state", "phase", phase, "outcome", string(outcome.Status), "reason", outcome.Reason)

	if msg.Pending {
		msg.Pending = false
		publish(observe, msg)
	}
	if c.collector != nil {
		c.collector.RecordTurn(time.Since(started), frames, bytesRead, anomalies)
	}
	return msg, outcome, nil
}

// acquire reserves the conversation for one turn. The empty id guards
// not-yet-created sessions: at most one unbound turn at a time, since
// two of them could race to register the same new session.
func (c *Controller) acquire(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[sessionID] {
		return false
	}
	c.inFlight[sessionID] = true
	return true
}

func (c *Controller) release(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, sessionID)
}

func publish(observe Observer, msg models.Message) {
	if observe != nil {
		observe(msg)
	}
}

// turnTitle derives a session title from the first user message, the
// same way the backend does.
func turnTitle(content string) string {
	const max = 50
	runes := []rune(content)
	if len(runes) > max {
		return string(runes[:max]) + "..."
	}
	return content
}
