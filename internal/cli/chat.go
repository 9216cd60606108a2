package cli

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/streamagent/streamchat-go/internal/models"
	"github.com/streamagent/streamchat-go/internal/turn"
)

var (
	chatSessionID string
	chatImages    []string
	chatPlain     bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a message and stream the assistant reply",
	Long: `Send a message and stream the assistant reply as it is generated,
including tool executions and retrieval citations.

Without a message argument an interactive loop is started: each input
line is sent as one turn. Press Ctrl+C to cancel an in-flight turn
without losing the content streamed so far.

Examples:
  streamchat chat "Summarize the latest arXiv papers on RAG"
  streamchat chat -s 0b2f361e "And compare them to GraphRAG"
  streamchat chat --image chart.png "What does this chart show?"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatSessionID, "session", "s", "", "continue an existing conversation")
	chatCmd.Flags().StringSliceVar(&chatImages, "image", nil, "attach image file(s) to the message")
	chatCmd.Flags().BoolVar(&chatPlain, "no-tui", false, "disable the TUI, print the stream incrementally")
}

func runChat(cmd *cobra.Command, args []string) error {
	images, err := loadImages(chatImages)
	if err != nil {
		return err
	}

	controller := turn.NewController(apiClient, directory, logger, collector)
	sessionID := chatSessionID

	runOne := func(content string) error {
		req := turn.Request{
			SessionID: sessionID,
			Content:   content,
			Images:    images,
			APIKeys:   cfg.APIKeys,
		}
		// Attachments ride on the first turn only.
		images = nil

		var msg models.Message
		var outcome models.StreamOutcome
		if useTUI() {
			msg, outcome, err = runChatTUI(controller, req)
		} else {
			msg, outcome, err = runPlainTurn(controller, req)
		}
		if err != nil {
			return err
		}

		// A new session learned mid-stream becomes the target of
		// follow-up turns in this loop.
		if sessionID == "" {
			if active, ok := directory.Active(); ok {
				sessionID = active.ID
			}
		}

		reportOutcome(msg, outcome)
		return nil
	}

	if len(args) == 1 {
		if err := runOne(args[0]); err != nil {
			return err
		}
	} else {
		if err := chatLoop(runOne); err != nil {
			return err
		}
	}

	if verbose {
		printTurnStats()
	}
	return nil
}

// chatLoop reads input lines and sends each as one turn.
func chatLoop(runOne func(string) error) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if err := runOne(line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

// runPlainTurn streams one turn to stdout without the TUI. Ctrl+C
// aborts the transport; content folded so far is kept.
func runPlainTurn(controller *turn.Controller, req turn.Request) (models.Message, models.StreamOutcome, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := newPlainRenderer(os.Stdout)
	msg, outcome, err := controller.Run(ctx, req, r.observe)
	fmt.Println()
	return msg, outcome, err
}

func reportOutcome(msg models.Message, outcome models.StreamOutcome) {
	switch outcome.Status {
	case models.OutcomeCancelled:
		fmt.Fprintln(os.Stderr, "(cancelled, partial reply kept)")
	case models.OutcomeFailed:
		// The partial transcript was already rendered; never a blank
		// bubble.
		fmt.Fprintf(os.Stderr, "(failed: %s)\n", outcome.Reason)
	}

	for _, tool := range msg.ToolInvocations {
		if tool.Status == models.ToolRunning {
			fmt.Fprintf(os.Stderr, "(tool %s never reported completion)\n", tool.Name)
		}
	}
}

func useTUI() bool {
	return !chatPlain && term.IsTerminal(int(os.Stdout.Fd()))
}

// loadImages reads attachment files and encodes them for the request
// body.
func loadImages(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", p, err)
		}
		out = append(out, base64.StdEncoding.EncodeToString(data))
	}
	return out, nil
}

// plainRenderer prints transcript deltas as snapshots arrive. Content
// is append-only so each snapshot only ever adds a suffix.
type plainRenderer struct {
	w          io.Writer
	printed    int
	toolStatus []models.ToolStatus
	citations  int
}

func newPlainRenderer(w io.Writer) *plainRenderer {
	return &plainRenderer{w: w}
}

func (r *plainRenderer) observe(msg models.Message) {
	if len(msg.Content) > r.printed {
		fmt.Fprint(r.w, msg.Content[r.printed:])
		r.printed = len(msg.Content)
	}

	for i, tool := range msg.ToolInvocations {
		if i >= len(r.toolStatus) {
			r.toolStatus = append(r.toolStatus, tool.Status)
			fmt.Fprintf(r.w, "\n[tool %s running]\n", tool.Name)
			continue
		}
		if r.toolStatus[i] == models.ToolRunning && tool.Status != models.ToolRunning {
			r.toolStatus[i] = tool.Status
			if tool.DurationMs != nil {
				fmt.Fprintf(r.w, "\n[tool %s %s in %dms]\n", tool.Name, tool.Status, *tool.DurationMs)
			} else {
				fmt.Fprintf(r.w, "\n[tool %s %s]\n", tool.Name, tool.Status)
			}
		}
	}

	for ; r.citations < len(msg.Citations); r.citations++ {
		c := msg.Citations[r.citations]
		fmt.Fprintf(r.w, "\n[cite %s (%.2f)]\n", c.SourceLabel, c.RelevanceScore)
	}
}

func printTurnStats() {
	snap := collector.Snapshot()
	if snap.Turn == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "turns: %d, avg %.0fms", snap.Turn.Count, snap.Turn.AvgTimeMs)
	if snap.Turn.TotalFrames != nil {
		fmt.Fprintf(os.Stderr, ", frames: %d", *snap.Turn.TotalFrames)
	}
	if snap.Turn.TotalBytes != nil {
		fmt.Fprintf(os.Stderr, ", bytes: %d", *snap.Turn.TotalBytes)
	}
	if snap.Turn.TotalAnomalies != nil && *snap.Turn.TotalAnomalies > 0 {
		fmt.Fprintf(os.Stderr, ", anomalies: %d", *snap.Turn.TotalAnomalies)
	}
	if snap.StreamOpen != nil {
		fmt.Fprintf(os.Stderr, ", open avg %.0fms", snap.StreamOpen.AvgTimeMs)
	}
	fmt.Fprintln(os.Stderr)
}
