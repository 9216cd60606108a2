package cli

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/streamagent/streamchat-go/internal/models"
	"github.com/streamagent/streamchat-go/internal/turn"
)

// Theme holds the color scheme for the chat display.
type Theme struct {
	User    lipgloss.Color
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	User:    lipgloss.Color("#AF87FF"), // purple
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

// Style functions for dynamic theming
func (t Theme) userStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.User).Bold(true)
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) successStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// snapshotMsg carries one transcript snapshot from the stream.
type snapshotMsg struct {
	message models.Message
}

// turnDoneMsg carries the final transcript and outcome of the turn.
type turnDoneMsg struct {
	message models.Message
	outcome models.StreamOutcome
	err     error
}

// chatModel is the bubbletea model for a streaming turn.
type chatModel struct {
	controller *turn.Controller
	req        turn.Request
	ctx        context.Context
	cancel     context.CancelFunc

	// updates is fed by the stream observer and drained by waitUpdate.
	// Sends are non-blocking: a dropped snapshot is superseded by the
	// next one, and turnDoneMsg carries the final state regardless.
	updates chan models.Message

	spinner    spinner.Model
	theme      Theme
	prompt     string
	current    models.Message
	outcome    models.StreamOutcome
	err        error
	done       bool
	cancelling bool
}

// newChatModel creates a chat model and the context driving the turn.
func newChatModel(controller *turn.Controller, req turn.Request) chatModel {
	ctx, cancel := context.WithCancel(context.Background())

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return chatModel{
		controller: controller,
		req:        req,
		ctx:        ctx,
		cancel:     cancel,
		updates:    make(chan models.Message, 64),
		spinner:    sp,
		theme:      defaultTheme,
		prompt:     req.Content,
	}
}

// Init starts the turn and the snapshot pump.
func (m chatModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.startTurn(),
		m.waitUpdate(),
	)
}

// Update handles messages and returns the updated model.
func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.done {
				return m, tea.Quit
			}
			// First press aborts the turn; the stream goroutine
			// reports back through turnDoneMsg with what was kept.
			m.cancelling = true
			m.cancel()
			return m, nil
		case "q", "enter":
			if m.done {
				return m, tea.Quit
			}
		}

	case snapshotMsg:
		m.current = msg.message
		return m, m.waitUpdate()

	case turnDoneMsg:
		m.current = msg.message
		m.outcome = msg.outcome
		m.err = msg.err
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the transcript as it currently stands.
func (m chatModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m chatModel) renderContent() string {
	var b strings.Builder

	b.WriteString(m.theme.userStyle().Render("you") + "  " + m.prompt + "\n\n")

	if m.current.Content != "" {
		b.WriteString(m.current.Content)
		b.WriteString("\n")
	}

	for _, tool := range m.current.ToolInvocations {
		b.WriteString(m.renderTool(tool))
	}

	for _, c := range m.current.Citations {
		line := fmt.Sprintf("  ▸ %s (%.2f)", c.SourceLabel, c.RelevanceScore)
		b.WriteString(m.theme.hintStyle().Render(line) + "\n")
	}

	b.WriteString(m.statusLine())
	return b.String()
}

func (m chatModel) renderTool(tool models.ToolInvocation) string {
	switch tool.Status {
	case models.ToolRunning:
		if m.done {
			// Terminal frame arrived with this tool still open.
			return m.theme.hintStyle().Render(fmt.Sprintf("  ? %s (no completion reported)", tool.Name)) + "\n"
		}
		return "  " + m.theme.statusStyle().Render(m.spinner.View()+" "+tool.Name) + "\n"
	case models.ToolError:
		return m.theme.errorStyle().Render(fmt.Sprintf("  ✗ %s", tool.Name)) + "\n"
	default:
		line := fmt.Sprintf("  ✓ %s", tool.Name)
		if tool.DurationMs != nil {
			line += fmt.Sprintf(" (%dms)", *tool.DurationMs)
		}
		return m.theme.successStyle().Render(line) + "\n"
	}
}

// statusLine renders the footer below the transcript.
func (m chatModel) statusLine() string {
	if !m.done {
		if m.cancelling {
			return m.theme.hintStyle().Render("\ncancelling...\n")
		}
		return m.theme.hintStyle().Render("\nCtrl+C to cancel\n")
	}

	switch {
	case m.err != nil:
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ %s\n", m.err))
	case m.outcome.Status == models.OutcomeFailed:
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ %s\n", m.outcome.Reason))
	case m.outcome.Status == models.OutcomeCancelled:
		return m.theme.hintStyle().Render("\n(cancelled, partial reply kept)\n")
	}
	return ""
}

// startTurn runs the turn in a command goroutine. The observer feeds
// snapshots into the channel; the channel is closed once Run returns
// so waitUpdate can drain and stop.
func (m chatModel) startTurn() tea.Cmd {
	return func() tea.Msg {
		observe := func(snapshot models.Message) {
			select {
			case m.updates <- snapshot:
			default:
			}
		}

		message, outcome, err := m.controller.Run(m.ctx, m.req, observe)
		close(m.updates)
		return turnDoneMsg{message: message, outcome: outcome, err: err}
	}
}

// waitUpdate blocks on the next snapshot from the stream.
func (m chatModel) waitUpdate() tea.Cmd {
	return func() tea.Msg {
		snapshot, ok := <-m.updates
		if !ok {
			return nil
		}
		return snapshotMsg{message: snapshot}
	}
}

// runChatTUI runs the interactive streaming view for one turn and
// returns the final transcript and outcome, mirroring Controller.Run.
func runChatTUI(controller *turn.Controller, req turn.Request) (models.Message, models.StreamOutcome, error) {
	model := newChatModel(controller, req)
	defer model.cancel()

	p := tea.NewProgram(model)
	finalModel, err := p.Run()
	if err != nil {
		return models.Message{}, models.StreamOutcome{}, fmt.Errorf("chat UI error: %w", err)
	}

	m, ok := finalModel.(chatModel)
	if !ok {
		return models.Message{}, models.StreamOutcome{}, fmt.Errorf("unexpected final model type")
	}
	return m.current, m.outcome, m.err
}
