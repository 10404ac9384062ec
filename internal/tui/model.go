// Package tui is the terminal chat front end. It renders a client.Session
// and redraws after every transcript update.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/planoeducation/planoeducation/internal/client"
	"github.com/planoeducation/planoeducation/internal/domain"
)

// chrome is the number of lines below the transcript: status and input.
const chrome = 3

var (
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	systemStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// snapshotMsg carries a session update into the program.
type snapshotMsg client.Snapshot

// submitDoneMsg is sent when a submission has finished.
type submitDoneMsg struct {
	err error
}

// Options configures the model.
type Options struct {
	// GlamourStyle is a glamour standard style name; empty means auto.
	GlamourStyle string
}

// Model is the bubbletea model of the chat screen.
type Model struct {
	ctx     context.Context
	session *client.Session
	updates chan client.Snapshot

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	style    string
	renderer *glamour.TermRenderer

	snap    client.Snapshot
	lastErr error
	width   int
	ready   bool
}

// New creates the model and subscribes it to session.
func New(ctx context.Context, session *client.Session, opts Options) Model {
	updates := make(chan client.Snapshot, 64)
	session.Subscribe(func(s client.Snapshot) { publish(updates, s) })

	input := textinput.New()
	input.Placeholder = "Ask something..."
	input.Prompt = "> "
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:      ctx,
		session:  session,
		updates:  updates,
		input:    input,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		style:    opts.GlamourStyle,
		snap:     client.Snapshot{State: session.State(), Transcript: session.Transcript()},
		width:    80,
	}
	m.renderer = newRenderer(m.style, m.width)
	return m
}

func newRenderer(style string, width int) *glamour.TermRenderer {
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return nil
	}
	return r
}

// publish queues s without blocking. When the queue is full the oldest
// snapshot is dropped; each snapshot carries the whole transcript.
func publish(updates chan client.Snapshot, s client.Snapshot) {
	for {
		select {
		case updates <- s:
			return
		default:
		}
		select {
		case <-updates:
		default:
		}
	}
}

// waitForUpdate delivers the next session snapshot.
func waitForUpdate(updates <-chan client.Snapshot) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(<-updates)
	}
}

func (m Model) submit(text string) tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return submitDoneMsg{err: session.Submit(ctx, text)}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForUpdate(m.updates))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chrome, 1)
		m.input.Width = max(msg.Width-4, 1)
		m.renderer = newRenderer(m.style, max(msg.Width-4, 20))
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Clear):
			m.lastErr = m.session.Reset()
			return m, nil
		case key.Matches(msg, keys.Submit):
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			if m.snap.State != client.StateIdle {
				m.lastErr = client.ErrBusy
				return m, nil
			}
			m.input.Reset()
			m.lastErr = nil
			return m, m.submit(text)
		}

	case snapshotMsg:
		m.snap = client.Snapshot(msg)
		m.refresh()
		return m, waitForUpdate(m.updates)

	case submitDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, client.ErrEmptyInput) {
			m.lastErr = msg.err
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var inputCmd, viewportCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	m.viewport, viewportCmd = m.viewport.Update(msg)
	return m, tea.Batch(inputCmd, viewportCmd)
}

// refresh re-renders the transcript and keeps the newest text in view.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript(m.snap.Transcript))
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript(t domain.Transcript) string {
	if len(t) == 0 {
		return statusStyle.Render("No messages yet.")
	}

	var b strings.Builder
	for i, turn := range t {
		if i > 0 {
			b.WriteString("\n")
		}
		switch turn.Role {
		case domain.RoleUser:
			b.WriteString(userStyle.Render("You") + "\n")
			b.WriteString(turn.Content + "\n")
		case domain.RoleAssistant:
			b.WriteString(assistantStyle.Render("Assistant") + "\n")
			b.WriteString(m.renderMarkdown(turn.Content))
		default:
			b.WriteString(systemStyle.Render(string(turn.Role)) + "\n")
			b.WriteString(turn.Content + "\n")
		}
	}
	return b.String()
}

// renderMarkdown falls back to the raw text when rendering fails.
func (m Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content + "\n"
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content + "\n"
	}
	return out
}

func (m Model) status() string {
	switch {
	case m.lastErr != nil && errors.Is(m.lastErr, client.ErrBusy):
		return errorStyle.Render("Still answering, please wait.")
	case m.lastErr != nil:
		return errorStyle.Render("Error: " + m.lastErr.Error())
	case m.snap.State == client.StateAwaiting:
		return m.spinner.View() + statusStyle.Render(" waiting for a response")
	case m.snap.State == client.StateStreaming:
		return m.spinner.View() + statusStyle.Render(" answering")
	default:
		return statusStyle.Render(keys.help())
	}
}

func (m Model) View() string {
	return m.viewport.View() + "\n" + m.status() + "\n" + m.input.View()
}

// Run starts the full-screen chat program.
// An answer still streaming when the program exits is cancelled.
func Run(ctx context.Context, session *client.Session, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	_, err := tea.NewProgram(New(ctx, session, opts), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
