package cli

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/legalis-ai/legalis-go/internal/api"
	"github.com/legalis-ai/legalis-go/internal/engine"
)

// Theme holds the color scheme for the send spinner.
type Theme struct {
	Status lipgloss.Color
	Error  lipgloss.Color
	Hint   lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status: lipgloss.Color("#5FAFD7"), // light blue
	Error:  lipgloss.Color("#FF005F"), // red
	Hint:   lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// sendDoneMsg carries the completed send result.
type sendDoneMsg struct {
	resp *api.ChatResponse
	err  error
}

// sendModel is the bubbletea model shown while a send is in flight.
type sendModel struct {
	ctx      context.Context
	eng      *engine.Engine
	spinner  spinner.Model
	theme    Theme
	resp     *api.ChatResponse
	err      error
	done     bool
	quitting bool
}

func newSendModel(ctx context.Context, eng *engine.Engine) sendModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return sendModel{
		ctx:     ctx,
		eng:     eng,
		spinner: sp,
		theme:   defaultTheme,
	}
}

// Init starts the spinner and fires the send.
func (m sendModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.doSend())
}

// Update handles messages and returns the updated model.
func (m sendModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c":
			// The send keeps running; its result lands in the store when
			// it resolves.
			m.quitting = true
			return m, tea.Quit
		}

	case sendDoneMsg:
		m.resp = msg.resp
		m.err = msg.err
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the waiting line.
func (m sendModel) View() tea.View {
	if m.done || m.quitting {
		return tea.NewView("")
	}
	status := m.theme.statusStyle().Render("thinking...")
	hint := m.theme.hintStyle().Render("Ctrl+C to stop waiting")
	return tea.NewView(fmt.Sprintf("%s %s  %s\n", m.spinner.View(), status, hint))
}

// doSend runs the dispatch as a command so Update() never blocks.
func (m sendModel) doSend() tea.Cmd {
	return func() tea.Msg {
		resp, err := m.eng.Send(m.ctx)
		return sendDoneMsg{resp: resp, err: err}
	}
}

// RunSendSpinner dispatches the engine's draft while showing a spinner,
// and returns the assistant reply.
func RunSendSpinner(ctx context.Context, eng *engine.Engine) (*api.ChatResponse, error) {
	p := tea.NewProgram(newSendModel(ctx, eng))

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("spinner UI error: %w", err)
	}

	m, ok := finalModel.(sendModel)
	if !ok {
		return nil, fmt.Errorf("unexpected model type")
	}
	if m.quitting {
		return nil, fmt.Errorf("stopped waiting, reply will appear in the session")
	}
	return m.resp, m.err
}
