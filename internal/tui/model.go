package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"interviewcoach/internal/domain"
	"interviewcoach/internal/usecase"
)

// Interview is the part of the controller the terminal UI drives.
type Interview interface {
	Start(ctx context.Context, profile domain.Profile, personaID, language string) error
	BeginAnswer(ctx context.Context) error
	StopAnswer(ctx context.Context) error
	SubmitText(ctx context.Context, text string) error
	Skip(ctx context.Context) error
	Cancel(ctx context.Context) error
	RetryFeedback(ctx context.Context) error
	Status() domain.Status
}

// Setup is what the interview is started with.
type Setup struct {
	Profile   domain.Profile
	PersonaID string
	Language  string
}

type keyMap struct {
	Answer    key.Binding
	Type      key.Binding
	Skip      key.Binding
	Cancel    key.Binding
	Retry     key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
	Confirm   key.Binding
	Submit    key.Binding
	Back      key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Answer:    key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "start/stop answer")),
		Type:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "type answer")),
		Skip:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "skip")),
		Cancel:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "end interview")),
		Retry:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry feedback")),
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
		Confirm:   key.NewBinding(key.WithKeys("y", "Y")),
		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Answer, k.Type, k.Skip, k.Cancel, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Answer, k.Type, k.Submit, k.Back},
		{k.Skip, k.Cancel, k.Retry, k.Quit},
	}
}

// Model renders controller snapshots and turns key presses into
// controller calls. Controller events arrive as messages.
type Model struct {
	ctx     context.Context
	port    Interview
	setup   Setup
	persona domain.Persona

	keys  keyMap
	help  help.Model
	input textinput.Model

	status  domain.Status
	partial string
	notice  string
	errText string
	typing  bool
	confirm bool
	pricing bool
}

func New(ctx context.Context, port Interview, setup Setup) Model {
	persona, ok := domain.LookupPersona(setup.PersonaID)
	if !ok {
		persona, _ = domain.LookupPersona(domain.DefaultPersonaID)
	}

	input := textinput.New()
	input.Placeholder = "type your answer…"
	input.CharLimit = 4000

	return Model{
		ctx:     ctx,
		port:    port,
		setup:   setup,
		persona: persona,
		keys:    defaultKeys(),
		help:    help.New(),
		input:   input,
		status:  domain.Status{State: domain.StateNotStarted},
	}
}

func (m Model) Init() tea.Cmd {
	setup := m.setup
	return m.do("start", func(ctx context.Context) error {
		return m.port.Start(ctx, setup.Profile, setup.PersonaID, setup.Language)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		m.input.Width = max(20, msg.Width-10)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case StateMsg:
		m.refresh()
		if msg.Message != "" {
			m.notice = msg.Message
		}
		if msg.State == domain.StateListening {
			m.partial = ""
			m.errText = ""
		}
		return m, nil
	case QuestionMsg:
		m.refresh()
		m.partial = ""
		return m, nil
	case PartialMsg:
		m.partial = msg.Text
		return m, nil
	case TickMsg, TurnFeedbackMsg, FeedbackMsg:
		m.refresh()
		return m, nil
	case ErrorMsg:
		m.errText = msg.Text
		return m, nil
	case NavigateMsg:
		switch msg.View {
		case domain.ViewPricing:
			m.pricing = true
			return m, nil
		case domain.ViewDashboard:
			m.notice = "Interview ended. Your credit will be refunded."
			return m, tea.Quit
		}
		return m, nil
	case actionDoneMsg:
		m.refresh()
		if msg.err != nil && localRejection(msg.err) {
			m.notice = msg.err.Error()
		}
		return m, nil
	}

	if m.typing {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}

	if m.typing {
		switch {
		case key.Matches(msg, m.keys.Submit):
			text := m.input.Value()
			m.typing = false
			m.input.Reset()
			m.input.Blur()
			return m, m.do("submit", func(ctx context.Context) error {
				return m.port.SubmitText(ctx, text)
			})
		case key.Matches(msg, m.keys.Back):
			m.typing = false
			m.input.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if m.confirm {
		m.confirm = false
		if key.Matches(msg, m.keys.Confirm) {
			m.notice = "Ending interview…"
			return m, m.do("cancel", m.port.Cancel)
		}
		m.notice = "Interview continues."
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Answer):
		if m.status.State == domain.StateListening {
			return m, m.do("stop", m.port.StopAnswer)
		}
		return m, m.do("begin", m.port.BeginAnswer)
	case key.Matches(msg, m.keys.Type):
		if m.status.State != domain.StateAwaitingQuestionPlayback && m.status.State != domain.StateListening {
			return m, nil
		}
		m.typing = true
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Skip):
		return m, m.do("skip", m.port.Skip)
	case key.Matches(msg, m.keys.Cancel):
		if m.status.State.Terminal() {
			return m, nil
		}
		m.confirm = true
		m.notice = "End this interview? Your credit will be refunded. (y/n)"
		return m, nil
	case key.Matches(msg, m.keys.Retry):
		if m.status.State == domain.StateComplete && m.status.Feedback == nil {
			return m, m.do("feedback", m.port.RetryFeedback)
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Interview Coach"))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  with %s, %s", m.persona.Name, m.persona.Style)))
	b.WriteString("\n\n")

	if m.pricing {
		b.WriteString(pricingPanel.Render(
			hotStyle.Render("You have no interview credits left.") + "\n" +
				"Run `interviewcoach credits order` to buy more, then start again.",
		))
		b.WriteString("\n\n")
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.Quit}))
		return frameStyle.Render(b.String())
	}

	b.WriteString(m.statusLine())
	b.WriteString("\n\n")

	if m.status.Question != "" && m.status.State != domain.StateComplete {
		b.WriteString(questionPanel.Render(
			titleStyle.Render(fmt.Sprintf("Question %d", m.status.Counter)) + "\n" + m.status.Question,
		))
		b.WriteString("\n")
	}

	if m.status.State == domain.StateListening {
		b.WriteString(hotStyle.Render("● " + clock(m.status.TimerRemaining)))
		if m.partial != "" {
			b.WriteString("  " + liveStyle.Render(m.partial))
		}
		b.WriteString("\n")
	}

	if m.typing {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	if n := len(m.status.LiveFeedback); n > 0 {
		b.WriteString("\n" + mutedStyle.Render("Feedback so far") + "\n")
		for _, item := range m.status.LiveFeedback[max(0, n-3):] {
			b.WriteString(feedbackItem.Render("• "+item) + "\n")
		}
	}

	if m.status.State == domain.StateComplete {
		b.WriteString("\n")
		b.WriteString(m.completionView())
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString("\n" + mutedStyle.Render(m.notice))
	}
	if m.errText != "" {
		b.WriteString("\n" + errorStyle.Render(m.errText))
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return frameStyle.Render(b.String())
}

func (m Model) completionView() string {
	switch {
	case m.status.Feedback != nil:
		return panelStyle.Render(
			scoreStyle.Render(fmt.Sprintf("Overall score: %.1f", m.status.Feedback.OverallScore)) + "\n\n" +
				m.status.Feedback.DetailedFeedback,
		)
	case m.status.Loading:
		return mutedStyle.Render("Interview complete. Preparing your feedback…")
	default:
		return mutedStyle.Render("Interview complete. Feedback is unavailable; press r to try again.")
	}
}

func (m Model) statusLine() string {
	line := stateLabel(m.status.State)
	if m.status.Capture != "" {
		line += mutedStyle.Render(" · capture: " + string(m.status.Capture))
	}
	if answered := answeredTurns(m.status.Turns); answered > 0 {
		line += mutedStyle.Render(fmt.Sprintf(" · %d answered", answered))
	}
	if m.status.Loading {
		line += mutedStyle.Render(" · working…")
	}
	return line
}

func (m *Model) refresh() {
	m.status = m.port.Status()
}

func (m Model) do(action string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: fn(ctx)}
	}
}

// localRejection reports errors the controller returns without emitting an event.
func localRejection(err error) bool {
	return errors.Is(err, usecase.ErrBusy) ||
		errors.Is(err, usecase.ErrInvalidState) ||
		errors.Is(err, usecase.ErrNoActiveSession)
}

func stateLabel(state domain.InterviewState) string {
	switch state {
	case domain.StateNotStarted:
		return mutedStyle.Render("Starting…")
	case domain.StateAwaitingQuestionPlayback:
		return titleStyle.Render("Your turn")
	case domain.StateListening:
		return hotStyle.Render("Listening")
	case domain.StateSubmitting:
		return mutedStyle.Render("Submitting…")
	case domain.StateComplete:
		return scoreStyle.Render("Complete")
	case domain.StateCancelled:
		return mutedStyle.Render("Cancelled")
	default:
		return string(state)
	}
}

func answeredTurns(turns []domain.Turn) int {
	n := 0
	for _, turn := range turns {
		if turn.Answered() {
			n++
		}
	}
	return n
}

func clock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
