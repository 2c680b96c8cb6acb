package tui

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"interviewcoach/internal/domain"
	"interviewcoach/internal/usecase"
)

func TestInitStartsInterviewWithSetup(t *testing.T) {
	t.Parallel()

	port := &fakeInterview{}
	setup := Setup{Profile: domain.Profile{Name: "Asha", Role: "SRE"}, PersonaID: "alex", Language: "French"}
	m := New(context.Background(), port, setup)

	msg := m.Init()()
	if done, ok := msg.(actionDoneMsg); !ok || done.action != "start" || done.err != nil {
		t.Fatalf("unexpected init result: %#v", msg)
	}
	if got := port.calls(); len(got) != 1 || got[0] != "start:alex:French:Asha" {
		t.Fatalf("unexpected calls: %v", got)
	}
}

func TestSpaceTogglesAnswerCapture(t *testing.T) {
	t.Parallel()

	port := &fakeInterview{status: domain.Status{State: domain.StateAwaitingQuestionPlayback}}
	m := refreshed(New(context.Background(), port, Setup{}))

	m, cmd := press(m, " ")
	runCmd(t, cmd)

	port.setState(domain.StateListening)
	m = apply(m, StateMsg{State: domain.StateListening})
	_, cmd = press(m, " ")
	runCmd(t, cmd)

	if got := port.calls(); len(got) != 2 || got[0] != "begin" || got[1] != "stop" {
		t.Fatalf("unexpected calls: %v", got)
	}
}

func TestCancelNeedsConfirmation(t *testing.T) {
	t.Parallel()

	port := &fakeInterview{status: domain.Status{State: domain.StateListening}}
	m := refreshed(New(context.Background(), port, Setup{}))

	m, cmd := press(m, "c")
	if cmd != nil {
		t.Fatalf("cancel must wait for confirmation")
	}
	if !strings.Contains(m.View(), "refunded") {
		t.Fatalf("confirmation prompt missing from view")
	}
	m, cmd = press(m, "n")
	if cmd != nil || len(port.calls()) != 0 {
		t.Fatalf("declined cancel must not call the controller")
	}

	m, _ = press(m, "c")
	_, cmd = press(m, "y")
	runCmd(t, cmd)
	if got := port.calls(); len(got) != 1 || got[0] != "cancel" {
		t.Fatalf("unexpected calls: %v", got)
	}
}

func TestTypedAnswerIsSubmitted(t *testing.T) {
	t.Parallel()

	port := &fakeInterview{status: domain.Status{State: domain.StateAwaitingQuestionPlayback}}
	m := refreshed(New(context.Background(), port, Setup{}))

	m, _ = press(m, "t")
	for _, r := range "skip tests" {
		m, _ = press(m, string(r))
	}
	_, cmd := pressKey(m, tea.KeyMsg{Type: tea.KeyEnter})
	runCmd(t, cmd)

	if got := port.calls(); len(got) != 1 || got[0] != "submit:skip tests" {
		t.Fatalf("letters typed into the answer must not trigger shortcuts: %v", got)
	}
}

func TestPricingNavigationShowsNotice(t *testing.T) {
	t.Parallel()

	m := New(context.Background(), &fakeInterview{}, Setup{})
	m = apply(m, NavigateMsg{View: domain.ViewPricing})

	if view := m.View(); !strings.Contains(view, "no interview credits") || !strings.Contains(view, "credits order") {
		t.Fatalf("pricing notice missing:\n%s", view)
	}
}

func TestDashboardNavigationQuits(t *testing.T) {
	t.Parallel()

	m := New(context.Background(), &fakeInterview{}, Setup{})
	_, cmd := m.Update(NavigateMsg{View: domain.ViewDashboard})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestViewShowsQuestionTimerAndFeedback(t *testing.T) {
	t.Parallel()

	port := &fakeInterview{status: domain.Status{
		State:          domain.StateListening,
		Question:       "Describe a hard bug.",
		Counter:        3,
		TimerRemaining: 95,
		LiveFeedback:   []string{"Clear example."},
	}}
	m := refreshed(New(context.Background(), port, Setup{PersonaID: "sarah"}))
	m = apply(m, PartialMsg{Text: "it was a race"})
	m = apply(m, ErrorMsg{Code: domain.ErrorCodeAudioStream, Text: "Audio streaming issue"})

	view := m.View()
	for _, want := range []string{"Sarah", "Question 3", "Describe a hard bug.", "01:35", "it was a race", "Clear example.", "Audio streaming issue"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestCompletedViewShowsScore(t *testing.T) {
	t.Parallel()

	port := &fakeInterview{status: domain.Status{
		State:    domain.StateComplete,
		Feedback: &domain.FeedbackRecord{OverallScore: 8, DetailedFeedback: "Strong answers."},
	}}
	m := refreshed(New(context.Background(), port, Setup{}))

	view := m.View()
	if !strings.Contains(view, "Overall score: 8.0") || !strings.Contains(view, "Strong answers.") {
		t.Fatalf("unexpected completion view:\n%s", view)
	}
}

func TestRetryOnlyWhenFeedbackMissing(t *testing.T) {
	t.Parallel()

	port := &fakeInterview{status: domain.Status{State: domain.StateComplete}}
	m := refreshed(New(context.Background(), port, Setup{}))

	_, cmd := press(m, "r")
	runCmd(t, cmd)
	if got := port.calls(); len(got) != 1 || got[0] != "feedback" {
		t.Fatalf("unexpected calls: %v", got)
	}
}

func TestLocalRejectionBecomesNotice(t *testing.T) {
	t.Parallel()

	m := New(context.Background(), &fakeInterview{}, Setup{})
	m = apply(m, actionDoneMsg{action: "skip", err: usecase.ErrBusy})

	if !strings.Contains(m.View(), usecase.ErrBusy.Error()) {
		t.Fatalf("busy rejection should be shown")
	}
}

func refreshed(m Model) Model {
	m.refresh()
	return m
}

func apply(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func press(m Model, k string) (Model, tea.Cmd) {
	return pressKey(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

func pressKey(m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// runCmd executes a controller action command and fails on a nil command.
func runCmd(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a command")
	}
	if done, ok := cmd().(actionDoneMsg); !ok || done.err != nil {
		t.Fatalf("unexpected action result: %#v", done)
	}
}

type fakeInterview struct {
	mu     sync.Mutex
	status domain.Status
	log    []string
}

func (f *fakeInterview) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log = append(f.log, call)
	return nil
}

func (f *fakeInterview) Start(_ context.Context, profile domain.Profile, personaID, language string) error {
	return f.record("start:" + personaID + ":" + language + ":" + profile.Name)
}

func (f *fakeInterview) BeginAnswer(context.Context) error   { return f.record("begin") }
func (f *fakeInterview) StopAnswer(context.Context) error    { return f.record("stop") }
func (f *fakeInterview) Skip(context.Context) error          { return f.record("skip") }
func (f *fakeInterview) Cancel(context.Context) error        { return f.record("cancel") }
func (f *fakeInterview) RetryFeedback(context.Context) error { return f.record("feedback") }

func (f *fakeInterview) SubmitText(_ context.Context, text string) error {
	return f.record("submit:" + text)
}

func (f *fakeInterview) Status() domain.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeInterview) setState(state domain.InterviewState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status.State = state
}

func (f *fakeInterview) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.log...)
}
