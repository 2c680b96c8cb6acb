package main

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"interviewcoach/internal/bootstrap"
	"interviewcoach/internal/domain"
	"interviewcoach/internal/tui"
)

// App forwards controller events and navigation into the terminal program.
type App struct {
	logger *zap.Logger

	mu   sync.Mutex
	send func(tea.Msg)
}

func NewApp(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{logger: logger}
}

// Attach routes subsequent events to send. Events before Attach are dropped.
func (a *App) Attach(send func(tea.Msg)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.send = send
}

func (a *App) emit(msg tea.Msg) {
	a.mu.Lock()
	send := a.send
	a.mu.Unlock()
	if send == nil {
		return
	}
	send(msg)
}

// SessionStateChanged emits interview lifecycle updates.
func (a *App) SessionStateChanged(state domain.InterviewState, reason domain.StateReason) {
	a.logger.Debug("interview state changed", zap.String("state", string(state)), zap.String("reason", string(reason)))
	a.emit(tui.StateMsg{State: state, Reason: reason, Message: reasonMessage(reason)})
}

func (a *App) QuestionAsked(question string, counter int) {
	a.emit(tui.QuestionMsg{Text: question, Counter: counter})
}

// PartialTranscript emits live transcript text.
func (a *App) PartialTranscript(text string) {
	a.emit(tui.PartialMsg{Text: text})
}

func (a *App) TimerTick(remaining int) {
	a.emit(tui.TickMsg{Remaining: remaining})
}

func (a *App) TurnFeedback(text string) {
	a.emit(tui.TurnFeedbackMsg{Text: text})
}

func (a *App) FeedbackReady(record domain.FeedbackRecord) {
	a.emit(tui.FeedbackMsg{Record: record})
}

// SessionError emits errors inline; none of them end the program.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	a.logger.Warn("interview error", zap.String("code", string(code)), zap.String("detail", detail))
	a.emit(tui.ErrorMsg{Code: code, Text: errorMessage(code, detail)})
}

func (a *App) Navigate(view domain.View) {
	a.emit(tui.NavigateMsg{View: view})
}

// runInterview builds a controller reporting to a fresh terminal program and
// blocks until the user quits.
func runInterview(ctx context.Context, services *bootstrap.Services, setup tui.Setup) error {
	app := NewApp(services.Logger)
	interview, err := services.BuildInterview(app)
	if err != nil {
		return err
	}
	defer func() {
		if err := interview.Close(); err != nil {
			services.Logger.Warn("interview teardown failed", zap.Error(err))
		}
	}()

	model := tui.New(ctx, interview.Controller, setup)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	app.Attach(program.Send)

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func reasonMessage(reason domain.StateReason) string {
	switch reason {
	case domain.ReasonStarting:
		return "Starting your interview…"
	case domain.ReasonListeningStarted:
		return "Listening. Press space when you are done."
	case domain.ReasonSubmitting:
		return "Submitting your answer…"
	case domain.ReasonTimeElapsed:
		return "Time is up. Submitting your answer…"
	case domain.ReasonQuestionSkipped:
		return "Skipping question…"
	case domain.ReasonCaptureFailed:
		return "Could not start the microphone"
	case domain.ReasonRequestFailed:
		return "Request failed; you can try again"
	case domain.ReasonInterviewComplete:
		return "Interview complete! Generating your feedback…"
	case domain.ReasonFeedbackReady:
		return "Your feedback is ready"
	case domain.ReasonCancelled:
		return "Interview cancelled"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeNoCredit:
		return "You have no interview credits left. Redirecting to pricing…"
	case domain.ErrorCodePermission:
		return "Microphone access denied. Press t to type your answer."
	case domain.ErrorCodeUnsupported:
		return "Speech capture is not available here. Press t to type your answer."
	case domain.ErrorCodeAudioStop:
		return "Audio stop issue"
	case domain.ErrorCodeAudioStream:
		return "Audio streaming issue"
	case domain.ErrorCodeTranscribe:
		return "Transcription error"
	case domain.ErrorCodeRules:
		return "Rules processing failed"
	case domain.ErrorCodeService:
		if detail == "" {
			return "An unexpected error occurred."
		}
		return detail
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
