package ports

import (
	"context"
	"io"

	"interviewcoach/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// StreamingConfig describes provider-agnostic streaming settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	Language       string
	InterimResults bool
}

// StreamingSession is an active provider websocket session.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming transcription sessions.
type TranscriptionProvider interface {
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}

// RulesEngine transforms transcripts using deterministic rules.
type RulesEngine interface {
	Apply(text string) (string, error)
}

// CaptureStrategy obtains one spoken answer per Begin/Finish cycle.
type CaptureStrategy interface {
	Kind() domain.CaptureKind
	Begin(ctx context.Context, language string) error
	Finish(ctx context.Context) (domain.Answer, error)
	Abort() error
}

// InterviewService is the session half of the remote interview API.
type InterviewService interface {
	CreateSession(ctx context.Context, mode string) (string, error)
	StartInterview(ctx context.Context, sessionID string, profile domain.Profile, personaID string) (domain.Question, error)
	SubmitAnswer(ctx context.Context, sessionID string, answer domain.Answer) (domain.TurnResult, error)
	SkipQuestion(ctx context.Context, sessionID string) (domain.TurnResult, error)
	CancelInterview(ctx context.Context, sessionID string) error
	GetFeedback(ctx context.Context, sessionID string) (domain.FeedbackRecord, error)
}

// Speaker reads questions aloud. Speak must not block on playback.
type Speaker interface {
	Speak(text string, language string)
	Stop()
}

// Navigator moves the presentation layer to another view.
type Navigator interface {
	Navigate(view domain.View)
}

// Journal keeps completed sessions locally.
type Journal interface {
	Record(ctx context.Context, record domain.SessionRecord) error
}

// EventSink emits controller state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.InterviewState, reason domain.StateReason)
	QuestionAsked(question string, counter int)
	PartialTranscript(text string)
	TimerTick(remaining int)
	TurnFeedback(text string)
	FeedbackReady(record domain.FeedbackRecord)
	SessionError(code domain.ErrorCode, detail string)
}
