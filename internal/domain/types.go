package domain

// InterviewState models the turn-taking lifecycle of one interview session.
type InterviewState string

const (
	StateNotStarted               InterviewState = "not_started"
	StateAwaitingQuestionPlayback InterviewState = "awaiting_question_playback"
	StateListening                InterviewState = "listening"
	StateSubmitting               InterviewState = "submitting"
	StateComplete                 InterviewState = "complete"
	StateCancelled                InterviewState = "cancelled"
)

// Terminal reports whether no further transitions are possible for the session.
func (s InterviewState) Terminal() bool {
	return s == StateComplete || s == StateCancelled
}

// StateReason provides a structured reason for state transitions.
type StateReason string

const (
	ReasonReady             StateReason = "ready"
	ReasonStarting          StateReason = "starting"
	ReasonQuestionAsked     StateReason = "question_asked"
	ReasonListeningStarted  StateReason = "listening_started"
	ReasonSubmitting        StateReason = "submitting"
	ReasonTimeElapsed       StateReason = "time_elapsed"
	ReasonQuestionSkipped   StateReason = "question_skipped"
	ReasonCaptureFailed     StateReason = "capture_failed"
	ReasonRequestFailed     StateReason = "request_failed"
	ReasonInterviewComplete StateReason = "interview_complete"
	ReasonFeedbackReady     StateReason = "feedback_ready"
	ReasonCancelled         StateReason = "cancelled"
)

// ErrorCode identifies the family of an error reported to the user.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeValidation  ErrorCode = "validation"
	ErrorCodeService     ErrorCode = "service"
	ErrorCodeNoCredit    ErrorCode = "no_credit"
	ErrorCodePermission  ErrorCode = "permission_denied"
	ErrorCodeUnsupported ErrorCode = "unsupported_device"
	ErrorCodeAudioStop   ErrorCode = "audio_stop"
	ErrorCodeAudioStream ErrorCode = "audio_stream"
	ErrorCodeTranscribe  ErrorCode = "transcription"
	ErrorCodeRules       ErrorCode = "rules"
)

// TranscriptKind identifies whether a stream event is partial or final text.
type TranscriptKind string

const (
	TranscriptKindPartial TranscriptKind = "partial"
	TranscriptKindFinal   TranscriptKind = "final"
)

// TranscriptEvent represents incremental transcription output from a provider.
type TranscriptEvent struct {
	Kind          TranscriptKind `json:"kind"`
	Text          string         `json:"text"`
	IsSpeechFinal bool           `json:"isSpeechFinal"`
}

// CaptureKind tags which speech capture strategy is in use.
type CaptureKind string

const (
	CaptureStreaming   CaptureKind = "streaming"
	CaptureUpload      CaptureKind = "upload"
	CaptureUnavailable CaptureKind = "unavailable"
)

// Capability is the result of capture detection, resolved once at startup.
type Capability struct {
	Kind   CaptureKind `json:"kind"`
	Reason string      `json:"reason,omitempty"`
}

// View names a navigation target of the presentation layer.
type View string

const (
	ViewDashboard View = "dashboard"
	ViewPricing   View = "pricing"
)
