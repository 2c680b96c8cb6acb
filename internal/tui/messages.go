package tui

import "interviewcoach/internal/domain"

// Messages delivered from the controller's event sink through tea.Program.Send.

type StateMsg struct {
	State   domain.InterviewState
	Reason  domain.StateReason
	Message string
}

type QuestionMsg struct {
	Text    string
	Counter int
}

type PartialMsg struct{ Text string }

type TickMsg struct{ Remaining int }

type TurnFeedbackMsg struct{ Text string }

type FeedbackMsg struct{ Record domain.FeedbackRecord }

type ErrorMsg struct {
	Code domain.ErrorCode
	Text string
}

type NavigateMsg struct{ View domain.View }

// actionDoneMsg reports the result of a controller call made from a key press.
type actionDoneMsg struct {
	action string
	err    error
}
