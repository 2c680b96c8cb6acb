package domain

import (
	"sort"
	"strings"
	"time"
)

const (
	// SkippedAnswer is recorded as the answer of a skipped turn.
	SkippedAnswer = "(Question Skipped)"
	// AudioAnswerPlaceholder is recorded locally when the answer was uploaded as audio.
	AudioAnswerPlaceholder = "(Audio Answer)"
)

// Profile describes the candidate for one interview.
type Profile struct {
	Name       string `json:"name"`
	Role       string `json:"role"`
	Experience string `json:"experience"`
}

// Persona is a fixed interviewer character.
type Persona struct {
	ID     string
	Name   string
	Style  string
	Gender string
	Accent string
}

var personas = map[string]Persona{
	"priya": {ID: "priya", Name: "Priya", Style: "empathetic and thoughtful", Gender: "female", Accent: "en-IN"},
	"arjun": {ID: "arjun", Name: "Arjun", Style: "calm and structured", Gender: "male", Accent: "en-IN"},
	"sarah": {ID: "sarah", Name: "Sarah", Style: "warm and encouraging", Gender: "female", Accent: "en-US"},
	"john":  {ID: "john", Name: "John", Style: "professional and direct", Gender: "male", Accent: "en-US"},
	"alex":  {ID: "alex", Name: "Alex", Style: "casual and innovative", Gender: "male", Accent: "en-GB"},
}

// DefaultPersonaID is used when no persona is chosen.
const DefaultPersonaID = "priya"

// LookupPersona returns the persona registered under id.
func LookupPersona(id string) (Persona, bool) {
	p, ok := personas[strings.ToLower(strings.TrimSpace(id))]
	return p, ok
}

// PersonaIDs lists persona identifiers in a stable order.
func PersonaIDs() []string {
	ids := make([]string, 0, len(personas))
	for id := range personas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var languages = map[string]string{
	"English": "en-US",
	"Hindi":   "hi-IN",
	"Spanish": "es-ES",
	"French":  "fr-FR",
}

// DefaultLanguage is the spoken language used when none is chosen.
const DefaultLanguage = "English"

// LanguageTag maps a language name to its BCP-47 tag, defaulting to en-US.
func LanguageTag(name string) string {
	for k, tag := range languages {
		if strings.EqualFold(k, strings.TrimSpace(name)) {
			return tag
		}
	}
	return "en-US"
}

// Session is the local identity of one server-side interview.
type Session struct {
	ID        string
	Profile   Profile
	PersonaID string
	Language  string
	StartedAt time.Time
}

// Turn is one question/answer exchange.
type Turn struct {
	Question string  `json:"q"`
	Answer   *string `json:"a"`
	Feedback string  `json:"feedback,omitempty"`
	Skipped  bool    `json:"skipped,omitempty"`
}

// Answered reports whether the turn already holds an answer.
func (t Turn) Answered() bool {
	return t.Answer != nil
}

// AnswerText returns the answer or an empty string for an open turn.
func (t Turn) AnswerText() string {
	if t.Answer == nil {
		return ""
	}
	return *t.Answer
}

// Answer is what the candidate submits for one turn: text or an encoded audio clip.
type Answer struct {
	Text  string
	Audio string
}

// IsAudio reports whether the answer carries an audio payload.
func (a Answer) IsAudio() bool {
	return a.Audio != ""
}

// Question is the server's first question of a session.
type Question struct {
	Text    string
	Counter int
}

// TurnResult is the server response to a submit or skip.
type TurnResult struct {
	Question string
	Counter  int
	Complete bool
	Feedback string
}

// FeedbackRecord is the terminal evaluation of a completed session.
type FeedbackRecord struct {
	OverallScore     float64 `json:"overall_score"`
	DetailedFeedback string  `json:"detailed_feedback"`
}

// User is the account shadow kept alongside the bearer credential.
type User struct {
	Email           string `json:"email" yaml:"email"`
	Name            string `json:"name" yaml:"name"`
	TargetRole      string `json:"target_role" yaml:"target_role"`
	ExperienceLevel string `json:"experience_level" yaml:"experience_level"`
	FreeInterviews  int    `json:"free_interviews" yaml:"free_interviews"`
	PaidInterviews  int    `json:"paid_interviews" yaml:"paid_interviews"`
}

// Credits returns the number of interviews the user can still start.
func (u User) Credits() int {
	return u.FreeInterviews + u.PaidInterviews
}

// Status summarizes controller state for the presentation layer.
type Status struct {
	State          InterviewState  `json:"state"`
	SessionID      string          `json:"sessionId,omitempty"`
	Persona        string          `json:"persona,omitempty"`
	Question       string          `json:"question,omitempty"`
	Counter        int             `json:"counter"`
	Turns          []Turn          `json:"turns"`
	LiveFeedback   []string        `json:"liveFeedback,omitempty"`
	TimerRemaining int             `json:"timerRemaining"`
	TimerActive    bool            `json:"timerActive"`
	Loading        bool            `json:"loading"`
	Capture        CaptureKind     `json:"capture"`
	Feedback       *FeedbackRecord `json:"feedback,omitempty"`
	Message        string          `json:"message,omitempty"`
}

// SessionRecord is a completed interview as kept in the local journal.
type SessionRecord struct {
	ID        string
	CreatedAt time.Time
	Profile   Profile
	PersonaID string
	Language  string
	Turns     []Turn
	Feedback  FeedbackRecord
}
