package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"interviewcoach/internal/domain"
)

var errMissingSession = errors.New("session id is required")

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type turnResponse struct {
	Question          string       `json:"question"`
	QuestionCounter   int          `json:"question_counter"`
	InterviewComplete bool         `json:"interview_complete"`
	Feedback          flexibleText `json:"feedback"`
}

func (r turnResponse) result() domain.TurnResult {
	return domain.TurnResult{
		Question: r.Question,
		Counter:  r.QuestionCounter,
		Complete: r.InterviewComplete,
		Feedback: strings.TrimSpace(string(r.Feedback)),
	}
}

// CreateSession opens a new server-side interview in the given mode.
func (c *Client) CreateSession(ctx context.Context, mode string) (string, error) {
	if strings.TrimSpace(mode) == "" {
		mode = "normal"
	}
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := c.doJSON(ctx, "create-session", http.MethodPost, "/interviews/create-session", map[string]string{"mode": mode}, &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", errors.New("create-session: response carried no session_id")
	}
	return out.SessionID, nil
}

// StartInterview consumes one credit and returns the first question.
// A 402 error means the account has no credits left.
func (c *Client) StartInterview(ctx context.Context, sessionID string, profile domain.Profile, personaID string) (domain.Question, error) {
	if sessionID == "" {
		return domain.Question{}, errMissingSession
	}
	in := struct {
		SessionID   string         `json:"session_id"`
		UserData    domain.Profile `json:"user_data"`
		Personality string         `json:"interviewer_personality"`
	}{sessionID, profile, personaID}

	var out turnResponse
	if err := c.doJSON(ctx, "start-interview", http.MethodPost, "/interviews/start-interview", in, &out); err != nil {
		return domain.Question{}, err
	}
	counter := out.QuestionCounter
	if counter <= 0 {
		counter = 1
	}
	return domain.Question{Text: out.Question, Counter: counter}, nil
}

// SubmitAnswer sends the answer of the open turn. Text goes out as
// "answer", audio clips as "audio_data".
func (c *Client) SubmitAnswer(ctx context.Context, sessionID string, answer domain.Answer) (domain.TurnResult, error) {
	if sessionID == "" {
		return domain.TurnResult{}, errMissingSession
	}
	in := map[string]string{"session_id": sessionID}
	if answer.IsAudio() {
		in["audio_data"] = answer.Audio
	} else {
		in["answer"] = answer.Text
	}

	var out turnResponse
	if err := c.doJSON(ctx, "submit-answer", http.MethodPost, "/interviews/submit-answer", in, &out); err != nil {
		return domain.TurnResult{}, err
	}
	return out.result(), nil
}

func (c *Client) SkipQuestion(ctx context.Context, sessionID string) (domain.TurnResult, error) {
	if sessionID == "" {
		return domain.TurnResult{}, errMissingSession
	}
	var out turnResponse
	if err := c.doJSON(ctx, "skip-question", http.MethodPost, "/interviews/skip-question", sessionRequest{sessionID}, &out); err != nil {
		return domain.TurnResult{}, err
	}
	return out.result(), nil
}

func (c *Client) CancelInterview(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return errMissingSession
	}
	return c.doJSON(ctx, "cancel-interview", http.MethodPost, "/interviews/cancel-interview", sessionRequest{sessionID}, nil)
}

func (c *Client) GetFeedback(ctx context.Context, sessionID string) (domain.FeedbackRecord, error) {
	if sessionID == "" {
		return domain.FeedbackRecord{}, errMissingSession
	}
	var out struct {
		OverallScore     *float64     `json:"overall_score"`
		DetailedFeedback flexibleText `json:"detailed_feedback"`
	}
	if err := c.doJSON(ctx, "get-feedback", http.MethodPost, "/interviews/get-feedback", sessionRequest{sessionID}, &out); err != nil {
		return domain.FeedbackRecord{}, err
	}
	record := domain.FeedbackRecord{DetailedFeedback: string(out.DetailedFeedback)}
	if out.OverallScore != nil {
		record.OverallScore = *out.OverallScore
	}
	return record, nil
}

// HistoryTurn is one turn of a completed interview as listed in history.
type HistoryTurn struct {
	TurnNo      int      `json:"turn_no"`
	Question    string   `json:"q"`
	Answer      *string  `json:"a"`
	Topic       string   `json:"topic,omitempty"`
	WPM         *float64 `json:"wpm,omitempty"`
	FillerCount *int     `json:"filler_count,omitempty"`
	Score       *float64 `json:"score,omitempty"`
}

// HistoryEntry summarizes one completed interview.
type HistoryEntry struct {
	ID           string         `json:"id"`
	CreatedAt    time.Time      `json:"-"`
	RawCreatedAt string         `json:"created_at"`
	UserData     domain.Profile `json:"user_data"`
	Mode         string         `json:"mode"`
	OverallScore *float64       `json:"overall_score"`
	Turns        []HistoryTurn  `json:"turns,omitempty"`
}

// History lists the account's completed interviews, newest first.
func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	var out []HistoryEntry
	if err := c.doJSON(ctx, "history", http.MethodGet, "/interviews/history", nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].CreatedAt = parseTimestamp(out[i].RawCreatedAt)
	}
	return out, nil
}

// DetailTurn is one transcript line of an interview detail.
type DetailTurn struct {
	TurnNo   int      `json:"turn_no"`
	Question string   `json:"question"`
	Answer   *string  `json:"answer"`
	Topic    string   `json:"topic,omitempty"`
	Score    *float64 `json:"score,omitempty"`
}

// Detail is the full transcript and suggestions of a paid interview.
type Detail struct {
	ID           string          `json:"id"`
	RawCreatedAt string          `json:"created_at"`
	CreatedAt    time.Time       `json:"-"`
	Mode         string          `json:"mode"`
	OverallScore *float64        `json:"overall_score"`
	UserData     domain.Profile  `json:"user_data"`
	Transcript   []DetailTurn    `json:"transcript"`
	Suggestions  json.RawMessage `json:"suggestions"`
}

// Detail fetches the transcript of one interview. Sessions paid with a free
// credit answer 402.
func (c *Client) Detail(ctx context.Context, sessionID string) (Detail, error) {
	if sessionID == "" {
		return Detail{}, errMissingSession
	}
	path := "/interviews/detail?" + url.Values{"session_id": {sessionID}}.Encode()

	var out Detail
	if err := c.doJSON(ctx, "detail", http.MethodGet, path, nil, &out); err != nil {
		return Detail{}, err
	}
	out.CreatedAt = parseTimestamp(out.RawCreatedAt)
	return out, nil
}

// PrepareRequest asks for a job-description aware rubric. At least one of
// JDText or JDURL must be set.
type PrepareRequest struct {
	JDText string `json:"jd_text,omitempty"`
	JDURL  string `json:"jd_url,omitempty"`
	Role   string `json:"role"`
}

type Preparation struct {
	Rubric             json.RawMessage `json:"rubric"`
	SuggestedQuestions []string        `json:"suggested_questions"`
}

func (c *Client) Prepare(ctx context.Context, req PrepareRequest) (Preparation, error) {
	if strings.TrimSpace(req.JDText) == "" && strings.TrimSpace(req.JDURL) == "" {
		return Preparation{}, domain.NewValidationError("jd", "provide a job description text or url")
	}
	if strings.TrimSpace(req.Role) == "" {
		req.Role = "Software Engineer"
	}
	var out Preparation
	if err := c.doJSON(ctx, "prepare", http.MethodPost, "/interviews/prepare", req, &out); err != nil {
		return Preparation{}, err
	}
	return out, nil
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}
