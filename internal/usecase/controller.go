package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"interviewcoach/internal/domain"
	"interviewcoach/internal/metrics"
	"interviewcoach/internal/ports"
)

var (
	ErrNoActiveSession = errors.New("no active interview session")
	ErrInvalidState    = errors.New("not allowed in the current interview state")
	ErrBusy            = errors.New("a request is already in flight")
)

// Config controls turn-taking behavior.
type Config struct {
	// Mode is forwarded to CreateSession.
	Mode         string
	TurnBudget   time.Duration
	TickInterval time.Duration
	PaywallDelay time.Duration
}

// Deps are the collaborators of an InterviewController. Speaker, Navigator,
// Journal, Metrics and Logger are optional.
type Deps struct {
	Service   ports.InterviewService
	Capture   ports.CaptureStrategy
	Speaker   ports.Speaker
	Navigator ports.Navigator
	Journal   ports.Journal
	Events    ports.EventSink
	Metrics   *metrics.Recorder
	Logger    *zap.Logger
	Now       func() time.Time
}

// InterviewController drives one interview at a time through question,
// answer and feedback.
type InterviewController struct {
	service   ports.InterviewService
	capture   ports.CaptureStrategy
	speaker   ports.Speaker
	navigator ports.Navigator
	journal   ports.Journal
	events    ports.EventSink
	metrics   *metrics.Recorder
	logger    *zap.Logger
	now       func() time.Time
	cfg       Config

	mu           sync.Mutex
	closed       bool
	state        domain.InterviewState
	generation   uint64
	loading      bool
	cancelling   bool
	session      *domain.Session
	voice        string
	turns        []domain.Turn
	liveFeedback []string
	question     string
	counter      int
	remaining    int
	timer        *countdown
	turnToken    uint64
	feedback     *domain.FeedbackRecord
	message      string
	paywall      *time.Timer

	background sync.WaitGroup
}

func NewInterviewController(deps Deps, cfg Config) *InterviewController {
	if cfg.Mode == "" {
		cfg.Mode = "normal"
	}
	if cfg.TurnBudget < time.Second {
		cfg.TurnBudget = 120 * time.Second
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.PaywallDelay <= 0 {
		cfg.PaywallDelay = 1800 * time.Millisecond
	}

	c := &InterviewController{
		service:   deps.Service,
		capture:   deps.Capture,
		speaker:   deps.Speaker,
		navigator: deps.Navigator,
		journal:   deps.Journal,
		events:    deps.Events,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		now:       deps.Now,
		cfg:       cfg,
		state:     domain.StateNotStarted,
	}
	if c.speaker == nil {
		c.speaker = silentSpeaker{}
	}
	if c.navigator == nil {
		c.navigator = nowhere{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Start opens a server session for profile and asks the first question.
func (c *InterviewController) Start(ctx context.Context, profile domain.Profile, personaID, language string) error {
	profile.Name = strings.TrimSpace(profile.Name)
	profile.Role = strings.TrimSpace(profile.Role)
	profile.Experience = strings.TrimSpace(profile.Experience)
	if personaID == "" {
		personaID = domain.DefaultPersonaID
	}
	if language == "" {
		language = domain.DefaultLanguage
	}

	persona, err := validateStart(profile, personaID)
	if err != nil {
		c.events.SessionError(domain.ErrorCodeValidation, err.Error())
		return err
	}

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrNoActiveSession
	case c.loading:
		c.mu.Unlock()
		return ErrBusy
	case c.state != domain.StateNotStarted && !c.state.Terminal():
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidState, state)
	}
	c.generation++
	gen := c.generation
	c.resetLocked()
	c.state = domain.StateNotStarted
	c.loading = true
	c.mu.Unlock()

	c.events.SessionStateChanged(domain.StateNotStarted, domain.ReasonStarting)

	sessionID, err := c.service.CreateSession(ctx, c.cfg.Mode)
	var first domain.Question
	if err == nil {
		first, err = c.service.StartInterview(ctx, sessionID, profile, persona.ID)
	}

	c.mu.Lock()
	if gen != c.generation || c.closed {
		c.mu.Unlock()
		c.logger.Debug("dropping stale start response", zap.String("session_id", sessionID))
		return nil
	}
	c.loading = false
	if err != nil {
		c.message = describe(err)
		c.mu.Unlock()
		c.reportRequestError(err)
		return err
	}

	if first.Counter <= 0 {
		first.Counter = 1
	}
	c.session = &domain.Session{
		ID:        sessionID,
		Profile:   profile,
		PersonaID: persona.ID,
		Language:  language,
		StartedAt: c.now(),
	}
	c.voice = voiceFor(persona, language)
	c.turns = []domain.Turn{{Question: first.Text}}
	c.question = first.Text
	c.counter = first.Counter
	c.state = domain.StateAwaitingQuestionPlayback
	voice := c.voice
	if first.Text == "" {
		c.message = "No question received from the server. Please try again."
	}
	c.mu.Unlock()

	c.logger.Info("interview started",
		zap.String("session_id", sessionID),
		zap.String("persona", persona.ID),
		zap.String("language", language),
	)
	if first.Text == "" {
		c.events.SessionError(domain.ErrorCodeService, "No question received from the server. Please try again.")
	}
	c.announce(first.Text, first.Counter, voice)
	return nil
}

// BeginAnswer starts capturing the spoken answer to the current question.
func (c *InterviewController) BeginAnswer(ctx context.Context) error {
	c.mu.Lock()
	if err := c.requireLocked(domain.StateAwaitingQuestionPlayback); err != nil {
		c.mu.Unlock()
		return err
	}
	c.loading = true
	gen := c.generation
	language := domain.LanguageTag(c.session.Language)
	c.mu.Unlock()

	c.speaker.Stop()
	err := c.capture.Begin(ctx, language)

	c.mu.Lock()
	c.loading = false
	if gen != c.generation || c.closed || c.cancelling || c.state != domain.StateAwaitingQuestionPlayback {
		c.mu.Unlock()
		if err == nil {
			_ = c.capture.Abort()
		}
		return ErrNoActiveSession
	}
	if err != nil {
		c.message = err.Error()
		c.mu.Unlock()
		c.reportCaptureError(err)
		c.events.SessionStateChanged(domain.StateAwaitingQuestionPlayback, domain.ReasonCaptureFailed)
		return err
	}

	c.state = domain.StateListening
	c.message = ""
	c.turnToken++
	c.remaining = int(c.cfg.TurnBudget / time.Second)
	c.timer = startCountdown(c.remaining, c.cfg.TickInterval, c.turnToken, c.onTick)
	remaining := c.remaining
	c.mu.Unlock()

	c.events.SessionStateChanged(domain.StateListening, domain.ReasonListeningStarted)
	c.events.TimerTick(remaining)
	return nil
}

// StopAnswer ends capture and submits whatever was heard, even if empty.
func (c *InterviewController) StopAnswer(ctx context.Context) error {
	c.mu.Lock()
	if err := c.requireLocked(domain.StateListening); err != nil {
		c.mu.Unlock()
		return err
	}
	token := c.turnToken
	c.mu.Unlock()

	return c.finishListening(ctx, token, domain.ReasonSubmitting, metrics.OutcomeAnswered)
}

// SubmitText answers the current question with typed text. Any capture in
// progress is discarded.
func (c *InterviewController) SubmitText(ctx context.Context, text string) error {
	c.mu.Lock()
	if err := c.requireLocked(domain.StateAwaitingQuestionPlayback, domain.StateListening); err != nil {
		c.mu.Unlock()
		return err
	}
	wasListening := c.state == domain.StateListening
	c.stopTimerLocked()
	c.state = domain.StateSubmitting
	c.loading = true
	gen := c.generation
	c.mu.Unlock()

	if wasListening {
		_ = c.capture.Abort()
	}
	c.speaker.Stop()
	c.events.SessionStateChanged(domain.StateSubmitting, domain.ReasonSubmitting)

	return c.submit(ctx, gen, domain.Answer{Text: text}, metrics.OutcomeAnswered)
}

// Skip moves past the current question without answering it.
func (c *InterviewController) Skip(ctx context.Context) error {
	c.mu.Lock()
	if err := c.requireLocked(domain.StateAwaitingQuestionPlayback, domain.StateListening); err != nil {
		c.mu.Unlock()
		return err
	}
	wasListening := c.state == domain.StateListening
	c.stopTimerLocked()
	c.state = domain.StateSubmitting
	c.loading = true
	open := len(c.turns) - 1
	skipped := domain.SkippedAnswer
	c.turns[open].Answer = &skipped
	c.turns[open].Skipped = true
	gen := c.generation
	sessionID := c.session.ID
	c.mu.Unlock()

	if wasListening {
		_ = c.capture.Abort()
	}
	c.speaker.Stop()
	c.events.SessionStateChanged(domain.StateSubmitting, domain.ReasonQuestionSkipped)

	result, err := c.service.SkipQuestion(ctx, sessionID)
	return c.applyTurnResult(gen, result, err, metrics.OutcomeSkipped)
}

// Cancel ends the interview early. Timer, capture and speech are stopped
// before the server is told; on success the local session is discarded and
// any response still in flight is ignored.
func (c *InterviewController) Cancel(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrNoActiveSession
	case c.state.Terminal():
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidState, state)
	case c.cancelling, c.loading && c.session == nil:
		c.mu.Unlock()
		return ErrBusy
	}
	wasListening := c.state == domain.StateListening
	c.stopTimerLocked()
	if wasListening {
		c.state = domain.StateAwaitingQuestionPlayback
	}
	var sessionID string
	if c.session != nil {
		sessionID = c.session.ID
	}
	c.cancelling = sessionID != ""
	c.mu.Unlock()

	_ = c.capture.Abort()
	c.speaker.Stop()

	if sessionID != "" {
		if err := c.service.CancelInterview(ctx, sessionID); err != nil {
			c.mu.Lock()
			c.cancelling = false
			c.message = describe(err)
			c.mu.Unlock()
			if wasListening {
				c.events.SessionStateChanged(domain.StateAwaitingQuestionPlayback, domain.ReasonRequestFailed)
			}
			c.reportRequestError(err)
			return err
		}
	}

	c.mu.Lock()
	c.cancelling = false
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.generation++
	c.loading = false
	c.resetLocked()
	c.state = domain.StateCancelled
	c.mu.Unlock()

	c.logger.Info("interview cancelled", zap.String("session_id", sessionID))
	c.metrics.SessionEnded(string(domain.StateCancelled))
	c.events.SessionStateChanged(domain.StateCancelled, domain.ReasonCancelled)
	c.navigator.Navigate(domain.ViewDashboard)
	return nil
}

// RetryFeedback fetches the final evaluation again after a failed attempt.
func (c *InterviewController) RetryFeedback(ctx context.Context) error {
	c.mu.Lock()
	if err := c.requireLocked(domain.StateComplete); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.feedback != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: feedback already received", ErrInvalidState)
	}
	c.loading = true
	gen := c.generation
	sessionID := c.session.ID
	c.background.Add(1)
	c.mu.Unlock()

	return c.collectFeedback(ctx, gen, sessionID)
}

// Close tears down timer, capture, speech and any pending navigation.
// Responses arriving afterwards are dropped.
func (c *InterviewController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.generation++
	c.stopTimerLocked()
	if c.paywall != nil {
		c.paywall.Stop()
		c.paywall = nil
	}
	c.mu.Unlock()

	_ = c.capture.Abort()
	c.speaker.Stop()
}

// Wait blocks until background feedback requests have finished.
func (c *InterviewController) Wait() {
	c.background.Wait()
}

// Status returns a snapshot for the presentation layer.
func (c *InterviewController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := domain.Status{
		State:          c.state,
		Question:       c.question,
		Counter:        c.counter,
		Turns:          append([]domain.Turn(nil), c.turns...),
		LiveFeedback:   append([]string(nil), c.liveFeedback...),
		TimerRemaining: c.remaining,
		TimerActive:    c.timer != nil,
		Loading:        c.loading || c.cancelling,
		Capture:        c.capture.Kind(),
		Message:        c.message,
	}
	for i, turn := range status.Turns {
		if turn.Answer != nil {
			answer := *turn.Answer
			status.Turns[i].Answer = &answer
		}
	}
	if c.session != nil {
		status.SessionID = c.session.ID
		status.Persona = c.session.PersonaID
	}
	if c.feedback != nil {
		record := *c.feedback
		status.Feedback = &record
	}
	return status
}

func (c *InterviewController) onTick(token uint64, remaining int) {
	c.mu.Lock()
	if c.closed || token != c.turnToken || c.state != domain.StateListening {
		c.mu.Unlock()
		return
	}
	c.remaining = remaining
	c.mu.Unlock()

	c.events.TimerTick(remaining)
	if remaining > 0 {
		return
	}
	c.logger.Info("answer time elapsed")
	if err := c.finishListening(context.Background(), token, domain.ReasonTimeElapsed, metrics.OutcomeTimeout); err != nil {
		c.logger.Warn("automatic submit failed", zap.Error(err))
	}
}

// finishListening is the single exit from Listening into Submitting. The
// token check makes timer expiry and a manual stop race-free.
func (c *InterviewController) finishListening(ctx context.Context, token uint64, reason domain.StateReason, outcome string) error {
	c.mu.Lock()
	if c.closed || token != c.turnToken || c.state != domain.StateListening {
		c.mu.Unlock()
		return fmt.Errorf("%w: not listening", ErrInvalidState)
	}
	c.stopTimerLocked()
	c.state = domain.StateSubmitting
	c.loading = true
	gen := c.generation
	c.mu.Unlock()

	c.events.SessionStateChanged(domain.StateSubmitting, reason)

	answer, err := c.capture.Finish(ctx)
	if err != nil {
		c.logger.Warn("capture did not finish cleanly", zap.Error(err))
		c.metrics.CaptureFailure(string(domain.ErrorCodeTranscribe))
		c.events.SessionError(domain.ErrorCodeTranscribe, err.Error())
	}
	return c.submit(ctx, gen, answer, outcome)
}

func (c *InterviewController) submit(ctx context.Context, gen uint64, answer domain.Answer, outcome string) error {
	c.mu.Lock()
	if gen != c.generation || c.closed || c.session == nil || len(c.turns) == 0 {
		c.mu.Unlock()
		return ErrNoActiveSession
	}
	recorded := answer.Text
	if answer.IsAudio() {
		recorded = domain.AudioAnswerPlaceholder
	}
	c.turns[len(c.turns)-1].Answer = &recorded
	sessionID := c.session.ID
	c.mu.Unlock()

	result, err := c.service.SubmitAnswer(ctx, sessionID, answer)
	return c.applyTurnResult(gen, result, err, outcome)
}

func (c *InterviewController) applyTurnResult(gen uint64, result domain.TurnResult, err error, outcome string) error {
	c.mu.Lock()
	if gen != c.generation || c.closed {
		c.mu.Unlock()
		c.logger.Debug("dropping stale turn response")
		return nil
	}
	c.loading = false
	open := len(c.turns) - 1

	if err != nil {
		c.turns[open].Answer = nil
		c.turns[open].Skipped = false
		c.state = domain.StateAwaitingQuestionPlayback
		c.message = describe(err)
		c.mu.Unlock()

		c.metrics.Turn(metrics.OutcomeFailed)
		c.events.SessionStateChanged(domain.StateAwaitingQuestionPlayback, domain.ReasonRequestFailed)
		c.reportRequestError(err)
		return err
	}

	c.message = ""
	feedback := strings.TrimSpace(result.Feedback)
	if feedback != "" {
		c.turns[open].Feedback = feedback
		c.liveFeedback = append(c.liveFeedback, feedback)
	}

	if result.Complete {
		c.state = domain.StateComplete
		c.loading = true
		sessionID := c.session.ID
		c.background.Add(1)
		c.mu.Unlock()

		c.metrics.Turn(outcome)
		if feedback != "" {
			c.events.TurnFeedback(feedback)
		}
		c.logger.Info("interview complete", zap.String("session_id", sessionID))
		c.events.SessionStateChanged(domain.StateComplete, domain.ReasonInterviewComplete)
		go func() {
			_ = c.collectFeedback(context.Background(), gen, sessionID)
		}()
		return nil
	}

	counter := result.Counter
	if counter <= 0 {
		counter = len(c.turns) + 1
	}
	c.turns = append(c.turns, domain.Turn{Question: result.Question})
	c.question = result.Question
	c.counter = counter
	c.state = domain.StateAwaitingQuestionPlayback
	voice := c.voice
	c.mu.Unlock()

	c.metrics.Turn(outcome)
	if feedback != "" {
		c.events.TurnFeedback(feedback)
	}
	c.announce(result.Question, counter, voice)
	return nil
}

// collectFeedback must be paired with a background.Add(1) taken under the lock.
func (c *InterviewController) collectFeedback(ctx context.Context, gen uint64, sessionID string) error {
	defer c.background.Done()

	record, err := c.service.GetFeedback(ctx, sessionID)

	c.mu.Lock()
	if gen != c.generation || c.closed {
		c.mu.Unlock()
		return nil
	}
	c.loading = false
	if err != nil {
		c.message = describe(err)
		c.mu.Unlock()
		c.logger.Warn("final feedback request failed", zap.String("session_id", sessionID), zap.Error(err))
		c.reportRequestError(err)
		return err
	}
	c.feedback = &record
	entry := domain.SessionRecord{
		ID:        c.session.ID,
		CreatedAt: c.session.StartedAt,
		Profile:   c.session.Profile,
		PersonaID: c.session.PersonaID,
		Language:  c.session.Language,
		Turns:     append([]domain.Turn(nil), c.turns...),
		Feedback:  record,
	}
	c.mu.Unlock()

	c.metrics.SessionEnded(string(domain.StateComplete))
	c.events.FeedbackReady(record)
	c.events.SessionStateChanged(domain.StateComplete, domain.ReasonFeedbackReady)

	if c.journal != nil {
		if err := c.journal.Record(ctx, entry); err != nil {
			c.logger.Warn("journal write failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	return nil
}

func (c *InterviewController) announce(question string, counter int, voice string) {
	c.events.SessionStateChanged(domain.StateAwaitingQuestionPlayback, domain.ReasonQuestionAsked)
	c.events.QuestionAsked(question, counter)
	if question != "" {
		c.speaker.Speak(question, voice)
	}
}

func (c *InterviewController) reportRequestError(err error) {
	var validation *domain.ValidationError
	switch {
	case domain.IsPaymentRequired(err):
		c.events.SessionError(domain.ErrorCodeNoCredit, describe(err))
		c.schedulePricing()
	case errors.As(err, &validation):
		c.events.SessionError(domain.ErrorCodeValidation, validation.Message)
	default:
		c.events.SessionError(domain.ErrorCodeService, describe(err))
	}
}

func (c *InterviewController) reportCaptureError(err error) {
	code := domain.ErrorCodeAudioStream
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		code = domain.ErrorCodePermission
	case errors.Is(err, domain.ErrUnsupportedDevice):
		code = domain.ErrorCodeUnsupported
	}
	c.logger.Warn("capture failed to start", zap.String("code", string(code)), zap.Error(err))
	c.metrics.CaptureFailure(string(code))
	c.events.SessionError(code, err.Error())
}

// schedulePricing arms at most one pending pricing redirect.
func (c *InterviewController) schedulePricing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.paywall != nil {
		return
	}
	c.paywall = time.AfterFunc(c.cfg.PaywallDelay, func() {
		c.mu.Lock()
		c.paywall = nil
		closed := c.closed
		c.mu.Unlock()
		if !closed {
			c.navigator.Navigate(domain.ViewPricing)
		}
	})
}

func (c *InterviewController) requireLocked(allowed ...domain.InterviewState) error {
	if c.closed || c.session == nil {
		return ErrNoActiveSession
	}
	if c.loading || c.cancelling {
		return ErrBusy
	}
	for _, state := range allowed {
		if c.state == state {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidState, c.state)
}

func (c *InterviewController) stopTimerLocked() {
	if c.timer == nil {
		return
	}
	c.timer.Stop()
	c.timer = nil
	c.turnToken++
}

func (c *InterviewController) resetLocked() {
	c.session = nil
	c.voice = ""
	c.turns = nil
	c.liveFeedback = nil
	c.question = ""
	c.counter = 0
	c.remaining = 0
	c.feedback = nil
	c.message = ""
}

func validateStart(profile domain.Profile, personaID string) (domain.Persona, error) {
	if profile.Name == "" {
		return domain.Persona{}, domain.NewValidationError("name", "Please enter your name.")
	}
	if profile.Role == "" {
		return domain.Persona{}, domain.NewValidationError("role", "Please enter the role you are interviewing for.")
	}
	persona, ok := domain.LookupPersona(personaID)
	if !ok {
		return domain.Persona{}, domain.NewValidationError("persona", fmt.Sprintf("Unknown interviewer %q.", personaID))
	}
	return persona, nil
}

// voiceFor prefers the persona's accent for English interviews.
func voiceFor(persona domain.Persona, language string) string {
	tag := domain.LanguageTag(language)
	if strings.HasPrefix(tag, "en-") && persona.Accent != "" {
		return persona.Accent
	}
	return tag
}

func describe(err error) string {
	var svcErr *domain.ServiceError
	if errors.As(err, &svcErr) && svcErr.Message != "" {
		return svcErr.Message
	}
	return err.Error()
}

type silentSpeaker struct{}

func (silentSpeaker) Speak(string, string) {}
func (silentSpeaker) Stop()                {}

type nowhere struct{}

func (nowhere) Navigate(domain.View) {}
