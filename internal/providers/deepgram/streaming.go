// Package deepgram transcribes one spoken answer at a time over Deepgram's
// live listen websocket.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"interviewcoach/internal/domain"
	"interviewcoach/internal/ports"
)

const (
	defaultBaseURL  = "https://api.deepgram.com/v1"
	defaultModel    = "nova-2"
	defaultLanguage = "en-US"

	// utteranceEndMillis is the silence after which Deepgram reports that the
	// candidate paused.
	utteranceEndMillis = 1000
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("deepgram api key is not configured")

var errStreamClosed = errors.New("answer stream already closed")

type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	SmartFormat bool
	// Dialer overrides the websocket dialer, mainly for tests.
	Dialer *websocket.Dialer
}

// Provider implements ports.TranscriptionProvider. Each StartStreaming call
// carries exactly one answer.
type Provider struct {
	cfg Config
}

func NewProvider(cfg Config) *Provider {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &Provider{cfg: cfg}
}

// Configured reports whether streaming can be attempted at all.
func (p *Provider) Configured() bool {
	return p != nil && p.cfg.APIKey != ""
}

func (p *Provider) StartStreaming(ctx context.Context, cfg ports.StreamingConfig) (ports.StreamingSession, error) {
	if !p.Configured() {
		return nil, ErrNotConfigured
	}

	target, err := listenURL(p.cfg, cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.cfg.APIKey)

	conn, resp, err := p.cfg.Dialer.DialContext(ctx, target, headers)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("deepgram rejected the api key: %w", err)
		}
		return nil, fmt.Errorf("connect to deepgram: %w", err)
	}

	stream := openAnswerStream(conn)
	go func() {
		select {
		case <-ctx.Done():
			_ = stream.Close()
		case <-stream.done:
		}
	}()
	return stream, nil
}

// answerStream is the socket for one answer. Audio goes out through
// forward; results come back through receive and are turned into
// transcript events by a segmenter.
type answerStream struct {
	conn *websocket.Conn

	events chan domain.TranscriptEvent
	audio  chan []byte
	done   chan struct{}
	loops  sync.WaitGroup

	errMu sync.Mutex
	err   error

	sendMu    sync.Mutex
	ended     bool
	closeOnce sync.Once
}

func openAnswerStream(conn *websocket.Conn) *answerStream {
	s := &answerStream{
		conn:   conn,
		events: make(chan domain.TranscriptEvent, 128),
		audio:  make(chan []byte, 32),
		done:   make(chan struct{}),
	}
	s.loops.Add(2)
	go s.receive()
	go s.forward()
	go func() {
		s.loops.Wait()
		close(s.events)
		close(s.done)
		_ = conn.Close()
	}()
	return s
}

func (s *answerStream) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.sendMu.Lock()
	if s.ended {
		s.sendMu.Unlock()
		return errStreamClosed
	}
	copied := append([]byte(nil), chunk...)
	s.sendMu.Unlock()

	select {
	case s.audio <- copied:
		return nil
	case <-s.done:
		if err := s.failure(); err != nil {
			return err
		}
		return errStreamClosed
	}
}

// CloseSend marks the end of the answer. Deepgram is asked to finalize
// whatever it still holds as interim text before the socket closes.
func (s *answerStream) CloseSend() error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if !s.ended {
		s.ended = true
		close(s.audio)
	}
	return nil
}

func (s *answerStream) Events() <-chan domain.TranscriptEvent {
	return s.events
}

func (s *answerStream) Wait() error {
	<-s.done
	return s.failure()
}

func (s *answerStream) Close() error {
	s.closeOnce.Do(func() {
		_ = s.CloseSend()
		_ = s.conn.Close()
	})
	<-s.done
	return s.failure()
}

func (s *answerStream) failure() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// fail keeps the first real error. Normal closes end an answer and are not
// failures.
func (s *answerStream) fail(err error) {
	if err == nil || websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

var (
	finalizeMessage    = []byte(`{"type":"Finalize"}`)
	closeStreamMessage = []byte(`{"type":"CloseStream"}`)
)

func (s *answerStream) forward() {
	defer s.loops.Done()

	for chunk := range s.audio {
		if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			s.fail(fmt.Errorf("send audio: %w", err))
			return
		}
	}
	for _, control := range [][]byte{finalizeMessage, closeStreamMessage} {
		if err := s.conn.WriteMessage(websocket.TextMessage, control); err != nil {
			s.fail(fmt.Errorf("end answer: %w", err))
			return
		}
	}
}

func (s *answerStream) receive() {
	defer s.loops.Done()

	var seg segmenter
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.fail(fmt.Errorf("read deepgram event: %w", err))
			return
		}

		var r result
		if err := json.Unmarshal(payload, &r); err != nil {
			continue
		}
		if strings.EqualFold(r.Type, "Error") {
			reason := firstNonEmpty(r.Description, r.Message, "unknown error")
			s.fail(fmt.Errorf("deepgram: %s", reason))
			return
		}
		if event, ok := seg.next(r); ok {
			s.publish(event)
		}
	}
}

// publish drops the event when the consumer has fallen a full buffer behind.
func (s *answerStream) publish(event domain.TranscriptEvent) {
	select {
	case s.events <- event:
	default:
	}
}

// segmenter maps Deepgram results onto the answer being spoken.
//
// Deepgram revises an interim segment until it sends it with is_final; that
// text is settled and joins the answer. speech_final, a Finalize flush or an
// UtteranceEnd mark the end of what the candidate said so far. An interim
// segment that was never settled when the candidate paused is promoted so
// the pause does not drop it.
type segmenter struct {
	pending string
}

func (g *segmenter) next(r result) (domain.TranscriptEvent, bool) {
	switch {
	case strings.EqualFold(r.Type, "UtteranceEnd"):
		if g.pending == "" {
			return domain.TranscriptEvent{}, false
		}
		text := g.pending
		g.pending = ""
		return domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: text, IsSpeechFinal: true}, true

	case r.Type != "" && !strings.EqualFold(r.Type, "Results"):
		// Metadata, SpeechStarted and friends carry no words.
		return domain.TranscriptEvent{}, false
	}

	text := r.transcript()
	if !r.IsFinal && !r.SpeechFinal && !r.FromFinalize {
		if text == "" {
			return domain.TranscriptEvent{}, false
		}
		g.pending = text
		return domain.TranscriptEvent{Kind: domain.TranscriptKindPartial, Text: text}, true
	}

	// A settled segment replaces whatever interim preceded it, even when
	// Deepgram settled it as silence.
	g.pending = ""
	if text == "" {
		return domain.TranscriptEvent{}, false
	}
	return domain.TranscriptEvent{
		Kind:          domain.TranscriptKindFinal,
		Text:          text,
		IsSpeechFinal: r.SpeechFinal || r.FromFinalize,
	}, true
}

type alternative struct {
	Transcript string `json:"transcript"`
}

type channel struct {
	Alternatives []alternative `json:"alternatives"`
}

type result struct {
	Type         string  `json:"type"`
	Message      string  `json:"message"`
	Description  string  `json:"description"`
	IsFinal      bool    `json:"is_final"`
	SpeechFinal  bool    `json:"speech_final"`
	FromFinalize bool    `json:"from_finalize"`
	Channel      channel `json:"channel"`
	Results      struct {
		Channels []channel `json:"channels"`
	} `json:"results"`
}

func (r result) transcript() string {
	if len(r.Channel.Alternatives) > 0 {
		if text := strings.TrimSpace(r.Channel.Alternatives[0].Transcript); text != "" {
			return text
		}
	}
	if len(r.Results.Channels) > 0 && len(r.Results.Channels[0].Alternatives) > 0 {
		return strings.TrimSpace(r.Results.Channels[0].Alternatives[0].Transcript)
	}
	return ""
}

func listenURL(providerCfg Config, streamCfg ports.StreamingConfig) (string, error) {
	base := strings.TrimSpace(providerCfg.APIBaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	u, err := url.Parse(strings.TrimRight(base, "/") + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid deepgram base url: %w", err)
	}

	if streamCfg.Encoding == "" {
		streamCfg.Encoding = "linear16"
	}
	if streamCfg.SampleRate <= 0 {
		streamCfg.SampleRate = 16000
	}
	if streamCfg.Channels <= 0 {
		streamCfg.Channels = 1
	}

	q := u.Query()
	q.Set("model", firstNonEmpty(providerCfg.Model, defaultModel))
	q.Set("language", firstNonEmpty(streamCfg.Language, defaultLanguage))
	q.Set("encoding", streamCfg.Encoding)
	q.Set("sample_rate", strconv.Itoa(streamCfg.SampleRate))
	q.Set("channels", strconv.Itoa(streamCfg.Channels))
	q.Set("interim_results", strconv.FormatBool(streamCfg.InterimResults))
	q.Set("smart_format", strconv.FormatBool(providerCfg.SmartFormat))
	if streamCfg.InterimResults {
		// Deepgram only reports utterance ends alongside interim results.
		q.Set("utterance_end_ms", strconv.Itoa(utteranceEndMillis))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
