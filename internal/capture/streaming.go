package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"interviewcoach/internal/domain"
	"interviewcoach/internal/ports"
)

// ErrNotCapturing is returned by Finish when Begin was never called.
var ErrNotCapturing = errors.New("no capture in progress")

// Listener receives live capture output.
type Listener interface {
	PartialTranscript(text string)
	SessionError(code domain.ErrorCode, detail string)
}

type StreamingOptions struct {
	Audio      ports.AudioConfig
	Streaming  ports.StreamingConfig
	ChunkSize  int
	Grace      time.Duration
	FlushLimit time.Duration
}

// Streaming pumps microphone PCM to a live transcription provider and
// yields the merged transcript as a text answer.
type Streaming struct {
	audio    ports.AudioCapture
	provider ports.TranscriptionProvider
	rules    ports.RulesEngine
	listener Listener
	logger   *zap.Logger
	opts     StreamingOptions

	mu      sync.Mutex
	current *liveCapture
}

type liveCapture struct {
	cancel     context.CancelFunc
	audio      ports.AudioSession
	stream     ports.StreamingSession
	buffer     *transcriptBuffer
	eventsDone chan struct{}
	audioDone  chan struct{}
	// stopping silences pump errors caused by our own shutdown.
	stopping atomic.Bool
}

func NewStreaming(
	audio ports.AudioCapture,
	provider ports.TranscriptionProvider,
	rules ports.RulesEngine,
	listener Listener,
	logger *zap.Logger,
	opts StreamingOptions,
) *Streaming {
	if opts.ChunkSize < 256 {
		opts.ChunkSize = 4096
	}
	if opts.FlushLimit <= 0 {
		opts.FlushLimit = 4 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Streaming.InterimResults = true
	return &Streaming{
		audio:    audio,
		provider: provider,
		rules:    rules,
		listener: listener,
		logger:   logger,
		opts:     opts,
	}
}

func (s *Streaming) Kind() domain.CaptureKind {
	return domain.CaptureStreaming
}

// Begin opens the provider stream first so no early speech is lost, then
// starts the microphone. A capture still running is discarded.
func (s *Streaming) Begin(ctx context.Context, language string) error {
	s.mu.Lock()
	previous := s.current
	s.current = nil
	s.mu.Unlock()
	if previous != nil {
		previous.teardown()
	}

	captureCtx, cancel := context.WithCancel(ctx)
	streamCfg := s.opts.Streaming
	streamCfg.Language = language

	stream, err := s.provider.StartStreaming(captureCtx, streamCfg)
	if err != nil {
		cancel()
		return fmt.Errorf("start transcription: %w", err)
	}
	audio, err := s.audio.Start(captureCtx, s.opts.Audio)
	if err != nil {
		_ = stream.Close()
		cancel()
		return err
	}

	live := &liveCapture{
		cancel:     cancel,
		audio:      audio,
		stream:     stream,
		buffer:     &transcriptBuffer{},
		eventsDone: make(chan struct{}),
		audioDone:  make(chan struct{}),
	}
	s.mu.Lock()
	s.current = live
	s.mu.Unlock()

	go s.consume(live)
	go pump(live.audio, live.stream, s.opts.ChunkSize, func(detail string) {
		if !live.stopping.Load() {
			s.reportStreamError(detail)
		}
	}, live.audioDone)

	s.logger.Debug("streaming capture started", zap.String("language", language))
	return nil
}

// Finish stops the microphone, waits the grace period for trailing finals,
// and returns the merged transcript. An empty transcript is a valid answer.
// On a provider failure the recovered text is returned alongside the error.
func (s *Streaming) Finish(ctx context.Context) (domain.Answer, error) {
	s.mu.Lock()
	live := s.current
	s.current = nil
	s.mu.Unlock()
	if live == nil {
		return domain.Answer{}, ErrNotCapturing
	}
	defer live.cancel()

	live.stopping.Store(true)
	if err := live.audio.Stop(); err != nil {
		s.listener.SessionError(domain.ErrorCodeAudioStop, "failed to stop audio capture cleanly")
	}

	if s.opts.Grace > 0 {
		timer := time.NewTimer(s.opts.Grace)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	_ = live.stream.CloseSend()
	streamErr := waitForStream(live.stream, s.opts.FlushLimit)
	<-live.eventsDone
	<-live.audioDone
	_ = live.audio.Close()

	text := live.buffer.Merged()
	if text != "" && s.rules != nil {
		cleaned, err := s.rules.Apply(text)
		if err != nil {
			s.listener.SessionError(domain.ErrorCodeRules, err.Error())
		} else {
			text = cleaned
		}
	}

	if streamErr != nil {
		return domain.Answer{Text: text}, fmt.Errorf("transcription: %w", streamErr)
	}
	return domain.Answer{Text: text}, nil
}

// Abort releases the microphone and provider without producing an answer.
func (s *Streaming) Abort() error {
	s.mu.Lock()
	live := s.current
	s.current = nil
	s.mu.Unlock()
	if live != nil {
		live.teardown()
	}
	return nil
}

func (s *Streaming) consume(live *liveCapture) {
	defer close(live.eventsDone)

	for event := range live.stream.Events() {
		live.buffer.Add(event)
		if text := live.buffer.Live(); text != "" {
			s.listener.PartialTranscript(text)
		}
	}
}

func (s *Streaming) reportStreamError(detail string) {
	s.logger.Warn("audio stream error", zap.String("detail", detail))
	s.listener.SessionError(domain.ErrorCodeAudioStream, detail)
}

func (l *liveCapture) teardown() {
	l.stopping.Store(true)
	l.cancel()
	_ = l.audio.Close()
	_ = l.stream.Close()
	<-l.eventsDone
	<-l.audioDone
}

func pump(
	audio ports.AudioSession,
	stream ports.StreamingSession,
	chunkSize int,
	report func(detail string),
	done chan struct{},
) {
	defer close(done)

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if sendErr := stream.SendAudio(buf[:n]); sendErr != nil {
				report(fmt.Sprintf("failed to stream audio: %v", sendErr))
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				report(fmt.Sprintf("audio capture error: %v", err))
			}
			return
		}
	}
}

func waitForStream(session ports.StreamingSession, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		_ = session.Close()
		return <-done
	}
}
