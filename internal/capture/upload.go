package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"interviewcoach/internal/audio"
	"interviewcoach/internal/domain"
	"interviewcoach/internal/ports"
)

// Upload records one clip per turn and returns it as a WAV data URL.
type Upload struct {
	recorder ports.AudioCapture
	cfg      ports.AudioConfig
	logger   *zap.Logger

	mu      sync.Mutex
	current *clip
}

type clip struct {
	cancel  context.CancelFunc
	session ports.AudioSession
	pcm     bytes.Buffer
	readErr error
	done    chan struct{}
}

func NewUpload(recorder ports.AudioCapture, cfg ports.AudioConfig, logger *zap.Logger) *Upload {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Upload{recorder: recorder, cfg: cfg, logger: logger}
}

func (u *Upload) Kind() domain.CaptureKind {
	return domain.CaptureUpload
}

// Begin starts recording. The language is decided server-side for uploads.
func (u *Upload) Begin(ctx context.Context, _ string) error {
	_ = u.Abort()

	recCtx, cancel := context.WithCancel(ctx)
	session, err := u.recorder.Start(recCtx, u.cfg)
	if err != nil {
		cancel()
		return err
	}

	c := &clip{cancel: cancel, session: session, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		_, c.readErr = io.Copy(&c.pcm, session)
	}()

	u.mu.Lock()
	u.current = c
	u.mu.Unlock()
	return nil
}

// Finish stops recording and encodes the clip. A silent recording yields an
// empty text answer rather than an empty clip.
func (u *Upload) Finish(_ context.Context) (domain.Answer, error) {
	u.mu.Lock()
	c := u.current
	u.current = nil
	u.mu.Unlock()
	if c == nil {
		return domain.Answer{}, ErrNotCapturing
	}
	defer c.cancel()

	stopErr := c.session.Stop()
	<-c.done
	_ = c.session.Close()
	if stopErr != nil {
		u.logger.Warn("recorder did not stop cleanly", zap.Error(stopErr))
	}

	var answer domain.Answer
	if c.pcm.Len() > 0 {
		wav := audio.EncodeWAV(c.pcm.Bytes(), u.cfg.SampleRate, u.cfg.Channels)
		u.logger.Debug("clip recorded", zap.Int("pcm_bytes", c.pcm.Len()))
		answer.Audio = audio.DataURL(wav)
	}
	if c.readErr != nil && !errors.Is(c.readErr, io.ErrClosedPipe) {
		return answer, fmt.Errorf("read recording: %w", c.readErr)
	}
	return answer, nil
}

func (u *Upload) Abort() error {
	u.mu.Lock()
	c := u.current
	u.current = nil
	u.mu.Unlock()
	if c == nil {
		return nil
	}
	c.cancel()
	_ = c.session.Close()
	<-c.done
	return nil
}

// Unavailable is the strategy used when no capture capability exists.
// Typed answers keep working.
type Unavailable struct {
	Reason string
}

func (Unavailable) Kind() domain.CaptureKind {
	return domain.CaptureUnavailable
}

func (u Unavailable) Begin(context.Context, string) error {
	if u.Reason == "" {
		return domain.ErrUnsupportedDevice
	}
	return &unsupportedError{reason: u.Reason}
}

func (Unavailable) Finish(context.Context) (domain.Answer, error) {
	return domain.Answer{}, ErrNotCapturing
}

func (Unavailable) Abort() error {
	return nil
}

type unsupportedError struct {
	reason string
}

func (e *unsupportedError) Error() string {
	return domain.ErrUnsupportedDevice.Error() + ": " + e.reason
}

func (e *unsupportedError) Unwrap() error {
	return domain.ErrUnsupportedDevice
}
