// Package audio records microphone PCM through an external recorder process.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"interviewcoach/internal/domain"
	"interviewcoach/internal/ports"
)

const (
	startupProbe = 250 * time.Millisecond
	stopTimeout  = 1200 * time.Millisecond
	drainTimeout = time.Second
)

// Recorder streams s16le PCM from an ffmpeg-compatible command.
type Recorder struct {
	command string
}

func NewRecorder(command string) *Recorder {
	if strings.TrimSpace(command) == "" {
		command = "ffmpeg"
	}
	return &Recorder{command: command}
}

// Available reports whether the recorder binary can be found.
func (r *Recorder) Available() bool {
	_, err := exec.LookPath(r.command)
	return err == nil
}

func (r *Recorder) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cfg = withDefaults(cfg)

	cmd := exec.CommandContext(ctx, r.command, recorderArgs(cfg)...)
	stderr := &syncBuffer{}
	cmd.Stderr = stderr

	// A plain pipe instead of StdoutPipe: Wait must not close the read end
	// while the recorder's final flush is still unread.
	stdout, sink, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create recorder stdout pipe: %w", err)
	}
	cmd.Stdout = sink
	if err := cmd.Start(); err != nil {
		_ = sink.Close()
		_ = stdout.Close()
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found", domain.ErrUnsupportedDevice, r.command)
		}
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", domain.ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("start recorder: %w", err)
	}
	_ = sink.Close()

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		_ = stdout.Close()
		return nil, classifyStartFailure(err, stderr.String())
	case <-time.After(startupProbe):
	}

	return &recording{
		stdout:  stdout,
		stderr:  stderr,
		process: cmd.Process,
		waitErr: waitErr,
	}, nil
}

func withDefaults(cfg ports.AudioConfig) ports.AudioConfig {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	return cfg
}

func recorderArgs(cfg ports.AudioConfig) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

var (
	permissionHints  = []string{"permission denied", "access denied", "not permitted", "operation not permitted"}
	unsupportedHints = []string{"no such file or directory", "unknown input format", "no such device", "cannot open audio device", "connection refused", "device or resource busy"}
)

// classifyStartFailure maps an early recorder exit onto the capture error
// taxonomy using its stderr.
func classifyStartFailure(err error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	lower := strings.ToLower(detail)

	for _, hint := range permissionHints {
		if strings.Contains(lower, hint) {
			return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, detail)
		}
	}
	for _, hint := range unsupportedHints {
		if strings.Contains(lower, hint) {
			return fmt.Errorf("%w: %s", domain.ErrUnsupportedDevice, detail)
		}
	}
	if err != nil {
		if detail == "" {
			return fmt.Errorf("recorder exited before capture started: %w", err)
		}
		return fmt.Errorf("recorder exited before capture started: %w: %s", err, detail)
	}
	return errors.New("recorder exited before capture started")
}

type recording struct {
	stdout *os.File
	stderr *syncBuffer

	process *os.Process
	waitErr <-chan error

	stopped   atomic.Bool
	stopOnce  sync.Once
	stopErr   error
	closeOnce sync.Once
	closeErr  error
}

// Read returns the recorder output. After Stop, the unread tail stays
// readable until EOF or until drainTimeout closes the pipe; both end the
// stream with io.EOF.
func (s *recording) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	if err != nil && s.stopped.Load() && errors.Is(err, os.ErrClosed) {
		err = io.EOF
	}
	return n, err
}

// Close stops the recorder and releases the pipe, discarding unread output.
func (s *recording) Close() error {
	stopErr := s.Stop()
	if err := s.closeStdout(); err != nil && stopErr == nil {
		return err
	}
	return stopErr
}

// Stop interrupts the recorder and escalates to kill after stopTimeout. The
// read end stays open so readers can drain what the recorder flushed on exit.
func (s *recording) Stop() error {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = ignoreExitStatus(err)
			}
		case <-time.After(stopTimeout):
			if s.process != nil {
				_ = s.process.Kill()
			}
			if err, ok := <-s.waitErr; ok {
				s.stopErr = ignoreExitStatus(err)
			}
		}
		// A child that inherited stdout can hold the pipe open past the
		// recorder's own exit.
		time.AfterFunc(drainTimeout, func() { _ = s.closeStdout() })

		if s.stopErr != nil {
			if detail := strings.TrimSpace(s.stderr.String()); detail != "" {
				s.stopErr = fmt.Errorf("%w: %s", s.stopErr, detail)
			}
		}
	})
	return s.stopErr
}

func (s *recording) closeStdout() error {
	s.closeOnce.Do(func() {
		if err := s.stdout.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			s.closeErr = err
		}
	})
	return s.closeErr
}

// ignoreExitStatus drops the non-zero status an interrupted recorder exits with.
func ignoreExitStatus(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
