// Package speech reads interview questions aloud through a local TTS command.
package speech

import (
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Speaker runs one TTS process at a time; a new utterance interrupts the
// previous one.
type Speaker struct {
	command string
	logger  *zap.Logger

	mu      sync.Mutex
	current *exec.Cmd
	wg      sync.WaitGroup
}

func NewSpeaker(command string, logger *zap.Logger) *Speaker {
	if strings.TrimSpace(command) == "" {
		command = "espeak-ng"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Speaker{command: command, logger: logger}
}

// Available reports whether the TTS binary can be found.
func (s *Speaker) Available() bool {
	_, err := exec.LookPath(s.command)
	return err == nil
}

// Speak starts playback and returns immediately.
func (s *Speaker) Speak(text string, language string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	cmd := exec.Command(s.command, "-v", Voice(language), text)
	if err := cmd.Start(); err != nil {
		s.logger.Warn("text-to-speech unavailable", zap.String("command", s.command), zap.Error(err))
		return
	}
	s.current = cmd

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = cmd.Wait()
		s.mu.Lock()
		if s.current == cmd {
			s.current = nil
		}
		s.mu.Unlock()
	}()
}

// Stop interrupts playback, if any.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Wait blocks until every started utterance has exited.
func (s *Speaker) Wait() {
	s.wg.Wait()
}

func (s *Speaker) stopLocked() {
	if s.current == nil || s.current.Process == nil {
		return
	}
	_ = s.current.Process.Kill()
	s.current = nil
}

var voices = map[string]string{
	"en-us": "en-us",
	"en-gb": "en-gb",
	"en-in": "en-in",
	"hi-in": "hi",
	"es-es": "es",
	"fr-fr": "fr-fr",
}

// Voice maps a BCP-47 tag onto an espeak-ng voice name.
func Voice(tag string) string {
	if v, ok := voices[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return v
	}
	return "en-us"
}

// Mute is a Speaker that says nothing.
type Mute struct{}

func (Mute) Speak(string, string) {}
func (Mute) Stop()                {}
