package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"interviewcoach/internal/audio"
	"interviewcoach/internal/domain"
	"interviewcoach/internal/ports"
)

func TestUploadRecordsWAVDataURL(t *testing.T) {
	t.Parallel()

	audio := newFakeAudioSession("\x01\x02", "\x03\x04")
	u := NewUpload(&fakeRecorder{sessions: []*fakeAudioSession{audio}}, ports.AudioConfig{SampleRate: 8000}, nil)
	if u.Kind() != domain.CaptureUpload {
		t.Fatalf("unexpected kind %s", u.Kind())
	}

	if err := u.Begin(context.Background(), "en-US"); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	waitFor(t, func() bool {
		audio.mu.Lock()
		defer audio.mu.Unlock()
		return audio.index == 2
	})

	answer, err := u.Finish(context.Background())
	if err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if !answer.IsAudio() || answer.Text != "" {
		t.Fatalf("expected audio answer, got %+v", answer)
	}
	const prefix = "data:audio/wav;base64,"
	if !strings.HasPrefix(answer.Audio, prefix) {
		t.Fatalf("unexpected payload prefix: %q", answer.Audio[:20])
	}
	wav, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(answer.Audio, prefix))
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	if len(wav) != 44+4 || string(wav[44:]) != "\x01\x02\x03\x04" {
		t.Fatalf("unexpected wav body: %q", wav)
	}
}

func TestUploadSilentClipIsEmptyText(t *testing.T) {
	t.Parallel()

	u := NewUpload(&fakeRecorder{sessions: []*fakeAudioSession{newFakeAudioSession()}}, ports.AudioConfig{}, nil)
	if err := u.Begin(context.Background(), ""); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	answer, err := u.Finish(context.Background())
	if err != nil || answer.IsAudio() || answer.Text != "" {
		t.Fatalf("unexpected result: %+v %v", answer, err)
	}
}

func TestUploadErrors(t *testing.T) {
	t.Parallel()

	u := NewUpload(&fakeRecorder{err: domain.ErrPermissionDenied}, ports.AudioConfig{}, nil)
	if err := u.Begin(context.Background(), ""); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if _, err := u.Finish(context.Background()); !errors.Is(err, ErrNotCapturing) {
		t.Fatalf("expected ErrNotCapturing, got %v", err)
	}
}

func TestUploadAbortStopsRecorder(t *testing.T) {
	t.Parallel()

	audio := newFakeAudioSession("abc")
	u := NewUpload(&fakeRecorder{sessions: []*fakeAudioSession{audio}}, ports.AudioConfig{}, nil)
	if err := u.Begin(context.Background(), ""); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if err := u.Abort(); err != nil {
		t.Fatalf("abort failed: %v", err)
	}
	if audio.stops() == 0 {
		t.Fatalf("abort should stop the recorder")
	}
	if _, err := u.Finish(context.Background()); !errors.Is(err, ErrNotCapturing) {
		t.Fatalf("finish after abort should report ErrNotCapturing, got %v", err)
	}
}

func TestUploadSurfacesReadError(t *testing.T) {
	t.Parallel()

	session := newFakeAudioSession("\x01\x02")
	session.readErr = errors.New("device unplugged")
	u := NewUpload(&fakeRecorder{sessions: []*fakeAudioSession{session}}, ports.AudioConfig{}, nil)
	if err := u.Begin(context.Background(), ""); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	waitFor(t, func() bool {
		session.mu.Lock()
		defer session.mu.Unlock()
		return session.index == 1
	})

	answer, err := u.Finish(context.Background())
	if err == nil || !strings.Contains(err.Error(), "device unplugged") {
		t.Fatalf("expected read error, got %v", err)
	}
	if !answer.IsAudio() {
		t.Fatalf("recovered audio should still be returned, got %+v", answer)
	}
}

func TestUploadKeepsAudioFlushedOnStop(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
	script := filepath.Join(t.TempDir(), "recorder.sh")
	body := "#!/usr/bin/env bash\n" +
		"trap 'head -c 60000 /dev/zero; exit 0' INT\n" +
		"head -c 60000 /dev/zero\n" +
		"while :; do sleep 0.05; done\n"
	if err := os.WriteFile(script, []byte(body), 0o700); err != nil {
		t.Fatalf("failed to write recorder script: %v", err)
	}

	const prefix = "data:audio/wav;base64,"
	for i := 0; i < 3; i++ {
		u := NewUpload(audio.NewRecorder(script), ports.AudioConfig{}, nil)
		if err := u.Begin(context.Background(), ""); err != nil {
			t.Fatalf("run %d: begin failed: %v", i, err)
		}
		answer, err := u.Finish(context.Background())
		if err != nil {
			t.Fatalf("run %d: finish failed: %v", i, err)
		}
		wav, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(answer.Audio, prefix))
		if err != nil {
			t.Fatalf("run %d: payload is not base64: %v", i, err)
		}
		if got := len(wav) - 44; got != 120000 {
			t.Fatalf("run %d: expected 120000 pcm bytes, got %d", i, got)
		}
	}
}
