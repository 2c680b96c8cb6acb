package audio

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"interviewcoach/internal/domain"
	"interviewcoach/internal/ports"
)

func TestRecorderStartReadAndStop(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf 'hello'\nsleep 2\n")
	recorder := NewRecorder(script)

	session, err := recorder.Start(context.Background(), ports.AudioConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	buf := make([]byte, 8)
	n, readErr := session.Read(buf)
	if n <= 0 {
		t.Fatalf("expected audio bytes, got n=%d err=%v", n, readErr)
	}
	if !strings.Contains(string(buf[:n]), "hello") {
		t.Fatalf("unexpected bytes: %q", string(buf[:n]))
	}

	if err := session.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("second stop should be a no-op, got %v", err)
	}
}

func TestRecorderOutputAfterStopIsReadable(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\n"+
		"trap 'printf tail; exit 0' INT\n"+
		"printf head\n"+
		"while :; do sleep 0.05; done\n")
	session, err := NewRecorder(script).Start(context.Background(), ports.AudioConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := session.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	got, err := io.ReadAll(session)
	if err != nil {
		t.Fatalf("read after stop failed: %v", err)
	}
	if string(got) != "headtail" {
		t.Fatalf("expected recorder tail to survive stop, got %q", got)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestRecorderCloseDiscardsUnreadOutput(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf 'hello'\nwhile :; do sleep 0.05; done\n")
	session, err := NewRecorder(script).Start(context.Background(), ports.AudioConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := session.Read(make([]byte, 8)); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after close, got %v", err)
	}
}

func TestRecorderStartClassifiesFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		stderr string
		want   error
	}{
		{name: "permission", stderr: "default: Permission denied", want: domain.ErrPermissionDenied},
		{name: "no device", stderr: "Unknown input format: 'pulse'", want: domain.ErrUnsupportedDevice},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho \""+tc.stderr+"\" 1>&2\nexit 1\n")

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			_, err := NewRecorder(script).Start(ctx, ports.AudioConfig{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRecorderStartEarlyExitWithoutHint(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'boom' 1>&2\nexit 1\n")
	_, err := NewRecorder(script).Start(context.Background(), ports.AudioConfig{})
	if err == nil || !strings.Contains(err.Error(), "exited before capture started") {
		t.Fatalf("unexpected error: %v", err)
	}
	if errors.Is(err, domain.ErrPermissionDenied) || errors.Is(err, domain.ErrUnsupportedDevice) {
		t.Fatalf("generic failure should not be classified: %v", err)
	}
}

func TestRecorderMissingBinaryIsUnsupported(t *testing.T) {
	t.Parallel()

	recorder := NewRecorder(filepath.Join(t.TempDir(), "no-such-recorder"))
	if recorder.Available() {
		t.Fatalf("missing binary should not be available")
	}
	_, err := recorder.Start(context.Background(), ports.AudioConfig{})
	if !errors.Is(err, domain.ErrUnsupportedDevice) {
		t.Fatalf("expected ErrUnsupportedDevice, got %v", err)
	}
}

func TestIgnoreExitStatus(t *testing.T) {
	t.Parallel()

	err := exec.Command("bash", "-c", "exit 1").Run()
	if err == nil {
		t.Fatalf("expected command to fail")
	}
	if got := ignoreExitStatus(err); got != nil {
		t.Fatalf("expected nil for exit error, got %v", got)
	}
	if got := ignoreExitStatus(os.ErrClosed); !errors.Is(got, os.ErrClosed) {
		t.Fatalf("non-exit errors must pass through, got %v", got)
	}
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}
