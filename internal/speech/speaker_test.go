package speech

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestVoice(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"en-US":   "en-us",
		" hi-IN ": "hi",
		"fr-FR":   "fr-fr",
		"xx-YY":   "en-us",
		"":        "en-us",
	}
	for tag, want := range cases {
		if got := Voice(tag); got != want {
			t.Fatalf("Voice(%q) = %q, want %q", tag, got, want)
		}
	}
}

func TestSpeakPassesVoiceAndText(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "args.txt")
	script := filepath.Join(dir, "tts.sh")
	body := "#!/usr/bin/env bash\nprintf '%s|' \"$@\" > " + out + "\n"
	if err := os.WriteFile(script, []byte(body), 0o700); err != nil {
		t.Fatalf("write script: %v", err)
	}

	s := NewSpeaker(script, nil)
	if !s.Available() {
		t.Fatalf("script should be available")
	}
	s.Speak("Tell me about yourself.", "en-GB")
	s.Wait()

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	if string(got) != "-v|en-gb|Tell me about yourself.|" {
		t.Fatalf("unexpected args: %q", got)
	}
}

func TestStopInterruptsPlayback(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	script := filepath.Join(dir, "slow.sh")
	if err := os.WriteFile(script, []byte("#!/usr/bin/env bash\nsleep 5\n"), 0o700); err != nil {
		t.Fatalf("write script: %v", err)
	}

	s := NewSpeaker(script, nil)
	s.Speak("long question", "en-US")

	start := time.Now()
	s.Stop()
	s.Wait()
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("stop did not interrupt playback, took %v", elapsed)
	}
}

func TestSpeakMissingCommandIsSilent(t *testing.T) {
	t.Parallel()

	s := NewSpeaker(filepath.Join(t.TempDir(), "missing"), nil)
	if s.Available() {
		t.Fatalf("missing command should not be available")
	}
	s.Speak("hello", "en-US")
	s.Speak("   ", "en-US")
	s.Stop()
	s.Wait()

	var m Mute
	m.Speak("x", "y")
	m.Stop()
}
