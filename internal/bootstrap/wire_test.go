package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"interviewcoach/internal/domain"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("INTERVIEWCOACH_CONFIG", "")
	t.Setenv("INTERVIEWCOACH_LOG_FILE", filepath.Join(home, "coach.log"))
	t.Setenv("INTERVIEWCOACH_SPEECH__ENABLED", "false")
	t.Setenv("DEEPGRAM_API_KEY", "")
	t.Setenv("INTERVIEWCOACH_CAPTURE__RULES_PATH", "")
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd failed: %v", err)
	}
	if err := os.Chdir(home); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
	return home
}

func TestBuildSuccess(t *testing.T) {
	home := isolate(t)
	t.Setenv("INTERVIEWCOACH_JOURNAL__PATH", filepath.Join(home, "data", "journal.db"))
	t.Setenv("INTERVIEWCOACH_CAPTURE__MODE", "off")

	services, err := Build("")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer services.Close()

	if services.API == nil || services.Auth == nil || services.Metrics == nil {
		t.Fatalf("expected api, auth and metrics to be wired")
	}
	if services.Auth.SignedIn() {
		t.Fatalf("fresh home should be signed out")
	}

	interview, err := services.BuildInterview(noopSink{})
	if err != nil {
		t.Fatalf("build interview failed: %v", err)
	}
	if interview.Capability.Kind != domain.CaptureUnavailable {
		t.Fatalf("expected capture to be unavailable, got %+v", interview.Capability)
	}
	if status := interview.Controller.Status(); status.State != domain.StateNotStarted || status.Capture != domain.CaptureUnavailable {
		t.Fatalf("unexpected controller status: %+v", status)
	}
	if err := interview.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if _, err := os.Stat(services.Config.Journal.Path); err != nil {
		t.Fatalf("expected journal database to be created: %v", err)
	}
}

func TestBuildFailsOnInvalidConfig(t *testing.T) {
	isolate(t)
	t.Setenv("INTERVIEWCOACH_CAPTURE__MODE", "telepathy")

	if _, err := Build(""); err == nil {
		t.Fatalf("expected build error due to invalid capture mode")
	}
}

func TestBuildInterviewFailsOnInvalidRules(t *testing.T) {
	home := isolate(t)
	rulesPath := filepath.Join(home, "cleanup.yaml")
	content := "substitutions:\n  - pattern: \"(\"\n    to: x\n"
	if err := os.WriteFile(rulesPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("INTERVIEWCOACH_CAPTURE__RULES_PATH", rulesPath)

	services, err := Build("")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer services.Close()

	if _, err := services.BuildInterview(noopSink{}); err == nil {
		t.Fatalf("expected build error due to invalid rules")
	}
}

type noopSink struct{}

func (noopSink) SessionStateChanged(domain.InterviewState, domain.StateReason) {}
func (noopSink) QuestionAsked(string, int)                                    {}
func (noopSink) PartialTranscript(string)                                     {}
func (noopSink) TimerTick(int)                                                {}
func (noopSink) TurnFeedback(string)                                          {}
func (noopSink) FeedbackReady(domain.FeedbackRecord)                          {}
func (noopSink) SessionError(domain.ErrorCode, string)                        {}
func (noopSink) Navigate(domain.View)                                         {}
