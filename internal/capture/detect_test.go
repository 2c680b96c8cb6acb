package capture

import (
	"context"
	"errors"
	"testing"

	"interviewcoach/internal/domain"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	android := []string{"android"}
	cases := []struct {
		name  string
		probe Probe
		want  domain.CaptureKind
	}{
		{"auto with credentials streams", Probe{GOOS: "linux", RecorderAvailable: true, StreamingConfigured: true, ForceUploadPlatforms: android}, domain.CaptureStreaming},
		{"auto without credentials uploads", Probe{GOOS: "linux", RecorderAvailable: true}, domain.CaptureUpload},
		{"forced platform uploads", Probe{GOOS: "android", RecorderAvailable: true, StreamingConfigured: true, ForceUploadPlatforms: android}, domain.CaptureUpload},
		{"forced platform match is case-insensitive", Probe{GOOS: "android", RecorderAvailable: true, StreamingConfigured: true, ForceUploadPlatforms: []string{" Android "}}, domain.CaptureUpload},
		{"no recorder is unavailable", Probe{GOOS: "linux", StreamingConfigured: true}, domain.CaptureUnavailable},
		{"off is unavailable", Probe{GOOS: "linux", Mode: "off", RecorderAvailable: true, StreamingConfigured: true}, domain.CaptureUnavailable},
		{"explicit upload", Probe{GOOS: "linux", Mode: "upload", RecorderAvailable: true, StreamingConfigured: true}, domain.CaptureUpload},
		{"explicit streaming without key", Probe{GOOS: "linux", Mode: "streaming", RecorderAvailable: true}, domain.CaptureUnavailable},
		{"explicit streaming on forced platform", Probe{GOOS: "android", Mode: "Streaming", RecorderAvailable: true, StreamingConfigured: true, ForceUploadPlatforms: android}, domain.CaptureUpload},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Detect(tc.probe)
			if got.Kind != tc.want {
				t.Fatalf("expected %s, got %s (%s)", tc.want, got.Kind, got.Reason)
			}
			if got.Reason == "" {
				t.Fatalf("capability should carry a reason")
			}
		})
	}
}

func TestNewPicksStrategy(t *testing.T) {
	t.Parallel()

	if got := New(domain.Capability{Kind: domain.CaptureStreaming}, Deps{Listener: &recordingListener{}}).Kind(); got != domain.CaptureStreaming {
		t.Fatalf("unexpected kind %s", got)
	}
	if got := New(domain.Capability{Kind: domain.CaptureUpload}, Deps{}).Kind(); got != domain.CaptureUpload {
		t.Fatalf("unexpected kind %s", got)
	}

	strategy := New(domain.Capability{Kind: domain.CaptureUnavailable, Reason: "no audio recorder found"}, Deps{})
	if strategy.Kind() != domain.CaptureUnavailable {
		t.Fatalf("unexpected kind %s", strategy.Kind())
	}
	err := strategy.Begin(context.Background(), "en-US")
	if !errors.Is(err, domain.ErrUnsupportedDevice) {
		t.Fatalf("expected ErrUnsupportedDevice, got %v", err)
	}
	if _, err := strategy.Finish(context.Background()); !errors.Is(err, ErrNotCapturing) {
		t.Fatalf("expected ErrNotCapturing, got %v", err)
	}
}
