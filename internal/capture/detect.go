// Package capture obtains one spoken answer per turn, either as a live
// transcript or as an uploaded audio clip.
package capture

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"interviewcoach/internal/domain"
	"interviewcoach/internal/ports"
)

// Capture modes accepted in configuration.
const (
	ModeAuto      = "auto"
	ModeStreaming = "streaming"
	ModeUpload    = "upload"
	ModeOff       = "off"
)

// Probe is everything capability detection looks at.
type Probe struct {
	GOOS                 string
	Mode                 string
	RecorderAvailable    bool
	StreamingConfigured  bool
	ForceUploadPlatforms []string
}

// Detect resolves the capture capability once, at startup.
func Detect(p Probe) domain.Capability {
	mode := strings.ToLower(strings.TrimSpace(p.Mode))
	if mode == "" {
		mode = ModeAuto
	}

	if mode == ModeOff {
		return unavailable("speech capture disabled in configuration")
	}
	if !p.RecorderAvailable {
		return unavailable("no audio recorder found")
	}

	forced := false
	for _, platform := range p.ForceUploadPlatforms {
		if strings.EqualFold(strings.TrimSpace(platform), p.GOOS) {
			forced = true
			break
		}
	}

	switch mode {
	case ModeUpload:
		return domain.Capability{Kind: domain.CaptureUpload, Reason: "upload mode configured"}
	case ModeStreaming:
		if forced {
			return domain.Capability{Kind: domain.CaptureUpload, Reason: fmt.Sprintf("streaming is not supported on %s", p.GOOS)}
		}
		if !p.StreamingConfigured {
			return unavailable("streaming mode configured without transcription credentials")
		}
		return domain.Capability{Kind: domain.CaptureStreaming, Reason: "streaming mode configured"}
	}

	switch {
	case forced:
		return domain.Capability{Kind: domain.CaptureUpload, Reason: fmt.Sprintf("%s records and uploads", p.GOOS)}
	case p.StreamingConfigured:
		return domain.Capability{Kind: domain.CaptureStreaming, Reason: "live transcription available"}
	default:
		return domain.Capability{Kind: domain.CaptureUpload, Reason: "no transcription credentials; recording for upload"}
	}
}

func unavailable(reason string) domain.Capability {
	return domain.Capability{Kind: domain.CaptureUnavailable, Reason: reason}
}

// Deps are the collaborators a strategy may need.
type Deps struct {
	Recorder  ports.AudioCapture
	Provider  ports.TranscriptionProvider
	Rules     ports.RulesEngine
	Listener  Listener
	Logger    *zap.Logger
	Streaming StreamingOptions
}

// New builds the strategy matching a detected capability.
func New(capability domain.Capability, deps Deps) ports.CaptureStrategy {
	switch capability.Kind {
	case domain.CaptureStreaming:
		return NewStreaming(deps.Recorder, deps.Provider, deps.Rules, deps.Listener, deps.Logger, deps.Streaming)
	case domain.CaptureUpload:
		return NewUpload(deps.Recorder, deps.Streaming.Audio, deps.Logger)
	default:
		return Unavailable{Reason: capability.Reason}
	}
}
