package capture

import (
	"strings"
	"sync"

	"interviewcoach/internal/domain"
)

// transcriptBuffer holds the finalized chunks and the latest interim
// fragment of one capture. It is reset for every capture.
type transcriptBuffer struct {
	mu      sync.Mutex
	finals  []string
	interim string
}

func (b *transcriptBuffer) Add(event domain.TranscriptEvent) {
	text := strings.TrimSpace(event.Text)
	if text == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if event.Kind == domain.TranscriptKindFinal {
		b.finals = append(b.finals, text)
		b.interim = ""
		return
	}
	b.interim = text
}

// Merged returns the finalized text plus any trailing interim fragment the
// provider never finalized.
func (b *transcriptBuffer) Merged() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	joined := strings.TrimSpace(strings.Join(b.finals, " "))
	switch {
	case b.interim == "":
		return joined
	case joined == "":
		return b.interim
	default:
		return joined + " " + b.interim
	}
}

// Live is what the candidate sees while speaking.
func (b *transcriptBuffer) Live() string {
	return b.Merged()
}
