// Package report renders a finished interview as a plain-text report.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"interviewcoach/internal/domain"
)

// Write renders record as numbered Q/A pairs followed by the score and the
// detailed feedback.
func Write(w io.Writer, record domain.SessionRecord, generated time.Time) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Interview Report - %s\n\n", generated.Format("2006-01-02 15:04"))
	if record.Profile.Name != "" || record.Profile.Role != "" {
		fmt.Fprintf(&b, "Candidate: %s (%s", record.Profile.Name, record.Profile.Role)
		if record.Profile.Experience != "" {
			fmt.Fprintf(&b, ", %s", record.Profile.Experience)
		}
		b.WriteString(")\n")
	}
	if persona, ok := domain.LookupPersona(record.PersonaID); ok {
		fmt.Fprintf(&b, "Interviewer: %s\n", persona.Name)
	}
	fmt.Fprintf(&b, "Score: %.1f/10\n\n", record.Feedback.OverallScore)

	for i, turn := range record.Turns {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Q%d: %s\n", i+1, turn.Question)
		b.WriteString(strings.TrimRight(fmt.Sprintf("A%d: %s", i+1, turn.AnswerText()), " "))
		b.WriteString("\n")
		if turn.Feedback != "" {
			fmt.Fprintf(&b, "Feedback: %s\n", turn.Feedback)
		}
	}

	b.WriteString("\n---\nDetailed Feedback:\n")
	b.WriteString(record.Feedback.DetailedFeedback)
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}
