package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"interviewcoach/internal/apiclient"
	"interviewcoach/internal/bootstrap"
	"interviewcoach/internal/domain"
	"interviewcoach/internal/journal"
	"interviewcoach/internal/report"
	"interviewcoach/internal/tui"
)

const (
	defaultRole       = "Software Engineer"
	defaultExperience = "Fresher"
)

var tableHeader = lipgloss.NewStyle().Bold(true).Padding(0, 1)

func (c *cli) newInterviewCmd() *cobra.Command {
	var (
		name, role, experience string
		persona, language      string
	)

	cmd := &cobra.Command{
		Use:   "interview",
		Short: "Start a voice interview with an AI interviewer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.signedIn(cmd, func(ctx context.Context, s *bootstrap.Services) error {
				user, _ := s.Auth.User()
				setup := tui.Setup{
					Profile: domain.Profile{
						Name:       firstNonEmpty(name, user.Name),
						Role:       firstNonEmpty(role, user.TargetRole, defaultRole),
						Experience: firstNonEmpty(experience, user.ExperienceLevel, defaultExperience),
					},
					PersonaID: firstNonEmpty(persona, s.Config.Interview.Persona),
					Language:  firstNonEmpty(language, s.Config.Interview.Language),
				}
				if setup.Profile.Name == "" {
					var err error
					if setup.Profile.Name, err = c.prompt(cmd, "", "Your name"); err != nil {
						return err
					}
				}
				return runInterview(ctx, s, setup)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&name, "name", "", "candidate name (default: account name)")
	flags.StringVar(&role, "role", "", "target role (default: account target role)")
	flags.StringVar(&experience, "experience", "", "experience level, e.g. Fresher or Senior")
	flags.StringVar(&persona, "persona", "", "interviewer persona id")
	flags.StringVar(&language, "language", "", "interview language")
	return cmd
}

func (c *cli) newHistoryCmd() *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past interviews",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if local {
				return c.run(cmd, func(ctx context.Context, s *bootstrap.Services) error {
					store, err := s.OpenJournal()
					if err != nil {
						return err
					}
					defer func() { _ = store.Close() }()

					rows, err := store.List(ctx)
					if err != nil {
						return err
					}
					return writeLocalHistory(cmd.OutOrStdout(), rows)
				})
			}
			return c.signedIn(cmd, func(ctx context.Context, s *bootstrap.Services) error {
				entries, err := s.API.History(ctx)
				if err != nil {
					return err
				}
				return writeHistory(cmd.OutOrStdout(), entries)
			})
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "list interviews recorded on this machine")
	return cmd
}

func writeHistory(w io.Writer, entries []apiclient.HistoryEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No interviews yet.")
		return err
	}
	t := newTable("ID", "DATE", "ROLE", "MODE", "TURNS", "SCORE")
	for _, e := range entries {
		t.Row(e.ID, formatDate(e.CreatedAt), e.UserData.Role, e.Mode, strconv.Itoa(len(e.Turns)), formatScore(e.OverallScore))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func writeLocalHistory(w io.Writer, rows []journal.Summary) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No interviews recorded locally.")
		return err
	}
	t := newTable("ID", "DATE", "ROLE", "INTERVIEWER", "TURNS", "SCORE")
	for _, r := range rows {
		interviewer := r.PersonaID
		if p, ok := domain.LookupPersona(r.PersonaID); ok {
			interviewer = p.Name
		}
		score := r.OverallScore
		t.Row(r.ID, formatDate(r.CreatedAt), r.Role, interviewer, strconv.Itoa(r.Turns), formatScore(&score))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeader
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func (c *cli) newDetailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detail <session-id>",
		Short: "Show the transcript and suggestions of a past interview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.signedIn(cmd, func(ctx context.Context, s *bootstrap.Services) error {
				detail, err := s.API.Detail(ctx, args[0])
				if err != nil {
					return err
				}
				return writeDetail(cmd.OutOrStdout(), detail)
			})
		},
	}
}

func writeDetail(w io.Writer, d apiclient.Detail) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Interview %s (%s)\n", d.ID, formatDate(d.CreatedAt))
	fmt.Fprintf(&b, "Candidate: %s, %s\n", d.UserData.Name, d.UserData.Role)
	fmt.Fprintf(&b, "Score: %s\n", formatScore(d.OverallScore))

	for _, turn := range d.Transcript {
		fmt.Fprintf(&b, "\nQ%d: %s\n", turn.TurnNo, turn.Question)
		answer := ""
		if turn.Answer != nil {
			answer = *turn.Answer
		}
		b.WriteString(strings.TrimRight(fmt.Sprintf("A%d: %s", turn.TurnNo, answer), " "))
		b.WriteString("\n")
		if turn.Score != nil {
			fmt.Fprintf(&b, "Score: %.1f\n", *turn.Score)
		}
	}

	if suggestions := renderSuggestions(d.Suggestions); suggestions != "" {
		b.WriteString("\nSuggestions:\n")
		b.WriteString(suggestions)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// renderSuggestions prints a list of strings one per line and falls back to
// indented JSON for any other shape.
func renderSuggestions(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err == nil {
		var b strings.Builder
		for _, item := range items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		return b.String()
	}
	pretty, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return string(raw) + "\n"
	}
	return string(pretty) + "\n"
}

func (c *cli) newPrepareCmd() *cobra.Command {
	var jdText, jdFile, jdURL, role string

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Get a rubric and likely questions for a job description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if jdFile != "" {
				data, err := os.ReadFile(jdFile)
				if err != nil {
					return fmt.Errorf("read job description: %w", err)
				}
				jdText = string(data)
			}
			return c.signedIn(cmd, func(ctx context.Context, s *bootstrap.Services) error {
				if role == "" {
					if user, ok := s.Auth.User(); ok {
						role = user.TargetRole
					}
				}
				prep, err := s.API.Prepare(ctx, apiclient.PrepareRequest{JDText: jdText, JDURL: jdURL, Role: role})
				if err != nil {
					return err
				}
				return writePreparation(cmd.OutOrStdout(), prep)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&jdText, "jd-text", "", "job description text")
	flags.StringVar(&jdFile, "jd-file", "", "read the job description from a file")
	flags.StringVar(&jdURL, "jd-url", "", "job posting url")
	flags.StringVar(&role, "role", "", "target role (default: account target role)")
	cmd.MarkFlagsMutuallyExclusive("jd-text", "jd-file")
	return cmd
}

func writePreparation(w io.Writer, prep apiclient.Preparation) error {
	var b strings.Builder
	if rubric := renderSuggestions(prep.Rubric); rubric != "" {
		b.WriteString("Rubric:\n")
		b.WriteString(rubric)
	}
	if len(prep.SuggestedQuestions) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Suggested questions:\n")
		for i, q := range prep.SuggestedQuestions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q)
		}
	}
	if b.Len() == 0 {
		b.WriteString("The service returned no preparation material.\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (c *cli) newReportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "report <session-id>",
		Short: "Write a text report of an interview recorded on this machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, s *bootstrap.Services) error {
				store, err := s.OpenJournal()
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()

				record, err := store.Get(ctx, args[0])
				if errors.Is(err, journal.ErrNotFound) {
					return fmt.Errorf("no local interview %q; see `interviewcoach history --local`", args[0])
				}
				if err != nil {
					return err
				}

				if output == "" {
					return report.Write(cmd.OutOrStdout(), record, time.Now())
				}
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create report: %w", err)
				}
				if err := report.Write(f, record, time.Now()); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to a file instead of stdout")
	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func formatDate(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04")
}

func formatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return strconv.FormatFloat(*score, 'f', 1, 64)
}
