package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"interviewcoach/internal/apiclient"
	"interviewcoach/internal/bootstrap"
)

func (c *cli) newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the account profile",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.signedIn(cmd, func(ctx context.Context, s *bootstrap.Services) error {
				user, err := s.API.Me(ctx)
				if err != nil {
					return err
				}
				if err := s.Auth.SetUser(user); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "Name:        %s\n", user.Name)
				_, _ = fmt.Fprintf(out, "Target role: %s\n", user.TargetRole)
				_, _ = fmt.Fprintf(out, "Experience:  %s\n", user.ExperienceLevel)
				return nil
			})
		},
	}

	var update apiclient.ProfileUpdate
	var resumePath string
	edit := &cobra.Command{
		Use:   "update",
		Short: "Change name, target role or experience, optionally uploading a PDF resume",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.signedIn(cmd, func(ctx context.Context, s *bootstrap.Services) error {
				current, _ := s.Auth.User()
				next := apiclient.ProfileUpdate{
					Name:            firstNonEmpty(update.Name, current.Name),
					TargetRole:      firstNonEmpty(update.TargetRole, current.TargetRole),
					ExperienceLevel: firstNonEmpty(update.ExperienceLevel, current.ExperienceLevel),
				}

				if resumePath == "" {
					changed, err := s.API.UpdateMe(ctx, next)
					if err != nil {
						return err
					}
					current.Name = firstNonEmpty(changed.Name, next.Name)
					current.TargetRole = firstNonEmpty(changed.TargetRole, next.TargetRole)
					current.ExperienceLevel = firstNonEmpty(changed.ExperienceLevel, next.ExperienceLevel)
					if err := s.Auth.SetUser(current); err != nil {
						return err
					}
				} else {
					f, err := os.Open(resumePath)
					if err != nil {
						return fmt.Errorf("open resume: %w", err)
					}
					defer func() { _ = f.Close() }()

					user, err := s.API.UpdateProfile(ctx, next, &apiclient.Resume{Filename: resumePath, Content: f})
					if err != nil {
						return err
					}
					if err := s.Auth.SetUser(user); err != nil {
						return err
					}
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Profile updated.")
				return nil
			})
		},
	}
	flags := edit.Flags()
	flags.StringVar(&update.Name, "name", "", "display name")
	flags.StringVar(&update.TargetRole, "role", "", "target role")
	flags.StringVar(&update.ExperienceLevel, "experience", "", "experience level")
	flags.StringVar(&resumePath, "resume", "", "PDF resume to upload")

	cmd.AddCommand(show, edit)
	return cmd
}

func (c *cli) newResumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Work with resume text",
	}

	var file string
	extract := &cobra.Command{
		Use:   "extract",
		Short: "Turn resume text into STAR stories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read resume: %w", err)
			}
			return c.signedIn(cmd, func(ctx context.Context, s *bootstrap.Services) error {
				stories, err := s.API.ExtractStories(ctx, string(data))
				if err != nil {
					return err
				}
				if len(stories) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No stories found.")
					return nil
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stories)
			})
		},
	}
	extract.Flags().StringVar(&file, "file", "", "plain-text resume")

	cmd.AddCommand(extract)
	return cmd
}

func (c *cli) newCreditsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Buy interview credits",
	}

	order := &cobra.Command{
		Use:   "order",
		Short: "Create a payment order to complete at the payment gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.signedIn(cmd, func(ctx context.Context, s *bootstrap.Services) error {
				o, err := s.API.CreateOrder(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "Order:    %s\n", o.OrderID)
				_, _ = fmt.Fprintf(out, "Amount:   %.2f %s\n", float64(o.Amount)/100, o.Currency)
				_, _ = fmt.Fprintf(out, "Key:      %s\n", o.KeyID)
				_, _ = fmt.Fprintln(out, "Complete checkout, then run `interviewcoach credits verify`.")
				return nil
			})
		},
	}

	var proof apiclient.PaymentProof
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Confirm a completed checkout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.signedIn(cmd, func(ctx context.Context, s *bootstrap.Services) error {
				paid, err := s.API.VerifyPayment(ctx, proof)
				if err != nil {
					return err
				}
				if user, ok := s.Auth.User(); ok && paid > 0 {
					user.PaidInterviews = paid
					if err := s.Auth.SetUser(user); err != nil {
						return err
					}
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Payment verified. Paid interviews: %d\n", paid)
				return nil
			})
		},
	}
	flags := verify.Flags()
	flags.StringVar(&proof.OrderID, "order-id", "", "gateway order id")
	flags.StringVar(&proof.PaymentID, "payment-id", "", "gateway payment id")
	flags.StringVar(&proof.Signature, "signature", "", "gateway signature")

	cmd.AddCommand(order, verify)
	return cmd
}
