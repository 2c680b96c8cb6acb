package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"interviewcoach/internal/bootstrap"
)

func (c *cli) newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, s *bootstrap.Services) error {
				email, err := c.prompt(cmd, email, "Email")
				if err != nil {
					return err
				}
				password, err := c.prompt(cmd, password, "Password")
				if err != nil {
					return err
				}

				token, user, err := s.API.Login(ctx, email, password)
				if err != nil {
					return err
				}
				if err := s.Auth.Login(token, user); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s. Interviews left: %d\n", displayName(user.Name, user.Email), user.Credits())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func (c *cli) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(_ context.Context, s *bootstrap.Services) error {
				if err := s.Auth.Logout(); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
				return nil
			})
		},
	}
}

func (c *cli) newRegisterCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account; a verification email follows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, s *bootstrap.Services) error {
				email, err := c.prompt(cmd, email, "Email")
				if err != nil {
					return err
				}
				password, err := c.prompt(cmd, password, "Password")
				if err != nil {
					return err
				}
				message, err := s.API.Register(ctx, email, password)
				if err != nil {
					return err
				}
				printMessage(cmd, message, "Registered. Check your inbox to verify your email.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func (c *cli) newVerifyEmailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-email <token>",
		Short: "Confirm an email address with the token from the verification link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, s *bootstrap.Services) error {
				message, err := s.API.VerifyEmail(ctx, args[0])
				if err != nil {
					return err
				}
				printMessage(cmd, message, "Email verified. You can log in now.")
				return nil
			})
		},
	}
}

func (c *cli) newForgotPasswordCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, func(ctx context.Context, s *bootstrap.Services) error {
				email, err := c.prompt(cmd, email, "Email")
				if err != nil {
					return err
				}
				message, err := s.API.ForgotPassword(ctx, email)
				if err != nil {
					return err
				}
				printMessage(cmd, message, "If the account exists, a reset link is on its way.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func (c *cli) newResetPasswordCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "reset-password <token>",
		Short: "Set a new password with the token from the reset link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, s *bootstrap.Services) error {
				password, err := c.prompt(cmd, password, "New password")
				if err != nil {
					return err
				}
				message, err := s.API.ResetPassword(ctx, args[0], password)
				if err != nil {
					return err
				}
				printMessage(cmd, message, "Password updated. You can log in now.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "new password (prompted when omitted)")
	return cmd
}

func (c *cli) newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account and remaining interviews",
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
				_, _ = fmt.Fprintf(out, "Email:       %s\n", user.Email)
				_, _ = fmt.Fprintf(out, "Target role: %s\n", user.TargetRole)
				_, _ = fmt.Fprintf(out, "Experience:  %s\n", user.ExperienceLevel)
				_, _ = fmt.Fprintf(out, "Interviews:  %d free, %d paid\n", user.FreeInterviews, user.PaidInterviews)
				if expires, ok := s.Auth.ExpiresAt(); ok {
					_, _ = fmt.Fprintf(out, "Session:     valid until %s\n", expires.Local().Format("2006-01-02 15:04"))
				}
				return nil
			})
		},
	}
}

func printMessage(cmd *cobra.Command, message, fallback string) {
	if message == "" {
		message = fallback
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), message)
}

func displayName(name, email string) string {
	if name != "" {
		return name
	}
	return email
}
