package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"interviewcoach/internal/bootstrap"
	"interviewcoach/internal/domain"
)

var errNotSignedIn = errors.New("not signed in; run `interviewcoach login` first")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli carries the persistent flags shared by every command.
type cli struct {
	configPath string
	input      *bufio.Reader
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "interviewcoach",
		Short:         "Practice job interviews with an AI interviewer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML config file (default: $INTERVIEWCOACH_CONFIG)")

	root.AddCommand(
		c.newLoginCmd(),
		c.newLogoutCmd(),
		c.newRegisterCmd(),
		c.newVerifyEmailCmd(),
		c.newForgotPasswordCmd(),
		c.newResetPasswordCmd(),
		c.newWhoamiCmd(),
		c.newInterviewCmd(),
		c.newHistoryCmd(),
		c.newDetailCmd(),
		c.newPrepareCmd(),
		c.newReportCmd(),
		c.newProfileCmd(),
		c.newResumeCmd(),
		c.newCreditsCmd(),
	)
	return root
}

// run builds the service graph for one command invocation. A 401 from the
// API clears the stored credential.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, s *bootstrap.Services) error) error {
	services, err := bootstrap.Build(c.configPath)
	if err != nil {
		return err
	}
	defer services.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	services.ServeMetrics(ctx)

	err = fn(ctx, services)
	var svcErr *domain.ServiceError
	if errors.As(err, &svcErr) && svcErr.HTTPStatus == http.StatusUnauthorized && services.Auth.SignedIn() {
		if logoutErr := services.Auth.Logout(); logoutErr != nil {
			services.Logger.Warn("clearing expired credentials failed", zap.Error(logoutErr))
		}
		return fmt.Errorf("%w; your session has expired, log in again", err)
	}
	return err
}

// signedIn wraps fn with a credential check.
func (c *cli) signedIn(cmd *cobra.Command, fn func(ctx context.Context, s *bootstrap.Services) error) error {
	return c.run(cmd, func(ctx context.Context, s *bootstrap.Services) error {
		if !s.Auth.SignedIn() {
			return errNotSignedIn
		}
		return fn(ctx, s)
	})
}

// prompt returns value, or reads one line from the command's input when it is empty.
func (c *cli) prompt(cmd *cobra.Command, value, label string) (string, error) {
	if strings.TrimSpace(value) != "" {
		return value, nil
	}
	if c.input == nil {
		c.input = bufio.NewReader(cmd.InOrStdin())
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", label)
	line, err := c.input.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
