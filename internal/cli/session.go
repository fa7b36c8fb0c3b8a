package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"rhystmorgan/fxTerm/internal/ledger"
	"rhystmorgan/fxTerm/internal/security"
	"rhystmorgan/fxTerm/internal/storage"
)

func (s *runtimeState) newLoginCommand() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session under a passphrase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if username == "" {
				if username, err = s.prompt("Username: "); err != nil {
					return err
				}
			}
			password, err := s.secret(PasswordEnv, "Password: ")
			if err != nil {
				return err
			}
			passphrase, err := s.secret(PassphraseEnv, "Passphrase for the saved session: ")
			if err != nil {
				return err
			}
			if passphrase == "" {
				return errors.New("a passphrase is required to save the session")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), s.cfg.Timeout*time.Duration(s.cfg.RetryCount+1))
			defer cancel()

			cred, err := security.Authenticate(ctx, s.client, username, password)
			if err != nil {
				s.logger.Warn("login failed", "username", username, "err", err)
				return errors.New(ledger.ClassifyError(err).UserMessage())
			}
			session, err := s.sessions.Start(cred)
			if err != nil {
				return err
			}
			if err := s.sessions.Save(passphrase); err != nil {
				return fmt.Errorf("failed to save session: %w", err)
			}

			s.logger.Info("signed in", "user_id", session.UserID)
			s.printf("Signed in as %s (user %d)\n", displayUser(session.Credential), session.UserID)
			if !session.ExpiresAt.IsZero() {
				s.printf("Session expires at %s\n", session.ExpiresAt.Local().Format(time.RFC1123))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "ledger username")
	return cmd
}

func (s *runtimeState) newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.sessions.Logout(); err != nil {
				return fmt.Errorf("failed to remove session: %w", err)
			}
			s.logger.Info("signed out")
			s.printf("Signed out\n")
			return nil
		},
	}
}

func (s *runtimeState) newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show ledger connectivity and session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), s.cfg.Timeout)
			defer cancel()

			pingErr := s.client.Ping(ctx)
			status := s.client.GetStatus()

			s.printf("Ledger:   %s\n", status.BaseURL)
			if pingErr != nil {
				s.printf("          unreachable (%s)\n", ledger.ClassifyError(pingErr).UserMessage())
			} else {
				s.printf("          connected\n")
			}
			s.printf("Breaker:  %s\n", status.BreakerState)

			if !s.sessions.HasSaved() {
				s.printf("Session:  none saved\n")
				return nil
			}
			if os.Getenv(PassphraseEnv) == "" {
				s.printf("Session:  saved (locked)\n")
				return nil
			}

			err := s.unlock()
			switch {
			case errors.Is(err, storage.ErrInvalidPassphrase):
				s.printf("Session:  saved (wrong passphrase)\n")
			case err != nil:
				s.printf("Session:  %v\n", err)
			default:
				session, _ := s.sessions.Current()
				s.printf("Session:  %s as %s\n", s.sessions.Status(), displayUser(session.Credential))
				if remaining := s.sessions.TimeRemaining(); remaining > 0 {
					s.printf("          %s remaining\n", remaining.Round(time.Second))
				}
			}
			return nil
		},
	}
}

func displayUser(cred security.Credential) string {
	if cred.Username != "" {
		return cred.Username
	}
	return fmt.Sprintf("user %d", cred.UserID)
}
