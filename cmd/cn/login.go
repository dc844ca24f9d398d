package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/campusnote/campusnote/internal/session"
)

// passwordEnv supplies the password when stdin is not a terminal.
const passwordEnv = "CAMPUSNOTE_PASSWORD"

var loginCmd = &cobra.Command{
	Use:     "login",
	GroupID: "account",
	Short:   "Sign in and store the session",
	Long: `Sign in with your campus account. The token is written to the session
file so the daemon and later commands run as you.

On a terminal the email and password are prompted for. Otherwise pass
--email and set ` + passwordEnv + `.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password := os.Getenv(passwordEnv)

		if isTerminal(os.Stdin) && password == "" {
			form := huh.NewForm(huh.NewGroup(
				huh.NewInput().
					Title("Email").
					Value(&email).
					Validate(required("email")),
				huh.NewInput().
					Title("Password").
					EchoMode(huh.EchoModePassword).
					Value(&password).
					Validate(required("password")),
			))
			if err := form.RunWithContext(cmd.Context()); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return errors.New("login canceled")
				}
				return err
			}
		}
		if strings.TrimSpace(email) == "" || password == "" {
			return fmt.Errorf("email and password are required (use --email and %s)", passwordEnv)
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		state, err := session.Login(cmd.Context(), a.client, strings.TrimSpace(email), password)
		if err != nil {
			return err
		}
		if err := a.store.Save(state); err != nil {
			return err
		}
		a.sess.Set(state)

		fmt.Fprintf(cmd.OutOrStdout(), "%s Signed in as %s\n", renderPass("✓"), displayName(state))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	GroupID: "account",
	Short:   "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := session.NewStore(cfg.Session.Path)
		if err := store.Remove(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Signed out\n", renderPass("✓"))
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	GroupID: "account",
	Short:   "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := session.NewStore(cfg.Session.Path).Load()
		if err != nil {
			return err
		}
		if !state.SignedIn() {
			return errSignedOut
		}

		view := struct {
			UserID    string     `json:"user_id" yaml:"user_id"`
			Name      string     `json:"name,omitempty" yaml:"name,omitempty"`
			Email     string     `json:"email,omitempty" yaml:"email,omitempty"`
			ExpiresAt *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
		}{UserID: state.UserID, Name: state.Name, Email: state.Email}
		if !state.ExpiresAt.IsZero() {
			view.ExpiresAt = &state.ExpiresAt
		}

		return emit(cmd.OutOrStdout(), view, func(w io.Writer) {
			fmt.Fprintf(w, "%s (user %s)\n", renderAccent(displayName(state)), state.UserID)
			switch {
			case state.ExpiresAt.IsZero():
			case state.Expired(time.Now()):
				fmt.Fprintf(w, "%s token expired %s\n", renderWarn("⚠"), state.ExpiresAt.Local().Format(time.DateTime))
			default:
				fmt.Fprintf(w, "%s\n", renderMuted("token valid until "+state.ExpiresAt.Local().Format(time.DateTime)))
			}
		})
	},
}

func displayName(s session.State) string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Email != "":
		return s.Email
	default:
		return s.UserID
	}
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func init() {
	loginCmd.Flags().String("email", "", "account email")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}
