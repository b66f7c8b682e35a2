// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - Account commands for the ecosort CLI.
//
// Commands:
//   login [--email]               Sign in with email and password
//   login google --token T        Sign in with a Google ID token
//   login microsoft --token T     Sign in with a Microsoft access token
//   register                      Create an account
//   verify [--code]               Confirm the emailed code and sign in
//   forgot-password               Email a password reset token
//   reset-password --token T      Set a new password
//   logout                        Sign out
//   whoami                        Show the signed-in user
//   token refresh <token>         Replace the stored token

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ecosort/ecosort-tui/internal/backend"
	"github.com/ecosort/ecosort-tui/internal/gateway"
)

// =============================================================================
// LOGIN
// =============================================================================

func newLoginCmd(st *rootState) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Sign in and store the session for later commands.

The password is read without echo when stdin is a terminal, otherwise
from the next line of stdin.`,
		Example: `  ecosort login --email ada@example.com
  printf 'secret\n' | ecosort login --email ada@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := st.open(true)
			if err != nil {
				return err
			}
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			email, err := p.orPrompt(email, "Email: ")
			if err != nil {
				return err
			}
			if email == "" {
				return NewValidationError("email", "", "must not be empty")
			}
			password, err := p.Secret("Password: ")
			if err != nil {
				return err
			}
			if password == "" {
				return NewValidationError("password", "", "must not be empty")
			}

			res, err := app.API.Login(cmd.Context(), email, password)
			if err != nil {
				return NewCommandError("login", "sign in", "invalid email or password", err)
			}
			return finishLogin(cmd, app, res)
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.AddCommand(
		newProviderLoginCmd(st, "google", "Google", "Sign in with a Google ID token", (*backend.Client).GoogleLogin),
		newProviderLoginCmd(st, "microsoft", "Microsoft", "Sign in with a Microsoft access token", (*backend.Client).MicrosoftLogin),
	)
	return cmd
}

// providerLogin is a backend token exchange such as GoogleLogin.
type providerLogin func(*backend.Client, context.Context, string) (backend.AuthResult, error)

func newProviderLoginCmd(st *rootState, provider, display, short string, exchange providerLogin) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   provider,
		Short: short,
		Long: fmt.Sprintf(`Exchange a token issued by %s for an EcoSort session.

Obtain the token from the provider's sign-in flow and pass it with --token.`, display),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(token) == "" {
				return NewValidationError("token", "", "--token is required")
			}
			app, err := st.open(true)
			if err != nil {
				return err
			}
			res, err := exchange(app.API, cmd.Context(), strings.TrimSpace(token))
			if err != nil {
				return NewCommandError("login "+provider, "sign in", "token rejected", err)
			}
			return finishLogin(cmd, app, res)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "provider token")
	return cmd
}

// finishLogin stores the session and greets the user.
func finishLogin(cmd *cobra.Command, app *App, res backend.AuthResult) error {
	app.Session.Login(res.User, res.Token)
	app.Log.Info("signed in", zap.String("user_id", res.User.ID))
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", res.User.DisplayName())
	return nil
}

// =============================================================================
// REGISTRATION
// =============================================================================

func newRegisterCmd(st *rootState) *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create an account. The backend emails a verification code; run
'ecosort verify' with it to finish signing in. The email is remembered
until then.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := st.open(true)
			if err != nil {
				return err
			}
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			if name, err = p.orPrompt(name, "Name: "); err != nil {
				return err
			}
			if email, err = p.orPrompt(email, "Email: "); err != nil {
				return err
			}
			if name == "" || email == "" {
				return NewValidationError("account", "", "name and email are required")
			}
			password, err := p.Secret("Password: ")
			if err != nil {
				return err
			}
			if password == "" {
				return NewValidationError("password", "", "must not be empty")
			}

			res, err := app.API.Register(cmd.Context(), name, email, password)
			if err != nil {
				return NewCommandError("register", "create account", "registration failed", err)
			}
			app.Session.SetPendingEmail(strings.ToLower(strings.TrimSpace(email)))

			out := cmd.OutOrStdout()
			if res.Message != "" {
				fmt.Fprintln(out, res.Message)
			}
			fmt.Fprintln(out, "Check your email for a verification code, then run 'ecosort verify'.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newVerifyCmd(st *rootState) *cobra.Command {
	var email, code string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Confirm the emailed code and sign in",
		Long: `Submit the verification code sent after 'ecosort register'. The email
defaults to the one used at registration.`,
		Example: `  ecosort verify --code 123456`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := st.open(true)
			if err != nil {
				return err
			}
			if email == "" {
				email, _ = app.Session.PendingEmail()
			}
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			if email, err = p.orPrompt(email, "Email: "); err != nil {
				return err
			}
			if code, err = p.orPrompt(code, "Verification code: "); err != nil {
				return err
			}
			if email == "" || code == "" {
				return NewValidationErrorWithExample("code", "", "email and code are required", "ecosort verify --code 123456")
			}

			res, err := app.API.VerifyEmail(cmd.Context(), email, code)
			if err != nil {
				return NewCommandError("verify", "confirm email", "code rejected", err)
			}
			app.Session.Login(res.User, res.Token)
			app.Session.ClearPendingEmail()

			// The verify response carries only the id and email.
			if me, err := app.API.Me(cmd.Context()); err == nil {
				app.Session.Login(me, res.Token)
				res.User = me
			} else {
				app.Log.Debug("profile fetch after verify failed", zap.Error(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Email verified. Signed in as %s\n", res.User.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (default: the registered one)")
	cmd.Flags().StringVarP(&code, "code", "c", "", "verification code")
	return cmd
}

// =============================================================================
// PASSWORD RESET
// =============================================================================

func newForgotPasswordCmd(st *rootState) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Email a password reset token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := st.open(true)
			if err != nil {
				return err
			}
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			if email, err = p.orPrompt(email, "Email: "); err != nil {
				return err
			}
			if email == "" {
				return NewValidationError("email", "", "must not be empty")
			}
			msg, err := app.API.ForgotPassword(cmd.Context(), email)
			if err != nil {
				return NewCommandError("forgot-password", "request reset", "request failed", err)
			}
			if msg == "" {
				msg = "If the account exists, a reset token has been emailed."
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newResetPasswordCmd(st *rootState) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with an emailed reset token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := st.open(true)
			if err != nil {
				return err
			}
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			if token, err = p.orPrompt(token, "Reset token: "); err != nil {
				return err
			}
			if token == "" {
				return NewValidationError("token", "", "must not be empty")
			}
			password, err := p.Secret("New password: ")
			if err != nil {
				return err
			}
			if password == "" {
				return NewValidationError("password", "", "must not be empty")
			}
			msg, err := app.API.ResetPassword(cmd.Context(), token, password)
			if err != nil {
				return NewCommandError("reset-password", "reset", "token rejected", err)
			}
			if msg == "" {
				msg = "Password updated. Run 'ecosort login' to sign in."
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "reset token from the email")
	return cmd
}

// =============================================================================
// SESSION
// =============================================================================

func newLogoutCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := st.open(true)
			if err != nil {
				return err
			}
			if !app.Session.Active() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return nil
			}
			app.Session.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(st *rootState) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Long: `Fetch the signed-in user's profile from the backend and update the
stored identity. --offline prints the stored identity without a request.

A rejected token ends the stored session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := st.open(true)
			if err != nil {
				return err
			}
			s, err := app.RequireSession()
			if err != nil {
				return err
			}
			user := s.User
			if !offline {
				me, err := app.API.Me(cmd.Context())
				if gateway.IsUnauthorized(err) {
					app.Session.Logout()
					return NewCommandError("whoami", "fetch profile", "session expired, sign in again", err)
				}
				if err != nil {
					return NewCommandError("whoami", "fetch profile", "request failed", err)
				}
				app.Session.Login(me, s.Token)
				user = me
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:     %s\n", user.Name)
			fmt.Fprintf(out, "Email:    %s\n", user.Email)
			fmt.Fprintf(out, "User ID:  %s\n", user.ID)
			fmt.Fprintf(out, "Verified: %s\n", yesNo(user.IsVerified))
			if user.IsAdmin {
				fmt.Fprintln(out, "Role:     admin")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "print the stored identity without contacting the backend")
	return cmd
}

func newTokenCmd(st *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored access token",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "refresh <token>",
		Short: "Replace the stored token, keeping the identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := st.open(true)
			if err != nil {
				return err
			}
			if _, err := app.RequireSession(); err != nil {
				return err
			}
			token := strings.TrimSpace(args[0])
			if token == "" {
				return NewValidationError("token", "", "must not be empty")
			}
			app.Session.Refresh(token)
			fmt.Fprintln(cmd.OutOrStdout(), "Token updated.")
			return nil
		},
	})
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
