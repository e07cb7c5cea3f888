package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/recruiter/internal/api"
	"github.com/spigell/recruiter/internal/secrets"
	"github.com/spigell/recruiter/internal/session"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and persist the session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, login)
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, register)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the persisted session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(_ context.Context, _ *cobra.Command, a *App) error {
			a.Session.Logout()
			fmt.Println("Signed out.")
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, status)
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringP("email", "e", "", "account e-mail")
		c.Flags().String("password-file", "", "read the password from this file instead of prompting")
	}
	registerCmd.Flags().StringP("name", "n", "", "full name")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, statusCmd)
}

// withApp builds the application for a single command and tears it down afterwards.
func withApp(cmd *cobra.Command, run func(ctx context.Context, cmd *cobra.Command, a *App) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	return run(ctx, cmd, a)
}

func login(ctx context.Context, cmd *cobra.Command, a *App) error {
	email, err := flagOrPrompt(cmd, "email", "E-mail")
	if err != nil {
		return err
	}

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	if err := a.Session.Login(ctx, api.Credentials{Email: email, Password: password}); err != nil {
		return authFailure(a.Logger, err)
	}

	name := a.Session.UserName()
	if name == "" {
		name = email
	}

	color.Green("Welcome, %s!", name)
	navigate(session.RouteDashboard)
	return nil
}

func register(ctx context.Context, cmd *cobra.Command, a *App) error {
	name, err := flagOrPrompt(cmd, "name", "Name")
	if err != nil {
		return err
	}

	email, err := flagOrPrompt(cmd, "email", "E-mail")
	if err != nil {
		return err
	}

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	resp, err := a.Session.Register(ctx, api.Registration{Name: name, Email: email, Password: password})
	if err != nil {
		return authFailure(a.Logger, err)
	}

	message := resp.Message
	if message == "" {
		message = "Account created."
	}

	color.Green("%s", message)
	navigate(session.RouteLogin)
	return nil
}

func status(ctx context.Context, _ *cobra.Command, a *App) error {
	if err := a.Session.Restore(ctx); err != nil && !errors.Is(err, session.ErrNoRefreshToken) {
		a.Logger.Debug("restoring the session", zap.Error(err))
	}

	snapshot := a.Session.Snapshot()
	if !snapshot.IsAuthenticated {
		fmt.Println(color.YellowString("Not signed in."))
		navigate(session.RouteLogin)
		return nil
	}

	user := snapshot.UserName
	if user == "" {
		user = "unknown user"
	}

	fmt.Printf("Signed in as %s\n", color.CyanString(user))
	fmt.Printf("Token expires at %s (in %s)\n",
		snapshot.ExpiresAt.Local().Format(time.RFC1123),
		time.Until(snapshot.ExpiresAt).Round(time.Second),
	)
	if snapshot.RefreshToken == "" {
		fmt.Println(color.YellowString("No refresh token: you will have to sign in again when it expires."))
	}

	return nil
}

// authFailure turns session errors into the message shown to the user.
func authFailure(logger *zap.Logger, err error) error {
	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		logger.Debug("authentication failed", zap.Error(authErr.Err))
		return errors.New(authErr.Message)
	}

	return err
}

func flagOrPrompt(cmd *cobra.Command, flag, label string) (string, error) {
	value, _ := cmd.Flags().GetString(flag)
	if value = strings.TrimSpace(value); value != "" {
		return value, nil
	}

	prompt := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", strings.ToLower(label))
			}
			return nil
		},
	}

	value, err := prompt.Run()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(value), nil
}

func readPassword(cmd *cobra.Command) (string, error) {
	file, _ := cmd.Flags().GetString("password-file")

	return secrets.Load(secrets.Source{
		Name: "password",
		File: file,
		Prompt: func(label string) (string, error) {
			prompt := promptui.Prompt{Label: strings.ToUpper(label[:1]) + label[1:], Mask: '*'}
			return prompt.Run()
		},
	})
}
