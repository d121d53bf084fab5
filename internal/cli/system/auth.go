package system

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/surgisync/internal/api"
	"github.com/julianstephens/surgisync/internal/cli"
	"github.com/julianstephens/surgisync/internal/keyring"
)

// Swapped in tests.
var (
	setToken    = keyring.SetToken
	deleteToken = keyring.DeleteToken
	getToken    = keyring.GetToken
)

// promptPassword asks for a secret without echoing it. Swapped in tests.
var promptPassword = func(title string) (string, error) {
	var value string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				EchoMode(huh.EchoModePassword).
				Value(&value),
		),
	).Run()
	if err != nil {
		return "", fmt.Errorf("interactive form error: %w", err)
	}
	return value, nil
}

type SignupCmd struct {
	Email    string   `arg:"" help:"Account email."`
	FullName string   `help:"Full name shown to the care team."`
	Roles    []string `help:"Roles to request (e.g. doctor, nurse)." sep:","`
	Password string   `help:"Password. Prompted when omitted." env:"SURGISYNC_PASSWORD"`
}

func (c *SignupCmd) Run(ctx *cli.Context) error {
	password, err := passwordOrPrompt(c.Password, "Choose a password")
	if err != nil {
		return err
	}
	user, err := ctx.Client.Signup(context.Background(), api.SignupRequest{
		Email:    strings.TrimSpace(c.Email),
		Password: password,
		FullName: c.FullName,
		Roles:    c.Roles,
	})
	if err != nil {
		return fmt.Errorf("signup failed: %w", err)
	}
	ctx.Printf("✓ Account created for %s (id %s)\n", user.Email, user.ID)
	ctx.Println("  Run 'surgisync login' to start a session")
	return nil
}

type LoginCmd struct {
	Email    string `arg:"" optional:"" help:"Account email. Defaults to the last login."`
	Password string `help:"Password. Prompted when omitted." env:"SURGISYNC_PASSWORD"`
}

func (c *LoginCmd) Run(ctx *cli.Context) error {
	email := strings.TrimSpace(c.Email)
	if email == "" {
		email = ctx.Config.Email
	}
	if email == "" {
		return errors.New("email is required")
	}
	password, err := passwordOrPrompt(c.Password, "Password for "+email)
	if err != nil {
		return err
	}

	session, err := ctx.Client.Login(context.Background(), email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := setToken(ctx.Config.BaseURL, session.Token); err != nil {
		return err
	}
	ctx.Config.Email = email
	if err := ctx.Config.Save(); err != nil {
		return fmt.Errorf("logged in but failed to save config: %w", err)
	}
	name := session.User.FullName
	if name == "" {
		name = email
	}
	ctx.Printf("✓ Logged in as %s\n", name)
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *cli.Context) error {
	if ctx.Client.HasToken() {
		if err := ctx.Client.Logout(context.Background(), ctx.Config.Email); err != nil {
			// The local token is removed regardless.
			ctx.Printf("⚠ Server logout failed: %v\n", err)
		}
	}
	if err := deleteToken(ctx.Config.BaseURL); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	ctx.Println("✓ Logged out")
	return nil
}

type PasswordCmd struct{}

func (c *PasswordCmd) Run(ctx *cli.Context) error {
	if err := ctx.RequireSession(); err != nil {
		return err
	}
	if ctx.Config.Email == "" {
		return errors.New("no account email on record, log in again")
	}
	oldPassword, err := promptPassword("Current password")
	if err != nil {
		return err
	}
	newPassword, err := promptPassword("New password")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm new password")
	if err != nil {
		return err
	}
	if newPassword != confirm {
		return errors.New("passwords do not match")
	}
	if strings.TrimSpace(newPassword) == "" {
		return errors.New("new password cannot be empty")
	}
	if err := ctx.Client.ChangePassword(context.Background(), ctx.Config.Email, oldPassword, newPassword); err != nil {
		return fmt.Errorf("password change failed: %w", err)
	}
	ctx.Println("✓ Password changed")
	return nil
}

type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(ctx *cli.Context) error {
	email := ctx.Config.Email
	if email == "" {
		email = "(none)"
	}
	ctx.Printf("Server:  %s\n", ctx.Config.BaseURL)
	ctx.Printf("Account: %s\n", email)
	if ctx.Client.HasToken() {
		ctx.Println("Session: active")
	} else {
		ctx.Println("Session: none")
	}
	if ctx.Config.DoctorID != "" {
		ctx.Printf("Doctor:  %s\n", ctx.Config.DoctorID)
	}
	if ctx.Config.PatientID != "" {
		ctx.Printf("Patient: %s\n", ctx.Config.PatientID)
	}
	return nil
}

// TokenFor returns the stored token for baseURL, or "" when none is stored.
func TokenFor(baseURL string) string {
	tok, err := getToken(baseURL)
	if err != nil {
		return ""
	}
	return tok
}

func passwordOrPrompt(given, title string) (string, error) {
	if given != "" {
		return given, nil
	}
	return promptPassword(title)
}
