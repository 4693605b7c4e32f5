package ui

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/macadrc/decimaterceraentrega-RegueiraMacarena/internal/user"
)

// Credentials is what the interactive form collects
type Credentials struct {
	Email    string
	Password string
}

// RunCredentialsForm asks for an email and a confirmed password.
// A non-empty email is used as the initial value.
func RunCredentialsForm(title, email string) (*Credentials, error) {
	var plain, confirm string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().Title(title),

			huh.NewInput().
				Title("Email").
				Placeholder("user@example.com").
				Value(&email).
				Validate(validateEmail),

			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&plain).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("password is required")
					}
					return nil
				}),

			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&confirm).
				Validate(func(s string) error {
					if s != plain {
						return fmt.Errorf("passwords do not match")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeCatppuccin())

	if err := form.Run(); err != nil {
		return nil, err
	}

	return &Credentials{Email: strings.TrimSpace(email), Password: plain}, nil
}

// RunPasswordPrompt reads a single masked value
func RunPasswordPrompt(title string) (string, error) {
	var plain string
	err := huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(&plain).
		Run()
	return plain, err
}

// PrintUser prints an account summary under a success heading
func PrintUser(heading string, u *user.User) {
	fmt.Println(successStyle.Render(heading))
	fmt.Println(titleStyle.Render("Account"))
	fmt.Printf("  ID:      %s\n", u.ID)
	fmt.Printf("  Email:   %s\n", u.Email)
	fmt.Printf("  Created: %s\n", subtleStyle.Render(u.CreatedAt.Format("2006-01-02 15:04:05 MST")))
	fmt.Println()
}

// PrintSuccess prints a success message.
func PrintSuccess(msg string) {
	fmt.Println(successStyle.Render(msg))
}

// PrintInfo prints a secondary message.
func PrintInfo(msg string) {
	fmt.Println(subtleStyle.Render(msg))
}

// PrintWarning prints a non-fatal problem.
func PrintWarning(msg string) {
	fmt.Println(warningStyle.Render("Warning: " + msg))
}

// PrintError prints an error message.
func PrintError(msg string) {
	fmt.Println(errorStyle.Render("Error: " + msg))
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("email is required")
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return fmt.Errorf("invalid email address")
	}
	return nil
}
