package ui

import (
	"github.com/charmbracelet/huh"
)

// NewUser holds the answers of the user creation form
type NewUser struct {
	Name     string
	Email    string
	Password string
}

// Validators check single fields. They mirror the API's registration rules.
type Validators struct {
	Name     func(string) error
	Email    func(string) error
	Password func(string) error
}

// RunUserForm asks for every field of in that is still empty
func RunUserForm(in *NewUser, v Validators) error {
	var fields []huh.Field

	if in.Name == "" {
		fields = append(fields, huh.NewInput().
			Title("Name").
			Placeholder("Ada Lovelace").
			Value(&in.Name).
			Validate(v.Name))
	}
	if in.Email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Placeholder("ada@example.com").
			Value(&in.Email).
			Validate(v.Email))
	}
	if in.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&in.Password).
			Validate(v.Password))
	}

	if len(fields) == 0 {
		return nil
	}

	return huh.NewForm(huh.NewGroup(fields...)).
		WithTheme(huh.ThemeCatppuccin()).
		Run()
}
