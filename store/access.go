package store

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/SixtySecondsApp/onboarding-forms/models"
)

var (
	ErrDisabled          = errors.New("form is disabled")
	ErrPasswordRequired  = errors.New("password required")
	ErrPasswordIncorrect = errors.New("incorrect password")
)

// HashPassword returns the bcrypt hash stored in forms.password.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Authorize applies the client-facing gate: disabled forms are closed and
// protected forms need the matching password.
func Authorize(form *models.Form, password string) error {
	if form.IsDisabled {
		return ErrDisabled
	}
	if !form.HasPassword() {
		return nil
	}
	if password == "" {
		return ErrPasswordRequired
	}
	if bcrypt.CompareHashAndPassword([]byte(*form.Password), []byte(password)) != nil {
		return ErrPasswordIncorrect
	}
	return nil
}
