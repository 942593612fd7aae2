package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	pinRegex   = regexp.MustCompile(`^[0-9]{4}$`)
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err is or wraps a ValidationError
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	return nil
}

// ValidateName checks if a profile name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if len([]rune(name)) > 40 {
		return ValidationError{Field: "name", Message: "name must be at most 40 characters"}
	}
	return nil
}

// NormalizePin removes all whitespace from a PIN entry
func NormalizePin(pin string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, pin)
}

// ValidatePin checks that pin and confirm match and are exactly four digits
// after whitespace is stripped. It returns the normalized PIN.
func ValidatePin(pin, confirm string) (string, error) {
	pin = NormalizePin(pin)
	confirm = NormalizePin(confirm)
	if pin == "" {
		return "", ValidationError{Field: "pin", Message: "pin is required"}
	}
	if !pinRegex.MatchString(pin) {
		return "", ValidationError{Field: "pin", Message: "pin must be exactly 4 digits"}
	}
	if pin != confirm {
		return "", ValidationError{Field: "confirm_pin", Message: "pins do not match"}
	}
	return pin, nil
}
