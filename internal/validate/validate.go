// Package validate holds the input rules shared by every purchase path.
package validate

import (
	"errors"
	"regexp"
)

var ErrInvalidInput = errors.New("invalid input")

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9]{3,20}$`)
	passwordRe = regexp.MustCompile(`^[a-zA-Z0-9]{6,}$`)
)

func Username(s string) error {
	if !usernameRe.MatchString(s) {
		return ErrInvalidInput
	}
	return nil
}

func Password(s string) error {
	if !passwordRe.MatchString(s) {
		return ErrInvalidInput
	}
	return nil
}

func DurationDays(days int) error {
	if days <= 0 || days > 365 {
		return ErrInvalidInput
	}
	return nil
}
