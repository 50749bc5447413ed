package booking

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// validateRequest checks the patient contact fields and the visit
// reason. Phone numbers must reduce to at least 10 digits once
// separators (spaces, dashes, parentheses) are stripped.
func validateRequest(req Request) error {
	name := strings.TrimSpace(req.Patient.Name)
	if len(name) < 2 || len(name) > 100 {
		return fmt.Errorf("%w: patient name must be 2-100 characters", ErrValidation)
	}

	if !emailPattern.MatchString(strings.TrimSpace(req.Patient.Email)) {
		return fmt.Errorf("%w: patient email is not a valid address", ErrValidation)
	}

	digits := 0
	for _, c := range req.Patient.Phone {
		switch {
		case unicode.IsDigit(c):
			digits++
		case c == '+' || c == ' ' || c == '-' || c == '(' || c == ')':
			// allowed separators
		default:
			return fmt.Errorf("%w: patient phone contains invalid character %q", ErrValidation, c)
		}
	}
	if digits < 10 {
		return fmt.Errorf("%w: patient phone must have at least 10 digits", ErrValidation)
	}

	reason := strings.TrimSpace(req.Reason)
	if len(reason) < 5 || len(reason) > 500 {
		return fmt.Errorf("%w: reason must be 5-500 characters", ErrValidation)
	}

	return nil
}
