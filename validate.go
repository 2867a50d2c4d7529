package mypermobil

import (
	"errors"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// DateLayout is the expiration date format accepted and produced by the backend.
const DateLayout = "2006-01-02"

const (
	codeLength      = 6
	tokenLength     = 256
	productIDLength = 24
)

var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

// validateWith runs the rules in order and reports the first failure as a
// Client error wrapping ErrInvalidInput. Rules may return an *Error of their
// own, which is passed through untouched.
func validateWith(value string, rules ...validation.Rule) (string, error) {
	if err := validation.Validate(value, rules...); err != nil {
		var e *Error
		if errors.As(err, &e) {
			return "", e
		}
		return "", invalidInput(err.Error(), nil)
	}
	return value, nil
}

// ValidateEmail checks that email has a single @, a local part and a dotted domain.
func ValidateEmail(email string) (string, error) {
	return validateWith(email,
		validation.Required.Error("missing email"),
		validation.Match(emailPattern).Error("invalid email"),
	)
}

// ValidateCode checks a one-time code: six digits, no whitespace.
func ValidateCode(code string) (string, error) {
	return validateWith(code,
		validation.Required.Error("missing code"),
		validation.By(func(interface{}) error {
			if strings.ContainsAny(code, " \t\r\n") {
				return invalidInput("code cannot contain spaces or newlines", nil)
			}
			return nil
		}),
		is.Digit.Error("code must be a number"),
		validation.Length(codeLength, codeLength).Error("code must be 6 digits long"),
	)
}

// ValidateToken checks that token is a 256 character bearer token.
func ValidateToken(token string) (string, error) {
	return validateWith(token,
		validation.Required.Error("missing token"),
		validation.By(func(interface{}) error {
			if len(token) != tokenLength {
				return invalidInput("invalid token", nil)
			}
			return nil
		}),
	)
}

// ValidateExpirationDate checks that date is a YYYY-MM-DD date later than now.
func ValidateExpirationDate(date string) (string, error) {
	return validateExpirationDateAt(date, time.Now())
}

func validateExpirationDateAt(date string, now time.Time) (string, error) {
	return validateWith(date,
		validation.Required.Error("missing expiration date"),
		validation.By(func(interface{}) error {
			parsed, err := time.ParseInLocation(DateLayout, date, now.Location())
			if err != nil {
				return invalidInput("invalid expiration date", errors.Join(ErrInvalidInput, err))
			}
			if !parsed.After(now) {
				return invalidInput("expired token", ErrExpired)
			}
			return nil
		}),
	)
}

// ValidateRegion checks that region is an http or https base URL.
func ValidateRegion(region string) (string, error) {
	return validateWith(region,
		validation.Required.Error("missing region"),
		validation.By(func(interface{}) error {
			if !strings.HasPrefix(region, "https://") && !strings.HasPrefix(region, "http://") {
				return invalidInput("region missing protocol", nil)
			}
			return nil
		}),
	)
}

// ValidateProductID checks that id is a 24 character product identifier.
func ValidateProductID(id string) (string, error) {
	return validateWith(id,
		validation.Required.Error("missing product id"),
		validation.By(func(interface{}) error {
			if len(id) != productIDLength {
				return invalidInput("invalid product id", nil)
			}
			return nil
		}),
	)
}
