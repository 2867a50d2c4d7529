package mypermobil

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireInvalid(t *testing.T, err error, message string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, IsClientError(err), "expected Client error, got %v", err)
	assert.True(t, errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrExpired), "expected invalid input, got %v", err)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, message, e.Message)
}

func TestValidateEmail(t *testing.T) {
	v, err := ValidateEmail("a@b.co")
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", v)

	tests := map[string]string{
		"":          "missing email",
		"no-at":     "invalid email",
		"a@b":       "invalid email",
		"@b.co":     "invalid email",
		"a@@b.co":   "invalid email",
		"a@b@c.com": "invalid email",
	}
	for input, message := range tests {
		_, err := ValidateEmail(input)
		requireInvalid(t, err, message)
	}
}

func TestValidateCode(t *testing.T) {
	v, err := ValidateCode("123456")
	require.NoError(t, err)
	assert.Equal(t, "123456", v)

	tests := map[string]string{
		"":         "missing code",
		"123 456":  "code cannot contain spaces or newlines",
		"123456\n": "code cannot contain spaces or newlines",
		"12a456":   "code must be a number",
		"12345":    "code must be 6 digits long",
		"1234567":  "code must be 6 digits long",
	}
	for input, message := range tests {
		_, err := ValidateCode(input)
		requireInvalid(t, err, message)
	}
}

func TestValidateToken(t *testing.T) {
	_, err := ValidateToken(strings.Repeat("x", 256))
	require.NoError(t, err)

	_, err = ValidateToken("")
	requireInvalid(t, err, "missing token")

	_, err = ValidateToken(strings.Repeat("x", 255))
	requireInvalid(t, err, "invalid token")

	_, err = ValidateToken(strings.Repeat("x", 257))
	requireInvalid(t, err, "invalid token")
}

func TestValidateExpirationDate(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	v, err := validateExpirationDateAt("2026-10-20", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-20", v)

	_, err = validateExpirationDateAt("", now)
	requireInvalid(t, err, "missing expiration date")

	_, err = validateExpirationDateAt("20-10-2026", now)
	requireInvalid(t, err, "invalid expiration date")

	_, err = validateExpirationDateAt("2026-10-19", now)
	requireInvalid(t, err, "expired token")
	assert.ErrorIs(t, err, ErrExpired)

	_, err = validateExpirationDateAt("2020-01-01", now)
	requireInvalid(t, err, "expired token")
}

func TestValidateRegion(t *testing.T) {
	for _, region := range []string{"https://api.example.com", "http://localhost:8080"} {
		v, err := ValidateRegion(region)
		require.NoError(t, err)
		assert.Equal(t, region, v)
	}

	_, err := ValidateRegion("")
	requireInvalid(t, err, "missing region")

	_, err = ValidateRegion("api.example.com")
	requireInvalid(t, err, "region missing protocol")

	_, err = ValidateRegion("ftp://api.example.com")
	requireInvalid(t, err, "region missing protocol")
}

func TestValidateProductID(t *testing.T) {
	_, err := ValidateProductID(testProductID)
	require.NoError(t, err)

	_, err = ValidateProductID("")
	requireInvalid(t, err, "missing product id")

	_, err = ValidateProductID("short")
	requireInvalid(t, err, "invalid product id")
}
