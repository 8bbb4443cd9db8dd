package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDetails_FlatAndNested(t *testing.T) {
	t.Parallel()

	f := ParseDetails([]string{
		"name: must not be blank",
		"nutritionalFact.sodium: must be positive",
		"nutritionalFact.calories: Field can't be empty",
		"weight: must be greater than 0: really",
	})

	require.Equal(t, "must not be blank", f.Lookup("name"))
	require.Equal(t, "must be positive", f.Lookup("nutritionalFact.sodium"))
	require.Equal(t, "Field can't be empty", f.Lookup("nutritionalFact.calories"))
	require.Equal(t, "must be greater than 0: really", f.Lookup("weight"), "split on first separator only")
	require.Empty(t, f.Lookup("manufacturer"))
	require.Empty(t, f.Lookup("nutritionalFact"))
	require.Empty(t, f.Lookup("nutritionalFact.fat"))

	require.Equal(t, map[string]string{
		"name":                     "must not be blank",
		"nutritionalFact.sodium":   "must be positive",
		"nutritionalFact.calories": "Field can't be empty",
		"weight":                   "must be greater than 0: really",
	}, f.Flatten())
}

func TestParseDetails_NoSeparatorAndOverwrite(t *testing.T) {
	t.Parallel()

	f := ParseDetails([]string{"something odd", "name: first", "name: second"})
	require.Equal(t, "something odd", f.Lookup(""))
	require.Equal(t, "second", f.Lookup("name"))
}

func TestTypedErrors_MatchSentinels(t *testing.T) {
	t.Parallel()

	var err error = &AuthenticationError{Message: "Bad credentials"}
	require.ErrorIs(t, err, ErrAuthentication)
	require.Equal(t, "Bad credentials", err.Error())

	err = fmt.Errorf("save: %w", &ValidationError{Fields: FieldErrors{}})
	require.ErrorIs(t, err, ErrValidation)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "validation failed", ve.Error())

	require.ErrorIs(t, &APIError{Status: http.StatusNotFound}, ErrNotFound)
	require.ErrorIs(t, &APIError{Status: http.StatusForbidden}, ErrUnauthorized)
	require.NotErrorIs(t, &APIError{Status: http.StatusInternalServerError}, ErrNotFound)
	require.Equal(t, "api error 500: Internal Server Error", (&APIError{Status: 500}).Error())
	require.Equal(t, "api error 404: Product not found", (&APIError{Status: 404, Message: "Product not found"}).Error())

	base := errors.New("connection refused")
	ne := &NetworkError{Op: "GET /products", Err: base}
	require.ErrorIs(t, ne, ErrNetwork)
	require.ErrorIs(t, ne, base)
}

func TestServerMessage(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Username is already taken", ServerMessage(&APIError{Status: 400, Message: "Username is already taken"}))
	require.Equal(t, "Validation failed!", ServerMessage(fmt.Errorf("x: %w", &ValidationError{Message: "Validation failed!"})))
	require.Empty(t, ServerMessage(errors.New("plain")))

	wrapped := &AuthenticationError{Message: "m", Err: &ValidationError{}}
	require.ErrorIs(t, wrapped, ErrAuthentication)
	require.ErrorIs(t, wrapped, ErrValidation)
}
