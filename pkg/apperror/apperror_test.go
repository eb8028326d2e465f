package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("load tour: %w", New(NotFound, "no document found with that ID"))

	assert.Equal(t, NotFound, KindOf(err))
	assert.True(t, IsKind(err, NotFound))
	assert.True(t, errors.Is(err, New(NotFound, "")))
	assert.False(t, errors.Is(err, New(Forbidden, "")))
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
	assert.False(t, IsKind(nil, NotFound))
}

func TestOperational(t *testing.T) {
	assert.True(t, Operational(FieldError("name", "is required")))
	assert.False(t, Operational(errors.New("driver exploded")))
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("duplicate key")
	err := Wrap(ConstraintViolation, "duplicate field value", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "duplicate key")
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		ValidationFailed:      http.StatusBadRequest,
		NotFound:              http.StatusNotFound,
		ConstraintViolation:   http.StatusConflict,
		TokenInvalidOrExpired: http.StatusBadRequest,
		Unauthorized:          http.StatusUnauthorized,
		Forbidden:             http.StatusForbidden,
		Internal:              http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, HTTPStatus(kind), kind)
	}
}
