package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("bad", nil), http.StatusBadRequest},
		{Unauthenticated("who"), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{NotFound("gone"), http.StatusNotFound},
		{Conflict("dup"), http.StatusConflict},
		{Internal("boom", errors.New("db down")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("loading complaint: %w", NotFound("Complaint not found"))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, Is(err, KindNotFound))
	assert.False(t, Is(nil, KindNotFound))
}

func TestFromBindingCollectsFieldMessages(t *testing.T) {
	type input struct {
		Title    string `validate:"required,min=5"`
		Priority int    `validate:"min=1,max=5"`
	}

	err := validator.New().Struct(input{Title: "abc", Priority: 9})
	require.Error(t, err)

	appErr := FromBinding(err)
	assert.Equal(t, KindValidation, appErr.Kind)
	assert.Equal(t, "must be at least 5", appErr.Fields["Title"])
	assert.Equal(t, "must be at most 5", appErr.Fields["Priority"])
}

func TestFromBindingNonValidatorError(t *testing.T) {
	appErr := FromBinding(errors.New("unexpected EOF"))
	assert.Equal(t, KindValidation, appErr.Kind)
	assert.Equal(t, "unexpected EOF", appErr.Fields["body"])
}
