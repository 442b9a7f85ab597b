package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("evidenceId is required"), KindValidation},
		{"not found", NotFound("Evidence %s does not exist", "EV-1"), KindNotFound},
		{"conflict", Conflict("Evidence %s already exists", "EV-1"), KindConflict},
		{"authorization", Authorization("denied"), KindAuthorization},
		{"wrapped", fmt.Errorf("dispatch: %w", NotFound("gone")), KindNotFound},
		{"plain", errors.New("disk on fire"), KindUnknown},
		{"nil", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", Conflict("Transfer denied"))

	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestInvalidJSONKeepsCause(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := InvalidJSON("metadata", cause)

	assert.Equal(t, "metadata must be valid JSON: unexpected end of JSON input", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrValidation)
}
