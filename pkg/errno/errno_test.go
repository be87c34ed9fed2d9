package errno

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrnoIsMatchesByCode(t *testing.T) {
	err := ErrValidation.WithMessage("amount has too many decimals")

	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrBroadcast))
	assert.Equal(t, "amount has too many decimals", err.Error())
}

func TestErrnoWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("send: %w", ErrBroadcast.Wrap(cause))

	assert.True(t, errors.Is(err, ErrBroadcast))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, ErrBroadcast, ErrBroadcast.Wrap(nil))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"nil", nil, 0},
		{"value", ErrSessionNotFound, 30108},
		{"pointer", &ErrDraftFrozen, 30106},
		{"wrapped", fmt.Errorf("outer: %w", ErrStateMismatch), 30105},
		{"plain", errors.New("boom"), InternalServerError.Code},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := Decode(tt.err)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}
