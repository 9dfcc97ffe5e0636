package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "none"},
		{"schema", SchemaError("two document fields"), "schema"},
		{"unknown field", UnknownField("colour"), "unknown_field"},
		{"type mismatch", TypeMismatch("value", "want int64"), "type_mismatch"},
		{"malformed", MalformedQuery("unbalanced ')'"), "malformed_query"},
		{"wrapped", fmt.Errorf("parsing: %w", MalformedQuery("x")), "malformed_query"},
		{"plain", errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestAppErrorUnwrapsToSentinel(t *testing.T) {
	err := fmt.Errorf("outer: %w", UnknownField("colour"))
	assert.True(t, errors.Is(err, ErrUnknownField))

	var appErr *AppError
	if assert.True(t, errors.As(err, &appErr)) {
		assert.Equal(t, "colour", appErr.Field)
	}
	assert.Contains(t, err.Error(), "field=colour")
}
