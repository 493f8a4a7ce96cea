package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "Without cause",
			err:  New(ErrCodeNotJoinable, "match is not accepting players"),
			want: "NOT_JOINABLE: match is not accepting players",
		},
		{
			name: "With cause",
			err:  Wrap(stderrors.New("connection refused"), ErrCodeDependencyFailure, "failed to save match"),
			want: "DEPENDENCY_FAILURE: failed to save match (connection refused)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	base := New(ErrCodeAlreadySubmitted, "already submitted")
	wrapped := fmt.Errorf("submit: %w", base)

	if got := CodeOf(wrapped); got != ErrCodeAlreadySubmitted {
		t.Errorf("CodeOf() = %q, want %q", got, ErrCodeAlreadySubmitted)
	}
	if got := CodeOf(stderrors.New("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
	if !Is(wrapped, ErrCodeAlreadySubmitted) {
		t.Error("Is() = false, want true")
	}
	if Is(nil, ErrCodeAlreadySubmitted) {
		t.Error("Is(nil) = true, want false")
	}
}

func TestWrap_Unwrap(t *testing.T) {
	cause := stderrors.New("timeout")
	err := Wrap(cause, ErrCodeDependencyFailure, "store unavailable")

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}
