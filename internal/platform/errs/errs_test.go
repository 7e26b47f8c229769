package errs

import (
	"errors"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{name: "message and cause", err: &AppError{Kind: Unreachable, Message: "service down", Cause: cause}, want: "service down: dial tcp: connection refused"},
		{name: "message only", err: &AppError{Kind: Rejected, Message: "Please provide url parameter"}, want: "Please provide url parameter"},
		{name: "cause only", err: &AppError{Kind: Timeout, Cause: cause}, want: "dial tcp: connection refused"},
		{name: "status only", err: &AppError{Kind: Rejected, UpstreamStatus: 502}, want: "rejected: status 502"},
		{name: "bare kind", err: &AppError{Kind: ParsingFailed}, want: "parsing_failed"},
		{name: "zero value", err: &AppError{}, want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := error(&AppError{Kind: Unreachable, Cause: cause})
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find the cause")
	}

	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Kind != Unreachable {
		t.Errorf("errors.As = %+v, want kind Unreachable", appErr)
	}
}

func TestKind_String(t *testing.T) {
	kinds := map[Kind]string{
		Unknown:       "unknown",
		Unreachable:   "unreachable",
		Timeout:       "timeout",
		ParsingFailed: "parsing_failed",
		Rejected:      "rejected",
		Kind(99):      "unknown",
	}
	for k, want := range kinds {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}
