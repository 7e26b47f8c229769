package errs

import "fmt"

// Kind categorizes application errors so callers can choose the text shown
// to the user.
type Kind int

const (
	// Unknown represents an unclassified error.
	Unknown Kind = iota
	// Unreachable indicates the detection service could not be reached.
	Unreachable
	// Timeout indicates the detection service took too long to respond.
	Timeout
	// ParsingFailed indicates a response body could not be decoded.
	ParsingFailed
	// Rejected indicates the detection service answered with a non-2xx status.
	Rejected
)

func (k Kind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case Timeout:
		return "timeout"
	case ParsingFailed:
		return "parsing_failed"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// AppError carries a category, user message, and original cause.
// Message may be empty when the remote side gave no usable text; callers
// then substitute their own fallback.
type AppError struct {
	Kind           Kind
	UpstreamStatus int // HTTP status code returned by the remote side
	Message        string
	Cause          error
}

func (e *AppError) Error() string {
	switch {
	case e.Message != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	case e.Message != "":
		return e.Message
	case e.Cause != nil:
		return e.Cause.Error()
	case e.UpstreamStatus != 0:
		return fmt.Sprintf("%s: status %d", e.Kind, e.UpstreamStatus)
	default:
		return e.Kind.String()
	}
}

func (e *AppError) Unwrap() error {
	return e.Cause
}
