package browser

import "fmt"

const (
	CodeValidation       = "VALIDATION"
	CodeResolveNotFound  = "RESOLVE_NOT_FOUND"
	CodeNavigationFailed = "NAVIGATION_FAILED"
	CodeCommitFailed     = "COMMIT_FAILED"
	CodeEvalFailure      = "EVAL_FAILURE"
	CodeEvalTimeout      = "EVAL_TIMEOUT"
	CodeCDPUnavailable   = "CDP_UNAVAILABLE"
	CodeCancelled        = "CANCELLED"
)

// CodedError is a typed error used for stable API mapping.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

// NewError builds a CodedError. Shared by every layer that produces
// protocol-visible failures.
func NewError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

// ErrCode extracts the stable code from an error chain, or "" if the error
// carries none.
func ErrCode(err error) string {
	for err != nil {
		if ce, ok := err.(*CodedError); ok {
			return ce.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
