package skills

import (
	"errors"
	"fmt"
)

// Failure classes surfaced to the driver. Callers match them with errors.Is;
// the wrapped message is what ends up in the JSON "error" field.
var (
	// ErrMissingDependency means the collaborator's backing package or
	// interpreter is not installed. Fatal.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrFileRead means the input document could not be read. Fatal.
	ErrFileRead = errors.New("file read failed")

	// ErrEmptyInput means the document was empty after trimming. Fatal.
	ErrEmptyInput = errors.New("empty input")

	// ErrInitialization means the collaborator could not be constructed.
	// Reported as a soft failure.
	ErrInitialization = errors.New("initialization failed")

	// ErrExtractionFailed means the extraction call itself failed.
	// Reported as a soft failure.
	ErrExtractionFailed = errors.New("extraction failed")
)

// Error carries a failure class plus the caller-facing message.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is the failure class of e.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// EmptyInputError returns the error for a blank document.
func EmptyInputError() error {
	return &Error{Kind: ErrEmptyInput, Message: "Empty input text"}
}

// FileReadError wraps a failure to read the input document.
func FileReadError(cause error) error {
	return &Error{
		Kind:    ErrFileRead,
		Message: fmt.Sprintf("Failed to read input file: %v", cause),
		Cause:   cause,
	}
}

// MissingDependencyError reports that the collaborator cannot run at all.
func MissingDependencyError(detail string, cause error) error {
	return &Error{
		Kind:    ErrMissingDependency,
		Message: fmt.Sprintf("LAiSER package not installed: %s", detail),
		Cause:   cause,
	}
}

// InitializationError reports that the collaborator failed to start.
// The detail goes to the diagnostics channel, not the message.
func InitializationError(cause error) error {
	return &Error{
		Kind:    ErrInitialization,
		Message: "Failed to initialize extractor",
		Cause:   cause,
	}
}

// ExtractionFailedError wraps a failure raised by the extraction call.
func ExtractionFailedError(cause error) error {
	msg := "<nil>"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Kind:    ErrExtractionFailed,
		Message: fmt.Sprintf("Extraction failed: %s", msg),
		Cause:   cause,
	}
}

// IsFatal reports whether err must end the process with a non-zero exit code.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFileRead) ||
		errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrMissingDependency)
}
