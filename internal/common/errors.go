package common

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Stable error codes, one per document-level failure kind.
const (
	CodeUnsupportedDocument  = "UNSUPPORTED_DOCUMENT"
	CodeCorruptDocument      = "CORRUPT_DOCUMENT"
	CodeInferenceUnavailable = "INFERENCE_UNAVAILABLE"
	CodeModelNotFound        = "MODEL_NOT_FOUND"
	CodeInvalidFieldSpec     = "INVALID_FIELD_SPEC"
	CodeConfig               = "CONFIG_ERROR"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Sentinels matched with errors.Is. Every AppError built by the constructors below
// carries the matching sentinel in its cause chain.
var (
	ErrUnsupportedDocument  = errors.New("unsupported document")
	ErrCorruptDocument      = errors.New("corrupt document")
	ErrInferenceUnavailable = errors.New("inference unavailable")
	ErrModelNotFound        = errors.New("model not found")
	ErrInvalidFieldSpec     = errors.New("invalid field spec")
	ErrInvalidInput         = errors.New("invalid input")
)

var sentinelByCode = map[string]error{
	CodeUnsupportedDocument:  ErrUnsupportedDocument,
	CodeCorruptDocument:      ErrCorruptDocument,
	CodeInferenceUnavailable: ErrInferenceUnavailable,
	CodeModelNotFound:        ErrModelNotFound,
	CodeInvalidFieldSpec:     ErrInvalidFieldSpec,
	CodeConfig:               ErrInvalidInput,
}

// NewAppError builds an AppError. When cause is nil the code's sentinel becomes the cause;
// otherwise the sentinel is joined with cause so both stay reachable through errors.Is.
func NewAppError(code, message string, cause error) *AppError {
	sentinel := sentinelByCode[code]
	switch {
	case cause == nil:
		cause = sentinel
	case sentinel != nil && !errors.Is(cause, sentinel):
		cause = &joined{sentinel: sentinel, err: cause}
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// joined prints only the underlying error but unwraps to both.
type joined struct {
	sentinel error
	err      error
}

func (j *joined) Error() string   { return j.err.Error() }
func (j *joined) Unwrap() []error { return []error{j.sentinel, j.err} }

func UnsupportedDocument(message string, cause error) error {
	return NewAppError(CodeUnsupportedDocument, message, cause)
}

func CorruptDocument(message string, cause error) error {
	return NewAppError(CodeCorruptDocument, message, cause)
}

func InferenceUnavailable(message string, cause error) error {
	return NewAppError(CodeInferenceUnavailable, message, cause)
}

func ModelNotFound(message string, cause error) error {
	return NewAppError(CodeModelNotFound, message, cause)
}

func InvalidFieldSpec(message string, cause error) error {
	return NewAppError(CodeInvalidFieldSpec, message, cause)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Kind returns the taxonomy code of err, or "" when err is not a classified failure.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	for code, sentinel := range sentinelByCode {
		if code != CodeConfig && errors.Is(err, sentinel) {
			return code
		}
	}
	return ""
}

// ToStatus converts a pipeline error into a gRPC status error for the caller boundary.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	switch Kind(err) {
	case CodeUnsupportedDocument, CodeInvalidFieldSpec:
		return status.Error(codes.InvalidArgument, err.Error())
	case CodeCorruptDocument:
		return status.Error(codes.DataLoss, err.Error())
	case CodeModelNotFound:
		return status.Error(codes.NotFound, err.Error())
	case CodeInferenceUnavailable:
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
