package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrCancelled     = errors.New("cancelled")
	ErrTransient     = errors.New("transient failure")
)

// ErrorKind is a coarse classification used in structured logs.
type ErrorKind string

const (
	KindExternalTool  ErrorKind = "external_tool"
	KindValidation    ErrorKind = "validation"
	KindConfiguration ErrorKind = "configuration"
	KindNotFound      ErrorKind = "not_found"
	KindCancelled     ErrorKind = "cancelled"
	KindTransient     ErrorKind = "transient"
	KindUnknown       ErrorKind = "unknown"
)

// ErrorDetails is the decoded form of an error built with Wrap.
type ErrorDetails struct {
	Kind      ErrorKind
	Operation string
	Message   string
	Hint      string
	Cause     error
}

type wrappedError struct {
	marker    error
	stage     string
	operation string
	message   string
	cause     error
}

func (e *wrappedError) Error() string {
	detail := buildDetail(e.stage, e.operation, e.message)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.marker, detail, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.marker, detail)
}

func (e *wrappedError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.marker}
	}
	return []error{e.marker, e.cause}
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &wrappedError{
		marker:    marker,
		stage:     strings.TrimSpace(stage),
		operation: strings.TrimSpace(operation),
		message:   strings.TrimSpace(message),
		cause:     err,
	}
}

// Details decodes err into its kind, operation and a short operator hint.
// Errors not produced by Wrap are still classified by their sentinel chain.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: classify(err), Cause: err}
	var wrapped *wrappedError
	if errors.As(err, &wrapped) {
		details.Operation = wrapped.operation
		details.Message = wrapped.message
		if wrapped.cause != nil {
			details.Cause = wrapped.cause
		}
	}
	if details.Message == "" {
		details.Message = strings.TrimSpace(err.Error())
	}
	details.Hint = hintFor(details.Kind)
	return details
}

func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrCancelled):
		return KindCancelled
	case errors.Is(err, ErrExternalTool):
		return KindExternalTool
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrTransient):
		return KindTransient
	default:
		return KindUnknown
	}
}

func hintFor(kind ErrorKind) string {
	switch kind {
	case KindExternalTool:
		return "check converter output in the log file"
	case KindValidation:
		return "check input and output paths"
	case KindConfiguration:
		return "check config.toml"
	case KindNotFound:
		return "verify the input file still exists"
	case KindCancelled:
		return "conversion was stopped on request"
	default:
		return "check logs for details"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage != "" {
		parts = append(parts, stage)
	}
	if operation != "" {
		parts = append(parts, operation)
	}
	if message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
