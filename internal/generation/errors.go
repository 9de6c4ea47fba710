package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Conceptual-Machines/journey-api/internal/llm"
	"github.com/Conceptual-Machines/journey-api/internal/race"
	"github.com/Conceptual-Machines/journey-api/internal/validation"
)

// Kind is the stable, machine-readable category of a failed generation
type Kind string

const (
	KindConfigMissing   Kind = "config_missing"
	KindBadRequest      Kind = "bad_request"
	KindTimeout         Kind = "timeout"
	KindInvalidResponse Kind = "invalid_response"
	KindInvalidShape    Kind = "invalid_shape"
	KindEmptyResult     Kind = "empty_result"
	KindUpstreamError   Kind = "upstream_error"
	KindUnknown         Kind = "unknown"
)

type kindInfo struct {
	status  int
	message string
	details string
}

var kinds = map[Kind]kindInfo{
	KindConfigMissing: {
		status:  http.StatusInternalServerError,
		message: "Model API key is not configured",
	},
	KindBadRequest: {
		status:  http.StatusBadRequest,
		message: "Invalid request format",
		details: "formattedPrompt is required and cannot be empty",
	},
	KindTimeout: {
		status:  http.StatusGatewayTimeout,
		message: "Request timed out",
		details: "The model API took too long to respond",
	},
	KindInvalidResponse: {
		status:  http.StatusBadGateway,
		message: "Invalid response format from model",
		details: "The model did not return a structured result",
	},
	KindInvalidShape: {
		status:  http.StatusUnprocessableEntity,
		message: "Invalid generated data format",
		details: "The response format was invalid",
	},
	KindEmptyResult: {
		status:  http.StatusInternalServerError,
		message: "No data generated",
		details: "The model returned an empty list",
	},
	KindUpstreamError: {
		status:  http.StatusBadGateway,
		message: "Model API error",
		details: "Please try again",
	},
	KindUnknown: {
		status:  http.StatusInternalServerError,
		message: "Failed to generate data",
		details: "Please try again",
	},
}

// HTTPStatus returns the response status for k; unrecognized kinds map to 500
func (k Kind) HTTPStatus() int {
	if info, ok := kinds[k]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// Error is a classified generation failure
type Error struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"error"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	Cause      error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates an Error with the kind's default message, details and status.
func NewError(kind Kind, cause error) *Error {
	info, ok := kinds[kind]
	if !ok {
		kind = KindUnknown
		info = kinds[KindUnknown]
	}
	return &Error{
		Kind:       kind,
		Message:    info.message,
		Details:    info.details,
		HTTPStatus: info.status,
		Cause:      cause,
	}
}

// WithDetails overrides the default details.
func (e *Error) WithDetails(details string) *Error {
	e.Details = details
	return e
}

// Classify maps any failure to the most specific kind. A nil error is not a
// failure and yields nil; every non-nil error yields a non-nil *Error.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr
	}

	if errors.Is(err, race.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTimeout, err)
	}

	var shapeErr *validation.ShapeError
	if errors.As(err, &shapeErr) {
		return NewError(KindInvalidShape, err)
	}

	if errors.Is(err, llm.ErrNoStructuredCall) {
		return NewError(KindInvalidResponse, err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return NewError(KindInvalidResponse, err)
	}

	var upstreamErr *llm.UpstreamError
	if errors.As(err, &upstreamErr) {
		return NewError(KindUpstreamError, err)
	}

	return NewError(KindUnknown, err)
}
