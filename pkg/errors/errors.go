// Package errors provides the application error type reconstruction and
// the driver report through a stable set of codes, so a
// caller can branch on Code without string-matching a message.
package errors

import (
	"errors"
	"fmt"
	"io/fs"
)

// Common sentinel errors, matched via errors.Is.
var (
	// ErrNotFound is returned when a requested resource (tile, footprint,
	// building id) does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal is returned for unexpected internal failures.
	ErrInternal = errors.New("internal error")

	// ErrNotImplemented is returned for unimplemented features.
	ErrNotImplemented = errors.New("not implemented")
)

// ErrorCode classifies why a building failed reconstruction. Reconstruct
// returns it in Result.Err alongside the Status; Attributes.FallbackReason
// holds its own reason strings, not these codes, and the CityJSON
// attribute row does not record the code.
type ErrorCode string

const (
	// CodeInsufficientData covers RoofTypeNoPoints/RoofTypeNoPlanes: too
	// few or too degenerate a point cloud to detect any plane.
	CodeInsufficientData ErrorCode = "INSUFFICIENT_DATA"

	// CodeBudgetExceeded covers the arrangement-complexity and
	// wall-clock per-building budgets being exceeded.
	CodeBudgetExceeded ErrorCode = "BUDGET_EXCEEDED"

	// CodeDegenerateInput covers a footprint or point cloud that fails
	// basic geometric sanity (self-intersecting ring, zero-area
	// footprint, all-coincident points).
	CodeDegenerateInput ErrorCode = "DEGENERATE_INPUT"

	// CodeNumericFailure covers a numerical stage (plane fit, max-flow,
	// triangulation) that could not converge or produced a non-finite
	// result.
	CodeNumericFailure ErrorCode = "NUMERIC_FAILURE"

	// CodeNotFound mirrors ErrNotFound for AppError-wrapped lookups.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeInvalidInput mirrors ErrInvalidInput for AppError-wrapped
	// validation failures (bad config, malformed file).
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// AppError is an application error carrying a stable Code plus
// free-form Details for diagnostics (tile id, building id, stage name).
type AppError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// WithDetails adds a diagnostic detail to the error, returning it for
// chaining.
func (e *AppError) WithDetails(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsNotFound reports whether err is, or wraps, a not-found error.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == CodeNotFound
	}
	return errors.Is(err, ErrNotFound)
}

// IsBudgetExceeded reports whether err is an AppError carrying
// CodeBudgetExceeded, the code Reconstruct's time/complexity fallbacks
// produce.
func IsBudgetExceeded(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeBudgetExceeded
}

// IsInsufficientData reports whether err is an AppError carrying
// CodeInsufficientData, the code a no-points/no-planes building produces.
func IsInsufficientData(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeInsufficientData
}

// IsDegenerateInput reports whether err is an AppError carrying
// CodeDegenerateInput, the code an unusable footprint produces.
func IsDegenerateInput(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeDegenerateInput
}

// CodeOf returns err's ErrorCode, or "" when err is nil or carries no
// AppError, so callers can attach the code to a log line unconditionally.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// WrapIO wraps an I/O error (point cloud or footprint read failure) with
// the file or tile it came from. A missing file maps to CodeNotFound so
// IsNotFound works on the result; everything else is CodeInvalidInput.
func WrapIO(err error, source string) error {
	if err == nil {
		return nil
	}
	code := CodeInvalidInput
	if errors.Is(err, fs.ErrNotExist) {
		code = CodeNotFound
	}
	return NewAppError(code, fmt.Sprintf("reading %s", source), err)
}

// WrapNumeric wraps a numerical stage failure with the stage name.
func WrapNumeric(err error, stage string) error {
	if err == nil {
		return nil
	}
	return NewAppError(CodeNumericFailure, fmt.Sprintf("stage %s", stage), err)
}
