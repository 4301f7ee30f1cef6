package ir

import (
	"errors"
	"fmt"
)

// Error is the single error type surfaced by circuit construction, flow
// traversal, operator algebra and simulation.
//
// Callers match on the category with errors.Is against the Err* values
// below; the match ignores Message and Details, so wrapped and annotated
// errors still compare equal to their category.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context (indices, dimensions, kinds).
	Details map[string]string
}

// ErrorCode categorizes errors.
type ErrorCode string

const (
	// CodeContextConflict indicates a trace was started while another is active.
	CodeContextConflict ErrorCode = "CONTEXT_CONFLICT"

	// CodeContextViolation indicates a qubit handle was used outside its trace,
	// or handles from two different traces were combined.
	CodeContextViolation ErrorCode = "CONTEXT_VIOLATION"

	// CodeIndexOutOfRange indicates a negative index or one beyond a fixed register.
	CodeIndexOutOfRange ErrorCode = "INDEX_OUT_OF_RANGE"

	// CodeInvalidSubcircuitMapping indicates a mapping of the wrong length
	// or with repeated values.
	CodeInvalidSubcircuitMapping ErrorCode = "INVALID_SUBCIRCUIT_MAPPING"

	// CodeDimensionMismatch indicates operator algebra on incompatible dimensions.
	CodeDimensionMismatch ErrorCode = "DIMENSION_MISMATCH"

	// CodeUnsupportedOperation indicates an op kind with no dispatch target.
	CodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"

	// CodeInvalidOperands indicates an op with the wrong operand count or
	// with repeated qubits.
	CodeInvalidOperands ErrorCode = "INVALID_OPERANDS"
)

// Category values for errors.Is.
var (
	ErrContextConflict          = &Error{Code: CodeContextConflict, Message: "another trace is already active"}
	ErrContextViolation         = &Error{Code: CodeContextViolation, Message: "qubit handle used outside its trace"}
	ErrIndexOutOfRange          = &Error{Code: CodeIndexOutOfRange, Message: "index out of range"}
	ErrInvalidSubcircuitMapping = &Error{Code: CodeInvalidSubcircuitMapping, Message: "invalid subcircuit mapping"}
	ErrDimensionMismatch        = &Error{Code: CodeDimensionMismatch, Message: "dimension mismatch"}
	ErrUnsupportedOperation     = &Error{Code: CodeUnsupportedOperation, Message: "unsupported operation"}
	ErrInvalidOperands          = &Error{Code: CodeInvalidOperands, Message: "invalid operands"}
)

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error of the same category.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the category of err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsContextError returns true for both context conflicts and violations.
func IsContextError(err error) bool {
	code := CodeOf(err)
	return code == CodeContextConflict || code == CodeContextViolation
}

// NewIndexError creates an IndexOutOfRange error for a register access.
// size < 0 means the register is flexible and only the sign was violated.
func NewIndexError(register string, index, size int) *Error {
	msg := fmt.Sprintf("%s index %d is negative", register, index)
	if size >= 0 && index >= 0 {
		msg = fmt.Sprintf("%s index %d outside register of size %d", register, index, size)
	}
	return &Error{
		Code:    CodeIndexOutOfRange,
		Message: msg,
		Details: map[string]string{
			"register": register,
			"index":    fmt.Sprintf("%d", index),
			"size":     fmt.Sprintf("%d", size),
		},
	}
}

// NewMappingError creates an InvalidSubcircuitMapping error.
func NewMappingError(register, reason string) *Error {
	return &Error{
		Code:    CodeInvalidSubcircuitMapping,
		Message: fmt.Sprintf("%s mapping: %s", register, reason),
		Details: map[string]string{"register": register},
	}
}

// NewDimensionError creates a DimensionMismatch error for an operation on
// operands of dimension a and b.
func NewDimensionError(op string, a, b int) *Error {
	return &Error{
		Code:    CodeDimensionMismatch,
		Message: fmt.Sprintf("%s: dimension %d vs %d", op, a, b),
		Details: map[string]string{
			"op":    op,
			"left":  fmt.Sprintf("%d", a),
			"right": fmt.Sprintf("%d", b),
		},
	}
}

// NewUnsupportedError creates an UnsupportedOperation error for kind k.
func NewUnsupportedError(k Kind, where string) *Error {
	return &Error{
		Code:    CodeUnsupportedOperation,
		Message: fmt.Sprintf("%s has no dispatch for %s", where, k),
		Details: map[string]string{"kind": k.String()},
	}
}

// NewOperandError creates an InvalidOperands error for op kind k.
func NewOperandError(k Kind, reason string) *Error {
	return &Error{
		Code:    CodeInvalidOperands,
		Message: fmt.Sprintf("%s: %s", k, reason),
		Details: map[string]string{"kind": k.String()},
	}
}
