package pdfocr

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrInputValidation   = errors.New("input validation failed")
	ErrRender            = errors.New("page render failed")
	ErrRecognition       = errors.New("text recognition failed")
	ErrStrategy          = errors.New("strategy failed")
	ErrPipelineExhausted = errors.New("all strategies exhausted")
	ErrPersistence       = errors.New("output persistence failed")
)

// Error is a structured processing error carrying its kind and the
// operation that produced it.
type Error struct {
	Kind    error  // One of the Err* sentinels
	Op      string // Operation, e.g. "rasterize" or "ocrmypdf"
	Message string // Human readable diagnostic
	Err     error  // Underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (caused by: %v)", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError builds an *Error of the given kind.
func NewError(kind error, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: cause}
}

// Diagnostic returns the message of an *Error, or err.Error() for any other error.
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
