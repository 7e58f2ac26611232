// Package errs defines the error taxonomy shared by the transport,
// codec, and node layers. Every failure class has a numeric code
// with a static human-readable description, plus a sentinel error
// value usable with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

type Code int

const (
	CodeNone Code = iota
	CodeAddressResolution
	CodeSocketCreate
	CodeBind
	CodeSend
	CodeReceive
	CodeMissingTimestamp
	CodeMissingPayload
	CodeMissingChecksum
)

var descriptions = map[Code]string{
	CodeNone:              "no error",
	CodeAddressResolution: "address resolution failed",
	CodeSocketCreate:      "socket creation failed",
	CodeBind:              "bind failed",
	CodeSend:              "send failed",
	CodeReceive:           "receive failed",
	CodeMissingTimestamp:  "decode failed: Time field missing",
	CodeMissingPayload:    "decode failed: Msg field missing",
	CodeMissingChecksum:   "decode failed: CRC field missing",
}

// Describe returns the static description for a code.
func Describe(c Code) string {
	if d, ok := descriptions[c]; ok {
		return d
	}
	return "unknown error code"
}

// Error carries a taxonomy code and an optional underlying cause.
type Error struct {
	Code Code
	Err  error
}

func New(c Code) *Error {
	return &Error{Code: c}
}

func Wrap(c Code, cause error) *Error {
	return &Error{Code: c, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", Describe(e.Code), e.Err)
	}
	return Describe(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code, so wrapped errors
// compare equal to the sentinels below under errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf extracts the taxonomy code from err, or CodeNone if err
// does not carry one.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeNone
}

var (
	ErrAddressResolution = New(CodeAddressResolution)
	ErrSocketCreate      = New(CodeSocketCreate)
	ErrBind              = New(CodeBind)
	ErrSend              = New(CodeSend)
	ErrReceive           = New(CodeReceive)
	ErrMissingTimestamp  = New(CodeMissingTimestamp)
	ErrMissingPayload    = New(CodeMissingPayload)
	ErrMissingChecksum   = New(CodeMissingChecksum)
)
