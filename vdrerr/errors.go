// Package vdrerr defines the typed errors returned by the SDK.
//
// Every failure surfaced by a builder, parser or ledger client carries exactly
// one Kind. Callers match on the kind with errors.Is against the sentinel
// values (ErrValidation, ErrNotFound, ...) or extract the *Error with errors.As.
package vdrerr

import (
	"errors"
	"fmt"
)

// Kind classifies an SDK error.
type Kind uint8

const (
	// KindValidation is a malformed identifier, address or document, detected before any I/O.
	KindValidation Kind = iota + 1
	// KindEncoding means a document cannot be serialized to its on-chain form.
	KindEncoding
	// KindDecoding means raw ledger bytes do not match the expected schema.
	KindDecoding
	// KindNotFound means the ledger reports the DID as absent or deactivated.
	KindNotFound
	// KindTransport is a failure of the ledger client's network layer.
	KindTransport
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindEncoding:
		return "encoding"
	case KindDecoding:
		return "decoding"
	case KindNotFound:
		return "not found"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrEncoding   = &Error{Kind: KindEncoding}
	ErrDecoding   = &Error{Kind: KindDecoding}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrTransport  = &Error{Kind: KindTransport}
)

// Error is the concrete error type returned by the SDK.
type Error struct {
	Kind Kind
	// Op is the operation that failed, e.g. "buildCreateDidTransaction".
	Op  string
	Msg string
	Err error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Op == "" {
		return fmt.Sprintf("%s error: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. This lets the
// sentinels match any error of their kind regardless of op or message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Validation returns a KindValidation error.
func Validation(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Encoding returns a KindEncoding error.
func Encoding(op, format string, args ...any) error {
	return &Error{Kind: KindEncoding, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Decoding returns a KindDecoding error.
func Decoding(op, format string, args ...any) error {
	return &Error{Kind: KindDecoding, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NotFound returns a KindNotFound error.
func NotFound(op, format string, args ...any) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and op to err. If err already carries a kind it is
// returned unchanged, so errors keep the kind assigned closest to the failure.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of err, or 0 if err is not an SDK error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
