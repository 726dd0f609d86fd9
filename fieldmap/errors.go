package fieldmap

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrInvalidFormat    = errors.New("fieldmap: invalid format")
	ErrConversionFailed = errors.New("fieldmap: conversion failed")
	ErrNotConstructible = errors.New("fieldmap: type is not constructible")
	ErrUnsupportedType  = errors.New("fieldmap: unsupported type")
)

// Error describes a failure to encode or decode a single value.
// Kind is one of the package sentinel errors and is matched by errors.Is.
type Error struct {
	Kind  error
	Type  reflect.Type
	Field string // Empty when not decoding a field.
	Input string // Offending string, decode only.
	Err   error  // Underlying cause, may be nil.
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Type != nil {
		msg += fmt.Sprintf(" (type '%s')", e.Type)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" field '%s'", e.Field)
	}
	if e.Input != "" {
		msg += fmt.Sprintf(" input %q", e.Input)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind error, t reflect.Type, input string, err error) *Error {
	return &Error{Kind: kind, Type: t, Input: input, Err: err}
}

// withField annotates err with the field name if it is an *Error.
func withField(err error, field string) error {
	var fe *Error
	if errors.As(err, &fe) && fe.Field == "" {
		fe.Field = field
	}
	return err
}
