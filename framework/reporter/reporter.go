// Package reporter provides the coded errors raised by the container, the
// expression engine and the DOM observers, plus a pluggable sink for the
// non-fatal ones.
//
// Three kinds exist:
//
//   - Precondition: a caller passed something unusable (nil key, nil scope,
//     missing locator, calling a non-function). Returned as an error.
//   - Configuration: the setup itself is wrong (registration recursion, a
//     JIT hook that produced no resolver, an unknown operator). Returned as
//     an error.
//   - Idempotency: a repeated lifecycle call (behavior applied twice, unbind
//     without bind). Written to the Handler; the call carries on.
//
//	if err := c.Register(entries...); reporter.HasCode(err, reporter.CodeRegistrationDepth) {
//	    ...
//	}
package reporter

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind int

const (
	KindUnknown Kind = iota
	KindPrecondition
	KindConfiguration
	KindIdempotency
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindConfiguration:
		return "configuration"
	case KindIdempotency:
		return "idempotency"
	default:
		return "unknown"
	}
}

// ── Codes ─────────────────────────────────────────────────────────────────────

const (
	CodeInvalidKey             = 5
	CodeInvalidStrategy        = 6
	CodeNilDependency          = 7
	CodeSelfBehaviorMisuse     = 8
	CodeNoRegistration         = 16
	CodeDefaultAlreadySet      = 17
	CodeInvalidResolver        = 40
	CodeSingletonCycle         = 41
	CodeProviderNotPrepared    = 50
	CodeRegistrationDepth      = 99
	CodeUnsupportedEntry       = 100
	CodeNoLocator              = 202
	CodeNoBehaviorFound        = 203
	CodeBehaviorAlreadyApplied = 204
	CodeNoConverterFound       = 205
	CodeNoBinding              = 206
	CodeNotAFunction           = 207
	CodeUnknownOperator        = 208
	CodeNotIterable            = 209
	CodeUnbindWithoutBind      = 210
	CodeNilScope               = 250
)

type entry struct {
	kind   Kind
	format string
}

var catalogue = map[int]entry{
	CodeInvalidKey:             {KindPrecondition, "key must be a non-nil comparable value, got %v"},
	CodeInvalidStrategy:        {KindConfiguration, "invalid resolver strategy %v"},
	CodeNilDependency:          {KindPrecondition, "dependency %d of %s is nil"},
	CodeSelfBehaviorMisuse:     {KindPrecondition, "self behavior can only be applied to a listener binding, got %T"},
	CodeNoRegistration:         {KindPrecondition, "no registration for interface %s"},
	CodeDefaultAlreadySet:      {KindConfiguration, "default resolver for %s is already configured"},
	CodeInvalidResolver:        {KindConfiguration, "register hook for %v did not produce a resolver"},
	CodeSingletonCycle:         {KindConfiguration, "cyclic dependency while constructing singleton %v"},
	CodeProviderNotPrepared:    {KindPrecondition, "instance provider %s was resolved before an instance was prepared"},
	CodeRegistrationDepth:      {KindConfiguration, "registration exceeded depth %d; a plain value was probably passed where a registry was expected"},
	CodeUnsupportedEntry:       {KindConfiguration, "cannot register entry of type %T"},
	CodeNoLocator:              {KindPrecondition, "no locator available to resolve %s"},
	CodeNoBehaviorFound:        {KindPrecondition, "no binding behavior named %q"},
	CodeBehaviorAlreadyApplied: {KindIdempotency, "binding behavior %q is already applied to this binding"},
	CodeNoConverterFound:       {KindPrecondition, "no value converter named %q"},
	CodeNoBinding:              {KindPrecondition, "no binding supplied to %s"},
	CodeNotAFunction:           {KindPrecondition, "%s is not a function"},
	CodeUnknownOperator:        {KindConfiguration, "unknown operator %q"},
	CodeNotIterable:            {KindPrecondition, "value of type %T is not iterable"},
	CodeUnbindWithoutBind:      {KindIdempotency, "unbind of %s without a matching bind"},
	CodeNilScope:               {KindPrecondition, "nil scope passed to %s"},
}

// ── Error ─────────────────────────────────────────────────────────────────────

// Error is a coded failure raised by the framework.
type Error struct {
	// Code is the stable numeric code, see the Code* constants.
	Code int
	// Kind is derived from the code.
	Kind Kind
	// Op is the operation that failed (e.g., "container.Get").
	Op string
	// Message is the formatted human-readable detail.
	Message string
	// Err is an optional underlying error.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [code %d %s]: %s: %v", e.Op, e.Code, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s [code %d %s]: %s", e.Op, e.Code, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code so errors.Is works with a bare template:
//
//	errors.Is(err, &reporter.Error{Code: reporter.CodeNilScope})
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New builds an Error for code, formatting args into the catalogue message.
func New(code int, op string, args ...any) *Error {
	ent, ok := catalogue[code]
	if !ok {
		return &Error{Code: code, Op: op, Message: fmt.Sprint(args...)}
	}
	return &Error{Code: code, Kind: ent.kind, Op: op, Message: fmt.Sprintf(ent.format, args...)}
}

// Wrap is New with an underlying cause.
func Wrap(err error, code int, op string, args ...any) *Error {
	e := New(code, op, args...)
	e.Err = err
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or 0.
func CodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// HasCode reports whether err's chain carries an *Error with code.
func HasCode(err error, code int) bool {
	return err != nil && CodeOf(err) == code
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
