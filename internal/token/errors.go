package token

import (
	"errors"
	"fmt"
	"strings"

	"github.com/funvibe/typetoken/internal/typesystem"
)

var (
	// ErrNotVariableArity is returned when variable arity applicability is
	// requested for a member that does not declare a variable arity parameter.
	ErrNotVariableArity = errors.New("member is not variable arity")
	// ErrVoidResult is returned when a void member is given a target type.
	ErrVoidResult = errors.New("void result has no target type")
	// ErrNilReceiver is returned when an instance member is used without a receiver.
	ErrNilReceiver = errors.New("nil receiver")
	// ErrStaticReceiver is returned when a receiver type is given to a static member.
	ErrStaticReceiver = errors.New("static member has no receiver")
)

// ArityError reports a wrong number of type arguments or value arguments.
type ArityError struct {
	Token    string
	What     string
	Expected int
	Actual   int
	AtLeast  bool
}

func (e *ArityError) Error() string {
	qualifier := ""
	if e.AtLeast {
		qualifier = "at least "
	}
	return fmt.Sprintf("%s: expected %s%d %s, got %d", e.Token, qualifier, e.Expected, e.What, e.Actual)
}

// RawTypeError reports an attempt to parameterize a token over a raw owner.
type RawTypeError struct {
	Token string
}

func (e *RawTypeError) Error() string {
	return fmt.Sprintf("%s: owner is a raw type and cannot be parameterized", e.Token)
}

// AmbiguityError reports two most specific candidates that are not
// parameter-for-parameter identical.
type AmbiguityError struct {
	Name     string
	ArgTypes []typesystem.Type
	First    *ExecutableToken
	Second   *ExecutableToken
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("ambiguous call %s(%s): both %s and %s match",
		e.Name, typesystem.Strings(e.ArgTypes), e.First, e.Second)
}

// NoApplicableError reports that no candidate is applicable. Causes holds
// the failure of each candidate in each phase it was tried in.
type NoApplicableError struct {
	Name       string
	ArgTypes   []typesystem.Type
	Candidates []*ExecutableToken
	Causes     []error
}

func (e *NoApplicableError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		names[i] = c.String()
	}
	return fmt.Sprintf("no applicable candidate for %s(%s) among [%s]",
		e.Name, typesystem.Strings(e.ArgTypes), strings.Join(names, "; "))
}

func (e *NoApplicableError) Unwrap() []error { return e.Causes }

// UnsafeArgumentError reports an argument whose type is not compatible with
// the parameter it is passed to.
type UnsafeArgumentError struct {
	Index    int
	Actual   typesystem.Type
	Expected typesystem.Type
}

func (e *UnsafeArgumentError) Error() string {
	return fmt.Sprintf("argument %d: %s is not compatible with %s", e.Index, e.Actual, e.Expected)
}

// InvocationError wraps a failure of the underlying call.
type InvocationError struct {
	Token string
	Err   error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoking %s: %v", e.Token, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }
