package typesystem

import "fmt"

// SymbolNotFoundError indicates a class or type parameter owner was not found
type SymbolNotFoundError struct {
	Name string
}

func (e *SymbolNotFoundError) Error() string {
	return fmt.Sprintf("symbol not found: %s", e.Name)
}

func NewSymbolNotFoundError(name string) *SymbolNotFoundError {
	return &SymbolNotFoundError{Name: name}
}

// NotASubtypeError indicates that a type has no supertype of the requested class.
type NotASubtypeError struct {
	Type   Type
	Target string
}

func (e *NotASubtypeError) Error() string {
	return fmt.Sprintf("%s is not a subtype of %s", e.Type, e.Target)
}

// NoLowerBoundError indicates that a set of types has no greatest lower bound
// expressible without intersection types.
type NoLowerBoundError struct {
	Types []Type
}

func (e *NoLowerBoundError) Error() string {
	return fmt.Sprintf("no greatest lower bound for [%s]", Strings(e.Types))
}
