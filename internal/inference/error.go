package inference

import (
	"fmt"

	"github.com/funvibe/typetoken/internal/typesystem"
)

// ConstraintError reports a constraint formula that cannot be reduced.
type ConstraintError struct {
	Kind   ConstraintKind
	Left   typesystem.Type
	Right  typesystem.Type
	Reason string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("cannot reduce %s %s %s: %s", e.Left, e.Kind, e.Right, e.Reason)
}

// ResolutionError reports an inference variable that cannot be instantiated.
type ResolutionError struct {
	Var    typesystem.TVar
	Bounds []Bound
	Err    error
}

func (e *ResolutionError) Error() string {
	parts := make([]string, len(e.Bounds))
	for i, b := range e.Bounds {
		parts[i] = b.String()
	}
	return fmt.Sprintf("cannot infer %s from %v: %v", e.Var, parts, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
