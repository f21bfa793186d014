// Package inference implements bound sets over inference variables: the
// constraint engine behind type-argument inference for generic members.
//
// A BoundSet is an immutable value. Every operation that adds information
// returns a new, more constrained BoundSet or a *ConstraintError; the
// receiver is never modified, so bound sets may be shared across goroutines.
package inference

import (
	"errors"
	"fmt"

	set "github.com/hashicorp/go-set/v3"

	"github.com/funvibe/typetoken/internal/typesystem"
)

// Relation is the relation a bound asserts between a variable and a type.
type Relation int

const (
	BoundEqual Relation = iota // α = T
	BoundUpper                 // α <: T
	BoundLower                 // T <: α
)

func (r Relation) String() string {
	switch r {
	case BoundEqual:
		return "="
	case BoundUpper:
		return "<:"
	case BoundLower:
		return ":>"
	}
	return "?"
}

// Bound is a single bound on an inference variable.
type Bound struct {
	Var      typesystem.TVar
	Relation Relation
	Type     typesystem.Type
}

func (b Bound) String() string {
	return fmt.Sprintf("%s %s %s", b.Var, b.Relation, b.Type)
}

func (b Bound) key() string {
	return b.Var.Name + " " + b.Relation.String() + " " + typesystem.TypeKey(b.Type)
}

// Namer generates inference variable names. It is a value threaded through
// bound sets rather than shared state.
type Namer struct {
	Prefix string
	next   int
}

// NewNamer creates a namer whose variables start with prefix.
func NewNamer(prefix string) Namer {
	return Namer{Prefix: prefix}
}

// Fresh returns a new variable named after hint, and the advanced namer.
func (n Namer) Fresh(hint string) (typesystem.TVar, Namer) {
	if hint == "" {
		hint = "α"
	}
	v := typesystem.TVar{Name: fmt.Sprintf("%s%s'%d", n.Prefix, hint, n.next)}
	n.next++
	return v, n
}

// ErrForeignBounds is returned when bound sets from unrelated derivations
// are merged: their variables share names without being the same variables.
var ErrForeignBounds = errors.New("bound sets come from different derivations")

// lineage identifies the bound sets derived from one NewBoundSet call.
type lineage struct{ _ byte }

// BoundSet is an immutable set of inference variables and bounds on them.
type BoundSet struct {
	table   *typesystem.ClassTable
	lineage *lineage
	namer   Namer
	vars   *set.Set[string]
	order  []typesystem.TVar
	bounds []Bound
	keys   *set.Set[string]
}

// NewBoundSet creates an empty bound set over the given class table.
func NewBoundSet(table *typesystem.ClassTable, namer Namer) *BoundSet {
	return &BoundSet{
		table:   table,
		lineage: &lineage{},
		namer:   namer,
		vars:    set.New[string](0),
		keys:    set.New[string](0),
	}
}

func (b *BoundSet) clone() *BoundSet {
	return &BoundSet{
		table:   b.table,
		lineage: b.lineage,
		namer:   b.namer,
		vars:    b.vars.Copy(),
		order:   append([]typesystem.TVar{}, b.order...),
		bounds:  append([]Bound{}, b.bounds...),
		keys:    b.keys.Copy(),
	}
}

// Table returns the class table the bound set reasons over.
func (b *BoundSet) Table() *typesystem.ClassTable {
	return b.table
}

// Variables returns the inference variables in creation order.
func (b *BoundSet) Variables() []typesystem.TVar {
	return append([]typesystem.TVar{}, b.order...)
}

// Bounds returns every bound in the order it was added.
func (b *BoundSet) Bounds() []Bound {
	return append([]Bound{}, b.bounds...)
}

// BoundsOn returns the bounds on a single variable.
func (b *BoundSet) BoundsOn(v typesystem.TVar) []Bound {
	var out []Bound
	for _, bound := range b.bounds {
		if bound.Var.Name == v.Name {
			out = append(out, bound)
		}
	}
	return out
}

// Contains reports whether a bound is present.
func (b *BoundSet) Contains(bound Bound) bool {
	return b.keys.Contains(bound.key())
}

// IsVariable reports whether t is one of this set's inference variables.
func (b *BoundSet) IsVariable(t typesystem.Type) bool {
	v, ok := t.(typesystem.TVar)
	return ok && b.vars.Contains(v.Name)
}

// ContainsInferenceVariable reports whether t mentions any variable of this set.
func (b *BoundSet) ContainsInferenceVariable(t typesystem.Type) bool {
	for _, v := range t.FreeTypeVariables() {
		if b.vars.Contains(v.Name) {
			return true
		}
	}
	return false
}

// Fresh adds a new unconstrained inference variable.
func (b *BoundSet) Fresh(hint string) (*BoundSet, typesystem.TVar) {
	out := b.clone()
	v := out.addVar(hint)
	return out, v
}

func (b *BoundSet) addVar(hint string) typesystem.TVar {
	v, namer := b.namer.Fresh(hint)
	b.namer = namer
	b.vars.Insert(v.Name)
	b.order = append(b.order, v)
	return v
}

// WithTypeParameters creates one inference variable per declared type
// parameter and adds the declared bounds, substituted over base and the new
// variables. The returned substitution extends base with the parameters.
func (b *BoundSet) WithTypeParameters(params []typesystem.TypeParamDecl, owner string, base typesystem.Subst) (*BoundSet, typesystem.Subst, error) {
	out := b.clone()
	subst := base.Merge(nil)
	vars := make([]typesystem.TVar, len(params))
	for i, p := range params {
		vars[i] = out.addVar(p.Name)
		subst[typesystem.TParam{Owner: owner, Name: p.Name}.Key()] = vars[i]
	}
	sv := newSolver(out)
	for i, p := range params {
		for _, bound := range p.Bounds {
			if err := sv.reduce(ConstraintSubtype, vars[i], bound.Apply(subst)); err != nil {
				return nil, nil, err
			}
		}
	}
	return out, subst, nil
}

// WithBounds merges the variables and bounds of other into a new set.
// Variables with the same name are the same variable, so other must be
// derived from the same NewBoundSet call as b unless it has no variables.
func (b *BoundSet) WithBounds(other *BoundSet) (*BoundSet, error) {
	if other.lineage != b.lineage && len(other.order) > 0 {
		return nil, ErrForeignBounds
	}
	out := b.clone()
	if other.namer.next > out.namer.next {
		out.namer.next = other.namer.next
	}
	for _, v := range other.order {
		if !out.vars.Contains(v.Name) {
			out.vars.Insert(v.Name)
			out.order = append(out.order, v)
		}
	}
	sv := newSolver(out)
	for _, bound := range other.bounds {
		if err := sv.addBound(bound); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Reduce reduces a constraint formula into the bound set.
func (b *BoundSet) Reduce(kind ConstraintKind, s, t typesystem.Type) (*BoundSet, error) {
	out := b.clone()
	if err := newSolver(out).reduce(kind, s, t); err != nil {
		return nil, err
	}
	return out, nil
}

// Resolve substitutes every variable that already has a proper equality bound.
func (b *BoundSet) Resolve(t typesystem.Type) typesystem.Type {
	subst := b.instantiations()
	if len(subst) == 0 {
		return t
	}
	return t.Apply(subst)
}

// instantiations maps variables to their proper equality bounds.
func (b *BoundSet) instantiations() typesystem.Subst {
	subst := typesystem.Subst{}
	for _, bound := range b.bounds {
		if bound.Relation != BoundEqual || b.ContainsInferenceVariable(bound.Type) {
			continue
		}
		if _, ok := subst[bound.Var.Name]; !ok {
			subst[bound.Var.Name] = bound.Type
		}
	}
	return subst
}

func (b *BoundSet) String() string {
	out := "{"
	for i, bound := range b.bounds {
		if i > 0 {
			out += ", "
		}
		out += bound.String()
	}
	return out + "}"
}
