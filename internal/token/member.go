// Package token implements typed tokens over reflected members. A token
// pairs a member with the receiver type it is used on and a bound set over
// the inference variables its types mention. Tokens are immutable: every
// refinement returns a new token.
package token

import (
	"github.com/funvibe/typetoken/internal/inference"
	"github.com/funvibe/typetoken/internal/typesystem"
)

type rawness int

const (
	notGeneric    rawness = iota // the declaring class has no type parameters
	parameterized                // container arguments are known
	raw                          // the declaring class is used without arguments
)

// memberToken is the state shared by executable and field tokens.
type memberToken struct {
	table     *typesystem.ClassTable
	receiver  typesystem.Type
	rawness   rawness
	container typesystem.Subst
	bounds    *inference.BoundSet
	diamond   bool // constructor whose class arguments are being inferred
}

func newBounds(table *typesystem.ClassTable) *inference.BoundSet {
	return inference.NewBoundSet(table, inference.NewNamer(""))
}

// containerOf binds the type parameters of the declaring class from the
// receiver's view of it.
func containerOf(table *typesystem.ClassTable, decl *typesystem.ClassDecl, receiver typesystem.Type) (rawness, typesystem.Subst, error) {
	path := table.SupertypeHierarchy(receiver, decl.Name)
	if path == nil {
		return notGeneric, nil, &typesystem.NotASubtypeError{Type: receiver, Target: decl.Name}
	}
	if !decl.IsGeneric() {
		return notGeneric, nil, nil
	}
	super, ok := path[len(path)-1].(typesystem.TApp)
	if !ok {
		return raw, nil, nil
	}
	subst := typesystem.Subst{}
	for i := range decl.TypeParams {
		subst[decl.Param(i).Key()] = super.Args[i]
	}
	return parameterized, subst, nil
}

// ReceiverType returns the receiver type with known instantiations applied.
func (m memberToken) ReceiverType() typesystem.Type {
	return m.bounds.Resolve(m.receiver)
}

// IsRaw reports whether the token is over a raw use of a generic class.
func (m memberToken) IsRaw() bool {
	return m.rawness == raw
}

// Bounds returns the token's bound set.
func (m memberToken) Bounds() *inference.BoundSet {
	return m.bounds
}

// shape derives the type of a declared member type in this context.
func (m memberToken) shape(declared typesystem.Type, own typesystem.Subst) typesystem.Type {
	if m.rawness == raw {
		return m.table.Erasure(declared)
	}
	return m.bounds.Resolve(declared.Apply(m.container.Merge(own)))
}

// rebind moves the token to a new receiver, keeping existing container
// arguments consistent with the new ones. It reports whether the token
// went from raw to parameterized.
func (m memberToken) rebind(decl *typesystem.ClassDecl, receiver typesystem.Type) (memberToken, bool, error) {
	bs, err := m.bounds.Reduce(inference.ConstraintSubtype, receiver, m.receiver)
	if err != nil {
		return m, false, err
	}
	rw, container, err := containerOf(m.table, decl, receiver)
	if err != nil {
		return m, false, err
	}
	if m.rawness == parameterized && rw == parameterized {
		for i := range decl.TypeParams {
			key := decl.Param(i).Key()
			if bs, err = bs.Reduce(inference.ConstraintEquality, container[key], m.container[key]); err != nil {
				return m, false, err
			}
		}
	}
	widened := m.rawness == raw && rw == parameterized
	out := m
	out.bounds = bs
	out.receiver = receiver
	out.rawness = rw
	out.container = container
	out.diamond = false
	return out, widened, nil
}

// resolvedContainer returns the container arguments with known
// instantiations applied.
func (m memberToken) resolvedContainer() typesystem.Subst {
	out := make(typesystem.Subst, len(m.container))
	for k, v := range m.container {
		out[k] = m.bounds.Resolve(v)
	}
	return out
}

func (m memberToken) applied(subst typesystem.Subst) memberToken {
	out := m
	out.receiver = m.receiver.Apply(subst)
	out.container = make(typesystem.Subst, len(m.container))
	for k, v := range m.container {
		out.container[k] = v.Apply(subst)
	}
	if m.container == nil {
		out.container = nil
	}
	out.bounds = newBounds(m.table)
	return out
}
