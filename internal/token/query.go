package token

import (
	"fmt"
	"iter"

	"github.com/funvibe/typetoken/internal/inference"
	"github.com/funvibe/typetoken/internal/reflection"
	"github.com/funvibe/typetoken/internal/typesystem"
)

// Query is a stream of executable tokens, typically the overloads of one
// name, over which overload resolution is performed.
type Query struct {
	name       string
	candidates []*ExecutableToken
}

// NewQuery creates a query over the given candidates, in order.
func NewQuery(candidates ...*ExecutableToken) *Query {
	return &Query{candidates: append([]*ExecutableToken{}, candidates...)}
}

// MethodsOf returns the instance methods available on receiver, declared on
// its class first and then on its supertypes, breadth-first.
func MethodsOf(u *reflection.Universe, receiver typesystem.Type) (*Query, error) {
	name, ok := typesystem.ClassName(receiver)
	if !ok {
		return nil, fmt.Errorf("receiver %s is not a class type", receiver)
	}
	classes, err := hierarchy(u, name)
	if err != nil {
		return nil, err
	}
	var out []*ExecutableToken
	for _, c := range classes {
		for _, m := range c.Methods() {
			if m.IsStatic() {
				continue
			}
			tok, err := OverMethod(m, receiver)
			if err != nil {
				return nil, err
			}
			out = append(out, tok)
		}
	}
	return NewQuery(out...), nil
}

// StaticMethodsOf returns the static methods declared on a class.
func StaticMethodsOf(u *reflection.Universe, className string) (*Query, error) {
	c, err := u.Lookup(className)
	if err != nil {
		return nil, err
	}
	var out []*ExecutableToken
	for _, m := range c.Methods() {
		if !m.IsStatic() {
			continue
		}
		tok, err := OverStaticMethod(m)
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	return NewQuery(out...), nil
}

// ConstructorsOf returns the constructors creating instances of t.
func ConstructorsOf(u *reflection.Universe, t typesystem.Type) (*Query, error) {
	name, ok := typesystem.ClassName(t)
	if !ok {
		return nil, fmt.Errorf("%s is not a class type", t)
	}
	c, err := u.Lookup(name)
	if err != nil {
		return nil, err
	}
	var out []*ExecutableToken
	for _, ctor := range c.Constructors() {
		tok, err := OverConstructor(ctor, t)
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	q := NewQuery(out...)
	q.name = name
	return q, nil
}

// hierarchy lists a class and all of its superclasses and interfaces,
// each once, nearest first.
func hierarchy(u *reflection.Universe, name string) ([]*reflection.Class, error) {
	start, err := u.Lookup(name)
	if err != nil {
		return nil, err
	}
	table := u.Table()
	out := []*reflection.Class{start}
	seen := map[string]bool{name: true}
	queue := []typesystem.Type{typesystem.TCon{Name: name}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, super := range table.DirectSupertypes(current) {
			superName, ok := typesystem.ClassName(super)
			if !ok || seen[superName] {
				continue
			}
			seen[superName] = true
			if c, ok := u.Class(superName); ok {
				out = append(out, c)
			}
			queue = append(queue, typesystem.TCon{Name: superName})
		}
	}
	return out, nil
}

// Named restricts the query to members called name. An empty name keeps
// every candidate.
func (q *Query) Named(name string) *Query {
	if name == "" {
		return q
	}
	out := q.Filter(func(t *ExecutableToken) bool { return t.Name() == name })
	out.name = name
	return out
}

// Filter restricts the query to the candidates satisfying keep.
func (q *Query) Filter(keep func(*ExecutableToken) bool) *Query {
	out := &Query{name: q.name}
	for _, c := range q.candidates {
		if keep(c) {
			out.candidates = append(out.candidates, c)
		}
	}
	return out
}

// Candidates returns the candidates in stream order.
func (q *Query) Candidates() []*ExecutableToken {
	return append([]*ExecutableToken{}, q.candidates...)
}

// All iterates over the candidates in stream order.
func (q *Query) All() iter.Seq[*ExecutableToken] {
	return func(yield func(*ExecutableToken) bool) {
		for _, c := range q.candidates {
			if !yield(c) {
				return
			}
		}
	}
}

// Len returns the number of candidates.
func (q *Query) Len() int { return len(q.candidates) }

func (q *Query) displayName() string {
	if q.name != "" {
		return q.name
	}
	if len(q.candidates) > 0 {
		return q.candidates[0].Name()
	}
	return "<none>"
}

// ResolveOverload selects the most specific candidate applicable to
// argTypes. Candidates are first tested for loose applicability; if any of
// those is also strictly applicable, only the strict ones are kept. When no
// candidate is loosely applicable, variable arity candidates are tested.
// The returned token carries the bounds of the phase that selected it.
func (q *Query) ResolveOverload(argTypes ...typesystem.Type) (*ExecutableToken, error) {
	var causes []error
	var passed, loose, survivors []*ExecutableToken
	for _, c := range q.candidates {
		applied, err := c.WithLooseApplicability(argTypes...)
		if err != nil {
			causes = append(causes, fmt.Errorf("%s: loose invocation: %w", c, err))
			continue
		}
		passed = append(passed, c)
		loose = append(loose, applied)
	}

	if len(loose) > 0 {
		for _, c := range passed {
			if applied, err := c.WithStrictApplicability(argTypes...); err == nil {
				survivors = append(survivors, applied)
			}
		}
		if len(survivors) == 0 {
			survivors = loose
		}
	} else {
		for _, c := range q.candidates {
			if !c.member.IsVarArgs() {
				continue
			}
			applied, err := c.WithVariableArityApplicability(argTypes...)
			if err != nil {
				causes = append(causes, fmt.Errorf("%s: variable arity invocation: %w", c, err))
				continue
			}
			survivors = append(survivors, applied)
		}
	}

	if len(survivors) == 0 {
		return nil, &NoApplicableError{
			Name:       q.displayName(),
			ArgTypes:   argTypes,
			Candidates: q.Candidates(),
			Causes:     causes,
		}
	}
	return q.mostSpecific(survivors, argTypes)
}

func (q *Query) mostSpecific(candidates []*ExecutableToken, argTypes []typesystem.Type) (*ExecutableToken, error) {
	eliminated := make([]bool, len(candidates))
	for i := range candidates {
		for j := i + 1; j < len(candidates); j++ {
			if eliminated[i] || eliminated[j] {
				continue
			}
			iMore := moreSpecific(candidates[i], candidates[j])
			jMore := moreSpecific(candidates[j], candidates[i])
			switch {
			case iMore && !jMore:
				eliminated[j] = true
			case jMore && !iMore:
				eliminated[i] = true
			}
		}
	}
	var survivors []*ExecutableToken
	for i, c := range candidates {
		if !eliminated[i] {
			survivors = append(survivors, c)
		}
	}
	if len(survivors) == 1 {
		return survivors[0], nil
	}

	first := survivors[0]
	for _, other := range survivors[1:] {
		if !sameParameters(first, other) {
			return nil, &AmbiguityError{Name: q.displayName(), ArgTypes: argTypes, First: first, Second: other}
		}
	}
	// Identical signatures declared at different levels of a hierarchy:
	// the most derived declaration wins.
	for _, c := range survivors {
		if derivesFromAll(c, survivors) {
			return c, nil
		}
	}
	return nil, &AmbiguityError{Name: q.displayName(), ArgTypes: argTypes, First: survivors[0], Second: survivors[1]}
}

// comparisonTypes returns the parameter types used to compare candidates:
// container arguments applied and the member's own type parameters kept
// as declared. A diamond constructor keeps the class parameters too.
func (t *ExecutableToken) comparisonTypes() []typesystem.Type {
	declared := t.member.Parameters()
	out := make([]typesystem.Type, len(declared))
	for i, p := range declared {
		switch {
		case t.rawness == raw:
			out[i] = t.table.Erasure(p.Type)
			continue
		case t.diamond:
			out[i] = p.Type
			continue
		}
		out[i] = t.bounds.Resolve(p.Type.Apply(t.container))
	}
	return out
}

func comparisonParamAt(types []typesystem.Type, i int, varArity bool) typesystem.Type {
	n := len(types)
	if varArity && i >= n-1 {
		if arr, ok := types[n-1].(typesystem.TArray); ok {
			return arr.Elem
		}
	}
	return types[i]
}

// moreSpecific reports whether a is more specific than b: whether every
// parameter of a can be passed to the corresponding parameter of b. When b
// is generic its own type parameters are inferred from a's parameters.
func moreSpecific(a, b *ExecutableToken) bool {
	aTypes := a.comparisonTypes()
	bs := inference.NewBoundSet(b.table, inference.NewNamer("~"))
	var bTypes []typesystem.Type
	if b.IsGeneric() || b.diamond {
		subst := b.resolvedContainer()
		var err error
		if b.diamond {
			decl := b.DeclaringClass().Decl()
			if bs, subst, err = bs.WithTypeParameters(decl.TypeParams, decl.Name, nil); err != nil {
				return false
			}
		}
		if b.IsGeneric() {
			if bs, subst, err = bs.WithTypeParameters(b.member.TypeParameters(), b.member.TypeParameterOwner(), subst); err != nil {
				return false
			}
		}
		for _, p := range b.member.Parameters() {
			bTypes = append(bTypes, p.Type.Apply(subst))
		}
	} else {
		bTypes = b.comparisonTypes()
	}

	varArity := a.varArity && b.varArity
	k := len(aTypes)
	if varArity {
		k = max(len(aTypes), len(bTypes))
	} else if len(aTypes) != len(bTypes) {
		return false
	}
	for i := 0; i < k; i++ {
		var err error
		s := comparisonParamAt(aTypes, min(i, len(aTypes)-1), varArity)
		u := comparisonParamAt(bTypes, min(i, len(bTypes)-1), varArity)
		if bs, err = bs.Reduce(inference.ConstraintSubtype, s, u); err != nil {
			return false
		}
	}
	_, err := bs.Infer()
	return err == nil
}

func sameParameters(a, b *ExecutableToken) bool {
	return a.varArity == b.varArity && typesystem.EqualAll(a.comparisonTypes(), b.comparisonTypes())
}

// derivesFromAll reports whether c is declared in a proper subclass of the
// class declaring each of the other candidates.
func derivesFromAll(c *ExecutableToken, others []*ExecutableToken) bool {
	class := c.DeclaringClass()
	self := typesystem.TCon{Name: class.Name()}
	for _, o := range others {
		if o == c {
			continue
		}
		if o.DeclaringClass() == class || c.table.SupertypeHierarchy(self, o.DeclaringClass().Name()) == nil {
			return false
		}
	}
	return true
}
