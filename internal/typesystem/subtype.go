package typesystem

import (
	"github.com/funvibe/typetoken/internal/config"
)

// widening lists the primitive widening conversions for each primitive type.
var widening = map[string][]string{
	config.BytePrimName:  {config.ShortPrimName, config.IntPrimName, config.LongPrimName, config.FloatPrimName, config.DoublePrimName},
	config.ShortPrimName: {config.IntPrimName, config.LongPrimName, config.FloatPrimName, config.DoublePrimName},
	config.CharPrimName:  {config.IntPrimName, config.LongPrimName, config.FloatPrimName, config.DoublePrimName},
	config.IntPrimName:   {config.LongPrimName, config.FloatPrimName, config.DoublePrimName},
	config.LongPrimName:  {config.FloatPrimName, config.DoublePrimName},
	config.FloatPrimName: {config.DoublePrimName},
}

// Widens reports whether from converts to to by identity or primitive widening.
func Widens(from, to TPrim) bool {
	if from.Name == to.Name {
		return true
	}
	for _, w := range widening[from.Name] {
		if w == to.Name {
			return true
		}
	}
	return false
}

// DirectSupertypes returns the immediate supertypes of t, superclass first.
func (ct *ClassTable) DirectSupertypes(t Type) []Type {
	switch typ := t.(type) {
	case TCon:
		decl, ok := ct.classes[typ.Name]
		if !ok || typ.Name == config.ObjectClassName {
			return nil
		}
		supers := declaredSupertypes(decl)
		if decl.IsGeneric() {
			// Members and supertypes of a raw type are erased.
			for i, s := range supers {
				supers[i] = ct.Erasure(s)
			}
		}
		return supers
	case TApp:
		decl, ok := ct.classes[typ.Constructor.Name]
		if !ok {
			return nil
		}
		subst := Subst{}
		for i := range decl.TypeParams {
			if i < len(typ.Args) {
				subst[decl.Param(i).Key()] = typ.Args[i]
			}
		}
		return ApplyAll(declaredSupertypes(decl), subst)
	case TArray:
		return []Type{Object}
	case TParam:
		bounds := ct.ParamBounds(typ)
		if len(bounds) == 0 {
			return []Type{Object}
		}
		return append([]Type{}, bounds...)
	}
	return nil
}

func declaredSupertypes(decl *ClassDecl) []Type {
	supers := []Type{}
	if decl.Super != nil {
		supers = append(supers, decl.Super)
	}
	supers = append(supers, decl.Interfaces...)
	if len(supers) == 0 && decl.Name != config.ObjectClassName {
		supers = append(supers, Object)
	}
	return supers
}

// SupertypeHierarchy returns the chain of supertypes leading from t up to the
// first supertype whose class is target, t itself first. It returns nil if
// target is not a supertype of t.
func (ct *ClassTable) SupertypeHierarchy(t Type, target string) []Type {
	return ct.hierarchy(t, target, map[string]bool{})
}

func (ct *ClassTable) hierarchy(t Type, target string, visited map[string]bool) []Type {
	if name, ok := ClassName(t); ok && name == target {
		return []Type{t}
	}
	key := TypeKey(t)
	if visited[key] {
		return nil
	}
	visited[key] = true
	for _, super := range ct.DirectSupertypes(t) {
		if path := ct.hierarchy(super, target, visited); path != nil {
			return append([]Type{t}, path...)
		}
	}
	return nil
}

// AsSuper views t as an instance of the class target.
func (ct *ClassTable) AsSuper(t Type, target string) (Type, bool) {
	path := ct.SupertypeHierarchy(t, target)
	if len(path) == 0 {
		return nil, false
	}
	return path[len(path)-1], true
}

// IsSubtype reports whether s is a subtype of t. Inference variables are
// treated as opaque types equal only to themselves.
func (ct *ClassTable) IsSubtype(s, t Type) bool {
	if Equal(s, t) {
		return true
	}
	if _, ok := s.(TNull); ok {
		return IsReference(t)
	}
	if tp, ok := t.(TPrim); ok {
		sp, ok := s.(TPrim)
		return ok && tp.Name != config.VoidPrimName && Widens(sp, tp)
	}
	if !IsReference(s) {
		return false
	}
	if Equal(t, Object) {
		return true
	}
	if sp, ok := s.(TParam); ok {
		for _, bound := range ct.ParamBounds(sp) {
			if ct.IsSubtype(bound, t) {
				return true
			}
		}
	}

	switch typ := t.(type) {
	case TCon:
		_, ok := ct.AsSuper(s, typ.Name)
		return ok
	case TApp:
		sup, ok := ct.AsSuper(s, typ.Constructor.Name)
		if !ok {
			return false
		}
		supApp, ok := sup.(TApp)
		if !ok {
			return false
		}
		// Type arguments are invariant.
		return EqualAll(supApp.Args, typ.Args)
	case TArray:
		sa, ok := s.(TArray)
		if !ok {
			return false
		}
		if !IsReference(sa.Elem) || !IsReference(typ.Elem) {
			return Equal(sa.Elem, typ.Elem)
		}
		return ct.IsSubtype(sa.Elem, typ.Elem)
	}
	return false
}

// IsAssignable reports whether a value of type from may be passed where to is
// expected in a loose invocation context: subtyping, boxing followed by
// widening reference conversion, unboxing followed by widening primitive
// conversion, and unchecked conversion from a raw type.
func (ct *ClassTable) IsAssignable(from, to Type) bool {
	if ct.IsSubtype(from, to) {
		return true
	}
	if fp, ok := from.(TPrim); ok {
		if _, ok := to.(TPrim); ok || fp.Name == config.VoidPrimName {
			return false
		}
		return ct.IsSubtype(Box(fp), to)
	}
	if tp, ok := to.(TPrim); ok {
		up, ok := Unbox(from)
		return ok && tp.Name != config.VoidPrimName && Widens(up, tp)
	}
	if app, ok := to.(TApp); ok {
		if sup, ok := ct.AsSuper(from, app.Constructor.Name); ok {
			if _, raw := sup.(TCon); raw {
				return true
			}
		}
	}
	return false
}

// Erasure returns the raw form of t.
func (ct *ClassTable) Erasure(t Type) Type {
	switch typ := t.(type) {
	case TApp:
		return typ.Constructor
	case TArray:
		return TArray{Elem: ct.Erasure(typ.Elem)}
	case TParam:
		bounds := ct.ParamBounds(typ)
		if len(bounds) == 0 {
			return Object
		}
		if p, ok := bounds[0].(TParam); ok && p.Key() == typ.Key() {
			return Object
		}
		return ct.Erasure(bounds[0])
	case TVar:
		return Object
	}
	return t
}

// LeastUpperBound returns the most specific common supertype of ts,
// searching the supertypes of the first type breadth-first. Object is the
// answer only when no other common supertype exists.
func (ct *ClassTable) LeastUpperBound(ts []Type) Type {
	refs := []Type{}
	for _, t := range ts {
		switch typ := t.(type) {
		case TNull:
			continue
		case TPrim:
			refs = append(refs, Box(typ))
		default:
			refs = append(refs, t)
		}
	}
	if len(refs) == 0 {
		return Object
	}
	queue := []Type{refs[0]}
	seen := map[string]bool{}
	for len(queue) > 0 {
		candidate := queue[0]
		queue = queue[1:]
		if seen[TypeKey(candidate)] {
			continue
		}
		seen[TypeKey(candidate)] = true
		if Equal(candidate, Object) {
			continue
		}
		all := true
		for _, t := range refs[1:] {
			if !ct.IsSubtype(t, candidate) {
				all = false
				break
			}
		}
		if all {
			return candidate
		}
		queue = append(queue, ct.DirectSupertypes(candidate)...)
	}
	return Object
}

// GreatestLowerBound returns the member of ts that is a subtype of all others.
func (ct *ClassTable) GreatestLowerBound(ts []Type) (Type, error) {
	if len(ts) == 0 {
		return Object, nil
	}
	for _, candidate := range ts {
		all := true
		for _, t := range ts {
			if !ct.IsSubtype(candidate, t) {
				all = false
				break
			}
		}
		if all {
			return candidate, nil
		}
	}
	return nil, &NoLowerBoundError{Types: ts}
}
