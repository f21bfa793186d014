package inference

import (
	"fmt"

	"github.com/funvibe/typetoken/internal/typesystem"
)

// ConstraintKind selects the compatibility relation a constraint formula asserts.
type ConstraintKind int

const (
	ConstraintSubtype            ConstraintKind = iota // ‹S <: T›
	ConstraintLooseCompatibility                       // ‹S → T›, boxing and unboxing allowed
	ConstraintEquality                                 // ‹S = T›
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintSubtype:
		return "<:"
	case ConstraintLooseCompatibility:
		return "->"
	case ConstraintEquality:
		return "="
	}
	return "?"
}

const defaultStartingFuel = 10000

// solver reduces constraints into a bound set it exclusively owns.
type solver struct {
	bs   *BoundSet
	fuel int
}

func newSolver(bs *BoundSet) *solver {
	return &solver{bs: bs, fuel: defaultStartingFuel}
}

func (sv *solver) fail(kind ConstraintKind, s, t typesystem.Type, reason string) error {
	return &ConstraintError{Kind: kind, Left: s, Right: t, Reason: reason}
}

func (sv *solver) proper(t typesystem.Type) bool {
	return !sv.bs.ContainsInferenceVariable(t)
}

func (sv *solver) reduce(kind ConstraintKind, s, t typesystem.Type) error {
	sv.fuel--
	if sv.fuel <= 0 {
		return sv.fail(kind, s, t, "ran out of fuel")
	}
	switch kind {
	case ConstraintLooseCompatibility:
		return sv.reduceLoose(s, t)
	case ConstraintSubtype:
		return sv.reduceSubtype(s, t)
	case ConstraintEquality:
		return sv.reduceEquality(s, t)
	}
	return fmt.Errorf("unknown constraint kind %d", kind)
}

func (sv *solver) reduceLoose(s, t typesystem.Type) error {
	table := sv.bs.table
	if sv.proper(s) && sv.proper(t) {
		if table.IsAssignable(s, t) {
			return nil
		}
		return sv.fail(ConstraintLooseCompatibility, s, t, "not compatible in a loose invocation context")
	}
	if sp, ok := s.(typesystem.TPrim); ok {
		return sv.reduce(ConstraintSubtype, typesystem.Box(sp), t)
	}
	if tp, ok := t.(typesystem.TPrim); ok {
		return sv.reduce(ConstraintEquality, s, typesystem.Box(tp))
	}
	return sv.reduce(ConstraintSubtype, s, t)
}

func (sv *solver) reduceSubtype(s, t typesystem.Type) error {
	table := sv.bs.table
	if sv.proper(s) && sv.proper(t) {
		if table.IsSubtype(s, t) {
			return nil
		}
		return sv.fail(ConstraintSubtype, s, t, "not a subtype")
	}
	if _, ok := s.(typesystem.TNull); ok {
		return nil
	}
	if _, sPrim := s.(typesystem.TPrim); sPrim != isPrim(t) {
		return sv.fail(ConstraintSubtype, s, t, "boxing is not allowed here")
	}
	if sv.bs.IsVariable(s) {
		return sv.addBound(Bound{Var: s.(typesystem.TVar), Relation: BoundUpper, Type: t})
	}
	if sv.bs.IsVariable(t) {
		return sv.addBound(Bound{Var: t.(typesystem.TVar), Relation: BoundLower, Type: s})
	}
	if typesystem.Equal(s, t) {
		return nil
	}

	switch typ := t.(type) {
	case typesystem.TCon:
		if _, ok := table.AsSuper(s, typ.Name); ok {
			return nil
		}
		return sv.fail(ConstraintSubtype, s, t, "no supertype of that class")
	case typesystem.TApp:
		sup, ok := table.AsSuper(s, typ.Constructor.Name)
		if !ok {
			return sv.fail(ConstraintSubtype, s, t, "no supertype of that class")
		}
		supApp, ok := sup.(typesystem.TApp)
		if !ok || len(supApp.Args) != len(typ.Args) {
			return sv.fail(ConstraintSubtype, s, t, "raw supertype")
		}
		for i := range typ.Args {
			if err := sv.reduce(ConstraintEquality, supApp.Args[i], typ.Args[i]); err != nil {
				return err
			}
		}
		return nil
	case typesystem.TArray:
		sa, ok := s.(typesystem.TArray)
		if !ok {
			return sv.fail(ConstraintSubtype, s, t, "not an array")
		}
		if !typesystem.IsReference(sa.Elem) || !typesystem.IsReference(typ.Elem) {
			return sv.reduce(ConstraintEquality, sa.Elem, typ.Elem)
		}
		return sv.reduce(ConstraintSubtype, sa.Elem, typ.Elem)
	}
	return sv.fail(ConstraintSubtype, s, t, "not a subtype")
}

func (sv *solver) reduceEquality(s, t typesystem.Type) error {
	if typesystem.Equal(s, t) {
		return nil
	}
	if sv.bs.IsVariable(s) {
		return sv.addBound(Bound{Var: s.(typesystem.TVar), Relation: BoundEqual, Type: t})
	}
	if sv.bs.IsVariable(t) {
		return sv.addBound(Bound{Var: t.(typesystem.TVar), Relation: BoundEqual, Type: s})
	}
	if sv.proper(s) && sv.proper(t) {
		return sv.fail(ConstraintEquality, s, t, "types differ")
	}
	switch x := s.(type) {
	case typesystem.TApp:
		y, ok := t.(typesystem.TApp)
		if !ok || x.Constructor.Name != y.Constructor.Name || len(x.Args) != len(y.Args) {
			break
		}
		for i := range x.Args {
			if err := sv.reduce(ConstraintEquality, x.Args[i], y.Args[i]); err != nil {
				return err
			}
		}
		return nil
	case typesystem.TArray:
		y, ok := t.(typesystem.TArray)
		if !ok {
			break
		}
		return sv.reduce(ConstraintEquality, x.Elem, y.Elem)
	}
	return sv.fail(ConstraintEquality, s, t, "types differ")
}

// addBound records a bound and incorporates it with the bounds already known.
func (sv *solver) addBound(b Bound) error {
	if v, ok := b.Type.(typesystem.TVar); ok && v.Name == b.Var.Name {
		return nil
	}
	if b.Relation == BoundEqual && typesystem.Mentions(b.Type, b.Var) {
		return sv.fail(ConstraintEquality, b.Var, b.Type, "infinite type")
	}
	key := b.key()
	if sv.bs.keys.Contains(key) {
		return nil
	}
	sv.fuel--
	if sv.fuel <= 0 {
		return sv.fail(ConstraintEquality, b.Var, b.Type, "ran out of fuel")
	}
	existing := append([]Bound{}, sv.bs.bounds...)
	sv.bs.bounds = append(sv.bs.bounds, b)
	sv.bs.keys.Insert(key)

	// Bounds between two variables are recorded on both sides.
	if other, ok := b.Type.(typesystem.TVar); ok && sv.bs.vars.Contains(other.Name) {
		var mirror Bound
		switch b.Relation {
		case BoundEqual:
			mirror = Bound{Var: other, Relation: BoundEqual, Type: b.Var}
		case BoundUpper:
			mirror = Bound{Var: other, Relation: BoundLower, Type: b.Var}
		case BoundLower:
			mirror = Bound{Var: other, Relation: BoundUpper, Type: b.Var}
		}
		if err := sv.addBound(mirror); err != nil {
			return err
		}
	}

	for _, old := range existing {
		if old.Var.Name != b.Var.Name {
			continue
		}
		if err := sv.incorporate(b, old); err != nil {
			return err
		}
	}

	if b.Relation == BoundEqual && sv.proper(b.Type) {
		// Propagate the instantiation into bounds that mention the variable.
		subst := typesystem.Subst{b.Var.Name: b.Type}
		for _, old := range existing {
			if old.Var.Name == b.Var.Name || !typesystem.Mentions(old.Type, b.Var) {
				continue
			}
			if err := sv.addBound(Bound{Var: old.Var, Relation: old.Relation, Type: old.Type.Apply(subst)}); err != nil {
				return err
			}
		}
	}

	// Instantiations already known for variables mentioned by the new bound.
	if subst := sv.knownInstantiations(b.Type); len(subst) > 0 {
		if err := sv.addBound(Bound{Var: b.Var, Relation: b.Relation, Type: b.Type.Apply(subst)}); err != nil {
			return err
		}
	}
	return nil
}

func (sv *solver) knownInstantiations(t typesystem.Type) typesystem.Subst {
	subst := typesystem.Subst{}
	for _, v := range t.FreeTypeVariables() {
		for _, bound := range sv.bs.bounds {
			if bound.Var.Name == v.Name && bound.Relation == BoundEqual && sv.proper(bound.Type) {
				subst[v.Name] = bound.Type
				break
			}
		}
	}
	return subst
}

// incorporate derives the constraints implied by two bounds on the same variable.
func (sv *solver) incorporate(added, old Bound) error {
	switch {
	case added.Relation == BoundEqual && old.Relation == BoundEqual:
		return sv.reduce(ConstraintEquality, added.Type, old.Type)
	case added.Relation == BoundEqual && old.Relation == BoundUpper:
		return sv.reduce(ConstraintSubtype, added.Type, old.Type)
	case added.Relation == BoundEqual && old.Relation == BoundLower:
		return sv.reduce(ConstraintSubtype, old.Type, added.Type)
	case added.Relation == BoundUpper && old.Relation == BoundEqual:
		return sv.reduce(ConstraintSubtype, old.Type, added.Type)
	case added.Relation == BoundLower && old.Relation == BoundEqual:
		return sv.reduce(ConstraintSubtype, added.Type, old.Type)
	case added.Relation == BoundUpper && old.Relation == BoundLower:
		return sv.reduce(ConstraintSubtype, old.Type, added.Type)
	case added.Relation == BoundLower && old.Relation == BoundUpper:
		return sv.reduce(ConstraintSubtype, added.Type, old.Type)
	case added.Relation == BoundUpper && old.Relation == BoundUpper:
		// Two parameterizations of the same generic class must agree.
		a, okA := added.Type.(typesystem.TApp)
		o, okO := old.Type.(typesystem.TApp)
		if okA && okO && a.Constructor.Name == o.Constructor.Name && len(a.Args) == len(o.Args) {
			for i := range a.Args {
				if err := sv.reduce(ConstraintEquality, a.Args[i], o.Args[i]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func isPrim(t typesystem.Type) bool {
	_, ok := t.(typesystem.TPrim)
	return ok
}
