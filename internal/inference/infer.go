package inference

import (
	"github.com/funvibe/typetoken/internal/typesystem"
)

// Infer instantiates every inference variable of the set and returns the
// resulting substitution. Variables whose bounds depend on no other pending
// variable are instantiated first; a variable is instantiated to its proper
// equality bound, else the least upper bound of its proper lower bounds,
// else the greatest lower bound of its proper upper bounds, else Object.
func (b *BoundSet) Infer() (typesystem.Subst, error) {
	work := b.clone()
	sv := newSolver(work)
	for {
		pending := work.unresolved()
		if len(pending) == 0 {
			break
		}
		v := work.pick(pending)
		t, err := work.instantiate(v)
		if err == nil {
			err = sv.addBound(Bound{Var: v, Relation: BoundEqual, Type: t})
		}
		if err != nil {
			return nil, &ResolutionError{Var: v, Bounds: b.BoundsOn(v), Err: err}
		}
	}
	result := typesystem.Subst{}
	inst := work.instantiations()
	for _, v := range work.order {
		result[v.Name] = inst[v.Name]
	}
	return result, nil
}

func (b *BoundSet) unresolved() []typesystem.TVar {
	inst := b.instantiations()
	var out []typesystem.TVar
	for _, v := range b.order {
		if _, ok := inst[v.Name]; !ok {
			out = append(out, v)
		}
	}
	return out
}

// pick returns the first pending variable whose bounds mention no other
// pending variable, or the first pending variable when all depend on others.
func (b *BoundSet) pick(pending []typesystem.TVar) typesystem.TVar {
	isPending := map[string]bool{}
	for _, v := range pending {
		isPending[v.Name] = true
	}
	for _, v := range pending {
		independent := true
		for _, bound := range b.BoundsOn(v) {
			for _, fv := range bound.Type.FreeTypeVariables() {
				if fv.Name != v.Name && isPending[fv.Name] {
					independent = false
				}
			}
		}
		if independent {
			return v
		}
	}
	return pending[0]
}

func (b *BoundSet) instantiate(v typesystem.TVar) (typesystem.Type, error) {
	var lowers, uppers []typesystem.Type
	for _, bound := range b.BoundsOn(v) {
		if b.ContainsInferenceVariable(bound.Type) {
			continue
		}
		switch bound.Relation {
		case BoundEqual:
			return bound.Type, nil
		case BoundLower:
			if _, null := bound.Type.(typesystem.TNull); !null {
				lowers = append(lowers, bound.Type)
			}
		case BoundUpper:
			uppers = append(uppers, bound.Type)
		}
	}
	if len(lowers) > 0 {
		return b.table.LeastUpperBound(lowers), nil
	}
	if len(uppers) > 0 {
		return b.table.GreatestLowerBound(uppers)
	}
	return typesystem.Object, nil
}
