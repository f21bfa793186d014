package typesystem

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/typetoken/internal/config"
)

// Type is the interface for all types in our system.
type Type interface {
	String() string
	Apply(Subst) Type
	// FreeTypeVariables lists the inference variables mentioned by the type.
	// Declared type parameters are not inference variables.
	FreeTypeVariables() []TVar
}

// TVar represents an inference variable (e.g. 'T'3').
type TVar struct {
	Name string
}

func (t TVar) String() string {
	// Normalize generated inference variables (T'1, T'14, etc.) to T'?
	// so that test output does not depend on allocation order.
	if config.IsTestMode {
		if idx := strings.LastIndexByte(t.Name, '\''); idx > 0 {
			if _, err := strconv.Atoi(t.Name[idx+1:]); err == nil {
				return t.Name[:idx] + "'?"
			}
		}
	}
	return t.Name
}

func (t TVar) Apply(s Subst) Type {
	if replacement, ok := s[t.Name]; ok {
		// Check for direct self-reference
		if tv, ok := replacement.(TVar); ok && tv.Name == t.Name {
			return t
		}
		return replacement
	}
	return t
}

func (t TVar) FreeTypeVariables() []TVar {
	return []TVar{t}
}

// TParam references a declared type parameter by its owner and name.
// Owners are class names for class type parameters and unique member keys
// for method and constructor type parameters. The bounds of a TParam are
// looked up through the ClassTable, so self-referential bounds such as
// T extends Comparable<T> never form object cycles.
type TParam struct {
	Owner string
	Name  string
}

// Key is the substitution key of the parameter.
func (t TParam) Key() string {
	return t.Owner + "::" + t.Name
}

func (t TParam) String() string { return t.Name }

func (t TParam) Apply(s Subst) Type {
	if replacement, ok := s[t.Key()]; ok {
		return replacement
	}
	return t
}

func (t TParam) FreeTypeVariables() []TVar { return nil }

// TCon represents a nominal class type without type arguments. For a generic
// class this is the raw type.
type TCon struct {
	Name string
}

func (t TCon) String() string { return t.Name }

func (t TCon) Apply(s Subst) Type { return t }

func (t TCon) FreeTypeVariables() []TVar { return nil }

// TApp represents a parameterized class type (e.g. List<String>).
type TApp struct {
	Constructor TCon
	Args        []Type
}

func (t TApp) String() string {
	args := make([]string, len(t.Args))
	for i, arg := range t.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("%s<%s>", t.Constructor.Name, strings.Join(args, ", "))
}

func (t TApp) Apply(s Subst) Type {
	newArgs := make([]Type, len(t.Args))
	for i, arg := range t.Args {
		newArgs[i] = arg.Apply(s)
	}
	return TApp{Constructor: t.Constructor, Args: newArgs}
}

func (t TApp) FreeTypeVariables() []TVar {
	vars := []TVar{}
	for _, arg := range t.Args {
		vars = append(vars, arg.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

// TArray represents an array type (e.g. String[]).
type TArray struct {
	Elem Type
}

func (t TArray) String() string { return t.Elem.String() + "[]" }

func (t TArray) Apply(s Subst) Type { return TArray{Elem: t.Elem.Apply(s)} }

func (t TArray) FreeTypeVariables() []TVar { return t.Elem.FreeTypeVariables() }

// TPrim represents a primitive type (e.g. int, boolean, void).
type TPrim struct {
	Name string
}

func (t TPrim) String() string { return t.Name }

func (t TPrim) Apply(s Subst) Type { return t }

func (t TPrim) FreeTypeVariables() []TVar { return nil }

// TNull is the type of the null reference.
type TNull struct{}

func (t TNull) String() string { return "null" }

func (t TNull) Apply(s Subst) Type { return t }

func (t TNull) FreeTypeVariables() []TVar { return nil }

// Primitive types
var (
	Boolean = TPrim{Name: config.BooleanPrimName}
	Byte    = TPrim{Name: config.BytePrimName}
	Short   = TPrim{Name: config.ShortPrimName}
	Char    = TPrim{Name: config.CharPrimName}
	Int     = TPrim{Name: config.IntPrimName}
	Long    = TPrim{Name: config.LongPrimName}
	Float   = TPrim{Name: config.FloatPrimName}
	Double  = TPrim{Name: config.DoublePrimName}
	Void    = TPrim{Name: config.VoidPrimName}
)

// Object is the root class type.
var Object = TCon{Name: config.ObjectClassName}

// Primitives lists every primitive type, void included.
var Primitives = []TPrim{Boolean, Byte, Short, Char, Int, Long, Float, Double, Void}

// PrimitiveByName returns the primitive type with the given name.
func PrimitiveByName(name string) (TPrim, bool) {
	for _, p := range Primitives {
		if p.Name == name {
			return p, true
		}
	}
	return TPrim{}, false
}

// Class builds a class type, parameterized when args are given.
func Class(name string, args ...Type) Type {
	if len(args) == 0 {
		return TCon{Name: name}
	}
	return TApp{Constructor: TCon{Name: name}, Args: args}
}

// ArrayOf builds an array type.
func ArrayOf(elem Type) Type {
	return TArray{Elem: elem}
}

// ClassName returns the class name of a TCon or TApp.
func ClassName(t Type) (string, bool) {
	switch typ := t.(type) {
	case TCon:
		return typ.Name, true
	case TApp:
		return typ.Constructor.Name, true
	}
	return "", false
}

// IsReference reports whether t is a reference type.
func IsReference(t Type) bool {
	switch t.(type) {
	case TPrim:
		return false
	}
	return t != nil
}

// IsProper reports whether t mentions no inference variables.
func IsProper(t Type) bool {
	return len(t.FreeTypeVariables()) == 0
}

// Equal compares two types structurally.
func Equal(a, b Type) bool {
	switch x := a.(type) {
	case TVar:
		y, ok := b.(TVar)
		return ok && x.Name == y.Name
	case TParam:
		y, ok := b.(TParam)
		return ok && x.Key() == y.Key()
	case TCon:
		y, ok := b.(TCon)
		return ok && x.Name == y.Name
	case TApp:
		y, ok := b.(TApp)
		if !ok || x.Constructor.Name != y.Constructor.Name || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case TArray:
		y, ok := b.(TArray)
		return ok && Equal(x.Elem, y.Elem)
	case TPrim:
		y, ok := b.(TPrim)
		return ok && x.Name == y.Name
	case TNull:
		_, ok := b.(TNull)
		return ok
	}
	return false
}

// EqualAll compares two type lists element by element.
func EqualAll(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Mentions reports whether t mentions the inference variable v.
func Mentions(t Type, v TVar) bool {
	for _, fv := range t.FreeTypeVariables() {
		if fv.Name == v.Name {
			return true
		}
	}
	return false
}

// Subst is a mapping from inference variable names and type parameter keys to Types.
type Subst map[string]Type

// Compose combines two substitutions; s2 is applied to the results of s1.
func (s1 Subst) Compose(s2 Subst) Subst {
	subst := Subst{}
	for k, v := range s2 {
		subst[k] = v
	}
	for k, v := range s1 {
		subst[k] = v.Apply(s2)
	}
	return subst
}

// Merge returns a copy of s1 extended with the entries of s2.
func (s1 Subst) Merge(s2 Subst) Subst {
	subst := make(Subst, len(s1)+len(s2))
	for k, v := range s1 {
		subst[k] = v
	}
	for k, v := range s2 {
		subst[k] = v
	}
	return subst
}

// ApplyAll applies the substitution to every type in ts.
func ApplyAll(ts []Type, s Subst) []Type {
	out := make([]Type, len(ts))
	for i, t := range ts {
		out[i] = t.Apply(s)
	}
	return out
}

// Strings renders a list of types.
func Strings(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

func uniqueTVars(vars []TVar) []TVar {
	unique := []TVar{}
	seen := map[string]bool{}
	for _, v := range vars {
		if !seen[v.Name] {
			seen[v.Name] = true
			unique = append(unique, v)
		}
	}
	return unique
}

// TypeKey renders t unambiguously, without any display normalization.
// It is suitable as a map key.
func TypeKey(t Type) string {
	switch typ := t.(type) {
	case TVar:
		return "?" + typ.Name
	case TParam:
		return "'" + typ.Key()
	case TApp:
		args := make([]string, len(typ.Args))
		for i, arg := range typ.Args {
			args[i] = TypeKey(arg)
		}
		return typ.Constructor.Name + "<" + strings.Join(args, ",") + ">"
	case TArray:
		return TypeKey(typ.Elem) + "[]"
	case nil:
		return "<nil>"
	}
	return t.String()
}
