package typesystem

import (
	"fmt"

	"github.com/funvibe/typetoken/internal/config"
)

// TypeParamDecl declares a type parameter and its upper bounds.
// Bounds may reference any type parameter of the same owner, itself included.
type TypeParamDecl struct {
	Name   string
	Bounds []Type
}

// ClassDecl is the declaration of a nominal class or interface.
type ClassDecl struct {
	Name       string
	TypeParams []TypeParamDecl
	// Super is the superclass, written in terms of this class's TParams.
	// Nil for Object and for interfaces.
	Super      Type
	Interfaces []Type
	Interface  bool
}

// IsGeneric reports whether the class declares type parameters.
func (d *ClassDecl) IsGeneric() bool {
	return len(d.TypeParams) > 0
}

// Param returns the i-th declared type parameter as a type.
func (d *ClassDecl) Param(i int) TParam {
	return TParam{Owner: d.Name, Name: d.TypeParams[i].Name}
}

// Self returns the generic self type, C<T1..Tn>, or C for non-generic classes.
func (d *ClassDecl) Self() Type {
	if !d.IsGeneric() {
		return TCon{Name: d.Name}
	}
	args := make([]Type, len(d.TypeParams))
	for i := range d.TypeParams {
		args[i] = d.Param(i)
	}
	return TApp{Constructor: TCon{Name: d.Name}, Args: args}
}

// ClassTable holds class declarations and the type-parameter symbol table.
// It is populated once and read-only afterwards, so concurrent readers need
// no locking.
type ClassTable struct {
	classes map[string]*ClassDecl
	order   []string
	params  map[string][]TypeParamDecl
}

// NewClassTable creates a class table populated with the builtin classes.
func NewClassTable() *ClassTable {
	ct := &ClassTable{
		classes: make(map[string]*ClassDecl),
		params:  make(map[string][]TypeParamDecl),
	}
	for _, decl := range builtinClasses() {
		if err := ct.Declare(decl); err != nil {
			panic(err)
		}
	}
	return ct
}

// Declare adds a class declaration. Supertypes must already be declared.
func (ct *ClassTable) Declare(decl *ClassDecl) error {
	if decl.Name == "" {
		return fmt.Errorf("class declaration without a name")
	}
	if _, ok := ct.classes[decl.Name]; ok {
		return fmt.Errorf("class %s is already declared", decl.Name)
	}
	supers := append([]Type{}, decl.Interfaces...)
	if decl.Super != nil {
		supers = append(supers, decl.Super)
	}
	for _, s := range supers {
		name, ok := ClassName(s)
		if !ok {
			return fmt.Errorf("class %s: supertype %s is not a class type", decl.Name, s)
		}
		if name == decl.Name {
			return fmt.Errorf("class %s cannot extend itself", decl.Name)
		}
		if _, ok := ct.classes[name]; !ok {
			return NewSymbolNotFoundError(name)
		}
	}
	ct.classes[decl.Name] = decl
	ct.order = append(ct.order, decl.Name)
	ct.params[decl.Name] = decl.TypeParams
	return nil
}

// DeclareTypeParams registers the type parameters of a non-class owner,
// such as a generic method.
func (ct *ClassTable) DeclareTypeParams(owner string, params []TypeParamDecl) {
	ct.params[owner] = params
}

// TypeParams returns the type parameters registered for owner.
func (ct *ClassTable) TypeParams(owner string) []TypeParamDecl {
	return ct.params[owner]
}

// ParamBounds returns the declared bounds of a type parameter.
func (ct *ClassTable) ParamBounds(p TParam) []Type {
	for _, decl := range ct.params[p.Owner] {
		if decl.Name == p.Name {
			return decl.Bounds
		}
	}
	return nil
}

// Lookup returns the class declared under name.
func (ct *ClassTable) Lookup(name string) (*ClassDecl, bool) {
	decl, ok := ct.classes[name]
	return decl, ok
}

// MustLookup returns the class declared under name or an error.
func (ct *ClassTable) MustLookup(name string) (*ClassDecl, error) {
	decl, ok := ct.classes[name]
	if !ok {
		return nil, NewSymbolNotFoundError(name)
	}
	return decl, nil
}

// Classes returns all declarations in declaration order.
func (ct *ClassTable) Classes() []*ClassDecl {
	out := make([]*ClassDecl, 0, len(ct.order))
	for _, name := range ct.order {
		out = append(out, ct.classes[name])
	}
	return out
}

var boxes = map[string]string{
	config.BooleanPrimName: config.BooleanClassName,
	config.BytePrimName:    config.ByteClassName,
	config.ShortPrimName:   config.ShortClassName,
	config.CharPrimName:    config.CharacterClassName,
	config.IntPrimName:     config.IntegerClassName,
	config.LongPrimName:    config.LongClassName,
	config.FloatPrimName:   config.FloatClassName,
	config.DoublePrimName:  config.DoubleClassName,
	config.VoidPrimName:    config.VoidClassName,
}

// Box returns the wrapper class of a primitive type.
func Box(p TPrim) TCon {
	return TCon{Name: boxes[p.Name]}
}

// Unbox returns the primitive type wrapped by t, if t is a wrapper class.
func Unbox(t Type) (TPrim, bool) {
	con, ok := t.(TCon)
	if !ok {
		return TPrim{}, false
	}
	for prim, box := range boxes {
		if box == con.Name && prim != config.VoidPrimName {
			p, _ := PrimitiveByName(prim)
			return p, true
		}
	}
	return TPrim{}, false
}

func builtinClasses() []*ClassDecl {
	cls := func(name string) TCon { return TCon{Name: name} }
	comparableOf := func(t Type) Type { return Class(config.ComparableClassName, t) }
	numeric := func(name string) *ClassDecl {
		return &ClassDecl{
			Name:       name,
			Super:      cls(config.NumberClassName),
			Interfaces: []Type{comparableOf(cls(name))},
		}
	}
	param := func(owner, name string) TParam { return TParam{Owner: owner, Name: name} }

	return []*ClassDecl{
		{Name: config.ObjectClassName},
		{Name: config.CharSequenceClassName, Interface: true},
		{Name: config.ComparableClassName, Interface: true, TypeParams: []TypeParamDecl{{Name: "T"}}},
		{
			Name:       config.StringClassName,
			Super:      Object,
			Interfaces: []Type{cls(config.CharSequenceClassName), comparableOf(cls(config.StringClassName))},
		},
		{Name: config.NumberClassName, Super: Object},
		numeric(config.IntegerClassName),
		numeric(config.LongClassName),
		numeric(config.ShortClassName),
		numeric(config.ByteClassName),
		numeric(config.DoubleClassName),
		numeric(config.FloatClassName),
		{
			Name:       config.BooleanClassName,
			Super:      Object,
			Interfaces: []Type{comparableOf(cls(config.BooleanClassName))},
		},
		{
			Name:       config.CharacterClassName,
			Super:      Object,
			Interfaces: []Type{comparableOf(cls(config.CharacterClassName))},
		},
		{Name: config.VoidClassName, Super: Object},
		{Name: config.IterableClassName, Interface: true, TypeParams: []TypeParamDecl{{Name: "T"}}},
		{
			Name:       config.CollectionClassName,
			Interface:  true,
			TypeParams: []TypeParamDecl{{Name: "E"}},
			Interfaces: []Type{Class(config.IterableClassName, param(config.CollectionClassName, "E"))},
		},
		{
			Name:       config.ListClassName,
			Interface:  true,
			TypeParams: []TypeParamDecl{{Name: "E"}},
			Interfaces: []Type{Class(config.CollectionClassName, param(config.ListClassName, "E"))},
		},
		{
			Name:       config.ArrayListClassName,
			TypeParams: []TypeParamDecl{{Name: "E"}},
			Super:      Object,
			Interfaces: []Type{Class(config.ListClassName, param(config.ArrayListClassName, "E"))},
		},
	}
}
