package schema

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/funvibe/typetoken/internal/reflection"
	"github.com/funvibe/typetoken/internal/stdhost"
	"github.com/funvibe/typetoken/internal/typesystem"
)

// Object is an instance of a schema class created by a constructor
// without an implementation. Its fields are stored by name.
type Object struct {
	Class string

	mu     sync.RWMutex
	fields map[string]any
}

// NewObject creates an instance of class with the given field values.
func NewObject(class string, fields map[string]any) *Object {
	return &Object{Class: class, fields: maps.Clone(fields)}
}

// Field returns the value of a field.
func (o *Object) Field(name string) (any, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.fields[name]
	return v, ok
}

// SetField stores the value of a field.
func (o *Object) SetField(name string, value any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fields == nil {
		o.fields = make(map[string]any)
	}
	o.fields[name] = value
}

func (o *Object) String() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := slices.Sorted(maps.Keys(o.fields))
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%v", name, o.fields[name])
	}
	return o.Class + "{" + strings.Join(parts, ", ") + "}"
}

// Apply declares the schema's classes and their members in u. Classes are
// declared before any member so that member types may refer to classes
// declared later in the schema.
func (s *Schema) Apply(u *reflection.Universe) error {
	classes := make([]*reflection.Class, len(s.Classes))
	for i, spec := range s.Classes {
		c, err := u.Define(spec.decl())
		if err != nil {
			return fmt.Errorf("class %s: %w", spec.Name, err)
		}
		if err := checkSupertypes(u.Table(), c.Decl()); err != nil {
			return fmt.Errorf("class %s: %w", spec.Name, err)
		}
		classes[i] = c
	}
	for i, spec := range s.Classes {
		if err := spec.declareMembers(classes[i]); err != nil {
			return fmt.Errorf("class %s: %w", spec.Name, err)
		}
	}
	return nil
}

func (c ClassSpec) paramNames() []string {
	names := make([]string, len(c.TypeParams))
	for i, p := range c.TypeParams {
		names[i] = p.Name
	}
	return names
}

func (c ClassSpec) decl() *typesystem.ClassDecl {
	names := c.paramNames()
	decl := &typesystem.ClassDecl{
		Name:       c.Name,
		Interface:  c.Interface,
		TypeParams: typeParamDecls(c.TypeParams, names, c.Name),
	}
	if c.Super != nil {
		decl.Super = c.Super.Resolve(names, c.Name)
	}
	for _, i := range c.Interfaces {
		decl.Interfaces = append(decl.Interfaces, i.Resolve(names, c.Name))
	}
	return decl
}

func typeParamDecls(specs []TypeParamSpec, scope []string, owner string) []typesystem.TypeParamDecl {
	out := make([]typesystem.TypeParamDecl, len(specs))
	for i, p := range specs {
		out[i] = typesystem.TypeParamDecl{Name: p.Name}
		for _, b := range p.Bounds {
			out[i].Bounds = append(out[i].Bounds, b.Resolve(scope, owner))
		}
	}
	return out
}

// checkSupertypes verifies that parameterized supertypes have as many
// arguments as their class declares.
func checkSupertypes(table *typesystem.ClassTable, decl *typesystem.ClassDecl) error {
	supers := append([]typesystem.Type{}, decl.Interfaces...)
	if decl.Super != nil {
		supers = append(supers, decl.Super)
	}
	for _, s := range supers {
		app, ok := s.(typesystem.TApp)
		if !ok {
			continue
		}
		super, err := table.MustLookup(app.Constructor.Name)
		if err != nil {
			return err
		}
		if len(app.Args) != len(super.TypeParams) {
			return fmt.Errorf("supertype %s needs %d type arguments", s, len(super.TypeParams))
		}
	}
	return nil
}

// memberScope lists the type parameter names visible in a member, its own
// first. The member's types are left with an empty owner, which reflection
// binds to the member's or the class's parameters.
func (c ClassSpec) memberScope(own []TypeParamSpec) []string {
	names := make([]string, 0, len(own)+len(c.TypeParams))
	for _, p := range own {
		names = append(names, p.Name)
	}
	return append(names, c.paramNames()...)
}

func parameters(specs []ParamSpec, scope []string) []reflection.Parameter {
	out := make([]reflection.Parameter, len(specs))
	for i, p := range specs {
		out[i] = reflection.Parameter{Name: p.Name, Type: p.Type.Resolve(scope, "")}
	}
	return out
}

func impl(name string) (any, error) {
	if name == "" {
		return nil, nil
	}
	return stdhost.Func(name)
}

func (c ClassSpec) declareMembers(class *reflection.Class) error {
	defaults := make(map[string]any)
	for _, f := range c.Fields {
		if !f.Static {
			defaults[f.Name] = f.Value
		}
	}

	for _, f := range c.Fields {
		spec := reflection.FieldSpec{
			Name:   f.Name,
			Type:   f.Type.Resolve(c.paramNames(), ""),
			Static: f.Static,
			Value:  f.Value,
		}
		switch {
		case !f.Static:
			spec.Get = objectGetter(f.Name)
			if !f.Final {
				spec.Set = objectSetter(f.Name)
			}
		case f.Final:
			value := f.Value
			spec.Get = func(any) (any, error) { return value, nil }
		}
		if _, err := class.AddField(spec); err != nil {
			return err
		}
	}

	for _, ctor := range c.Constructors {
		fn, err := impl(ctor.Impl)
		if err != nil {
			return fmt.Errorf("constructor: %w", err)
		}
		scope := c.memberScope(ctor.TypeParams)
		spec := reflection.ConstructorSpec{
			TypeParams: typeParamDecls(ctor.TypeParams, scope, ""),
			Params:     parameters(ctor.Params, scope),
			VarArgs:    ctor.VarArgs,
			Impl:       fn,
		}
		if fn == nil {
			spec.Invoker = objectConstructor(c.Name, ctor.Params, defaults)
		}
		if _, err := class.AddConstructor(spec); err != nil {
			return err
		}
	}

	for _, m := range c.Methods {
		fn, err := impl(m.Impl)
		if err != nil {
			return fmt.Errorf("method %s: %w", m.Name, err)
		}
		scope := c.memberScope(m.TypeParams)
		var returns typesystem.Type = typesystem.Void
		if m.Returns != nil {
			returns = m.Returns.Resolve(scope, "")
		}
		_, err = class.AddMethod(reflection.MethodSpec{
			Name:       m.Name,
			TypeParams: typeParamDecls(m.TypeParams, scope, ""),
			Params:     parameters(m.Params, scope),
			Returns:    returns,
			VarArgs:    m.VarArgs,
			Static:     m.Static,
			Impl:       fn,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func objectConstructor(class string, params []ParamSpec, defaults map[string]any) reflection.Invoker {
	return func(_ any, args []any) (any, error) {
		o := NewObject(class, defaults)
		for i, p := range params {
			if p.Name != "" && i < len(args) {
				o.SetField(p.Name, args[i])
			}
		}
		return o, nil
	}
}

func objectGetter(name string) func(any) (any, error) {
	return func(receiver any) (any, error) {
		o, ok := receiver.(*Object)
		if !ok {
			return nil, fmt.Errorf("receiver %T is not a schema object", receiver)
		}
		v, _ := o.Field(name)
		return v, nil
	}
}

func objectSetter(name string) func(any, any) error {
	return func(receiver, value any) error {
		o, ok := receiver.(*Object)
		if !ok {
			return fmt.Errorf("receiver %T is not a schema object", receiver)
		}
		o.SetField(name, value)
		return nil
	}
}
