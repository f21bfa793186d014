package reflection

import (
	"fmt"
	"sync"

	"github.com/funvibe/typetoken/internal/config"
	"github.com/funvibe/typetoken/internal/typesystem"
)

// Universe is the set of reflected classes together with the class table
// that describes their types. It is populated once, then only read.
type Universe struct {
	table   *typesystem.ClassTable
	classes map[string]*Class
	order   []*Class
}

// NewUniverse creates a universe holding the builtin classes, without members.
func NewUniverse() *Universe {
	u := &Universe{
		table:   typesystem.NewClassTable(),
		classes: make(map[string]*Class),
	}
	for _, decl := range u.table.Classes() {
		u.add(decl)
	}
	return u
}

func (u *Universe) add(decl *typesystem.ClassDecl) *Class {
	c := &Class{decl: decl, universe: u, ordinals: make(map[string]int)}
	u.classes[decl.Name] = c
	u.order = append(u.order, c)
	return c
}

// Table returns the class table of the universe.
func (u *Universe) Table() *typesystem.ClassTable {
	return u.table
}

// Define declares a new class. Its supertypes must already be declared.
func (u *Universe) Define(decl *typesystem.ClassDecl) (*Class, error) {
	if err := u.table.Declare(decl); err != nil {
		return nil, err
	}
	return u.add(decl), nil
}

// Class returns the class declared under name.
func (u *Universe) Class(name string) (*Class, bool) {
	c, ok := u.classes[name]
	return c, ok
}

// Lookup returns the class declared under name or a *typesystem.SymbolNotFoundError.
func (u *Universe) Lookup(name string) (*Class, error) {
	c, ok := u.classes[name]
	if !ok {
		return nil, typesystem.NewSymbolNotFoundError(name)
	}
	return c, nil
}

// Classes returns every class in declaration order.
func (u *Universe) Classes() []*Class {
	return append([]*Class{}, u.order...)
}

// Class is a reflected class and its members in declaration order.
type Class struct {
	decl     *typesystem.ClassDecl
	universe *Universe
	members  []Member
	ordinals map[string]int
}

func (c *Class) Name() string                { return c.decl.Name }
func (c *Class) Decl() *typesystem.ClassDecl { return c.decl }
func (c *Class) Universe() *Universe         { return c.universe }
func (c *Class) IsGeneric() bool             { return c.decl.IsGeneric() }
func (c *Class) Members() []Member           { return append([]Member{}, c.members...) }
func (c *Class) String() string              { return c.decl.Name }

// Type returns the generic self type of the class.
func (c *Class) Type() typesystem.Type {
	return c.decl.Self()
}

// Methods returns the declared methods, static and instance.
func (c *Class) Methods() []*Method {
	var out []*Method
	for _, m := range c.members {
		if method, ok := m.(*Method); ok {
			out = append(out, method)
		}
	}
	return out
}

// Constructors returns the declared constructors.
func (c *Class) Constructors() []*Constructor {
	var out []*Constructor
	for _, m := range c.members {
		if ctor, ok := m.(*Constructor); ok {
			out = append(out, ctor)
		}
	}
	return out
}

// Fields returns the declared fields.
func (c *Class) Fields() []*Field {
	var out []*Field
	for _, m := range c.members {
		if f, ok := m.(*Field); ok {
			out = append(out, f)
		}
	}
	return out
}

// Field returns the field declared under name.
func (c *Class) Field(name string) (*Field, bool) {
	for _, f := range c.Fields() {
		if f.name == name {
			return f, true
		}
	}
	return nil, false
}

// Param refers to a type parameter by name from a member spec. It binds to
// the member's own type parameter of that name, else to the class's.
func Param(name string) typesystem.TParam {
	return typesystem.TParam{Name: name}
}

// MethodSpec describes a method to add to a class. Types may use Param to
// refer to type parameters. Impl is a Go func taking the receiver first
// (instance methods only) and then one argument per parameter; Invoker, if
// set, takes precedence over Impl.
type MethodSpec struct {
	Name       string
	TypeParams []typesystem.TypeParamDecl
	Params     []Parameter
	Returns    typesystem.Type
	VarArgs    bool
	Static     bool
	Impl       any
	Invoker    Invoker
}

// ConstructorSpec describes a constructor. Impl is a Go func taking one
// argument per parameter and returning the new instance.
type ConstructorSpec struct {
	TypeParams []typesystem.TypeParamDecl
	Params     []Parameter
	VarArgs    bool
	Impl       any
	Invoker    Invoker
}

// FieldSpec describes a field. Instance fields without Get and Set are read
// and written by name on struct receivers. Static fields without Get and Set
// are stored in the field itself, starting at Value.
type FieldSpec struct {
	Name   string
	Type   typesystem.Type
	Static bool
	Value  any
	Get    func(receiver any) (any, error)
	Set    func(receiver, value any) error
}

// AddMethod declares a method on the class.
func (c *Class) AddMethod(spec MethodSpec) (*Method, error) {
	if spec.Name == "" || spec.Name == config.ConstructorName {
		return nil, fmt.Errorf("%s: invalid method name %q", c.Name(), spec.Name)
	}
	returns := spec.Returns
	if returns == nil {
		returns = typesystem.Void
	}
	exec, err := c.executable(spec.Name, spec.TypeParams, spec.Params, returns, spec.VarArgs, spec.Static)
	if err != nil {
		return nil, err
	}
	exec.invoker, err = bindInvoker(exec, spec.Invoker, spec.Impl, !spec.Static)
	if err != nil {
		return nil, err
	}
	m := &Method{executable: *exec}
	c.members = append(c.members, m)
	return m, nil
}

// AddConstructor declares a constructor on the class.
func (c *Class) AddConstructor(spec ConstructorSpec) (*Constructor, error) {
	exec, err := c.executable(config.ConstructorName, spec.TypeParams, spec.Params, c.Type(), spec.VarArgs, false)
	if err != nil {
		return nil, err
	}
	exec.invoker, err = bindInvoker(exec, spec.Invoker, spec.Impl, false)
	if err != nil {
		return nil, err
	}
	ctor := &Constructor{executable: *exec}
	c.members = append(c.members, ctor)
	return ctor, nil
}

// AddField declares a field on the class.
func (c *Class) AddField(spec FieldSpec) (*Field, error) {
	if spec.Name == "" || spec.Type == nil {
		return nil, fmt.Errorf("%s: field needs a name and a type", c.Name())
	}
	if _, ok := c.Field(spec.Name); ok {
		return nil, fmt.Errorf("%s: field %s is already declared", c.Name(), spec.Name)
	}
	typ, err := c.bind(spec.Type, nil, "", !spec.Static)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c.Name(), spec.Name, err)
	}
	f := &Field{name: spec.Name, class: c, static: spec.Static, typ: typ, get: spec.Get, set: spec.Set}
	switch {
	case f.get != nil || f.set != nil:
		if f.get == nil {
			f.get = func(any) (any, error) { return nil, fmt.Errorf("field %s is write-only", f) }
		}
		if f.set == nil {
			f.set = func(any, any) error { return fmt.Errorf("field %s is read-only", f) }
		}
	case spec.Static:
		cell := &staticCell{value: spec.Value}
		f.get = cell.get
		f.set = cell.set
	default:
		f.get = func(receiver any) (any, error) { return structField(receiver, spec.Name) }
		f.set = func(receiver, value any) error { return setStructField(receiver, spec.Name, value) }
	}
	c.members = append(c.members, f)
	return f, nil
}

type staticCell struct {
	mu    sync.RWMutex
	value any
}

func (s *staticCell) get(any) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, nil
}

func (s *staticCell) set(_ any, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
	return nil
}

func (c *Class) executable(name string, typeParams []typesystem.TypeParamDecl, params []Parameter, returns typesystem.Type, varArgs, static bool) (*executable, error) {
	// Overloads get distinct owners so their type parameters never collide.
	owner := fmt.Sprintf("%s#%s/%d", c.Name(), name, c.ordinals[name])
	fail := func(err error) (*executable, error) {
		return nil, fmt.Errorf("%s.%s: %w", c.Name(), name, err)
	}
	allowClassParams := !static || name == config.ConstructorName

	seen := map[string]bool{}
	for _, tp := range typeParams {
		if tp.Name == "" || seen[tp.Name] {
			return fail(fmt.Errorf("invalid or duplicate type parameter %q", tp.Name))
		}
		seen[tp.Name] = true
	}
	decls := make([]typesystem.TypeParamDecl, len(typeParams))
	for i, tp := range typeParams {
		decls[i] = typesystem.TypeParamDecl{Name: tp.Name}
		for _, b := range tp.Bounds {
			bound, err := c.bind(b, typeParams, owner, allowClassParams)
			if err != nil {
				return fail(err)
			}
			decls[i].Bounds = append(decls[i].Bounds, bound)
		}
	}

	bound := make([]Parameter, len(params))
	for i, p := range params {
		if p.Type == nil {
			return fail(fmt.Errorf("parameter %d has no type", i))
		}
		t, err := c.bind(p.Type, typeParams, owner, allowClassParams)
		if err != nil {
			return fail(err)
		}
		if _, ok := t.(typesystem.TPrim); ok && typesystem.Equal(t, typesystem.Void) {
			return fail(fmt.Errorf("parameter %d cannot be void", i))
		}
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		bound[i] = Parameter{Name: name, Type: t}
	}
	if varArgs {
		if len(bound) == 0 {
			return fail(fmt.Errorf("variable arity member without parameters"))
		}
		if _, ok := bound[len(bound)-1].Type.(typesystem.TArray); !ok {
			return fail(fmt.Errorf("variable arity parameter must be an array, got %s", bound[len(bound)-1].Type))
		}
	}
	ret, err := c.bind(returns, typeParams, owner, allowClassParams)
	if err != nil {
		return fail(err)
	}

	c.ordinals[name]++
	if len(decls) > 0 {
		c.universe.table.DeclareTypeParams(owner, decls)
	}
	return &executable{
		name:       name,
		class:      c,
		static:     static,
		owner:      owner,
		typeParams: decls,
		params:     bound,
		returns:    ret,
		varArgs:    varArgs,
	}, nil
}

// bind resolves Param references in t to the member's or the class's type
// parameters and checks that every class t mentions is declared.
func (c *Class) bind(t typesystem.Type, own []typesystem.TypeParamDecl, owner string, allowClassParams bool) (typesystem.Type, error) {
	switch typ := t.(type) {
	case typesystem.TParam:
		if typ.Owner != "" {
			if typ.Owner == c.Name() && !allowClassParams {
				return nil, fmt.Errorf("static member cannot use class type parameter %s", typ.Name)
			}
			return typ, nil
		}
		for _, tp := range own {
			if tp.Name == typ.Name {
				return typesystem.TParam{Owner: owner, Name: typ.Name}, nil
			}
		}
		for _, tp := range c.decl.TypeParams {
			if tp.Name == typ.Name {
				if !allowClassParams {
					return nil, fmt.Errorf("static member cannot use class type parameter %s", typ.Name)
				}
				return typesystem.TParam{Owner: c.Name(), Name: typ.Name}, nil
			}
		}
		return nil, fmt.Errorf("unknown type parameter %s", typ.Name)
	case typesystem.TCon:
		if _, ok := c.universe.table.Lookup(typ.Name); !ok {
			return nil, typesystem.NewSymbolNotFoundError(typ.Name)
		}
		return typ, nil
	case typesystem.TApp:
		decl, ok := c.universe.table.Lookup(typ.Constructor.Name)
		if !ok {
			return nil, typesystem.NewSymbolNotFoundError(typ.Constructor.Name)
		}
		if len(decl.TypeParams) != len(typ.Args) {
			return nil, fmt.Errorf("%s expects %d type arguments, got %d", decl.Name, len(decl.TypeParams), len(typ.Args))
		}
		args := make([]typesystem.Type, len(typ.Args))
		for i, arg := range typ.Args {
			if _, prim := arg.(typesystem.TPrim); prim {
				return nil, fmt.Errorf("primitive type argument %s in %s", arg, typ)
			}
			bound, err := c.bind(arg, own, owner, allowClassParams)
			if err != nil {
				return nil, err
			}
			args[i] = bound
		}
		return typesystem.TApp{Constructor: typ.Constructor, Args: args}, nil
	case typesystem.TArray:
		elem, err := c.bind(typ.Elem, own, owner, allowClassParams)
		if err != nil {
			return nil, err
		}
		return typesystem.TArray{Elem: elem}, nil
	}
	return t, nil
}
