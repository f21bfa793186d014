// Package reflection is the host reflection API: classes declared in a
// Universe and the members (methods, constructors and fields) declared on
// them, each bound to an invocation strategy over Go values.
package reflection

import (
	"fmt"
	"strings"

	"github.com/funvibe/typetoken/internal/config"
	"github.com/funvibe/typetoken/internal/typesystem"
)

// Member is a reflected member of a class. The set of implementations is
// closed: *Method, *Constructor and *Field.
type Member interface {
	Name() string
	DeclaringClass() *Class
	IsStatic() bool
	String() string
	isMember()
}

// Executable is a member that can be called: a *Method or a *Constructor.
type Executable interface {
	Member
	// TypeParameters are the member's own type parameters.
	TypeParameters() []typesystem.TypeParamDecl
	// TypeParameterOwner is the owner key of the member's own TParams.
	TypeParameterOwner() string
	Parameters() []Parameter
	ParameterCount() int
	ReturnType() typesystem.Type
	IsVarArgs() bool
	Invoker() Invoker
}

// Parameter is a declared parameter of an executable member.
type Parameter struct {
	Name string
	Type typesystem.Type
}

type executable struct {
	name       string
	class      *Class
	static     bool
	owner      string
	typeParams []typesystem.TypeParamDecl
	params     []Parameter
	returns    typesystem.Type
	varArgs    bool
	invoker    Invoker
}

func (e *executable) Name() string                               { return e.name }
func (e *executable) DeclaringClass() *Class                     { return e.class }
func (e *executable) IsStatic() bool                             { return e.static }
func (e *executable) TypeParameters() []typesystem.TypeParamDecl { return e.typeParams }
func (e *executable) TypeParameterOwner() string                 { return e.owner }
func (e *executable) ParameterCount() int                        { return len(e.params) }
func (e *executable) ReturnType() typesystem.Type                { return e.returns }
func (e *executable) IsVarArgs() bool                            { return e.varArgs }
func (e *executable) Invoker() Invoker                           { return e.invoker }

func (e *executable) Parameters() []Parameter {
	return append([]Parameter{}, e.params...)
}

func (e *executable) signature(name string) string {
	var sb strings.Builder
	if e.static {
		sb.WriteString("static ")
	}
	if len(e.typeParams) > 0 {
		sb.WriteString(FormatTypeParams(e.typeParams))
		sb.WriteString(" ")
	}
	if name != config.ConstructorName {
		sb.WriteString(e.returns.String())
		sb.WriteString(" ")
	}
	sb.WriteString(e.class.Name())
	sb.WriteString(".")
	sb.WriteString(name)
	sb.WriteString("(")
	sb.WriteString(FormatParameters(e.params, e.varArgs))
	sb.WriteString(")")
	return sb.String()
}

// Method is a static or instance method.
type Method struct {
	executable
}

func (m *Method) isMember()      {}
func (m *Method) String() string { return m.signature(m.name) }

// Constructor creates instances of its declaring class. Its return type is
// the generic self type of the class.
type Constructor struct {
	executable
}

func (c *Constructor) isMember()      {}
func (c *Constructor) String() string { return c.signature(config.ConstructorName) }

// Field is a static or instance field.
type Field struct {
	name   string
	class  *Class
	static bool
	typ    typesystem.Type
	get    func(receiver any) (any, error)
	set    func(receiver, value any) error
}

func (f *Field) isMember()              {}
func (f *Field) Name() string           { return f.name }
func (f *Field) DeclaringClass() *Class { return f.class }
func (f *Field) IsStatic() bool         { return f.static }

// Type is the declared type of the field.
func (f *Field) Type() typesystem.Type { return f.typ }

// Get reads the field. The receiver is ignored for static fields.
func (f *Field) Get(receiver any) (any, error) {
	return f.get(receiver)
}

// Set writes the field. The receiver is ignored for static fields.
func (f *Field) Set(receiver, value any) error {
	return f.set(receiver, value)
}

func (f *Field) String() string {
	prefix := ""
	if f.static {
		prefix = "static "
	}
	return fmt.Sprintf("%s%s %s.%s", prefix, f.typ, f.class.Name(), f.name)
}

// FormatTypeParams renders a type parameter list such as <T extends Comparable<T>>.
func FormatTypeParams(params []typesystem.TypeParamDecl) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Name
		if len(p.Bounds) > 0 {
			bounds := make([]string, len(p.Bounds))
			for j, b := range p.Bounds {
				bounds[j] = b.String()
			}
			parts[i] += " extends " + strings.Join(bounds, " & ")
		}
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

// FormatParameters renders parameter types, the last one as T... when varArgs.
func FormatParameters(params []Parameter, varArgs bool) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Type.String()
		if varArgs && i == len(params)-1 {
			if arr, ok := p.Type.(typesystem.TArray); ok {
				parts[i] = arr.Elem.String() + "..."
			}
		}
	}
	return strings.Join(parts, ", ")
}
