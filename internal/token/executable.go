package token

import (
	"fmt"
	"strings"

	"github.com/funvibe/typetoken/internal/inference"
	"github.com/funvibe/typetoken/internal/reflection"
	"github.com/funvibe/typetoken/internal/typesystem"
)

// ExecutableToken is a typed method or constructor in the context of a
// receiver type. Parameter and return types may mention inference
// variables constrained by the token's bound set.
type ExecutableToken struct {
	memberToken
	member   reflection.Executable
	typeArgs []typesystem.Type
	params   []reflection.Parameter
	returns  typesystem.Type
	varArity bool
	invoker  reflection.Invoker
}

// TypedValue is an argument value together with its declared type.
type TypedValue struct {
	Value any
	Type  typesystem.Type
}

// OverMethod creates a token for method used on receiver. The receiver must
// be a subtype of the declaring class. Static methods ignore the receiver.
func OverMethod(method *reflection.Method, receiver typesystem.Type) (*ExecutableToken, error) {
	if method.IsStatic() {
		return OverStaticMethod(method)
	}
	table := method.DeclaringClass().Universe().Table()
	rw, container, err := containerOf(table, method.DeclaringClass().Decl(), receiver)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	mt := memberToken{
		table:     table,
		receiver:  receiver,
		rawness:   rw,
		container: container,
		bounds:    newBounds(table),
	}
	return newExecutable(mt, method)
}

// OverStaticMethod creates a token for a static method.
func OverStaticMethod(method *reflection.Method) (*ExecutableToken, error) {
	if !method.IsStatic() {
		return nil, fmt.Errorf("%s is not static", method)
	}
	table := method.DeclaringClass().Universe().Table()
	mt := memberToken{
		table:    table,
		receiver: typesystem.TCon{Name: method.DeclaringClass().Name()},
		rawness:  notGeneric,
		bounds:   newBounds(table),
	}
	return newExecutable(mt, method)
}

// OverConstructor creates a token for ctor creating instances of receiver.
// When receiver names a generic class without arguments, the class
// arguments are inferred.
func OverConstructor(ctor *reflection.Constructor, receiver typesystem.Type) (*ExecutableToken, error) {
	class := ctor.DeclaringClass()
	table := class.Universe().Table()
	decl := class.Decl()
	if name, ok := typesystem.ClassName(receiver); !ok || name != decl.Name {
		return nil, fmt.Errorf("%s cannot create %s", ctor, receiver)
	}
	mt := memberToken{table: table, receiver: receiver, bounds: newBounds(table)}
	switch r := receiver.(type) {
	case typesystem.TCon:
		if decl.IsGeneric() {
			bs, subst, err := mt.bounds.WithTypeParameters(decl.TypeParams, decl.Name, nil)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", ctor, err)
			}
			mt.bounds = bs
			mt.container = subst
			mt.receiver = decl.Self().Apply(subst)
			mt.rawness = parameterized
			mt.diamond = true
		}
	case typesystem.TApp:
		if len(r.Args) != len(decl.TypeParams) {
			return nil, &ArityError{Token: ctor.String(), What: "type arguments", Expected: len(decl.TypeParams), Actual: len(r.Args)}
		}
		mt.rawness = parameterized
		mt.container = typesystem.Subst{}
		for i := range decl.TypeParams {
			mt.container[decl.Param(i).Key()] = r.Args[i]
		}
	}
	return newExecutable(mt, ctor)
}

func newExecutable(mt memberToken, member reflection.Executable) (*ExecutableToken, error) {
	t := &ExecutableToken{memberToken: mt, member: member, invoker: member.Invoker()}
	if err := t.instantiateOwn(); err != nil {
		return nil, fmt.Errorf("%s: %w", member, err)
	}
	t.derive()
	return t, nil
}

// instantiateOwn creates inference variables for the member's own type
// parameters. Raw tokens have none.
func (t *ExecutableToken) instantiateOwn() error {
	decls := t.member.TypeParameters()
	if t.rawness == raw || len(decls) == 0 {
		t.typeArgs = nil
		return nil
	}
	bs, subst, err := t.bounds.WithTypeParameters(decls, t.member.TypeParameterOwner(), t.container)
	if err != nil {
		return err
	}
	t.bounds = bs
	t.typeArgs = make([]typesystem.Type, len(decls))
	for i, d := range decls {
		t.typeArgs[i] = subst[t.ownParam(d.Name).Key()]
	}
	return nil
}

func (t *ExecutableToken) ownParam(name string) typesystem.TParam {
	return typesystem.TParam{Owner: t.member.TypeParameterOwner(), Name: name}
}

func (t *ExecutableToken) ownSubst() typesystem.Subst {
	own := typesystem.Subst{}
	for i, d := range t.member.TypeParameters() {
		if i < len(t.typeArgs) {
			own[t.ownParam(d.Name).Key()] = t.typeArgs[i]
		}
	}
	return own
}

// derive recomputes parameter and return types from the declared shapes.
func (t *ExecutableToken) derive() {
	own := t.ownSubst()
	declared := t.member.Parameters()
	t.params = make([]reflection.Parameter, len(declared))
	for i, p := range declared {
		t.params[i] = reflection.Parameter{Name: p.Name, Type: t.shape(p.Type, own)}
	}
	t.returns = t.shape(t.member.ReturnType(), own)
}

func (t *ExecutableToken) withBoundSet(bs *inference.BoundSet) *ExecutableToken {
	out := *t
	out.bounds = bs
	out.derive()
	return &out
}

// Member returns the reflected member.
func (t *ExecutableToken) Member() reflection.Executable { return t.member }

// Name returns the member name.
func (t *ExecutableToken) Name() string { return t.member.Name() }

// DeclaringClass returns the class declaring the member.
func (t *ExecutableToken) DeclaringClass() *reflection.Class { return t.member.DeclaringClass() }

// Parameters returns the parameters with their types in this context.
func (t *ExecutableToken) Parameters() []reflection.Parameter {
	return append([]reflection.Parameter{}, t.params...)
}

// ParameterTypes returns the parameter types in this context.
func (t *ExecutableToken) ParameterTypes() []typesystem.Type {
	out := make([]typesystem.Type, len(t.params))
	for i, p := range t.params {
		out[i] = p.Type
	}
	return out
}

// ReturnType returns the return type in this context. For constructors
// this is the type of the created instance.
func (t *ExecutableToken) ReturnType() typesystem.Type { return t.returns }

// TypeParameters returns the member's own type parameters.
func (t *ExecutableToken) TypeParameters() []typesystem.TypeParamDecl {
	return t.member.TypeParameters()
}

// TypeArguments returns the current arguments for the member's own type
// parameters, index-aligned with TypeParameters. It is nil for raw tokens.
func (t *ExecutableToken) TypeArguments() []typesystem.Type {
	if t.typeArgs == nil {
		return nil
	}
	out := make([]typesystem.Type, len(t.typeArgs))
	for i, a := range t.typeArgs {
		out[i] = t.bounds.Resolve(a)
	}
	return out
}

// IsGeneric reports whether the token has type parameters of its own.
func (t *ExecutableToken) IsGeneric() bool {
	return t.rawness != raw && len(t.member.TypeParameters()) > 0
}

// IsVariableArity reports whether the token is configured for variable
// arity invocation.
func (t *ExecutableToken) IsVariableArity() bool { return t.varArity }

// IsConstructor reports whether the token is over a constructor.
func (t *ExecutableToken) IsConstructor() bool {
	_, ok := t.member.(*reflection.Constructor)
	return ok
}

// IsProper reports whether no type of the token mentions an inference variable.
func (t *ExecutableToken) IsProper() bool {
	types := append(t.ParameterTypes(), t.returns, t.ReceiverType())
	for _, typ := range types {
		if t.bounds.ContainsInferenceVariable(typ) {
			return false
		}
	}
	return true
}

// WithBounds merges additional bounds into the token's bound set.
func (t *ExecutableToken) WithBounds(bounds *inference.BoundSet) (*ExecutableToken, error) {
	bs, err := t.bounds.WithBounds(bounds)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t, err)
	}
	return t.withBoundSet(bs), nil
}

// WithTypeArguments binds the member's own type parameters positionally.
func (t *ExecutableToken) WithTypeArguments(args ...typesystem.Type) (*ExecutableToken, error) {
	if t.rawness == raw {
		return nil, &RawTypeError{Token: t.String()}
	}
	decls := t.member.TypeParameters()
	if len(args) != len(decls) {
		return nil, &ArityError{Token: t.String(), What: "type arguments", Expected: len(decls), Actual: len(args)}
	}
	bs := t.bounds
	for i, arg := range args {
		if !typesystem.IsReference(arg) {
			return nil, fmt.Errorf("%s: type argument %s is not a reference type", t, arg)
		}
		var err error
		if bs, err = bs.Reduce(inference.ConstraintEquality, t.typeArgs[i], arg); err != nil {
			return nil, fmt.Errorf("%s: type argument %d: %w", t, i, err)
		}
	}
	return t.withBoundSet(bs), nil
}

// WithReceiverType narrows the receiver to receiver, which must be a
// subtype of the current receiver type.
func (t *ExecutableToken) WithReceiverType(receiver typesystem.Type) (*ExecutableToken, error) {
	if t.member.IsStatic() {
		return nil, fmt.Errorf("%s: %w", t, ErrStaticReceiver)
	}
	if t.IsConstructor() {
		// The created class is fixed; only its arguments can be constrained.
		bs, err := t.bounds.Reduce(inference.ConstraintSubtype, receiver, t.receiver)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t, err)
		}
		return t.withBoundSet(bs), nil
	}
	mt, widened, err := t.rebind(t.member.DeclaringClass().Decl(), receiver)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t, err)
	}
	out := *t
	out.memberToken = mt
	if widened {
		if err := out.instantiateOwn(); err != nil {
			return nil, fmt.Errorf("%s: %w", t, err)
		}
	}
	out.derive()
	return &out, nil
}

// WithTargetType constrains the result to be usable where target is expected.
func (t *ExecutableToken) WithTargetType(target typesystem.Type) (*ExecutableToken, error) {
	if typesystem.Equal(t.returns, typesystem.Void) {
		return nil, fmt.Errorf("%s: %w", t, ErrVoidResult)
	}
	bs, err := t.bounds.Reduce(inference.ConstraintLooseCompatibility, t.returns, target)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t, err)
	}
	return t.withBoundSet(bs), nil
}

// WithStrictApplicability constrains each parameter by the corresponding
// argument type without boxing or unboxing.
func (t *ExecutableToken) WithStrictApplicability(argTypes ...typesystem.Type) (*ExecutableToken, error) {
	return t.fixedArity(inference.ConstraintSubtype, argTypes)
}

// WithLooseApplicability constrains each parameter by the corresponding
// argument type, allowing boxing and unboxing.
func (t *ExecutableToken) WithLooseApplicability(argTypes ...typesystem.Type) (*ExecutableToken, error) {
	return t.fixedArity(inference.ConstraintLooseCompatibility, argTypes)
}

func (t *ExecutableToken) fixedArity(kind inference.ConstraintKind, argTypes []typesystem.Type) (*ExecutableToken, error) {
	if len(argTypes) != len(t.params) {
		return nil, &ArityError{Token: t.String(), What: "arguments", Expected: len(t.params), Actual: len(argTypes)}
	}
	bs := t.bounds
	for i, arg := range argTypes {
		var err error
		if bs, err = bs.Reduce(kind, arg, t.params[i].Type); err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
	}
	out := t.withBoundSet(bs)
	out.varArity = false
	return out, nil
}

// WithVariableArityApplicability treats the last parameter as a sequence of
// elements and constrains the trailing arguments by its element type.
func (t *ExecutableToken) WithVariableArityApplicability(argTypes ...typesystem.Type) (*ExecutableToken, error) {
	if !t.member.IsVarArgs() {
		return nil, fmt.Errorf("%s: %w", t, ErrNotVariableArity)
	}
	n := len(t.params)
	if len(argTypes) < n-1 {
		return nil, &ArityError{Token: t.String(), What: "arguments", Expected: n - 1, Actual: len(argTypes), AtLeast: true}
	}
	bs := t.bounds
	for i, arg := range argTypes {
		var err error
		if bs, err = bs.Reduce(inference.ConstraintLooseCompatibility, arg, t.parameterTypeAt(i, true)); err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
	}
	out := t.withBoundSet(bs)
	out.varArity = true
	return out, nil
}

// parameterTypeAt returns the type an argument at index i is passed as.
func (t *ExecutableToken) parameterTypeAt(i int, varArity bool) typesystem.Type {
	n := len(t.params)
	if varArity && i >= n-1 {
		if arr, ok := t.params[n-1].Type.(typesystem.TArray); ok {
			return arr.Elem
		}
	}
	return t.params[i].Type
}

// Infer instantiates every remaining inference variable and returns a
// token whose types are fully concrete.
func (t *ExecutableToken) Infer() (*ExecutableToken, error) {
	subst, err := t.bounds.Infer()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t, err)
	}
	out := *t
	out.memberToken = t.memberToken.applied(subst)
	if t.typeArgs != nil {
		out.typeArgs = typesystem.ApplyAll(t.typeArgs, subst)
	}
	out.derive()
	return &out, nil
}

// Invoke calls the member. Compatibility of the arguments is not checked.
// In variable arity mode the trailing arguments are passed as one slice.
func (t *ExecutableToken) Invoke(receiver any, args ...any) (any, error) {
	n := len(t.params)
	values := args
	if t.varArity {
		if len(args) < n-1 {
			return nil, &ArityError{Token: t.String(), What: "arguments", Expected: n - 1, Actual: len(args), AtLeast: true}
		}
		values = make([]any, 0, n)
		values = append(values, args[:n-1]...)
		values = append(values, append([]any{}, args[n-1:]...))
	} else if len(args) != n {
		return nil, &ArityError{Token: t.String(), What: "arguments", Expected: n, Actual: len(args)}
	}
	if receiver == nil && !t.member.IsStatic() && !t.IsConstructor() {
		return nil, &InvocationError{Token: t.String(), Err: ErrNilReceiver}
	}
	res, err := t.invoker(receiver, values)
	if err != nil {
		return nil, &InvocationError{Token: t.String(), Err: err}
	}
	return res, nil
}

// InvokeSafely checks that every argument's type is loosely compatible
// with its parameter type before invoking.
func (t *ExecutableToken) InvokeSafely(receiver any, args ...TypedValue) (any, error) {
	n := len(t.params)
	if t.varArity && len(args) < n-1 {
		return nil, &ArityError{Token: t.String(), What: "arguments", Expected: n - 1, Actual: len(args), AtLeast: true}
	}
	if !t.varArity && len(args) != n {
		return nil, &ArityError{Token: t.String(), What: "arguments", Expected: n, Actual: len(args)}
	}
	values := make([]any, len(args))
	for i, arg := range args {
		actual := arg.Type
		if actual == nil {
			actual = typesystem.TNull{}
		}
		expected := t.parameterTypeAt(i, t.varArity)
		if !t.compatible(actual, expected) {
			return nil, &UnsafeArgumentError{Index: i, Actual: actual, Expected: expected}
		}
		values[i] = arg.Value
	}
	return t.Invoke(receiver, values...)
}

func (t *ExecutableToken) compatible(actual, expected typesystem.Type) bool {
	if !t.bounds.ContainsInferenceVariable(expected) {
		return t.table.IsAssignable(actual, expected)
	}
	_, err := t.bounds.Reduce(inference.ConstraintLooseCompatibility, actual, expected)
	return err == nil
}

func (t *ExecutableToken) String() string {
	var sb strings.Builder
	if t.IsConstructor() {
		sb.WriteString("new ")
		sb.WriteString(t.ReceiverType().String())
	} else {
		sb.WriteString(t.returns.String())
		sb.WriteString(" ")
		sb.WriteString(t.ReceiverType().String())
		sb.WriteString(".")
		sb.WriteString(t.member.Name())
	}
	if args := t.TypeArguments(); len(args) > 0 {
		sb.WriteString("<")
		sb.WriteString(typesystem.Strings(args))
		sb.WriteString(">")
	}
	sb.WriteString("(")
	sb.WriteString(reflection.FormatParameters(t.params, t.member.IsVarArgs()))
	sb.WriteString(")")
	return sb.String()
}
