package token

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/funvibe/typetoken/internal/config"
	"github.com/funvibe/typetoken/internal/inference"
	"github.com/funvibe/typetoken/internal/reflection"
	"github.com/funvibe/typetoken/internal/typesystem"
)

var (
	tObject  = typesystem.Object
	tString  = typesystem.TCon{Name: config.StringClassName}
	tInteger = typesystem.TCon{Name: config.IntegerClassName}
	tNumber  = typesystem.TCon{Name: config.NumberClassName}
	tShort   = typesystem.TCon{Name: config.ShortClassName}
	tCharSeq = typesystem.TCon{Name: config.CharSequenceClassName}
	tBox     = typesystem.TCon{Name: "Box"}
	boxOf    = func(t typesystem.Type) typesystem.Type { return typesystem.Class("Box", t) }
)

var errBoom = errors.New("boom")

type box struct {
	Value any
}

func params(types ...typesystem.Type) []reflection.Parameter {
	out := make([]reflection.Parameter, len(types))
	for i, t := range types {
		out[i] = reflection.Parameter{Type: t}
	}
	return out
}

// fixture declares the classes the tests resolve against.
func fixture(t *testing.T) *reflection.Universe {
	t.Helper()
	u := reflection.NewUniverse()
	check := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("fixture: %v", err)
		}
	}
	define := func(decl *typesystem.ClassDecl) *reflection.Class {
		t.Helper()
		c, err := u.Define(decl)
		check(err)
		return c
	}
	method := func(c *reflection.Class, spec reflection.MethodSpec) {
		t.Helper()
		_, err := c.AddMethod(spec)
		check(err)
	}
	static := func(c *reflection.Class, name string, ret typesystem.Type, impl any, ps ...typesystem.Type) {
		t.Helper()
		method(c, reflection.MethodSpec{Name: name, Static: true, Returns: ret, Impl: impl, Params: params(ps...)})
	}
	varargs := func(c *reflection.Class, name string, ret typesystem.Type, impl any, ps ...typesystem.Type) {
		t.Helper()
		method(c, reflection.MethodSpec{Name: name, Static: true, VarArgs: true, Returns: ret, Impl: impl, Params: params(ps...)})
	}
	array := typesystem.ArrayOf

	calls := define(&typesystem.ClassDecl{Name: "Calls", Super: tObject})
	static(calls, "f", tString, func(any) string { return "number" }, tNumber)
	static(calls, "f", tString, func(any) string { return "integer" }, tInteger)
	static(calls, "g", typesystem.Void, nil, tString)
	static(calls, "g", typesystem.Void, nil, tInteger)
	varargs(calls, "h", typesystem.Int, func(_ string, rest ...any) int { return len(rest) }, tString, array(tObject))
	static(calls, "k", tString, func(int) string { return "int" }, typesystem.Int)
	static(calls, "k", tString, func(int64) string { return "long" }, typesystem.Long)
	static(calls, "k", tString, func(any) string { return "Integer" }, tInteger)
	varargs(calls, "v", tString, func(...any) string { return "objects" }, array(tObject))
	varargs(calls, "v", tString, func(...string) string { return "strings" }, array(tString))
	static(calls, "p", tString, func(any) string { return "fixed" }, tObject)
	varargs(calls, "p", tString, func(...any) string { return "varargs" }, array(tObject))
	static(calls, "amb", typesystem.Void, nil, tObject, tString)
	static(calls, "amb", typesystem.Void, nil, tString, tObject)
	static(calls, "fail", tString, func() (string, error) { return "", errBoom })
	method(calls, reflection.MethodSpec{
		Name:       "identity",
		Static:     true,
		TypeParams: []typesystem.TypeParamDecl{{Name: "T"}},
		Params:     params(reflection.Param("T")),
		Returns:    reflection.Param("T"),
		Impl:       func(v any) any { return v },
	})
	method(calls, reflection.MethodSpec{
		Name:   "max",
		Static: true,
		TypeParams: []typesystem.TypeParamDecl{{
			Name:   "T",
			Bounds: []typesystem.Type{typesystem.Class(config.ComparableClassName, reflection.Param("T"))},
		}},
		Params:  params(reflection.Param("T"), reflection.Param("T")),
		Returns: reflection.Param("T"),
		Impl:    func(a, b int) int { return max(a, b) },
	})

	boxClass := define(&typesystem.ClassDecl{
		Name:       "Box",
		Super:      tObject,
		TypeParams: []typesystem.TypeParamDecl{{Name: "T"}},
	})
	_, err := boxClass.AddConstructor(reflection.ConstructorSpec{
		Params: params(reflection.Param("T")),
		Impl:   func(v any) *box { return &box{Value: v} },
	})
	check(err)
	method(boxClass, reflection.MethodSpec{Name: "get", Returns: reflection.Param("T"), Impl: func(b *box) any { return b.Value }})
	method(boxClass, reflection.MethodSpec{Name: "set", Params: params(reflection.Param("T")), Impl: func(b *box, v any) { b.Value = v }})
	method(boxClass, reflection.MethodSpec{
		Name:       "map",
		TypeParams: []typesystem.TypeParamDecl{{Name: "R"}},
		Params:     params(reflection.Param("R")),
		Returns:    boxOf(reflection.Param("R")),
		Impl:       func(_ *box, r any) *box { return &box{Value: r} },
	})
	_, err = boxClass.AddField(reflection.FieldSpec{Name: "value", Type: reflection.Param("T")})
	check(err)

	define(&typesystem.ClassDecl{Name: "IntBox", Super: boxOf(tInteger)})

	animal := define(&typesystem.ClassDecl{Name: "Animal", Super: tObject})
	dog := define(&typesystem.ClassDecl{Name: "Dog", Super: typesystem.TCon{Name: "Animal"}})
	method(animal, reflection.MethodSpec{Name: "self", Returns: animal.Type(), Impl: func(a any) any { return "animal" }})
	method(dog, reflection.MethodSpec{Name: "self", Returns: dog.Type(), Impl: func(d any) any { return "dog" }})
	return u
}

func staticQuery(t *testing.T, u *reflection.Universe, name string) *Query {
	t.Helper()
	q, err := StaticMethodsOf(u, "Calls")
	if err != nil {
		t.Fatalf("StaticMethodsOf: %v", err)
	}
	q = q.Named(name)
	if q.Len() == 0 {
		t.Fatalf("no candidates named %s", name)
	}
	return q
}

func boxMember(t *testing.T, u *reflection.Universe, name string) *reflection.Method {
	t.Helper()
	c, _ := u.Class("Box")
	for _, m := range c.Methods() {
		if m.Name() == name {
			return m
		}
	}
	t.Fatalf("Box has no method %s", name)
	return nil
}

func assertParams(t *testing.T, tok *ExecutableToken, want ...typesystem.Type) {
	t.Helper()
	got := tok.ParameterTypes()
	if !typesystem.EqualAll(got, want) {
		t.Errorf("parameters of %s = (%s), want (%s)", tok, typesystem.Strings(got), typesystem.Strings(want))
	}
}

func TestResolveMostSpecific(t *testing.T) {
	u := fixture(t)
	tok, err := staticQuery(t, u, "f").ResolveOverload(tInteger)
	if err != nil {
		t.Fatalf("ResolveOverload: %v", err)
	}
	assertParams(t, tok, tInteger)
	res, err := tok.Invoke(nil, 42)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if res != "integer" {
		t.Errorf("got %v, want integer", res)
	}

	tok, err = staticQuery(t, u, "f").ResolveOverload(tNumber)
	if err != nil {
		t.Fatalf("ResolveOverload(Number): %v", err)
	}
	assertParams(t, tok, tNumber)
}

func TestResolvePrimitiveOverloads(t *testing.T) {
	u := fixture(t)
	tests := []struct {
		name string
		arg  typesystem.Type
		want typesystem.Type
	}{
		{"exact primitive", typesystem.Int, typesystem.Int},
		{"widening over boxing", typesystem.Short, typesystem.Int},
		{"exact wrapper", tInteger, tInteger},
		{"unboxing when nothing is strict", tShort, typesystem.Int},
		{"widened long", typesystem.Long, typesystem.Long},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := staticQuery(t, u, "k").ResolveOverload(tt.arg)
			if err != nil {
				t.Fatalf("ResolveOverload(%s): %v", tt.arg, err)
			}
			assertParams(t, tok, tt.want)
		})
	}
}

func TestResolveVariableArity(t *testing.T) {
	u := fixture(t)
	tok, err := staticQuery(t, u, "h").ResolveOverload(tString, tInteger, tInteger)
	if err != nil {
		t.Fatalf("ResolveOverload: %v", err)
	}
	if !tok.IsVariableArity() {
		t.Errorf("expected a variable arity token, got %s", tok)
	}
	if len(tok.ParameterTypes()) != tok.Member().ParameterCount() {
		t.Errorf("parameter count changed: %s", tok)
	}
	res, err := tok.Invoke(nil, "a", 1, 2)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if res != 2 {
		t.Errorf("got %v trailing arguments, want 2", res)
	}
	res, err = tok.InvokeSafely(nil,
		TypedValue{Value: "a", Type: tString},
		TypedValue{Value: 1, Type: tInteger},
		TypedValue{Value: 2, Type: tInteger},
		TypedValue{Value: 3, Type: tInteger},
	)
	if err != nil || res != 3 {
		t.Errorf("InvokeSafely = %v, %v, want 3", res, err)
	}

	// The fixed prefix alone is enough.
	if _, err := staticQuery(t, u, "h").ResolveOverload(tString); err != nil {
		t.Errorf("ResolveOverload(String): %v", err)
	}

	tok, err = staticQuery(t, u, "v").ResolveOverload(tString, tString)
	if err != nil {
		t.Fatalf("ResolveOverload(v): %v", err)
	}
	if res, _ := tok.Invoke(nil, "a", "b"); res != "strings" {
		t.Errorf("v(String, String) selected %s", tok)
	}
}

func TestStrictBeforeVariableArity(t *testing.T) {
	u := fixture(t)
	tok, err := staticQuery(t, u, "p").ResolveOverload(tString)
	if err != nil {
		t.Fatalf("ResolveOverload: %v", err)
	}
	if tok.IsVariableArity() || tok.Member().IsVarArgs() {
		t.Errorf("selected %s, want the fixed arity overload", tok)
	}
	if res, _ := tok.Invoke(nil, "x"); res != "fixed" {
		t.Errorf("got %v, want fixed", res)
	}
}

func TestNoApplicableCandidate(t *testing.T) {
	u := fixture(t)
	_, err := staticQuery(t, u, "g").ResolveOverload(tObject)
	var na *NoApplicableError
	if !errors.As(err, &na) {
		t.Fatalf("expected NoApplicableError, got %v", err)
	}
	if len(na.Candidates) != 2 || len(na.Causes) != 2 {
		t.Errorf("got %d candidates and %d causes, want 2 and 2", len(na.Candidates), len(na.Causes))
	}
	msg := err.Error()
	if !strings.Contains(msg, "g(String)") || !strings.Contains(msg, "g(Integer)") {
		t.Errorf("error should name both candidates: %s", msg)
	}
	var ce *inference.ConstraintError
	if !errors.As(err, &ce) {
		t.Errorf("causes should include the failed constraint")
	}

	_, err = staticQuery(t, u, "f").ResolveOverload(tString, tString)
	var arity *ArityError
	if !errors.As(err, &arity) {
		t.Errorf("expected an arity cause, got %v", err)
	}
}

func TestGenericIdentityWithTarget(t *testing.T) {
	u := fixture(t)
	tok, err := staticQuery(t, u, "identity").ResolveOverload(tString)
	if err != nil {
		t.Fatalf("ResolveOverload: %v", err)
	}
	tok, err = tok.WithTargetType(tCharSeq)
	if err != nil {
		t.Fatalf("WithTargetType: %v", err)
	}
	tok, err = tok.Infer()
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if !typesystem.Equal(tok.ReturnType(), tString) {
		t.Errorf("return type = %s, want String", tok.ReturnType())
	}
	if args := tok.TypeArguments(); len(args) != 1 || !typesystem.Equal(args[0], tString) {
		t.Errorf("type arguments = %v, want [String]", args)
	}
	if !tok.IsProper() {
		t.Errorf("inferred token %s still mentions inference variables", tok)
	}
	if got := tok.String(); got != "String Calls.identity<String>(String)" {
		t.Errorf("String() = %s", got)
	}

	// The target cannot be narrower than the argument.
	tok, _ = staticQuery(t, u, "identity").ResolveOverload(tCharSeq)
	if _, err := tok.WithTargetType(tString); err == nil {
		t.Errorf("CharSequence result should not be usable as String")
	}
}

func TestGenericBoundedInference(t *testing.T) {
	u := fixture(t)
	tok, err := staticQuery(t, u, "max").ResolveOverload(typesystem.Int, typesystem.Int)
	if err != nil {
		t.Fatalf("ResolveOverload: %v", err)
	}
	tok, err = tok.Infer()
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if !typesystem.Equal(tok.ReturnType(), tInteger) {
		t.Errorf("return type = %s, want Integer", tok.ReturnType())
	}
	res, err := tok.Invoke(nil, 3, 7)
	if err != nil || res != 7 {
		t.Errorf("Invoke = %v, %v", res, err)
	}

	if _, err := staticQuery(t, u, "max").ResolveOverload(tObject, tObject); err == nil {
		t.Errorf("Object does not satisfy T extends Comparable<T>")
	}
}

func TestWithTypeArguments(t *testing.T) {
	u := fixture(t)
	identity := staticQuery(t, u, "identity").Candidates()[0]
	if _, err := identity.WithTypeArguments(); err == nil {
		t.Errorf("expected arity error")
	} else {
		var arity *ArityError
		if !errors.As(err, &arity) || arity.Expected != 1 || arity.Actual != 0 {
			t.Errorf("expected ArityError{1, 0}, got %v", err)
		}
	}
	tok, err := identity.WithTypeArguments(tString)
	if err != nil {
		t.Fatalf("WithTypeArguments: %v", err)
	}
	assertParams(t, tok, tString)
	if _, err := tok.WithLooseApplicability(tInteger); err == nil {
		t.Errorf("identity<String> should not accept Integer")
	}
	if _, err := identity.WithTypeArguments(typesystem.Int); err == nil {
		t.Errorf("primitive type argument accepted")
	}

	maxTok := staticQuery(t, u, "max").Candidates()[0]
	if _, err := maxTok.WithTypeArguments(tObject); err == nil {
		t.Errorf("Object violates the declared bound")
	}
	tok, err = maxTok.WithTypeArguments(tInteger)
	if err != nil {
		t.Fatalf("WithTypeArguments(Integer): %v", err)
	}
	assertParams(t, tok, tInteger, tInteger)
}

func TestRawTypeViolation(t *testing.T) {
	u := fixture(t)
	tok, err := OverMethod(boxMember(t, u, "map"), tBox)
	if err != nil {
		t.Fatalf("OverMethod: %v", err)
	}
	if !tok.IsRaw() || tok.IsGeneric() {
		t.Errorf("token over a raw receiver should be raw: %s", tok)
	}
	// The generic signature is erased.
	assertParams(t, tok, tObject)
	if !typesystem.Equal(tok.ReturnType(), tBox) {
		t.Errorf("return type = %s, want raw Box", tok.ReturnType())
	}
	_, err = tok.WithTypeArguments(tString)
	var rawErr *RawTypeError
	if !errors.As(err, &rawErr) {
		t.Fatalf("expected RawTypeError, got %v", err)
	}
	// Even an empty argument list is a parameterization attempt.
	if _, err := tok.WithTypeArguments(); !errors.As(err, &rawErr) {
		t.Errorf("expected RawTypeError for empty arguments, got %v", err)
	}
}

func TestContainerArguments(t *testing.T) {
	u := fixture(t)
	get := boxMember(t, u, "get")

	tok, err := OverMethod(get, boxOf(tString))
	if err != nil {
		t.Fatalf("OverMethod: %v", err)
	}
	if !typesystem.Equal(tok.ReturnType(), tString) {
		t.Errorf("Box<String>.get returns %s", tok.ReturnType())
	}

	tok, err = OverMethod(get, typesystem.TCon{Name: "IntBox"})
	if err != nil {
		t.Fatalf("OverMethod(IntBox): %v", err)
	}
	if !typesystem.Equal(tok.ReturnType(), tInteger) {
		t.Errorf("IntBox.get returns %s, want Integer", tok.ReturnType())
	}

	if _, err := OverMethod(get, tString); err == nil {
		t.Errorf("String is not a Box")
	}

	strBox, _ := OverMethod(get, boxOf(tString))
	if _, err := strBox.WithReceiverType(typesystem.TCon{Name: "IntBox"}); err == nil {
		t.Errorf("IntBox is not a Box<String>")
	}

	rawTok, _ := OverMethod(get, tBox)
	narrowed, err := rawTok.WithReceiverType(boxOf(tString))
	if err != nil {
		t.Fatalf("WithReceiverType: %v", err)
	}
	if narrowed.IsRaw() || !typesystem.Equal(narrowed.ReturnType(), tString) {
		t.Errorf("narrowed token = %s", narrowed)
	}
	if !rawTok.IsRaw() {
		t.Errorf("WithReceiverType modified its receiver")
	}
}

func TestDiamondConstructor(t *testing.T) {
	u := fixture(t)
	q, err := ConstructorsOf(u, tBox)
	if err != nil {
		t.Fatalf("ConstructorsOf: %v", err)
	}
	tok, err := q.ResolveOverload(tString)
	if err != nil {
		t.Fatalf("ResolveOverload: %v", err)
	}
	tok, err = tok.Infer()
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if !typesystem.Equal(tok.ReturnType(), boxOf(tString)) {
		t.Errorf("constructed type = %s, want Box<String>", tok.ReturnType())
	}
	res, err := tok.Invoke(nil, "v")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if b := res.(*box); b.Value != "v" {
		t.Errorf("got %+v", b)
	}

	q, _ = ConstructorsOf(u, boxOf(tInteger))
	if _, err := q.ResolveOverload(tString); err == nil {
		t.Errorf("new Box<Integer>(String) should not resolve")
	}

	// A constructor receiver can only constrain the class arguments.
	diamond := q.Candidates()[0]
	if _, err := diamond.WithReceiverType(boxOf(tString)); err == nil {
		t.Errorf("Box<Integer> constructor accepted Box<String> receiver")
	}
}

func TestArityInvariant(t *testing.T) {
	u := fixture(t)
	base := staticQuery(t, u, "h").Candidates()[0]
	derived := []*ExecutableToken{base}
	if tok, err := base.WithVariableArityApplicability(tString, tInteger, tInteger, tInteger); err == nil {
		derived = append(derived, tok)
	}
	if tok, err := base.WithLooseApplicability(tString, typesystem.ArrayOf(tObject)); err == nil {
		derived = append(derived, tok)
	}
	if tok, err := base.Infer(); err == nil {
		derived = append(derived, tok)
	}
	if len(derived) != 4 {
		t.Fatalf("expected every derivation to succeed, got %d tokens", len(derived))
	}
	for _, tok := range derived {
		if len(tok.Parameters()) != tok.Member().ParameterCount() {
			t.Errorf("%s has %d parameters, member declares %d", tok, len(tok.Parameters()), tok.Member().ParameterCount())
		}
	}

	if _, err := base.WithStrictApplicability(tString); err == nil {
		t.Errorf("strict applicability must not use variable arity")
	}
	if _, err := staticQuery(t, u, "f").Candidates()[0].WithVariableArityApplicability(tInteger); !errors.Is(err, ErrNotVariableArity) {
		t.Errorf("expected ErrNotVariableArity, got %v", err)
	}
}

func TestMonotonicBounds(t *testing.T) {
	u := fixture(t)
	base := staticQuery(t, u, "identity").Candidates()[0]
	t1, err := base.WithLooseApplicability(tString)
	if err != nil {
		t.Fatalf("WithLooseApplicability: %v", err)
	}
	t2, err := t1.WithTargetType(tCharSeq)
	if err != nil {
		t.Fatalf("WithTargetType: %v", err)
	}
	chain := []*ExecutableToken{base, t1, t2}
	for i := 1; i < len(chain); i++ {
		for _, b := range chain[i-1].Bounds().Bounds() {
			if !chain[i].Bounds().Contains(b) {
				t.Errorf("derivation %d dropped bound %s", i, b)
			}
		}
	}
	if len(base.Bounds().Bounds()) >= len(t2.Bounds().Bounds()) {
		t.Errorf("derivations should add bounds")
	}
	if !typesystem.Equal(base.ParameterTypes()[0], base.TypeArguments()[0]) {
		t.Errorf("base token was modified: %s", base)
	}
}

func TestWithBoundsLineage(t *testing.T) {
	u := fixture(t)
	base := staticQuery(t, u, "identity").Candidates()[0]
	derived, err := base.WithLooseApplicability(tString)
	if err != nil {
		t.Fatalf("WithLooseApplicability: %v", err)
	}
	merged, err := base.WithBounds(derived.Bounds())
	if err != nil {
		t.Fatalf("WithBounds(derived): %v", err)
	}
	for _, b := range derived.Bounds().Bounds() {
		if !merged.Bounds().Contains(b) {
			t.Errorf("merge dropped bound %s", b)
		}
	}

	unrelated, err := staticQuery(t, u, "identity").Candidates()[0].WithLooseApplicability(tInteger)
	if err != nil {
		t.Fatalf("WithLooseApplicability: %v", err)
	}
	if _, err := base.WithBounds(unrelated.Bounds()); !errors.Is(err, inference.ErrForeignBounds) {
		t.Errorf("WithBounds(unrelated) = %v, want ErrForeignBounds", err)
	}
}

func TestResolutionDeterminism(t *testing.T) {
	u := fixture(t)
	for _, name := range []string{"f", "k", "h", "identity", "g", "amb"} {
		q := staticQuery(t, u, name)
		args := []typesystem.Type{tInteger}
		if name == "amb" {
			args = []typesystem.Type{tString, tString}
		}
		first, err1 := q.ResolveOverload(args...)
		second, err2 := q.ResolveOverload(args...)
		if (err1 == nil) != (err2 == nil) {
			t.Fatalf("%s: results differ: %v vs %v", name, err1, err2)
		}
		if err1 != nil {
			if err1.Error() != err2.Error() {
				t.Errorf("%s: errors differ: %v vs %v", name, err1, err2)
			}
			continue
		}
		if first.Member() != second.Member() {
			t.Errorf("%s: selected %s then %s", name, first, second)
		}
	}
}

func TestAmbiguitySymmetry(t *testing.T) {
	u := fixture(t)
	q := staticQuery(t, u, "amb")
	_, err := q.ResolveOverload(tString, tString)
	var amb *AmbiguityError
	if !errors.As(err, &amb) {
		t.Fatalf("expected AmbiguityError, got %v", err)
	}
	pair := []reflection.Executable{amb.First.Member(), amb.Second.Member()}

	reversed := q.Candidates()
	slices.Reverse(reversed)
	_, err = NewQuery(reversed...).ResolveOverload(tString, tString)
	var ambRev *AmbiguityError
	if !errors.As(err, &ambRev) {
		t.Fatalf("expected AmbiguityError for reversed candidates, got %v", err)
	}
	for _, m := range []reflection.Executable{ambRev.First.Member(), ambRev.Second.Member()} {
		if !slices.Contains(pair, m) {
			t.Errorf("reversed ambiguity names %s, not in original pair", m)
		}
	}

	// Either argument being more precise settles it.
	tok, err := q.ResolveOverload(tString, tObject)
	if err != nil {
		t.Fatalf("ResolveOverload(String, Object): %v", err)
	}
	assertParams(t, tok, tString, tObject)
}

// definePair adds Pair<T> with the constructors Pair(T) and Pair(String).
func definePair(t *testing.T, u *reflection.Universe) {
	t.Helper()
	c, err := u.Define(&typesystem.ClassDecl{
		Name:       "Pair",
		Super:      tObject,
		TypeParams: []typesystem.TypeParamDecl{{Name: "T"}},
	})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	specs := []reflection.ConstructorSpec{
		{Params: params(reflection.Param("T")), Impl: func(any) string { return "T" }},
		{Params: params(tString), Impl: func(any) string { return "String" }},
	}
	for _, spec := range specs {
		if _, err := c.AddConstructor(spec); err != nil {
			t.Fatalf("AddConstructor: %v", err)
		}
	}
}

func TestSameClassAmbiguity(t *testing.T) {
	u := fixture(t)
	definePair(t, u)
	q, err := ConstructorsOf(u, typesystem.Class("Pair", tString))
	if err != nil {
		t.Fatalf("ConstructorsOf: %v", err)
	}
	reversed := q.Candidates()
	slices.Reverse(reversed)

	tests := []struct {
		name  string
		query *Query
	}{
		{"declaration order", q},
		{"reversed", NewQuery(reversed...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.query.ResolveOverload(tString)
			var amb *AmbiguityError
			if !errors.As(err, &amb) {
				t.Fatalf("expected AmbiguityError, got %v", err)
			}
		})
	}
}

func TestDiamondConstructorOverloads(t *testing.T) {
	u := fixture(t)
	definePair(t, u)
	q, err := ConstructorsOf(u, typesystem.TCon{Name: "Pair"})
	if err != nil {
		t.Fatalf("ConstructorsOf: %v", err)
	}
	reversed := q.Candidates()
	slices.Reverse(reversed)

	tests := []struct {
		name  string
		query *Query
		arg   typesystem.Type
		want  string
	}{
		{"String", q, tString, "String"},
		{"String reversed", NewQuery(reversed...), tString, "String"},
		{"Integer", q, tInteger, "T"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := tt.query.ResolveOverload(tt.arg)
			if err != nil {
				t.Fatalf("ResolveOverload: %v", err)
			}
			tok, err = tok.Infer()
			if err != nil {
				t.Fatalf("Infer: %v", err)
			}
			if !typesystem.Equal(tok.ReturnType(), typesystem.Class("Pair", tt.arg)) {
				t.Errorf("constructed type = %s, want Pair<%s>", tok.ReturnType(), tt.arg)
			}
			res, err := tok.Invoke(nil, "x")
			if err != nil {
				t.Fatalf("Invoke: %v", err)
			}
			if res != tt.want {
				t.Errorf("called Pair(%s) overload, want Pair(%s)", res, tt.want)
			}
		})
	}
}

func TestCovariantOverride(t *testing.T) {
	u := fixture(t)
	q, err := MethodsOf(u, typesystem.TCon{Name: "Dog"})
	if err != nil {
		t.Fatalf("MethodsOf: %v", err)
	}
	q = q.Named("self")
	if q.Len() != 2 {
		t.Fatalf("expected the override and the overridden method, got %d", q.Len())
	}
	tok, err := q.ResolveOverload()
	if err != nil {
		t.Fatalf("ResolveOverload: %v", err)
	}
	if tok.DeclaringClass().Name() != "Dog" {
		t.Errorf("selected %s, want the Dog override", tok)
	}
	if res, _ := tok.Invoke("rex"); res != "dog" {
		t.Errorf("got %v, want dog", res)
	}
}

func TestInvokeSafely(t *testing.T) {
	u := fixture(t)
	tok, _ := staticQuery(t, u, "f").ResolveOverload(tInteger)
	_, err := tok.InvokeSafely(nil, TypedValue{Value: "x", Type: tString})
	var unsafe *UnsafeArgumentError
	if !errors.As(err, &unsafe) {
		t.Fatalf("expected UnsafeArgumentError, got %v", err)
	}
	if unsafe.Index != 0 || !typesystem.Equal(unsafe.Actual, tString) || !typesystem.Equal(unsafe.Expected, tInteger) {
		t.Errorf("got %+v", unsafe)
	}
	if res, err := tok.InvokeSafely(nil, TypedValue{Value: 1, Type: typesystem.Int}); err != nil || res != "integer" {
		t.Errorf("boxed argument: %v, %v", res, err)
	}

	// Unresolved parameters accept anything their bounds allow.
	identity := staticQuery(t, u, "identity").Candidates()[0]
	if res, err := identity.InvokeSafely(nil, TypedValue{Value: "s", Type: tString}); err != nil || res != "s" {
		t.Errorf("identity: %v, %v", res, err)
	}
	maxTok := staticQuery(t, u, "max").Candidates()[0]
	_, err = maxTok.InvokeSafely(nil, TypedValue{Value: 1, Type: tObject}, TypedValue{Value: 2, Type: tObject})
	if !errors.As(err, &unsafe) {
		t.Errorf("Object arguments should violate T extends Comparable<T>, got %v", err)
	}

	if _, err := tok.InvokeSafely(nil); err == nil {
		t.Errorf("missing argument accepted")
	}
}

func TestInvocationFailures(t *testing.T) {
	u := fixture(t)
	tok, _ := staticQuery(t, u, "fail").ResolveOverload()
	_, err := tok.Invoke(nil)
	var inv *InvocationError
	if !errors.As(err, &inv) || !errors.Is(err, errBoom) {
		t.Errorf("expected InvocationError wrapping boom, got %v", err)
	}

	get, _ := OverMethod(boxMember(t, u, "get"), boxOf(tString))
	if _, err := get.Invoke(nil); !errors.Is(err, ErrNilReceiver) {
		t.Errorf("expected ErrNilReceiver, got %v", err)
	}
	if res, err := get.Invoke(&box{Value: "in"}); err != nil || res != "in" {
		t.Errorf("get = %v, %v", res, err)
	}
	if _, err := get.Invoke(&box{}, "extra"); err == nil {
		t.Errorf("extra argument accepted")
	}

	set, _ := OverMethod(boxMember(t, u, "set"), boxOf(tString))
	if _, err := set.WithTargetType(tObject); !errors.Is(err, ErrVoidResult) {
		t.Errorf("expected ErrVoidResult, got %v", err)
	}
}

func TestFieldToken(t *testing.T) {
	u := fixture(t)
	c, _ := u.Class("Box")
	field, _ := c.Field("value")

	tok, err := OverField(field, boxOf(tString))
	if err != nil {
		t.Fatalf("OverField: %v", err)
	}
	if !typesystem.Equal(tok.Type(), tString) {
		t.Errorf("Box<String>.value has type %s", tok.Type())
	}
	b := &box{Value: "a"}
	if v, err := tok.Get(b); err != nil || v != "a" {
		t.Errorf("Get = %v, %v", v, err)
	}
	if err := tok.Set(b, TypedValue{Value: "b", Type: tString}); err != nil || b.Value != "b" {
		t.Errorf("Set: %v, value %v", err, b.Value)
	}
	var unsafe *UnsafeArgumentError
	if err := tok.Set(b, TypedValue{Value: 1, Type: tInteger}); !errors.As(err, &unsafe) {
		t.Errorf("expected UnsafeArgumentError, got %v", err)
	}

	rawTok, _ := OverField(field, tBox)
	if !rawTok.IsRaw() || !typesystem.Equal(rawTok.Type(), tObject) {
		t.Errorf("raw field token = %s", rawTok)
	}
	narrowed, err := rawTok.WithReceiverType(typesystem.TCon{Name: "IntBox"})
	if err != nil {
		t.Fatalf("WithReceiverType: %v", err)
	}
	if !typesystem.Equal(narrowed.Type(), tInteger) {
		t.Errorf("IntBox.value has type %s", narrowed.Type())
	}
}

func TestQueryIteration(t *testing.T) {
	u := fixture(t)
	q := staticQuery(t, u, "k")
	count := 0
	for tok := range q.All() {
		if tok.Name() != "k" {
			t.Errorf("unexpected candidate %s", tok)
		}
		count++
	}
	if count != 3 {
		t.Errorf("iterated %d candidates, want 3", count)
	}
	longOnly := q.Filter(func(tok *ExecutableToken) bool {
		return typesystem.Equal(tok.ParameterTypes()[0], typesystem.Long)
	})
	tok, err := longOnly.ResolveOverload(typesystem.Int)
	if err != nil {
		t.Fatalf("ResolveOverload: %v", err)
	}
	assertParams(t, tok, typesystem.Long)
}
