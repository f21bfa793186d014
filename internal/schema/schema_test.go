package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/typetoken/internal/config"
	"github.com/funvibe/typetoken/internal/reflection"
	"github.com/funvibe/typetoken/internal/stdhost"
	"github.com/funvibe/typetoken/internal/token"
	"github.com/funvibe/typetoken/internal/typesystem"
)

const sampleSchema = `
classes:
  - name: Shape
    interface: true
    methods:
      - name: area
        returns: double
  - name: Pair
    type_params:
      - name: A
      - name: B
    constructors:
      - params:
          - {name: first, type: A}
          - {name: second, type: B}
    fields:
      - {name: first, type: A}
      - {name: second, type: B}
      - {name: label, type: String, value: pair}
    methods:
      - name: swap
        returns: {class: Pair, args: [B, A]}
  - name: Text
    fields:
      - {name: VERSION, type: String, static: true, final: true, value: "1.0"}
      - {name: counter, type: int, static: true, value: 0}
    methods:
      - name: upper
        static: true
        params: [{name: s, type: String}]
        returns: String
        impl: strings.ToUpper
      - name: repeat
        static: true
        params: [{type: String}, {type: int}]
        returns: String
        impl: strings.Repeat
      - name: max
        static: true
        params: [{type: double}, {type: double}]
        returns: double
        impl: math.Max
      - name: pick
        static: true
        type_params:
          - name: T
            bounds: [{class: Comparable, args: [T]}]
        params: [{type: T}, {type: T}]
        returns: T
      - name: describe
        static: true
        varargs: true
        params: [{type: {array: Object}}]
        returns: String
        impl: fmt.Sprint
  - name: Names
    super: {class: ArrayList, args: [String]}
`

var (
	tString  = typesystem.TCon{Name: config.StringClassName}
	tInteger = typesystem.TCon{Name: config.IntegerClassName}
)

func loadSample(t *testing.T) *reflection.Universe {
	t.Helper()
	s, err := ParseSchema([]byte(sampleSchema), "sample.yaml")
	if err != nil {
		t.Fatalf("ParseSchema: %v", err)
	}
	u, err := stdhost.New()
	if err != nil {
		t.Fatalf("stdhost.New: %v", err)
	}
	if err := s.Apply(u); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return u
}

func resolve(t *testing.T, u *reflection.Universe, name string, args ...typesystem.Type) *token.ExecutableToken {
	t.Helper()
	q, err := token.StaticMethodsOf(u, "Text")
	if err != nil {
		t.Fatalf("StaticMethodsOf: %v", err)
	}
	tok, err := q.Named(name).ResolveOverload(args...)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return tok
}

func TestParseSchemaDefaults(t *testing.T) {
	s, err := ParseSchema([]byte(sampleSchema), "sample.yaml")
	if err != nil {
		t.Fatalf("ParseSchema: %v", err)
	}
	if len(s.Classes) != 4 {
		t.Fatalf("got %d classes, want 4", len(s.Classes))
	}
	shape, pair := s.Classes[0], s.Classes[1]
	if shape.Super != nil {
		t.Errorf("interface got super %s", shape.Super)
	}
	if pair.Super == nil || pair.Super.Name != config.ObjectClassName {
		t.Errorf("class super = %v, want Object", pair.Super)
	}
	if got := pair.Methods[0].Returns.String(); got != "Pair<B, A>" {
		t.Errorf("swap returns %s", got)
	}
	if got := s.Classes[2].Methods[4].Params[0].Type.String(); got != "Object[]" {
		t.Errorf("describe takes %s", got)
	}
}

func TestBoundImplementations(t *testing.T) {
	u := loadSample(t)

	res, err := resolve(t, u, "upper", tString).Invoke(nil, "hi")
	if err != nil || res != "HI" {
		t.Errorf("upper = %v, %v", res, err)
	}
	res, err = resolve(t, u, "repeat", tString, typesystem.Int).Invoke(nil, "ab", 2)
	if err != nil || res != "abab" {
		t.Errorf("repeat = %v, %v", res, err)
	}
	// int arguments widen to the double parameters.
	res, err = resolve(t, u, "max", typesystem.Int, typesystem.Int).Invoke(nil, 1, 2)
	if err != nil || res != 2.0 {
		t.Errorf("max = %v, %v", res, err)
	}
	res, err = resolve(t, u, "describe", tString, tInteger).Invoke(nil, "a", 1)
	if err != nil || res != "a1" {
		t.Errorf("describe = %q, %v", res, err)
	}
}

func TestUnboundMember(t *testing.T) {
	u := loadSample(t)
	tok, err := resolve(t, u, "pick", tString, tString).Infer()
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if !typesystem.Equal(tok.ReturnType(), tString) {
		t.Errorf("pick(String, String) returns %s", tok.ReturnType())
	}
	_, err = tok.Invoke(nil, "a", "b")
	if !errors.Is(err, reflection.ErrNoImplementation) {
		t.Errorf("expected ErrNoImplementation, got %v", err)
	}

	q, _ := token.StaticMethodsOf(u, "Text")
	if _, err := q.Named("pick").ResolveOverload(tString, tInteger); err == nil {
		t.Errorf("pick(String, Integer) violates T extends Comparable<T>")
	}
}

func TestGenericSchemaClass(t *testing.T) {
	u := loadSample(t)
	q, err := token.ConstructorsOf(u, typesystem.TCon{Name: "Pair"})
	if err != nil {
		t.Fatalf("ConstructorsOf: %v", err)
	}
	ctor, err := q.ResolveOverload(tString, tInteger)
	if err != nil {
		t.Fatalf("ResolveOverload: %v", err)
	}
	ctor, err = ctor.Infer()
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	pairType := typesystem.Class("Pair", tString, tInteger)
	if !typesystem.Equal(ctor.ReturnType(), pairType) {
		t.Errorf("constructed %s, want %s", ctor.ReturnType(), pairType)
	}
	res, err := ctor.Invoke(nil, "x", 1)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	obj := res.(*Object)
	if got := obj.String(); got != "Pair{first=x, label=pair, second=1}" {
		t.Errorf("object = %s", got)
	}

	methods, _ := token.MethodsOf(u, pairType)
	swap, err := methods.Named("swap").ResolveOverload()
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if want := typesystem.Class("Pair", tInteger, tString); !typesystem.Equal(swap.ReturnType(), want) {
		t.Errorf("swap returns %s, want %s", swap.ReturnType(), want)
	}

	class, _ := u.Class("Pair")
	first, _ := class.Field("first")
	ftok, err := token.OverField(first, pairType)
	if err != nil {
		t.Fatalf("OverField: %v", err)
	}
	if !typesystem.Equal(ftok.Type(), tString) {
		t.Errorf("first has type %s", ftok.Type())
	}
	if v, err := ftok.Get(obj); err != nil || v != "x" {
		t.Errorf("first = %v, %v", v, err)
	}
	if err := ftok.Set(obj, token.TypedValue{Value: "y", Type: tString}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _ := obj.Field("first"); v != "y" {
		t.Errorf("first = %v after Set", v)
	}
	if _, err := ftok.Get("not an object"); err == nil {
		t.Errorf("Get on a foreign receiver should fail")
	}
}

func TestInheritedFromBuiltin(t *testing.T) {
	u := loadSample(t)
	q, err := token.MethodsOf(u, typesystem.TCon{Name: "Names"})
	if err != nil {
		t.Fatalf("MethodsOf: %v", err)
	}
	get, err := q.Named("get").ResolveOverload(typesystem.Int)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !typesystem.Equal(get.ReturnType(), tString) {
		t.Errorf("Names.get returns %s, want String", get.ReturnType())
	}
}

func TestStaticSchemaFields(t *testing.T) {
	u := loadSample(t)
	class, _ := u.Class("Text")

	version, _ := class.Field("VERSION")
	vtok, _ := token.OverStaticField(version)
	if v, _ := vtok.Get(nil); v != "1.0" {
		t.Errorf("VERSION = %v", v)
	}
	if err := vtok.Set(nil, token.TypedValue{Value: "2.0", Type: tString}); err == nil {
		t.Errorf("final field was written")
	}

	counter, _ := class.Field("counter")
	ctok, _ := token.OverStaticField(counter)
	if err := ctok.Set(nil, token.TypedValue{Value: 3, Type: typesystem.Int}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _ := ctok.Get(nil); v != 3 {
		t.Errorf("counter = %v", v)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"empty", "classes: []", "no classes defined"},
		{"missing name", "classes: [{interface: true}]", "name is required"},
		{"duplicate class", "classes: [{name: A}, {name: A}]", "declared twice"},
		{"interface super", "classes: [{name: A, interface: true, super: Object}]", "cannot have super"},
		{"interface constructor", "classes: [{name: A, interface: true, constructors: [{}]}]", "cannot have constructors"},
		{"duplicate type param", "classes: [{name: A, type_params: [{name: T}, {name: T}]}]", "declared twice"},
		{"constructor name", "classes: [{name: A, methods: [{name: <init>}]}]", "use constructors"},
		{"varargs without array", "classes: [{name: A, methods: [{name: f, varargs: true, params: [{type: int}]}]}]", "needs an array"},
		{"duplicate field", "classes: [{name: A, fields: [{name: x, type: int}, {name: x, type: int}]}]", "field x is declared twice"},
		{"bad type", "classes: [{name: A, fields: [{name: x, type: {class: B, array: int}}]}]", "mutually exclusive"},
		{"empty type", "classes: [{name: A, fields: [{name: x, type: {}}]}]", "needs class or array"},
		{"sequence type", "classes: [{name: A, fields: [{name: x, type: [int]}]}]", "name or a mapping"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchema([]byte(tt.yaml), "test.yaml")
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown super", "classes: [{name: A, super: Missing}]", "Missing"},
		{"super arity", "classes: [{name: A, super: {class: ArrayList, args: [String, String]}}]", "needs 1 type arguments"},
		{"unknown impl", "classes: [{name: A, methods: [{name: f, static: true, impl: nope.Nope}]}]", "nope.Nope"},
		{"impl arity", "classes: [{name: A, methods: [{name: f, static: true, impl: strings.ToUpper}]}]", "implementation takes 1 arguments"},
		{"unknown member type", "classes: [{name: A, methods: [{name: f, returns: Missing}]}]", "Missing"},
		{"static uses class param", "classes: [{name: A, type_params: [{name: T}], fields: [{name: x, type: T, static: true}]}]", "class type parameter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseSchema([]byte(tt.yaml), "test.yaml")
			if err != nil {
				t.Fatalf("ParseSchema: %v", err)
			}
			err = s.Apply(reflection.NewUniverse())
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestTypeRefYAML(t *testing.T) {
	refs := []TypeRef{
		{Name: "int"},
		{Name: "List", Args: []TypeRef{{Name: "String"}}},
		{Array: &TypeRef{Name: "Map", Args: []TypeRef{{Name: "K"}, {Name: "V"}}}},
	}
	for _, ref := range refs {
		data, err := yaml.Marshal(ref)
		if err != nil {
			t.Fatalf("Marshal(%s): %v", ref, err)
		}
		var back TypeRef
		if err := yaml.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal(%s): %v", data, err)
		}
		if back.String() != ref.String() {
			t.Errorf("%s came back as %s", ref, back)
		}
	}

	got := refs[2].Resolve([]string{"V"}, "Owner")
	want := typesystem.ArrayOf(typesystem.Class("Map", typesystem.TCon{Name: "K"}, typesystem.TParam{Owner: "Owner", Name: "V"}))
	if !typesystem.Equal(got, want) {
		t.Errorf("Resolve = %s, want %s", got, want)
	}
}

func TestLoadAndFindSchema(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(root, config.SchemaFileName)
	if err := os.WriteFile(path, []byte(sampleSchema), 0o644); err != nil {
		t.Fatal(err)
	}
	found, err := FindSchema(nested)
	if err != nil {
		t.Fatalf("FindSchema: %v", err)
	}
	if found != path {
		t.Errorf("FindSchema = %s, want %s", found, path)
	}
	s, err := LoadSchema(found)
	if err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	if len(s.Classes) != 4 {
		t.Errorf("loaded %d classes", len(s.Classes))
	}
	if _, err := LoadSchema(filepath.Join(root, "missing.yaml")); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}
