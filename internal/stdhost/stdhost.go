// Package stdhost provides the standard host library: members of the
// builtin classes implemented by Go funcs, a few utility classes with
// overloaded and generic members, and the registry of named Go funcs that
// class schemas bind to.
package stdhost

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/funvibe/typetoken/internal/config"
	"github.com/funvibe/typetoken/internal/reflection"
	"github.com/funvibe/typetoken/internal/typesystem"
)

// Classes added on top of the builtin ones.
const (
	NumbersClassName = "Numbers"
	StringsClassName = "Strings"
	ListsClassName   = "Lists"
	UUIDClassName    = "UUID"
)

var (
	tString  = typesystem.TCon{Name: config.StringClassName}
	tCharSeq = typesystem.TCon{Name: config.CharSequenceClassName}
	tInteger = typesystem.TCon{Name: config.IntegerClassName}
	tLong    = typesystem.TCon{Name: config.LongClassName}
	tDouble  = typesystem.TCon{Name: config.DoubleClassName}
	tBoolean = typesystem.TCon{Name: config.BooleanClassName}
	tUUID    = typesystem.TCon{Name: UUIDClassName}
	tObject  = typesystem.Object
)

// New creates a universe holding the builtin classes with their standard
// members, plus Numbers, Strings, Lists and UUID.
func New() (*reflection.Universe, error) {
	u := reflection.NewUniverse()
	if err := Install(u); err != nil {
		return nil, err
	}
	return u, nil
}

// Install adds the standard members to a universe created by
// reflection.NewUniverse. It must be called at most once per universe.
func Install(u *reflection.Universe) error {
	h := &host{u: u}
	h.object()
	h.text()
	h.numbers()
	h.collections()
	h.uuids()
	if h.err != nil {
		return fmt.Errorf("stdhost: %w", h.err)
	}
	return nil
}

// host accumulates the first error so member tables read as plain lists.
type host struct {
	u   *reflection.Universe
	err error
}

func (h *host) class(name string) *reflection.Class {
	if h.err != nil {
		return nil
	}
	c, err := h.u.Lookup(name)
	h.err = err
	return c
}

func (h *host) define(decl *typesystem.ClassDecl) *reflection.Class {
	if h.err != nil {
		return nil
	}
	c, err := h.u.Define(decl)
	h.err = err
	return c
}

func (h *host) methods(c *reflection.Class, specs ...reflection.MethodSpec) {
	for _, spec := range specs {
		if h.err != nil {
			return
		}
		_, h.err = c.AddMethod(spec)
	}
}

func (h *host) constructors(c *reflection.Class, specs ...reflection.ConstructorSpec) {
	for _, spec := range specs {
		if h.err != nil {
			return
		}
		_, h.err = c.AddConstructor(spec)
	}
}

func (h *host) fields(c *reflection.Class, specs ...reflection.FieldSpec) {
	for _, spec := range specs {
		if h.err != nil {
			return
		}
		_, h.err = c.AddField(spec)
	}
}

func params(types ...typesystem.Type) []reflection.Parameter {
	out := make([]reflection.Parameter, len(types))
	for i, t := range types {
		out[i] = reflection.Parameter{Name: fmt.Sprintf("arg%d", i), Type: t}
	}
	return out
}

func static(name string, returns typesystem.Type, impl any, types ...typesystem.Type) reflection.MethodSpec {
	return reflection.MethodSpec{Name: name, Static: true, Returns: returns, Impl: impl, Params: params(types...)}
}

func instance(name string, returns typesystem.Type, impl any, types ...typesystem.Type) reflection.MethodSpec {
	return reflection.MethodSpec{Name: name, Returns: returns, Impl: impl, Params: params(types...)}
}

func varargs(spec reflection.MethodSpec) reflection.MethodSpec {
	spec.VarArgs = true
	return spec
}

func generic(spec reflection.MethodSpec, typeParams ...typesystem.TypeParamDecl) reflection.MethodSpec {
	spec.TypeParams = typeParams
	return spec
}

func constant(name string, typ typesystem.Type, value any) reflection.FieldSpec {
	return reflection.FieldSpec{
		Name:   name,
		Type:   typ,
		Static: true,
		Get:    func(any) (any, error) { return value, nil },
	}
}

func (h *host) object() {
	h.methods(h.class(config.ObjectClassName),
		instance("toString", tString, func(o any) string { return fmt.Sprint(o) }),
		instance("equals", typesystem.Boolean, func(o, other any) bool { return reflect.DeepEqual(o, other) }),
	)
	h.methods(h.class(config.ComparableClassName),
		instance("compareTo", typesystem.Int, Compare, reflection.Param("T")),
	)
}

func (h *host) text() {
	h.methods(h.class(config.CharSequenceClassName),
		instance("length", typesystem.Int, func(s any) int { return utf8.RuneCountInString(fmt.Sprint(s)) }),
		instance("charAt", typesystem.Char, charAt, typesystem.Int),
	)

	h.methods(h.class(config.StringClassName),
		static("valueOf", tString, strconv.FormatBool, typesystem.Boolean),
		static("valueOf", tString, func(c rune) string { return string(c) }, typesystem.Char),
		static("valueOf", tString, strconv.Itoa, typesystem.Int),
		static("valueOf", tString, func(v int64) string { return strconv.FormatInt(v, 10) }, typesystem.Long),
		static("valueOf", tString, func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }, typesystem.Double),
		static("valueOf", tString, func(v any) string { return fmt.Sprint(v) }, tObject),
		instance("concat", tString, func(s, other string) string { return s + other }, tString),
		instance("toUpperCase", tString, strings.ToUpper),
		instance("toLowerCase", tString, strings.ToLower),
		instance("trim", tString, strings.TrimSpace),
		instance("isEmpty", typesystem.Boolean, func(s string) bool { return s == "" }),
		instance("repeat", tString, repeat, typesystem.Int),
		instance("contains", typesystem.Boolean, func(s string, sub any) bool { return strings.Contains(s, fmt.Sprint(sub)) }, tCharSeq),
		instance("startsWith", typesystem.Boolean, strings.HasPrefix, tString),
		instance("indexOf", typesystem.Int, strings.Index, tString),
		instance("indexOf", typesystem.Int, strings.IndexRune, typesystem.Char),
		instance("substring", tString, func(s string, from int) (string, error) { return substring(s, from, utf8.RuneCountInString(s)) }, typesystem.Int),
		instance("substring", tString, substring, typesystem.Int, typesystem.Int),
	)

	h.methods(h.class(config.CharacterClassName),
		static("isDigit", typesystem.Boolean, unicode.IsDigit, typesystem.Char),
		static("isLetter", typesystem.Boolean, unicode.IsLetter, typesystem.Char),
		static("toUpperCase", typesystem.Char, unicode.ToUpper, typesystem.Char),
	)
	h.methods(h.class(config.BooleanClassName),
		static("parseBoolean", typesystem.Boolean, strconv.ParseBool, tString),
		static("valueOf", tBoolean, func(b bool) bool { return b }, typesystem.Boolean),
	)

	strs := h.define(&typesystem.ClassDecl{Name: StringsClassName, Super: tObject})
	h.methods(strs,
		varargs(static("join", tString, join, tCharSeq, typesystem.ArrayOf(tCharSeq))),
		generic(static("join", tString, joinList, tCharSeq, typesystem.Class(config.IterableClassName, reflection.Param("T"))),
			typesystem.TypeParamDecl{Name: "T"}),
		varargs(static("format", tString, fmt.Sprintf, tString, typesystem.ArrayOf(tObject))),
		static("isBlank", typesystem.Boolean, func(s string) bool { return strings.TrimSpace(s) == "" }, tString),
		static("reverse", tString, reverse, tString),
	)
}

func (h *host) numbers() {
	h.methods(h.class(config.NumberClassName),
		instance("intValue", typesystem.Int, func(n any) (int, error) {
			f, err := number(n)
			return int(f), err
		}),
		instance("longValue", typesystem.Long, func(n any) (int64, error) {
			f, err := number(n)
			return int64(f), err
		}),
		instance("doubleValue", typesystem.Double, number),
	)

	integer := h.class(config.IntegerClassName)
	h.methods(integer,
		static("valueOf", tInteger, func(v int) int { return v }, typesystem.Int),
		static("valueOf", tInteger, strconv.Atoi, tString),
		static("parseInt", typesystem.Int, strconv.Atoi, tString),
		static("toString", tString, strconv.Itoa, typesystem.Int),
		static("sum", typesystem.Int, func(a, b int) int { return a + b }, typesystem.Int, typesystem.Int),
	)
	h.fields(integer,
		constant("MAX_VALUE", typesystem.Int, math.MaxInt32),
		constant("MIN_VALUE", typesystem.Int, math.MinInt32),
	)

	long := h.class(config.LongClassName)
	h.methods(long,
		static("valueOf", tLong, func(v int64) int64 { return v }, typesystem.Long),
		static("parseLong", typesystem.Long, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }, tString),
	)
	h.fields(long,
		constant("MAX_VALUE", typesystem.Long, int64(math.MaxInt64)),
		constant("MIN_VALUE", typesystem.Long, int64(math.MinInt64)),
	)

	h.methods(h.class(config.DoubleClassName),
		static("valueOf", tDouble, func(v float64) float64 { return v }, typesystem.Double),
		static("parseDouble", typesystem.Double, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }, tString),
		static("isNaN", typesystem.Boolean, math.IsNaN, typesystem.Double),
	)

	comparableT := typesystem.TypeParamDecl{
		Name:   "T",
		Bounds: []typesystem.Type{typesystem.Class(config.ComparableClassName, reflection.Param("T"))},
	}
	nums := h.define(&typesystem.ClassDecl{Name: NumbersClassName, Super: tObject})
	h.methods(nums,
		static("max", typesystem.Int, func(a, b int) int { return max(a, b) }, typesystem.Int, typesystem.Int),
		static("max", typesystem.Long, func(a, b int64) int64 { return max(a, b) }, typesystem.Long, typesystem.Long),
		static("max", typesystem.Double, math.Max, typesystem.Double, typesystem.Double),
		generic(static("max", reflection.Param("T"), greatest, reflection.Param("T"), reflection.Param("T")), comparableT),
		static("abs", typesystem.Int, func(v int) int { return max(v, -v) }, typesystem.Int),
		static("abs", typesystem.Long, func(v int64) int64 { return max(v, -v) }, typesystem.Long),
		static("abs", typesystem.Double, math.Abs, typesystem.Double),
	)
	h.fields(nums, reflection.FieldSpec{Name: "PRECISION", Type: typesystem.Int, Static: true, Value: 6})
}

func (h *host) collections() {
	elem := reflection.Param("E")
	h.methods(h.class(config.CollectionClassName),
		instance("size", typesystem.Int, func(l *List) int { return len(l.Items) }),
		instance("isEmpty", typesystem.Boolean, func(l *List) bool { return len(l.Items) == 0 }),
		instance("contains", typesystem.Boolean, func(l *List, v any) bool {
			for _, item := range l.Items {
				if reflect.DeepEqual(item, v) {
					return true
				}
			}
			return false
		}, tObject),
	)
	h.methods(h.class(config.ListClassName),
		instance("get", elem, listGet, typesystem.Int),
		instance("add", typesystem.Boolean, listAdd, elem),
		instance("set", elem, listSet, typesystem.Int, elem),
	)
	h.constructors(h.class(config.ArrayListClassName),
		reflection.ConstructorSpec{Impl: func() *List { return &List{} }},
		reflection.ConstructorSpec{
			Params: params(typesystem.Class(config.CollectionClassName, elem)),
			Impl:   func(src *List) *List { return &List{Items: append([]any{}, src.Items...)} },
		},
	)

	t := typesystem.TypeParamDecl{Name: "T"}
	listOfT := typesystem.Class(config.ListClassName, reflection.Param("T"))
	lists := h.define(&typesystem.ClassDecl{Name: ListsClassName, Super: tObject})
	h.methods(lists,
		generic(static("singleton", listOfT, func(v any) *List { return &List{Items: []any{v}} }, reflection.Param("T")), t),
		generic(varargs(static("of", listOfT, func(vs ...any) *List { return &List{Items: append([]any{}, vs...)} }, typesystem.ArrayOf(reflection.Param("T")))), t),
		generic(static("empty", listOfT, func() *List { return &List{} }), t),
		generic(static("first", reflection.Param("T"), func(l *List) (any, error) { return listGet(l, 0) }, listOfT), t),
	)
}

func (h *host) uuids() {
	c := h.define(&typesystem.ClassDecl{
		Name:       UUIDClassName,
		Super:      tObject,
		Interfaces: []typesystem.Type{typesystem.Class(config.ComparableClassName, tUUID)},
	})
	h.methods(c,
		static("randomUUID", tUUID, uuid.New),
		static("fromString", tUUID, uuid.Parse, tString),
		static("nameUUIDFromBytes", tUUID, func(name string) uuid.UUID { return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)) }, tString),
		instance("version", typesystem.Int, func(id uuid.UUID) int { return int(id.Version()) }),
	)
	h.fields(c, constant("NIL", tUUID, uuid.Nil))
}

func charAt(s any, i int) (rune, error) {
	runes := []rune(fmt.Sprint(s))
	if i < 0 || i >= len(runes) {
		return 0, fmt.Errorf("index %d out of range [0, %d)", i, len(runes))
	}
	return runes[i], nil
}

func repeat(s string, n int) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("negative count %d", n)
	}
	return strings.Repeat(s, n), nil
}

func substring(s string, from, to int) (string, error) {
	runes := []rune(s)
	if from < 0 || to > len(runes) || from > to {
		return "", fmt.Errorf("range [%d, %d) out of bounds for length %d", from, to, len(runes))
	}
	return string(runes[from:to]), nil
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

func join(sep any, parts ...any) string {
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = fmt.Sprint(p)
	}
	return strings.Join(strs, fmt.Sprint(sep))
}

func joinList(sep any, l *List) string {
	return join(sep, l.Items...)
}

func greatest(a, b any) (any, error) {
	c, err := Compare(a, b)
	if err != nil {
		return nil, err
	}
	if c >= 0 {
		return a, nil
	}
	return b, nil
}

func number(n any) (float64, error) {
	f, ok := asFloat(n)
	if !ok {
		return 0, fmt.Errorf("%T is not a number", n)
	}
	return f, nil
}

func listGet(l *List, i int) (any, error) {
	if i < 0 || i >= len(l.Items) {
		return nil, fmt.Errorf("index %d out of range [0, %d)", i, len(l.Items))
	}
	return l.Items[i], nil
}

func listAdd(l *List, v any) bool {
	l.Items = append(l.Items, v)
	return true
}

func listSet(l *List, i int, v any) (any, error) {
	old, err := listGet(l, i)
	if err != nil {
		return nil, err
	}
	l.Items[i] = v
	return old, nil
}
