package hostscan

import (
	"fmt"
	"go/constant"
	"go/types"
	"math"

	"github.com/funvibe/typetoken/internal/config"
	"github.com/funvibe/typetoken/internal/reflection"
	"github.com/funvibe/typetoken/internal/typesystem"
)

// converter maps go/types types to types of the universe. Type parameters
// belong to owner; member types use an empty owner, which reflection binds
// to the member's or the class's parameters.
type converter struct {
	imp   *importer
	owner string
}

func (imp *importer) converter(owner string) converter {
	return converter{imp: imp, owner: owner}
}

var stringType = typesystem.TCon{Name: config.StringClassName}

// typeOf converts a Go type. Types with no counterpart are Objects.
func (c converter) typeOf(t types.Type) typesystem.Type {
	switch t := types.Unalias(t).(type) {
	case *types.Basic:
		return basicType(t)

	case *types.Named:
		if class, ok := c.classOf(t); ok {
			return class
		}
		if basic, ok := t.Underlying().(*types.Basic); ok {
			return basicType(basic)
		}
		return typesystem.Object

	case *types.Pointer:
		return c.typeOf(t.Elem())

	case *types.Slice:
		if basic, ok := t.Elem().(*types.Basic); ok && basic.Kind() == types.Byte {
			return typesystem.ArrayOf(typesystem.Byte)
		}
		return typesystem.ArrayOf(c.typeOf(t.Elem()))

	case *types.Array:
		return typesystem.ArrayOf(c.typeOf(t.Elem()))

	case *types.TypeParam:
		name := t.Obj().Name()
		if c.owner == "" {
			return reflection.Param(name)
		}
		return typesystem.TParam{Owner: c.owner, Name: name}

	default:
		return typesystem.Object
	}
}

// refOf converts a Go type used as a type argument, boxing primitives.
func (c converter) refOf(t types.Type) typesystem.Type {
	out := c.typeOf(t)
	if p, ok := out.(typesystem.TPrim); ok {
		return typesystem.Box(p)
	}
	return out
}

// classOf returns the class type of a named Go type declared in the
// imported package or in a package imported earlier.
func (c converter) classOf(t *types.Named) (typesystem.Type, bool) {
	obj := t.Origin().Obj()
	if obj.Pkg() == nil || isErrorType(t) {
		return nil, false
	}
	var name string
	if class, ok := c.imp.named[obj]; ok {
		name = class.Name()
	} else if class, ok := c.imp.u.Class(ClassName(obj.Pkg(), obj.Name())); ok {
		name = class.Name()
	} else {
		return nil, false
	}
	decl, _ := c.imp.u.Table().Lookup(name)
	targs := t.TypeArgs()
	if targs.Len() == 0 || len(decl.TypeParams) != targs.Len() {
		return typesystem.TCon{Name: name}, true
	}
	args := make([]typesystem.Type, targs.Len())
	for i := 0; i < targs.Len(); i++ {
		args[i] = c.refOf(targs.At(i))
	}
	return typesystem.Class(name, args...), true
}

// basicType maps Go basic types to primitives by size. Unsigned types map
// to the smallest signed primitive that holds all their values.
func basicType(t *types.Basic) typesystem.Type {
	switch t.Kind() {
	case types.Bool, types.UntypedBool:
		return typesystem.Boolean
	case types.Int, types.Uint16, types.UntypedInt:
		return typesystem.Int
	case types.Int8:
		return typesystem.Byte
	case types.Int16, types.Uint8:
		return typesystem.Short
	case types.Int32, types.UntypedRune:
		return typesystem.Char
	case types.Int64, types.Uint, types.Uint32, types.Uint64, types.Uintptr:
		return typesystem.Long
	case types.Float32:
		return typesystem.Float
	case types.Float64, types.UntypedFloat:
		return typesystem.Double
	case types.String, types.UntypedString:
		return stringType
	default:
		return typesystem.Object
	}
}

// typeParams converts declared type parameters. A constraint that is a
// class type becomes the parameter's bound; other constraints are dropped.
func (c converter) typeParams(list *types.TypeParamList) []typesystem.TypeParamDecl {
	if list.Len() == 0 {
		return nil
	}
	out := make([]typesystem.TypeParamDecl, list.Len())
	for i := 0; i < list.Len(); i++ {
		tp := list.At(i)
		out[i] = typesystem.TypeParamDecl{Name: tp.Obj().Name()}
		if named, ok := types.Unalias(tp.Constraint()).(*types.Named); ok {
			if bound, ok := c.classOf(named); ok {
				out[i].Bounds = []typesystem.Type{bound}
			}
		}
	}
	return out
}

// signature is a Go func signature converted to member form.
type signature struct {
	typeParams []typesystem.TypeParamDecl
	params     []reflection.Parameter
	returns    typesystem.Type
	varArgs    bool

	// context is set when the func takes a leading context.Context, which
	// is passed by the invoker and not declared as a parameter.
	context bool
}

// signature converts sig. A trailing error result is dropped; it is
// returned by the invoker. The reason is set when sig has no member form.
func (c converter) signature(sig *types.Signature) (signature, string) {
	out := signature{
		typeParams: c.typeParams(sig.TypeParams()),
		varArgs:    sig.Variadic(),
	}

	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		p := params.At(i)
		if i == 0 && isContextType(p.Type()) {
			out.context = true
			continue
		}
		out.params = append(out.params, reflection.Parameter{Name: p.Name(), Type: c.typeOf(p.Type())})
	}
	if out.varArgs && len(out.params) == 0 {
		return out, "variadic context parameter"
	}

	results := sig.Results()
	n := results.Len()
	if n > 0 && isErrorType(results.At(n-1).Type()) {
		n--
	}
	switch n {
	case 0:
		out.returns = typesystem.Void
	case 1:
		out.returns = c.typeOf(results.At(0).Type())
	default:
		return out, fmt.Sprintf("returns %d values", n)
	}
	return out, ""
}

// constValue converts a constant to its type and Go value. The reason is
// set when the constant has no field form.
func constValue(k *types.Const) (typesystem.Type, any, string) {
	basic, ok := k.Type().Underlying().(*types.Basic)
	if !ok {
		return nil, nil, "constant of non-basic type"
	}
	t := basicType(basic)
	v := k.Val()
	info := basic.Info()
	switch {
	case info&types.IsBoolean != 0:
		return t, constant.BoolVal(v), ""
	case info&types.IsString != 0:
		return t, constant.StringVal(v), ""
	case info&types.IsFloat != 0:
		f, _ := constant.Float64Val(constant.ToFloat(v))
		if t == typesystem.Type(typesystem.Float) {
			return t, float32(f), ""
		}
		return t, f, ""
	case info&types.IsInteger != 0:
		i, exact := constant.Int64Val(constant.ToInt(v))
		if !exact {
			return nil, nil, "value overflows long"
		}
		value, ok := intValue(t, i)
		if !ok {
			return nil, nil, fmt.Sprintf("value overflows %s", t)
		}
		return t, value, ""
	default:
		return nil, nil, fmt.Sprintf("%s constants are not supported", basic)
	}
}

// intValue converts i to the Go representation of the integral primitive t.
func intValue(t typesystem.Type, i int64) (any, bool) {
	inRange := func(lo, hi int64) bool { return i >= lo && i <= hi }
	switch t {
	case typesystem.Type(typesystem.Byte):
		return int8(i), inRange(math.MinInt8, math.MaxInt8)
	case typesystem.Type(typesystem.Short):
		return int16(i), inRange(math.MinInt16, math.MaxInt16)
	case typesystem.Type(typesystem.Char):
		return int32(i), inRange(math.MinInt32, math.MaxInt32)
	case typesystem.Type(typesystem.Long):
		return i, true
	default:
		return int(i), true
	}
}

// isContextType checks if a type is context.Context.
func isContextType(t types.Type) bool {
	named, ok := types.Unalias(t).(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj.Pkg() != nil && obj.Pkg().Path() == "context" && obj.Name() == "Context"
}

// isErrorType checks if a type is the error interface.
func isErrorType(t types.Type) bool {
	named, ok := types.Unalias(t).(*types.Named)
	if ok {
		t = named.Underlying()
	}
	iface, ok := t.(*types.Interface)
	if !ok {
		return false
	}
	return iface.NumMethods() == 1 && iface.Method(0).Name() == "Error"
}
