package reflection

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"unicode"
	"unicode/utf8"
)

// Invoker calls a member. args holds exactly one value per declared
// parameter; a variable arity parameter receives its trailing values as one
// slice. Constructors and static methods ignore the receiver.
type Invoker func(receiver any, args []any) (any, error)

// ErrNoImplementation is returned when invoking a member that was declared
// without an implementation.
var ErrNoImplementation = errors.New("member has no implementation")

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func bindInvoker(exec *executable, custom Invoker, impl any, withReceiver bool) (Invoker, error) {
	if custom != nil {
		return custom, nil
	}
	if impl == nil {
		name := exec.class.Name() + "." + exec.name
		return func(any, []any) (any, error) {
			return nil, fmt.Errorf("%s: %w", name, ErrNoImplementation)
		}, nil
	}
	inv, err := FuncInvoker(impl, withReceiver)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", exec.class.Name(), exec.name, err)
	}
	fnType := reflect.TypeOf(impl)
	want := len(exec.params)
	if withReceiver {
		want++
	}
	if fnType.NumIn() != want {
		return nil, fmt.Errorf("%s.%s: implementation takes %d arguments, member needs %d", exec.class.Name(), exec.name, fnType.NumIn(), want)
	}
	return inv, nil
}

// FuncInvoker adapts a Go func to an Invoker. When withReceiver is set the
// receiver is passed as the first argument. A variadic Go func receives the
// last argument spread. The func may return nothing, a value, an error, or
// a value and an error; panics are returned as errors.
func FuncInvoker(fn any, withReceiver bool) (Invoker, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("implementation is %T, not a func", fn)
	}
	fnType := fv.Type()
	switch fnType.NumOut() {
	case 0, 1:
	case 2:
		if fnType.Out(1) != errorType {
			return nil, fmt.Errorf("second result of %s must be error", fnType)
		}
	default:
		return nil, fmt.Errorf("%s returns too many results", fnType)
	}

	return func(receiver any, args []any) (result any, err error) {
		all := args
		if withReceiver {
			all = append([]any{receiver}, args...)
		}
		if len(all) != fnType.NumIn() {
			return nil, fmt.Errorf("expected %d arguments, got %d", fnType.NumIn(), len(all))
		}
		in := make([]reflect.Value, len(all))
		for i, arg := range all {
			v, err := Coerce(arg, fnType.In(i))
			if err != nil {
				return nil, fmt.Errorf("argument %d conversion failed: %w", i, err)
			}
			in[i] = v
		}

		defer func() {
			if r := recover(); r != nil {
				result, err = nil, fmt.Errorf("panic: %v", r)
			}
		}()

		var out []reflect.Value
		if fnType.IsVariadic() {
			out = fv.CallSlice(in)
		} else {
			out = fv.Call(in)
		}
		return results(out)
	}, nil
}

func results(out []reflect.Value) (any, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if out[0].Type() == errorType {
			if out[0].IsNil() {
				return nil, nil
			}
			return nil, out[0].Interface().(error)
		}
		return out[0].Interface(), nil
	}
	if !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// Coerce converts a value to the Go type target: nil becomes the zero
// value, numbers convert between numeric kinds, and slices convert element
// by element.
func Coerce(v any, target reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(target), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(target) {
		return rv, nil
	}
	if isNumeric(rv.Kind()) && isNumeric(target.Kind()) {
		out := rv.Convert(target)
		if !lossless(rv, out) {
			return reflect.Value{}, fmt.Errorf("cannot use %v as %s without loss", v, target)
		}
		return out, nil
	}
	if rv.Kind() == reflect.Slice && target.Kind() == reflect.Slice {
		slice := reflect.MakeSlice(target, rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem, err := Coerce(rv.Index(i).Interface(), target.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			slice.Index(i).Set(elem)
		}
		return slice, nil
	}
	if rv.Kind() == target.Kind() && rv.Type().ConvertibleTo(target) {
		return rv.Convert(target), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", v, target)
}

// lossless reports whether the numeric conversion of rv to out kept its
// value. Narrowing between float kinds only fails on overflow.
func lossless(rv, out reflect.Value) bool {
	switch {
	case rv.CanFloat():
		f := rv.Float()
		if out.CanFloat() {
			return math.IsInf(out.Float(), 0) == math.IsInf(f, 0)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) || math.Trunc(f) != f {
			return false
		}
	case rv.CanInt() && out.CanUint():
		if rv.Int() < 0 {
			return false
		}
	case rv.CanUint() && out.CanInt():
		if out.Int() < 0 {
			return false
		}
	}
	return out.Convert(rv.Type()).Equal(rv)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// structValue dereferences receiver down to a struct value.
func structValue(receiver any) (reflect.Value, error) {
	val := reflect.ValueOf(receiver)
	if val.Kind() == reflect.Interface {
		val = val.Elem()
	}
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return reflect.Value{}, fmt.Errorf("nil receiver")
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("receiver %T is not a struct", receiver)
	}
	return val, nil
}

// goFieldName maps a member name to the exported Go field name.
func goFieldName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}

func structField(receiver any, name string) (any, error) {
	val, err := structValue(receiver)
	if err != nil {
		return nil, err
	}
	field := val.FieldByName(goFieldName(name))
	if !field.IsValid() {
		return nil, fmt.Errorf("field '%s' not found on %T", name, receiver)
	}
	return field.Interface(), nil
}

func setStructField(receiver any, name string, value any) error {
	val, err := structValue(receiver)
	if err != nil {
		return err
	}
	field := val.FieldByName(goFieldName(name))
	if !field.IsValid() {
		return fmt.Errorf("field '%s' not found on %T", name, receiver)
	}
	if !field.CanSet() {
		return fmt.Errorf("field '%s' of %T is not settable", name, receiver)
	}
	v, err := Coerce(value, field.Type())
	if err != nil {
		return err
	}
	field.Set(v)
	return nil
}
