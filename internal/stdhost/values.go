package stdhost

import (
	"bytes"
	"cmp"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"

	"github.com/funvibe/typetoken/internal/config"
	"github.com/funvibe/typetoken/internal/typesystem"
)

// List is the Go representation of List and ArrayList instances.
type List struct {
	Items []any
}

func (l *List) String() string {
	parts := make([]string, len(l.Items))
	for i, item := range l.Items {
		parts[i] = fmt.Sprint(item)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// TypeOf returns the type a Go value is treated as when its declared type
// is not given. Values of unknown Go types are Objects.
//
//	string  -> String      bool    -> boolean
//	int     -> int         int64   -> long
//	int16   -> short       int8    -> byte
//	rune    -> char        float32 -> float
//	float64 -> double      nil     -> null
func TypeOf(v any) typesystem.Type {
	switch x := v.(type) {
	case nil:
		return typesystem.TNull{}
	case string:
		return typesystem.TCon{Name: config.StringClassName}
	case bool:
		return typesystem.Boolean
	case int:
		return typesystem.Int
	case int64:
		return typesystem.Long
	case int32:
		return typesystem.Char
	case int16:
		return typesystem.Short
	case int8:
		return typesystem.Byte
	case float32:
		return typesystem.Float
	case float64:
		return typesystem.Double
	case uuid.UUID:
		return typesystem.TCon{Name: UUIDClassName}
	case *List:
		elem := commonType(x.Items)
		return typesystem.Class(config.ArrayListClassName, elem)
	default:
		return typesystem.Object
	}
}

// commonType returns the wrapper type shared by all items, or Object.
func commonType(items []any) typesystem.Type {
	var out typesystem.Type
	for _, item := range items {
		t := TypeOf(item)
		if p, ok := t.(typesystem.TPrim); ok {
			t = typesystem.Box(p)
		}
		if out == nil {
			out = t
			continue
		}
		if !typesystem.Equal(out, t) {
			return typesystem.Object
		}
	}
	if out == nil || typesystem.Equal(out, typesystem.TNull{}) {
		return typesystem.Object
	}
	return out
}

// Compare orders two values of the same comparable kind.
func Compare(a, b any) (int, error) {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return cmp.Compare(x, y), nil
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, nil
			case !x:
				return -1, nil
			default:
				return 1, nil
			}
		}
	case uuid.UUID:
		if y, ok := b.(uuid.UUID); ok {
			return bytes.Compare(x[:], y[:]), nil
		}
	default:
		fa, okA := asFloat(a)
		fb, okB := asFloat(b)
		if okA && okB {
			return cmp.Compare(fa, fb), nil
		}
	}
	return 0, fmt.Errorf("cannot compare %T with %T", a, b)
}

func asFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
