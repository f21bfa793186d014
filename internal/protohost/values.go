package protohost

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/funvibe/typetoken/internal/config"
	"github.com/funvibe/typetoken/internal/reflection"
	"github.com/funvibe/typetoken/internal/stdhost"
	"github.com/funvibe/typetoken/internal/typesystem"
)

// EnumValue is an enum constant.
type EnumValue struct {
	Descriptor protoreflect.EnumValueDescriptor
}

func (v EnumValue) String() string { return string(v.Descriptor.Name()) }

// Number returns the wire number of the constant.
func (v EnumValue) Number() int32 { return int32(v.Descriptor.Number()) }

// fieldType returns the declared type of a message field. The reason is
// set when the field has no representation.
func fieldType(fd protoreflect.FieldDescriptor) (typesystem.Type, string) {
	if fd.IsMap() {
		return nil, "map fields are not supported"
	}
	t := scalarType(fd)
	if fd.IsList() {
		if p, ok := t.(typesystem.TPrim); ok {
			t = typesystem.Box(p)
		}
		return typesystem.Class(config.ListClassName, t), ""
	}
	return t, ""
}

var stringType = typesystem.TCon{Name: config.StringClassName}

func scalarType(fd protoreflect.FieldDescriptor) typesystem.Type {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return typesystem.Boolean
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return typesystem.Int
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind,
		protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return typesystem.Long
	case protoreflect.FloatKind:
		return typesystem.Float
	case protoreflect.DoubleKind:
		return typesystem.Double
	case protoreflect.StringKind:
		return stringType
	case protoreflect.BytesKind:
		return typesystem.ArrayOf(typesystem.Byte)
	case protoreflect.EnumKind:
		return classType(fd.Enum())
	default:
		return classType(fd.Message())
	}
}

// fromProto converts a field value to its Go representation: lists become
// *stdhost.List, enums EnumValue, and messages their proto.Message.
func fromProto(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	if fd.IsList() {
		list := v.List()
		out := &stdhost.List{Items: make([]any, list.Len())}
		for i := 0; i < list.Len(); i++ {
			out.Items[i] = fromProtoSingle(fd, list.Get(i))
		}
		return out
	}
	return fromProtoSingle(fd, v)
}

func fromProtoSingle(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return v.Bool()
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return int(v.Int())
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return v.Int()
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind, protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return int64(v.Uint())
	case protoreflect.FloatKind:
		return float32(v.Float())
	case protoreflect.DoubleKind:
		return v.Float()
	case protoreflect.StringKind:
		return v.String()
	case protoreflect.BytesKind:
		return append([]byte{}, v.Bytes()...)
	case protoreflect.EnumKind:
		if evd := fd.Enum().Values().ByNumber(v.Enum()); evd != nil {
			return EnumValue{Descriptor: evd}
		}
		return int(v.Enum())
	default:
		return v.Message().Interface()
	}
}

var (
	int64Type   = reflect.TypeOf(int64(0))
	uint64Type  = reflect.TypeOf(uint64(0))
	float64Type = reflect.TypeOf(float64(0))
	bytesType   = reflect.TypeOf([]byte(nil))
)

// toProto converts a Go value to a single field value.
func toProto(fd protoreflect.FieldDescriptor, x any) (protoreflect.Value, error) {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		b, ok := x.(bool)
		if !ok {
			return protoreflect.Value{}, fmt.Errorf("field %s expects a boolean, got %T", fd.Name(), x)
		}
		return protoreflect.ValueOfBool(b), nil
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		v, err := convert(fd, x, int64Type)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfInt32(int32(v.Int())), nil
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		v, err := convert(fd, x, int64Type)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfInt64(v.Int()), nil
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		v, err := convert(fd, x, uint64Type)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfUint32(uint32(v.Uint())), nil
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		v, err := convert(fd, x, uint64Type)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfUint64(v.Uint()), nil
	case protoreflect.FloatKind:
		v, err := convert(fd, x, float64Type)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfFloat32(float32(v.Float())), nil
	case protoreflect.DoubleKind:
		v, err := convert(fd, x, float64Type)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfFloat64(v.Float()), nil
	case protoreflect.StringKind:
		s, ok := x.(string)
		if !ok {
			return protoreflect.Value{}, fmt.Errorf("field %s expects a String, got %T", fd.Name(), x)
		}
		return protoreflect.ValueOfString(s), nil
	case protoreflect.BytesKind:
		v, err := convert(fd, x, bytesType)
		if err != nil {
			return protoreflect.Value{}, err
		}
		return protoreflect.ValueOfBytes(v.Bytes()), nil
	case protoreflect.EnumKind:
		return enumValue(fd, x)
	default:
		m, err := messageOf(fd.Message(), x)
		if err != nil {
			return protoreflect.Value{}, fmt.Errorf("field %s: %w", fd.Name(), err)
		}
		return protoreflect.ValueOfMessage(m), nil
	}
}

func convert(fd protoreflect.FieldDescriptor, x any, target reflect.Type) (reflect.Value, error) {
	v, err := reflection.Coerce(x, target)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("field %s: %w", fd.Name(), err)
	}
	return v, nil
}

// enumValue accepts an EnumValue of the field's enum, a constant name, or
// a number.
func enumValue(fd protoreflect.FieldDescriptor, x any) (protoreflect.Value, error) {
	values := fd.Enum().Values()
	switch v := x.(type) {
	case EnumValue:
		if v.Descriptor.Parent().FullName() != fd.Enum().FullName() {
			return protoreflect.Value{}, fmt.Errorf("field %s expects %s, got %s", fd.Name(), fd.Enum().FullName(), v.Descriptor.FullName())
		}
		return protoreflect.ValueOfEnum(v.Descriptor.Number()), nil
	case string:
		evd := values.ByName(protoreflect.Name(v))
		if evd == nil {
			return protoreflect.Value{}, fmt.Errorf("%s has no constant %s", fd.Enum().FullName(), v)
		}
		return protoreflect.ValueOfEnum(evd.Number()), nil
	}
	n, err := convert(fd, x, int64Type)
	if err != nil {
		return protoreflect.Value{}, err
	}
	return protoreflect.ValueOfEnum(protoreflect.EnumNumber(n.Int())), nil
}

// messageOf returns the reflective view of a message value of type md.
func messageOf(md protoreflect.MessageDescriptor, x any) (protoreflect.Message, error) {
	pm, ok := x.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("expected %s, got %T", md.FullName(), x)
	}
	m := pm.ProtoReflect()
	if m.Descriptor().FullName() != md.FullName() {
		return nil, fmt.Errorf("expected %s, got %s", md.FullName(), m.Descriptor().FullName())
	}
	return m, nil
}

// setField stores a Go value in a message field. nil clears the field.
func setField(m protoreflect.Message, fd protoreflect.FieldDescriptor, x any) error {
	if x == nil {
		m.Clear(fd)
		return nil
	}
	if !fd.IsList() {
		v, err := toProto(fd, x)
		if err != nil {
			return err
		}
		m.Set(fd, v)
		return nil
	}

	items, err := listItems(x)
	if err != nil {
		return fmt.Errorf("field %s: %w", fd.Name(), err)
	}
	m.Clear(fd)
	list := m.Mutable(fd).List()
	for i, item := range items {
		v, err := toProto(fd, item)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		list.Append(v)
	}
	return nil
}

// listItems accepts a *stdhost.List or any Go slice.
func listItems(x any) ([]any, error) {
	if l, ok := x.(*stdhost.List); ok {
		return l.Items, nil
	}
	rv := reflect.ValueOf(x)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected a list, got %T", x)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
