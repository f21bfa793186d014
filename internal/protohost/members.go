package protohost

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/funvibe/typetoken/internal/config"
	"github.com/funvibe/typetoken/internal/reflection"
	"github.com/funvibe/typetoken/internal/typesystem"
)

var bytesArray = typesystem.ArrayOf(typesystem.Byte)

func (imp *importer) declareEnum(ed protoreflect.EnumDescriptor) error {
	c := imp.classes[ed.FullName()]
	self := classType(ed)
	values := ed.Values()
	for i := 0; i < values.Len(); i++ {
		value := EnumValue{Descriptor: values.Get(i)}
		_, err := c.AddField(reflection.FieldSpec{
			Name:   string(value.Descriptor.Name()),
			Type:   self,
			Static: true,
			Get:    func(any) (any, error) { return value, nil },
		})
		if err != nil {
			return err
		}
	}

	_, err := c.AddMethod(reflection.MethodSpec{
		Name:    "valueOf",
		Params:  []reflection.Parameter{{Name: "name", Type: stringType}},
		Returns: self,
		Static:  true,
		Impl: func(name string) (EnumValue, error) {
			evd := values.ByName(protoreflect.Name(name))
			if evd == nil {
				return EnumValue{}, fmt.Errorf("%s has no constant %s", ed.FullName(), name)
			}
			return EnumValue{Descriptor: evd}, nil
		},
	})
	if err != nil {
		return err
	}
	_, err = c.AddMethod(reflection.MethodSpec{
		Name:    "getNumber",
		Returns: typesystem.Int,
		Impl:    func(v EnumValue) int { return int(v.Number()) },
	})
	return err
}

func (imp *importer) declareMessage(md protoreflect.MessageDescriptor) error {
	c := imp.classes[md.FullName()]
	self := classType(md)

	var ctorFields []protoreflect.FieldDescriptor
	var ctorParams []reflection.Parameter
	fields := md.Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		typ, reason := fieldType(fd)
		if reason != "" {
			imp.skip(md.FullName(), fd.JSONName(), reason)
			continue
		}
		_, err := c.AddField(reflection.FieldSpec{
			Name: fd.JSONName(),
			Type: typ,
			Get: func(receiver any) (any, error) {
				m, err := messageOf(md, receiver)
				if err != nil {
					return nil, err
				}
				if fd.Message() != nil && !fd.IsList() && !m.Has(fd) {
					return nil, nil
				}
				return fromProto(fd, m.Get(fd)), nil
			},
			Set: func(receiver, value any) error {
				m, err := messageOf(md, receiver)
				if err != nil {
					return err
				}
				return setField(m, fd, value)
			},
		})
		if err != nil {
			return err
		}
		if fd.ContainingOneof() == nil {
			ctorFields = append(ctorFields, fd)
			ctorParams = append(ctorParams, reflection.Parameter{Name: fd.JSONName(), Type: typ})
		}
	}

	_, err := c.AddConstructor(reflection.ConstructorSpec{
		Invoker: func(any, []any) (any, error) { return dynamicpb.NewMessage(md), nil },
	})
	if err != nil {
		return err
	}
	if len(ctorFields) > 0 {
		_, err = c.AddConstructor(reflection.ConstructorSpec{
			Params: ctorParams,
			Invoker: func(_ any, args []any) (any, error) {
				msg := dynamicpb.NewMessage(md)
				for i, fd := range ctorFields {
					if err := setField(msg, fd, args[i]); err != nil {
						return nil, err
					}
				}
				return msg, nil
			},
		})
		if err != nil {
			return err
		}
	}

	_, err = c.AddMethod(reflection.MethodSpec{
		Name:    "parseFrom",
		Params:  []reflection.Parameter{{Name: "data", Type: bytesArray}},
		Returns: self,
		Static:  true,
		Impl: func(data []byte) (proto.Message, error) {
			msg := dynamicpb.NewMessage(md)
			if err := proto.Unmarshal(data, msg); err != nil {
				return nil, fmt.Errorf("unmarshal error: %w", err)
			}
			return msg, nil
		},
	})
	if err != nil {
		return err
	}
	_, err = c.AddMethod(reflection.MethodSpec{
		Name:    "toByteArray",
		Returns: bytesArray,
		Invoker: func(receiver any, _ []any) (any, error) {
			m, err := messageOf(md, receiver)
			if err != nil {
				return nil, err
			}
			data, err := proto.Marshal(m.Interface())
			if err != nil {
				return nil, fmt.Errorf("marshal error: %w", err)
			}
			return data, nil
		},
	})
	if err != nil {
		return err
	}
	_, err = c.AddMethod(reflection.MethodSpec{
		Name:    "toString",
		Returns: stringType,
		Invoker: func(receiver any, _ []any) (any, error) {
			m, err := messageOf(md, receiver)
			if err != nil {
				return nil, err
			}
			return fmt.Sprint(m.Interface()), nil
		},
	})
	return err
}

func (imp *importer) declareService(sd protoreflect.ServiceDescriptor) error {
	c := imp.classes[sd.FullName()]
	_, err := c.AddConstructor(reflection.ConstructorSpec{
		Params: []reflection.Parameter{{Name: "target", Type: typesystem.TCon{Name: config.StringClassName}}},
		Impl:   imp.dial,
	})
	if err != nil {
		return err
	}

	methods := sd.Methods()
	for i := 0; i < methods.Len(); i++ {
		md := methods.Get(i)
		if md.IsStreamingClient() || md.IsStreamingServer() {
			imp.skip(sd.FullName(), string(md.Name()), "streaming RPCs are not supported")
			continue
		}
		_, err := c.AddMethod(reflection.MethodSpec{
			Name:    memberName(string(md.Name())),
			Params:  []reflection.Parameter{{Name: "request", Type: classType(md.Input())}},
			Returns: classType(md.Output()),
			Invoker: imp.rpcInvoker(md),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
