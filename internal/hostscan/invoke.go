package hostscan

import (
	"context"
	"fmt"
	"reflect"

	"github.com/funvibe/typetoken/internal/reflection"
)

// funcInvoker adapts a Go func, passing a background context first when
// the func takes one.
func funcInvoker(fn any, withContext bool) (reflection.Invoker, error) {
	inv, err := reflection.FuncInvoker(fn, false)
	if err != nil {
		return nil, err
	}
	if !withContext {
		return inv, nil
	}
	return func(receiver any, args []any) (any, error) {
		return inv(receiver, append([]any{context.Background()}, args...))
	}, nil
}

// methodInvoker calls the Go method goName on the receiver.
func methodInvoker(goName string, withContext bool) reflection.Invoker {
	return func(receiver any, args []any) (any, error) {
		if receiver == nil {
			return nil, fmt.Errorf("%s: nil receiver", goName)
		}
		method := reflect.ValueOf(receiver).MethodByName(goName)
		if !method.IsValid() {
			return nil, fmt.Errorf("%T has no method %s", receiver, goName)
		}
		inv, err := funcInvoker(method.Interface(), withContext)
		if err != nil {
			return nil, err
		}
		return inv(nil, args)
	}
}

// zeroConstructor returns new zero values of the prototype's type. A
// pointer prototype yields pointers to new zero values.
func zeroConstructor(proto any) reflection.Invoker {
	t := reflect.TypeOf(proto)
	return func(any, []any) (any, error) {
		if t.Kind() == reflect.Pointer {
			return reflect.New(t.Elem()).Interface(), nil
		}
		return reflect.Zero(t).Interface(), nil
	}
}
