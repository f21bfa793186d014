package protohost

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/funvibe/typetoken/internal/reflection"
)

// dial creates a client connection to target.
func (imp *importer) dial(target string) (*grpc.ClientConn, error) {
	opts := imp.opts.DialOptions
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", target, err)
	}
	return conn, nil
}

// MethodPath returns the full RPC path of a method, "/pkg.Service/Method".
func MethodPath(md protoreflect.MethodDescriptor) string {
	return fmt.Sprintf("/%s/%s", md.Parent().FullName(), md.Name())
}

// rpcInvoker calls a unary RPC over the receiver, which must be a
// grpc.ClientConnInterface.
func (imp *importer) rpcInvoker(md protoreflect.MethodDescriptor) reflection.Invoker {
	path := MethodPath(md)
	return func(receiver any, args []any) (any, error) {
		conn, ok := receiver.(grpc.ClientConnInterface)
		if !ok {
			return nil, fmt.Errorf("receiver %T is not a gRPC connection", receiver)
		}
		req, err := messageOf(md.Input(), args[0])
		if err != nil {
			return nil, fmt.Errorf("request: %w", err)
		}

		ctx := context.Background()
		if imp.opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, imp.opts.Timeout)
			defer cancel()
		}
		resp := dynamicpb.NewMessage(md.Output())
		if err := conn.Invoke(ctx, path, req.Interface(), resp); err != nil {
			return nil, fmt.Errorf("RPC failed: %w", err)
		}
		return resp, nil
	}
}
