// Package protohost imports protocol buffer definitions into a reflection
// universe.
//
// Each message becomes a class named after its full name whose instances
// are dynamic messages. Fields are instance fields, and every message has a
// no-argument constructor, a constructor taking its fields in order, a
// static parseFrom(byte[]) and an instance toByteArray(). Enums become
// classes with a static field per value. Services become classes whose
// instances are gRPC client connections; each unary RPC is an instance
// method invoked over the connection.
package protohost

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/funvibe/typetoken/internal/reflection"
	"github.com/funvibe/typetoken/internal/typesystem"
)

// Options controls how services are invoked.
type Options struct {
	// Timeout bounds each RPC. Zero means no deadline.
	Timeout time.Duration

	// DialOptions are used when a service class constructs a connection.
	// Insecure transport credentials are used when empty.
	DialOptions []grpc.DialOption
}

// Result describes an import.
type Result struct {
	Classes []*reflection.Class

	// Skipped lists the members that have no representation, with the
	// reason, as "pkg.Message.member: reason".
	Skipped []string
}

// Parse parses .proto files, looked up in importPaths, together with their
// imports.
func Parse(importPaths []string, files ...string) (*protoregistry.Files, error) {
	return parse(protoparse.Parser{ImportPaths: importPaths}, files)
}

// ParseSources parses .proto files whose contents are given by file name.
func ParseSources(sources map[string]string, files ...string) (*protoregistry.Files, error) {
	return parse(protoparse.Parser{Accessor: protoparse.FileContentsFromMap(sources)}, files)
}

func parse(parser protoparse.Parser, files []string) (*protoregistry.Files, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no proto files given")
	}
	fds, err := parser.ParseFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse proto: %w", err)
	}
	protos := make(map[string]*descriptorpb.FileDescriptorProto)
	for _, fd := range fds {
		collectFiles(fd, protos)
	}
	set := &descriptorpb.FileDescriptorSet{}
	for _, name := range slices.Sorted(maps.Keys(protos)) {
		set.File = append(set.File, protos[name])
	}
	reg, err := protodesc.NewFiles(set)
	if err != nil {
		return nil, fmt.Errorf("building descriptors: %w", err)
	}
	return reg, nil
}

func collectFiles(fd *desc.FileDescriptor, out map[string]*descriptorpb.FileDescriptorProto) {
	if _, ok := out[fd.GetName()]; ok {
		return
	}
	out[fd.GetName()] = fd.AsFileDescriptorProto()
	for _, dep := range fd.GetDependencies() {
		collectFiles(dep, out)
	}
}

// importer carries the state of one import.
type importer struct {
	u    *reflection.Universe
	opts Options
	res  *Result

	messages []protoreflect.MessageDescriptor
	enums    []protoreflect.EnumDescriptor
	services []protoreflect.ServiceDescriptor
	classes  map[protoreflect.FullName]*reflection.Class
}

// Import declares the messages, enums and services of every file in files.
// Files are imported in path order.
func Import(u *reflection.Universe, files *protoregistry.Files, opts Options) (*Result, error) {
	imp := &importer{
		u:       u,
		opts:    opts,
		res:     &Result{},
		classes: make(map[protoreflect.FullName]*reflection.Class),
	}

	var fds []protoreflect.FileDescriptor
	files.RangeFiles(func(fd protoreflect.FileDescriptor) bool {
		fds = append(fds, fd)
		return true
	})
	slices.SortFunc(fds, func(a, b protoreflect.FileDescriptor) int {
		return strings.Compare(a.Path(), b.Path())
	})
	for _, fd := range fds {
		imp.collect(fd.Enums(), fd.Messages())
		for i := 0; i < fd.Services().Len(); i++ {
			imp.services = append(imp.services, fd.Services().Get(i))
		}
	}

	// Every class is declared before any member so that fields may refer
	// to messages declared later.
	for _, ed := range imp.enums {
		if err := imp.define(ed); err != nil {
			return nil, err
		}
	}
	for _, md := range imp.messages {
		if err := imp.define(md); err != nil {
			return nil, err
		}
	}
	for _, sd := range imp.services {
		if err := imp.define(sd); err != nil {
			return nil, err
		}
	}

	for _, ed := range imp.enums {
		if err := imp.declareEnum(ed); err != nil {
			return nil, err
		}
	}
	for _, md := range imp.messages {
		if err := imp.declareMessage(md); err != nil {
			return nil, err
		}
	}
	for _, sd := range imp.services {
		if err := imp.declareService(sd); err != nil {
			return nil, err
		}
	}
	return imp.res, nil
}

// collect gathers enums and messages, nested ones included. Map entry
// messages are left out.
func (imp *importer) collect(enums protoreflect.EnumDescriptors, messages protoreflect.MessageDescriptors) {
	for i := 0; i < enums.Len(); i++ {
		imp.enums = append(imp.enums, enums.Get(i))
	}
	for i := 0; i < messages.Len(); i++ {
		md := messages.Get(i)
		if md.IsMapEntry() {
			continue
		}
		imp.messages = append(imp.messages, md)
		imp.collect(md.Enums(), md.Messages())
	}
}

func (imp *importer) define(d protoreflect.Descriptor) error {
	c, err := imp.u.Define(&typesystem.ClassDecl{Name: string(d.FullName()), Super: typesystem.Object})
	if err != nil {
		return fmt.Errorf("%s: %w", d.FullName(), err)
	}
	imp.classes[d.FullName()] = c
	imp.res.Classes = append(imp.res.Classes, c)
	return nil
}

func (imp *importer) skip(owner protoreflect.FullName, member, reason string) {
	imp.res.Skipped = append(imp.res.Skipped, fmt.Sprintf("%s.%s: %s", owner, member, reason))
}

// classType returns the class type of a message or enum.
func classType(d protoreflect.Descriptor) typesystem.Type {
	return typesystem.TCon{Name: string(d.FullName())}
}

// memberName lowercases the first letter of an RPC name.
func memberName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}
