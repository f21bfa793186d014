package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/typetoken/internal/config"
	"github.com/funvibe/typetoken/internal/hostscan"
	"github.com/funvibe/typetoken/internal/protohost"
	"github.com/funvibe/typetoken/internal/reflection"
	"github.com/funvibe/typetoken/internal/schema"
	"github.com/funvibe/typetoken/internal/stdhost"
	"github.com/funvibe/typetoken/internal/typesystem"
)

// listFlag collects the values of a repeated flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// sources are the flags shared by every command that builds a universe.
type sources struct {
	schema      string
	noSchema    bool
	packages    listFlag
	dir         string
	protos      listFlag
	importPaths listFlag
	timeout     time.Duration
	verbose     bool
}

func (s *sources) register(fs *flag.FlagSet) {
	fs.StringVar(&s.schema, "schema", "", "class schema file (default: nearest "+strings.Join(config.SchemaFileNames, " or ")+")")
	fs.BoolVar(&s.noSchema, "no-schema", false, "do not look up a class schema")
	fs.Var(&s.packages, "pkg", "Go package pattern to import (repeatable)")
	fs.StringVar(&s.dir, "dir", "", "directory Go packages are loaded from")
	fs.Var(&s.protos, "proto", ".proto file to import (repeatable)")
	fs.Var(&s.importPaths, "I", "import path for .proto files (repeatable)")
	fs.DurationVar(&s.timeout, "timeout", 0, "deadline for each RPC")
	fs.BoolVar(&s.verbose, "v", false, "log what is loaded")
}

// universe builds the standard host universe and applies every requested
// source to it.
func (s *sources) universe(stderr io.Writer) (*reflection.Universe, error) {
	verbose(s.verbose, stderr)
	u, err := stdhost.New()
	if err != nil {
		return nil, err
	}

	path := s.schema
	if path == "" && !s.noSchema {
		path, err = schema.FindSchema(".")
		if err != nil {
			return nil, err
		}
	}
	if path != "" {
		sc, err := schema.LoadSchema(path)
		if err != nil {
			return nil, err
		}
		if err := sc.Apply(u); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		log.Printf("loaded %d classes from %s", len(sc.Classes), path)
	}

	if len(s.packages) > 0 {
		res, err := hostscan.Load(u, hostscan.Options{Dir: s.dir}, s.packages...)
		if err != nil {
			return nil, err
		}
		logImport("packages", res.Classes, res.Skipped)
	}

	if len(s.protos) > 0 {
		res, err := s.importProtos(u, s.protos)
		if err != nil {
			return nil, err
		}
		logImport("proto files", res.Classes, res.Skipped)
	}
	return u, nil
}

func (s *sources) importProtos(u *reflection.Universe, files []string) (*protohost.Result, error) {
	importPaths := s.importPaths
	if len(importPaths) == 0 {
		importPaths = listFlag{"."}
	}
	reg, err := protohost.Parse(importPaths, files...)
	if err != nil {
		return nil, err
	}
	return protohost.Import(u, reg, protohost.Options{Timeout: s.timeout})
}

func logImport(what string, classes []*reflection.Class, skipped []string) {
	log.Printf("imported %d classes from %s", len(classes), what)
	for _, s := range skipped {
		log.Printf("skipped %s", s)
	}
}

// parseType reads one YAML type reference.
func parseType(src string) (typesystem.Type, error) {
	var ref schema.TypeRef
	if err := yaml.Unmarshal([]byte(src), &ref); err != nil {
		return nil, fmt.Errorf("type %q: %w", src, err)
	}
	return ref.Resolve(nil, ""), nil
}

// parseTypes reads a YAML flow list of type references.
func parseTypes(src string) ([]typesystem.Type, error) {
	if src == "" {
		return nil, nil
	}
	var refs []schema.TypeRef
	if err := yaml.Unmarshal([]byte(src), &refs); err != nil {
		return nil, fmt.Errorf("types %q: %w", src, err)
	}
	out := make([]typesystem.Type, len(refs))
	for i, r := range refs {
		out[i] = r.Resolve(nil, "")
	}
	return out, nil
}

// parseValues reads a YAML flow list of argument values. Nested sequences
// become lists.
func parseValues(src string) ([]any, error) {
	if src == "" {
		return nil, nil
	}
	var raw []any
	if err := yaml.Unmarshal([]byte(src), &raw); err != nil {
		return nil, fmt.Errorf("values %q: %w", src, err)
	}
	for i, v := range raw {
		raw[i] = hostValue(v)
	}
	return raw, nil
}

// parseValue reads a single YAML value.
func parseValue(src string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(src), &v); err != nil {
		return nil, fmt.Errorf("value %q: %w", src, err)
	}
	return hostValue(v), nil
}

func hostValue(v any) any {
	switch x := v.(type) {
	case []any:
		items := make([]any, len(x))
		for i, item := range x {
			items[i] = hostValue(item)
		}
		return &stdhost.List{Items: items}
	case uint64:
		return int64(x)
	default:
		return v
	}
}

// formatValue prints a result the way the host language would.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case []byte:
		return fmt.Sprintf("%x", x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

// useColor reports whether w is a terminal that accepts ANSI escapes.
func useColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isTerminal(f)
}
