package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/funvibe/typetoken/internal/hostscan"
	"github.com/funvibe/typetoken/internal/reflection"
	"github.com/funvibe/typetoken/internal/stdhost"
	"github.com/funvibe/typetoken/internal/token"
	"github.com/funvibe/typetoken/internal/typesystem"
)

func newFlagSet(name, args string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: typetoken %s [flags] %s\n\nFlags:\n", name, args)
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags returns the exit code to stop with, or -1 to continue.
func parseFlags(fs *flag.FlagSet, args []string, minArgs, maxArgs int) int {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() < minArgs || (maxArgs >= 0 && fs.NArg() > maxArgs) {
		fs.Usage()
		return exitUsage
	}
	return -1
}

func runMembers(args []string, stdout, stderr io.Writer) int {
	var src sources
	fs := newFlagSet("members", "<type>", stderr)
	src.register(fs)
	if code := parseFlags(fs, args, 1, 1); code >= 0 {
		return code
	}

	u, err := src.universe(stderr)
	if err != nil {
		return fail(stderr, err)
	}
	t, err := parseType(fs.Arg(0))
	if err != nil {
		return fail(stderr, err)
	}
	p := newPrinter(stdout)
	if err := p.members(u, t); err != nil {
		return fail(stderr, err)
	}
	return exitOK
}

// selection are the flags choosing which executables of a type compete.
type selection struct {
	static bool
	ctor   bool
	target string
}

func (s *selection) register(fs *flag.FlagSet) {
	fs.BoolVar(&s.static, "static", false, "select static methods of the class")
	fs.BoolVar(&s.ctor, "new", false, "select constructors of the type")
	fs.StringVar(&s.target, "target", "", "type the result must be assignable to")
}

// query builds the candidate stream named by the positional arguments.
func (s *selection) query(u *reflection.Universe, args []string) (*token.Query, error) {
	if s.static && s.ctor {
		return nil, errors.New("-static and -new are mutually exclusive")
	}
	t, err := parseType(args[0])
	if err != nil {
		return nil, err
	}
	if s.ctor {
		if len(args) > 1 {
			return nil, errors.New("-new takes no method name")
		}
		return token.ConstructorsOf(u, t)
	}
	if len(args) < 2 {
		return nil, errors.New("method name required")
	}

	var q *token.Query
	if s.static {
		name, ok := typesystem.ClassName(t)
		if !ok {
			return nil, fmt.Errorf("%s is not a class type", t)
		}
		q, err = token.StaticMethodsOf(u, name)
	} else {
		q, err = token.MethodsOf(u, t)
	}
	if err != nil {
		return nil, err
	}
	q = q.Named(args[1])
	if q.Len() == 0 {
		return nil, fmt.Errorf("%s has no method %s", t, args[1])
	}
	return q, nil
}

// complete applies the target type, when given, and instantiates the
// remaining inference variables.
func (s *selection) complete(tok *token.ExecutableToken) (*token.ExecutableToken, error) {
	if s.target != "" {
		target, err := parseType(s.target)
		if err != nil {
			return nil, err
		}
		if tok, err = tok.WithTargetType(target); err != nil {
			return nil, err
		}
	}
	if tok.IsProper() {
		return tok, nil
	}
	return tok.Infer()
}

func runResolve(args []string, stdout, stderr io.Writer) int {
	var src sources
	var sel selection
	var types string
	fs := newFlagSet("resolve", "<type> [method]", stderr)
	src.register(fs)
	sel.register(fs)
	fs.StringVar(&types, "types", "", "argument types as a YAML list, e.g. '[String, int]'")
	if code := parseFlags(fs, args, 1, 2); code >= 0 {
		return code
	}

	u, err := src.universe(stderr)
	if err != nil {
		return fail(stderr, err)
	}
	argTypes, err := parseTypes(types)
	if err != nil {
		return fail(stderr, err)
	}
	q, err := sel.query(u, fs.Args())
	if err != nil {
		return fail(stderr, err)
	}
	log.Printf("%d candidates", q.Len())
	tok, err := q.ResolveOverload(argTypes...)
	if err != nil {
		return fail(stderr, err)
	}

	p := newPrinter(stdout)
	p.field("resolved", tok.String())
	if tok.IsVariableArity() {
		p.field("arity", "variable")
	}
	inferred, err := sel.complete(tok)
	if err != nil {
		return fail(stderr, err)
	}
	if inferred != tok {
		p.field("inferred", inferred.String())
	}
	return exitOK
}

func runInvoke(args []string, stdout, stderr io.Writer) int {
	var src sources
	var sel selection
	var values, types, receiver string
	fs := newFlagSet("invoke", "<type> [method]", stderr)
	src.register(fs)
	sel.register(fs)
	fs.StringVar(&values, "args", "", "argument values as a YAML list, e.g. '[abc, 3]'")
	fs.StringVar(&types, "types", "", "declared argument types (default: the types of the values)")
	fs.StringVar(&receiver, "receiver", "", "receiver value as YAML, for instance methods")
	if code := parseFlags(fs, args, 1, 2); code >= 0 {
		return code
	}

	u, err := src.universe(stderr)
	if err != nil {
		return fail(stderr, err)
	}
	typed, err := typedValues(values, types)
	if err != nil {
		return fail(stderr, err)
	}
	var recv any
	if !sel.static && !sel.ctor {
		if receiver == "" {
			return fail(stderr, errors.New("instance methods need -receiver"))
		}
		if recv, err = parseValue(receiver); err != nil {
			return fail(stderr, err)
		}
	}

	q, err := sel.query(u, fs.Args())
	if err != nil {
		return fail(stderr, err)
	}
	argTypes := make([]typesystem.Type, len(typed))
	for i, tv := range typed {
		argTypes[i] = tv.Type
	}
	tok, err := q.ResolveOverload(argTypes...)
	if err != nil {
		return fail(stderr, err)
	}
	if tok, err = sel.complete(tok); err != nil {
		return fail(stderr, err)
	}
	log.Printf("invoking %s", tok)

	res, err := tok.InvokeSafely(recv, typed...)
	if err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintln(stdout, formatValue(res))
	return exitOK
}

// typedValues pairs argument values with their declared types.
func typedValues(values, types string) ([]token.TypedValue, error) {
	vals, err := parseValues(values)
	if err != nil {
		return nil, err
	}
	declared, err := parseTypes(types)
	if err != nil {
		return nil, err
	}
	if types != "" && len(declared) != len(vals) {
		return nil, fmt.Errorf("%d types given for %d values", len(declared), len(vals))
	}
	out := make([]token.TypedValue, len(vals))
	for i, v := range vals {
		out[i] = token.TypedValue{Value: v, Type: stdhost.TypeOf(v)}
		if declared != nil {
			out[i].Type = declared[i]
		}
	}
	return out, nil
}

func runScan(args []string, stdout, stderr io.Writer) int {
	var src sources
	fs := newFlagSet("scan", "<package pattern>...", stderr)
	src.register(fs)
	if code := parseFlags(fs, args, 1, -1); code >= 0 {
		return code
	}

	patterns := append(src.packages, fs.Args()...)
	src.packages = nil
	src.noSchema = true
	u, err := src.universe(stderr)
	if err != nil {
		return fail(stderr, err)
	}
	res, err := hostscan.Load(u, hostscan.Options{Dir: src.dir}, patterns...)
	if err != nil {
		return fail(stderr, err)
	}
	p := newPrinter(stdout)
	p.classes(res.Classes)
	p.skipped(res.Skipped)
	return exitOK
}

func runProto(args []string, stdout, stderr io.Writer) int {
	var src sources
	fs := newFlagSet("proto", "<file.proto>...", stderr)
	src.register(fs)
	if code := parseFlags(fs, args, 1, -1); code >= 0 {
		return code
	}

	files := append(src.protos, fs.Args()...)
	src.protos = nil
	src.noSchema = true
	u, err := src.universe(stderr)
	if err != nil {
		return fail(stderr, err)
	}
	res, err := src.importProtos(u, files)
	if err != nil {
		return fail(stderr, err)
	}
	p := newPrinter(stdout)
	p.classes(res.Classes)
	p.skipped(res.Skipped)
	return exitOK
}
