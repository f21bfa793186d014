// Package hostscan imports Go packages into a reflection universe.
//
// Packages are loaded with go/packages and read through go/types. Every
// exported named type becomes a class named "pkg.Type": struct fields become
// instance fields, methods become instance methods, and a struct implements
// the interfaces of its package that its pointer type satisfies. Exported
// package funcs and constants become static members of a class named after
// the package. Funcs named NewType also become constructors of Type.
//
// Instance members are invoked by name on the receiver through package
// reflect, so any Go value with matching methods or fields can be used.
// Static members need a Go func; by default they are bound to the functions
// registered in the standard host library.
package hostscan

import (
	"fmt"
	"go/types"
	"os"
	"slices"
	"strings"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/types/typeutil"

	"github.com/funvibe/typetoken/internal/reflection"
	"github.com/funvibe/typetoken/internal/stdhost"
	"github.com/funvibe/typetoken/internal/typesystem"
)

// Options controls how packages are imported.
type Options struct {
	// Dir is the directory packages are loaded from. Empty means the
	// current directory.
	Dir string

	// Funcs returns the implementation of a package func given its
	// qualified name (e.g. "strings.ToUpper"). It defaults to stdhost.Func.
	// Funcs it cannot resolve are declared without an implementation.
	Funcs func(name string) (any, error)

	// Prototypes maps a Go type name to a value of that type. Classes with
	// a prototype get a no-argument constructor returning a new zero value.
	Prototypes map[string]any
}

// Result describes an import.
type Result struct {
	// Classes lists the declared classes, the package class last.
	Classes []*reflection.Class

	// Skipped lists the members that have no representation, with the
	// reason, as "pkg.Type.Member: reason".
	Skipped []string
}

// Load loads the packages matching patterns and imports each into u.
func Load(u *reflection.Universe, opts Options, patterns ...string) (*Result, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName |
			packages.NeedTypes |
			packages.NeedImports |
			packages.NeedDeps,
		Dir: opts.Dir,
		Env: append(os.Environ(), "GOWORK=off"),
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}

	var errs []string
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, fmt.Sprintf("%s: %s", pkg.PkgPath, e.Msg))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("package errors:\n  %s", strings.Join(errs, "\n  "))
	}

	out := &Result{}
	for _, pkg := range pkgs {
		res, err := Import(u, pkg.Types, opts)
		if err != nil {
			return nil, err
		}
		out.Classes = append(out.Classes, res.Classes...)
		out.Skipped = append(out.Skipped, res.Skipped...)
	}
	return out, nil
}

// importer carries the state of one package import.
type importer struct {
	u        *reflection.Universe
	pkg      *types.Package
	opts     Options
	exported []*types.TypeName
	named    map[*types.TypeName]*reflection.Class
	msets    typeutil.MethodSetCache
	res      *Result
}

// Import declares the exported types, funcs and constants of pkg in u.
func Import(u *reflection.Universe, pkg *types.Package, opts Options) (*Result, error) {
	if opts.Funcs == nil {
		opts.Funcs = stdhost.Func
	}
	imp := &importer{
		u:     u,
		pkg:   pkg,
		opts:  opts,
		named: make(map[*types.TypeName]*reflection.Class),
		res:   &Result{},
	}
	if err := imp.run(); err != nil {
		return nil, fmt.Errorf("importing %s: %w", pkg.Path(), err)
	}
	return imp.res, nil
}

// ClassName returns the class name of an exported Go type.
func ClassName(pkg *types.Package, typeName string) string {
	return pkg.Name() + "." + typeName
}

func (imp *importer) run() error {
	imp.exported = imp.typeNames()

	// Interfaces have no supertypes here, so declaring them first lets the
	// other types list them.
	slices.SortStableFunc(imp.exported, func(a, b *types.TypeName) int {
		return boolOrder(types.IsInterface(b.Type())) - boolOrder(types.IsInterface(a.Type()))
	})
	for _, tn := range imp.exported {
		c, err := imp.u.Define(imp.classDecl(tn))
		if err != nil {
			return err
		}
		imp.named[tn] = c
		imp.res.Classes = append(imp.res.Classes, c)
	}

	for _, tn := range imp.exported {
		if err := imp.declareMembers(tn, imp.named[tn]); err != nil {
			return err
		}
	}

	pkgClass, err := imp.u.Define(&typesystem.ClassDecl{Name: imp.pkg.Name(), Super: typesystem.Object})
	if err != nil {
		return err
	}
	imp.res.Classes = append(imp.res.Classes, pkgClass)
	return imp.declarePackageMembers(pkgClass)
}

func boolOrder(b bool) int {
	if b {
		return 1
	}
	return 0
}

// typeNames returns the exported, non-alias type names of the package in
// scope order.
func (imp *importer) typeNames() []*types.TypeName {
	var out []*types.TypeName
	scope := imp.pkg.Scope()
	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || !tn.Exported() || tn.IsAlias() {
			continue
		}
		if _, ok := tn.Type().(*types.Named); !ok {
			continue
		}
		out = append(out, tn)
	}
	return out
}

func (imp *importer) classDecl(tn *types.TypeName) *typesystem.ClassDecl {
	named := tn.Type().(*types.Named)
	name := ClassName(imp.pkg, tn.Name())
	conv := imp.converter(name)

	decl := &typesystem.ClassDecl{
		Name:       name,
		TypeParams: conv.typeParams(named.TypeParams()),
	}
	if types.IsInterface(named) {
		decl.Interface = true
		return decl
	}
	decl.Super = typesystem.Object
	if named.TypeParams().Len() > 0 {
		return decl
	}
	ptr := types.NewPointer(named)
	for _, other := range imp.exported {
		iface, ok := other.Type().Underlying().(*types.Interface)
		if !ok || other.Type().(*types.Named).TypeParams().Len() > 0 || iface.Empty() {
			continue
		}
		if types.Implements(ptr, iface) {
			decl.Interfaces = append(decl.Interfaces, typesystem.TCon{Name: ClassName(imp.pkg, other.Name())})
		}
	}
	return decl
}

func (imp *importer) skip(owner, member, reason string) {
	imp.res.Skipped = append(imp.res.Skipped, fmt.Sprintf("%s.%s: %s", owner, member, reason))
}

func (imp *importer) declareMembers(tn *types.TypeName, c *reflection.Class) error {
	named := tn.Type().(*types.Named)
	conv := imp.converter("")

	if st, ok := named.Underlying().(*types.Struct); ok {
		for i := 0; i < st.NumFields(); i++ {
			f := st.Field(i)
			if !f.Exported() {
				continue
			}
			_, err := c.AddField(reflection.FieldSpec{Name: memberName(f.Name()), Type: conv.typeOf(f.Type())})
			if err != nil {
				return err
			}
		}
	}

	if iface, ok := named.Underlying().(*types.Interface); ok {
		for i := 0; i < iface.NumMethods(); i++ {
			if err := imp.declareMethod(c, iface.Method(i)); err != nil {
				return err
			}
		}
	} else {
		for _, sel := range typeutil.IntuitiveMethodSet(named, &imp.msets) {
			fn, ok := sel.Obj().(*types.Func)
			if !ok {
				continue
			}
			if err := imp.declareMethod(c, fn); err != nil {
				return err
			}
		}
	}

	if proto, ok := imp.opts.Prototypes[tn.Name()]; ok {
		if proto == nil {
			return fmt.Errorf("%s: nil prototype", c.Name())
		}
		if _, err := c.AddConstructor(reflection.ConstructorSpec{Invoker: zeroConstructor(proto)}); err != nil {
			return err
		}
	}
	return nil
}

func (imp *importer) declareMethod(c *reflection.Class, fn *types.Func) error {
	if !fn.Exported() {
		return nil
	}
	sig := fn.Type().(*types.Signature)
	shape, reason := imp.converter("").signature(sig)
	if reason != "" {
		imp.skip(c.Name(), fn.Name(), reason)
		return nil
	}
	_, err := c.AddMethod(reflection.MethodSpec{
		Name:       memberName(fn.Name()),
		TypeParams: shape.typeParams,
		Params:     shape.params,
		Returns:    shape.returns,
		VarArgs:    shape.varArgs,
		Invoker:    methodInvoker(fn.Name(), shape.context),
	})
	return err
}

func (imp *importer) declarePackageMembers(c *reflection.Class) error {
	scope := imp.pkg.Scope()
	for _, name := range scope.Names() {
		obj := scope.Lookup(name)
		if !obj.Exported() {
			continue
		}
		switch obj := obj.(type) {
		case *types.Func:
			if err := imp.declareFunc(c, obj); err != nil {
				return err
			}
		case *types.Const:
			if err := imp.declareConst(c, obj); err != nil {
				return err
			}
		}
	}
	return nil
}

func (imp *importer) declareFunc(c *reflection.Class, fn *types.Func) error {
	sig := fn.Type().(*types.Signature)
	shape, reason := imp.converter("").signature(sig)
	if reason != "" {
		imp.skip(c.Name(), fn.Name(), reason)
		return nil
	}
	var inv reflection.Invoker
	if impl, err := imp.opts.Funcs(imp.pkg.Path() + "." + fn.Name()); err == nil && impl != nil {
		if inv, err = funcInvoker(impl, shape.context); err != nil {
			return fmt.Errorf("%s.%s: %w", c.Name(), fn.Name(), err)
		}
	}
	_, err := c.AddMethod(reflection.MethodSpec{
		Name:       memberName(fn.Name()),
		TypeParams: shape.typeParams,
		Params:     shape.params,
		Returns:    shape.returns,
		VarArgs:    shape.varArgs,
		Static:     true,
		Invoker:    inv,
	})
	if err != nil {
		return err
	}
	return imp.declareConstructor(fn, sig, shape, inv)
}

// declareConstructor adds a NewType func as a constructor of Type when it
// returns Type or *Type. For a generic Type the func must declare the same
// type parameters, which are then the class's.
func (imp *importer) declareConstructor(fn *types.Func, sig *types.Signature, shape signature, inv reflection.Invoker) error {
	typeName, ok := strings.CutPrefix(fn.Name(), "New")
	if !ok {
		return nil
	}
	tn, ok := imp.pkg.Scope().Lookup(typeName).(*types.TypeName)
	if !ok {
		return nil
	}
	c, ok := imp.named[tn]
	if !ok || types.IsInterface(tn.Type()) {
		return nil
	}
	if !returnsNamed(sig, tn) {
		return nil
	}
	decl := c.Decl()
	if len(shape.typeParams) != len(decl.TypeParams) {
		return nil
	}
	for i, p := range shape.typeParams {
		if p.Name != decl.TypeParams[i].Name {
			return nil
		}
	}
	_, err := c.AddConstructor(reflection.ConstructorSpec{
		Params:  shape.params,
		VarArgs: shape.varArgs,
		Invoker: inv,
	})
	return err
}

func returnsNamed(sig *types.Signature, tn *types.TypeName) bool {
	results := sig.Results()
	n := results.Len()
	if n > 0 && isErrorType(results.At(n-1).Type()) {
		n--
	}
	if n != 1 {
		return false
	}
	t := results.At(0).Type()
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	named, ok := t.(*types.Named)
	return ok && named.Origin().Obj() == tn
}

func (imp *importer) declareConst(c *reflection.Class, k *types.Const) error {
	typ, value, reason := constValue(k)
	if reason != "" {
		imp.skip(c.Name(), k.Name(), reason)
		return nil
	}
	_, err := c.AddField(reflection.FieldSpec{
		Name:   k.Name(),
		Type:   typ,
		Static: true,
		Get:    func(any) (any, error) { return value, nil },
	})
	return err
}

// memberName lowercases the first letter of an exported Go name.
func memberName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}
