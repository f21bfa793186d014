package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/typetoken/internal/reflection"
	"github.com/funvibe/typetoken/internal/token"
	"github.com/funvibe/typetoken/internal/typesystem"
)

// ANSI escapes
const (
	ansiBold  = "\x1b[1m"
	ansiDim   = "\x1b[2m"
	ansiCyan  = "\x1b[36m"
	ansiReset = "\x1b[0m"
)

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type printer struct {
	w     io.Writer
	color bool
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, color: useColor(w)}
}

func (p *printer) paint(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + ansiReset
}

func (p *printer) heading(s string) {
	fmt.Fprintln(p.w, p.paint(ansiBold, s))
}

func (p *printer) section(s string) {
	fmt.Fprintln(p.w, "  "+p.paint(ansiCyan, s+":"))
}

func (p *printer) item(s string) {
	fmt.Fprintln(p.w, "    "+s)
}

func (p *printer) field(name, value string) {
	fmt.Fprintf(p.w, "%s %s\n", p.paint(ansiDim, name+":"), value)
}

// members lists the executables and fields available on t as tokens, so
// the signatures are those seen through t's type arguments.
func (p *printer) members(u *reflection.Universe, t typesystem.Type) error {
	name, ok := typesystem.ClassName(t)
	if !ok {
		return fmt.Errorf("%s is not a class type", t)
	}
	class, err := u.Lookup(name)
	if err != nil {
		return err
	}

	ctors, err := token.ConstructorsOf(u, t)
	if err != nil {
		return err
	}
	statics, err := token.StaticMethodsOf(u, name)
	if err != nil {
		return err
	}
	methods, err := token.MethodsOf(u, t)
	if err != nil {
		return err
	}
	var fields []string
	for _, f := range class.Fields() {
		var ft *token.FieldToken
		if f.IsStatic() {
			ft, err = token.OverStaticField(f)
		} else {
			ft, err = token.OverField(f, t)
		}
		if err != nil {
			return err
		}
		fields = append(fields, ft.String())
	}

	p.heading(t.String())
	p.tokens("constructors", ctors)
	p.tokens("static methods", statics)
	p.tokens("methods", methods)
	if len(fields) > 0 {
		p.section("fields")
		for _, f := range fields {
			p.item(f)
		}
	}
	return nil
}

func (p *printer) tokens(section string, q *token.Query) {
	if q.Len() == 0 {
		return
	}
	p.section(section)
	for tok := range q.All() {
		p.item(tok.String())
	}
}

// classes lists declared members, in declaration order.
func (p *printer) classes(classes []*reflection.Class) {
	for _, c := range classes {
		p.heading(c.Decl().Self().String())
		for _, m := range c.Members() {
			p.item(m.String())
		}
	}
}

func (p *printer) skipped(skipped []string) {
	if len(skipped) == 0 {
		return
	}
	p.heading("skipped")
	for _, s := range skipped {
		p.item(s)
	}
}
