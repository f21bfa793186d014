package schema

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/typetoken/internal/typesystem"
)

// TypeRef is a type written in a schema. It is never parsed from source
// syntax; the YAML structure carries the shape:
//
//	String                      a class, primitive or type parameter
//	{class: List, args: [T]}    a parameterized class
//	{array: int}                an array
type TypeRef struct {
	Name  string
	Args  []TypeRef
	Array *TypeRef
}

type typeRefNode struct {
	Class string    `yaml:"class,omitempty"`
	Args  []TypeRef `yaml:"args,omitempty"`
	Array *TypeRef  `yaml:"array,omitempty"`
}

// UnmarshalYAML accepts either a scalar name or a mapping.
func (r *TypeRef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			return fmt.Errorf("line %d: empty type", node.Line)
		}
		*r = TypeRef{Name: node.Value}
		return nil
	case yaml.MappingNode:
		var n typeRefNode
		if err := node.Decode(&n); err != nil {
			return err
		}
		switch {
		case n.Array != nil && (n.Class != "" || len(n.Args) > 0):
			return fmt.Errorf("line %d: array and class are mutually exclusive", node.Line)
		case n.Array != nil:
			*r = TypeRef{Array: n.Array}
		case n.Class != "":
			*r = TypeRef{Name: n.Class, Args: n.Args}
		default:
			return fmt.Errorf("line %d: type needs class or array", node.Line)
		}
		return nil
	default:
		return fmt.Errorf("line %d: type must be a name or a mapping", node.Line)
	}
}

// MarshalYAML writes the shortest form that reads back the same.
func (r TypeRef) MarshalYAML() (any, error) {
	switch {
	case r.Array != nil:
		return map[string]any{"array": *r.Array}, nil
	case len(r.Args) > 0:
		return typeRefNode{Class: r.Name, Args: r.Args}, nil
	default:
		return r.Name, nil
	}
}

func (r TypeRef) String() string {
	switch {
	case r.Array != nil:
		return r.Array.String() + "[]"
	case len(r.Args) > 0:
		parts := make([]string, len(r.Args))
		for i, a := range r.Args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("%s<%s>", r.Name, strings.Join(parts, ", "))
	default:
		return r.Name
	}
}

// Resolve converts the reference to a type. Names listed in params refer
// to type parameters of owner; other names are primitives or classes.
// Whether the classes exist is checked when members are declared.
func (r TypeRef) Resolve(params []string, owner string) typesystem.Type {
	if r.Array != nil {
		return typesystem.ArrayOf(r.Array.Resolve(params, owner))
	}
	if len(r.Args) == 0 {
		if slices.Contains(params, r.Name) {
			return typesystem.TParam{Owner: owner, Name: r.Name}
		}
		if p, ok := typesystem.PrimitiveByName(r.Name); ok {
			return p
		}
		return typesystem.TCon{Name: r.Name}
	}
	args := make([]typesystem.Type, len(r.Args))
	for i, a := range r.Args {
		args[i] = a.Resolve(params, owner)
	}
	return typesystem.Class(r.Name, args...)
}
