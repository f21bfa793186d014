// Package schema loads class declarations written in YAML into a
// reflection universe.
//
// A schema lists classes with their type parameters, supertypes,
// constructors, methods and fields. Member implementations are bound by
// name to Go funcs registered in the standard host library; members
// without one are declared but fail when invoked.
package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/typetoken/internal/config"
)

// Schema is the top-level content of a schema file.
type Schema struct {
	// Classes are declared in order; supertypes must come first.
	Classes []ClassSpec `yaml:"classes"`
}

// ClassSpec declares one class or interface.
type ClassSpec struct {
	Name       string          `yaml:"name"`
	Interface  bool            `yaml:"interface,omitempty"`
	TypeParams []TypeParamSpec `yaml:"type_params,omitempty"`

	// Super defaults to Object for classes. Interfaces have none.
	Super      *TypeRef  `yaml:"super,omitempty"`
	Interfaces []TypeRef `yaml:"interfaces,omitempty"`

	Constructors []ConstructorSpec `yaml:"constructors,omitempty"`
	Methods      []MethodSpec      `yaml:"methods,omitempty"`
	Fields       []FieldSpec       `yaml:"fields,omitempty"`
}

// TypeParamSpec declares a type parameter and its upper bounds.
type TypeParamSpec struct {
	Name   string    `yaml:"name"`
	Bounds []TypeRef `yaml:"bounds,omitempty"`
}

// ParamSpec declares a method or constructor parameter.
type ParamSpec struct {
	Name string  `yaml:"name,omitempty"`
	Type TypeRef `yaml:"type"`
}

// MethodSpec declares a method.
type MethodSpec struct {
	Name       string          `yaml:"name"`
	Static     bool            `yaml:"static,omitempty"`
	TypeParams []TypeParamSpec `yaml:"type_params,omitempty"`
	Params     []ParamSpec     `yaml:"params,omitempty"`

	// Returns defaults to void.
	Returns *TypeRef `yaml:"returns,omitempty"`

	// VarArgs makes the last parameter, which must be an array, variable arity.
	VarArgs bool `yaml:"varargs,omitempty"`

	// Impl names a registered Go func (e.g. "strings.ToUpper"). Instance
	// methods receive the receiver as the first argument.
	Impl string `yaml:"impl,omitempty"`
}

// ConstructorSpec declares a constructor. Without Impl, the constructor
// creates an *Object whose fields named like the parameters are set from
// the arguments.
type ConstructorSpec struct {
	TypeParams []TypeParamSpec `yaml:"type_params,omitempty"`
	Params     []ParamSpec     `yaml:"params,omitempty"`
	VarArgs    bool            `yaml:"varargs,omitempty"`
	Impl       string          `yaml:"impl,omitempty"`
}

// FieldSpec declares a field. Value is the initial value of a static field
// or the default value of an instance field.
type FieldSpec struct {
	Name   string  `yaml:"name"`
	Type   TypeRef `yaml:"type"`
	Static bool    `yaml:"static,omitempty"`
	Final  bool    `yaml:"final,omitempty"`
	Value  any     `yaml:"value,omitempty"`
}

// LoadSchema reads and parses a schema file.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema %s: %w", path, err)
	}
	return ParseSchema(data, path)
}

// ParseSchema parses schema content from bytes.
// The path argument is used only for error messages.
func ParseSchema(data []byte, path string) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := s.validate(path); err != nil {
		return nil, err
	}
	s.setDefaults()
	return &s, nil
}

// FindSchema searches for a schema file starting from dir and walking up
// to parent directories. It returns an empty path and nil error if none is
// found.
func FindSchema(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		for _, name := range config.SchemaFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// validate checks the schema for structural errors. Type references are
// checked when the schema is applied to a universe.
func (s *Schema) validate(path string) error {
	if len(s.Classes) == 0 {
		return fmt.Errorf("%s: no classes defined", path)
	}
	seenClasses := make(map[string]bool)
	for i, c := range s.Classes {
		if c.Name == "" {
			return fmt.Errorf("%s: classes[%d]: name is required", path, i)
		}
		if seenClasses[c.Name] {
			return fmt.Errorf("%s: classes[%d]: class %s is declared twice", path, i, c.Name)
		}
		seenClasses[c.Name] = true

		if c.Interface && c.Super != nil {
			return fmt.Errorf("%s: classes[%d] (%s): an interface cannot have super", path, i, c.Name)
		}
		if c.Interface && len(c.Constructors) > 0 {
			return fmt.Errorf("%s: classes[%d] (%s): an interface cannot have constructors", path, i, c.Name)
		}
		if err := validateTypeParams(c.TypeParams); err != nil {
			return fmt.Errorf("%s: classes[%d] (%s): %w", path, i, c.Name, err)
		}

		for j, m := range c.Methods {
			if m.Name == "" {
				return fmt.Errorf("%s: classes[%d].methods[%d] (%s): name is required", path, i, j, c.Name)
			}
			if m.Name == config.ConstructorName {
				return fmt.Errorf("%s: classes[%d].methods[%d] (%s): use constructors to declare %s", path, i, j, c.Name, m.Name)
			}
			if err := validateTypeParams(m.TypeParams); err != nil {
				return fmt.Errorf("%s: classes[%d].methods[%d] (%s.%s): %w", path, i, j, c.Name, m.Name, err)
			}
			if m.VarArgs && !lastIsArray(m.Params) {
				return fmt.Errorf("%s: classes[%d].methods[%d] (%s.%s): varargs needs an array as last parameter",
					path, i, j, c.Name, m.Name)
			}
		}
		for j, ctor := range c.Constructors {
			if err := validateTypeParams(ctor.TypeParams); err != nil {
				return fmt.Errorf("%s: classes[%d].constructors[%d] (%s): %w", path, i, j, c.Name, err)
			}
			if ctor.VarArgs && !lastIsArray(ctor.Params) {
				return fmt.Errorf("%s: classes[%d].constructors[%d] (%s): varargs needs an array as last parameter",
					path, i, j, c.Name)
			}
		}

		seenFields := make(map[string]bool)
		for j, f := range c.Fields {
			if f.Name == "" {
				return fmt.Errorf("%s: classes[%d].fields[%d] (%s): name is required", path, i, j, c.Name)
			}
			if seenFields[f.Name] {
				return fmt.Errorf("%s: classes[%d].fields[%d] (%s): field %s is declared twice", path, i, j, c.Name, f.Name)
			}
			seenFields[f.Name] = true
		}
	}
	return nil
}

func validateTypeParams(params []TypeParamSpec) error {
	seen := make(map[string]bool)
	for i, p := range params {
		if p.Name == "" {
			return fmt.Errorf("type_params[%d]: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("type parameter %s is declared twice", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

func lastIsArray(params []ParamSpec) bool {
	return len(params) > 0 && params[len(params)-1].Type.Array != nil
}

// setDefaults fills in default values for omitted fields.
func (s *Schema) setDefaults() {
	for i := range s.Classes {
		c := &s.Classes[i]
		if c.Super == nil && !c.Interface {
			c.Super = &TypeRef{Name: config.ObjectClassName}
		}
		for j := range c.Methods {
			if c.Methods[j].Returns == nil {
				c.Methods[j].Returns = &TypeRef{Name: config.VoidPrimName}
			}
		}
	}
}
