package token

import (
	"fmt"

	"github.com/funvibe/typetoken/internal/inference"
	"github.com/funvibe/typetoken/internal/reflection"
	"github.com/funvibe/typetoken/internal/typesystem"
)

// FieldToken is a typed field in the context of a receiver type.
type FieldToken struct {
	memberToken
	field *reflection.Field
	typ   typesystem.Type
}

// OverField creates a token for an instance field used on receiver.
// Static fields ignore the receiver.
func OverField(field *reflection.Field, receiver typesystem.Type) (*FieldToken, error) {
	if field.IsStatic() {
		return OverStaticField(field)
	}
	table := field.DeclaringClass().Universe().Table()
	rw, container, err := containerOf(table, field.DeclaringClass().Decl(), receiver)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	t := &FieldToken{
		memberToken: memberToken{table: table, receiver: receiver, rawness: rw, container: container, bounds: newBounds(table)},
		field:       field,
	}
	t.derive()
	return t, nil
}

// OverStaticField creates a token for a static field.
func OverStaticField(field *reflection.Field) (*FieldToken, error) {
	if !field.IsStatic() {
		return nil, fmt.Errorf("%s is not static", field)
	}
	table := field.DeclaringClass().Universe().Table()
	t := &FieldToken{
		memberToken: memberToken{
			table:    table,
			receiver: typesystem.TCon{Name: field.DeclaringClass().Name()},
			bounds:   newBounds(table),
		},
		field: field,
	}
	t.derive()
	return t, nil
}

func (t *FieldToken) derive() {
	t.typ = t.shape(t.field.Type(), nil)
}

// Field returns the reflected field.
func (t *FieldToken) Field() *reflection.Field { return t.field }

// Name returns the field name.
func (t *FieldToken) Name() string { return t.field.Name() }

// Type returns the field type in this context.
func (t *FieldToken) Type() typesystem.Type { return t.typ }

// WithBounds merges additional bounds into the token's bound set.
func (t *FieldToken) WithBounds(bounds *inference.BoundSet) (*FieldToken, error) {
	bs, err := t.bounds.WithBounds(bounds)
	if err != nil {
		return nil, err
	}
	out := *t
	out.bounds = bs
	out.derive()
	return &out, nil
}

// WithReceiverType narrows the receiver to a subtype of the current one.
func (t *FieldToken) WithReceiverType(receiver typesystem.Type) (*FieldToken, error) {
	if t.field.IsStatic() {
		return nil, fmt.Errorf("%s: %w", t, ErrStaticReceiver)
	}
	mt, _, err := t.rebind(t.field.DeclaringClass().Decl(), receiver)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t, err)
	}
	out := *t
	out.memberToken = mt
	out.derive()
	return &out, nil
}

// Get reads the field from receiver.
func (t *FieldToken) Get(receiver any) (any, error) {
	if receiver == nil && !t.field.IsStatic() {
		return nil, &InvocationError{Token: t.String(), Err: ErrNilReceiver}
	}
	v, err := t.field.Get(receiver)
	if err != nil {
		return nil, &InvocationError{Token: t.String(), Err: err}
	}
	return v, nil
}

// Set writes value to the field after checking its type.
func (t *FieldToken) Set(receiver any, value TypedValue) error {
	if receiver == nil && !t.field.IsStatic() {
		return &InvocationError{Token: t.String(), Err: ErrNilReceiver}
	}
	actual := value.Type
	if actual == nil {
		actual = typesystem.TNull{}
	}
	if !t.table.IsAssignable(actual, t.bounds.Resolve(t.typ)) {
		return &UnsafeArgumentError{Index: 0, Actual: actual, Expected: t.typ}
	}
	if err := t.field.Set(receiver, value.Value); err != nil {
		return &InvocationError{Token: t.String(), Err: err}
	}
	return nil
}

func (t *FieldToken) String() string {
	return fmt.Sprintf("%s %s.%s", t.typ, t.ReceiverType(), t.field.Name())
}
