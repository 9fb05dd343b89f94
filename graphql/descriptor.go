package graphql

import (
	"context"
	"sort"

	"github.com/samber/lo"
)

// Type is any type descriptor: a named type, a List or NonNull wrapper, or a
// Reference to a named type declared elsewhere.
type Type interface {
	isType()
}

// Named is a type descriptor carrying its own name.
type Named interface {
	Type
	TypeName() string
}

// ResolverFunc computes a field value. A returned error becomes a located
// data fetching error and the field resolves to null.
type ResolverFunc func(p ResolveParams) (any, error)

// TypeResolver maps a value of an abstract type to its concrete object type.
type TypeResolver func(p ResolveTypeParams) *Object

type ResolveParams struct {
	Context context.Context
	// Source is the parent value; for root fields it is nil.
	Source any
	// Args holds the coerced arguments. Enums arrive as their underlying
	// values, custom scalars as parsed values and input objects as maps.
	Args       map[string]any
	Info       ResolveInfo
	AppContext any
}

type ResolveInfo struct {
	FieldName  string
	ParentType *Object
	Path       []any
}

type ResolveTypeParams struct {
	Context    context.Context
	Value      any
	AppContext any
}

type Object struct {
	Name        string
	Description string
	// Interfaces lists implemented interfaces as *Interface or *Reference.
	Interfaces []Type
	Fields     Fields
}

type Interface struct {
	Name        string
	Description string
	Fields      Fields
	ResolveType TypeResolver
}

type Union struct {
	Name        string
	Description string
	// Types lists member objects as *Object or *Reference.
	Types       []Type
	ResolveType TypeResolver
}

type Enum struct {
	Name        string
	Description string
	Values      []*EnumValue
}

type EnumValue struct {
	Name        string
	Description string
	// Value is what resolvers receive and return for this member. A nil
	// Value stands for the name itself.
	Value             any
	DeprecationReason string
}

// EnumValues builds members whose values are their own names.
func EnumValues(names ...string) []*EnumValue {
	return lo.Map(names, func(name string, _ int) *EnumValue {
		return &EnumValue{Name: name, Value: name}
	})
}

// EnumValueMap builds members from a name to value mapping, ordered by name.
func EnumValueMap(values map[string]any) []*EnumValue {
	names := lo.Keys(values)
	sort.Strings(names)
	return lo.Map(names, func(name string, _ int) *EnumValue {
		return &EnumValue{Name: name, Value: values[name]}
	})
}

type InputObject struct {
	Name        string
	Description string
	Fields      []*InputField
}

type InputField struct {
	Name        string
	Description string
	Type        Type
	// DefaultValue is given in input form: enum names as strings and input
	// objects as map[string]any.
	DefaultValue any
}

// Scalar is a leaf type. Serialize converts resolved values to their JSON
// form; ParseValue converts input values received from queries or variables.
// Either may be nil, in which case values pass through unchanged.
type Scalar struct {
	Name        string
	Description string
	Serialize   func(value any) (any, error)
	ParseValue  func(value any) (any, error)
}

type List struct {
	OfType Type
}

type NonNull struct {
	OfType Type
}

// Reference names a type that is resolved when the schema is built, which
// allows recursive and mutually recursive definitions.
type Reference struct {
	Name string
}

func NewList(t Type) *List                { return &List{OfType: t} }
func NewNonNull(t Type) *NonNull          { return &NonNull{OfType: t} }
func NewReference(name string) *Reference { return &Reference{Name: name} }

type Fields []*Field

type Field struct {
	Name        string
	Description string
	Type        Type
	Args        Args
	// Resolve computes the value. Without it the field takes Value when set,
	// otherwise the property of the source named like the field.
	Resolve ResolverFunc
	Value   any
	// Async fields found at the same depth resolve concurrently in one batch.
	// Root mutation fields always resolve one after another.
	Async             bool
	DeprecationReason string
}

// Args maps argument names to their input types.
type Args map[string]Type

func (a Args) names() []string {
	names := lo.Keys(a)
	sort.Strings(names)
	return names
}

func (*Object) isType()      {}
func (*Interface) isType()   {}
func (*Union) isType()       {}
func (*Enum) isType()        {}
func (*InputObject) isType() {}
func (*Scalar) isType()      {}
func (*List) isType()        {}
func (*NonNull) isType()     {}
func (*Reference) isType()   {}

func (t *Object) TypeName() string      { return t.Name }
func (t *Interface) TypeName() string   { return t.Name }
func (t *Union) TypeName() string       { return t.Name }
func (t *Enum) TypeName() string        { return t.Name }
func (t *InputObject) TypeName() string { return t.Name }
func (t *Scalar) TypeName() string      { return t.Name }
func (t *Reference) TypeName() string   { return t.Name }

// GetNamed unwraps List and NonNull layers.
func GetNamed(t Type) Named {
	for {
		switch v := t.(type) {
		case *List:
			t = v.OfType
		case *NonNull:
			t = v.OfType
		case Named:
			return v
		default:
			return nil
		}
	}
}
