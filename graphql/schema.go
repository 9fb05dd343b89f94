package graphql

import (
	"github.com/hanpama/graphlib/internal/executor"
	"github.com/hanpama/graphlib/internal/language"
	"github.com/hanpama/graphlib/internal/schema"
)

// Schema is an executable schema. It is immutable and safe for concurrent
// use once built.
type Schema struct {
	query        *Object
	mutation     *Object
	subscription *Object

	types     map[string]Named
	compiled  *schema.Schema
	validated *language.ValidatedSchema
	sdl       string

	// fields indexes resolved field descriptors by type and field name.
	fields map[string]map[string]*fieldEntry
	// inputs holds the resolved member types of each input object.
	inputs   map[string][]inputEntry
	executor *executor.Executor
}

type inputEntry struct {
	field *InputField
	typ   Type
}

// fieldEntry is a field descriptor with its references resolved.
type fieldEntry struct {
	field  *Field
	parent *Object
	typ    Type
	args   map[string]Type
}

func newSchema(
	cfg SchemaConfig,
	table map[string]Named,
	l *linker,
	compiled *schema.Schema,
	validated *language.ValidatedSchema,
	sdl string,
) *Schema {
	s := &Schema{
		query:        cfg.Query,
		mutation:     cfg.Mutation,
		subscription: cfg.Subscription,
		types:        table,
		compiled:     compiled,
		validated:    validated,
		sdl:          sdl,
		fields:       make(map[string]map[string]*fieldEntry),
		inputs:       make(map[string][]inputEntry),
	}

	index := func(owner string, parent *Object, fields Fields) {
		byName := make(map[string]*fieldEntry, len(fields))
		for _, f := range fields {
			e := &fieldEntry{field: f, parent: parent, typ: l.resolve(f.Type), args: make(map[string]Type, len(f.Args))}
			for name, arg := range f.Args {
				e.args[name] = l.resolve(arg)
			}
			byName[f.Name] = e
		}
		s.fields[owner] = byName
	}
	for name, t := range table {
		switch v := t.(type) {
		case *Object:
			index(name, v, v.Fields)
		case *Interface:
			index(name, nil, v.Fields)
		case *InputObject:
			entries := make([]inputEntry, len(v.Fields))
			for i, f := range v.Fields {
				entries[i] = inputEntry{field: f, typ: l.resolve(f.Type)}
			}
			s.inputs[name] = entries
		}
	}

	s.executor = executor.NewExecutor(&runtime{schema: s}, compiled)
	return s
}

func (s *Schema) QueryType() *Object        { return s.query }
func (s *Schema) MutationType() *Object     { return s.mutation }
func (s *Schema) SubscriptionType() *Object { return s.subscription }

// Type returns the named type, or nil when the schema has none by that name.
func (s *Schema) Type(name string) Named {
	return s.types[name]
}

// SDL returns the schema in GraphQL schema definition language.
func (s *Schema) SDL() string {
	return s.sdl
}

func (s *Schema) field(typeName, fieldName string) *fieldEntry {
	return s.fields[typeName][fieldName]
}
