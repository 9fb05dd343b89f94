package graphql

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hanpama/graphlib/internal/eventbus"
	"github.com/hanpama/graphlib/internal/events"
	"github.com/hanpama/graphlib/internal/language"
	"github.com/hanpama/graphlib/internal/schema"
)

// Builder validates descriptors and assembles them into a Schema. A Builder
// is safe for concurrent use.
type Builder struct {
	mu    sync.Mutex
	types map[string]Named
}

func NewBuilder() *Builder {
	return &Builder{types: make(map[string]Named)}
}

// SchemaConfig names the root types. Dictionary lists types that are not
// reachable from the roots, such as interface implementations.
type SchemaConfig struct {
	Query        *Object
	Mutation     *Object
	Subscription *Object
	Dictionary   []Type
}

func (b *Builder) NewObject(t *Object) (*Object, error) {
	if err := validateObject(t); err != nil {
		return nil, err
	}
	return t, b.register(t)
}

func (b *Builder) NewInterface(t *Interface) (*Interface, error) {
	if err := validateInterface(t); err != nil {
		return nil, err
	}
	return t, b.register(t)
}

func (b *Builder) NewUnion(t *Union) (*Union, error) {
	if err := validateUnion(t); err != nil {
		return nil, err
	}
	return t, b.register(t)
}

func (b *Builder) NewEnum(t *Enum) (*Enum, error) {
	if err := validateEnum(t); err != nil {
		return nil, err
	}
	return t, b.register(t)
}

func (b *Builder) NewInputObject(t *InputObject) (*InputObject, error) {
	if err := validateInputObject(t); err != nil {
		return nil, err
	}
	return t, b.register(t)
}

func (b *Builder) NewScalar(t *Scalar) (*Scalar, error) {
	if t == nil || t.Name == "" {
		return nil, missing("", "", "name")
	}
	return t, b.register(t)
}

// Lookup returns the type registered under name.
func (b *Builder) Lookup(name string) (Named, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.types[name]
	return t, ok
}

func (b *Builder) register(t Named) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if prev, ok := b.types[t.TypeName()]; ok && prev != t {
		return duplicate(t.TypeName())
	}
	b.types[t.TypeName()] = t
	return nil
}

func (b *Builder) registered() []Named {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.types))
	for name := range b.types {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Named, len(names))
	for i, name := range names {
		out[i] = b.types[name]
	}
	return out
}

// BuildSchema assembles an executable schema. Every reference is resolved
// against the types reachable from the roots, the dictionary and the types
// registered with this builder; any failure aborts the build.
func (b *Builder) BuildSchema(cfg SchemaConfig) (*Schema, error) {
	start := time.Now()
	s, err := b.buildSchema(cfg)
	finish := events.SchemaBuild{Duration: time.Since(start), Err: err}
	if s != nil {
		finish.Types = len(s.types)
	}
	eventbus.Publish(context.Background(), finish)
	return s, err
}

func (b *Builder) buildSchema(cfg SchemaConfig) (*Schema, error) {
	if cfg.Query == nil {
		return nil, missing("", "", "query")
	}

	c := &collector{table: make(map[string]Named), seen: make(map[Type]bool)}
	for _, t := range builtinScalars {
		c.table[t.Name] = t
	}
	roots := []Type{cfg.Query}
	if cfg.Mutation != nil {
		roots = append(roots, cfg.Mutation)
	}
	if cfg.Subscription != nil {
		roots = append(roots, cfg.Subscription)
	}
	roots = append(roots, cfg.Dictionary...)
	for _, t := range b.registered() {
		roots = append(roots, t)
	}
	for _, t := range roots {
		if err := c.collect(t); err != nil {
			return nil, err
		}
	}

	l := &linker{table: c.table, resolved: make(map[Type]Type)}
	compiled, err := l.compile(cfg)
	if err != nil {
		return nil, err
	}

	sdl := schema.Render(compiled)
	validated, err := language.LoadSchema("schema.graphql", sdl)
	if err != nil {
		return nil, &SchemaDefinitionError{Kind: InvalidSchema, Message: err.Error(), Err: err}
	}

	return newSchema(cfg, c.table, l, compiled, validated, sdl), nil
}

// collector gathers every named descriptor into a name table, validating
// each on first sight.
type collector struct {
	table map[string]Named
	seen  map[Type]bool
}

func (c *collector) collect(t Type) error {
	if t == nil || c.seen[t] {
		return nil
	}
	c.seen[t] = true

	switch v := t.(type) {
	case *List:
		return c.collect(v.OfType)
	case *NonNull:
		return c.collect(v.OfType)
	case *Reference:
		if v.Name == "" {
			return missing("", "", "name")
		}
		return nil
	}

	named := t.(Named)
	var err error
	switch v := t.(type) {
	case *Object:
		err = validateObject(v)
	case *Interface:
		err = validateInterface(v)
	case *Union:
		err = validateUnion(v)
	case *Enum:
		err = validateEnum(v)
	case *InputObject:
		err = validateInputObject(v)
	case *Scalar:
		if v.Name == "" {
			err = missing("", "", "name")
		}
	}
	if err != nil {
		return err
	}
	if prev, ok := c.table[named.TypeName()]; ok && prev != named {
		return duplicate(named.TypeName())
	}
	c.table[named.TypeName()] = named

	switch v := t.(type) {
	case *Object:
		for _, iface := range v.Interfaces {
			if err := c.collect(iface); err != nil {
				return err
			}
		}
		return c.collectFields(v.Fields)
	case *Interface:
		return c.collectFields(v.Fields)
	case *Union:
		for _, member := range v.Types {
			if err := c.collect(member); err != nil {
				return err
			}
		}
	case *InputObject:
		for _, f := range v.Fields {
			if err := c.collect(f.Type); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *collector) collectFields(fields Fields) error {
	for _, f := range fields {
		if err := c.collect(f.Type); err != nil {
			return err
		}
		for _, name := range f.Args.names() {
			if err := c.collect(f.Args[name]); err != nil {
				return err
			}
		}
	}
	return nil
}

// linker resolves references against the name table and compiles the
// descriptors into the executable schema graph.
type linker struct {
	table    map[string]Named
	resolved map[Type]Type
}

type position int

const (
	outputPosition position = iota
	inputPosition
)

func (l *linker) compile(cfg SchemaConfig) (*schema.Schema, error) {
	s := schema.NewSchema("").SetQueryType(cfg.Query.Name)
	if cfg.Mutation != nil {
		s.SetMutationType(cfg.Mutation.Name)
	}
	if cfg.Subscription != nil {
		s.SetSubscriptionType(cfg.Subscription.Name)
	}

	names := make([]string, 0, len(l.table))
	for name := range l.table {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		var (
			t   *schema.Type
			err error
		)
		switch v := l.table[name].(type) {
		case *Scalar:
			if schema.IsBuiltinScalar(v.Name) {
				continue
			}
			t = schema.NewType(v.Name, schema.TypeKindScalar, v.Description)
		case *Object:
			t, err = l.compileObject(v, cfg.Mutation != nil && v == cfg.Mutation)
		case *Interface:
			t = schema.NewType(v.Name, schema.TypeKindInterface, v.Description)
			err = l.compileFields(t, v.Name, v.Fields, false)
		case *Union:
			t, err = l.compileUnion(v)
		case *Enum:
			t = schema.NewType(v.Name, schema.TypeKindEnum, v.Description)
			for _, ev := range v.Values {
				sv := schema.NewEnumValue(ev.Name, ev.Description)
				if ev.DeprecationReason != "" {
					sv.Deprecate(ev.DeprecationReason)
				}
				t.AddEnumValue(sv)
			}
		case *InputObject:
			t, err = l.compileInputObject(v)
		}
		if err != nil {
			return nil, err
		}
		s.AddType(t)
	}
	return s, nil
}

func (l *linker) compileObject(v *Object, serial bool) (*schema.Type, error) {
	t := schema.NewType(v.Name, schema.TypeKindObject, v.Description)
	for _, iface := range v.Interfaces {
		named, err := l.lookup(iface, v.Name, "")
		if err != nil {
			return nil, err
		}
		if _, ok := named.(*Interface); !ok {
			return nil, invalid(v.Name, "", fmt.Sprintf("%s is not an interface", named.TypeName()))
		}
		t.AddInterface(named.TypeName())
	}
	return t, l.compileFields(t, v.Name, v.Fields, serial)
}

func (l *linker) compileUnion(v *Union) (*schema.Type, error) {
	t := schema.NewType(v.Name, schema.TypeKindUnion, v.Description)
	for _, member := range v.Types {
		named, err := l.lookup(member, v.Name, "")
		if err != nil {
			return nil, err
		}
		if _, ok := named.(*Object); !ok {
			return nil, invalid(v.Name, "", fmt.Sprintf("union member %s is not an object type", named.TypeName()))
		}
		t.AddPossibleType(named.TypeName())
	}
	return t, nil
}

func (l *linker) compileInputObject(v *InputObject) (*schema.Type, error) {
	t := schema.NewType(v.Name, schema.TypeKindInputObject, v.Description)
	for _, f := range v.Fields {
		ref, err := l.ref(f.Type, inputPosition, v.Name, f.Name)
		if err != nil {
			return nil, err
		}
		t.AddInputField(schema.NewInputValue(f.Name, f.Description, ref).SetDefault(f.DefaultValue))
	}
	return t, nil
}

func (l *linker) compileFields(t *schema.Type, owner string, fields Fields, serial bool) error {
	for _, f := range fields {
		ref, err := l.ref(f.Type, outputPosition, owner, f.Name)
		if err != nil {
			return err
		}
		sf := schema.NewField(f.Name, f.Description, ref).SetAsync(f.Async && !serial)
		if f.DeprecationReason != "" {
			sf.Deprecate(f.DeprecationReason)
		}
		for _, name := range f.Args.names() {
			argRef, err := l.ref(f.Args[name], inputPosition, owner, f.Name)
			if err != nil {
				return err
			}
			sf.AddArgument(schema.NewInputValue(name, "", argRef))
		}
		t.AddField(sf)
	}
	return nil
}

// ref converts a descriptor type into a type reference, resolving
// references and checking that the named type may appear at pos.
func (l *linker) ref(t Type, pos position, owner, field string) (*schema.TypeRef, error) {
	switch v := t.(type) {
	case *List:
		inner, err := l.ref(v.OfType, pos, owner, field)
		if err != nil {
			return nil, err
		}
		return schema.ListType(inner), nil
	case *NonNull:
		if _, ok := v.OfType.(*NonNull); ok {
			return nil, invalid(owner, field, "non-null of non-null type")
		}
		inner, err := l.ref(v.OfType, pos, owner, field)
		if err != nil {
			return nil, err
		}
		return schema.NonNullType(inner), nil
	}

	named, err := l.lookup(t, owner, field)
	if err != nil {
		return nil, err
	}
	switch named.(type) {
	case *Object, *Interface, *Union:
		if pos == inputPosition {
			return nil, invalid(owner, field, fmt.Sprintf("%s is an output type and cannot be used as input", named.TypeName()))
		}
	case *InputObject:
		if pos == outputPosition {
			return nil, invalid(owner, field, fmt.Sprintf("%s is an input type and cannot be used as output", named.TypeName()))
		}
	}
	return schema.NamedType(named.TypeName()), nil
}

func (l *linker) lookup(t Type, owner, field string) (Named, error) {
	switch v := t.(type) {
	case nil:
		return nil, missing(owner, field, "type")
	case *Reference:
		named, ok := l.table[v.Name]
		if !ok {
			return nil, &SchemaDefinitionError{
				Kind:    UnresolvedTypeReference,
				Type:    owner,
				Field:   field,
				Message: fmt.Sprintf("type reference '%s' cannot be resolved", v.Name),
			}
		}
		return named, nil
	case Named:
		return v, nil
	}
	return nil, invalid(owner, field, fmt.Sprintf("unsupported type %T", t))
}

// resolve returns t with every reference replaced by the named type it
// stands for. Results are memoized so that each reference resolves once.
func (l *linker) resolve(t Type) Type {
	if r, ok := l.resolved[t]; ok {
		return r
	}
	var r Type
	switch v := t.(type) {
	case *List:
		r = &List{OfType: l.resolve(v.OfType)}
	case *NonNull:
		r = &NonNull{OfType: l.resolve(v.OfType)}
	case *Reference:
		r = l.table[v.Name]
	default:
		r = t
	}
	l.resolved[t] = r
	return r
}

func validateObject(t *Object) error {
	if t == nil || t.Name == "" {
		return missing("", "", "name")
	}
	if len(t.Fields) == 0 {
		return missing(t.Name, "", "fields")
	}
	return validateFields(t.Name, t.Fields)
}

func validateInterface(t *Interface) error {
	if t == nil || t.Name == "" {
		return missing("", "", "name")
	}
	if len(t.Fields) == 0 {
		return missing(t.Name, "", "fields")
	}
	if t.ResolveType == nil {
		return missing(t.Name, "", "typeResolver")
	}
	return validateFields(t.Name, t.Fields)
}

func validateUnion(t *Union) error {
	if t == nil || t.Name == "" {
		return missing("", "", "name")
	}
	if len(t.Types) == 0 {
		return &SchemaDefinitionError{
			Kind:    EmptyUnion,
			Type:    t.Name,
			Key:     "types",
			Message: "Value 'types' is required and cannot be empty",
		}
	}
	if t.ResolveType == nil {
		return missing(t.Name, "", "typeResolver")
	}
	return nil
}

func validateEnum(t *Enum) error {
	if t == nil || t.Name == "" {
		return missing("", "", "name")
	}
	if len(t.Values) == 0 {
		return missing(t.Name, "", "values")
	}
	for _, v := range t.Values {
		if v == nil || v.Name == "" {
			return missing(t.Name, "", "name")
		}
	}
	return nil
}

func validateInputObject(t *InputObject) error {
	if t == nil || t.Name == "" {
		return missing("", "", "name")
	}
	if len(t.Fields) == 0 {
		return missing(t.Name, "", "fields")
	}
	for _, f := range t.Fields {
		if f == nil || f.Name == "" {
			return missing(t.Name, "", "name")
		}
		if f.Type == nil {
			return missing(t.Name, f.Name, "type")
		}
	}
	return nil
}

func validateFields(owner string, fields Fields) error {
	for _, f := range fields {
		if f == nil || f.Name == "" {
			return missing(owner, "", "name")
		}
		if f.Type == nil {
			return missing(owner, f.Name, "type")
		}
		for name, arg := range f.Args {
			if arg == nil {
				return missing(owner, f.Name+"."+name, "type")
			}
		}
	}
	return nil
}

func duplicate(name string) *SchemaDefinitionError {
	return &SchemaDefinitionError{
		Kind:    DuplicateType,
		Type:    name,
		Message: fmt.Sprintf("type name '%s' is defined more than once", name),
	}
}

func invalid(owner, field, message string) *SchemaDefinitionError {
	return &SchemaDefinitionError{Kind: InvalidType, Type: owner, Field: field, Message: message}
}
