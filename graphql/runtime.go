package graphql

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/iancoleman/strcase"
	"golang.org/x/sync/errgroup"

	"github.com/hanpama/graphlib/internal/executor"
)

type appContextKey struct{}

func withAppContext(ctx context.Context, app any) context.Context {
	if app == nil {
		return ctx
	}
	return context.WithValue(ctx, appContextKey{}, app)
}

func appContextFrom(ctx context.Context) any {
	return ctx.Value(appContextKey{})
}

// runtime connects the executor to the descriptors of a Schema.
type runtime struct {
	schema *Schema
}

var _ executor.Runtime = (*runtime)(nil)

func (r *runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	e := r.schema.field(objectType, field)
	if e == nil {
		return nil, fmt.Errorf("field %s.%s is not defined", objectType, field)
	}
	parsed, err := r.parseArgs(e, args)
	if err != nil {
		return nil, err
	}
	return resolveField(e, ResolveParams{
		Context:    ctx,
		Source:     source,
		Args:       parsed,
		AppContext: appContextFrom(ctx),
		Info: ResolveInfo{
			FieldName:  field,
			ParentType: e.parent,
			Path:       responsePath(ctx),
		},
	})
}

// BatchResolveAsync resolves every task of one depth concurrently.
func (r *runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	var g errgroup.Group
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			v, err := r.ResolveSync(executor.WithPath(ctx, task.Path), task.ObjectType, task.Field, task.Source, task.Args)
			results[i] = executor.AsyncResolveResult{Value: v, Error: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	var resolve TypeResolver
	switch t := r.schema.types[abstractType].(type) {
	case *Interface:
		resolve = t.ResolveType
	case *Union:
		resolve = t.ResolveType
	default:
		return "", fmt.Errorf("%s is not an abstract type", abstractType)
	}
	var obj *Object
	err := recoverTo(func() error {
		obj = resolve(ResolveTypeParams{Context: ctx, Value: value, AppContext: appContextFrom(ctx)})
		return nil
	})
	if err != nil {
		return "", err
	}
	if obj == nil {
		return "", fmt.Errorf("Could not determine the exact type of '%s'", abstractType)
	}
	return obj.Name, nil
}

func (r *runtime) SerializeLeafValue(_ context.Context, typeName string, value any) (any, error) {
	switch t := r.schema.types[typeName].(type) {
	case *Enum:
		return serializeEnum(t, value)
	case *Scalar:
		if t.Serialize == nil {
			return value, nil
		}
		var out any
		err := recoverTo(func() (err error) {
			out, err = t.Serialize(value)
			return err
		})
		return out, err
	}
	return nil, fmt.Errorf("%s is not a leaf type", typeName)
}

func responsePath(ctx context.Context) []any {
	path := executor.PathFromContext(ctx)
	out := make([]any, len(path))
	for i, elem := range path {
		out[i] = elem
	}
	return out
}

// recoverTo runs a user callback and turns a panic into its error.
func recoverTo(f func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if perr, ok := rec.(error); ok {
				err = perr
				return
			}
			err = fmt.Errorf("%v", rec)
		}
	}()
	return f()
}

func resolveField(e *fieldEntry, p ResolveParams) (v any, err error) {
	err = recoverTo(func() (err error) {
		switch {
		case e.field.Resolve != nil:
			v, err = e.field.Resolve(p)
		case e.field.Value != nil:
			v = e.field.Value
		default:
			v, err = property(p.Source, e.field.Name)
		}
		return err
	})
	return v, err
}

// property reads name from source: a map entry, a struct field matched by
// name or json tag, or a method without arguments.
func property(source any, name string) (any, error) {
	if source == nil {
		return nil, nil
	}
	if m, ok := source.(map[string]any); ok {
		return m[name], nil
	}

	goName := strcase.ToCamel(name)
	v := reflect.ValueOf(source)
	if method := v.MethodByName(goName); method.IsValid() {
		return callGetter(method)
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, nil
		}
		item := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		if !item.IsValid() {
			return nil, nil
		}
		return item.Interface(), nil
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() {
				continue
			}
			tag, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
			if tag == name || sf.Name == goName || (tag == "" && sf.Name == name) {
				return v.Field(i).Interface(), nil
			}
		}
	}
	return nil, nil
}

func callGetter(method reflect.Value) (any, error) {
	mt := method.Type()
	if mt.NumIn() != 0 || mt.NumOut() == 0 || mt.NumOut() > 2 {
		return nil, nil
	}
	out := method.Call(nil)
	if len(out) == 2 && !out[1].IsNil() {
		if err, ok := out[1].Interface().(error); ok {
			return nil, err
		}
	}
	return out[0].Interface(), nil
}

func serializeEnum(t *Enum, value any) (any, error) {
	for _, ev := range t.Values {
		if reflect.DeepEqual(enumValue(ev), value) {
			return ev.Name, nil
		}
	}
	if s, ok := value.(string); ok {
		for _, ev := range t.Values {
			if ev.Name == s {
				return ev.Name, nil
			}
		}
	}
	return nil, fmt.Errorf("Invalid input for Enum '%s'. Unknown value '%v'", t.Name, value)
}

func enumValue(ev *EnumValue) any {
	if ev.Value == nil {
		return ev.Name
	}
	return ev.Value
}

func coercionError(format string, args ...any) error {
	return &executor.CoercionError{Message: fmt.Sprintf(format, args...)}
}

// parseArgs converts arguments coerced by the executor into the values
// resolvers expect: enum members, parsed custom scalars and input objects
// with their defaults applied.
func (r *runtime) parseArgs(e *fieldEntry, args map[string]any) (map[string]any, error) {
	parsed := make(map[string]any, len(args))
	for name, value := range args {
		t, ok := e.args[name]
		if !ok {
			parsed[name] = value
			continue
		}
		v, err := r.parseInput(t, value)
		if err != nil {
			return nil, coercionError("argument '%s' on field '%s' is invalid: %v", name, e.field.Name, err)
		}
		parsed[name] = v
	}
	return parsed, nil
}

func (r *runtime) parseInput(t Type, value any) (any, error) {
	if nn, ok := t.(*NonNull); ok {
		if value == nil {
			return nil, fmt.Errorf("null is not allowed for non-null type")
		}
		return r.parseInput(nn.OfType, value)
	}
	if value == nil {
		return nil, nil
	}

	switch v := t.(type) {
	case *List:
		items, ok := value.([]any)
		if !ok {
			item, err := r.parseInput(v.OfType, value)
			if err != nil {
				return nil, err
			}
			return []any{item}, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			parsedItem, err := r.parseInput(v.OfType, item)
			if err != nil {
				return nil, err
			}
			out[i] = parsedItem
		}
		return out, nil
	case *Enum:
		name, ok := value.(string)
		if ok {
			for _, ev := range v.Values {
				if ev.Name == name {
					return enumValue(ev), nil
				}
			}
		}
		return nil, fmt.Errorf("Invalid input for Enum '%s'. No value found for name '%v'", v.Name, value)
	case *Scalar:
		var out any
		err := recoverTo(func() (err error) {
			switch {
			case v.ParseValue != nil:
				out, err = v.ParseValue(value)
			case v.Serialize != nil && isBuiltin(v):
				out, err = v.Serialize(value)
			default:
				out = value
			}
			return err
		})
		return out, err
	case *InputObject:
		return r.parseInputObject(v, value)
	}
	return value, nil
}

func (r *runtime) parseInputObject(t *InputObject, value any) (any, error) {
	fields, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object for input type %s, got %T", t.Name, value)
	}
	entries := r.schema.inputs[t.Name]
	known := make(map[string]bool, len(entries))
	out := make(map[string]any, len(entries))
	for _, entry := range entries {
		name := entry.field.Name
		known[name] = true
		raw, present := fields[name]
		if !present {
			if entry.field.DefaultValue == nil {
				if _, required := entry.typ.(*NonNull); required {
					return nil, fmt.Errorf("field '%s' of required input type %s was not provided", name, t.Name)
				}
				continue
			}
			raw = entry.field.DefaultValue
		}
		v, err := r.parseInput(entry.typ, raw)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", name, err)
		}
		out[name] = v
	}
	for name := range fields {
		if !known[name] {
			return nil, fmt.Errorf("field '%s' is not defined by input type %s", name, t.Name)
		}
	}
	return out, nil
}

func isBuiltin(s *Scalar) bool {
	for _, b := range builtinScalars {
		if b == s {
			return true
		}
	}
	return false
}
