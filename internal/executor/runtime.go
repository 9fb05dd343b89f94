package executor

import (
	"context"
)

// Runtime defines the host integration surface for field resolution, batching,
// abstract type resolution, and leaf-value serialization used by the Executor.
//
// General contract
//   - The Executor performs a breadth-first execution. At each depth it drains all
//     synchronous fields first via ResolveSync, then calls BatchResolveAsync ONCE
//     with all async tasks collected at that depth. The next depth does not begin
//     until BatchResolveAsync returns and those results are completed.
//   - ResolveSync is never invoked for fields marked async, except for the
//     root field of a subscription, which is always resolved through
//     ResolveSync to obtain its source stream.
//   - Errors returned from any method are converted into located GraphQL errors.
//     If the field's return type is Non-Null, the Executor will propagate the
//     null up to the nearest nullable ancestor.
//   - Implementations must be concurrency-safe. The Executor may call these
//     methods concurrently for different operations.
//   - Implementations must not mutate source or args values.
//
// Object/field identifiers
//   - objectType is the GraphQL type name (e.g. "User").
//   - field is the GraphQL field name on that type (e.g. "posts").
//   - source is the parent object value (the root value for root fields).
//   - args is the map of argument names to values coerced for the builtin
//     scalars; enums arrive as names and custom scalars as their raw input.
//
// Partial success and determinism
//   - BatchResolveAsync must return one AsyncResolveResult per task, in task
//     order. Failures in one element do not affect others.
//
// Errors
//   - A *CoercionError from ResolveSync or BatchResolveAsync is reported as a
//     validation error; any other error as a data fetching error whose Err
//     field keeps the original value.
type Runtime interface {
	// ResolveSync resolves a synchronous field value immediately.
	// Return (nil, nil) to produce a GraphQL null for nullable fields.
	ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves one execution depth of async field tasks.
	// Return len(results) == len(tasks) with results[i] answering tasks[i].
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType determines the concrete object type name for a value of an
	// abstract type (interface or union).
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue serializes a scalar or enum value to a JSON-safe Go
	// value. For enums, return the symbolic name as string.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

type AsyncResolveTask struct {
	// ObjectType is the parent GraphQL object type name for the field.
	ObjectType string
	// Field is the GraphQL field name to resolve.
	Field string
	// Source is the parent object value.
	Source any
	// Args are the field arguments, coerced to Go values per the schema.
	Args map[string]any
	// Path is the response path of the field.
	Path Path
}

type AsyncResolveResult struct {
	// Value is the resolved raw value prior to completion, or nil on error.
	Value any
	// Error contains a failure specific to this element; other elements in the
	// same batch are unaffected.
	Error error
}

type pathKey struct{}

// WithPath returns a context carrying the response path of the field being
// resolved. ResolveSync receives such a context.
func WithPath(ctx context.Context, path Path) context.Context {
	return context.WithValue(ctx, pathKey{}, path)
}

// PathFromContext returns the response path stored by WithPath.
func PathFromContext(ctx context.Context) Path {
	p, _ := ctx.Value(pathKey{}).(Path)
	return p
}
