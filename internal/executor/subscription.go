package executor

import (
	"context"
	"fmt"

	language "github.com/hanpama/graphlib/internal/language"
	schema "github.com/hanpama/graphlib/internal/schema"
)

// Subscribe resolves the source event stream of a subscription operation.
//
// The single root field is resolved through ResolveSync regardless of its
// Async flag and the raw value is returned untouched; interpreting it as a
// stream is up to the caller. On failure the stream is nil and the result
// carries the errors.
func (e *Executor) Subscribe(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) (any, *ExecutionResult) {
	state, rootType, field, failed := e.prepareSubscription(ctx, document, operationName, variableValues)
	if failed != nil {
		return nil, failed
	}
	fields := field.Fields
	path := Path{field.ResponseName}

	fieldDef := getFieldDefinition(rootType, fields[0].Name)
	if fieldDef == nil {
		state.addError(ErrorKindValidation, fmt.Sprintf("Cannot query field '%s' on type '%s'", fields[0].Name, rootType.Name), nil, fields, path)
		return nil, &ExecutionResult{Errors: state.errors}
	}

	args := coerceArgumentValues(fieldDef, fields, state.variableValues, state, path)
	if len(state.errors) > 0 {
		return nil, &ExecutionResult{Errors: state.errors}
	}

	stream, err := state.runtime.ResolveSync(WithPath(ctx, path), rootType.Name, fieldDef.Name, initialValue, args)
	if err != nil {
		state.addError(kindOf(err), err.Error(), err, fields, path)
		return nil, &ExecutionResult{Errors: state.errors}
	}
	if isNullish(stream) {
		state.addError(ErrorKindDataFetching, fmt.Sprintf("Subscription field %s did not return a source stream", fieldDef.Name), nil, fields, path)
		return nil, &ExecutionResult{Errors: state.errors}
	}
	return stream, nil
}

// ExecuteSubscriptionEvent executes the selection set of a subscription
// operation for one event, using the event as the root field's value.
func (e *Executor) ExecuteSubscriptionEvent(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	event any,
) *ExecutionResult {
	state, rootType, field, failed := e.prepareSubscription(ctx, document, operationName, variableValues)
	if failed != nil {
		return failed
	}
	fields := field.Fields
	path := Path{field.ResponseName}

	fieldDef := getFieldDefinition(rootType, fields[0].Name)
	if fieldDef == nil {
		state.addError(ErrorKindValidation, fmt.Sprintf("Cannot query field '%s' on type '%s'", fields[0].Name, rootType.Name), nil, fields, path)
		return &ExecutionResult{Errors: state.errors}
	}

	responseRoot := make(map[string]any)
	state.nonNull[pathToString(path)] = schema.IsNonNull(fieldDef.Type)
	completed := completeValue(state, fieldDef.Type, fields, event, path)
	if isNullish(completed) {
		responseRoot[field.ResponseName] = nil
		if schema.IsNonNull(fieldDef.Type) {
			state.dataNull = true
		}
	} else {
		responseRoot[field.ResponseName] = completed
	}

	state.drain(responseRoot)

	return state.result(responseRoot)
}

func (e *Executor) prepareSubscription(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
) (*executionState, *schema.Type, collectedField, *ExecutionResult) {
	state, operation, rootType, failed := e.prepare(ctx, document, operationName, variableValues)
	if failed != nil {
		return nil, nil, collectedField{}, failed
	}
	if operation.Operation != language.Subscription {
		return nil, nil, collectedField{}, errorResult(ErrorKindOperationNotSupported, fmt.Sprintf("operation type %s is not a subscription", operation.Operation))
	}

	grouped := collectFields(state, rootType, operation.SelectionSet).orderedFields()
	if len(grouped) != 1 {
		return nil, nil, collectedField{}, errorResult(ErrorKindValidation, "Subscription operations must select exactly one top level field.")
	}
	return state, rootType, grouped[0], nil
}
