package executor

import "errors"

// ErrorKind classifies an execution error for the caller's error envelope.
type ErrorKind string

const (
	ErrorKindDataFetching          ErrorKind = "DataFetchingException"
	ErrorKindNullValue             ErrorKind = "NullValueInNonNullableField"
	ErrorKindValidation            ErrorKind = "ValidationError"
	ErrorKindOperationNotSupported ErrorKind = "OperationNotSupported"
	ErrorKindExecution             ErrorKind = "ExecutionAborted"
)

// Location is a 1-based position in the query document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`

	Kind ErrorKind `json:"-"`
	// Err is the underlying error returned by the runtime, if any.
	Err error `json:"-"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

func (e GraphQLError) Unwrap() error {
	return e.Err
}

// ExecutionResult represents the result of executing a GraphQL query.
// Data is untyped nil when execution did not start and a nil
// map[string]any when a null propagated to the root.
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// CoercionError is returned by a Runtime when an input value cannot be
// converted to its declared type. The executor reports it as a validation
// error instead of a data fetching error.
type CoercionError struct {
	Message string
}

func (e *CoercionError) Error() string {
	return e.Message
}

func kindOf(err error) ErrorKind {
	var ce *CoercionError
	if errors.As(err, &ce) {
		return ErrorKindValidation
	}
	return ErrorKindDataFetching
}
