package graphql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/hanpama/graphlib/internal/eventbus"
	"github.com/hanpama/graphlib/internal/events"
	"github.com/hanpama/graphlib/internal/executor"
	"github.com/hanpama/graphlib/internal/language"
	"github.com/hanpama/graphlib/rx"
)

// Params describes one GraphQL request.
type Params struct {
	Schema        *Schema
	Query         string
	OperationName string
	Variables     map[string]any
	// AppContext is handed to every resolver and type resolver.
	AppContext any
	// RootValue is the source of root fields.
	RootValue any
	// KeepNulls keeps null members of response objects, which are otherwise
	// omitted.
	KeepNulls bool
}

// Result is the response to a request. Data is nil when execution did not
// start or when a non-null root field failed; DataNull tells the two apart.
// Stream is set instead of Data for subscription operations and publishes
// one *Result per source event.
type Result struct {
	Data   map[string]any
	Errors []*Error
	Stream rx.Publisher
	// DataNull reports that execution started and null propagated to the
	// root, so the response carries "data": null.
	DataNull bool
}

// MarshalJSON renders the standard response shape. An empty data object is
// kept, null data is written as null and absent data is omitted.
func (r *Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 2)
	if r.Data != nil || r.DataNull {
		out["data"] = r.Data
	}
	if len(r.Errors) > 0 {
		out["errors"] = r.Errors
	}
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(out)
}

// HasErrors reports whether the result carries errors.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error types reported in Error.ErrorType.
const (
	ErrorTypeInvalidSyntax         = "InvalidSyntax"
	ErrorTypeValidation            = "ValidationError"
	ErrorTypeDataFetching          = "DataFetchingException"
	ErrorTypeNullValue             = "NullValueInNonNullableField"
	ErrorTypeOperationNotSupported = "OperationNotSupported"
	ErrorTypeExecutionAborted      = "ExecutionAborted"
)

type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type Exception struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Error is one entry of a response's errors list.
type Error struct {
	Message             string         `json:"message"`
	ErrorType           string         `json:"errorType"`
	Locations           []Location     `json:"locations,omitempty"`
	Path                []any          `json:"path,omitempty"`
	ValidationErrorType string         `json:"validationErrorType,omitempty"`
	Exception           *Exception     `json:"exception,omitempty"`
	Extensions          map[string]any `json:"extensions,omitempty"`

	// Err is the error returned by the resolver, if any.
	Err error `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// validationErrorTypes maps validation rule names to the reported sub-codes.
var validationErrorTypes = map[string]string{
	"FieldsOnCorrectType":          "FieldUndefined",
	"FragmentsOnCompositeTypes":    "InlineFragmentTypeConditionInvalid",
	"KnownArgumentNames":           "UnknownArgument",
	"KnownDirectives":              "UnknownDirective",
	"KnownFragmentNames":           "UndefinedFragment",
	"KnownRootType":                "UnknownOperation",
	"KnownTypeNames":               "UnknownType",
	"LoneAnonymousOperation":       "LoneAnonymousOperationViolation",
	"NoFragmentCycles":             "FragmentCycle",
	"NoUndefinedVariables":         "UndefinedVariable",
	"NoUnusedFragments":            "UnusedFragment",
	"NoUnusedVariables":            "UnusedVariable",
	"OverlappingFieldsCanBeMerged": "FieldsConflict",
	"PossibleFragmentSpreads":      "InvalidFragmentType",
	"ProvidedRequiredArguments":    "MissingFieldArgument",
	"SingleFieldSubscriptions":     "SubscriptionMultipleRootFields",
	"UniqueArgumentNames":          "DuplicateArgumentNames",
	"UniqueDirectivesPerLocation":  "DuplicateDirectiveName",
	"UniqueFragmentNames":          "DuplicateFragmentName",
	"UniqueInputFieldNames":        "DuplicateInputField",
	"UniqueOperationNames":         "DuplicateOperationName",
	"UniqueVariableNames":          "DuplicateVariableName",
	"ValuesOfCorrectType":          "WrongType",
	"VariablesAreInputTypes":       "NonInputTypeOnVariable",
	"VariablesInAllowedPosition":   "VariableTypeMismatch",
}

func validationErrorType(e *language.Error) string {
	if e.Rule == "ScalarLeafs" {
		if strings.Contains(e.Message, "must not have a selection") {
			return "SubSelectionNotAllowed"
		}
		return "SubSelectionRequired"
	}
	if t, ok := validationErrorTypes[e.Rule]; ok {
		return t
	}
	return e.Rule
}

func fromParserErrors(errs language.ErrorList) []*Error {
	return lo.Map(errs, func(e *language.Error, _ int) *Error {
		out := &Error{
			Message: e.Message,
			Locations: lo.Map(e.Locations, func(l language.ErrorLocation, _ int) Location {
				return Location{Line: l.Line, Column: l.Column}
			}),
			Err: e,
		}
		if e.Rule == "" {
			out.ErrorType = ErrorTypeInvalidSyntax
			out.Message = "Invalid Syntax : " + e.Message
			return out
		}
		out.ErrorType = ErrorTypeValidation
		out.ValidationErrorType = validationErrorType(e)
		out.Message = fmt.Sprintf("Validation error of type %s: %s", out.ValidationErrorType, e.Message)
		return out
	})
}

func fromExecutionError(e executor.GraphQLError) *Error {
	out := &Error{
		Message:    e.Message,
		ErrorType:  string(e.Kind),
		Locations:  lo.Map(e.Locations, func(l executor.Location, _ int) Location { return Location(l) }),
		Extensions: e.Extensions,
		Err:        e.Err,
	}
	if len(e.Path) > 0 {
		out.Path = make([]any, len(e.Path))
		for i, elem := range e.Path {
			out.Path[i] = elem
		}
	}
	switch e.Kind {
	case executor.ErrorKindDataFetching:
		if e.Err != nil {
			out.Exception = &Exception{Name: exceptionName(e.Err), Message: e.Err.Error()}
			out.Message = fmt.Sprintf("Exception while fetching data: %s: %s", out.Exception.Name, out.Exception.Message)
		}
	case executor.ErrorKindValidation:
		out.ValidationErrorType = "WrongType"
		if !strings.HasPrefix(out.Message, "Validation error") {
			out.Message = "Validation error of type WrongType: " + out.Message
		}
	case "":
		out.ErrorType = ErrorTypeExecutionAborted
	}
	return out
}

func newResult(res *executor.ExecutionResult, keepNulls bool) *Result {
	out := &Result{}
	if len(res.Errors) > 0 {
		out.Errors = lo.Map(res.Errors, func(e executor.GraphQLError, _ int) *Error { return fromExecutionError(e) })
	}
	if data, ok := res.Data.(map[string]any); ok {
		if data == nil {
			out.DataNull = true
			return out
		}
		if !keepNulls {
			prune(data)
		}
		out.Data = data
	}
	return out
}

// prune removes null members from response objects. List elements are
// positional and keep their nulls.
func prune(v any) {
	switch v := v.(type) {
	case map[string]any:
		for k, member := range v {
			if member == nil {
				delete(v, k)
				continue
			}
			prune(member)
		}
	case []any:
		for _, item := range v {
			prune(item)
		}
	}
}

// Execute parses, validates and executes a request. It never returns nil.
func Execute(ctx context.Context, p Params) *Result {
	start := time.Now()
	logger := zerolog.Ctx(ctx)
	ctx = withAppContext(ctx, p.AppContext)

	eventbus.Publish(ctx, events.GraphQLStart{Query: p.Query, OperationName: p.OperationName})
	opType := ""
	res := execute(ctx, p, &opType)
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         p.Query,
		OperationName: p.OperationName,
		OperationType: opType,
		Errors:        resultErrors(res),
		Duration:      time.Since(start),
	})

	logger.Debug().
		Str("operation", p.OperationName).
		Str("type", opType).
		Int("errors", len(res.Errors)).
		Dur("duration", time.Since(start)).
		Msg("graphql request executed")
	return res
}

func execute(ctx context.Context, p Params, opType *string) *Result {
	if p.Schema == nil {
		return &Result{Errors: []*Error{{Message: "schema is required", ErrorType: ErrorTypeExecutionAborted}}}
	}
	doc, errs := language.LoadQuery(p.Schema.validated, p.Query)
	if len(errs) > 0 {
		return &Result{Errors: fromParserErrors(errs)}
	}

	op := doc.Operations.ForName(p.OperationName)
	if op != nil {
		*opType = string(op.Operation)
	}
	if op == nil || op.Operation != language.Subscription {
		return newResult(p.Schema.executor.ExecuteRequest(ctx, doc, p.OperationName, p.Variables, p.RootValue), p.KeepNulls)
	}
	return subscribe(ctx, p, doc)
}

// Subscribe executes a subscription operation and returns the publisher of
// its results. On failure the publisher is nil and the result carries the
// errors.
func Subscribe(ctx context.Context, p Params) (rx.Publisher, *Result) {
	res := Execute(ctx, p)
	if res.Stream == nil && !res.HasErrors() {
		res.Errors = append(res.Errors, &Error{
			Message:   "operation is not a subscription",
			ErrorType: ErrorTypeOperationNotSupported,
		})
	}
	if res.HasErrors() {
		return nil, res
	}
	return res.Stream, res
}

func subscribe(ctx context.Context, p Params, doc *language.QueryDocument) *Result {
	source, failed := p.Schema.executor.Subscribe(ctx, doc, p.OperationName, p.Variables, p.RootValue)
	if failed != nil {
		return newResult(failed, p.KeepNulls)
	}
	stream, ok := source.(rx.Publisher)
	if !ok {
		return &Result{Errors: []*Error{{
			Message:   fmt.Sprintf("subscription source stream must be an rx.Publisher, got %T", source),
			ErrorType: ErrorTypeDataFetching,
		}}}
	}

	return &Result{Stream: rx.Map(stream, func(event any) any {
		start := time.Now()
		res := newResult(p.Schema.executor.ExecuteSubscriptionEvent(ctx, doc, p.OperationName, p.Variables, event), p.KeepNulls)
		eventbus.Publish(ctx, events.SubscriptionEvent{
			OperationName: p.OperationName,
			Errors:        resultErrors(res),
			Duration:      time.Since(start),
		})
		return res
	})}
}

func resultErrors(res *Result) []error {
	return lo.Map(res.Errors, func(e *Error, _ int) error { return e })
}

// ErrorAs reports whether any error of r matches target per errors.As.
func (r *Result) ErrorAs(target any) bool {
	for _, e := range r.Errors {
		if errors.As(e, target) {
			return true
		}
	}
	return false
}
