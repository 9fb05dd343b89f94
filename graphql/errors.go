package graphql

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// SchemaErrorKind classifies a SchemaDefinitionError.
type SchemaErrorKind string

const (
	MissingAttribute        SchemaErrorKind = "MissingAttribute"
	EmptyUnion              SchemaErrorKind = "EmptyUnion"
	UnresolvedTypeReference SchemaErrorKind = "UnresolvedTypeReference"
	DuplicateType           SchemaErrorKind = "DuplicateType"
	InvalidType             SchemaErrorKind = "InvalidType"
	InvalidSchema           SchemaErrorKind = "InvalidSchema"
)

var (
	ErrMissingAttribute        = errors.New("missing attribute")
	ErrEmptyUnion              = errors.New("empty union")
	ErrUnresolvedTypeReference = errors.New("unresolved type reference")
	ErrDuplicateType           = errors.New("duplicate type")
	ErrInvalidType             = errors.New("invalid type")
	ErrInvalidSchema           = errors.New("invalid schema")
)

var sentinels = map[SchemaErrorKind]error{
	MissingAttribute:        ErrMissingAttribute,
	EmptyUnion:              ErrEmptyUnion,
	UnresolvedTypeReference: ErrUnresolvedTypeReference,
	DuplicateType:           ErrDuplicateType,
	InvalidType:             ErrInvalidType,
	InvalidSchema:           ErrInvalidSchema,
}

// SchemaDefinitionError reports a descriptor or schema that cannot be built.
// It matches the sentinel of its kind with errors.Is.
type SchemaDefinitionError struct {
	Kind SchemaErrorKind
	// Type and Field locate the offending definition when known.
	Type  string
	Field string
	// Key names the missing attribute for MissingAttribute errors.
	Key     string
	Message string
	Err     error
}

func (e *SchemaDefinitionError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	switch {
	case e.Type != "" && e.Field != "":
		fmt.Fprintf(&b, " (type %s, field %s)", e.Type, e.Field)
	case e.Type != "":
		fmt.Fprintf(&b, " (type %s)", e.Type)
	}
	return b.String()
}

func (e *SchemaDefinitionError) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func (e *SchemaDefinitionError) Unwrap() error {
	return e.Err
}

func missing(typeName, field, key string) *SchemaDefinitionError {
	return &SchemaDefinitionError{
		Kind:    MissingAttribute,
		Type:    typeName,
		Field:   field,
		Key:     key,
		Message: fmt.Sprintf("Value '%s' is required", key),
	}
}

// ResolverError lets a resolver choose the exception name reported with a
// data fetching error.
type ResolverError struct {
	Name    string
	Message string
	Err     error
}

// NewResolverError returns a ResolverError reported as name: message.
func NewResolverError(name, message string) *ResolverError {
	return &ResolverError{Name: name, Message: message}
}

func (e *ResolverError) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *ResolverError) Unwrap() error {
	return e.Err
}

// exceptionName names err for the exception block of a data fetching error:
// the Name of a wrapped ResolverError, otherwise the qualified Go type of the
// innermost error.
func exceptionName(err error) string {
	var re *ResolverError
	if errors.As(err, &re) && re.Name != "" {
		return re.Name
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
