package language

import (
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

type (
	// ValidatedSchema is the parser's view of a schema used for query validation.
	ValidatedSchema = ast.Schema
	Error           = gqlerror.Error
	ErrorList       = gqlerror.List
	ErrorLocation   = gqlerror.Location
)

func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadSchema parses and validates SDL, including the builtin prelude.
func LoadSchema(name, sdl string) (*ValidatedSchema, error) {
	s, err := gqlparser.LoadSchema(&ast.Source{Name: name, Input: sdl})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// LoadQuery parses query and validates it against s. Syntax errors carry an
// empty Rule; validation errors name the rule that rejected the document.
func LoadQuery(s *ValidatedSchema, query string) (*QueryDocument, ErrorList) {
	return gqlparser.LoadQuery(s, query)
}
