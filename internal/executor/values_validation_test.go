package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	schema "github.com/hanpama/graphlib/internal/schema"
)

// newFilterSchema builds
//
//	enum Color { RED GREEN }
//	input FilterInput { required: String!  optional: Int  color: Color  limit: Int! = 10 }
//	type Query { search(filter: FilterInput!, colors: [Color!]): [String] }
func newFilterSchema() *schema.Schema {
	color := schema.NewType("Color", schema.TypeKindEnum, "").
		AddEnumValue(schema.NewEnumValue("RED", "")).
		AddEnumValue(schema.NewEnumValue("GREEN", ""))
	filter := schema.NewType("FilterInput", schema.TypeKindInputObject, "").
		AddInputField(schema.NewInputValue("required", "", schema.NonNullType(schema.NamedType("String")))).
		AddInputField(schema.NewInputValue("optional", "", schema.NamedType("Int"))).
		AddInputField(schema.NewInputValue("color", "", schema.NamedType("Color"))).
		AddInputField(schema.NewInputValue("limit", "", schema.NonNullType(schema.NamedType("Int"))).SetDefault(10))
	return newSchemaWithQueryType(
		newObjectType("Query",
			schema.NewField("search", "", schema.ListType(schema.NamedType("String"))).
				AddArgument(schema.NewInputValue("filter", "", schema.NonNullType(schema.NamedType("FilterInput")))).
				AddArgument(schema.NewInputValue("colors", "", schema.ListType(schema.NonNullType(schema.NamedType("Color"))))),
		),
		color, filter,
	)
}

func TestCoerceVariableValues(t *testing.T) {
	const query = `query($filter: FilterInput!, $colors: [Color!]) { search(filter: $filter, colors: $colors) }`

	tests := []struct {
		name    string
		vars    map[string]any
		wantErr string
		want    map[string]any
	}{
		{
			name: "input object",
			vars: map[string]any{"filter": map[string]any{"required": "x", "optional": "7", "color": "RED"}},
			want: map[string]any{"filter": map[string]any{"required": "x", "optional": 7, "color": "RED"}},
		},
		{
			name: "single enum becomes a list",
			vars: map[string]any{"filter": map[string]any{"required": "x"}, "colors": "GREEN"},
			want: map[string]any{"filter": map[string]any{"required": "x"}, "colors": []any{"GREEN"}},
		},
		{name: "missing variable", vars: nil, wantErr: "variable $filter of required type FilterInput! was not provided"},
		{name: "null variable", vars: map[string]any{"filter": nil}, wantErr: "cannot be null"},
		{name: "missing required field", vars: map[string]any{"filter": map[string]any{"optional": 10}}, wantErr: "required field 'required' of FilterInput"},
		{name: "unknown field", vars: map[string]any{"filter": map[string]any{"required": "x", "other": 1}}, wantErr: "field 'other' is not defined by FilterInput"},
		{name: "wrong scalar", vars: map[string]any{"filter": map[string]any{"required": "x", "optional": true}}, wantErr: "cannot coerce true (bool) to int"},
		{name: "unknown enum", vars: map[string]any{"filter": map[string]any{"required": "x"}, "colors": []any{"RED", "BLUE"}}, wantErr: "item 1: BLUE is not a value of enum Color"},
		{name: "not an object", vars: map[string]any{"filter": "x"}, wantErr: "expected an object for FilterInput"},
	}
	sch := newFilterSchema()
	op := mustParseQuery(t, query).Operations[0]
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerceVariableValues(sch, op, tt.vars)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceArgumentValues_ReportedAsValidation(t *testing.T) {
	rt := NewMockRuntime(map[string]MockResolver{"Query.search": NewMockValueResolver([]any{"a"})})
	exec := NewExecutor(rt, newFilterSchema())

	res := exec.ExecuteRequest(context.Background(), mustParseQuery(t, `{ search(filter: {required: "x", color: PURPLE}) }`), "", nil, nil)
	require.Len(t, res.Errors, 1)
	require.Equal(t, ErrorKindValidation, res.Errors[0].Kind)
	require.Equal(t, Path{"search"}, res.Errors[0].Path)
	require.Contains(t, res.Errors[0].Message, "PURPLE is not a value of enum Color")

	res = exec.ExecuteRequest(context.Background(), mustParseQuery(t, `{ search(filter: {required: "x"}, colors: [RED]) }`), "", nil, nil)
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"search": []any{"a"}}, res.Data)
	calls := rt.GetCalls()
	require.Equal(t, map[string]any{
		"filter": map[string]any{"required": "x"},
		"colors": []any{"RED"},
	}, calls[len(calls)-1].Args)
}
