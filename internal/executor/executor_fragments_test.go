package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	schema "github.com/hanpama/graphlib/internal/schema"
	"github.com/stretchr/testify/require"
)

func newPetSchema() *schema.Schema {
	return newSchemaWithQueryType(
		newObjectType("Query",
			schema.NewField("pets", "", schema.ListType(schema.NamedType("Pet"))),
			schema.NewField("search", "", schema.ListType(schema.NamedType("Result"))),
		),
		schema.NewType("Pet", schema.TypeKindInterface, "").
			AddField(schema.NewField("name", "", schema.NamedType("String"))),
		newObjectType("Dog",
			schema.NewField("name", "", schema.NamedType("String")),
			schema.NewField("barks", "", schema.NamedType("Boolean")),
		).AddInterface("Pet"),
		newObjectType("Cat",
			schema.NewField("name", "", schema.NamedType("String")),
			schema.NewField("meows", "", schema.NamedType("Boolean")),
		).AddInterface("Pet"),
		schema.NewType("Result", schema.TypeKindUnion, "").
			AddPossibleType("Dog").
			AddPossibleType("Cat"),
	)
}

func newPetRuntime() *MockRuntime {
	pets := []any{
		map[string]any{"__typename": "Dog", "name": "Rex", "barks": true},
		map[string]any{"__typename": "Cat", "name": "Tom", "meows": false},
	}
	field := func(name string) MockResolver {
		return func(ctx context.Context, source any, args map[string]any) (any, error) {
			return source.(map[string]any)[name], nil
		}
	}
	return NewMockRuntime(map[string]MockResolver{
		"Query.pets":   NewMockValueResolver(pets),
		"Query.search": NewMockValueResolver(pets),
		"Dog.name":     field("name"),
		"Dog.barks":    field("barks"),
		"Cat.name":     field("name"),
		"Cat.meows":    field("meows"),
	})
}

func TestCollectFields_AbstractTypeConditions(t *testing.T) {
	t.Run("Interface fragment applies to implementations", func(t *testing.T) {
		exec := NewExecutor(newPetRuntime(), newPetSchema())
		doc := mustParseQuery(t, `{
			pets {
				__typename
				... on Pet { name }
				... on Dog { barks }
			}
		}`)

		gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

		wantRes := &ExecutionResult{
			Data: map[string]any{"pets": []any{
				map[string]any{"__typename": "Dog", "name": "Rex", "barks": true},
				map[string]any{"__typename": "Cat", "name": "Tom"},
			}},
			Errors: []GraphQLError{},
		}
		if diff := cmp.Diff(wantRes, gotRes, ignoreErrorDetails); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Union members through named fragments", func(t *testing.T) {
		exec := NewExecutor(newPetRuntime(), newPetSchema())
		doc := mustParseQuery(t, `
			{ search { ...CatFields ... on Result { __typename } } }
			fragment CatFields on Cat { meows }
		`)

		gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

		wantRes := &ExecutionResult{
			Data: map[string]any{"search": []any{
				map[string]any{"__typename": "Dog"},
				map[string]any{"meows": false, "__typename": "Cat"},
			}},
			Errors: []GraphQLError{},
		}
		if diff := cmp.Diff(wantRes, gotRes, ignoreErrorDetails); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Type outside the union is rejected", func(t *testing.T) {
		sch := newPetSchema()
		sch.AddType(newObjectType("Fish", schema.NewField("name", "", schema.NamedType("String"))))
		rt := newPetRuntime()
		SetTypeResolver(rt, func(value any) (string, error) { return "Fish", nil })
		exec := NewExecutor(rt, sch)
		doc := mustParseQuery(t, "{ search { __typename } }")

		gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

		require.Len(t, gotRes.Errors, 2)
		require.Equal(t, "Runtime Object type Fish is not a possible type for Result.", gotRes.Errors[0].Message)
		require.Equal(t, Path{"search", 0}, gotRes.Errors[0].Path)
	})
}

func TestErrors_KindsAndLocations(t *testing.T) {
	sch := newSchemaWithQueryType(
		newObjectType("Query",
			schema.NewField("a", "", schema.NamedType("String")),
			schema.NewField("b", "", schema.NonNullType(schema.NamedType("String"))),
			schema.NewField("c", "", schema.NamedType("Int")).
				AddArgument(schema.NewInputValue("n", "", schema.NamedType("Int"))),
		),
	)
	boom := errors.New("boom")
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.a": NewMockErrorResolver(boom),
		"Query.b": NewMockValueResolver(nil),
		"Query.c": NewMockErrorResolver(&CoercionError{Message: "bad n"}),
	})
	exec := NewExecutor(rt, sch)
	doc := mustParseQuery(t, "{\n  a\n  b\n  c(n: 1)\n}")

	gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

	require.Len(t, gotRes.Errors, 3)

	require.Equal(t, ErrorKindDataFetching, gotRes.Errors[0].Kind)
	require.ErrorIs(t, gotRes.Errors[0], boom)
	require.Equal(t, []Location{{Line: 2, Column: 3}}, gotRes.Errors[0].Locations)

	require.Equal(t, ErrorKindNullValue, gotRes.Errors[1].Kind)
	require.Equal(t, []Location{{Line: 3, Column: 3}}, gotRes.Errors[1].Locations)

	require.Equal(t, ErrorKindValidation, gotRes.Errors[2].Kind)
	require.Equal(t, Path{"c"}, gotRes.Errors[2].Path)
}

func TestErrors_OperationKinds(t *testing.T) {
	exec := NewExecutor(NewMockRuntime(nil), newSchemaWithQueryType(newObjectType("Query", schema.NewField("a", "", schema.NamedType("String")))))

	res := exec.ExecuteRequest(context.Background(), mustParseQuery(t, "mutation { a }"), "", nil, nil)
	require.Len(t, res.Errors, 1)
	require.Equal(t, ErrorKindOperationNotSupported, res.Errors[0].Kind)
	require.Nil(t, res.Data)

	res = exec.ExecuteRequest(context.Background(), mustParseQuery(t, "query($v: Int!) { a }"), "", nil, nil)
	require.Len(t, res.Errors, 1)
	require.Equal(t, ErrorKindValidation, res.Errors[0].Kind)
}
