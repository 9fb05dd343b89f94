package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	schema "github.com/hanpama/graphlib/internal/schema"
)

// newFriendSchema builds
//
//	type Query { person: Person  must: String! other: String }
//	type Person { name: String! @async  friend: Person  friends: [Person!] }
func newFriendSchema(asyncMust bool) *schema.Schema {
	return newSchemaWithQueryType(
		newObjectType("Query",
			schema.NewField("person", "", schema.NamedType("Person")),
			schema.NewField("must", "", schema.NonNullType(schema.NamedType("String"))).SetAsync(asyncMust),
			schema.NewField("other", "", schema.NamedType("String")),
		),
		newObjectType("Person",
			schema.NewField("name", "", schema.NonNullType(schema.NamedType("String"))).SetAsync(true),
			schema.NewField("friend", "", schema.NamedType("Person")),
			schema.NewField("friends", "", schema.ListType(schema.NonNullType(schema.NamedType("Person")))),
		),
	)
}

func newFriendRuntime() *MockRuntime {
	named := func(name string) map[string]any { return map[string]any{"name": name} }
	return NewMockRuntime(map[string]MockResolver{
		"Query.person": NewMockValueResolver(named("ok")),
		"Query.must":   NewMockErrorResolver(errors.New("must failed")),
		"Query.other":  NewMockValueResolver("x"),
		"Person.friend": func(ctx context.Context, src any, args map[string]any) (any, error) {
			return named("bad"), nil
		},
		"Person.friends": func(ctx context.Context, src any, args map[string]any) (any, error) {
			return []any{named("ok"), named("bad")}, nil
		},
		"Person.name": func(ctx context.Context, src any, args map[string]any) (any, error) {
			if name := src.(map[string]any)["name"]; name != "bad" {
				return name, nil
			}
			return nil, errors.New("no name")
		},
	})
}

func TestNullPropagation_AsyncNonNull_Result(t *testing.T) {
	t.Run("Nearest nullable object", func(t *testing.T) {
		exec := NewExecutor(newFriendRuntime(), newFriendSchema(false))
		gotRes := exec.ExecuteRequest(context.Background(), mustParseQuery(t, "{ person { name friend { name } } }"), "", nil, nil)

		wantRes := &ExecutionResult{
			Data:   map[string]any{"person": map[string]any{"name": "ok", "friend": nil}},
			Errors: []GraphQLError{{Message: "no name", Path: Path{"person", "friend", "name"}}},
		}
		if diff := cmp.Diff(wantRes, gotRes, ignoreErrorDetails); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Non-null list item nulls the list", func(t *testing.T) {
		exec := NewExecutor(newFriendRuntime(), newFriendSchema(false))
		gotRes := exec.ExecuteRequest(context.Background(), mustParseQuery(t, "{ person { name friends { name } } }"), "", nil, nil)

		wantRes := &ExecutionResult{
			Data:   map[string]any{"person": map[string]any{"name": "ok", "friends": nil}},
			Errors: []GraphQLError{{Message: "no name", Path: Path{"person", "friends", 1, "name"}}},
		}
		if diff := cmp.Diff(wantRes, gotRes, ignoreErrorDetails); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Results below a nulled object are dropped", func(t *testing.T) {
		exec := NewExecutor(newFriendRuntime(), newFriendSchema(false))
		gotRes := exec.ExecuteRequest(context.Background(), mustParseQuery(t, "{ person { friend { name friend { name } } } }"), "", nil, nil)

		wantRes := &ExecutionResult{
			Data:   map[string]any{"person": map[string]any{"friend": nil}},
			Errors: []GraphQLError{{Message: "no name", Path: Path{"person", "friend", "name"}}},
		}
		if diff := cmp.Diff(wantRes, gotRes, ignoreErrorDetails); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestNullPropagation_Root_Result(t *testing.T) {
	for _, async := range []bool{false, true} {
		async := async
		name := "Sync root field"
		if async {
			name = "Async root field"
		}
		t.Run(name, func(t *testing.T) {
			exec := NewExecutor(newFriendRuntime(), newFriendSchema(async))
			gotRes := exec.ExecuteRequest(context.Background(), mustParseQuery(t, "{ must other }"), "", nil, nil)

			wantRes := &ExecutionResult{
				Data:   map[string]any(nil),
				Errors: []GraphQLError{{Message: "must failed", Path: Path{"must"}}},
			}
			if diff := cmp.Diff(wantRes, gotRes, ignoreErrorDetails); diff != "" {
				t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("Execution not started", func(t *testing.T) {
		exec := NewExecutor(newFriendRuntime(), newFriendSchema(false))
		gotRes := exec.ExecuteRequest(context.Background(), mustParseQuery(t, "query A { other } query B { other }"), "", nil, nil)
		require.Nil(t, gotRes.Data)
		require.Equal(t, ErrorKindOperationNotSupported, gotRes.Errors[0].Kind)
	})
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"plain", errors.New("boom"), ErrorKindDataFetching},
		{"coercion", &CoercionError{Message: "bad"}, ErrorKindValidation},
		{"wrapped coercion", errors.Join(errors.New("ctx"), &CoercionError{Message: "bad"}), ErrorKindValidation},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, kindOf(tt.err))
		})
	}
}
