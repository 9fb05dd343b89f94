package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	schema "github.com/hanpama/graphlib/internal/schema"
)

func TestErrors_LocatedPaths_Result(t *testing.T) {
	sch := newSchemaWithQueryType(
		newObjectType("Query",
			schema.NewField("a", "", schema.NamedType("String")),
			schema.NewField("obj", "", schema.NamedType("Obj")),
			schema.NewField("objs", "", schema.ListType(schema.NamedType("Obj"))),
		),
		newObjectType("Obj", schema.NewField("a", "", schema.NamedType("String"))),
	)
	failOn := func(idx int) MockResolver {
		return func(ctx context.Context, src any, args map[string]any) (any, error) {
			if src == nil || src.(map[string]any)["idx"] == idx {
				return nil, fmt.Errorf("boom")
			}
			return "A", nil
		}
	}
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.a":    failOn(0),
		"Query.obj":  NewMockValueResolver(map[string]any{"idx": 0}),
		"Query.objs": NewMockValueResolver([]any{map[string]any{"idx": 0}, map[string]any{"idx": 1}}),
		"Obj.a":      failOn(1),
	})
	exec := NewExecutor(rt, sch)

	tests := []struct {
		name     string
		query    string
		wantData map[string]any
		wantPath Path
		wantLoc  Location
	}{
		{
			name:     "Simple",
			query:    "{ a }",
			wantData: map[string]any{"a": nil},
			wantPath: Path{"a"},
			wantLoc:  Location{Line: 1, Column: 3},
		},
		{
			name:     "Aliased and nested",
			query:    "{ obj { x: a } objs {\n  a\n} }",
			wantData: map[string]any{"obj": map[string]any{"x": "A"}, "objs": []any{map[string]any{"a": "A"}, map[string]any{"a": nil}}},
			wantPath: Path{"objs", 1, "a"},
			wantLoc:  Location{Line: 2, Column: 3},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			gotRes := exec.ExecuteRequest(context.Background(), mustParseQuery(t, tt.query), "", nil, nil)

			wantRes := &ExecutionResult{
				Data:   tt.wantData,
				Errors: []GraphQLError{{Message: "boom", Path: tt.wantPath}},
			}
			if diff := cmp.Diff(wantRes, gotRes, ignoreErrorDetails); diff != "" {
				t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
			}
			require.Equal(t, []Location{tt.wantLoc}, gotRes.Errors[0].Locations)
			require.Equal(t, ErrorKindDataFetching, gotRes.Errors[0].Kind)
		})
	}
}
