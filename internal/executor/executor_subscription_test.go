package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	schema "github.com/hanpama/graphlib/internal/schema"
	"github.com/stretchr/testify/require"
)

func newSubscriptionSchema() *schema.Schema {
	sch := newSchemaWithQueryType(
		newObjectType("Query", schema.NewField("a", "", schema.NamedType("String"))),
		newObjectType("Subscription",
			schema.NewField("ticks", "", schema.NonNullType(schema.NamedType("Tick"))).
				SetAsync(true).
				AddArgument(schema.NewInputValue("every", "", schema.NamedType("Int")).SetDefault(1)),
		),
		newObjectType("Tick",
			schema.NewField("n", "", schema.NamedType("Int")),
			schema.NewField("label", "", schema.NamedType("String")).SetAsync(true),
		),
	)
	return sch.SetSubscriptionType("Subscription")
}

func TestSubscribe_SourceStream(t *testing.T) {
	stream := make(chan any)
	rt := NewMockRuntime(map[string]MockResolver{
		"Subscription.ticks": NewMockValueResolver(stream),
	})
	exec := NewExecutor(rt, newSubscriptionSchema())
	doc := mustParseQuery(t, "subscription { ticks { n } }")

	got, res := exec.Subscribe(context.Background(), doc, "", nil, nil)

	require.Nil(t, res)
	require.Equal(t, any(stream), got)

	wantCalls := []Call{
		{Kind: "sync", ObjectType: "Subscription", Field: "ticks", Source: nil, Args: map[string]any{"every": 1}, BatchID: 0},
	}
	if diff := cmp.Diff(wantCalls, rt.GetCalls()); diff != "" {
		t.Fatalf("Runtime calls mismatch (-want +got):\n%s", diff)
	}
}

func TestSubscribe_Errors(t *testing.T) {
	t.Run("Resolver error", func(t *testing.T) {
		rt := NewMockRuntime(map[string]MockResolver{
			"Subscription.ticks": NewMockErrorResolver(errors.New("no stream")),
		})
		exec := NewExecutor(rt, newSubscriptionSchema())

		got, res := exec.Subscribe(context.Background(), mustParseQuery(t, "subscription { ticks { n } }"), "", nil, nil)

		require.Nil(t, got)
		require.Len(t, res.Errors, 1)
		require.Equal(t, "no stream", res.Errors[0].Message)
		require.Equal(t, ErrorKindDataFetching, res.Errors[0].Kind)
		require.Equal(t, Path{"ticks"}, res.Errors[0].Path)
	})

	t.Run("Nil stream", func(t *testing.T) {
		exec := NewExecutor(NewMockRuntime(nil), newSubscriptionSchema())

		got, res := exec.Subscribe(context.Background(), mustParseQuery(t, "subscription { ticks { n } }"), "", nil, nil)

		require.Nil(t, got)
		require.Len(t, res.Errors, 1)
	})

	t.Run("Query operation", func(t *testing.T) {
		exec := NewExecutor(NewMockRuntime(nil), newSubscriptionSchema())

		got, res := exec.Subscribe(context.Background(), mustParseQuery(t, "{ a }"), "", nil, nil)

		require.Nil(t, got)
		require.Equal(t, ErrorKindOperationNotSupported, res.Errors[0].Kind)
	})

	t.Run("ExecuteRequest rejects subscriptions", func(t *testing.T) {
		exec := NewExecutor(NewMockRuntime(nil), newSubscriptionSchema())

		res := exec.ExecuteRequest(context.Background(), mustParseQuery(t, "subscription { ticks { n } }"), "", nil, nil)

		require.Nil(t, res.Data)
		require.Equal(t, ErrorKindOperationNotSupported, res.Errors[0].Kind)
	})
}

func TestExecuteSubscriptionEvent(t *testing.T) {
	rt := NewMockRuntime(map[string]MockResolver{
		"Tick.n": func(ctx context.Context, source any, args map[string]any) (any, error) {
			return source.(map[string]any)["n"], nil
		},
		"Tick.label": func(ctx context.Context, source any, args map[string]any) (any, error) {
			return "tick", nil
		},
	})
	exec := NewExecutor(rt, newSubscriptionSchema())
	doc := mustParseQuery(t, "subscription { t: ticks { n label } }")

	gotRes := exec.ExecuteSubscriptionEvent(context.Background(), doc, "", nil, map[string]any{"n": 7})

	wantRes := &ExecutionResult{
		Data:   map[string]any{"t": map[string]any{"n": 7, "label": "tick"}},
		Errors: []GraphQLError{},
	}
	if diff := cmp.Diff(wantRes, gotRes, ignoreErrorDetails); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}

	wantCalls := []Call{
		{Kind: "sync", ObjectType: "Tick", Field: "n", Source: map[string]any{"n": 7}, Args: map[string]any{}, BatchID: 0},
		{Kind: "async", ObjectType: "Tick", Field: "label", Source: map[string]any{"n": 7}, Args: map[string]any{}, BatchID: 1},
	}
	if diff := cmp.Diff(wantCalls, rt.GetCalls()); diff != "" {
		t.Fatalf("Runtime calls mismatch (-want +got):\n%s", diff)
	}

	t.Run("Null event for non-null field", func(t *testing.T) {
		res := exec.ExecuteSubscriptionEvent(context.Background(), doc, "", nil, nil)

		require.Equal(t, map[string]any(nil), res.Data)
		require.Len(t, res.Errors, 1)
		require.Equal(t, ErrorKindNullValue, res.Errors[0].Kind)
	})
}
