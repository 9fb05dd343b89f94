package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphlib/connection"
	"github.com/hanpama/graphlib/graphql"
	"github.com/hanpama/graphlib/rx"
)

func TestSDLCommand(t *testing.T) {
	var out bytes.Buffer
	err := newApp(&out).Run(context.Background(), []string{"graphlib", "sdl"})
	require.NoError(t, err)
	require.Contains(t, out.String(), "type Person")
	require.Contains(t, out.String(), "type PersonConnection")
	require.Contains(t, out.String(), "personAdded(minAge: Int): Person!")
}

func TestInvalidLogLevel(t *testing.T) {
	err := newApp(&bytes.Buffer{}).Run(context.Background(), []string{"graphlib", "--log-level", "loud", "sdl"})
	require.Error(t, err)
}

func TestExampleQueries(t *testing.T) {
	s, err := exampleSchema(newDirectory())
	require.NoError(t, err)

	res := graphql.Execute(context.Background(), graphql.Params{
		Schema: s,
		Query: `{
			person(name: "James") { name joined children { name } }
			people(first: 2) { totalCount edges { cursor node { name } } pageInfo { hasNextPage endCursor } }
		}`,
	})
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{
		"person": map[string]any{
			"name":     "James",
			"joined":   "2020-12-19",
			"children": []any{map[string]any{"name": "John"}, map[string]any{"name": "Robert"}},
		},
		"people": map[string]any{
			"totalCount": 3,
			"edges": []any{
				map[string]any{"cursor": connection.EncodeCursor(0), "node": map[string]any{"name": "James"}},
				map[string]any{"cursor": connection.EncodeCursor(1), "node": map[string]any{"name": "John"}},
			},
			"pageInfo": map[string]any{"hasNextPage": true, "endCursor": connection.EncodeCursor(1)},
		},
	}, res.Data)
}

func TestExampleMutationAndSubscription(t *testing.T) {
	d := newDirectory()
	s, err := exampleSchema(d)
	require.NoError(t, err)

	stream, res := graphql.Subscribe(context.Background(), graphql.Params{
		Schema: s,
		Query:  `subscription { personAdded(minAge: 18) { name age } }`,
	})
	require.Empty(t, res.Errors)

	got := make(chan any, 4)
	sub := rx.NewSubscriber(rx.SubscriberConfig{
		OnNext: func(v any) { got <- v.(*graphql.Result).Data },
	})
	stream.Subscribe(sub)
	defer sub.Cancel()

	for _, in := range []string{
		`mutation { addPerson(input: {name: "Kid", age: 3}) { name } }`,
		`mutation { addPerson(input: {name: "Mary", age: 38, joined: "2021-01-02"}) { name age joined } }`,
	} {
		res := graphql.Execute(context.Background(), graphql.Params{Schema: s, Query: in})
		require.Empty(t, res.Errors)
	}
	require.Equal(t, 2021, d.byName("Mary").Joined.Year())

	select {
	case v := <-got:
		require.Equal(t, map[string]any{"personAdded": map[string]any{"name": "Mary", "age": 38}}, v)
	case <-time.After(2 * time.Second):
		t.Fatal("no subscription event")
	}
	require.Len(t, got, 0)
}
