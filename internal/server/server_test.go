package server

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphlib/graphql"
	reqid "github.com/hanpama/graphlib/internal/reqid"
	"github.com/hanpama/graphlib/rx"
)

type greeter struct {
	ID       int64
	Greeting string
}

func newTestHandler(t *testing.T, ticks func() rx.Publisher, opts ...Option) *Handler {
	t.Helper()
	query := &graphql.Object{
		Name: "Query",
		Fields: graphql.Fields{
			{
				Name: "hello",
				Type: graphql.String,
				Args: graphql.Args{"name": graphql.String},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					name, _ := p.Args["name"].(string)
					if name == "" {
						name = "world"
					}
					if g, ok := p.AppContext.(*greeter); ok {
						g.ID, _ = reqid.FromContext(p.Context)
						return g.Greeting + " " + name, nil
					}
					return "hello " + name, nil
				},
			},
		},
	}
	subscription := &graphql.Object{
		Name: "Subscription",
		Fields: graphql.Fields{{
			Name:    "tick",
			Type:    graphql.Int,
			Resolve: func(graphql.ResolveParams) (any, error) { return ticks(), nil },
		}},
	}
	s, err := graphql.NewBuilder().BuildSchema(graphql.SchemaConfig{Query: query, Subscription: subscription})
	require.NoError(t, err)
	return New(s, opts...)
}

func countTo(n int) func() rx.Publisher {
	return func() rx.Publisher {
		return rx.NewOnSubscribePublisher(rx.OnSubscribeConfig{
			OnSubscribe: func(e rx.Emitter) {
				for i := 1; i <= n; i++ {
					e.Next(i)
				}
				e.Complete()
			},
		})
	}
}

func post(h http.Handler, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPostQuery(t *testing.T) {
	h := newTestHandler(t, countTo(0))
	w := post(h, `{"query":"query($n: String) { hello(name: $n) }","variables":{"n":"graphlib"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"hello":"hello graphlib"}}`, w.Body.String())
}

func TestGetQuery(t *testing.T) {
	h := newTestHandler(t, countTo(0))
	req := httptest.NewRequest("GET", `/?query={hello}`, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"hello":"hello world"}}`, w.Body.String())
}

func TestBatch(t *testing.T) {
	h := newTestHandler(t, countTo(0))
	w := post(h, `[{"query":"{ hello }"},{"query":"{ nope }"}]`)
	require.Equal(t, http.StatusOK, w.Code)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 2)
	require.Equal(t, map[string]any{"hello": "hello world"}, out[0]["data"])
	require.NotContains(t, out[1], "data")
	errs := out[1]["errors"].([]any)
	require.Equal(t, graphql.ErrorTypeValidation, errs[0].(map[string]any)["errorType"])
}

func TestBadRequests(t *testing.T) {
	h := newTestHandler(t, countTo(0))

	w := post(h, `{"query":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "invalid JSON")

	w = post(h, `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "missing 'query'")

	w = post(h, `[]`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest("PUT", "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	w = post(h, `{"query":"{ hello }"}`, "Content-Type", "text/plain")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, countTo(0), WithCORS("*"))

	w := post(h, `{"query":"{ hello }"}`, "Origin", "http://example.com")
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	pre := httptest.NewRequest("OPTIONS", "/", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	require.Equal(t, http.StatusNoContent, pw.Code)
	require.Equal(t, "*", pw.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "X-Test", pw.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORSSpecificOrigin(t *testing.T) {
	h := newTestHandler(t, countTo(0), WithCORS("http://allowed.test"))

	w := post(h, `{"query":"{ hello }"}`, "Origin", "http://allowed.test")
	require.Equal(t, "http://allowed.test", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", w.Header().Get("Vary"))

	w = post(h, `{"query":"{ hello }"}`, "Origin", "http://other.test")
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMaxBodyBytes(t *testing.T) {
	h := newTestHandler(t, countTo(0), WithMaxBodyBytes(10))
	w := post(h, `{"query":"1234567890"}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestAppContextAndRequestID(t *testing.T) {
	g := &greeter{Greeting: "hi"}
	h := newTestHandler(t, countTo(0), WithAppContext(func(*http.Request) any { return g }))

	w := post(h, `{"query":"{ hello }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"hello":"hi world"}}`, w.Body.String())
	require.NotZero(t, g.ID)
}

func TestGraphiQL(t *testing.T) {
	h := newTestHandler(t, countTo(0))
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/html")
	require.Contains(t, w.Body.String(), "GraphiQL")

	h = newTestHandler(t, countTo(0), WithGraphiQL(false))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptionEventStream(t *testing.T) {
	h := newTestHandler(t, countTo(3))

	w := post(h, `{"query":"subscription { tick }"}`)
	require.Equal(t, http.StatusNotAcceptable, w.Code)

	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"query":"subscription { tick }"}`))
	req.Header.Set("Accept", "text/event-stream")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(context.Background()))
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	var data []string
	var kinds []string
	scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			kinds = append(kinds, strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
		}
	}
	require.Equal(t, []string{"next", "next", "next", "complete"}, kinds)
	require.JSONEq(t, `{"data":{"tick":1}}`, data[0])
	require.JSONEq(t, `{"data":{"tick":3}}`, data[2])
}
