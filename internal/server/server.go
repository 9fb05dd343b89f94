package server

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/hanpama/graphlib/graphql"
	eventbus "github.com/hanpama/graphlib/internal/eventbus"
	events "github.com/hanpama/graphlib/internal/events"
	reqid "github.com/hanpama/graphlib/internal/reqid"
	"github.com/hanpama/graphlib/rx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//go:embed graphiql.html
var graphiqlPage []byte

// Handler is an http.Handler that serves a GraphQL endpoint.
// It parses requests, runs them against the schema and writes the results.
type Handler struct {
	schema *graphql.Schema
	opt    Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// GraphiQL enables the in-browser IDE when true.
	GraphiQL bool

	// AppContext builds the application context handed to resolvers.
	AppContext func(r *http.Request) any

	// RootValue is the source of root fields.
	RootValue any

	// Logger is attached to every request context.
	Logger zerolog.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithGraphiQL(enable bool) Option { return func(o *Options) { o.GraphiQL = enable } }
func WithAppContext(fn func(r *http.Request) any) Option {
	return func(o *Options) { o.AppContext = fn }
}
func WithRootValue(v any) Option         { return func(o *Options) { o.RootValue = v } }
func WithLogger(l zerolog.Logger) Option { return func(o *Options) { o.Logger = l } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a new GraphQL HTTP handler serving s.
func New(s *graphql.Schema, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second, GraphiQL: true, Logger: zerolog.Nop()}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{schema: s, opt: op}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 && !acceptsEventStream(r) {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.NewContext(ctx)
	logger := h.opt.Logger.With().Int64("request_id", rid).Logger()
	ctx = logger.WithContext(ctx)

	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		d := time.Since(start)
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: d})
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", d).
			Msg("http request")
	}()

	if r.Method == http.MethodOptions {
		if len(h.opt.CORS.AllowedOrigins) > 0 {
			setCORSHeaders(w, r, h.opt.CORS)
		}
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		writeJSON(w, status, errorResponse("method not allowed"), h.opt.Pretty)
		return
	}

	// Serve GraphiQL IDE when enabled and the client expects HTML.
	if r.Method == http.MethodGet && h.opt.GraphiQL && acceptsHTML(r.Header.Get("Accept")) && r.URL.Query().Get("query") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(graphiqlPage)
		return
	}

	req, batch, rerr := parseRequest(r, h.opt.MaxBodyBytes)
	if rerr != nil {
		status = http.StatusBadRequest
		if rerr.Error() == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		logger.Debug().Err(rerr).Msg("rejected graphql request")
		writeJSON(w, status, errorResponse(rerr.Error()), h.opt.Pretty)
		return
	}

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	var appCtx any
	if h.opt.AppContext != nil {
		appCtx = h.opt.AppContext(r)
	}

	if batch != nil {
		out := lo.Map(batch, func(req GraphQLRequest, _ int) *graphql.Result {
			res := h.execute(ctx, req, appCtx)
			if res.Stream != nil {
				return errorResponse("subscriptions cannot be batched")
			}
			return res
		})
		writeJSON(w, status, out, h.opt.Pretty)
		return
	}

	res := h.execute(ctx, req, appCtx)
	if res.Stream != nil {
		if !acceptsEventStream(r) {
			status = http.StatusNotAcceptable
			writeJSON(w, status, errorResponse("subscriptions require Accept: text/event-stream"), h.opt.Pretty)
			return
		}
		h.stream(ctx, w, res.Stream)
		return
	}
	writeJSON(w, status, res, h.opt.Pretty)
}

func (h *Handler) execute(ctx context.Context, req GraphQLRequest, appCtx any) *graphql.Result {
	return graphql.Execute(ctx, graphql.Params{
		Schema:        h.schema,
		Query:         req.Query,
		OperationName: req.OperationName,
		Variables:     req.Variables,
		AppContext:    appCtx,
		RootValue:     h.opt.RootValue,
	})
}

// stream writes subscription results as server-sent events until the stream
// terminates or the client goes away.
func (h *Handler) stream(ctx context.Context, w http.ResponseWriter, stream rx.Publisher) {
	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if flusher != nil {
		flusher.Flush()
	}

	var (
		mu     sync.Mutex
		closed bool
	)
	write := func(event string, v any) {
		b, err := json.Marshal(v)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to encode subscription result")
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
		if flusher != nil {
			flusher.Flush()
		}
	}

	sub := rx.NewSubscriber(rx.SubscriberConfig{
		OnNext: func(v any) { write("next", v) },
		OnError: func(err error) {
			write("next", errorResponse(err.Error()))
			write("complete", struct{}{})
		},
		OnComplete: func() { write("complete", struct{}{}) },
	})
	stream.Subscribe(sub)

	select {
	case <-sub.Done():
	case <-ctx.Done():
		sub.Cancel()
	}
	mu.Lock()
	closed = true
	mu.Unlock()
}

// ------------------ Request parsing ------------------

type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

type requestError string

func (e requestError) Error() string { return string(e) }

func parseRequest(r *http.Request, maxBody int64) (GraphQLRequest, []GraphQLRequest, error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return GraphQLRequest{}, nil, requestError("missing 'query'")
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return GraphQLRequest{}, nil, requestError("invalid 'variables' JSON")
			}
		}
		op := r.URL.Query().Get("operationName")
		return GraphQLRequest{Query: q, Variables: vars, OperationName: op}, nil, nil
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return GraphQLRequest{}, nil, requestError("unsupported Content-Type")
	}

	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return GraphQLRequest{}, nil, requestError("failed to read body")
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return GraphQLRequest{}, nil, requestError(errBodyTooLargeMessage)
	}

	if len(body) > 0 && body[0] == '[' {
		var arr []GraphQLRequest
		if err := json.Unmarshal(body, &arr); err != nil {
			return GraphQLRequest{}, nil, requestError("invalid JSON")
		}
		if len(arr) == 0 {
			return GraphQLRequest{}, nil, requestError("empty batch")
		}
		return GraphQLRequest{}, arr, nil
	}
	var req GraphQLRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return GraphQLRequest{}, nil, requestError("invalid JSON")
	}
	if req.Query == "" {
		return GraphQLRequest{}, nil, requestError("missing 'query'")
	}
	if req.Variables == nil {
		req.Variables = map[string]any{}
	}
	return req, nil, nil
}

// ------------------ Response formatting ------------------

func errorResponse(message string) *graphql.Result {
	return &graphql.Result{Errors: []*graphql.Error{{
		Message:   message,
		ErrorType: graphql.ErrorTypeExecutionAborted,
	}}}
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

const errBodyTooLargeMessage = "body too large"

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	if !lo.Contains(opts.AllowedOrigins, "*") && !lo.Contains(opts.AllowedOrigins, origin) {
		return
	}
	if lo.Contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func acceptsHTML(accept string) bool {
	return acceptsAny(accept, "text/html", "*/*")
}

func acceptsEventStream(r *http.Request) bool {
	return acceptsAny(r.Header.Get("Accept"), "text/event-stream")
}

func acceptsAny(accept string, types ...string) bool {
	for _, p := range strings.Split(accept, ",") {
		p = strings.TrimSpace(p)
		for _, t := range types {
			if strings.HasPrefix(p, t) {
				return true
			}
		}
	}
	return false
}
