package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	actor "github.com/hanpama/permgraph/internal/actor"
	eventbus "github.com/hanpama/permgraph/internal/eventbus"
	events "github.com/hanpama/permgraph/internal/events"
	executor "github.com/hanpama/permgraph/internal/executor"
	language "github.com/hanpama/permgraph/internal/language"
	reqid "github.com/hanpama/permgraph/internal/reqid"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// Handler is an http.Handler that serves a GraphQL endpoint.
// It authenticates the caller, runs the executor, and formats responses per
// the GraphQL over HTTP conventions.
type Handler struct {
	exec *executor.Executor
	opt  Options
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

	// JWTSecret enables bearer authentication. Requests without a token run
	// anonymously; requests with an invalid token are rejected with 401.
	JWTSecret string

	// GraphiQL enables the in-browser IDE when true.
	GraphiQL bool

	Logger *zap.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithJWTSecret(secret string) Option { return func(o *Options) { o.JWTSecret = secret } }
func WithGraphiQL(enable bool) Option    { return func(o *Options) { o.GraphiQL = enable } }
func WithLogger(l *zap.Logger) Option    { return func(o *Options) { o.Logger = l } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a new GraphQL HTTP handler using the given runtime and schema.
func New(runtime executor.Runtime, schema *schema.Schema, opts ...Option) (*Handler, error) {
	op := Options{Timeout: 10 * time.Second, GraphiQL: true}
	for _, f := range opts {
		f(&op)
	}
	if op.Logger == nil {
		op.Logger = zap.NewNop()
	}
	return &Handler{exec: executor.NewExecutor(runtime, schema), opt: op}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.FromHeader(ctx, r.Header.Get(reqid.Header))
	w.Header().Set(reqid.Header, rid)
	status := http.StatusOK
	subject := ""
	start := time.Now()
	eventbus.Publish(ctx, events.RequestStart{RequestID: rid, Method: r.Method, Path: r.URL.Path})
	defer func() {
		eventbus.Publish(ctx, events.RequestFinish{RequestID: rid, Subject: subject, Status: status, Duration: time.Since(start)})
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
		writeJSON(w, status, errorResponse(nil, &language.Error{Message: "method not allowed"}), h.opt.Pretty)
		return
	}

	// Serve GraphiQL IDE when enabled and the client expects HTML.
	if r.Method == http.MethodGet && h.opt.GraphiQL && acceptsHTML(r.Header.Get("Accept")) && r.URL.Query().Get("query") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(graphiqlPage)
		return
	}

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	if h.opt.JWTSecret != "" {
		a, err := actor.ParseBearer(r.Header.Get("Authorization"), h.opt.JWTSecret)
		if err != nil {
			h.opt.Logger.Debug("rejected bearer token", zap.String("request_id", rid), zap.Error(err))
			status = http.StatusUnauthorized
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeJSON(w, status, specResult{Errors: []specError{{
				Message:    "invalid token",
				Extensions: map[string]any{"code": "UNAUTHENTICATED"},
			}}}, h.opt.Pretty)
			return
		}
		if a != nil {
			ctx = actor.NewContext(ctx, a)
			subject = a.Subject
		}
	}

	req, batch, berr := parseRequest(r, h.opt.MaxBodyBytes)
	if berr != nil {
		status = http.StatusBadRequest
		if berr.Message == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorResponse(nil, berr), h.opt.Pretty)
		return
	}

	if batch != nil {
		out := make([]any, len(batch))
		for i := range batch {
			out[i] = h.executeOne(ctx, rid, batch[i])
		}
		writeJSON(w, status, out, h.opt.Pretty)
		return
	}
	writeJSON(w, status, h.executeOne(ctx, rid, req), h.opt.Pretty)
}

func (h *Handler) executeOne(ctx context.Context, rid string, req GraphQLRequest) any {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		var ge *language.Error
		if errors.As(err, &ge) {
			return errorResponse(nil, ge)
		}
		return errorResponse(nil, &language.Error{Message: err.Error()})
	}

	opDef := doc.Operations.ForName(req.OperationName)
	if opDef == nil && len(doc.Operations) == 1 {
		opDef = doc.Operations[0]
	}
	opType := ""
	if opDef != nil {
		opType = string(opDef.Operation)
	}

	start := time.Now()
	eventbus.Publish(ctx, events.OperationStart{RequestID: rid, Name: req.OperationName, Type: opType})
	result := h.exec.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, nil)
	elapsed := time.Since(start)
	eventbus.Publish(ctx, events.OperationFinish{
		RequestID: rid,
		Name:      req.OperationName,
		Type:      opType,
		Errors:    len(result.Errors),
		Duration:  elapsed,
	})
	h.opt.Logger.Debug("graphql operation",
		zap.String("request_id", rid),
		zap.String("operation", req.OperationName),
		zap.String("type", opType),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("duration", elapsed))
	if len(result.Errors) > 0 {
		return toSpecResult(result)
	}
	return result
}
