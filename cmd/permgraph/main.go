package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hanpama/permgraph/internal/actor"
	"github.com/hanpama/permgraph/internal/eventbus"
	"github.com/hanpama/permgraph/internal/executor"
	"github.com/hanpama/permgraph/internal/fixture"
	"github.com/hanpama/permgraph/internal/grants"
	"github.com/hanpama/permgraph/internal/introspection"
	"github.com/hanpama/permgraph/internal/otel"
	"github.com/hanpama/permgraph/internal/permission"
	"github.com/hanpama/permgraph/internal/policy"
	"github.com/hanpama/permgraph/internal/schema"
	"github.com/hanpama/permgraph/internal/server"
)

const rootUsage = `permgraph: GraphQL server with per-field permissions

USAGE:
  permgraph <command> [flags]

COMMANDS:
  serve            Serve a schema and JSON fixture behind a permission policy
  check-policy     Install a policy on a schema and print the resulting SDL
  token            Sign a bearer token for local testing
  grant            Add grants to a subject in the grant store
  revoke           Remove grants from a subject in the grant store
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -schema <file>                      GraphQL SDL file (required)
  -policy <file>                      Permission policy, YAML/JSON/TOML (required)
  -data <file>                        JSON fixture answering every field (required)
  -graphql.introspection <bool>       Enable GraphQL introspection (default: true)
  -server.addr <addr>                 HTTP listen address (default: :8080)
  -server.pretty                      Pretty-print JSON responses
  -server.timeout <duration>          Per-request timeout, e.g. 10s (default: 10s)
  -server.graphiql                    Serve GraphiQL to browsers
  -server.cors-origin <origin>        Allowed CORS origin. Repeatable
  -otel.endpoint <addr>               OTLP collector endpoint
  -otel.service <name>                OpenTelemetry service name (default: permgraph)
  -log.dev                            Human-readable debug logging
`

const checkPolicyUsage = `check-policy FLAGS:
  -schema <file>   GraphQL SDL file (required)
  -policy <file>   Permission policy (required)
  -out <file>      Write SDL to file (default: stdout)
  (Exits non-zero when the policy cannot be installed)
`

const tokenUsage = `token FLAGS:
  -policy <file>     Policy supplying jwt_secret
  -secret <string>   HMAC secret; overrides the policy
  -sub <subject>     Token subject (required)
  -role <name>       Role claim. Repeatable
  -ttl <duration>    Validity (default: 1h)
`

const grantUsage = `grant|revoke FLAGS:
  -policy <file>     Policy supplying redis.addr and redis.prefix (required)
  -sub <subject>     Subject (required)
  -grant <name>      Grant name. Repeatable; at least one required
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "permgraph:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	global := flag.NewFlagSet("permgraph", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer))
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "check-policy":
		return cmdCheckPolicy(cmdArgs, stdout)
	case "token":
		return cmdToken(cmdArgs, stdout)
	case "grant":
		return cmdGrant(cmdArgs, stdout, true)
	case "revoke":
		return cmdGrant(cmdArgs, stdout, false)
	case "help":
		return cmdHelp(cmdArgs, stdout)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Fprint(stdout, serveUsage)
	case "check-policy":
		fmt.Fprint(stdout, checkPolicyUsage)
	case "token":
		fmt.Fprint(stdout, tokenUsage)
	case "grant", "revoke":
		fmt.Fprint(stdout, grantUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// offlineStore stands in for the grant store when nothing is resolved.
type offlineStore struct{}

func (offlineStore) HasGrant(context.Context, string, string) (bool, error) {
	return false, grants.ErrStoreUnavailable
}

func loadSchema(path string) (*schema.Schema, error) {
	sdl, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	sch, err := schema.BuildFromSDL(string(sdl))
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	return sch, nil
}

// protect installs cfg on sch behind a Guard wrapping base.
func protect(cfg *policy.Config, store grants.Store, base executor.Runtime, sch *schema.Schema, logger *zap.Logger) (*permission.Guard, error) {
	perms, err := policy.Build(cfg, store)
	if err != nil {
		return nil, err
	}
	guard := permission.NewGuard(base, permission.WithLogger(logger))
	if err := policy.Install(cfg, perms, guard, sch); err != nil {
		return nil, err
	}
	return guard, nil
}

func cmdServe(args []string) error {
	schemaFile := ""
	policyFile := ""
	dataFile := ""
	addr := ":8080"
	pretty := false
	graphiql := false
	timeout := 10 * time.Second
	enableIntrospection := true
	otelEndpoint := ""
	otelService := "permgraph"
	dev := false
	var corsOrigins stringListFlag

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema", schemaFile, "GraphQL SDL file")
	fs.StringVar(&policyFile, "policy", policyFile, "Permission policy")
	fs.StringVar(&dataFile, "data", dataFile, "JSON fixture")
	fs.BoolVar(&enableIntrospection, "graphql.introspection", enableIntrospection, "Enable GraphQL introspection")
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON responses")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.BoolVar(&graphiql, "server.graphiql", graphiql, "Serve GraphiQL")
	fs.Var(&corsOrigins, "server.cors-origin", "Allowed CORS origin")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	fs.BoolVar(&dev, "log.dev", dev, "Development logging")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}
	if schemaFile == "" || policyFile == "" || dataFile == "" {
		fmt.Fprint(os.Stderr, serveUsage)
		return fmt.Errorf("-schema, -policy and -data are required")
	}

	logger, err := newLogger(dev)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := policy.Load(policyFile)
	if err != nil {
		return err
	}
	sch, err := loadSchema(schemaFile)
	if err != nil {
		return err
	}
	data, err := fixture.Load(dataFile)
	if err != nil {
		return err
	}

	var store grants.Store = offlineStore{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		store = grants.NewRedisStore(rdb, cfg.Redis.Prefix)
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	guard, err := protect(cfg, store, data, sch, logger)
	if err != nil {
		return err
	}
	var runtime executor.Runtime = guard
	if enableIntrospection {
		w := introspection.Wrap(runtime, sch)
		runtime, sch = w.Runtime, w.Schema
	}

	sopts := []server.Option{server.WithLogger(logger), server.WithGraphiQL(graphiql)}
	if pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if timeout > 0 {
		sopts = append(sopts, server.WithTimeout(timeout))
	}
	if len(corsOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(corsOrigins...))
	}
	if cfg.JWTSecret != "" {
		sopts = append(sopts, server.WithJWTSecret(cfg.JWTSecret))
	}
	h, err := server.New(runtime, sch, sopts...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)

	logger.Info("GraphQL server listening",
		zap.String("addr", addr),
		zap.Strings("protected", guard.Protected()))
	return http.ListenAndServe(addr, mux)
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func cmdCheckPolicy(args []string, stdout io.Writer) error {
	schemaFile := ""
	policyFile := ""
	outFile := ""
	fs := flag.NewFlagSet("check-policy", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema", schemaFile, "GraphQL SDL file")
	fs.StringVar(&policyFile, "policy", policyFile, "Permission policy")
	fs.StringVar(&outFile, "out", outFile, "Write SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, checkPolicyUsage)
		return err
	}
	if schemaFile == "" || policyFile == "" {
		fmt.Fprint(os.Stderr, checkPolicyUsage)
		return fmt.Errorf("-schema and -policy are required")
	}

	cfg, err := policy.Load(policyFile)
	if err != nil {
		return err
	}
	sch, err := loadSchema(schemaFile)
	if err != nil {
		return err
	}
	if _, err := protect(cfg, offlineStore{}, fixture.New(nil), sch, zap.NewNop()); err != nil {
		return err
	}
	sdl := schema.Render(sch)
	if outFile == "" {
		fmt.Fprint(stdout, sdl)
		return nil
	}
	return os.WriteFile(outFile, []byte(sdl), 0644)
}

func cmdToken(args []string, stdout io.Writer) error {
	policyFile := ""
	secret := ""
	subject := ""
	ttl := time.Hour
	var roles stringListFlag
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&policyFile, "policy", policyFile, "Policy supplying jwt_secret")
	fs.StringVar(&secret, "secret", secret, "HMAC secret")
	fs.StringVar(&subject, "sub", subject, "Token subject")
	fs.Var(&roles, "role", "Role claim")
	fs.DurationVar(&ttl, "ttl", ttl, "Validity")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, tokenUsage)
		return err
	}
	if secret == "" && policyFile != "" {
		cfg, err := policy.Load(policyFile)
		if err != nil {
			return err
		}
		secret = cfg.JWTSecret
	}
	if subject == "" || secret == "" {
		fmt.Fprint(os.Stderr, tokenUsage)
		return fmt.Errorf("-sub and a secret are required")
	}

	token, err := actor.Sign(actor.Actor{Subject: subject, Roles: roles}, secret, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	return nil
}

func cmdGrant(args []string, stdout io.Writer, add bool) error {
	policyFile := ""
	subject := ""
	var names stringListFlag
	fs := flag.NewFlagSet("grant", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&policyFile, "policy", policyFile, "Policy supplying the grant store")
	fs.StringVar(&subject, "sub", subject, "Subject")
	fs.Var(&names, "grant", "Grant name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, grantUsage)
		return err
	}
	if policyFile == "" || subject == "" || len(names) == 0 {
		fmt.Fprint(os.Stderr, grantUsage)
		return fmt.Errorf("-policy, -sub and -grant are required")
	}

	cfg, err := policy.Load(policyFile)
	if err != nil {
		return err
	}
	if cfg.Redis.Addr == "" {
		return fmt.Errorf("policy %s has no redis.addr", policyFile)
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer rdb.Close()
	store := grants.NewRedisStore(rdb, cfg.Redis.Prefix)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	verb := "granted"
	if add {
		err = store.Grant(ctx, subject, names...)
	} else {
		verb = "revoked"
		err = store.Revoke(ctx, subject, names...)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s %v for %s\n", verb, []string(names), subject)
	return nil
}
