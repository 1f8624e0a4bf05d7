package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	actor "github.com/hanpama/permgraph/internal/actor"
	grants "github.com/hanpama/permgraph/internal/grants"
	permission "github.com/hanpama/permgraph/internal/permission"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// Build constructs the configured permissions keyed by name. store may be nil
// when no permission uses a grant.
func Build(cfg *Config, store grants.Store) (map[string]*permission.Permission, error) {
	perms := make(map[string]*permission.Permission, len(cfg.Permissions))
	for _, pc := range cfg.Permissions {
		if _, dup := perms[pc.Name]; dup {
			return nil, fmt.Errorf("policy: permission %s declared twice", pc.Name)
		}
		opts := []permission.Option{permission.WithMessage(pc.Message)}
		if len(pc.Extensions) > 0 {
			opts = append(opts, permission.WithErrorExtensions(pc.Extensions))
		}
		switch {
		case pc.Grant != "":
			if store == nil {
				return nil, fmt.Errorf("policy: permission %s needs a grant store", pc.Name)
			}
			perms[pc.Name] = grants.Permission(pc.Name, pc.Grant, store, opts...)
		default:
			prog, err := expr.Compile(pc.Expr, expr.Env(exprEnv{}), expr.AsBool())
			if err != nil {
				return nil, fmt.Errorf("policy: permission %s: compile expression: %w", pc.Name, err)
			}
			perms[pc.Name] = permission.New(pc.Name, exprCheck(pc.Name, prog), opts...)
		}
	}
	return perms, nil
}

// exprEnv is the environment of a permission expression: the request actor,
// the parent value and the field arguments. Subject and Roles are empty for
// anonymous requests. Source stays untyped so expressions may reach into any
// parent value.
type exprEnv struct {
	Actor   *actor.Actor   `expr:"actor"`
	Subject string         `expr:"subject"`
	Roles   []string       `expr:"roles"`
	Source  any            `expr:"source"`
	Args    map[string]any `expr:"args"`
}

func newExprEnv(ctx context.Context, source any, args map[string]any) exprEnv {
	env := exprEnv{Roles: []string{}, Source: source, Args: args}
	if a, ok := actor.FromContext(ctx); ok {
		env.Actor, env.Subject = a, a.Subject
		if a.Roles != nil {
			env.Roles = a.Roles
		}
	}
	return env
}

func exprCheck(name string, prog *vm.Program) permission.CheckFunc {
	return func(ctx context.Context, source any, args map[string]any) (bool, error) {
		out, err := expr.Run(prog, newExprEnv(ctx, source, args))
		if err != nil {
			return false, fmt.Errorf("permission %s: evaluate expression: %w", name, err)
		}
		ok, _ := out.(bool)
		return ok, nil
	}
}

// Install protects every configured field of sch through guard.
func Install(cfg *Config, perms map[string]*permission.Permission, guard *permission.Guard, sch *schema.Schema) error {
	for _, fc := range cfg.Fields {
		typeName, fieldName, _ := strings.Cut(fc.Field, ".")
		list := make([]*permission.Permission, 0, len(fc.Permissions))
		for _, name := range fc.Permissions {
			p, ok := perms[name]
			if !ok {
				return fmt.Errorf("policy: field %s: unknown permission %s", fc.Field, name)
			}
			list = append(list, p)
		}
		var opts []permission.ExtensionOption
		if fc.FailSilently {
			opts = append(opts, permission.FailSilently())
		}
		if fc.UseDirectives != nil {
			opts = append(opts, permission.UseDirectives(*fc.UseDirectives))
		}
		if err := guard.Protect(sch, typeName, fieldName, permission.NewExtension(list, opts...)); err != nil {
			return fmt.Errorf("policy: %w", err)
		}
	}
	return nil
}
