package permission

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	eventbus "github.com/hanpama/permgraph/internal/eventbus"
	events "github.com/hanpama/permgraph/internal/events"
	executor "github.com/hanpama/permgraph/internal/executor"
	future "github.com/hanpama/permgraph/internal/future"
	reqid "github.com/hanpama/permgraph/internal/reqid"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// Guard is an executor.Runtime that gates protected fields of a wrapped
// Runtime. Fields are registered with Protect while the schema is built;
// Protect must not race with execution.
type Guard struct {
	base   executor.Runtime
	fields map[string]*guardedField
	logger *zap.Logger
}

type guardedField struct {
	ext *Extension
	// syncBase is set when the wrapped runtime resolves the field through
	// ResolveSync even though the gate made it async.
	syncBase bool
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithLogger sets the logger used to report denied checks.
func WithLogger(l *zap.Logger) GuardOption {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGuard wraps base.
func NewGuard(base executor.Runtime, opts ...GuardOption) *Guard {
	g := &Guard{base: base, fields: make(map[string]*guardedField), logger: zap.NewNop()}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Protect applies ext to objectType.field of sch and routes the field's
// resolution through it. Permission directive definitions are registered on
// the schema when ext uses directives.
func (g *Guard) Protect(sch *schema.Schema, objectType, field string, ext *Extension) error {
	f := sch.LookupField(objectType, field)
	if f == nil {
		return fmt.Errorf("permission: unknown field %s.%s", objectType, field)
	}
	key := objectType + "." + field
	if _, dup := g.fields[key]; dup {
		return fmt.Errorf("permission: field %s is already protected", key)
	}
	if ext.objectType != "" && (ext.objectType != objectType || ext.field != field) {
		return fmt.Errorf("permission: extension for %s.%s reused on %s", ext.objectType, ext.field, key)
	}
	if ext.UsesDirectives() {
		if err := distinctNames(ext.permissions, key); err != nil {
			return err
		}
	}

	syncBase := !f.Async
	if err := ext.Apply(f); err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			cfgErr.ObjectType = objectType
		}
		return err
	}
	ext.objectType, ext.field = objectType, field
	ext.observe = g.observe
	if ext.UsesDirectives() {
		for _, p := range ext.permissions {
			sch.AddDirective(p.Directive())
		}
	}
	g.fields[key] = &guardedField{ext: ext, syncBase: syncBase}
	return nil
}

// distinctNames rejects two Permission instances sharing a name on one field:
// their directives would print as a repeated non-repeatable directive.
func distinctNames(perms []*Permission, key string) error {
	seen := make(map[string]*Permission, len(perms))
	for _, p := range perms {
		if prev, ok := seen[p.Name()]; ok && prev != p {
			return fmt.Errorf("permission: field %s has two permissions named %s", key, p.Name())
		}
		seen[p.Name()] = p
	}
	return nil
}

// Extension returns the extension protecting objectType.field, if any.
func (g *Guard) Extension(objectType, field string) (*Extension, bool) {
	gf, ok := g.fields[objectType+"."+field]
	if !ok {
		return nil, false
	}
	return gf.ext, true
}

// Protected lists the protected fields as "Type.field", sorted.
func (g *Guard) Protected() []string {
	out := make([]string, 0, len(g.fields))
	for k := range g.fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (g *Guard) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	gf, ok := g.fields[objectType+"."+field]
	if !ok {
		return g.base.ResolveSync(ctx, objectType, field, source, args)
	}
	return gf.ext.ResolveSync(ctx, func(ctx context.Context, source any, args map[string]any) (any, error) {
		return g.base.ResolveSync(ctx, objectType, field, source, args)
	}, source, args)
}

// BatchResolveAsync checks every gated task concurrently. Once each gated
// task has either been denied or reached its resolver, the ungated tasks and
// the admitted ones are forwarded to the wrapped runtime as one batch.
func (g *Guard) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	forward := make([]bool, len(tasks))
	forwarded := make([]executor.AsyncResolveTask, len(tasks))
	settles := make([]func(any, error), len(tasks))

	var decided, finished sync.WaitGroup
	for i, task := range tasks {
		gf, ok := g.fields[task.ObjectType+"."+task.Field]
		if !ok {
			forward[i] = true
			forwarded[i] = task
			continue
		}
		decided.Add(1)
		finished.Add(1)
		go func(i int, task executor.AsyncResolveTask, gf *guardedField) {
			defer finished.Done()
			var once sync.Once
			markDecided := func() { once.Do(decided.Done) }
			defer markDecided()

			next := func(ctx context.Context, source any, args map[string]any) future.Maybe[any] {
				if gf.syncBase {
					markDecided()
					return future.Ready(g.base.ResolveSync(ctx, task.ObjectType, task.Field, source, args))
				}
				f, settle := future.New[any]()
				forwarded[i] = executor.AsyncResolveTask{ObjectType: task.ObjectType, Field: task.Field, Source: source, Args: args}
				settles[i] = settle
				forward[i] = true
				markDecided()
				return future.Pending(f)
			}
			v, err := gf.ext.ResolveAsync(ctx, next, task.Source, task.Args)
			results[i] = executor.AsyncResolveResult{Value: v, Error: err}
		}(i, task, gf)
	}
	decided.Wait()

	var idx []int
	var batch []executor.AsyncResolveTask
	for i := range tasks {
		if forward[i] {
			idx = append(idx, i)
			batch = append(batch, forwarded[i])
		}
	}
	var out []executor.AsyncResolveResult
	if len(batch) > 0 {
		out = g.base.BatchResolveAsync(ctx, batch)
	}
	for k, i := range idx {
		var r executor.AsyncResolveResult
		if k < len(out) {
			r = out[k]
		} else {
			r.Error = fmt.Errorf("runtime returned %d results for %d tasks", len(out), len(batch))
		}
		if settles[i] != nil {
			settles[i](r.Value, r.Error)
		} else {
			results[i] = r
		}
	}
	finished.Wait()
	return results
}

func (g *Guard) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return g.base.ResolveType(ctx, abstractType, value)
}

func (g *Guard) SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error) {
	return g.base.SerializeLeafValue(ctx, scalarOrEnumTypeName, value)
}

func (g *Guard) observe(ctx context.Context, e events.PermissionCheck) {
	logger := g.logger
	if rid, ok := reqid.FromContext(ctx); ok {
		logger = logger.With(zap.String("request_id", rid))
	}
	switch {
	case e.Err != nil:
		logger.Warn("permission check failed",
			zap.String("field", e.ObjectType+"."+e.Field),
			zap.String("permission", e.Permission),
			zap.Error(e.Err))
	case !e.Allowed:
		logger.Debug("permission denied",
			zap.String("field", e.ObjectType+"."+e.Field),
			zap.String("permission", e.Permission),
			zap.Duration("duration", e.Duration))
	}
	eventbus.Publish(ctx, e)
}

var _ executor.Runtime = (*Guard)(nil)
