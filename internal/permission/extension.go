package permission

import (
	"context"
	"sync"
	"time"

	eventbus "github.com/hanpama/permgraph/internal/eventbus"
	events "github.com/hanpama/permgraph/internal/events"
	future "github.com/hanpama/permgraph/internal/future"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// SyncResolver is the resolution an Extension gates on the synchronous path.
type SyncResolver func(ctx context.Context, source any, args map[string]any) (any, error)

// AsyncResolver is the resolution an Extension gates on the asynchronous
// path. A ready result holding a future.Stream is handed back unconsumed.
type AsyncResolver func(ctx context.Context, source any, args map[string]any) future.Maybe[any]

// EmptyValuePolicy selects what a silent denial resolves to.
type EmptyValuePolicy int

const (
	EmptyNone EmptyValuePolicy = iota
	EmptyList
)

func (p EmptyValuePolicy) value() any {
	if p == EmptyList {
		return []any{}
	}
	return nil
}

// Extension gates one field behind an ordered list of permissions.
// Configure it with Apply before resolving; afterwards it is safe for
// concurrent use.
type Extension struct {
	permissions   []*Permission
	useDirectives bool
	failSilently  bool
	emptyValue    EmptyValuePolicy

	objectType string
	field      string
	observe    func(ctx context.Context, e events.PermissionCheck)

	supportsSyncOnce sync.Once
	supportsSync     bool
}

// ExtensionOption configures an Extension.
type ExtensionOption func(*Extension)

// FailSilently makes denials resolve to an empty value instead of an error.
func FailSilently() ExtensionOption { return func(e *Extension) { e.failSilently = true } }

// UseDirectives controls whether Apply attaches permission directives to the
// field. Enabled by default.
func UseDirectives(enabled bool) ExtensionOption {
	return func(e *Extension) { e.useDirectives = enabled }
}

// NewExtension returns an extension checking perms in the given order.
func NewExtension(perms []*Permission, opts ...ExtensionOption) *Extension {
	e := &Extension{
		permissions:   append([]*Permission(nil), perms...),
		useDirectives: true,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Extension) Permissions() []*Permission   { return append([]*Permission(nil), e.permissions...) }
func (e *Extension) FailsSilently() bool          { return e.failSilently }
func (e *Extension) UsesDirectives() bool         { return e.useDirectives }
func (e *Extension) EmptyValue() EmptyValuePolicy { return e.emptyValue }

// Apply configures the extension for field. It must run once, before the
// first resolution.
func (e *Extension) Apply(field *schema.Field) error {
	if e.failSilently {
		switch {
		case field.Type.IsList():
			e.emptyValue = EmptyList
		case field.Type.IsNonNull():
			return &ConfigurationError{ObjectType: e.objectType, Field: field.Name, TypeRef: field.Type.String()}
		default:
			e.emptyValue = EmptyNone
		}
	}
	if e.field == "" {
		e.field = field.Name
	}
	if e.useDirectives {
		for _, p := range e.permissions {
			field.AddDirective(p.Directive())
		}
	}
	if !e.SupportsSync() {
		field.Async = true
	}
	return nil
}

// SupportsSync reports whether every permission checks synchronously.
func (e *Extension) SupportsSync() bool {
	e.supportsSyncOnce.Do(func() {
		e.supportsSync = true
		for _, p := range e.permissions {
			if p.Mode() == CheckAsync {
				e.supportsSync = false
				return
			}
		}
	})
	return e.supportsSync
}

// ResolveSync runs the checks in order and calls next once all pass. A
// pending check is awaited.
func (e *Extension) ResolveSync(ctx context.Context, next SyncResolver, source any, args map[string]any) (any, error) {
	if v, denied, err := e.authorize(ctx, source, args); denied {
		return v, err
	}
	return next(ctx, source, args)
}

// ResolveAsync runs the checks in order, awaiting pending ones, and calls
// next once all pass. A pending result of next is awaited; a ready result
// is returned as is, so streams reach the caller unconsumed.
func (e *Extension) ResolveAsync(ctx context.Context, next AsyncResolver, source any, args map[string]any) (any, error) {
	if v, denied, err := e.authorize(ctx, source, args); denied {
		return v, err
	}
	res := next(ctx, source, args)
	if res.IsPending() {
		return res.Await(ctx)
	}
	return res.Value()
}

// authorize reports denied=true with the value and error to return when a
// check fails or denies access.
func (e *Extension) authorize(ctx context.Context, source any, args map[string]any) (any, bool, error) {
	for _, p := range e.permissions {
		start := time.Now()
		ok, err := p.Check(ctx, source, args).Await(ctx)
		e.report(ctx, events.PermissionCheck{
			ObjectType: e.objectType,
			Field:      e.field,
			Permission: p.Name(),
			Mode:       p.Mode().String(),
			Allowed:    ok && err == nil,
			Err:        err,
			Duration:   time.Since(start),
		})
		if err != nil {
			return nil, true, err
		}
		if !ok {
			if e.failSilently {
				return e.emptyValue.value(), true, nil
			}
			return nil, true, p.OnUnauthorized()
		}
	}
	return nil, false, nil
}

func (e *Extension) report(ctx context.Context, ev events.PermissionCheck) {
	if e.observe != nil {
		e.observe(ctx, ev)
		return
	}
	eventbus.Publish(ctx, ev)
}
