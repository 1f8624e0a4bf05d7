package permission

import (
	"context"
	"maps"
	"sync/atomic"

	executor "github.com/hanpama/permgraph/internal/executor"
	future "github.com/hanpama/permgraph/internal/future"
	schema "github.com/hanpama/permgraph/internal/schema"
)

// CheckMode declares whether a permission's check completes inline.
type CheckMode int

const (
	CheckSync CheckMode = iota
	CheckAsync
)

func (m CheckMode) String() string {
	if m == CheckAsync {
		return "async"
	}
	return "sync"
}

// CheckFunc decides synchronously whether access is granted.
type CheckFunc func(ctx context.Context, source any, args map[string]any) (bool, error)

// AsyncCheckFunc starts a check and returns a Future for the decision.
type AsyncCheckFunc func(ctx context.Context, source any, args map[string]any) *future.Future[bool]

// ErrorFactory constructs the error raised on denial from the permission
// message.
type ErrorFactory func(message string) executor.GraphQLError

// UnauthorizedFunc replaces the default denial behaviour of a Permission.
type UnauthorizedFunc func(p *Permission) error

// Permission is a single authorization check plus its denial behaviour.
// A Permission is immutable after construction and safe for concurrent use.
type Permission struct {
	name           string
	message        string
	extensions     map[string]any
	newError       ErrorFactory
	onUnauthorized UnauthorizedFunc

	mode       CheckMode
	check      CheckFunc
	checkAsync AsyncCheckFunc

	directive atomic.Pointer[schema.Directive]
}

// Option configures a Permission.
type Option func(*Permission)

// WithMessage sets the human readable denial reason.
func WithMessage(msg string) Option { return func(p *Permission) { p.message = msg } }

// WithErrorExtensions sets metadata merged into the denial error's
// extensions. The map is copied.
func WithErrorExtensions(ext map[string]any) Option {
	return func(p *Permission) { p.extensions = maps.Clone(ext) }
}

// WithErrorFactory replaces NewAuthorizationError as the denial error
// constructor.
func WithErrorFactory(f ErrorFactory) Option { return func(p *Permission) { p.newError = f } }

// WithOnUnauthorized replaces the default denial behaviour.
func WithOnUnauthorized(f UnauthorizedFunc) Option {
	return func(p *Permission) { p.onUnauthorized = f }
}

// New returns a synchronous permission. name is the permission kind and
// doubles as its directive name, so it must be a valid GraphQL name.
func New(name string, check CheckFunc, opts ...Option) *Permission {
	p := newPermission(name, opts)
	p.mode = CheckSync
	p.check = check
	return p
}

// NewAsync returns a permission whose check completes later.
func NewAsync(name string, check AsyncCheckFunc, opts ...Option) *Permission {
	p := newPermission(name, opts)
	p.mode = CheckAsync
	p.checkAsync = check
	return p
}

func newPermission(name string, opts []Option) *Permission {
	p := &Permission{name: name, newError: NewAuthorizationError}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Permission) Name() string                    { return p.name }
func (p *Permission) Message() string                 { return p.message }
func (p *Permission) Mode() CheckMode                 { return p.mode }
func (p *Permission) ErrorExtensions() map[string]any { return maps.Clone(p.extensions) }

// Check evaluates the permission. Synchronous permissions return a ready
// result; asynchronous ones return a pending result. A nil Future counts as
// a denial.
func (p *Permission) Check(ctx context.Context, source any, args map[string]any) future.Maybe[bool] {
	if p.mode == CheckAsync {
		return future.Pending(p.checkAsync(ctx, source, args))
	}
	return future.Ready(p.check(ctx, source, args))
}

// OnUnauthorized returns the error for a non-silent denial.
func (p *Permission) OnUnauthorized() error {
	if p.onUnauthorized != nil {
		return p.onUnauthorized(p)
	}
	err := p.newError(p.message)
	if len(p.extensions) > 0 {
		merged := make(map[string]any, len(err.Extensions)+len(p.extensions))
		maps.Copy(merged, err.Extensions)
		maps.Copy(merged, p.extensions)
		err.Extensions = merged
	}
	return err
}

// Directive returns the schema directive advertising this permission,
// creating it on first use. Every call returns the same object.
func (p *Permission) Directive() *schema.Directive {
	if d := p.directive.Load(); d != nil {
		return d
	}
	d := schema.NewDirective(p.name, p.message).AddLocation(schema.LocationFieldDefinition)
	if p.directive.CompareAndSwap(nil, d) {
		return d
	}
	return p.directive.Load()
}
