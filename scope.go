package beans

import (
	"sort"
	"sync"
)

// ScopeHandler produces and, optionally, tracks instances for a
// non-singleton, non-prototype scope (a request scope, a pooled scope,
// ...). The container calls Get once per resolution; a handler that wants
// per-scope caching (a "request" scope caching one instance per active
// request) is responsible for keying that cache off of information it
// obtains independently of the container, since the container itself
// carries no notion of "current request".
//
// Widened from lifetime.go's fixed two-value enum to an open registration
// model, following danpasecinic/needle's Singleton/Transient/Request/
// Pooled named-scope convention (scope.go in that repo), because spec §4
// requires the registry to support arbitrary custom scope names, not a
// closed set.
type ScopeHandler interface {
	// Get returns an instance, invoking create if the handler does not
	// already have one cached for the current logical unit of work.
	Get(name string, create func() (any, error)) (any, error)
}

// ScopeHandlerWithDestroy is implemented by a ScopeHandler that supports
// explicitly invalidating one cached instance, backing
// Container.DestroyScopedBean. A handler that only accumulates state for
// the life of the process has no reason to implement it.
type ScopeHandlerWithDestroy interface {
	ScopeHandler
	Remove(name string) error
}

// scopeRegistry holds the handlers for custom scope names. singleton and
// prototype are handled directly by the creation engine and are not
// represented here.
type scopeRegistry struct {
	mu       sync.RWMutex
	handlers map[string]ScopeHandler
}

func newScopeRegistry() *scopeRegistry {
	return &scopeRegistry{handlers: make(map[string]ScopeHandler)}
}

func (r *scopeRegistry) Register(name string, h ScopeHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

func (r *scopeRegistry) Get(name string) (ScopeHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns every registered custom scope name, sorted for
// deterministic enumeration.
func (r *scopeRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// simpleScopeHandler is a minimal ScopeHandler that caches exactly one
// instance until Remove is called, useful for tests and for
// custom scopes that are really "singleton, but named separately for
// destruction-order clarity".
type simpleScopeHandler struct {
	mu       sync.Mutex
	instance any
	created  bool
}

// NewSimpleScopeHandler returns a ScopeHandler that lazily creates and
// caches a single instance.
func NewSimpleScopeHandler() ScopeHandler {
	return &simpleScopeHandler{}
}

func (h *simpleScopeHandler) Get(name string, create func() (any, error)) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.created {
		return h.instance, nil
	}
	v, err := create()
	if err != nil {
		return nil, err
	}
	h.instance = v
	h.created = true
	return v, nil
}

// Remove drops the cached instance, if any, so the next Get call creates
// a fresh one. Satisfies ScopeHandlerWithDestroy.
func (h *simpleScopeHandler) Remove(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.instance = nil
	h.created = false
	return nil
}
