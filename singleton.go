package beans

import (
	"fmt"
	"sync"
)

// earlyFactory produces an early, possibly-incomplete reference to a
// singleton still under construction. It is called at most once per
// creation attempt; the registry records whether it was ever actually
// invoked so the creation engine can tell "was only exposable" from "was
// actually taken" (see DESIGN.md Open Question 2).
type earlyFactory func() (any, error)

// singletonRegistry is the L1 three-map cache from spec §4.2: a name
// finishes creation exactly once, and a circular reference taken through
// property/field injection during that window observes an early,
// not-yet-populated instance rather than recursing into creation again.
//
// Grounded on provider.go's sync.Map-backed singleton cache and its
// separately tracked, order-preserving key list for reverse-order
// disposal; the three-map scheme itself has no direct analogue anywhere
// in the retrieved pack and is built from spec §4.2's pseudocode.
type singletonRegistry struct {
	mu sync.Mutex

	finished       map[string]any          // fully created singletons
	earlyFactories map[string]earlyFactory // in-progress: factory for an early reference
	earlyRefs      map[string]any          // in-progress: early reference already produced, cached
	earlyTaken     map[string]bool         // whether the early reference was ever actually handed out
	earlyTakenBy   map[string][]string     // name -> beans that captured its early reference, in order

	inCreation    map[string]bool // singleton names currently inside createBean (other scopes use resolutionStack)
	creationOrder []string        // finished names in creation-completion order, for LIFO disposal

	dependentsOf   map[string]map[string]bool // name -> set of names that depend on it
	dependenciesOf map[string]map[string]bool // name -> set of names it depends on

	disposables map[string]func() error // finished name -> destroy callback, if any

	// destroyed is set once DestroySingletons has run. Spec §5, §7 and §8
	// require that no singleton creation succeeds after this point, and
	// that a lookup instead fails with BeanNotAllowedForCreationError.
	destroyed bool
}

func newSingletonRegistry() *singletonRegistry {
	return &singletonRegistry{
		finished:       make(map[string]any),
		earlyFactories: make(map[string]earlyFactory),
		earlyRefs:      make(map[string]any),
		earlyTaken:     make(map[string]bool),
		earlyTakenBy:   make(map[string][]string),
		inCreation:     make(map[string]bool),
		dependentsOf:   make(map[string]map[string]bool),
		dependenciesOf: make(map[string]map[string]bool),
		disposables:    make(map[string]func() error),
	}
}

// Get returns the finished singleton for name, if any.
func (r *singletonRegistry) Get(name string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.finished[name]
	return v, ok
}

// GetEarly returns whatever reference is currently available for a
// singleton in creation: the finished instance if creation has completed
// concurrently, otherwise the cached early reference (producing it via the
// registered earlyFactory on first request), otherwise false if the name
// is not in creation at all.
// requestedBy, when non-empty, names the bean whose resolution is asking
// for the early reference, and is recorded so a later step-10 reconciliation
// failure can name every bean that captured a raw reference.
func (r *singletonRegistry) GetEarly(name, requestedBy string) (any, bool, error) {
	r.mu.Lock()
	if v, ok := r.finished[name]; ok {
		r.mu.Unlock()
		return v, true, nil
	}
	if v, ok := r.earlyRefs[name]; ok {
		if requestedBy != "" {
			r.earlyTakenBy[name] = append(r.earlyTakenBy[name], requestedBy)
		}
		r.mu.Unlock()
		return v, true, nil
	}
	factory, ok := r.earlyFactories[name]
	if !ok {
		r.mu.Unlock()
		return nil, false, nil
	}
	r.mu.Unlock() // factory invocation must not hold the registry lock

	ref, err := factory()
	if err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.finished[name]; ok {
		// Creation finished while we were computing the early ref; prefer
		// the finished instance to avoid handing out a stale reference.
		return v, true, nil
	}
	r.earlyRefs[name] = ref
	r.earlyTaken[name] = true
	if requestedBy != "" {
		r.earlyTakenBy[name] = append(r.earlyTakenBy[name], requestedBy)
	}
	return ref, true, nil
}

// MarkInCreation records that name has entered createBean. Returns
// CurrentlyInCreationError if name is already in creation and no early
// exposure has been registered for it (the constructor-argument-cycle
// case, which must fail).
func (r *singletonRegistry) MarkInCreation(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inCreation[name] {
		if _, ok := r.earlyFactories[name]; !ok {
			return &CurrentlyInCreationError{Name: name}
		}
	}
	r.inCreation[name] = true
	return nil
}

// ExposeEarly registers the factory that produces an early reference for
// name, once creation has proceeded far enough (post-instantiation,
// pre-property-population) that a partially built instance exists.
func (r *singletonRegistry) ExposeEarly(name string, factory earlyFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.earlyFactories[name] = factory
}

// WasEarlyReferenceTaken reports whether GetEarly ever actually invoked
// name's early factory, distinguishing "exposable but never observed"
// from "another bean really did inject the early reference" (Open
// Question 2). The creation engine uses this to decide whether the
// post-initialization reconciliation check is necessary.
func (r *singletonRegistry) WasEarlyReferenceTaken(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.earlyTaken[name]
}

// EarlyReferenceTakenBy returns the names of every bean that captured
// name's early reference, in the order they did so.
func (r *singletonRegistry) EarlyReferenceTakenBy(name string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.earlyTakenBy[name]...)
}

// EarlyReference returns the exact reference instance that was handed out
// early for name, if one was taken.
func (r *singletonRegistry) EarlyReference(name string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.earlyRefs[name]
	return v, ok
}

// Finish records the fully created instance for name, clears its
// in-progress bookkeeping, and records a destroy callback if provided.
func (r *singletonRegistry) Finish(name string, instance any, destroy func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished[name] = instance
	delete(r.earlyFactories, name)
	delete(r.earlyRefs, name)
	delete(r.earlyTaken, name)
	delete(r.earlyTakenBy, name)
	delete(r.inCreation, name)
	r.creationOrder = append(r.creationOrder, name)
	if destroy != nil {
		r.disposables[name] = destroy
	}
}

// Abort clears all in-progress bookkeeping for name after a failed
// creation attempt, so a later retry starts clean.
func (r *singletonRegistry) Abort(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.earlyFactories, name)
	delete(r.earlyRefs, name)
	delete(r.earlyTaken, name)
	delete(r.earlyTakenBy, name)
	delete(r.inCreation, name)
}

// IsInCreation reports whether name is currently between MarkInCreation
// and Finish/Abort.
func (r *singletonRegistry) IsInCreation(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inCreation[name]
}

// RegisterDependency records that dependent depends on dependency, for
// destruction ordering: dependency must be destroyed after dependent.
func (r *singletonRegistry) RegisterDependency(dependent, dependency string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dependentsOf[dependency] == nil {
		r.dependentsOf[dependency] = make(map[string]bool)
	}
	r.dependentsOf[dependency][dependent] = true
	if r.dependenciesOf[dependent] == nil {
		r.dependenciesOf[dependent] = make(map[string]bool)
	}
	r.dependenciesOf[dependent][dependency] = true
}

// DependentsOf returns the names that were recorded as depending on name.
func (r *singletonRegistry) DependentsOf(name string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.dependentsOf[name]))
	for n := range r.dependentsOf[name] {
		out = append(out, n)
	}
	return out
}

// DestroySingletons destroys every finished singleton with a registered
// destroy callback, in reverse creation order, and ensures a bean's
// dependents are destroyed before the bean itself even when that departs
// from strict reverse-creation order. Errors are collected, not raised
// per-bean, matching spec §7's "destruction failures are caught and
// logged, never propagated to the caller mid-teardown" rule; the caller
// still receives the aggregate to log.
func (r *singletonRegistry) DestroySingletons() []error {
	r.mu.Lock()
	r.destroyed = true
	order := append([]string(nil), r.creationOrder...)
	disposables := make(map[string]func() error, len(r.disposables))
	for k, v := range r.disposables {
		disposables[k] = v
	}
	dependents := make(map[string]map[string]bool, len(r.dependentsOf))
	for k, v := range r.dependentsOf {
		cp := make(map[string]bool, len(v))
		for n := range v {
			cp[n] = true
		}
		dependents[k] = cp
	}
	r.mu.Unlock()

	destroyed := make(map[string]bool, len(order))
	var errs []error

	var destroy func(name string)
	destroy = func(name string) {
		if destroyed[name] {
			return
		}
		for dep := range dependents[name] {
			destroy(dep)
		}
		destroyed[name] = true
		if fn, ok := disposables[name]; ok {
			if err := fn(); err != nil {
				errs = append(errs, fmt.Errorf("beans: error destroying bean %q: %w", name, err))
			}
		}
	}

	for i := len(order) - 1; i >= 0; i-- {
		destroy(order[i])
	}

	r.mu.Lock()
	r.finished = make(map[string]any)
	r.creationOrder = nil
	r.disposables = make(map[string]func() error)
	r.mu.Unlock()

	return errs
}

// Names returns the names of every finished singleton.
func (r *singletonRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.finished))
	for n := range r.finished {
		out = append(out, n)
	}
	return out
}

// IsDestroyed reports whether DestroySingletons has already run. Once
// true, resolveNamed must refuse any further creation (spec §5, §7, §8).
func (r *singletonRegistry) IsDestroyed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.destroyed
}

// DestroyOne destroys a single finished singleton immediately, running
// its destroy callback if any and dropping it from every bookkeeping map.
// Unlike DestroySingletons it does not cascade to dependents first; a
// caller destroying a bean with live dependents is responsible for
// destroying those first.
func (r *singletonRegistry) DestroyOne(name string) error {
	r.mu.Lock()
	if _, ok := r.finished[name]; !ok {
		r.mu.Unlock()
		return &NoSuchBeanError{Name: name}
	}
	fn, hasFn := r.disposables[name]
	delete(r.finished, name)
	delete(r.disposables, name)
	for i, n := range r.creationOrder {
		if n == name {
			r.creationOrder = append(r.creationOrder[:i], r.creationOrder[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	if hasFn {
		return fn()
	}
	return nil
}
