package beans

import "sync"

// FactoryBean is implemented by a bean whose registered definition
// produces not itself but some other object: the container treats a
// definition whose Constructor returns a FactoryBean specially, caching
// GetObject's result rather than the FactoryBean instance under the
// definition's own name (spec §4.3).
type FactoryBean interface {
	// GetObject returns the object this factory produces.
	GetObject() (any, error)
	// ObjectType returns the type of object GetObject produces, or nil if
	// not known ahead of creation.
	ObjectType() (any, bool)
	// IsSingleton reports whether GetObject's result should be cached
	// against the factory bean's own singleton scope.
	IsSingleton() bool
}

// factoryBeanRegistry caches FactoryBean products separately from the
// factory instances themselves, so a singleton-scoped factory's product is
// computed once even though the factory and the product are logically
// different singletons under the same name.
//
// Grounded on provider.go's getSingleton/setSingleton pattern, applied to
// a second name-keyed cache.
type factoryBeanRegistry struct {
	mu        sync.Mutex
	products  map[string]any
	computing map[string]bool // name -> a GetObject call for it is in flight
}

func newFactoryBeanRegistry() *factoryBeanRegistry {
	return &factoryBeanRegistry{
		products:  make(map[string]any),
		computing: make(map[string]bool),
	}
}

// GetObject returns fb's cached product for name, computing and caching it
// on first request if fb.IsSingleton(). The first successful computation
// runs the product through BeanPostProcessor's before/after-init hooks,
// exactly as an ordinary bean's own instance would (spec §4.3). If a call
// to fb.GetObject() recurses back into GetObject for the same name (the
// factory's own construction logic asks the container for the bean it is
// itself producing), the raw, unprocessed product is returned without
// caching it, rather than deadlocking or serving a half-finished entry.
func (r *factoryBeanRegistry) GetObject(c *Container, name string, fb FactoryBean) (any, error) {
	if !fb.IsSingleton() {
		obj, err := fb.GetObject()
		if err != nil {
			return nil, err
		}
		return applyFactoryProductHooks(c, name, obj)
	}

	r.mu.Lock()
	if v, ok := r.products[name]; ok {
		r.mu.Unlock()
		return v, nil
	}
	if r.computing[name] {
		r.mu.Unlock()
		return fb.GetObject()
	}
	r.computing[name] = true
	r.mu.Unlock()

	obj, err := fb.GetObject()

	r.mu.Lock()
	delete(r.computing, name)
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}

	processed, err := applyFactoryProductHooks(c, name, obj)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.products[name]; ok {
		// Another goroutine raced us; keep whichever was cached first.
		return v, nil
	}
	r.products[name] = processed
	return processed, nil
}

// applyFactoryProductHooks runs a freshly computed factory product through
// every registered BeanPostProcessor's before/after-initialization hooks.
func applyFactoryProductHooks(c *Container, name string, obj any) (any, error) {
	final := obj
	var err error
	for _, bp := range c.processors.beanPostProcessors() {
		final, err = bp.BeforeInitialization(name, final)
		if err != nil {
			return nil, &BeanCreationError{Name: name, Phase: "initialization", Cause: err}
		}
	}
	for _, bp := range c.processors.beanPostProcessors() {
		final, err = bp.AfterInitialization(name, final)
		if err != nil {
			return nil, &BeanCreationError{Name: name, Phase: "initialization", Cause: err}
		}
	}
	return final, nil
}

// Remove drops a cached product, used when its owning definition is
// removed from the registry.
func (r *factoryBeanRegistry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.products, name)
}
