// Package beans implements the core of an inversion-of-control container:
// a definition registry with parent/child merge semantics, a singleton
// registry that resolves circular references through early exposure, a
// dependency resolver that autowires by name, type, and qualifier, and a
// post-processor pipeline invoked at fixed lifecycle points.
//
// # Basic usage
//
//	c := beans.New()
//	c.RegisterDefinition(beans.NewBeanDefinition("clock", reflect.TypeOf(&RealClock{}),
//		func(r beans.DependencyResolver) (any, error) { return &RealClock{}, nil }))
//	if err := c.Refresh(); err != nil {
//		log.Fatal(err)
//	}
//	clock, err := c.GetBean("clock")
//
// # Singletons and cycles
//
// Beans registered with beans.ScopeSingleton (the default) are created once
// during Refresh and cached for the container's lifetime. A circular
// reference between two singletons succeeds only if at least one side of
// the cycle is satisfied through property/field injection rather than
// constructor arguments — the container exposes an early, not-yet-fully
// populated reference for exactly that case. A cycle that can only be
// broken through a constructor argument fails with CurrentlyInCreationError.
//
// # Post-processors
//
// BeanFactoryPostProcessor and BeanDefinitionRegistryPostProcessor run once
// during Refresh, before any bean is instantiated. InstantiationAwareBeanPostProcessor
// and BeanPostProcessor run around every bean's creation, ordered by the
// PriorityOrdered/Ordered tiers when a processor implements one of them and
// falling back to registration order otherwise; the container never
// dispatches on a processor's Go type, only on which hook interfaces it
// implements.
//
// # Thread safety
//
// Container, once Refresh has completed, is safe for concurrent use by
// multiple goroutines. Definition registration before Refresh is not
// required to be concurrency-safe; registering definitions after Refresh
// is permitted but each newly registered singleton is created lazily,
// under the same locking discipline as eager singletons.
package beans
