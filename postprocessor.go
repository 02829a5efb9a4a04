package beans

// Post-processor hook families (spec §4.7). The pipeline dispatches on
// which of these interfaces a registered processor implements, never on
// the processor's own Go type — a processor implementing three of the
// hooks below runs at all three points, in the same relative order as
// every other processor implementing that hook (spec §9's warning against
// type-hierarchy dispatch).
//
// Grounded on decorator.go's ordered, first-registered-first-applied loop
// (applyDecorators), generalized from a single decoration point to the
// full instance-phase hook set, and on danpasecinic/needle's
// Lifecycle{onStart, onStop} append-ordered hook slices for the
// definition-phase bookkeeping shape.

// BeanDefinitionRegistryPostProcessor runs once during Refresh, before any
// bean is instantiated, and may add or rewrite bean definitions.
type BeanDefinitionRegistryPostProcessor interface {
	PostProcessBeanDefinitionRegistry(registry *DefinitionEditor) error
}

// BeanFactoryPostProcessor runs once during Refresh, after all
// BeanDefinitionRegistryPostProcessors, and may inspect (but not add)
// definitions.
type BeanFactoryPostProcessor interface {
	PostProcessBeanFactory(c *Container) error
}

// InstantiationAwareBeanPostProcessor hooks the creation engine before a
// bean's constructor runs and around its property population.
type InstantiationAwareBeanPostProcessor interface {
	// BeforeInstantiation may return a non-nil instance to short-circuit
	// normal construction entirely (spec §4.5 step 3).
	BeforeInstantiation(beanName string, def *BeanDefinition) (any, error)
	// AfterInstantiation returning false skips property population.
	AfterInstantiation(beanName string, instance any) (bool, error)
	// PostProcessProperties may rewrite the property values about to be
	// applied.
	PostProcessProperties(beanName string, instance any, props []PropertyValue) ([]PropertyValue, error)
}

// SmartInstantiationAwareBeanPostProcessor additionally supplies the early
// reference exposed during circular-dependency resolution (spec §4.5 step
// 7); a processor that does not need to customize the early reference can
// simply not implement this interface.
type SmartInstantiationAwareBeanPostProcessor interface {
	InstantiationAwareBeanPostProcessor
	GetEarlyReference(beanName string, instance any) (any, error)
}

// BeanPostProcessor runs immediately before and after a bean's InitFunc.
type BeanPostProcessor interface {
	BeforeInitialization(beanName string, instance any) (any, error)
	AfterInitialization(beanName string, instance any) (any, error)
}

// DestructionAwareBeanPostProcessor runs before a singleton is destroyed.
type DestructionAwareBeanPostProcessor interface {
	RequiresDestruction(beanName string, instance any) bool
	BeforeDestruction(beanName string, instance any) error
}

// processorPipeline holds every registered processor once, in
// registration order, and offers per-hook iteration so the creation
// engine never has to know which processors implement which hooks.
type processorPipeline struct {
	all []any
}

func (p *processorPipeline) register(processor any) {
	p.all = append(p.all, processor)
}

// Each per-hook filter below runs its matches through orderProcessors so
// that a PriorityOrdered or Ordered processor takes its declared position
// within the hook family instead of always falling back to plain
// registration order (spec §4.7).

func (p *processorPipeline) registryProcessors() []BeanDefinitionRegistryPostProcessor {
	var out []BeanDefinitionRegistryPostProcessor
	for _, proc := range p.all {
		if rp, ok := proc.(BeanDefinitionRegistryPostProcessor); ok {
			out = append(out, rp)
		}
	}
	return orderProcessors(out)
}

func (p *processorPipeline) factoryProcessors() []BeanFactoryPostProcessor {
	var out []BeanFactoryPostProcessor
	for _, proc := range p.all {
		if fp, ok := proc.(BeanFactoryPostProcessor); ok {
			out = append(out, fp)
		}
	}
	return orderProcessors(out)
}

func (p *processorPipeline) instantiationAware() []InstantiationAwareBeanPostProcessor {
	var out []InstantiationAwareBeanPostProcessor
	for _, proc := range p.all {
		if ip, ok := proc.(InstantiationAwareBeanPostProcessor); ok {
			out = append(out, ip)
		}
	}
	return orderProcessors(out)
}

func (p *processorPipeline) smartInstantiationAware() []SmartInstantiationAwareBeanPostProcessor {
	var out []SmartInstantiationAwareBeanPostProcessor
	for _, proc := range p.all {
		if sp, ok := proc.(SmartInstantiationAwareBeanPostProcessor); ok {
			out = append(out, sp)
		}
	}
	return orderProcessors(out)
}

func (p *processorPipeline) beanPostProcessors() []BeanPostProcessor {
	var out []BeanPostProcessor
	for _, proc := range p.all {
		if bp, ok := proc.(BeanPostProcessor); ok {
			out = append(out, bp)
		}
	}
	return orderProcessors(out)
}

func (p *processorPipeline) destructionAware() []DestructionAwareBeanPostProcessor {
	var out []DestructionAwareBeanPostProcessor
	for _, proc := range p.all {
		if dp, ok := proc.(DestructionAwareBeanPostProcessor); ok {
			out = append(out, dp)
		}
	}
	return orderProcessors(out)
}

// DefinitionEditor is the narrow mutation surface a
// BeanDefinitionRegistryPostProcessor gets, deliberately smaller than the
// full definitionRegistry (it cannot read merged definitions or singleton
// state, only add/remove raw ones).
type DefinitionEditor struct {
	registry *definitionRegistry
}

func (e *DefinitionEditor) Register(def *BeanDefinition) error { return e.registry.Register(def) }
func (e *DefinitionEditor) Remove(name string)                 { e.registry.Remove(name) }
func (e *DefinitionEditor) Contains(name string) bool          { return e.registry.Contains(name) }
func (e *DefinitionEditor) Names() []string                    { return e.registry.Names() }

// runDefinitionPhase runs registry processors to a fixed point (each runs
// exactly once; a processor may register further registry processors, so
// passes repeat until one finds no processor that has not yet run) and
// then the factory processors once, per spec §4.7.
func (c *Container) runDefinitionPhase() error {
	seen := map[BeanDefinitionRegistryPostProcessor]bool{}
	for {
		progressed := false
		for _, rp := range c.processors.registryProcessors() {
			if seen[rp] {
				continue
			}
			if err := rp.PostProcessBeanDefinitionRegistry(&DefinitionEditor{registry: c.definitions}); err != nil {
				return err
			}
			seen[rp] = true
			progressed = true
		}
		if !progressed {
			break
		}
	}

	for _, fp := range c.processors.factoryProcessors() {
		if err := fp.PostProcessBeanFactory(c); err != nil {
			return err
		}
	}
	return nil
}
