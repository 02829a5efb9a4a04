package beans

import "fmt"

// createBean runs the full creation sequence for one bean name against
// its merged definition (spec §4.5). It is entered from resolveNamed for
// every scope, but only singleton scope registers early exposure and
// caches the result; prototype and custom scopes run the same sequence
// per call.
//
// Numbered steps below correspond to spec §4.5. Two of that section's
// steps have no Go rendering and are folded into their neighbors: "prepare
// method overrides" (step 2) has no analogue without a method-override
// facility, and "merged-definition post-processing" (step 6) is a hook
// for annotation-metadata scanners, which are an explicitly out-of-scope
// definition source (spec.md §1) — neither drops any externally visible
// behavior.
//
// Grounded on resolution.go's scope.createInstance (analyze constructor,
// invoke, apply decorators) generalized into the full sequence, and
// provider.go's createAllSingletonsWithContext for the eager-singleton
// driver in Refresh.
func (c *Container) createBean(name string, def *mergedDefinition, stack *resolutionStack, args []any) (any, error) {
	if def.Abstract {
		return nil, &BeanNotAllowedForCreationError{Name: name, Reason: "definition is abstract"}
	}
	if def.Constructor == nil {
		return nil, &BeanCreationError{Name: name, Phase: "instantiation",
			Cause: fmt.Errorf("no constructor registered")}
	}

	singleton := def.effectiveScope() == ScopeSingleton

	if singleton {
		if err := c.singletons.MarkInCreation(name); err != nil {
			return nil, err
		}
	} else if !stack.push(name) {
		return nil, &CurrentlyInCreationError{Name: name}
	}

	instance, err := c.doCreateBean(name, def, stack, args)

	if singleton {
		if err != nil {
			c.singletons.Abort(name)
		}
	} else {
		stack.pop()
	}

	if err != nil {
		if bce, ok := err.(*BeanCreationError); ok {
			return nil, bce
		}
		return nil, &BeanCreationError{Name: name, Phase: "instantiation", Cause: err}
	}
	return instance, nil
}

func (c *Container) doCreateBean(name string, def *mergedDefinition, stack *resolutionStack, args []any) (any, error) {
	resolver := &containerResolver{c: c, requestingBean: name, stack: stack, args: args}

	// Step 3: pre-instantiation shortcut.
	for _, ip := range c.processors.instantiationAware() {
		short, err := ip.BeforeInstantiation(name, def.BeanDefinition)
		if err != nil {
			return nil, &BeanCreationError{Name: name, Phase: "instantiation", Cause: err}
		}
		if short != nil {
			return c.finishShortcut(name, def, short)
		}
	}

	// Step 4-5: instantiate, resolving constructor arguments through resolver.
	instance, err := def.Constructor(resolver)
	if err != nil {
		bce := &BeanCreationError{Name: name, Phase: "instantiation", Cause: err}
		if nested, ok := err.(*BeanCreationError); ok {
			bce.addSuppressed(nested)
		}
		return nil, bce
	}

	// Step 8.1: AfterInstantiation may veto property population.
	populate := true
	for _, ip := range c.processors.instantiationAware() {
		ok, err := ip.AfterInstantiation(name, instance)
		if err != nil {
			return nil, &BeanCreationError{Name: name, Phase: "property-population", Cause: err}
		}
		if !ok {
			populate = false
		}
	}

	// Step 7: early singleton exposure, singleton scope only.
	if def.effectiveScope() == ScopeSingleton {
		captured := instance
		c.singletons.ExposeEarly(name, func() (any, error) {
			for _, sp := range c.processors.smartInstantiationAware() {
				ref, err := sp.GetEarlyReference(name, captured)
				if err != nil {
					return nil, err
				}
				captured = ref
			}
			return captured, nil
		})
	}

	if populate {
		props := def.Properties
		for _, ip := range c.processors.instantiationAware() {
			props, err = ip.PostProcessProperties(name, instance, props)
			if err != nil {
				return nil, &BeanCreationError{Name: name, Phase: "property-population", Cause: err}
			}
		}
		// Step 8: populate properties (explicit values/refs, then
		// struct-tag autowiring for anything left unset).
		if err := c.populateProperties(name, instance, props, def, resolver); err != nil {
			return nil, &BeanCreationError{Name: name, Phase: "property-population", Cause: err}
		}
	}

	// Step 9: initialize.
	final := instance
	for _, bp := range c.processors.beanPostProcessors() {
		final, err = bp.BeforeInitialization(name, final)
		if err != nil {
			return nil, &BeanCreationError{Name: name, Phase: "initialization", Cause: err}
		}
	}
	if def.InitFunc != nil {
		if err := def.InitFunc(final); err != nil {
			return nil, &BeanCreationError{Name: name, Phase: "initialization", Cause: err}
		}
	}
	for _, bp := range c.processors.beanPostProcessors() {
		final, err = bp.AfterInitialization(name, final)
		if err != nil {
			return nil, &BeanCreationError{Name: name, Phase: "initialization", Cause: err}
		}
	}

	// Step 10: circular-reference reconciliation. If another bean already
	// captured an early reference, the registry and every injectee must end
	// up agreeing on one object. When the early reference differs from the
	// bean's own final form, that is only tolerable under
	// AllowRawInjectionDespiteWrapping — and even then, the early reference
	// (already handed to at least one injectee) is what gets published,
	// never the newer, uncaptured final form (spec §4.5 step 10, §9).
	if def.effectiveScope() == ScopeSingleton {
		if c.singletons.WasEarlyReferenceTaken(name) {
			early, _ := c.singletons.EarlyReference(name)
			if early != final {
				if !c.options.AllowRawInjectionDespiteWrapping {
					return nil, &CurrentlyInCreationError{
						Name:       name,
						CapturedBy: c.singletons.EarlyReferenceTakenBy(name),
					}
				}
				final = early
			}
		}
	}

	// Step 11: register for destruction.
	if def.effectiveScope() == ScopeSingleton {
		destroy := c.buildDestroyCallback(name, final, def)
		c.singletons.Finish(name, final, destroy)
	}

	return final, nil
}

func (c *Container) finishShortcut(name string, def *mergedDefinition, instance any) (any, error) {
	final := instance
	var err error
	for _, bp := range c.processors.beanPostProcessors() {
		final, err = bp.AfterInitialization(name, final)
		if err != nil {
			return nil, &BeanCreationError{Name: name, Phase: "initialization", Cause: err}
		}
	}
	if def.effectiveScope() == ScopeSingleton {
		destroy := c.buildDestroyCallback(name, final, nil)
		c.singletons.Finish(name, final, destroy)
	}
	return final, nil
}

func (c *Container) buildDestroyCallback(name string, instance any, def *mergedDefinition) func() error {
	var hooks []func() error
	for _, dp := range c.processors.destructionAware() {
		if dp.RequiresDestruction(name, instance) {
			dp := dp
			hooks = append(hooks, func() error { return dp.BeforeDestruction(name, instance) })
		}
	}
	if def != nil && def.DestroyFunc != nil {
		fn := def.DestroyFunc
		hooks = append(hooks, func() error { return fn(instance) })
	}
	if len(hooks) == 0 {
		return nil
	}
	return func() error {
		for _, h := range hooks {
			if err := h(); err != nil {
				return err
			}
		}
		return nil
	}
}

// populateProperties applies explicit PropertyValue entries first, then,
// for AutowireByType/AutowireByName definitions, fills any remaining
// autowirable struct field left at its zero value.
func (c *Container) populateProperties(name string, instance any, props []PropertyValue, def *mergedDefinition, resolver DependencyResolver) error {
	set := map[string]bool{}
	for _, pv := range props {
		var value any
		if pv.Value == nil && pv.RefName != "" {
			v, err := resolver.ByName(pv.RefName)
			if err != nil {
				return &UnsatisfiedDependencyError{BeanName: name, Dependency: pv.RefName,
					InjectionPoint: "property:" + pv.Name, Cause: err}
			}
			value = v
		} else {
			value = pv.Value
		}
		if err := setNamedField(instance, pv.Name, value); err != nil {
			return err
		}
		set[pv.Name] = true
	}

	if def.Autowire == AutowireByType || def.Autowire == AutowireByName {
		if err := autowireRemainingFields(instance, def.Autowire, set, resolver, c.metadata); err != nil {
			return err
		}
	}
	return nil
}
