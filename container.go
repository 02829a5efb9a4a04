package beans

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/gobeans/container/internal/metadata"
)

// ContainerOptions tunes container behavior that spec.md leaves as
// implementation-defined knobs rather than fixed constants.
//
// Grounded on container_options.go / ProviderOptions from the teacher.
type ContainerOptions struct {
	// Logger receives advisory messages (alias collisions, bean-factory-
	// phase processor warnings, swallowed destruction errors). Defaults to
	// slog.Default(), matching danpasecinic/needle's WithLogger convention.
	Logger *slog.Logger

	// AllowRawInjectionDespiteWrapping suppresses the step-10 circular-
	// reference reconciliation error (spec §4.5 step 10, §9): when true,
	// a bean that already escaped via an early reference before a
	// wrapping BeanPostProcessor ran is allowed silently, matching
	// callers who know their proxies are transparent.
	AllowRawInjectionDespiteWrapping bool

	// AllowAliasOverride permits RegisterAlias to register an alias whose
	// name already names an existing bean definition (spec §4.1 leaves
	// this a configurable override; the default rejects the collision).
	AllowAliasOverride bool

	// Parent is consulted by ContainsBean and GetBean (and every lookup
	// that funnels through them) when the local registry has no
	// definition for the requested name (spec §4.4's hierarchical
	// lookup). This is a separate concept from BeanDefinition.Parent,
	// which inherits config fields between definitions within the same
	// registry.
	Parent *Container
}

// ContainerOption configures a Container at construction time.
type ContainerOption func(*ContainerOptions)

// WithLogger overrides the default advisory logger.
func WithLogger(l *slog.Logger) ContainerOption {
	return func(o *ContainerOptions) { o.Logger = l }
}

// WithAllowRawInjectionDespiteWrapping disables the raw-injection
// reconciliation check.
func WithAllowRawInjectionDespiteWrapping() ContainerOption {
	return func(o *ContainerOptions) { o.AllowRawInjectionDespiteWrapping = true }
}

// WithAliasOverriding lets RegisterAlias shadow an existing bean
// definition name instead of rejecting the collision.
func WithAliasOverriding() ContainerOption {
	return func(o *ContainerOptions) { o.AllowAliasOverride = true }
}

// WithParent sets a parent container that ContainsBean/GetBean fall back
// to when the local registry has no definition for a requested name
// (spec §4.4's hierarchical lookup).
func WithParent(parent *Container) ContainerOption {
	return func(o *ContainerOptions) { o.Parent = parent }
}

// Container is the external bean-factory and configuration API (spec §6):
// the context refresh driver, definition registry, singleton registry,
// dependency resolver, and post-processor pipeline behind one facade.
//
// Grounded on provider.go's Provider interface (Get/GetKeyed/GetGroup)
// and its generic Resolve[T]/MustResolve[T] helpers, retargeted from
// dig-style type/key lookups onto bean names.
type Container struct {
	id string

	// parent backs spec §4.4's hierarchical lookup: consulted by
	// ContainsBean/resolveNamed when the local registry has no
	// definition for a name. Nil for a root container.
	parent *Container

	definitions  *definitionRegistry
	singletons   *singletonRegistry
	aliases      *aliasRegistry
	factoryBeans *factoryBeanRegistry
	scopes       *scopeRegistry
	processors   *processorPipeline
	decorators   *decoratorChain
	metadata     *metadata.Analyzer

	// extMu guards resolvableDependencies and the ignored-dependency
	// sets: escape hatches from the ordinary definition-backed resolution
	// path (spec §4.6 step 6) that get mutated outside of Refresh and so
	// need their own lock rather than piggybacking on definitions' mutex.
	extMu                   sync.RWMutex
	resolvableDependencies  map[reflect.Type]any
	ignoredDependencyTypes  map[reflect.Type]bool
	ignoredDependencyIfaces []reflect.Type

	options   ContainerOptions
	refreshed bool
}

// New constructs an empty Container. RegisterDefinition and
// RegisterProcessor may be called before or after Refresh; Refresh itself
// may only run once.
func New(opts ...ContainerOption) *Container {
	options := ContainerOptions{Logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}

	singletons := newSingletonRegistry()
	definitions := newDefinitionRegistry(singletons)
	c := &Container{
		id:                     uuid.NewString(),
		parent:                 options.Parent,
		singletons:             singletons,
		definitions:            definitions,
		aliases:                newAliasRegistry(definitions, options.AllowAliasOverride, options.Logger),
		factoryBeans:           newFactoryBeanRegistry(),
		scopes:                 newScopeRegistry(),
		processors:             &processorPipeline{},
		decorators:             newDecoratorChain(),
		metadata:               metadata.New(),
		resolvableDependencies: make(map[reflect.Type]any),
		ignoredDependencyTypes: make(map[reflect.Type]bool),
		options:                options,
	}
	c.processors.register(c.decorators)
	return c
}

// ID returns a process-unique identifier for this container instance,
// mirroring scope.go's use of uuid for per-scope identifiers in the
// teacher.
func (c *Container) ID() string { return c.id }

// RegisterDefinition adds a bean definition. See definitionRegistry.Register.
func (c *Container) RegisterDefinition(def *BeanDefinition) error {
	return c.definitions.Register(def)
}

// RegisterAlias registers alias as another name for name.
func (c *Container) RegisterAlias(name, alias string) error {
	if err := c.aliases.RegisterAlias(name, alias); err != nil {
		c.options.Logger.Warn("alias collision rejected", "name", name, "alias", alias, "error", err)
		return err
	}
	return nil
}

// ResolveAliases rewrites every registered alias and target name through
// resolve (spec §4.1), for callers whose bean names are only fully known
// once a value resolver (e.g. placeholder substitution) becomes
// available after registration. Collisions are logged through the
// container's advisory logger rather than failing the call.
func (c *Container) ResolveAliases(resolve func(string) string) error {
	return c.aliases.ResolveAliases(resolve)
}

// RegisterScope registers a named custom scope handler.
func (c *Container) RegisterScope(name string, handler ScopeHandler) {
	c.scopes.Register(name, handler)
}

// RegisterProcessor adds a post-processor. It must implement at least one
// of the interfaces in postprocessor.go to have any effect.
func (c *Container) RegisterProcessor(p any) {
	if c.refreshed {
		_, isRegistry := p.(BeanDefinitionRegistryPostProcessor)
		_, isFactory := p.(BeanFactoryPostProcessor)
		if isRegistry || isFactory {
			c.options.Logger.Warn("definition-phase post-processor registered after Refresh has already run; it will not be invoked",
				"container", c.id)
		}
	}
	c.processors.register(p)
}

// Refresh runs the definition-phase post-processors to a fixed point and
// then eagerly instantiates every non-lazy singleton, in registration
// order — the same driving loop as
// provider.go's createAllSingletonsWithContext, generalized from a
// topologically-sorted dependency graph to a plain registration-order
// walk, since each createBean call recursively resolves and creates its
// own dependencies first (spec §4.5), making a separate pre-computed
// topological order unnecessary for correctness.
func (c *Container) Refresh() error {
	if c.refreshed {
		return fmt.Errorf("beans: Refresh already called on this container")
	}

	if err := c.runDefinitionPhase(); err != nil {
		return err
	}

	defs, err := c.definitions.AllMerged()
	if err != nil {
		return err
	}
	for _, def := range defs {
		if def.effectiveScope() != ScopeSingleton || def.Lazy {
			continue
		}
		if _, ok := c.singletons.Get(def.Name); ok {
			continue
		}
		if _, err := c.resolveNamed(def.Name, "", &resolutionStack{}); err != nil {
			return err
		}
	}

	c.refreshed = true
	return nil
}

// resolveNamed is the single entry point every ByName/ByType/Group lookup
// funnels through: alias resolution, factory-bean unwrapping, scope
// dispatch, and early-reference short-circuiting for singletons already
// in creation. requestedBy names the bean on whose behalf this lookup
// runs (empty for a direct external GetBean call), so an early reference
// taken here can later be attributed to the right bean in a step-10
// reconciliation failure.
func (c *Container) resolveNamed(name, requestedBy string, stack *resolutionStack) (any, error) {
	if c.singletons.IsDestroyed() {
		return nil, &BeanNotAllowedForCreationError{Name: name,
			Reason: "container has been closed; singleton destruction has already completed"}
	}

	canonical := c.aliases.Resolve(name)

	if v, ok := c.singletons.Get(canonical); ok {
		return c.unwrapFactoryBean(canonical, v)
	}

	if v, ok, err := c.singletons.GetEarly(canonical, requestedBy); ok || err != nil {
		if err != nil {
			return nil, err
		}
		return c.unwrapFactoryBean(canonical, v)
	}

	def, err := c.definitions.Merged(canonical)
	if err != nil {
		if c.parent != nil {
			return c.parent.resolveNamed(name, requestedBy, stack)
		}
		return nil, &NoSuchBeanError{Name: canonical}
	}
	if def.Abstract {
		return nil, &BeanNotAllowedForCreationError{Name: canonical, Reason: "definition is abstract"}
	}

	if err := c.resolveDependsOn(canonical, def, stack); err != nil {
		return nil, err
	}

	scope := def.effectiveScope()
	switch scope {
	case ScopeSingleton, ScopePrototype:
		instance, err := c.createBean(canonical, def, stack, nil)
		if err != nil {
			return nil, err
		}
		return c.unwrapFactoryBean(canonical, instance)
	default:
		handler, ok := c.scopes.Get(scope)
		if !ok {
			return nil, &BeanDefinitionStoreError{Name: canonical, Cause: fmt.Errorf("no scope handler registered for scope %q", scope)}
		}
		instance, err := handler.Get(canonical, func() (any, error) {
			return c.createBean(canonical, def, stack, nil)
		})
		if err != nil {
			return nil, err
		}
		return c.unwrapFactoryBean(canonical, instance)
	}
}

func (c *Container) resolveDependsOn(name string, def *mergedDefinition, stack *resolutionStack) error {
	for _, dep := range def.DependsOn {
		c.singletons.RegisterDependency(name, dep)
		if _, err := c.resolveNamed(dep, name, stack); err != nil {
			return &UnsatisfiedDependencyError{BeanName: name, Dependency: dep, InjectionPoint: "dependsOn", Cause: err}
		}
	}
	return nil
}

func (c *Container) unwrapFactoryBean(name string, instance any) (any, error) {
	fb, ok := instance.(FactoryBean)
	if !ok {
		return instance, nil
	}
	return c.factoryBeans.GetObject(c, name, fb)
}

// GetBean returns the bean registered under name, creating it if
// necessary.
func (c *Container) GetBean(name string) (any, error) {
	return c.resolveNamed(name, "", &resolutionStack{})
}

// MustGetBean is GetBean, panicking on error; intended for wiring code at
// startup where a missing bean is a programming error.
func (c *Container) MustGetBean(name string) any {
	v, err := c.GetBean(name)
	if err != nil {
		panic(err)
	}
	return v
}

// GetBeanAs is GetBean's type-checked form, the getBean(name, type)
// variant of spec §6's bean-factory API: it resolves name and casts the
// result to T, distinct from GetBean's untyped any return and from
// Resolve[T]'s by-type (rather than by-name) lookup.
func GetBeanAs[T any](c *Container, name string) (T, error) {
	var zero T
	v, err := c.GetBean(name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("beans: bean %q of type %T is not assignable to %s",
			name, v, reflect.TypeOf((*T)(nil)).Elem())
	}
	return typed, nil
}

// GetBeanWithArgs creates name with explicit runtime constructor
// arguments made available to its ConstructorFunc through the resolver's
// Args method — the getBean(type, args) form of spec §6's bean-factory
// API. Only prototype-scoped definitions may be created this way:
// singleton scope runs its constructor exactly once, so there is no
// consistent argument set later plain GetBean(name) calls could be
// attributed to.
func (c *Container) GetBeanWithArgs(name string, args ...any) (any, error) {
	canonical := c.aliases.Resolve(name)
	def, err := c.definitions.Merged(canonical)
	if err != nil {
		if c.parent != nil {
			return c.parent.GetBeanWithArgs(name, args...)
		}
		return nil, &NoSuchBeanError{Name: canonical}
	}
	if def.Abstract {
		return nil, &BeanNotAllowedForCreationError{Name: canonical, Reason: "definition is abstract"}
	}
	if def.effectiveScope() != ScopePrototype {
		return nil, &BeanNotAllowedForCreationError{Name: canonical,
			Reason: "explicit constructor arguments are only supported for prototype-scoped beans"}
	}

	stack := &resolutionStack{}
	if err := c.resolveDependsOn(canonical, def, stack); err != nil {
		return nil, err
	}
	instance, err := c.createBean(canonical, def, stack, args)
	if err != nil {
		return nil, err
	}
	return c.unwrapFactoryBean(canonical, instance)
}

// ResolveWithArgs is GetBeanWithArgs's type-safe, by-type counterpart,
// mirroring how Resolve[T] relates to GetBean.
func ResolveWithArgs[T any](c *Container, args ...any) (T, error) {
	var zero T
	t := reflect.TypeOf((*T)(nil)).Elem()
	name, err := c.findUniqueCandidate(t, "", "")
	if err != nil {
		return zero, err
	}
	v, err := c.GetBeanWithArgs(name, args...)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("beans: bean %q of type %T is not assignable to %s", name, v, t)
	}
	return typed, nil
}

// ContainsBean reports whether name resolves, through aliases, to a
// registered definition or an already-registered singleton, consulting
// the parent container (spec §4.4) if the local registry has neither.
func (c *Container) ContainsBean(name string) bool {
	canonical := c.aliases.Resolve(name)
	if _, ok := c.singletons.Get(canonical); ok {
		return true
	}
	if c.definitions.Contains(canonical) {
		return true
	}
	if c.parent != nil {
		return c.parent.ContainsBean(name)
	}
	return false
}

// IsSingleton reports whether name's merged definition resolves to
// singleton scope.
func (c *Container) IsSingleton(name string) (bool, error) {
	m, err := c.GetMergedBeanDefinition(name)
	if err != nil {
		return false, err
	}
	return m.effectiveScope() == ScopeSingleton, nil
}

// IsPrototype reports whether name's merged definition resolves to
// prototype scope.
func (c *Container) IsPrototype(name string) (bool, error) {
	m, err := c.GetMergedBeanDefinition(name)
	if err != nil {
		return false, err
	}
	return m.effectiveScope() == ScopePrototype, nil
}

// IsTypeMatch reports whether name's declared Type is assignable to t.
func (c *Container) IsTypeMatch(name string, t reflect.Type) (bool, error) {
	m, err := c.GetMergedBeanDefinition(name)
	if err != nil {
		return false, err
	}
	if m.Type == nil {
		return false, nil
	}
	return m.Type == t || m.Type.AssignableTo(t), nil
}

// GetType returns name's declared Type, or nil if the definition does not
// state one (a FactoryBean whose product type is only known once it
// runs).
func (c *Container) GetType(name string) (reflect.Type, error) {
	m, err := c.GetMergedBeanDefinition(name)
	if err != nil {
		return nil, err
	}
	return m.Type, nil
}

// GetAliases returns every alias currently registered for name.
func (c *Container) GetAliases(name string) []string {
	canonical := c.aliases.Resolve(name)
	return c.aliases.AliasesFor(canonical)
}

// GetBeanDefinitionNames returns every registered definition name, in
// registration order.
func (c *Container) GetBeanDefinitionNames() []string {
	return c.definitions.Names()
}

// GetBeanNamesForType returns every autowire-candidate definition name
// assignable to t, ordered by the same priority/order/registration
// contract as Group (spec §4.6 step 4).
func (c *Container) GetBeanNamesForType(t reflect.Type) []string {
	return c.orderCandidateNames(c.findAllCandidates(t))
}

// RemoveBeanDefinition removes name's raw definition and any cached
// FactoryBean product registered under it. It does not tear down an
// already-finished singleton; use DestroyBean for that.
func (c *Container) RemoveBeanDefinition(name string) {
	c.definitions.Remove(name)
	c.factoryBeans.Remove(name)
}

// GetMergedBeanDefinition returns the fully merged definition for name,
// exposing the Parent-chain merge (spec §4.4) to external callers. It
// falls back to the parent container's own definitions when the local
// registry has none for name (spec §4.4's hierarchical lookup, distinct
// from the per-definition Parent-chain merge this method itself exposes).
func (c *Container) GetMergedBeanDefinition(name string) (*BeanDefinition, error) {
	canonical := c.aliases.Resolve(name)
	m, err := c.definitions.Merged(canonical)
	if err != nil {
		if c.parent != nil {
			return c.parent.GetMergedBeanDefinition(name)
		}
		return nil, err
	}
	return m.BeanDefinition, nil
}

// GetBeanPostProcessorCount returns the number of registered processors,
// regardless of which post-processor hook interfaces they implement.
func (c *Container) GetBeanPostProcessorCount() int {
	return len(c.processors.all)
}

// GetRegisteredScopeNames returns every custom scope name registered via
// RegisterScope. Singleton and prototype are built in and are not backed
// by a ScopeHandler, so they are never included.
func (c *Container) GetRegisteredScopeNames() []string {
	return c.scopes.Names()
}

// FreezeConfiguration marks the definition registry frozen, signaling
// that external configuration is complete. The container's own
// invariants (a finished singleton's name cannot be redefined) are
// enforced regardless of this flag; Freeze exists for tooling that wants
// to assert no further definitions are expected.
func (c *Container) FreezeConfiguration() {
	c.definitions.Freeze()
}

// IsConfigurationFrozen reports whether FreezeConfiguration has run.
func (c *Container) IsConfigurationFrozen() bool {
	return c.definitions.IsFrozen()
}

// RegisterSingleton registers an already-constructed instance directly
// under name, bypassing the creation engine and every post-processor hook
// (spec §3's pre-registered-singleton path — for objects that exist
// before the container does, like a request-scoped context handed in by
// a caller).
func (c *Container) RegisterSingleton(name string, instance any) {
	c.singletons.Finish(name, instance, nil)
}

// RegisterResolvableDependency makes the container hand back value
// whenever a constructor argument or property of type t is resolved by
// type, independent of any registered bean definition (spec §4.6 step
// 6). It takes precedence over ordinary by-type resolution.
func (c *Container) RegisterResolvableDependency(t reflect.Type, value any) {
	c.extMu.Lock()
	defer c.extMu.Unlock()
	c.resolvableDependencies[t] = value
}

func (c *Container) resolvableDependency(t reflect.Type) (any, bool) {
	c.extMu.RLock()
	defer c.extMu.RUnlock()
	v, ok := c.resolvableDependencies[t]
	return v, ok
}

// IgnoreDependencyType excludes t from autowiring consideration entirely:
// a by-type resolution request for t behaves as if no candidate were ever
// registered (spec §4.6 step 6).
func (c *Container) IgnoreDependencyType(t reflect.Type) {
	c.extMu.Lock()
	defer c.extMu.Unlock()
	c.ignoredDependencyTypes[t] = true
}

// IgnoreDependencyInterface excludes any type implementing iface from
// autowiring consideration, the interface-based analogue of
// IgnoreDependencyType.
func (c *Container) IgnoreDependencyInterface(iface reflect.Type) {
	c.extMu.Lock()
	defer c.extMu.Unlock()
	c.ignoredDependencyIfaces = append(c.ignoredDependencyIfaces, iface)
}

func (c *Container) isIgnoredDependency(t reflect.Type) bool {
	c.extMu.RLock()
	defer c.extMu.RUnlock()
	if c.ignoredDependencyTypes[t] {
		return true
	}
	for _, iface := range c.ignoredDependencyIfaces {
		if t.Implements(iface) {
			return true
		}
	}
	return false
}

// DestroyScopedBean destroys and removes name's cached instance from its
// custom scope handler, if the handler implements ScopeHandlerWithDestroy.
// Singleton and prototype scoped names are unaffected: singletons are
// destroyed by Close or DestroyBean, and prototypes are never cached in
// the first place.
func (c *Container) DestroyScopedBean(name string) error {
	m, err := c.GetMergedBeanDefinition(name)
	if err != nil {
		return err
	}
	scope := m.effectiveScope()
	if scope == ScopeSingleton || scope == ScopePrototype {
		return nil
	}
	canonical := c.aliases.Resolve(name)
	handler, ok := c.scopes.Get(scope)
	if !ok {
		return &BeanDefinitionStoreError{Name: canonical, Cause: fmt.Errorf("no scope handler registered for scope %q", scope)}
	}
	remover, ok := handler.(ScopeHandlerWithDestroy)
	if !ok {
		return &BeanDefinitionStoreError{Name: canonical, Cause: fmt.Errorf("scope handler for %q does not support explicit destruction", scope)}
	}
	return remover.Remove(canonical)
}

// DestroyBean destroys a single finished singleton immediately, ahead of
// Close, running its destroy callback and removing it from the singleton
// registry. It does not cascade to dependents.
func (c *Container) DestroyBean(name string) error {
	canonical := c.aliases.Resolve(name)
	return c.singletons.DestroyOne(canonical)
}

// GetBeansOfType returns every autowire-candidate bean assignable to t,
// keyed by name.
func (c *Container) GetBeansOfType(t reflect.Type) (map[string]any, error) {
	names := c.findAllCandidates(t)
	out := make(map[string]any, len(names))
	for _, name := range names {
		v, err := c.GetBean(name)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// Resolve is a type-safe convenience wrapper over GetBean's by-type
// resolution path, mirroring provider.go's generic Resolve[T].
func Resolve[T any](c *Container) (T, error) {
	var zero T
	t := reflect.TypeOf((*T)(nil)).Elem()
	name, err := c.findUniqueCandidate(t, "", "")
	if err != nil {
		return zero, err
	}
	v, err := c.GetBean(name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("beans: bean %q of type %T is not assignable to %s", name, v, t)
	}
	return typed, nil
}

// MustResolve is Resolve, panicking on error.
func MustResolve[T any](c *Container) T {
	v, err := Resolve[T](c)
	if err != nil {
		panic(err)
	}
	return v
}

// Close destroys every finished singleton in reverse creation order,
// respecting dependent-before-dependency ordering, logging each
// destruction error through the advisory logger rather than propagating
// it (spec §7). It always returns nil.
func (c *Container) Close() error {
	errs := c.singletons.DestroySingletons()
	for _, e := range errs {
		c.options.Logger.Error("error during singleton destruction", "container", c.id, "error", e)
	}
	return nil
}
