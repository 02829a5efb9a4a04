package beans

import "reflect"

// AutowireMode selects how a bean definition's constructor arguments and
// properties are resolved when they are not explicitly wired.
type AutowireMode int

const (
	// AutowireNone performs no implicit resolution; only explicitly wired
	// constructor arguments and properties are populated.
	AutowireNone AutowireMode = iota
	// AutowireByType resolves unset dependencies by matching a single
	// candidate of the required type.
	AutowireByType
	// AutowireByName resolves unset exported struct fields by matching a
	// bean of the field's name (or its `bean` tag name).
	AutowireByName
	// AutowireConstructor is accepted as a value but the creation engine
	// does not act on it: no constructor is selected and no argument is
	// resolved by type, since a ConstructorFunc resolves its own arguments,
	// and no struct fields are autowired for a definition in this mode.
	AutowireConstructor
)

// ScopeSingleton and ScopePrototype are the two built-in scope names.
// Additional scope names may be registered on a Container; see RegisterScope.
const (
	ScopeSingleton = "singleton"
	ScopePrototype = "prototype"
)

// ConstructorFunc builds a bean instance, resolving its own dependencies
// through the supplied resolver. It is the Go analogue of a factory
// method: the container never inspects Go struct tags to invent
// constructor arguments, a ConstructorFunc always states them explicitly.
type ConstructorFunc func(r DependencyResolver) (any, error)

// PropertyValue is a single named property to populate after construction,
// either a literal value or a reference to another bean by name.
type PropertyValue struct {
	Name string
	// Value, when non-nil, is used as-is.
	Value any
	// RefName, when non-empty and Value is nil, is resolved as a reference
	// to another bean before being assigned to Name.
	RefName string
}

// BeanDefinition is the declarative recipe for one bean. It is intended to
// be built by a definition source (annotation scanner, config-struct
// reader, ...) external to this package; the registry only interprets the
// fields below.
type BeanDefinition struct {
	// Name is the definition's registration name. Required.
	Name string

	// Type is the concrete or interface type the bean is expected to
	// satisfy. Used for by-type resolution and validation; may be nil for
	// definitions whose type is only known once a FactoryBean runs.
	Type reflect.Type

	// Constructor builds the instance. Required unless Abstract is true.
	Constructor ConstructorFunc

	// Scope names the lifecycle scope this bean is created under. Empty
	// defaults to ScopeSingleton.
	Scope string

	// Properties are populated by the creation engine after instantiation,
	// via reflection against exported struct fields tagged `bean:"Name"`
	// or matched by exact field name if no tag is present.
	Properties []PropertyValue

	// DependsOn names other beans that must finish creation before this
	// one starts, even if no direct constructor/property reference exists.
	DependsOn []string

	// Autowire selects implicit dependency resolution behavior.
	Autowire AutowireMode

	// Primary marks this definition as the tie-breaker for by-type
	// resolution when multiple candidates match.
	Primary bool

	// Qualifier is an additional discriminator consulted during by-type
	// resolution when more than one candidate remains after primary
	// selection; matched against a resolution request's own qualifier.
	Qualifier string

	// Lazy defers singleton creation until first request instead of
	// during Refresh's eager-instantiation pass.
	Lazy bool

	// Priority marks this definition as belonging to the priority tier of
	// the multi-candidate ordering contract (spec §4.6 step 4, §4.7):
	// every Priority definition orders ahead of every non-priority one,
	// regardless of Order.
	Priority bool

	// Order provides the numeric ordering key within a tier; lower values
	// come first. Definitions that leave it at zero and tie with another
	// zero-Order definition fall back to registration order.
	Order int

	// AutowireCandidate, when explicitly set to false, excludes this
	// definition from implicit by-type/by-name resolution; it can still
	// be requested by its exact name. A nil value means "unset": it
	// inherits the Parent chain's setting (or NewBeanDefinition's default
	// of true), the same explicit-override behavior applyOverride gives
	// every other overridable field. Use NewBeanDefinition, which sets
	// this to true, or autowireCandidate(false) to opt a definition out
	// explicitly.
	AutowireCandidate *bool

	// Abstract definitions exist only to be inherited from via Parent;
	// requesting one directly is a BeanNotAllowedForCreationError.
	Abstract bool

	// Parent names another definition whose unset fields this definition
	// inherits at merge time (spec §4.4).
	Parent string

	// InitFunc, if set, runs after property population, as the
	// after-properties-set lifecycle hook.
	InitFunc func(instance any) error

	// DestroyFunc, if set, runs during container shutdown for singleton
	// instances, in reverse dependency order.
	DestroyFunc func(instance any) error
}

// NewBeanDefinition constructs a BeanDefinition with the defaults every
// definition needs unless overridden: AutowireCandidate true, scope
// singleton.
func NewBeanDefinition(name string, typ reflect.Type, ctor ConstructorFunc) *BeanDefinition {
	return &BeanDefinition{
		Name:              name,
		Type:              typ,
		Constructor:       ctor,
		Scope:             ScopeSingleton,
		AutowireCandidate: autowireCandidate(true),
	}
}

// autowireCandidate returns a pointer to b, for setting BeanDefinition's
// tri-state AutowireCandidate field explicitly (nil means unset).
func autowireCandidate(b bool) *bool { return &b }

// clone returns a shallow copy safe to mutate independently of the
// original definition (used as the starting point of a merge).
func (d *BeanDefinition) clone() *BeanDefinition {
	cp := *d
	cp.Properties = append([]PropertyValue(nil), d.Properties...)
	cp.DependsOn = append([]string(nil), d.DependsOn...)
	return &cp
}

// mergedDefinition is the fully resolved definition produced by merging a
// (possibly abstract) BeanDefinition with its Parent chain. Creation and
// resolution always operate on a mergedDefinition, never on a raw
// BeanDefinition, so that a change to a parent after a child merges cannot
// retroactively change already-materialized behavior (spec §3).
type mergedDefinition struct {
	*BeanDefinition
	mergedFrom []string // names of ancestors folded into this merge, root-first
}

// mergeDefinition walks def's Parent chain (looking definitions up via
// lookup) and folds each ancestor's unset fields into a fresh copy, root
// first so the most specific definition's explicit fields always win.
func mergeDefinition(def *BeanDefinition, lookup func(name string) (*BeanDefinition, bool)) (*mergedDefinition, error) {
	chain := []*BeanDefinition{def}
	seen := map[string]bool{def.Name: true}
	cur := def
	for cur.Parent != "" {
		parent, ok := lookup(cur.Parent)
		if !ok {
			return nil, &BeanDefinitionStoreError{Name: def.Name, Cause: ErrNoParentRegistry}
		}
		if seen[parent.Name] {
			return nil, &BeanDefinitionStoreError{Name: def.Name, Cause: ErrAliasCycle}
		}
		seen[parent.Name] = true
		chain = append(chain, parent)
		cur = parent
	}

	// chain is child-first; fold root-first so child fields win.
	merged := chain[len(chain)-1].clone()
	mergedFrom := []string{merged.Name}
	for i := len(chain) - 2; i >= 0; i-- {
		merged = applyOverride(merged, chain[i])
		mergedFrom = append(mergedFrom, chain[i].Name)
	}
	merged.Abstract = def.Abstract
	return &mergedDefinition{BeanDefinition: merged, mergedFrom: mergedFrom}, nil
}

// applyOverride folds child's explicitly-set fields onto a copy of base,
// leaving base's fields where child leaves the Go zero value.
func applyOverride(base, child *BeanDefinition) *BeanDefinition {
	out := base.clone()
	out.Name = child.Name
	if child.Type != nil {
		out.Type = child.Type
	}
	if child.Constructor != nil {
		out.Constructor = child.Constructor
	}
	if child.Scope != "" {
		out.Scope = child.Scope
	}
	if len(child.Properties) > 0 {
		out.Properties = mergeProperties(out.Properties, child.Properties)
	}
	if len(child.DependsOn) > 0 {
		out.DependsOn = append(append([]string(nil), out.DependsOn...), child.DependsOn...)
	}
	if child.Autowire != AutowireNone {
		out.Autowire = child.Autowire
	}
	out.Primary = out.Primary || child.Primary
	if child.Qualifier != "" {
		out.Qualifier = child.Qualifier
	}
	out.Lazy = out.Lazy || child.Lazy
	if child.AutowireCandidate != nil {
		out.AutowireCandidate = child.AutowireCandidate
	}
	out.Priority = out.Priority || child.Priority
	if child.Order != 0 {
		out.Order = child.Order
	}
	if child.InitFunc != nil {
		out.InitFunc = child.InitFunc
	}
	if child.DestroyFunc != nil {
		out.DestroyFunc = child.DestroyFunc
	}
	return out
}

// mergeProperties overlays child properties onto base by name, appending
// any not already present.
func mergeProperties(base, child []PropertyValue) []PropertyValue {
	out := append([]PropertyValue(nil), base...)
	for _, cp := range child {
		found := false
		for i, bp := range out {
			if bp.Name == cp.Name {
				out[i] = cp
				found = true
				break
			}
		}
		if !found {
			out = append(out, cp)
		}
	}
	return out
}

func (d *BeanDefinition) effectiveScope() string {
	if d.Scope == "" {
		return ScopeSingleton
	}
	return d.Scope
}
