package beans

import (
	"reflect"
	"sort"
)

// DependencyResolver is what a ConstructorFunc receives to resolve its own
// collaborators. It is the public face of the L3 dependency resolver
// (spec §4.6): by-name, by-type, qualified, group and lazy resolution,
// plus the explicit arguments of the current creation. No resolution
// result is cached between calls.
//
// Grounded on resolver.go's Resolver/ResolutionContext shape (context
// carried resolution cache, depth-limited recursion) and resolution.go's
// dependencyResolver adapter that turns declared dependencies into
// concrete container lookups.
type DependencyResolver interface {
	// ByName resolves a bean by its exact registered (or aliased) name.
	ByName(name string) (any, error)
	// ByType resolves the unique autowire candidate assignable to t. If
	// more than one candidate matches, a single primary candidate wins;
	// otherwise NoUniqueBeanError. ByType has no injection-point name or
	// qualifier, so those tie-breakers apply only through ByTypeQualified.
	ByType(t reflect.Type) (any, error)
	// ByTypeQualified narrows ByType's tie-breaking to a specific
	// injection-point name and qualifier: name is checked (after primary,
	// before qualifier) against each candidate's own registered bean name,
	// per spec §4.6 step 5(d)'s stated precedence. Either may be empty.
	ByTypeQualified(t reflect.Type, name, qualifier string) (any, error)
	// Group resolves every autowire-candidate definition whose Type is
	// assignable to t, ordered Priority definitions first, then by Order,
	// then by registration order, as a "multiple-match container" (spec
	// §4.6 step 4).
	Group(t reflect.Type) ([]any, error)
	// Lazy returns a deferred resolution: calling the returned func
	// performs the ByType lookup at that point rather than now.
	Lazy(t reflect.Type) func() (any, error)
	// Args returns the explicit runtime constructor arguments supplied
	// via GetBeanWithArgs/ResolveWithArgs (spec §6's getBean(type, args)
	// form), or nil if this creation was reached through ordinary
	// GetBean/Resolve. A ConstructorFunc that wants to support explicit
	// arguments checks this before falling back to autowiring.
	Args() []any
}

// resolutionStack tracks the chain of bean names currently being resolved
// on the current goroutine's call path, so a prototype-scope cycle (which
// cannot be broken by early exposure, since prototypes are never cached)
// is reported instead of recursing forever.
type resolutionStack struct {
	names []string
}

func (s *resolutionStack) push(name string) bool {
	for _, n := range s.names {
		if n == name {
			return false
		}
	}
	s.names = append(s.names, name)
	return true
}

func (s *resolutionStack) pop() {
	s.names = s.names[:len(s.names)-1]
}

// containerResolver is the concrete DependencyResolver bound to one
// in-progress creation of requestingBean.
type containerResolver struct {
	c              *Container
	requestingBean string
	stack          *resolutionStack
	args           []any
}

func (r *containerResolver) ByName(name string) (any, error) {
	v, err := r.c.resolveNamed(name, r.requestingBean, r.stack)
	if err != nil {
		return nil, &UnsatisfiedDependencyError{
			BeanName: r.requestingBean, Dependency: name,
			InjectionPoint: "constructor/property", Cause: err,
		}
	}
	return v, nil
}

func (r *containerResolver) ByType(t reflect.Type) (any, error) {
	return r.ByTypeQualified(t, "", "")
}

func (r *containerResolver) ByTypeQualified(t reflect.Type, name, qualifier string) (any, error) {
	if v, ok := r.c.resolvableDependency(t); ok {
		return v, nil
	}
	candidate, err := r.c.findUniqueCandidate(t, name, qualifier)
	if err != nil {
		return nil, &UnsatisfiedDependencyError{
			BeanName: r.requestingBean, Dependency: t.String(),
			InjectionPoint: "constructor/property", Cause: err,
		}
	}
	return r.ByName(candidate)
}

func (r *containerResolver) Group(t reflect.Type) ([]any, error) {
	names := r.c.orderCandidateNames(r.c.findAllCandidates(t))
	out := make([]any, 0, len(names))
	for _, n := range names {
		v, err := r.ByName(n)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *containerResolver) Lazy(t reflect.Type) func() (any, error) {
	return func() (any, error) {
		return r.ByType(t)
	}
}

func (r *containerResolver) Args() []any { return r.args }

// findUniqueCandidate implements spec §4.6 step 5: gather every
// autowire-candidate whose Type is assignable to t, then, if more than one
// remains, apply tie-breakers in the literal order the spec states them —
// primary, then injection-point name match, then qualifier match — failing
// with NoUniqueBeanError if none of those narrows to exactly one candidate,
// or NoSuchBeanError if no candidate exists at all. name and qualifier may
// each be empty, in which case that tie-breaker is skipped.
func (c *Container) findUniqueCandidate(t reflect.Type, name, qualifier string) (string, error) {
	candidates := c.findAllCandidates(t)

	if len(candidates) == 0 {
		return "", &NoSuchBeanError{Type: t.String()}
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	var primaries []string
	for _, cand := range candidates {
		m, err := c.definitions.Merged(cand)
		if err == nil && m.Primary {
			primaries = append(primaries, cand)
		}
	}
	if len(primaries) == 1 {
		return primaries[0], nil
	}
	if len(primaries) > 1 {
		sort.Strings(primaries)
		return "", &NoUniqueBeanError{Type: t.String(), Candidates: primaries}
	}

	if name != "" {
		for _, cand := range candidates {
			if cand == name {
				return cand, nil
			}
		}
	}

	if qualifier != "" {
		var narrowed []string
		for _, cand := range candidates {
			m, err := c.definitions.Merged(cand)
			if err == nil && m.Qualifier == qualifier {
				narrowed = append(narrowed, cand)
			}
		}
		if len(narrowed) == 1 {
			return narrowed[0], nil
		}
	}

	sort.Strings(candidates)
	return "", &NoUniqueBeanError{Type: t.String(), Candidates: candidates}
}

// orderCandidateNames sorts names by the multi-candidate ordering contract
// (spec §4.6 step 4, §4.7): priority-tier definitions first, then by
// numeric Order, then by registration order, matching within-tier ties.
func (c *Container) orderCandidateNames(names []string) []string {
	regOrder := c.definitions.Names()
	pos := make(map[string]int, len(regOrder))
	for i, n := range regOrder {
		pos[n] = i
	}

	type ranked struct {
		name string
		tier int
		key  int
		pos  int
	}
	ranks := make([]ranked, len(names))
	for i, n := range names {
		tier, key := 1, 0
		if m, err := c.definitions.Merged(n); err == nil {
			if m.Priority {
				tier = 0
			}
			key = m.Order
		}
		ranks[i] = ranked{name: n, tier: tier, key: key, pos: pos[n]}
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].tier != ranks[j].tier {
			return ranks[i].tier < ranks[j].tier
		}
		if ranks[i].key != ranks[j].key {
			return ranks[i].key < ranks[j].key
		}
		return ranks[i].pos < ranks[j].pos
	})
	out := make([]string, len(ranks))
	for i, r := range ranks {
		out[i] = r.name
	}
	return out
}

// findAllCandidates returns every autowire-candidate definition name whose
// declared Type is assignable to t. A type excluded via
// IgnoreDependencyType/IgnoreDependencyInterface never matches, regardless
// of what is registered (spec §4.6 step 6).
func (c *Container) findAllCandidates(t reflect.Type) []string {
	if c.isIgnoredDependency(t) {
		return nil
	}
	names := c.definitions.Names()
	var out []string
	for _, name := range names {
		m, err := c.definitions.Merged(name)
		if err != nil || m.Abstract || (m.AutowireCandidate != nil && !*m.AutowireCandidate) {
			continue
		}
		if m.Type != nil && (m.Type == t || m.Type.AssignableTo(t)) {
			out = append(out, name)
		}
	}
	return out
}
