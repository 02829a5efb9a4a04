package beans

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// aliasRegistry maintains alias -> canonical-name mappings (spec §4.1, L0).
// It is intentionally the simplest component in the container: a
// name-keyed map behind a single mutex, following the shape of
// collection.go's map+sync.RWMutex registries in the teacher, generalized
// to a two-column table instead of a type-keyed one.
type aliasRegistry struct {
	mu      sync.RWMutex
	aliases map[string]string // alias -> target (target may itself be an alias)

	// definitions is consulted so an alias cannot silently shadow an
	// existing bean definition's own name (spec §4.1). Nil in tests that
	// exercise the alias table in isolation, in which case the check is
	// skipped.
	definitions *definitionRegistry
	// allowOverride permits RegisterAlias to shadow an existing
	// definition name anyway.
	allowOverride bool
	// logger receives the collision warning ResolveAliases emits when two
	// entries resolve onto the same alias.
	logger *slog.Logger
}

func newAliasRegistry(definitions *definitionRegistry, allowOverride bool, logger *slog.Logger) *aliasRegistry {
	return &aliasRegistry{
		aliases:       make(map[string]string),
		definitions:   definitions,
		allowOverride: allowOverride,
		logger:        logger,
	}
}

// RegisterAlias records that alias refers to name. It rejects a
// registration that would create a cycle (alias eventually resolving back
// to itself), that collides with an existing bean name transitively
// reachable from alias, or (unless overriding is enabled) that names an
// alias identical to an already-registered bean definition's own name.
func (r *aliasRegistry) RegisterAlias(name, alias string) error {
	if name == alias {
		return &BeanDefinitionStoreError{Name: alias, Cause: ErrAliasCycle}
	}
	if !r.allowOverride && r.definitions != nil && r.definitions.Contains(alias) {
		return &BeanDefinitionStoreError{Name: alias,
			Cause: fmt.Errorf("%q is already registered as a bean definition name", alias)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Walk from name; if we ever reach alias, registering it back would
	// close a cycle.
	seen := map[string]bool{name: true}
	cur := name
	for {
		next, ok := r.aliases[cur]
		if !ok {
			break
		}
		if next == alias {
			return &BeanDefinitionStoreError{Name: alias, Cause: ErrAliasCycle}
		}
		if seen[next] {
			// Existing corruption in the table; do not propagate it.
			break
		}
		seen[next] = true
		cur = next
	}

	r.aliases[alias] = name
	return nil
}

// Resolve follows alias chains to the canonical registered name. If name is
// not itself an alias, it is returned unchanged.
func (r *aliasRegistry) Resolve(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]bool{}
	cur := name
	for {
		if seen[cur] {
			return cur // defensive: broken cycle already in the table
		}
		seen[cur] = true
		next, ok := r.aliases[cur]
		if !ok {
			return cur
		}
		cur = next
	}
}

// AliasesFor returns every alias currently pointing, directly or
// transitively, at canonical name.
func (r *aliasRegistry) AliasesFor(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for alias := range r.aliases {
		if r.resolveLocked(alias) == name {
			out = append(out, alias)
		}
	}
	return out
}

func (r *aliasRegistry) resolveLocked(name string) string {
	seen := map[string]bool{}
	cur := name
	for {
		if seen[cur] {
			return cur
		}
		seen[cur] = true
		next, ok := r.aliases[cur]
		if !ok {
			return cur
		}
		cur = next
	}
}

// ResolveAliases rewrites both the alias and the target of every entry
// through resolve — the third alias-registry operation named in spec
// §4.1, used to fold placeholder-resolved names (for example
// "${env}-cache" becoming "prod-cache") back into the alias table once a
// value resolver becomes available, after entries may already have been
// registered against the unresolved names. An entry whose alias and
// target resolve to the same name is a no-op alias and is dropped. If
// two distinct entries resolve onto the same alias, the entry whose
// original alias sorts first wins deterministically and the collision is
// logged as a warning rather than returned as an error.
func (r *aliasRegistry) ResolveAliases(resolve func(string) string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.aliases))
	for alias := range r.aliases {
		keys = append(keys, alias)
	}
	sort.Strings(keys)

	rewritten := make(map[string]string, len(r.aliases))
	for _, alias := range keys {
		target := r.aliases[alias]
		newAlias := resolve(alias)
		newTarget := resolve(target)
		if newAlias == newTarget {
			continue
		}
		if existing, ok := rewritten[newAlias]; ok && existing != newTarget {
			if r.logger != nil {
				r.logger.Warn("alias collision after resolution",
					"alias", newAlias, "kept", existing, "dropped", newTarget)
			}
			continue
		}
		rewritten[newAlias] = newTarget
	}
	r.aliases = rewritten
	return nil
}

// RemoveAlias deletes a single alias entry, if present.
func (r *aliasRegistry) RemoveAlias(alias string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.aliases, alias)
}
