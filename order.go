package beans

import "sort"

// PriorityOrdered and Ordered are marker interfaces a post-processor may
// implement to control its dispatch position within a hook family (spec
// §4.7, §4.6 step 4): every PriorityOrdered processor runs ahead of every
// Ordered one, and within a tier lower values run first; a processor
// implementing neither runs last, in registration order.
//
// The two interfaces use different method names rather than a single
// shared "Order() int" wrapped by a marker type, because Go interfaces
// are satisfied structurally: one shared method name would make every
// Ordered processor also satisfy PriorityOrdered, collapsing the two
// tiers spec §4.7 keeps separate (Spring keeps them apart with distinct
// class hierarchies; Go has no such hierarchy to lean on).
type PriorityOrdered interface {
	PriorityOrder() int
}

// Ordered is the lower-priority ordering tier; see PriorityOrdered.
type Ordered interface {
	Order() int
}

// orderTier classifies v into tier 0 (PriorityOrdered), 1 (Ordered), or 2
// (neither), along with its numeric key within that tier.
func orderTier(v any) (tier int, key int) {
	if po, ok := v.(PriorityOrdered); ok {
		return 0, po.PriorityOrder()
	}
	if o, ok := v.(Ordered); ok {
		return 1, o.Order()
	}
	return 2, 0
}

// orderProcessors stable-sorts items by tier then numeric key, leaving
// registration order as the tiebreak for equal keys within a tier and for
// every item in tier 2.
func orderProcessors[T any](items []T) []T {
	type ranked struct {
		item T
		tier int
		key  int
	}
	ranks := make([]ranked, len(items))
	for i, it := range items {
		tier, key := orderTier(it)
		ranks[i] = ranked{item: it, tier: tier, key: key}
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].tier != ranks[j].tier {
			return ranks[i].tier < ranks[j].tier
		}
		return ranks[i].key < ranks[j].key
	})
	out := make([]T, len(ranks))
	for i, r := range ranks {
		out[i] = r.item
	}
	return out
}
