package optimizer

import (
	"fmt"

	"github.com/fieldcraft-labs/manifest/internal/model"
)

// boundKind distinguishes a diversity floor from a diversity ceiling.
type boundKind int

const (
	atLeast boundKind = iota
	atMost
)

// groupConstraint is a linear constraint over a subset of candidate
// indices: sum of x_i for i in Indices is bounded by Bound. Category
// minimums/maximums and tag minimums all reduce to this same shape,
// which is what lets the single-bin and multi-bin solvers share one
// constraint-building routine.
type groupConstraint struct {
	Label   string
	Kind    boundKind
	Indices []int
	Bound   int
}

// computeUpperBounds derives U_i = min(quantity_owned_i, max_per_item
// or unbounded) for every candidate, in the same order as items.
func computeUpperBounds(items []model.PackableItem, maxPerItem *int) []int {
	bounds := make([]int, len(items))
	for i, item := range items {
		u := item.QuantityOwned
		if maxPerItem != nil && *maxPerItem < u {
			u = *maxPerItem
		}
		if u < 0 {
			u = 0
		}
		bounds[i] = u
	}
	return bounds
}

// buildGroups turns a PackingConstraints into the ordered set of group
// constraints plus any relaxation notes produced along the way. It is
// a pure function of (constraint_spec, available_indices,
// inventory_totals) — no solver state — so it is unit-testable on its
// own, per the composition design this package follows.
func buildGroups(items []model.PackableItem, upperBounds []int, constraints model.PackingConstraints) ([]groupConstraint, []string) {
	var groups []groupConstraint
	var notes []string

	for _, cat := range sortedKeys(constraints.CategoryMinimums) {
		minimum := constraints.CategoryMinimums[cat]
		indices := indicesByCategory(items, cat)
		eff, note, ok := effectiveMinimum("Category", cat, minimum, indices, upperBounds)
		if !ok {
			notes = append(notes, note)
			continue
		}
		if note != "" {
			notes = append(notes, note)
		}
		groups = append(groups, groupConstraint{Label: "category_min:" + cat, Kind: atLeast, Indices: indices, Bound: eff})
	}

	for _, cat := range sortedKeys(constraints.CategoryMaximums) {
		maximum := constraints.CategoryMaximums[cat]
		indices := indicesByCategory(items, cat)
		if len(indices) == 0 {
			continue
		}
		groups = append(groups, groupConstraint{Label: "category_max:" + cat, Kind: atMost, Indices: indices, Bound: maximum})
	}

	for _, tag := range sortedKeys(constraints.TagMinimums) {
		minimum := constraints.TagMinimums[tag]
		indices := indicesByTag(items, tag)
		eff, note, ok := effectiveMinimum("Tag", tag, minimum, indices, upperBounds)
		if !ok {
			notes = append(notes, note)
			continue
		}
		if note != "" {
			notes = append(notes, note)
		}
		groups = append(groups, groupConstraint{Label: "tag_min:" + tag, Kind: atLeast, Indices: indices, Bound: eff})
	}

	for _, pinnedID := range constraints.PinnedItems {
		indices := indicesByID(items, pinnedID)
		if len(indices) == 0 {
			notes = append(notes, fmt.Sprintf("Pinned item %s not found in candidates", pinnedID))
			continue
		}
		groups = append(groups, groupConstraint{Label: "pinned:" + pinnedID, Kind: atLeast, Indices: indices, Bound: 1})
	}

	return groups, notes
}

// effectiveMinimum resolves a single category/tag minimum against
// what's actually available, returning the relaxed bound to enforce
// (ok=true), or ok=false with a note when the group has no candidates
// at all and the constraint must be skipped entirely.
func effectiveMinimum(kindLabel, name string, required int, indices []int, upperBounds []int) (int, string, bool) {
	if len(indices) == 0 {
		return 0, fmt.Sprintf("No items available for %s '%s'", lowerLabel(kindLabel), name), false
	}
	available := 0
	for _, i := range indices {
		available += upperBounds[i]
	}
	effective := required
	note := ""
	if available < required {
		effective = available
		note = fmt.Sprintf("%s '%s': relaxed from >=%d to >=%d (only %d available)", kindLabel, name, required, effective, available)
	}
	return effective, note, true
}

func lowerLabel(s string) string {
	r := []rune(s)
	if len(r) > 0 && r[0] >= 'A' && r[0] <= 'Z' {
		r[0] = r[0] + ('a' - 'A')
	}
	return string(r)
}

func indicesByCategory(items []model.PackableItem, category string) []int {
	var out []int
	for i, item := range items {
		if item.Category == category {
			out = append(out, i)
		}
	}
	return out
}

func indicesByTag(items []model.PackableItem, tag string) []int {
	var out []int
	for i, item := range items {
		for _, t := range item.SemanticTags {
			if t == tag {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

func indicesByID(items []model.PackableItem, id string) []int {
	var out []int
	for i, item := range items {
		if item.ItemID == id {
			out = append(out, i)
		}
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
