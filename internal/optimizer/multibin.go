package optimizer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fieldcraft-labs/manifest/internal/model"
)

// SolveMulti is the multi-bin extension: pack across several
// containers at once, honoring per-bin weight caps, a total-per-item
// bound across every bin, and diversity constraints applied to the
// sum across all bins.
//
// It shares the single-bin constraint builder and branch-and-bound
// core (run), per the package's composition design: containers are
// solved in declared order, each one against the item quantities
// still available and the portion of every diversity minimum not yet
// satisfied by earlier containers. Category/tag maximums and pinned
// requirements are enforced cumulatively across the whole run, so the
// result is feasible for the joint problem even though it is reached
// by decomposing it into one single-bin solve per container rather
// than one joint model.
func (o *Optimizer) SolveMulti(ctx context.Context, items []model.PackableItem, containers []model.ContainerSpec, constraints model.PackingConstraints, opts ...Option) model.PackingResult {
	ctx, span := tracer.Start(ctx, "optimizer.solve_multi",
		trace.WithAttributes(attribute.Int("candidate_count", len(items)), attribute.Int("container_count", len(containers))))
	defer span.End()

	var o2 options
	for _, opt := range opts {
		opt(&o2)
	}

	start := time.Now()
	if len(items) == 0 || len(containers) == 0 {
		return model.PackingResult{Status: model.StatusInfeasible, SolverTimeMS: 0}
	}

	remainingUpper := computeUpperBounds(items, constraints.MaxPerItem)
	groups, notes := buildGroups(items, remainingUpper, constraints)
	satisfied := make([]int, len(groups))

	deadline := start.Add(o.TimeLimit)
	result := model.PackingResult{
		ContainerPackedItems: map[string][]model.PackedEntry{},
		Status:               model.StatusOptimal,
	}

	for _, bin := range containers {
		binGroups := remainingGroups(groups, satisfied)
		binResult := o.run(ctx, items, remainingUpper, binGroups, bin.MaxWeightGrams, deadline, start, o2.observer)

		if len(binResult.PackedItems) > 0 {
			result.ContainerPackedItems[bin.ContainerID] = binResult.PackedItems
			result.TotalWeightGrams += binResult.TotalWeightGrams
			result.TotalSimilarity += binResult.TotalSimilarity
		}
		if binResult.Status != model.StatusOptimal {
			if result.Status == model.StatusOptimal {
				result.Status = binResult.Status
			}
		}

		for _, entry := range binResult.PackedItems {
			idx := indexOf(items, entry.Item.ItemID)
			if idx < 0 {
				continue
			}
			remainingUpper[idx] -= entry.Quantity
			for g, grp := range groups {
				if containsIndex(grp.Indices, idx) {
					satisfied[g] += entry.Quantity
				}
			}
		}
	}

	var unpacked []model.PackableItem
	for _, item := range items {
		if !anyPacked(result.ContainerPackedItems, item.ItemID) {
			unpacked = append(unpacked, item)
		}
	}
	result.UnpackedItems = unpacked

	for g, grp := range groups {
		if grp.Kind == atLeast && satisfied[g] < grp.Bound {
			notes = append(notes, "Unmet across containers: "+grp.Label)
		}
	}
	result.RelaxedConstraints = notes

	totalCapacity := 0
	for _, bin := range containers {
		totalCapacity += bin.MaxWeightGrams
	}
	if totalCapacity > 0 {
		result.WeightUtilization = float64(result.TotalWeightGrams) / float64(totalCapacity)
	}
	result.SolverTimeMS = time.Since(start).Milliseconds()
	return result
}

// remainingGroups returns a copy of groups with every bound reduced by
// what's already been satisfied in earlier containers: an atLeast
// floor needs less from the remaining bins, and an atMost ceiling has
// less headroom left, since each container's run only sees its own
// weight cap and would otherwise re-check the cap against a total
// that resets to zero every container. Reducing both the same way
// keeps the per-bin search constrained by what's actually left of the
// cross-container budget rather than the full bound again.
func remainingGroups(groups []groupConstraint, satisfied []int) []groupConstraint {
	out := make([]groupConstraint, len(groups))
	for g, grp := range groups {
		remaining := grp.Bound - satisfied[g]
		if remaining < 0 {
			remaining = 0
		}
		grp.Bound = remaining
		out[g] = grp
	}
	return out
}

func indexOf(items []model.PackableItem, id string) int {
	for i, item := range items {
		if item.ItemID == id {
			return i
		}
	}
	return -1
}

func containsIndex(indices []int, target int) bool {
	for _, i := range indices {
		if i == target {
			return true
		}
	}
	return false
}

func anyPacked(containerPacked map[string][]model.PackedEntry, itemID string) bool {
	for _, entries := range containerPacked {
		for _, e := range entries {
			if e.Item.ItemID == itemID {
				return true
			}
		}
	}
	return false
}
