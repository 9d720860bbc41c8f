// Package optimizer solves the constrained packing problem: choose how
// many of each candidate item to carry, maximizing total relevance
// subject to a weight cap and category/tag diversity floors and
// ceilings. No CP-SAT-class solver exists anywhere in the reference
// corpus this module was grown from (see DESIGN.md), so this is a
// from-scratch branch-and-bound integer solver: exact for the catalog
// sizes this system is meant to run against, bounded by a wall-clock
// time limit for anything larger.
package optimizer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fieldcraft-labs/manifest/internal/model"
)

// Scaling constants matching the spec's CP-SAT scaling discipline:
// weights carry one decimal of gram precision, scores one-in-ten-
// thousand, with a tiny per-item epsilon so that, under tied
// relevance, the solver prefers packing more of an item over fewer.
const (
	weightScale = 10
	scoreScale  = 10000
	scoreEps    = 0.001
)

// DefaultTimeLimit is the solver's wall-clock budget per call.
const DefaultTimeLimit = 5 * time.Second

// progressInterval is how often the search loop emits a Progress
// snapshot to an attached observer, measured in explored nodes. Kept
// in step with the deadline-check interval so watching a solve costs
// no extra wall-clock time.
const progressInterval = 2048

var tracer = otel.Tracer("github.com/fieldcraft-labs/manifest/internal/optimizer")

// Progress is a point-in-time snapshot of an in-flight Solve call,
// delivered to an Observer. BestScore/BestWeight reflect the best
// incumbent found so far; Bound is the root-relaxation upper bound on
// the objective, so Bound-BestScore is the optimality gap.
type Progress struct {
	NodesExplored int
	BestScore     float64
	BestWeight    int
	Bound         float64
	Elapsed       time.Duration
}

// Observer receives Progress snapshots during a Solve call. It is
// invoked from the solver's goroutine and must not block.
type Observer func(Progress)

// Option configures a single Solve call.
type Option func(*options)

type options struct {
	observer Observer
}

// WithObserver attaches an Observer that receives periodic Progress
// snapshots while Solve runs, for callers that want to watch a solve
// in progress (a live dashboard, for instance) rather than wait for
// the final PackingResult.
func WithObserver(fn Observer) Option {
	return func(o *options) { o.observer = fn }
}

// Optimizer is the Knapsack Optimizer: a stateless solver constructed
// once and reused across calls, matching the "fresh model per call, no
// mutable global state" design note.
type Optimizer struct {
	TimeLimit time.Duration
}

// New builds an Optimizer with the given wall-clock time limit. A
// non-positive limit falls back to DefaultTimeLimit.
func New(timeLimit time.Duration) *Optimizer {
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}
	return &Optimizer{TimeLimit: timeLimit}
}

// Solve is the single-bin contract: solve([]PackableItem,
// PackingConstraints) -> PackingResult.
func (o *Optimizer) Solve(ctx context.Context, items []model.PackableItem, constraints model.PackingConstraints, opts ...Option) model.PackingResult {
	ctx, span := tracer.Start(ctx, "optimizer.solve", trace.WithAttributes(attribute.Int("candidate_count", len(items))))
	defer span.End()

	var o2 options
	for _, opt := range opts {
		opt(&o2)
	}

	start := time.Now()
	if len(items) == 0 {
		return model.PackingResult{Status: model.StatusInfeasible, SolverTimeMS: 0}
	}

	upperBounds := computeUpperBounds(items, constraints.MaxPerItem)
	groups, notes := buildGroups(items, upperBounds, constraints)

	deadline := start.Add(o.TimeLimit)
	result := o.run(ctx, items, upperBounds, groups, constraints.MaxWeightGrams, deadline, start, o2.observer)
	result.RelaxedConstraints = append(notes, result.RelaxedConstraints...)
	result.SolverTimeMS = time.Since(start).Milliseconds()

	if constraints.MaxWeightGrams > 0 {
		result.WeightUtilization = float64(result.TotalWeightGrams) / float64(constraints.MaxWeightGrams)
	}
	return result
}

// run performs the actual branch-and-bound search for a single weight
// cap and returns an un-timed, un-noted PackingResult; callers attach
// timing and any constraint-building notes.
func (o *Optimizer) run(ctx context.Context, items []model.PackableItem, upperBounds []int, groups []groupConstraint, maxWeightGrams int, deadline, start time.Time, observer Observer) model.PackingResult {
	n := len(items)
	scaledWeights := make([]int, n)
	scaledScores := make([]int, n)
	for i, item := range items {
		scaledWeights[i] = int(float64(item.WeightGrams) * weightScale)
		scaledScores[i] = int((item.SimilarityScore + scoreEps) * scoreScale)
	}
	scaledMaxWeight := maxWeightGrams * weightScale

	order := rankByRatio(scaledScores, scaledWeights)

	groupTotal := make([]int, len(groups))
	groupRemaining := make([]int, len(groups))
	for g, grp := range groups {
		for _, i := range grp.Indices {
			groupRemaining[g] += upperBounds[i]
		}
	}

	rootBound := fractionalBound(order, 0, scaledMaxWeight, upperBounds, scaledWeights, scaledScores)

	s := &search{
		items:           items,
		upperBounds:     upperBounds,
		scaledWeights:   scaledWeights,
		scaledScores:    scaledScores,
		scaledMaxWeight: scaledMaxWeight,
		groups:          groups,
		order:           order,
		deadline:        deadline,
		start:           start,
		ctx:             ctx,
		bestObj:         -1,
		provedOptimal:   true,
		observer:        observer,
		rootBound:       rootBound,
	}
	s.assignment = make([]int, n)
	s.bestAssignment = nil

	s.search(0, scaledMaxWeight, 0, groupTotal, groupRemaining)
	s.reportProgress(true)

	if s.bestAssignment == nil {
		notes := []string{"Problem is infeasible — try relaxing weight or diversity constraints"}
		return model.PackingResult{
			Status:             model.StatusInfeasible,
			UnpackedItems:       items,
			RelaxedConstraints: notes,
		}
	}

	var packed []model.PackedEntry
	var unpacked []model.PackableItem
	totalWeight := 0
	totalScore := 0.0
	for i, item := range items {
		qty := s.bestAssignment[i]
		if qty > 0 {
			packed = append(packed, model.PackedEntry{Item: item, Quantity: qty})
			totalWeight += item.WeightGrams * qty
			totalScore += item.SimilarityScore * float64(qty)
		} else {
			unpacked = append(unpacked, item)
		}
	}

	status := model.StatusFeasible
	if s.provedOptimal {
		status = model.StatusOptimal
	}

	return model.PackingResult{
		PackedItems:      packed,
		UnpackedItems:    unpacked,
		TotalWeightGrams: totalWeight,
		TotalSimilarity:  totalScore,
		Status:           status,
	}
}

// rankByRatio orders item indices by descending score/weight ratio,
// the variable ordering used for both the DFS branching order and the
// fractional-relaxation bound.
func rankByRatio(scaledScores, scaledWeights []int) []int {
	order := make([]int, len(scaledScores))
	for i := range order {
		order[i] = i
	}
	ratio := func(i int) float64 {
		if scaledWeights[i] <= 0 {
			return float64(scaledScores[i]) * 1e9
		}
		return float64(scaledScores[i]) / float64(scaledWeights[i])
	}
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && ratio(order[j-1]) < ratio(order[j]); j-- {
			order[j-1], order[j] = order[j], order[j-1]
		}
	}
	return order
}

// search holds the read-only problem data and the best-incumbent
// state for one branch-and-bound run.
type search struct {
	ctx             context.Context
	items           []model.PackableItem
	upperBounds     []int
	scaledWeights   []int
	scaledScores    []int
	scaledMaxWeight int
	groups          []groupConstraint
	order           []int
	deadline        time.Time
	start           time.Time
	observer        Observer
	rootBound       int

	assignment     []int
	bestAssignment []int
	bestObj        int
	provedOptimal  bool
	nodes          int
}

const maxSearchNodes = 2_000_000

// reportProgress sends a snapshot to the attached observer, if any.
// Called every progressInterval nodes and once at the end of search.
func (s *search) reportProgress(final bool) {
	if s.observer == nil {
		return
	}
	if !final && s.nodes%progressInterval != 0 {
		return
	}
	bestScore, bestWeight := 0.0, 0
	if s.bestAssignment != nil {
		bestScore = float64(s.bestObj) / scoreScale
		for i, qty := range s.bestAssignment {
			bestWeight += qty * s.items[i].WeightGrams
		}
	}
	s.observer(Progress{
		NodesExplored: s.nodes,
		BestScore:     bestScore,
		BestWeight:    bestWeight,
		Bound:         float64(s.rootBound) / scoreScale,
		Elapsed:       time.Since(s.start),
	})
}

func (s *search) search(pos, remainingWeight, currentObj int, groupTotal, groupRemaining []int) {
	s.nodes++
	if s.nodes%2048 == 0 {
		if time.Now().After(s.deadline) || s.ctx.Err() != nil {
			s.provedOptimal = false
			return
		}
	}
	if s.nodes%progressInterval == 0 {
		s.reportProgress(false)
	}
	if s.nodes > maxSearchNodes {
		s.provedOptimal = false
		return
	}

	if pos == len(s.order) {
		for g, grp := range s.groups {
			if grp.Kind == atLeast && groupTotal[g] < grp.Bound {
				return
			}
		}
		if currentObj > s.bestObj {
			s.bestObj = currentObj
			s.bestAssignment = append([]int(nil), s.assignment...)
		}
		return
	}

	i := s.order[pos]
	bound := currentObj + fractionalBound(s.order, pos, remainingWeight, s.upperBounds, s.scaledWeights, s.scaledScores)
	if bound <= s.bestObj {
		return
	}

	hi := s.upperBounds[i]
	if s.scaledWeights[i] > 0 {
		byWeight := remainingWeight / s.scaledWeights[i]
		if byWeight < hi {
			hi = byWeight
		}
	}
	if hi < 0 {
		hi = 0
	}

	for q := hi; q >= 0; q-- {
		newWeight := remainingWeight - q*s.scaledWeights[i]
		if newWeight < 0 {
			continue
		}

		newGroupTotal := groupTotal
		newGroupRemaining := groupRemaining
		feasible := true
		var touched []int
		for g, grp := range s.groups {
			belongs := false
			for _, idx := range grp.Indices {
				if idx == i {
					belongs = true
					break
				}
			}
			if !belongs {
				continue
			}
			if newGroupTotal == groupTotal {
				newGroupTotal = append([]int(nil), groupTotal...)
				newGroupRemaining = append([]int(nil), groupRemaining...)
			}
			newGroupTotal[g] += q
			newGroupRemaining[g] -= s.upperBounds[i]
			touched = append(touched, g)

			if grp.Kind == atMost && newGroupTotal[g] > grp.Bound {
				feasible = false
			}
			if grp.Kind == atLeast && newGroupTotal[g]+newGroupRemaining[g] < grp.Bound {
				feasible = false
			}
		}
		if !feasible {
			continue
		}
		if newGroupTotal == nil {
			newGroupTotal = groupTotal
			newGroupRemaining = groupRemaining
		}

		s.assignment[i] = q
		s.search(pos+1, newWeight, currentObj+q*s.scaledScores[i], newGroupTotal, newGroupRemaining)
		if s.nodes > maxSearchNodes || time.Now().After(s.deadline) {
			s.provedOptimal = false
			s.assignment[i] = 0
			return
		}
	}
	s.assignment[i] = 0
}

// fractionalBound computes the LP-relaxation upper bound on the
// remaining objective achievable from order[pos:], ignoring every
// diversity constraint. Dropping those constraints only enlarges the
// feasible region, so the bound stays valid for pruning.
func fractionalBound(order []int, pos, remainingWeight int, upperBounds, scaledWeights, scaledScores []int) int {
	bound := 0
	w := remainingWeight
	for k := pos; k < len(order); k++ {
		i := order[k]
		maxQ := upperBounds[i]
		if scaledWeights[i] > 0 {
			byWeight := w / scaledWeights[i]
			if byWeight < maxQ {
				maxQ = byWeight
			}
		}
		if maxQ <= 0 {
			continue
		}
		bound += maxQ * scaledScores[i]
		w -= maxQ * scaledWeights[i]
		if w <= 0 {
			break
		}
	}
	return bound
}
