package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fieldcraft-labs/manifest/internal/dashboard"
	"github.com/fieldcraft-labs/manifest/internal/model"
	"github.com/fieldcraft-labs/manifest/internal/pipeline"
)

var (
	packPreset     string
	packMaxWeight  int
	packTopK       int
	packExplain    bool
	packWatch      bool
	packJSON       bool
	packContainers []string
)

func init() {
	rootCmd.AddCommand(packCmd)
	packCmd.Flags().StringVar(&packPreset, "preset", "", "named constraint preset: carry_on_luggage, checked_bag, drone_delivery, medical_relief, hiking_day_trip, bug_out_bag")
	packCmd.Flags().IntVar(&packMaxWeight, "max-weight", 0, "max total weight in grams (overrides the preset's weight cap when set)")
	packCmd.Flags().IntVar(&packTopK, "top-k", 30, "number of search candidates to consider")
	packCmd.Flags().BoolVar(&packExplain, "explain", false, "ask the synthesizer to narrate the packed result")
	packCmd.Flags().BoolVar(&packWatch, "watch", false, "show a live terminal dashboard while the solver runs")
	packCmd.Flags().BoolVar(&packJSON, "json", false, "print the result as JSON instead of a table")
	packCmd.Flags().StringArrayVar(&packContainers, "container", nil, "name:max_weight_grams for one container; repeat to pack across several containers at once (e.g. --container drone-a:2000 --container drone-b:2000)")
}

var packCmd = &cobra.Command{
	Use:   "pack [query]",
	Short: "Search the inventory and solve a constrained pack for it",
	Long: `Pack retrieves candidate items for query, then runs the knapsack
solver against a preset or explicit weight budget.

Examples:
  manifestctl pack --preset bug_out_bag "emergency evacuation kit"
  manifestctl pack --max-weight 7000 "three day backpacking trip"
  manifestctl pack --preset carry_on_luggage --watch "business trip"
  manifestctl pack --preset medical_relief --explain "flood response"
  manifestctl pack --container drone-a:2000 --container drone-b:2000 "disaster relief supplies"`,
	Args: cobra.ExactArgs(1),
	RunE: runPack,
}

func resolveConstraints() (model.PackingConstraints, error) {
	var constraints model.PackingConstraints
	if packPreset != "" {
		var ok bool
		constraints, ok = pipeline.ResolvePreset(packPreset)
		if !ok {
			return constraints, fmt.Errorf("unknown preset %q", packPreset)
		}
	}
	if packMaxWeight > 0 {
		constraints.MaxWeightGrams = packMaxWeight
	}
	if constraints.MaxWeightGrams <= 0 {
		return constraints, fmt.Errorf("pack requires --preset or --max-weight")
	}
	return constraints, nil
}

// parseContainers turns repeated --container name:max_weight_grams
// flags into ContainerSpecs, using the name as ContainerID since the
// CLI has no other identifier for a bin to key results by.
func parseContainers(raw []string) ([]model.ContainerSpec, error) {
	containers := make([]model.ContainerSpec, 0, len(raw))
	for _, spec := range raw {
		name, weightStr, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("invalid --container %q: expected name:max_weight_grams", spec)
		}
		weight, err := strconv.Atoi(weightStr)
		if err != nil || weight <= 0 {
			return nil, fmt.Errorf("invalid --container %q: max_weight_grams must be a positive integer", spec)
		}
		containers = append(containers, model.ContainerSpec{ContainerID: name, Name: name, MaxWeightGrams: weight})
	}
	return containers, nil
}

// diversityConstraints resolves --preset/--max-weight the same way
// resolveConstraints does, but without requiring a weight cap: a
// multi-container pack takes its weight caps from --container instead
// and only needs this for diversity constraints (category/tag minimums
// and maximums, pinned items, max-per-item).
func diversityConstraints() (model.PackingConstraints, error) {
	var constraints model.PackingConstraints
	if packPreset != "" {
		var ok bool
		constraints, ok = pipeline.ResolvePreset(packPreset)
		if !ok {
			return constraints, fmt.Errorf("unknown preset %q", packPreset)
		}
	}
	if packMaxWeight > 0 {
		constraints.MaxWeightGrams = packMaxWeight
	}
	return constraints, nil
}

func runPack(cmd *cobra.Command, args []string) error {
	if len(packContainers) > 0 {
		return runPackMulti(cmd, args)
	}

	constraints, err := resolveConstraints()
	if err != nil {
		return err
	}

	orch, deps, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer deps.Close()

	queryText := args[0]
	opts := pipeline.PackOptions{TopK: packTopK}

	if packWatch {
		return runPackWatch(cmd, orch, queryText, constraints, opts)
	}

	if packExplain {
		result, plan, err := orch.PackAndExplain(cmd.Context(), queryText, constraints, opts)
		if err != nil {
			return fmt.Errorf("pack failed: %w", err)
		}
		printPackResult(cmd, result)
		if plan.MissionSummary != "" {
			cmd.Println()
			printMissionPlan(cmd, plan)
		}
		return nil
	}

	result, err := orch.Pack(cmd.Context(), queryText, constraints, opts)
	if err != nil {
		return fmt.Errorf("pack failed: %w", err)
	}
	printPackResult(cmd, result)
	return nil
}

// runPackMulti is the --container counterpart to runPack's single-bin
// path: it distributes one search result across several declared
// containers instead of one implicit bin, per the same --explain/--json
// flags (live-dashboard --watch is single-bin only today).
func runPackMulti(cmd *cobra.Command, args []string) error {
	containers, err := parseContainers(packContainers)
	if err != nil {
		return err
	}
	constraints, err := diversityConstraints()
	if err != nil {
		return err
	}

	orch, deps, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer deps.Close()

	queryText := args[0]
	opts := pipeline.PackOptions{TopK: packTopK}

	if packExplain {
		result, plan, err := orch.PackAndExplainMulti(cmd.Context(), queryText, containers, constraints, opts)
		if err != nil {
			return fmt.Errorf("pack failed: %w", err)
		}
		printPackMultiResult(cmd, result)
		if plan.MissionSummary != "" {
			cmd.Println()
			printMissionPlan(cmd, plan)
		}
		return nil
	}

	result, err := orch.PackMulti(cmd.Context(), queryText, containers, constraints, opts)
	if err != nil {
		return fmt.Errorf("pack failed: %w", err)
	}
	printPackMultiResult(cmd, result)
	return nil
}

// runPackWatch drives the optimizer directly through Orchestrator's
// Candidates/Optimizer seams so dashboard.Run can attach an observer
// to the same solve this command would otherwise run via Pack.
func runPackWatch(cmd *cobra.Command, orch *pipeline.Orchestrator, queryText string, constraints model.PackingConstraints, opts pipeline.PackOptions) error {
	items, err := orch.Candidates(cmd.Context(), queryText, opts)
	if err != nil {
		return fmt.Errorf("pack failed: %w", err)
	}

	events := dashboard.Run(cmd.Context(), orch.Optimizer(), items, constraints)
	dashModel := dashboard.NewModel(events, constraints.MaxWeightGrams)

	program := tea.NewProgram(dashModel)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

func printPackResult(cmd *cobra.Command, result model.PackingResult) {
	if packJSON {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			cmd.PrintErrf("encoding result: %v\n", err)
			return
		}
		cmd.Println(string(encoded))
		return
	}

	cmd.Printf("status: %s  weight: %dg (%.0f%% utilized)\n", result.Status, result.TotalWeightGrams, result.WeightUtilization*100)
	for _, entry := range result.PackedItems {
		cmd.Printf("  [%dx] %-24s %5dg  %-10s\n", entry.Quantity, entry.Item.Name, entry.Item.WeightGrams, entry.Item.Category)
	}
	if len(result.UnpackedItems) > 0 {
		cmd.Printf("unpacked: %d candidate(s)\n", len(result.UnpackedItems))
	}
	for _, note := range result.RelaxedConstraints {
		cmd.Printf("relaxed: %s\n", note)
	}
}

func printPackMultiResult(cmd *cobra.Command, result model.PackingResult) {
	if packJSON {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			cmd.PrintErrf("encoding result: %v\n", err)
			return
		}
		cmd.Println(string(encoded))
		return
	}

	cmd.Printf("status: %s  weight: %dg (%.0f%% utilized)\n", result.Status, result.TotalWeightGrams, result.WeightUtilization*100)
	for _, containerID := range sortedContainerIDs(result.ContainerPackedItems) {
		entries := result.ContainerPackedItems[containerID]
		cmd.Printf("  container %s:\n", containerID)
		for _, entry := range entries {
			cmd.Printf("    [%dx] %-24s %5dg  %-10s\n", entry.Quantity, entry.Item.Name, entry.Item.WeightGrams, entry.Item.Category)
		}
	}
	if len(result.UnpackedItems) > 0 {
		cmd.Printf("unpacked: %d candidate(s)\n", len(result.UnpackedItems))
	}
	for _, note := range result.RelaxedConstraints {
		cmd.Printf("relaxed: %s\n", note)
	}
}

func sortedContainerIDs(packed map[string][]model.PackedEntry) []string {
	ids := make([]string, 0, len(packed))
	for id := range packed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
