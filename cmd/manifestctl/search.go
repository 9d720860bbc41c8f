package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldcraft-labs/manifest/internal/model"
)

var (
	searchTopK       int
	searchCategory   string
	searchUserID     string
	searchSynthesize bool
)

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchTopK, "top-k", model.DefaultTopK, "number of candidates to retrieve")
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "restrict results to this inferred category")
	searchCmd.Flags().StringVar(&searchUserID, "user-id", "", "restrict results to items owned by this user")
	searchCmd.Flags().BoolVar(&searchSynthesize, "synthesize", false, "curate the retrieved items into a mission plan via the synthesizer")
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the inventory by natural-language query",
	Long: `Search embeds the query text and runs a similarity search against
the vector store, optionally curating the result with the synthesizer.

Examples:
  manifestctl search "cold weather gear"
  manifestctl search --top-k 5 --category medical "wound care supplies"
  manifestctl search --synthesize "three day backpacking trip"`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	orch, deps, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer deps.Close()

	query := model.SearchQuery{
		QueryText:      args[0],
		TopK:           searchTopK,
		CategoryFilter: searchCategory,
		UserID:         searchUserID,
	}

	result, err := orch.Search(cmd.Context(), query, searchSynthesize)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if result.Plan != nil {
		printMissionPlan(cmd, *result.Plan)
		return nil
	}

	if len(result.Retrieved) == 0 {
		cmd.Println("no matching items")
		return nil
	}
	for _, item := range result.Retrieved {
		weight := "unknown"
		if item.WeightGrams != nil {
			weight = fmt.Sprintf("%dg", *item.WeightGrams)
		}
		cmd.Printf("%.3f  %-10s  %-24s  %s\n", item.Score, item.Context.InferredCategory, item.Context.Name, weight)
	}
	return nil
}

func printMissionPlan(cmd *cobra.Command, plan model.MissionPlan) {
	cmd.Println(plan.MissionSummary)
	if len(plan.SelectedItems) > 0 {
		cmd.Println("\nselected:")
		for _, id := range plan.SelectedItems {
			reason := plan.Reasoning[id]
			cmd.Printf("  %s: %s\n", id, reason)
		}
	}
	if len(plan.RejectedItems) > 0 {
		cmd.Println("\nrejected:")
		for _, id := range plan.RejectedItems {
			cmd.Printf("  %s\n", id)
		}
	}
	for _, warning := range plan.Warnings {
		cmd.Printf("warning: %s\n", warning)
	}
}
