package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyChia88/Text2Cal/internal/engine"
	"github.com/hyChia88/Text2Cal/internal/store"
)

const commandTimeout = 60 * time.Second

func init() {
	addCmd.Flags().StringVarP(&addCategory, "category", "c", "", "Category (derived from content if empty)")
	addCmd.Flags().StringSliceVarP(&addTags, "tag", "t", nil, "Tags (repeatable)")
	addCmd.Flags().Float64VarP(&addImportance, "importance", "i", -1, "Importance 0..1 (derived if unset)")

	listCmd.Flags().IntVarP(&listDays, "days", "d", 0, "Only entries from the last N days")

	searchCmd.Flags().IntVarP(&searchDays, "days", "d", 0, "Candidate window in days")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum number of results")

	suggestCmd.Flags().IntVarP(&suggestDays, "days", "d", 0, "Candidate window in days")
	suggestCmd.Flags().IntVarP(&suggestLimit, "limit", "n", 10, "Maximum entries considered")

	insightsCmd.Flags().IntVarP(&insightsDays, "days", "d", 0, "Window in days")

	weightCmd.AddCommand(weightSetCmd)
	weightCmd.AddCommand(weightClearCmd)
	weightCmd.AddCommand(weightResetCmd)
}

func formatEntry(eng *engine.Engine, entry *store.LogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s (w=%.2f)\n", entry.Category,
		time.UnixMilli(entry.CreatedAt).Format("2006-01-02 15:04"), eng.Weight(entry.ID))
	fmt.Fprintf(&b, "  %s\n", entry.Content)
	if len(entry.Tags) > 0 {
		fmt.Fprintf(&b, "  tags: %s\n", strings.Join(entry.Tags, ", "))
	}
	fmt.Fprintf(&b, "  id: %s", entry.ID)
	if entry.EmbedState == store.EmbedPending {
		b.WriteString("  (embedding pending)")
	}
	return b.String()
}

// --- add command ---

var (
	addCategory   string
	addTags       []string
	addImportance float64
)

var addCmd = &cobra.Command{
	Use:   "add [text]",
	Short: "Add a memory entry",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	eng, db, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	defer eng.Close()

	req := engine.AddRequest{
		Content:  strings.Join(args, " "),
		Category: addCategory,
		Tags:     addTags,
	}
	if addImportance >= 0 {
		req.Importance = &addImportance
	}

	entry, err := eng.Add(ctx, req)
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}

	fmt.Println(formatEntry(eng, entry))
	return nil
}

// --- list command ---

var listDays int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List memory entries, newest first",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	eng, db, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	defer eng.Close()

	entries, err := eng.List(listDays)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No entries found.")
		return nil
	}

	for i := range entries {
		fmt.Println(formatEntry(eng, &entries[i]))
		fmt.Println()
	}
	return nil
}

// --- search command ---

var (
	searchDays  int
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Rank memories against a query",
	Long:  "Rank memories by attention over embedding similarity blended with ledger weights.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	eng, db, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	defer eng.Close()

	results, err := eng.Search(ctx, query, searchDays, searchLimit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for _, r := range results {
		entry, err := eng.Get(r.ID)
		if err != nil {
			continue
		}
		fmt.Printf("%d. [%.3f] %s\n", r.Rank, r.Combined, entry.Content)
		fmt.Printf("   sim=%.3f attn=%.2f [%s] %s\n", r.Similarity, r.Attention,
			entry.Category, time.UnixMilli(r.CreatedAt).Format("2006-01-02"))
	}
	return nil
}

// --- suggest command ---

var (
	suggestDays  int
	suggestLimit int
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [query]",
	Short: "Generate a suggestion from relevant memories",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSuggest,
}

func runSuggest(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	eng, db, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	defer eng.Close()

	s, err := eng.Suggest(ctx, query, suggestDays, suggestLimit)
	if err != nil {
		return fmt.Errorf("suggest: %w", err)
	}

	if s.Degraded || s.Text == "" {
		fmt.Println("No suggestion available; top matches:")
		for _, r := range s.Results {
			if entry, err := eng.Get(r.ID); err == nil {
				fmt.Printf("%d. %s\n", r.Rank, entry.Content)
			}
		}
		return nil
	}

	fmt.Println(s.Text)
	fmt.Println()
	for _, span := range s.Spans {
		marker := "generated"
		if span.IsOriginal {
			marker = "from memory"
		}
		fmt.Printf("  [%s] %s\n", marker, span.Text)
	}
	return nil
}

// --- weight commands ---

var weightCmd = &cobra.Command{
	Use:   "weight",
	Short: "Manage manual attention weights",
}

var weightSetCmd = &cobra.Command{
	Use:   "set <id> <value>",
	Short: "Pin an entry's attention weight",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("parse weight: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		eng, db, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		defer eng.Close()

		applied, err := eng.SetWeight(args[0], value)
		if err != nil {
			return fmt.Errorf("set weight: %w", err)
		}
		fmt.Printf("weight for %s set to %.2f\n", args[0], applied)
		return nil
	},
}

var weightClearCmd = &cobra.Command{
	Use:   "clear <id>",
	Short: "Clear a manual override, returning the entry to decay",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		eng, db, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		defer eng.Close()

		if err := eng.ClearWeight(args[0]); err != nil {
			return fmt.Errorf("clear weight: %w", err)
		}
		fmt.Printf("weight for %s cleared (w=%.2f)\n", args[0], eng.Weight(args[0]))
		return nil
	},
}

var weightResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all manual overrides",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		eng, db, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		defer eng.Close()

		if err := eng.ResetWeights(); err != nil {
			return fmt.Errorf("reset weights: %w", err)
		}
		fmt.Println("all manual overrides cleared")
		return nil
	},
}

// --- delete command ---

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a memory entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		eng, db, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		defer eng.Close()

		if err := eng.Delete(ctx, args[0]); err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

// --- insights command ---

var insightsDays int

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Summarize the memory set",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		eng, db, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		defer eng.Close()

		ins, err := eng.Insights(insightsDays)
		if err != nil {
			return fmt.Errorf("insights: %w", err)
		}

		fmt.Printf("## Last %d days\n\n", ins.Days)
		fmt.Printf("entries: %d", ins.TotalEntries)
		if ins.PendingCount > 0 {
			fmt.Printf(" (%d pending embedding)", ins.PendingCount)
		}
		fmt.Println()

		if len(ins.Categories) > 0 {
			fmt.Println("\ncategories:")
			for category, n := range ins.Categories {
				fmt.Printf("  %-10s %d\n", category, n)
			}
		}

		if len(ins.StrongestPair) == 2 {
			fmt.Printf("\nmean affinity: %.3f\n", ins.MeanAffinity)
			fmt.Printf("strongest pair (%.3f):\n", ins.StrongestSim)
			for _, id := range ins.StrongestPair {
				if entry, err := eng.Get(id); err == nil {
					fmt.Printf("  - %s\n", entry.Content)
				}
			}
		}
		return nil
	},
}
