package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	askCollection string
	askSector     string
	askType       string
	askLimit      int
)

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Synthesize integration lessons from similar past deals",
	Long: `Ask a question and get lessons synthesized from similar past deals.

Retrieves the most similar deals, formats their overview, risks and outcome
as evidence, and asks the configured LLM to link recurring risks to their
consequences and derive lessons learned.

Examples:
  dealsight ask "What integration risks recur when buying SaaS companies?"
  dealsight ask "Why do synergies arrive late?" --sector Tech
  dealsight ask "Lessons for cross-border healthcare deals" -n 10`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askCollection, "collection", "c", "", "collection to search (default from config)")
	askCmd.Flags().StringVar(&askSector, "sector", "", "only use deals in this sector")
	askCmd.Flags().StringVarP(&askType, "type", "t", "", "only use deals with this section: summary, risks or outcome")
	askCmd.Flags().IntVarP(&askLimit, "limit", "n", 0, "deals used as evidence (default top_k from config)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	opts := deps.SynthesisOptions()
	opts.Collection = collectionFlag(askCollection)
	if askLimit > 0 {
		opts.TopK = askLimit
	}
	if askSector != "" {
		opts.Sector = askSector
	}
	if askType != "" {
		opts.DocumentType = askType
	}

	syn, err := deps.Synthesizer(ctx, opts)
	if err != nil {
		return err
	}

	st, err := syn.Run(ctx, args[0])
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	out := cmd.OutOrStdout()
	printAnswer(out, st)
	if verbose {
		fmt.Fprintln(out)
		printStats(out, deps.Metrics.Snapshot())
	}
	return nil
}
