package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/dealsight/internal/service"
)

var (
	ingestPath       string
	ingestCollection string
	ingestReplace    bool
	ingestDryRun     bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index a directory of deals into a collection",
	Long: `Index a directory of deals into a vector collection.

Each subdirectory with a metadata.json is one deal. Its summary.txt, risks.txt
and outcome.txt become one record with a single embedding. The whole run is
one batch: malformed metadata or a provider failure stores nothing.

Examples:
  dealsight ingest
  dealsight ingest --path ./data/deals --collection ma_deals_knowledge
  dealsight ingest --replace
  dealsight ingest --dry-run -v`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestPath, "path", "", "deals root directory (default from config)")
	ingestCmd.Flags().StringVarP(&ingestCollection, "collection", "c", "", "target collection (default from config)")
	ingestCmd.Flags().BoolVar(&ingestReplace, "replace", false, "replace existing records with the same deal_id")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "parse and aggregate without embedding or storing")
}

func runIngest(cmd *cobra.Command, args []string) error {
	root := ingestPath
	if root == "" {
		root = cfg.DealsPath
	}
	collection := collectionFlag(ingestCollection)

	res, err := deps.Ingest().IngestDirectory(cmd.Context(), root, collection, service.IngestOptions{
		Replace: ingestReplace,
		DryRun:  ingestDryRun,
	})
	if err != nil {
		return fmt.Errorf("ingest %s: %w", root, err)
	}

	out := cmd.OutOrStdout()
	printIngestResult(out, res, collection, ingestDryRun)
	if verbose {
		fmt.Fprintln(out)
		printStats(out, deps.Metrics.Snapshot())
	}
	return nil
}
