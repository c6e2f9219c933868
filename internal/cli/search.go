package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/dealsight/internal/config"
	"github.com/raphaelgruber/dealsight/internal/models"
	"github.com/raphaelgruber/dealsight/internal/service"
)

var (
	searchCollection string
	searchSector     string
	searchType       string
	searchLimit      int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find similar past deals without LLM synthesis",
	Long: `Find the past deals most similar to a query.

Returns matching deals ranked by similarity without LLM synthesis.
Use the 'ask' command for synthesized lessons.

Examples:
  dealsight search "cloud migration after acquisition"
  dealsight search "regulatory approval" --sector Healthcare
  dealsight search "culture clash" --type risks -n 3`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchCollection, "collection", "c", "", "collection to search (default from config)")
	searchCmd.Flags().StringVar(&searchSector, "sector", "", "only deals in this sector (any: ignore default_sector)")
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "", "only deals with this section: summary, risks or outcome (any: ignore default_document_type)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "max results (default top_k from config)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	limit := searchLimit
	if limit <= 0 {
		limit = cfg.TopK
	}

	hits, err := deps.Search().Search(cmd.Context(), service.SearchOptions{
		Query:        args[0],
		Collection:   collectionFlag(searchCollection),
		TopK:         limit,
		Sector:       config.FilterValue(searchSector, cfg.DefaultSector),
		DocumentType: config.FilterValue(searchType, cfg.DefaultDocumentType),
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	printHits(cmd.OutOrStdout(), hits, sectionsToShow(searchType))
	return nil
}

// sectionsToShow returns the single requested section, or all of them.
func sectionsToShow(docType string) []models.SectionKind {
	if k, err := models.ParseSectionKind(docType); err == nil {
		return []models.SectionKind{k}
	}
	return models.SectionKinds()
}
