package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/dealsight/internal/models"
	"github.com/raphaelgruber/dealsight/internal/service"
)

// REPL defaults: five deals, restricted to deals with recorded risks.
const (
	replTopK         = 5
	replDocumentType = string(models.SectionRisks)
)

var replCollection string

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive deal search",
	Long: `Start an interactive search prompt.

Each line is a query against deals with recorded risks; the five most similar
deals are printed with their score, metadata and risks. Type exit or quit to
leave.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runREPL(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), deps.Search(), collectionFlag(replCollection))
	},
}

func init() {
	replCmd.Flags().StringVarP(&replCollection, "collection", "c", "", "collection to search (default from config)")
}

// runREPL reads queries from in until EOF, exit or quit. Blank lines and
// search errors are reported and the loop continues.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, search service.Retriever, collection string) error {
	scanner := bufio.NewScanner(in)
	t := defaultTheme

	for {
		fmt.Fprint(out, t.headingStyle().Render("Enter your query (or 'exit'): "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		query := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(query) {
		case "":
			fmt.Fprintln(out, "No search query provided. Try again.")
			continue
		case "exit", "quit":
			return nil
		}

		hits, err := search.Search(ctx, service.SearchOptions{
			Query:        query,
			Collection:   collection,
			TopK:         replTopK,
			DocumentType: replDocumentType,
		})
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n\n", err)
			continue
		}
		printReplHits(out, hits)
	}
}

// printReplHits shows score, metadata blob and risks for each hit.
func printReplHits(w io.Writer, hits []models.SearchHit) {
	t := defaultTheme
	if len(hits) == 0 {
		fmt.Fprintln(w, t.hintStyle().Render("No matching deals found."))
		fmt.Fprintln(w)
		return
	}
	for i, h := range hits {
		fmt.Fprintf(w, "%s %s\n", t.headingStyle().Render(fmt.Sprintf("Result %d", i+1)), t.scoreStyle().Render(fmt.Sprintf("(score %.4f)", h.Score)))
		fmt.Fprintf(w, "Metadata: %s\n", h.Metadata)
		fmt.Fprintf(w, "Risks: %s\n\n", h.Risks)
	}
}
