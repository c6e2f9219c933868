package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/dealsight/internal/models"
)

var dropConfirm bool

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Inspect or drop deal collections",
}

var collectionsInfoCmd = &cobra.Command{
	Use:   "info [name]",
	Short: "Show record count and embedding dimension of a collection",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := cfg.Collection
		if len(args) == 1 {
			name = args[0]
		}

		dim, err := deps.DB.CollectionDimension(ctx, name)
		if errors.Is(err, models.ErrCollectionNotFound) {
			fmt.Fprintf(cmd.OutOrStdout(), "Collection %s does not exist.\n", name)
			return nil
		}
		if err != nil {
			return err
		}
		count, err := deps.DB.CountDeals(ctx, name)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, defaultTheme.headingStyle().Render(name))
		fmt.Fprintf(out, "  deals:     %d\n", count)
		fmt.Fprintf(out, "  dimension: %d\n", dim)
		if dim != deps.Embedder.Dimension() {
			fmt.Fprintln(out, defaultTheme.hintStyle().Render(fmt.Sprintf(
				"  configured embedder %s produces %d dimensions; searches will fail", deps.Embedder.Model(), deps.Embedder.Dimension())))
		}
		return nil
	},
}

var collectionsDropCmd = &cobra.Command{
	Use:   "drop <name>",
	Short: "Remove a collection with all its deals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !dropConfirm {
			return fmt.Errorf("refusing to drop %s without --yes", args[0])
		}
		if err := deps.DB.DropCollection(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), defaultTheme.successStyle().Render("Dropped "+args[0]))
		return nil
	},
}

func init() {
	collectionsDropCmd.Flags().BoolVarP(&dropConfirm, "yes", "y", false, "confirm the drop")
	collectionsCmd.AddCommand(collectionsInfoCmd)
	collectionsCmd.AddCommand(collectionsDropCmd)
}
