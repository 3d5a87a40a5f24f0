package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search indexes from the knowledge base",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		chunks := a.store.GetAll()

		if err := a.lexical.Rebuild(ctx, chunks); err != nil {
			return fmt.Errorf("rebuild lexical index: %w", err)
		}
		fmt.Printf("lexical: %d chunks indexed\n", len(chunks))

		if a.vector == nil {
			fmt.Println("vector: skipped (no embedding model configured)")
			return nil
		}

		report := a.vector.Reindex(ctx, chunks)
		fmt.Printf("vector: %d indexed, %d failed\n", report.Indexed, report.Failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
