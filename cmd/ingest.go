package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/adalundhe/aide/core/knowledge"
)

var ingestLayer string

var ingestCmd = &cobra.Command{
	Use:   "ingest <file...>",
	Short: "Add files to the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		layer := knowledge.Layer(ingestLayer)
		if !layer.Valid() {
			return fmt.Errorf("invalid layer %q", ingestLayer)
		}

		for _, arg := range args {
			path, err := filepath.Abs(arg)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if !utf8.Valid(data) {
				fmt.Fprintf(os.Stderr, "skipping binary file %s\n", path)
				continue
			}

			// Re-ingesting a file replaces its chunks instead of piling
			// duplicates on top.
			if _, err := a.store.DeleteBySource(ctx, path); err != nil {
				return err
			}

			n, err := a.store.Add(ctx, string(data), knowledge.AddMetadata{
				Source: path,
				Type:   "file",
				Layer:  layer,
			})
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d chunks\n", path, n)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestLayer, "layer", string(knowledge.LayerCore), "knowledge layer (core, generated, conversation)")
	rootCmd.AddCommand(ingestCmd)
}
