package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		results, err := a.retriever.Search(ctx, strings.Join(args, " "), searchLimit)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("no results")
			return nil
		}

		for i, r := range results {
			fmt.Printf("%d. [%s/%s] %s (%.3f)\n", i+1, r.Layer, r.Origin, r.Source, r.Score)
			fmt.Printf("   %s\n", preview(r.Text, 200))
		}
		return nil
	},
}

func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 5, "maximum results")
	rootCmd.AddCommand(searchCmd)
}
