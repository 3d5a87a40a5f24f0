// Package cmd provides the aide command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "aide",
	Short: "aide - a personal AI assistant with a local knowledge base",
	Long: `aide is a personal AI assistant that remembers what you tell it.
It keeps a local knowledge base on disk, searches it with hybrid
keyword and semantic retrieval, and can use tools to complete tasks.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}
