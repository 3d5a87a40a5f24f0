package cmd

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/adalundhe/aide/core/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir...]",
	Short: "Watch folders and keep the knowledge base in sync",
	Long: `Watch folders for file changes and mirror them into the core
knowledge layer. Directories passed as arguments override the configured
watch paths. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		paths := a.config.Watch.Paths
		if len(args) > 0 {
			paths = paths[:0:0]
			for _, arg := range args {
				abs, err := filepath.Abs(arg)
				if err != nil {
					return err
				}
				paths = append(paths, abs)
			}
		}

		w, err := watcher.New(watcher.Config{
			Paths:           paths,
			ExcludePatterns: a.config.Watch.ExcludePatterns,
			Debounce:        a.config.Watch.Debounce,
			Store:           a.store,
			Logger:          a.logger,
		})
		if err != nil {
			return err
		}

		if err := w.Start(ctx); err != nil {
			return err
		}

		fmt.Printf("watching %d folder(s), press Ctrl-C to stop\n", len(paths))
		<-ctx.Done()
		w.Wait()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
