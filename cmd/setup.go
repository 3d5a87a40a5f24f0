package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure the assistant interactively",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		cfg := *a.config
		reader := bufio.NewReader(os.Stdin)

		cfg.LLM.Provider = promptString(reader, "Chat provider (openai, anthropic)", cfg.LLM.Provider)
		cfg.LLM.ChatModel = promptString(reader, "Chat model", cfg.LLM.ChatModel)

		key, err := promptSecret("API key")
		if err != nil {
			return err
		}
		if key != "" {
			cfg.LLM.APIKey = key
		}

		cfg.LLM.EmbeddingProvider = promptString(reader, "Embedding provider (openai, gemini)", cfg.LLM.EmbeddingProvider)
		cfg.LLM.EmbeddingModel = promptString(reader, "Embedding model (empty disables vector search)", cfg.LLM.EmbeddingModel)

		if err := a.manager.Save(&cfg); err != nil {
			return err
		}
		fmt.Printf("configuration written to %s\n", a.dirs.ConfigDir("config.yaml"))
		return nil
	},
}

func promptString(reader *bufio.Reader, label, current string) string {
	if current != "" {
		fmt.Printf("%s [%s]: ", label, current)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		return current
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	return line
}

// promptSecret reads without echo when stdin is a terminal, so keys never
// land in scrollback.
func promptSecret(label string) (string, error) {
	fmt.Printf("%s (leave empty to keep current): ", label)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		data, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
