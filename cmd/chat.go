package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adalundhe/aide/agents/assistant"
)

var chatResume string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		agent, titles, err := a.newAgent()
		if err != nil {
			return err
		}
		defer titles.Wait()

		convID := chatResume
		if convID == "" {
			conv, err := a.sessions.Create("")
			if err != nil {
				return err
			}
			convID = conv.ID
		} else if _, err := a.sessions.Get(convID); err != nil {
			return err
		}

		fmt.Println("aide - type a message, or 'exit' to quit")

		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			input := strings.TrimSpace(scanner.Text())
			if input == "" {
				continue
			}
			if input == "exit" || input == "quit" {
				break
			}

			mode := assistant.ChatMode
			if rest, ok := strings.CutPrefix(input, "/agent "); ok {
				mode = assistant.AgentMode
				input = rest
			}

			answer, err := agent.Run(ctx, &assistant.TurnRequest{
				ConversationID: convID,
				Input:          input,
				Mode:           mode,
				OnStep:         printStep,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			fmt.Println(answer)
		}
		return scanner.Err()
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatResume, "resume", "", "resume an existing conversation by ID")
	rootCmd.AddCommand(chatCmd)
}
