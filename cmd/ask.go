package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adalundhe/aide/agents/assistant"
)

var (
	askAgentMode   bool
	askAttachments []string
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a one-shot question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		conv, err := a.sessions.Create("")
		if err != nil {
			return err
		}

		mode := assistant.ChatMode
		if askAgentMode {
			mode = assistant.AgentMode
		}

		attachments, err := resolveAttachments(askAttachments)
		if err != nil {
			return err
		}

		answer, err := agent.Run(ctx, &assistant.TurnRequest{
			ConversationID: conv.ID,
			Input:          strings.Join(args, " "),
			Attachments:    attachments,
			Mode:           mode,
			OnStep:         printStep,
		})
		if err != nil {
			return err
		}

		fmt.Println(answer)
		titles.Wait()
		return nil
	},
}

func printStep(step assistant.Step) {
	switch step.Type {
	case assistant.StepAction:
		fmt.Printf("\033[90m> %s\033[0m\n", step.Content)
	case assistant.StepObservation:
		preview := step.Content
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		fmt.Printf("\033[90m  %s\033[0m\n", preview)
	}
}

func init() {
	askCmd.Flags().BoolVar(&askAgentMode, "agent", false, "start in agent mode with tools enabled")
	askCmd.Flags().StringSliceVar(&askAttachments, "attach", nil, "image attachments (local paths, data URLs, or http(s) URLs)")
	rootCmd.AddCommand(askCmd)
}
