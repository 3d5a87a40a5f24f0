package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"conv"},
	Short:   "Manage saved conversations",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved conversations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		convs := a.sessions.List()
		if len(convs) == 0 {
			fmt.Println("no conversations")
			return nil
		}
		for _, conv := range convs {
			fmt.Printf("%s  %s  (%d messages, updated %s)\n",
				conv.ID,
				conv.Title,
				len(conv.Messages),
				conv.UpdatedAt.Format("2006-01-02 15:04"),
			)
		}
		return nil
	},
}

var conversationsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a conversation transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		conv, err := a.sessions.Get(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s (%s)\n\n", conv.Title, conv.ID)
		for _, msg := range conv.Messages {
			fmt.Printf("[%s] %s\n%s\n\n",
				msg.Timestamp.Format("15:04:05"), msg.Role, msg.Content)
		}
		return nil
	},
}

var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.sessions.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

func init() {
	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsShowCmd)
	conversationsCmd.AddCommand(conversationsDeleteCmd)
	rootCmd.AddCommand(conversationsCmd)
}
