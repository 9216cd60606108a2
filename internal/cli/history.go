package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	historySkip  int
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history <conversation-id>",
	Short: "Show the stored transcript of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historySkip, "skip", 0, "number of messages to skip")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 100, "max messages to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	defer recordStore(time.Now())

	list, err := apiClient.ListMessages(ctx, args[0], historySkip, historyLimit)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}

	if len(list.Messages) == 0 {
		fmt.Println("No messages in this conversation.")
		return nil
	}

	for _, m := range list.Messages {
		fmt.Printf("[%s] %s\n", m.Role, m.Content)
		for _, tool := range m.ToolCalls {
			line := fmt.Sprintf("  tool %s (%s)", tool.Name, tool.Status)
			if tool.Output != nil && *tool.Output != "" {
				line += ": " + *tool.Output
			}
			fmt.Println(line)
		}
		for _, c := range m.Citations {
			fmt.Printf("  cite %s %.2f %s\n", c.SourceID, c.RelevanceScore, c.SourceLabel)
		}
		fmt.Println()
	}

	if list.Total > len(list.Messages) {
		fmt.Printf("... and %d more messages\n", list.Total-len(list.Messages))
	}
	return nil
}
