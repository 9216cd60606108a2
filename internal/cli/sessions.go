package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/streamagent/streamchat-go/internal/models"
)

var (
	sessionsSkip  int
	sessionsLimit int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage conversations",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations, most recently updated first",
	RunE:  runSessionsList,
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <id> <title>",
	Short: "Rename a conversation",
	Args:  cobra.ExactArgs(2),
	RunE:  runSessionsRename,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a conversation and all its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	sessionsListCmd.Flags().IntVar(&sessionsSkip, "skip", 0, "number of conversations to skip")
	sessionsListCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 20, "max conversations to list")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsRenameCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}

// syncDirectory refreshes the local session cache from the store.
func syncDirectory(ctx context.Context, skip, limit int) (int, error) {
	defer recordStore(time.Now())

	list, err := apiClient.ListConversations(ctx, skip, limit)
	if err != nil {
		return 0, fmt.Errorf("list conversations: %w", err)
	}
	directory.Replace(list.Conversations)
	return list.Total, nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	total, err := syncDirectory(ctx, sessionsSkip, sessionsLimit)
	if err != nil {
		return err
	}

	sessions := directory.List()
	if len(sessions) == 0 {
		fmt.Println("No conversations yet.")
		return nil
	}

	for _, s := range sessions {
		printSession(s)
	}
	if total > len(sessions) {
		fmt.Printf("... and %d more (use --skip/--limit)\n", total-len(sessions))
	}
	return nil
}

func printSession(s models.Session) {
	fmt.Printf("%s  %-40s  %d messages  %s\n",
		s.ID, s.Title, s.MessageCount, s.UpdatedAt.Format("2006-01-02 15:04"))
}

func runSessionsRename(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	defer recordStore(time.Now())

	conv, err := apiClient.RenameConversation(ctx, args[0], args[1])
	if err != nil {
		return fmt.Errorf("rename conversation: %w", err)
	}
	directory.Rename(conv.ID, conv.Title)

	fmt.Printf("Renamed %s to %q\n", conv.ID, conv.Title)
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	defer recordStore(time.Now())

	if err := apiClient.DeleteConversation(ctx, args[0]); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	directory.Remove(args[0])

	fmt.Printf("Deleted %s\n", args[0])
	return nil
}
