package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pders01/repo-mechanic/internal/models"
)

var chatScope scopeFlags

var chatCmd = &cobra.Command{
	Use:   "chat <mode> <message>",
	Short: "Send a message to a specific chat mode",
	Long: `Like 'ask', but names the mode explicitly and makes it active.

Examples:
  repomech chat rag_chat "What does the retriever do on a 404?"
  repomech chat backlog_steve "$(cat meeting-notes.txt)"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatScope.register(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	mode, err := models.ParseMode(args[0])
	if err != nil {
		return err
	}
	if !mode.IsChat() {
		return fmt.Errorf("%s is not a chat mode (use: rag_chat, simple_chat or backlog_steve)", mode)
	}

	store := openStore()
	if store.ActiveMode() != mode {
		if err := store.SetActiveMode(mode); err != nil {
			return fmt.Errorf("failed to switch mode: %w", err)
		}
	}
	return sendMessage(commandContext(cmd), store, mode, strings.Join(args[1:], " "), "", &chatScope)
}
