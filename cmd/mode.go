package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pders01/repo-mechanic/internal/analysis"
	"github.com/pders01/repo-mechanic/internal/models"
)

var modeCmd = &cobra.Command{
	Use:   "mode [name]",
	Short: "Show or switch the active analysis mode",
	Long: `Without an argument, list the modes with their history size and mark the
active one. With a mode name, make it active. Switching never touches any
mode's history.

Modes: wiki_gen, rag_chat, deep_research, simple_chat, backlog_steve

Example:
  repomech mode rag_chat`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMode,
}

func init() {
	rootCmd.AddCommand(modeCmd)
}

func runMode(cmd *cobra.Command, args []string) error {
	store := openStore()

	if len(args) == 0 {
		active := store.ActiveMode()
		for _, m := range models.Modes() {
			marker := " "
			if m == active {
				marker = "*"
			}
			st := store.State(m)
			fmt.Printf("%s %-14s %-22s %3d entries", marker, m, m.Label(), len(st.History))
			if m == models.ModeResearch {
				fmt.Printf("  (phase %d)", st.Progress)
			}
			fmt.Println()
		}
		return nil
	}

	mode, err := models.ParseMode(args[0])
	if err != nil {
		return err
	}
	if err := store.SetActiveMode(mode); err != nil {
		return fmt.Errorf("failed to switch mode: %w", err)
	}

	if mode == models.ModePersona {
		seeded, err := analysis.SeedPersona(store)
		if err != nil {
			return fmt.Errorf("failed to seed persona: %w", err)
		}
		if seeded {
			renderMarkdown(store.History(mode)[0].Content)
		}
	}

	successf("Active mode: %s (%s)", mode, mode.Label())
	return nil
}
