package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/repo-mechanic/internal/analysis"
	"github.com/pders01/repo-mechanic/internal/models"
)

var (
	historyEntry  int
	historyExport bool
	historyOutput string
	historyJSON   bool
	historyToon   bool
)

var historyCmd = &cobra.Command{
	Use:   "history [mode]",
	Short: "Show a mode's conversation history",
	Long: `Show the history of a mode (default: the active mode).

With --entry a single entry is shown; --export writes it as a markdown
document.

Examples:
  repomech history
  repomech history deep_research --json
  repomech history rag_chat --entry 1
  repomech history rag_chat --entry 1 --export --output answer.md`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyEntry, "entry", -1, "Show only this entry")
	historyCmd.Flags().BoolVar(&historyExport, "export", false, "Write the entry as a markdown document")
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "", "Export file path, - for stdout")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")
	historyCmd.Flags().BoolVar(&historyToon, "toon", false, "Output in LLM-friendly toon format")
}

type historyView struct {
	Mode     string               `json:"mode"`
	Progress int                  `json:"progress"`
	Entries  []models.ChatMessage `json:"entries"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	store := openStore()
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	mode, err := modeOrActive(store.ActiveMode(), name)
	if err != nil {
		return err
	}
	state := store.State(mode)

	if historyEntry >= 0 || historyExport {
		index, msg, err := pickEntry(state.History, historyEntry)
		if err != nil {
			return fmt.Errorf("%s: %w", mode, err)
		}
		if historyExport {
			doc := analysis.MessageDocument(msg, index, time.Now())
			fallback := fmt.Sprintf("repomech-%s-%d-%s.md", mode, index, time.Now().Format("20060102-1504"))
			return writeOutput(historyOutput, fallback, []byte(doc))
		}
		if done, err := printStructured(msg, historyJSON, historyToon); done {
			return err
		}
		printEntry(index, msg)
		return nil
	}

	view := historyView{Mode: mode.String(), Progress: state.Progress, Entries: state.History}
	if done, err := printStructured(view, historyJSON, historyToon); done {
		return err
	}

	if len(state.History) == 0 {
		fmt.Printf("No history in %s\n", mode)
		return nil
	}
	header(fmt.Sprintf("%s (%s): %d entries", mode, mode.Label(), len(state.History)))
	for i, msg := range state.History {
		printEntry(i, msg)
	}
	return nil
}

func printEntry(index int, msg models.ChatMessage) {
	label := "You"
	if msg.Role == models.RoleAssistant {
		label = "Assistant"
	}
	if msg.PhaseNumber > 0 {
		label = fmt.Sprintf("%s, phase %d", label, msg.PhaseNumber)
	}
	fmt.Println()
	fmt.Println(dimStyle.Render(fmt.Sprintf("#%d %s", index, label)))
	if msg.Role == models.RoleAssistant {
		renderMarkdown(msg.Content)
	} else {
		fmt.Println(msg.Content)
	}
}
