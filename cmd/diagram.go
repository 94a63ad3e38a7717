package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pders01/repo-mechanic/internal/analysis"
	"github.com/pders01/repo-mechanic/internal/models"
	"github.com/pders01/repo-mechanic/internal/wiki"
)

var (
	diagramMode  string
	diagramEntry int
	diagramPage  string
)

var diagramCmd = &cobra.Command{
	Use:   "diagram [text]",
	Short: "Generate a Mermaid diagram",
	Long: `Turn a technical explanation into Mermaid source.

The source is the given text, a history entry (--entry, default: the latest
reply of the active mode) or a wiki page (--page).

Examples:
  repomech diagram
  repomech diagram --mode deep_research --entry 3
  repomech diagram --page page-1
  repomech diagram "The client retries three times, then gives up"`,
	RunE: runDiagram,
}

func init() {
	rootCmd.AddCommand(diagramCmd)

	diagramCmd.Flags().StringVar(&diagramMode, "mode", "", "Mode whose history to use (default: active mode)")
	diagramCmd.Flags().IntVar(&diagramEntry, "entry", -1, "History entry index (default: latest reply)")
	diagramCmd.Flags().StringVar(&diagramPage, "page", "", "Diagram this wiki page")
}

func runDiagram(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	store := openStore()

	var source string
	switch {
	case len(args) > 0:
		source = strings.Join(args, " ")
	case diagramPage != "":
		w, err := loadWiki(store)
		if err != nil {
			return err
		}
		page, ok := wiki.NewIndex(w).Page(diagramPage)
		if !ok {
			return fmt.Errorf("no wiki page with id %q", diagramPage)
		}
		source = analysis.PageSource(page)
	default:
		mode, err := modeOrActive(store.ActiveMode(), diagramMode)
		if err != nil {
			return err
		}
		_, msg, err := pickEntry(store.History(mode), diagramEntry)
		if err != nil {
			return fmt.Errorf("%s: %w", mode, err)
		}
		source = msg.Content
	}

	svc, _, err := newAnalysis(ctx, store, openSettings().Get())
	if err != nil {
		return err
	}

	stop := startSpinner("Drawing...")
	diagram, err := svc.Diagram(ctx, source)
	stop()
	if err != nil {
		return fmt.Errorf("failed to generate diagram: %w", err)
	}

	fmt.Println(diagram)
	return nil
}

// modeOrActive parses name, or returns active when name is empty
func modeOrActive(active models.Mode, name string) (models.Mode, error) {
	if name == "" {
		return active, nil
	}
	return models.ParseMode(name)
}

// pickEntry returns history[index], or the latest assistant entry when
// index is negative.
func pickEntry(history []models.ChatMessage, index int) (int, models.ChatMessage, error) {
	if len(history) == 0 {
		return 0, models.ChatMessage{}, fmt.Errorf("history is empty")
	}
	if index < 0 {
		for i := len(history) - 1; i >= 0; i-- {
			if history[i].Role == models.RoleAssistant {
				return i, history[i], nil
			}
		}
		return 0, models.ChatMessage{}, fmt.Errorf("no replies yet")
	}
	if index >= len(history) {
		return 0, models.ChatMessage{}, fmt.Errorf("entry %d out of range (0-%d)", index, len(history)-1)
	}
	return index, history[index], nil
}
