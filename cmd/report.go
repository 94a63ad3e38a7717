package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/repo-mechanic/internal/analysis"
	"github.com/pders01/repo-mechanic/internal/models"
	"github.com/pders01/repo-mechanic/internal/research"
)

var reportOutput string

var reportCmd = &cobra.Command{
	Use:   "report <template>",
	Short: "Generate markdown reports from mode histories",
	Long: `Generate markdown documents from the session.

Available templates:
  research  - The deep_research objective and every phase
  backlog   - The latest sanitized backlog from backlog_steve

Examples:
  repomech report research
  repomech report backlog --output backlog.md
  repomech report research --output -`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Output file path, - for stdout")
}

func runReport(cmd *cobra.Command, args []string) error {
	store := openStore()

	switch args[0] {
	case "research":
		return generateResearchReport(store.Snapshot())
	case "backlog":
		return generateBacklogReport(store.Snapshot())
	default:
		return fmt.Errorf("unknown report template: %s (available: research, backlog)", args[0])
	}
}

func generateResearchReport(snap models.Snapshot) error {
	history := snap.ModeStates[models.ModeResearch].History
	if len(history) == 0 {
		return fmt.Errorf("no research yet (run: repomech research <objective>)")
	}
	phases := researchPhases()
	if !research.Complete(history, phases) {
		warnf("research is incomplete: phase %d of %d", snap.ModeStates[models.ModeResearch].Progress, phases)
	}

	doc := research.Report(snap.RepositoryContext, history, phases)
	return writeOutput(reportOutput, reportFilename("research", snap.RepositoryContext), []byte(doc))
}

func generateBacklogReport(snap models.Snapshot) error {
	backlog, ok := analysis.LatestBacklog(snap.ModeStates[models.ModePersona].History)
	if !ok {
		return fmt.Errorf("no backlog yet (run: repomech chat backlog_steve <notes>)")
	}

	name := "repository"
	if snap.RepositoryContext != nil {
		name = snap.RepositoryContext.Name
	}
	doc := analysis.BacklogDocument(name, backlog, time.Now())
	return writeOutput(reportOutput, reportFilename("backlog", snap.RepositoryContext), []byte(doc))
}

// reportFilename is <repo>-<kind>-<date>.md
func reportFilename(kind string, repo *models.RepositoryContext) string {
	name := "session"
	if repo != nil && repo.Name != "" {
		name = strings.ReplaceAll(repo.Name, "/", "-")
	}
	return fmt.Sprintf("%s-%s-%s.md", name, kind, time.Now().Format("2006-01-02"))
}
