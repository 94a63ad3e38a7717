package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pders01/repo-mechanic/internal/config"
	"github.com/pders01/repo-mechanic/internal/llm"
	"github.com/pders01/repo-mechanic/internal/models"
	"github.com/pders01/repo-mechanic/internal/research"
	"github.com/pders01/repo-mechanic/internal/session"
)

var researchScope scopeFlags

var researchCmd = &cobra.Command{
	Use:   "research <objective>",
	Short: "Run the multi-phase deep research pipeline",
	Long: `Switch to deep_research and investigate an objective in phases:

  1. PLANNING              outline the investigation
  2. STRUCTURAL_MAPPING    map the components involved
  3. INTERACTION_ANALYSIS  trace how they interact
  4. FINAL_SYNTHESIS       reconcile every finding

Each phase sees the objective and the output of every earlier phase.
Starting research discards the previous research history. If a phase fails
the completed phases are kept.

The phase count and the pause between phases are configured with
research.phases and research.phase_delay.

Example:
  repomech research "How does ingestion degrade when the API is rate limited?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func init() {
	rootCmd.AddCommand(researchCmd)

	researchScope.register(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	store := openStore()
	if store.ActiveMode() != models.ModeResearch {
		if err := store.SetActiveMode(models.ModeResearch); err != nil {
			return fmt.Errorf("failed to switch mode: %w", err)
		}
	}
	return sendMessage(commandContext(cmd), store, models.ModeResearch, strings.Join(args, " "), "", &researchScope)
}

func runResearchPipeline(ctx context.Context, store *session.Store, gen llm.Generator, model string, repo *models.RepositoryContext, objective string) error {
	p := research.New(gen, store, research.Config{
		Phases:         config.GetResearchPhases(),
		PhaseDelay:     config.GetResearchPhaseDelay(),
		Model:          model,
		ThinkingBudget: config.GetThinkingBudget(),
	}, logger)

	n := p.Phases()
	stop := startSpinner(fmt.Sprintf("Phase 1/%d...", n))
	p.OnPhase = func(phase int, name, text string) {
		stop()
		header(fmt.Sprintf("Phase %d/%d: %s", phase, n, name))
		renderMarkdown(text)
		if phase < n {
			stop = startSpinner(fmt.Sprintf("Phase %d/%d...", phase+1, n))
		} else {
			stop = func() {}
		}
	}

	err := p.Run(ctx, repo, objective)
	stop()
	if err != nil {
		if notice := abortNotice(err); notice != "" {
			fmt.Println(notice)
		}
		return fmt.Errorf("research aborted: %w", err)
	}

	successf("Research complete (%d phases). Export with: repomech report research", n)
	return nil
}

// abortNotice returns the failure entry a phase failure left in the
// history, or "" when the run stopped for another reason.
func abortNotice(err error) string {
	if errors.Is(err, llm.ErrCollaborator) {
		return research.FailureMessage
	}
	return ""
}
