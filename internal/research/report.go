package research

import (
	"fmt"
	"strings"

	"github.com/pders01/repo-mechanic/internal/models"
	"github.com/pders01/repo-mechanic/internal/prompts"
)

// Report renders a deep_research history as a markdown document. The
// objective is the first user entry; every phase-tagged entry becomes a
// section named after its phase.
func Report(repo *models.RepositoryContext, history []models.ChatMessage, phases int) string {
	if phases <= 0 {
		phases = DefaultPhases
	}

	var b strings.Builder
	b.WriteString("# Deep Research Report\n\n")
	if repo != nil {
		fmt.Fprintf(&b, "**Repository:** %s\n", repo.Name)
		fmt.Fprintf(&b, "**Source:** %s\n", repo.OriginReference)
		fmt.Fprintf(&b, "**Files analyzed:** %d\n\n", len(repo.Files))
	}

	for _, m := range history {
		if m.Role == models.RoleUser {
			fmt.Fprintf(&b, "## Research Objective\n\n%s\n\n", m.Content)
			break
		}
	}

	for _, m := range history {
		switch {
		case m.PhaseNumber > 0:
			fmt.Fprintf(&b, "## Phase %d: %s\n\n%s\n\n", m.PhaseNumber, prompts.PhaseName(m.PhaseNumber, phases), strings.TrimSpace(m.Content))
		case m.Role == models.RoleAssistant && m.Content == FailureMessage:
			fmt.Fprintf(&b, "> %s\n\n", FailureMessage)
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Complete reports whether history holds every phase of an n-phase run.
func Complete(history []models.ChatMessage, n int) bool {
	seen := 0
	for _, m := range history {
		if m.PhaseNumber > 0 {
			seen++
		}
	}
	return n > 0 && seen >= n
}
