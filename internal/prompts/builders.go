package prompts

import (
	"fmt"
	"strings"

	"github.com/pders01/repo-mechanic/internal/models"
)

// Research phase names. Every middle phase after the second is an
// interaction analysis.
const (
	PhasePlanning            = "PLANNING"
	PhaseStructuralMapping   = "STRUCTURAL_MAPPING"
	PhaseInteractionAnalysis = "INTERACTION_ANALYSIS"
	PhaseFinalSynthesis      = "FINAL_SYNTHESIS"
)

// PhaseName names phase i of an n-phase pipeline.
func PhaseName(i, n int) string {
	switch {
	case i <= 1:
		return PhasePlanning
	case i >= n:
		return PhaseFinalSynthesis
	case i == 2:
		return PhaseStructuralMapping
	default:
		return PhaseInteractionAnalysis
	}
}

// FileContext renders every file of repo as a numbered block.
func FileContext(repo *models.RepositoryContext) string {
	var b strings.Builder
	for i, f := range repo.Files {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%d. File Path: %s\nContent: %s", i+1, f.Path, f.Content)
	}
	return b.String()
}

// History renders prior turns for inclusion in a prompt.
func History(history []models.ChatMessage) string {
	var b strings.Builder
	for i, m := range history {
		if i > 0 {
			b.WriteString("\n")
		}
		switch m.Role {
		case models.RoleUser:
			fmt.Fprintf(&b, "%d.\nUser: %s", i+1, m.Content)
		default:
			fmt.Fprintf(&b, "%d.\nYou: %s", i+1, m.Content)
		}
	}
	return b.String()
}

// WikiPrompt asks for the wiki outline of repo.
func WikiPrompt(repo *models.RepositoryContext) string {
	var contents strings.Builder
	for i, f := range repo.Files {
		if i > 0 {
			contents.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&contents, "File: %s\nContent:\n%s", f.Path, f.Content)
	}

	return fmt.Sprintf("Analyze this repository: %s (%s).\nFiles involved: %s\n\nContext Data:\n%s",
		repo.Name, repo.OriginReference, strings.Join(repo.Paths(), ", "), contents.String())
}

// ContextPrompt frames query with the file context and prior history. Used
// by the retrieval chat and the backlog persona.
func ContextPrompt(repo *models.RepositoryContext, history []models.ChatMessage, query string) string {
	return fmt.Sprintf(`<START_OF_CONTEXT>
%s
<END_OF_CONTEXT>
<START_OF_CONVERSATION_HISTORY>
%s
<END_OF_CONVERSATION_HISTORY>
<START_OF_USER_PROMPT>
%s
<END_OF_USER_PROMPT>`, FileContext(repo), History(history), query)
}

// SimplePrompt frames a simple chat question. Only the file list is sent.
func SimplePrompt(repo *models.RepositoryContext, query string) string {
	return fmt.Sprintf("Files in scope: %s\n\n%s", strings.Join(repo.Paths(), ", "), query)
}

// ResearchSystem is the system instruction for phase i of n.
func ResearchSystem(repo *models.RepositoryContext, i, n int) string {
	role := fmt.Sprintf("You are an expert code analyst examining the %s: %s (%s).",
		repo.Kind, repo.OriginReference, repo.Name)

	switch PhaseName(i, n) {
	case PhasePlanning:
		return fmt.Sprintf(`<role>
%s
Your goal is to investigate the topic of the user's objective using structured, mechanism-focused analysis.
Maintain analytical clarity focused on structural understanding.
</role>
<guidelines>
- This is the first phase of %d
- Start with "## Research Plan"
- End with "## Next Steps"
</guidelines>`, role, n)
	case PhaseFinalSynthesis:
		return fmt.Sprintf(`<role>
%s
Final synthesis.
</role>
<guidelines>
- Start with "## Final Conclusion"
- Reconcile the findings of every earlier phase
</guidelines>`, role)
	default:
		return fmt.Sprintf(`<role>
%s
Phase %d of %d: %s.
</role>
<guidelines>
- Start with "## Research Update %d"
- Avoid repeating prior content
</guidelines>`, role, i, n, strings.ToLower(strings.ReplaceAll(PhaseName(i, n), "_", " ")), i)
	}
}

// ResearchPrompt is the prompt for phase i of n. findings carries the
// output of every earlier phase.
func ResearchPrompt(repo *models.RepositoryContext, objective string, i, n int, findings string) string {
	var task string
	switch PhaseName(i, n) {
	case PhasePlanning:
		task = objective
	case PhaseFinalSynthesis:
		task = fmt.Sprintf("Synthesize all findings: %s\n\nFinal goal: %s", findings, objective)
	default:
		task = fmt.Sprintf("Review: %s\n\nContinue research on: %s", findings, objective)
	}
	return fmt.Sprintf("<START_OF_CONTEXT>\n%s\n<END_OF_CONTEXT>\n\n%s", FileContext(repo), task)
}
