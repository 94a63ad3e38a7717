package prompts

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pders01/repo-mechanic/internal/models"
)

func testRepo() *models.RepositoryContext {
	return &models.RepositoryContext{
		Name:            "widgets",
		OriginReference: "https://github.com/acme/widgets",
		Kind:            models.KindGitHub,
		Files: []models.RepoFile{
			{Path: "main.go", Content: "package main"},
			{Path: "README.md", Content: "# Widgets"},
		},
	}
}

func TestPhaseName(t *testing.T) {
	tests := []struct {
		i, n int
		want string
	}{
		{1, 4, PhasePlanning},
		{2, 4, PhaseStructuralMapping},
		{3, 4, PhaseInteractionAnalysis},
		{4, 4, PhaseFinalSynthesis},
		{3, 6, PhaseInteractionAnalysis},
		{5, 6, PhaseInteractionAnalysis},
		{2, 2, PhaseFinalSynthesis},
		{1, 1, PhasePlanning},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PhaseName(tt.i, tt.n), "phase %d of %d", tt.i, tt.n)
	}
}

func TestFileContext(t *testing.T) {
	got := FileContext(testRepo())
	assert.Equal(t, "1. File Path: main.go\nContent: package main\n\n2. File Path: README.md\nContent: # Widgets", got)
}

func TestContextPrompt(t *testing.T) {
	history := []models.ChatMessage{models.UserMessage("what is this?"), models.AssistantMessage("a widget factory")}
	got := ContextPrompt(testRepo(), history, "how are widgets built?")

	assert.Contains(t, got, "<START_OF_CONTEXT>\n1. File Path: main.go")
	assert.Contains(t, got, "1.\nUser: what is this?\n2.\nYou: a widget factory")
	assert.True(t, strings.HasSuffix(got, "how are widgets built?\n<END_OF_USER_PROMPT>"))
}

func TestResearchPromptCarriesFindings(t *testing.T) {
	repo := testRepo()
	findings := "\n\nPhase 1 Results:\nplan"

	first := ResearchPrompt(repo, "trace the build", 1, 4, "")
	assert.True(t, strings.HasSuffix(first, "trace the build"))
	assert.Contains(t, first, "File Path: main.go")

	middle := ResearchPrompt(repo, "trace the build", 2, 4, findings)
	assert.Contains(t, middle, "Review: "+findings)
	assert.Contains(t, middle, "Continue research on: trace the build")

	final := ResearchPrompt(repo, "trace the build", 4, 4, findings)
	assert.Contains(t, final, "Synthesize all findings: "+findings)
}

func TestResearchSystem(t *testing.T) {
	repo := testRepo()
	assert.Contains(t, ResearchSystem(repo, 1, 4), "## Research Plan")
	assert.Contains(t, ResearchSystem(repo, 3, 4), "## Research Update 3")
	assert.Contains(t, ResearchSystem(repo, 4, 4), "## Final Conclusion")
	assert.Contains(t, ResearchSystem(repo, 2, 4), "https://github.com/acme/widgets")
}

func TestPersonaSystemIsDated(t *testing.T) {
	got := PersonaSystem(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, got, "**Generated 2026-03-14.**")
	assert.NotContains(t, got, "{{DATE}}")
	assert.Contains(t, got, BacklogHeading)
}

func TestSimpleChatSystem(t *testing.T) {
	got := SimpleChatSystem(testRepo())
	assert.Contains(t, got, "GitHub Repository: https://github.com/acme/widgets (widgets)")
	assert.Contains(t, got, UnifiedPersona)
}
