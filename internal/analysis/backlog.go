package analysis

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pders01/repo-mechanic/internal/models"
	"github.com/pders01/repo-mechanic/internal/prompts"
)

var backlogHeader = regexp.MustCompile(`(?i)### .*` + regexp.QuoteMeta(prompts.BacklogHeading))

// LatestBacklog returns the sanitized backlog of the most recent persona
// reply that has one, starting at its backlog heading.
func LatestBacklog(history []models.ChatMessage) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.Role != models.RoleAssistant {
			continue
		}
		if !strings.Contains(m.Content, prompts.BacklogHeading) && !strings.Contains(m.Content, "📗") {
			continue
		}
		if loc := backlogHeader.FindStringIndex(m.Content); loc != nil {
			return m.Content[loc[0]:], true
		}
		return m.Content, true
	}
	return "", false
}

// BacklogDocument wraps a backlog as a standalone markdown document.
func BacklogDocument(repoName, backlog string, now time.Time) string {
	return fmt.Sprintf("# Sanitized Backlog - %s\n\n*Generated via repomech (backlog persona)*\n*Timestamp: %s*\n\n---\n\n%s\n",
		repoName, now.Format("2006-01-02 15:04:05"), strings.TrimSpace(backlog))
}

// MessageDocument wraps a single history entry as a markdown document.
func MessageDocument(m models.ChatMessage, index int, now time.Time) string {
	return fmt.Sprintf("---\nSystem: repomech analysis\nTimestamp: %s\nEntry: %d\nRole: %s\n---\n\n%s\n",
		now.Format("2006-01-02 15:04:05"), index, m.Role, strings.TrimSpace(m.Content))
}
