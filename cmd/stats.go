package cmd

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/repo-mechanic/internal/models"
	"github.com/pders01/repo-mechanic/internal/research"
	"github.com/pders01/repo-mechanic/internal/wiki"
)

var (
	statsJSON bool
	statsToon bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show session statistics",
	Long: `Display statistics about the current session including:
  - Repository size and file count
  - File types in context
  - History size and progress per mode
  - Wiki coverage

Examples:
  repomech stats
  repomech stats --json
  repomech stats --toon`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
	statsCmd.Flags().BoolVar(&statsToon, "toon", false, "Output in LLM-friendly toon format")
}

type sessionStats struct {
	SessionID    string      `json:"session_id"`
	UpdatedAt    *time.Time  `json:"updated_at,omitempty"`
	ActiveMode   string      `json:"active_mode"`
	Repository   string      `json:"repository,omitempty"`
	Source       string      `json:"source,omitempty"`
	Files        int         `json:"files"`
	Bytes        int         `json:"bytes"`
	TopTypes     []typeStat  `json:"top_types"`
	Modes        []modeStats `json:"modes"`
	WikiSections int         `json:"wiki_sections"`
	WikiPages    int         `json:"wiki_pages"`
	Dangling     int         `json:"wiki_dangling_refs"`
}

type typeStat struct {
	Extension string `json:"extension"`
	Count     int    `json:"count"`
}

type modeStats struct {
	Mode     string `json:"mode"`
	Entries  int    `json:"entries"`
	User     int    `json:"user"`
	Progress int    `json:"progress"`
	Complete bool   `json:"complete,omitempty"`
}

func collectStats(snap models.Snapshot, phases int) sessionStats {
	stats := sessionStats{
		SessionID:  snap.ID,
		ActiveMode: snap.ActiveMode.String(),
		TopTypes:   []typeStat{},
		Modes:      []modeStats{},
	}
	if !snap.Timestamp.IsZero() {
		t := snap.Timestamp
		stats.UpdatedAt = &t
	}

	if repo := snap.RepositoryContext; repo != nil {
		stats.Repository = repo.Name
		stats.Source = repo.OriginReference
		stats.Files = len(repo.Files)
		stats.Bytes = repo.TotalBytes()

		byType := map[string]int{}
		for _, f := range repo.Files {
			ext := strings.ToLower(path.Ext(f.Path))
			if ext == "" {
				ext = path.Base(f.Path)
			}
			byType[ext]++
		}
		for ext, count := range byType {
			stats.TopTypes = append(stats.TopTypes, typeStat{Extension: ext, Count: count})
		}
		sort.Slice(stats.TopTypes, func(i, j int) bool {
			if stats.TopTypes[i].Count != stats.TopTypes[j].Count {
				return stats.TopTypes[i].Count > stats.TopTypes[j].Count
			}
			return stats.TopTypes[i].Extension < stats.TopTypes[j].Extension
		})
	}

	for _, m := range models.Modes() {
		st := snap.ModeStates[m]
		ms := modeStats{Mode: m.String(), Entries: len(st.History), Progress: st.Progress}
		for _, msg := range st.History {
			if msg.Role == models.RoleUser {
				ms.User++
			}
		}
		if m == models.ModeResearch {
			ms.Complete = research.Complete(st.History, phases)
		}
		stats.Modes = append(stats.Modes, ms)
	}

	if w := snap.WikiStructure; w != nil {
		stats.WikiSections = len(w.Sections)
		stats.WikiPages = len(w.Pages)
		stats.Dangling = len(wiki.NewIndex(w).Dangling())
	}
	return stats
}

func runStats(cmd *cobra.Command, args []string) error {
	stats := collectStats(openStore().Snapshot(), researchPhases())

	if done, err := printStructured(stats, statsJSON, statsToon); done {
		return err
	}

	header("Session Statistics")
	fmt.Println("━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	fmt.Printf("Session:     %s\n", stats.SessionID)
	if stats.UpdatedAt != nil {
		fmt.Printf("Updated:     %s\n", stats.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Printf("Active mode: %s\n", stats.ActiveMode)
	fmt.Println()

	if stats.Repository == "" {
		fmt.Println("No repository ingested")
	} else {
		fmt.Printf("Repository:  %s\n", stats.Repository)
		fmt.Printf("Source:      %s\n", stats.Source)
		fmt.Printf("Files:       %d (%s)\n", stats.Files, formatBytes(stats.Bytes))
		fmt.Println()

		fmt.Println("File Types:")
		for i, t := range stats.TopTypes {
			if i >= 10 {
				fmt.Printf("  ... and %d more\n", len(stats.TopTypes)-10)
				break
			}
			percentage := float64(t.Count) / float64(stats.Files) * 100
			fmt.Printf("  %-15s %3d  (%.1f%%)\n", t.Extension, t.Count, percentage)
		}
	}
	fmt.Println()

	fmt.Println("By Mode:")
	for _, m := range stats.Modes {
		fmt.Printf("  %-15s %3d entries  %3d from you", m.Mode, m.Entries, m.User)
		if m.Mode == models.ModeResearch.String() {
			status := "incomplete"
			if m.Complete {
				status = "complete"
			}
			fmt.Printf("  phase %d (%s)", m.Progress, status)
		}
		fmt.Println()
	}
	fmt.Println()

	fmt.Println("Wiki:")
	if stats.WikiPages == 0 && stats.WikiSections == 0 {
		fmt.Println("  not generated")
	} else {
		fmt.Printf("  %d sections, %d pages", stats.WikiSections, stats.WikiPages)
		if stats.Dangling > 0 {
			fmt.Printf(", %d unresolved references", stats.Dangling)
		}
		fmt.Println()
	}
	return nil
}
