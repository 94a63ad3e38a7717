package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pders01/repo-mechanic/internal/config"
	"github.com/pders01/repo-mechanic/internal/embeddings"
	"github.com/pders01/repo-mechanic/internal/llm"
	"github.com/pders01/repo-mechanic/internal/models"
	"github.com/pders01/repo-mechanic/internal/search"
)

var (
	searchMode  string
	searchLimit int
	searchJSON  bool
	searchToon  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search every mode's history using hybrid keyword and semantic search",
	Long: `Search the conversation history of every mode.

Combines keyword matching with semantic similarity when an Ollama server
with the embedding model is reachable. Embeddings are cached in the session
directory, so repeated searches only embed new entries.

Search modes:
  - Keyword only: when embeddings are disabled or Ollama is not running
  - Hybrid: keyword (search.keyword_weight) + semantic (search.semantic_weight)

Examples:
  repomech search "rate limit"
  repomech search --mode deep_research "retry"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchMode, "mode", "", "Only search this mode's history")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum number of results (0 for all)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output as JSON")
	searchCmd.Flags().BoolVar(&searchToon, "toon", false, "Output in LLM-friendly toon format")
}

type searchHit struct {
	Mode          string  `json:"mode"`
	Entry         int     `json:"entry"`
	Role          string  `json:"role"`
	Score         float64 `json:"score"`
	KeywordScore  int     `json:"keyword_score"`
	SemanticScore float64 `json:"semantic_score,omitempty"`
	Excerpt       string  `json:"excerpt"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	query := strings.Join(args, " ")
	store := openStore()

	entries := search.Entries(store.Snapshot().ModeStates)
	if searchMode != "" {
		mode, err := models.ParseMode(searchMode)
		if err != nil {
			return err
		}
		filtered := entries[:0]
		for _, e := range entries {
			if e.Mode == mode {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if len(entries) == 0 {
		fmt.Println("No history to search")
		return nil
	}

	opts := searchOptions(ctx)
	structured := searchJSON || searchToon
	if !structured {
		if opts.Embedder != nil {
			fmt.Println(dimStyle.Render("Using hybrid search (keyword + semantic)"))
		} else {
			fmt.Println(dimStyle.Render("Using keyword search only"))
		}
	}

	results := search.Rank(ctx, entries, query, opts)
	if searchLimit > 0 && len(results) > searchLimit {
		results = results[:searchLimit]
	}

	hits := make([]searchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, searchHit{
			Mode:          r.Mode.String(),
			Entry:         r.Index,
			Role:          string(r.Message.Role),
			Score:         r.Score,
			KeywordScore:  r.KeywordScore,
			SemanticScore: r.SemanticScore,
			Excerpt:       excerpt(r.Message.Content, 120),
		})
	}

	if done, err := printStructured(hits, searchJSON, searchToon); done {
		return err
	}

	if len(hits) == 0 {
		fmt.Println("No history entries match the search query")
		return nil
	}

	fmt.Printf("\nFound %d matching entr%s:\n\n", len(hits), plural(len(hits), "y", "ies"))
	for i, r := range results[:len(hits)] {
		scoreDisplay := fmt.Sprintf("%.1f", r.Score)
		if r.UsedSemantic {
			scoreDisplay += fmt.Sprintf(" (keyword: %d, semantic: %.1f%%)", r.KeywordScore, r.SemanticScore)
		} else {
			scoreDisplay += " (keyword only)"
		}
		fmt.Printf("%d. %s #%d [score: %s]\n", i+1, r.Mode, r.Index, scoreDisplay)
		fmt.Printf("   Role: %s\n", r.Message.Role)
		if r.Message.PhaseNumber > 0 {
			fmt.Printf("   Phase: %d\n", r.Message.PhaseNumber)
		}
		fmt.Printf("   %s\n\n", hits[i].Excerpt)
	}
	return nil
}

// searchOptions enables semantic ranking when embeddings are configured and
// the Ollama server answers.
func searchOptions(ctx context.Context) search.Options {
	opts := search.Options{
		Model:          config.GetEmbeddingModel(),
		KeywordWeight:  config.GetKeywordWeight(),
		SemanticWeight: config.GetSemanticWeight(),
		Logger:         logger,
	}
	if !config.GetEmbeddingsEnabled() || !llm.IsAvailable(config.GetOllamaURL()) {
		return opts
	}

	client, err := llm.NewOllama(config.GetOllamaURL(), "", nil, logger)
	if err != nil {
		logger.Sugar().Debugf("embedding client unavailable: %v", err)
		return opts
	}
	if err := client.CheckModel(ctx, opts.Model); err != nil {
		logger.Sugar().Debugf("embedding model unavailable: %v", err)
		return opts
	}
	opts.Embedder = client
	opts.Cache = embeddings.NewCache(sessionFs, filepath.Join(config.GetSessionDir(), "embeddings"), logger)
	return opts
}

// excerpt returns the first line-collapsed n runes of s
func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
