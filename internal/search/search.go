// Package search ranks session history entries against a query using
// keyword relevance and, when an embedder is available, semantic similarity.
package search

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pders01/repo-mechanic/internal/embeddings"
	"github.com/pders01/repo-mechanic/internal/models"
)

// Entry is one history message addressed by mode and position.
type Entry struct {
	Mode    models.Mode
	Index   int
	Message models.ChatMessage
}

// Result is a scored entry
type Result struct {
	Entry
	Score         float64
	KeywordScore  int
	SemanticScore float64
	UsedSemantic  bool
}

// Options configures ranking. Without an Embedder only keywords are used.
type Options struct {
	Embedder       embeddings.Embedder
	Cache          *embeddings.Cache
	Model          string
	KeywordWeight  float64
	SemanticWeight float64
	Logger         *zap.Logger
}

// Entries flattens the histories of every mode in snap, in mode order.
func Entries(states models.ModeStates) []Entry {
	var out []Entry
	for _, m := range models.Modes() {
		for i, msg := range states[m].History {
			out = append(out, Entry{Mode: m, Index: i, Message: msg})
		}
	}
	return out
}

// KeywordScore scores msg by query word occurrences, with bonuses for
// words found in markdown headings and in the user's own questions.
func KeywordScore(queryWords []string, msg models.ChatMessage) int {
	text := strings.ToLower(msg.Content)
	headings := strings.ToLower(headingLines(msg.Content))

	score := 0
	for _, word := range queryWords {
		word = strings.ToLower(word)
		score += strings.Count(text, word) * 10

		if headings != "" && strings.Contains(headings, word) {
			score += 50
		}
		if msg.Role == models.RoleUser && strings.Contains(text, word) {
			score += 30
		}
	}
	return score
}

func headingLines(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Rank scores entries against query and returns the relevant ones, best
// first. A failing embedder degrades to keyword-only ranking.
func Rank(ctx context.Context, entries []Entry, query string, opts Options) []Result {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	words := strings.Fields(strings.ToLower(query))

	var queryVec []float64
	var vecs [][]float64
	if opts.Embedder != nil && len(entries) > 0 {
		texts := make([]string, 0, len(entries)+1)
		texts = append(texts, query)
		for _, e := range entries {
			texts = append(texts, e.Message.Content)
		}
		all, err := embeddings.Vectors(ctx, opts.Embedder, opts.Cache, opts.Model, texts)
		if err != nil {
			logger.Warn("semantic search unavailable, using keywords only", zap.Error(err))
		} else {
			queryVec, vecs = all[0], all[1:]
		}
	}

	var results []Result
	for i, e := range entries {
		r := Result{Entry: e, KeywordScore: KeywordScore(words, e.Message)}
		r.Score = float64(r.KeywordScore)

		if queryVec != nil {
			if sim, err := embeddings.CosineSimilarity(queryVec, vecs[i]); err == nil {
				r.SemanticScore = embeddings.Percent(sim)
				r.UsedSemantic = true
				// Keyword scores are unbounded; halve and cap them onto the semantic scale
				keyword := min(float64(r.KeywordScore)/2, 100)
				r.Score = opts.KeywordWeight*keyword + opts.SemanticWeight*r.SemanticScore
			}
		}

		if r.KeywordScore > 0 || (r.UsedSemantic && r.Score > 0) {
			results = append(results, r)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}
