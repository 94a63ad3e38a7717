package analysis

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pders01/repo-mechanic/internal/models"
	"github.com/pders01/repo-mechanic/internal/prompts"
	"github.com/pders01/repo-mechanic/internal/wiki"
)

// GenerateWiki synthesizes the wiki outline of repo and stores it. Output
// that does not parse cleanly is stored as far as it was read, with
// defaults for everything missing. Only a failed model call is an error.
func (s *Service) GenerateWiki(ctx context.Context, repo *models.RepositoryContext) (*models.WikiStructure, error) {
	if err := checkContext(repo); err != nil {
		return nil, err
	}

	text, err := s.gen.Generate(ctx, prompts.WikiSystem, prompts.WikiPrompt(repo), s.model, nil)
	if err != nil {
		return nil, err
	}

	w, perr := wiki.Parse(text)
	if perr != nil {
		s.logger.Warn("wiki outline was cut short", zap.Int("pages", len(w.Pages)), zap.Error(perr))
	}

	if err := s.store.SetWiki(w); err != nil {
		return nil, err
	}
	return w, nil
}

// Diagram returns Mermaid source for text
func (s *Service) Diagram(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("nothing to diagram")
	}
	return s.gen.GenerateDiagram(ctx, text, s.model)
}

// PageSource is the text a page diagram is generated from
func PageSource(p models.WikiPage) string {
	src := p.Title + "\n\n" + p.Description
	if p.TechnicalBreakdown != "" {
		src += "\n\n" + p.TechnicalBreakdown
	}
	return src
}

// PageDiagrams generates one diagram per page, at most DiagramConcurrency
// at a time. Pages whose diagram fails are left out of the result; the
// first failure is returned alongside the diagrams that succeeded.
func (s *Service) PageDiagrams(ctx context.Context, pages []models.WikiPage) (map[string]string, error) {
	limit := s.DiagramConcurrency
	if limit <= 0 {
		limit = 1
	}

	var (
		mu       sync.Mutex
		diagrams = make(map[string]string, len(pages))
		g        errgroup.Group
	)
	g.SetLimit(limit)

	for _, p := range pages {
		g.Go(func() error {
			d, err := s.gen.GenerateDiagram(ctx, PageSource(p), s.model)
			if err != nil {
				s.logger.Debug("page diagram failed", zap.String("page", p.ID), zap.Error(err))
				return fmt.Errorf("page %s: %w", p.ID, err)
			}
			mu.Lock()
			diagrams[p.ID] = d
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	return diagrams, err
}
