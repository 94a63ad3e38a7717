package github

import (
	"context"
	"errors"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/pders01/repo-mechanic/internal/models"
)

// contentSource is the pair of channels a Retriever tries in order.
type contentSource interface {
	Contents(ctx context.Context, owner, repo, filePath, ref string) (string, error)
	Raw(ctx context.Context, owner, repo, ref, filePath string, limit int) (string, error)
}

// Retriever fetches file contents for a filtered listing.
type Retriever struct {
	source      contentSource
	maxFileSize int
	logger      *zap.Logger
}

// NewRetriever creates a retriever. maxFileSize <= 0 uses DefaultMaxFileSize.
func NewRetriever(source contentSource, maxFileSize int, logger *zap.Logger) *Retriever {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{source: source, maxFileSize: maxFileSize, logger: logger}
}

// Retrieve fetches every entry concurrently and waits for all of them.
// Files that fail on both channels or exceed the size cap are dropped.
// The returned files keep the order of entries.
func (r *Retriever) Retrieve(ctx context.Context, loc Location, ref string, entries []TreeEntry) []models.RepoFile {
	results := make([]*models.RepoFile, len(entries))

	var wg conc.WaitGroup
	for i, entry := range entries {
		wg.Go(func() {
			results[i] = r.fetchOne(ctx, loc, ref, entry)
		})
	}
	wg.Wait()

	files := make([]models.RepoFile, 0, len(entries))
	for _, f := range results {
		if f != nil {
			files = append(files, *f)
		}
	}
	return files
}

func (r *Retriever) fetchOne(ctx context.Context, loc Location, ref string, entry TreeEntry) *models.RepoFile {
	log := r.logger.With(zap.String("path", entry.Path))

	if entry.Size > int64(r.maxFileSize) {
		log.Debug("skipping oversized file", zap.Int64("size", entry.Size))
		return nil
	}

	content, err := r.source.Contents(ctx, loc.Owner, loc.Repo, entry.Path, ref)
	if err == nil {
		if len(content) > r.maxFileSize {
			log.Debug("dropping oversized file", zap.Int("size", len(content)))
			return nil
		}
		return &models.RepoFile{Path: entry.Path, Content: content}
	}
	log.Debug("contents api failed, trying raw", zap.Error(err))

	content, err = r.source.Raw(ctx, loc.Owner, loc.Repo, ref, entry.Path, r.maxFileSize)
	if err != nil {
		log.Debug("dropping file", zap.Bool("oversized", errors.Is(err, errTooLarge)), zap.Error(err))
		return nil
	}
	return &models.RepoFile{Path: entry.Path, Content: content}
}
