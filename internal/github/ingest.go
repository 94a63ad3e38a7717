package github

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pders01/repo-mechanic/internal/models"
)

// IngestOptions bounds what a single ingestion retrieves.
type IngestOptions struct {
	Filter      FilterOptions
	MaxFileSize int
}

// Ingestor turns a repository reference into a RepositoryContext.
type Ingestor struct {
	client    *Client
	retriever *Retriever
	filter    FilterOptions
	logger    *zap.Logger
}

// NewIngestor creates an ingestor backed by client
func NewIngestor(client *Client, opts IngestOptions, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		client:    client,
		retriever: NewRetriever(client, opts.MaxFileSize, logger),
		filter:    opts.Filter,
		logger:    logger,
	}
}

// Ingest resolves ref, lists its tree once, filters it and retrieves the
// selected files. Any returned error is terminal; no partial context is
// produced.
func (i *Ingestor) Ingest(ctx context.Context, ref string) (*models.RepositoryContext, error) {
	loc, err := ParseReference(ref)
	if err != nil {
		return nil, err
	}
	log := i.logger.With(zap.String("repo", loc.FullName()))

	branch := loc.Branch
	if branch == "" {
		branch, err = i.client.DefaultBranch(ctx, loc.Owner, loc.Repo)
		if err != nil {
			return nil, classifyMetadataError(err)
		}
		log.Debug("resolved default branch", zap.String("branch", branch))
	}

	tree, err := i.client.Tree(ctx, loc.Owner, loc.Repo, branch)
	if err != nil {
		return nil, fmt.Errorf("%w: branch '%s' might not exist: %v", ErrBranchOrTreeNotFound, branch, err)
	}
	if tree.Truncated {
		log.Warn("tree listing was truncated by github", zap.Int("entries", len(tree.Entries)))
	}

	selected := FilterTree(tree.Entries, i.filter)
	log.Info("retrieving files",
		zap.String("branch", branch),
		zap.Int("listed", len(tree.Entries)),
		zap.Int("selected", len(selected)))

	files := i.retriever.Retrieve(ctx, loc, branch, selected)
	if dropped := len(selected) - len(files); dropped > 0 {
		log.Warn("some files could not be retrieved", zap.Int("dropped", dropped))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: branch '%s'", ErrEmptyRepository, branch)
	}

	return &models.RepositoryContext{
		Name:            loc.Repo,
		OriginReference: ref,
		Kind:            models.KindGitHub,
		Files:           files,
	}, nil
}
