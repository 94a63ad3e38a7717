package cmd

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pders01/repo-mechanic/internal/analysis"
	"github.com/pders01/repo-mechanic/internal/config"
	"github.com/pders01/repo-mechanic/internal/github"
	"github.com/pders01/repo-mechanic/internal/llm"
	"github.com/pders01/repo-mechanic/internal/models"
	"github.com/pders01/repo-mechanic/internal/research"
	"github.com/pders01/repo-mechanic/internal/scope"
	"github.com/pders01/repo-mechanic/internal/session"
)

// sessionFs backs the session directory and outputFs the files commands
// read and write on request. Tests swap in memory filesystems.
var (
	sessionFs = afero.NewOsFs()
	outputFs  = afero.NewOsFs()
)

// newGenerator builds the language model backend. Tests replace it.
var newGenerator = func(ctx context.Context, model string) (llm.Generator, error) {
	return llm.New(ctx, llm.Config{
		Provider:     config.GetProvider(),
		APIKey:       config.GetAPIKey(),
		DefaultModel: model,
		OllamaURL:    config.GetOllamaURL(),
	}, logger)
}

func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

func openStore() *session.Store {
	return session.Open(sessionFs, filepath.Join(config.GetSessionDir(), session.SnapshotFile), logger)
}

func openSettings() *session.SettingsStore {
	return session.LoadSettings(sessionFs, filepath.Join(config.GetSessionDir(), session.SettingsFile), logger)
}

// selectedModel prefers the model chosen in settings over the configured one.
func selectedModel(settings session.Settings) string {
	if m := strings.TrimSpace(settings.SelectedModel); m != "" {
		return m
	}
	return config.GetModel()
}

func githubToken(settings session.Settings) string {
	if t := strings.TrimSpace(settings.GitHubToken); t != "" {
		return t
	}
	return config.GetGitHubToken()
}

func newIngestor(settings session.Settings) *github.Ingestor {
	client := github.NewClient(github.ClientOptions{
		APIURL:     config.GetGitHubAPIURL(),
		RawURL:     config.GetGitHubRawURL(),
		Token:      githubToken(settings),
		Timeout:    config.GetGitHubTimeout(),
		HTTPClient: &http.Client{Timeout: config.GetGitHubTimeout()},
		Logger:     logger,
	})
	return github.NewIngestor(client, config.IngestOptions(), logger)
}

// newAnalysis builds the generator for the selected model and wires it and
// the store into the analysis services.
func newAnalysis(ctx context.Context, store *session.Store, settings session.Settings) (*analysis.Service, llm.Generator, error) {
	model := selectedModel(settings)
	gen, err := newGenerator(ctx, model)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize model backend: %w", err)
	}
	svc := analysis.New(gen, store, model, logger)
	svc.DiagramConcurrency = config.GetDiagramConcurrency()
	return svc, gen, nil
}

// researchPhases is the configured phase count, or the default when unset
func researchPhases() int {
	if n := config.GetResearchPhases(); n > 0 {
		return n
	}
	return research.DefaultPhases
}

// scopeFlags are the context filter flags shared by every command that
// sends files to the model.
type scopeFlags struct {
	filter      string
	exclude     []string
	excludeGlob []string
}

func (f *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.filter, "filter", "", "Only include files whose path contains this text")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "Exclude these file paths (repeatable)")
	cmd.Flags().StringSliceVar(&f.excludeGlob, "exclude-glob", nil, "Exclude file paths matching these glob patterns, e.g. '**/*_test.go'")
}

// derive applies the flags to the installed repository.
func (f *scopeFlags) derive(store *session.Store) (*models.RepositoryContext, error) {
	repo := store.Repository()
	if repo == nil {
		return nil, fmt.Errorf("no repository ingested yet (run: repomech ingest <github-url>)")
	}
	excluded := scope.Exclusions(f.exclude...).Merge(scope.GlobExclusions(repo, f.excludeGlob...))
	derived := scope.Apply(repo, f.filter, excluded)
	if len(derived.Files) == 0 {
		return nil, analysis.ErrEmptyContext
	}
	return derived, nil
}
