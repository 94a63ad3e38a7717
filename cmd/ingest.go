package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pders01/repo-mechanic/internal/config"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <github-url>",
	Short: "Pull a repository snapshot into the session",
	Long: `Discover a GitHub repository's file tree, filter it to relevant text files
and retrieve their contents into the local session.

Accepted references:
  github.com/<owner>/<repo>
  https://github.com/<owner>/<repo>/tree/<branch>
  https://github.com/<owner>/<repo>/blob/<branch>/<path>

Only files with an allowed extension outside ignored directories are kept,
capped at ingest.max_files. A successful ingestion replaces the repository,
clears the wiki and resets every mode's history. A failed one changes nothing.

Examples:
  repomech ingest github.com/spf13/cobra
  repomech ingest https://github.com/spf13/viper/tree/master`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	store := openStore()
	settings := openSettings().Get()

	ingestor := newIngestor(settings)
	if githubToken(settings) == "" {
		logger.Debug("ingesting without a GitHub token; rate limits are low")
	}

	stop := startSpinner("Synchronizing repository...")
	repo, err := ingestor.Ingest(ctx, args[0])
	stop()
	if err != nil {
		return err
	}

	if err := store.InstallRepository(repo); err != nil {
		return fmt.Errorf("failed to install repository: %w", err)
	}

	successf("Ingested %s", repo.Name)
	fmt.Printf("  Source: %s\n", repo.OriginReference)
	fmt.Printf("  Files:  %d (max %d)\n", len(repo.Files), config.GetMaxFiles())
	fmt.Printf("  Size:   %s\n", formatBytes(repo.TotalBytes()))
	fmt.Println()
	fmt.Println(dimStyle.Render("  Use 'repomech files' to review the context, 'repomech wiki generate' to map it"))

	return nil
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
