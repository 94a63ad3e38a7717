package cmd

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pders01/repo-mechanic/internal/models"
	"github.com/pders01/repo-mechanic/internal/session"
)

var (
	exportOutput       string
	exportIncludeToken bool

	importKeepSettings bool

	resetForce bool
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Export, import or reset the session",
	Long: `The session holds the repository, the wiki and every mode's history. It is
saved after every change and restored on the next run.`,
}

var sessionExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the whole session to a JSON archive",
	Long: `Write the repository, wiki, active mode, every mode's history and the
settings to a single archive. The GitHub token is left out unless
--include-token is given.

Examples:
  repomech session export
  repomech session export --output backup.json`,
	Args: cobra.NoArgs,
	RunE: runSessionExport,
}

var sessionImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the session with an archive",
	Long: `Validate an archive and replace the whole session with it. Archives
written by older versions are accepted: a single chat history is restored
into the archive's mode.

A malformed archive changes nothing.

Example:
  repomech session import backup.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionImport,
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the repository, wiki and every history",
	Long: `Show what would be discarded. With --force the session is cleared and a
new session id is assigned. Settings are kept.

Example:
  repomech session reset           # Show what would be discarded
  repomech session reset --force   # Actually reset`,
	Args: cobra.NoArgs,
	RunE: runSessionReset,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionExportCmd, sessionImportCmd, sessionResetCmd)

	sessionExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path, - for stdout (default: repomech-session-<repo>-<date>.json)")
	sessionExportCmd.Flags().BoolVar(&exportIncludeToken, "include-token", false, "Include the GitHub token in the archive")

	sessionImportCmd.Flags().BoolVar(&importKeepSettings, "keep-settings", false, "Ignore the settings stored in the archive")

	sessionResetCmd.Flags().BoolVar(&resetForce, "force", false, "Actually reset the session")
}

func runSessionExport(cmd *cobra.Command, args []string) error {
	snap := openStore().Snapshot()
	settings := openSettings().Get()
	if !exportIncludeToken {
		settings = settings.Redacted()
	}

	var buf bytes.Buffer
	if err := session.Export(&buf, snap, settings); err != nil {
		return err
	}

	name := "empty"
	if snap.RepositoryContext != nil && snap.RepositoryContext.Name != "" {
		name = strings.ReplaceAll(snap.RepositoryContext.Name, "/", "-")
	}
	fallback := fmt.Sprintf("repomech-session-%s-%s.json", name, time.Now().Format("2006-01-02"))
	return writeOutput(exportOutput, fallback, buf.Bytes())
}

func runSessionImport(cmd *cobra.Command, args []string) error {
	data, err := afero.ReadFile(outputFs, args[0])
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}

	imported, err := session.ParseArchive(data)
	if err != nil {
		return err
	}

	store := openStore()
	if err := store.Restore(imported.Snapshot); err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}

	if imported.Settings != nil && !importKeepSettings {
		st := openSettings()
		next := *imported.Settings
		// Redacted archives keep the local token
		if next.GitHubToken == "" {
			next.GitHubToken = st.Get().GitHubToken
		}
		if err := st.Save(next); err != nil {
			warnf("session restored but settings were not: %v", err)
		}
	}

	snap := store.Snapshot()
	successf("Imported %s archive", imported.Shape)
	if snap.RepositoryContext != nil {
		fmt.Printf("  Repository: %s (%d files)\n", snap.RepositoryContext.Name, len(snap.RepositoryContext.Files))
	}
	fmt.Printf("  Mode:       %s\n", snap.ActiveMode)
	entries := 0
	for _, st := range snap.ModeStates {
		entries += len(st.History)
	}
	fmt.Printf("  History:    %d entries\n", entries)
	return nil
}

func runSessionReset(cmd *cobra.Command, args []string) error {
	store := openStore()
	snap := store.Snapshot()

	fmt.Printf("Session %s\n\n", snap.ID)
	if snap.RepositoryContext != nil {
		fmt.Printf("  Repository: %s (%d files)\n", snap.RepositoryContext.Name, len(snap.RepositoryContext.Files))
	}
	if snap.WikiStructure != nil {
		fmt.Printf("  Wiki:       %d pages\n", len(snap.WikiStructure.Pages))
	}
	for _, m := range models.Modes() {
		if n := len(snap.ModeStates[m].History); n > 0 {
			fmt.Printf("  %-14s %d entries\n", m.String()+":", n)
		}
	}

	if !resetForce {
		fmt.Println("\nThis is a dry run. Use --force to actually reset the session.")
		return nil
	}

	if err := store.Reset(); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	successf("Session reset (new id %s)", store.ID())
	return nil
}
