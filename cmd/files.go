package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pders01/repo-mechanic/internal/analysis"
)

var (
	filesScope scopeFlags
	filesJSON  bool
	filesToon  bool
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the files in the current analysis context",
	Long: `List the ingested files that pass the context filter.

Every command that sends files to the model accepts the same --filter and
--exclude flags, so this shows exactly what the model will see.

Examples:
  repomech files
  repomech files --filter internal/
  repomech files --filter .go --exclude main.go --json`,
	RunE: runFiles,
}

func init() {
	rootCmd.AddCommand(filesCmd)

	filesScope.register(filesCmd)
	filesCmd.Flags().BoolVar(&filesJSON, "json", false, "Output as JSON")
	filesCmd.Flags().BoolVar(&filesToon, "toon", false, "Output in LLM-friendly toon format")
}

type fileEntry struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

type fileListing struct {
	Repository string      `json:"repository"`
	Filter     string      `json:"filter,omitempty"`
	Total      int         `json:"total"`
	Selected   int         `json:"selected"`
	Files      []fileEntry `json:"files"`
}

func runFiles(cmd *cobra.Command, args []string) error {
	store := openStore()
	derived, err := filesScope.derive(store)
	if err != nil && !errors.Is(err, analysis.ErrEmptyContext) {
		return err
	}

	listing := fileListing{
		Repository: store.Repository().Name,
		Filter:     filesScope.filter,
		Total:      len(store.Repository().Files),
		Files:      []fileEntry{},
	}
	if derived != nil {
		for _, f := range derived.Files {
			listing.Files = append(listing.Files, fileEntry{Path: f.Path, Bytes: len(f.Content)})
		}
	}
	listing.Selected = len(listing.Files)

	if done, err := printStructured(listing, filesJSON, filesToon); done {
		return err
	}

	header(fmt.Sprintf("%s: %d of %d files in context", listing.Repository, listing.Selected, listing.Total))
	if listing.Selected == 0 {
		warnf("no files match the current filter")
		return nil
	}
	for _, f := range listing.Files {
		fmt.Printf("  %-60s %10s\n", f.Path, formatBytes(f.Bytes))
	}
	return nil
}
