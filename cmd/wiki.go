package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pders01/repo-mechanic/internal/models"
	"github.com/pders01/repo-mechanic/internal/session"
	"github.com/pders01/repo-mechanic/internal/wiki"
)

var (
	wikiScope scopeFlags

	wikiShowJSON bool
	wikiShowToon bool

	wikiPageJSON bool
	wikiPageToon bool

	wikiExportFormat   string
	wikiExportOutput   string
	wikiExportDiagrams bool
)

var wikiCmd = &cobra.Command{
	Use:   "wiki",
	Short: "Generate and browse the structural wiki",
	Long: `The wiki maps the repository into sections and pages. Each page names its
relevant files, related pages and a technical breakdown. References between
pages are soft: a page id that does not resolve is reported, never fatal.`,
}

var wikiGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Synthesize the wiki from the current context",
	Long: `Ask the model for a structural wiki of the files in context and store it
in the session, replacing any previous wiki.

Examples:
  repomech wiki generate
  repomech wiki generate --filter internal/`,
	Args: cobra.NoArgs,
	RunE: runWikiGenerate,
}

var wikiShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the table of contents",
	Args:  cobra.NoArgs,
	RunE:  runWikiShow,
}

var wikiPageCmd = &cobra.Command{
	Use:   "page <id>",
	Short: "Show one page and its related pages",
	Args:  cobra.ExactArgs(1),
	RunE:  runWikiPage,
}

var wikiExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the wiki as markdown, JSON or YAML",
	Long: `Write the wiki to a file (default: <title>-export.<ext>) or to stdout with
--output -.

With --diagrams a Mermaid diagram is generated for every page and embedded
in the markdown export.

Examples:
  repomech wiki export
  repomech wiki export --format yaml --output wiki.yaml
  repomech wiki export --diagrams --output -`,
	Args: cobra.NoArgs,
	RunE: runWikiExport,
}

func init() {
	rootCmd.AddCommand(wikiCmd)
	wikiCmd.AddCommand(wikiGenerateCmd, wikiShowCmd, wikiPageCmd, wikiExportCmd)

	wikiScope.register(wikiGenerateCmd)

	wikiShowCmd.Flags().BoolVar(&wikiShowJSON, "json", false, "Output as JSON")
	wikiShowCmd.Flags().BoolVar(&wikiShowToon, "toon", false, "Output in LLM-friendly toon format")

	wikiPageCmd.Flags().BoolVar(&wikiPageJSON, "json", false, "Output as JSON")
	wikiPageCmd.Flags().BoolVar(&wikiPageToon, "toon", false, "Output in LLM-friendly toon format")

	wikiExportCmd.Flags().StringVarP(&wikiExportFormat, "format", "f", wiki.FormatMarkdown, "Export format: md|json|yaml")
	wikiExportCmd.Flags().StringVarP(&wikiExportOutput, "output", "o", "", "Output file path, - for stdout")
	wikiExportCmd.Flags().BoolVar(&wikiExportDiagrams, "diagrams", false, "Generate a Mermaid diagram per page (markdown only)")
}

func runWikiGenerate(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	store := openStore()
	derived, err := wikiScope.derive(store)
	if err != nil {
		return err
	}

	svc, _, err := newAnalysis(ctx, store, openSettings().Get())
	if err != nil {
		return err
	}

	stop := startSpinner(fmt.Sprintf("Mapping %d files...", len(derived.Files)))
	w, err := svc.GenerateWiki(ctx, derived)
	stop()
	if err != nil {
		return fmt.Errorf("failed to generate wiki: %w", err)
	}

	successf("Generated %q: %d sections, %d pages", w.Title, len(w.Sections), len(w.Pages))
	printContents(w)
	return nil
}

func loadWiki(store *session.Store) (*models.WikiStructure, error) {
	w := store.Wiki()
	if w == nil {
		return nil, fmt.Errorf("no wiki generated yet (run: repomech wiki generate)")
	}
	return w, nil
}

type wikiContents struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Sections    []wikiSection `json:"sections"`
	Dangling    []string      `json:"dangling,omitempty"`
}

type wikiSection struct {
	ID    string         `json:"id"`
	Title string         `json:"title"`
	Pages []wikiPageLine `json:"pages"`
}

type wikiPageLine struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Importance string `json:"importance"`
}

func contents(w *models.WikiStructure) wikiContents {
	idx := wiki.NewIndex(w)
	out := wikiContents{Title: w.Title, Description: w.Description, Sections: []wikiSection{}, Dangling: idx.Dangling()}

	line := func(p models.WikiPage) wikiPageLine {
		return wikiPageLine{ID: p.ID, Title: p.Title, Importance: p.Importance}
	}
	for _, s := range w.Sections {
		sec := wikiSection{ID: s.ID, Title: s.Title, Pages: []wikiPageLine{}}
		for _, p := range idx.Resolve(s.PageIDs).Pages {
			sec.Pages = append(sec.Pages, line(p))
		}
		out.Sections = append(out.Sections, sec)
	}
	if loose := idx.Unsectioned(); len(loose) > 0 {
		sec := wikiSection{ID: "", Title: "Other pages", Pages: []wikiPageLine{}}
		for _, p := range loose {
			sec.Pages = append(sec.Pages, line(p))
		}
		out.Sections = append(out.Sections, sec)
	}
	return out
}

func printContents(w *models.WikiStructure) {
	c := contents(w)
	fmt.Println()
	header(c.Title)
	if c.Description != "" {
		fmt.Println(c.Description)
	}
	for _, s := range c.Sections {
		fmt.Printf("\n%s\n", s.Title)
		for _, p := range s.Pages {
			importance := ""
			if p.Importance != "" {
				importance = " [" + strings.ToUpper(p.Importance) + "]"
			}
			fmt.Printf("  %-20s %s%s\n", p.ID, p.Title, importance)
		}
	}
	if len(c.Dangling) > 0 {
		fmt.Println()
		warnf("unresolved page references: %s", strings.Join(c.Dangling, ", "))
	}
}

func runWikiShow(cmd *cobra.Command, args []string) error {
	w, err := loadWiki(openStore())
	if err != nil {
		return err
	}
	if done, err := printStructured(contents(w), wikiShowJSON, wikiShowToon); done {
		return err
	}
	printContents(w)
	return nil
}

type wikiPageView struct {
	Page       models.WikiPage   `json:"page"`
	Section    string            `json:"section,omitempty"`
	Related    []models.WikiPage `json:"related"`
	Unresolved []string          `json:"unresolved,omitempty"`
}

func runWikiPage(cmd *cobra.Command, args []string) error {
	w, err := loadWiki(openStore())
	if err != nil {
		return err
	}
	idx := wiki.NewIndex(w)

	page, ok := idx.Page(args[0])
	if !ok {
		return fmt.Errorf("no wiki page with id %q", args[0])
	}
	related, _ := idx.Related(page.ID)

	view := wikiPageView{Page: page, Related: related.Pages, Unresolved: related.Unresolved}
	if view.Related == nil {
		view.Related = []models.WikiPage{}
	}
	if sec, ok := idx.Section(page.ParentSection); ok {
		view.Section = sec.Title
	}

	if done, err := printStructured(view, wikiPageJSON, wikiPageToon); done {
		return err
	}

	renderMarkdown(wiki.PageMarkdown(page, ""))

	if view.Section != "" {
		fmt.Printf("Section: %s\n", view.Section)
	}
	if len(view.Related) > 0 {
		fmt.Println("Related pages:")
		for _, p := range view.Related {
			fmt.Printf("  %-20s %s\n", p.ID, p.Title)
		}
	}
	if len(view.Unresolved) > 0 {
		warnf("related pages not found: %s", strings.Join(view.Unresolved, ", "))
	}
	return nil
}

func runWikiExport(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	store := openStore()
	w, err := loadWiki(store)
	if err != nil {
		return err
	}

	var diagrams map[string]string
	if wikiExportDiagrams {
		svc, _, err := newAnalysis(ctx, store, openSettings().Get())
		if err != nil {
			return err
		}
		stop := startSpinner(fmt.Sprintf("Diagramming %d pages...", len(w.Pages)))
		diagrams, err = svc.PageDiagrams(ctx, w.Pages)
		stop()
		if err != nil {
			warnf("%d of %d diagrams failed: %v", len(w.Pages)-len(diagrams), len(w.Pages), err)
		}
	}

	data, err := wiki.Export(w, wikiExportFormat, diagrams)
	if err != nil {
		return err
	}
	return writeOutput(wikiExportOutput, wiki.Filename(w, wikiExportFormat), data)
}

// writeOutput writes data to path, to fallback when path is empty, or to
// stdout when path is "-".
func writeOutput(path, fallback string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if path == "" {
		path = fallback
	}
	if err := afero.WriteFile(outputFs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	successf("Wrote %s", path)
	return nil
}
