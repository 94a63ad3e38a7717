package wiki

import (
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pders01/repo-mechanic/internal/models"
)

// Export formats
const (
	FormatMarkdown = "md"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
)

// Export renders w in format. diagrams maps page ids to Mermaid source and
// is only used by the markdown format.
func Export(w *models.WikiStructure, format string, diagrams map[string]string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatMarkdown, "markdown":
		return []byte(Markdown(w, diagrams)), nil
	case FormatJSON:
		data, err := json.MarshalIndent(w, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode wiki: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML, "yml":
		data, err := yaml.Marshal(w)
		if err != nil {
			return nil, fmt.Errorf("failed to encode wiki: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown export format %q (must be md, json or yaml)", format)
	}
}

// Markdown renders the wiki as a single document with a table of contents.
func Markdown(w *models.WikiStructure, diagrams map[string]string) string {
	idx := NewIndex(w)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n\n", w.Title, w.Description)

	if len(w.Sections) > 0 {
		b.WriteString("## Table of Contents\n\n")
		for _, sec := range w.Sections {
			fmt.Fprintf(&b, "### %s\n", sec.Title)
			for _, p := range idx.Resolve(sec.PageIDs).Pages {
				fmt.Fprintf(&b, "- [%s](#%s)\n", p.Title, p.ID)
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("---\n\n")

	for _, page := range w.Pages {
		b.WriteString(PageMarkdown(page, diagrams[page.ID]))
	}
	return b.String()
}

// PageMarkdown renders a single page. diagram is optional Mermaid source.
func PageMarkdown(page models.WikiPage, diagram string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<a name=\"%s\"></a>\n# %s\n\n", page.ID, page.Title)
	fmt.Fprintf(&b, "**Importance:** %s\n\n", strings.ToUpper(page.Importance))

	b.WriteString("**Context Files:**\n")
	for _, f := range page.RelevantFiles {
		fmt.Fprintf(&b, "- `%s`\n", f)
	}
	fmt.Fprintf(&b, "\n### Description\n%s\n\n", page.Description)

	if page.TechnicalBreakdown != "" {
		fmt.Fprintf(&b, "### Technical Breakdown\n%s\n\n", page.TechnicalBreakdown)
	}
	if len(page.CodeSamples) > 0 {
		lang := fenceLanguage(page.RelevantFiles)
		b.WriteString("### Key Functional Mechanisms\n\n")
		for _, sample := range page.CodeSamples {
			fmt.Fprintf(&b, "```%s\n%s\n```\n\n", lang, sample)
		}
	}
	if diagram != "" {
		fmt.Fprintf(&b, "### Mechanism Diagram\n\n```mermaid\n%s\n```\n\n", diagram)
	}
	if len(page.RelatedPages) > 0 {
		fmt.Fprintf(&b, "**Related Topics:** %s\n\n", strings.Join(page.RelatedPages, ", "))
	}
	b.WriteString("---\n\n")
	return b.String()
}

var fenceLanguages = map[string]string{
	".go": "go", ".ts": "typescript", ".tsx": "tsx", ".js": "javascript", ".jsx": "jsx",
	".py": "python", ".rs": "rust", ".java": "java", ".c": "c", ".h": "c", ".cpp": "cpp",
	".css": "css", ".html": "html", ".sh": "bash", ".json": "json", ".yaml": "yaml", ".yml": "yaml",
}

func fenceLanguage(files []string) string {
	for _, f := range files {
		if lang, ok := fenceLanguages[strings.ToLower(path.Ext(f))]; ok {
			return lang
		}
	}
	return ""
}

var nonSlug = regexp.MustCompile(`\s+`)

// Filename suggests a file name for an export of w in format.
func Filename(w *models.WikiStructure, format string) string {
	if format == "" || format == "markdown" {
		format = FormatMarkdown
	}
	return nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(w.Title)), "-") + "-export." + format
}
