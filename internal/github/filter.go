package github

import (
	"path"
	"strings"
)

const (
	// DefaultMaxFiles caps how many files one ingestion retrieves
	DefaultMaxFiles = 100
	// DefaultMaxFileSize is the largest decoded file kept, in bytes
	DefaultMaxFileSize = 200000
)

// DefaultIgnoreDirs are path segments that exclude a file anywhere in its path.
var DefaultIgnoreDirs = []string{
	"node_modules", ".git", "dist", "build", "vendor", "out", ".next", "__pycache__", "venv", "target",
}

// DefaultExtensions is the allow-list of source and text extensions.
var DefaultExtensions = []string{
	".ts", ".tsx", ".js", ".jsx", ".py", ".md", ".json", ".go", ".rs", ".cpp",
	".h", ".css", ".html", ".java", ".c", ".sh", ".yaml", ".yml",
}

// TreeEntry is one item of a recursive tree listing.
type TreeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size,omitempty"`
	SHA  string `json:"sha,omitempty"`
}

// FilterOptions configures FilterTree. Zero values fall back to the defaults.
type FilterOptions struct {
	IgnoreDirs []string
	Extensions []string
	MaxFiles   int
}

func (o FilterOptions) withDefaults() FilterOptions {
	if len(o.IgnoreDirs) == 0 {
		o.IgnoreDirs = DefaultIgnoreDirs
	}
	if len(o.Extensions) == 0 {
		o.Extensions = DefaultExtensions
	}
	if o.MaxFiles <= 0 {
		o.MaxFiles = DefaultMaxFiles
	}
	return o
}

// FilterTree selects the retrieval set from a flat listing. Only blobs are
// kept; paths with an ignored or hidden segment are dropped, as are
// extensions outside the allow-list. The result is a prefix of the
// qualifying entries in listing order, at most MaxFiles long.
func FilterTree(entries []TreeEntry, opts FilterOptions) []TreeEntry {
	opts = opts.withDefaults()

	ignore := toSet(opts.IgnoreDirs, false)
	allowed := toSet(normalizeExtensions(opts.Extensions), true)

	var selected []TreeEntry
	for _, e := range entries {
		if len(selected) >= opts.MaxFiles {
			break
		}
		if e.Type != "blob" {
			continue
		}
		if hasExcludedSegment(e.Path, ignore) {
			continue
		}
		if !allowed[strings.ToLower(path.Ext(e.Path))] {
			continue
		}
		selected = append(selected, e)
	}
	return selected
}

func hasExcludedSegment(p string, ignore map[string]bool) bool {
	for _, seg := range strings.Split(p, "/") {
		if ignore[seg] || strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

func toSet(values []string, lower bool) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if lower {
			v = strings.ToLower(v)
		}
		set[v] = true
	}
	return set
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}
