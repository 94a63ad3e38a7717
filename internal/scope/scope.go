// Package scope derives the file subset every model-facing operation sees.
package scope

import (
	"strings"

	"github.com/gobwas/glob"

	"github.com/pders01/repo-mechanic/internal/models"
)

// Excluded is a set of exact file paths removed from the active context.
type Excluded map[string]struct{}

// Exclusions builds an exclusion set from paths
func Exclusions(paths ...string) Excluded {
	set := make(Excluded, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}

// GlobExclusions builds an exclusion set from the paths of repo matching
// any of patterns. "*" stays within one path segment, "**" crosses them. A
// pattern that does not compile is matched as an exact path.
func GlobExclusions(repo *models.RepositoryContext, patterns ...string) Excluded {
	set := Excluded{}
	if repo == nil {
		return set
	}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		for _, f := range repo.Files {
			if (err == nil && g.Match(f.Path)) || (err != nil && f.Path == p) {
				set[f.Path] = struct{}{}
			}
		}
	}
	return set
}

// Merge adds every path of other to e and returns e
func (e Excluded) Merge(other Excluded) Excluded {
	for p := range other {
		e[p] = struct{}{}
	}
	return e
}

// Has reports whether path is excluded
func (e Excluded) Has(path string) bool {
	_, ok := e[path]
	return ok
}

// Apply returns a copy of repo holding only files whose path contains query
// (case-insensitive; empty matches all) and is not excluded. repo is never
// modified. A nil repo yields nil.
func Apply(repo *models.RepositoryContext, query string, excluded Excluded) *models.RepositoryContext {
	if repo == nil {
		return nil
	}

	q := strings.ToLower(query)
	files := make([]models.RepoFile, 0, len(repo.Files))
	for _, f := range repo.Files {
		if q != "" && !strings.Contains(strings.ToLower(f.Path), q) {
			continue
		}
		if excluded.Has(f.Path) {
			continue
		}
		files = append(files, f)
	}
	return repo.WithFiles(files)
}
