package models

// RepoFile is a single retrieved file. Path is unique within a RepositoryContext.
type RepoFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// RepositoryContext is the immutable result of one successful ingestion.
// It is replaced wholesale on re-ingestion and never mutated in place.
type RepositoryContext struct {
	Name            string     `json:"name"`
	OriginReference string     `json:"originReference"`
	Kind            string     `json:"kind"`
	Files           []RepoFile `json:"files"`
}

// KindGitHub is the kind recorded for repositories ingested from GitHub.
const KindGitHub = "GitHub Repository"

// WithFiles returns a copy of the context carrying the given files.
func (r *RepositoryContext) WithFiles(files []RepoFile) *RepositoryContext {
	return &RepositoryContext{
		Name:            r.Name,
		OriginReference: r.OriginReference,
		Kind:            r.Kind,
		Files:           files,
	}
}

// Paths returns the file paths in iteration order.
func (r *RepositoryContext) Paths() []string {
	if r == nil {
		return nil
	}
	paths := make([]string, len(r.Files))
	for i, f := range r.Files {
		paths[i] = f.Path
	}
	return paths
}

// TotalBytes returns the combined content size of all files.
func (r *RepositoryContext) TotalBytes() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, f := range r.Files {
		total += len(f.Content)
	}
	return total
}
