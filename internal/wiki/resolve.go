package wiki

import "github.com/pders01/repo-mechanic/internal/models"

// Resolution is the outcome of following a list of soft references.
type Resolution struct {
	Pages      []models.WikiPage
	Unresolved []string
}

// Index resolves page ids of one structure.
type Index struct {
	wiki     *models.WikiStructure
	pages    map[string]int
	sections map[string]int
}

// NewIndex indexes w. A nil structure resolves nothing.
func NewIndex(w *models.WikiStructure) *Index {
	if w == nil {
		w = &models.WikiStructure{}
	}
	idx := &Index{wiki: w, pages: map[string]int{}, sections: map[string]int{}}
	for i, p := range w.Pages {
		if _, ok := idx.pages[p.ID]; !ok {
			idx.pages[p.ID] = i
		}
	}
	for i, s := range w.Sections {
		if _, ok := idx.sections[s.ID]; !ok {
			idx.sections[s.ID] = i
		}
	}
	return idx
}

// Page returns the page with id
func (idx *Index) Page(id string) (models.WikiPage, bool) {
	i, ok := idx.pages[id]
	if !ok {
		return models.WikiPage{}, false
	}
	return idx.wiki.Pages[i], true
}

// Section returns the section with id
func (idx *Index) Section(id string) (models.WikiSection, bool) {
	i, ok := idx.sections[id]
	if !ok {
		return models.WikiSection{}, false
	}
	return idx.wiki.Sections[i], true
}

// Resolve follows ids in order.
func (idx *Index) Resolve(ids []string) Resolution {
	var r Resolution
	for _, id := range ids {
		if p, ok := idx.Page(id); ok {
			r.Pages = append(r.Pages, p)
		} else {
			r.Unresolved = append(r.Unresolved, id)
		}
	}
	return r
}

// SectionPages resolves the pages listed by a section. ok is false when
// the section itself does not exist.
func (idx *Index) SectionPages(sectionID string) (Resolution, bool) {
	s, ok := idx.Section(sectionID)
	if !ok {
		return Resolution{}, false
	}
	return idx.Resolve(s.PageIDs), true
}

// Related resolves the related pages of a page.
func (idx *Index) Related(pageID string) (Resolution, bool) {
	p, ok := idx.Page(pageID)
	if !ok {
		return Resolution{}, false
	}
	return idx.Resolve(p.RelatedPages), true
}

// Unsectioned returns pages no section lists, in page order.
func (idx *Index) Unsectioned() []models.WikiPage {
	listed := map[string]bool{}
	for _, s := range idx.wiki.Sections {
		for _, id := range s.PageIDs {
			listed[id] = true
		}
	}
	var out []models.WikiPage
	for _, p := range idx.wiki.Pages {
		if !listed[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// Dangling lists every reference in the structure that does not resolve,
// each once, in document order.
func (idx *Index) Dangling() []string {
	seen := map[string]bool{}
	var out []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}

	for _, s := range idx.wiki.Sections {
		for _, id := range s.PageIDs {
			if _, ok := idx.pages[id]; !ok {
				add(id)
			}
		}
	}
	for _, p := range idx.wiki.Pages {
		for _, id := range p.RelatedPages {
			if _, ok := idx.pages[id]; !ok {
				add(id)
			}
		}
		if p.ParentSection != "" {
			if _, ok := idx.sections[p.ParentSection]; !ok {
				add(p.ParentSection)
			}
		}
	}
	return out
}
