package models

// WikiSection groups pages. PageIDs are soft references to WikiPage.ID.
type WikiSection struct {
	ID      string   `json:"id" yaml:"id"`
	Title   string   `json:"title" yaml:"title"`
	PageIDs []string `json:"pageIds" yaml:"page_ids"`
}

// WikiPage is a single wiki page. RelatedPages and ParentSection are soft
// references that may not resolve.
type WikiPage struct {
	ID                 string   `json:"id" yaml:"id"`
	Title              string   `json:"title" yaml:"title"`
	Description        string   `json:"description" yaml:"description"`
	Importance         string   `json:"importance" yaml:"importance"`
	RelevantFiles      []string `json:"relevantFiles" yaml:"relevant_files"`
	RelatedPages       []string `json:"relatedPages" yaml:"related_pages"`
	ParentSection      string   `json:"parentSection,omitempty" yaml:"parent_section,omitempty"`
	TechnicalBreakdown string   `json:"technicalBreakdown,omitempty" yaml:"technical_breakdown,omitempty"`
	CodeSamples        []string `json:"codeSamples,omitempty" yaml:"code_samples,omitempty"`
}

// WikiStructure is the parsed output of wiki generation.
type WikiStructure struct {
	Title       string        `json:"title" yaml:"title"`
	Description string        `json:"description" yaml:"description"`
	Sections    []WikiSection `json:"sections,omitempty" yaml:"sections,omitempty"`
	Pages       []WikiPage    `json:"pages" yaml:"pages"`
}
