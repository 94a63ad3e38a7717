package wiki

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOutline = `<wiki_structure>
  <title>Widgets Wiki</title>
  <description>How widgets are made</description>
  <sections>
    <section id="section-1">
      <title>Overview</title>
      <pages>
        <page_ref>page-1</page_ref>
        <page_ref>page-9</page_ref>
      </pages>
    </section>
  </sections>
  <pages>
    <page id="page-1">
      <title>Assembly Line</title>
      <description>Where widgets come from</description>
      <importance>HIGH</importance>
      <relevant_files>
        <file_path>main.go</file_path>
        <file_path>line/line.go</file_path>
      </relevant_files>
      <related_pages>
        <related>page-2</related>
        <related>page-404</related>
      </related_pages>
      <parent_section>section-1</parent_section>
      <technical_breakdown>The line runs stations in order &amp; stops on faults.</technical_breakdown>
      <code_samples>
        <sample>func (l *Line) Run() error { ... }</sample>
      </code_samples>
    </page>
    <page id="page-2">
      <title>Quality Control</title>
      <description>Rejects bad widgets</description>
      <importance>medium</importance>
    </page>
  </pages>
</wiki_structure>`

func TestParse(t *testing.T) {
	w, err := Parse(sampleOutline)
	require.NoError(t, err)

	assert.Equal(t, "Widgets Wiki", w.Title)
	assert.Equal(t, "How widgets are made", w.Description)
	require.Len(t, w.Sections, 1)
	assert.Equal(t, "Overview", w.Sections[0].Title)
	assert.Equal(t, []string{"page-1", "page-9"}, w.Sections[0].PageIDs)

	require.Len(t, w.Pages, 2)
	p := w.Pages[0]
	assert.Equal(t, "page-1", p.ID)
	assert.Equal(t, "Assembly Line", p.Title)
	assert.Equal(t, "high", p.Importance)
	assert.Equal(t, []string{"main.go", "line/line.go"}, p.RelevantFiles)
	assert.Equal(t, []string{"page-2", "page-404"}, p.RelatedPages)
	assert.Equal(t, "section-1", p.ParentSection)
	assert.Equal(t, "The line runs stations in order & stops on faults.", p.TechnicalBreakdown)
	assert.Equal(t, []string{"func (l *Line) Run() error { ... }"}, p.CodeSamples)

	assert.Empty(t, w.Pages[1].RelevantFiles)
	assert.NotNil(t, w.Pages[1].RelevantFiles)
}

func TestParseStripsFencesAndChatter(t *testing.T) {
	text := "Sure! Here is the outline:\n```xml\n" + sampleOutline + "\n```\nLet me know if you need more."

	w, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, "Widgets Wiki", w.Title)
	assert.Len(t, w.Pages, 2)
}

func TestParseKeepsPartialOutput(t *testing.T) {
	truncated := sampleOutline[:len(sampleOutline)/2]
	truncated = truncated[:len(truncated)-10]

	w, err := Parse(truncated)
	assert.Error(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "Widgets Wiki", w.Title)
	assert.Len(t, w.Sections, 1)
}

func TestParseDefaults(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "empty", in: ""},
		{name: "prose only", in: "I could not analyze this repository."},
		{name: "empty root", in: "<wiki_structure></wiki_structure>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := Parse(tt.in)
			require.NotNil(t, w)
			assert.Equal(t, DefaultTitle, w.Title)
			assert.Equal(t, "", w.Description)
			assert.NotNil(t, w.Pages)
			assert.Empty(t, w.Pages)
			assert.NotNil(t, w.Sections)
		})
	}
}

func TestParseAssignsMissingAndDuplicateIDs(t *testing.T) {
	in := `<wiki_structure><pages>
		<page><title>A</title></page>
		<page id="x"><title>B</title></page>
		<page id="x"><title>C</title></page>
	</pages></wiki_structure>`

	w, err := Parse(in)
	require.NoError(t, err)
	require.Len(t, w.Pages, 3)
	assert.Equal(t, "page-1", w.Pages[0].ID)
	assert.Equal(t, "x", w.Pages[1].ID)
	assert.Equal(t, "page-3", w.Pages[2].ID)
	assert.Equal(t, DefaultTitle, w.Title)
}
