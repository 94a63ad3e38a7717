package wiki

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexResolution(t *testing.T) {
	w, err := Parse(sampleOutline)
	require.NoError(t, err)
	idx := NewIndex(w)

	page, ok := idx.Page("page-2")
	require.True(t, ok)
	assert.Equal(t, "Quality Control", page.Title)

	_, ok = idx.Page("page-9")
	assert.False(t, ok)

	sec, ok := idx.SectionPages("section-1")
	require.True(t, ok)
	require.Len(t, sec.Pages, 1)
	assert.Equal(t, "page-1", sec.Pages[0].ID)
	assert.Equal(t, []string{"page-9"}, sec.Unresolved)

	_, ok = idx.SectionPages("section-7")
	assert.False(t, ok)

	rel, ok := idx.Related("page-1")
	require.True(t, ok)
	require.Len(t, rel.Pages, 1)
	assert.Equal(t, "page-2", rel.Pages[0].ID)
	assert.Equal(t, []string{"page-404"}, rel.Unresolved)

	unsectioned := idx.Unsectioned()
	require.Len(t, unsectioned, 1)
	assert.Equal(t, "page-2", unsectioned[0].ID)

	assert.Equal(t, []string{"page-9", "page-404"}, idx.Dangling())
}

func TestIndexNil(t *testing.T) {
	idx := NewIndex(nil)
	_, ok := idx.Page("page-1")
	assert.False(t, ok)
	assert.Empty(t, idx.Dangling())
}
