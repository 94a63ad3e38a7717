// Package wiki parses generated wiki outlines and resolves their soft
// references.
package wiki

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pders01/repo-mechanic/internal/models"
)

// DefaultTitle is used when the outline names no title.
const DefaultTitle = "Repository Wiki"

type node struct {
	name     string
	attrs    map[string]string
	text     strings.Builder
	children []*node
}

func (n *node) attr(name string) string {
	return strings.TrimSpace(n.attrs[name])
}

func (n *node) content() string {
	return strings.TrimSpace(n.text.String())
}

// child returns the first direct child named name
func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// find returns every descendant named name in document order
func (n *node) find(name string) []*node {
	var out []*node
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
		out = append(out, c.find(name)...)
	}
	return out
}

// field returns the text of the first direct child named name, falling
// back to the first descendant.
func (n *node) field(name string) string {
	if c := n.child(name); c != nil {
		return c.content()
	}
	if all := n.find(name); len(all) > 0 {
		return all[0].content()
	}
	return ""
}

func (n *node) texts(name string) []string {
	out := []string{}
	for _, c := range n.find(name) {
		if t := c.content(); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Parse reads a generated wiki outline. Fences and chatter around the XML
// are dropped. Decoding stops at the first syntax error and whatever was
// read before it is kept, with every missing field at its default. The
// returned structure is always usable; a non-nil error only reports that
// the outline was cut short.
func Parse(text string) (*models.WikiStructure, error) {
	root, parseErr := buildTree(extractXML(text))

	doc := root
	if all := root.find("wiki_structure"); len(all) > 0 {
		doc = all[0]
	}

	w := &models.WikiStructure{
		Title:    DefaultTitle,
		Sections: []models.WikiSection{},
		Pages:    []models.WikiPage{},
	}
	if t := doc.child("title"); t != nil && t.content() != "" {
		w.Title = t.content()
	}
	if d := doc.child("description"); d != nil {
		w.Description = d.content()
	}

	seen := map[string]bool{}
	for i, p := range doc.find("page") {
		id := p.attr("id")
		if id == "" {
			id = p.field("id")
		}
		if id == "" || seen[id] {
			id = uniqueID("page", i+1, seen)
		}
		seen[id] = true

		samples := p.texts("sample")
		if len(samples) == 0 {
			samples = nil
		}

		w.Pages = append(w.Pages, models.WikiPage{
			ID:                 id,
			Title:              p.field("title"),
			Description:        p.field("description"),
			Importance:         strings.ToLower(p.field("importance")),
			RelevantFiles:      p.texts("file_path"),
			RelatedPages:       p.texts("related"),
			ParentSection:      p.field("parent_section"),
			TechnicalBreakdown: p.field("technical_breakdown"),
			CodeSamples:        samples,
		})
	}

	sectionSeen := map[string]bool{}
	for i, s := range doc.find("section") {
		id := s.attr("id")
		if id == "" || sectionSeen[id] {
			id = uniqueID("section", i+1, sectionSeen)
		}
		sectionSeen[id] = true

		w.Sections = append(w.Sections, models.WikiSection{
			ID:      id,
			Title:   s.field("title"),
			PageIDs: s.texts("page_ref"),
		})
	}

	return w, parseErr
}

func uniqueID(prefix string, n int, seen map[string]bool) string {
	id := fmt.Sprintf("%s-%d", prefix, n)
	for seen[id] {
		n++
		id = fmt.Sprintf("%s-%d", prefix, n)
	}
	return id
}

// extractXML drops markdown fences and any text before the first element.
func extractXML(text string) string {
	if i := strings.Index(text, "<wiki_structure"); i >= 0 {
		text = text[i:]
	} else if i := strings.Index(text, "<"); i >= 0 {
		text = text[i:]
	}
	if i := strings.LastIndex(text, "</wiki_structure>"); i >= 0 {
		text = text[:i+len("</wiki_structure>")]
	} else {
		text = strings.TrimRight(strings.TrimSpace(text), "`")
	}
	return text
}

func buildTree(text string) (*node, error) {
	root := &node{name: "#document"}
	stack := []*node{root}

	dec := xml.NewDecoder(strings.NewReader(text))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return root, nil
		}
		if err != nil {
			return root, fmt.Errorf("wiki outline truncated: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: strings.ToLower(t.Name.Local), attrs: map[string]string{}}
			for _, a := range t.Attr {
				n.attrs[strings.ToLower(a.Name.Local)] = a.Value
			}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, n)
			stack = append(stack, n)
		case xml.EndElement:
			name := strings.ToLower(t.Name.Local)
			for i := len(stack) - 1; i > 0; i-- {
				if stack[i].name == name {
					stack = stack[:i]
					break
				}
			}
		case xml.CharData:
			for _, n := range stack[1:] {
				n.text.Write(t)
			}
		}
	}
}
