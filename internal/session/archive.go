package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cast"
	"github.com/tidwall/gjson"

	"github.com/pders01/repo-mechanic/internal/models"
)

// ErrImportFormatInvalid is returned for archives that cannot be restored.
// Nothing is changed when it is returned.
var ErrImportFormatInvalid = errors.New("invalid session archive")

// Archive is the exported form of a session.
type Archive struct {
	Version           string                    `json:"version"`
	Timestamp         time.Time                 `json:"timestamp"`
	ActiveMode        models.Mode               `json:"activeMode"`
	RepositoryContext *models.RepositoryContext `json:"repositoryContext"`
	WikiStructure     *models.WikiStructure     `json:"wikiStructure"`
	ModeStates        models.ModeStates         `json:"modeStates"`
	Settings          Settings                  `json:"settings"`
}

// Export writes snap and settings as an archive.
func Export(w io.Writer, snap models.Snapshot, settings Settings) error {
	a := Archive{
		Version:           models.SnapshotVersion,
		Timestamp:         time.Now().UTC(),
		ActiveMode:        snap.ActiveMode,
		RepositoryContext: snap.RepositoryContext,
		WikiStructure:     snap.WikiStructure,
		ModeStates:        snap.ModeStates,
		Settings:          settings,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("failed to encode archive: %w", err)
	}
	return nil
}

// Imported is a fully validated archive ready to be restored.
type Imported struct {
	Snapshot models.Snapshot
	// Settings is nil when the archive carried none
	Settings *Settings
	// Shape names the layout that was recognized
	Shape string
}

// Archive layouts accepted by ParseArchive
const (
	ShapeCurrent      = "current"
	ShapeIntermediate = "intermediate"
	ShapeLegacy       = "legacy"
)

// ParseArchive validates and converts an archive without touching any
// state. Three layouts are accepted: the current one, the per-mode
// modeHistories/modeIterations layout, and the single chatHistory layout
// whose history belongs to the archive's mode.
func ParseArchive(data []byte) (*Imported, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrImportFormatInvalid)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: archive must be a JSON object", ErrImportFormatInvalid)
	}

	var (
		shape   string
		repoKey string
		wikiKey string
		modeKey string
	)
	switch {
	case doc.Get("repositoryContext").Exists():
		shape, repoKey, wikiKey, modeKey = ShapeCurrent, "repositoryContext", "wikiStructure", "activeMode"
	case doc.Get("repo").Exists() && (doc.Get("modeHistories").Exists() || doc.Get("modeIterations").Exists()):
		shape, repoKey, wikiKey, modeKey = ShapeIntermediate, "repo", "wiki", "mode"
	case doc.Get("repo").Exists():
		shape, repoKey, wikiKey, modeKey = ShapeLegacy, "repo", "wiki", "mode"
	default:
		return nil, fmt.Errorf("%w: missing repository", ErrImportFormatInvalid)
	}

	repo, err := parseRepository(doc.Get(repoKey))
	if err != nil {
		return nil, fmt.Errorf("%w: repository: %v", ErrImportFormatInvalid, err)
	}

	mode := models.ModeWiki
	if m := doc.Get(modeKey); m.Exists() && m.String() != "" {
		mode, err = models.ParseMode(m.String())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrImportFormatInvalid, err)
		}
	}

	wiki, err := parseWiki(doc.Get(wikiKey))
	if err != nil {
		return nil, fmt.Errorf("%w: wiki: %v", ErrImportFormatInvalid, err)
	}

	var states models.ModeStates
	switch shape {
	case ShapeCurrent:
		states, err = parseModeStates(doc.Get("modeStates"))
	case ShapeIntermediate:
		states, err = parsePerMode(doc.Get("modeHistories"), doc.Get("modeIterations"))
	case ShapeLegacy:
		states, err = parseLegacy(doc.Get("chatHistory"), doc.Get("researchIteration"), mode)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportFormatInvalid, err)
	}

	snap := models.NewSnapshot("")
	snap.ActiveMode = mode
	snap.RepositoryContext = repo
	snap.WikiStructure = wiki
	snap.ModeStates = states
	if ts, err := time.Parse(time.RFC3339, doc.Get("timestamp").String()); err == nil {
		snap.Timestamp = ts
	}

	imported := &Imported{Snapshot: snap, Shape: shape}
	if s := doc.Get("settings"); s.IsObject() {
		imported.Settings = &Settings{
			SelectedModel: s.Get("selectedModel").String(),
			GitHubToken:   s.Get("githubToken").String(),
		}
	}
	return imported, nil
}

// first returns the first of keys present in r
func first(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

func parseRepository(r gjson.Result) (*models.RepositoryContext, error) {
	if !r.IsObject() {
		return nil, errors.New("must be an object")
	}
	repo := &models.RepositoryContext{
		Name:            first(r, "name", "repoName").String(),
		OriginReference: first(r, "originReference", "repoUrl").String(),
		Kind:            first(r, "kind", "repoType").String(),
		Files:           []models.RepoFile{},
	}

	files := r.Get("files")
	if files.Exists() && !files.IsArray() {
		return nil, errors.New("files must be an array")
	}
	seen := map[string]bool{}
	for i, f := range files.Array() {
		path := f.Get("path")
		if path.Type != gjson.String || path.String() == "" {
			return nil, fmt.Errorf("file %d has no path", i)
		}
		if seen[path.String()] {
			return nil, fmt.Errorf("duplicate file path %q", path.String())
		}
		seen[path.String()] = true
		repo.Files = append(repo.Files, models.RepoFile{Path: path.String(), Content: f.Get("content").String()})
	}
	return repo, nil
}

func parseMessages(r gjson.Result) ([]models.ChatMessage, error) {
	out := []models.ChatMessage{}
	if !r.Exists() || r.Type == gjson.Null {
		return out, nil
	}
	if !r.IsArray() {
		return nil, errors.New("history must be an array")
	}
	for i, m := range r.Array() {
		role := models.Role(m.Get("role").String())
		if role != models.RoleUser && role != models.RoleAssistant {
			return nil, fmt.Errorf("message %d has invalid role %q", i, role)
		}
		msg := models.ChatMessage{Role: role, Content: m.Get("content").String()}
		if p := first(m, "phaseNumber", "iteration"); p.Exists() && p.Type != gjson.Null {
			n, err := cast.ToIntE(p.Value())
			if err != nil || n < 0 {
				return nil, fmt.Errorf("message %d has invalid phase %s", i, p.Raw)
			}
			msg.PhaseNumber = n
		}
		out = append(out, msg)
	}
	return out, nil
}

func parseProgress(r gjson.Result) (int, error) {
	if !r.Exists() || r.Type == gjson.Null {
		return 0, nil
	}
	n, err := cast.ToIntE(r.Value())
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid progress %s", r.Raw)
	}
	return n, nil
}

func parseModeStates(r gjson.Result) (models.ModeStates, error) {
	states := models.NewModeStates()
	if !r.Exists() {
		return states, nil
	}
	if !r.IsObject() {
		return states, errors.New("modeStates must be an object")
	}

	var err error
	r.ForEach(func(key, value gjson.Result) bool {
		m, perr := models.ParseMode(key.String())
		if perr != nil {
			return true
		}
		if states[m].History, err = parseMessages(value.Get("history")); err != nil {
			err = fmt.Errorf("%s: %w", m, err)
			return false
		}
		if states[m].Progress, err = parseProgress(first(value, "progress", "iteration")); err != nil {
			err = fmt.Errorf("%s: %w", m, err)
			return false
		}
		return true
	})
	return states, err
}

func parsePerMode(histories, iterations gjson.Result) (models.ModeStates, error) {
	states := models.NewModeStates()
	for _, m := range models.Modes() {
		h, err := parseMessages(histories.Get(m.String()))
		if err != nil {
			return states, fmt.Errorf("%s: %w", m, err)
		}
		p, err := parseProgress(iterations.Get(m.String()))
		if err != nil {
			return states, fmt.Errorf("%s: %w", m, err)
		}
		states[m] = models.ModeState{History: h, Progress: p}
	}
	return states, nil
}

func parseLegacy(history, iteration gjson.Result, mode models.Mode) (models.ModeStates, error) {
	states := models.NewModeStates()
	h, err := parseMessages(history)
	if err != nil {
		return states, err
	}
	p, err := parseProgress(iteration)
	if err != nil {
		return states, err
	}
	states[mode] = models.ModeState{History: h, Progress: p}
	return states, nil
}

func stringList(r gjson.Result, keys ...string) []string {
	out := []string{}
	for _, v := range first(r, keys...).Array() {
		out = append(out, v.String())
	}
	return out
}

func parseWiki(r gjson.Result) (*models.WikiStructure, error) {
	if !r.Exists() || r.Type == gjson.Null {
		return nil, nil
	}
	if !r.IsObject() {
		return nil, errors.New("must be an object")
	}

	w := &models.WikiStructure{
		Title:       r.Get("title").String(),
		Description: r.Get("description").String(),
		Pages:       []models.WikiPage{},
	}
	for _, s := range r.Get("sections").Array() {
		w.Sections = append(w.Sections, models.WikiSection{
			ID:      s.Get("id").String(),
			Title:   s.Get("title").String(),
			PageIDs: stringList(s, "pageIds", "pages"),
		})
	}

	seen := map[string]bool{}
	for i, p := range r.Get("pages").Array() {
		id := p.Get("id").String()
		if id == "" {
			return nil, fmt.Errorf("page %d has no id", i)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate page id %q", id)
		}
		seen[id] = true

		page := models.WikiPage{
			ID:                 id,
			Title:              p.Get("title").String(),
			Description:        p.Get("description").String(),
			Importance:         p.Get("importance").String(),
			RelevantFiles:      stringList(p, "relevantFiles", "relevant_files"),
			RelatedPages:       stringList(p, "relatedPages", "related_pages"),
			ParentSection:      first(p, "parentSection", "parent_section").String(),
			TechnicalBreakdown: first(p, "technicalBreakdown", "technical_breakdown").String(),
		}
		if samples := stringList(p, "codeSamples", "code_samples"); len(samples) > 0 {
			page.CodeSamples = samples
		}
		w.Pages = append(w.Pages, page)
	}
	return w, nil
}
