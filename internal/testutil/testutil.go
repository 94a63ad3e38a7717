package testutil

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
)

// Entry is one item served in the fake tree listing
type Entry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size,omitempty"`
}

// FakeGitHub serves the subset of the GitHub REST API and raw CDN that
// ingestion uses. Raw content is served under /raw.
type FakeGitHub struct {
	Server *httptest.Server
	T      *testing.T

	mu             sync.Mutex
	DefaultBranch  string
	MetadataStatus int
	TreeStatus     int
	Entries        []Entry
	Files          map[string]string
	FailAPI        map[string]bool
	FailRaw        map[string]bool
	PlainAPI       map[string]bool
	requests       []string
}

// NewFakeGitHub starts a fake server for owner/repo. It is closed on test cleanup.
func NewFakeGitHub(t *testing.T, owner, repo string) *FakeGitHub {
	t.Helper()

	f := &FakeGitHub{
		T:             t,
		DefaultBranch: "main",
		Files:         map[string]string{},
		FailAPI:       map[string]bool{},
		FailRaw:       map[string]bool{},
		PlainAPI:      map[string]bool{},
	}

	repoPrefix := "/repos/" + owner + "/" + repo
	rawPrefix := "/raw/" + owner + "/" + repo + "/"

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.URL.Path)
		f.mu.Unlock()

		switch {
		case r.URL.Path == repoPrefix:
			f.serveMetadata(w)
		case strings.HasPrefix(r.URL.Path, repoPrefix+"/git/trees/"):
			f.serveTree(w)
		case strings.HasPrefix(r.URL.Path, repoPrefix+"/contents/"):
			f.serveContents(w, strings.TrimPrefix(r.URL.Path, repoPrefix+"/contents/"))
		case strings.HasPrefix(r.URL.Path, rawPrefix):
			rest := strings.TrimPrefix(r.URL.Path, rawPrefix)
			if i := strings.Index(rest, "/"); i >= 0 {
				f.serveRaw(w, rest[i+1:])
				return
			}
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.Server.Close)

	return f
}

// APIURL is the base URL to configure as the REST endpoint
func (f *FakeGitHub) APIURL() string {
	return f.Server.URL
}

// RawURL is the base URL to configure as the raw CDN
func (f *FakeGitHub) RawURL() string {
	return f.Server.URL + "/raw"
}

// AddFile registers a blob in the listing and its content
func (f *FakeGitHub) AddFile(path, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Entries = append(f.Entries, Entry{Path: path, Type: "blob", Size: int64(len(content))})
	f.Files[path] = content
}

// AddDir registers a tree entry
func (f *FakeGitHub) AddDir(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Entries = append(f.Entries, Entry{Path: path, Type: "tree"})
}

// Requests returns the paths requested so far, sorted
func (f *FakeGitHub) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.requests...)
	sort.Strings(out)
	return out
}

// CountRequests counts requests whose path starts with prefix
func (f *FakeGitHub) CountRequests(prefix string) int {
	count := 0
	for _, p := range f.Requests() {
		if strings.HasPrefix(p, prefix) {
			count++
		}
	}
	return count
}

func (f *FakeGitHub) serveMetadata(w http.ResponseWriter) {
	f.mu.Lock()
	status, branch := f.MetadataStatus, f.DefaultBranch
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, map[string]string{"default_branch": branch})
}

func (f *FakeGitHub) serveTree(w http.ResponseWriter) {
	f.mu.Lock()
	status := f.TreeStatus
	entries := append([]Entry(nil), f.Entries...)
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, map[string]any{"sha": "abc123", "tree": entries, "truncated": false})
}

func (f *FakeGitHub) serveContents(w http.ResponseWriter, path string) {
	f.mu.Lock()
	content, ok := f.Files[path]
	fail, plain := f.FailAPI[path], f.PlainAPI[path]
	f.mu.Unlock()

	if !ok || fail {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if plain {
		writeJSON(w, map[string]string{"content": content, "encoding": "none"})
		return
	}

	// GitHub wraps base64 payloads at 60 characters
	encoded := base64.StdEncoding.EncodeToString([]byte(content))
	var wrapped strings.Builder
	for i := 0; i < len(encoded); i += 60 {
		end := i + 60
		if end > len(encoded) {
			end = len(encoded)
		}
		wrapped.WriteString(encoded[i:end])
		wrapped.WriteString("\n")
	}
	writeJSON(w, map[string]string{"content": wrapped.String(), "encoding": "base64"})
}

func (f *FakeGitHub) serveRaw(w http.ResponseWriter, path string) {
	f.mu.Lock()
	content, ok := f.Files[path]
	fail := f.FailRaw[path]
	f.mu.Unlock()

	if !ok || fail {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(content))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
