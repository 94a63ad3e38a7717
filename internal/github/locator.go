package github

import (
	"fmt"
	"regexp"
	"strings"
)

// Location identifies a repository and an optional ref.
type Location struct {
	Owner  string
	Repo   string
	Branch string
}

// FullName returns owner/repo
func (l Location) FullName() string {
	return l.Owner + "/" + l.Repo
}

var referencePattern = regexp.MustCompile(
	`^(?:https?://)?(?:www\.)?github\.com/([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+?)(?:\.git)?(?:/(?:tree|blob)/([^/\s]+)(?:/[^\s]*)?)?$`,
)

// ParseReference extracts owner, repository and optional branch from a
// GitHub URL. Recognized shapes are the repository root, /tree/<ref>[/...]
// and /blob/<ref>/<path>. Nothing else is accepted.
func ParseReference(ref string) (Location, error) {
	clean := strings.TrimSpace(ref)
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	clean = strings.TrimRight(clean, "/")

	match := referencePattern.FindStringSubmatch(clean)
	if match == nil {
		return Location{}, fmt.Errorf("%w: %q (expected github.com/owner/repo)", ErrInvalidReference, ref)
	}

	repo := strings.TrimSuffix(match[2], ".git")
	if repo == "" || repo == "." || repo == ".." {
		return Location{}, fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}

	return Location{
		Owner:  match[1],
		Repo:   repo,
		Branch: match[3],
	}, nil
}
