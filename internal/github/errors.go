package github

import (
	"errors"
	"fmt"
	"net/http"
)

// Terminal ingestion failures. Callers match them with errors.Is.
var (
	ErrInvalidReference     = errors.New("invalid repository reference")
	ErrRateLimited          = errors.New("github rate limit exceeded")
	ErrRepositoryNotFound   = errors.New("repository not found")
	ErrBranchOrTreeNotFound = errors.New("branch or tree not found")
	ErrEmptyRepository      = errors.New("no readable files in repository")
)

// errTooLarge marks a file dropped for exceeding the size cap
var errTooLarge = errors.New("file exceeds size limit")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github request %s failed: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// classifyMetadataError maps a repository metadata failure onto the error taxonomy.
func classifyMetadataError(err error) error {
	var se *StatusError
	if !errors.As(err, &se) {
		return fmt.Errorf("failed to fetch repository metadata: %w", err)
	}
	switch se.StatusCode {
	case http.StatusForbidden, http.StatusTooManyRequests:
		return fmt.Errorf("%w: add a GitHub token in settings: %v", ErrRateLimited, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: is it private or a typo? %v", ErrRepositoryNotFound, err)
	default:
		return fmt.Errorf("github api error: %w", err)
	}
}
