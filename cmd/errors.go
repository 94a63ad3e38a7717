package cmd

import (
	"errors"

	"github.com/pders01/repo-mechanic/internal/analysis"
	"github.com/pders01/repo-mechanic/internal/github"
	"github.com/pders01/repo-mechanic/internal/llm"
	"github.com/pders01/repo-mechanic/internal/session"
)

var errorMessages = []struct {
	err error
	msg string
}{
	{github.ErrInvalidReference, "Invalid GitHub URL. Use github.com/<owner>/<repo>, optionally with /tree/<branch>."},
	{github.ErrRateLimited, "GitHub rate limit exceeded. Add a token with: repomech settings --token <token>"},
	{github.ErrRepositoryNotFound, "Repository not found. Is it private or misspelled?"},
	{github.ErrBranchOrTreeNotFound, "Branch or file tree not found."},
	{github.ErrEmptyRepository, "No readable files in repository. Check the branch and the extension allow-list."},
	{session.ErrImportFormatInvalid, "Failed to import session archive: the file is not a valid archive. Nothing was changed."},
	{analysis.ErrEmptyContext, "No files match the current filter. Context is empty."},
	{llm.ErrUnsupported, "The configured model backend does not support this operation."},
	{llm.ErrCollaborator, "Mechanism failure in reasoning engine. Check the model configuration and API key."},
}

// userMessage turns an error into the line shown to the user. Known
// failures get a fixed explanation; --verbose appends the underlying error.
func userMessage(err error) string {
	for _, m := range errorMessages {
		if errors.Is(err, m.err) {
			if verbose {
				return m.msg + "\n  " + err.Error()
			}
			return m.msg
		}
	}
	return err.Error()
}
