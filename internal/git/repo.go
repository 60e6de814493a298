package git

import (
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// IsGitRepo checks if the path is a git repository (bare or not)
func IsGitRepo(path string) bool {
	_, err := git.PlainOpen(path)
	return err == nil
}

// FindRepoRoot walks up from start to the first directory that is a git repository
func FindRepoRoot(start string) (string, error) {
	path, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		if IsGitRepo(path) {
			return path, nil
		}
		parent := filepath.Dir(path)
		if parent == path {
			return "", &GitError{Op: "open", Path: start, Output: "not a git repository"}
		}
		path = parent
	}
}

// OpenRepo opens the repository containing path.
// Hooks run with GIT_DIR set, which takes precedence when path is empty.
func OpenRepo(path string) (*git.Repository, error) {
	if path == "" {
		path = os.Getenv("GIT_DIR")
	}
	if path == "" {
		path = "."
	}

	root, err := FindRepoRoot(path)
	if err != nil {
		return nil, err
	}

	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, &GitError{Op: "open", Path: root, Output: err.Error()}
	}
	return repo, nil
}

// GitError provides context for repository access failures
type GitError struct {
	Op     string
	Path   string
	Output string
}

func (e *GitError) Error() string {
	return "git " + e.Op + " " + e.Path + ": " + e.Output
}
