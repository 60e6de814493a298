package git

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/wahlandcase/commitgate/internal/models"
)

// ChangeSetSource lists the commits a ref update introduces, read from a go-git repository
type ChangeSetSource struct {
	repo *git.Repository
}

// NewChangeSetSource creates a ChangeSetSource over repo
func NewChangeSetSource(repo *git.Repository) *ChangeSetSource {
	return &ChangeSetSource{repo: repo}
}

// CommitNotFoundError indicates the new target of a ref update is not a commit in the repository
type CommitNotFoundError struct {
	Hash string
}

func (e *CommitNotFoundError) Error() string {
	return "commit not found: " + e.Hash
}

// NewCommits returns the commits reachable from the new target of change
// that no other ref, nor the old target, already reaches. Newest first.
func (s *ChangeSetSource) NewCommits(ctx context.Context, change models.RefChange) ([]models.CommitRecord, error) {
	if change.Type == models.RefDelete {
		return nil, nil
	}

	tip, err := s.resolveCommit(plumbing.NewHash(change.ToHash))
	if err != nil {
		return nil, err
	}
	if tip == nil {
		// A lightweight tag or ref pointing at a tree or blob has no commits to check
		return nil, nil
	}

	known, err := s.knownCommits(ctx, change)
	if err != nil {
		return nil, err
	}

	var commits []models.CommitRecord
	iter := object.NewCommitPreorderIter(tip, known, nil)
	defer iter.Close()

	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		commits = append(commits, toCommitRecord(c))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk commits from %s: %w", change.ToHash, err)
	}

	return models.UniqueCommits(commits), nil
}

// knownCommits collects every commit reachable from the other refs and from the old target
func (s *ChangeSetSource) knownCommits(ctx context.Context, change models.RefChange) (map[plumbing.Hash]bool, error) {
	var tips []plumbing.Hash
	if change.Type == models.RefUpdate {
		tips = append(tips, plumbing.NewHash(change.FromHash))
	}

	refs, err := s.repo.References()
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference || ref.Name().String() == change.RefID {
			return nil
		}
		tips = append(tips, ref.Hash())
		return nil
	})
	if err != nil {
		return nil, err
	}

	known := make(map[plumbing.Hash]bool)
	for _, hash := range tips {
		if known[hash] {
			continue
		}
		c, err := s.resolveCommit(hash)
		if err != nil {
			return nil, err
		}
		if c == nil {
			continue
		}

		// Commits already in known are neither yielded nor walked again
		iter := object.NewCommitPreorderIter(c, known, nil)
		err = iter.ForEach(func(c *object.Commit) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			known[c.Hash] = true
			return nil
		})
		iter.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to walk commits from %s: %w", hash, err)
		}
	}

	return known, nil
}

// resolveCommit peels annotated tags down to their commit.
// It returns nil without error for objects that are not commits.
func (s *ChangeSetSource) resolveCommit(hash plumbing.Hash) (*object.Commit, error) {
	obj, err := s.repo.Storer.EncodedObject(plumbing.AnyObject, hash)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return nil, &CommitNotFoundError{Hash: hash.String()}
	}
	if err != nil {
		return nil, err
	}

	switch obj.Type() {
	case plumbing.CommitObject:
		return object.DecodeCommit(s.repo.Storer, obj)
	case plumbing.TagObject:
		tag, err := object.DecodeTag(s.repo.Storer, obj)
		if err != nil {
			return nil, err
		}
		c, err := tag.Commit()
		if errors.Is(err, object.ErrUnsupportedObject) {
			return nil, nil
		}
		return c, err
	default:
		return nil, nil
	}
}

func toCommitRecord(c *object.Commit) models.CommitRecord {
	return models.NewCommitRecord(
		c.Hash.String(),
		c.Committer.Name,
		c.Committer.Email,
		c.Message,
		c.NumParents(),
	)
}
