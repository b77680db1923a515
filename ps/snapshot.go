package ps

import (
	"fmt"

	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// Snapshot is a read-only view of the tree at one commit. A statement reads through a
// single snapshot so every row it sees comes from the same commit.
type Snapshot struct {
	tree *object.Tree // nil before the first commit
}

// Snapshot returns a view of HEAD.
func (p *Persistence) Snapshot() (*Snapshot, error) {
	if !p.IsInitialized() {
		return nil, ErrNotInitialized
	}

	headRef, err := p.repo.Head()
	if err != nil {
		return &Snapshot{}, nil
	}

	commit, err := p.repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	return &Snapshot{tree: tree}, nil
}

// ReadFile returns the contents of filePath. A missing file wraps ErrNotFound.
func (s *Snapshot) ReadFile(filePath string) ([]byte, error) {
	if s.tree == nil {
		return nil, fmt.Errorf("%s: %w", filePath, ErrNotFound)
	}

	file, err := s.tree.File(filePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, ErrNotFound)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read contents: %w", err)
	}

	return []byte(content), nil
}

// TreeEntry is one name in a directory listing.
type TreeEntry struct {
	Name  string
	IsDir bool
}

// List returns the entries of dirPath in tree order. "" or "." is the root.
func (s *Snapshot) List(dirPath string) ([]TreeEntry, error) {
	if s.tree == nil {
		return nil, nil
	}

	target := s.tree
	if dirPath != "" && dirPath != "." {
		var err error
		target, err = s.tree.Tree(dirPath)
		if err != nil {
			return nil, nil
		}
	}

	entries := make([]TreeEntry, 0, len(target.Entries))
	for _, entry := range target.Entries {
		entries = append(entries, TreeEntry{
			Name:  entry.Name,
			IsDir: entry.Mode == filemode.Dir,
		})
	}

	return entries, nil
}
