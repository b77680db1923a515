package ps

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/nickyhof/StrictDB/core"
)

// objectEncoder is implemented by the go-git objects StrictDB writes: trees and commits.
type objectEncoder interface {
	Encode(plumbing.EncodedObject) error
}

// storeObject encodes o into the object store and returns its hash.
func (p *Persistence) storeObject(kind string, o objectEncoder) (plumbing.Hash, error) {
	obj := p.repo.Storer.NewEncodedObject()
	if err := o.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode %s: %w", kind, err)
	}
	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store %s: %w", kind, err)
	}
	return hash, nil
}

// createBlob stores an encoded row, schema or view as a blob.
func (p *Persistence) createBlob(data []byte) (plumbing.Hash, error) {
	obj := p.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to open blob: %w", err)
	}
	_, err = w.Write(data)
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob: %w", err)
	}

	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}
	return hash, nil
}

// headTree is the root tree of the last committed statement. A repository without
// commits has the zero tree.
func (p *Persistence) headTree() (plumbing.Hash, error) {
	ref, err := p.repo.Head()
	if err != nil {
		return plumbing.ZeroHash, nil
	}
	commit, err := p.repo.CommitObject(ref.Hash())
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to read HEAD commit %s: %w", ref.Hash(), err)
	}
	return commit.TreeHash, nil
}

// readEntries indexes one directory level by name.
func (p *Persistence) readEntries(treeHash plumbing.Hash) (map[string]object.TreeEntry, error) {
	byName := make(map[string]object.TreeEntry)
	if treeHash.IsZero() {
		return byName, nil
	}

	tree, err := object.GetTree(p.repo.Storer, treeHash)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree %s: %w", treeHash, err)
	}
	for _, entry := range tree.Entries {
		byName[entry.Name] = entry
	}
	return byName, nil
}

// writeEntries stores one directory level. No entries yields the zero hash, which
// drops the directory from its parent; a table whose last row is deleted keeps only
// its .table file.
func (p *Persistence) writeEntries(byName map[string]object.TreeEntry) (plumbing.Hash, error) {
	if len(byName) == 0 {
		return plumbing.ZeroHash, nil
	}

	entries := make([]object.TreeEntry, 0, len(byName))
	for _, entry := range byName {
		entries = append(entries, entry)
	}
	// directories compare with a trailing slash: "t/" sorts after "t.table"
	key := func(e object.TreeEntry) string {
		if e.Mode == filemode.Dir {
			return e.Name + "/"
		}
		return e.Name
	}
	sort.Slice(entries, func(i, j int) bool { return key(entries[i]) < key(entries[j]) })

	return p.storeObject("tree", &object.Tree{Entries: entries})
}

// TreeChange writes or deletes one path of a statement's commit.
type TreeChange struct {
	Path     string // e.g. "main/t/00000000000000000001" or "main/t.table"
	BlobHash plumbing.Hash
	IsDelete bool
}

// batchUpdateTree returns the root tree after changes. Each directory a statement
// touches is read and written once however many of its rows change; a delete of a
// directory path drops the whole subtree, as DROP TABLE does.
func (p *Persistence) batchUpdateTree(rootTreeHash plumbing.Hash, changes []TreeChange) (plumbing.Hash, error) {
	if len(changes) == 0 {
		return rootTreeHash, nil
	}

	entries, err := p.readEntries(rootTreeHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	grouped := make(map[string][]TreeChange)
	var order []string

	for _, change := range changes {
		dir, rest, nested := strings.Cut(change.Path, "/")
		if !nested {
			if change.IsDelete {
				delete(entries, dir)
			} else {
				entries[dir] = object.TreeEntry{Name: dir, Mode: filemode.Regular, Hash: change.BlobHash}
			}
			continue
		}

		if _, seen := grouped[dir]; !seen {
			order = append(order, dir)
		}
		grouped[dir] = append(grouped[dir], TreeChange{Path: rest, BlobHash: change.BlobHash, IsDelete: change.IsDelete})
	}

	for _, dir := range order {
		subTreeHash := plumbing.ZeroHash
		if existing, ok := entries[dir]; ok && existing.Mode == filemode.Dir {
			subTreeHash = existing.Hash
		}

		newSubTreeHash, err := p.batchUpdateTree(subTreeHash, grouped[dir])
		if err != nil {
			return plumbing.ZeroHash, err
		}

		if newSubTreeHash == plumbing.ZeroHash {
			delete(entries, dir)
		} else {
			entries[dir] = object.TreeEntry{Name: dir, Mode: filemode.Dir, Hash: newSubTreeHash}
		}
	}

	return p.writeEntries(entries)
}

// createCommitDirect points the current branch at a new commit of treeHash authored
// by identity. A zero tree is stored as a real empty tree so that dropping the last
// table still commits.
func (p *Persistence) createCommitDirect(treeHash plumbing.Hash, identity core.Identity, message string) (Transaction, error) {
	if treeHash.IsZero() {
		var err error
		if treeHash, err = p.storeObject("tree", &object.Tree{}); err != nil {
			return Transaction{}, err
		}
	}

	branch := plumbing.Master
	var parents []plumbing.Hash
	if head, err := p.repo.Head(); err == nil {
		parents = append(parents, head.Hash())
		if head.Name().IsBranch() {
			branch = head.Name()
		}
	}

	author := object.Signature{Name: identity.Name, Email: identity.Email, When: time.Now()}
	commitHash, err := p.storeObject("commit", &object.Commit{
		Author:       author,
		Committer:    author,
		Message:      message,
		TreeHash:     treeHash,
		ParentHashes: parents,
	})
	if err != nil {
		return Transaction{}, err
	}

	if err := p.repo.Storer.SetReference(plumbing.NewHashReference(branch, commitHash)); err != nil {
		return Transaction{}, fmt.Errorf("failed to move %s to %s: %w", branch.Short(), commitHash, err)
	}

	return Transaction{
		Id:      commitHash.String(),
		When:    author.When,
		Author:  fmt.Sprintf("%s <%s>", identity.Name, identity.Email),
		Message: message,
	}, nil
}

// applyChanges commits changes on top of HEAD as one commit and syncs the worktree.
func (p *Persistence) applyChanges(changes []TreeChange, identity core.Identity, message string) (Transaction, error) {
	root, err := p.headTree()
	if err != nil {
		return Transaction{}, err
	}

	newTree, err := p.batchUpdateTree(root, changes)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to update tree: %w", err)
	}

	txn, err := p.createCommitDirect(newTree, identity, message)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to commit: %w", err)
	}

	if err := p.syncWorktree(); err != nil {
		return Transaction{}, fmt.Errorf("failed to sync worktree: %w", err)
	}

	return txn, nil
}

// syncWorktree checks HEAD out into the worktree of a file repository so the data is
// browsable on disk. Memory repositories are read from the object store only.
func (p *Persistence) syncWorktree() error {
	if p.isMemoryMode {
		return nil
	}

	wt, err := p.repo.Worktree()
	if err != nil {
		return err
	}

	headRef, err := p.repo.Head()
	if err != nil {
		return err
	}

	commit, err := p.repo.CommitObject(headRef.Hash())
	if err != nil {
		return err
	}

	tree, err := commit.Tree()
	if err != nil {
		return err
	}

	// a hard reset to an empty tree fails, so clear the directory by hand
	if len(tree.Entries) == 0 {
		fs := wt.Filesystem
		entries, err := fs.ReadDir("/")
		if err != nil {
			return nil
		}
		for _, entry := range entries {
			if entry.Name() != ".git" {
				fs.Remove(entry.Name())
			}
		}
		return nil
	}

	return wt.Reset(&git.ResetOptions{
		Mode:   git.HardReset,
		Commit: headRef.Hash(),
	})
}

// WriteFileDirect writes a single file in its own commit.
func (p *Persistence) WriteFileDirect(filePath string, data []byte, identity core.Identity, message string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	blobHash, err := p.createBlob(data)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to create blob: %w", err)
	}

	return p.applyChanges([]TreeChange{{Path: filePath, BlobHash: blobHash}}, identity, message)
}

// DeletePathDirect removes files or whole directories in one commit.
func (p *Persistence) DeletePathDirect(paths []string, identity core.Identity, message string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	changes := make([]TreeChange, 0, len(paths))
	for _, filePath := range paths {
		changes = append(changes, TreeChange{Path: filePath, IsDelete: true})
	}

	return p.applyChanges(changes, identity, message)
}
