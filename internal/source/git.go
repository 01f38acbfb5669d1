package source

import (
	"context"
	"fmt"
	"path"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Git reads a catalog document from a revision of a local git repository,
// so a catalog can be pinned to a tag or compared with an older commit.
type Git struct {
	RepoPath string
	Ref      string
	Path     string
}

func (g Git) Name() string {
	return fmt.Sprintf("git:%s:%s", g.Ref, g.Path)
}

func (g Git) Fetch(ctx context.Context) ([]byte, error) {
	repo, err := git.PlainOpenWithOptions(g.RepoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repo: %w", err)
	}

	ref := g.Ref
	if ref == "" {
		ref = "HEAD"
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", ref, err)
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("loading commit %s: %w", hash, err)
	}

	f, err := commit.File(path.Clean(g.Path))
	if err != nil {
		return nil, fmt.Errorf("reading %s at %s: %w", g.Path, ref, err)
	}

	contents, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("reading %s at %s: %w", g.Path, ref, err)
	}
	return []byte(contents), nil
}
