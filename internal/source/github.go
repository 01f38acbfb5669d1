package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v60/github"

	"github.com/everstacklabs/lmregistry/internal/cache"
)

// GitHub reads a catalog document through the GitHub contents API. Responses
// are cached; a stale cache entry is served when GitHub cannot be reached.
type GitHub struct {
	Owner string
	Repo  string
	Path  string
	Ref   string

	client *github.Client
	cache  *cache.FileCache
}

// NewGitHub creates a GitHub source. httpClient carries auth and rate
// limiting; fc may be nil to disable caching.
func NewGitHub(owner, repo, path, ref string, httpClient *http.Client, fc *cache.FileCache) *GitHub {
	return &GitHub{
		Owner:  owner,
		Repo:   repo,
		Path:   path,
		Ref:    ref,
		client: github.NewClient(httpClient),
		cache:  fc,
	}
}

func (g *GitHub) Name() string {
	return fmt.Sprintf("github:%s/%s/%s@%s", g.Owner, g.Repo, g.Path, g.Ref)
}

func (g *GitHub) Fetch(ctx context.Context) ([]byte, error) {
	key := g.Name()

	var stale *cache.Entry
	if g.cache != nil {
		entry, fresh := g.cache.Get(key)
		if fresh {
			slog.Debug("catalog served from cache", "source", key, "age", entry.Age())
			return entry.Body, nil
		}
		stale = entry
	}

	body, sha, err := g.download(ctx)
	if err != nil {
		if stale != nil {
			slog.Warn("github fetch failed, using stale cache", "source", key, "age", stale.Age(), "error", err)
			return stale.Body, nil
		}
		return nil, err
	}

	if g.cache != nil {
		if err := g.cache.Set(key, &cache.Entry{Body: body, SHA: sha, Source: key}); err != nil {
			slog.Warn("failed to cache catalog", "source", key, "error", err)
		}
	}
	return body, nil
}

func (g *GitHub) download(ctx context.Context) ([]byte, string, error) {
	var opts *github.RepositoryContentGetOptions
	if g.Ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: g.Ref}
	}

	file, _, _, err := g.client.Repositories.GetContents(ctx, g.Owner, g.Repo, g.Path, opts)
	if err != nil {
		return nil, "", fmt.Errorf("fetching %s from %s/%s: %w", g.Path, g.Owner, g.Repo, err)
	}
	if file == nil {
		return nil, "", fmt.Errorf("%s in %s/%s is a directory", g.Path, g.Owner, g.Repo)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, "", fmt.Errorf("decoding %s: %w", g.Path, err)
	}
	return []byte(content), file.GetSHA(), nil
}
