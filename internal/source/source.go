// Package source fetches catalog documents and turns them into registries.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/everstacklabs/lmregistry/internal/cache"
	"github.com/everstacklabs/lmregistry/internal/catalog"
	"github.com/everstacklabs/lmregistry/internal/config"
	"github.com/everstacklabs/lmregistry/internal/httpclient"
	"github.com/everstacklabs/lmregistry/internal/registry"
	"github.com/everstacklabs/lmregistry/internal/validate"
)

// ErrInvalidCatalog is returned by Open when the document fails validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Source produces the raw bytes of a catalog document.
type Source interface {
	// Name identifies the source in logs and diffs (e.g. "file:models.yaml").
	Name() string
	// Fetch returns the catalog document.
	Fetch(ctx context.Context) ([]byte, error)
}

// Builtin serves the compiled-in catalog.
type Builtin struct{}

func (Builtin) Name() string { return config.SourceBuiltin }

func (Builtin) Fetch(ctx context.Context) ([]byte, error) {
	return catalog.FromRegistry(registry.Builtin()).Marshal()
}

// File reads a catalog document from disk.
type File struct {
	Path string
}

func (f File) Name() string { return "file:" + f.Path }

func (f File) Fetch(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return data, nil
}

// Open fetches, lints, and builds the registry for src. Warnings are logged;
// any error-severity issue aborts with ErrInvalidCatalog.
func Open(ctx context.Context, src Source) (*registry.Registry, *validate.Result, error) {
	data, err := src.Fetch(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching %s: %w", src.Name(), err)
	}

	doc, result := validate.Lint(data)
	for _, w := range result.Warnings() {
		slog.Warn("catalog warning", "source", src.Name(), "model", w.Model, "field", w.Field, "message", w.Message)
	}
	if result.HasErrors() {
		return nil, result, fmt.Errorf("%w: %s\n%s", ErrInvalidCatalog, src.Name(), validate.FormatResult(result))
	}

	reg, err := doc.Build()
	if err != nil {
		return nil, result, fmt.Errorf("%w: %s: %w", ErrInvalidCatalog, src.Name(), err)
	}

	slog.Debug("catalog loaded", "source", src.Name(), "models", reg.Len())
	return reg, result, nil
}

// FromConfig returns the source selected by cfg.Source.
func FromConfig(cfg *config.Config) (Source, error) {
	switch cfg.Source {
	case config.SourceBuiltin:
		return Builtin{}, nil
	case config.SourceFile:
		return File{Path: cfg.CatalogPath}, nil
	case config.SourceGit:
		return Git{RepoPath: cfg.Git.RepoPath, Ref: cfg.Git.Ref, Path: cfg.Git.Path}, nil
	case config.SourceGitHub:
		return newGitHubFromConfig(cfg, cfg.GitHub.Ref), nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

// Resolve parses a source spec, falling back to cfg for unspecified parts:
//
//	builtin
//	file:<path>
//	git:<ref>[:<path>]
//	github[:<ref>]
//
// An empty spec selects the configured source.
func Resolve(spec string, cfg *config.Config) (Source, error) {
	if spec == "" {
		return FromConfig(cfg)
	}

	kind, rest, _ := strings.Cut(spec, ":")
	switch kind {
	case config.SourceBuiltin:
		return Builtin{}, nil
	case config.SourceFile:
		if rest == "" {
			return nil, fmt.Errorf("source %q: missing path", spec)
		}
		return File{Path: rest}, nil
	case config.SourceGit:
		ref, path, _ := strings.Cut(rest, ":")
		if ref == "" {
			ref = cfg.Git.Ref
		}
		if path == "" {
			path = cfg.Git.Path
		}
		return Git{RepoPath: cfg.Git.RepoPath, Ref: ref, Path: path}, nil
	case config.SourceGitHub:
		if cfg.GitHub.Owner == "" || cfg.GitHub.Repo == "" {
			return nil, fmt.Errorf("source %q: github.owner and github.repo must be configured", spec)
		}
		ref := rest
		if ref == "" {
			ref = cfg.GitHub.Ref
		}
		return newGitHubFromConfig(cfg, ref), nil
	default:
		return nil, fmt.Errorf("unknown source %q, expected builtin, file:<path>, git:<ref>[:<path>] or github[:<ref>]", spec)
	}
}

func newGitHubFromConfig(cfg *config.Config, ref string) *GitHub {
	opts := []httpclient.Option{httpclient.WithRateLimit(cfg.RateLimit)}
	if cfg.GitHub.Token != "" {
		opts = append(opts, httpclient.WithToken(cfg.GitHub.Token))
	}

	var fc *cache.FileCache
	if !cfg.NoCache {
		c, err := cache.New(cfg.CacheDir, cfg.TTL())
		if err != nil {
			slog.Warn("failed to create cache, continuing without", "error", err)
		} else {
			fc = c
		}
	}

	return NewGitHub(cfg.GitHub.Owner, cfg.GitHub.Repo, cfg.GitHub.Path, ref, httpclient.New(opts...), fc)
}
