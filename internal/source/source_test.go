package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/everstacklabs/lmregistry/internal/cache"
	"github.com/everstacklabs/lmregistry/internal/config"
	"github.com/everstacklabs/lmregistry/internal/registry"
)

const smallCatalog = `schema_version: "1"
models:
  - key: Phi4MiniInstruct
    id: phi-4-mini-instruct
    provider: openai
    capabilities: [structured_output_simple, completion, tools, tool_choice]
`

const updatedCatalog = `schema_version: "1"
models:
  - key: Phi4MiniInstruct
    id: phi-4-mini-instruct
    provider: openai
    capabilities: [completion]
  - key: MythomaxL213B
    id: mythomax-l2-13b
    provider: openai
    capabilities: [completion]
`

func TestOpenBuiltin(t *testing.T) {
	reg, result, err := Open(context.Background(), Builtin{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if len(result.Issues) != 0 {
		t.Errorf("builtin catalog should have no issues, got %v", result.Issues)
	}
	if reg.Len() != registry.Builtin().Len() {
		t.Errorf("expected %d models, got %d", registry.Builtin().Len(), reg.Len())
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	if err := os.WriteFile(path, []byte(smallCatalog), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, _, err := Open(context.Background(), File{Path: path})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !reg.MustGet(registry.Phi4MiniInstruct).Has(registry.CapabilityToolChoice) {
		t.Error("expected tool_choice on Phi4MiniInstruct")
	}
}

func TestOpenInvalidCatalogNamesTheEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	bad := `schema_version: "1"
models:
  - key: Broken
    id: broken
    provider: openai
    capabilities: [structured_output_simple, structured_output_full]
`
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	_, result, err := Open(context.Background(), File{Path: path})
	if !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("expected ErrInvalidCatalog, got %v", err)
	}
	if result == nil || !result.HasErrors() {
		t.Fatal("expected a validation result with errors")
	}
	if result.Errors()[0].Model != "Broken" {
		t.Errorf("error should name the entry, got %+v", result.Errors()[0])
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, _, err := Open(context.Background(), File{Path: filepath.Join(t.TempDir(), "nope.yaml")})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrInvalidCatalog) {
		t.Error("a missing file is a fetch error, not a validation error")
	}
}

func commitFile(t *testing.T, repo *git.Repository, dir, name, content, msg string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatal(err)
	}
	_, err = wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestGitSourceReadsRevision(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	commitFile(t, repo, dir, "models.yaml", smallCatalog, "initial catalog")
	commitFile(t, repo, dir, "models.yaml", updatedCatalog, "add mythomax")

	head, _, err := Open(context.Background(), Git{RepoPath: dir, Ref: "HEAD", Path: "models.yaml"})
	if err != nil {
		t.Fatalf("Open HEAD failed: %v", err)
	}
	if head.Len() != 2 {
		t.Errorf("HEAD catalog has %d models, want 2", head.Len())
	}

	prev, _, err := Open(context.Background(), Git{RepoPath: dir, Ref: "HEAD~1", Path: "models.yaml"})
	if err != nil {
		t.Fatalf("Open HEAD~1 failed: %v", err)
	}
	if prev.Len() != 1 {
		t.Errorf("HEAD~1 catalog has %d models, want 1", prev.Len())
	}
}

func TestGitSourceMissingPath(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	commitFile(t, repo, dir, "models.yaml", smallCatalog, "initial catalog")

	if _, err := (Git{RepoPath: dir, Ref: "HEAD", Path: "other.yaml"}).Fetch(context.Background()); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func githubServer(t *testing.T, body string, failing *atomic.Bool, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if failing.Load() {
			http.Error(w, `{"message":"unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		if r.URL.Path != "/repos/acme/catalog/contents/models.yaml" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("ref") != "main" {
			t.Errorf("ref = %q, want main", r.URL.Query().Get("ref"))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":     "file",
			"name":     "models.yaml",
			"path":     "models.yaml",
			"sha":      "3d21ec53a331a6f037a91c368710b99387d012c1",
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString([]byte(body)),
		})
	}))
}

func newTestGitHub(t *testing.T, srv *httptest.Server, fc *cache.FileCache) *GitHub {
	t.Helper()
	g := NewGitHub("acme", "catalog", "models.yaml", "main", srv.Client(), fc)
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	g.client.BaseURL = base
	return g
}

func TestGitHubSource(t *testing.T) {
	var failing atomic.Bool
	var hits atomic.Int32
	srv := githubServer(t, smallCatalog, &failing, &hits)
	defer srv.Close()

	reg, _, err := Open(context.Background(), newTestGitHub(t, srv, nil))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if reg.Len() != 1 {
		t.Errorf("expected 1 model, got %d", reg.Len())
	}
}

func TestGitHubSourceUsesCache(t *testing.T) {
	var failing atomic.Bool
	var hits atomic.Int32
	srv := githubServer(t, smallCatalog, &failing, &hits)
	defer srv.Close()

	fc, err := cache.New(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	g := newTestGitHub(t, srv, fc)

	for i := 0; i < 3; i++ {
		if _, err := g.Fetch(context.Background()); err != nil {
			t.Fatalf("Fetch %d failed: %v", i, err)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server saw %d requests, want 1", n)
	}
}

func TestGitHubSourceFallsBackToStaleCache(t *testing.T) {
	var failing atomic.Bool
	var hits atomic.Int32
	srv := githubServer(t, smallCatalog, &failing, &hits)
	defer srv.Close()

	fc, err := cache.New(t.TempDir(), time.Nanosecond)
	if err != nil {
		t.Fatal(err)
	}
	g := newTestGitHub(t, srv, fc)

	if _, err := g.Fetch(context.Background()); err != nil {
		t.Fatalf("first Fetch failed: %v", err)
	}

	failing.Store(true)
	time.Sleep(time.Millisecond)

	body, err := g.Fetch(context.Background())
	if err != nil {
		t.Fatalf("expected stale fallback, got %v", err)
	}
	if string(body) != smallCatalog {
		t.Errorf("unexpected body %q", body)
	}
}

func TestGitHubSourceErrorWithoutCache(t *testing.T) {
	var failing atomic.Bool
	var hits atomic.Int32
	failing.Store(true)
	srv := githubServer(t, smallCatalog, &failing, &hits)
	defer srv.Close()

	if _, err := newTestGitHub(t, srv, nil).Fetch(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestResolve(t *testing.T) {
	cfg := &config.Config{
		Source:    config.SourceBuiltin,
		Git:       config.GitConfig{RepoPath: "/repo", Ref: "HEAD", Path: "models.yaml"},
		GitHub:    config.GitHubConfig{Owner: "acme", Repo: "catalog", Path: "models.yaml", Ref: "main"},
		NoCache:   true,
		RateLimit: 5,
		CacheTTL:  "1h",
	}

	tests := []struct {
		spec string
		name string
	}{
		{"", "builtin"},
		{"builtin", "builtin"},
		{"file:/tmp/models.yaml", "file:/tmp/models.yaml"},
		{"git:v1.2.0", "git:v1.2.0:models.yaml"},
		{"git:HEAD~2:local/models.yaml", "git:HEAD~2:local/models.yaml"},
		{"git", "git:HEAD:models.yaml"},
		{"github", "github:acme/catalog/models.yaml@main"},
		{"github:release", "github:acme/catalog/models.yaml@release"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			src, err := Resolve(tt.spec, cfg)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if src.Name() != tt.name {
				t.Errorf("Name() = %q, want %q", src.Name(), tt.name)
			}
		})
	}

	for _, bad := range []string{"s3:bucket", "file:"} {
		if _, err := Resolve(bad, cfg); err == nil {
			t.Errorf("Resolve(%q) should fail", bad)
		}
	}
}
