package gitsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// createPackRepo creates a local git repository containing one rule pack
// and returns its path and branch name.
func createPackRepo(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}

	pack := `
name: remote-pack
layers:
  integrity:
    keywords: ["open the pod bay doors"]
`
	if err := os.WriteFile(filepath.Join(dir, "pack.yaml"), []byte(pack), 0o644); err != nil {
		t.Fatalf("failed to write pack file: %v", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if _, err := worktree.Add("pack.yaml"); err != nil {
		t.Fatalf("failed to add file: %v", err)
	}
	_, err = worktree.Commit("add pack", &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}

	head, err := repo.Head()
	if err != nil {
		t.Fatalf("failed to read HEAD: %v", err)
	}

	return dir, head.Name().Short()
}

// TestNew_Validation tests config validation.
func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "empty repository",
			cfg:     Config{Branch: "main"},
			wantErr: true,
		},
		{
			name:    "empty branch",
			cfg:     Config{Repository: "https://example.com/packs.git"},
			wantErr: true,
		},
		{
			name:    "valid",
			cfg:     Config{Repository: "https://example.com/packs.git", Branch: "main"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestSource_LoadPacks tests cloning a local repository and loading its
// rule packs.
func TestSource_LoadPacks(t *testing.T) {
	repoDir, branch := createPackRepo(t)

	source, err := New(Config{
		Repository: repoDir,
		Branch:     branch,
		LocalPath:  filepath.Join(t.TempDir(), "checkout"),
	}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	packs, err := source.LoadPacks(context.Background())
	if err != nil {
		t.Fatalf("LoadPacks() error = %v", err)
	}
	if len(packs) != 1 {
		t.Fatalf("loaded %d packs, want 1", len(packs))
	}
	if packs[0].Name != "remote-pack" {
		t.Errorf("pack name = %q, want %q", packs[0].Name, "remote-pack")
	}

	// A second load reuses the existing checkout.
	if _, err := source.LoadPacks(context.Background()); err != nil {
		t.Fatalf("second LoadPacks() error = %v", err)
	}
}

// TestSource_Watch_Disabled tests that polling is off by default.
func TestSource_Watch_Disabled(t *testing.T) {
	source, err := New(Config{Repository: "https://example.com/p.git", Branch: "main"}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	events, err := source.Watch(context.Background())
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if events != nil {
		t.Error("Watch() returned a channel with polling disabled, want nil")
	}
}
