package sync

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conorfennell/studyplan/internal/domain"
	"github.com/conorfennell/studyplan/internal/qa"
	"github.com/conorfennell/studyplan/internal/storage"
)

// fakeGenerator turns every non-empty line into a pair.
type fakeGenerator struct {
	limited bool
	texts   []string
}

func (f *fakeGenerator) Generate(ctx context.Context, text string) (qa.Batch, error) {
	f.texts = append(f.texts, text)
	var batch qa.Batch
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			batch.Pairs = append(batch.Pairs, domain.QAPair{Question: line, Answer: "A"})
		}
	}
	batch.Total = len(batch.Pairs)
	batch.Limited = f.limited
	return batch, nil
}

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "studyplan.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func writePapers(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return dir
}

func TestRunSyncLocalSource(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	dir := writePapers(t, map[string]string{
		"2023.txt":        "1. Define a graph",
		"notes/2024.md":   "1. Explain BFS\n2. Explain DFS",
		"scan.pdf":        "ignored",
		".git/config.txt": "ignored",
	})

	if _, err := AddSource(ctx, db, dir, "graphs"); err != nil {
		t.Fatalf("Failed to add source: %v", err)
	}

	gen := &fakeGenerator{}
	report, err := RunSync(ctx, db, gen, t.TempDir())
	if err != nil {
		t.Fatalf("RunSync failed: %v", err)
	}
	if report.Sources != 1 || report.Synced != 1 || report.Failed != 0 || report.Pairs != 3 {
		t.Errorf("Unexpected report %+v", report)
	}
	if len(gen.texts) != 2 {
		t.Errorf("Expected 2 papers to be read, but got %d", len(gen.texts))
	}

	set, err := db.LoadSet(ctx, "graphs")
	if err != nil {
		t.Fatalf("Failed to load set: %v", err)
	}
	if len(set.Pairs) != 3 || set.Pairs[0].Question != "1. Define a graph" {
		t.Errorf("Unexpected pairs %+v", set.Pairs)
	}

	src, _ := db.FindSourceByPath(ctx, dir)
	if src == nil || !src.LastScanned.Valid {
		t.Errorf("Expected last scanned to be set, but got %+v", src)
	}

	// Syncing again replaces rather than appends.
	if _, err := RunSync(ctx, db, gen, t.TempDir()); err != nil {
		t.Fatalf("RunSync failed: %v", err)
	}
	set, _ = db.LoadSet(ctx, "graphs")
	if len(set.Pairs) != 3 {
		t.Errorf("Expected 3 pairs after resync, but got %d", len(set.Pairs))
	}
}

func TestRunSyncRateLimitedKeepsSet(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	dir := writePapers(t, map[string]string{"paper.txt": "1. Define a tree"})

	if err := db.SaveSet(ctx, "trees", []domain.QAPair{{Question: "old"}}, storage.SaveNew); err != nil {
		t.Fatalf("Failed to seed set: %v", err)
	}
	if _, err := AddSource(ctx, db, dir, "trees"); err != nil {
		t.Fatalf("Failed to add source: %v", err)
	}

	report, err := RunSync(ctx, db, &fakeGenerator{limited: true}, t.TempDir())
	if err != nil {
		t.Fatalf("RunSync failed: %v", err)
	}
	if report.Failed != 1 || report.Synced != 0 {
		t.Errorf("Expected the source to fail, but got %+v", report)
	}

	set, _ := db.LoadSet(ctx, "trees")
	if len(set.Pairs) != 1 || set.Pairs[0].Question != "old" {
		t.Errorf("Expected the old set to survive, but got %+v", set.Pairs)
	}
}

func TestRunSyncMissingDirectoryIsCounted(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	dir := writePapers(t, map[string]string{"paper.txt": "1. Q"})

	if _, err := AddSource(ctx, db, dir, "s"); err != nil {
		t.Fatalf("Failed to add source: %v", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("Failed to remove dir: %v", err)
	}

	report, err := RunSync(ctx, db, &fakeGenerator{}, t.TempDir())
	if err != nil {
		t.Fatalf("Expected RunSync to carry on, but got %v", err)
	}
	if report.Failed != 1 {
		t.Errorf("Expected 1 failed source, but got %+v", report)
	}
}

func TestRunSyncNoSources(t *testing.T) {
	report, err := RunSync(context.Background(), openTestDB(t), &fakeGenerator{}, t.TempDir())
	if err != nil || report.Sources != 0 {
		t.Errorf("Expected an empty report, but got %+v, %v", report, err)
	}
}

func TestAddSource(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "paper.txt")
	os.WriteFile(file, []byte("x"), 0o644)

	testCases := []struct {
		name    string
		path    string
		set     string
		wantErr bool
		want    string
	}{
		{"local directory", dir, "a", false, storage.SourceLocal},
		{"duplicate", dir, "b", true, ""},
		{"git url", "https://github.com/u/papers.git", "c", false, storage.SourceGit},
		{"file is not a directory", file, "d", true, ""},
		{"missing set name", "git@github.com:u/p.git", " ", true, ""},
		{"empty path", "", "e", true, ""},
		{"git url escaping the repos dir", "https://example.com/../../../etc/cron.d/x.git", "f", true, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src, err := AddSource(ctx, db, tc.path, tc.set)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Expected error %v, but got %v", tc.wantErr, err)
			}
			if err == nil && src.Type != tc.want {
				t.Errorf("Expected type %s, but got %s", tc.want, src.Type)
			}
		})
	}
}

func TestSourceType(t *testing.T) {
	testCases := map[string]string{
		"https://github.com/u/papers": storage.SourceGit,
		"git@github.com:u/papers.git": storage.SourceGit,
		"/srv/papers.git":             storage.SourceGit,
		"/home/student/papers":        storage.SourceLocal,
		"./papers":                    storage.SourceLocal,
	}
	for path, want := range testCases {
		if got := SourceType(path); got != want {
			t.Errorf("SourceType(%q): expected %s, but got %s", path, want, got)
		}
	}
}

func TestGitUrlToLocalPath(t *testing.T) {
	testCases := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://github.com/u/papers.git", filepath.Join("repos", "github.com", "u", "papers"), false},
		{"http://example.com/team/exams", filepath.Join("repos", "example.com", "team", "exams"), false},
		{"git@github.com:u/papers.git", filepath.Join("repos", "github.com", "u", "papers"), false},
		{"not a url", "", true},
		{"https://example.com/../../../etc/cron.d/x.git", "", true},
		{"https://../../tmp/evil.git", "", true},
		{"git@github.com:../../tmp/evil.git", "", true},
		{"git@..:u/papers.git", "", true},
		{"https://github.com/u/..\\..\\evil.git", "", true},
		{"https://github.com/", "", true},
	}
	for _, tc := range testCases {
		got, err := gitUrlToLocalPath("repos", tc.url)
		if (err != nil) != tc.wantErr {
			t.Errorf("gitUrlToLocalPath(%q): expected error %v, but got %v", tc.url, tc.wantErr, err)
		}
		if got != tc.want {
			t.Errorf("gitUrlToLocalPath(%q): expected %q, but got %q", tc.url, tc.want, got)
		}
	}
}
