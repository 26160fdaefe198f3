package sync

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/studyplan/internal/domain"
	"github.com/conorfennell/studyplan/internal/gitsource"
	"github.com/conorfennell/studyplan/internal/qa"
	"github.com/conorfennell/studyplan/internal/storage"
)

// Generator answers the questions in a text; *qa.Service satisfies it.
type Generator interface {
	Generate(ctx context.Context, text string) (qa.Batch, error)
}

// Report summarises a sync run.
type Report struct {
	Sources int `json:"sources"`
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
	Pairs   int `json:"pairs"`
}

// paperExtensions are the file types read from a source.
var paperExtensions = map[string]bool{".txt": true, ".md": true}

// SourceType classifies a path as a git repository or a local directory.
func SourceType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") || strings.HasPrefix(path, "https://") {
		return storage.SourceGit
	}
	return storage.SourceLocal
}

// AddSource registers a new source feeding setName. Local paths must be
// existing directories and are stored as absolute paths.
func AddSource(ctx context.Context, db *storage.DB, path, setName string) (*storage.Source, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("source path cannot be empty")
	}
	if strings.TrimSpace(setName) == "" {
		return nil, fmt.Errorf("set name cannot be empty")
	}

	sourceType := SourceType(path)
	if sourceType == storage.SourceLocal {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", abs, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", abs)
		}
		path = abs
	} else if _, err := gitUrlToLocalPath(".", path); err != nil {
		return nil, err
	}

	existing, err := db.FindSourceByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("source %s already exists", path)
	}

	id, err := db.InsertSource(ctx, path, sourceType, setName)
	if err != nil {
		return nil, err
	}
	slog.Info("Added source", "id", id, "type", sourceType, "path", path, "set", setName)
	return &storage.Source{ID: id, Path: path, Type: sourceType, SetName: setName}, nil
}

// RunSync iterates over all sources, answers the questions in their papers
// and replaces each source's Q&A set with the result. Failures are logged
// and counted per source; only failing to list sources is returned.
func RunSync(ctx context.Context, db *storage.DB, gen Generator, reposDir string) (Report, error) {
	slog.Info("Starting sync process for all sources...")
	var report Report

	sources, err := db.GetAllSources(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to get sources: %w", err)
	}
	report.Sources = len(sources)

	if len(sources) == 0 {
		slog.Info("No sources configured. Add one with add-source <path/or/url.git> --set <name>")
		return report, nil
	}

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		slog.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		sourceToReconcile := source

		if source.Type == storage.SourceGit {
			localRepoPath, err := gitUrlToLocalPath(reposDir, source.Path)
			if err != nil {
				slog.Error("Error determining local path for git repo", "url", source.Path, "error", err)
				report.Failed++
				continue
			}

			if err := gitsource.Sync(ctx, source.Path, localRepoPath); err != nil {
				slog.Error("Error syncing git repo", "url", source.Path, "error", err)
				report.Failed++
				continue
			}

			sourceToReconcile.Path = localRepoPath
		}

		n, err := reconcileSource(ctx, db, gen, &sourceToReconcile)
		if err != nil {
			slog.Error("Error reconciling source", "id", source.ID, "path", source.Path, "error", err)
			report.Failed++
			continue
		}
		report.Synced++
		report.Pairs += n
	}

	slog.Info("Sync process complete.",
		"sources", report.Sources,
		"synced", report.Synced,
		"failed", report.Failed,
	)
	return report, nil
}

// reconcileSource reads every paper under source.Path and replaces the
// source's set. A batch cut short by rate limiting leaves the set untouched.
func reconcileSource(ctx context.Context, db *storage.DB, gen Generator, source *storage.Source) (int, error) {
	var pairs []domain.QAPair
	var files, failed int

	walkErr := filepath.WalkDir(source.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !paperExtensions[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		text, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		batch, err := gen.Generate(ctx, string(text))
		if err != nil {
			return fmt.Errorf("failed to generate answers for %s: %w", path, err)
		}
		if batch.Limited {
			return fmt.Errorf("answer generation rate limited while reading %s", path)
		}

		files++
		failed += len(batch.Failed)
		pairs = append(pairs, batch.Pairs...)
		return nil
	})
	if walkErr != nil {
		return 0, walkErr
	}

	if err := db.SaveSet(ctx, source.SetName, pairs, storage.SaveReplace); err != nil {
		return 0, err
	}

	if err := db.UpdateSourceLastScanned(ctx, source.ID); err != nil {
		slog.Warn("Failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", source.Path,
		"set", source.SetName,
		"files", files,
		"pairs", len(pairs),
		"unanswered", failed,
	)
	return len(pairs), nil
}

// gitUrlToLocalPath maps a git URL to a checkout directory under baseDir.
// URLs that would resolve outside baseDir are rejected.
func gitUrlToLocalPath(baseDir, repoURL string) (string, error) {
	host, repoPath, err := splitGitURL(repoURL)
	if err != nil {
		return "", err
	}
	if host == "" || hasDotDot(host) || hasDotDot(repoPath) {
		return "", fmt.Errorf("unsafe git URL: %s", repoURL)
	}
	if strings.Trim(repoPath, "/") == "" {
		return "", fmt.Errorf("git URL has no repository path: %s", repoURL)
	}

	localPath := filepath.Join(baseDir, host, strings.TrimSuffix(repoPath, ".git"))
	rel, err := filepath.Rel(baseDir, localPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("git URL %s resolves outside %s", repoURL, baseDir)
	}
	return localPath, nil
}

func splitGitURL(repoURL string) (host, repoPath string, err error) {
	parsedURL, err := url.Parse(repoURL)
	if err == nil && (parsedURL.Scheme == "https" || parsedURL.Scheme == "http") {
		return parsedURL.Hostname(), parsedURL.Path, nil
	}
	if strings.Contains(repoURL, "@") {
		parts := strings.Split(repoURL, ":")
		if len(parts) == 2 {
			hostAndUser := strings.Split(parts[0], "@")
			if len(hostAndUser) == 2 {
				return hostAndUser[1], parts[1], nil
			}
		}
	}
	return "", "", fmt.Errorf("could not parse git URL: %s", repoURL)
}

func hasDotDot(p string) bool {
	for _, part := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return true
		}
	}
	return false
}
