// Package discover finds the source files to analyze and loads them.
package discover

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/djherbis/times"
	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/phpscope/internal/lang"
	"github.com/phobologic/phpscope/internal/model"
)

// FileEntry is a discovered source file.
type FileEntry struct {
	Path string // relative to the root, slash-separated
	Size int64
}

// Options controls which files Files returns.
type Options struct {
	// Extensions to accept, with the leading dot. Empty means every
	// extension a registered language claims.
	Extensions []string
	// Exclude holds glob patterns matched against slash-separated relative
	// paths. `**` crosses directories.
	Exclude []string
	// Gitignore honours git's view of the tree: `git ls-files` when the root
	// is a repository, otherwise the root .gitignore.
	Gitignore bool
	// MaxFileSize skips larger files; 0 disables the limit.
	MaxFileSize int64
	Logger      *slog.Logger
}

var skipDirs = map[string]struct{}{
	"node_modules":   {},
	".git":           {},
	".hg":            {},
	".svn":           {},
	".idea":          {},
	".phpunit.cache": {},
}

// Files walks root and returns the matching files sorted by path.
func Files(root string, opts Options) ([]FileEntry, error) {
	excludes, err := compileGlobs(opts.Exclude)
	if err != nil {
		return nil, err
	}
	exts := extensionSet(opts.Extensions)
	log := logger(opts.Logger)

	var gitFiles map[string]struct{}
	var gi *ignore.GitIgnore
	if opts.Gitignore {
		if gitFiles = gitLsFiles(root); gitFiles == nil {
			gi = loadGitignore(root)
		}
	}

	var results []FileEntry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn("skipping unreadable path", "path", path, "err", err)
			return nil
		}
		if path == root {
			return nil
		}
		name := d.Name()
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if matchAny(excludes, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") || d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if !acceptExtension(exts, filepath.Ext(name)) {
			return nil
		}
		if matchAny(excludes, rel) {
			return nil
		}
		if gitFiles != nil {
			if _, ok := gitFiles[rel]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			log.Warn("skipping unreadable file", "path", rel, "err", err)
			return nil
		}
		if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
			log.Info("skipping large file", "path", rel, "size", info.Size(), "limit", opts.MaxFileSize)
			return nil
		}

		results = append(results, FileEntry{Path: rel, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
	return results, nil
}

// Load reads entries relative to root. Files that cannot be read are logged
// and left out, so they never reach the parser. LastAccessed is measured
// against now in whole hours.
func Load(ctx context.Context, root string, entries []FileEntry, now time.Time, log *slog.Logger) ([]model.RawFile, error) {
	log = logger(log)
	files := make([]model.RawFile, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		full := filepath.Join(root, filepath.FromSlash(e.Path))
		// Reading the file may bump its access time.
		accessed := hoursSinceAccess(full, now)
		content, err := os.ReadFile(full)
		if err != nil {
			log.Warn("skipping unreadable file", "path", e.Path, "err", err)
			continue
		}
		files = append(files, model.RawFile{
			Path:         e.Path,
			Content:      string(content),
			LastAccessed: accessed,
		})
	}
	return files, nil
}

func hoursSinceAccess(path string, now time.Time) int {
	ts, err := times.Stat(path)
	if err != nil {
		return 0
	}
	return HoursSince(ts.AccessTime(), now)
}

// HoursSince returns the whole hours between then and now, never negative.
func HoursSince(then, now time.Time) int {
	h := int(now.Sub(then).Hours())
	return max(h, 0)
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func matchAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

func extensionSet(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = struct{}{}
	}
	return set
}

func acceptExtension(set map[string]struct{}, ext string) bool {
	ext = strings.ToLower(ext)
	if set == nil {
		return lang.ForExtension(ext) != ""
	}
	_, ok := set[ext]
	return ok
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}

func gitLsFiles(root string) map[string]struct{} {
	info, err := os.Stat(filepath.Join(root, ".git"))
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
