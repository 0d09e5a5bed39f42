// phpscope reports per-class complexity and dependency profiles for PHP
// source trees.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/phobologic/phpscope/internal/cache"
	"github.com/phobologic/phpscope/internal/config"
	"github.com/phobologic/phpscope/internal/discover"
	"github.com/phobologic/phpscope/internal/graph"
	"github.com/phobologic/phpscope/internal/model"
	"github.com/phobologic/phpscope/internal/pipeline"
	"github.com/phobologic/phpscope/internal/progress"
	"github.com/phobologic/phpscope/internal/ranking"
	"github.com/phobologic/phpscope/internal/report"
	"github.com/phobologic/phpscope/internal/vcs"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		_, _ = color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := newApp(stdout, stderr)
	return app.RunContext(ctx, append([]string{app.Name}, reorderArgs(app, args)...))
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "phpscope",
		Usage:     "Rank PHP classes by complexity, usage and dependencies",
		UsageText: "phpscope [flags] [path]",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Description: `phpscope lexes and parses every PHP file under path (default ".") and
prints one profile per class: cyclomatic complexity per method, the types
the class depends on, and how many other classes depend on it.

Settings are read from phpscope.toml (or .yaml/.json) in path, then
overridden by flags.`,
		Flags:           analysisFlags(),
		Action:          runAnalyze,
		HideHelpCommand: true,
		Commands: []*cli.Command{
			dependentsCmd(),
			initCmd(),
			guideCmd(),
		},
	}
}

func analysisFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to config file (TOML, YAML, or JSON)",
			EnvVars: []string{"PHPSCOPE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "output format: " + strings.Join(config.Formats, ", "),
			EnvVars: []string{"PHPSCOPE_FORMAT"},
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "sort metric: " + strings.Join(ranking.MetricNames(), ", "),
		},
		&cli.IntFlag{
			Name:    "top",
			Aliases: []string{"n"},
			Usage:   "number of classes to show (0 for all)",
		},
		&cli.StringFlag{
			Name:    "query",
			Aliases: []string{"q"},
			Usage:   "only show classes whose name contains this text (case-insensitive)",
		},
		&cli.IntFlag{
			Name:  "functions",
			Usage: "functions shown per class (0 for all)",
		},
		&cli.BoolFlag{
			Name:  "no-deps",
			Usage: "count dependencies without listing them",
		},
		&cli.BoolFlag{
			Name:  "no-stmts",
			Usage: "hide the control statements of each function",
		},
		&cli.StringSliceFlag{
			Name:  "ext",
			Usage: "file extensions to analyze (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "glob of paths to skip, e.g. 'tests/**' (repeatable)",
		},
		&cli.Int64Flag{
			Name:  "max-file-size",
			Usage: "skip files larger than this many bytes (0 for no limit)",
		},
		&cli.BoolFlag{
			Name:  "inherit-namespace",
			Usage: "files without a namespace directive keep the previous file's namespace",
		},
		&cli.StringFlag{
			Name:  "on-error",
			Usage: "what to do with a file that fails to parse: skip or abort",
		},
		&cli.IntFlag{
			Name:    "workers",
			Usage:   "parallel parsers (0 for one per CPU)",
			EnvVars: []string{"PHPSCOPE_WORKERS"},
		},
		&cli.BoolFlag{
			Name:  "syntax-check",
			Usage: "cross-check each file with the tree-sitter PHP grammar",
		},
		&cli.BoolFlag{
			Name:  "git",
			Usage: "show hours since each file's last commit",
		},
		&cli.BoolFlag{
			Name:    "cache",
			Usage:   "reuse parse results for unchanged files",
			EnvVars: []string{"PHPSCOPE_CACHE"},
		},
		&cli.StringFlag{
			Name:  "cache-path",
			Usage: "cache file, relative to path unless absolute",
		},
		&cli.BoolFlag{
			Name:  "progress",
			Usage: "draw a progress bar on stderr",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "disable colored output",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "log progress and skipped files to stderr",
		},
	}
}

// loadConfig resolves the config for root and layers explicitly set flags
// over it.
func loadConfig(c *cli.Context, root string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, _, err = config.LoadOrDefault(root)
	}
	if err != nil {
		return nil, err
	}

	if c.IsSet("format") {
		cfg.View.Format = c.String("format")
	}
	if c.IsSet("sort") {
		cfg.View.Sort = c.String("sort")
	}
	if c.IsSet("top") {
		cfg.View.Top = c.Int("top")
	}
	if c.IsSet("functions") {
		cfg.View.Functions = c.Int("functions")
	}
	if c.Bool("no-deps") {
		cfg.View.Dependencies = false
	}
	if c.Bool("no-stmts") {
		cfg.View.Statements = false
	}
	if c.Bool("no-color") {
		cfg.View.Color = false
	}
	if c.IsSet("ext") {
		cfg.Scan.Extensions = c.StringSlice("ext")
	}
	if c.IsSet("exclude") {
		cfg.Scan.Exclude = c.StringSlice("exclude")
	}
	if c.IsSet("max-file-size") {
		cfg.Scan.MaxFileSize = c.Int64("max-file-size")
	}
	if c.IsSet("workers") {
		cfg.Scan.Workers = c.Int("workers")
	}
	if c.IsSet("inherit-namespace") {
		cfg.Parse.InheritNamespace = c.Bool("inherit-namespace")
	}
	if c.IsSet("on-error") {
		cfg.Parse.OnError = c.String("on-error")
	}
	if c.IsSet("syntax-check") {
		cfg.Parse.SyntaxCheck = c.Bool("syntax-check")
	}
	if c.IsSet("git") {
		cfg.Git.Enabled = c.Bool("git")
	}
	if c.IsSet("cache") {
		cfg.Cache.Enabled = c.Bool("cache")
	}
	if c.IsSet("cache-path") {
		cfg.Cache.Path = c.String("cache-path")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := ranking.ParseMetric(cfg.View.Sort); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(c *cli.Context) *slog.Logger {
	level := slog.LevelWarn
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))
}

func resolveRoot(arg string) (string, error) {
	if arg == "" {
		arg = "."
	}
	root, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: not a directory", root)
	}
	return root, nil
}

// analysis is the outcome of scanning and parsing one root.
type analysis struct {
	root   string
	cfg    *config.Config
	inputs int
	result *pipeline.Result
}

// analyze runs discovery, loading, parsing, and optional git enrichment.
func analyze(c *cli.Context, rootArg string) (*analysis, error) {
	root, err := resolveRoot(rootArg)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(c, root)
	if err != nil {
		return nil, err
	}
	log := newLogger(c)
	ctx := c.Context

	entries, err := discover.Files(root, discover.Options{
		Extensions:  cfg.Scan.Extensions,
		Exclude:     cfg.Scan.Exclude,
		Gitignore:   cfg.Scan.Gitignore,
		MaxFileSize: cfg.Scan.MaxFileSize,
		Logger:      log,
	})
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no parseable files found")
	}

	start := time.Now()
	raw, err := discover.Load(ctx, root, entries, time.Now(), log)
	if err != nil {
		return nil, fmt.Errorf("reading files: %w", err)
	}
	log.Info("read files", "count", len(raw), "elapsed", time.Since(start))

	var pc *cache.Cache
	if cfg.Cache.Enabled {
		if cfg.Parse.InheritNamespace {
			log.Warn("cache disabled: inherit_namespace makes results depend on file order")
		} else {
			pc = cache.Open(cachePath(root, cfg.Cache.Path), cacheSettings(cfg))
		}
	}

	tracker := progress.Disabled()
	if c.Bool("progress") {
		tracker = progress.New(c.App.ErrWriter, "parsing", len(raw))
	}
	res, err := pipeline.Analyze(ctx, raw, pipeline.Options{
		InheritNamespace: cfg.Parse.InheritNamespace,
		OnError:          cfg.Parse.OnError,
		SyntaxCheck:      cfg.Parse.SyntaxCheck,
		Workers:          cfg.Scan.Workers,
		Cache:            pc,
		OnProgress:       tracker.Tick,
		Logger:           log,
	})
	tracker.Finish()
	if err != nil {
		return nil, err
	}

	if pc != nil {
		paths := make([]string, len(raw))
		for i := range raw {
			paths[i] = raw[i].Path
		}
		pc.Prune(paths)
		if err := pc.Save(); err != nil {
			log.Warn("could not save cache", "err", err)
		}
	}

	if cfg.Git.Enabled {
		annotateCommits(ctx, root, res.Files, log)
	}
	return &analysis{root: root, cfg: cfg, inputs: len(raw), result: res}, nil
}

func cachePath(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// cacheSettings fingerprints the options that change what a cached entry
// holds.
func cacheSettings(cfg *config.Config) string {
	return "syntax_check=" + strconv.FormatBool(cfg.Parse.SyntaxCheck)
}

func annotateCommits(ctx context.Context, root string, files []model.File, log *slog.Logger) {
	repo, err := vcs.Open(root)
	if err != nil {
		if errors.Is(err, vcs.ErrNotRepository) {
			log.Warn("git history unavailable", "root", root)
		} else {
			log.Warn("git history unavailable", "err", err)
		}
		return
	}
	paths := make([]string, len(files))
	for i := range files {
		paths[i] = files[i].Path
	}
	hours, err := repo.LastCommitHours(ctx, paths, time.Now())
	if err != nil {
		log.Warn("reading git history", "err", err)
		return
	}
	for i := range files {
		if h, ok := hours[files[i].Path]; ok {
			files[i].LastCommit = &h
		}
	}
}

func runAnalyze(c *cli.Context) error {
	if c.NArg() > 1 {
		return fmt.Errorf("expected at most one path, got %d", c.NArg())
	}
	a, err := analyze(c, c.Args().First())
	if err != nil {
		return err
	}
	cfg := a.cfg

	metric, err := ranking.ParseMetric(cfg.View.Sort)
	if err != nil {
		return err
	}
	scores := ranking.Scores{Index: a.result.Index}
	if metric == ranking.Rank {
		scores.Ranks = graph.Rank(a.result.Files)
	}
	query := c.String("query")
	selected := ranking.Apply(a.result.Files, scores, ranking.Options{
		Sort:  metric,
		Query: query,
		Top:   cfg.View.Top,
	})

	rep := &report.Report{
		Root:    filepath.Base(a.root),
		Sort:    metric,
		Query:   query,
		Files:   selected,
		Scores:  scores,
		Summary: report.Summarize(a.result.Files, a.result.Index, a.inputs),
		Cycles:  graph.Cycles(a.result.Files),
	}
	for _, s := range a.result.Skipped {
		rep.Skipped = append(rep.Skipped, report.Skipped{Path: s.Path, Error: s.Err.Error()})
	}

	return report.Write(c.App.Writer, cfg.View.Format, rep, report.Options{
		Functions:    cfg.View.Functions,
		Dependencies: cfg.View.Dependencies,
		Statements:   cfg.View.Statements,
		Color:        cfg.View.Color,
	})
}

func dependentsCmd() *cli.Command {
	return &cli.Command{
		Name:      "dependents",
		Usage:     "List the classes that depend on a class",
		ArgsUsage: "<class> [path]",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 || c.NArg() > 2 {
				return fmt.Errorf("usage: phpscope dependents <class> [path]")
			}
			name := strings.TrimPrefix(c.Args().Get(0), `\`)
			a, err := analyze(c, c.Args().Get(1))
			if err != nil {
				return err
			}

			target := matchClass(a.result.Files, a.result.Index, name)
			deps := graph.Dependents(a.result.Files, target)
			w := c.App.Writer
			if len(deps) == 0 {
				_, err := fmt.Fprintf(w, "No classes depend on %s\n", target)
				return err
			}
			if _, err := fmt.Fprintf(w, "%s is used by %d classes:\n", target, len(deps)); err != nil {
				return err
			}
			for i, d := range deps {
				if _, err := fmt.Fprintf(w, "  %d. %s\n", i+1, d); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// matchClass resolves a user-supplied class name against the index. An exact
// fully-qualified name wins; otherwise a unique short-name match is used.
func matchClass(files []model.File, index model.Index, name string) string {
	for _, candidate := range []string{name, `\` + name} {
		if _, ok := index[candidate]; ok {
			return candidate
		}
	}
	var found string
	for i := range files {
		if files[i].Class.ShortName() == name {
			if found != "" {
				return name
			}
			found = files[i].Class.Name
		}
	}
	if found == "" {
		return name
	}
	return found
}

// valueFlags returns the spellings of every root flag that consumes the next
// argument.
func valueFlags(app *cli.App) map[string]bool {
	out := make(map[string]bool)
	for _, f := range app.Flags {
		if _, isBool := f.(*cli.BoolFlag); isBool {
			continue
		}
		for _, name := range f.Names() {
			out["-"+name] = true
			out["--"+name] = true
		}
	}
	return out
}

// reorderArgs moves positional arguments after all flags so the root command
// accepts `phpscope src --top 5`; urfave/cli stops parsing flags at the first
// positional argument. Subcommand invocations are left untouched.
func reorderArgs(app *cli.App, args []string) []string {
	withValue := valueFlags(app)
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i:]...)
			break
		}
		if len(args[i]) > 0 && args[i][0] == '-' {
			flags = append(flags, args[i])
			if withValue[args[i]] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
			continue
		}
		if len(positional) == 0 && app.Command(args[i]) != nil {
			// Everything from the subcommand on belongs to it.
			return append(flags, args[i:]...)
		}
		positional = append(positional, args[i])
	}
	return append(flags, positional...)
}
