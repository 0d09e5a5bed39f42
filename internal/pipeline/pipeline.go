// Package pipeline runs the lexer and parser over a batch of source files and
// builds the cross-file usage index.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/phobologic/phpscope/internal/cache"
	"github.com/phobologic/phpscope/internal/config"
	"github.com/phobologic/phpscope/internal/graph"
	"github.com/phobologic/phpscope/internal/keyword"
	"github.com/phobologic/phpscope/internal/lang"
	"github.com/phobologic/phpscope/internal/lexer"
	"github.com/phobologic/phpscope/internal/model"
	"github.com/phobologic/phpscope/internal/parse"
)

// Options controls a batch run.
type Options struct {
	// InheritNamespace lets a file without a namespace directive keep the
	// namespace of the file before it. Files are then parsed one at a time,
	// in input order, and the cache is bypassed.
	InheritNamespace bool
	// OnError is config.OnErrorSkip (default) or config.OnErrorAbort.
	OnError string
	// SyntaxCheck runs the tree-sitter grammar over every parsed file and
	// records the lines it rejects.
	SyntaxCheck bool
	// Workers bounds parallelism; 0 means runtime.NumCPU().
	Workers int
	Cache   *cache.Cache
	// OnProgress is called once per input file. It must be safe for
	// concurrent use.
	OnProgress func()
	Logger     *slog.Logger
}

// Skipped is a file left out of the result because it failed to lex or parse.
type Skipped struct {
	Path string
	Err  error
}

// Result is the outcome of a batch run. Files keeps input order; files that
// declare no class are absent.
type Result struct {
	Index   model.Index
	Files   []model.File
	Skipped []Skipped
}

// FileError ties a lexing or parsing failure to its file.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e *FileError) Unwrap() error { return e.Err }

type outcome struct {
	file  model.File
	found bool
	err   error
}

// Analyze parses files and indexes the classes they declare. With config.OnErrorAbort
// the first failing file stops the run and its *FileError is returned.
func Analyze(ctx context.Context, files []model.RawFile, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	abort := opts.OnError == config.OnErrorAbort
	table := keyword.NewTable()

	start := time.Now()
	var (
		outcomes []outcome
		err      error
	)
	if opts.InheritNamespace {
		outcomes, err = analyzeSequential(ctx, table, files, opts, abort)
	} else {
		outcomes, err = analyzeParallel(ctx, table, files, opts, abort)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for i, o := range outcomes {
		switch {
		case o.err != nil:
			log.Warn("skipping file", "path", files[i].Path, "err", o.err)
			res.Skipped = append(res.Skipped, Skipped{Path: files[i].Path, Err: o.err})
		case o.found:
			res.Files = append(res.Files, o.file)
		}
	}
	res.Index = graph.BuildIndex(res.Files)

	log.Info("analyzed files",
		"input", len(files),
		"classes", len(res.Files),
		"skipped", len(res.Skipped),
		"elapsed", time.Since(start))
	return res, nil
}

func analyzeSequential(ctx context.Context, table *keyword.Table, files []model.RawFile, opts Options, abort bool) ([]outcome, error) {
	w, err := newWorker(table, opts)
	if err != nil {
		return nil, err
	}
	defer w.close()

	outcomes := make([]outcome, len(files))
	for i := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o := w.analyze(ctx, &files[i], nil)
		tick(opts)
		if o.err != nil && abort {
			return nil, &FileError{Path: files[i].Path, Err: o.err}
		}
		outcomes[i] = o
	}
	return outcomes, nil
}

func analyzeParallel(ctx context.Context, table *keyword.Table, files []model.RawFile, opts Options, abort bool) ([]outcome, error) {
	n := opts.Workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	n = max(min(n, len(files)), 1)

	// Each goroutine borrows a worker so parsers and grammar checkers are
	// never shared.
	idle := make(chan *worker, n)
	for range n {
		w, err := newWorker(table, opts)
		if err != nil {
			close(idle)
			for w := range idle {
				w.close()
			}
			return nil, err
		}
		idle <- w
	}
	defer func() {
		close(idle)
		for w := range idle {
			w.close()
		}
	}()

	outcomes := make([]outcome, len(files))
	p := pool.New().WithMaxGoroutines(n).WithContext(ctx).WithCancelOnError().WithFirstError()
	for i := range files {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			w := <-idle
			defer func() { idle <- w }()

			o := w.analyze(ctx, &files[i], opts.Cache)
			tick(opts)
			if o.err != nil && abort {
				return &FileError{Path: files[i].Path, Err: o.err}
			}
			outcomes[i] = o
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		var fe *FileError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, err
	}
	return outcomes, nil
}

func tick(opts Options) {
	if opts.OnProgress != nil {
		opts.OnProgress()
	}
}

type worker struct {
	parser  *parse.Parser
	checker *lang.Checker
	log     *slog.Logger
}

func newWorker(table *keyword.Table, opts Options) (*worker, error) {
	w := &worker{
		parser: parse.New(table, parse.WithInheritNamespace(opts.InheritNamespace)),
		log:    opts.Logger,
	}
	if w.log == nil {
		w.log = slog.New(slog.DiscardHandler)
	}
	if opts.SyntaxCheck {
		c, err := lang.NewChecker("php")
		if err != nil {
			return nil, err
		}
		w.checker = c
	}
	return w, nil
}

func (w *worker) close() {
	if w.checker != nil {
		w.checker.Close()
	}
}

// analyze lexes and parses one file, consulting c first when it is non-nil.
func (w *worker) analyze(ctx context.Context, raw *model.RawFile, c *cache.Cache) outcome {
	if c != nil {
		if e, ok := c.Get(raw.Path, raw.Content); ok {
			w.log.Debug("cache hit", "path", raw.Path)
			if e.Class == nil {
				return outcome{}
			}
			return outcome{file: newFile(raw, *e.Class, e.Lines, e.SyntaxErrors), found: true}
		}
	}

	tokens, err := lexer.Scan(raw.Content)
	if err != nil {
		return outcome{err: err}
	}
	lines := 0
	if len(tokens) > 0 {
		lines = tokens[len(tokens)-1].Line
	}

	class, err := w.parser.ParseUnit(tokens)
	if err != nil {
		return outcome{err: err}
	}

	var syntaxErrors []int
	if class != nil && w.checker != nil {
		syntaxErrors, err = w.checker.Check(ctx, []byte(raw.Content))
		if err != nil {
			w.log.Warn("syntax check failed", "path", raw.Path, "err", err)
		}
	}

	if c != nil {
		c.Put(raw.Path, raw.Content, cache.Entry{Class: class, Lines: lines, SyntaxErrors: syntaxErrors})
	}
	if class == nil {
		w.log.Debug("no class declared", "path", raw.Path)
		return outcome{}
	}
	return outcome{file: newFile(raw, *class, lines, syntaxErrors), found: true}
}

func newFile(raw *model.RawFile, class model.Class, lines int, syntaxErrors []int) model.File {
	return model.File{
		Path:         raw.Path,
		Class:        class,
		Lines:        lines,
		LastAccessed: raw.LastAccessed,
		SyntaxErrors: syntaxErrors,
	}
}
