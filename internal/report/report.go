// Package report renders analysis results as text, JSON or TOON.
package report

import (
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/phobologic/phpscope/internal/model"
	"github.com/phobologic/phpscope/internal/ranking"
)

// Options controls how much of each class is shown.
type Options struct {
	// Functions limits the functions listed per class; 0 lists all.
	Functions int
	// Dependencies lists each dependency rather than only counting them.
	Dependencies bool
	// Statements lists each function's control statements.
	Statements bool
	// Color enables ANSI styling in text output.
	Color bool
}

// Report is everything a renderer needs. Files holds the already sorted,
// filtered and trimmed selection; Summary describes the whole analyzed set.
type Report struct {
	Root    string
	Sort    ranking.Metric
	Query   string
	Files   []model.File
	Scores  ranking.Scores
	Summary Summary
	Cycles  [][]string
	Skipped []Skipped
}

// Skipped is a file that failed to lex or parse.
type Skipped struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Summary holds project-wide statistics over every analyzed class.
type Summary struct {
	Files             int     `json:"files"`
	Classes           int     `json:"classes"`
	Functions         int     `json:"functions"`
	Lines             int     `json:"lines"`
	MeanComplexity    float64 `json:"mean_complexity"`
	StdDevComplexity  float64 `json:"stddev_complexity"`
	P90Complexity     float64 `json:"p90_complexity"`
	MaxComplexity     int     `json:"max_complexity"`
	MeanDependencies  float64 `json:"mean_dependencies"`
	MostUsed          string  `json:"most_used,omitempty"`
	MostUsedCount     int     `json:"most_used_count,omitempty"`
	SyntaxErrorsFiles int     `json:"syntax_error_files,omitempty"`
}

// Summarize computes statistics over files. Complexity figures use each
// class's average complexity. inputs is the number of files handed to the
// pipeline, including those that declared no class.
func Summarize(files []model.File, index model.Index, inputs int) Summary {
	s := Summary{Files: inputs, Classes: len(files)}
	if len(files) == 0 {
		return s
	}

	avgs := make([]float64, len(files))
	deps := make([]float64, len(files))
	for i := range files {
		c := &files[i].Class
		avgs[i] = c.AverageComplexity()
		deps[i] = float64(len(c.Dependencies))
		s.Functions += len(c.Functions)
		s.Lines += files[i].Lines
		s.MaxComplexity = max(s.MaxComplexity, c.HighestComplexityFunction())
		if len(files[i].SyntaxErrors) > 0 {
			s.SyntaxErrorsFiles++
		}
	}

	s.MeanComplexity = stat.Mean(avgs, nil)
	if len(avgs) > 1 {
		s.StdDevComplexity = stat.StdDev(avgs, nil)
	}
	sort.Float64s(avgs)
	s.P90Complexity = stat.Quantile(0.9, stat.Empirical, avgs, nil)
	s.MeanDependencies = stat.Mean(deps, nil)

	for name, n := range index {
		if n > s.MostUsedCount || (n == s.MostUsedCount && n > 0 && name < s.MostUsed) {
			s.MostUsed, s.MostUsedCount = name, n
		}
	}
	return s
}

// Write renders r in one of config.Formats.
func Write(w io.Writer, format string, r *Report, opts Options) error {
	switch format {
	case "", "text":
		return Text(w, r, opts)
	case "json":
		return JSON(w, r, opts)
	case "toon":
		return TOON(w, r, opts)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// returnTypeLabel is how a function's return type is presented. Constructors
// always return their own class.
func returnTypeLabel(fn *model.Function) string {
	switch {
	case fn.Name == model.Constructor:
		return "self"
	case fn.ReturnType == "":
		return "Not provided"
	default:
		return fn.ReturnType
	}
}
