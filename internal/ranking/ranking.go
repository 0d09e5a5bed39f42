// Package ranking orders and trims analyzed files for presentation.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/phobologic/phpscope/internal/model"
)

// Metric is a sort key for files.
type Metric int

const (
	// Complexity is the class's average function complexity.
	Complexity Metric = iota
	// Uses is the number of classes that depend on the class.
	Uses
	// Dependencies is the number of types the class depends on.
	Dependencies
	// FunctionComplexity is the class's highest single-function complexity.
	FunctionComplexity
	// Rank is the class's PageRank score in the dependency graph.
	Rank
)

var metricNames = []string{
	Complexity:         "complexity",
	Uses:               "uses",
	Dependencies:       "dependencies",
	FunctionComplexity: "function-complexity",
	Rank:               "rank",
}

// MetricNames lists the accepted metric names.
func MetricNames() []string {
	return append([]string(nil), metricNames...)
}

func (m Metric) String() string {
	if m >= 0 && int(m) < len(metricNames) {
		return metricNames[m]
	}
	return fmt.Sprintf("Metric(%d)", int(m))
}

// ParseMetric resolves a metric by name.
func ParseMetric(s string) (Metric, error) {
	for i, name := range metricNames {
		if strings.EqualFold(s, name) {
			return Metric(i), nil
		}
	}
	return 0, fmt.Errorf("unknown sort metric %q (want one of %s)", s, strings.Join(metricNames, ", "))
}

// Scores carries the cross-file data some metrics need.
type Scores struct {
	Index model.Index
	Ranks map[string]float64
}

// Value returns the metric value for f.
func (s Scores) Value(f *model.File, m Metric) float64 {
	switch m {
	case Uses:
		return float64(s.Index.Uses(f.Class.Name))
	case Dependencies:
		return float64(len(f.Class.Dependencies))
	case FunctionComplexity:
		return float64(f.Class.HighestComplexityFunction())
	case Rank:
		return s.Ranks[f.Class.Name]
	default:
		return f.Class.AverageComplexity()
	}
}

// Sort orders files by descending metric value. Ties keep their input order.
func Sort(files []model.File, m Metric, scores Scores) {
	sort.SliceStable(files, func(i, j int) bool {
		return scores.Value(&files[i], m) > scores.Value(&files[j], m)
	})
}

// FilterByName returns the files whose class name contains query, ignoring
// case. An empty query matches everything.
func FilterByName(files []model.File, query string) []model.File {
	if query == "" {
		return files
	}
	lower := strings.ToLower(query)
	var out []model.File
	for i := range files {
		if strings.Contains(strings.ToLower(files[i].Class.Name), lower) {
			out = append(out, files[i])
		}
	}
	return out
}

// SelectFiles returns at most n files. If n is <= 0 or >= len(files), all
// files are returned.
func SelectFiles(files []model.File, n int) []model.File {
	if n <= 0 || n >= len(files) {
		return files
	}
	return files[:n]
}

// LimitFunctions returns at most n of fns; n <= 0 means all.
func LimitFunctions(fns []model.Function, n int) []model.Function {
	if n <= 0 || n >= len(fns) {
		return fns
	}
	return fns[:n]
}

// Options selects which files are presented and in what order.
type Options struct {
	Sort  Metric
	Query string
	Top   int
}

// Apply sorts a copy of files, then filters and truncates it. The input
// slice is left untouched.
func Apply(files []model.File, scores Scores, opts Options) []model.File {
	sorted := append([]model.File(nil), files...)
	Sort(sorted, opts.Sort, scores)
	return SelectFiles(FilterByName(sorted, opts.Query), opts.Top)
}
