package report

import (
	"fmt"
	"io"

	"github.com/phobologic/phpscope/internal/ranking"
	"github.com/phobologic/phpscope/internal/toon"
)

// TOON writes the report as a compact TOON document: one files table, plus
// functions, dependencies and implements tables keyed by class name.
func TOON(w io.Writer, r *Report, opts Options) error {
	doc := &toon.Document{}
	if r.Root != "" {
		doc.Field("root", r.Root)
	}
	doc.Field("sort", r.Sort.String())
	if r.Query != "" {
		doc.Field("query", r.Query)
	}
	doc.Field("classes", r.Summary.Classes)
	doc.Field("mean_complexity", r.Summary.MeanComplexity)

	files := doc.Table("files", "path", "class", "lines", "uses", "avg_complexity", "max_complexity", "dependencies", "functions", "extends", "abstract")
	functions := doc.Table("functions", "class", "name", "visibility", "params", "return_type", "complexity", "abstract")
	var deps *toon.Table
	if opts.Dependencies {
		deps = doc.Table("dependencies", "class", "dependency")
	}
	implements := doc.Table("implements", "class", "interface")

	for i := range r.Files {
		f := &r.Files[i]
		c := &f.Class
		files.Append(
			f.Path,
			c.Name,
			f.Lines,
			r.Scores.Index.Uses(c.Name),
			c.AverageComplexity(),
			c.HighestComplexityFunction(),
			len(c.Dependencies),
			len(c.Functions),
			c.Extends,
			c.IsAbstract,
		)
		for _, fn := range ranking.LimitFunctions(c.Functions, opts.Functions) {
			functions.Append(
				c.Name,
				fn.Name,
				fn.Visibility.String(),
				fn.Params,
				fn.ReturnType,
				fn.Complexity(),
				fn.IsAbstract,
			)
		}
		if deps != nil {
			for _, d := range c.Dependencies {
				deps.Append(c.Name, d)
			}
		}
		for _, iface := range c.Implements {
			implements.Append(c.Name, iface)
		}
	}

	if len(r.Cycles) > 0 {
		cycles := doc.Table("cycles", "cycle", "class")
		for i, group := range r.Cycles {
			for _, name := range group {
				cycles.Append(i+1, name)
			}
		}
	}

	_, err := fmt.Fprintln(w, toon.Encode(doc))
	return err
}
