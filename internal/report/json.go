package report

import (
	"encoding/json"
	"io"

	"github.com/phobologic/phpscope/internal/model"
	"github.com/phobologic/phpscope/internal/ranking"
)

type jsonReport struct {
	Root    string     `json:"root,omitempty"`
	Sort    string     `json:"sort"`
	Query   string     `json:"query,omitempty"`
	Summary Summary    `json:"summary"`
	Files   []jsonFile `json:"files"`
	Cycles  [][]string `json:"cycles,omitempty"`
	Skipped []Skipped  `json:"skipped,omitempty"`
}

type jsonFile struct {
	Path              string         `json:"path"`
	Class             string         `json:"class"`
	Lines             int            `json:"lines"`
	LastAccessed      int            `json:"last_accessed_hours"`
	LastCommit        *int           `json:"last_commit_hours,omitempty"`
	Uses              int            `json:"uses"`
	Rank              *float64       `json:"rank,omitempty"`
	AverageComplexity float64        `json:"average_complexity"`
	MaxComplexity     int            `json:"max_complexity"`
	Extends           string         `json:"extends,omitempty"`
	Implements        []string       `json:"implements,omitempty"`
	IsAbstract        bool           `json:"is_abstract"`
	DependencyCount   int            `json:"dependency_count"`
	Dependencies      []string       `json:"dependencies,omitempty"`
	FunctionCount     int            `json:"function_count"`
	Functions         []jsonFunction `json:"functions"`
	SyntaxErrors      []int          `json:"syntax_errors,omitempty"`
}

type jsonFunction struct {
	Name       string       `json:"name"`
	Visibility string       `json:"visibility"`
	ReturnType string       `json:"return_type,omitempty"`
	Params     int          `json:"params"`
	Complexity int          `json:"complexity"`
	IsAbstract bool         `json:"is_abstract,omitempty"`
	Stmts      []model.Stmt `json:"stmts,omitempty"`
}

// JSON writes the report as one indented JSON document.
func JSON(w io.Writer, r *Report, opts Options) error {
	out := jsonReport{
		Root:    r.Root,
		Sort:    r.Sort.String(),
		Query:   r.Query,
		Summary: r.Summary,
		Files:   make([]jsonFile, 0, len(r.Files)),
		Cycles:  r.Cycles,
		Skipped: r.Skipped,
	}
	for i := range r.Files {
		out.Files = append(out.Files, toJSONFile(&r.Files[i], r.Scores, opts))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func toJSONFile(f *model.File, scores ranking.Scores, opts Options) jsonFile {
	c := &f.Class
	jf := jsonFile{
		Path:              f.Path,
		Class:             c.Name,
		Lines:             f.Lines,
		LastAccessed:      f.LastAccessed,
		LastCommit:        f.LastCommit,
		Uses:              scores.Index.Uses(c.Name),
		AverageComplexity: c.AverageComplexity(),
		MaxComplexity:     c.HighestComplexityFunction(),
		Extends:           c.Extends,
		Implements:        c.Implements,
		IsAbstract:        c.IsAbstract,
		DependencyCount:   len(c.Dependencies),
		FunctionCount:     len(c.Functions),
		SyntaxErrors:      f.SyntaxErrors,
	}
	if scores.Ranks != nil {
		rank := scores.Ranks[c.Name]
		jf.Rank = &rank
	}
	if opts.Dependencies {
		jf.Dependencies = c.Dependencies
	}

	fns := ranking.LimitFunctions(c.Functions, opts.Functions)
	jf.Functions = make([]jsonFunction, 0, len(fns))
	for i := range fns {
		fn := &fns[i]
		jfn := jsonFunction{
			Name:       fn.Name,
			Visibility: fn.Visibility.String(),
			ReturnType: fn.ReturnType,
			Params:     fn.Params,
			Complexity: fn.Complexity(),
			IsAbstract: fn.IsAbstract,
		}
		if opts.Statements {
			jfn.Stmts = fn.Stmts
		}
		jf.Functions = append(jf.Functions, jfn)
	}
	return jf
}
