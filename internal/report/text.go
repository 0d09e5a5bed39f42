package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/phobologic/phpscope/internal/model"
	"github.com/phobologic/phpscope/internal/ranking"
)

type palette struct {
	title   *color.Color
	heading *color.Color
	warn    *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		title:   color.New(color.FgYellow, color.Underline),
		heading: color.New(color.FgYellow, color.Underline),
		warn:    color.New(color.FgRed),
	}
	if !enabled {
		p.title.DisableColor()
		p.heading.DisableColor()
		p.warn.DisableColor()
	}
	return p
}

// textWriter accumulates the first write error so rendering code can stay
// linear.
type textWriter struct {
	w   io.Writer
	err error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *textWriter) colored(c *color.Color, format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = c.Fprintf(t.w, format, args...)
}

// Text writes the human-readable report: a summary table followed by one
// block per selected class.
func Text(w io.Writer, r *Report, opts Options) error {
	p := newPalette(opts.Color)
	out := &textWriter{w: w}

	out.printf("\n* --- ")
	out.colored(p.title, "Summary")
	out.printf(" --- *\n\n")
	if out.err != nil {
		return out.err
	}
	if err := summaryTable(w, r); err != nil {
		return err
	}

	out.printf("\n* --- ")
	out.colored(p.title, "Top Files")
	out.printf(" --- *\n\n")
	if r.Query != "" {
		out.printf("Matching %q, sorted by %s\n\n", r.Query, r.Sort)
	} else {
		out.printf("Sorted by %s\n\n", r.Sort)
	}
	if len(r.Files) == 0 {
		out.printf("No classes found\n")
	}
	for i := range r.Files {
		writeFile(out, p, i+1, &r.Files[i], r.Scores, opts)
	}

	if len(r.Cycles) > 0 {
		out.printf("\n")
		out.colored(p.warn, "Dependency cycles: %d\n", len(r.Cycles))
		for i, group := range r.Cycles {
			out.printf("  %d. %s\n", i+1, strings.Join(group, ", "))
		}
	}

	if len(r.Skipped) > 0 {
		out.printf("\n")
		out.colored(p.warn, "Skipped %d file(s):\n", len(r.Skipped))
		for _, s := range r.Skipped {
			out.printf("  %s: %s\n", s.Path, s.Error)
		}
	}
	return out.err
}

func writeFile(out *textWriter, p palette, n int, f *model.File, scores ranking.Scores, opts Options) {
	class := &f.Class

	out.colored(p.heading, "%d. %s", n, class.Name)
	out.printf("\n")
	out.printf("Last accessed %d hours ago\n", f.LastAccessed)
	if f.LastCommit != nil {
		out.printf("Last commit %d hours ago\n", *f.LastCommit)
	}
	out.printf("Path: %s\n", f.Path)
	out.printf("Lines: %d\n", f.Lines)
	out.printf("Used in %d places\n", scores.Index.Uses(class.Name))
	if scores.Ranks != nil {
		out.printf("Rank: %.4f\n", scores.Ranks[class.Name])
	}

	if len(class.Dependencies) == 0 {
		out.printf("No dependencies\n")
	} else {
		out.printf("Dependencies: %d\n", len(class.Dependencies))
		if opts.Dependencies {
			out.printf("* ------ *\n")
			writeList(out, class.Dependencies)
		}
	}

	out.printf("Average cyclomatic complexity: %s\n", strconv.FormatFloat(class.AverageComplexity(), 'f', -1, 64))
	out.printf("Max cyclomatic complexity: %d\n", class.HighestComplexityFunction())
	out.printf("Functions: %d\n", len(class.Functions))

	extends := class.Extends
	if extends == "" {
		extends = "None"
	}
	out.printf("Extends: %s\n", extends)
	if len(class.Implements) == 0 {
		out.printf("Implements: None\n")
	} else {
		out.printf("Implements:\n")
		for i, iface := range class.Implements {
			out.printf(" %d. %s\n", i+1, iface)
		}
	}
	out.printf("Abstract: %t\n", class.IsAbstract)
	if len(f.SyntaxErrors) > 0 {
		out.colored(p.warn, "Syntax errors on lines: %s", joinInts(f.SyntaxErrors))
		out.printf("\n")
	}

	for _, fn := range ranking.LimitFunctions(class.Functions, opts.Functions) {
		out.printf("* -------- *\n")
		out.printf("  Name: %s\n", fn.Name)
		out.printf("  Visibility: %s\n", fn.Visibility)
		out.printf("  Return type: %s\n", returnTypeLabel(&fn))
		out.printf("  Param count: %d\n", fn.Params)
		out.printf("  Cyclomatic complexity: %d\n", fn.Complexity())
		if fn.IsAbstract {
			out.printf("  Abstract: true\n")
		}
		if opts.Statements {
			for _, s := range fn.Stmts {
				writeStmt(out, s, "  ")
			}
		}
	}
	out.printf("* ---------- *\n")
}

func writeStmt(out *textWriter, s model.Stmt, indent string) {
	out.printf("%s%s\n", indent, s)
	for _, nested := range s.Stmts {
		writeStmt(out, nested, indent+"  ")
	}
}

func writeList(out *textWriter, items []string) {
	for i, item := range items {
		out.printf("  %d. %s\n", i+1, item)
	}
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

func summaryTable(w io.Writer, r *Report) error {
	s := r.Summary
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.Border{
				Left:   tw.Off,
				Right:  tw.Off,
				Top:    tw.Off,
				Bottom: tw.Off,
			},
			Settings: tw.Settings{
				Separators: tw.Separators{
					BetweenColumns: tw.Off,
				},
			},
		}),
	)

	table.Header([]string{"Metric", "Value"})
	rows := [][]string{
		{"Files analyzed", strconv.Itoa(s.Files)},
		{"Classes", strconv.Itoa(s.Classes)},
		{"Functions", strconv.Itoa(s.Functions)},
		{"Lines", strconv.Itoa(s.Lines)},
		{"Mean complexity", fmt.Sprintf("%.2f", s.MeanComplexity)},
		{"Std dev complexity", fmt.Sprintf("%.2f", s.StdDevComplexity)},
		{"P90 complexity", fmt.Sprintf("%.2f", s.P90Complexity)},
		{"Max function complexity", strconv.Itoa(s.MaxComplexity)},
		{"Mean dependencies", fmt.Sprintf("%.2f", s.MeanDependencies)},
	}
	if s.MostUsed != "" {
		rows = append(rows, []string{"Most used", fmt.Sprintf("%s (%d)", s.MostUsed, s.MostUsedCount)})
	}
	if s.SyntaxErrorsFiles > 0 {
		rows = append(rows, []string{"Files with syntax errors", strconv.Itoa(s.SyntaxErrorsFiles)})
	}
	if len(r.Skipped) > 0 {
		rows = append(rows, []string{"Skipped", strconv.Itoa(len(r.Skipped))})
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
