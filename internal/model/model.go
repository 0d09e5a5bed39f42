// Package model defines the structural profile produced for each analyzed class.
package model

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Constructor is the method name excluded from a class's average complexity.
const Constructor = "__construct"

// Visibility is a member access modifier.
type Visibility int

const (
	Public Visibility = iota
	Private
	Protected
)

var visibilityNames = map[Visibility]string{
	Public:    "public",
	Private:   "private",
	Protected: "protected",
}

func (v Visibility) String() string {
	if s, ok := visibilityNames[v]; ok {
		return s
	}
	return fmt.Sprintf("Visibility(%d)", int(v))
}

// MarshalText implements encoding.TextMarshaler.
func (v Visibility) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Visibility) UnmarshalText(text []byte) error {
	for k, s := range visibilityNames {
		if s == string(text) {
			*v = k
			return nil
		}
	}
	return fmt.Errorf("unknown visibility %q", text)
}

// StmtKind tags a Stmt.
type StmtKind int

const (
	If StmtKind = iota
	Elseif
	For
	Foreach
	Throw
	Catch
	Switch
	Match
)

var stmtKindNames = map[StmtKind]string{
	If:      "if",
	Elseif:  "elseif",
	For:     "for",
	Foreach: "foreach",
	Throw:   "throw",
	Catch:   "catch",
	Switch:  "switch",
	Match:   "match",
}

func (k StmtKind) String() string {
	if s, ok := stmtKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("StmtKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k StmtKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *StmtKind) UnmarshalText(text []byte) error {
	for kind, s := range stmtKindNames {
		if s == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown statement kind %q", text)
}

// Stmt is a control-flow statement that contributes to cyclomatic complexity.
// CaseCount is only meaningful for Switch and Match; Stmts only for Switch,
// which owns the control statements found inside its body.
type Stmt struct {
	Kind      StmtKind `json:"kind"`
	Line      int      `json:"line"`
	CaseCount int      `json:"case_count,omitempty"`
	Stmts     []Stmt   `json:"stmts,omitempty"`
}

// Complexity returns the statement's contribution to its function's score.
func (s Stmt) Complexity() int {
	switch s.Kind {
	case Match:
		return s.CaseCount
	case Switch:
		sum := s.CaseCount
		for _, nested := range s.Stmts {
			sum += nested.Complexity()
		}
		return sum
	default:
		return 1
	}
}

func (s Stmt) String() string {
	switch s.Kind {
	case Match:
		return fmt.Sprintf("%s (line %d, %d arms)", s.Kind, s.Line, s.CaseCount)
	case Switch:
		return fmt.Sprintf("%s (line %d, %d cases, %d nested)", s.Kind, s.Line, s.CaseCount, len(s.Stmts))
	default:
		return fmt.Sprintf("%s (line %d)", s.Kind, s.Line)
	}
}

// Function is a method signature plus the control statements of its body.
// Abstract functions have no statements.
type Function struct {
	Name       string     `json:"name"`
	Stmts      []Stmt     `json:"stmts,omitempty"`
	Params     int        `json:"params"`
	ReturnType string     `json:"return_type,omitempty"`
	Visibility Visibility `json:"visibility"`
	IsAbstract bool       `json:"is_abstract"`
}

// Complexity is 1 for the base path plus each top-level statement's score.
func (f Function) Complexity() int {
	sum := 1
	for _, s := range f.Stmts {
		sum += s.Complexity()
	}
	return sum
}

// Class is the structural profile of one class or trait.
type Class struct {
	Name         string     `json:"name"`
	Functions    []Function `json:"functions"`
	Extends      string     `json:"extends,omitempty"`
	Implements   []string   `json:"implements,omitempty"`
	IsAbstract   bool       `json:"is_abstract"`
	Dependencies []string   `json:"dependencies"`
}

// AddFunction appends fn, registering its return type as a dependency.
func (c *Class) AddFunction(fn Function) {
	if fn.ReturnType != "" {
		c.AddDependency(fn.ReturnType)
	}
	c.Functions = append(c.Functions, fn)
}

// AddDependency records a fully-qualified type name once. Names whose last
// segment does not start with an uppercase letter are not types.
func (c *Class) AddDependency(name string) {
	if !IsTypeName(name) || c.HasDependency(name) {
		return
	}
	c.Dependencies = append(c.Dependencies, name)
}

// HasDependency reports whether name is already recorded.
func (c *Class) HasDependency(name string) bool {
	for _, d := range c.Dependencies {
		if d == name {
			return true
		}
	}
	return false
}

// SortFunctions orders functions by descending complexity, keeping
// declaration order for ties.
func (c *Class) SortFunctions() {
	sort.SliceStable(c.Functions, func(i, j int) bool {
		return c.Functions[i].Complexity() > c.Functions[j].Complexity()
	})
}

// AverageComplexity is the mean function complexity, ignoring the constructor.
// A class without other functions averages 0.
func (c *Class) AverageComplexity() float64 {
	var sum, n int
	for i := range c.Functions {
		if c.Functions[i].Name == Constructor {
			continue
		}
		sum += c.Functions[i].Complexity()
		n++
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// HighestComplexityFunction returns the largest single-function complexity,
// or 0 when the class has no functions.
func (c *Class) HighestComplexityFunction() int {
	highest := 0
	for i := range c.Functions {
		highest = max(highest, c.Functions[i].Complexity())
	}
	return highest
}

// ShortName returns the class name without its namespace.
func (c *Class) ShortName() string {
	return LastSegment(c.Name)
}

// IsTypeName reports whether the last path segment of name starts with an
// uppercase letter.
func IsTypeName(name string) bool {
	seg := LastSegment(name)
	for _, r := range seg {
		return unicode.IsUpper(r)
	}
	return false
}

// LastSegment returns the part of a namespaced name after the final `\`.
func LastSegment(name string) string {
	if i := strings.LastIndexByte(name, '\\'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// RawFile is a source file handed to the pipeline by the file supplier.
type RawFile struct {
	Path         string
	Content      string
	LastAccessed int // whole hours since last access
}

// File is one successfully parsed source file.
type File struct {
	Path         string `json:"path"`
	Class        Class  `json:"class"`
	Lines        int    `json:"lines"`
	LastAccessed int    `json:"last_accessed_hours"`
	LastCommit   *int   `json:"last_commit_hours,omitempty"`
	SyntaxErrors []int  `json:"syntax_errors,omitempty"`
}

// Index maps a fully-qualified class name to the number of classes that
// depend on it.
type Index map[string]int

// Uses returns the usage count for name.
func (idx Index) Uses(name string) int {
	return idx[name]
}
