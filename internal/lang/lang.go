// Package lang provides a language registry mapping file extensions to
// tree-sitter grammars, and a grammar-based syntax check that runs alongside
// the hand-written parser.
package lang

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// Language holds tree-sitter configuration for a supported language.
type Language struct {
	Name       string
	Extensions []string
	lang       *sitter.Language
}

// GetLanguage returns the tree-sitter Language pointer.
func (l *Language) GetLanguage() *sitter.Language {
	return l.lang
}

// NewParser creates a fresh tree-sitter parser for this language.
// Each goroutine must use its own parser (not thread-safe).
func (l *Language) NewParser() *sitter.Parser {
	p := sitter.NewParser()
	p.SetLanguage(l.lang)
	return p
}

// Languages maps language names to their configuration.
// Populated by init() functions in per-language files.
var Languages = map[string]*Language{}

var extensionMap map[string]string
var extensionOnce sync.Once

func getExtensionMap() map[string]string {
	extensionOnce.Do(func() {
		extensionMap = make(map[string]string)
		for _, l := range Languages {
			for _, ext := range l.Extensions {
				extensionMap[ext] = l.Name
			}
		}
	})
	return extensionMap
}

// ForExtension returns the language name for a file extension, or "" if
// unsupported. Matching ignores case.
func ForExtension(ext string) string {
	return getExtensionMap()[strings.ToLower(ext)]
}

// Checker reports syntax errors using a tree-sitter grammar. A Checker owns
// its parser and must not be shared between goroutines.
type Checker struct {
	parser *sitter.Parser
}

// NewChecker returns a checker for the named language.
func NewChecker(name string) (*Checker, error) {
	l, ok := Languages[name]
	if !ok {
		return nil, fmt.Errorf("language %q not registered", name)
	}
	return &Checker{parser: l.NewParser()}, nil
}

// Check parses source and returns the sorted, distinct 1-based lines on which
// the grammar found an ERROR node or had to insert a MISSING node. A nil
// slice means the source parsed cleanly.
func (c *Checker) Check(ctx context.Context, source []byte) ([]int, error) {
	if len(source) == 0 {
		return nil, nil
	}
	tree, err := c.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}
	seen := make(map[int]struct{})
	collectErrors(root, seen)

	lines := make([]int, 0, len(seen))
	for line := range seen {
		lines = append(lines, line)
	}
	sort.Ints(lines)
	return lines, nil
}

// Close releases the underlying parser.
func (c *Checker) Close() {
	c.parser.Close()
}

func collectErrors(node *sitter.Node, seen map[int]struct{}) {
	if node.IsMissing() || node.Type() == "ERROR" {
		seen[int(node.StartPoint().Row)+1] = struct{}{}
	}
	if !node.HasError() {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil {
			collectErrors(child, seen)
		}
	}
}
