// Package keyword classifies identifier tokens as language keywords and
// built-in types.
package keyword

import (
	"github.com/phobologic/phpscope/internal/model"
	"github.com/phobologic/phpscope/internal/token"
)

// Keyword is a language keyword or built-in type name.
type Keyword int

const (
	If Keyword = iota
	Elseif
	For
	Foreach
	Match
	Switch
	While
	Case
	Throw
	Catch

	Namespace
	Class
	Trait
	Function
	Extends
	Implements
	Abstract
	Use
	As
	Const
	Static
	Readonly

	Public
	Private
	Protected

	String
	Array
	Int
	Float
	Bool
	Iterable
	Mixed
	Void
	Self
)

var names = map[string]Keyword{
	"if":         If,
	"elseif":     Elseif,
	"for":        For,
	"foreach":    Foreach,
	"match":      Match,
	"switch":     Switch,
	"while":      While,
	"case":       Case,
	"throw":      Throw,
	"catch":      Catch,
	"namespace":  Namespace,
	"class":      Class,
	"trait":      Trait,
	"function":   Function,
	"extends":    Extends,
	"implements": Implements,
	"abstract":   Abstract,
	"use":        Use,
	"as":         As,
	"const":      Const,
	"static":     Static,
	"readonly":   Readonly,
	"public":     Public,
	"private":    Private,
	"protected":  Protected,
	"string":     String,
	"array":      Array,
	"int":        Int,
	"float":      Float,
	"bool":       Bool,
	"true":       Bool,
	"false":      Bool,
	"iterable":   Iterable,
	"mixed":      Mixed,
	"void":       Void,
	"self":       Self,
}

// builtinTypes are the lexemes that never denote a user type.
var builtinTypes = []string{
	"string", "array", "int", "float", "bool", "true", "false",
	"iterable", "mixed", "void", "self", "static", "readonly",
}

// Visibility returns the access modifier a keyword denotes, if any.
func (k Keyword) Visibility() (model.Visibility, bool) {
	switch k {
	case Public:
		return model.Public, true
	case Private:
		return model.Private, true
	case Protected:
		return model.Protected, true
	}
	return model.Public, false
}

// IsControl reports whether the keyword starts a complexity-bearing statement.
func (k Keyword) IsControl() bool {
	switch k {
	case If, Elseif, For, Foreach, Switch, Match, Throw, Catch:
		return true
	}
	return false
}

func (k Keyword) String() string {
	for s, kw := range names {
		if kw == k && s != "true" && s != "false" {
			return s
		}
	}
	return "keyword"
}

// Table is the keyword and built-in type lookup shared by the lexer's
// consumers. Build it once with NewTable and pass it by reference; it is
// read-only after construction and safe for concurrent use.
type Table struct {
	keywords map[string]Keyword
	builtins map[string]struct{}
}

// NewTable builds the keyword table.
func NewTable() *Table {
	t := &Table{
		keywords: make(map[string]Keyword, len(names)),
		builtins: make(map[string]struct{}, len(builtinTypes)),
	}
	for s, kw := range names {
		t.keywords[s] = kw
	}
	for _, s := range builtinTypes {
		t.builtins[s] = struct{}{}
	}
	return t
}

// Lookup classifies an identifier token. Non-identifiers are never keywords.
func (t *Table) Lookup(tok token.Token) (Keyword, bool) {
	if tok.Kind != token.Identifier {
		return 0, false
	}
	kw, ok := t.keywords[tok.Lexeme]
	return kw, ok
}

// Is reports whether tok is one of the given keywords.
func (t *Table) Is(tok token.Token, kws ...Keyword) bool {
	kw, ok := t.Lookup(tok)
	if !ok {
		return false
	}
	for _, want := range kws {
		if kw == want {
			return true
		}
	}
	return false
}

// IsBuiltinType reports whether tok names a built-in type.
func (t *Table) IsBuiltinType(tok token.Token) bool {
	if tok.Kind != token.Identifier {
		return false
	}
	_, ok := t.builtins[tok.Lexeme]
	return ok
}
