// Package token defines the lexical tokens produced by the lexer.
package token

import "fmt"

// Kind is the lexical category of a token. Keywords are not separate kinds:
// they are Identifiers classified by a keyword.Table lookup.
type Kind int

const (
	PhpTag Kind = iota
	HereDoc

	LeftParen
	RightParen
	LeftBrace
	RightBrace
	LeftBracket
	RightBracket
	Comma
	Dot
	Minus
	Plus
	Semicolon
	Slash
	Star
	Question
	Colon
	Pipe
	Hash
	Reference
	Modulo
	AtSign
	Tilde

	Bang
	BangEqual
	BangEqualEqual
	Equal
	EqualEqual
	EqualEqualEqual
	Greater
	GreaterEqual
	Less
	LessEqual
	OrOperator
	AndOperator
	FatArrow
	ThinArrow
	ColonColon

	Identifier
	String
	Number
)

var kindNames = [...]string{
	PhpTag:          "<?php",
	HereDoc:         "heredoc",
	LeftParen:       "(",
	RightParen:      ")",
	LeftBrace:       "{",
	RightBrace:      "}",
	LeftBracket:     "[",
	RightBracket:    "]",
	Comma:           ",",
	Dot:             ".",
	Minus:           "-",
	Plus:            "+",
	Semicolon:       ";",
	Slash:           "/",
	Star:            "*",
	Question:        "?",
	Colon:           ":",
	Pipe:            "|",
	Hash:            "#",
	Reference:       "&",
	Modulo:          "%",
	AtSign:          "@",
	Tilde:           "~",
	Bang:            "!",
	BangEqual:       "!=",
	BangEqualEqual:  "!==",
	Equal:           "=",
	EqualEqual:      "==",
	EqualEqualEqual: "===",
	Greater:         ">",
	GreaterEqual:    ">=",
	Less:            "<",
	LessEqual:       "<=",
	OrOperator:      "||",
	AndOperator:     "&&",
	FatArrow:        "=>",
	ThinArrow:       "->",
	ColonColon:      "::",
	Identifier:      "identifier",
	String:          "string",
	Number:          "number",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is a single lexeme with the source line it starts on.
type Token struct {
	Kind   Kind
	Line   int
	Lexeme string
}

// Is reports whether the token has one of the given kinds.
func (t Token) Is(kinds ...Kind) bool {
	for _, k := range kinds {
		if t.Kind == k {
			return true
		}
	}
	return false
}

// IsVariable reports whether the token is a `$`-prefixed identifier.
func (t Token) IsVariable() bool {
	return t.Kind == Identifier && len(t.Lexeme) > 0 && t.Lexeme[0] == '$'
}

func (t Token) String() string {
	switch t.Kind {
	case Identifier, Number:
		return t.Lexeme
	case String:
		return fmt.Sprintf("%q", t.Lexeme)
	default:
		return t.Kind.String()
	}
}
