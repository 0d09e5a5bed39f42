// Package lexer turns source text into a flat stream of tokens. It has no
// knowledge of the grammar: keywords come out as plain identifiers.
package lexer

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/phobologic/phpscope/internal/token"
)

var (
	ErrUnterminatedString   = errors.New("unterminated string")
	ErrUnterminatedComment  = errors.New("unterminated block comment")
	ErrUnterminatedHeredoc  = errors.New("unterminated heredoc")
	ErrUnsupportedCharacter = errors.New("unsupported character")
)

// Error is a lexical fault. The character stream cannot continue past it.
type Error struct {
	Line int
	Char rune
	Err  error
}

func (e *Error) Error() string {
	if e.Char != 0 {
		return fmt.Sprintf("line %d: %v %q", e.Line, e.Err, e.Char)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

const byteOrderMark = '\uFEFF'

// Lexer is a cursor over source characters. Each call to Next yields one
// token; the sequence cannot be restarted.
type Lexer struct {
	src  []rune
	pos  int
	line int
	err  error
}

// New returns a lexer positioned at the start of src.
func New(src string) *Lexer {
	runes := []rune(src)
	if len(runes) > 0 && runes[0] == byteOrderMark {
		runes = runes[1:]
	}
	return &Lexer{src: runes, line: 1}
}

// Scan tokenizes all of src.
func Scan(src string) ([]token.Token, error) {
	lx := New(src)
	var tokens []token.Token
	for {
		tok, err := lx.Next()
		if err == io.EOF {
			return tokens, nil
		}
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
}

// Line returns the current line of the cursor.
func (lx *Lexer) Line() int {
	return lx.line
}

// Next returns the next token, io.EOF once the input is exhausted, or a
// *Error. After an error every further call returns the same error.
func (lx *Lexer) Next() (token.Token, error) {
	if lx.err != nil {
		return token.Token{}, lx.err
	}
	tok, err := lx.scan()
	if err != nil {
		lx.err = err
	}
	return tok, err
}

func (lx *Lexer) atEnd() bool {
	return lx.pos >= len(lx.src)
}

func (lx *Lexer) peek() rune {
	return lx.peekAt(0)
}

func (lx *Lexer) peekAt(n int) rune {
	if lx.pos+n >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos+n]
}

func (lx *Lexer) advance() rune {
	c := lx.src[lx.pos]
	lx.pos++
	if c == '\n' {
		lx.line++
	}
	return c
}

func (lx *Lexer) match(c rune) bool {
	if lx.atEnd() || lx.src[lx.pos] != c {
		return false
	}
	lx.advance()
	return true
}

func (lx *Lexer) hasPrefix(s string) bool {
	i := lx.pos
	for _, c := range s {
		if i >= len(lx.src) || lx.src[i] != c {
			return false
		}
		i++
	}
	return true
}

func (lx *Lexer) fail(line int, c rune, err error) error {
	return &Error{Line: line, Char: c, Err: err}
}

func (lx *Lexer) scan() (token.Token, error) {
	for {
		if lx.atEnd() {
			return token.Token{}, io.EOF
		}
		line := lx.line
		c := lx.advance()
		mk := func(k token.Kind, lexeme string) (token.Token, error) {
			return token.Token{Kind: k, Line: line, Lexeme: lexeme}, nil
		}

		switch c {
		case ' ', '\r', '\t', '\n':
			continue
		case '{':
			return mk(token.LeftBrace, "{")
		case '}':
			return mk(token.RightBrace, "}")
		case '(':
			return mk(token.LeftParen, "(")
		case ')':
			return mk(token.RightParen, ")")
		case '[':
			return mk(token.LeftBracket, "[")
		case ']':
			return mk(token.RightBracket, "]")
		case ',':
			return mk(token.Comma, ",")
		case '.':
			return mk(token.Dot, ".")
		case '+':
			return mk(token.Plus, "+")
		case ';':
			return mk(token.Semicolon, ";")
		case '*':
			return mk(token.Star, "*")
		case '?':
			return mk(token.Question, "?")
		case '%':
			return mk(token.Modulo, "%")
		case '@':
			return mk(token.AtSign, "@")
		case '~':
			return mk(token.Tilde, "~")
		case '-':
			if lx.match('>') {
				return mk(token.ThinArrow, "->")
			}
			return mk(token.Minus, "-")
		case '#':
			if lx.peek() == '[' {
				return mk(token.Hash, "#")
			}
			lx.skipLine()
			continue
		case '/':
			if lx.match('*') {
				if err := lx.skipBlockComment(line); err != nil {
					return token.Token{}, err
				}
				continue
			}
			if lx.match('/') {
				lx.skipLine()
				continue
			}
			return mk(token.Slash, "/")
		case ':':
			if lx.match(':') {
				return mk(token.ColonColon, "::")
			}
			return mk(token.Colon, ":")
		case '!':
			if lx.match('=') {
				if lx.match('=') {
					return mk(token.BangEqualEqual, "!==")
				}
				return mk(token.BangEqual, "!=")
			}
			return mk(token.Bang, "!")
		case '=':
			if lx.match('=') {
				if lx.match('=') {
					return mk(token.EqualEqualEqual, "===")
				}
				return mk(token.EqualEqual, "==")
			}
			if lx.match('>') {
				return mk(token.FatArrow, "=>")
			}
			return mk(token.Equal, "=")
		case '>':
			if lx.match('=') {
				return mk(token.GreaterEqual, ">=")
			}
			return mk(token.Greater, ">")
		case '<':
			if lx.hasPrefix("<<") {
				lx.advance()
				lx.advance()
				return lx.heredoc(line)
			}
			if lx.hasPrefix("?php") {
				for range 4 {
					lx.advance()
				}
				return mk(token.PhpTag, "<?php")
			}
			if lx.match('=') {
				return mk(token.LessEqual, "<=")
			}
			return mk(token.Less, "<")
		case '|':
			if lx.match('|') {
				return mk(token.OrOperator, "||")
			}
			return mk(token.Pipe, "|")
		case '&':
			if lx.match('&') {
				return mk(token.AndOperator, "&&")
			}
			return mk(token.Reference, "&")
		case '"', '\'':
			return lx.str(c, line)
		}

		switch {
		case c >= '0' && c <= '9':
			return mk(token.Number, lx.number(c))
		case isIdentStart(c):
			return mk(token.Identifier, lx.identifier(c))
		}
		return token.Token{}, lx.fail(line, c, ErrUnsupportedCharacter)
	}
}

func (lx *Lexer) skipLine() {
	for !lx.atEnd() && lx.peek() != '\n' {
		lx.advance()
	}
}

func (lx *Lexer) skipBlockComment(line int) error {
	for !lx.atEnd() {
		if lx.peek() == '*' && lx.peekAt(1) == '/' {
			lx.advance()
			lx.advance()
			return nil
		}
		lx.advance()
	}
	return lx.fail(line, 0, ErrUnterminatedComment)
}

// str reads a quoted literal. A backslash escapes the character after it.
func (lx *Lexer) str(quote rune, line int) (token.Token, error) {
	var b strings.Builder
	escaped := false
	for !lx.atEnd() {
		c := lx.advance()
		if c == quote && !escaped {
			return token.Token{Kind: token.String, Line: line, Lexeme: b.String()}, nil
		}
		escaped = c == '\\' && !escaped
		b.WriteRune(c)
	}
	return token.Token{}, lx.fail(line, 0, ErrUnterminatedString)
}

func (lx *Lexer) number(first rune) string {
	var b strings.Builder
	b.WriteRune(first)
	for isDigit(lx.peek()) {
		b.WriteRune(lx.advance())
	}
	if lx.peek() == '.' && isDigit(lx.peekAt(1)) {
		b.WriteRune(lx.advance())
		for isDigit(lx.peek()) {
			b.WriteRune(lx.advance())
		}
	}
	return b.String()
}

func (lx *Lexer) identifier(first rune) string {
	var b strings.Builder
	b.WriteRune(first)
	for isIdentPart(lx.peek()) {
		b.WriteRune(lx.advance())
	}
	return b.String()
}

// heredoc reads a heredoc or nowdoc after `<<<`. The body runs until a line
// holding only the marker (optionally indented and followed by punctuation).
func (lx *Lexer) heredoc(line int) (token.Token, error) {
	for lx.peek() == ' ' || lx.peek() == '\t' {
		lx.advance()
	}
	var marker []rune
	if q := lx.peek(); q == '\'' || q == '"' {
		lx.advance()
		for !lx.atEnd() && lx.peek() != q && lx.peek() != '\n' {
			marker = append(marker, lx.advance())
		}
		lx.match(q)
	} else {
		for !lx.atEnd() && lx.peek() != '\n' {
			marker = append(marker, lx.advance())
		}
	}
	marker = []rune(strings.TrimSpace(string(marker)))
	lx.skipLine()
	if lx.atEnd() || len(marker) == 0 {
		return token.Token{}, lx.fail(line, 0, ErrUnterminatedHeredoc)
	}
	lx.advance()

	var body strings.Builder
	lineStart := true
	for !lx.atEnd() {
		if lineStart {
			i := 0
			for c := lx.peekAt(i); c == ' ' || c == '\t'; c = lx.peekAt(i) {
				i++
			}
			if lx.markerAt(i, marker) {
				for range i + len(marker) {
					lx.advance()
				}
				return token.Token{Kind: token.HereDoc, Line: line, Lexeme: body.String()}, nil
			}
		}
		c := lx.advance()
		body.WriteRune(c)
		lineStart = c == '\n'
	}
	return token.Token{}, lx.fail(line, 0, ErrUnterminatedHeredoc)
}

// markerAt compares the marker character by character at offset n and
// requires that it is not the prefix of a longer identifier.
func (lx *Lexer) markerAt(n int, marker []rune) bool {
	for i, c := range marker {
		if lx.peekAt(n+i) != c {
			return false
		}
	}
	return !isIdentPart(lx.peekAt(n + len(marker)))
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c rune) bool {
	return c == '_' || c == '$' || c == '\\' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		(c > unicode.MaxASCII && unicode.IsLetter(c))
}

func isIdentPart(c rune) bool {
	return c == '_' || c == '\\' || unicode.IsLetter(c) || unicode.IsDigit(c)
}
