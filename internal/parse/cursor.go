package parse

import (
	"github.com/phobologic/phpscope/internal/keyword"
	"github.com/phobologic/phpscope/internal/token"
)

func (p *Parser) atEnd() bool {
	return p.pos >= len(p.tokens)
}

// line returns the line of the most recently consumed token.
func (p *Parser) line() int {
	switch {
	case len(p.tokens) == 0:
		return 0
	case p.pos == 0:
		return p.tokens[0].Line
	}
	return p.tokens[min(p.pos, len(p.tokens))-1].Line
}

// next consumes one token and keeps the bracket stack in step with it.
// Only parentheses and braces are tracked.
func (p *Parser) next() (token.Token, error) {
	if p.atEnd() {
		if len(p.brackets) > 0 {
			return token.Token{}, p.unclosed()
		}
		return token.Token{}, &Error{Line: p.line(), Found: "end of input", Err: ErrUnexpectedEndOfTokens}
	}
	tok := p.tokens[p.pos]
	p.pos++

	switch tok.Kind {
	case token.LeftParen, token.LeftBrace:
		p.brackets = append(p.brackets, tok)
	case token.RightParen, token.RightBrace:
		if len(p.brackets) == 0 {
			return tok, &Error{Line: tok.Line, Found: tok.Lexeme, Err: ErrUnmatchedClosingBracket}
		}
		open := p.brackets[len(p.brackets)-1]
		want := closerOf(open.Kind)
		if tok.Kind != want {
			return tok, &Error{Line: tok.Line, Expected: want.String(), Found: tok.Lexeme, Err: ErrUnmatchedClosingBracket}
		}
		p.brackets = p.brackets[:len(p.brackets)-1]
	}
	return tok, nil
}

func closerOf(k token.Kind) token.Kind {
	if k == token.LeftParen {
		return token.RightParen
	}
	return token.RightBrace
}

// unclosed reports the innermost bracket still open at end of input.
func (p *Parser) unclosed() error {
	open := p.brackets[len(p.brackets)-1]
	return &Error{
		Line:     open.Line,
		Expected: closerOf(open.Kind).String(),
		Found:    "end of input",
		Err:      ErrUnmatchedOpeningBracket,
	}
}

func (p *Parser) peekAt(n int) (token.Token, bool) {
	if p.pos+n >= len(p.tokens) {
		return token.Token{}, false
	}
	return p.tokens[p.pos+n], true
}

func (p *Parser) peekIs(kinds ...token.Kind) bool {
	tok, ok := p.peekAt(0)
	return ok && tok.Is(kinds...)
}

func (p *Parser) peekKeyword(kws ...keyword.Keyword) bool {
	tok, ok := p.peekAt(0)
	return ok && p.table.Is(tok, kws...)
}

// peekNameAt reports whether the token n places ahead can name a declaration.
func (p *Parser) peekNameAt(n int) bool {
	tok, ok := p.peekAt(n)
	if !ok || tok.Kind != token.Identifier || tok.IsVariable() {
		return false
	}
	_, isKeyword := p.table.Lookup(tok)
	return !isKeyword
}

// expect consumes the next token and fails unless it has the given kind.
func (p *Parser) expect(kind token.Kind) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if tok.Kind != kind {
		return &Error{Line: tok.Line, Expected: kind.String(), Found: tok.Lexeme, Err: ErrUnexpectedToken}
	}
	return nil
}

// skipWithin consumes up to n tokens. It stops early at end of input or once
// a closing bracket brings the stack down to depth.
func (p *Parser) skipWithin(n, depth int) error {
	for range n {
		if p.atEnd() || len(p.brackets) <= depth {
			return nil
		}
		if _, err := p.next(); err != nil {
			return err
		}
	}
	return nil
}

// synchronize discards tokens through the next `;`. It also stops when a
// closing bracket leaves the scope it started in, so an unterminated member
// cannot swallow the rest of its class.
func (p *Parser) synchronize() error {
	start := len(p.brackets)
	for {
		tok, err := p.next()
		if err != nil {
			return err
		}
		if tok.Kind == token.Semicolon || len(p.brackets) < start {
			return nil
		}
	}
}
