package parse

import (
	"github.com/phobologic/phpscope/internal/keyword"
	"github.com/phobologic/phpscope/internal/model"
	"github.com/phobologic/phpscope/internal/token"
)

// function parses a method after its `function` keyword. Parameter and
// return types are registered on class, not on the function.
func (p *Parser) function(visibility model.Visibility, class *model.Class) (model.Function, error) {
	fn := model.Function{Visibility: visibility}

	name, err := p.next()
	if err != nil {
		return fn, err
	}
	if name.Kind == token.Reference {
		if name, err = p.next(); err != nil {
			return fn, err
		}
	}
	fn.Name = name.Lexeme

	if fn.Params, err = p.params(class); err != nil {
		return fn, err
	}
	if p.peekIs(token.Colon) {
		if fn.ReturnType, err = p.returnType(class); err != nil {
			return fn, err
		}
	}

	depth := len(p.brackets)
	open, err := p.next()
	if err != nil {
		return fn, err
	}
	if open.Kind == token.Semicolon {
		fn.IsAbstract = true
		return fn, nil
	}
	for len(p.brackets) > depth {
		stmt, ok, err := p.stmt(depth)
		if err != nil {
			return fn, err
		}
		if ok {
			fn.Stmts = append(fn.Stmts, stmt)
		}
	}
	return fn, nil
}

// params consumes the parenthesized parameter list and returns the number of
// parameters. Default values are skipped without inspection.
func (p *Parser) params(class *model.Class) (int, error) {
	depth := len(p.brackets)
	if err := p.expect(token.LeftParen); err != nil {
		return 0, err
	}
	count := 0
	inDefault := false
	for len(p.brackets) > depth {
		tok, err := p.next()
		if err != nil {
			return count, err
		}
		atParamLevel := len(p.brackets) == depth+1
		switch {
		case tok.Kind == token.Comma && atParamLevel:
			inDefault = false
		case inDefault:
		case tok.Kind == token.Equal:
			inDefault = true
		case tok.IsVariable():
			count++
		case tok.Is(token.ColonColon, token.ThinArrow):
			if err := p.skipWithin(1, depth); err != nil {
				return count, err
			}
		default:
			if typ, ok := p.userType(tok); ok {
				class.AddDependency(typ)
			}
		}
	}
	return count, nil
}

// returnType reads `: [?]Type` including union and intersection members up
// to the body or the terminating `;`. The first named type is the function's
// return type; the remaining user types become class dependencies.
func (p *Parser) returnType(class *model.Class) (string, error) {
	if _, err := p.next(); err != nil {
		return "", err
	}
	var first string
	for !p.atEnd() && !p.peekIs(token.LeftBrace, token.Semicolon) {
		tok, err := p.next()
		if err != nil {
			return first, err
		}
		if tok.Kind != token.Identifier || tok.IsVariable() {
			continue
		}
		if first == "" {
			first = p.resolve(tok)
			continue
		}
		if typ, ok := p.userType(tok); ok {
			class.AddDependency(typ)
		}
	}
	return first, nil
}

// stmt parses one token of a body whose enclosing bracket depth is depth and
// reports whether it started a control statement.
func (p *Parser) stmt(depth int) (model.Stmt, bool, error) {
	tok, err := p.next()
	if err != nil {
		return model.Stmt{}, false, err
	}
	if tok.Kind != token.Identifier {
		// $this->match() and Foo::for() are member accesses, not statements.
		if tok.Is(token.ColonColon, token.ThinArrow) {
			return model.Stmt{}, false, p.skipWithin(3, depth)
		}
		return model.Stmt{}, false, nil
	}
	kw, ok := p.table.Lookup(tok)
	if !ok || !kw.IsControl() {
		return model.Stmt{}, false, nil
	}
	return p.control(kw, tok.Line)
}

var controlKinds = map[keyword.Keyword]model.StmtKind{
	keyword.If:      model.If,
	keyword.Elseif:  model.Elseif,
	keyword.For:     model.For,
	keyword.Foreach: model.Foreach,
	keyword.Throw:   model.Throw,
	keyword.Catch:   model.Catch,
}

func (p *Parser) control(kw keyword.Keyword, line int) (model.Stmt, bool, error) {
	switch kw {
	case keyword.Switch:
		s, err := p.switchStmt(line)
		return s, err == nil, err
	case keyword.Match:
		s, err := p.matchStmt(line)
		return s, err == nil, err
	}
	kind, ok := controlKinds[kw]
	if !ok {
		return model.Stmt{}, false, nil
	}
	return model.Stmt{Kind: kind, Line: line}, true, nil
}

// switchStmt scans a switch body, counting case labels and collecting the
// control statements found anywhere inside it.
func (p *Parser) switchStmt(line int) (model.Stmt, error) {
	s := model.Stmt{Kind: model.Switch, Line: line}
	depth := len(p.brackets)
	for {
		if p.atEnd() {
			return s, &Error{Line: line, Expected: "}", Found: "end of input", Err: ErrUnterminatedSwitch}
		}
		tok, err := p.next()
		if err != nil {
			return s, err
		}
		switch tok.Kind {
		case token.RightBrace:
			if len(p.brackets) == depth {
				return s, nil
			}
		case token.ColonColon, token.ThinArrow:
			if err := p.skipWithin(1, depth); err != nil {
				return s, err
			}
		case token.Identifier:
			kw, ok := p.table.Lookup(tok)
			if !ok {
				continue
			}
			if kw == keyword.Case {
				s.CaseCount++
				continue
			}
			nested, ok, err := p.control(kw, tok.Line)
			if err != nil {
				return s, err
			}
			if ok {
				s.Stmts = append(s.Stmts, nested)
			}
		}
	}
}

// matchStmt counts the arms of a match expression: each `=>` at the arm
// level of its body. Arrows nested in array literals or calls within an
// arm are not arms.
func (p *Parser) matchStmt(line int) (model.Stmt, error) {
	s := model.Stmt{Kind: model.Match, Line: line}
	depth := len(p.brackets)
	squares := 0
	for {
		if p.atEnd() {
			return s, &Error{Line: line, Expected: "}", Found: "end of input", Err: ErrUnterminatedMatch}
		}
		tok, err := p.next()
		if err != nil {
			return s, err
		}
		switch tok.Kind {
		case token.LeftBracket:
			squares++
		case token.RightBracket:
			squares = max(squares-1, 0)
		case token.FatArrow:
			if squares == 0 && len(p.brackets) == depth+1 {
				s.CaseCount++
			}
		case token.RightBrace:
			if len(p.brackets) == depth {
				return s, nil
			}
		}
	}
}
