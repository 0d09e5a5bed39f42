// Package parse recognizes class declarations in a token stream and builds
// their structural profile: signatures, dependencies and control statements.
package parse

import (
	"strings"

	"github.com/phobologic/phpscope/internal/keyword"
	"github.com/phobologic/phpscope/internal/model"
	"github.com/phobologic/phpscope/internal/token"
)

// imported is one imported class name and the short name it is referred to
// by in the unit: its last segment, or the alias after `as`.
type imported struct {
	name  string
	local string
}

// Option configures a Parser.
type Option func(*Parser)

// WithInheritNamespace keeps the most recently declared namespace across
// units, so a file without its own namespace directive uses the previous
// file's namespace. By default every unit starts in the global namespace.
func WithInheritNamespace(inherit bool) Option {
	return func(p *Parser) { p.inheritNamespace = inherit }
}

// Parser is a recursive-descent parser over one unit's tokens at a time. It is
// not safe for concurrent use; give each goroutine its own Parser.
type Parser struct {
	table            *keyword.Table
	inheritNamespace bool

	tokens   []token.Token
	pos      int
	brackets []token.Token

	namespace string
	imports   []imported
}

// New returns a parser that classifies identifiers with table.
func New(table *keyword.Table, opts ...Option) *Parser {
	p := &Parser{table: table}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseUnit parses one file's tokens. It returns a nil class when the unit
// declares no class or trait. Only the first declaration is modeled.
func (p *Parser) ParseUnit(tokens []token.Token) (*model.Class, error) {
	p.tokens = tokens
	p.pos = 0
	p.brackets = p.brackets[:0]
	p.imports = p.imports[:0]
	if !p.inheritNamespace {
		p.namespace = ""
	}

	for !p.atEnd() {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		if tok.Kind != token.Identifier {
			continue
		}

		kw, ok := p.table.Lookup(tok)
		if !ok {
			// Foo::class and $this->match() must not be read as keywords.
			if p.peekIs(token.ColonColon, token.ThinArrow) {
				if err := p.skipWithin(2, -1); err != nil {
					return nil, err
				}
			}
			continue
		}

		switch kw {
		case keyword.Namespace:
			ns, err := p.next()
			if err != nil {
				return nil, err
			}
			if ns.Kind == token.Identifier {
				p.namespace = ns.Lexeme
			}
		case keyword.Use:
			if err := p.useDirective(); err != nil {
				return nil, err
			}
		case keyword.Abstract:
			if p.peekKeyword(keyword.Class, keyword.Trait) && p.peekNameAt(1) {
				if _, err := p.next(); err != nil {
					return nil, err
				}
				return p.class(true)
			}
		case keyword.Class, keyword.Trait:
			if p.peekNameAt(0) {
				return p.class(false)
			}
		}
	}

	if len(p.brackets) > 0 {
		return nil, p.unclosed()
	}
	return nil, nil
}

// useDirective records the imports of one `use` directive. It accepts
// `use A;`, `use A as B;`, comma-separated lists and `use Prefix\{A, B as C};`
// groups. Function and constant imports are skipped.
func (p *Parser) useDirective() error {
	for {
		tok, err := p.next()
		if err != nil {
			return err
		}
		if p.table.Is(tok, keyword.Function, keyword.Const) {
			return p.synchronize()
		}
		if tok.Kind != token.Identifier {
			return nil
		}
		if strings.HasSuffix(tok.Lexeme, `\`) && p.peekIs(token.LeftBrace) {
			err = p.useGroup(tok.Lexeme)
		} else {
			err = p.importName(tok.Lexeme)
		}
		if err != nil {
			return err
		}
		if !p.peekIs(token.Comma) {
			return nil
		}
		if _, err := p.next(); err != nil {
			return err
		}
	}
}

func (p *Parser) useGroup(prefix string) error {
	depth := len(p.brackets)
	if err := p.expect(token.LeftBrace); err != nil {
		return err
	}
	for len(p.brackets) > depth {
		tok, err := p.next()
		if err != nil {
			return err
		}
		if tok.Kind == token.Identifier {
			if err := p.importName(prefix + tok.Lexeme); err != nil {
				return err
			}
		}
	}
	return nil
}

// importName records name, reading an optional `as Alias`.
func (p *Parser) importName(name string) error {
	imp := imported{name: name, local: model.LastSegment(name)}
	if p.peekKeyword(keyword.As) {
		if _, err := p.next(); err != nil {
			return err
		}
		aliased, err := p.next()
		if err != nil {
			return err
		}
		imp.local = aliased.Lexeme
	}
	p.imports = append(p.imports, imp)
	return nil
}

func (p *Parser) class(isAbstract bool) (*model.Class, error) {
	nameTok, err := p.next()
	if err != nil {
		return nil, err
	}
	class := &model.Class{
		Name:       p.namespace + `\` + nameTok.Lexeme,
		IsAbstract: isAbstract,
	}

	if p.peekKeyword(keyword.Extends) {
		if _, err := p.next(); err != nil {
			return nil, err
		}
		parent, err := p.next()
		if err != nil {
			return nil, err
		}
		class.Extends = p.resolve(parent)
	}

	if p.peekKeyword(keyword.Implements) {
		if _, err := p.next(); err != nil {
			return nil, err
		}
		for !p.atEnd() && !p.peekIs(token.LeftBrace) {
			iface, err := p.next()
			if err != nil {
				return nil, err
			}
			if iface.Kind != token.Identifier {
				continue
			}
			class.Implements = append(class.Implements, p.resolve(iface))
		}
	}

	depth := len(p.brackets)
	if err := p.expect(token.LeftBrace); err != nil {
		return nil, err
	}
	for len(p.brackets) > depth {
		if err := p.member(class); err != nil {
			return nil, err
		}
	}

	for _, imp := range p.imports {
		class.AddDependency(imp.name)
	}
	class.SortFunctions()
	return class, nil
}

// member parses one class-level statement.
func (p *Parser) member(class *model.Class) error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	kw, ok := p.table.Lookup(tok)
	if !ok {
		return nil
	}
	switch kw {
	case keyword.Abstract:
		return p.member(class)
	case keyword.Use:
		return p.traitUse(class)
	}
	return p.declaration(class, tok, kw)
}

func (p *Parser) traitUse(class *model.Class) error {
	for {
		trait, err := p.next()
		if err != nil {
			return err
		}
		if trait.Kind == token.Identifier {
			class.AddDependency(p.resolve(trait))
		}
		if !p.peekIs(token.Comma) {
			return nil
		}
		if _, err := p.next(); err != nil {
			return err
		}
	}
}

// declaration dispatches on the keyword that starts a member, after an
// optional visibility modifier.
func (p *Parser) declaration(class *model.Class, tok token.Token, kw keyword.Keyword) error {
	visibility := model.Public
	if v, ok := kw.Visibility(); ok {
		visibility = v
		var err error
		if tok, err = p.next(); err != nil {
			return err
		}
		if tok.Kind == token.Question {
			if tok, err = p.next(); err != nil {
				return err
			}
		}
		if typed, err := p.propertyType(class, tok); typed || err != nil {
			return err
		}
		if kw, ok = p.table.Lookup(tok); !ok {
			return nil
		}
	}

	switch kw {
	case keyword.Const:
		return p.synchronize()
	case keyword.Readonly:
		next, err := p.next()
		if err != nil {
			return err
		}
		_, err = p.propertyType(class, next)
		return err
	case keyword.Static:
		next, err := p.next()
		if err != nil {
			return err
		}
		if p.table.Is(next, keyword.Function) {
			fn, err := p.function(model.Public, class)
			if err != nil {
				return err
			}
			class.AddFunction(fn)
			return nil
		}
		_, err = p.propertyType(class, next)
		return err
	case keyword.Function:
		fn, err := p.function(visibility, class)
		if err != nil {
			return err
		}
		class.AddFunction(fn)
		return nil
	}

	if typ, ok := p.userType(tok); ok {
		class.AddDependency(typ)
		return nil
	}
	return p.synchronize()
}

// propertyType records the user types of a property type starting at tok: an
// optional `?`, then one or more types joined by `|` or `&`. It reports
// whether tok started a type; the `static` and `readonly` modifiers never do.
func (p *Parser) propertyType(class *model.Class, tok token.Token) (bool, error) {
	if tok.Kind == token.Question {
		var err error
		if tok, err = p.next(); err != nil {
			return false, err
		}
	}
	if p.table.Is(tok, keyword.Static, keyword.Readonly) {
		return false, nil
	}
	typ, isUser := p.userType(tok)
	if !isUser && !p.table.IsBuiltinType(tok) {
		return false, nil
	}
	for {
		if isUser {
			class.AddDependency(typ)
		}
		if !p.peekIs(token.Pipe, token.Reference) {
			return true, nil
		}
		if _, err := p.next(); err != nil {
			return true, err
		}
		next, err := p.next()
		if err != nil {
			return true, err
		}
		typ, isUser = p.userType(next)
	}
}

// userType resolves tok when it can name a user-defined type: an identifier
// that is neither a variable, a keyword nor a built-in type.
func (p *Parser) userType(tok token.Token) (string, bool) {
	if tok.Kind != token.Identifier || tok.IsVariable() {
		return "", false
	}
	if p.table.IsBuiltinType(tok) {
		return "", false
	}
	if _, ok := p.table.Lookup(tok); ok {
		return "", false
	}
	return p.resolve(tok), true
}

// resolve maps an identifier to a fully-qualified name: built-in types and
// names with a leading `\` are returned as is, an import referred to by that
// name (its last segment or its alias) wins, and anything else lives in the
// current namespace.
func (p *Parser) resolve(tok token.Token) string {
	name := tok.Lexeme
	if p.table.IsBuiltinType(tok) || strings.HasPrefix(name, `\`) {
		return name
	}
	for _, imp := range p.imports {
		if imp.local == name {
			return imp.name
		}
	}
	return p.namespace + `\` + name
}
