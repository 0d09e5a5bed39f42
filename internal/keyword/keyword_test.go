package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phobologic/phpscope/internal/model"
	"github.com/phobologic/phpscope/internal/token"
)

func ident(s string) token.Token {
	return token.Token{Kind: token.Identifier, Lexeme: s}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	table := NewTable()
	kw, ok := table.Lookup(ident("foreach"))
	assert.True(t, ok)
	assert.Equal(t, Foreach, kw)

	kw, ok = table.Lookup(ident("false"))
	assert.True(t, ok)
	assert.Equal(t, Bool, kw)

	_, ok = table.Lookup(ident("Foreach"))
	assert.False(t, ok, "lookup is case-sensitive")

	_, ok = table.Lookup(token.Token{Kind: token.String, Lexeme: "class"})
	assert.False(t, ok, "string literals are never keywords")

	assert.True(t, table.Is(ident("trait"), Class, Trait))
	assert.False(t, table.Is(ident("interface"), Class, Trait))
}

func TestBuiltinTypes(t *testing.T) {
	t.Parallel()

	table := NewTable()
	for _, s := range []string{"int", "string", "array", "bool", "float", "void", "mixed", "self", "static", "iterable", "readonly", "true", "false"} {
		assert.True(t, table.IsBuiltinType(ident(s)), s)
	}
	for _, s := range []string{"Foo", "$int", "class", "public"} {
		assert.False(t, table.IsBuiltinType(ident(s)), s)
	}
}

func TestVisibility(t *testing.T) {
	t.Parallel()

	v, ok := Protected.Visibility()
	assert.True(t, ok)
	assert.Equal(t, model.Protected, v)

	_, ok = Static.Visibility()
	assert.False(t, ok)
}

func TestIsControl(t *testing.T) {
	t.Parallel()

	for _, kw := range []Keyword{If, Elseif, For, Foreach, Switch, Match, Throw, Catch} {
		assert.True(t, kw.IsControl(), kw.String())
	}
	for _, kw := range []Keyword{While, Case, Function, Use} {
		assert.False(t, kw.IsControl(), kw.String())
	}
	assert.Equal(t, "elseif", Elseif.String())
	assert.Equal(t, "bool", Bool.String())
}
