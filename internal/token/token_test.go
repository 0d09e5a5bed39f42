package token

import "testing"

func TestKindString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		kind Kind
		want string
	}{
		{PhpTag, "<?php"},
		{FatArrow, "=>"},
		{ColonColon, "::"},
		{Identifier, "identifier"},
		{Kind(999), "Kind(999)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}

func TestTokenString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		tok  Token
		want string
	}{
		{Token{Kind: Identifier, Lexeme: "Foo"}, "Foo"},
		{Token{Kind: Number, Lexeme: "42"}, "42"},
		{Token{Kind: String, Lexeme: "hi"}, `"hi"`},
		{Token{Kind: LeftBrace, Lexeme: "{"}, "{"},
	}
	for _, tt := range tests {
		if got := tt.tok.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestIsAndIsVariable(t *testing.T) {
	t.Parallel()
	tok := Token{Kind: Identifier, Lexeme: "$user", Line: 3}
	if !tok.Is(String, Identifier) {
		t.Error("Is should match any listed kind")
	}
	if tok.Is(String, Number) {
		t.Error("Is should not match unlisted kinds")
	}
	if !tok.IsVariable() {
		t.Error("$user should be a variable")
	}
	if (Token{Kind: Identifier, Lexeme: "User"}).IsVariable() {
		t.Error("User is not a variable")
	}
	if (Token{Kind: String, Lexeme: "$x"}).IsVariable() {
		t.Error("strings are never variables")
	}
}
