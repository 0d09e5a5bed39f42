package lang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want string
	}{
		{".php", "php"},
		{".PHP", "php"},
		{".phtml", ""},
		{".py", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ForExtension(tt.ext))
		})
	}
}

func TestLanguagesRegistered(t *testing.T) {
	t.Parallel()

	php, ok := Languages["php"]
	require.True(t, ok, "php language not registered")
	assert.NotNil(t, php.GetLanguage())
	assert.NotNil(t, php.NewParser())
}

func TestCheckCleanSource(t *testing.T) {
	t.Parallel()

	c, err := NewChecker("php")
	require.NoError(t, err)
	defer c.Close()

	lines, err := c.Check(context.Background(), []byte("<?php\nclass A {\n  public function f(): int { return 1; }\n}\n"))
	require.NoError(t, err)
	assert.Empty(t, lines)

	lines, err = c.Check(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCheckReportsErrorLines(t *testing.T) {
	t.Parallel()

	c, err := NewChecker("php")
	require.NoError(t, err)
	defer c.Close()

	src := "<?php\nclass A {\n  public function f() {\n    $x = ;\n  }\n}\n"
	lines, err := c.Check(context.Background(), []byte(src))
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	for _, l := range lines {
		assert.GreaterOrEqual(t, l, 1)
		assert.LessOrEqual(t, l, 6)
	}
}

func TestNewCheckerUnknownLanguage(t *testing.T) {
	t.Parallel()

	_, err := NewChecker("cobol")
	assert.ErrorContains(t, err, "not registered")
}
