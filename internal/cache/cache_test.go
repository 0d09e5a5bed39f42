package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/phpscope/internal/model"
)

func TestGetPutRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	c := Open(path, "v")
	assert.Equal(t, 0, c.Len())

	cls := &model.Class{Name: `App\Foo`, Dependencies: []string{`App\Bar`}}
	c.Put("src/Foo.php", "<?php class Foo {}", Entry{Class: cls, Lines: 1})
	c.Put("src/helpers.php", "<?php", Entry{Lines: 1})
	require.NoError(t, c.Save())

	reopened := Open(path, "v")
	assert.Equal(t, 2, reopened.Len())

	e, ok := reopened.Get("src/Foo.php", "<?php class Foo {}")
	require.True(t, ok)
	require.NotNil(t, e.Class)
	assert.Equal(t, `App\Foo`, e.Class.Name)
	assert.Equal(t, []string{`App\Bar`}, e.Class.Dependencies)
	assert.Equal(t, Hash("<?php class Foo {}"), e.Hash)

	e, ok = reopened.Get("src/helpers.php", "<?php")
	require.True(t, ok)
	assert.Nil(t, e.Class)
}

func TestGetMissesOnChangedContent(t *testing.T) {
	t.Parallel()

	c := Open(filepath.Join(t.TempDir(), "cache.json"), "")
	c.Put("a.php", "<?php class A {}", Entry{Lines: 1})

	_, ok := c.Get("a.php", "<?php class A { }")
	assert.False(t, ok)
	_, ok = c.Get("b.php", "<?php class A {}")
	assert.False(t, ok)
}

func TestOpenDiscardsMismatchedSettings(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	c := Open(path, "inherit=false")
	c.Put("a.php", "x", Entry{})
	require.NoError(t, c.Save())

	assert.Equal(t, 0, Open(path, "inherit=true").Len())
	assert.Equal(t, 1, Open(path, "inherit=false").Len())
}

func TestOpenToleratesCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	c := Open(path, "")
	assert.Equal(t, 0, c.Len())
	c.Put("a.php", "x", Entry{})
	require.NoError(t, c.Save())
	assert.Equal(t, 1, Open(path, "").Len())
}

func TestSaveSkipsCleanCache(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, Open(path, "").Save())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestPrune(t *testing.T) {
	t.Parallel()

	c := Open(filepath.Join(t.TempDir(), "nested", "cache.json"), "")
	c.Put("a.php", "a", Entry{})
	c.Put("b.php", "b", Entry{})
	c.Prune([]string{"b.php"})
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("b.php", "b")
	assert.True(t, ok)
	require.NoError(t, c.Save())
}
