package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/phobologic/phpscope/internal/cache"
	"github.com/phobologic/phpscope/internal/config"
	"github.com/phobologic/phpscope/internal/lexer"
	"github.com/phobologic/phpscope/internal/model"
	"github.com/phobologic/phpscope/internal/parse"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func raw(path, content string) model.RawFile {
	return model.RawFile{Path: path, Content: content, LastAccessed: 3}
}

func classNames(files []model.File) []string {
	names := make([]string, len(files))
	for i := range files {
		names[i] = files[i].Class.Name
	}
	return names
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	files := []model.RawFile{
		raw("src/B.php", "<?php\nnamespace App;\n\nclass B {\n  public function f(A $a) {}\n}\n"),
		raw("src/helpers.php", "<?php\nfunction helper() {}\n"),
		raw("src/A.php", "<?php\nnamespace App;\nclass A {\n}\n"),
	}

	res, err := Analyze(context.Background(), files, Options{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{`App\B`, `App\A`}, classNames(res.Files))
	assert.Equal(t, model.Index{`App\A`: 1, `App\B`: 0}, res.Index)
	assert.Empty(t, res.Skipped)

	b := res.Files[0]
	assert.Equal(t, "src/B.php", b.Path)
	assert.Equal(t, 6, b.Lines)
	assert.Equal(t, 3, b.LastAccessed)
	assert.Nil(t, b.SyntaxErrors)
	assert.Equal(t, 4, res.Files[1].Lines)
}

func TestAnalyzeKeepsInputOrder(t *testing.T) {
	t.Parallel()

	var files []model.RawFile
	var want []string
	for i := range 40 {
		name := fmt.Sprintf("C%02d", i)
		files = append(files, raw(name+".php", fmt.Sprintf("<?php namespace N; class %s {}", name)))
		want = append(want, `N\`+name)
	}

	res, err := Analyze(context.Background(), files, Options{Workers: 8})
	require.NoError(t, err)
	assert.Equal(t, want, classNames(res.Files))
}

func TestAnalyzeEmpty(t *testing.T) {
	t.Parallel()

	res, err := Analyze(context.Background(), nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Files)
	assert.Empty(t, res.Index)
}

func TestAnalyzeSkipsBrokenFiles(t *testing.T) {
	t.Parallel()

	files := []model.RawFile{
		raw("good.php", "<?php class Good {}"),
		raw("string.php", "<?php class S { public function f() { $x = 'open; } }"),
		raw("bracket.php", "<?php class U { public function f() { if (true) { }"),
	}

	res, err := Analyze(context.Background(), files, Options{OnError: config.OnErrorSkip})
	require.NoError(t, err)
	assert.Equal(t, []string{`\Good`}, classNames(res.Files))
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "string.php", res.Skipped[0].Path)
	assert.ErrorIs(t, res.Skipped[0].Err, lexer.ErrUnterminatedString)
	assert.Equal(t, "bracket.php", res.Skipped[1].Path)
	assert.ErrorIs(t, res.Skipped[1].Err, parse.ErrUnmatchedOpeningBracket)
}

func TestAnalyzeAbort(t *testing.T) {
	t.Parallel()

	files := []model.RawFile{
		raw("good.php", "<?php class Good {}"),
		raw("bad.php", "<?php class Bad { ^ }"),
	}

	for _, inherit := range []bool{false, true} {
		_, err := Analyze(context.Background(), files, Options{OnError: config.OnErrorAbort, InheritNamespace: inherit})
		require.Error(t, err)
		var fe *FileError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "bad.php", fe.Path)
		assert.ErrorIs(t, err, lexer.ErrUnsupportedCharacter)
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := []model.RawFile{raw("a.php", "<?php class A {}")}
	_, err := Analyze(ctx, files, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = Analyze(ctx, files, Options{InheritNamespace: true})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeInheritNamespace(t *testing.T) {
	t.Parallel()

	files := []model.RawFile{
		raw("A.php", "<?php namespace App; class A {}"),
		raw("B.php", "<?php class B extends A {}"),
	}

	res, err := Analyze(context.Background(), files, Options{InheritNamespace: true})
	require.NoError(t, err)
	assert.Equal(t, []string{`App\A`, `App\B`}, classNames(res.Files))
	assert.Equal(t, `App\A`, res.Files[1].Class.Extends)

	res, err = Analyze(context.Background(), files, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{`App\A`, `\B`}, classNames(res.Files))
}

func TestAnalyzeUsesCache(t *testing.T) {
	t.Parallel()

	c := cache.Open(filepath.Join(t.TempDir(), "cache.json"), "")
	content := "<?php class Real {}"
	c.Put("a.php", content, cache.Entry{Class: &model.Class{Name: "Cached"}, Lines: 42})

	files := []model.RawFile{raw("a.php", content), raw("b.php", "<?php class B {}")}
	res, err := Analyze(context.Background(), files, Options{Cache: c})
	require.NoError(t, err)
	assert.Equal(t, []string{"Cached", `\B`}, classNames(res.Files))
	assert.Equal(t, 42, res.Files[0].Lines)

	e, ok := c.Get("b.php", "<?php class B {}")
	require.True(t, ok)
	require.NotNil(t, e.Class)
	assert.Equal(t, `\B`, e.Class.Name)
	assert.Equal(t, 1, e.Lines)
}

func TestAnalyzeSyntaxCheck(t *testing.T) {
	t.Parallel()

	files := []model.RawFile{
		raw("ok.php", "<?php\nclass Ok {\n  public function f() { return 1; }\n}\n"),
		raw("bad.php", "<?php\nclass Bad {\n  public function f() {\n    $x = ;\n  }\n}\n"),
	}

	res, err := Analyze(context.Background(), files, Options{SyntaxCheck: true, Workers: 2})
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.Empty(t, res.Files[0].SyntaxErrors)
	assert.NotEmpty(t, res.Files[1].SyntaxErrors)
}

func TestAnalyzeReportsProgress(t *testing.T) {
	t.Parallel()

	var ticks atomic.Int32
	files := []model.RawFile{
		raw("a.php", "<?php class A {}"),
		raw("b.php", "<?php"),
		raw("c.php", "<?php class C { ^ }"),
	}
	_, err := Analyze(context.Background(), files, Options{OnProgress: func() { ticks.Add(1) }})
	require.NoError(t, err)
	assert.Equal(t, int32(3), ticks.Load())
}
