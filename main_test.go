package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func createSampleRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "src/Models/User.php", `<?php
namespace App\Models;

class User
{
    public function __construct(private string $name) {}

    public function label(): string
    {
        if ($this->name === '') {
            return 'anonymous';
        }
        return $this->name;
    }
}
`)
	writeTestFile(t, dir, "src/Services/Greeter.php", `<?php
namespace App\Services;

use App\Models\User;

class Greeter
{
    public function greet(User $user, bool $loud = false): string
    {
        foreach ([1, 2] as $i) {
            if ($loud) {
                throw new \RuntimeException('too loud');
            }
        }
        return match ($loud) {
            true => 'HELLO',
            false => 'hello',
        };
    }
}
`)
	writeTestFile(t, dir, "src/helpers.php", `<?php
function helper() { return 1; }
`)
	writeTestFile(t, dir, "README.md", "# sample\n")
	return dir
}

func TestRunBasic(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--no-color", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	out := stdout.String()
	for _, want := range []string{
		"* --- Top Files --- *",
		`1. App\Services\Greeter`,
		`2. App\Models\User`,
		"Path: src/Services/Greeter.php",
		"Used in 1 places",
		`  1. App\Models\User`,
		"Average cyclomatic complexity: 6",
		"  Return type: self",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "helper") {
		t.Error("files without a class should not be listed")
	}
}

func TestRunJSON(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{dir, "-f", "json", "-s", "uses"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	var got struct {
		Sort    string `json:"sort"`
		Summary struct {
			Files   int `json:"files"`
			Classes int `json:"classes"`
		} `json:"summary"`
		Files []struct {
			Class string `json:"class"`
			Uses  int    `json:"uses"`
		} `json:"files"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, stdout.String())
	}
	if got.Sort != "uses" || got.Summary.Files != 3 || got.Summary.Classes != 2 {
		t.Errorf("unexpected header: %+v", got)
	}
	if len(got.Files) != 2 || got.Files[0].Class != `App\Models\User` || got.Files[0].Uses != 1 {
		t.Errorf("unexpected files: %+v", got.Files)
	}
}

func TestRunTOONTopAndQuery(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-f", "toon", "-n", "1", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "files[1]{") {
		t.Errorf("expected 1 file, got:\n%s", stdout.String())
	}

	stdout.Reset()
	if err := run([]string{"-f", "toon", "-q", "USER", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "query: USER") || !strings.Contains(out, `"App\\Models\\User"`) || strings.Contains(out, "Greeter") {
		t.Errorf("query filter not applied:\n%s", out)
	}
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--version"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "phpscope") {
		t.Errorf("version output: %q", stdout.String())
	}
}

func TestRunNoFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "readme.txt", "nothing here")

	var stdout, stderr bytes.Buffer
	err := run([]string{dir}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "no parseable files") {
		t.Fatalf("expected no parseable files error, got %v", err)
	}
}

func TestRunNotADirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "a.php", "<?php")

	var stdout, stderr bytes.Buffer
	err := run([]string{filepath.Join(dir, "a.php")}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Fatalf("expected not a directory error, got %v", err)
	}
}

func TestRunInvalidSettings(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"sort", []string{"-s", "size"}, "unknown sort metric"},
		{"format", []string{"-f", "xml"}, "view.format"},
		{"on-error", []string{"--on-error", "retry"}, "parse.on_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var stdout, stderr bytes.Buffer
			err := run(append(tt.args, dir), &stdout, &stderr)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRunSkipsAndAborts(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	writeTestFile(t, dir, "src/Broken.php", "<?php\nclass Broken {\n  public function f() { $s = 'open; }\n}\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--no-color", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "Skipped 1 file(s):\n  src/Broken.php:") {
		t.Errorf("skipped file not reported:\n%s", stdout.String())
	}
	if !strings.Contains(stderr.String(), "skipping file") {
		t.Errorf("skip not logged:\n%s", stderr.String())
	}

	err := run([]string{"--on-error", "abort", dir}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "src/Broken.php") || !strings.Contains(err.Error(), "unterminated string") {
		t.Fatalf("expected abort naming the file, got %v", err)
	}
}

func TestRunConfigFile(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	writeTestFile(t, dir, "phpscope.toml", "[view]\nformat = \"toon\"\ntop = 1\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "files[1]{") {
		t.Errorf("config not applied:\n%s", stdout.String())
	}

	// Flags win over the file.
	stdout.Reset()
	if err := run([]string{"-n", "2", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "files[2]{") {
		t.Errorf("flag did not override config:\n%s", stdout.String())
	}
}

func TestRunExcludeAndMaxFileSize(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-f", "toon", "--exclude", "src/Models/**", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(stdout.String(), "src/Models/User.php") || !strings.Contains(stdout.String(), "files[1]{") {
		t.Errorf("excluded file analyzed:\n%s", stdout.String())
	}

	stdout.Reset()
	err := run([]string{"--max-file-size", "10", dir}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "no parseable files") {
		t.Fatalf("expected every file to exceed the limit, got %v", err)
	}
}

func TestRunCache(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	cachePath := filepath.Join(t.TempDir(), "phpscope.cache")

	var stdout1, stderr1 bytes.Buffer
	if err := run([]string{"--cache", "--cache-path", cachePath, "-f", "json", dir}, &stdout1, &stderr1); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := os.Stat(cachePath); err != nil {
		t.Fatalf("cache not created: %v", err)
	}

	var stdout2, stderr2 bytes.Buffer
	if err := run([]string{"--cache", "--cache-path", cachePath, "-f", "json", dir}, &stdout2, &stderr2); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if stdout1.String() != stdout2.String() {
		t.Errorf("cached run differs:\nfirst:\n%s\nsecond:\n%s", stdout1.String(), stdout2.String())
	}
}

func TestRunDependents(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"dependents", "User", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "App\\Models\\User is used by 1 classes:\n  1. App\\Services\\Greeter\n"
	if stdout.String() != want {
		t.Errorf("got %q, want %q", stdout.String(), want)
	}

	stdout.Reset()
	if err := run([]string{"dependents", `\App\Services\Greeter`, dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.String() != "No classes depend on App\\Services\\Greeter\n" {
		t.Errorf("got %q", stdout.String())
	}
}

func TestReorderArgs(t *testing.T) {
	t.Parallel()
	app := newApp(&bytes.Buffer{}, &bytes.Buffer{})

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"flags first", []string{"-n", "5", "."}, []string{"-n", "5", "."}},
		{"positional first", []string{".", "-n", "5"}, []string{"-n", "5", "."}},
		{"mixed", []string{"-s", "uses", ".", "--top", "5", "--no-deps"}, []string{"-s", "uses", "--top", "5", "--no-deps", "."}},
		{"equals form", []string{".", "--sort=uses"}, []string{"--sort=uses", "."}},
		{"no args", nil, nil},
		{"bool flag", []string{"--verbose"}, []string{"--verbose"}},
		{"subcommand", []string{"--git", "dependents", "Foo", "--x"}, []string{"--git", "dependents", "Foo", "--x"}},
		{"double dash", []string{"-n", "1", "--", "-odd"}, []string{"-n", "1", "--", "-odd"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := reorderArgs(app, tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("len: got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("index %d: got %q, want %q (full: %v)", i, got[i], tt.want[i], got)
					break
				}
			}
		})
	}
}
