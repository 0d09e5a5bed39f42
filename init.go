package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"

	"github.com/phobologic/phpscope/internal/config"
)

const (
	sentinelStart = "<!-- phpscope:start -->"
	sentinelEnd   = "<!-- phpscope:end -->"
)

// initCmd implements `phpscope init`, which writes a phpscope.toml holding
// the default settings.
func initCmd() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "Write a phpscope.toml with the default settings",
		ArgsUsage: "[dir]",
		Description: `Creates phpscope.toml in dir (default ".") with every setting at its
default value. An existing file is kept unless --force is given.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "print the file instead of writing it",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "overwrite an existing config file",
			},
		},
		Action: func(c *cli.Context) error {
			content, err := defaultConfigTOML()
			if err != nil {
				return err
			}
			if c.Bool("dry-run") {
				_, err := fmt.Fprint(c.App.Writer, content)
				return err
			}

			dir := c.Args().First()
			if dir == "" {
				dir = "."
			}
			path := filepath.Join(dir, "phpscope.toml")
			if _, err := os.Stat(path); err == nil && !c.Bool("force") {
				return fmt.Errorf("config file %q already exists (use --force to overwrite)", path)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", dir, err)
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			_, _ = color.New(color.FgGreen).Fprintf(c.App.ErrWriter, "created %s\n", path)
			return nil
		},
	}
}

func defaultConfigTOML() (string, error) {
	cfg := config.DefaultConfig()
	// Worker count is machine specific; 0 picks one per CPU at run time.
	cfg.Scan.Workers = 0

	data, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}

	var b strings.Builder
	b.WriteString("# phpscope configuration\n")
	b.WriteString("# Flags given on the command line override these values.\n\n")
	b.Write(data)
	return b.String(), nil
}

// guideCmd implements `phpscope guide`, which writes (or updates) a phpscope
// usage section in a CLAUDE.md file.
func guideCmd() *cli.Command {
	return &cli.Command{
		Name:      "guide",
		Usage:     "Write a phpscope usage section to CLAUDE.md",
		ArgsUsage: "[path-to-CLAUDE.md]",
		Description: `The section is wrapped in sentinel comments so it can be updated in place
on later runs without touching surrounding content. Creates the file if it
does not exist. path-to-CLAUDE.md defaults to ./CLAUDE.md.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "print what would be written without modifying the file",
			},
		},
		Action: func(c *cli.Context) error {
			section := generateSection()
			dryRun := c.Bool("dry-run")

			// --dry-run with no path: just print the section itself.
			if dryRun && c.NArg() == 0 {
				_, err := fmt.Fprintln(c.App.Writer, section)
				return err
			}

			path := "CLAUDE.md"
			if c.NArg() > 0 {
				path = c.Args().First()
			}

			existing, _ := os.ReadFile(path)
			updated := applySection(string(existing), section)

			if dryRun {
				_, err := fmt.Fprint(c.App.Writer, updated)
				return err
			}
			if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			_, _ = fmt.Fprintf(c.App.ErrWriter, "wrote phpscope section to %s\n", path)
			return nil
		},
	}
}

// generateSection returns the sentinel-wrapped usage block.
func generateSection() string {
	body := `## phpscope: PHP class profiles

Run ` + "`phpscope`" + ` before refactoring PHP code to find the classes that are most
complex, most depended upon, or most entangled.

**Run it:**
` + "```" + `bash
phpscope                          # current directory, top 10 by complexity
phpscope src -s uses -n 20        # 20 most used classes under src/
phpscope -q order --functions 3   # classes matching "order", 3 methods each
phpscope -f json                  # machine-readable output
phpscope dependents 'App\Models\User'
` + "```" + `

**All flags:** ` + "`phpscope --help`" + `

**Reading the output:**

1. "Used in N places" counts the classes that declare a dependency on this one.
   Change heavily used classes carefully.
2. Cyclomatic complexity is per method: 1 plus one per if, elseif, for,
   foreach, throw and catch, plus the case count of each switch and the arm
   count of each match.
3. Dependencies are fully-qualified type names taken from imports, property
   types, parameter types and return types.`

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if content == "" {
		return section + "\n"
	}
	return content + "\n" + section + "\n"
}
