package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tasktree/internal/model"
)

// GoldenDir is where golden files live, relative to the package under test.
const GoldenDir = "testdata/scenarios/golden"

// Render produces the golden text for a run: the step trace, the history
// log, and the final item forest. Timestamps and IDs are left out so the
// text is easy to review.
func Render(name string, result *Result) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "scenario: %s\n", name)

	b.WriteString("\nsteps:\n")
	for _, ev := range result.Trace {
		fmt.Fprintf(&b, "  %d. %s", ev.Seq, ev.Op)
		if args := renderArgs(ev.Args); args != "" {
			b.WriteString(" " + args)
		}
		fmt.Fprintf(&b, " -> %s\n", ev.Outcome)
	}

	b.WriteString("\nhistory:\n")
	for i, e := range result.History {
		fmt.Fprintf(&b, "  %d. %s %s actor=%s", i+1, e.Action, subject(e), e.Actor)
		if e.OldValue != "" {
			fmt.Fprintf(&b, " old=%q", e.OldValue)
		}
		if e.NewValue != "" {
			fmt.Fprintf(&b, " new=%q", e.NewValue)
		}
		if e.Details != "" {
			b.WriteString(" " + e.Details)
		}
		b.WriteByte('\n')
	}

	b.WriteString("\nlists:\n")
	for _, ls := range result.Lists {
		fmt.Fprintf(&b, "  %s (%s)\n", ls.List.Key, ls.List.Type)
		depth := map[string]int{}
		for _, it := range ls.Items {
			d := 0
			if it.ParentKey != "" {
				d = depth[it.ParentKey] + 1
			}
			depth[it.Key] = d
			fmt.Fprintf(&b, "    %s%d. %s [%s]\n", strings.Repeat("  ", d), it.Position, it.Key, it.Status)
		}
	}
	return b.Bytes()
}

func subject(e model.HistoryEntry) string {
	if e.SubjectKind == model.SubjectItem {
		return e.ListKey + ":" + e.ItemKey
	}
	return e.ListKey
}

func renderArgs(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, args[k])
	}
	return strings.Join(parts, " ")
}

// RunWithGolden executes a scenario and compares its rendering against
// testdata/scenarios/golden/{scenario.Name}.golden, the same file GoldenPath
// names for the scenarios in testdata/scenarios.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Render(name, result))
}

// GoldenPath returns the golden file used by the CLI for a scenario file:
// golden/{name}.golden next to the scenario.
func GoldenPath(scenarioFile, name string) string {
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

// CompareGolden checks a rendering against the file at path. A missing file
// is an error; use WriteGolden to create it.
func CompareGolden(path string, rendered []byte) error {
	want, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(want, rendered) {
		return fmt.Errorf("output differs from golden file %s", path)
	}
	return nil
}

// WriteGolden writes a rendering to path, creating parent directories.
func WriteGolden(path string, rendered []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create golden directory: %w", err)
	}
	if err := os.WriteFile(path, rendered, 0o644); err != nil {
		return fmt.Errorf("write golden file: %w", err)
	}
	return nil
}
