package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cliEnv isolates a CLI run from the user's config and data directories.
type cliEnv struct {
	t  *testing.T
	db string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	for _, k := range []string{"TASKTREE_CONFIG", "TASKTREE_DB", "TASKTREE_ACTOR", "TASKTREE_LOG_LEVEL", "TASKTREE_LOG_FILE", "TASKTREE_BUSY_TIMEOUT"} {
		t.Setenv(k, "")
	}
	return &cliEnv{t: t, db: filepath.Join(t.TempDir(), "tasks.db")}
}

// run executes the CLI against the env's database.
func (e *cliEnv) run(args ...string) (code int, stdout, stderr string) {
	e.t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--db", e.db}, args...)
	code = Run(context.Background(), full, &out, &errOut, "test")
	return code, out.String(), errOut.String()
}

// ok runs args and requires success.
func (e *cliEnv) ok(args ...string) string {
	e.t.Helper()
	code, out, errOut := e.run(args...)
	require.Equal(e.t, ExitSuccess, code, "args %v\nstdout: %s\nstderr: %s", args, out, errOut)
	return out
}

// json runs args with --format json and decodes the envelope.
func (e *cliEnv) json(args ...string) (int, CLIResponse) {
	e.t.Helper()
	code, out, _ := e.run(append([]string{"--format", "json"}, args...)...)
	var resp CLIResponse
	require.NoError(e.t, json.Unmarshal([]byte(out), &resp), "stdout: %s", out)
	return code, resp
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "tasktree", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"list", "create"}, {"list", "get"}, {"list", "ls"}, {"list", "delete"},
		{"list", "relate"}, {"list", "unrelate"}, {"list", "relations"},
		{"list", "progress"}, {"list", "next"},
		{"item", "add"}, {"item", "get"}, {"item", "ls"}, {"item", "status"},
		{"item", "delete"}, {"item", "reorder"}, {"item", "move"},
		{"dep", "add"}, {"dep", "rm"}, {"dep", "blocking"}, {"dep", "show"},
		{"history"}, {"test"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(filepath.Join(path...), func(t *testing.T) {
			sub, _, err := cmd.Find(path)
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	for _, name := range []string{"db", "config", "actor", "log-level"} {
		f := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, "", f.DefValue)
	}
}

func TestInvalidFormat(t *testing.T) {
	env := newCLIEnv(t)
	code, _, stderr := env.run("--format", "xml", "list", "ls")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, `invalid format "xml"`)
}

func TestUnknownCommandIsCommandError(t *testing.T) {
	env := newCLIEnv(t)
	code, _, stderr := env.run("frobnicate")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "COMMAND_ERROR")
}

func TestWrongArgCountIsCommandError(t *testing.T) {
	env := newCLIEnv(t)
	code, _, _ := env.run("item", "add", "only-list")
	assert.Equal(t, ExitCommandError, code)
}

func TestInvalidConfigIsCommandError(t *testing.T) {
	env := newCLIEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("unknown_key: 1\n"), 0o644))

	code, resp := env.json("--config", cfgPath, "list", "ls")
	assert.Equal(t, ExitCommandError, code)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "COMMAND_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "invalid configuration")
}

func TestConfigFileSuppliesActor(t *testing.T) {
	env := newCLIEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("actor: config-bot\n"), 0o644))

	env.ok("--config", cfgPath, "list", "create", "l")
	_, resp := env.json("history", "--list", "l")
	page := resp.Data.(map[string]any)
	entries := page["entries"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "config-bot", entries[0].(map[string]any)["actor"])

	// The flag beats the config file.
	env.ok("--config", cfgPath, "--actor", "flag-user", "list", "create", "m")
	_, resp = env.json("history", "--list", "m")
	entries = resp.Data.(map[string]any)["entries"].([]any)
	assert.Equal(t, "flag-user", entries[0].(map[string]any)["actor"])
}

func TestEnvironmentSuppliesDatabase(t *testing.T) {
	newCLIEnv(t)
	dbPath := filepath.Join(t.TempDir(), "nested", "env.db")
	t.Setenv("TASKTREE_DB", dbPath)

	var out, errOut bytes.Buffer
	code := Run(context.Background(), []string{"list", "create", "envlist"}, &out, &errOut, "test")
	require.Equal(t, ExitSuccess, code, errOut.String())

	_, err := os.Stat(dbPath)
	assert.NoError(t, err, "database created at TASKTREE_DB")
}
