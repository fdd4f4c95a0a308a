package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCommands(t *testing.T) {
	env := newCLIEnv(t)

	out := env.ok("list", "create", "proj", "--title", "Project", "--type", "hierarchical")
	assert.Equal(t, "proj  Project (hierarchical)\n", out)
	env.ok("list", "create", "sub")

	out = env.ok("list", "ls")
	assert.Equal(t, "proj  Project (hierarchical)\nsub  sub (sequential)\n", out)

	code, resp := env.json("list", "create", "proj")
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "DUPLICATE_KEY", resp.Error.Code)

	out = env.ok("list", "relate", "proj", "sub")
	assert.Equal(t, "proj -> sub (project)\n", out)
	out = env.ok("list", "relations", "sub")
	assert.Equal(t, "proj -> sub (project)\n", out)

	out = env.ok("list", "unrelate", "proj", "sub")
	assert.Equal(t, "removed relation proj -> sub\n", out)
	out = env.ok("list", "unrelate", "proj", "sub")
	assert.Equal(t, "no relation proj -> sub\n", out)

	out = env.ok("list", "delete", "sub")
	assert.Equal(t, "deleted list sub\n", out)

	code, stdout, stderr := env.run("list", "get", "sub")
	assert.Equal(t, ExitFailure, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Error [NOT_FOUND]")
}

func TestItemCommands(t *testing.T) {
	env := newCLIEnv(t)
	env.ok("list", "create", "proj")
	env.ok("item", "add", "proj", "root", "--title", "Root")
	env.ok("item", "add", "proj", "a", "--parent", "root")
	env.ok("item", "add", "proj", "b", "--parent", "root")
	env.ok("item", "add", "proj", "first", "--position", "1")

	out := env.ok("item", "ls", "proj")
	assert.Equal(t,
		"1. [pending] first  first\n"+
			"2. [pending] root  Root\n"+
			"  1. [pending] a  a\n"+
			"  2. [pending] b  b\n",
		out)

	out = env.ok("item", "status", "proj", "a", "in-progress")
	assert.Equal(t, "proj:a [in_progress] #1 a (parent root)\n", out)
	out = env.ok("item", "get", "proj", "root")
	assert.Equal(t, "proj:root [in_progress] #2 Root\n", out)

	out = env.ok("item", "reorder", "proj", "b", "1")
	assert.Equal(t, "proj:b [pending] #1 b (parent root)\n", out)

	out = env.ok("item", "move", "proj", "b")
	assert.Equal(t, "proj:b [pending] #3 b\n", out)

	code, resp := env.json("item", "move", "proj", "root", "--parent", "a")
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, "INVALID_PARENT", resp.Error.Code)

	code, resp = env.json("item", "status", "proj", "a", "done")
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, "INVALID_ARGUMENT", resp.Error.Code)

	code, _, _ = env.run("item", "reorder", "proj", "b", "top")
	assert.Equal(t, ExitCommandError, code)

	out = env.ok("item", "delete", "proj", "root")
	assert.Equal(t, "deleted 2 item(s) from proj: [root a]\n", out)

	out = env.ok("item", "ls", "proj")
	assert.Equal(t, "1. [pending] first  first\n2. [pending] b  b\n", out)
}

func TestItemJSONOutput(t *testing.T) {
	env := newCLIEnv(t)
	env.ok("list", "create", "l")

	code, resp := env.json("item", "add", "l", "x", "--title", "X marks")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "ok", resp.Status)
	item := resp.Data.(map[string]any)
	assert.Equal(t, "l", item["list"])
	assert.Equal(t, "x", item["key"])
	assert.Equal(t, "X marks", item["title"])
	assert.Equal(t, "pending", item["status"])
	assert.Equal(t, float64(1), item["position"])
	assert.Equal(t, float64(1), item["version"])
}

func TestDepCommands(t *testing.T) {
	env := newCLIEnv(t)
	env.ok("list", "create", "api")
	env.ok("list", "create", "web")
	env.ok("item", "add", "api", "release")
	env.ok("item", "add", "web", "deploy")

	out := env.ok("dep", "add", "web:deploy", "api:release")
	assert.Equal(t, "web:deploy now depends on api:release\n", out)

	code, resp := env.json("dep", "add", "api:release", "web:deploy")
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, "CYCLE_DETECTED", resp.Error.Code)

	code, resp = env.json("dep", "add", "web:deploy", "api:release")
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, "DUPLICATE_DEPENDENCY", resp.Error.Code)

	out = env.ok("dep", "blocking", "web:deploy")
	assert.Equal(t, "blocking web:deploy:\n  api:release [pending]\n", out)

	code, resp = env.json("item", "status", "web", "deploy", "completed")
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, "DEPENDENCY_NOT_SATISFIED", resp.Error.Code)

	out = env.ok("dep", "show", "api:release")
	assert.Equal(t, "api:release\ndepends on: none\ndepended on by:\n  web:deploy [pending]\n", out)

	code, resp = env.json("list", "delete", "api")
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, "EXTERNAL_REFERENCE", resp.Error.Code)

	env.ok("item", "status", "api", "release", "completed")
	out = env.ok("dep", "blocking", "web:deploy")
	assert.Equal(t, "blocking web:deploy: none\n", out)

	out = env.ok("dep", "rm", "web:deploy", "api:release")
	assert.Equal(t, "removed web:deploy -> api:release\n", out)
	out = env.ok("dep", "rm", "web:deploy", "api:release")
	assert.Equal(t, "no dependency web:deploy -> api:release\n", out)

	code, _, _ = env.run("dep", "add", "nocolon", "api:release")
	assert.Equal(t, ExitCommandError, code)
}

func TestProgressAndNext(t *testing.T) {
	env := newCLIEnv(t)
	env.ok("list", "create", "l")
	env.ok("item", "add", "l", "a")
	env.ok("item", "add", "l", "b")
	env.ok("item", "add", "l", "c")
	env.ok("dep", "add", "l:b", "l:c")
	env.ok("item", "status", "l", "a", "completed")

	out := env.ok("list", "next", "l")
	assert.Equal(t, "l:c [pending] #3 c\n", out)

	code, resp := env.json("list", "progress", "l")
	require.Equal(t, ExitSuccess, code)
	p := resp.Data.(map[string]any)
	assert.Equal(t, float64(3), p["total"])
	assert.Equal(t, float64(33), p["percent_complete"])
	byStatus := p["by_status"].(map[string]any)
	assert.Equal(t, float64(1), byStatus["completed"])
	assert.Equal(t, float64(2), byStatus["pending"])
}

func TestHistoryCommand(t *testing.T) {
	env := newCLIEnv(t)
	env.ok("--actor", "dana", "list", "create", "l")
	env.ok("item", "add", "l", "a")
	env.ok("item", "status", "l", "a", "completed")

	code, resp := env.json("history", "--list", "l", "--item", "a")
	require.Equal(t, ExitSuccess, code)
	page := resp.Data.(map[string]any)
	assert.Equal(t, float64(2), page["total"])
	entries := page["entries"].([]any)
	require.Len(t, entries, 2)
	assert.Equal(t, "item_added", entries[0].(map[string]any)["action"])
	assert.Equal(t, "status_changed", entries[1].(map[string]any)["action"])
	assert.Equal(t, "system", entries[1].(map[string]any)["actor"])

	_, resp = env.json("history", "--action", "list_created")
	entries = resp.Data.(map[string]any)["entries"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "dana", entries[0].(map[string]any)["actor"])

	_, resp = env.json("history", "--list", "l", "--subject", "list")
	entries = resp.Data.(map[string]any)["entries"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "list_created", entries[0].(map[string]any)["action"])

	_, resp = env.json("history", "--limit", "1", "--offset", "1")
	page = resp.Data.(map[string]any)
	assert.Equal(t, float64(3), page["total"])
	assert.Len(t, page["entries"].([]any), 1)

	code, resp = env.json("history", "--item", "a")
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, "INVALID_ARGUMENT", resp.Error.Code)

	code, out, _ := env.run("history", "--list", "l")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "list_created")
	assert.Contains(t, out, "(3 of 3 entries, offset 0)")
}
