// Package harness runs YAML scenarios against a real tasktree engine.
//
// Each scenario gets a fresh SQLite database in a temporary directory, a
// deterministic clock, and sequential history IDs, so two runs of the same
// scenario produce byte-identical output for golden comparison.
//
// # Scenario Format
//
//	name: project_rollup
//	description: "Completing every child completes the parent"
//	actor: alice            # optional, defaults to "system"
//	setup:
//	  - op: create_list
//	    args: { key: proj }
//	flow:
//	  - op: add_item
//	    args: { list: proj, key: root }
//	  - op: update_status
//	    args: { list: proj, key: root, status: in_progress }
//	    expect:
//	      result: { status: in_progress }
//	  - op: add_dependency
//	    args: { dependent: "proj:a", target: "proj:a" }
//	    expect:
//	      error: CYCLE_DETECTED
//	assertions:
//	  - type: history_count
//	    action: status_synced
//	    count: 2
//	  - type: item_state
//	    list: proj
//	    item: root
//	    expect: { status: completed }
//
// Setup steps must succeed. A flow step without an expect clause must
// succeed as well; with one, the step's error code or result fields are
// compared (subset match).
//
// # Assertion Types
//
//   - trace_contains: an operation ran with matching args
//   - history_contains: a history entry exists for action, list and item
//   - history_count: exactly N history entries match action, list and item
//   - history_order: actions first appear in the given order
//   - item_state: an item's fields match (subset)
//   - list_progress: a list's progress summary matches (subset)
package harness
