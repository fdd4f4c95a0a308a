package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// snapshotTables lists every table in dump order with its ordering key.
var snapshotTables = []struct {
	name    string
	orderBy string
}{
	{"lists", "id"},
	{"list_relations", "from_list_id, to_list_id, kind"},
	{"items", "id"},
	{"item_dependencies", "dependent_id, target_id"},
	{"history", "seq"},
	{"sqlite_sequence", "name"},
}

// Snapshot renders every row of every table as text in a fixed order.
// Two snapshots are equal iff the stored state is identical, which makes it
// the reference for rollback tests.
func (s *Store) Snapshot(ctx context.Context) (string, error) {
	var b strings.Builder
	for _, tbl := range snapshotTables {
		if err := dumpTable(ctx, s.db, &b, tbl.name, tbl.orderBy); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func dumpTable(ctx context.Context, db *sql.DB, b *strings.Builder, table, orderBy string) error {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY %s", table, orderBy))
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("snapshot %s: columns: %w", table, err)
	}
	fmt.Fprintf(b, "== %s (%s)\n", table, strings.Join(cols, ", "))

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("snapshot %s: scan: %w", table, err)
		}
		fields := make([]string, len(values))
		for i, v := range values {
			switch val := v.(type) {
			case nil:
				fields[i] = "NULL"
			case []byte:
				fields[i] = string(val)
			default:
				fields[i] = fmt.Sprint(val)
			}
		}
		b.WriteString(strings.Join(fields, "|"))
		b.WriteByte('\n')
	}
	return rows.Err()
}
