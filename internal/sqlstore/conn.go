package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Connection kinds.
const (
	ConnRead  = "read"
	ConnWrite = "write"
)

// Condition is a WHERE fragment with its positional arguments.
type Condition struct {
	Expr string
	Args []any
}

// Join is a JOIN clause appended after the primary table.
type Join struct {
	Kind  string // "INNER" or "LEFT"
	Table string
	On    string
	Args  []any
}

// SelectOptions carries the non-WHERE parts of a select.
type SelectOptions struct {
	Joins   []Join
	GroupBy string
	OrderBy string
	Limit   int // <= 0 means no limit
	Offset  int
}

// CountRow is a (name, count) result row.
type CountRow struct {
	Name  string
	Count int
}

// Connection executes row-returning queries against the store.
type Connection interface {
	// Select runs the query and returns rows in result order. fields must
	// produce exactly a name column followed by a count column.
	Select(ctx context.Context, table string, fields []string, conds []Condition, opts SelectOptions) ([]CountRow, error)
}

type sqlConn struct {
	db   *sql.DB
	kind string
}

// Connection returns a connection of the given kind. SQLite serves both
// kinds from the same pool.
func (s *Store) Connection(kind string) Connection {
	return &sqlConn{db: s.conn, kind: kind}
}

func (c *sqlConn) Select(ctx context.Context, table string, fields []string, conds []Condition, opts SelectOptions) ([]CountRow, error) {
	if len(fields) != 2 {
		return nil, fmt.Errorf("sqlstore: select: want 2 fields, got %d", len(fields))
	}
	query, args := buildSelect(table, fields, conds, opts)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: select (%s): %w", c.kind, err)
	}
	defer rows.Close()

	var out []CountRow
	for rows.Next() {
		var r CountRow
		if err := rows.Scan(&r.Name, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func buildSelect(table string, fields []string, conds []Condition, opts SelectOptions) (string, []any) {
	var b strings.Builder
	var args []any

	b.WriteString("SELECT ")
	b.WriteString(strings.Join(fields, ", "))
	b.WriteString(" FROM ")
	b.WriteString(table)

	for _, j := range opts.Joins {
		kind := j.Kind
		if kind == "" {
			kind = "INNER"
		}
		fmt.Fprintf(&b, " %s JOIN %s ON %s", kind, j.Table, j.On)
		args = append(args, j.Args...)
	}

	if len(conds) > 0 {
		parts := make([]string, len(conds))
		for i, c := range conds {
			parts[i] = "(" + c.Expr + ")"
			args = append(args, c.Args...)
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(parts, " AND "))
	}
	if opts.GroupBy != "" {
		b.WriteString(" GROUP BY ")
		b.WriteString(opts.GroupBy)
	}
	if opts.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(opts.OrderBy)
	}
	switch {
	case opts.Limit > 0:
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, opts.Limit, max(opts.Offset, 0))
	case opts.Offset > 0:
		// SQLite only accepts OFFSET after a LIMIT clause.
		b.WriteString(" LIMIT -1 OFFSET ?")
		args = append(args, opts.Offset)
	}
	return b.String(), args
}
