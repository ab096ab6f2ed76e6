package sqltags

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/dangdungcntt/gelly"
)

// queryTag runs its body as a SELECT and binds the materialized result.
//
// Usage:
//
//	<app:query var="users" table="users">
//	  SELECT * FROM users WHERE active = 1
//	</app:query>
//
// Binds ${users} (rows) and ${users_count} (row count). The optional table
// attribute is a hint only and not interpreted.
type queryTag struct {
	pool Pool
}

func (t *queryTag) Run(ctx context.Context, inv *gelly.Invocation) error {
	varName := strings.TrimSpace(inv.AttrText("var"))
	if varName == "" {
		return &gelly.TagError{Kind: gelly.TagMissingAttribute, Tag: inv.Name(),
			Cause: errors.New(`"var" attribute is required`)}
	}
	query := inv.Body()
	if query == "" {
		return &gelly.TagError{Kind: gelly.TagEmptyBody, Tag: inv.Name(),
			Cause: errors.New("SQL query is required in tag body")}
	}

	var rows gelly.Rows
	err := withConn(ctx, t.pool, func(conn *sql.Conn) error {
		// Materialize fully before the connection goes back to the pool.
		var err error
		rows, err = fetchAll(ctx, conn, query)
		return err
	})
	if err != nil {
		return &gelly.TagError{Kind: gelly.TagQueryFailed, Tag: inv.Name(), Cause: err}
	}

	inv.Scope().Set(varName, gelly.RowsOf(rows))
	inv.Scope().Set(varName+"_count", gelly.Int(int64(len(rows))))
	return nil
}

// fetchAll reads the whole result set, lower-casing column names.
func fetchAll(ctx context.Context, conn *sql.Conn, query string) (gelly.Rows, error) {
	rs, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	cols, err := rs.Columns()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = strings.ToLower(c)
	}

	var out gelly.Rows
	for rs.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(gelly.Row, len(cols))
		for i, name := range names {
			row[name] = gelly.FromNative(vals[i])
		}
		out = append(out, row)
	}
	return out, rs.Err()
}
