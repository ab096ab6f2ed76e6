package sqltags

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/dangdungcntt/gelly"
)

// executeTag runs its body as arbitrary SQL with no result capture. Intended
// for DDL and maintenance statements.
//
// Usage:
//
//	<app:execute>
//	  CREATE TABLE IF NOT EXISTS temp (id INT, name VARCHAR(100))
//	</app:execute>
type executeTag struct {
	pool Pool
}

func (t *executeTag) Run(ctx context.Context, inv *gelly.Invocation) error {
	stmt := inv.Body()
	if stmt == "" {
		return &gelly.TagError{Kind: gelly.TagEmptyBody, Tag: inv.Name(),
			Cause: errors.New("SQL statement is required in tag body")}
	}

	err := withConn(ctx, t.pool, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, stmt)
		return err
	})
	if err != nil {
		return &gelly.TagError{Kind: gelly.TagExecuteFailed, Tag: inv.Name(), Cause: err}
	}
	return nil
}
