package sqltags

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/dangdungcntt/gelly"
)

// updateTag runs its body as INSERT/UPDATE/DELETE.
//
// Usage:
//
//	<app:update var="rowsAffected">
//	  UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = 1
//	</app:update>
//
// The affected-row count is bound to var only when the attribute is present;
// without it no binding occurs at all.
type updateTag struct {
	pool Pool
}

func (t *updateTag) Run(ctx context.Context, inv *gelly.Invocation) error {
	stmt := inv.Body()
	if stmt == "" {
		return &gelly.TagError{Kind: gelly.TagEmptyBody, Tag: inv.Name(),
			Cause: errors.New("SQL statement is required in tag body")}
	}

	var affected int64
	err := withConn(ctx, t.pool, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, stmt)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return &gelly.TagError{Kind: gelly.TagUpdateFailed, Tag: inv.Name(), Cause: err}
	}

	if varName := strings.TrimSpace(inv.AttrText("var")); varName != "" {
		inv.Scope().Set(varName, gelly.Int(affected))
	}
	return nil
}
