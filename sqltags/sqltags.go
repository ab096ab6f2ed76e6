// Package sqltags is the stock tag library: query, update and execute tags
// that run the tag body as SQL against a pooled database, plus the small
// formatting tags. Each SQL tag borrows exactly one connection per
// invocation and releases it on every exit path.
package sqltags

import (
	"context"
	"database/sql"

	"github.com/dangdungcntt/gelly"
)

// Pool is the connection source the tags borrow from. *dbpool.Pool satisfies
// it; tests substitute a counting double.
type Pool interface {
	Acquire(ctx context.Context) (*sql.Conn, error)
	Release(conn *sql.Conn)
}

// Library returns a registry with all tags of the library, ready to be bound
// to a namespace prefix on the engine.
func Library(pool Pool) *gelly.Registry {
	r := gelly.NewRegistry()
	r.Register("query", func() gelly.Tag { return &queryTag{pool: pool} })
	r.Register("update", func() gelly.Tag { return &updateTag{pool: pool} })
	r.Register("execute", func() gelly.Tag { return &executeTag{pool: pool} })
	r.Register("formatDate", func() gelly.Tag { return &formatDateTag{} })
	r.Register("formatNumber", func() gelly.Tag { return &formatNumberTag{} })
	return r
}

// withConn borrows one connection for the duration of fn. Release is
// guaranteed on every exit path, including panics unwinding through fn.
func withConn(ctx context.Context, pool Pool, fn func(*sql.Conn) error) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer pool.Release(conn)
	return fn(conn)
}
