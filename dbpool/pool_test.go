package dbpool

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dbSeq int

// testDSN gives every test its own shared in-memory database.
func testDSN(t *testing.T) string {
	t.Helper()
	dbSeq++
	return fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), dbSeq)
}

func testPool(t *testing.T, cfg Config) *Pool {
	t.Helper()
	if cfg.DSN == "" {
		cfg.DSN = testDSN(t)
	}
	p, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

const initScript = `
-- guarded schema, safe to re-run
CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL
);

INSERT OR IGNORE INTO users (id, name) VALUES (1, 'alice');
INSERT OR IGNORE INTO users (id, name) VALUES (2, 'bob');
`

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "init.sql")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func countUsers(t *testing.T, p *Pool) int {
	t.Helper()
	var n int
	err := p.With(context.Background(), func(conn *sql.Conn) error {
		return conn.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM users").Scan(&n)
	})
	require.NoError(t, err)
	return n
}

func TestOpenRunsInitScript(t *testing.T) {
	p := testPool(t, Config{InitScript: writeScript(t, initScript)})
	assert.Equal(t, 2, countUsers(t, p))
}

func TestInitScriptIsReentrant(t *testing.T) {
	p := testPool(t, Config{InitScript: writeScript(t, initScript)})

	// re-running the guarded script must not fail or duplicate seed rows
	err := p.With(context.Background(), func(conn *sql.Conn) error {
		for _, stmt := range SplitStatements(initScript) {
			if _, err := conn.ExecContext(context.Background(), stmt); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, countUsers(t, p))
}

func TestOpenMissingInitScriptDegrades(t *testing.T) {
	// missing script logs a warning but the pool still serves
	p := testPool(t, Config{InitScript: filepath.Join(t.TempDir(), "nope.sql")})
	err := p.With(context.Background(), func(conn *sql.Conn) error {
		_, err := conn.ExecContext(context.Background(), "SELECT 1")
		return err
	})
	assert.NoError(t, err)
}

func TestInitScriptFailureAbortsRemainder(t *testing.T) {
	script := `
CREATE TABLE t (id INTEGER);
INSERT INTO nosuchtable VALUES (1);
INSERT INTO t VALUES (1);
`
	// Open survives; the statement after the failure never ran
	p := testPool(t, Config{InitScript: writeScript(t, script)})
	var n int
	err := p.With(context.Background(), func(conn *sql.Conn) error {
		return conn.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM t").Scan(&n)
	})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAcquireReleaseRoundTrip(t *testing.T) {
	p := testPool(t, Config{})
	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(conn)
	p.Release(nil) // always safe
}

func TestAcquireExhaustedAfterWaitBound(t *testing.T) {
	p := testPool(t, Config{MaxOpen: 1, MaxIdle: 1, AcquireTimeout: 100 * time.Millisecond})

	held, err := p.Acquire(context.Background())
	require.NoError(t, err)

	start := time.Now()
	_, err = p.Acquire(context.Background())
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, Exhausted, pe.Kind)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)

	p.Release(held)
	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(conn)
}

func TestAcquireAfterCloseFails(t *testing.T) {
	p := testPool(t, Config{})
	require.NoError(t, p.Close())
	require.NoError(t, p.Close()) // idempotent

	_, err := p.Acquire(context.Background())
	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, Closed, pe.Kind)
}

func TestWithReleasesOnError(t *testing.T) {
	p := testPool(t, Config{MaxOpen: 1, MaxIdle: 1, AcquireTimeout: 200 * time.Millisecond})

	wantErr := fmt.Errorf("handler failure")
	err := p.With(context.Background(), func(conn *sql.Conn) error { return wantErr })
	assert.ErrorIs(t, err, wantErr)

	// the single connection must be back in the pool
	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(conn)
}
