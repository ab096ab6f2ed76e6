// Package dbpool owns the bounded pool of database connections: it opens the
// backing store once at startup, applies the init script, and hands out
// single-use connection leases to tag handlers.
package dbpool

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// Config is the static pool configuration, supplied once at process start.
type Config struct {
	Driver         string        `mapstructure:"driver" yaml:"driver"`
	DSN            string        `mapstructure:"dsn" yaml:"dsn"`
	MaxOpen        int           `mapstructure:"max_open" yaml:"max_open"`
	MaxIdle        int           `mapstructure:"max_idle" yaml:"max_idle"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout" yaml:"acquire_timeout"`
	InitScript     string        `mapstructure:"init_script" yaml:"init_script"`
}

func (c Config) withDefaults() Config {
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	if c.MaxOpen <= 0 {
		c.MaxOpen = 10
	}
	if c.MaxIdle <= 0 {
		c.MaxIdle = 5
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = 5 * time.Second
	}
	return c
}

// Pool is a bounded pool of connections to a single backing store. It is the
// only shared mutable resource in the request path and is safe for
// concurrent use.
type Pool struct {
	db     *sql.DB
	cfg    Config
	log    *slog.Logger
	closed atomic.Bool
}

// Open connects to the backing store, verifies reachability, and applies the
// init script when one is configured. An unreachable store is a hard error:
// the caller must not begin serving requests. A missing init script degrades
// to a logged warning; a failing statement aborts the rest of the script but
// not the process.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (*Pool, error) {
	cfg = cfg.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "dbpool")

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, &Error{Kind: ConnectionFailed, Cause: err}
	}
	db.SetMaxOpenConns(cfg.MaxOpen)
	db.SetMaxIdleConns(cfg.MaxIdle)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &Error{Kind: ConnectionFailed, Cause: err}
	}

	p := &Pool{db: db, cfg: cfg, log: log}
	log.Info("connection pool initialized", "driver", cfg.Driver, "max_open", cfg.MaxOpen)

	if cfg.InitScript != "" {
		p.runInitScript(ctx)
	}
	return p, nil
}

func (p *Pool) runInitScript(ctx context.Context) {
	raw, err := os.ReadFile(p.cfg.InitScript)
	if err != nil {
		p.log.Warn("init script not found, no schema guarantees", "path", p.cfg.InitScript, "error", err)
		return
	}
	stmts := SplitStatements(string(raw))
	for i, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			// Data may be partially seeded at this point; remaining
			// statements are skipped, the process keeps serving.
			p.log.Error("init script aborted", "path", p.cfg.InitScript,
				"statement", i+1, "of", len(stmts), "error", err)
			return
		}
	}
	p.log.Info("schema and seed data initialized", "path", p.cfg.InitScript, "statements", len(stmts))
}

// Acquire borrows a connection, waiting at most the configured acquire
// timeout when the pool is at capacity.
func (p *Pool) Acquire(ctx context.Context) (*sql.Conn, error) {
	if p.closed.Load() {
		return nil, &Error{Kind: Closed}
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.AcquireTimeout)
	defer cancel()
	conn, err := p.db.Conn(ctx)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrConnDone) || p.closed.Load():
			return nil, &Error{Kind: Closed, Cause: err}
		case errors.Is(err, context.DeadlineExceeded):
			return nil, &Error{Kind: Exhausted, Cause: err}
		default:
			return nil, &Error{Kind: ConnectionFailed, Cause: err}
		}
	}
	return conn, nil
}

// Release returns a connection to the pool. Always safe to call: a broken
// connection is discarded and replaced by the pool, a nil connection is
// ignored.
func (p *Pool) Release(conn *sql.Conn) {
	if conn == nil {
		return
	}
	_ = conn.Close()
}

// With runs fn with a borrowed connection, releasing it on every exit path.
func (p *Pool) With(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(conn)
	return fn(conn)
}

// Close drains and closes all connections. Idempotent; Acquire fails with a
// Closed error afterwards.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.log.Info("connection pool closed")
	return p.db.Close()
}

// Stats exposes the underlying pool counters, for diagnostics.
func (p *Pool) Stats() sql.DBStats {
	return p.db.Stats()
}
