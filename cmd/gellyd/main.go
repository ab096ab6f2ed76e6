// gellyd serves gelly templates over HTTP: it opens the connection pool,
// registers the tag libraries on the engine, and mounts the request router.
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/dangdungcntt/gelly"
	"github.com/dangdungcntt/gelly/config"
	"github.com/dangdungcntt/gelly/dbpool"
	"github.com/dangdungcntt/gelly/sqltags"
	"github.com/dangdungcntt/gelly/web"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "gellyd",
	Short:         "gellyd renders gelly templates per HTTP request",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default gelly.yaml)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("gellyd failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	log := newLogger(cfg.Log.Level)
	slog.SetDefault(log)

	// An unreachable backing store is fatal: do not start serving.
	pool, err := dbpool.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	engine := gelly.New(cfg.Templates.Dir)
	if cfg.Templates.MaxIncludeDepth > 0 {
		engine.SetMaxIncludeDepth(cfg.Templates.MaxIncludeDepth)
	}
	engine.RegisterLibrary("app", sqltags.Library(pool))

	sessions := web.NewSessionStore(sessionKey(cfg.Server.SessionHashKey, log), nil)
	router := web.NewRouter(engine, sessions, log)

	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	router.Mount(g)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: g}

	errCh := make(chan error, 1)
	go func() {
		log.Info("serving", "addr", addr, "templates", cfg.Templates.Dir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return pool.Close()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func sessionKey(configured string, log *slog.Logger) []byte {
	if configured != "" {
		return []byte(configured)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Warn("random session key unavailable, using static fallback", "error", err)
		return []byte("gelly-dev-session-key")
	}
	return key
}
