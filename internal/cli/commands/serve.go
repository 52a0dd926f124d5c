package commands

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nonibytes/unitsearch/internal/cliopt"
	"github.com/nonibytes/unitsearch/internal/cliutil"
	"github.com/nonibytes/unitsearch/internal/server"
	"github.com/nonibytes/unitsearch/unitsearch"
)

var servedKinds = []string{"units", "users"}

// RunServe serves both record kinds over HTTP until interrupted.
func RunServe(g cliopt.GlobalOptions, argv []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var addr string
	var timeout time.Duration
	var loads multiString
	fs.StringVar(&addr, "addr", "", "listen address (default from config)")
	fs.DurationVar(&timeout, "timeout", 30*time.Second, "per request timeout")
	fs.Var(&loads, "load", "preload kind=file.jsonl (repeatable)")
	if err := fs.Parse(argv); err != nil {
		return 2
	}

	cfg, err := g.Config()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}
	logger := cliutil.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engines := make(map[string]*unitsearch.Engine, len(servedKinds))
	defer func() {
		for kind, e := range engines {
			if err := e.Close(); err != nil {
				logger.Warn("close store", "kind", kind, "error", err)
			}
		}
	}()
	for _, kind := range servedKinds {
		e, err := cliutil.OpenEngine(ctx, cfg, kind, logger)
		if err != nil {
			logger.Error("open engine", "kind", kind, "error", err)
			return 1
		}
		engines[kind] = e
	}

	for _, spec := range loads {
		kind, path, ok := strings.Cut(spec, "=")
		e, known := engines[kind]
		if !ok || !known {
			fmt.Fprintf(os.Stderr, "invalid --load %q (want units=FILE or users=FILE)\n", spec)
			return 2
		}
		if err := preload(ctx, e, path); err != nil {
			logger.Error("preload", "kind", kind, "path", path, "error", err)
			return 1
		}
	}

	srv := server.New(engines, server.Options{
		RateLimit: cfg.Server.RateLimit,
		Burst:     cfg.Server.Burst,
		Timeout:   timeout,
	}, logger)
	logger.Info("starting unitsearch", "backend", cfg.Backend, "addr", addr)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		logger.Error("server error", "error", err)
		return 1
	}
	return 0
}

func preload(ctx context.Context, e *unitsearch.Engine, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	start := time.Now()
	records, err := cliutil.ReadRecords(ctx, f, e.Registry())
	if err != nil {
		return err
	}
	if err := e.Load(ctx, records, 1000); err != nil {
		return err
	}
	slog.Info("preloaded", "kind", e.Registry().Name(), "records", cliutil.Count(len(records)), "elapsed", time.Since(start))
	return nil
}
