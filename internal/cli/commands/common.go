package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nonibytes/unitsearch/internal/cliopt"
	"github.com/nonibytes/unitsearch/internal/cliutil"
	"github.com/nonibytes/unitsearch/internal/config"
	"github.com/nonibytes/unitsearch/unitsearch"
)

// session is what every command needs after global flags are resolved.
type session struct {
	ctx    context.Context
	stop   context.CancelFunc
	cfg    config.Config
	logger *slog.Logger
	engine *unitsearch.Engine
}

func (s *session) Close() {
	if s.engine != nil {
		if err := s.engine.Close(); err != nil {
			s.logger.Warn("close store", "error", err)
		}
	}
	s.stop()
}

// openSession loads config and opens the engine of the selected kind.
// On failure it has already reported the error and returns the exit code.
func openSession(g cliopt.GlobalOptions) (*session, int) {
	cfg, err := g.Config()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, 2
	}
	logger := cliutil.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	eng, err := cliutil.OpenEngine(ctx, cfg, g.Kind, logger)
	if err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		return nil, 1
	}
	return &session{ctx: ctx, stop: stop, cfg: cfg, logger: logger, engine: eng}, 0
}

type multiString []string

func (m *multiString) String() string { return "" }
func (m *multiString) Set(v string) error {
	*m = append(*m, v)
	return nil
}
