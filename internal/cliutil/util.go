package cliutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nonibytes/unitsearch/internal/config"
	"github.com/nonibytes/unitsearch/unitsearch"
	"github.com/nonibytes/unitsearch/unitsearch/fields"
)

type OutputFormat string

const (
	FormatPretty OutputFormat = "pretty"
	FormatIDs    OutputFormat = "ids"
	FormatJSON   OutputFormat = "json"
)

func ParseOutputFormat(s string) OutputFormat {
	switch OutputFormat(s) {
	case FormatPretty, FormatIDs, FormatJSON:
		return OutputFormat(s)
	default:
		return FormatPretty
	}
}

func PrintJSON(w io.Writer, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(b))
}

// NewLogger builds the process logger from the log section. Logs go to
// stderr so stdout stays machine readable.
func NewLogger(cfg config.Config) *slog.Logger {
	level, _ := config.ParseLevel(cfg.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// OpenEngine opens the store of kind and binds it to its registry.
func OpenEngine(ctx context.Context, cfg config.Config, kind string, logger *slog.Logger) (*unitsearch.Engine, error) {
	reg, ok := fields.ByName(kind)
	if !ok {
		return nil, fmt.Errorf("unknown record kind %q (want units or users)", kind)
	}
	opts, err := cfg.EngineOptions(logger)
	if err != nil {
		return nil, err
	}
	store, err := unitsearch.OpenStore(ctx, cfg.StoreConfig(reg.Name()), reg.Name())
	if err != nil {
		return nil, err
	}
	return unitsearch.NewEngine(reg, store, opts), nil
}
