package cliutil

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/nonibytes/unitsearch/unitsearch/fields"
	"github.com/nonibytes/unitsearch/unitsearch/ops"
	"github.com/nonibytes/unitsearch/unitsearch/storage"
)

const maxLineBytes = 16 << 20

// ReadRecords decodes newline delimited JSON documents against reg.
// Lines are decoded concurrently; the result keeps input order. Blank
// lines are skipped.
func ReadRecords(ctx context.Context, r io.Reader, reg *fields.Registry) ([]storage.Record, error) {
	var lines [][]byte
	var lineNos []int
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	n := 0
	for sc.Scan() {
		n++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, bytes.Clone(line))
		lineNos = append(lineNos, n)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	records := make([]storage.Record, len(lines))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range lines {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := ops.ParseDocument(reg, lines[i])
			if err != nil {
				return fmt.Errorf("line %d: %w", lineNos[i], err)
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}
