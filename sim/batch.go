package sim

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// RunBatch runs every input against the same table and returns the results in
// input order. Runs are independent: each gets its own Simulator and Arena and
// stays single-threaded, so workers only bounds how many run at once
// (workers <= 0 means no bound). config.Trace is ignored.
//
// The first failing run cancels the others and its error is returned.
func RunBatch(ctx context.Context, table *Table, config SimConfig, inputs [][]Symbol, workers int) ([]*Result, error) {
	config.Trace = nil
	results := make([]*Result, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, input := range inputs {
		g.Go(func() error {
			res, err := NewSimulator(table, config).Run(ctx, input)
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
