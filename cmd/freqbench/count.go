package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/utkarsh5026/poolreduce/freq"
	"github.com/utkarsh5026/poolreduce/internal/harness"
	"github.com/utkarsh5026/poolreduce/pool"
	"github.com/utkarsh5026/poolreduce/reduce"
)

func newCountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count [text...]",
		Short: "Count the letters of the arguments, or of stdin when none are given",
		Example: `  freqbench count "To be or not to be"
  cat book.txt | freqbench count --concurrency 16`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.count(cmd, args)
		},
	}

	fs := cmd.Flags()
	addWorkersFlag(fs, "workers", "Pool size")
	fs.Int("concurrency", 0, "Number of chunks (0 = pool size)")
	fs.Bool("pin", false, "Pin every pool unit to its own CPU")
	fs.Duration("tick", 50*time.Millisecond, "Elapsed-time refresh interval while counting")
	return cmd
}

func (a *app) count(cmd *cobra.Command, args []string) error {
	input := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		input = string(data)
	}

	workers := max(1, a.v.GetInt("workers"))
	concurrency := a.v.GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = workers
	}

	opts := []pool.Option{pool.WithLogger(a.log)}
	if a.v.GetBool("pin") {
		opts = append(opts, pool.WithCPUAffinity())
	}
	p, err := pool.New(workers, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	start := time.Now()
	h, err := freq.Process(input, concurrency, p, reduce.WithLogger(a.log))
	if err != nil {
		return err
	}

	// The handle is watched from this goroutine's own loop, which keeps
	// refreshing the elapsed time until the result arrives.
	errOut := cmd.ErrOrStderr()
	tick := time.NewTicker(max(time.Millisecond, a.v.GetDuration("tick")))
	defer tick.Stop()

	ctx := cmd.Context()
wait:
	for {
		select {
		case <-h.Done():
			break wait
		case <-tick.C:
			_, _ = fmt.Fprintf(errOut, "\rcounting... %s", harness.FormatDuration(time.Since(start)))
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	table, err := h.Result()
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	_, _ = fmt.Fprintf(errOut, "\rcounted in %s          \n", harness.FormatDuration(elapsed))
	a.log.Debug("count finished",
		zap.String("job_id", h.ID()),
		zap.Int("workers", workers),
		zap.Int("concurrency", concurrency),
		zap.Duration("elapsed", elapsed))

	return harness.RenderCounts(cmd.OutOrStdout(), table)
}
