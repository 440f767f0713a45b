package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/utkarsh5026/poolreduce/internal/harness"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Time every counting strategy on a repeated sentence",
		Example: `  freqbench run
  freqbench run --workers 4 --iterations 5 --warmup 1
  freqbench run --strategy engine --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd)
		},
	}

	fs := cmd.Flags()
	addWorkersFlag(fs, "workers", "Workers per strategy (pool size for the engine)")
	fs.Int("repeat", 1024, "Number of times the sentence is repeated")
	fs.Int("iterations", 1, "Timed runs per strategy")
	fs.Int("warmup", 0, "Untimed runs per strategy")
	fs.String("strategy", "", "Run a single strategy: "+strings.Join(harness.Names(harness.NewSuite(nil).Strategies()), ", "))
	fs.String("sentence", harness.Sentence, "Line to repeat")
	fs.String("format", "table", "Output format: table or json")
	fs.Bool("ci", false, "Exit non-zero if any strategy disagrees with sequential")
	return cmd
}

func (a *app) run(cmd *cobra.Command) error {
	format := a.v.GetString("format")
	if format != "table" && format != "json" {
		return fmt.Errorf("unknown format %q: must be table or json", format)
	}

	cfg := harness.Config{
		Workers:    a.v.GetInt("workers"),
		Repeat:     a.v.GetInt("repeat"),
		Iterations: a.v.GetInt("iterations"),
		Warmup:     a.v.GetInt("warmup"),
		Strategy:   a.v.GetString("strategy"),
		Sentence:   a.v.GetString("sentence"),
		CI:         a.v.GetBool("ci"),
	}

	opts := []harness.RunnerOption{harness.WithRunnerLogger(a.log)}
	if format == "table" {
		opts = append(opts, harness.WithProgress(cmd.ErrOrStderr()))
	}

	r, err := harness.NewRunner(cfg, harness.NewSuite(a.log).Strategies(), opts...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "table" {
		harness.PrintHeader(out, r.Config())
	}

	results, runErr := r.Run(cmd.Context())
	if results != nil {
		if format == "json" {
			err = harness.RenderJSON(out, results)
		} else {
			err = harness.RenderTable(out, results)
		}
		if err != nil {
			return err
		}
	}
	return runErr
}
