package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/utkarsh5026/poolreduce/freq"
	"github.com/utkarsh5026/poolreduce/split"
)

var (
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrVerification is returned in CI mode when a strategy failed or its
	// table differs from the sequential one.
	ErrVerification = errors.New("strategy results disagree")
)

// Config controls one harness run.
type Config struct {
	Workers    int
	Repeat     int
	Iterations int
	Warmup     int
	// Strategy restricts the run to one strategy by name; empty runs all.
	Strategy string
	// Sentence is the repeated line; empty means the default Sentence.
	Sentence string
	// CI makes Run fail with ErrVerification on any mismatch.
	CI bool
}

// RunResult captures one strategy's outcome.
type RunResult struct {
	Strategy     string        `json:"strategy"`
	TotalTime    time.Duration `json:"total_ns"`
	TotalTimeStr string        `json:"total_time"`
	MinTime      time.Duration `json:"min_ns"`
	MaxTime      time.Duration `json:"max_ns"`
	Rank         int           `json:"rank"`
	Success      bool          `json:"success"`
	Verified     bool          `json:"verified"`
	ErrorMsg     string        `json:"error,omitempty"`
	Letters      int           `json:"letters"`
	Distinct     int           `json:"distinct"`

	// Dropped is the number of input bytes a lossy strategy cut at chunk
	// boundaries; its table is checked against that allowance.
	Dropped int `json:"dropped_bytes,omitempty"`
}

// Runner executes strategies and verifies them against Sequential.
type Runner struct {
	cfg        Config
	strategies []Strategy
	log        *zap.Logger
	bar        *progressbar.ProgressBar
	progress   io.Writer
	pause      time.Duration
	advanced   int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithProgress draws a progress bar over all iterations on w.
func WithProgress(w io.Writer) RunnerOption {
	return func(r *Runner) {
		r.progress = w
	}
}

// WithRunnerLogger injects the runner's logger.
func WithRunnerLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithPause sets the idle time between iterations (default 50ms).
func WithPause(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.pause = d
	}
}

// NewRunner validates cfg and selects the strategies to run.
func NewRunner(cfg Config, strategies []Strategy, opts ...RunnerOption) (*Runner, error) {
	cfg.Workers = max(1, cfg.Workers)
	cfg.Iterations = max(1, cfg.Iterations)
	cfg.Warmup = max(0, cfg.Warmup)
	cfg.Repeat = max(0, cfg.Repeat)
	if cfg.Sentence == "" {
		cfg.Sentence = Sentence
	}

	if cfg.Strategy != "" {
		i := slices.IndexFunc(strategies, func(s Strategy) bool { return s.Name == cfg.Strategy })
		if i < 0 {
			return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownStrategy, cfg.Strategy, Names(strategies))
		}
		strategies = strategies[i : i+1]
	}

	r := &Runner{
		cfg:        cfg,
		strategies: strategies,
		log:        zap.NewNop(),
		pause:      50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.Named("harness")
	if r.progress != nil {
		r.bar = NewProgressBar(r.Steps(), r.progress)
	}
	return r, nil
}

// Names lists the strategy names.
func Names(strategies []Strategy) []string {
	out := make([]string, len(strategies))
	for i, s := range strategies {
		out[i] = s.Name
	}
	return out
}

// Steps is the number of progress increments a full run makes.
func (r *Runner) Steps() int {
	return len(r.strategies) * r.cfg.Iterations
}

// Config returns the normalized configuration.
func (r *Runner) Config() Config {
	return r.cfg
}

// Run executes every selected strategy and returns ranked results.
func (r *Runner) Run(ctx context.Context) ([]RunResult, error) {
	lines := Lines(r.cfg.Sentence, r.cfg.Repeat)
	reference, _ := Sequential(ctx, lines, 1)

	results := make([]RunResult, 0, len(r.strategies))
	for _, s := range r.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, r.runStrategy(ctx, s, lines, reference))
	}

	if r.bar != nil {
		_ = r.bar.Finish()
	}

	Rank(results)

	if r.cfg.CI {
		for _, res := range results {
			if !res.Success || !res.Verified {
				return results, fmt.Errorf("%w: %s", ErrVerification, res.Strategy)
			}
		}
	}
	return results, nil
}

func (r *Runner) runStrategy(ctx context.Context, s Strategy, lines []string, reference freq.Table) RunResult {
	log := r.log.With(zap.String("strategy", s.Name))
	res := RunResult{Strategy: s.Name}

	for range r.cfg.Warmup {
		if _, err := s.Run(ctx, lines, r.cfg.Workers); err != nil {
			log.Warn("warmup failed", zap.Error(err))
		}
		runtime.GC()
	}

	times := make([]time.Duration, 0, r.cfg.Iterations)
	var table freq.Table
	for i := range r.cfg.Iterations {
		if r.bar != nil {
			r.bar.Describe(fmt.Sprintf("Testing: %s", s.Name))
		}

		start := time.Now()
		t, err := s.Run(ctx, lines, r.cfg.Workers)
		elapsed := time.Since(start)

		r.advance(1)
		if err != nil {
			log.Error("strategy failed", zap.Int("iteration", i), zap.Error(err))
			res.ErrorMsg = err.Error()
			r.advance(r.cfg.Iterations - i - 1)
			return res
		}

		table = t
		times = append(times, elapsed)
		log.Debug("iteration done", zap.Int("iteration", i), zap.Duration("elapsed", elapsed))

		if i < r.cfg.Iterations-1 && r.pause > 0 {
			runtime.GC()
			time.Sleep(r.pause)
		}
	}

	slices.Sort(times)
	res.Success = true
	res.TotalTime = times[len(times)/2]
	res.TotalTimeStr = FormatDuration(res.TotalTime)
	res.MinTime = times[0]
	res.MaxTime = times[len(times)-1]
	res.Letters = table.Total()
	res.Distinct = table.Len()
	res.Verified = table.Equal(reference)
	if !res.Verified && s.Lossy {
		input := strings.Join(lines, "")
		res.Dropped = split.Dropped(input, split.Split(input, r.cfg.Workers))
		res.Verified = res.Dropped > 0 && withinDropped(table, reference, res.Dropped)
	}
	if !res.Verified {
		res.ErrorMsg = "result differs from sequential"
		log.Error("verification failed", zap.Stringer("got", table), zap.Stringer("want", reference))
	}
	return res
}

// advance moves the progress bar by n steps.
func (r *Runner) advance(n int) {
	if n <= 0 {
		return
	}
	r.advanced += n
	if r.bar != nil {
		_ = r.bar.Add(n)
	}
}

// withinDropped reports whether got is want minus at most dropped letters:
// no letter is counted more often than in want.
func withinDropped(got, want freq.Table, dropped int) bool {
	for _, r := range got.Runes() {
		if got.Get(r) > want.Get(r) {
			return false
		}
	}
	return want.Total()-got.Total() <= dropped
}

// Rank orders successful results by time and numbers them from 1; failed
// results keep rank 0 and move to the end.
func Rank(results []RunResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Success != results[j].Success {
			return results[i].Success
		}
		return results[i].TotalTime < results[j].TotalTime
	})

	rank := 0
	for i := range results {
		if results[i].Success {
			rank++
			results[i].Rank = rank
		}
	}
}
