package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utkarsh5026/poolreduce/freq"
)

func fixed(name string, d time.Duration, table freq.Table, err error) Strategy {
	return Strategy{Name: name, Run: func(context.Context, []string, int) (freq.Table, error) {
		time.Sleep(d)
		return table, err
	}}
}

func TestRunnerRanksAndVerifies(t *testing.T) {
	good := freq.NewTable(freq.Count(Sentence))
	wrong := freq.NewTable(freq.CharMap{'z': 1})

	strategies := []Strategy{
		fixed("slow", 20*time.Millisecond, good, nil),
		fixed("fast", time.Millisecond, good, nil),
		fixed("wrong", time.Millisecond, wrong, nil),
		fixed("broken", 0, freq.Table{}, errors.New("boom")),
	}

	r, err := NewRunner(Config{Repeat: 1, Iterations: 3}, strategies, WithPause(0))
	require.NoError(t, err)

	results, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 4)

	byName := map[string]RunResult{}
	for _, res := range results {
		byName[res.Strategy] = res
	}

	assert.True(t, byName["fast"].Verified)
	assert.True(t, byName["slow"].Verified)
	assert.False(t, byName["wrong"].Verified)
	assert.False(t, byName["broken"].Success)
	assert.Equal(t, "boom", byName["broken"].ErrorMsg)
	assert.Zero(t, byName["broken"].Rank)
	assert.Less(t, byName["fast"].Rank, byName["slow"].Rank)
	assert.Equal(t, "broken", results[len(results)-1].Strategy, "failures sort last")
}

func TestRunnerCIMode(t *testing.T) {
	strategies := []Strategy{fixed("wrong", 0, freq.Table{}, nil)}

	r, err := NewRunner(Config{Repeat: 4, CI: true}, strategies, WithPause(0))
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	assert.ErrorIs(t, err, ErrVerification)
}

func TestRunnerUnknownStrategy(t *testing.T) {
	_, err := NewRunner(Config{Strategy: "nope"}, NewSuite(nil).Strategies())
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestRunnerSingleStrategy(t *testing.T) {
	var progress bytes.Buffer
	r, err := NewRunner(Config{Strategy: "engine", Workers: 2, Repeat: 64, Iterations: 2}, NewSuite(nil).Strategies(),
		WithPause(0), WithProgress(&progress))
	require.NoError(t, err)
	assert.Equal(t, 2, r.Steps())

	results, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Verified)
	assert.Equal(t, 1, results[0].Rank)
}

func TestRenderTable(t *testing.T) {
	results := []RunResult{
		{Strategy: "engine", Success: true, Verified: true, Rank: 1, TotalTime: time.Millisecond, Letters: 1234},
		{Strategy: "mutex", Success: true, Verified: true, Rank: 2, TotalTime: 2 * time.Millisecond},
		{Strategy: "broken", ErrorMsg: "boom"},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, results))

	out := buf.String()
	assert.Contains(t, out, "engine")
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "2.00x")
	assert.Contains(t, out, "broken: boom")
	assert.Contains(t, out, "2/3")
}

func TestRenderJSON(t *testing.T) {
	results := []RunResult{{Strategy: "engine", Success: true, TotalTime: 1500 * time.Microsecond}}

	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, results))

	var decoded struct {
		Benchmark string      `json:"benchmark"`
		Results   []RunResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "letter-frequency", decoded.Benchmark)
	assert.Equal(t, "1.50ms", decoded.Results[0].TotalTimeStr)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "1,000", FormatNumber(1000))
	assert.Equal(t, "-1,234,567", FormatNumber(-1234567))

	assert.Equal(t, "0", FormatDuration(0))
	assert.Equal(t, "500ns", FormatDuration(500))
	assert.Equal(t, "1.5µs", FormatDuration(1500))
	assert.Equal(t, "2.50ms", FormatDuration(2500*time.Microsecond))
	assert.Equal(t, "1.25s", FormatDuration(1250*time.Millisecond))
}

func TestRenderCounts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderCounts(&buf, freq.NewTable(freq.CharMap{'a': 3, 'b': 1})))

	out := buf.String()
	assert.Contains(t, out, "75.00%")
	assert.Contains(t, out, "4 letters, 2 distinct")
}

func TestRunnerLossyStrategies(t *testing.T) {
	// With 7 workers the engine's byte windows cut through multibyte letters.
	cfg := Config{Workers: 7, Repeat: 50, Iterations: 1, Sentence: "Grüße, señor Ærø! ", CI: true}

	for _, name := range []string{"engine", "layered"} {
		t.Run(name, func(t *testing.T) {
			cfg := cfg
			cfg.Strategy = name
			r, err := NewRunner(cfg, NewSuite(nil).Strategies(), WithPause(0))
			require.NoError(t, err)

			results, err := r.Run(context.Background())
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.True(t, results[0].Verified)
			assert.Positive(t, results[0].Dropped)
		})
	}
}

func TestRunnerLossyStillCatchesWrongCounts(t *testing.T) {
	extra := freq.NewTable(freq.CharMap{'g': 1000})
	s := fixed("lossy", 0, extra, nil)
	s.Lossy = true

	r, err := NewRunner(Config{Workers: 7, Repeat: 50, Sentence: "Grüße, señor Ærø! "}, []Strategy{s}, WithPause(0))
	require.NoError(t, err)

	results, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, results[0].Verified)
	assert.Equal(t, "result differs from sequential", results[0].ErrorMsg)
}

func TestWithinDropped(t *testing.T) {
	want := freq.NewTable(freq.CharMap{'a': 3, 'ü': 2})

	tests := []struct {
		name    string
		got     freq.CharMap
		dropped int
		ok      bool
	}{
		{"equal", freq.CharMap{'a': 3, 'ü': 2}, 0, true},
		{"one lost", freq.CharMap{'a': 3, 'ü': 1}, 2, true},
		{"too many lost", freq.CharMap{'a': 1}, 2, false},
		{"extra letter", freq.CharMap{'a': 4, 'ü': 1}, 2, false},
		{"unknown letter", freq.CharMap{'a': 3, 'ü': 1, 'z': 1}, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, withinDropped(freq.NewTable(tt.got), want, tt.dropped))
		})
	}
}

func TestRunnerFailedStrategyCompletesProgress(t *testing.T) {
	calls := 0
	flaky := Strategy{Name: "flaky", Run: func(context.Context, []string, int) (freq.Table, error) {
		calls++
		if calls == 2 {
			return freq.Table{}, errors.New("boom")
		}
		return freq.NewTable(freq.Count(Sentence)), nil
	}}
	good := fixed("good", 0, freq.NewTable(freq.Count(Sentence)), nil)

	var progress bytes.Buffer
	r, err := NewRunner(Config{Repeat: 1, Iterations: 5}, []Strategy{flaky, good},
		WithPause(0), WithProgress(&progress))
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, r.Steps(), r.advanced, "skipped iterations still count as progress")
}
