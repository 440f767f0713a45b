package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"

	"github.com/utkarsh5026/poolreduce/freq"
)

var (
	Bold   = color.New(color.Bold)
	Green  = color.New(color.FgGreen)
	Red    = color.New(color.FgRed)
	Yellow = color.New(color.FgYellow)
)

// NewProgressBar returns the bar used while strategies run.
func NewProgressBar(steps int, w io.Writer) *progressbar.ProgressBar {
	if w == nil {
		w = os.Stderr
	}
	return progressbar.NewOptions(steps,
		progressbar.OptionSetDescription("Testing strategies"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(w),
		progressbar.OptionClearOnFinish(),
	)
}

// PrintHeader prints the banner and the run configuration.
func PrintHeader(w io.Writer, cfg Config) {
	_, _ = Bold.Fprintln(w, "╔════════════════════════════════════════════════════════════╗")
	_, _ = Bold.Fprintf(w, "║       %-52s ║\n", "LETTER FREQUENCY STRATEGIES")
	_, _ = Bold.Fprintln(w, "╚════════════════════════════════════════════════════════════╝")
	_, _ = fmt.Fprintf(w, "Workers: %d | Lines: %d | Iterations: %d | Warmup: %d\n\n",
		cfg.Workers, cfg.Repeat, cfg.Iterations, cfg.Warmup)
}

// RenderTable writes the ranked results table followed by any failures.
func RenderTable(w io.Writer, results []RunResult) error {
	var fastest time.Duration
	ok := 0
	for _, r := range results {
		if r.Success {
			if ok == 0 || r.TotalTime < fastest {
				fastest = r.TotalTime
			}
			ok++
		}
	}

	if ok == 0 {
		_, _ = Red.Fprintln(w, "No strategies completed successfully!")
	} else {
		table := tablewriter.NewWriter(w)
		table.Header("Rank", "Strategy", "Median", "Min", "Max", "Letters", "Verified", "vs Fastest")
		for _, r := range results {
			if !r.Success {
				continue
			}
			if err := table.Append(
				rankIcon(r.Rank),
				r.Strategy,
				FormatDuration(r.TotalTime),
				FormatDuration(r.MinTime),
				FormatDuration(r.MaxTime),
				FormatNumber(r.Letters),
				verifiedMark(r.Verified),
				vsFastest(r.TotalTime, fastest, r.Rank),
			); err != nil {
				return fmt.Errorf("append row: %w", err)
			}
		}
		if err := table.Render(); err != nil {
			return fmt.Errorf("render table: %w", err)
		}
	}

	printFailures(w, results)
	_, _ = Green.Fprintf(w, "\n✅ Successfully tested %d/%d strategies\n", ok, len(results))
	return nil
}

// RenderJSON writes results as indented JSON.
func RenderJSON(w io.Writer, results []RunResult) error {
	for i := range results {
		results[i].TotalTimeStr = FormatDuration(results[i].TotalTime)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(struct {
		Benchmark string      `json:"benchmark"`
		Results   []RunResult `json:"results"`
	}{"letter-frequency", results}); err != nil {
		return fmt.Errorf("failed to serialize to JSON: %w", err)
	}
	return nil
}

func printFailures(w io.Writer, results []RunResult) {
	var failed []RunResult
	for _, r := range results {
		if !r.Success || !r.Verified {
			failed = append(failed, r)
		}
	}
	if len(failed) == 0 {
		return
	}

	_, _ = Red.Fprintln(w, "\n⚠️  Failed Strategies:")
	for _, r := range failed {
		_, _ = Red.Fprintf(w, "  • %s: %s\n", r.Strategy, r.ErrorMsg)
	}
}

func rankIcon(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("%d", rank)
	}
}

func verifiedMark(ok bool) string {
	if ok {
		return "yes"
	}
	return Yellow.Sprint("NO")
}

func vsFastest(t, fastest time.Duration, rank int) string {
	if rank == 1 || fastest <= 0 {
		return "baseline"
	}
	return fmt.Sprintf("%.2fx", float64(t)/float64(fastest))
}

// FormatNumber formats an integer with comma separators.
func FormatNumber(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

// FormatDuration formats d in the most readable unit.
func FormatDuration(d time.Duration) string {
	ns := d.Nanoseconds()
	switch {
	case ns == 0:
		return "0"
	case ns < 1_000:
		return fmt.Sprintf("%dns", ns)
	case ns < 1_000_000:
		return fmt.Sprintf("%.1fµs", float64(ns)/1e3)
	case ns < 1_000_000_000:
		return fmt.Sprintf("%.2fms", float64(ns)/1e6)
	default:
		return fmt.Sprintf("%.2fs", float64(ns)/1e9)
	}
}

// RenderCounts writes one row per letter in rune order.
func RenderCounts(w io.Writer, t freq.Table) error {
	table := tablewriter.NewWriter(w)
	table.Header("Letter", "Count", "Share")
	for _, r := range t.Runes() {
		n := t.Get(r)
		if err := table.Append(
			string(r),
			FormatNumber(n),
			fmt.Sprintf("%.2f%%", 100*float64(n)/float64(t.Total())),
		); err != nil {
			return fmt.Errorf("append row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	_, _ = Bold.Fprintf(w, "%s letters, %d distinct\n", FormatNumber(t.Total()), t.Len())
	return nil
}
