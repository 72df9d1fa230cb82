// Package report collects per-shard run results and renders them for
// operators: one JSON breakdown file per shard plus a merged summary table.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// ShardReport is the outcome of one shard's driver run.
type ShardReport struct {
	Shard          int            `json:"shard"`
	Table          string         `json:"table"`
	TotalProcessed int            `json:"total_processed"`
	StageBreakdown map[string]int `json:"stage_breakdown"`
	ErrorBreakdown map[string]int `json:"error_breakdown"`
	Skipped        bool           `json:"skipped,omitempty"`
	ResetAbandoned bool           `json:"reset_abandoned,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// RunReport aggregates every shard of one run.
type RunReport struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Shards    []ShardReport `json:"shards"`
}

// Totals merges the per-shard breakdowns.
func (r *RunReport) Totals() (int, map[string]int, map[string]int) {
	total := 0
	stages := make(map[string]int)
	reasons := make(map[string]int)
	for _, s := range r.Shards {
		total += s.TotalProcessed
		for k, v := range s.StageBreakdown {
			stages[k] += v
		}
		for k, v := range s.ErrorBreakdown {
			reasons[k] += v
		}
	}
	return total, stages, reasons
}

// WriteFiles emits one breakdown_NNN.json per shard into dir.
func (r *RunReport) WriteFiles(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	for _, s := range r.Shards {
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal shard %d report: %w", s.Shard, err)
		}
		name := filepath.Join(dir, fmt.Sprintf("breakdown_%03d.json", s.Shard))
		if err := os.WriteFile(name, data, 0o644); err != nil {
			return fmt.Errorf("write shard %d report: %w", s.Shard, err)
		}
	}
	return nil
}

// Summary renders the merged run as a table.
func (r *RunReport) Summary() string {
	total, stages, reasons := r.Totals()

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(fmt.Sprintf("run %s: %d documents in %s", r.RunID, total, r.Duration.Round(time.Millisecond)))
	tw.AppendHeader(table.Row{"Kind", "Name", "Count"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
	})

	for _, name := range sortedKeys(stages) {
		tw.AppendRow(table.Row{"stage", name, stages[name]})
	}
	tw.AppendSeparator()
	for _, name := range sortedKeys(reasons) {
		tw.AppendRow(table.Row{"rejection", name, reasons[name]})
	}
	return tw.Render()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
