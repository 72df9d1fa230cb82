package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sampleRun() *RunReport {
	return &RunReport{
		RunID:     "3f8a7c1e-test",
		StartedAt: time.Date(2025, 11, 3, 8, 0, 0, 0, time.UTC),
		Duration:  90 * time.Second,
		Shards: []ShardReport{
			{
				Shard:          0,
				Table:          "url_state_000",
				TotalProcessed: 120,
				StageBreakdown: map[string]int{"Packaging": 100, "QualityFilter": 20},
				ErrorBreakdown: map[string]int{"Soft 404": 12, "Low TTR": 8},
			},
			{
				Shard:          1,
				Table:          "url_state_001",
				TotalProcessed: 80,
				StageBreakdown: map[string]int{"Packaging": 75, "ContentLoad": 5},
				ErrorBreakdown: map[string]int{"read content error": 5},
			},
			{Shard: 2, Table: "url_state_002", Skipped: true},
		},
	}
}

func TestTotalsMergeShardBreakdowns(t *testing.T) {
	t.Parallel()

	total, stages, reasons := sampleRun().Totals()

	require.Equal(t, 200, total)
	require.Equal(t, 175, stages["Packaging"])
	require.Equal(t, 20, stages["QualityFilter"])
	require.Equal(t, 5, stages["ContentLoad"])
	require.Equal(t, 12, reasons["Soft 404"])
	require.Equal(t, 5, reasons["read content error"])
}

func TestWriteFilesEmitsOneBreakdownPerShard(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "result")
	run := sampleRun()
	require.NoError(t, run.WriteFiles(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	data, err := os.ReadFile(filepath.Join(dir, "breakdown_000.json"))
	require.NoError(t, err)

	var rep ShardReport
	require.NoError(t, json.Unmarshal(data, &rep))
	require.Equal(t, run.Shards[0], rep)

	data, err = os.ReadFile(filepath.Join(dir, "breakdown_002.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &rep))
	require.True(t, rep.Skipped)
}

func TestSummaryListsStagesAndRejections(t *testing.T) {
	t.Parallel()

	out := sampleRun().Summary()

	require.Contains(t, out, "3f8a7c1e-test")
	require.Contains(t, out, "200 documents")
	require.Contains(t, out, "Packaging")
	require.Contains(t, out, "175")
	require.Contains(t, out, "Soft 404")
	require.Contains(t, out, "read content error")
}
