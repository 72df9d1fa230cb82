package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScoringComputesHybridPriority(t *testing.T) {
	t.Parallel()

	doc := &Document{InlinkCount: 99, DomainScore: 0.5}
	doc.Work.ContentLength = 1500
	doc.Work.Extracted = true

	out := NewScoring().Handle(doc)

	require.True(t, out.Success)
	want := math.Round((0.4*math.Log(100)+0.3*0.5+0.3*0.5)*10000) / 10000
	require.InDelta(t, want, doc.IndexPriority, 1e-9)
	require.InDelta(t, 2.1421, doc.IndexPriority, 1e-9)
	require.InDelta(t, math.Log(100), doc.Work.Breakdown.LinkScore, 1e-9)
	require.InDelta(t, 0.5, doc.Work.Breakdown.QualityScore, 1e-9)
}

func TestScoringIsIdempotent(t *testing.T) {
	t.Parallel()

	doc := &Document{InlinkCount: 99, DomainScore: 0.5}
	doc.Work.ContentLength = 1500

	stage := NewScoring()
	require.True(t, stage.Handle(doc).Success)
	first := doc.IndexPriority
	require.True(t, stage.Handle(doc).Success)
	require.Equal(t, first, doc.IndexPriority)
}

func TestScoringCapsQualityComponent(t *testing.T) {
	t.Parallel()

	doc := &Document{InlinkCount: 0, DomainScore: 0}
	doc.Work.ContentLength = 100000

	out := NewScoring().Handle(doc)

	require.True(t, out.Success)
	require.InDelta(t, 1.0, doc.Work.Breakdown.QualityScore, 1e-9)
	require.InDelta(t, 0.3, doc.IndexPriority, 1e-9)
}

func TestScoringZeroSignals(t *testing.T) {
	t.Parallel()

	doc := &Document{}
	out := NewScoring().Handle(doc)

	require.True(t, out.Success)
	require.Zero(t, doc.IndexPriority)
}
