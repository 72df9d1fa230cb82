package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveDocumentCountsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(documentsTotal.WithLabelValues("accepted"))
	ObserveDocument("accepted")
	ObserveDocument("accepted")
	after := testutil.ToFloat64(documentsTotal.WithLabelValues("accepted"))
	require.Equal(t, before+2, after)
}

func TestObserveRejectionCountsByReason(t *testing.T) {
	before := testutil.ToFloat64(rejectionsTotal.WithLabelValues("Soft 404"))
	ObserveRejection("Soft 404")
	after := testutil.ToFloat64(rejectionsTotal.WithLabelValues("Soft 404"))
	require.Equal(t, before+1, after)
}

func TestObservePageIgnoresEmptyPages(t *testing.T) {
	before := testutil.ToFloat64(pagesTotal)
	ObservePage(0, time.Second)
	require.Equal(t, before, testutil.ToFloat64(pagesTotal))

	ObservePage(100, 50*time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(pagesTotal))
}

func TestActiveWorkersGauge(t *testing.T) {
	before := testutil.ToFloat64(activeWorkers)
	IncActiveWorkers()
	require.Equal(t, before+1, testutil.ToFloat64(activeWorkers))
	DecActiveWorkers()
	require.Equal(t, before, testutil.ToFloat64(activeWorkers))
}
