package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.LotCreated("initial")
	m.LotCreated("initial")
	m.LotCreated("activity")
	m.DisposalCreated("inferred")
	m.ReconcileShortfall()
	m.ReconcileFailure()
	m.LedgerRejection("edit_not_allowed")
	m.XIRRNonConvergence()
	m.ReturnsInsufficient("1D")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.lotsCreated.WithLabelValues("initial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lotsCreated.WithLabelValues("activity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.disposalsCreated.WithLabelValues("inferred")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconcileShortfalls))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconcileFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ledgerRejections.WithLabelValues("edit_not_allowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.xirrNonConvergence))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.returnsInsufficient.WithLabelValues("1D")))

	count, err := testutil.GatherAndCount(m.Registry())
	assert.NoError(t, err)
	assert.Equal(t, 8, count)
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.LotCreated("initial")
	m.DisposalCreated("activity")
	m.DisposalCreated("activity")

	path := filepath.Join(t.TempDir(), "ledger.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "# TYPE ledger_lots_created_total counter")
	assert.Contains(t, text, `ledger_lots_created_total{source="initial"} 1`)
	assert.Contains(t, text, `ledger_disposals_created_total{source="activity"} 2`)
	assert.Contains(t, text, "ledger_reconcile_failures_total 0")

	var none *Metrics
	assert.NoError(t, none.WriteTextfile(filepath.Join(t.TempDir(), "unused.prom")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.LotCreated("manual")
		m.DisposalCreated("manual")
		m.ReconcileShortfall()
		m.ReconcileFailure()
		m.LedgerRejection("validation")
		m.XIRRNonConvergence()
		m.ReturnsInsufficient("YTD")
	})
	assert.Nil(t, m.Registry())
}
