package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestRegistryObserverTracksMutations(t *testing.T) {
	before := testutil.ToFloat64(mutationCounter.WithLabelValues("add"))

	var obs RegistryObserver
	obs.Committed("add", 3)
	obs.Committed("add", 4)

	require.Equal(t, before+2, testutil.ToFloat64(mutationCounter.WithLabelValues("add")))
	require.Equal(t, 4.0, testutil.ToFloat64(workoutsGauge))
}

func TestRecordSnapshotWritten(t *testing.T) {
	ts := time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC)
	RecordSnapshotWritten(ts, 128)

	var m dto.Metric
	require.NoError(t, snapshotGauge.Write(&m))
	require.Equal(t, float64(ts.Unix()), m.GetGauge().GetValue())
	require.Equal(t, 128.0, testutil.ToFloat64(snapshotBytesGauge))

	RecordSnapshotWritten(time.Time{}, 1)
	require.Equal(t, 128.0, testutil.ToFloat64(snapshotBytesGauge))
}

func TestRecordSnapshotFailure(t *testing.T) {
	before := testutil.ToFloat64(snapshotFailureCounter)
	RecordSnapshotFailure()
	require.Equal(t, before+1, testutil.ToFloat64(snapshotFailureCounter))
}
