package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityGauges(t *testing.T) {
	m := New()

	m.SetEntityValue("se_inv_1_ac_power", "se_inv_1", "W", 3120)
	m.SetEntityAvailable("se_inv_1_ac_power", "se_inv_1", true)

	assert.Equal(t, 3120.0, testutil.ToFloat64(m.entityValue.With(prometheus.Labels{
		"unique_id": "se_inv_1_ac_power", "device": "se_inv_1", "unit": "W",
	})))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.entityAvailable.With(prometheus.Labels{
		"unique_id": "se_inv_1_ac_power", "device": "se_inv_1",
	})))

	m.ClearEntityValue("se_inv_1_ac_power", "se_inv_1", "W")
	assert.Equal(t, 0, testutil.CollectAndCount(m.entityValue))
}

func TestSnapshotCounters(t *testing.T) {
	m := New()

	m.IncSnapshot("se_inv_1", "mqtt")
	m.IncSnapshot("se_inv_1", "mqtt")
	m.IncSnapshotError("http")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.snapshots.With(prometheus.Labels{"device": "se_inv_1", "source": "mqtt"})))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.snapshotErrors.With(prometheus.Labels{"source": "http"})))
}

func TestHandler(t *testing.T) {
	m := New()
	m.IncSnapshotError("mqtt")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "solaredge_snapshot_errors_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
