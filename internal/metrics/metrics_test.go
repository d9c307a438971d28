package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAdvertisement(t *testing.T) {
	m := New()
	m.ObserveAdvertisement(0x004C)
	m.ObserveAdvertisement(0x004C)
	m.ObserveAdvertisement(0x0006)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Advertisements.WithLabelValues("0x004C")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Advertisements.WithLabelValues("0x0006")))
}

func TestNewUsesPrivateRegistry(t *testing.T) {
	// Two instances must not collide on registration.
	a, b := New(), New()
	a.Rejected.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Rejected))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Rejected))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Battery.WithLabelValues("left").Set(80)
	m.LidOpen.Set(BoolGauge(true))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `podbeacon_battery_percent{component="left"} 80`)
	assert.Contains(t, string(body), "podbeacon_lid_open 1")
}

func TestBoolGauge(t *testing.T) {
	assert.Equal(t, 1.0, BoolGauge(true))
	assert.Equal(t, 0.0, BoolGauge(false))
}
