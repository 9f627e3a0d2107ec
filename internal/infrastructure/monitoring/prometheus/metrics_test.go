package prometheus

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kate-fie/fragment-network-merges/pkg/errors"
)

func TestObserveExpansion(t *testing.T) {
	m := NewMetrics()

	m.ObserveExpansion(3, 12, nil)
	m.ObserveExpansion(0, 0, errors.New(errors.CodeFragmentNotFound, "absent"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExpansionsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExpansionsTotal.WithLabelValues("error")))
}

func TestObserveVerdict(t *testing.T) {
	m := NewMetrics()

	m.ObserveVerdict("embedding", "FAIL", 200*time.Millisecond)
	m.ObserveVerdict("overlap", "PASS", 50*time.Millisecond)
	m.ObserveVerdict("overlap", "PASS", 80*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilterVerdictsTotal.WithLabelValues("embedding", "FAIL")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FilterVerdictsTotal.WithLabelValues("overlap", "PASS")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.PlacementPublishedTotal.Inc()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PlacementPublishedTotal))
}

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.PlacementPublishedTotal.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.PlacementPublishedTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PlacementPublishedTotal))
}
