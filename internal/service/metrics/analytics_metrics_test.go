package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAnalyticsObserve(t *testing.T) {
	a := NewAnalytics(prometheus.NewRegistry())
	a.Observe("analyze", time.Now(), nil)
	a.Observe("analyze", time.Now(), errors.New("boom"))
	a.AlertsTriggered(2)
	a.AlertsTriggered(0)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.errors.WithLabelValues("analyze")))
	assert.Equal(t, 2.0, testutil.ToFloat64(a.alerts))
	assert.Equal(t, 1, testutil.CollectAndCount(a.latency))

	var nilA *Analytics
	assert.NotPanics(t, func() { nilA.Observe("x", time.Now(), nil) })
}
