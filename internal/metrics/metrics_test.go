package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Login("tenant", "failure")
	m.Login("tenant", "failure")
	m.Transition("sign")
	m.Notification("telegram", true)
	m.Notification("email", false)
	m.ObserveHTTP("GET", "/api/health", "200", 20*time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := counterValue(mfs, "ejare_login_attempts_total", map[string]string{"role": "tenant", "outcome": "failure"})
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)

	got, err = counterValue(mfs, "ejare_contract_transitions_total", map[string]string{"transition": "sign"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	got, err = counterValue(mfs, "ejare_notifications_total", map[string]string{"channel": "email", "outcome": "failure"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Login("admin", "success")
		m.Transition("create")
		m.Notification("email", true)
		m.ObserveHTTP("GET", "/", "200", time.Second)
	})
	assert.Nil(t, New(nil))
}

func counterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matches(metric.GetLabel(), labels) {
				return metric.GetCounter().GetValue(), nil
			}
		}
	}
	return 0, fmt.Errorf("metric %s%v not found", name, labels)
}

func matches(pairs []*dto.LabelPair, want map[string]string) bool {
	found := 0
	for _, p := range pairs {
		if v, ok := want[p.GetName()]; ok {
			if v != p.GetValue() {
				return false
			}
			found++
		}
	}
	return found == len(want)
}
