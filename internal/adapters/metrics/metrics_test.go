package metrics

import (
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/inbox-digest/internal/core"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		name   string
		report core.CycleReport
		want   string
	}{
		{"sent", core.CycleReport{Sent: true}, OutcomeSent},
		{"heartbeat", core.CycleReport{Heartbeat: true}, OutcomeHeartbeat},
		{"quiet", core.CycleReport{}, OutcomeQuiet},
		{"fetch failed", core.CycleReport{FetchError: errors.New("x")}, OutcomeFetchFailed},
		{"send failed", core.CycleReport{SendError: errors.New("x")}, OutcomeSendFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.report))
		})
	}
}

func TestRecorderObserveCycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.ObserveCycle(core.CycleReport{
		Sent:     true,
		Notified: 3,
		Buckets:  map[core.Bucket]int{core.BucketHigh: 2, core.BucketLow: 4},
		Duration: time.Second,
	})
	r.ObserveCycle(core.CycleReport{SendError: errors.New("telegram down"), Notified: 5})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.cycles.WithLabelValues(OutcomeSent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cycles.WithLabelValues(OutcomeSendFailed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.items.WithLabelValues("HIGH")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.items.WithLabelValues("LOW")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.notifications))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures))
}

func TestServerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRecorder(reg).ObserveCycle(core.CycleReport{Sent: true, Notified: 1})

	s := NewServer("127.0.0.1:0", reg, nil)
	require.NoError(t, s.Start())
	defer s.Stop()

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `inbox_digest_cycles_total{outcome="sent"} 1`)
	assert.Contains(t, string(body), "inbox_digest_notifications_total 1")
}
