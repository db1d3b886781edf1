package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/harvester/internal/model"
)

// value returns the value of the named metric with the given label, or of
// the only series when label is empty.
func value(t *testing.T, r *Recorder, name, label string) float64 {
	t.Helper()

	families, err := r.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label != "" && (len(m.GetLabel()) == 0 || m.GetLabel()[0].GetValue() != label) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			}
		}
	}
	return 0
}

func TestRecorder_Cycles(t *testing.T) {
	r := NewRecorder()
	started := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	r.ObserveCycle(&model.CycleReport{StartedAt: started, Duration: 2 * time.Second, Merged: 7, Saved: true})
	r.ObserveCycle(&model.CycleReport{StartedAt: started, Duration: time.Second})

	assert.Equal(t, 1.0, value(t, r, "harvester_cycles_total", OutcomeSaved))
	assert.Equal(t, 1.0, value(t, r, "harvester_cycles_total", OutcomeAborted))
	assert.Equal(t, 7.0, value(t, r, "harvester_records_merged", ""))
	assert.Equal(t, float64(started.Add(2*time.Second).Unix()), value(t, r, "harvester_last_success_timestamp_seconds", ""))
}

func TestRecorder_Fetches(t *testing.T) {
	r := NewRecorder()
	r.ObserveFetch(model.FetchOK)
	r.ObserveFetch(model.FetchOK)
	r.ObserveFetch(model.FetchMalformed)

	assert.Equal(t, 2.0, value(t, r, "harvester_source_fetches_total", "ok"))
	assert.Equal(t, 1.0, value(t, r, "harvester_source_fetches_total", "malformed"))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	r.ObserveFetch(model.FetchUnreachable)
	r.ObserveCycle(&model.CycleReport{Saved: true})
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.ObserveFetch(model.FetchUnreachable)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `harvester_source_fetches_total{result="unreachable"} 1`)
	assert.Contains(t, rec.Body.String(), "harvester_cycle_duration_seconds_count 0")
}
