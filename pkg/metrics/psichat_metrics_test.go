package metrics

import (
	"database/sql"
	"testing"
	"time"
)

func TestLatencyTrackerWindow(t *testing.T) {
	lt := NewLatencyTracker(4)
	for i := 1; i <= 6; i++ {
		lt.Record(time.Duration(i) * time.Millisecond)
	}

	s := lt.Stats()
	if s.Count != 6 {
		t.Errorf("Count = %d, want 6", s.Count)
	}
	if s.Samples != 4 {
		t.Errorf("Samples = %d, want 4", s.Samples)
	}
	if s.Min != 3*time.Millisecond || s.Max != 6*time.Millisecond {
		t.Errorf("Min/Max = %v/%v, want 3ms/6ms", s.Min, s.Max)
	}
	if s.Avg != 4500*time.Microsecond {
		t.Errorf("Avg = %v, want 4.5ms", s.Avg)
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	if s := NewLatencyTracker(0).Stats(); s != (LatencyStats{}) {
		t.Errorf("Stats() = %+v, want zero", s)
	}
}

func TestLatencyRegistry(t *testing.T) {
	r := NewLatencyRegistry(10)
	r.Record("classify.emotion", time.Millisecond)
	r.Record("classify.emotion", 3*time.Millisecond)
	r.Record("llm.reply", time.Second)

	if got := r.Stats("classify.emotion").Samples; got != 2 {
		t.Errorf("Samples = %d, want 2", got)
	}
	if got := len(r.AllStats()); got != 2 {
		t.Errorf("len(AllStats) = %d, want 2", got)
	}
	if got := r.Stats("missing"); got.Count != 0 {
		t.Errorf("Stats(missing).Count = %d, want 0", got.Count)
	}
}

func TestAssessPool(t *testing.T) {
	tests := []struct {
		name  string
		stats sql.DBStats
		want  PoolHealthStatus
	}{
		{"idle", sql.DBStats{MaxOpenConnections: 10, InUse: 1}, PoolHealthy},
		{"busy", sql.DBStats{MaxOpenConnections: 10, InUse: 8}, PoolDegraded},
		{"exhausted", sql.DBStats{MaxOpenConnections: 10, InUse: 10}, PoolUnhealthy},
		{"slow waits", sql.DBStats{MaxOpenConnections: 10, WaitCount: 3, WaitDuration: 6 * time.Second}, PoolDegraded},
		{"unlimited", sql.DBStats{InUse: 50}, PoolHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AssessPool(tt.stats).Status; got != tt.want {
				t.Errorf("AssessPool() = %v, want %v", got, tt.want)
			}
		})
	}

	if got := DBPoolHealth(nil).Status; got != PoolUnhealthy {
		t.Errorf("DBPoolHealth(nil) = %v, want unhealthy", got)
	}
}
