package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestNewMetrics(t *testing.T) {
	m := New()

	if m.Completed() != 0 {
		t.Errorf("expected 0 completed round trips, got %d", m.Completed())
	}
	if m.Rejected() != 0 {
		t.Errorf("expected 0 rejected, got %d", m.Rejected())
	}
}

func TestMetricsRecordRoundTrip(t *testing.T) {
	m := New()

	m.RecordRoundTrip(10*time.Microsecond, true)
	m.RecordRoundTrip(20*time.Microsecond, true)
	m.RecordRoundTrip(30*time.Microsecond, false)

	if m.Completed() != 3 {
		t.Errorf("expected 3 completed, got %d", m.Completed())
	}
	if m.Mismatched() != 1 {
		t.Errorf("expected 1 mismatched, got %d", m.Mismatched())
	}
}

func TestMetricsRecordRejected(t *testing.T) {
	m := New()

	m.RecordRejected()
	m.RecordRoundTrip(20*time.Microsecond, true)

	if m.Completed() != 1 {
		t.Errorf("expected 1 completed, got %d", m.Completed())
	}
	if m.Rejected() != 1 {
		t.Errorf("expected 1 rejected, got %d", m.Rejected())
	}
}

func TestMetricsAverageLatency(t *testing.T) {
	m := New()

	m.RecordRoundTrip(10*time.Millisecond, true)
	m.RecordRoundTrip(20*time.Millisecond, true)
	m.RecordRoundTrip(30*time.Millisecond, true)

	avg := m.AverageLatency()
	expected := 20 * time.Millisecond

	if avg != expected {
		t.Errorf("expected average latency %v, got %v", expected, avg)
	}
}

func TestMetricsMismatchRate(t *testing.T) {
	m := New()

	m.RecordRoundTrip(10*time.Millisecond, true)
	m.RecordRoundTrip(10*time.Millisecond, false)

	rate := m.MismatchRate()
	if rate != 0.5 {
		t.Errorf("expected mismatch rate 0.5, got %f", rate)
	}
}

func TestMetricsP99Latency(t *testing.T) {
	m := New()

	for i := 1; i <= 100; i++ {
		m.RecordRoundTrip(time.Duration(i)*time.Millisecond, true)
	}

	p99 := m.P99Latency()
	// P99 should be around 99ms or 100ms
	if p99 < 99*time.Millisecond || p99 > 100*time.Millisecond {
		t.Errorf("expected P99 around 99-100ms, got %v", p99)
	}
}

func TestMetricsLatencySampleLimit(t *testing.T) {
	m := NewWithConfig(Config{MaxLatencySamples: 100})

	// 序盤は速く、後半は遅い
	for range 1000 {
		m.RecordRoundTrip(time.Microsecond, true)
	}
	for range 9000 {
		m.RecordRoundTrip(time.Millisecond, true)
	}

	if m.Completed() != 10000 {
		t.Errorf("expected 10000 completed, got %d", m.Completed())
	}
	m.mu.RLock()
	samples := len(m.latencies)
	m.mu.RUnlock()
	if samples != 100 {
		t.Errorf("expected 100 samples kept, got %d", samples)
	}
	// サンプルは実行全体から取られるので、後半の遅い値がP99に現れる
	if p99 := m.P99Latency(); p99 != time.Millisecond {
		t.Errorf("expected P99 1ms from samples across the run, got %v", p99)
	}
}

func TestMetricsReset(t *testing.T) {
	m := New()

	m.RecordRoundTrip(10*time.Millisecond, true)
	m.RecordRoundTrip(20*time.Millisecond, true)

	m.Reset()

	// Window metrics should be reset
	if m.Throughput() != 0 {
		t.Errorf("expected throughput 0 after reset, got %f", m.Throughput())
	}

	// But totals and latency samples should remain
	if m.Completed() != 2 {
		t.Errorf("expected total 2 after reset, got %d", m.Completed())
	}
	if m.P99Latency() != 20*time.Millisecond {
		t.Errorf("expected P99 20ms kept after reset, got %v", m.P99Latency())
	}

	// ウィンドウにはリセット後の1件だけが入る
	m.RecordRoundTrip(time.Millisecond, true)
	m.mu.RLock()
	window := m.windowRoundTrips
	m.mu.RUnlock()
	if window != 1 {
		t.Errorf("expected 1 round trip in the window, got %d", window)
	}
}

func TestMetricsConcurrent(t *testing.T) {
	m := New()
	var wg sync.WaitGroup

	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				m.RecordRoundTrip(time.Microsecond, true)
			}
		}()
	}

	wg.Wait()

	if m.Completed() != 10000 {
		t.Errorf("expected 10000 round trips, got %d", m.Completed())
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := New()

	m.RecordRoundTrip(10*time.Millisecond, true)
	m.RecordRoundTrip(20*time.Millisecond, false)
	m.RecordRejected()

	snap := m.Snapshot()

	if snap.Completed != 2 {
		t.Errorf("expected 2 completed, got %d", snap.Completed)
	}
	if snap.Mismatched != 1 {
		t.Errorf("expected 1 mismatched, got %d", snap.Mismatched)
	}
	if snap.Rejected != 1 {
		t.Errorf("expected 1 rejected, got %d", snap.Rejected)
	}
	if snap.AverageLatency != 15*time.Millisecond {
		t.Errorf("expected average 15ms, got %v", snap.AverageLatency)
	}
}
