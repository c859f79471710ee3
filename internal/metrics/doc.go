// Package metrics collects round-trip statistics for task handoffs.
//
// Metrics records how long each Execute→Finish round trip took, whether the
// returned result matched the expected value, and how many Execute calls
// were rejected. It reports throughput, average and P99 latency.
//
// # Basic Usage
//
//	m := metrics.New()
//
//	start := time.Now()
//	t.Execute(work, param)
//	got := t.Finish()
//	m.RecordRoundTrip(time.Since(start), got == want)
//
//	fmt.Printf("Completed: %d, Throughput: %.0f/s, P99: %v\n",
//	    m.Completed(), m.Throughput(), m.P99Latency())
//
// # Configuration
//
// Use NewWithConfig for custom settings:
//
//	m := metrics.NewWithConfig(metrics.Config{
//	    MaxLatencySamples: 5000, // More samples for P99 accuracy
//	})
//
// # Thread Safety
//
// Counters are atomic; latency samples are guarded by a RWMutex.
package metrics
