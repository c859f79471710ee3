package metrics

import (
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const defaultMaxLatencySamples = 1000

// Config はメトリクスの設定
type Config struct {
	MaxLatencySamples int // P99計算用のサンプル上限
}

// Metrics はExecute→Finishのラウンドトリップを集計する
type Metrics struct {
	completed      atomic.Uint64
	rejected       atomic.Uint64
	mismatched     atomic.Uint64
	totalLatencyNs atomic.Uint64

	mu                sync.RWMutex
	startTime         time.Time
	lastResetTime     time.Time
	windowRoundTrips  uint64
	latencies         []time.Duration // 実行全体からの一様なサンプル
	sampled           uint64          // latenciesの候補になった数
	maxLatencySamples int
}

// New は新しいメトリクスを作成する
func New() *Metrics {
	return NewWithConfig(Config{MaxLatencySamples: defaultMaxLatencySamples})
}

// NewWithConfig は設定を指定してメトリクスを作成する
func NewWithConfig(config Config) *Metrics {
	maxSamples := config.MaxLatencySamples
	if maxSamples <= 0 {
		maxSamples = defaultMaxLatencySamples
	}
	now := time.Now()
	return &Metrics{
		startTime:         now,
		lastResetTime:     now,
		latencies:         make([]time.Duration, 0, maxSamples),
		maxLatencySamples: maxSamples,
	}
}

// RecordRoundTrip は完了したラウンドトリップを記録する
// 結果が期待値と異なった場合はmatchedをfalseにする
func (m *Metrics) RecordRoundTrip(latency time.Duration, matched bool) {
	m.completed.Add(1)
	if !matched {
		m.mismatched.Add(1)
	}
	m.totalLatencyNs.Add(uint64(latency.Nanoseconds()))

	m.mu.Lock()
	m.windowRoundTrips++
	m.sampleLatency(latency)
	m.mu.Unlock()
}

// sampleLatency はリザーバサンプリングでレイテンシを保持する
// 上限に達した後も、n番目の値はmax/nの確率で採用される
func (m *Metrics) sampleLatency(latency time.Duration) {
	m.sampled++
	if len(m.latencies) < m.maxLatencySamples {
		m.latencies = append(m.latencies, latency)
		return
	}
	if j := rand.Uint64N(m.sampled); j < uint64(m.maxLatencySamples) {
		m.latencies[j] = latency
	}
}

// RecordRejected は拒否されたExecuteを記録する
func (m *Metrics) RecordRejected() {
	m.rejected.Add(1)
}

// Completed は完了したラウンドトリップ数を返す
func (m *Metrics) Completed() uint64 {
	return m.completed.Load()
}

// Rejected は拒否されたExecute数を返す
func (m *Metrics) Rejected() uint64 {
	return m.rejected.Load()
}

// Mismatched は結果が期待値と異なった数を返す
func (m *Metrics) Mismatched() uint64 {
	return m.mismatched.Load()
}

// Throughput は現在のウィンドウの1秒あたりのラウンドトリップ数を返す
func (m *Metrics) Throughput() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	elapsed := time.Since(m.lastResetTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.windowRoundTrips) / elapsed
}

// OverallThroughput は開始からの平均スループットを返す
func (m *Metrics) OverallThroughput() float64 {
	elapsed := time.Since(m.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.completed.Load()) / elapsed
}

// AverageLatency は平均レイテンシを返す
func (m *Metrics) AverageLatency() time.Duration {
	total := m.completed.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.totalLatencyNs.Load() / total)
}

// P99Latency はP99レイテンシを返す（サンプルベース）
func (m *Metrics) P99Latency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.latencies) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	idx := int(float64(len(sorted)) * 0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// MismatchRate は不一致率を返す（0.0〜1.0）
func (m *Metrics) MismatchRate() float64 {
	total := m.completed.Load()
	if total == 0 {
		return 0
	}
	return float64(m.mismatched.Load()) / float64(total)
}

// Reset はThroughputのウィンドウをリセットする
// 累計とレイテンシのサンプルは保持する
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.windowRoundTrips = 0
	m.lastResetTime = time.Now()
}

// Snapshot はメトリクスのスナップショット
type Snapshot struct {
	Completed         uint64        `json:"completed"`
	Rejected          uint64        `json:"rejected"`
	Mismatched        uint64        `json:"mismatched"`
	Throughput        float64       `json:"throughput"`
	OverallThroughput float64       `json:"overall_throughput"`
	AverageLatency    time.Duration `json:"average_latency_ns"`
	P99Latency        time.Duration `json:"p99_latency_ns"`
	MismatchRate      float64       `json:"mismatch_rate"`
	Elapsed           time.Duration `json:"elapsed_ns"`
}

// Snapshot は現在のメトリクスのスナップショットを返す
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Completed:         m.Completed(),
		Rejected:          m.Rejected(),
		Mismatched:        m.Mismatched(),
		Throughput:        m.Throughput(),
		OverallThroughput: m.OverallThroughput(),
		AverageLatency:    m.AverageLatency(),
		P99Latency:        m.P99Latency(),
		MismatchRate:      m.MismatchRate(),
		Elapsed:           time.Since(m.startTime),
	}
}
