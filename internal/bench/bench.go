package bench

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"frametask/internal/events"
	"frametask/internal/logger"
	"frametask/internal/metrics"
	"frametask/internal/task"
	"frametask/internal/worker"
)

var (
	// ErrAlreadyRunning はEngineが実行中であることを表す
	ErrAlreadyRunning = errors.New("bench: already running")
	// ErrInvalidConfig は設定が不正であることを表す
	ErrInvalidConfig = errors.New("bench: invalid config")
	// ErrRejected はExecuteが作業を受け付けなかったことを表す
	ErrRejected = errors.New("bench: work rejected")
)

const defaultProgressInterval = time.Second

// Config は計測の設定
type Config struct {
	Name        string        // 計測名
	Description string        // 説明
	Mode        task.Mode     // 同期方式
	Iterations  int           // ラウンド数（0でDurationまで）
	Duration    time.Duration // 実行時間（0でIterationsまで）

	Workers     int    // Task数（1で単一Task、0でCPU数）
	Workload    string // ワークロード名
	PayloadSize int    // checksumのペイロードサイズ

	LockOSThread bool               // ワーカーをOSスレッドに固定
	CPU          int                // 固定先のCPU（-1で固定しない）
	Overlap      task.OverlapPolicy // 重複したExecuteの扱い

	ProgressInterval time.Duration // 進捗イベントの間隔
	LatencySamples   int           // P99計算用のサンプル数（0で既定値）
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Name:             "default",
		Description:      "Default round-trip benchmark",
		Mode:             task.ModeBlocking,
		Iterations:       10000,
		Workers:          1,
		Workload:         "double",
		PayloadSize:      1024,
		CPU:              -1,
		Overlap:          task.OverlapReject,
		ProgressInterval: defaultProgressInterval,
	}
}

// Validate は設定を検証する
func (c Config) Validate() error {
	if c.Iterations < 0 {
		return fmt.Errorf("%w: iterations must be non-negative", ErrInvalidConfig)
	}
	if c.Duration < 0 {
		return fmt.Errorf("%w: duration must be non-negative", ErrInvalidConfig)
	}
	if c.Iterations == 0 && c.Duration == 0 {
		return fmt.Errorf("%w: one of iterations or duration is required", ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative", ErrInvalidConfig)
	}
	if c.PayloadSize < 0 {
		return fmt.Errorf("%w: payload size must be non-negative", ErrInvalidConfig)
	}
	if c.LatencySamples < 0 {
		return fmt.Errorf("%w: latency samples must be non-negative", ErrInvalidConfig)
	}
	if _, ok := GetWorkload(c.Workload); !ok {
		return fmt.Errorf("%w: unknown workload %q", ErrInvalidConfig, c.Workload)
	}
	return nil
}

// taskOptions はTaskのオプションを返す
// withCPUが偽ならCPU固定を含めない（Groupが各Taskへ割り振る）
func (c Config) taskOptions(withCPU bool) []task.Option {
	opts := []task.Option{task.WithOverlapPolicy(c.Overlap)}
	if c.LockOSThread {
		opts = append(opts, task.WithLockOSThread())
	}
	if withCPU && c.CPU >= 0 {
		opts = append(opts, task.WithCPU(c.CPU))
	}
	return opts
}

func (c Config) numWorkers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// Result は計測結果
type Result struct {
	Name      string        `json:"name"`
	Mode      string        `json:"mode"`
	Workload  string        `json:"workload"`
	Workers   int           `json:"workers"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration_ns"`

	// ラウンドトリップ
	Rounds     uint64        `json:"rounds"`
	Completed  uint64        `json:"completed"`
	Rejected   uint64        `json:"rejected"`
	Mismatched uint64        `json:"mismatched"`
	Throughput float64       `json:"throughput"`
	AvgLatency time.Duration `json:"avg_latency_ns"`
	P99Latency time.Duration `json:"p99_latency_ns"`

	// Task統計
	TaskStats task.Stats `json:"task_stats"`
}

// Engine は計測の実行エンジン
type Engine struct {
	config   Config
	eventBus *events.Bus

	mu      sync.RWMutex
	running bool
	metrics *metrics.Metrics
}

// New は新しいEngineを作成する
func New(config Config) *Engine {
	return &Engine{
		config: config,
	}
}

// SetEventBus はイベントバスを設定する
func (e *Engine) SetEventBus(bus *events.Bus) {
	e.eventBus = bus
}

// Config は設定を返す
func (e *Engine) Config() Config {
	return e.config
}

func (e *Engine) publish(event events.Event) {
	if e.eventBus != nil {
		e.eventBus.Publish(event)
	}
}

// Run は計測を実行する
// Durationが経過した場合は正常終了、ctxがキャンセルされた場合は途中結果とエラーを返す
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if err := e.config.Validate(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	e.running = true
	m := metrics.NewWithConfig(metrics.Config{MaxLatencySamples: e.config.LatencySamples})
	e.metrics = m
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	cfg := e.config
	wl, _ := GetWorkload(cfg.Workload)
	workers := cfg.numWorkers()

	logger.Info("", "=== Benchmark '%s' started (mode: %s, workers: %d, workload: %s) ===",
		cfg.Name, cfg.Mode, workers, wl.Name)
	e.publish(events.NewRunStartEvent(cfg.Name, cfg.Mode.String(), workers))

	result := &Result{
		Name:      cfg.Name,
		Mode:      cfg.Mode.String(),
		Workload:  wl.Name,
		Workers:   workers,
		StartTime: time.Now(),
	}

	runCtx := ctx
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	var (
		stats task.Stats
		err   error
	)
	if cfg.Workers == 1 {
		stats, err = e.runSingle(runCtx, wl, m, result)
	} else {
		stats, err = e.runGroup(runCtx, wl, workers, m, result)
	}
	if err == nil {
		err = ctx.Err()
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	snapshot := m.Snapshot()
	result.Completed = snapshot.Completed
	result.Rejected = snapshot.Rejected
	result.Mismatched = snapshot.Mismatched
	result.Throughput = snapshot.OverallThroughput
	result.AvgLatency = snapshot.AverageLatency
	result.P99Latency = snapshot.P99Latency
	result.TaskStats = stats

	e.publish(events.NewRunCompleteEvent(cfg.Name, result.Completed, err))
	if err != nil {
		logger.Warn("", "Benchmark '%s' stopped: %v", cfg.Name, err)
	}
	logger.Info("", "=== Benchmark '%s' completed (%d round-trips) ===", cfg.Name, result.Completed)

	return result, err
}

// runSingle は1つのTaskでExecute→Finishを繰り返す
func (e *Engine) runSingle(ctx context.Context, wl Workload, m *metrics.Metrics, result *Result) (task.Stats, error) {
	cfg := e.config
	t := task.New(cfg.Name, cfg.taskOptions(true)...)
	t.Start(cfg.Mode)
	defer t.Close()

	progress := newProgress(cfg.ProgressInterval)
	for seq := uint64(0); !e.done(ctx, seq); seq++ {
		param := wl.Param(seq, cfg.PayloadSize)
		want := wl.Expect(param)

		start := time.Now()
		if !t.Execute(wl.Work, param) {
			m.RecordRejected()
			e.publish(events.NewRejectedEvent(cfg.Name, seq))
			return t.Stats(), fmt.Errorf("%w: round %d", ErrRejected, seq)
		}
		got := t.Finish()
		now := time.Now()

		e.record(m, seq, now.Sub(start), want, got)
		result.Rounds++

		if progress.due(now) {
			e.reportProgress(m)
		}
	}

	return t.Stats(), nil
}

// runGroup は各ラウンドをGroupの全Taskに分割して実行する
func (e *Engine) runGroup(ctx context.Context, wl Workload, workers int, m *metrics.Metrics, result *Result) (task.Stats, error) {
	cfg := e.config
	g := worker.NewGroupWithConfig(worker.GroupConfig{
		NumWorkers: workers,
		Name:       cfg.Name,
		Options:    cfg.taskOptions(false),
		PinCPUs:    cfg.CPU >= 0,
		FirstCPU:   cfg.CPU,
	})
	g.Start(cfg.Mode)
	defer g.Stop()

	params := make([]any, workers)
	wants := make([]any, workers)
	progress := newProgress(cfg.ProgressInterval)
	for round := uint64(0); !e.done(ctx, round); round++ {
		base := round * uint64(workers)
		for i := range params {
			params[i] = wl.Param(base+uint64(i), cfg.PayloadSize)
			wants[i] = wl.Expect(params[i])
		}

		start := time.Now()
		results, err := g.Run(ctx, wl.Work, params)
		now := time.Now()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			m.RecordRejected()
			e.publish(events.NewRejectedEvent(cfg.Name, round))
			return g.Stats(), fmt.Errorf("%w: round %d: %w", ErrRejected, round, err)
		}

		latency := now.Sub(start)
		for i, got := range results {
			e.record(m, base+uint64(i), latency, wants[i], got)
		}
		result.Rounds++

		if progress.due(now) {
			e.reportProgress(m)
		}
	}

	return g.Stats(), nil
}

// done はラウンド数かコンテキストで終了を判定する
func (e *Engine) done(ctx context.Context, round uint64) bool {
	if e.config.Iterations > 0 && round >= uint64(e.config.Iterations) {
		return true
	}
	return ctx.Err() != nil
}

// record は1回分の結果を検証して記録する
func (e *Engine) record(m *metrics.Metrics, seq uint64, latency time.Duration, want, got any) {
	matched := got == want
	m.RecordRoundTrip(latency, matched)
	if !matched {
		logger.Error(e.config.Name, "Result mismatch at %d: expected %v, got %v", seq, want, got)
		e.publish(events.NewMismatchEvent(e.config.Name, seq, formatValue(want), formatValue(got)))
	}
}

// reportProgress は直近の区間のスループットを発行し、区間をリセットする
func (e *Engine) reportProgress(m *metrics.Metrics) {
	e.publish(events.NewRunProgressEvent(e.config.Name, m.Completed(), m.Throughput()))
	m.Reset()
}

// progress は進捗イベントの間隔を管理する
type progress struct {
	interval time.Duration
	last     time.Time
}

func newProgress(interval time.Duration) *progress {
	if interval <= 0 {
		interval = defaultProgressInterval
	}
	return &progress{interval: interval, last: time.Now()}
}

func (p *progress) due(now time.Time) bool {
	if now.Sub(p.last) < p.interval {
		return false
	}
	p.last = now
	return true
}

// Report は結果をフォーマットして返す
func (r *Result) Report() string {
	return fmt.Sprintf(`
================================================================================
                         BENCHMARK REPORT: %s
================================================================================

EXECUTION SUMMARY
-----------------
  Start Time:     %s
  End Time:       %s
  Duration:       %v
  Mode:           %s
  Workload:       %s
  Workers:        %d

ROUND-TRIP METRICS
------------------
  Rounds:           %d
  Completed:        %d
  Rejected:         %d
  Mismatched:       %d
  Throughput:       %.0f/s
  Avg Latency:      %v
  P99 Latency:      %v

TASK STATISTICS
---------------
  Executed:         %d
  Completed:        %d
  Rejected:         %d

================================================================================`,
		r.Name,
		r.StartTime.Format("2006-01-02 15:04:05"),
		r.EndTime.Format("2006-01-02 15:04:05"),
		r.Duration.Round(time.Millisecond),
		r.Mode,
		r.Workload,
		r.Workers,
		r.Rounds,
		r.Completed,
		r.Rejected,
		r.Mismatched,
		r.Throughput,
		r.AvgLatency.Round(time.Nanosecond),
		r.P99Latency.Round(time.Nanosecond),
		r.TaskStats.Executed,
		r.TaskStats.Completed,
		r.TaskStats.Rejected,
	)
}

// IsRunning は実行中かどうかを返す
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Metrics は直近の実行のメトリクスを返す。未実行ならnil
func (e *Engine) Metrics() *metrics.Snapshot {
	e.mu.RLock()
	m := e.metrics
	e.mu.RUnlock()
	if m == nil {
		return nil
	}
	snapshot := m.Snapshot()
	return &snapshot
}
