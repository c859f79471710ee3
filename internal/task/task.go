package task

import (
	"io"
	"runtime"
	"sync"
	"sync/atomic"

	"frametask/internal/logger"
)

// Ensure Task implements io.Closer
var _ io.Closer = (*Task)(nil)

// Mode は同期方式を表す
type Mode int

const (
	ModeBlocking Mode = iota
	ModeSpin
)

func (m Mode) String() string {
	switch m {
	case ModeBlocking:
		return "blocking"
	case ModeSpin:
		return "spin"
	default:
		return "unknown"
	}
}

// ParseMode は文字列からModeを返す
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "blocking", "block", "cond":
		return ModeBlocking, true
	case "spin", "spinlock":
		return ModeSpin, true
	default:
		return ModeBlocking, false
	}
}

// counters はTaskの累積カウンタ
type counters struct {
	executed  atomic.Uint64
	completed atomic.Uint64
	rejected  atomic.Uint64
}

// Stats はTaskの統計
type Stats struct {
	Executed  uint64 `json:"executed"`  // 受け付けた作業数
	Completed uint64 `json:"completed"` // 完了した作業数
	Rejected  uint64 `json:"rejected"`  // 重複で拒否された作業数
}

// Task は専用ワーカーを1つ持つ単一スロットの非同期実行器
type Task struct {
	id  string
	cfg taskConfig

	mu     sync.Mutex
	h      handoff
	mode   Mode
	exited chan struct{}

	counters counters
}

// New は新しいTaskを作成する。ワーカーはStartまで起動しない
func New(id string, opts ...Option) *Task {
	cfg := defaultTaskConfig()
	for _, opt := range opts {
		cfg = opt(cfg)
	}
	return &Task{
		id:  id,
		cfg: cfg,
	}
}

// ID はTaskのIDを返す
func (t *Task) ID() string {
	return t.id
}

// Start はワーカーを起動する。起動済みの場合は何もしない
func (t *Task) Start(mode Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.h != nil {
		return
	}

	var h handoff
	switch mode {
	case ModeSpin:
		h = newSpin(t.id, t.cfg.overlap, &t.counters)
	default:
		mode = ModeBlocking
		h = newBlocking(t.id, t.cfg.overlap, &t.counters)
	}

	exited := make(chan struct{})
	t.h = h
	t.mode = mode
	t.exited = exited

	go t.loop(h, exited)

	logger.Debug(t.id, "Task started (mode: %s)", mode)
}

// loop はワーカーゴルーチン本体
func (t *Task) loop(h handoff, exited chan struct{}) {
	defer close(exited)

	if t.cfg.lockOSThread {
		runtime.LockOSThread()

		pinned := false
		if t.cfg.cpu >= 0 {
			if err := pinToCPU(t.cfg.cpu); err != nil {
				logger.Warn(t.id, "Failed to pin worker to CPU %d: %v", t.cfg.cpu, err)
			} else {
				pinned = true
			}
		}
		// 固定したスレッドはロックしたまま終了させ、ランタイムに破棄させる
		if !pinned {
			defer runtime.UnlockOSThread()
		}
	}

	h.run()
}

// current は現在の受け渡しを返す。未起動ならnil
func (t *Task) current() handoff {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.h
}

// Execute は作業をワーカーに渡す。ブロックしない
// 未起動・停止中・workがnil・スロット使用中の場合はfalseを返す
func (t *Task) Execute(work Work, param any) bool {
	if work == nil {
		return false
	}
	h := t.current()
	if h == nil {
		return false
	}
	return h.execute(work, param)
}

// Finish は渡した作業の完了を待ち、その結果を返す
// 未完了の作業がない場合や停止後はすぐにnilを返す
func (t *Task) Finish() any {
	h := t.current()
	if h == nil {
		return nil
	}
	return h.finish()
}

// Shutdown は実行中の作業の完了を待ってワーカーを停止し、joinする
// 何度呼んでもよい
func (t *Task) Shutdown() {
	t.mu.Lock()
	h, exited := t.h, t.exited
	t.h = nil
	t.exited = nil
	t.mu.Unlock()

	if h == nil {
		return
	}

	h.shutdown()
	// joinはロックの外で行う
	<-exited

	logger.Debug(t.id, "Task stopped")
}

// Close はShutdownを呼ぶ。deferでの解放用
func (t *Task) Close() error {
	t.Shutdown()
	return nil
}

// IsRunning はワーカーが起動中かどうかを返す
func (t *Task) IsRunning() bool {
	return t.current() != nil
}

// Mode は最後にStartしたときの同期方式を返す
func (t *Task) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// Stats は累積統計を返す
func (t *Task) Stats() Stats {
	return Stats{
		Executed:  t.counters.executed.Load(),
		Completed: t.counters.completed.Load(),
		Rejected:  t.counters.rejected.Load(),
	}
}
