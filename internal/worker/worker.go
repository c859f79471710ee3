package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"frametask/internal/logger"
	"frametask/internal/task"
)

var (
	// ErrNotStarted はStart前にRunが呼ばれたことを表す
	ErrNotStarted = errors.New("worker: group is not started")
	// ErrTooManyParts はパート数がワーカー数を超えたことを表す
	ErrTooManyParts = errors.New("worker: more parts than workers")
	// ErrRejected はTaskが作業を受け付けなかったことを表す
	ErrRejected = errors.New("worker: task rejected work")
)

// GroupConfig はワーカーグループの設定
type GroupConfig struct {
	NumWorkers int           // ワーカー数（0でCPU数）
	Name       string        // TaskIDの接頭辞
	Options    []task.Option // 各Taskに渡すオプション

	// PinCPUs が真なら、i番目のTaskを (FirstCPU+i) % CPU数 に固定する
	PinCPUs  bool
	FirstCPU int
}

// DefaultGroupConfig はデフォルト設定を返す
func DefaultGroupConfig() GroupConfig {
	return GroupConfig{
		NumWorkers: 0, // CPU数
		Name:       "worker",
	}
}

// Group は同じモードで動く複数のTaskを束ね、1つの処理を分割して並列実行する
// キューではなく、1回のRunで各Taskに高々1つの作業を渡す
type Group struct {
	numWorkers int
	name       string
	opts       []task.Option
	pinCPUs    bool
	firstCPU   int

	mu      sync.Mutex // ライフサイクル
	runMu   sync.Mutex // Taskの呼び出し側を1つに保つ
	tasks   []*task.Task
	started bool
	mode    task.Mode
}

// NewGroup は新しいワーカーグループを作成する
// numWorkers が 0 以下の場合は CPU 数を使用
func NewGroup(numWorkers int, opts ...task.Option) *Group {
	config := DefaultGroupConfig()
	config.NumWorkers = numWorkers
	config.Options = opts
	return NewGroupWithConfig(config)
}

// NewGroupWithConfig は設定を指定してワーカーグループを作成する
func NewGroupWithConfig(config GroupConfig) *Group {
	numWorkers := config.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	name := config.Name
	if name == "" {
		name = "worker"
	}
	return &Group{
		numWorkers: numWorkers,
		name:       name,
		opts:       config.Options,
		pinCPUs:    config.PinCPUs,
		firstCPU:   max(config.FirstCPU, 0),
	}
}

// Start は全Taskを指定モードで起動する
func (g *Group) Start(mode task.Mode) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return
	}

	g.tasks = make([]*task.Task, g.numWorkers)
	for i := range g.numWorkers {
		t := task.New(fmt.Sprintf("%s-%d", g.name, i), g.taskOptions(i)...)
		t.Start(mode)
		g.tasks[i] = t
	}
	g.mode = mode
	g.started = true

	logger.Info("", "Worker group started with %d workers (mode: %s)", g.numWorkers, mode)
}

// taskOptions はi番目のTaskに渡すオプションを返す
// CPU固定はTaskごとに別のCPUへずらす
func (g *Group) taskOptions(i int) []task.Option {
	if !g.pinCPUs {
		return g.opts
	}
	opts := make([]task.Option, 0, len(g.opts)+1)
	opts = append(opts, g.opts...)
	return append(opts, task.WithCPU(g.cpuFor(i)))
}

// cpuFor はi番目のTaskを固定するCPUを返す
func (g *Group) cpuFor(i int) int {
	return (g.firstCPU + i) % runtime.NumCPU()
}

// Run はparams[i]をi番目のTaskで実行し、全ての完了を待って結果を順に返す
func (g *Group) Run(ctx context.Context, work task.Work, params []any) ([]any, error) {
	g.runMu.Lock()
	defer g.runMu.Unlock()

	g.mu.Lock()
	tasks := g.tasks
	started := g.started
	g.mu.Unlock()

	if !started {
		return nil, ErrNotStarted
	}
	if len(params) > len(tasks) {
		return nil, fmt.Errorf("%w: %d parts, %d workers", ErrTooManyParts, len(params), len(tasks))
	}

	// 開始前にコンテキストをチェック
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var errs []error
	for i, p := range params {
		if !tasks[i].Execute(work, p) {
			errs = append(errs, fmt.Errorf("%w: %s", ErrRejected, tasks[i].ID()))
		}
	}

	results := make([]any, len(params))
	for i := range params {
		results[i] = tasks[i].Finish()
	}

	return results, errors.Join(errs...)
}

// Split は[0, total)を連続した区間に分割し、各区間をfnで並列に処理する
func (g *Group) Split(ctx context.Context, total int, fn func(lo, hi int) any) ([]any, error) {
	if total <= 0 {
		return nil, nil
	}

	parts := min(g.numWorkers, total)
	size := (total + parts - 1) / parts

	params := make([]any, 0, parts)
	for lo := 0; lo < total; lo += size {
		params = append(params, [2]int{lo, min(lo+size, total)})
	}

	return g.Run(ctx, func(p any) any {
		r := p.([2]int)
		return fn(r[0], r[1])
	}, params)
}

// Stop は全Taskを停止する。実行中のRunがあれば完了を待つ
func (g *Group) Stop() {
	g.runMu.Lock()
	defer g.runMu.Unlock()

	g.mu.Lock()
	if !g.started {
		g.mu.Unlock()
		return
	}
	tasks := g.tasks
	g.tasks = nil
	g.started = false
	g.mu.Unlock()

	for _, t := range tasks {
		t.Shutdown()
	}

	logger.Info("", "Worker group stopped")
}

// NumWorkers はワーカー数を返す
func (g *Group) NumWorkers() int {
	return g.numWorkers
}

// Mode は最後に起動したときの同期方式を返す
func (g *Group) Mode() task.Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// Stats は全Taskの統計の合計を返す
func (g *Group) Stats() task.Stats {
	g.mu.Lock()
	tasks := g.tasks
	g.mu.Unlock()

	var total task.Stats
	for _, t := range tasks {
		s := t.Stats()
		total.Executed += s.Executed
		total.Completed += s.Completed
		total.Rejected += s.Rejected
	}
	return total
}
