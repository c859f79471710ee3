package task

import (
	"time"

	"frametask/internal/logger"

	"github.com/joeycumines/go-catrate"
)

// Work はワーカーで実行される作業を表す
type Work func(param any) any

// slotKind はスロットの状態を表す
type slotKind uint32

const (
	slotEmpty   slotKind = iota // 未割り当て
	slotPending                 // 割り当て済み、未完了
	slotDone                    // 結果あり、Finish待ち
	slotPoison                  // 終了要求
)

// handoff はTaskとワーカー間の受け渡しプロトコル
type handoff interface {
	// run はワーカーゴルーチンのループ。終了要求を受けるまで戻らない
	run()
	execute(work Work, param any) bool
	finish() any
	// shutdown は終了を要求する。joinは呼び出し側が行う
	shutdown()
}

// overlapLimiter はスロット重複警告のレート制限
var overlapLimiter = catrate.NewLimiter(map[time.Duration]int{
	time.Second: 5,
	time.Minute: 60,
})

// rejectOverlap はOverlapPolicyに従って重複したExecuteを処理する
func rejectOverlap(id string, policy OverlapPolicy, counters *counters) bool {
	if policy == OverlapPanic {
		panic(ErrSlotBusy)
	}
	counters.rejected.Add(1)
	if _, ok := overlapLimiter.Allow(id); ok {
		logger.Warn(id, "Execute rejected: previous work not finished")
	}
	return false
}
