package task

import (
	"runtime"
	"sync/atomic"
)

// spin はアトミックフラグのビジーウェイトによる受け渡し
//
// pendingとdoneの2つのフラグだけが同期手段となる。sync/atomicの操作は
// 逐次一貫性を持つため、フラグのStoreより前に書いたスロットの内容は、
// そのStoreを観測したLoadの後で必ず読める。フラグを非アトミックに
// 書き換えると、クラッシュではなく結果の破損として現れる。
type spin struct {
	id       string
	policy   OverlapPolicy
	counters *counters

	pending     atomic.Bool // 呼び出し側 -> ワーカー
	done        atomic.Bool // ワーカー -> 呼び出し側
	running     atomic.Bool
	outstanding atomic.Bool // Execute済みでFinish前

	// 以下はpending/doneで公開される
	kind   slotKind
	work   Work
	param  any
	result any
}

func newSpin(id string, policy OverlapPolicy, c *counters) *spin {
	s := &spin{
		id:       id,
		policy:   policy,
		counters: c,
		kind:     slotEmpty,
	}
	s.done.Store(true)
	s.running.Store(true)
	return s
}

func (s *spin) run() {
	for {
		for !s.pending.Load() {
			runtime.Gosched()
		}
		s.pending.Store(false)

		if s.kind == slotPoison {
			s.done.Store(true)
			return
		}

		work, param := s.work, s.param
		s.work, s.param = nil, nil
		s.result = work(param)
		s.kind = slotDone
		s.counters.completed.Add(1)
		s.done.Store(true)
	}
}

func (s *spin) execute(work Work, param any) bool {
	if work == nil || !s.running.Load() {
		return false
	}
	if s.outstanding.Load() {
		return rejectOverlap(s.id, s.policy, s.counters)
	}

	s.work = work
	s.param = param
	s.result = nil
	s.kind = slotPending
	s.done.Store(false)
	s.outstanding.Store(true)
	s.counters.executed.Add(1)
	s.pending.Store(true)
	return true
}

func (s *spin) finish() any {
	if !s.running.Load() || !s.outstanding.Load() {
		return nil
	}

	for !s.done.Load() {
		runtime.Gosched()
	}

	result := s.result
	s.result = nil
	s.kind = slotEmpty
	s.outstanding.Store(false)
	return result
}

func (s *spin) shutdown() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}

	// 実行中の作業は最後まで走らせる
	for s.outstanding.Load() && !s.done.Load() {
		runtime.Gosched()
	}
	s.outstanding.Store(false)
	s.result = nil

	// 終了要求も通常の作業と同じ経路で渡す
	s.kind = slotPoison
	s.done.Store(false)
	s.pending.Store(true)
}
