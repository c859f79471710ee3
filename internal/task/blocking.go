package task

import "sync"

// blocking はmutexと条件変数による受け渡し
type blocking struct {
	id       string
	policy   OverlapPolicy
	counters *counters

	mu      sync.Mutex
	cond    *sync.Cond
	slot    slotKind
	work    Work
	param   any
	result  any
	running bool
	exit    bool
}

func newBlocking(id string, policy OverlapPolicy, c *counters) *blocking {
	b := &blocking{
		id:       id,
		policy:   policy,
		counters: c,
		slot:     slotEmpty,
		running:  true,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *blocking) run() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for {
		// 述語を毎回再確認するため、spurious wakeupとlost wakeupの影響を受けない
		for b.slot != slotPending && !b.exit {
			b.cond.Wait()
		}

		// 割り当て済みの作業は終了要求より優先する
		if b.slot != slotPending {
			return
		}

		work, param := b.work, b.param
		b.work, b.param = nil, nil

		b.mu.Unlock()
		result := work(param)
		b.mu.Lock()

		b.result = result
		b.slot = slotDone
		b.counters.completed.Add(1)
		// 1つの条件変数をワーカーと呼び出し側の双方が待つ
		b.cond.Broadcast()
	}
}

func (b *blocking) execute(work Work, param any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running || b.exit || work == nil {
		return false
	}
	if b.slot != slotEmpty {
		return rejectOverlap(b.id, b.policy, b.counters)
	}

	b.work = work
	b.param = param
	b.result = nil
	b.slot = slotPending
	b.counters.executed.Add(1)
	b.cond.Broadcast()
	return true
}

func (b *blocking) finish() any {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return nil
	}

	for b.slot == slotPending {
		b.cond.Wait()
	}

	if b.slot != slotDone {
		return nil
	}

	result := b.result
	b.result = nil
	b.slot = slotEmpty
	return result
}

func (b *blocking) shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return
	}
	b.running = false
	b.exit = true
	b.cond.Broadcast()
}
