// Package task provides a single-slot asynchronous worker.
//
// A Task owns exactly one background goroutine and hands it at most one
// unit of work at a time. The caller later blocks in Finish until that unit
// completes and receives its result. Repeated Execute/Finish round-trips
// reuse the same worker, so offloading one computation (e.g. one frame of
// emulation) costs a handoff instead of a goroutine spawn and join.
//
// # Basic Usage
//
//	t := task.New("frame")
//	t.Start(task.ModeBlocking)
//	defer t.Close()
//
//	t.Execute(func(p any) any {
//	    return p.(int) * 2
//	}, 21)
//	// ... do other work ...
//	result := t.Finish() // 42
//
// # Modes
//
// The synchronization strategy is selected once per Start:
//   - ModeBlocking: mutex and condition variable. Waiters sleep, wake
//     latency is higher, idle CPU usage is zero.
//   - ModeSpin: atomic flags polled with runtime.Gosched. Wake latency is
//     near zero, but the worker occupies a processor while idle.
//
// Both modes present the same contract. Changing the mode requires a full
// Shutdown/Start cycle.
//
// # Contract
//
// Execute never blocks. It reports false and does nothing when the Task is
// not running or work is nil. At most one item may be outstanding: calling
// Execute again before Finish is an overlap, handled by the OverlapPolicy
// (reject by default, or panic). Finish returns nil when nothing is
// outstanding. Shutdown lets the current item complete, then joins the
// worker. A panic inside a Work function is not recovered.
//
// A Task supports one caller goroutine at a time; multiple callers need
// external locking. Work must not call back into its own Task.
package task
