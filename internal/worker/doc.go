// Package worker drives a fixed group of task.Task workers side by side.
//
// A Group owns N single-slot Tasks started in the same mode. Each Run hands
// at most one unit of work to each Task and waits for all of them, which is
// how one frame's work is split across several dedicated workers. It is not
// a queue: a Run with more parts than workers is rejected.
//
// # Basic Usage
//
//	g := worker.NewGroup(4) // 4 workers
//	g.Start(task.ModeSpin)
//	defer g.Stop()
//
//	results, err := g.Split(ctx, 192, func(lo, hi int) any {
//	    return renderLines(lo, hi)
//	})
//
// # Configuration
//
// Use NewGroupWithConfig for custom settings:
//
//	config := worker.GroupConfig{
//	    NumWorkers: 8,
//	    Name:       "gpu",
//	    Options:    []task.Option{task.WithLockOSThread()},
//	}
//	g := worker.NewGroupWithConfig(config)
//
// # Graceful Shutdown
//
// Stop() waits for an in-progress Run to complete, then shuts every Task
// down. The context passed to Run is checked before any work is handed off;
// work that has started always runs to completion.
package worker
