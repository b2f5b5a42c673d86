package relay

import "sync"

// TaskGroup runs fire-and-forget work: history writes and pruning that must
// never block or fail the caller's result. Tests can inject their own group
// and Wait for pending work to drain.
type TaskGroup struct {
	wg sync.WaitGroup
}

// NewTaskGroup creates an empty task group.
func NewTaskGroup() *TaskGroup {
	return &TaskGroup{}
}

// Go schedules fn on its own goroutine. The function is responsible for
// reporting its own failures (through an EventHandler); nothing is returned
// to the scheduler.
func (g *TaskGroup) Go(fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		fn()
	}()
}

// Wait blocks until every scheduled task has finished.
func (g *TaskGroup) Wait() {
	g.wg.Wait()
}
