package queue

import (
	"sync"

	"portfolio-views/middlewares"
)

// Worker runs queued functions on a fixed number of goroutines. Tasks are
// fire-and-forget: a full queue drops new work instead of blocking callers.
type Worker struct {
	tasks chan func()
	wg    sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewWorker returns a Worker with room for size queued tasks.
func NewWorker(size int) *Worker {
	return &Worker{tasks: make(chan func(), size)}
}

// Start launches n background goroutines that process queued tasks.
func (w *Worker) Start(n int) {
	for i := 0; i < n; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for task := range w.tasks {
				w.run(task)
			}
		}()
	}
}

func (w *Worker) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			middlewares.ErrorLogger.Printf("queued task panicked: %v", r)
		}
	}()
	task()
}

// Submit queues task and reports whether it was accepted.
func (w *Worker) Submit(task func()) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return false
	}
	select {
	case w.tasks <- task:
		return true
	default:
		return false
	}
}

// Stop refuses new tasks, runs the ones already queued and waits for them.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.tasks)
	w.mu.Unlock()

	w.wg.Wait()
}
