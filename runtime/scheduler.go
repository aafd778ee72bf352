package runtime

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Task is one unit of scheduled work: a closure body plus the data
// buffer it captured, mirroring the spec's `(fn_ptr, data_ptr,
// data_size)` triple (§3.8). fn_ptr/data_ptr collapse to a single Go
// closure since there is no separate machine-code entry point to
// invoke from this side of the ABI.
type Task struct {
	Run      func()
	DataSize int
	freeData func()
}

// Scheduler is the single process-wide M:N pool described in §4.7: a
// bounded FIFO of pending tasks served by a fixed number of long-lived
// worker goroutines, each of which owns its own exception slot and
// shadow stack (via its WorkerID); workers do not own an Arena. Queue
// admission is gated by a
// weighted semaphore, the same building block
// `sentra-language-sentra` — a sibling example language runtime —
// pulls in `golang.org/x/sync` for, rather than a hand-rolled
// mutex+condvar bounded channel.
type Scheduler struct {
	sem         *semaphore.Weighted
	tasks       chan Task
	activeTasks int64
	workers     sync.WaitGroup
	shutdown    chan struct{}
	once        sync.Once
}

var (
	globalScheduler   *Scheduler
	globalSchedOnce   sync.Once
	globalWorkerCount int
)

// Global returns the lazily constructed process-wide scheduler
// (§4.7's "one global scheduler, lazily constructed"). workerCount <=
// 0 defaults to hardware parallelism, matching config key
// scheduler.workers's documented default of 0.
func Global(workerCount int) *Scheduler {
	globalSchedOnce.Do(func() {
		if workerCount <= 0 {
			workerCount = runtime.GOMAXPROCS(0)
		}
		globalWorkerCount = workerCount
		globalScheduler = newScheduler(workerCount)
	})
	return globalScheduler
}

// WorkerCount returns the process-wide scheduler's configured worker
// count, initializing it with default parallelism first if `Global`
// has not yet been called. Backs the `worker_count` ABI entry.
func WorkerCount() int64 {
	Global(0)
	return int64(globalWorkerCount)
}

func newScheduler(workers int) *Scheduler {
	s := &Scheduler{
		sem:      semaphore.NewWeighted(int64(workers) * 4), // bounded queue depth
		tasks:    make(chan Task, workers*4),
		shutdown: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		s.workers.Add(1)
		go s.runWorker(WorkerID(i))
	}
	return s
}

func (s *Scheduler) runWorker(id WorkerID) {
	defer s.workers.Done()
	defer ReleaseWorker(id)
	for {
		select {
		case <-s.shutdown:
			return
		case task, ok := <-s.tasks:
			if !ok {
				return
			}
			s.sem.Release(1)
			task.Run()
			if task.freeData != nil && task.DataSize > 0 {
				task.freeData()
			}
			atomic.AddInt64(&s.activeTasks, -1)
		}
	}
}

// Spawn enqueues task, blocking if the queue is momentarily full
// (§4.7's `spawn_closure`). It increments the active-task counter
// before the task is even queued so a racing `WaitAll` never observes
// a false quiescence.
func (s *Scheduler) Spawn(ctx context.Context, task Task) error {
	select {
	case <-s.shutdown:
		return &ScheduleError{Message: "scheduler is shutting down"}
	default:
	}
	atomic.AddInt64(&s.activeTasks, 1)
	if err := s.sem.Acquire(ctx, 1); err != nil {
		atomic.AddInt64(&s.activeTasks, -1)
		return &ScheduleError{Message: err.Error()}
	}
	select {
	case s.tasks <- task:
		return nil
	case <-s.shutdown:
		s.sem.Release(1)
		atomic.AddInt64(&s.activeTasks, -1)
		return &ScheduleError{Message: "scheduler is shutting down"}
	}
}

// ActiveTasks returns the current in-flight task count.
func (s *Scheduler) ActiveTasks() int64 { return atomic.LoadInt64(&s.activeTasks) }

// WaitAll blocks until no tasks are queued or executing (§4.7, §8
// property 5). It yields between checks rather than spinning a tight
// loop.
func (s *Scheduler) WaitAll() {
	for atomic.LoadInt64(&s.activeTasks) != 0 {
		runtime.Gosched()
	}
}

// Shutdown signals every worker to exit and waits for them to join
// (§4.7's "drop of the scheduler joins all workers").
func (s *Scheduler) Shutdown() {
	s.once.Do(func() { close(s.shutdown) })
	s.workers.Wait()
}
