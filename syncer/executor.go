package syncer

import "sync"

// Executor is a single-goroutine, FIFO task-posting context. It is the
// Go-idiomatic stand-in for the "single-threaded execution context" that
// spec.md section 5 requires: every mutation of the message store, the
// reactor map, and the registry happens on tasks run by one Executor.
//
// Reactor callbacks delivered by gRPC may arrive on arbitrary goroutines;
// every such callback that touches engine state must Post a task here
// first.
type Executor struct {
	tasks chan func()
	done  chan struct{}
	once  sync.Once
}

// NewExecutor starts the executor's worker goroutine. Callers must call
// Close when the executor is no longer needed.
func NewExecutor() *Executor {
	e := &Executor{
		tasks: make(chan func(), 256),
		done:  make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *Executor) run() {
	for {
		select {
		case task := <-e.tasks:
			task()
		case <-e.done:
			return
		}
	}
}

// Post enqueues task to run on the executor goroutine. Post does not
// block on task's completion; it only blocks if the queue is full.
func (e *Executor) Post(task func()) {
	select {
	case e.tasks <- task:
	case <-e.done:
	}
}

// PostAndWait enqueues task and blocks until it has run. Useful for tests
// that need a synchronization point with the executor goroutine.
func (e *Executor) PostAndWait(task func()) {
	wait := make(chan struct{})
	e.Post(func() {
		defer close(wait)
		task()
	})
	<-wait
}

// Close stops the worker goroutine. Tasks posted after Close are dropped.
func (e *Executor) Close() {
	e.once.Do(func() {
		close(e.done)
	})
}
