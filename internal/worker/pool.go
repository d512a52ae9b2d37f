package worker

import (
	"context"
	"fmt"
	"sync"
)

// Task is a unit of in-memory work run by a Pool
type Task interface {
	Run(ctx context.Context) Result
}

// Result is the outcome of a Task
type Result interface {
	Err() error
}

// TaskFunc adapts a function to Task
type TaskFunc func(ctx context.Context) error

// Run calls f
func (f TaskFunc) Run(ctx context.Context) Result {
	return errResult{err: f(ctx)}
}

type errResult struct{ err error }

func (r errResult) Err() error { return r.err }

// Pool runs tasks on a fixed number of goroutines. Tasks run under a
// child of the parent context, so cancelling the parent stops the pool.
type Pool struct {
	workers int
	tasks   chan Task
	results chan Result
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
}

// NewPool creates a pool; workers below 1 means 1
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithCancel(parent)
	return &Pool{
		workers: workers,
		tasks:   make(chan Task, workers*2),
		results: make(chan Result, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.loop()
	}
}

func (p *Pool) loop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			select {
			case p.results <- p.run(task):
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// run executes task, reporting a panic as its error
func (p *Pool) run(task Task) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = errResult{err: fmt.Errorf("task panicked: %v", r)}
		}
	}()
	return task.Run(p.ctx)
}

// Submit queues a task. It returns false when the pool was shut down or
// its parent context ended.
func (p *Pool) Submit(task Task) bool {
	select {
	case <-p.ctx.Done():
		return false
	case p.tasks <- task:
		return true
	}
}

// Results streams results as tasks finish. It is closed once Wait or
// Shutdown returns.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Wait stops accepting tasks, waits for the queued ones and returns every result
func (p *Pool) Wait() []Result {
	close(p.tasks)

	go func() {
		p.wg.Wait()
		p.closeResults()
		p.cancel()
	}()

	var results []Result
	for r := range p.results {
		results = append(results, r)
	}
	return results
}

// Shutdown cancels running tasks and stops the workers
func (p *Pool) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.once.Do(func() {
		close(p.results)
	})
}
