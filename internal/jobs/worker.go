package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sjperalta/society-ledger/pkg/logger"
)

// Job represents a background task
type Job func(ctx context.Context) error

const queueSize = 100

// Worker runs queued fire-and-forget tasks on a fixed pool and named
// periodic jobs on their own tickers
type Worker struct {
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	queue         chan Job
	maxConcurrent int

	statsMu sync.RWMutex
	stats   WorkerStats
	jobs    map[string]*registeredJob
}

type registeredJob struct {
	job      Job
	interval time.Duration
	running  bool
	status   JobStatus
}

// WorkerStats holds statistics about the worker
type WorkerStats struct {
	ActiveJobs    int         `json:"active_jobs"`
	CompletedJobs int64       `json:"completed_jobs"`
	FailedJobs    int64       `json:"failed_jobs"`
	QueueLength   int         `json:"queue_length"`
	MaxConcurrent int         `json:"max_concurrent"`
	Scheduled     []JobStatus `json:"scheduled"`
}

// JobStatus describes the last runs of a named job
type JobStatus struct {
	Name         string        `json:"name"`
	Interval     string        `json:"interval"`
	Runs         int64         `json:"runs"`
	Failures     int64         `json:"failures"`
	Running      bool          `json:"running"`
	LastRunAt    *time.Time    `json:"last_run_at,omitempty"`
	LastDuration time.Duration `json:"last_duration_ns"`
	LastError    string        `json:"last_error,omitempty"`
}

// NewWorker creates a worker with N concurrent processors
func NewWorker(numWorkers int) *Worker {
	if numWorkers < 1 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		ctx:           ctx,
		cancel:        cancel,
		queue:         make(chan Job, queueSize),
		maxConcurrent: numWorkers,
		jobs:          make(map[string]*registeredJob),
	}

	for i := 0; i < numWorkers; i++ {
		w.wg.Add(1)
		go w.process()
	}

	return w
}

// Enqueue adds a job to be processed by the worker pool. A full queue runs
// the job on the caller's goroutine; after Shutdown the job is dropped.
func (w *Worker) Enqueue(job Job) {
	select {
	case <-w.ctx.Done():
		logger.Warn("[Worker] Shutting down, job dropped")
		return
	default:
	}

	select {
	case w.queue <- job:
	default:
		logger.Warn("[Worker] Queue full, running job synchronously")
		w.run("", job)
	}
}

// process handles jobs from the queue until shutdown, then drains what is left
func (w *Worker) process() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			for {
				select {
				case job := <-w.queue:
					w.run("", job)
				default:
					return
				}
			}
		case job := <-w.queue:
			w.run("", job)
		}
	}
}

// ScheduleEvery registers a named job and runs it at fixed intervals.
// The first run happens after the interval (not at startup).
func (w *Worker) ScheduleEvery(name string, interval time.Duration, job Job) {
	w.schedule(name, interval, job, false)
}

// ScheduleEveryImmediate registers a named job, runs it once at startup, then at fixed intervals
func (w *Worker) ScheduleEveryImmediate(name string, interval time.Duration, job Job) {
	w.schedule(name, interval, job, true)
}

func (w *Worker) schedule(name string, interval time.Duration, job Job, immediate bool) {
	w.statsMu.Lock()
	w.jobs[name] = &registeredJob{
		job:      job,
		interval: interval,
		status:   JobStatus{Name: name, Interval: interval.String()},
	}
	w.statsMu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if immediate {
			w.runNamed(name)
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.runNamed(name)
			}
		}
	}()
}

// Trigger runs a registered job now, in the background. It returns false
// when no job has that name or when the job is already running.
func (w *Worker) Trigger(name string) bool {
	w.statsMu.RLock()
	rj, ok := w.jobs[name]
	running := ok && rj.running
	w.statsMu.RUnlock()
	if !ok || running {
		return false
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.runNamed(name)
	}()
	return true
}

// runNamed runs a registered job unless a previous run is still in flight
func (w *Worker) runNamed(name string) {
	w.statsMu.Lock()
	rj, ok := w.jobs[name]
	if !ok || rj.running {
		w.statsMu.Unlock()
		return
	}
	rj.running = true
	job := rj.job
	w.statsMu.Unlock()

	start := time.Now()
	err := w.run("", job)

	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	rj.running = false
	rj.status.Runs++
	rj.status.LastRunAt = &start
	rj.status.LastDuration = time.Since(start)
	rj.status.LastError = ""
	if err != nil {
		rj.status.Failures++
		rj.status.LastError = err.Error()
	}
}

// run executes one job, recovering panics and tracking stats
func (w *Worker) run(name string, job Job) (err error) {
	w.trackJobStart()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panic: %v", r)
		}
		if err != nil {
			logger.Error("[Worker] Job failed", "job", name, "error", err)
			w.trackJobFailure()
		} else if name != "" {
			logger.Info("[Worker] Job completed", "job", name, "duration", time.Since(start))
		}
		w.trackJobEnd()
	}()

	return job(w.ctx)
}

// Shutdown stops scheduling, runs the jobs still queued and waits for
// every running job to return. Jobs see a cancelled context.
func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
}

// GetStats returns the current worker statistics
func (w *Worker) GetStats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	stats := w.stats
	stats.QueueLength = len(w.queue)
	stats.MaxConcurrent = w.maxConcurrent
	stats.Scheduled = make([]JobStatus, 0, len(w.jobs))
	for _, rj := range w.jobs {
		st := rj.status
		st.Running = rj.running
		stats.Scheduled = append(stats.Scheduled, st)
	}
	sort.Slice(stats.Scheduled, func(i, j int) bool {
		return stats.Scheduled[i].Name < stats.Scheduled[j].Name
	})
	return stats
}

func (w *Worker) trackJobStart() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs++
}

// trackJobEnd counts every finished job; FailedJobs is the failing subset
func (w *Worker) trackJobEnd() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs--
	w.stats.CompletedJobs++
}

func (w *Worker) trackJobFailure() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.FailedJobs++
}
