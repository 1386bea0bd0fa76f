package trigger

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"dietnotify/pkg/logx"
)

// Registry is the in-memory set of armed recurring triggers plus the
// runtime that fires them. Firing only enqueues: a worker pool executes
// job actions so dispatch latency never blocks the cron goroutine or
// registry mutations.
//
// Until Start() succeeds, every mutating and listing call degrades to a
// no-op (false/0/empty). Callers that ignore the return values lose
// notifications but never crash.
type Registry struct {
	mu  sync.Mutex
	log logx.Logger
	cfg Config
	loc *time.Location

	c       *cron.Cron
	jobs    map[string]*entry
	started bool

	queue    chan execTask
	stopCh   chan struct{}
	workerWG sync.WaitGroup
}

type entry struct {
	job     Job
	entryID cron.EntryID
}

type execTask struct {
	id   string
	name string
	run  func(ctx context.Context)
}

func New(cfg Config, log logx.Logger) *Registry {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Registry{
		cfg:  cfg,
		log:  log,
		jobs: map[string]*entry{},
	}
}

// Start arms the cron runtime and worker pool. Idempotent: returns false
// when already started.
func (r *Registry) Start(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return false
	}

	loc := r.loadLocationLocked()
	r.loc = loc
	r.c = cron.New(cron.WithLocation(loc))

	workers := r.cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	queueSize := r.cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	// Fresh queue per run so stale tasks never execute after a stop/start.
	r.queue = make(chan execTask, queueSize)
	r.stopCh = make(chan struct{})

	for i := range r.jobs {
		_ = r.armLocked(r.jobs[i])
	}

	queue := r.queue
	stopCh := r.stopCh
	r.workerWG.Add(workers)
	for i := 0; i < workers; i++ {
		idx := i
		go func() {
			defer r.workerWG.Done()
			r.worker(ctx, stopCh, queue, idx)
		}()
	}

	r.c.Start()
	r.started = true
	r.log.Info("trigger runtime started",
		logx.Int("workers", workers),
		logx.String("tz", loc.String()),
		logx.Int("jobs", len(r.jobs)))
	return true
}

// Stop halts triggering and signals workers to exit. It does not wait for
// in-flight job executions: actions are fire-and-forget with their own
// failure handling.
func (r *Registry) Stop(ctx context.Context) {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	c := r.c
	stopCh := r.stopCh
	r.c = nil
	r.stopCh = nil
	r.queue = nil
	r.mu.Unlock()

	close(stopCh)
	if c != nil {
		c.Stop()
	}
	r.log.Info("trigger runtime stopped")
}

// Apply updates the runtime config. A timezone change restarts cron with
// the new location and re-arms every job.
func (r *Registry) Apply(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	oldTZ := strings.TrimSpace(r.cfg.Timezone)
	newTZ := strings.TrimSpace(cfg.Timezone)
	r.cfg = cfg

	if !r.started || oldTZ == newTZ {
		return
	}
	if r.c != nil {
		r.c.Stop()
	}
	loc := r.loadLocationLocked()
	r.loc = loc
	r.c = cron.New(cron.WithLocation(loc))
	for id := range r.jobs {
		_ = r.armLocked(r.jobs[id])
	}
	r.c.Start()
	r.log.Info("trigger runtime restarted", logx.String("tz", loc.String()), logx.Int("jobs", len(r.jobs)))
}

// Location reports the runtime's timezone. Falls back to the configured
// zone (or Local) when the runtime is not started.
func (r *Registry) Location() *time.Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loc != nil {
		return r.loc
	}
	return r.loadLocationLocked()
}

// Upsert registers a job, replacing any existing job with the same ID
// (last writer wins). Returns false when the runtime is not started or the
// trigger is invalid.
func (r *Registry) Upsert(job Job) bool {
	if strings.TrimSpace(job.ID) == "" || job.Run == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		r.log.Warn("trigger runtime not started; job dropped", logx.String("job", job.ID))
		return false
	}

	if old, ok := r.jobs[job.ID]; ok {
		r.c.Remove(old.entryID)
		delete(r.jobs, job.ID)
	}

	e := &entry{job: job}
	if err := r.armLocked(e); err != nil {
		r.log.Error("trigger registration failed", logx.String("job", job.ID), logx.Err(err))
		return false
	}
	r.jobs[job.ID] = e
	return true
}

// Remove unregisters a job by ID. Removing an absent job is a no-op.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(id)
}

// RemoveByPrefix unregisters every job whose ID has the given prefix and
// returns how many were removed.
func (r *Registry) RemoveByPrefix(prefix string) int {
	if prefix == "" {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id := range r.jobs {
		if strings.HasPrefix(id, prefix) && r.removeLocked(id) {
			removed++
		}
	}
	return removed
}

// Clear unregisters every job and returns the count removed.
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id := range r.jobs {
		if r.removeLocked(id) {
			removed++
		}
	}
	return removed
}

// ListByPrefix returns a snapshot of jobs whose ID has the given prefix,
// ordered by ID.
func (r *Registry) ListByPrefix(prefix string) []JobInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]JobInfo, 0, len(r.jobs))
	for id, e := range r.jobs {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		info := JobInfo{ID: id, Name: e.job.Name, Trigger: e.job.Trigger}
		if r.c != nil {
			if next := r.c.Entry(e.entryID).Next; !next.IsZero() {
				n := next
				info.NextRun = &n
			}
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len reports the number of armed jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func (r *Registry) removeLocked(id string) bool {
	e, ok := r.jobs[id]
	if !ok {
		return false
	}
	if r.c != nil {
		r.c.Remove(e.entryID)
	}
	delete(r.jobs, id)
	return true
}

func (r *Registry) armLocked(e *entry) error {
	t := e.job.Trigger
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("trigger out of range: %02d:%02d", t.Hour, t.Minute)
	}
	spec := fmt.Sprintf("%d %d * * *", t.Minute, t.Hour)
	run := e.job.Run
	id := e.job.ID
	name := e.job.Name
	eid, err := r.c.AddFunc(spec, func() {
		r.enqueue(execTask{id: id, name: name, run: run})
	})
	if err != nil {
		return err
	}
	e.entryID = eid
	return nil
}

func (r *Registry) enqueue(t execTask) {
	r.mu.Lock()
	q := r.queue
	r.mu.Unlock()
	if q == nil {
		return
	}
	select {
	case q <- t:
	default:
		r.log.Warn("trigger queue full, dropping firing", logx.String("job", t.id))
	}
}

func (r *Registry) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan execTask, idx int) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case t := <-queue:
			r.execOne(ctx, t)
		}
	}
}

func (r *Registry) execOne(ctx context.Context, t execTask) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("panic in trigger job",
				logx.String("job", t.id),
				logx.Any("panic", rec),
				logx.String("stack", string(debug.Stack())))
		}
	}()
	start := time.Now()
	t.run(ctx)
	r.log.Debug("job fired", logx.String("job", t.id), logx.Duration("took", time.Since(start)))
}

func (r *Registry) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(r.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		r.log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
