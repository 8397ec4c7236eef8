package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// JobProcessor holds jobs until they are ready and hands them out one at a
// time.
type JobProcessor interface {
	// Enqueue adds all jobs or none of them.
	Enqueue(ctx context.Context, jobs ...Job) error

	// Process claims one ready job of the given types and calls fn with it.
	// The job stays claimed until fn returns; the returned job decides
	// whether it is removed, rescheduled or moved to the dead jobs.
	// Returns ErrNoJob when nothing is ready.
	Process(ctx context.Context, types []string, fn JobExecutorFunc) error
}

// JobExecutorFunc attempts a claimed job and returns it updated.
type JobExecutorFunc func(context.Context, Job) Job

type JobTypeStats struct {
	Type   string `json:"type"`
	Active int    `json:"active"`
	Dead   int    `json:"dead"`
}

// MemoryProcessor is a JobProcessor that keeps its queue in process
// memory. Jobs do not survive a restart.
type MemoryProcessor struct {
	now func() time.Time

	mu      sync.Mutex
	pending map[ulid.ULID]Job
	claimed map[ulid.ULID]bool
	dead    []Job
}

func NewMemoryProcessor() *MemoryProcessor {
	return &MemoryProcessor{
		now:     time.Now,
		pending: make(map[ulid.ULID]Job),
		claimed: make(map[ulid.ULID]bool),
	}
}

func (p *MemoryProcessor) Enqueue(ctx context.Context, jobs ...Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, j := range jobs {
		if _, ok := p.pending[j.ID]; ok {
			return fmt.Errorf("enqueue: %w: '%s'", ErrJobExists, j.ID)
		}
	}
	for _, j := range jobs {
		p.pending[j.ID] = j
	}
	return nil
}

func (p *MemoryProcessor) Process(ctx context.Context, types []string, fn JobExecutorFunc) error {
	job, ok := p.claim(types)
	if !ok {
		return ErrNoJob
	}

	result := fn(ctx, job)
	p.settle(result)
	return nil
}

// claim returns the ready job that has waited longest.
func (p *MemoryProcessor) claim(types []string) (Job, bool) {
	wanted := make(map[string]bool, len(types))
	for _, typ := range types {
		wanted[typ] = true
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	var (
		next  Job
		found bool
	)
	for id, j := range p.pending {
		if p.claimed[id] || !wanted[j.Type] || j.RunAt.After(now) {
			continue
		}
		if !found || j.RunAt.Before(next.RunAt) || (j.RunAt.Equal(next.RunAt) && j.ID.Compare(next.ID) < 0) {
			next, found = j, true
		}
	}
	if found {
		p.claimed[next.ID] = true
	}
	return next, found
}

func (p *MemoryProcessor) settle(j Job) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.claimed, j.ID)
	switch j.Status {
	case StatusDone:
		delete(p.pending, j.ID)
	case StatusDead:
		delete(p.pending, j.ID)
		p.dead = append(p.dead, j)
	default:
		p.pending[j.ID] = j
	}
}

// Stats counts pending and dead jobs per type.
func (p *MemoryProcessor) Stats(context.Context) ([]JobTypeStats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	byType := make(map[string]*JobTypeStats)
	entry := func(typ string) *JobTypeStats {
		if st, ok := byType[typ]; ok {
			return st
		}
		st := &JobTypeStats{Type: typ}
		byType[typ] = st
		return st
	}
	for _, j := range p.pending {
		entry(j.Type).Active++
	}
	for _, j := range p.dead {
		entry(j.Type).Dead++
	}

	stats := make([]JobTypeStats, 0, len(byType))
	for _, st := range byType {
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Type < stats[j].Type })
	return stats, nil
}

// DeadJobs returns a page of dead jobs, oldest first.
func (p *MemoryProcessor) DeadJobs(_ context.Context, size, offset int) ([]Job, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if offset >= len(p.dead) {
		return []Job{}, nil
	}
	end := offset + size
	if end > len(p.dead) {
		end = len(p.dead)
	}
	page := make([]Job, end-offset)
	copy(page, p.dead[offset:end])
	return page, nil
}

// Resurrect moves the given dead jobs back to the queue with their
// attempts reset.
func (p *MemoryProcessor) Resurrect(_ context.Context, jobIDs []string) error {
	ids, err := parseJobIDs(jobIDs)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.dead = p.removeDead(ids, func(j Job) {
		j.Status = StatusPending
		j.AttemptsDone = 0
		j.RunAt = now
		j.UpdatedAt = now
		p.pending[j.ID] = j
	})
	return nil
}

func (p *MemoryProcessor) ClearDeadJobs(_ context.Context, jobIDs []string) error {
	ids, err := parseJobIDs(jobIDs)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.dead = p.removeDead(ids, func(Job) {})
	return nil
}

func (p *MemoryProcessor) removeDead(ids map[ulid.ULID]bool, fn func(Job)) []Job {
	kept := p.dead[:0]
	for _, j := range p.dead {
		if ids[j.ID] {
			fn(j)
			continue
		}
		kept = append(kept, j)
	}
	return kept
}

func parseJobIDs(jobIDs []string) (map[ulid.ULID]bool, error) {
	ids := make(map[ulid.ULID]bool, len(jobIDs))
	for _, s := range jobIDs {
		id, err := ulid.ParseStrict(s)
		if err != nil {
			return nil, fmt.Errorf("parse job id '%s': %w", s, err)
		}
		ids[id] = true
	}
	return ids, nil
}
