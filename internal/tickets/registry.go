// Package tickets tracks itinerary requests from submission to completion.
package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mohammad-safakhou/itinerary/internal/cache"
	"github.com/mohammad-safakhou/itinerary/models"
)

// ErrClosed is returned by Submit once Close has been called.
var ErrClosed = errors.New("ticket registry is closed")

// Processor turns a request into itinerary markdown.
type Processor interface {
	Process(ctx context.Context, req models.ItineraryRequest) (string, error)
}

// ResultCache is the subset of cache.ResultCache the registry needs.
type ResultCache interface {
	Lookup(ctx context.Context, req models.ItineraryRequest) (string, bool)
	Store(ctx context.Context, req models.ItineraryRequest, itinerary string)
}

// Options tune background job execution.
type Options struct {
	// JobTimeout bounds one job; zero leaves jobs unbounded.
	JobTimeout time.Duration
	// DedupeInflight shares one pipeline run between identical concurrent requests.
	DedupeInflight bool
}

// Registry owns every ticket created during the process lifetime.
type Registry struct {
	proc   Processor
	cache  ResultCache
	logger *zap.Logger
	opts   Options

	mu     sync.RWMutex
	jobs   map[string]*Job
	closed bool

	wg     sync.WaitGroup
	flight singleflight.Group
	newID  func() string
}

func NewRegistry(proc Processor, rc ResultCache, logger *zap.Logger, opts Options) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		proc:   proc,
		cache:  rc,
		logger: logger.Named("tickets"),
		opts:   opts,
		jobs:   make(map[string]*Job),
		newID:  func() string { return uuid.New().String() },
	}
}

// Submit registers a ticket for req. A cached itinerary yields a job that is
// already completed; otherwise the pipeline runs in the background, detached
// from ctx cancellation.
func (r *Registry) Submit(ctx context.Context, req models.ItineraryRequest) (*Job, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	if r.cache != nil {
		if itinerary, ok := r.cache.Lookup(ctx, req); ok {
			job := newJob(r.newID(), req)
			job.finish(itinerary, nil)
			r.register(job)
			recordSubmit(ctx, "cached")
			r.logger.Info("request served from cache",
				zap.String("request_id", job.id),
				zap.String("location", req.Location),
				zap.String("category", req.Category),
				zap.Int("days", req.Days),
			)
			return job, nil
		}
	}

	job := newJob(r.newID(), req)
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	r.jobs[job.id] = job
	r.wg.Add(1)
	r.mu.Unlock()

	recordSubmit(ctx, "scheduled")
	r.logger.Info("request submitted",
		zap.String("request_id", job.id),
		zap.String("location", req.Location),
		zap.String("category", req.Category),
		zap.Int("days", req.Days),
	)
	go r.run(context.WithoutCancel(ctx), job)
	return job, nil
}

func (r *Registry) register(job *Job) {
	r.mu.Lock()
	r.jobs[job.id] = job
	r.mu.Unlock()
}

func (r *Registry) run(ctx context.Context, job *Job) {
	defer r.wg.Done()
	if r.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.JobTimeout)
		defer cancel()
	}
	start := time.Now()

	itinerary, err := r.process(ctx, job.req)
	if err == nil && r.cache != nil {
		r.cache.Store(ctx, job.req, itinerary)
	}
	job.finish(itinerary, err)
	recordJob(ctx, err, time.Since(start))

	if err != nil {
		r.logger.Error("request failed",
			zap.String("request_id", job.id),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	r.logger.Info("request completed",
		zap.String("request_id", job.id),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("bytes", len(itinerary)),
	)
}

func (r *Registry) process(ctx context.Context, req models.ItineraryRequest) (string, error) {
	if !r.opts.DedupeInflight {
		return r.proc.Process(ctx, req)
	}
	v, err, shared := r.flight.Do(flightKey(req), func() (interface{}, error) {
		return r.proc.Process(ctx, req)
	})
	if shared {
		r.logger.Debug("shared in-flight generation", zap.String("key", cache.Key(req.Location, req.Category, req.Days)))
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// flightKey identifies an exact request variant.
func flightKey(req models.ItineraryRequest) string {
	return fmt.Sprintf("%s|%s|%s", cache.Key(req.Location, req.Category, req.Days), strings.Join(req.Interests, "\x1f"), req.Budget)
}

// Poll reports the current state of a ticket. Unknown ids yield not_found.
func (r *Registry) Poll(id string) models.Ticket {
	r.mu.RLock()
	job, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return models.Ticket{Status: models.TicketNotFound}
	}
	return job.Ticket()
}

// Wait blocks until the ticket is terminal or ctx ends. Unknown ids return
// immediately with not_found.
func (r *Registry) Wait(ctx context.Context, id string) (models.Ticket, error) {
	r.mu.RLock()
	job, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return models.Ticket{Status: models.TicketNotFound}, nil
	}
	select {
	case <-job.Done():
		return job.Ticket(), nil
	case <-ctx.Done():
		return job.Ticket(), ctx.Err()
	}
}

// Close rejects new submissions and waits for running jobs until ctx ends.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.logger.Warn("shutdown with jobs still running", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}
