package uploader

import (
	"context"
	"log/slog"
	"time"

	"kbridge/internal/config"
	"kbridge/internal/kb"
	"kbridge/pkg/types"
)

// JobClient is the remote surface the poller needs.
type JobClient interface {
	JobStatus(ctx context.Context, jobID string) (kb.JobState, error)
}

// Poller waits for remote ingestion jobs to reach a terminal state.
//
// Ingestion is slow and its duration varies wildly with document size, so
// the poll interval adapts: it starts small to catch quick jobs early and
// grows by a fixed multiplier up to a cap, keeping request volume flat for
// long-running jobs. A hard wait budget bounds the total time spent on any
// single job.
type Poller struct {
	jobs   JobClient
	logger *slog.Logger

	interval     time.Duration // first poll interval
	multiplier   float64       // interval growth per poll
	maxInterval  time.Duration // interval cap
	maxWait      time.Duration // total wait budget per job
	maxTransient int           // consecutive poll failures tolerated

	// Overridable for tests so backoff shape and timeouts are verifiable
	// without real time passing.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewPoller creates a poller using the configured backoff parameters.
func NewPoller(jobs JobClient, cfg config.Config, logger *slog.Logger) *Poller {
	p := &Poller{
		jobs:         jobs,
		logger:       logger,
		interval:     cfg.PollInterval,
		multiplier:   cfg.PollMultiplier,
		maxInterval:  cfg.PollMaxInterval,
		maxWait:      cfg.PollMaxWait,
		maxTransient: cfg.PollMaxTransient,
		sleep:        sleepContext,
		now:          time.Now,
	}
	if p.interval <= 0 {
		p.interval = config.DefaultPollInterval
	}
	if p.multiplier <= 1 {
		p.multiplier = config.DefaultPollMult
	}
	if p.maxInterval <= 0 {
		p.maxInterval = config.DefaultPollMax
	}
	if p.maxWait <= 0 {
		p.maxWait = config.DefaultPollWait
	}
	if p.maxTransient <= 0 {
		p.maxTransient = config.DefaultPollTransient
	}
	return p
}

// AwaitCompletion polls jobID until it succeeds or fails, and returns the
// terminal state. The first poll happens immediately.
//
// Failed polls (network blips, transient 5xx) are retried at the current
// interval without advancing the backoff; maxTransient consecutive failures
// abort with a PollTransientError. A job still running when the wait budget
// runs out gets one final poll at the deadline, then a TimedOutError.
func (p *Poller) AwaitCompletion(ctx context.Context, jobID string) (kb.JobState, error) {
	start := p.now()
	deadline := start.Add(p.maxWait)
	interval := p.interval
	transient := 0
	polls := 0

	for {
		polls++
		state, err := p.jobs.JobStatus(ctx, jobID)
		switch {
		case err != nil && ctx.Err() != nil:
			return kb.JobState{}, ctx.Err()
		case err != nil:
			transient++
			p.logger.Warn("job status poll failed",
				"job_id", jobID,
				"consecutive_failures", transient,
				"error", err)
			if transient >= p.maxTransient {
				return kb.JobState{}, &types.PollTransientError{JobID: jobID, Attempts: transient, Err: err}
			}
		case state.Status.Terminal():
			p.logger.Debug("job reached terminal state",
				"job_id", jobID,
				"status", state.Status,
				"polls", polls,
				"waited", p.now().Sub(start))
			return state, nil
		default:
			transient = 0
		}

		now := p.now()
		if !now.Before(deadline) {
			waited := now.Sub(start)
			p.logger.Warn("job wait budget exhausted",
				"job_id", jobID,
				"polls", polls,
				"waited", waited)
			return kb.JobState{}, &types.TimedOutError{JobID: jobID, Waited: waited}
		}

		// Sleep the current interval, then grow it. Transient failures
		// (err != nil) retry at the current interval without growing.
		wait := interval
		if err == nil {
			interval = p.grow(interval)
		}
		// Never sleep past the deadline; the final poll lands on it.
		if remaining := deadline.Sub(now); wait > remaining {
			wait = remaining
		}
		if err := p.sleep(ctx, wait); err != nil {
			return kb.JobState{}, err
		}
	}
}

// grow returns the next poll interval, capped at maxInterval.
func (p *Poller) grow(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * p.multiplier)
	if next > p.maxInterval {
		next = p.maxInterval
	}
	return next
}

// sleepContext sleeps for d or until ctx is canceled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
