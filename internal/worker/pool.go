package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueEmail             = "jobs:email"
	QueueDossierCompletion = "jobs:dossier_completion"

	// MaxJobAttempts is how many times a job runs before it is dead-lettered.
	MaxJobAttempts = 5
)

// Job is the generic envelope for all async tasks.
type Job struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// JobHandler runs one job payload. A returned error schedules a retry.
type JobHandler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// Dispatcher enqueues async jobs into Redis lists. The worker pool dequeues
// them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueEmail pushes a notification e-mail job.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, to, subject, body string) error {
	return d.enqueue(ctx, QueueEmail, "email", EmailJobPayload{ToEmail: to, Subject: subject, Body: body})
}

// EnqueueDossierCompletion schedules another attempt at finishing a dossier
// completion.
func (d *Dispatcher) EnqueueDossierCompletion(ctx context.Context, dossierID uuid.UUID) error {
	return d.enqueue(ctx, QueueDossierCompletion, "dossier_completion", CompletionJobPayload{DossierID: dossierID.String()})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{ID: uuid.NewString(), Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := d.rdb.LPush(ctx, queue, encoded).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	return nil
}

// Pool consumes every registered queue with a fixed number of goroutines.
type Pool struct {
	rdb        *redis.Client
	handlers   map[string]JobHandler
	backoff    func(attempt int) time.Duration
	errorPause time.Duration // wait after a failed dequeue
}

// NewPool maps queue names to the handler that processes them.
func NewPool(rdb *redis.Client, handlers map[string]JobHandler) *Pool {
	return &Pool{rdb: rdb, handlers: handlers, backoff: retryBackoff, errorPause: time.Second}
}

// Start launches numWorkers goroutines consuming all queues.
// Each goroutine blocks on BRPOP, so idle workers cost no CPU.
func (p *Pool) Start(ctx context.Context, numWorkers int) {
	if numWorkers < 1 {
		numWorkers = 1
	}
	for i := 0; i < numWorkers; i++ {
		go p.run(ctx, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func (p *Pool) queues() []string {
	queues := make([]string, 0, len(p.handlers))
	for q := range p.handlers {
		queues = append(queues, q)
	}
	return queues
}

func (p *Pool) run(ctx context.Context, id int) {
	queues := p.queues()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop; waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					log.Warn().Err(err).Int("worker", id).Msg("worker: dequeue failed")
					pause(ctx, p.errorPause)
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			p.apply(ctx, result[0], p.handle(ctx, result[0], result[1]))
		}
	}
}

// outcome is what happens to a job after one run.
type outcome struct {
	job    *Job
	retry  time.Duration // requeue after this delay when > 0
	dead   bool
	reason string
}

// handle runs one raw job and decides whether it is done, retried or
// dead-lettered. It does not touch Redis.
func (p *Pool) handle(ctx context.Context, queue, raw string) outcome {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("worker: failed to unmarshal job")
		quoted, _ := json.Marshal(raw)
		return outcome{job: &Job{Payload: quoted}, dead: true, reason: "malformed job: " + err.Error()}
	}
	h, ok := p.handlers[queue]
	if !ok {
		return outcome{job: &job, dead: true, reason: "no handler for queue " + queue}
	}

	job.Attempts++
	err := h.Process(ctx, job.Payload)
	if err == nil {
		log.Debug().Str("type", job.Type).Str("job_id", job.ID).Msg("worker: job done")
		return outcome{job: &job}
	}
	if job.Attempts >= MaxJobAttempts {
		return outcome{job: &job, dead: true, reason: fmt.Sprintf("max attempts (%d) exceeded: %v", MaxJobAttempts, err)}
	}
	delay := p.backoff(job.Attempts)
	log.Warn().
		Err(err).
		Str("type", job.Type).
		Str("job_id", job.ID).
		Int("attempt", job.Attempts).
		Dur("retry_in", delay).
		Msg("worker: job failed, retrying")
	return outcome{job: &job, retry: delay}
}

func (p *Pool) apply(ctx context.Context, queue string, o outcome) {
	switch {
	case o.dead:
		SendToDLQ(ctx, p.rdb, queue, *o.job, o.reason)
	case o.retry > 0:
		go p.requeue(ctx, queue, *o.job, o.retry)
	}
}

// requeue pushes the job back after delay unless the pool is stopping, in
// which case the job goes back immediately so it survives the restart.
func (p *Pool) requeue(ctx context.Context, queue string, job Job, delay time.Duration) {
	pause(ctx, delay)
	encoded, err := json.Marshal(job)
	if err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("worker: failed to marshal retry")
		return
	}
	if err := p.rdb.LPush(context.WithoutCancel(ctx), queue, encoded).Err(); err != nil {
		log.Error().Err(err).Str("queue", queue).Str("job_id", job.ID).Msg("worker: failed to requeue job")
	}
}

// pause sleeps for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// retryBackoff doubles from one second: 1s, 2s, 4s, 8s, capped at one minute.
func retryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(1<<uint(attempt-1)) * time.Second
	if d > time.Minute {
		d = time.Minute
	}
	return d
}
