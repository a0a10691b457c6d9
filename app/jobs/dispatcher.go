package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-donations/app/entity"
	"github.com/vibast-solutions/ms-go-donations/app/factory"
)

// Queues and job types. HTTP handlers only ever enqueue; every gateway or
// queue round-trip runs in the worker process.
const (
	QueueWebhooks = "webhooks"
	QueueBasket   = "basket"

	TypeBraintreeWebhook = "webhook.braintree"
	TypeStripeWebhook    = "webhook.stripe"
	TypeSendRecord       = "basket.send_record"
	TypeNewsletterSignup = "basket.newsletter_signup"
)

type Handler func(ctx context.Context, payloadJSON string) error

type jobRepo interface {
	Create(ctx context.Context, job *entity.Job) error
	ClearPending(ctx context.Context, queue string, dedupeKey string) error
	ListDue(ctx context.Context, queue string, now time.Time, limit int32) ([]*entity.Job, error)
	MarkDone(ctx context.Context, job *entity.Job) error
	MarkFailed(ctx context.Context, job *entity.Job, cause string) error
}

// Dispatcher is the shared deferred-work queue: producers enqueue typed
// payloads, the worker polls due jobs per queue and routes them through the
// registered handlers.
type Dispatcher struct {
	repo      jobRepo
	handlers  map[string]Handler
	batchSize int32
	logger    logrus.FieldLogger
}

func NewDispatcher(repo jobRepo, batchSize int32) *Dispatcher {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Dispatcher{
		repo:      repo,
		handlers:  make(map[string]Handler),
		batchSize: batchSize,
		logger:    factory.NewModuleLogger("jobs-dispatcher"),
	}
}

func (d *Dispatcher) Register(jobType string, handler Handler) {
	d.handlers[jobType] = handler
}

func (d *Dispatcher) Enqueue(ctx context.Context, queue string, jobType string, payload interface{}) error {
	return d.enqueue(ctx, queue, jobType, nil, payload)
}

// EnqueueLatest replaces any pending job in the queue carrying the same
// dedupe key, so repeat submissions collapse to the most recent one.
func (d *Dispatcher) EnqueueLatest(ctx context.Context, queue string, jobType string, dedupeKey string, payload interface{}) error {
	if err := d.repo.ClearPending(ctx, queue, dedupeKey); err != nil {
		return err
	}
	return d.enqueue(ctx, queue, jobType, &dedupeKey, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue string, jobType string, dedupeKey *string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return d.repo.Create(ctx, &entity.Job{
		Queue:       queue,
		Type:        jobType,
		DedupeKey:   dedupeKey,
		PayloadJSON: string(payloadJSON),
		Status:      entity.JobStatusPending,
		RunAt:       now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// RunBatch processes one poll of a queue. Individual job failures are
// recorded on the job row; the first one is also returned so the worker
// loop logs the batch as failed.
func (d *Dispatcher) RunBatch(ctx context.Context, queue string) error {
	items, err := d.repo.ListDue(ctx, queue, time.Now().UTC(), d.batchSize)
	if err != nil {
		return err
	}

	var firstErr error
	for _, job := range items {
		if job == nil {
			continue
		}

		handler, ok := d.handlers[job.Type]
		if !ok {
			err := fmt.Errorf("no handler registered for job type %s", job.Type)
			d.logger.WithField("job_id", job.ID).WithField("type", job.Type).Error("job_handler_missing")
			_ = d.repo.MarkFailed(ctx, job, err.Error())
			firstErr = keepFirstErr(firstErr, err)
			continue
		}

		if err := handler(ctx, job.PayloadJSON); err != nil {
			d.logger.WithError(err).WithField("job_id", job.ID).WithField("type", job.Type).Error("job_failed")
			_ = d.repo.MarkFailed(ctx, job, err.Error())
			firstErr = keepFirstErr(firstErr, err)
			continue
		}

		if err := d.repo.MarkDone(ctx, job); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func keepFirstErr(current, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
