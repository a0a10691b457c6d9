package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-donations/app/entity"
)

type fakeJobRepo struct {
	jobs   []*entity.Job
	nextID uint64
}

func (f *fakeJobRepo) Create(_ context.Context, job *entity.Job) error {
	f.nextID++
	job.ID = f.nextID
	copied := *job
	f.jobs = append(f.jobs, &copied)
	return nil
}

func (f *fakeJobRepo) ClearPending(_ context.Context, queue string, dedupeKey string) error {
	kept := f.jobs[:0]
	for _, job := range f.jobs {
		if job.Queue == queue && job.Status == entity.JobStatusPending && job.DedupeKey != nil && *job.DedupeKey == dedupeKey {
			continue
		}
		kept = append(kept, job)
	}
	f.jobs = kept
	return nil
}

func (f *fakeJobRepo) ListDue(_ context.Context, queue string, now time.Time, limit int32) ([]*entity.Job, error) {
	due := make([]*entity.Job, 0)
	for _, job := range f.jobs {
		if job.Queue == queue && job.Status == entity.JobStatusPending && !job.RunAt.After(now) {
			due = append(due, job)
		}
		if int32(len(due)) == limit {
			break
		}
	}
	return due, nil
}

func (f *fakeJobRepo) MarkDone(_ context.Context, job *entity.Job) error {
	job.Status = entity.JobStatusDone
	job.Attempts++
	return nil
}

func (f *fakeJobRepo) MarkFailed(_ context.Context, job *entity.Job, cause string) error {
	job.Status = entity.JobStatusFailed
	job.Attempts++
	job.LastErr = &cause
	return nil
}

func (f *fakeJobRepo) pending(queue string) []*entity.Job {
	out := make([]*entity.Job, 0)
	for _, job := range f.jobs {
		if job.Queue == queue && job.Status == entity.JobStatusPending {
			out = append(out, job)
		}
	}
	return out
}

func TestEnqueueAndRunBatch(t *testing.T) {
	repo := &fakeJobRepo{}
	dispatcher := NewDispatcher(repo, 10)

	var got []string
	dispatcher.Register(TypeSendRecord, func(_ context.Context, payloadJSON string) error {
		got = append(got, payloadJSON)
		return nil
	})

	if err := dispatcher.Enqueue(context.Background(), QueueBasket, TypeSendRecord, map[string]string{"transaction_id": "tx_1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := dispatcher.RunBatch(context.Background(), QueueBasket); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 1 || got[0] != `{"transaction_id":"tx_1"}` {
		t.Fatalf("unexpected payloads: %v", got)
	}
	if len(repo.pending(QueueBasket)) != 0 {
		t.Fatal("expected no pending jobs after batch")
	}
}

func TestEnqueueLatestCollapsesPending(t *testing.T) {
	repo := &fakeJobRepo{}
	dispatcher := NewDispatcher(repo, 10)

	ctx := context.Background()
	for _, lang := range []string{"en-US", "de-DE"} {
		err := dispatcher.EnqueueLatest(ctx, QueueBasket, TypeNewsletterSignup, "jane@example.com", map[string]string{"lang": lang})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	pending := repo.pending(QueueBasket)
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending job, got %d", len(pending))
	}
	if pending[0].PayloadJSON != `{"lang":"de-DE"}` {
		t.Fatalf("expected latest payload to win, got %s", pending[0].PayloadJSON)
	}
}

func TestRunBatchMarksFailedJobs(t *testing.T) {
	repo := &fakeJobRepo{}
	dispatcher := NewDispatcher(repo, 10)

	handlerErr := errors.New("queue unavailable")
	dispatcher.Register(TypeSendRecord, func(_ context.Context, _ string) error {
		return handlerErr
	})

	ctx := context.Background()
	if err := dispatcher.Enqueue(ctx, QueueBasket, TypeSendRecord, map[string]string{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := dispatcher.RunBatch(ctx, QueueBasket); !errors.Is(err, handlerErr) {
		t.Fatalf("expected handler error, got %v", err)
	}

	if repo.jobs[0].Status != entity.JobStatusFailed {
		t.Fatalf("unexpected status: %d", repo.jobs[0].Status)
	}
	if repo.jobs[0].LastErr == nil || *repo.jobs[0].LastErr != "queue unavailable" {
		t.Fatalf("unexpected last error: %v", repo.jobs[0].LastErr)
	}
}

func TestRunBatchFailsJobsWithoutHandler(t *testing.T) {
	repo := &fakeJobRepo{}
	dispatcher := NewDispatcher(repo, 10)

	ctx := context.Background()
	if err := dispatcher.Enqueue(ctx, QueueWebhooks, TypeStripeWebhook, map[string]string{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := dispatcher.RunBatch(ctx, QueueWebhooks); err == nil {
		t.Fatal("expected error for unregistered handler")
	}
	if repo.jobs[0].Status != entity.JobStatusFailed {
		t.Fatalf("unexpected status: %d", repo.jobs[0].Status)
	}
}
