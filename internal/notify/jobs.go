// Package notify delivers in-app notifications and emails from river jobs.
// The settlement engine only enqueues; delivery failures are retried by river
// and never reach the engine.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

// Notification priorities.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

type NotifyArgs struct {
	UserID   uuid.UUID `json:"user_id"`
	Link     string    `json:"link"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Priority string    `json:"priority"`
}

func (NotifyArgs) Kind() string { return "notify" }

type EmailArgs struct {
	Template  string            `json:"template"`
	Recipient string            `json:"recipient"`
	Context   map[string]string `json:"context"`
}

func (EmailArgs) Kind() string { return "send_email" }

// InsertFunc enqueues a job outside any database transaction.
type InsertFunc func(ctx context.Context, args river.JobArgs) error

// Queue is the engine-facing side: it turns notification requests into jobs.
type Queue struct {
	insert InsertFunc
	logger *slog.Logger
}

func NewQueue(insert InsertFunc, logger *slog.Logger) *Queue {
	return &Queue{insert: insert, logger: logger}
}

func (q *Queue) Notify(ctx context.Context, args NotifyArgs) error {
	if args.Priority == "" {
		args.Priority = PriorityNormal
	}
	if err := q.insert(ctx, args); err != nil {
		return fmt.Errorf("enqueue notify for %s: %w", args.UserID, err)
	}
	return nil
}

func (q *Queue) SendEmail(ctx context.Context, args EmailArgs) error {
	if _, ok := templates[args.Template]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTemplate, args.Template)
	}
	if args.Recipient == "" {
		q.logger.Warn("email skipped, recipient has no address", "template", args.Template)
		return nil
	}
	if err := q.insert(ctx, args); err != nil {
		return fmt.Errorf("enqueue %s email: %w", args.Template, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Workers
// ---------------------------------------------------------------------------

// Sink delivers an in-app notification to a user.
type Sink interface {
	Deliver(ctx context.Context, n NotifyArgs) error
}

type NotifyWorker struct {
	river.WorkerDefaults[NotifyArgs]
	sink Sink
}

func NewNotifyWorker(sink Sink) *NotifyWorker {
	return &NotifyWorker{sink: sink}
}

func (w *NotifyWorker) Work(ctx context.Context, job *river.Job[NotifyArgs]) error {
	if err := w.sink.Deliver(ctx, job.Args); err != nil {
		return fmt.Errorf("deliver notification to %s: %w", job.Args.UserID, err)
	}
	return nil
}

type EmailWorker struct {
	river.WorkerDefaults[EmailArgs]
	mailer Mailer
}

func NewEmailWorker(mailer Mailer) *EmailWorker {
	return &EmailWorker{mailer: mailer}
}

func (w *EmailWorker) Work(ctx context.Context, job *river.Job[EmailArgs]) error {
	msg, err := Render(job.Args.Template, job.Args.Context)
	if err != nil {
		// A template that cannot render will never succeed on retry.
		return river.JobCancel(err)
	}
	return w.mailer.Send(ctx, job.Args.Recipient, msg)
}

// AddWorkers registers both workers.
func AddWorkers(workers *river.Workers, sink Sink, mailer Mailer) {
	river.AddWorker(workers, NewNotifyWorker(sink))
	river.AddWorker(workers, NewEmailWorker(mailer))
}
