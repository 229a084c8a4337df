package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/devhub/community-api/internal/api/metrics"
	"github.com/devhub/community-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 128
	sendTimeout    = 15 * time.Second
)

// Mail kinds carried by jobs; also used as metric and dedup labels.
const (
	KindVerification  = "verification"
	KindPasswordReset = "password_reset"
)

// MailJob is one outbound email: a credential (OTP or reset token) bound for
// a recipient.
type MailJob struct {
	Kind       string
	Recipient  string
	Credential string
}

// SentChecker suppresses duplicate deliveries across retries. Backed by the
// redis mail dedup in production; may be nil, which disables suppression.
type SentChecker interface {
	AlreadySent(ctx context.Context, kind, recipient, credential string) (bool, error)
	MarkSent(ctx context.Context, kind, recipient, credential string) error
}

// MailDispatcher decouples email delivery from the request path. Jobs are
// routed to a fixed set of workers by a hash of the recipient, so emails to
// the same address keep their order. It satisfies ports.Mailer, wrapping a
// synchronous sender.
type MailDispatcher struct {
	workers []chan MailJob
	sender  ports.Mailer
	dedup   SentChecker
	log     zerolog.Logger
}

// NewMailDispatcher creates a dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewMailDispatcher(numWorkers int, sender ports.Mailer, dedup SentChecker, log zerolog.Logger) *MailDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &MailDispatcher{
		workers: make([]chan MailJob, numWorkers),
		sender:  sender,
		dedup:   dedup,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan MailJob, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *MailDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// SendVerificationCode enqueues a verification email and returns immediately.
func (d *MailDispatcher) SendVerificationCode(_ context.Context, email, code string) error {
	d.enqueue(MailJob{Kind: KindVerification, Recipient: email, Credential: code})
	return nil
}

// SendPasswordResetLink enqueues a reset email and returns immediately.
func (d *MailDispatcher) SendPasswordResetLink(_ context.Context, email, resetToken string) error {
	d.enqueue(MailJob{Kind: KindPasswordReset, Recipient: email, Credential: resetToken})
	return nil
}

// enqueue sends a job to the worker responsible for its recipient.
// Non-blocking up to channelBuffer capacity.
func (d *MailDispatcher) enqueue(job MailJob) {
	idx := d.shardIndex(job.Recipient)
	d.workers[idx] <- job
	metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *MailDispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient))
	return int(h.Sum32()) % len(d.workers)
}

func (d *MailDispatcher) runWorker(ctx context.Context, id int, ch <-chan MailJob) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-ch:
			if !ok {
				return
			}
			d.deliver(ctx, id, job)
			metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(float64(len(ch)))
		}
	}
}

func (d *MailDispatcher) deliver(ctx context.Context, workerID int, job MailJob) {
	if d.dedup != nil {
		seen, err := d.dedup.AlreadySent(ctx, job.Kind, job.Recipient, job.Credential)
		if err != nil {
			d.log.Warn().Err(err).Msg("mail dedup unavailable, delivering anyway")
		} else if seen {
			metrics.MailJobsTotal.WithLabelValues(job.Kind, "duplicate").Inc()
			return
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	var err error
	switch job.Kind {
	case KindVerification:
		err = d.sender.SendVerificationCode(sendCtx, job.Recipient, job.Credential)
	case KindPasswordReset:
		err = d.sender.SendPasswordResetLink(sendCtx, job.Recipient, job.Credential)
	}
	if err != nil {
		metrics.MailJobsTotal.WithLabelValues(job.Kind, "error").Inc()
		d.log.Error().Err(err).
			Str("kind", job.Kind).
			Int("worker_id", workerID).
			Msg("mail delivery failed")
		return
	}

	metrics.MailJobsTotal.WithLabelValues(job.Kind, "sent").Inc()
	if d.dedup != nil {
		if err := d.dedup.MarkSent(ctx, job.Kind, job.Recipient, job.Credential); err != nil {
			d.log.Warn().Err(err).Msg("mail dedup mark failed")
		}
	}
}
