package queue

import (
	"context"
	"hash/fnv"

	"github.com/rs/zerolog"

	"github.com/acmecrm/crm-identity/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
)

// MailDispatcher routes invitation mail jobs to a fixed set of workers
// using consistent hashing on the recipient address, guaranteeing
// per-recipient delivery ordering (a resend never overtakes the original).
type MailDispatcher struct {
	workers []chan ports.InvitationMail
	mailer  ports.Mailer
	log     zerolog.Logger
}

// NewMailDispatcher creates a MailDispatcher with numWorkers sharded
// workers. If numWorkers <= 0, defaultWorkers is used.
func NewMailDispatcher(numWorkers int, mailer ports.Mailer, log zerolog.Logger) *MailDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &MailDispatcher{
		workers: make([]chan ports.InvitationMail, numWorkers),
		mailer:  mailer,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.InvitationMail, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *MailDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue sends a mail job to the worker responsible for its recipient.
// Non-blocking up to channelBuffer capacity.
func (d *MailDispatcher) Enqueue(mail ports.InvitationMail) {
	d.workers[d.shardIndex(mail.Email)] <- mail
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *MailDispatcher) shardIndex(email string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(email))
	return int(h.Sum32()) % len(d.workers)
}

func (d *MailDispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.InvitationMail) {
	for {
		select {
		case <-ctx.Done():
			return
		case mail, ok := <-ch:
			if !ok {
				return
			}
			if err := d.mailer.SendInvitation(ctx, mail); err != nil {
				d.log.Error().Err(err).
					Str("email", mail.Email).
					Int("worker_id", id).
					Msg("invitation mail delivery failed")
			}
		}
	}
}
