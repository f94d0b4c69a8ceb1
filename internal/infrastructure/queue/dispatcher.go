package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/personar/profile-service/internal/api/metrics"
	"github.com/personar/profile-service/internal/core/domain"
	"github.com/personar/profile-service/internal/core/ports"
	"github.com/personar/profile-service/internal/pkg/keylock"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	maxAttempts    = 3
	retryBackoff   = 500 * time.Millisecond
)

// Dispatcher re-registers users whose index registration failed on the
// request path. Jobs are sharded by user id so retries for one user run in
// order on a single worker.
type Dispatcher struct {
	workers []chan string
	users   ports.UserRepository
	index   ports.VectorIndex
	locks   *keylock.Striped
	backoff time.Duration
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used. locks must be the set the
// request path registers under; nil gives the dispatcher its own.
func NewDispatcher(numWorkers int, users ports.UserRepository, index ports.VectorIndex, locks *keylock.Striped, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	if locks == nil {
		locks = &keylock.Striped{}
	}
	d := &Dispatcher{
		workers: make([]chan string, numWorkers),
		users:   users,
		index:   index,
		locks:   locks,
		backoff: retryBackoff,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan string, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands a user id to its worker. It never blocks: when the shard is
// full the job is dropped and left to the next reindex.
func (d *Dispatcher) Enqueue(userID string) {
	idx := d.shardIndex(userID)
	select {
	case d.workers[idx] <- userID:
		metrics.EnrollmentQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
	default:
		metrics.EnrollmentDroppedTotal.Inc()
		d.log.Warn().Str("user_id", userID).Int("worker_id", idx).Msg("enrollment queue full, job dropped")
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan string) {
	defer d.wg.Done()
	depth := metrics.EnrollmentQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case userID := <-ch:
			depth.Dec()
			if err := d.process(ctx, userID); err != nil {
				d.log.Error().Err(err).
					Str("user_id", userID).
					Int("worker_id", id).
					Msg("enrollment retry failed")
			}
		}
	}
}

// process registers the user's current embeddings. The set is re-read on
// every attempt so a stale retry cannot overwrite a newer enrollment.
func (d *Dispatcher) process(ctx context.Context, userID string) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = d.attempt(ctx, userID)
		if err == nil {
			d.log.Info().Str("user_id", userID).Int("attempt", attempt).Msg("enrollment registered")
			return nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			metrics.EnrollmentErrorsTotal.WithLabelValues("lookup").Inc()
			return err
		}

		metrics.EnrollmentErrorsTotal.WithLabelValues("retry").Inc()
		if errors.Is(err, domain.ErrInvalidInput) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.backoff * time.Duration(attempt)):
		}
	}
	return err
}

// attempt reads and registers under the user's lock so a concurrent
// re-enrollment cannot land between the two.
func (d *Dispatcher) attempt(ctx context.Context, userID string) error {
	unlock := d.locks.Lock(userID)
	defer unlock()

	user, err := d.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	return d.index.Register(ctx, userID, user.Embeddings)
}
