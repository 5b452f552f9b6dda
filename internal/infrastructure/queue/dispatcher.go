package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-system/internal/api/metrics"
	"github.com/99minutos/identity-system/internal/core/ports"
	"github.com/99minutos/identity-system/pkg/logger"
)

const (
	defaultWorkers  = 4
	channelBuffer   = 256
	deliveryTimeout = 30 * time.Second
)

// ErrQueueFull is returned by Send when the recipient's worker has no room.
var ErrQueueFull = errors.New("mail queue full")

// ErrStopped is returned by Send after the dispatcher has been stopped.
var ErrStopped = errors.New("mail dispatcher stopped")

// Dispatcher delivers outbound mail through a fixed set of workers, sharded by
// recipient so messages to one address are delivered in order. It implements
// ports.Mailer: Send only enqueues.
type Dispatcher struct {
	workers  []chan ports.MailMessage
	delivery ports.Mailer
	log      zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers that hand
// messages to delivery. If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, delivery ports.Mailer, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan ports.MailMessage, numWorkers),
		delivery: delivery,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.MailMessage, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers exit when ctx is cancelled or
// after Stop has drained their channel.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Send enqueues msg without blocking.
func (d *Dispatcher) Send(_ context.Context, msg ports.MailMessage) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}

	idx := d.shardIndex(msg.To)
	select {
	case d.workers[idx] <- msg:
		metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
		return nil
	default:
		metrics.MailDispatchTotal.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// Stop closes the worker channels and waits for queued mail to drain.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(recipient)))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.MailMessage) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			metrics.MailQueueDepth.WithLabelValues(strconv.Itoa(id)).Dec()
			d.deliver(ctx, id, msg)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, id int, msg ports.MailMessage) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
	defer cancel()

	start := time.Now()
	err := d.delivery.Send(ctx, msg)
	result := "sent"
	if err != nil {
		result = "failed"
		d.log.Error().Err(err).
			Str("to", logger.MaskEmail(msg.To)).
			Int("worker_id", id).
			Msg("mail delivery failed")
	}
	metrics.MailDispatchTotal.WithLabelValues(result).Inc()
	metrics.MailDeliveryDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}
