package notification

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"orbit/pkg/platform/circuit"
	"orbit/pkg/requestcontext"
)

var (
	ErrCircuitOpen = errors.New("mail circuit open")
	ErrClosed      = errors.New("dispatcher closed")
)

const (
	defaultQueueSize = 256
	defaultWorkers   = 2
	defaultRate      = 5
	defaultBurst     = 10
	sendTimeout      = 30 * time.Second
)

type envelope struct {
	ctx context.Context
	msg Message
}

// Dispatcher queues messages for background workers. Notify never blocks:
// when the queue is full the message is dropped and counted.
type Dispatcher struct {
	mailer  Mailer
	limiter *rate.Limiter
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *Metrics
	workers int
	queue   chan envelope

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup

	dropLog rate.Sometimes
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithWorkers sets the number of concurrent senders.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan envelope, n)
		}
	}
}

// WithRate throttles outbound sends to perSecond with the given burst.
func WithRate(perSecond float64, burst int) Option {
	return func(d *Dispatcher) {
		if perSecond > 0 {
			if burst < 1 {
				burst = 1
			}
			d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(d *Dispatcher) {
		if b != nil {
			d.breaker = b
		}
	}
}

func NewDispatcher(mailer Mailer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		mailer:  mailer,
		limiter: rate.NewLimiter(defaultRate, defaultBurst),
		breaker: circuit.New("mail"),
		logger:  slog.Default(),
		workers: defaultWorkers,
		queue:   make(chan envelope, defaultQueueSize),
		dropLog: rate.Sometimes{First: 5, Interval: time.Minute},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the workers. Calling it more than once has no effect.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for env := range d.queue {
		_ = d.Send(env.ctx, env.msg)
	}
}

// Notify enqueues msg and reports whether it was accepted. The caller's
// context values are kept but its cancellation is not, so a finished
// request does not abort its notifications.
func (d *Dispatcher) Notify(ctx context.Context, msg Message) bool {
	if msg.To == "" {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.metrics.incDropped()
		return false
	}
	select {
	case d.queue <- envelope{ctx: context.WithoutCancel(ctx), msg: msg}:
		return true
	default:
		d.metrics.incDropped()
		d.dropLog.Do(func() {
			d.logger.WarnContext(ctx, "notification queue full, dropping message", "kind", msg.Kind)
		})
		return false
	}
}

// Send delivers msg synchronously through the limiter and the breaker.
// Failures are logged and counted here so callers may ignore the error.
func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := d.limiter.Wait(ctx); err != nil {
		d.metrics.incFailed(msg.Kind, "throttled")
		return err
	}
	if !d.breaker.Allow() {
		d.metrics.incFailed(msg.Kind, "circuit_open")
		return ErrCircuitOpen
	}

	err := d.mailer.Send(ctx, msg)
	if err != nil {
		if change := d.breaker.RecordFailure(); change.Opened {
			d.metrics.setCircuitOpen(true)
			d.logger.WarnContext(ctx, "mail circuit opened", "breaker", d.breaker.Name())
		}
		d.metrics.incFailed(msg.Kind, "send")
		d.logger.WarnContext(ctx, "failed to send notification",
			"error", err,
			"kind", msg.Kind,
			"request_id", requestcontext.RequestID(ctx),
		)
		return err
	}
	if change := d.breaker.RecordSuccess(); change.Closed {
		d.metrics.setCircuitOpen(false)
		d.logger.InfoContext(ctx, "mail circuit closed", "breaker", d.breaker.Name())
	}
	d.metrics.incSent(msg.Kind)
	return nil
}

// Close stops accepting messages and waits for queued ones to be sent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		for env := range d.queue {
			_ = d.Send(env.ctx, env.msg)
		}
		return
	}
	d.wg.Wait()
}
