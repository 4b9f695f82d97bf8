package middleware

import (
	"context"
	"sync"
	"time"

	"AutoOptimiser/internal/domain/models"
	domrepo "AutoOptimiser/internal/domain/repository"
)

// ProgressHub sits between the engine and its observers. Emit never blocks
// the run goroutine: events go through a bounded buffer and are delivered
// to websocket subscribers and, when set, the event publisher.
type ProgressHub struct {
	publisher domrepo.EventPublisher
	metrics   domrepo.Metrics
	minGap    time.Duration
	bufSize   int
	subSize   int
	bufCh     chan models.RunEvent
	stopCh    chan struct{}
	doneCh    chan struct{}

	mu       sync.Mutex
	started  bool
	lastSent map[string]time.Time // per-session last delivered progress
	subs     map[int]chan models.RunEvent
	nextSub  int
}

type HubOption func(*ProgressHub)

// WithPublisher forwards every delivered event to pub.
func WithPublisher(pub domrepo.EventPublisher) HubOption {
	return func(h *ProgressHub) { h.publisher = pub }
}

// WithBufferSize sets how many events may wait for delivery.
func WithBufferSize(n int) HubOption {
	return func(h *ProgressHub) {
		if n > 0 {
			h.bufSize = n
		}
	}
}

// WithSubscriberBuffer sets the per-subscriber queue length.
func WithSubscriberBuffer(n int) HubOption {
	return func(h *ProgressHub) {
		if n > 0 {
			h.subSize = n
		}
	}
}

// WithProgressInterval drops progress events of a session that arrive
// closer than d to the previous one. Terminal events are never dropped.
func WithProgressInterval(d time.Duration) HubOption {
	return func(h *ProgressHub) { h.minGap = d }
}

func NewProgressHub(metrics domrepo.Metrics, opts ...HubOption) *ProgressHub {
	h := &ProgressHub{
		metrics:  metrics,
		bufSize:  256,
		subSize:  64,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		lastSent: make(map[string]time.Time),
		subs:     make(map[int]chan models.RunEvent),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.bufCh = make(chan models.RunEvent, h.bufSize)
	return h
}

// Start launches delivery. Events emitted before Start wait in the buffer.
func (h *ProgressHub) Start(ctx context.Context) {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return
	}
	h.started = true
	h.mu.Unlock()

	go func() {
		defer close(h.doneCh)
		for {
			select {
			case <-h.stopCh:
				h.drain(ctx)
				return
			case ev := <-h.bufCh:
				h.deliver(ctx, ev)
			}
		}
	}()
}

// Stop delivers what is buffered and stops the delivery goroutine.
func (h *ProgressHub) Stop() {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return
	}
	h.started = false
	h.mu.Unlock()
	close(h.stopCh)
	<-h.doneCh

	h.mu.Lock()
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
	h.mu.Unlock()
}

// Emit queues ev for delivery, dropping it when the buffer is full.
func (h *ProgressHub) Emit(ev models.RunEvent) {
	if ev.Kind == models.EventProgress && !h.allow(ev.SessionID, ev.Time) {
		h.metrics.RecordError("hub_throttle")
		return
	}
	select {
	case h.bufCh <- ev:
	default:
		h.metrics.RecordError("hub_buffer_full")
	}
}

// Subscribe returns a channel receiving every delivered event and a
// function that ends the subscription.
func (h *ProgressHub) Subscribe() (<-chan models.RunEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSub
	h.nextSub++
	ch := make(chan models.RunEvent, h.subSize)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				close(c)
				delete(h.subs, id)
			}
		})
	}
}

// Subscribers is the number of open subscriptions.
func (h *ProgressHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *ProgressHub) deliver(ctx context.Context, ev models.RunEvent) {
	start := time.Now()
	h.mu.Lock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.metrics.RecordError("hub_subscriber_slow")
		}
	}
	if ev.Kind != models.EventProgress {
		delete(h.lastSent, ev.SessionID)
	}
	h.mu.Unlock()

	if h.publisher != nil {
		if err := h.publish(ctx, ev); err != nil {
			h.metrics.RecordError("hub_publish")
		}
	}
	h.metrics.RecordLatency("hub_deliver", time.Since(start).Seconds())
}

// publish retries with exponential backoff; terminal events get more attempts.
func (h *ProgressHub) publish(ctx context.Context, ev models.RunEvent) error {
	attempts := 1
	if ev.Kind != models.EventProgress {
		attempts = 4
	}
	backoff := 50 * time.Millisecond
	var err error
	for i := 0; i < attempts; i++ {
		if err = h.publisher.Publish(ctx, ev); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
	return err
}

func (h *ProgressHub) drain(ctx context.Context) {
	for {
		select {
		case ev := <-h.bufCh:
			h.deliver(ctx, ev)
		default:
			return
		}
	}
}

func (h *ProgressHub) allow(session string, now time.Time) bool {
	if h.minGap <= 0 {
		return true
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	last := h.lastSent[session]
	if !last.IsZero() && now.Sub(last) < h.minGap {
		return false
	}
	h.lastSent[session] = now
	return true
}
