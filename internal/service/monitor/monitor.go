// Package monitor polls a session's video frame source on a fixed
// interval and fans the classified emotion out to subscribers. Polling
// is independent of chat turns; a turn never waits on the timer.
package monitor

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/mindhaven-ai/mindhaven/backend/internal/analysis/emotion"
)

// ErrNoFrame signals that the source has nothing to offer yet (camera
// denied or not started). The poller skips the tick without logging;
// the session stays usable without video.
var ErrNoFrame = errors.New("no frame available")

// FrameSource yields one captured frame per call. The demo frontend
// feeds frames over the live channel; tests supply synthetic sources.
type FrameSource interface {
	Capture(ctx context.Context) ([]byte, error)
}

// FrameSourceFunc adapts a plain function to FrameSource.
type FrameSourceFunc func(ctx context.Context) ([]byte, error)

// Capture implements FrameSource.
func (f FrameSourceFunc) Capture(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// Update is one emotion observation delivered to subscribers.
type Update struct {
	Emotion     emotion.Label `json:"emotion"`
	Color       string        `json:"color"`
	Description string        `json:"description"`
	At          time.Time     `json:"at"`
}

// Monitor owns the polling timer and the latest observation for one
// session. Stop releases the timer and all subscriber channels; it is
// safe to call on every exit path, including after errors.
type Monitor struct {
	interval time.Duration
	source   FrameSource
	classify emotion.FrameClassifier

	mu      sync.Mutex
	latest  *Update
	subs    map[chan Update]struct{}
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// New builds a monitor. A nil classifier uses the stub classifier.
func New(source FrameSource, classify emotion.FrameClassifier, interval time.Duration) *Monitor {
	if classify == nil {
		classify = emotion.ClassifyFrame
	}
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Monitor{
		interval: interval,
		source:   source,
		classify: classify,
		subs:     make(map[chan Update]struct{}),
	}
}

// Start launches the polling loop. Starting a stopped or already
// running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped || m.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.loop(ctx, m.done)
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *Monitor) poll(ctx context.Context) {
	frame, err := m.source.Capture(ctx)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, ErrNoFrame) {
			log.Printf("[monitor] frame capture failed: %v", err)
		}
		return
	}

	label, err := m.classify(ctx, frame)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("[monitor] frame classification failed: %v", err)
		}
		return
	}

	m.publish(Update{
		Emotion:     label,
		Color:       emotion.Color(label),
		Description: emotion.Description(label),
		At:          time.Now().UTC(),
	})
}

func (m *Monitor) publish(update Update) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}

	m.latest = &update
	for ch := range m.subs {
		select {
		case ch <- update:
		default:
			// slow subscriber drops this observation
		}
	}
}

// Latest returns the most recent observation, false before the first
// poll completes.
func (m *Monitor) Latest() (Update, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest == nil {
		return Update{}, false
	}
	return *m.latest, true
}

// Subscribe registers a buffered update channel. The channel is closed
// by Stop.
func (m *Monitor) Subscribe() chan Update {
	ch := make(chan Update, 4)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		close(ch)
		return ch
	}
	m.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (m *Monitor) Unsubscribe(ch chan Update) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[ch]; ok {
		delete(m.subs, ch)
		close(ch)
	}
}

// Stop cancels the timer, waits for the polling goroutine to exit, and
// closes all subscriber channels. Idempotent. After Stop returns, no
// further update is delivered.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	subs := m.subs
	m.subs = make(map[chan Update]struct{})
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	for ch := range subs {
		close(ch)
	}
}
