// Package state maintains the latest sample per stream and a bounded rolling
// history, and fans snapshots out to live subscribers at a fixed cadence.
package state

import (
	"context"
	"sync"
	"time"

	"codeberg.org/halcyon/robomon/internal/frame"
	"codeberg.org/halcyon/robomon/internal/metric"
	"github.com/google/uuid"
)

// Snapshot is one fan-out unit. OK is false until the stream has seen its
// first frame; exactly one of Thermal/Torque is set when OK.
type Snapshot struct {
	OK      bool
	Thermal *frame.ThermalFrame
	Torque  *frame.TorqueSnapshot
}

// Subscription is one attached live viewer. Snapshots arrive on C roughly
// every publish interval; a slow reader gets the latest value, not a backlog.
type Subscription struct {
	ID     string
	Stream frame.Stream
	C      <-chan Snapshot

	ch chan Snapshot
}

// Publisher owns the latest-state slots, the thermal rolling history, and
// the subscriber set. Frames stored here are treated as immutable.
type Publisher struct {
	mu            sync.RWMutex
	latestThermal *frame.ThermalFrame
	latestTorque  *frame.TorqueSnapshot

	history []*frame.ThermalFrame
	head    int
	size    int

	subs     map[string]*Subscription
	interval time.Duration
	metrics  *metric.Metrics
}

func NewPublisher(historySize int, interval time.Duration, metrics *metric.Metrics) *Publisher {
	if historySize <= 0 {
		historySize = 1
	}

	return &Publisher{
		history:  make([]*frame.ThermalFrame, historySize),
		subs:     make(map[string]*Subscription),
		interval: interval,
		metrics:  metrics,
	}
}

// SetThermal records a new thermal frame as the latest and appends it to the
// rolling history, evicting the oldest entry on overflow.
func (p *Publisher) SetThermal(f *frame.ThermalFrame) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.latestThermal = f

	p.history[p.head] = f
	p.head = (p.head + 1) % len(p.history)
	if p.size < len(p.history) {
		p.size++
	}
}

// SetTorque records a new torque snapshot as the latest.
func (p *Publisher) SetTorque(s *frame.TorqueSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.latestTorque = s
}

// LatestThermal returns the most recent thermal frame, if any.
func (p *Publisher) LatestThermal() (*frame.ThermalFrame, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.latestThermal, p.latestThermal != nil
}

// LatestTorque returns the most recent torque snapshot, if any.
func (p *Publisher) LatestTorque() (*frame.TorqueSnapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.latestTorque, p.latestTorque != nil
}

// History returns the rolling thermal history, oldest first.
func (p *Publisher) History() []*frame.ThermalFrame {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*frame.ThermalFrame, 0, p.size)
	start := p.head - p.size
	if start < 0 {
		start += len(p.history)
	}
	for i := 0; i < p.size; i++ {
		out = append(out, p.history[(start+i)%len(p.history)])
	}

	return out
}

// Subscribe attaches a live viewer to a stream. Attaching before any data
// exists is fine: snapshots arrive with OK unset until the first frame.
func (p *Publisher) Subscribe(stream frame.Stream) *Subscription {
	ch := make(chan Snapshot, 1)
	sub := &Subscription{
		ID:     uuid.NewString(),
		Stream: stream,
		C:      ch,
		ch:     ch,
	}

	p.mu.Lock()
	p.subs[sub.ID] = sub
	n := len(p.subs)
	p.mu.Unlock()

	p.metrics.SetSubscribers(n)

	return sub
}

// Unsubscribe detaches a viewer and closes its channel. The close happens
// under the write lock, and sends only ever happen under the read lock, so a
// send can never race the close.
func (p *Publisher) Unsubscribe(id string) {
	p.mu.Lock()
	if sub, ok := p.subs[id]; ok {
		delete(p.subs, id)
		close(sub.ch)
	}
	n := len(p.subs)
	p.mu.Unlock()

	p.metrics.SetSubscribers(n)
}

// Run drives the fan-out: one ticker for all subscribers, each tick pushing
// the current snapshot for the subscriber's stream. If no new frame arrived
// since the last tick the same snapshot goes out again; if frames arrive
// faster than the interval, intermediate ones are superseded.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.broadcast()
		}
	}
}

func (p *Publisher) broadcast() {
	p.mu.RLock()
	defer p.mu.RUnlock()

	thermal := Snapshot{OK: p.latestThermal != nil, Thermal: p.latestThermal}
	torque := Snapshot{OK: p.latestTorque != nil, Torque: p.latestTorque}

	for _, sub := range p.subs {
		snap := thermal
		if sub.Stream == frame.StreamTorque {
			snap = torque
		}
		offer(sub.ch, snap)
	}
}

// offer replaces any undelivered snapshot with the current one. Never blocks.
func offer(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}

	select {
	case ch <- snap:
	default:
	}
}
