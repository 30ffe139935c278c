// internal/published/store.go
package published

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ChannelValue is the published view of one device-backed channel.
type ChannelValue struct {
	Number int
	Name   string
	Unit   string
	Raw    float64 // decoded value plus offset, NaN on decode failure
	Value  float64 // formula result after clamp and round
}

// Snapshot is one complete cycle's results.
// Snapshots are immutable once published; readers must not modify them.
type Snapshot struct {
	Cycle    uint64
	At       time.Time
	Duration time.Duration

	Channels map[int]ChannelValue // by channel number
	Math     map[string]float64   // enabled math channels by name

	// Errors holds per-channel failures of this cycle.
	Errors []error
}

// Get resolves a channel or math channel name.
func (s *Snapshot) Get(name string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	for _, ch := range s.Channels {
		if ch.Name == name {
			return ch.Value, true
		}
	}
	v, ok := s.Math[name]
	return v, ok
}

// Channel returns the published value of channel n.
func (s *Snapshot) Channel(n int) (ChannelValue, bool) {
	if s == nil {
		return ChannelValue{}, false
	}
	ch, ok := s.Channels[n]
	return ch, ok
}

// Numbers returns channel numbers in ascending order.
func (s *Snapshot) Numbers() []int {
	if s == nil {
		return nil
	}
	out := make([]int, 0, len(s.Channels))
	for n := range s.Channels {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Store holds the latest snapshot. Readers never observe a mix of two cycles.
type Store struct {
	cur atomic.Pointer[Snapshot]

	mu        sync.Mutex
	listeners []func()
	subs      map[int]chan *Snapshot
	nextSub   int
}

func NewStore() *Store {
	return &Store{subs: make(map[int]chan *Snapshot)}
}

// Snapshot returns the latest published snapshot, or nil before the first cycle.
func (s *Store) Snapshot() *Snapshot {
	return s.cur.Load()
}

// Get resolves a name against the latest snapshot.
func (s *Store) Get(name string) (float64, bool) {
	return s.cur.Load().Get(name)
}

// OnPublish registers fn to run once after every publish.
// Listeners pull data through Snapshot.
func (s *Store) OnPublish(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Subscribe returns a channel that always holds the newest unread snapshot.
// A slow reader skips intermediate cycles. cancel closes the channel.
func (s *Store) Subscribe() (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish swaps in snap, then notifies listeners and subscribers.
func (s *Store) Publish(snap *Snapshot) {
	s.cur.Store(snap)

	s.mu.Lock()
	listeners := append([]func(){}, s.listeners...)
	for _, ch := range s.subs {
		offer(ch, snap)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// offer replaces any unread snapshot with snap.
func offer(ch chan *Snapshot, snap *Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
