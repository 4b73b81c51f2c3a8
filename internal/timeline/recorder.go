package timeline

import (
	"sort"
	"sync"
	"time"

	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/interp"
)

// Recorder timestamps live pin changes against a wall-clock session
// start. The live scheduler calls Record from its own goroutine while
// status readers may call BuildSequence concurrently, hence the lock.
type Recorder struct {
	mu      sync.Mutex
	start   time.Time
	events  []Event
	looping bool
}

func NewRecorder(start time.Time, looping bool) *Recorder {
	return &Recorder{start: start, looping: looping}
}

// Record appends a change at the current session offset.
func (r *Recorder) Record(ch interp.PinChange, origin Origin) Event {
	ev := eventFromChange(ch, time.Since(r.start).Milliseconds(), origin)

	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return ev
}

// BuildSequence returns a time-sorted snapshot of everything recorded so
// far. Total duration is the last event's time, mirroring the extractor.
func (r *Recorder) BuildSequence() *Sequence {
	return r.BuildSequenceFrom(0)
}

// Count returns how many events have been recorded so far. Offsets
// obtained here feed BuildSequenceFrom.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// BuildSequenceFrom snapshots only the events recorded at or after the
// given offset, letting the caller grade one loop pass at a time.
func (r *Recorder) BuildSequenceFrom(offset int) *Sequence {
	r.mu.Lock()
	if offset < 0 {
		offset = 0
	}
	if offset > len(r.events) {
		offset = len(r.events)
	}
	events := make([]Event, len(r.events)-offset)
	copy(events, r.events[offset:])
	r.mu.Unlock()

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TimeMs < events[j].TimeMs
	})

	seq := &Sequence{Events: events, Looping: r.looping}
	if n := len(events); n > 0 {
		seq.TotalDurationMs = events[n-1].TimeMs
	}
	return seq
}
