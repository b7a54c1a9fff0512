// Package progress carries download progress events from pool workers to
// whatever wants to render them. Workers push immutable Event values into a
// Sink; consumers decide what to do with them. Nothing in the pipeline
// depends on a consumer being present.
package progress

import (
	"sync"
)

// State is one step in an asset's lifecycle.
type State int

const (
	Queued State = iota
	InFlight
	Done
	Errored
	Skipped
)

func (s State) String() string {
	switch s {
	case Queued:
		return "queued"
	case InFlight:
		return "in-flight"
	case Done:
		return "done"
	case Errored:
		return "error"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Event describes one state transition of one asset. Events are transient
// and never persisted.
type Event struct {
	AlbumID string
	Index   int
	State   State
	Bytes   int64 // Bytes transferred; only meaningful for Done.
	Err     error // Failure reason; only set for Errored.
}

// Sink receives progress events. Implementations must tolerate concurrent
// OnEvent calls from every pool worker.
type Sink interface {
	OnEvent(ev Event)
}

// Discard is a Sink that drops every event. Use it when no progress surface
// is attached.
var Discard Sink = discard{}

type discard struct{}

func (discard) OnEvent(Event) {}

// Multi returns a Sink that forwards each event to every given sink, in
// order. It lets independent consumers (e.g. an aggregate tracker and a live
// log) share one event stream.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

type multi []Sink

func (m multi) OnEvent(ev Event) {
	for _, s := range m {
		s.OnEvent(ev)
	}
}

// Snapshot is a consistent copy of the tracker's counters at one instant.
type Snapshot struct {
	AlbumID  string
	Total    int
	Queued   int
	InFlight int
	Done     int
	Errored  int
	Skipped  int
	Bytes    int64
}

// Finished returns true if every queued asset has reached a terminal state.
func (s Snapshot) Finished() bool {
	return s.Total > 0 && s.Done+s.Errored+s.Skipped == s.Total
}

// Tracker is a Sink that aggregates events into per-album counters. All
// updates are serialized; Snapshot never observes a torn update.
type Tracker struct {
	mtx   sync.Mutex
	snap  Snapshot
	state map[int]State
}

func NewTracker(albumID string) *Tracker {
	return &Tracker{
		snap:  Snapshot{AlbumID: albumID},
		state: map[int]State{},
	}
}

func (t *Tracker) OnEvent(ev Event) {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	switch ev.State {
	case Queued:
		t.snap.Total++
		t.snap.Queued++
	case InFlight:
		t.snap.Queued--
		t.snap.InFlight++
	case Done:
		t.snap.InFlight--
		t.snap.Done++
		t.snap.Bytes += ev.Bytes
	case Errored:
		// An asset can fail while still queued (shutdown before a worker
		// picked it up), so decrement whichever state it was last in.
		if t.state[ev.Index] == InFlight {
			t.snap.InFlight--
		} else {
			t.snap.Queued--
		}
		t.snap.Errored++
	case Skipped:
		t.snap.Queued--
		t.snap.Skipped++
	}

	t.state[ev.Index] = ev.State
}

// Snapshot returns a copy of the current counters.
func (t *Tracker) Snapshot() Snapshot {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	return t.snap
}
