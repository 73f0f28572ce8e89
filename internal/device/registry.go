// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Coldpath Authors

package device

import (
	"sync"

	"github.com/coldpath-wallet/coldpath/internal/util"
)

// EventKind distinguishes registry event types.
type EventKind int

const (
	EventArrived EventKind = iota
	EventRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventArrived:
		return "arrived"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is delivered to registry subscribers when the reachable set changes.
type Event struct {
	Kind   EventKind
	Device Discovered
}

// Registry tracks the currently reachable signer devices.
//
// The link layer is the only mutator, through Announce and Withdraw.
// Orchestrators read the set via Snapshot/Lookup and may subscribe for
// change events. An empty set is the normal steady state, not an error.
type Registry struct {
	mu         sync.RWMutex
	scanning   bool
	discovered map[string]Discovered

	subMu  sync.Mutex
	nextID int
	subs   map[int]chan Event
}

// NewRegistry creates an empty registry. Callers own the instance;
// there is no process-wide shared registry.
func NewRegistry() *Registry {
	return &Registry{
		discovered: make(map[string]Discovered),
		subs:       make(map[int]chan Event),
	}
}

// StartScanning begins accepting link-layer announcements.
// Calling it while already scanning is a no-op.
func (r *Registry) StartScanning() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scanning {
		return
	}
	r.scanning = true
	util.Debug("device registry: scanning started")
}

// StopScanning stops accepting announcements and clears the discovered
// set. Removal events are emitted for every device that disappears.
func (r *Registry) StopScanning() {
	r.mu.Lock()
	if !r.scanning {
		r.mu.Unlock()
		return
	}
	r.scanning = false
	removed := make([]Discovered, 0, len(r.discovered))
	for _, dev := range r.discovered {
		removed = append(removed, dev)
	}
	r.discovered = make(map[string]Discovered)
	r.mu.Unlock()

	for _, dev := range removed {
		r.publish(Event{Kind: EventRemoved, Device: dev})
	}
	util.Debug("device registry: scanning stopped", "removed", len(removed))
}

// Scanning reports whether the registry is currently accepting
// announcements.
func (r *Registry) Scanning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scanning
}

// Announce records a device observed by the link layer. Re-announcing
// a known id updates the record without emitting a duplicate arrival.
// Announcements while not scanning are dropped.
func (r *Registry) Announce(dev Discovered) {
	r.mu.Lock()
	if !r.scanning {
		r.mu.Unlock()
		return
	}
	_, known := r.discovered[dev.ID]
	r.discovered[dev.ID] = dev
	r.mu.Unlock()

	if !known {
		util.Debug("device registry: device arrived", "id", dev.ID, "type", dev.Type.Key())
		r.publish(Event{Kind: EventArrived, Device: dev})
	}
}

// Withdraw removes a device whose link disappeared.
func (r *Registry) Withdraw(id string) {
	r.mu.Lock()
	dev, known := r.discovered[id]
	if known {
		delete(r.discovered, id)
	}
	r.mu.Unlock()

	if known {
		util.Debug("device registry: device removed", "id", id)
		r.publish(Event{Kind: EventRemoved, Device: dev})
	}
}

// Snapshot returns a copy of the currently discovered devices.
func (r *Registry) Snapshot() []Discovered {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Discovered, 0, len(r.discovered))
	for _, dev := range r.discovered {
		out = append(out, dev)
	}
	return out
}

// Lookup returns the discovered device with the given id, if present.
func (r *Registry) Lookup(id string) (Discovered, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dev, ok := r.discovered[id]
	return dev, ok
}

// Subscribe registers for change events. The returned cancel function
// must be called when the subscriber is done; events are delivered on a
// buffered channel and dropped if the subscriber falls far behind.
func (r *Registry) Subscribe() (<-chan Event, func()) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	id := r.nextID
	r.nextID++
	ch := make(chan Event, 16)
	r.subs[id] = ch

	cancel := func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		if existing, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(existing)
		}
	}
	return ch, cancel
}

func (r *Registry) publish(ev Event) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber is not draining; dropping is preferable to
			// blocking the link-layer callback.
		}
	}
}
