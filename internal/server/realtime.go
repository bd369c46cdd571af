package server

import (
	"context"
	"sync"

	"github.com/MarcoPoloResearchLab/homestock/internal/inventory"
)

// Snapshot is the full current state of the item collection, delivered
// wholesale to every subscriber on every change.
type Snapshot map[string]inventory.Item

// SnapshotDispatcher fans the latest collection snapshot out to every
// connected stream. The household shares one collection, so there is no
// per-subscriber topic: every publish reaches everyone.
type SnapshotDispatcher struct {
	mu          sync.RWMutex
	subscribers map[int64]*snapshotSubscriber
	nextID      int64
}

type snapshotSubscriber struct {
	id     int64
	stream chan Snapshot
}

// NewSnapshotDispatcher constructs an empty dispatcher.
func NewSnapshotDispatcher() *SnapshotDispatcher {
	return &SnapshotDispatcher{
		subscribers: make(map[int64]*snapshotSubscriber),
	}
}

// Subscribe registers a stream that receives each published snapshot until
// the context is cancelled or the returned cleanup runs.
func (d *SnapshotDispatcher) Subscribe(ctx context.Context) (<-chan Snapshot, func()) {
	subscriber := &snapshotSubscriber{
		id: d.nextSequence(),
		// Single-slot buffer: a slow consumer only ever sees the latest
		// pending snapshot, never a backlog of stale ones.
		stream: make(chan Snapshot, 1),
	}
	d.register(subscriber)
	cleanup := func() {
		d.unregister(subscriber.id)
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish delivers the snapshot to all subscribers. When a subscriber's slot
// is full the stale pending snapshot is replaced by this one.
func (d *SnapshotDispatcher) Publish(snapshot Snapshot) {
	if snapshot == nil {
		snapshot = Snapshot{}
	}
	d.mu.RLock()
	copies := make([]*snapshotSubscriber, 0, len(d.subscribers))
	for _, subscriber := range d.subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()

	for _, subscriber := range copies {
		select {
		case subscriber.stream <- snapshot:
			continue
		default:
		}
		select {
		case <-subscriber.stream:
		default:
		}
		select {
		case subscriber.stream <- snapshot:
		default:
		}
	}
}

func (d *SnapshotDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *SnapshotDispatcher) register(subscriber *snapshotSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers[subscriber.id] = subscriber
}

func (d *SnapshotDispatcher) unregister(subscriberID int64) {
	d.mu.Lock()
	delete(d.subscribers, subscriberID)
	d.mu.Unlock()
}
