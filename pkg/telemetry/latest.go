package telemetry

import (
	"context"
	"sort"
	"sync"
)

// Latest keeps the most recent trustworthy reading of each sensor, for
// collaborators polling by address.
type Latest struct {
	lock     sync.RWMutex
	readings map[uint16]*Reading
}

// NewLatest creates an empty table.
func NewLatest() *Latest {
	return &Latest{readings: make(map[uint16]*Reading)}
}

// HandleReading implements Sink.
func (l *Latest) HandleReading(ctx context.Context, r *Reading) {
	if !r.Trustworthy() {
		return
	}
	addr := r.Address()
	l.lock.Lock()
	defer l.lock.Unlock()
	if prev := l.readings[addr]; prev != nil && prev.Received.After(r.Received) {
		return
	}
	l.readings[addr] = r
}

// Get returns the latest reading of a sensor.
func (l *Latest) Get(addr uint16) (*Reading, bool) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	r, ok := l.readings[addr]
	return r, ok
}

// All returns the latest readings ordered by address.
func (l *Latest) All() []*Reading {
	l.lock.RLock()
	readings := make([]*Reading, 0, len(l.readings))
	for _, r := range l.readings {
		readings = append(readings, r)
	}
	l.lock.RUnlock()
	sort.Slice(readings, func(i, j int) bool {
		return readings[i].Address() < readings[j].Address()
	})
	return readings
}
