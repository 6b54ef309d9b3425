// Package transport provides the in-memory loopback carrier used by tests
// and the demo command. The production network transport lives outside this
// module; anything that can move one signed envelope at a time can drive the
// protocol.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"agentlink/internal/domain"
)

// Handler consumes one inbound envelope for an entity.
type Handler func(ctx context.Context, env *domain.Envelope) error

// Loopback delivers envelopes between in-process entities. Every delivery
// passes through a JSON round-trip so envelopes cross the same wire format
// a real transport would use, and no memory is shared between peers.
type Loopback struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewLoopback returns an empty loopback switch.
func NewLoopback() *Loopback {
	return &Loopback{handlers: make(map[string]Handler)}
}

// Register installs the inbound handler for entityID.
func (l *Loopback) Register(entityID string, h Handler) {
	l.mu.Lock()
	l.handlers[entityID] = h
	l.mu.Unlock()
}

// Deliver hands env to the registered handler for to, synchronously.
func (l *Loopback) Deliver(ctx context.Context, to string, env *domain.Envelope) error {
	l.mu.RLock()
	h, ok := l.handlers[to]
	l.mu.RUnlock()
	if !ok {
		return fmt.Errorf("loopback: no handler registered for %q", to)
	}

	// Simulate the wire: the receiver gets a decoded copy, never the
	// sender's struct.
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("loopback: encode envelope: %w", err)
	}
	var copied domain.Envelope
	if err := json.Unmarshal(raw, &copied); err != nil {
		return fmt.Errorf("loopback: decode envelope: %w", err)
	}
	return h(ctx, &copied)
}

// StaticDirectory is a fixed in-memory peer directory, the shape the
// discovery subsystem feeds the core with.
type StaticDirectory struct {
	mu    sync.RWMutex
	peers map[string]domain.PeerInfo
}

// NewStaticDirectory returns an empty directory.
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{peers: make(map[string]domain.PeerInfo)}
}

// Add registers or replaces a peer record.
func (d *StaticDirectory) Add(info domain.PeerInfo) {
	d.mu.Lock()
	d.peers[info.EntityID] = info
	d.mu.Unlock()
}

// Lookup resolves an entity id.
func (d *StaticDirectory) Lookup(entityID string) (domain.PeerInfo, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	info, ok := d.peers[entityID]
	return info, ok
}

var (
	_ domain.Transport = (*Loopback)(nil)
	_ domain.Directory = (*StaticDirectory)(nil)
)
