package consensus

import (
	"sync"

	"github.com/fedimint-go/fedimintd/core"
)

// LastConsensusByPeer is the single-writer (engine), many-reader
// (API) map from peer to the last epoch that peer's proposed items were
// seen applied in. A copy-on-write snapshot map would serve hot reads
// better at scale; a mutex-guarded map is the straightforward version and
// is what this package uses, since the federation sizes in play here are
// small (tens of peers, not thousands).
type LastConsensusByPeer struct {
	mu sync.RWMutex
	m  map[core.PeerID]core.EpochIndex
}

// NewLastConsensusByPeer returns an empty map.
func NewLastConsensusByPeer() *LastConsensusByPeer {
	return &LastConsensusByPeer{m: make(map[core.PeerID]core.EpochIndex)}
}

// Advance records that peer's items were last seen applied at epoch, if
// that is higher than what is already recorded (the map is
// non-decreasing per peer).
func (l *LastConsensusByPeer) Advance(peer core.PeerID, epoch core.EpochIndex) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if epoch > l.m[peer] {
		l.m[peer] = epoch
	}
}

// Get returns the last recorded epoch for peer, or (0, false) if none.
func (l *LastConsensusByPeer) Get(peer core.PeerID) (core.EpochIndex, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.m[peer]
	return e, ok
}

// Snapshot returns a copy of the whole map, safe for the caller to range
// over without holding any lock.
func (l *LastConsensusByPeer) Snapshot() map[core.PeerID]core.EpochIndex {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[core.PeerID]core.EpochIndex, len(l.m))
	for k, v := range l.m {
		out[k] = v
	}
	return out
}

// ConnectionStatus is the network layer's view of reachability, read by
// the API. The broadcast/network connector is the sole writer.
type ConnectionStatus struct {
	mu sync.RWMutex
	m  map[core.PeerID]bool
}

// NewConnectionStatus returns an empty status map.
func NewConnectionStatus() *ConnectionStatus {
	return &ConnectionStatus{m: make(map[core.PeerID]bool)}
}

// Set records whether peer is currently connected.
func (c *ConnectionStatus) Set(peer core.PeerID, connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[peer] = connected
}

// Connected reports whether peer is currently connected.
func (c *ConnectionStatus) Connected(peer core.PeerID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.m[peer]
}

// Snapshot returns a copy of the whole map.
func (c *ConnectionStatus) Snapshot() map[core.PeerID]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[core.PeerID]bool, len(c.m))
	for k, v := range c.m {
		out[k] = v
	}
	return out
}
