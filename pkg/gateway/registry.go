package gateway

import "sync"

// partitionSources is the per-session map(partition -> *Handle)
// referenced by the registry (spec §3, §5). It has its own mutex
// because it is inserted into by assignment processing and removed
// from by each partition's terminal signal concurrently, independent
// of any other session.
type partitionSources struct {
	mu     sync.Mutex
	byPart map[uint32]*Handle
}

func newPartitionSources() *partitionSources {
	return &partitionSources{byPart: make(map[uint32]*Handle)}
}

// set installs h for partition and returns whatever handle previously
// occupied that slot, or nil if none did.
func (p *partitionSources) set(partition uint32, h *Handle) *Handle {
	p.mu.Lock()
	prev := p.byPart[partition]
	p.byPart[partition] = h
	p.mu.Unlock()
	return prev
}

func (p *partitionSources) get(partition uint32) (*Handle, bool) {
	p.mu.Lock()
	h, ok := p.byPart[partition]
	p.mu.Unlock()
	return h, ok
}

// removeIdentity deletes partition's handle only if it is still h
// (compare-and-remove on identity, spec §5, §9), so a stale terminal
// signal from a superseded handle cannot evict its replacement.
func (p *partitionSources) removeIdentity(partition uint32, h *Handle) {
	p.mu.Lock()
	if cur, ok := p.byPart[partition]; ok && cur == h {
		delete(p.byPart, partition)
	}
	p.mu.Unlock()
}

// Registry is the process-wide mapping session -> subscription and
// session -> (partition -> handle) described in spec §3/§5. It is
// shared by every concurrent SUBSCRIBE, RECEIVE, and ACK call, so
// every operation here must be safe under concurrent use without a
// global lock (spec §5, "Shared state").
type Registry struct {
	subs    sync.Map // SessionID -> *StoredSubscription
	sources sync.Map // SessionID -> *partitionSources
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Install registers a brand new session (spec §4.2.4): both maps gain
// an entry for id. The two entries are stored one after the other, not
// atomically; id is freshly minted and not yet returned to any client,
// so no RECEIVE or ACK can look it up in between.
func (r *Registry) Install(id SessionID, sub *StoredSubscription) *partitionSources {
	r.subs.Store(id, sub)
	ps := newPartitionSources()
	r.sources.Store(id, ps)
	return ps
}

// Subscription looks up the stored subscription for id (used by ACK,
// spec §4.4).
func (r *Registry) Subscription(id SessionID) (*StoredSubscription, bool) {
	v, ok := r.subs.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*StoredSubscription), true
}

// Sources looks up the per-partition handle map for id (used by
// RECEIVE, spec §4.3).
func (r *Registry) Sources(id SessionID) (*partitionSources, bool) {
	v, ok := r.sources.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*partitionSources), true
}

// Handle looks up the handle for (id, partition) directly.
func (r *Registry) Handle(id SessionID, partition uint32) (*Handle, bool) {
	ps, ok := r.Sources(id)
	if !ok {
		return nil, false
	}
	return ps.get(partition)
}

// Remove tears down a session's entries in both maps together (spec
// §3, §4.2.6, §5), guarded by identity so a concurrently re-minted
// session of the same id (astronomically unlikely, but the contract
// is explicit per spec §5) is never dropped by a stale teardown.
func (r *Registry) Remove(id SessionID, sub *StoredSubscription, ps *partitionSources) {
	r.subs.CompareAndDelete(id, sub)
	r.sources.CompareAndDelete(id, ps)
}
