package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRegistryRemoveIsIdentityGuarded covers spec §5: a stale teardown
// for a superseded session/handle must never evict its replacement.
func TestRegistryRemoveIsIdentityGuarded(t *testing.T) {
	r := NewRegistry()

	id := SessionID("s1")
	subA := &StoredSubscription{Topic: "t"}
	psA := r.Install(id, subA)

	// A second session re-minted under the same id (the registry makes
	// no assumption this can't happen, spec §5) replaces both entries.
	subB := &StoredSubscription{Topic: "t"}
	psB := r.Install(id, subB)

	// The stale teardown for subA/psA must not remove subB/psB.
	r.Remove(id, subA, psA)

	got, ok := r.Subscription(id)
	require.True(t, ok)
	require.Same(t, subB, got)

	gotPS, ok := r.Sources(id)
	require.True(t, ok)
	require.Same(t, psB, gotPS)

	r.Remove(id, subB, psB)
	_, ok = r.Subscription(id)
	require.False(t, ok)
	_, ok = r.Sources(id)
	require.False(t, ok)
}

func TestPartitionSourcesRemoveIdentity(t *testing.T) {
	ps := newPartitionSources()
	hA := &Handle{}
	hB := &Handle{}

	ps.set(0, hA)
	ps.set(0, hB) // supersede

	ps.removeIdentity(0, hA) // stale: must be a no-op
	got, ok := ps.get(0)
	require.True(t, ok)
	require.Same(t, hB, got)

	ps.removeIdentity(0, hB)
	_, ok = ps.get(0)
	require.False(t, ok)
}
