package gateway_test

import (
	"context"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"

	"github.com/twmb/flowgate/pkg/gateway"
	"github.com/twmb/flowgate/pkg/storage"
	"github.com/twmb/flowgate/pkg/storage/memstorage"
)

func newTestGateway(t *testing.T) *gateway.Gateway {
	t.Helper()
	store := memstorage.New(2)
	return gateway.New(store, store)
}

func drainReply(t *testing.T, replies <-chan gateway.SubscribeReply, n int) []gateway.SubscribeReply {
	t.Helper()
	out := make([]gateway.SubscribeReply, 0, n)
	deadline := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case r, ok := <-replies:
			if !ok {
				t.Fatalf("replies closed early, got %d of %d", len(out), n)
			}
			out = append(out, r)
		case <-deadline:
			t.Fatalf("timed out waiting for %d replies, got %d", n, len(out))
		}
	}
	return out
}

// TestPublishSubscribeReceiveAck exercises the round trip named in the
// end-to-end scenarios: publish a record, subscribe, receive it, ack
// it, then confirm GetOffsets reflects the ack.
func TestPublishSubscribeReceiveAck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw := newTestGateway(t)

	off, err := gw.Publish(ctx, "orders", []byte("k1"), []byte("v1"))
	require.NoError(t, err)
	require.Equal(t, "orders", off.Topic)

	replies, errCh := gw.Subscribe(ctx, "orders", "workers", 0, gateway.AutoOffsetResetEarliest)
	assignments := drainReply(t, replies, 2)

	var sessionID gateway.SessionID
	var target uint32
	found := false
	for _, a := range assignments {
		sessionID = a.SessionID
		if a.Partition == off.Partition {
			target = a.Partition
			found = true
		}
	}
	require.True(t, found, "expected an assignment for the published partition, got:\n%s", spew.Sdump(assignments))

	records := gw.Receive(ctx, sessionID, target, 0)
	select {
	case rec, ok := <-records:
		require.True(t, ok)
		require.Equal(t, []byte("v1"), rec.Value)
		require.Equal(t, uint64(0), rec.Offset)
		require.False(t, rec.Replay)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for record")
	}

	require.NoError(t, gw.Ack(ctx, sessionID, target, 0))

	offsets, err := gw.GetOffsets(ctx, "orders", "workers", 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), offsets[target])

	select {
	case err := <-errCh:
		t.Fatalf("unexpected terminal error: %v", err)
	default:
	}
}

// TestSubscribeResumesFromCommittedOffset covers the resume-offset
// derivation (§4.2.5c): after an offset is committed, a fresh
// SUBSCRIBE seeks past it, so RECEIVE resumes strictly after the
// committed offset and the committed record itself is not delivered.
func TestSubscribeResumesFromCommittedOffset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw := newTestGateway(t)

	var partition uint32
	var firstOffset uint64
	for i := 0; i < 3; i++ {
		off, err := gw.Publish(ctx, "events", []byte("same-key"), []byte{byte(i)})
		require.NoError(t, err)
		if i == 0 {
			partition, firstOffset = off.Partition, off.Offset
		}
	}
	require.NoError(t, gw.Positions.Update(ctx, "events", storage.GroupID{Name: "readers"}, partition, firstOffset))

	replies, _ := gw.Subscribe(ctx, "events", "readers", 0, gateway.AutoOffsetResetEarliest)
	assignments := drainReply(t, replies, 2)

	var sessionID gateway.SessionID
	for _, a := range assignments {
		if a.Partition == partition {
			sessionID = a.SessionID
		}
	}

	records := gw.Receive(ctx, sessionID, partition, 0)
	select {
	case rec, ok := <-records:
		require.True(t, ok)
		require.Greater(t, rec.Offset, firstOffset)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for resumed record")
	}
}

// TestReceiveAckUnknownSessionNoop covers spec §4.3/§4.4: RECEIVE and
// ACK against an unregistered session complete without error instead
// of failing.
func TestReceiveAckUnknownSessionNoop(t *testing.T) {
	gw := newTestGateway(t)
	ctx := context.Background()

	records := gw.Receive(ctx, gateway.SessionID("nonexistent"), 0, 0)
	_, ok := <-records
	require.False(t, ok, "receive on unknown session should complete empty")

	require.NoError(t, gw.Ack(ctx, gateway.SessionID("nonexistent"), 0, 42))
}

// TestGetOffsetsEmptyIsEmptyMap covers §4.6: a group with no committed
// offsets returns an empty map, not an error or nil.
func TestGetOffsetsEmptyIsEmptyMap(t *testing.T) {
	gw := newTestGateway(t)
	offsets, err := gw.GetOffsets(context.Background(), "topic", "brand-new-group", 0)
	require.NoError(t, err)
	require.NotNil(t, offsets)
	require.Empty(t, offsets)
}
