package gateway

import (
	"context"
	"sync"

	"github.com/twmb/flowgate/pkg/storage"
)

// SubscribeReply is one assignment reply emitted during a SUBSCRIBE
// call (spec §6): a partition now assigned to the session.
type SubscribeReply struct {
	Partition uint32
	SessionID SessionID
}

// Subscribe implements the SUBSCRIBE state machine of spec §4.2. It
// returns immediately with a channel of assignment replies and a
// buffered (capacity 1) terminal-error channel; the replies channel is
// closed when the underlying storage subscription ends for any reason
// (client cancel, storage error, or the caller cancelling ctx), at
// which point the session's registry entries have already been
// removed (spec §4.2.6, §5).
func (g *Gateway) Subscribe(ctx context.Context, topic, group string, groupVersion uint32, reset AutoOffsetReset) (<-chan SubscribeReply, <-chan error) {
	replies := make(chan SubscribeReply)
	errCh := make(chan error, 1)

	groupID := resolveGroupID(g.Logger, group, groupVersion)

	sub, err := g.Records.Subscribe(ctx, topic, groupID.Name, reset.translate())
	if err != nil {
		errCh <- storageErr(err)
		close(replies)
		return replies, errCh
	}

	id := newSessionID()
	storedSub := &StoredSubscription{Subscription: sub, Topic: topic, GroupID: groupID}
	ps := g.registry.Install(id, storedSub)
	g.hooks().OnSessionOpened(id, topic, groupID)

	sessionCtx, cancel := context.WithCancel(ctx)
	go g.runSubscription(sessionCtx, cancel, id, storedSub, ps, replies, errCh)

	return replies, errCh
}

func (g *Gateway) runSubscription(
	ctx context.Context,
	cancel context.CancelFunc,
	id SessionID,
	storedSub *StoredSubscription,
	ps *partitionSources,
	replies chan<- SubscribeReply,
	errCh chan<- error,
) {
	var terminal error
	var prevCancel context.CancelFunc
	fanoutErr := make(chan error, 1)
	var fanout sync.WaitGroup

	defer func() {
		if prevCancel != nil {
			prevCancel()
		}
		cancel()
		// Every processAssignmentEvent goroutine observes ctx.Done() (its
		// eventCtx is a child of ctx) and returns; join them before
		// closing replies so no in-flight fan-out send can race the close.
		fanout.Wait()
		storedSub.Subscription.Close()
		g.registry.Remove(id, storedSub, ps)
		g.hooks().OnSessionClosed(id, terminal)
		// Send before close: the consumer's blocking read of errCh must
		// see the terminal value even if it observes replies closing first.
		errCh <- terminal
		close(replies)
	}()

loop:
	for {
		select {
		case ev, ok := <-storedSub.Subscription.Assignments():
			if !ok {
				terminal = storedSub.Subscription.Err()
				break loop
			}
			// Switch-latest (spec §4.2.5, §9): supersede whatever
			// fan-out is still in flight for the previous event. Its
			// context is cancelled; any handles it already installed
			// notice via their own ctx and self-remove on their next
			// terminal signal (spec §5, "Resource discipline").
			if prevCancel != nil {
				prevCancel()
			}
			eventCtx, eventCancel := context.WithCancel(ctx)
			prevCancel = eventCancel
			fanout.Add(1)
			go func() {
				defer fanout.Done()
				g.processAssignmentEvent(eventCtx, storedSub, ps, id, ev, replies, fanoutErr)
			}()

		case err := <-fanoutErr:
			terminal = err
			break loop

		case <-ctx.Done():
			terminal = ctx.Err()
			break loop
		}
	}
}

// processAssignmentEvent implements spec §4.2.5: for one assignment
// event, fetch committed offsets across all versions, derive the
// replay watermark and the resume offset, and install a handle per
// assigned partition before that partition's reply becomes visible.
func (g *Gateway) processAssignmentEvent(
	ctx context.Context,
	storedSub *StoredSubscription,
	ps *partitionSources,
	id SessionID,
	ev storage.AssignmentEvent,
	replies chan<- SubscribeReply,
	fanoutErr chan<- error,
) {
	versions, err := g.Positions.FindAllVersionsByGroup(ctx, storedSub.Topic, storedSub.GroupID.Name)
	if err != nil {
		select {
		case fanoutErr <- storageErr(err):
		default:
		}
		return
	}
	if ctx.Err() != nil {
		return // superseded before we had committed offsets to work with
	}

	latestAcked := computeLatestAckedOffsets(versions)
	resumeBase := resumeVersionOffsets(storedSub.GroupID, versions)

	for _, src := range ev.Partitions {
		if ctx.Err() != nil {
			return // superseded mid fan-out: drop the rest (spec §4.2.5, §9)
		}

		partition := src.Partition()
		resume := OptionalOffset{}
		if base, ok := resumeBase[partition]; ok {
			resume = OptionalOffset{Value: base + 1, Present: true}
		}

		var h *Handle
		h = newHandle(ctx, partition, latestAcked, src, resume, func() {
			ps.removeIdentity(partition, h)
		})
		if prev := ps.set(partition, h); prev != nil {
			// prev belonged to a superseded event for this same
			// partition; if RECEIVE never called Records on it, its
			// forwarding goroutine never started and its onDone would
			// otherwise never fire.
			prev.supersede()
		}

		select {
		case replies <- SubscribeReply{Partition: partition, SessionID: id}:
		case <-ctx.Done():
			return
		}
	}
}
