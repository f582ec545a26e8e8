package gateway

import (
	"context"
	"sync"

	"github.com/twmb/flowgate/pkg/storage"
)

// OptionalOffset is a committed offset that may or may not be present
// (spec §3, "partition → optional u64").
type OptionalOffset struct {
	Value   uint64
	Present bool
}

// Handle is the per-(session, partition) PartitionSource handle of
// spec §3/§4.5. It owns the one-shot, memoized seek: the first call to
// Records starts a single goroutine that seeks (if a resume offset was
// computed) and then forwards the underlying storage.PartitionSource
// verbatim; every subsequent call to Records returns the very same
// channel, so repeated or concurrent drains never re-seek (spec §4.5,
// §8 invariant 4) and a RECEIVE that resumes after a prior RECEIVE was
// cancelled just continues consuming the same forwarding goroutine
// (spec §5, "Cancellation").
type Handle struct {
	partition uint32

	// latestAckedOffsets is the whole assignment-event's replay
	// watermark (every partition's max-across-versions committed
	// offset), carried on every handle of that event so RECEIVE can
	// stamp the replay flag (spec §4.2.5b, §4.3).
	latestAckedOffsets map[uint32]OptionalOffset

	src    storage.PartitionSource
	resume OptionalOffset

	ctx context.Context

	once sync.Once
	out  chan storage.Record

	mu  sync.Mutex
	err error

	onDone func()
}

func newHandle(ctx context.Context, partition uint32, latestAcked map[uint32]OptionalOffset, src storage.PartitionSource, resume OptionalOffset, onDone func()) *Handle {
	return &Handle{
		partition:          partition,
		latestAckedOffsets: latestAcked,
		src:                src,
		resume:             resume,
		ctx:                ctx,
		out:                make(chan storage.Record),
		onDone:             onDone,
	}
}

// Partition returns the partition this handle serves.
func (h *Handle) Partition() uint32 { return h.partition }

// LastSeenOffset is the replay watermark for this handle's own
// partition, or -1 if absent (spec §4.3).
func (h *Handle) LastSeenOffset() int64 {
	if o, ok := h.latestAckedOffsets[h.partition]; ok && o.Present {
		return int64(o.Value)
	}
	return -1
}

// Records returns the handle's record stream, triggering the one-shot
// seek on first call.
func (h *Handle) Records() <-chan storage.Record {
	h.once.Do(func() { go h.run() })
	return h.out
}

// supersede retires a handle that lost a race with a later assignment
// event for the same partition. If Records was never called, run never
// started; supersede closes out and fires onDone in its place so the
// handle doesn't linger unremoved. A no-op once Records has been called.
func (h *Handle) supersede() {
	h.once.Do(func() {
		close(h.out)
		if h.onDone != nil {
			h.onDone()
		}
	})
}

// Err returns the terminal error of the forwarding goroutine, valid
// once Records' channel has closed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *Handle) run() {
	defer close(h.out)
	defer func() {
		if h.onDone != nil {
			h.onDone()
		}
	}()

	if h.resume.Present {
		if err := h.src.SeekTo(h.ctx, h.resume.Value); err != nil {
			h.mu.Lock()
			h.err = err
			h.mu.Unlock()
			return
		}
	}

	for rec := range h.src.Records() {
		select {
		case h.out <- rec:
		case <-h.ctx.Done():
			h.mu.Lock()
			h.err = h.ctx.Err()
			h.mu.Unlock()
			return
		}
	}

	h.mu.Lock()
	h.err = h.src.Err()
	h.mu.Unlock()
}
