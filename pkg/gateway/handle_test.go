package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/twmb/flowgate/pkg/storage"
)

// fakeSource is a storage.PartitionSource stub that records how many
// times SeekTo was called and streams a fixed set of records.
type fakeSource struct {
	partition uint32
	seeks     int32
	seekMu    sync.Mutex

	recs []storage.Record
	out  chan storage.Record
	once sync.Once
}

func newFakeSource(partition uint32, recs []storage.Record) *fakeSource {
	return &fakeSource{partition: partition, recs: recs, out: make(chan storage.Record)}
}

func (f *fakeSource) Partition() uint32 { return f.partition }

func (f *fakeSource) SeekTo(context.Context, uint64) error {
	f.seekMu.Lock()
	f.seeks++
	f.seekMu.Unlock()
	return nil
}

func (f *fakeSource) seekCount() int32 {
	f.seekMu.Lock()
	defer f.seekMu.Unlock()
	return f.seeks
}

func (f *fakeSource) Records() <-chan storage.Record {
	f.once.Do(func() {
		go func() {
			defer close(f.out)
			for _, r := range f.recs {
				f.out <- r
			}
		}()
	})
	return f.out
}

func (f *fakeSource) Err() error { return nil }

// TestHandleSeeksAtMostOnce covers spec §4.5/§8 invariant 4: Records
// may be called repeatedly (concurrently, even), but the underlying
// source is seeked exactly once.
func TestHandleSeeksAtMostOnce(t *testing.T) {
	src := newFakeSource(0, []storage.Record{{Offset: 5}})
	h := newHandle(context.Background(), 0, nil, src, OptionalOffset{Value: 5, Present: true}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Records()
		}()
	}
	wg.Wait()

	rec, ok := <-h.Records()
	require.True(t, ok)
	require.Equal(t, uint64(5), rec.Offset)

	require.Equal(t, int32(1), src.seekCount())
}

func TestHandleLastSeenOffsetAbsent(t *testing.T) {
	h := newHandle(context.Background(), 3, map[uint32]OptionalOffset{}, newFakeSource(3, nil), OptionalOffset{}, nil)
	require.Equal(t, int64(-1), h.LastSeenOffset())
}

func TestHandleOnDoneCalledAfterDrain(t *testing.T) {
	done := make(chan struct{})
	src := newFakeSource(0, []storage.Record{{Offset: 0}})
	h := newHandle(context.Background(), 0, nil, src, OptionalOffset{}, func() { close(done) })

	for range h.Records() {
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("onDone was not called")
	}
}
