package memstorage

import (
	"context"
	"sync"
	"time"

	"github.com/twmb/flowgate/pkg/storage"
)

type topicLog struct {
	partitions []*partitionLog
}

func newTopicLog(partitionCount uint32) *topicLog {
	t := &topicLog{partitions: make([]*partitionLog, partitionCount)}
	for i := range t.partitions {
		t.partitions[i] = newPartitionLog()
	}
	return t
}

// partitionLog is an append-only, in-memory record log for one
// partition. Appends wake any goroutine blocked waiting for new
// records, mirroring the teacher's own sync.Cond-driven
// "sourcesReadyCond" fan-in in pkg/kgo/consumer.go.
type partitionLog struct {
	mu      sync.Mutex
	cond    *sync.Cond
	records []storage.Envelope
}

func newPartitionLog() *partitionLog {
	p := &partitionLog{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *partitionLog) append(env storage.Envelope) uint64 {
	p.mu.Lock()
	offset := uint64(len(p.records))
	p.records = append(p.records, env)
	p.mu.Unlock()
	p.cond.Broadcast()
	return offset
}

func (p *partitionLog) length() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return uint64(len(p.records))
}

// waitFor blocks until offset is available or ctx is done, returning
// the envelope at offset and whether it was reached before ctx ended.
// The store does not persist timestamps; partitionSource.run stamps
// each record at read time instead, since memstorage's
// only consumers are tests and local development, where wall-clock
// append-vs-read skew of a few microseconds is immaterial.
func (p *partitionLog) waitFor(ctx context.Context, offset uint64) (storage.Envelope, bool) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			p.cond.Broadcast()
			p.mu.Unlock()
		case <-done:
		}
	}()
	defer close(done)

	p.mu.Lock()
	defer p.mu.Unlock()
	for uint64(len(p.records)) <= offset {
		if ctx.Err() != nil {
			return storage.Envelope{}, false
		}
		p.cond.Wait()
	}
	return p.records[offset], true
}

// partitionSource implements storage.PartitionSource over a
// partitionLog, starting from autoOffsetReset's initial placement and
// honoring exactly one SeekTo override before the stream is drained
// (spec §4.5 is enforced one layer up, by gateway.Handle; this type
// only needs to support being seeked once before Records is read).
type partitionSource struct {
	partition uint32
	log       *partitionLog
	ctx       context.Context

	mu      sync.Mutex
	cursor  uint64
	seeked  bool
	out     chan storage.Record
	err     error
	runOnce sync.Once
}

func newPartitionSource(ctx context.Context, partition uint32, log *partitionLog, autoOffsetReset string) *partitionSource {
	cursor := log.length() // "latest" / unset: start after everything published so far
	if autoOffsetReset == "earliest" {
		cursor = 0
	}
	return &partitionSource{
		partition: partition,
		log:       log,
		ctx:       ctx,
		cursor:    cursor,
		out:       make(chan storage.Record),
	}
}

func (s *partitionSource) Partition() uint32 { return s.partition }

func (s *partitionSource) SeekTo(_ context.Context, offset uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seeked {
		return nil
	}
	s.seeked = true
	s.cursor = offset
	return nil
}

func (s *partitionSource) Records() <-chan storage.Record {
	s.runOnce.Do(func() { go s.run() })
	return s.out
}

func (s *partitionSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *partitionSource) run() {
	defer close(s.out)
	s.mu.Lock()
	cursor := s.cursor
	s.mu.Unlock()

	for {
		env, ok := s.log.waitFor(s.ctx, cursor)
		if !ok {
			s.mu.Lock()
			s.err = s.ctx.Err()
			s.mu.Unlock()
			return
		}
		rec := storage.Record{
			Envelope:  env,
			Partition: s.partition,
			Offset:    cursor,
			Timestamp: time.Now(),
		}
		select {
		case s.out <- rec:
		case <-s.ctx.Done():
			return
		}
		cursor++
	}
}
