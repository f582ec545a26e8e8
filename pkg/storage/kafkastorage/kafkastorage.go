// Package kafkastorage implements storage.RecordsStorage against a
// real Kafka cluster through franz-go's kgo package. It commits its
// own consumer-group offsets on rebalance purely so Kafka can resume
// polling after a lost or revoked partition; that internal bookkeeping
// is unrelated to storage.PositionsStorage, which the gateway always
// tracks through a separately-configured adapter (memstorage or
// boltpositions) regardless of which RecordsStorage backend is active.
package kafkastorage

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/twmb/flowgate/pkg/storage"
)

// Store is a RecordsStorage backed by a shared producer client and
// per-subscription consumer clients.
type Store struct {
	seedBrokers []string
	extraOpts   []kgo.Opt

	producerOnce sync.Once
	producer     *kgo.Client
	producerErr  error
}

// New builds a Store that dials seedBrokers lazily on first use.
// extraOpts are appended after the store's own baseline client options,
// letting callers layer on SASL, TLS, or compression selection.
func New(seedBrokers []string, extraOpts ...kgo.Opt) *Store {
	return &Store{seedBrokers: seedBrokers, extraOpts: extraOpts}
}

func (s *Store) baseOpts() []kgo.Opt {
	return append([]kgo.Opt{
		kgo.SeedBrokers(s.seedBrokers...),
	}, s.extraOpts...)
}

func (s *Store) client() (*kgo.Client, error) {
	s.producerOnce.Do(func() {
		s.producer, s.producerErr = kgo.NewClient(s.baseOpts()...)
	})
	return s.producer, s.producerErr
}

// Close releases the shared producer client.
func (s *Store) Close() {
	if s.producer != nil {
		s.producer.Close()
	}
}

// Publish implements storage.RecordsStorage by producing a single
// record synchronously and reporting its assigned partition/offset.
func (s *Store) Publish(ctx context.Context, env storage.Envelope) (storage.OffsetInfo, error) {
	client, err := s.client()
	if err != nil {
		return storage.OffsetInfo{}, errors.Wrap(err, "acquire kafka producer client")
	}

	rec := &kgo.Record{
		Topic: env.Topic,
		Key:   env.Key,
		Value: env.Value,
	}
	result := client.ProduceSync(ctx, rec)
	if err := result.FirstErr(); err != nil {
		return storage.OffsetInfo{}, errors.Wrap(err, "produce record")
	}
	return storage.OffsetInfo{
		Topic:     env.Topic,
		Partition: uint32(rec.Partition),
		Offset:    uint64(rec.Offset),
	}, nil
}

// Subscribe implements storage.RecordsStorage by starting a dedicated
// consumer-group client for (topic, groupName) and translating its
// rebalance callbacks into storage.AssignmentEvent values.
func (s *Store) Subscribe(ctx context.Context, topic, groupName, autoOffsetReset string) (storage.Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)

	sub := &subscription{
		ctx:     subCtx,
		cancel:  cancel,
		topic:   topic,
		events:  make(chan storage.AssignmentEvent, 8),
		sources: make(map[int32]*partitionSource),
	}

	resetOpt := kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd())
	if autoOffsetReset == "earliest" {
		resetOpt = kgo.ConsumeResetOffset(kgo.NewOffset().AtStart())
	}

	client, err := kgo.NewClient(append(s.baseOpts(), []kgo.Opt{
		kgo.ConsumeTopics(topic),
		kgo.ConsumerGroup(groupName),
		kgo.Balancers(kgo.CooperativeStickyBalancer()),
		resetOpt,
		kgo.OnPartitionsAssigned(sub.onAssigned),
		kgo.OnPartitionsRevoked(sub.onRevokedOrLost),
		kgo.OnPartitionsLost(sub.onRevokedOrLost),
		kgo.DisableAutoCommit(),
	}...)...)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "create kafka consumer client")
	}
	sub.client = client

	go sub.pollLoop()

	return sub, nil
}

type subscription struct {
	ctx    context.Context
	cancel context.CancelFunc
	topic  string
	client *kgo.Client
	events chan storage.AssignmentEvent

	mu      sync.Mutex
	sources map[int32]*partitionSource
	err     error
}

func (sub *subscription) Assignments() <-chan storage.AssignmentEvent { return sub.events }

func (sub *subscription) Err() error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.err
}

func (sub *subscription) Close() {
	sub.cancel()
	sub.client.Close()
}

func (sub *subscription) onAssigned(_ context.Context, _ *kgo.Client, assigned map[string][]int32) {
	partitions, ok := assigned[sub.topic]
	if !ok {
		return
	}

	sub.mu.Lock()
	newSources := make([]storage.PartitionSource, 0, len(partitions))
	for _, p := range partitions {
		src := newPartitionSource(sub.ctx, sub.client, sub.topic, p)
		sub.sources[p] = src
		newSources = append(newSources, src)
	}
	sub.mu.Unlock()

	select {
	case sub.events <- storage.AssignmentEvent{Partitions: newSources}:
	case <-sub.ctx.Done():
	}
}

func (sub *subscription) onRevokedOrLost(ctx context.Context, client *kgo.Client, revoked map[string][]int32) {
	partitions, ok := revoked[sub.topic]
	if !ok {
		return
	}

	sub.mu.Lock()
	for _, p := range partitions {
		if src, ok := sub.sources[p]; ok {
			src.revoke()
			delete(sub.sources, p)
		}
	}
	sub.mu.Unlock()

	if err := client.CommitUncommittedOffsets(ctx); err != nil {
		sub.mu.Lock()
		sub.err = errors.Wrap(err, "commit offsets on revoke")
		sub.mu.Unlock()
	}
}

// pollLoop is the single reader driving every partitionSource's
// output channel, mirroring the teacher's own single-poller-fans-out
// shape in pkg/kgo/consumer.go (consumerSession demuxing PollFetches
// across per-partition workers).
func (sub *subscription) pollLoop() {
	defer close(sub.events)
	for {
		fetches := sub.client.PollFetches(sub.ctx)
		if sub.ctx.Err() != nil {
			return
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			sub.mu.Lock()
			sub.err = fmt.Errorf("fetch error: %w", errs[0].Err)
			sub.mu.Unlock()
			return
		}

		fetches.EachPartition(func(p kgo.FetchTopicPartition) {
			sub.mu.Lock()
			src, ok := sub.sources[p.Partition]
			sub.mu.Unlock()
			if !ok {
				return
			}
			for _, rec := range p.Records {
				src.deliver(rec)
			}
		})
	}
}

// partitionSource implements storage.PartitionSource over one
// partition of a consumer-group client shared with sibling partitions;
// a single pollLoop demuxes into each partitionSource's own channel.
type partitionSource struct {
	partition uint32
	client    *kgo.Client
	topic     string
	kafkaPart int32

	ctx    context.Context
	cancel context.CancelFunc
	out    chan storage.Record

	mu       sync.Mutex
	err      error
	seeked   bool
	closed   bool
	inflight sync.WaitGroup
}

func newPartitionSource(parent context.Context, client *kgo.Client, topic string, partition int32) *partitionSource {
	ctx, cancel := context.WithCancel(parent)
	return &partitionSource{
		partition: uint32(partition),
		client:    client,
		topic:     topic,
		kafkaPart: partition,
		ctx:       ctx,
		cancel:    cancel,
		out:       make(chan storage.Record),
	}
}

func (p *partitionSource) Partition() uint32 { return p.partition }

// SeekTo repositions the consumer-group client's fetch offset for this
// partition; effective only before the first record is polled, same
// one-shot contract memstorage's partitionSource honors.
func (p *partitionSource) SeekTo(_ context.Context, offset uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seeked {
		return nil
	}
	p.seeked = true
	p.client.SetOffsets(map[string]map[int32]kgo.EpochOffset{
		p.topic: {
			p.kafkaPart: {Epoch: -1, Offset: int64(offset)},
		},
	})
	return nil
}

func (p *partitionSource) Records() <-chan storage.Record { return p.out }

func (p *partitionSource) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// deliver is called from the subscription's single pollLoop goroutine,
// but may still be mid-send when revoke runs on a different goroutine
// (franz-go does not guarantee rebalance callbacks share the poll
// goroutine), so it registers itself under mu before touching p.out.
func (p *partitionSource) deliver(rec *kgo.Record) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.inflight.Add(1)
	p.mu.Unlock()
	defer p.inflight.Done()

	record := storage.Record{
		Envelope: storage.Envelope{
			Topic: rec.Topic,
			Key:   rec.Key,
			Value: rec.Value,
		},
		Partition: p.partition,
		Offset:    uint64(rec.Offset),
		Timestamp: rec.Timestamp,
	}
	select {
	case p.out <- record:
		p.client.MarkCommitRecords(rec)
	case <-p.ctx.Done():
	}
}

// revoke is called when the broker reassigns this partition away from
// us; it stops the source's forwarding without touching the shared
// client, which sibling partitions still depend on. closed (checked
// under mu by deliver) and draining inflight sends before closing out
// keep this from racing a concurrent deliver.
func (p *partitionSource) revoke() {
	p.mu.Lock()
	if p.err == nil {
		p.err = errors.New("partition revoked")
	}
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.inflight.Wait()
	close(p.out)
}
