// Package memstorage implements storage.RecordsStorage and
// storage.PositionsStorage entirely in process memory. It backs
// cmd/flowgated's default (no external broker) mode and the gateway's
// own round-trip tests.
//
// Partitioning hashes the envelope key with blake2b, the same crypto
// package family the teacher (franz-go) carries for SASL, so a given
// key always lands on the same partition within a topic.
package memstorage

import (
	"context"
	"encoding/binary"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/twmb/flowgate/pkg/storage"
)

// Store is a RecordsStorage and PositionsStorage backed by in-memory,
// per-topic partition logs.
type Store struct {
	partitionCount uint32

	mu     sync.Mutex
	topics map[string]*topicLog

	posMu sync.Mutex
	// positions[topic][groupName][version][partition] = offset
	positions map[string]map[string]map[uint32]map[uint32]uint64
}

// New builds a Store where every topic has partitionCount partitions,
// created lazily on first publish or subscribe.
func New(partitionCount uint32) *Store {
	if partitionCount == 0 {
		partitionCount = 1
	}
	return &Store{
		partitionCount: partitionCount,
		topics:         make(map[string]*topicLog),
		positions:      make(map[string]map[string]map[uint32]map[uint32]uint64),
	}
}

func (s *Store) topic(name string) *topicLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.topics[name]
	if !ok {
		t = newTopicLog(s.partitionCount)
		s.topics[name] = t
	}
	return t
}

// Publish implements storage.RecordsStorage.
func (s *Store) Publish(_ context.Context, env storage.Envelope) (storage.OffsetInfo, error) {
	t := s.topic(env.Topic)
	partition := partitionFor(env.Key, s.partitionCount)
	offset := t.partitions[partition].append(env)
	return storage.OffsetInfo{Topic: env.Topic, Partition: partition, Offset: offset}, nil
}

// partitionFor hashes key with blake2b-256 and reduces it mod
// partitionCount; an empty key always goes to partition 0.
func partitionFor(key []byte, partitionCount uint32) uint32 {
	if len(key) == 0 {
		return 0
	}
	sum := blake2b.Sum256(key)
	return binary.BigEndian.Uint32(sum[:4]) % partitionCount
}

// Subscribe implements storage.RecordsStorage. Every topic has a
// fixed partition count and no real rebalancing, so a subscription
// emits exactly one assignment event covering every partition.
func (s *Store) Subscribe(ctx context.Context, topic, groupName, autoOffsetReset string) (storage.Subscription, error) {
	t := s.topic(topic)

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		ctx:    subCtx,
		cancel: cancel,
		events: make(chan storage.AssignmentEvent, 1),
	}

	sources := make([]storage.PartitionSource, len(t.partitions))
	for i, p := range t.partitions {
		sources[i] = newPartitionSource(subCtx, uint32(i), p, autoOffsetReset)
	}
	sub.events <- storage.AssignmentEvent{Partitions: sources}
	go func() {
		<-subCtx.Done()
		close(sub.events)
	}()

	return sub, nil
}

type subscription struct {
	ctx    context.Context
	cancel context.CancelFunc
	events chan storage.AssignmentEvent
}

func (s *subscription) Assignments() <-chan storage.AssignmentEvent { return s.events }
func (s *subscription) Err() error                                  { return s.ctx.Err() }
func (s *subscription) Close()                                      { s.cancel() }

// Update implements storage.PositionsStorage.
func (s *Store) Update(_ context.Context, topic string, groupID storage.GroupID, partition uint32, offset uint64) error {
	s.posMu.Lock()
	defer s.posMu.Unlock()
	byGroup, ok := s.positions[topic]
	if !ok {
		byGroup = make(map[string]map[uint32]map[uint32]uint64)
		s.positions[topic] = byGroup
	}
	byVersion, ok := byGroup[groupID.Name]
	if !ok {
		byVersion = make(map[uint32]map[uint32]uint64)
		byGroup[groupID.Name] = byVersion
	}
	byPartition, ok := byVersion[groupID.Version]
	if !ok {
		byPartition = make(map[uint32]uint64)
		byVersion[groupID.Version] = byPartition
	}
	byPartition[partition] = offset
	return nil
}

// FindAll implements storage.PositionsStorage.
func (s *Store) FindAll(_ context.Context, topic string, groupID storage.GroupID) (map[uint32]uint64, error) {
	s.posMu.Lock()
	defer s.posMu.Unlock()
	out := make(map[uint32]uint64)
	byPartition := s.positions[topic][groupID.Name][groupID.Version]
	for p, o := range byPartition {
		out[p] = o
	}
	return out, nil
}

// FindAllVersionsByGroup implements storage.PositionsStorage.
func (s *Store) FindAllVersionsByGroup(_ context.Context, topic, groupName string) (map[uint32]map[uint32]uint64, error) {
	s.posMu.Lock()
	defer s.posMu.Unlock()
	out := make(map[uint32]map[uint32]uint64)
	for version, byPartition := range s.positions[topic][groupName] {
		cp := make(map[uint32]uint64, len(byPartition))
		for p, o := range byPartition {
			cp[p] = o
		}
		out[version] = cp
	}
	return out, nil
}
