// Package storage defines the capability boundary the gateway core
// consumes: an append-only, partitioned record log ("records storage")
// and a positions store mapping (topic, group, partition) to a
// committed offset ("positions storage"). Concrete adapters live in
// sibling packages (memstorage, kafkastorage, boltpositions).
package storage

import (
	"context"
	"time"
)

// Envelope is the immutable unit handed to RecordsStorage.Publish.
type Envelope struct {
	Topic string
	Key   []byte
	Value []byte
}

// OffsetInfo is the result of a successful publish.
type OffsetInfo struct {
	Topic     string
	Partition uint32
	Offset    uint64
}

// Record is what a PartitionSource yields: an envelope plus its
// position and the time it was appended.
type Record struct {
	Envelope  Envelope
	Partition uint32
	Offset    uint64
	Timestamp time.Time
}

// RecordsStorage is the append-only partitioned log the gateway
// fronts. Implementations must be safe for concurrent use.
type RecordsStorage interface {
	// Publish appends env and returns where it landed.
	Publish(ctx context.Context, env Envelope) (OffsetInfo, error)

	// Subscribe opens a long-lived consumer-group subscription for
	// topic/groupName. autoOffsetReset is one of "earliest", "latest",
	// or "" (absent/unset).
	Subscribe(ctx context.Context, topic, groupName, autoOffsetReset string) (Subscription, error)
}

// Subscription is a long-lived handle returned by RecordsStorage.Subscribe.
// Assignments is a channel of assignment-event snapshots; it is closed
// (possibly preceded by a non-nil error observable via Err) when the
// subscription ends, whatever the cause.
type Subscription interface {
	Assignments() <-chan AssignmentEvent
	Err() error
	Close()
}

// AssignmentEvent is a snapshot of the partitions currently assigned
// to a consumer. It supersedes any prior snapshot from the same
// Subscription (switch-latest, spec §4.2.5 / §9).
type AssignmentEvent struct {
	Partitions []PartitionSource
}

// PartitionSource is a storage-provided lazy sequence of records for
// one partition of one subscription, with a one-shot seek.
type PartitionSource interface {
	Partition() uint32

	// SeekTo positions the source before offset. It must be called at
	// most once, before Records is ever drained (spec §4.5).
	SeekTo(ctx context.Context, offset uint64) error

	// Records is the lazy record stream. The channel is closed on any
	// terminal condition (error, cancellation, upstream close); Err
	// reports the terminal error, if any.
	Records() <-chan Record
	Err() error
}

// PositionsStorage tracks committed offsets per (topic, group,
// partition). Implementations must be safe for concurrent use.
type PositionsStorage interface {
	// Update upserts the committed offset for (topic, groupID, partition).
	Update(ctx context.Context, topic string, groupID GroupID, partition uint32, offset uint64) error

	// FindAll returns the committed offsets for the exact (topic, groupID).
	FindAll(ctx context.Context, topic string, groupID GroupID) (map[uint32]uint64, error)

	// FindAllVersionsByGroup returns, for every version ever committed
	// under groupName within topic, that version's partition->offset map.
	FindAllVersionsByGroup(ctx context.Context, topic, groupName string) (map[uint32]map[uint32]uint64, error)
}

// GroupID identifies a consumer group generation. Version 0 means
// "unversioned" (spec §3).
type GroupID struct {
	Name    string
	Version uint32
}
