// Package boltpositions implements storage.PositionsStorage on top of
// an embedded go.etcd.io/bbolt database: one bucket per topic, keys
// encoding (groupName, version, partition), values the committed
// offset as a big-endian uint64.
package boltpositions

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"go.etcd.io/bbolt"

	"github.com/twmb/flowgate/pkg/storage"
)

// Store is a PositionsStorage backed by a single bbolt file.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if absent) the bbolt database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt positions db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func key(groupName string, version, partition uint32) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint32(buf[0:4], version)
	binary.BigEndian.PutUint32(buf[4:8], partition)
	return append([]byte(groupName+"\x00"), buf[:]...)
}

func encodeOffset(offset uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], offset)
	return buf[:]
}

func decodeOffset(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// Update implements storage.PositionsStorage.
func (s *Store) Update(_ context.Context, topic string, groupID storage.GroupID, partition uint32, offset uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(topic))
		if err != nil {
			return err
		}
		return bucket.Put(key(groupID.Name, groupID.Version, partition), encodeOffset(offset))
	})
}

// FindAll implements storage.PositionsStorage.
func (s *Store) FindAll(_ context.Context, topic string, groupID storage.GroupID) (map[uint32]uint64, error) {
	out := make(map[uint32]uint64)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(topic))
		if bucket == nil {
			return nil
		}
		prefix := []byte(groupID.Name + "\x00")
		var versionBuf [4]byte
		binary.BigEndian.PutUint32(versionBuf[:], groupID.Version)
		prefix = append(prefix, versionBuf[:]...)

		c := bucket.Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			partition := binary.BigEndian.Uint32(k[len(k)-4:])
			out[partition] = decodeOffset(v)
		}
		return nil
	})
	return out, err
}

// FindAllVersionsByGroup implements storage.PositionsStorage.
func (s *Store) FindAllVersionsByGroup(_ context.Context, topic, groupName string) (map[uint32]map[uint32]uint64, error) {
	out := make(map[uint32]map[uint32]uint64)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(topic))
		if bucket == nil {
			return nil
		}
		prefix := []byte(groupName + "\x00")

		c := bucket.Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			rest := k[len(prefix):]
			if len(rest) != 8 {
				continue
			}
			version := binary.BigEndian.Uint32(rest[0:4])
			partition := binary.BigEndian.Uint32(rest[4:8])
			byPartition, ok := out[version]
			if !ok {
				byPartition = make(map[uint32]uint64)
				out[version] = byPartition
			}
			byPartition[partition] = decodeOffset(v)
		}
		return nil
	})
	return out, err
}

func hasPrefix(k, prefix []byte) bool {
	return strings.HasPrefix(string(k), string(prefix))
}
