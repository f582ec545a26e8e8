package gateway

import "github.com/twmb/flowgate/pkg/storage"

// computeLatestAckedOffsets implements spec §4.2.5b: for each
// partition, the maximum committed offset across every version
// present in V.
func computeLatestAckedOffsets(v map[uint32]map[uint32]uint64) map[uint32]OptionalOffset {
	out := make(map[uint32]OptionalOffset)
	for _, byPartition := range v {
		for partition, offset := range byPartition {
			cur, ok := out[partition]
			if !ok || offset > cur.Value {
				out[partition] = OptionalOffset{Value: offset, Present: true}
			}
		}
	}
	return out
}

// resumeVersionOffsets implements the version-selection half of spec
// §4.2.5c: when the group is versioned, use exactly that version's
// committed offsets (missing entirely -> empty map); when unversioned,
// use the smallest version present in V (V empty -> empty map).
//
// This intentionally differs from computeLatestAckedOffsets, which
// always looks across every version: per spec §9 ("Open question"),
// the discrepancy between "max across versions" for the replay
// watermark and "smallest version" for the unversioned resume point is
// preserved as specified.
func resumeVersionOffsets(groupID storage.GroupID, v map[uint32]map[uint32]uint64) map[uint32]uint64 {
	if groupID.Version != 0 {
		return v[groupID.Version]
	}
	if len(v) == 0 {
		return nil
	}
	var smallest uint32
	first := true
	for version := range v {
		if first || version < smallest {
			smallest = version
			first = false
		}
	}
	return v[smallest]
}
