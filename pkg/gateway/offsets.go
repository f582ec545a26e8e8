package gateway

import "context"

// GetOffsets implements spec §4.6: the committed offsets for the
// exact (topic, GroupId(name, version)), or an empty map if none are
// stored.
func (g *Gateway) GetOffsets(ctx context.Context, topic, group string, groupVersion uint32) (map[uint32]uint64, error) {
	groupID := resolveGroupID(g.Logger, group, groupVersion)

	offsets, err := g.Positions.FindAll(ctx, topic, groupID)
	if err != nil {
		return nil, storageErr(err)
	}
	if offsets == nil {
		offsets = map[uint32]uint64{}
	}
	return offsets, nil
}
