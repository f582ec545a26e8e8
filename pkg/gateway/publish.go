package gateway

import (
	"context"

	"github.com/twmb/flowgate/pkg/storage"
)

// Publish implements spec §4.1: build an envelope, thread it through
// the pre-processor chain, and hand the final envelope to
// records-storage. A failing stage aborts the publish with that
// stage's identity attached.
func (g *Gateway) Publish(ctx context.Context, topic string, key, value []byte) (storage.OffsetInfo, error) {
	env := storage.Envelope{Topic: topic, Key: key, Value: value}

	env, err := runPreProcessors(ctx, g.PreProcessors, env)
	if err != nil {
		g.hooks().OnPublish(topic, err)
		return storage.OffsetInfo{}, err
	}

	info, err := g.Records.Publish(ctx, env)
	if err != nil {
		wrapped := storageErr(err)
		g.hooks().OnPublish(topic, wrapped)
		return storage.OffsetInfo{}, wrapped
	}
	g.hooks().OnPublish(topic, nil)
	return info, nil
}
