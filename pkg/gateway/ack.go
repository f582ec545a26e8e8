package gateway

import (
	"context"
	"fmt"

	"github.com/twmb/flowgate/internal/logging"
)

// Ack implements spec §4.4. ACK for an unknown session is not an
// error (same race as RECEIVE, spec §4.3/§4.4): it logs a warning and
// completes successfully without touching positions-storage. The
// gateway neither validates monotonicity nor deduplicates.
func (g *Gateway) Ack(ctx context.Context, sessionID SessionID, partition uint32, offset uint64) error {
	sub, ok := g.registry.Subscription(sessionID)
	if !ok {
		g.Logger.Log(logging.LevelWarn, "ack on unknown session, completing empty",
			"request", escapeNewlines(fmt.Sprintf("{sessionId:%s partition:%d offset:%d}", sessionID, partition, offset)))
		return nil
	}

	err := g.Positions.Update(ctx, sub.Topic, sub.GroupID, partition, offset)
	if err != nil {
		err = storageErr(err)
	}
	g.hooks().OnAck(sessionID, partition, offset, err)
	return err
}
