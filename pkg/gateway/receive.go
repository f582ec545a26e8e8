package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/twmb/flowgate/internal/logging"
)

// ReceiveRecord is one record delivered on RECEIVE (spec §6).
type ReceiveRecord struct {
	Offset           uint64
	Key              []byte
	Value            []byte
	TimestampSeconds int64
	TimestampNanos   int32
	Replay           bool
}

// Receive implements spec §4.3. A RECEIVE for a session/partition that
// has no registered handle (the session raced ahead of, or arrived
// after, its teardown) is not an error: it logs a warning and
// completes the reply stream empty.
//
// lastKnownOffset is accepted but never consulted (spec §4.3, §9,
// "Open question": reserved for a future auto-ack-on-reconnect
// feature).
func (g *Gateway) Receive(ctx context.Context, sessionID SessionID, partition uint32, lastKnownOffset uint64) <-chan ReceiveRecord {
	out := make(chan ReceiveRecord)

	h, ok := g.registry.Handle(sessionID, partition)
	if !ok {
		g.Logger.Log(logging.LevelWarn, "receive on unknown session/partition, completing empty",
			"request", escapeNewlines(fmt.Sprintf("{sessionId:%s partition:%d lastKnownOffset:%d}", sessionID, partition, lastKnownOffset)))
		close(out)
		return out
	}

	records := runPostProcessors(ctx, g.PostProcessors, h.Records())
	lastSeen := h.LastSeenOffset()

	go func() {
		defer close(out)
		for {
			select {
			case rec, ok := <-records:
				if !ok {
					return
				}
				replay := int64(rec.Offset) <= lastSeen
				g.hooks().OnRecordDelivered(sessionID, partition, replay)
				reply := ReceiveRecord{
					Offset:           rec.Offset,
					Key:              rec.Envelope.Key,
					Value:            rec.Envelope.Value,
					TimestampSeconds: rec.Timestamp.Unix(),
					TimestampNanos:   int32(rec.Timestamp.Nanosecond()),
					Replay:           replay,
				}
				select {
				case out <- reply:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				// Cancelling RECEIVE stops delivery only; the handle
				// and its underlying source stay registered and alive
				// (spec §5, "Cancellation and timeouts").
				return
			}
		}
	}()

	return out
}

func escapeNewlines(s string) string {
	return strings.ReplaceAll(s, "\n", "\\n")
}
