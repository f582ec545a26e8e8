package gateway

import (
	"github.com/google/uuid"

	"github.com/twmb/flowgate/pkg/storage"
)

// SessionID is the opaque identifier the gateway mints on SUBSCRIBE
// (spec §3). Clients echo it on RECEIVE and ACK.
type SessionID string

func newSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// StoredSubscription is the per-session record kept in the registry
// for the lifetime of a SUBSCRIBE call (spec §3).
type StoredSubscription struct {
	Subscription storage.Subscription
	Topic        string
	GroupID      storage.GroupID
}
