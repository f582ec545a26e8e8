package gateway

import "github.com/twmb/flowgate/pkg/storage"

// Hooks lets an observer (internal/metrics, in this repo) watch
// session and record lifecycle events without the core depending on
// any particular metrics backend. Modeled on the teacher's own
// Hook/BrokerConnectHook family (pkg/kgo/broker.go), but as a single
// interface with one method per event: an implementation provides all
// five, and the gateway calls them directly without type assertions.
type Hooks interface {
	OnSessionOpened(id SessionID, topic string, groupID storage.GroupID)
	OnSessionClosed(id SessionID, err error)
	OnPublish(topic string, err error)
	OnRecordDelivered(id SessionID, partition uint32, replay bool)
	OnAck(id SessionID, partition uint32, offset uint64, err error)
}

// NopHooks implements Hooks with no-ops; it is the default.
type NopHooks struct{}

func (NopHooks) OnSessionOpened(SessionID, string, storage.GroupID) {}
func (NopHooks) OnSessionClosed(SessionID, error)                   {}
func (NopHooks) OnPublish(string, error)                            {}
func (NopHooks) OnRecordDelivered(SessionID, uint32, bool)          {}
func (NopHooks) OnAck(SessionID, uint32, uint64, error)             {}

func (g *Gateway) hooks() Hooks {
	if g.Hooks == nil {
		return NopHooks{}
	}
	return g.Hooks
}
