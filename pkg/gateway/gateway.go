// Package gateway implements the core of spec §1: the per-session
// subscription engine, the registry of live subscriptions and their
// per-partition sources, the resume-from-committed-offset seek
// protocol, the publish/receive processor chains, and the PUBLISH /
// SUBSCRIBE / RECEIVE / ACK / GetOffsets endpoints. It consumes
// storage through the pkg/storage interfaces and is otherwise
// transport-agnostic: nothing here imports a wire protocol.
package gateway

import (
	"github.com/twmb/flowgate/internal/logging"
	"github.com/twmb/flowgate/pkg/storage"
)

// Gateway bundles the storage adapters, processor chains, and session
// registry described in spec §2.
type Gateway struct {
	Records   storage.RecordsStorage
	Positions storage.PositionsStorage

	PreProcessors  []PreProcessor
	PostProcessors []PostProcessor

	Logger logging.Logger
	Hooks  Hooks

	registry *Registry
}

// New builds a Gateway ready to serve. Logger and Hooks default to
// no-ops if left nil.
func New(records storage.RecordsStorage, positions storage.PositionsStorage, opts ...Option) *Gateway {
	g := &Gateway{
		Records:   records,
		Positions: positions,
		Logger:    logging.Nop{},
		registry:  NewRegistry(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Option configures a Gateway at construction time.
type Option func(*Gateway)

func WithLogger(l logging.Logger) Option { return func(g *Gateway) { g.Logger = l } }
func WithHooks(h Hooks) Option           { return func(g *Gateway) { g.Hooks = h } }
func WithPreProcessors(p ...PreProcessor) Option {
	return func(g *Gateway) { g.PreProcessors = append(g.PreProcessors, p...) }
}
func WithPostProcessors(p ...PostProcessor) Option {
	return func(g *Gateway) { g.PostProcessors = append(g.PostProcessors, p...) }
}
