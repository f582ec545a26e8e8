// Package grpc exposes the gateway's five RPCs (spec §6) over
// google.golang.org/grpc using a hand-rolled ServiceDesc and a JSON
// wire codec instead of protoc-generated messages: the wire types
// below are plain structs with JSON tags, marshaled by jsonCodec
// (codec.go). This keeps the transport schema-typed, as the gateway's
// design requires, without depending on a protobuf toolchain this
// repo cannot invoke.
package grpc

// AssignmentWire identifies a (session, partition) pair on the wire.
type AssignmentWire struct {
	SessionID string `json:"sessionId"`
	Partition uint32 `json:"partition"`
}

// PublishRequest is the wire request for Publish.
type PublishRequest struct {
	Topic string `json:"topic"`
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

// PublishReply is the wire reply for Publish.
type PublishReply struct {
	Topic     string `json:"topic"`
	Partition uint32 `json:"partition"`
	Offset    uint64 `json:"offset"`
}

// SubscribeRequest is the wire request for Subscribe.
type SubscribeRequest struct {
	Topic           string `json:"topic"`
	Group           string `json:"group"`
	GroupVersion    uint32 `json:"groupVersion"`
	AutoOffsetReset string `json:"autoOffsetReset"` // "UNSET", "EARLIEST", "LATEST"
}

// SubscribeReply is one element of the Subscribe server-stream.
type SubscribeReply struct {
	Assignment AssignmentWire `json:"assignment"`
}

// ReceiveRequest is the wire request for Receive.
type ReceiveRequest struct {
	Assignment      AssignmentWire `json:"assignment"`
	LastKnownOffset uint64         `json:"lastKnownOffset"`
}

// RecordTimestamp is a (seconds, nanos) wall-clock pair.
type RecordTimestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int32 `json:"nanos"`
}

// RecordWire is the record payload nested in a Receive reply.
type RecordWire struct {
	Offset    uint64          `json:"offset"`
	Replay    bool            `json:"replay"`
	Key       []byte          `json:"key"`
	Value     []byte          `json:"value"`
	Timestamp RecordTimestamp `json:"timestamp"`
}

// ReceiveReply is one element of the Receive server-stream.
type ReceiveReply struct {
	Record RecordWire `json:"record"`
}

// AckRequest is the wire request for Ack.
type AckRequest struct {
	Assignment AssignmentWire `json:"assignment"`
	Offset     uint64         `json:"offset"`
}

// AckReply is the (empty) wire reply for Ack.
type AckReply struct{}

// GetOffsetsRequest is the wire request for GetOffsets.
type GetOffsetsRequest struct {
	Topic        string `json:"topic"`
	Group        string `json:"group"`
	GroupVersion uint32 `json:"groupVersion"`
}

// GetOffsetsReply is the wire reply for GetOffsets.
type GetOffsetsReply struct {
	Offsets map[uint32]uint64 `json:"offsets"`
}
