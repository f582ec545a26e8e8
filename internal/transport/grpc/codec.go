package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec implements encoding.Codec, registered under the name
// "json" so clients negotiate it via grpc.CallContentSubtype("json")
// (see Dial). It exists purely to avoid depending on protoc-generated
// messages; real wire types (messages.go) are still schema-typed Go
// structs, so the gateway's RPCs stay strongly typed end to end even
// though the bytes on the wire are JSON rather than protobuf.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return "json" }
