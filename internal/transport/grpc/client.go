package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

// Client is a thin, hand-written counterpart to a protoc-generated
// client stub, calling the same five RPCs Server implements.
type Client struct {
	conn *grpc.ClientConn
}

// NewClient wraps an already-dialed connection. Use Dial to get one
// that negotiates the json content-subtype automatically.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Dial connects to target with the json wire codec (codec.go) forced
// on every call, so the plain Go structs in messages.go round-trip
// without a protobuf codegen step. Connection establishment is bounded
// by DialTimeout (or ctx's own deadline, if sooner).
func Dial(ctx context.Context, target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	ctx, cancel := context.WithTimeout(ctx, DialTimeout)
	defer cancel()
	allOpts := append([]grpc.DialOption{
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodec{}.Name())),
	}, opts...)
	return grpc.DialContext(ctx, target, allOpts...)
}

func fullMethod(name string) string {
	return fmt.Sprintf("/%s/%s", ServiceDesc.ServiceName, name)
}

func (c *Client) Publish(ctx context.Context, req *PublishRequest) (*PublishReply, error) {
	reply := new(PublishReply)
	if err := c.conn.Invoke(ctx, fullMethod("Publish"), req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (c *Client) Ack(ctx context.Context, req *AckRequest) (*AckReply, error) {
	reply := new(AckReply)
	if err := c.conn.Invoke(ctx, fullMethod("Ack"), req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (c *Client) GetOffsets(ctx context.Context, req *GetOffsetsRequest) (*GetOffsetsReply, error) {
	reply := new(GetOffsetsReply)
	if err := c.conn.Invoke(ctx, fullMethod("GetOffsets"), req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// SubscribeStream is the client side of the Subscribe server-stream.
type SubscribeStream struct {
	stream grpc.ClientStream
}

func (c *Client) Subscribe(ctx context.Context, req *SubscribeRequest) (*SubscribeStream, error) {
	desc := &grpc.StreamDesc{StreamName: "Subscribe", ServerStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, fullMethod("Subscribe"))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &SubscribeStream{stream: stream}, nil
}

// Recv returns the next assignment, or io.EOF when the stream ends.
func (s *SubscribeStream) Recv() (*SubscribeReply, error) {
	reply := new(SubscribeReply)
	if err := s.stream.RecvMsg(reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// ReceiveStream is the client side of the Receive server-stream.
type ReceiveStream struct {
	stream grpc.ClientStream
}

func (c *Client) Receive(ctx context.Context, req *ReceiveRequest) (*ReceiveStream, error) {
	desc := &grpc.StreamDesc{StreamName: "Receive", ServerStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, fullMethod("Receive"))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &ReceiveStream{stream: stream}, nil
}

// Recv returns the next record, or io.EOF when the stream ends.
func (s *ReceiveStream) Recv() (*ReceiveReply, error) {
	reply := new(ReceiveReply)
	if err := s.stream.RecvMsg(reply); err != nil {
		return nil, err
	}
	return reply, nil
}
