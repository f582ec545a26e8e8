package grpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/twmb/flowgate/pkg/gateway"
)

// Server adapts a *gateway.Gateway to the five hand-rolled RPCs
// registered below.
type Server struct {
	Gateway *gateway.Gateway
}

func (s *Server) publish(ctx context.Context, req *PublishRequest) (*PublishReply, error) {
	offset, err := s.Gateway.Publish(ctx, req.Topic, req.Key, req.Value)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &PublishReply{
		Topic:     offset.Topic,
		Partition: offset.Partition,
		Offset:    offset.Offset,
	}, nil
}

func (s *Server) subscribe(req *SubscribeRequest, stream grpc.ServerStream) error {
	reset, err := parseAutoOffsetReset(req.AutoOffsetReset)
	if err != nil {
		return status.Error(codes.Internal, gateway.ProtocolError(err.Error()).Error())
	}

	replies, errCh := s.Gateway.Subscribe(stream.Context(), req.Topic, req.Group, req.GroupVersion, reset)
	for reply := range replies {
		out := &SubscribeReply{Assignment: AssignmentWire{
			SessionID: string(reply.SessionID),
			Partition: reply.Partition,
		}}
		if err := stream.SendMsg(out); err != nil {
			return err
		}
	}
	if err := <-errCh; err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return nil
}

func (s *Server) receive(req *ReceiveRequest, stream grpc.ServerStream) error {
	records := s.Gateway.Receive(stream.Context(),
		gateway.SessionID(req.Assignment.SessionID),
		req.Assignment.Partition,
		req.LastKnownOffset)

	for rec := range records {
		out := &ReceiveReply{Record: RecordWire{
			Offset: rec.Offset,
			Replay: rec.Replay,
			Key:    rec.Key,
			Value:  rec.Value,
			Timestamp: RecordTimestamp{
				Seconds: rec.TimestampSeconds,
				Nanos:   rec.TimestampNanos,
			},
		}}
		if err := stream.SendMsg(out); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) ack(ctx context.Context, req *AckRequest) (*AckReply, error) {
	err := s.Gateway.Ack(ctx, gateway.SessionID(req.Assignment.SessionID), req.Assignment.Partition, req.Offset)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &AckReply{}, nil
}

func (s *Server) getOffsets(ctx context.Context, req *GetOffsetsRequest) (*GetOffsetsReply, error) {
	offsets, err := s.Gateway.GetOffsets(ctx, req.Topic, req.Group, req.GroupVersion)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &GetOffsetsReply{Offsets: offsets}, nil
}

// parseAutoOffsetReset maps the wire enum to its gateway value. An
// unrecognized string is a malformed request (spec §7's
// ProtocolFailure: "unknown autoOffsetReset enum"), not a silent
// default.
func parseAutoOffsetReset(s string) (gateway.AutoOffsetReset, error) {
	switch s {
	case "", "UNSET":
		return gateway.AutoOffsetResetUnset, nil
	case "EARLIEST":
		return gateway.AutoOffsetResetEarliest, nil
	case "LATEST":
		return gateway.AutoOffsetResetLatest, nil
	default:
		return 0, fmt.Errorf("unknown autoOffsetReset enum value %q", s)
	}
}

// unaryHandler adapts one of Server's unary methods to grpc.MethodDesc.
func unaryHandler(decode func() interface{}, call func(ctx context.Context, srv interface{}, req interface{}) (interface{}, error)) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		req := decode()
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, srv, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceDesc.ServiceName}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(ctx, srv, req)
		}
		return interceptor(ctx, req, info, handler)
	}
}

func publishHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return unaryHandler(
		func() interface{} { return new(PublishRequest) },
		func(ctx context.Context, srv interface{}, req interface{}) (interface{}, error) {
			return srv.(*Server).publish(ctx, req.(*PublishRequest))
		},
	)(srv, ctx, dec, interceptor)
}

func ackHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return unaryHandler(
		func() interface{} { return new(AckRequest) },
		func(ctx context.Context, srv interface{}, req interface{}) (interface{}, error) {
			return srv.(*Server).ack(ctx, req.(*AckRequest))
		},
	)(srv, ctx, dec, interceptor)
}

func getOffsetsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return unaryHandler(
		func() interface{} { return new(GetOffsetsRequest) },
		func(ctx context.Context, srv interface{}, req interface{}) (interface{}, error) {
			return srv.(*Server).getOffsets(ctx, req.(*GetOffsetsRequest))
		},
	)(srv, ctx, dec, interceptor)
}

func subscribeHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(SubscribeRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(*Server).subscribe(req, stream)
}

func receiveHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(ReceiveRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(*Server).receive(req, stream)
}

// ServiceDesc is the hand-rolled counterpart to a protoc-generated
// _ServiceDesc: one entry per spec §6 RPC, unary methods in Methods
// and the two server-streaming RPCs (Subscribe, Receive) in Streams.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "flowgate.Gateway",
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Publish", Handler: publishHandler},
		{MethodName: "Ack", Handler: ackHandler},
		{MethodName: "GetOffsets", Handler: getOffsetsHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
		{StreamName: "Receive", Handler: receiveHandler, ServerStreams: true},
	},
	Metadata: "flowgate.proto",
}

// RegisterServer registers srv's RPCs on s using the json codec.
func RegisterServer(s *grpc.Server, srv *Server) {
	s.RegisterService(&ServiceDesc, srv)
}

// DialTimeout is the default deadline for establishing a client
// connection; callers needing a different value should dial directly.
const DialTimeout = 10 * time.Second
