package grpc_test

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	transportgrpc "github.com/twmb/flowgate/internal/transport/grpc"
	"github.com/twmb/flowgate/pkg/gateway"
	"github.com/twmb/flowgate/pkg/storage/memstorage"
)

func startTestServer(t *testing.T) *transportgrpc.Client {
	t.Helper()

	store := memstorage.New(1)
	gw := gateway.New(store, store)

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	transportgrpc.RegisterServer(srv, &transportgrpc.Server{Gateway: gw})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	conn, err := transportgrpc.Dial(context.Background(), "bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return transportgrpc.NewClient(conn)
}

func TestGRPCPublishSubscribeReceiveAck(t *testing.T) {
	client := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pubReply, err := client.Publish(ctx, &transportgrpc.PublishRequest{Topic: "orders", Value: []byte("hello")})
	require.NoError(t, err)
	require.Equal(t, "orders", pubReply.Topic)

	subStream, err := client.Subscribe(ctx, &transportgrpc.SubscribeRequest{Topic: "orders", Group: "workers", AutoOffsetReset: "EARLIEST"})
	require.NoError(t, err)

	assignment, err := subStream.Recv()
	require.NoError(t, err)
	require.Equal(t, pubReply.Partition, assignment.Assignment.Partition)

	recvStream, err := client.Receive(ctx, &transportgrpc.ReceiveRequest{Assignment: assignment.Assignment})
	require.NoError(t, err)

	rec, err := recvStream.Recv()
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), rec.Record.Value)
	require.Equal(t, uint64(0), rec.Record.Offset)

	_, err = client.Ack(ctx, &transportgrpc.AckRequest{Assignment: assignment.Assignment, Offset: rec.Record.Offset})
	require.NoError(t, err)

	offsets, err := client.GetOffsets(ctx, &transportgrpc.GetOffsetsRequest{Topic: "orders", Group: "workers"})
	require.NoError(t, err)
	require.Equal(t, uint64(0), offsets.Offsets[assignment.Assignment.Partition])
}

func TestGRPCSubscribeRejectsUnknownAutoOffsetReset(t *testing.T) {
	client := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	subStream, err := client.Subscribe(ctx, &transportgrpc.SubscribeRequest{Topic: "orders", Group: "workers", AutoOffsetReset: "BOGUS"})
	require.NoError(t, err)

	_, err = subStream.Recv()
	require.Error(t, err)
	require.NotEqual(t, io.EOF, err)
}
