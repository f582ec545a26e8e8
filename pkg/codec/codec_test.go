package codec

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/twmb/flowgate/pkg/storage"
)

func TestSnappyRoundTrip(t *testing.T) {
	env := storage.Envelope{Topic: "t", Value: []byte("the quick brown fox jumps over the lazy dog")}
	out, err := Snappy{}.Process(context.Background(), env)
	require.NoError(t, err)
	require.NotEqual(t, env.Value, out.Value)

	decoded, err := DecodeSnappy(out.Value)
	require.NoError(t, err)
	if diff := cmp.Diff(env.Value, decoded); diff != "" {
		t.Fatalf("decoded value mismatch (-want +got):\n%s", diff)
	}
}

func TestLZ4RoundTrip(t *testing.T) {
	env := storage.Envelope{Topic: "t", Value: []byte("the quick brown fox jumps over the lazy dog")}
	out, err := LZ4{}.Process(context.Background(), env)
	require.NoError(t, err)

	decoded, err := DecodeLZ4(out.Value)
	require.NoError(t, err)
	require.Equal(t, env.Value, decoded)
}

func TestZstdRoundTrip(t *testing.T) {
	z, err := NewZstd()
	require.NoError(t, err)
	defer z.Close()

	env := storage.Envelope{Topic: "t", Value: []byte("the quick brown fox jumps over the lazy dog")}
	out, err := z.Process(context.Background(), env)
	require.NoError(t, err)

	decoded, err := z.Decode(out.Value)
	require.NoError(t, err)
	require.Equal(t, env.Value, decoded)
}

func TestDecompressorDropsCorruptRecords(t *testing.T) {
	d := Decompressor{Decode: DecodeSnappy}
	in := make(chan storage.Record, 2)

	good, err := Snappy{}.Process(context.Background(), storage.Envelope{Value: []byte("ok")})
	require.NoError(t, err)

	in <- storage.Record{Envelope: storage.Envelope{Value: []byte("not snappy data")}}
	in <- storage.Record{Envelope: good}
	close(in)

	out := d.Process(context.Background(), in)

	select {
	case rec, ok := <-out:
		require.True(t, ok)
		require.Equal(t, []byte("ok"), rec.Envelope.Value)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the surviving record")
	}

	select {
	case _, ok := <-out:
		require.False(t, ok, "expected the channel to close after the one good record")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}
