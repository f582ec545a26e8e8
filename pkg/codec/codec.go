// Package codec supplies optional pre-processor stages that compress
// an Envelope's Value before it reaches records storage, plus the
// matching decode helpers for the read path. The three formats mirror
// the teacher's go.mod compression stack (golang/snappy, pierrec/lz4,
// klauspost/compress's zstd).
package codec

import (
	"bytes"
	"context"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"

	"github.com/twmb/flowgate/pkg/storage"
)

// Snappy compresses envelope values with the Snappy block format.
type Snappy struct{}

func (Snappy) Identity() string { return "codec.snappy" }

func (Snappy) Process(_ context.Context, env storage.Envelope) (storage.Envelope, error) {
	env.Value = snappy.Encode(nil, env.Value)
	return env, nil
}

// DecodeSnappy reverses Snappy.Process.
func DecodeSnappy(b []byte) ([]byte, error) {
	return snappy.Decode(nil, b)
}

// LZ4 compresses envelope values by streaming them through an
// lz4.Writer into an in-memory buffer.
type LZ4 struct{}

func (LZ4) Identity() string { return "codec.lz4" }

func (LZ4) Process(_ context.Context, env storage.Envelope) (storage.Envelope, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(env.Value); err != nil {
		return env, err
	}
	if err := w.Close(); err != nil {
		return env, err
	}
	env.Value = buf.Bytes()
	return env, nil
}

// DecodeLZ4 reverses LZ4.Process.
func DecodeLZ4(b []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(b))
	return io.ReadAll(r)
}

// Zstd compresses envelope values with zstd at the encoder's default
// level. Encoder and Decoder are safe for concurrent use, so a single
// Zstd value can back every pre-processor invocation.
type Zstd struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewZstd builds a Zstd stage with a reusable encoder and decoder.
func NewZstd() (*Zstd, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &Zstd{encoder: enc, decoder: dec}, nil
}

func (z *Zstd) Identity() string { return "codec.zstd" }

func (z *Zstd) Process(_ context.Context, env storage.Envelope) (storage.Envelope, error) {
	env.Value = z.encoder.EncodeAll(env.Value, nil)
	return env, nil
}

// Decode reverses Process.
func (z *Zstd) Decode(b []byte) ([]byte, error) {
	return z.decoder.DecodeAll(b, nil)
}

// Close releases the decoder's background resources. The encoder has
// no matching requirement when used only via EncodeAll.
func (z *Zstd) Close() {
	z.decoder.Close()
}

// Decompressor is a PostProcessor that reverses whichever compression
// format records were published with, matching the stage installed on
// the publish side.
type Decompressor struct {
	Decode func([]byte) ([]byte, error)
}

func (Decompressor) Identity() string { return "codec.decompress" }

func (d Decompressor) Process(ctx context.Context, in <-chan storage.Record) <-chan storage.Record {
	out := make(chan storage.Record)
	go func() {
		defer close(out)
		for {
			select {
			case rec, ok := <-in:
				if !ok {
					return
				}
				value, err := d.Decode(rec.Envelope.Value)
				if err != nil {
					// A record that fails to decode is dropped rather
					// than delivered corrupt; the underlying source
					// keeps advancing past it.
					continue
				}
				rec.Envelope.Value = value
				select {
				case out <- rec:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
