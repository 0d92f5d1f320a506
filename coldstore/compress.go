package coldstore

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies the compression applied to a cold object.
type Codec uint8

const (
	CodecNone Codec = iota
	CodecZstd
	CodecLZ4
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// CompressingStore wraps a Store and transparently compresses values on the
// way down and decompresses on the way back up. Each object carries a one
// byte frame header naming its codec, so the codec can change between
// restarts without invalidating existing objects.
type CompressingStore struct {
	inner Store
	codec Codec

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCompressingStore creates a compressing decorator using the given codec
// for new writes.
func NewCompressingStore(inner Store, codec Codec) (*CompressingStore, error) {
	s := &CompressingStore{inner: inner, codec: codec}
	var err error
	// EncodeAll/DecodeAll on shared instances are safe for concurrent use.
	// The decoder is always created so zstd objects written under an earlier
	// configuration stay readable after a codec change.
	s.dec, err = zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	if codec == CodecZstd {
		s.enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *CompressingStore) compress(data []byte) ([]byte, error) {
	switch s.codec {
	case CodecNone:
		out := make([]byte, 1+len(data))
		out[0] = byte(CodecNone)
		copy(out[1:], data)
		return out, nil
	case CodecZstd:
		out := make([]byte, 1, 1+len(data)/2)
		out[0] = byte(CodecZstd)
		return s.enc.EncodeAll(data, out), nil
	case CodecLZ4:
		header := make([]byte, 1+binary.MaxVarintLen64)
		header[0] = byte(CodecLZ4)
		n := binary.PutUvarint(header[1:], uint64(len(data)))
		header = header[:1+n]

		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		var c lz4.Compressor
		sz, err := c.CompressBlock(data, dst)
		if err != nil {
			return nil, err
		}
		if sz == 0 {
			// Incompressible, store raw.
			out := make([]byte, 1+len(data))
			out[0] = byte(CodecNone)
			copy(out[1:], data)
			return out, nil
		}
		return append(header, dst[:sz]...), nil
	default:
		return nil, fmt.Errorf("coldstore: unknown codec %s", s.codec)
	}
}

func (s *CompressingStore) decompress(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("coldstore: empty frame")
	}
	switch Codec(frame[0]) {
	case CodecNone:
		return frame[1:], nil
	case CodecZstd:
		return s.dec.DecodeAll(frame[1:], nil)
	case CodecLZ4:
		size, n := binary.Uvarint(frame[1:])
		if n <= 0 {
			return nil, fmt.Errorf("coldstore: bad lz4 frame header")
		}
		dst := make([]byte, size)
		if _, err := lz4.UncompressBlock(frame[1+n:], dst); err != nil {
			return nil, err
		}
		return dst, nil
	default:
		return nil, fmt.Errorf("coldstore: unknown codec %s", Codec(frame[0]))
	}
}

func (s *CompressingStore) PersistBatch(ctx context.Context, keys []string, values [][]byte) (int, error) {
	framed := make([][]byte, len(values))
	for i, v := range values {
		f, err := s.compress(v)
		if err != nil {
			return 0, err
		}
		framed[i] = f
	}
	return s.inner.PersistBatch(ctx, keys, framed)
}

func (s *CompressingStore) Get(ctx context.Context, key string) ([]byte, error) {
	frame, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.decompress(frame)
}

func (s *CompressingStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *CompressingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}
