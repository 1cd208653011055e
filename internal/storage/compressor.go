package storage

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// maxDecodedSize bounds the memory a corrupted snapshot can make the decoder allocate.
const maxDecodedSize = 256 << 20

// CompressorInterface compresses metadata snapshots and upload bodies.
type CompressorInterface interface {
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
	// ContentEncoding names the format for the HTTP Content-Encoding header.
	ContentEncoding() string
	Close()
}

// ZstdCompressor holds one encoder and one decoder shared by all callers;
// EncodeAll and DecodeAll are safe for concurrent use.
type ZstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func (z *ZstdCompressor) Compress(src []byte) ([]byte, error) {
	return z.enc.EncodeAll(src, make([]byte, 0, len(src)/4)), nil
}

func (z *ZstdCompressor) Decompress(src []byte) ([]byte, error) {
	out, err := z.dec.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}

func (z *ZstdCompressor) ContentEncoding() string {
	return "zstd"
}

func (z *ZstdCompressor) Close() {
	_ = z.enc.Close()
	z.dec.Close()
}

func NewZstdCompressor() (CompressorInterface, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0), zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &ZstdCompressor{enc: enc, dec: dec}, nil
}
