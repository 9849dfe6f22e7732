package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	errors "github.com/go-sif/liquid/errors"
	"github.com/pierrec/lz4"
)

const (
	frameMagic  = 0x4c514442 // "LQDB"
	headerBytes = 12         // 4 bytes of magic, 8 bytes of checksum
)

type framedCodec[R any] struct {
	inner Codec[R]
}

// Framed wraps another Codec. Encoded payloads are lz4-compressed and prefixed
// with a magic number and an xxhash64 checksum of the compressed bytes, so
// that truncated or corrupted blobs are rejected with a MalformedBlobError
// rather than decoded into garbage.
func Framed[R any](inner Codec[R]) Codec[R] {
	return &framedCodec[R]{inner: inner}
}

func (c *framedCodec[R]) Encode(v R) ([]byte, error) {
	payload, err := c.inner.Encode(v)
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(make([]byte, headerBytes, headerBytes+len(payload)))
	compressor := lz4.NewWriter(buf)
	if _, err := compressor.Write(payload); err != nil {
		return nil, err
	}
	if err := compressor.Close(); err != nil {
		return nil, err
	}
	frame := buf.Bytes()
	binary.BigEndian.PutUint32(frame[0:4], frameMagic)
	binary.BigEndian.PutUint64(frame[4:headerBytes], xxhash.Sum64(frame[headerBytes:]))
	return frame, nil
}

func (c *framedCodec[R]) Decode(data []byte) (R, error) {
	var zero R
	if len(data) < headerBytes {
		return zero, errors.MalformedBlobError{Reason: fmt.Sprintf("frame of %d bytes is shorter than its header", len(data))}
	}
	if magic := binary.BigEndian.Uint32(data[0:4]); magic != frameMagic {
		return zero, errors.MalformedBlobError{Reason: fmt.Sprintf("unknown frame magic %#x", magic)}
	}
	body := data[headerBytes:]
	if sum := binary.BigEndian.Uint64(data[4:headerBytes]); sum != xxhash.Sum64(body) {
		return zero, errors.MalformedBlobError{Reason: "checksum mismatch"}
	}
	payload := new(bytes.Buffer)
	if _, err := payload.ReadFrom(lz4.NewReader(bytes.NewReader(body))); err != nil {
		return zero, errors.MalformedBlobError{Reason: fmt.Sprintf("unable to decompress frame: %v", err)}
	}
	v, err := c.inner.Decode(payload.Bytes())
	if err != nil {
		return zero, errors.MalformedBlobError{Reason: fmt.Sprintf("unable to decode payload: %v", err)}
	}
	return v, nil
}
