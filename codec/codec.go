// Package codec serializes Rowers so that they can travel between nodes as
// opaque blobs.
package codec

import (
	"bytes"
	"encoding/gob"
)

// Codec encodes and decodes values of type R
type Codec[R any] interface {
	Encode(v R) ([]byte, error)
	Decode(data []byte) (R, error)
}

// Default returns the Codec used when none is specified: gob, framed with
// lz4 compression and an xxhash checksum
func Default[R any]() Codec[R] {
	return Framed[R](Gob[R]())
}

type gobCodec[R any] struct{}

// Gob returns a Codec which serializes the exported fields of R with encoding/gob
func Gob[R any]() Codec[R] {
	return gobCodec[R]{}
}

func (gobCodec[R]) Encode(v R) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := gob.NewEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec[R]) Decode(data []byte) (R, error) {
	var v R
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v)
	return v, err
}
