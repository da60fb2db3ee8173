package cache

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// Values written by the persistent backends are framed as
//
//	tag(1) | uvarint(uncompressed size) | payload
//
// where tag says whether payload is raw or an LZ4 block. Values that do not
// shrink are stored raw.
const (
	tagRaw byte = 0
	tagLZ4 byte = 1
)

var errCorruptFrame = errors.New("corrupt cache frame")

func pack(data []byte) ([]byte, error) {
	head := make([]byte, 1+binary.MaxVarintLen64)
	n := 1 + binary.PutUvarint(head[1:], uint64(len(data)))

	if len(data) > 0 {
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		written, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if written > 0 && written < len(data) {
			head[0] = tagLZ4
			return append(head[:n], dst[:written]...), nil
		}
	}
	head[0] = tagRaw
	return append(head[:n], data...), nil
}

func unpack(frame []byte) ([]byte, error) {
	if len(frame) < 2 {
		return nil, errCorruptFrame
	}
	size, n := binary.Uvarint(frame[1:])
	if n <= 0 {
		return nil, errCorruptFrame
	}
	payload := frame[1+n:]

	switch frame[0] {
	case tagRaw:
		if uint64(len(payload)) != size {
			return nil, errCorruptFrame
		}
		return payload, nil
	case tagLZ4:
		dst := make([]byte, size)
		read, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if uint64(read) != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
		}
		return dst, nil
	default:
		return nil, fmt.Errorf("%w: unknown tag %d", errCorruptFrame, frame[0])
	}
}
