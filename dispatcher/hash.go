// File: dispatcher/hash.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Hash-code providers. Both fold a 64-bit digest into 32 bits so the high
// bits used by the router depend on the whole key.

package dispatcher

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/segmentio/fasthash/fnv1a"

	"github.com/ryntric/affinity-dispatcher/api"
)

var (
	_ api.HashCodeProvider = XXHash{}
	_ api.HashCodeProvider = FNV1a{}
)

func fold(h uint64) uint32 {
	return uint32(h>>32) ^ uint32(h)
}

// XXHash hashes keys with xxHash64. Integers are hashed over their
// little-endian bytes so small values spread over the whole hash space.
type XXHash struct{}

func (XXHash) HashBytes(key []byte) uint32 {
	return fold(xxhash.Sum64(key))
}

func (XXHash) HashString(key string) uint32 {
	return fold(xxhash.Sum64String(key))
}

func (XXHash) HashInt32(key int32) uint32 {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(key))
	return fold(xxhash.Sum64(b[:]))
}

func (XXHash) HashInt64(key int64) uint32 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(key))
	return fold(xxhash.Sum64(b[:]))
}

// FNV1a hashes keys with 64-bit FNV-1a.
type FNV1a struct{}

func (FNV1a) HashBytes(key []byte) uint32 {
	return fold(fnv1a.HashBytes64(key))
}

func (FNV1a) HashString(key string) uint32 {
	return fold(fnv1a.HashString64(key))
}

func (FNV1a) HashInt32(key int32) uint32 {
	return fold(fnv1a.HashUint64(uint64(uint32(key))))
}

func (FNV1a) HashInt64(key int64) uint32 {
	return fold(fnv1a.HashUint64(uint64(key)))
}
