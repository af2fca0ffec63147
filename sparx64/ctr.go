package sparx64

import (
	"crypto/cipher"
	"encoding/binary"
)

// Stream is a SPARX-64/128 CTR keystream generator. It implements
// crypto/cipher.Stream, following the same incremental-block pattern
// nullprogram.com/x/chacha uses for its Cipher type: a small internal
// buffer is refilled one block at a time as the caller consumes it.
type Stream struct {
	ks      KeySchedule
	ncBase  uint64
	counter uint64
	block   [BlockSize]byte
	pos     int
}

var _ cipher.Stream = (*Stream)(nil)

// NewStream derives the tweaked key (spec §4.7: k' = k ⊕ nonce[4:20])
// and returns a keystream generator positioned at the start of the
// stream.
func NewStream(key *[KeySize]byte, nonce *[NonceSize]byte) *Stream {
	var tweaked [KeySize]byte
	for i := range tweaked {
		tweaked[i] = key[i] ^ nonce[4+i]
	}
	return &Stream{
		ks:     KeyScheduleEncrypt(&tweaked),
		ncBase: uint64(binary.LittleEndian.Uint32(nonce[0:4])) << 32,
		pos:    BlockSize,
	}
}

func (s *Stream) refill() {
	binary.LittleEndian.PutUint64(s.block[:], s.ncBase+s.counter)
	s.counter++
	EncryptBlock(&s.block, &s.ks)
	s.pos = 0
}

// XORKeyStream XORs the next len(src) keystream bytes into src,
// writing the result to dst. dst and src may overlap exactly (the
// common in-place case); partial overlap is undefined, matching
// crypto/cipher.Stream's contract.
func (s *Stream) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("sparx64: dst shorter than src")
	}
	for i := 0; i < len(src); i++ {
		if s.pos >= BlockSize {
			s.refill()
		}
		dst[i] = src[i] ^ s.block[s.pos]
		s.pos++
	}
}

// EncryptCTR XORs buf in place with the SPARX-64/128 CTR keystream
// derived from nonce and key (spec §4.7). An empty buf is a no-op.
func EncryptCTR(buf []byte, nonce *[NonceSize]byte, key *[KeySize]byte) {
	if len(buf) == 0 {
		return
	}
	NewStream(key, nonce).XORKeyStream(buf, buf)
}

// DecryptCTR is identical to EncryptCTR: CTR-mode keystream XOR is its
// own inverse.
func DecryptCTR(buf []byte, nonce *[NonceSize]byte, key *[KeySize]byte) {
	EncryptCTR(buf, nonce, key)
}
