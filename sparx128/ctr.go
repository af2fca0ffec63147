package sparx128

import (
	"crypto/cipher"
	"encoding/binary"
)

// Stream is a SPARX-128/128 CTR keystream generator. It implements
// crypto/cipher.Stream, following the same incremental-block pattern
// nullprogram.com/x/chacha uses for its Cipher type: a small internal
// buffer is refilled one block at a time as the caller consumes it.
type Stream struct {
	ks       KeySchedule
	ncPrefix [10]byte
	counter  uint64
	block    [BlockSize]byte
	pos      int
}

var _ cipher.Stream = (*Stream)(nil)

// NewStream derives the tweaked key and returns a keystream generator
// positioned at the start of the stream. Following rust-sparx's
// encrypt_ctr (the authoritative source for this construction), the
// tweaked key's first 10 bytes are key[0:10] ^ nonce[10:20] and the
// last 6 bytes are zero — key[10:16] is not carried into the tweak.
func NewStream(key *[KeySize]byte, nonce *[NonceSize]byte) *Stream {
	var tweaked [KeySize]byte
	for i := 0; i < 10; i++ {
		tweaked[i] = key[i] ^ nonce[10+i]
	}
	s := &Stream{
		ks:  KeyScheduleEncrypt(&tweaked),
		pos: BlockSize,
	}
	copy(s.ncPrefix[:], nonce[0:10])
	return s
}

func (s *Stream) refill() {
	copy(s.block[0:10], s.ncPrefix[:])
	binary.LittleEndian.PutUint32(s.block[10:14], uint32(s.counter))
	binary.LittleEndian.PutUint16(s.block[14:16], uint16(s.counter>>32))
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
		panic("sparx128: dst shorter than src")
	}
	for i := 0; i < len(src); i++ {
		if s.pos >= BlockSize {
			s.refill()
		}
		dst[i] = src[i] ^ s.block[s.pos]
		s.pos++
	}
}

// EncryptCTR XORs buf in place with the SPARX-128/128 CTR keystream
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
