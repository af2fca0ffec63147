// Package sparx128 implements SPARX-128/128: the 128-bit-block,
// 128-bit-key instantiation of the SPARX family of ARX block ciphers,
// plus a CTR stream construction built on top of it.
//
// The block transform and key schedule below are grounded on the
// upstream jedisct1/rust-sparx sparx128.rs reference (kept under
// _examples/original_source), restructured into the key-permutation /
// schedule-slot shape gosuda.org/randflake's sparx64 package already
// uses for the 64-bit variant, and switched to little-endian byte
// packing throughout. rust-sparx never defines a decrypt_block for
// this representation; DecryptBlock here is derived from spec §§4.1,
// 4.4, and 4.6 and follows the same reverse-whitening /
// reverse-step / reverse-round shape sparx64.DecryptBlock uses.
package sparx128

import (
	"crypto/cipher"
	"encoding/binary"

	"github.com/cryptolux/sparx-go/internal/arx"
)

// Public sizes, fixed at compile time.
const (
	BlockSize = 16 // bytes: four 32-bit branches
	KeySize   = 16 // bytes: eight 16-bit key words
	NonceSize = 20 // bytes: 10-byte prefix + 10-byte key tweak
)

const (
	steps         = 8
	roundsPerStep = 4
	nBranches     = 4
	keyWords      = 8 // 4 branches of 2 halves each
	numSlots      = nBranches*steps + 1
)

// KeySchedule is the fixed-size subkey stream produced from a master
// key. It is plain data: safe to copy and safe to share for concurrent
// read by any number of Encrypt/Decrypt calls.
type KeySchedule [numSlots][roundsPerStep]uint32

// keyPerm is the key permutation P_c (spec §4.2) for SPARX-128/128: it
// applies the ARX step to both the first and third branch, unlike
// sparx64's variant which only applies it to the first.
func keyPerm(k *[keyWords]uint16, c uint16) {
	arx.Step(&k[0], &k[1])
	k[2] += k[0]
	k[3] += k[1]

	arx.Step(&k[4], &k[5])
	k[6] += k[4]
	k[7] += k[5] + c

	tmp0, tmp1 := k[6], k[7]
	for i := 7; i >= 2; i-- {
		k[i] = k[i-2]
	}
	k[0], k[1] = tmp0, tmp1
}

func keySchedule(masterKey [keyWords]uint16) KeySchedule {
	k := masterKey
	var ks KeySchedule
	for c := 0; c < numSlots; c++ {
		for i := 0; i < roundsPerStep; i++ {
			ks[c][i] = uint32(k[2*i]) | uint32(k[2*i+1])<<16
		}
		keyPerm(&k, uint16(c+1))
	}
	return ks
}

// KeyScheduleEncrypt expands a 16-byte master key into the subkey
// stream consumed by EncryptBlock/DecryptBlock.
func KeyScheduleEncrypt(key *[KeySize]byte) KeySchedule {
	var mk [keyWords]uint16
	for i := range mk {
		mk[i] = binary.LittleEndian.Uint16(key[2*i:])
	}
	return keySchedule(mk)
}

// KeyScheduleDecrypt is identical to KeyScheduleEncrypt; SPARX has no
// separate decryption schedule (spec §4.3). Provided for API symmetry.
func KeyScheduleDecrypt(key *[KeySize]byte) KeySchedule {
	return KeyScheduleEncrypt(key)
}

// linearLayer is L (spec §4.4) for the four branches of a
// SPARX-128/128 block.
func linearLayer(x *[nBranches]uint32) {
	z0, z1 := uint16(x[0]), uint16(x[0]>>16)
	z2, z3 := uint16(x[1]), uint16(x[1]>>16)
	z4, z5 := uint16(x[2]), uint16(x[2]>>16)
	z6, z7 := uint16(x[3]), uint16(x[3]>>16)

	tmp := arx.Rotl16(z0^z1^z2^z3, 8)
	z4 ^= z2 ^ tmp
	z5 ^= z1 ^ tmp
	z6 ^= z0 ^ tmp
	z7 ^= z3 ^ tmp

	x[0] = uint32(z4) | uint32(z5)<<16
	x[1] = uint32(z6) | uint32(z7)<<16
	x[2] = uint32(z0) | uint32(z1)<<16
	x[3] = uint32(z2) | uint32(z3)<<16
}

// linearLayerInv is L⁻¹: the swap undone first, then the same XOR
// terms recomputed from the now-restored branches (the mixing is
// self-inverse; only the swap direction differs).
func linearLayerInv(x *[nBranches]uint32) {
	z0, z1 := uint16(x[0]), uint16(x[0]>>16)
	z2, z3 := uint16(x[1]), uint16(x[1]>>16)
	z4, z5 := uint16(x[2]), uint16(x[2]>>16)
	z6, z7 := uint16(x[3]), uint16(x[3]>>16)

	z0, z4 = z4, z0
	z1, z5 = z5, z1
	z2, z6 = z6, z2
	z3, z7 = z7, z3

	tmp := arx.Rotl16(z0^z1^z2^z3, 8)
	z4 ^= z2 ^ tmp
	z5 ^= z1 ^ tmp
	z6 ^= z0 ^ tmp
	z7 ^= z3 ^ tmp

	x[0] = uint32(z0) | uint32(z1)<<16
	x[1] = uint32(z2) | uint32(z3)<<16
	x[2] = uint32(z4) | uint32(z5)<<16
	x[3] = uint32(z6) | uint32(z7)<<16
}

func sparxEncrypt(x *[nBranches]uint32, ks *KeySchedule) {
	for s := 0; s < steps; s++ {
		for b := 0; b < nBranches; b++ {
			l, r := uint16(x[b]), uint16(x[b]>>16)
			for i := 0; i < roundsPerStep; i++ {
				sk := ks[nBranches*s+b][i]
				l ^= uint16(sk)
				r ^= uint16(sk >> 16)
				arx.Step(&l, &r)
			}
			x[b] = uint32(l) | uint32(r)<<16
		}
		linearLayer(x)
	}

	for b := 0; b < nBranches; b++ {
		sk := ks[nBranches*steps][b]
		l := uint16(x[b]) ^ uint16(sk)
		r := uint16(x[b]>>16) ^ uint16(sk>>16)
		x[b] = uint32(l) | uint32(r)<<16
	}
}

func sparxDecrypt(x *[nBranches]uint32, ks *KeySchedule) {
	for b := 0; b < nBranches; b++ {
		sk := ks[nBranches*steps][b]
		l := uint16(x[b]) ^ uint16(sk)
		r := uint16(x[b]>>16) ^ uint16(sk>>16)
		x[b] = uint32(l) | uint32(r)<<16
	}

	for s := steps - 1; s >= 0; s-- {
		linearLayerInv(x)
		for b := nBranches - 1; b >= 0; b-- {
			l, r := uint16(x[b]), uint16(x[b]>>16)
			for i := roundsPerStep - 1; i >= 0; i-- {
				arx.StepInv(&l, &r)
				sk := ks[nBranches*s+b][i]
				l ^= uint16(sk)
				r ^= uint16(sk >> 16)
			}
			x[b] = uint32(l) | uint32(r)<<16
		}
	}
}

// EncryptBlock encrypts the 16 bytes of block in place under ks.
func EncryptBlock(block *[BlockSize]byte, ks *KeySchedule) {
	x := [nBranches]uint32{
		binary.LittleEndian.Uint32(block[0:4]),
		binary.LittleEndian.Uint32(block[4:8]),
		binary.LittleEndian.Uint32(block[8:12]),
		binary.LittleEndian.Uint32(block[12:16]),
	}
	sparxEncrypt(&x, ks)
	binary.LittleEndian.PutUint32(block[0:4], x[0])
	binary.LittleEndian.PutUint32(block[4:8], x[1])
	binary.LittleEndian.PutUint32(block[8:12], x[2])
	binary.LittleEndian.PutUint32(block[12:16], x[3])
}

// DecryptBlock decrypts the 16 bytes of block in place under ks. It is
// the exact inverse of EncryptBlock.
func DecryptBlock(block *[BlockSize]byte, ks *KeySchedule) {
	x := [nBranches]uint32{
		binary.LittleEndian.Uint32(block[0:4]),
		binary.LittleEndian.Uint32(block[4:8]),
		binary.LittleEndian.Uint32(block[8:12]),
		binary.LittleEndian.Uint32(block[12:16]),
	}
	sparxDecrypt(&x, ks)
	binary.LittleEndian.PutUint32(block[0:4], x[0])
	binary.LittleEndian.PutUint32(block[4:8], x[1])
	binary.LittleEndian.PutUint32(block[8:12], x[2])
	binary.LittleEndian.PutUint32(block[12:16], x[3])
}

// Cipher is a SPARX-128/128 instance keyed once and reused across any
// number of block operations. It implements crypto/cipher.Block.
type Cipher struct {
	ks KeySchedule
}

var _ cipher.Block = (*Cipher)(nil)

// NewCipher schedules key into a reusable Cipher. key must be KeySize
// bytes long; a shorter or longer slice is a programming error and
// panics (spec §7).
func NewCipher(key []byte) *Cipher {
	if len(key) != KeySize {
		panic("sparx128: key must be 16 bytes")
	}
	var k [KeySize]byte
	copy(k[:], key)
	return &Cipher{ks: KeyScheduleEncrypt(&k)}
}

func (c *Cipher) BlockSize() int { return BlockSize }

func (c *Cipher) Encrypt(dst, src []byte) {
	if len(src) < BlockSize || len(dst) < BlockSize {
		panic("sparx128: input or output not a full block")
	}
	var block [BlockSize]byte
	copy(block[:], src[:BlockSize])
	EncryptBlock(&block, &c.ks)
	copy(dst[:BlockSize], block[:])
}

func (c *Cipher) Decrypt(dst, src []byte) {
	if len(src) < BlockSize || len(dst) < BlockSize {
		panic("sparx128: input or output not a full block")
	}
	var block [BlockSize]byte
	copy(block[:], src[:BlockSize])
	DecryptBlock(&block, &c.ks)
	copy(dst[:BlockSize], block[:])
}

// Destroy zeroes the schedule. Best-effort; the Go runtime gives no
// hard guarantee against compiler reordering, but this matches the
// teacher's own Destroy convention.
func (c *Cipher) Destroy() {
	for i := range c.ks {
		for j := range c.ks[i] {
			c.ks[i][j] = 0
		}
	}
}
