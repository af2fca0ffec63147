package sparx128

import (
	"bytes"
	"crypto/rand"
	mrand "math/rand/v2"
	"testing"
)

// S2 from spec.md §8.
func TestEncryptBlockVector(t *testing.T) {
	key := [KeySize]byte{0x11, 0x00, 0x33, 0x22, 0x55, 0x44, 0x77, 0x66, 0x99, 0x88, 0xBB, 0xAA, 0xDD, 0xCC, 0xFF, 0xEE}
	block := [BlockSize]byte{
		0x23, 0x01, 0x67, 0x45, 0xAB, 0x89, 0xEF, 0xCD,
		0xDC, 0xFE, 0x98, 0xBA, 0x54, 0x76, 0x10, 0x32,
	}
	want := [BlockSize]byte{
		0xEE, 0x1C, 0x40, 0x75, 0xBF, 0x7D, 0xD8, 0x23,
		0xEE, 0xE0, 0x97, 0x15, 0x28, 0xF4, 0xD8, 0x52,
	}

	ks := KeyScheduleEncrypt(&key)
	got := block
	EncryptBlock(&got, &ks)
	if got != want {
		t.Fatalf("EncryptBlock() = % x, want % x", got, want)
	}

	DecryptBlock(&got, &ks)
	if got != block {
		t.Fatalf("DecryptBlock(EncryptBlock(p)) = % x, want % x", got, block)
	}
}

// S4 from spec.md §8.
func TestEncryptCTRVector(t *testing.T) {
	key := [KeySize]byte{0x11, 0x00, 0x33, 0x22, 0x55, 0x44, 0x77, 0x66, 0x99, 0x88, 0xBB, 0xAA, 0xDD, 0xCC, 0xFF, 0xEE}
	nonce := [NonceSize]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	plaintext := []byte("The quick brown fox jumps over the lazy dog")
	want := []byte{
		187, 164, 175, 197, 150, 51, 7, 71, 250, 16, 102, 26, 154, 89, 226, 186,
		171, 49, 0, 228, 255, 249, 53, 223, 223, 97, 25, 144, 13, 185, 170, 216,
		79, 219, 40, 137, 95, 164, 73, 201, 65, 42, 58,
	}

	buf := append([]byte(nil), plaintext...)
	EncryptCTR(buf, &nonce, &key)
	if !bytes.Equal(buf, want) {
		t.Fatalf("EncryptCTR() = %v, want %v", buf, want)
	}

	DecryptCTR(buf, &nonce, &key)
	if !bytes.Equal(buf, plaintext) {
		t.Fatalf("DecryptCTR(EncryptCTR(p)) = %q, want %q", buf, plaintext)
	}
}

// S5 from spec.md §8.
func TestEncryptCTREmptyBuffer(t *testing.T) {
	var key [KeySize]byte
	var nonce [NonceSize]byte
	buf := []byte{}
	EncryptCTR(buf, &nonce, &key)
	if len(buf) != 0 {
		t.Fatalf("EncryptCTR() on empty buffer produced %d bytes", len(buf))
	}
}

// S6 from spec.md §8.
func TestEncryptCTRPartialBlock(t *testing.T) {
	var key [KeySize]byte
	var nonce [NonceSize]byte
	rand.Read(key[:])
	rand.Read(nonce[:])

	full := make([]byte, BlockSize)
	rand.Read(full)
	extra := append(append([]byte(nil), full...), 0x42)

	fullCopy := append([]byte(nil), full...)
	EncryptCTR(fullCopy, &nonce, &key)

	extraCopy := append([]byte(nil), extra...)
	EncryptCTR(extraCopy, &nonce, &key)

	if !bytes.Equal(fullCopy, extraCopy[:BlockSize]) {
		t.Fatalf("partial-block CTR changed the first %d bytes: %v vs %v", BlockSize, fullCopy, extraCopy[:BlockSize])
	}

	keystreamByte := extraCopy[BlockSize] ^ extra[BlockSize]
	var zero [BlockSize + 1]byte
	EncryptCTR(zero[:], &nonce, &key)
	if zero[BlockSize] != keystreamByte {
		t.Fatalf("trailing byte does not match keystream: got %#x, want %#x", keystreamByte, zero[BlockSize])
	}
}

func TestRoundTripProperty(t *testing.T) {
	var key [KeySize]byte
	for trial := 0; trial < 200; trial++ {
		rand.Read(key[:])
		ks := KeyScheduleEncrypt(&key)

		var block [BlockSize]byte
		rand.Read(block[:])
		orig := block

		EncryptBlock(&block, &ks)
		DecryptBlock(&block, &ks)
		if block != orig {
			t.Fatalf("round trip failed for key % x, block % x", key, orig)
		}
	}
}

func TestCTRInvolution(t *testing.T) {
	var key [KeySize]byte
	var nonce [NonceSize]byte
	rand.Read(key[:])
	rand.Read(nonce[:])

	for _, n := range []int{0, 1, 15, 16, 17, 43, 100} {
		buf := make([]byte, n)
		rand.Read(buf)
		orig := append([]byte(nil), buf...)

		EncryptCTR(buf, &nonce, &key)
		EncryptCTR(buf, &nonce, &key)
		if !bytes.Equal(buf, orig) {
			t.Fatalf("CTR applied twice did not restore length %d buffer", n)
		}
	}
}

func TestCTRXORLinearity(t *testing.T) {
	var key [KeySize]byte
	var nonce [NonceSize]byte
	rand.Read(key[:])
	rand.Read(nonce[:])

	n := 50
	zeros := make([]byte, n)
	keystream := append([]byte(nil), zeros...)
	EncryptCTR(keystream, &nonce, &key)

	buf := make([]byte, n)
	rand.Read(buf)
	orig := append([]byte(nil), buf...)
	EncryptCTR(buf, &nonce, &key)

	for i := range buf {
		if buf[i] != orig[i]^keystream[i] {
			t.Fatalf("byte %d: got %#x, want %#x", i, buf[i], orig[i]^keystream[i])
		}
	}
}

func TestCTRLengthIndependence(t *testing.T) {
	var key [KeySize]byte
	var nonce [NonceSize]byte
	rand.Read(key[:])
	rand.Read(nonce[:])

	long := make([]byte, 97)
	EncryptCTR(long, &nonce, &key)

	short := make([]byte, 40)
	EncryptCTR(short, &nonce, &key)

	if !bytes.Equal(long[:len(short)], short) {
		t.Fatalf("keystream prefix mismatch: long[:%d]=%v short=%v", len(short), long[:len(short)], short)
	}
}

func TestScheduleIsDeterministic(t *testing.T) {
	var key [KeySize]byte
	rand.Read(key[:])
	if KeyScheduleEncrypt(&key) != KeyScheduleEncrypt(&key) {
		t.Fatal("KeyScheduleEncrypt is not a pure function of its key")
	}
}

func TestEndianDiscipline(t *testing.T) {
	key := [KeySize]byte{0x11, 0x00, 0x33, 0x22, 0x55, 0x44, 0x77, 0x66, 0x99, 0x88, 0xBB, 0xAA, 0xDD, 0xCC, 0xFF, 0xEE}
	var swapped [KeySize]byte
	for i := 0; i+1 < KeySize; i += 2 {
		swapped[i], swapped[i+1] = key[i+1], key[i]
	}
	if KeyScheduleEncrypt(&key) == KeyScheduleEncrypt(&swapped) {
		t.Fatal("swapping key byte order did not change the schedule")
	}
}

func TestCipherImplementsCipherBlock(t *testing.T) {
	key := make([]byte, KeySize)
	rand.Read(key)
	c := NewCipher(key)

	src := make([]byte, BlockSize)
	for i := range src {
		src[i] = byte(mrand.IntN(256))
	}
	dst := make([]byte, BlockSize)
	c.Encrypt(dst, src)
	back := make([]byte, BlockSize)
	c.Decrypt(back, dst)
	if !bytes.Equal(back, src) {
		t.Fatalf("Cipher.Decrypt(Cipher.Encrypt(p)) = % x, want % x", back, src)
	}
}

func TestStreamMatchesEncryptCTR(t *testing.T) {
	var key [KeySize]byte
	var nonce [NonceSize]byte
	rand.Read(key[:])
	rand.Read(nonce[:])

	plaintext := make([]byte, 131)
	rand.Read(plaintext)

	viaCTR := append([]byte(nil), plaintext...)
	EncryptCTR(viaCTR, &nonce, &key)

	viaStream := make([]byte, len(plaintext))
	NewStream(&key, &nonce).XORKeyStream(viaStream, plaintext)

	if !bytes.Equal(viaCTR, viaStream) {
		t.Fatalf("Stream.XORKeyStream disagrees with EncryptCTR")
	}
}
