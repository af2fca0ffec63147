// Package idgen is a Snowflake-style unique ID generator whose IDs are
// encrypted with sparx64 before being handed to callers, so that
// sequential generation order is not observable from the ID value
// itself. It is adapted from gosuda.org/randflake, generalized to
// key off this module's sparx64.Cipher instead of a bespoke cipher
// type.
package idgen

import (
	"encoding/binary"
	"errors"
	"sync/atomic"
	"time"

	"github.com/cryptolux/sparx-go/sparx64"
)

const (
	// Sunday, October 27, 2024 3:33:20 AM UTC
	EpochOffset = 1730000000

	// 30 bits for timestamp (lifetime of 34 years)
	TimestampBits = 30
	// 17 bits for node id (max 131072 nodes)
	NodeBits = 17
	// 17 bits for sequence (max 131072 sequences)
	SequenceBits = 17

	// Tuesday, November 5, 2058 5:10:23 PM UTC
	MaxTimestamp = EpochOffset + 1<<TimestampBits - 1
	MaxNode      = 1<<NodeBits - 1
	MaxSequence  = 1<<SequenceBits - 1
)

var (
	ErrGeneratorDead        = errors.New("idgen: generator is dead after 34 years of lifetime")
	ErrInvalidSecret        = errors.New("idgen: invalid secret, secret must be 16 bytes long")
	ErrInvalidLease         = errors.New("idgen: invalid lease, lease expired or not started yet")
	ErrInvalidNode          = errors.New("idgen: invalid node id, node id must be between 0 and 131071")
	ErrResourceExhausted    = errors.New("idgen: resource exhausted (generator can't handle current throughput, try using multiple instances)")
	ErrConsistencyViolation = errors.New("idgen: timestamp consistency violation, the current time is less than the last time")
	ErrInvalidID            = errors.New("idgen: invalid id")
)

// Generator issues unique, encrypted int64 IDs for one node over one
// lease interval.
type Generator struct {
	leaseStart int64
	leaseEnd   atomic.Int64
	nodeID     int64
	sequence   atomic.Int64
	rollover   atomic.Int64
	cipher     *sparx64.Cipher

	// TimeSource returns the current time in seconds since the epoch.
	// If nil, time.Now().Unix() is used.
	TimeSource func() int64
}

// NewGenerator creates a generator for nodeID, valid for IDs minted
// between leaseStart and leaseEnd (inclusive, seconds since the Unix
// epoch). secret must be 16 bytes and is used directly as the sparx64
// key.
func NewGenerator(nodeID int64, leaseStart int64, leaseEnd int64, secret []byte) (*Generator, error) {
	if leaseEnd < leaseStart {
		return nil, ErrInvalidLease
	}
	if nodeID < 0 || nodeID > MaxNode {
		return nil, ErrInvalidNode
	}
	if leaseStart < EpochOffset {
		return nil, ErrInvalidLease
	}
	if leaseEnd > MaxTimestamp {
		return nil, ErrGeneratorDead
	}
	if len(secret) != sparx64.KeySize {
		return nil, ErrInvalidSecret
	}

	g := Generator{
		leaseStart: leaseStart,
		nodeID:     nodeID,
		cipher:     sparx64.NewCipher(secret),
	}
	g.leaseEnd.Store(leaseEnd)
	g.rollover.Store(leaseStart)

	return &g, nil
}

// UpdateLease extends the generator's lease end time. leaseStart must
// match the generator's original lease start. Returns true if the
// lease was extended.
func (g *Generator) UpdateLease(leaseStart, leaseEnd int64) bool {
	if leaseStart != g.leaseStart {
		return false
	}
	if leaseEnd < leaseStart {
		return false
	}
	if leaseEnd > MaxTimestamp {
		return false
	}

	current := g.leaseEnd.Load()
	if current < leaseEnd {
		if g.leaseEnd.CompareAndSwap(current, leaseEnd) {
			return true
		}
	}
	return false
}

func (g *Generator) newRAW() (int64, error) {
	for {
		var now int64
		if g.TimeSource != nil {
			now = g.TimeSource()
		} else {
			now = time.Now().Unix()
		}

		if now < g.leaseStart || now > g.leaseEnd.Load() {
			return 0, ErrInvalidLease
		}

		ctr := g.sequence.Add(1)
		if ctr > MaxSequence {
			lastRollover := g.rollover.Load()
			if now > lastRollover {
				if !g.rollover.CompareAndSwap(lastRollover, now) {
					continue
				}
				g.sequence.Store(0)
				ctr = 0
			} else if now < lastRollover {
				return 0, ErrConsistencyViolation
			} else {
				return 0, ErrResourceExhausted
			}
		}

		timestamp := now - EpochOffset
		return (timestamp << (NodeBits + SequenceBits)) |
			(g.nodeID << SequenceBits) |
			ctr, nil
	}
}

// Generate returns the next unique, encrypted ID.
func (g *Generator) Generate() (int64, error) {
	raw, err := g.newRAW()
	if err != nil {
		return 0, err
	}

	var b [sparx64.BlockSize]byte
	binary.LittleEndian.PutUint64(b[:], uint64(raw))
	g.cipher.Encrypt(b[:], b[:])
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// GenerateString returns the next ID, base32hex-encoded.
func (g *Generator) GenerateString() (string, error) {
	id, err := g.Generate()
	if err != nil {
		return "", err
	}
	return base32hexencode(uint64(id)), nil
}

// Inspect decrypts id and splits it back into its timestamp, node ID,
// and sequence components.
func (g *Generator) Inspect(id int64) (timestamp int64, nodeID int64, sequence int64, err error) {
	var b [sparx64.BlockSize]byte
	binary.LittleEndian.PutUint64(b[:], uint64(id))
	g.cipher.Decrypt(b[:], b[:])
	raw := int64(binary.LittleEndian.Uint64(b[:]))
	if raw < 0 {
		return 0, 0, 0, ErrInvalidLease
	}
	timestamp = (raw >> (NodeBits + SequenceBits)) + EpochOffset
	nodeID = (raw >> SequenceBits) & MaxNode
	sequence = raw & MaxSequence
	return
}

// InspectString decodes a base32hex-encoded ID and inspects it.
func (g *Generator) InspectString(id string) (timestamp int64, nodeID int64, sequence int64, err error) {
	num, err := base32hexdecode(id)
	if err != nil {
		return 0, 0, 0, err
	}
	return g.Inspect(int64(num))
}

const b32hexchars = "0123456789abcdefghijklmnopqrstuv"

func base32hexencode(num uint64) string {
	if num == 0 {
		return "0"
	}

	var encoded [13]byte
	idx := 12
	for num > 0 {
		encoded[idx] = b32hexchars[num&0x1f]
		num >>= 5
		idx--
	}

	return string(encoded[idx+1:])
}

func base32hexdecode(s string) (uint64, error) {
	var num uint64
	for _, c := range s {
		if c == '=' {
			break
		}

		num <<= 5
		switch {
		case c >= '0' && c <= '9':
			num += uint64(c - '0')
		case c >= 'a' && c <= 'v':
			num += uint64(c - 'a' + 10)
		case c >= 'A' && c <= 'V':
			num += uint64(c - 'A' + 10)
		default:
			return 0, ErrInvalidID
		}
	}
	return num, nil
}

// EncodeString base32hex-encodes an already-generated ID.
func EncodeString(id int64) string {
	return base32hexencode(uint64(id))
}

// DecodeString decodes a base32hex-encoded ID.
func DecodeString(s string) (int64, error) {
	id, err := base32hexdecode(s)
	if err != nil {
		return 0, err
	}
	return int64(id), nil
}
