package proximity

import (
	"crypto/aes"
	"errors"
	"fmt"
)

// KeySize is the length of the accessory's proximity encryption key.
const KeySize = 16

const (
	decryptedMagicOffset       = 4
	decryptedMagicByte    byte = 0x2D
	decryptedChargingMask byte = 0x80
)

var (
	ErrKeyLength         = errors.New("encryption key must be 16 bytes")
	ErrDecryptValidation = errors.New("decryption validation failed: incorrect encryption key")
)

// PreciseBattery is the 1% battery data carried in the encrypted tail.
// Levels are nil when the accessory reports a value above 100.
type PreciseBattery struct {
	Left          *uint8
	Right         *uint8
	Case          *uint8
	LeftCharging  bool
	RightCharging bool
	CaseCharging  bool
}

// DecryptTail decrypts the tail of r with the accessory's encryption key and
// resolves the precise battery levels to physical sides.
//
// The tail is a single AES-128 block. The plaintext layout is:
//
//	Byte 0: high nibble always 0
//	Byte 1: current bud (bit 7 = charging, bits 0-6 = level)
//	Byte 2: other bud (same encoding)
//	Byte 3: case (same encoding)
//	Byte 4: 0x2D
//
// A wrong key still decrypts, so the two fixed values are checked. r must not
// have been redacted.
func DecryptTail(r Record, key []byte) (PreciseBattery, error) {
	if len(key) != KeySize {
		return PreciseBattery{}, fmt.Errorf("%w, got %d", ErrKeyLength, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return PreciseBattery{}, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	// ECB over one block: there is no IV in the advertisement.
	plain := make([]byte, TailSize)
	block.Decrypt(plain, r.Tail[:])

	if plain[0]&0xF0 != 0 || plain[decryptedMagicOffset] != decryptedMagicByte {
		return PreciseBattery{}, ErrDecryptValidation
	}

	current, currentCharging := preciseLevel(plain[1])
	other, otherCharging := preciseLevel(plain[2])
	caseLevel, caseCharging := preciseLevel(plain[3])

	pb := PreciseBattery{
		Case:         caseLevel,
		CaseCharging: caseCharging,
	}
	if r.IsLeftBroadcast() {
		pb.Left, pb.Right = current, other
		pb.LeftCharging, pb.RightCharging = currentCharging, otherCharging
	} else {
		pb.Left, pb.Right = other, current
		pb.LeftCharging, pb.RightCharging = otherCharging, currentCharging
	}
	return pb, nil
}

func preciseLevel(b byte) (*uint8, bool) {
	charging := b&decryptedChargingMask != 0
	level := b &^ decryptedChargingMask
	if level > 100 {
		return nil, charging
	}
	return &level, charging
}
