package proximity

import (
	"crypto/aes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte{
	0xa1, 0xb2, 0xc3, 0xd4, 0xe5, 0xf6, 0xa7, 0xb8,
	0xc9, 0xd0, 0xe1, 0xf2, 0xa3, 0xb4, 0xc5, 0xd6,
}

// sealed returns a record whose tail is plain encrypted under testKey.
func sealed(t *testing.T, flags byte, plain [TailSize]byte) Record {
	t.Helper()
	block, err := aes.NewCipher(testKey)
	require.NoError(t, err)

	r := decoded(t, func(b []byte) { b[5] = flags })
	block.Encrypt(r.Tail[:], plain[:])
	return r
}

func TestDecryptTail(t *testing.T) {
	plain := [TailSize]byte{0x01, 0x80 | 57, 83, 0x80 | 100, 0x2D}

	t.Run("left broadcasting", func(t *testing.T) {
		pb, err := DecryptTail(sealed(t, 0x20, plain), testKey)
		require.NoError(t, err)
		require.NotNil(t, pb.Left)
		require.NotNil(t, pb.Right)
		require.NotNil(t, pb.Case)
		assert.Equal(t, uint8(57), *pb.Left)
		assert.True(t, pb.LeftCharging)
		assert.Equal(t, uint8(83), *pb.Right)
		assert.False(t, pb.RightCharging)
		assert.Equal(t, uint8(100), *pb.Case)
		assert.True(t, pb.CaseCharging)
	})

	t.Run("right broadcasting", func(t *testing.T) {
		pb, err := DecryptTail(sealed(t, 0x00, plain), testKey)
		require.NoError(t, err)
		assert.Equal(t, uint8(83), *pb.Left)
		assert.False(t, pb.LeftCharging)
		assert.Equal(t, uint8(57), *pb.Right)
		assert.True(t, pb.RightCharging)
	})
}

func TestDecryptTailOutOfRangeLevel(t *testing.T) {
	plain := [TailSize]byte{0x00, 0x7F, 101, 50, 0x2D}
	pb, err := DecryptTail(sealed(t, 0x20, plain), testKey)
	require.NoError(t, err)
	assert.Nil(t, pb.Left)
	assert.Nil(t, pb.Right)
	require.NotNil(t, pb.Case)
	assert.Equal(t, uint8(50), *pb.Case)
}

func TestDecryptTailErrors(t *testing.T) {
	r := sealed(t, 0x20, [TailSize]byte{0x00, 10, 20, 30, 0x2D})

	_, err := DecryptTail(r, testKey[:8])
	assert.ErrorIs(t, err, ErrKeyLength)

	wrong := append([]byte(nil), testKey...)
	wrong[0] ^= 0xFF
	_, err = DecryptTail(r, wrong)
	assert.ErrorIs(t, err, ErrDecryptValidation)

	_, err = DecryptTail(r.Redact(), testKey)
	assert.ErrorIs(t, err, ErrDecryptValidation)
}

func TestDecryptTailBadMagic(t *testing.T) {
	_, err := DecryptTail(sealed(t, 0x20, [TailSize]byte{0x10, 10, 20, 30, 0x2D}), testKey)
	assert.ErrorIs(t, err, ErrDecryptValidation)

	_, err = DecryptTail(sealed(t, 0x20, [TailSize]byte{0x00, 10, 20, 30, 0x2C}), testKey)
	assert.ErrorIs(t, err, ErrDecryptValidation)
}
