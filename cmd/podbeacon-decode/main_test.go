package main

import (
	"bytes"
	"crypto/aes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const captured = "0719012720 0b998f110005 63fcfbb439011c61e7e4aa95832c5b57"

func TestParseHex(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"071901", []byte{0x07, 0x19, 0x01}},
		{"07 19 01", []byte{0x07, 0x19, 0x01}},
		{"07:19:01", []byte{0x07, 0x19, 0x01}},
		{"  0x071901\t", []byte{0x07, 0x19, 0x01}},
	}
	for _, tt := range tests {
		got, err := parseHex(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseHex("07 1")
	assert.ErrorContains(t, err, "invalid hex payload")
}

func TestDecode(t *testing.T) {
	var out bytes.Buffer
	d := decoder{out: &out, export: true}
	require.NoError(t, d.decode(captured))

	report := out.String()
	assert.Contains(t, report, "Left Battery: 90\n")
	assert.Contains(t, report, "Right Battery: 90\n")
	assert.Contains(t, report, "Lid Opened: true\n")
	assert.Contains(t, report, "Redacted Record: 0719012720"+"0b998f110005"+strings.Repeat("00", 16)+"\n")
	assert.NotContains(t, report, "63, FC")
}

func TestDecodeRejects(t *testing.T) {
	d := decoder{out: &bytes.Buffer{}}
	assert.ErrorIs(t, d.decode("1005031c"), errNotProximity)
	assert.ErrorContains(t, d.decode("zz"), "invalid hex payload")
}

func TestDecodeWithKey(t *testing.T) {
	key := []byte("0123456789abcdef")
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	// Right bud broadcasts in the captured header, so byte 1 is the right bud.
	plain := []byte{0x00, 0x80 | 45, 62, 101, 0x2D, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	tail := make([]byte, 16)
	block.Encrypt(tail, plain)
	payload := "07190127200b998f110005" + hex.EncodeToString(tail)

	var out bytes.Buffer
	d := decoder{out: &out, key: key}
	require.NoError(t, d.decode(payload))
	assert.Contains(t, out.String(), "Precise Battery: left 62%, right 45% (charging), case --\n")
	assert.Contains(t, out.String(), "Desensitized Payload: [00, 00,")
}

func TestDecodeWrongKey(t *testing.T) {
	var out bytes.Buffer
	d := decoder{out: &out, key: make([]byte, 16)}
	require.NoError(t, d.decode(captured))
	assert.Contains(t, out.String(), "Decryption: decryption validation failed")
}

func TestDecodeLines(t *testing.T) {
	input := strings.Join([]string{
		"# captured with btmon",
		captured,
		"",
		"1005031c",
		captured,
	}, "\n")

	var out bytes.Buffer
	failed, err := decoder{out: &out}.decodeLines(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, strings.Count(out.String(), "AirPods Debug Info:"))
}
