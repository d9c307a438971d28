// Package proximity decodes Apple Continuity "Proximity Pairing" advertisements.
//
// AirPods and related accessories broadcast a 27-byte record in the manufacturer
// data of their BLE advertisements (company ID 0x004C). The record carries the
// device model, battery levels for both buds and the case, charging state,
// in-ear detection and the lid state:
//
//	Offset  Size  Field
//	0       1     packet type (0x07)
//	1       1     remaining length (0x19)
//	2       1     reserved
//	3       2     model ID (little-endian)
//	5       1     status flags
//	6       2     battery levels and charging bits
//	8       1     lid
//	9       1     colour
//	10      1     reserved
//	11      16    encrypted tail
//
// The battery and in-ear fields describe the "current" (broadcasting) bud and
// the "other" bud; Record resolves them to physical left and right using the
// broadcast-side flag.
//
// Everything in this package is a pure function of its input and safe for
// concurrent use.
package proximity

import "encoding/binary"

const (
	// AppleCompanyID is the Bluetooth SIG company identifier for Apple.
	AppleCompanyID uint16 = 0x004C

	// RecordSize is the length of a proximity pairing record.
	RecordSize = 27

	// TailSize is the length of the trailing encrypted region.
	TailSize = 16

	remainingLength = RecordSize - 2
)

const (
	offType      = 0
	offLength    = 1
	offReserved1 = 2
	offModel     = 3
	offFlags     = 5
	offBattery   = 6
	offLid       = 8
	offColor     = 9
	offReserved2 = 10
	offTail      = 11
)

// Record is a decoded proximity pairing advertisement.
type Record struct {
	PacketType      PacketType
	RemainingLength uint8
	Reserved1       uint8
	ModelID         uint16
	Flags           Flags
	Battery         BatteryStatus
	Lid             LidStatus
	Color           Color
	Reserved2       uint8
	Tail            [TailSize]byte
}

// IsValid reports whether data has the exact size and header of a proximity
// pairing record.
func IsValid(data []byte) bool {
	if len(data) != RecordSize {
		return false
	}
	return data[offType] == byte(PacketTypeProximityPairing) && data[offLength] == remainingLength
}

// Decode parses data as a proximity pairing record. It returns false for any
// input that is not one; foreign and malformed advertisements are routine and
// not an error.
func Decode(data []byte) (Record, bool) {
	if !IsValid(data) {
		return Record{}, false
	}

	r := Record{
		PacketType:      PacketTypeFromByte(data[offType]),
		RemainingLength: data[offLength],
		Reserved1:       data[offReserved1],
		ModelID:         binary.LittleEndian.Uint16(data[offModel : offModel+2]),
		Flags:           Flags(data[offFlags]),
		Battery: BatteryStatus{
			Bits:  data[offBattery],
			Extra: data[offBattery+1],
		},
		Lid:       LidStatus(data[offLid]),
		Color:     ColorFromByte(data[offColor]),
		Reserved2: data[offReserved2],
	}
	copy(r.Tail[:], data[offTail:offTail+TailSize])

	return r, true
}

// Bytes encodes the record back into its 27-byte wire form. Colour and packet
// type are written in their normalised form.
func (r Record) Bytes() []byte {
	buf := make([]byte, RecordSize)
	buf[offType] = byte(r.PacketType)
	buf[offLength] = r.RemainingLength
	buf[offReserved1] = r.Reserved1
	binary.LittleEndian.PutUint16(buf[offModel:offModel+2], r.ModelID)
	buf[offFlags] = byte(r.Flags)
	buf[offBattery] = r.Battery.Bits
	buf[offBattery+1] = r.Battery.Extra
	buf[offLid] = byte(r.Lid)
	buf[offColor] = byte(r.Color)
	buf[offReserved2] = r.Reserved2
	copy(buf[offTail:], r.Tail[:])
	return buf
}

// Redact returns a copy of r with the tail zeroed. The tail may carry
// device-identifying data and must be redacted before display or export.
func (r Record) Redact() Record {
	r.Tail = [TailSize]byte{}
	return r
}

// Model resolves ModelID.
func (r Record) Model() Model {
	return ModelFor(r.ModelID)
}
