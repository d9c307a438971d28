package proximity

// PacketType is the Apple Continuity message type carried in the first byte
// of the manufacturer data.
type PacketType uint8

const (
	PacketTypeAirPrint                     PacketType = 0x03
	PacketTypeAirDrop                      PacketType = 0x05
	PacketTypeHomeKit                      PacketType = 0x06
	PacketTypeProximityPairing             PacketType = 0x07
	PacketTypeHeySiri                      PacketType = 0x08
	PacketTypeAirPlay                      PacketType = 0x09
	PacketTypeMagicSwitch                  PacketType = 0x0B
	PacketTypeHandoff                      PacketType = 0x0C
	PacketTypeInstantHotspotTargetPresence PacketType = 0x0D
	PacketTypeInstantHotspotSourcePresence PacketType = 0x0E
	PacketTypeNearbyAction                 PacketType = 0x0F
	PacketTypeNearbyInfo                   PacketType = 0x10
	PacketTypeUnknown                      PacketType = 0xFF
)

// PacketTypeFromByte maps a raw type code to its PacketType. Codes outside
// the known set map to PacketTypeUnknown.
func PacketTypeFromByte(b byte) PacketType {
	switch t := PacketType(b); t {
	case PacketTypeAirPrint, PacketTypeAirDrop, PacketTypeHomeKit,
		PacketTypeProximityPairing, PacketTypeHeySiri, PacketTypeAirPlay,
		PacketTypeMagicSwitch, PacketTypeHandoff,
		PacketTypeInstantHotspotTargetPresence, PacketTypeInstantHotspotSourcePresence,
		PacketTypeNearbyAction, PacketTypeNearbyInfo:
		return t
	default:
		return PacketTypeUnknown
	}
}

func (t PacketType) String() string {
	switch t {
	case PacketTypeAirPrint:
		return "AirPrint"
	case PacketTypeAirDrop:
		return "AirDrop"
	case PacketTypeHomeKit:
		return "HomeKit"
	case PacketTypeProximityPairing:
		return "ProximityPairing"
	case PacketTypeHeySiri:
		return "HeySiri"
	case PacketTypeAirPlay:
		return "AirPlay"
	case PacketTypeMagicSwitch:
		return "MagicSwitch"
	case PacketTypeHandoff:
		return "Handoff"
	case PacketTypeInstantHotspotTargetPresence:
		return "InstantHotspotTargetPresence"
	case PacketTypeInstantHotspotSourcePresence:
		return "InstantHotspotSourcePresence"
	case PacketTypeNearbyAction:
		return "NearbyAction"
	case PacketTypeNearbyInfo:
		return "NearbyInfo"
	default:
		return "Unknown"
	}
}

// Color is the housing colour reported by the accessory.
type Color uint8

const (
	ColorWhite     Color = 0x00
	ColorBlack     Color = 0x01
	ColorRed       Color = 0x02
	ColorBlue      Color = 0x03
	ColorPink      Color = 0x04
	ColorGray      Color = 0x05
	ColorSilver    Color = 0x06
	ColorGold      Color = 0x07
	ColorRoseGold  Color = 0x08
	ColorSpaceGray Color = 0x09
	ColorDarkBlue  Color = 0x0A
	ColorLightBlue Color = 0x0B
	ColorYellow    Color = 0x0C
	ColorUnknown   Color = 0xFF
)

// ColorFromByte maps a raw colour code to its Color, or ColorUnknown.
func ColorFromByte(b byte) Color {
	if b <= byte(ColorYellow) {
		return Color(b)
	}
	return ColorUnknown
}

func (c Color) String() string {
	switch c {
	case ColorWhite:
		return "White"
	case ColorBlack:
		return "Black"
	case ColorRed:
		return "Red"
	case ColorBlue:
		return "Blue"
	case ColorPink:
		return "Pink"
	case ColorGray:
		return "Gray"
	case ColorSilver:
		return "Silver"
	case ColorGold:
		return "Gold"
	case ColorRoseGold:
		return "RoseGold"
	case ColorSpaceGray:
		return "SpaceGray"
	case ColorDarkBlue:
		return "DarkBlue"
	case ColorLightBlue:
		return "LightBlue"
	case ColorYellow:
		return "Yellow"
	default:
		return "Unknown"
	}
}

// Model identifies the accessory family.
type Model int

const (
	ModelUnknown Model = iota
	ModelAirPods1
	ModelAirPods2
	ModelAirPods3
	ModelAirPodsPro
	ModelAirPodsPro2
	ModelAirPodsPro2USBC
	ModelAirPodsMax
)

var modelIDs = map[uint16]Model{
	0x2002: ModelAirPods1,
	0x200F: ModelAirPods2,
	0x2013: ModelAirPods3,
	0x200E: ModelAirPodsPro,
	0x2014: ModelAirPodsPro2,
	0x2024: ModelAirPodsPro2USBC,
	0x200A: ModelAirPodsMax,
}

// ModelFor returns the model for a device model code, or ModelUnknown.
func ModelFor(id uint16) Model {
	if m, ok := modelIDs[id]; ok {
		return m
	}
	return ModelUnknown
}

func (m Model) String() string {
	switch m {
	case ModelAirPods1:
		return "AirPods 1"
	case ModelAirPods2:
		return "AirPods 2"
	case ModelAirPods3:
		return "AirPods 3"
	case ModelAirPodsPro:
		return "AirPods Pro"
	case ModelAirPodsPro2:
		return "AirPods Pro 2"
	case ModelAirPodsPro2USBC:
		return "AirPods Pro 2 (USB-C)"
	case ModelAirPodsMax:
		return "AirPods Max"
	default:
		return "Unknown"
	}
}

// Side is a physical earbud.
type Side int

const (
	SideUnknown Side = iota
	SideLeft
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "Left"
	case SideRight:
		return "Right"
	default:
		return "Unknown"
	}
}
