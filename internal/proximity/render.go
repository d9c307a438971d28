package proximity

import (
	"fmt"
	"strings"
)

// Render formats a diagnostic report for r. The tail is always redacted
// before it is printed.
func Render(r Record) string {
	r = r.Redact()

	var sb strings.Builder
	sb.WriteString("AirPods Debug Info:\n")
	fmt.Fprintf(&sb, "Model: %s\n", r.Model())
	fmt.Fprintf(&sb, "Packet Type: %s\n", r.PacketType)
	fmt.Fprintf(&sb, "Remaining Length: %d\n", r.RemainingLength)
	fmt.Fprintf(&sb, "Color: %s\n", r.Color)
	fmt.Fprintf(&sb, "Left Battery: %d%s\n", r.LeftBattery(), chargingSuffix(r.LeftCharging()))
	fmt.Fprintf(&sb, "Right Battery: %d%s\n", r.RightBattery(), chargingSuffix(r.RightCharging()))
	fmt.Fprintf(&sb, "Case Battery: %d%s\n", r.CaseBattery(), chargingSuffix(r.CaseCharging()))
	fmt.Fprintf(&sb, "Both in Case: %t\n", r.BothInCase())
	fmt.Fprintf(&sb, "Lid Opened: %t\n", r.LidOpen())
	fmt.Fprintf(&sb, "Left In Ear: %t\n", r.LeftInEar())
	fmt.Fprintf(&sb, "Right In Ear: %t\n", r.RightInEar())
	fmt.Fprintf(&sb, "Desensitized Payload: %s", hexList(r.Tail[:]))
	return sb.String()
}

func chargingSuffix(charging bool) string {
	if charging {
		return " (charging)"
	}
	return ""
}

// hexList prints bytes as "[0A, FF, ...]".
func hexList(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
