// Package ids defines the identifiers shared across the Chameleon driver.
package ids

// PortID identifies a connector on the Chameleon board.
type PortID int

// IDs of ports.
const (
	DP1 PortID = iota + 1
	DP2
	HDMI
	VGA
)

// VideoPorts lists the connectors that carry video.
var VideoPorts = []PortID{DP1, DP2, HDMI, VGA}

var portNames = map[PortID]string{
	DP1:  "DP1",
	DP2:  "DP2",
	HDMI: "HDMI",
	VGA:  "VGA",
}

func (p PortID) String() string {
	if name, ok := portNames[p]; ok {
		return name
	}
	return "Unknown"
}

// ParsePort maps a connector name ("DP1", "DP2", "HDMI", "VGA") back to its
// port id.
func ParsePort(name string) (PortID, bool) {
	for port, portName := range portNames {
		if portName == name {
			return port, true
		}
	}
	return 0, false
}

// IsVideoPort returns whether the port carries video.
func (p PortID) IsVideoPort() bool {
	for _, v := range VideoPorts {
		if p == v {
			return true
		}
	}
	return false
}

// HasHpdLine returns whether the port has a physical hot-plug-detect line.
// VGA emulates plugging by unblocking the analog source instead.
func (p PortID) HasHpdLine() bool {
	return p == DP1 || p == DP2 || p == HDMI
}

// IDs of EDIDs.
const (
	// EdidIDDefault is the reserved slot holding the factory-default EDID.
	EdidIDDefault = 0
	// EdidIDDisable requests that EDID emulation be turned off.
	EdidIDDisable = -1
)
