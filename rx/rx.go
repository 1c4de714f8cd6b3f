// Package rx wraps the video receiver chips sitting in front of the FPGA.
// Each receiver is an I2C slave on the main bus; this package gives the
// input flows a typed handle per connector family.
package rx

import "github.com/sensics/cros-chameleon/i2c"

// Receiver slave addresses on the main bus.
const (
	Dp1RxAddr  byte = 0x58
	Dp2RxAddr  byte = 0x59
	HdmiRxAddr byte = 0x48
	VgaRxAddr  byte = 0x4c
)

// EDID SRAM companion addresses for the DP receivers. The receiver answers
// DDC reads out of this memory, separate from its control registers.
const (
	Dp1EdidAddr byte = 0x5c
	Dp2EdidAddr byte = 0x5d
)

// dumpLen is how much of the register file receiver diagnostics cover.
const dumpLen = 256

// A Receiver is the capability set every receiver handle shares.
type Receiver interface {
	// Dump returns the first 256 registers for failure diagnostics.
	Dump() []byte
}

// A DpReceiver is the handle for a DisplayPort receiver chip.
type DpReceiver interface {
	Receiver

	Initialize(dualPixelMode bool)
	IsCablePowered() bool
	IsVideoInputStable() bool
	GetFrameResolution() (width, height int)

	// ResetVideoLogic resets the video datapath of the receiver without
	// dropping the link.
	ResetVideoLogic()

	WriteEdid(data []byte)
	ReadEdid() []byte
	SetEdidEnabled(enabled bool)
}

// A HdmiReceiver is the handle for the HDMI receiver chip.
type HdmiReceiver interface {
	Receiver

	Initialize(dualPixelMode bool)
	IsCablePowered() bool
	IsVideoInputStable() bool
	GetFrameResolution() (width, height int)

	// GetPixelClock returns the measured pixel clock in MHz.
	GetPixelClock() float64

	IsResetNeeded() bool
	Reset()
	SetDualPixelMode()
	SetSinglePixelMode()

	SetContentProtection(enabled bool)
	IsContentProtectionEnabled() bool
	IsVideoInputEncrypted() bool
}

// A VgaReceiver is the handle for the VGA (analog) receiver chip.
type VgaReceiver interface {
	Receiver

	Initialize()

	// IsSyncDetected reports whether H-Sync/V-Sync is seen from the source.
	IsSyncDetected() bool

	// SetMode programs a fixed analog timing, e.g. "1024x768@60".
	SetMode(mode string) error

	// DetectMode reads the timing the receiver measured from the source.
	DetectMode() string
}

func dumpSlave(s i2c.Slave) []byte {
	return s.Get(0, dumpLen)
}
