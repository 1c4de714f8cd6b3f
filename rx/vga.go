package rx

import (
	"fmt"

	"github.com/sensics/cros-chameleon/i2c"
)

// VGA receiver registers.
const (
	vgaRegCtrl     = 0x00
	vgaRegStatus   = 0x01
	vgaRegMode     = 0x04
	vgaRegModeMeas = 0x05

	vgaBitSyncDetected = 1 << 0
)

// Analog timings the receiver can be programmed to. The measured-mode
// register reports the same codes.
var vgaModeCodes = map[string]byte{
	"640x480@60":   0x01,
	"800x600@60":   0x02,
	"1024x768@60":  0x03,
	"1280x1024@60": 0x04,
	"1600x1200@60": 0x05,
	"1920x1080@60": 0x06,
}

// A VgaRx drives the analog (VGA) receiver chip.
type VgaRx struct {
	slave i2c.Slave
}

// NewVgaRx returns the handle for the VGA receiver.
func NewVgaRx(bus i2c.Bus) *VgaRx {
	return &VgaRx{slave: bus.GetSlave(VgaRxAddr)}
}

// Initialize puts the receiver into its power-on state.
func (r *VgaRx) Initialize() {
	i2c.SetByte(r.slave, vgaRegCtrl, 0)
}

// IsSyncDetected reports whether H-Sync/V-Sync is received from the source.
func (r *VgaRx) IsSyncDetected() bool {
	return i2c.GetByte(r.slave, vgaRegStatus)&vgaBitSyncDetected != 0
}

// SetMode programs a fixed analog timing.
func (r *VgaRx) SetMode(mode string) error {
	code, ok := vgaModeCodes[mode]
	if !ok {
		return fmt.Errorf("unknown VGA mode %q", mode)
	}

	i2c.SetByte(r.slave, vgaRegMode, code)

	return nil
}

// DetectMode returns the timing the receiver measured from the source, or
// an empty string if it does not match a known mode.
func (r *VgaRx) DetectMode() string {
	code := i2c.GetByte(r.slave, vgaRegModeMeas)
	for mode, c := range vgaModeCodes {
		if c == code {
			return mode
		}
	}
	return ""
}

// Dump returns the receiver register file for diagnostics.
func (r *VgaRx) Dump() []byte {
	return dumpSlave(r.slave)
}
