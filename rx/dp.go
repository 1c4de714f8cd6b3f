package rx

import "github.com/sensics/cros-chameleon/i2c"

// DP receiver registers.
const (
	dpRegCtrl       = 0x00
	dpRegStatus     = 0x01
	dpRegVideoReset = 0x02
	dpRegWidthH     = 0x10
	dpRegWidthL     = 0x11
	dpRegHeightH    = 0x12
	dpRegHeightL    = 0x13

	dpBitDualPixel  = 1 << 1
	dpBitEdidEnable = 1 << 2

	dpBitCablePowered = 1 << 0
	dpBitInputStable  = 1 << 1

	dpBitVideoReset = 1 << 0
)

const edidSize = 256

// A DpRx drives one of the two DisplayPort receiver chips.
type DpRx struct {
	slave i2c.Slave
	edid  i2c.Slave
}

// NewDpRx returns the handle for the DP receiver at the given control and
// EDID SRAM addresses.
func NewDpRx(bus i2c.Bus, rxAddr, edidAddr byte) *DpRx {
	return &DpRx{
		slave: bus.GetSlave(rxAddr),
		edid:  bus.GetSlave(edidAddr),
	}
}

// Initialize programs the pixel mode. The DP receivers always run single
// pixel mode on this board; the argument is kept for symmetry with HDMI.
func (r *DpRx) Initialize(dualPixelMode bool) {
	if dualPixelMode {
		i2c.SetByteMask(r.slave, dpRegCtrl, dpBitDualPixel)
	} else {
		i2c.ClearByteMask(r.slave, dpRegCtrl, dpBitDualPixel)
	}
}

// IsCablePowered reports whether the source drives the +3.3V cable power
// pin.
func (r *DpRx) IsCablePowered() bool {
	return i2c.GetByte(r.slave, dpRegStatus)&dpBitCablePowered != 0
}

// IsVideoInputStable reports whether the receiver sees a stable stream.
func (r *DpRx) IsVideoInputStable() bool {
	return i2c.GetByte(r.slave, dpRegStatus)&dpBitInputStable != 0
}

// GetFrameResolution returns the active video timing the receiver measured.
func (r *DpRx) GetFrameResolution() (int, int) {
	raw := r.slave.Get(dpRegWidthH, 4)
	width := int(raw[0])<<8 | int(raw[1])
	height := int(raw[2])<<8 | int(raw[3])
	return width, height
}

// ResetVideoLogic pulses the video datapath reset. The link training state
// is preserved.
func (r *DpRx) ResetVideoLogic() {
	i2c.SetByteMask(r.slave, dpRegVideoReset, dpBitVideoReset)
	i2c.ClearByteMask(r.slave, dpRegVideoReset, dpBitVideoReset)
}

// WriteEdid loads the EDID SRAM the receiver answers DDC reads from.
func (r *DpRx) WriteEdid(data []byte) {
	r.edid.Set(0, data)
}

// ReadEdid returns the EDID SRAM content.
func (r *DpRx) ReadEdid() []byte {
	return r.edid.Get(0, edidSize)
}

// SetEdidEnabled gates whether the receiver answers DDC reads at all.
func (r *DpRx) SetEdidEnabled(enabled bool) {
	if enabled {
		i2c.SetByteMask(r.slave, dpRegCtrl, dpBitEdidEnable)
	} else {
		i2c.ClearByteMask(r.slave, dpRegCtrl, dpBitEdidEnable)
	}
}

// Dump returns the receiver register file for diagnostics.
func (r *DpRx) Dump() []byte {
	return dumpSlave(r.slave)
}
