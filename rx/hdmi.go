package rx

import "github.com/sensics/cros-chameleon/i2c"

// HDMI receiver registers.
const (
	hdmiRegCtrl    = 0x00
	hdmiRegStatus  = 0x01
	hdmiRegReset   = 0x02
	hdmiRegHdcp    = 0x03
	hdmiRegWidthH  = 0x10
	hdmiRegWidthL  = 0x11
	hdmiRegHeightH = 0x12
	hdmiRegHeightL = 0x13
	// Measured pixel clock in units of 10 kHz, big-endian.
	hdmiRegPclkH = 0x14
	hdmiRegPclkL = 0x15

	hdmiBitDualPixel = 1 << 1

	hdmiBitCablePowered = 1 << 0
	hdmiBitInputStable  = 1 << 1
	// The chip latches this when it lost its state after a mode change or
	// power event and wants a soft reset.
	hdmiBitResetNeeded = 1 << 2

	hdmiBitReset = 1 << 0

	hdmiBitHdcpEnable    = 1 << 0
	hdmiBitHdcpEncrypted = 1 << 1
)

// A HdmiRx drives the HDMI receiver chip.
type HdmiRx struct {
	slave i2c.Slave
}

// NewHdmiRx returns the handle for the HDMI receiver.
func NewHdmiRx(bus i2c.Bus) *HdmiRx {
	return &HdmiRx{slave: bus.GetSlave(HdmiRxAddr)}
}

// Initialize programs the initial pixel mode.
func (r *HdmiRx) Initialize(dualPixelMode bool) {
	if dualPixelMode {
		r.SetDualPixelMode()
	} else {
		r.SetSinglePixelMode()
	}
}

// IsCablePowered reports whether the source drives the +5V power pin.
func (r *HdmiRx) IsCablePowered() bool {
	return i2c.GetByte(r.slave, hdmiRegStatus)&hdmiBitCablePowered != 0
}

// IsVideoInputStable reports whether the receiver sees a stable stream.
func (r *HdmiRx) IsVideoInputStable() bool {
	return i2c.GetByte(r.slave, hdmiRegStatus)&hdmiBitInputStable != 0
}

// GetFrameResolution returns the active video timing the receiver measured.
func (r *HdmiRx) GetFrameResolution() (int, int) {
	raw := r.slave.Get(hdmiRegWidthH, 4)
	width := int(raw[0])<<8 | int(raw[1])
	height := int(raw[2])<<8 | int(raw[3])
	return width, height
}

// GetPixelClock returns the measured pixel clock in MHz.
func (r *HdmiRx) GetPixelClock() float64 {
	raw := r.slave.Get(hdmiRegPclkH, 2)
	tenKHz := int(raw[0])<<8 | int(raw[1])
	return float64(tenKHz) / 100.0
}

// IsResetNeeded reports whether the chip flagged itself for a soft reset.
func (r *HdmiRx) IsResetNeeded() bool {
	return i2c.GetByte(r.slave, hdmiRegStatus)&hdmiBitResetNeeded != 0
}

// Reset soft-resets the receiver and clears the reset-needed flag.
func (r *HdmiRx) Reset() {
	i2c.SetByteMask(r.slave, hdmiRegReset, hdmiBitReset)
	i2c.ClearByteMask(r.slave, hdmiRegReset, hdmiBitReset)
	i2c.ClearByteMask(r.slave, hdmiRegStatus, hdmiBitResetNeeded)
}

// SetDualPixelMode splits the stream over both output lanes, alternating
// pixels.
func (r *HdmiRx) SetDualPixelMode() {
	i2c.SetByteMask(r.slave, hdmiRegCtrl, hdmiBitDualPixel)
}

// SetSinglePixelMode puts the full stream on the primary output lane.
func (r *HdmiRx) SetSinglePixelMode() {
	i2c.ClearByteMask(r.slave, hdmiRegCtrl, hdmiBitDualPixel)
}

// SetContentProtection enables or disables HDCP on the receiver.
func (r *HdmiRx) SetContentProtection(enabled bool) {
	if enabled {
		i2c.SetByteMask(r.slave, hdmiRegHdcp, hdmiBitHdcpEnable)
	} else {
		i2c.ClearByteMask(r.slave, hdmiRegHdcp, hdmiBitHdcpEnable)
	}
}

// IsContentProtectionEnabled reports whether HDCP is enabled.
func (r *HdmiRx) IsContentProtectionEnabled() bool {
	return i2c.GetByte(r.slave, hdmiRegHdcp)&hdmiBitHdcpEnable != 0
}

// IsVideoInputEncrypted reports whether the incoming stream is HDCP
// encrypted.
func (r *HdmiRx) IsVideoInputEncrypted() bool {
	return i2c.GetByte(r.slave, hdmiRegHdcp)&hdmiBitHdcpEncrypted != 0
}

// Dump returns the receiver register file for diagnostics.
func (r *HdmiRx) Dump() []byte {
	return dumpSlave(r.slave)
}
