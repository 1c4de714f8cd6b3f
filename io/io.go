// Package io drives the IO expanders on the main I2C bus that control
// muxing, DDC bypass, and receiver power.
package io

import (
	"time"

	"github.com/sensics/cros-chameleon/i2c"
	"github.com/sensics/cros-chameleon/ids"
)

// MuxIoAddr is the slave address of the mux IO expander.
const MuxIoAddr byte = 0x20

// PowerIoAddr is the slave address of the power-control IO expander.
const PowerIoAddr byte = 0x21

// Mux IO expander registers.
const (
	regMuxOutput = 0x02
	regMuxSelect = 0x03
)

// Routing configurations for the video muxes. One flow is wired through at a
// time; the dual-pixel variants are used even in single-pixel mode as the
// board does not support two concurrent flows.
const (
	ConfigDp1Dual  byte = 0x10
	ConfigDp2Dual  byte = 0x20
	ConfigHdmiDual byte = 0x30
	ConfigVga      byte = 0x40
)

// Output line masks on the mux IO expander. The bypass lines are active-low.
const (
	MaskDp1AuxBypassL  byte = 1 << 0
	MaskDp2AuxBypassL  byte = 1 << 1
	MaskHdmiDdcBypassL byte = 1 << 2
	MaskVgaBlockSource byte = 1 << 3
)

// A MuxIo selects which connector is wired through to the FPGA and gates the
// DDC/AUX side channels.
type MuxIo struct {
	slave i2c.Slave
}

// NewMuxIo returns the mux IO expander on the given bus.
func NewMuxIo(bus i2c.Bus) *MuxIo {
	return &MuxIo{slave: bus.GetSlave(MuxIoAddr)}
}

// SetConfig programs the video mux routing.
func (m *MuxIo) SetConfig(config byte) {
	i2c.SetByte(m.slave, regMuxSelect, config)
}

// GetOutput returns the current state of the output lines.
func (m *MuxIo) GetOutput() byte {
	return i2c.GetByte(m.slave, regMuxOutput)
}

// SetOutputMask raises the given output lines.
func (m *MuxIo) SetOutputMask(mask byte) {
	i2c.SetByteMask(m.slave, regMuxOutput, mask)
}

// ClearOutputMask lowers the given output lines.
func (m *MuxIo) ClearOutputMask(mask byte) {
	i2c.ClearByteMask(m.slave, regMuxOutput, mask)
}

// Power IO expander registers.
const regPowerOutput = 0x02

// Receiver reset lines, active-low.
var receiverResetMasks = map[ids.PortID]byte{
	ids.DP1:  1 << 0,
	ids.DP2:  1 << 1,
	ids.HDMI: 1 << 2,
	ids.VGA:  1 << 3,
}

const receiverResetPulse = 100 * time.Millisecond

// A PowerIo controls the receiver power and reset lines.
type PowerIo struct {
	slave i2c.Slave
}

// NewPowerIo returns the power IO expander on the given bus.
func NewPowerIo(bus i2c.Bus) *PowerIo {
	return &PowerIo{slave: bus.GetSlave(PowerIoAddr)}
}

// ResetReceiver pulses the reset line of the receiver serving the given
// port.
func (p *PowerIo) ResetReceiver(port ids.PortID) {
	mask := receiverResetMasks[port]
	i2c.ClearByteMask(p.slave, regPowerOutput, mask)
	time.Sleep(receiverResetPulse)
	i2c.SetByteMask(p.slave, regPowerOutput, mask)
}
