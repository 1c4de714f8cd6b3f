// Package edid provides the per-connector EDID emulators. The HDMI and VGA
// connectors latch their EDID through the FPGA EDID controllers; the
// DisplayPort connectors answer DDC out of the receiver chip itself.
package edid

import (
	"fmt"

	"github.com/sensics/cros-chameleon/fpga"
	"github.com/sensics/cros-chameleon/rx"
)

// Size is the exact size of an emulated EDID block.
const Size = fpga.EdidSize

// An Emulator emulates the EDID of one connector.
type Emulator interface {
	// Enable makes the connector answer DDC reads.
	Enable()

	// Disable makes DDC reads fail, emulating a sink without EDID.
	Disable()

	// WriteEdid latches a new 256-byte EDID block.
	WriteEdid(data []byte) error

	// ReadEdid returns the currently latched block.
	ReadEdid() []byte
}

// A DpEdid emulates EDID through a DisplayPort receiver's EDID SRAM.
type DpEdid struct {
	rx rx.DpReceiver
}

// NewDpEdid creates the emulator for a DP receiver.
func NewDpEdid(receiver rx.DpReceiver) *DpEdid {
	return &DpEdid{rx: receiver}
}

func (e *DpEdid) Enable() {
	e.rx.SetEdidEnabled(true)
}

func (e *DpEdid) Disable() {
	e.rx.SetEdidEnabled(false)
}

func (e *DpEdid) WriteEdid(data []byte) error {
	if len(data) != Size {
		return fmt.Errorf("EDID must be %d bytes, got %d", Size, len(data))
	}
	e.rx.WriteEdid(data)
	return nil
}

func (e *DpEdid) ReadEdid() []byte {
	return e.rx.ReadEdid()
}

// A ControllerEdid emulates EDID through one of the FPGA EDID controllers
// (HDMI and VGA connector families).
type ControllerEdid struct {
	ctrl *fpga.EdidController
}

// NewControllerEdid creates the emulator over an FPGA EDID controller.
func NewControllerEdid(ctrl *fpga.EdidController) *ControllerEdid {
	return &ControllerEdid{ctrl: ctrl}
}

func (e *ControllerEdid) Enable() {
	e.ctrl.Enable()
}

func (e *ControllerEdid) Disable() {
	e.ctrl.Disable()
}

func (e *ControllerEdid) WriteEdid(data []byte) error {
	return e.ctrl.WriteEdid(data)
}

func (e *ControllerEdid) ReadEdid() []byte {
	return e.ctrl.ReadEdid()
}
