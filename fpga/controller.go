// Package fpga controls the subsystems of the Chameleon FPGA through its
// memory-mapped registers.
//
// The Controller owns one instance of each subsystem and is the sole channel
// through which input flows touch the hardware:
//
//	ctrl := fpga.NewController(bank)
//	ctrl.Hpd.Plug(ids.DP1)
//	ctrl.VPass.Select(ids.DP1)
package fpga

import "github.com/sensics/cros-chameleon/memory"

// RegWindowBase is the start of the physical register window covering all
// FPGA subsystems.
const RegWindowBase uint32 = 0xff210000

// RegWindowSize is the size of that window.
const RegWindowSize uint32 = 0x0000e000

// A Controller bundles the FPGA subsystems.
type Controller struct {
	Hpd      *HpdController
	VPass    *VideoPasser
	VDump0   *VideoDumper
	VDump1   *VideoDumper
	HdmiEdid *EdidController
	VgaEdid  *EdidController
}

// NewController creates a controller with all subsystems backed by the given
// register bank.
func NewController(bank memory.RegisterBank) *Controller {
	return &Controller{
		Hpd:      NewHpdController(bank),
		VPass:    NewVideoPasser(bank),
		VDump0:   NewVideoDumper(bank, 0),
		VDump1:   NewVideoDumper(bank, 1),
		HdmiEdid: NewEdidController(bank, EdidHdmiBase),
		VgaEdid:  NewEdidController(bank, EdidVgaBase),
	}
}
