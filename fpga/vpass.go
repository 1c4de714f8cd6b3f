package fpga

import (
	"github.com/sensics/cros-chameleon/ids"
	"github.com/sensics/cros-chameleon/memory"
)

const vpassRegCtrl uint32 = 0xff21d004

const (
	vpassBitDataA uint32 = 0
	vpassBitDataB uint32 = 1 << 0
	vpassBitClkA  uint32 = 0
	vpassBitClkB  uint32 = 1 << 1
)

// One lookup value per port selecting which of the two physical clock/data
// lanes feeds the analog pass-through output.
var vpassCtrlValues = map[ids.PortID]uint32{
	ids.DP1:  vpassBitClkA | vpassBitDataA,
	ids.DP2:  vpassBitClkB | vpassBitDataB,
	ids.HDMI: vpassBitClkB | vpassBitDataA,
	ids.VGA:  vpassBitClkA | vpassBitDataA,
}

// A VideoPasser selects which connector feeds the video pass-through output
// on the main board.
type VideoPasser struct {
	bank memory.RegisterBank
}

// NewVideoPasser creates a VideoPasser on the given register bank.
func NewVideoPasser(bank memory.RegisterBank) *VideoPasser {
	return &VideoPasser{bank: bank}
}

// Select wires the given port through to the pass-through output.
func (p *VideoPasser) Select(port ids.PortID) {
	p.bank.Write(vpassRegCtrl, vpassCtrlValues[port])
}
