package fpga

import (
	"fmt"
	"time"

	"github.com/sensics/cros-chameleon/ids"
	"github.com/sensics/cros-chameleon/memory"
)

const hpdBase uint32 = 0xff21a000

var hpdOffsets = map[ids.PortID]uint32{
	ids.DP1:  0x4,
	ids.DP2:  0x8,
	ids.HDMI: 0xc,
}

const (
	hpdBitUnplug uint32 = 0
	hpdBitPlug   uint32 = 1
)

// A HpdController drives the per-port hot-plug-detect lines.
type HpdController struct {
	bank memory.RegisterBank
}

// NewHpdController creates a HpdController on the given register bank.
func NewHpdController(bank memory.RegisterBank) *HpdController {
	return &HpdController{bank: bank}
}

func (c *HpdController) addr(port ids.PortID) uint32 {
	offset, ok := hpdOffsets[port]
	if !ok {
		panic(fmt.Sprintf("port %s has no HPD line", port))
	}
	return hpdBase + offset
}

// IsPlugged returns whether the HPD line is asserted.
func (c *HpdController) IsPlugged(port ids.PortID) bool {
	return c.bank.Read(c.addr(port)) == hpdBitPlug
}

// Plug asserts the HPD line to high, emulating a plug.
func (c *HpdController) Plug(port ids.PortID) {
	c.bank.Write(c.addr(port), hpdBitPlug)
}

// Unplug deasserts the HPD line to low, emulating an unplug.
func (c *HpdController) Unplug(port ids.PortID) {
	c.bank.Write(c.addr(port), hpdBitUnplug)
}

// FireHpdPulse fires repeatCount HPD pulses (low -> high -> low -> ...) and
// leaves the line at endLevel (0 for low, 1 for high). assertUsec zero
// falls back to deassertUsec.
//
// The pulses are generated by direct timed register toggles, so the widths
// are best effort: they are bounded below by the requested duration and
// above by scheduling latency, not cycle exact.
func (c *HpdController) FireHpdPulse(
	port ids.PortID,
	deassertUsec, assertUsec int,
	repeatCount, endLevel int,
) {
	if assertUsec == 0 {
		assertUsec = deassertUsec
	}

	for i := 0; i < repeatCount; i++ {
		c.Unplug(port)
		time.Sleep(time.Duration(deassertUsec) * time.Microsecond)
		c.Plug(port)
		time.Sleep(time.Duration(assertUsec) * time.Microsecond)
	}

	if endLevel == 0 {
		c.Unplug(port)
	}
}
