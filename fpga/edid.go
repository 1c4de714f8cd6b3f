package fpga

import (
	"encoding/binary"
	"fmt"

	"github.com/sensics/cros-chameleon/memory"
)

// EDID controller register bases per connector family.
const (
	EdidHdmiBase uint32 = 0xff217000
	EdidVgaBase  uint32 = 0xff219000
)

const (
	edidRegCtrl    uint32 = 0x0
	edidBitReset   uint32 = 0
	edidBitOperate uint32 = 1

	edidMemOffset uint32 = 0x100
)

// EdidSize is the exact size of an emulated EDID block.
const EdidSize = 256

// An EdidController emulates the EDID of a display sink through a dedicated
// register-mapped memory window.
type EdidController struct {
	bank memory.RegisterBank
	base uint32
}

// NewEdidController creates an EDID controller at the given register base.
func NewEdidController(bank memory.RegisterBank, base uint32) *EdidController {
	return &EdidController{bank: bank, base: base}
}

// WriteEdid loads the 256-byte EDID block, four bytes at a time big-endian,
// then asserts the operate strobe to latch it.
func (c *EdidController) WriteEdid(data []byte) error {
	if len(data) != EdidSize {
		return fmt.Errorf("EDID must be %d bytes, got %d", EdidSize, len(data))
	}

	for offset := 0; offset < len(data); offset += 4 {
		value := binary.BigEndian.Uint32(data[offset : offset+4])
		c.bank.Write(c.base+edidMemOffset+uint32(offset), value)
	}
	c.bank.Write(c.base+edidRegCtrl, edidBitOperate)

	return nil
}

// ReadEdid returns the EDID block currently latched.
func (c *EdidController) ReadEdid() []byte {
	data := make([]byte, EdidSize)
	for offset := 0; offset < EdidSize; offset += 4 {
		value := c.bank.Read(c.base + edidMemOffset + uint32(offset))
		binary.BigEndian.PutUint32(data[offset:offset+4], value)
	}
	return data
}

// Enable makes the controller answer DDC reads with the latched EDID.
func (c *EdidController) Enable() {
	c.bank.Write(c.base+edidRegCtrl, edidBitOperate)
}

// Disable holds the controller in reset; DDC reads fail while disabled,
// which is the DUT-visible symptom of a sink without EDID.
func (c *EdidController) Disable() {
	c.bank.Write(c.base+edidRegCtrl, edidBitReset)
}
