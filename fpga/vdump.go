package fpga

import (
	"github.com/sensics/cros-chameleon/ids"
	"github.com/sensics/cros-chameleon/memory"
)

// Register bases for dumper 0 and dumper 1.
var vdumpRegBases = [2]uint32{0xff210000, 0xff211000}

// Control register bits.
const (
	vdumpRegCtrl uint32 = 0x0

	vdumpBitClkNormal uint32 = 0
	vdumpBitClkAlt    uint32 = 1 << 1
	vdumpBitRun       uint32 = 1 << 2
	// Frame capture only proceeds once both dumpers set their run-dual bit,
	// a hardware-enforced barrier for dual-pixel mode.
	vdumpBitRunDual uint32 = 1 << 3
	// Set to generate a 64-bit frame hash; otherwise, 32-bit.
	vdumpBitHash64 uint32 = 1 << 4
	vdumpBitCrop   uint32 = 1 << 5
)

// Capture-memory addressing and timing registers.
const (
	vdumpRegStartAddr  uint32 = 0x8
	vdumpRegEndAddr    uint32 = 0xc
	vdumpRegLoop       uint32 = 0x10
	vdumpRegLimit      uint32 = 0x14
	vdumpRegWidth      uint32 = 0x18
	vdumpRegHeight     uint32 = 0x1c
	vdumpRegFrameCount uint32 = 0x20
	// Crop ranges are packed as end<<16 | start.
	vdumpRegCropXRange uint32 = 0x24
	vdumpRegCropYRange uint32 = 0x28
)

// Frame hash ring buffer. Slots are 4 bytes; indices wrap at the buffer
// size, silently overwriting older hashes.
const (
	vdumpRegHashBufBase uint32 = 0x400
	vdumpHashBufSize    uint32 = 1024
)

// Clock/data lane assignment per port:
//
//	Input                           | DP1 | DP2 | HDMI | VGA |
//	----------------------------------------------------------
//	(1) CLOCK                       | A   | B   | B    | A   |
//	----------------------------------------------------------
//	(2) SINGLE PIXEL DATA           | A   | B   | B    | A   |
//	(3) DUAL PIXEL EVEN PIXELS DATA | A   | B   | A    |     |
//	(4) DUAL PIXEL ODD PIXELS DATA  | B   | A   | B    |     |

// PrimaryDumperIndexes maps each port to the dumper instance that carries
// its single-pixel data.
var PrimaryDumperIndexes = map[ids.PortID]int{
	ids.DP1:  0,
	ids.DP2:  1,
	ids.HDMI: 1,
	ids.VGA:  0,
}

// EvenPixelsDumperIndexes maps each port to the dumper instance that carries
// the even pixels in dual-pixel mode.
var EvenPixelsDumperIndexes = map[ids.PortID]int{
	ids.DP1:  0,
	ids.DP2:  1,
	ids.HDMI: 0,
	ids.VGA:  0,
}

// DumpBaseAddress is the physical base of capture memory.
const DumpBaseAddress uint32 = 0xc0000000

// DumpBufferSize is the per-dumper capture buffer size.
const DumpBufferSize uint32 = 0x1c000000

var dumpStartAddresses = [2]uint32{0x00000000, 0x20000000}

const (
	vdumpDefaultLimit      = 1
	vdumpDefaultEnableLoop = false
)

const (
	bytePerPixel = 3
	pageSize     = 4096
)

// A VideoDumper captures raw pixel frames and per-frame checksums into a
// ring buffer in capture memory. The board has two instances, index 0 and 1.
type VideoDumper struct {
	bank  memory.RegisterBank
	index int
}

// NewVideoDumper creates the dumper with the given instance index (0 or 1).
func NewVideoDumper(bank memory.RegisterBank, index int) *VideoDumper {
	if index != 0 && index != 1 {
		panic("video dumper index must be 0 or 1")
	}
	return &VideoDumper{bank: bank, index: index}
}

// Index returns the dumper instance index.
func (d *VideoDumper) Index() int {
	return d.index
}

func (d *VideoDumper) reg(offset uint32) uint32 {
	return vdumpRegBases[d.index] + offset
}

// EnableCrop limits dumped pixels and checksums to the given rectangle.
func (d *VideoDumper) EnableCrop(x, y, width, height int) {
	right := uint32(x + width)
	bottom := uint32(y + height)
	d.bank.Write(d.reg(vdumpRegCropXRange), right<<16|uint32(x))
	d.bank.Write(d.reg(vdumpRegCropYRange), bottom<<16|uint32(y))
	d.bank.SetMask(d.reg(vdumpRegCtrl), vdumpBitCrop)
}

// DisableCrop reverts to full-frame dumping.
func (d *VideoDumper) DisableCrop() {
	d.bank.ClearMask(d.reg(vdumpRegCtrl), vdumpBitCrop)
}

// Stop stops dumping.
func (d *VideoDumper) Stop() {
	d.bank.ClearMask(d.reg(vdumpRegCtrl), vdumpBitRun|vdumpBitRunDual)
}

// Start starts dumping. In dual-pixel mode it sets the run-dual bit on this
// instance; capture proceeds once both instances have it set. In
// single-pixel mode only the primary instance for the port runs; on the
// other instance the call is a no-op.
func (d *VideoDumper) Start(port ids.PortID, dualPixelMode bool) {
	var bitRun uint32
	switch {
	case dualPixelMode:
		bitRun = vdumpBitRunDual
	case d.index == PrimaryDumperIndexes[port]:
		bitRun = vdumpBitRun
	default:
		return
	}
	d.bank.SetMask(d.reg(vdumpRegCtrl), bitRun)
}

// SetFrameLimit sets the number of frames to dump. With loop set, reaching
// the limit resets the dump pointer to the start address instead of
// stopping.
func (d *VideoDumper) SetFrameLimit(frameLimit int, loop bool) {
	d.bank.Write(d.reg(vdumpRegLimit), uint32(frameLimit))
	loopValue := uint32(0)
	if loop {
		loopValue = 1
	}
	d.bank.Write(d.reg(vdumpRegLoop), loopValue)
}

// Select reconfigures the dumper for the given port and starts it: stop,
// program the capture-memory range, reset limit/loop to the safe default,
// pick the clock lane (alternate lane when this instance is not the primary
// for the port), pick the hash width (64-bit when a single dumper carries
// the whole frame), then start.
func (d *VideoDumper) Select(port ids.PortID, dualPixelMode bool) {
	d.Stop()

	d.bank.Write(d.reg(vdumpRegStartAddr), dumpStartAddresses[d.index])
	d.bank.Write(d.reg(vdumpRegEndAddr),
		dumpStartAddresses[d.index]+DumpBufferSize)
	d.SetFrameLimit(vdumpDefaultLimit, vdumpDefaultEnableLoop)

	ctrlValue := vdumpBitClkNormal
	if d.index != PrimaryDumperIndexes[port] {
		ctrlValue = vdumpBitClkAlt
	}
	if !dualPixelMode {
		ctrlValue |= vdumpBitHash64
	}
	d.bank.Write(d.reg(vdumpRegCtrl), ctrlValue)

	d.Start(port, dualPixelMode)
}

// GetWidth returns the frame width the FPGA measured on the video path.
func (d *VideoDumper) GetWidth() int {
	return int(d.bank.Read(d.reg(vdumpRegWidth)))
}

// GetHeight returns the frame height the FPGA measured on the video path.
func (d *VideoDumper) GetHeight() int {
	return int(d.bank.Read(d.reg(vdumpRegHeight)))
}

// GetFrameCount returns the total count of frames captured so far.
func (d *VideoDumper) GetFrameCount() int {
	return int(d.bank.Read(d.reg(vdumpRegFrameCount)))
}

// GetFrameHash returns the hash of the given frame as big-endian 16-bit
// values. The index may exceed the ring size; the FPGA overwrites old slots
// when the ring wraps, so the caller must drain hashes before that happens.
func (d *VideoDumper) GetFrameHash(index int, dualPixelMode bool) []uint16 {
	hashAddr := func(i int) uint32 {
		return d.reg(vdumpRegHashBufBase) +
			uint32(i*4)%vdumpHashBufSize
	}

	if dualPixelMode {
		hash32 := d.bank.Read(hashAddr(index))
		return []uint16{uint16(hash32 >> 16), uint16(hash32)}
	}

	// Single-pixel frames carry a 64-bit hash across two adjacent slots.
	hash0 := d.bank.Read(hashAddr(index * 2))
	hash1 := d.bank.Read(hashAddr(index*2 + 1))
	return []uint16{
		uint16(hash1 >> 16), uint16(hash1),
		uint16(hash0 >> 16), uint16(hash0),
	}
}

// MaxFrameLimit returns the maximal number of frames of the given geometry
// that fit in a dumper's capture buffer. Frames are 3 bytes per pixel,
// rounded up to a 4096-byte page.
func MaxFrameLimit(width, height int) int {
	return int(DumpBufferSize) / FrameBufferSize(width, height)
}

// FrameBufferSize returns the capture-memory footprint of one frame: 3
// bytes per pixel, rounded up to a 4096-byte page. Frame n starts n
// footprints into the buffer.
func FrameBufferSize(width, height int) int {
	return pageRoundUp(width * height * bytePerPixel)
}

func pageRoundUp(size int) int {
	return ((size-1)/pageSize + 1) * pageSize
}

// PixelDumpBases returns the capture-memory base address(es) the external
// pixel-readback tool needs: one address in single-pixel mode, two
// (even-pixel then odd-pixel buffer) in dual-pixel mode.
func PixelDumpBases(port ids.PortID, dualPixelMode bool) []uint32 {
	if dualPixelMode {
		i := EvenPixelsDumperIndexes[port]
		return []uint32{
			DumpBaseAddress + dumpStartAddresses[i],
			DumpBaseAddress + dumpStartAddresses[1-i],
		}
	}

	i := PrimaryDumperIndexes[port]
	return []uint32{DumpBaseAddress + dumpStartAddresses[i]}
}
