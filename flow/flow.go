// Package flow abstracts the entire input path for one connector: receiver
// chip, mux and IO control lines, EDID emulator, and frame manager. Each
// connector variant implements its own readiness state machine on top of the
// shared behavior.
package flow

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sensics/cros-chameleon/edid"
	"github.com/sensics/cros-chameleon/fpga"
	"github.com/sensics/cros-chameleon/framemanager"
	"github.com/sensics/cros-chameleon/ids"
	"github.com/sensics/cros-chameleon/io"
)

// ErrNotSupported reports an operation the connector has no hardware for.
var ErrNotSupported = errors.New("operation not supported on this connector")

// An InputFlow is the per-connector driver surface. One instance exists per
// port; only one flow is selected (wired through the mux) at a time across
// the whole board.
type InputFlow interface {
	PortID() ids.PortID
	ConnectorType() string

	// Initialize brings the receiver into a known state. Called once at
	// startup.
	Initialize() error

	// Select wires this flow through the muxes and FPGA paths.
	Select()

	// DoFSM runs the readiness state machine. It must run once per
	// selection, before any capture, to clear transient receiver faults
	// from mode changes or power events.
	DoFSM() error

	IsDualPixelMode() bool
	IsPhysicalPlugged() bool

	IsPlugged() bool
	Plug()
	Unplug()
	FireHpdPulse(deassertUsec, assertUsec, repeatCount, endLevel int)
	FireMixedHpdPulses(widthsMsec []int)

	SetEdidState(enabled bool)
	IsEdidEnabled() bool
	SetDdcState(enabled bool)
	IsDdcEnabled() bool
	ReadEdid() []byte
	WriteEdid(data []byte) error

	// WaitVideoInputStable reports whether the receiver saw a stable input
	// within the timeout (zero means the variant default).
	WaitVideoInputStable(timeout time.Duration) bool

	// WaitVideoOutputStable waits until the FPGA side of the link is locked
	// (zero timeout means the variant default).
	WaitVideoOutputStable(timeout time.Duration) error

	GetResolution() (width, height int, err error)
	GetMaxFrameLimit(width, height int) int
	DumpFramesToLimit(frameLimit int, crop *framemanager.CropRect,
		timeout time.Duration) error
	StartDumpingFrames(frameBufferLimit int, crop *framemanager.CropRect,
		hashBufferLimit int) error
	StopDumpingFrames()
	GetDumpedFrameCount() int
	GetFrameHashes(start, stop int) ([][]uint16, error)
	GetPixelDumpBases() []uint32

	SetContentProtection(enabled bool) error
	IsContentProtectionEnabled() (bool, error)
	IsVideoInputEncrypted() (bool, error)
}

// Mux routing per port. The dual-pixel configurations serve single-pixel
// mode as well, as the board never runs two flows at once.
var muxConfigs = map[ids.PortID]byte{
	ids.DP1:  io.ConfigDp1Dual,
	ids.DP2:  io.ConfigDp2Dual,
	ids.HDMI: io.ConfigHdmiDual,
	ids.VGA:  io.ConfigVga,
}

// connectorOps is the per-variant hook table the shared behavior dispatches
// through.
type connectorOps interface {
	// assertPlug/deassertPlug drive the plug signal itself: the HPD line,
	// or the source un/block mux on VGA.
	assertPlug()
	deassertPlug()

	enableDdc()
	disableDdc()

	WaitVideoInputStable(timeout time.Duration) bool
	WaitVideoOutputStable(timeout time.Duration) error
}

// baseFlow carries the fields and behavior all connector variants share.
type baseFlow struct {
	port          ids.PortID
	fpga          *fpga.Controller
	muxIo         *io.MuxIo
	powerIo       *io.PowerIo
	edid          edid.Emulator
	frameManager  *framemanager.FrameManager
	dualPixelMode bool

	edidEnabled bool
	ddcEnabled  bool

	ops connectorOps
}

func newBaseFlow(
	port ids.PortID,
	fpgaCtrl *fpga.Controller,
	muxIo *io.MuxIo,
	powerIo *io.PowerIo,
	dualPixelMode bool,
) baseFlow {
	f := baseFlow{
		port:          port,
		fpga:          fpgaCtrl,
		muxIo:         muxIo,
		powerIo:       powerIo,
		dualPixelMode: dualPixelMode,
		edidEnabled:   true,
		ddcEnabled:    true,
	}
	f.frameManager = framemanager.New(
		port, dualPixelMode, effectiveDumpers(fpgaCtrl, port, dualPixelMode))

	return f
}

// effectiveDumpers returns the dumper instances serving a port in the given
// mode: the primary one, or even-pixels then odd-pixels.
func effectiveDumpers(
	c *fpga.Controller,
	port ids.PortID,
	dualPixelMode bool,
) []*fpga.VideoDumper {
	if dualPixelMode {
		if fpga.EvenPixelsDumperIndexes[port] == 0 {
			return []*fpga.VideoDumper{c.VDump0, c.VDump1}
		}
		return []*fpga.VideoDumper{c.VDump1, c.VDump0}
	}
	if fpga.PrimaryDumperIndexes[port] == 0 {
		return []*fpga.VideoDumper{c.VDump0}
	}
	return []*fpga.VideoDumper{c.VDump1}
}

func (f *baseFlow) PortID() ids.PortID {
	return f.port
}

func (f *baseFlow) IsDualPixelMode() bool {
	return f.dualPixelMode
}

// Select wires the flow through: mux routing, pass-through lane, and both
// dumper instances. Re-selecting invalidates any in-flight capture on the
// previously selected flow.
func (f *baseFlow) Select() {
	log.Printf("Select input flow %s", f.port)
	f.muxIo.SetConfig(muxConfigs[f.port])
	f.fpga.VPass.Select(f.port)
	f.fpga.VDump0.Select(f.port, f.dualPixelMode)
	f.fpga.VDump1.Select(f.port, f.dualPixelMode)
}

// Plug enables EDID and DDC first, then asserts the plug signal. A DUT may
// probe EDID the instant HPD rises, so the order matters.
func (f *baseFlow) Plug() {
	if f.edidEnabled {
		f.edid.Enable()
	}
	if f.ddcEnabled {
		f.ops.enableDdc()
	}
	f.ops.assertPlug()
}

// Unplug deasserts the plug signal, then disables EDID and DDC.
func (f *baseFlow) Unplug() {
	f.ops.deassertPlug()
	f.edid.Disable()
	f.ops.disableDdc()
}

// FireMixedHpdPulses drives a pulse train of mixed widths, starting at low:
// widthsMsec[0] is the first low segment, widthsMsec[1] the first high
// segment, and so on. The line ends low when an even number of segments is
// given, else high.
func (f *baseFlow) FireMixedHpdPulses(widthsMsec []int) {
	for i := 0; i <= len(widthsMsec); i++ {
		if i%2 == 0 {
			f.Unplug()
		} else {
			f.Plug()
		}
		if i < len(widthsMsec) {
			time.Sleep(time.Duration(widthsMsec[i]) * time.Millisecond)
		}
	}
}

func (f *baseFlow) SetEdidState(enabled bool) {
	if enabled && f.isPluggedForGating() {
		f.edid.Enable()
	} else {
		f.edid.Disable()
	}
	f.edidEnabled = enabled
}

func (f *baseFlow) IsEdidEnabled() bool {
	return f.edidEnabled
}

func (f *baseFlow) SetDdcState(enabled bool) {
	if enabled && f.isPluggedForGating() {
		f.ops.enableDdc()
	} else {
		f.ops.disableDdc()
	}
	f.ddcEnabled = enabled
}

func (f *baseFlow) IsDdcEnabled() bool {
	return f.ddcEnabled
}

// isPluggedForGating reads the plug state for EDID/DDC gating. HPD-backed
// connectors read the HPD register; VGA reads the source-block line, which
// the mux IO expander reports through GetOutput as well.
func (f *baseFlow) isPluggedForGating() bool {
	if f.port.HasHpdLine() {
		return f.fpga.Hpd.IsPlugged(f.port)
	}
	return f.muxIo.GetOutput()&io.MaskVgaBlockSource == 0
}

func (f *baseFlow) ReadEdid() []byte {
	return f.edid.ReadEdid()
}

func (f *baseFlow) WriteEdid(data []byte) error {
	return f.edid.WriteEdid(data)
}

func (f *baseFlow) GetMaxFrameLimit(width, height int) int {
	return f.frameManager.GetMaxFrameLimit(width, height)
}

func (f *baseFlow) GetFrameHashes(start, stop int) ([][]uint16, error) {
	return f.frameManager.GetFrameHashes(start, stop)
}

func (f *baseFlow) GetDumpedFrameCount() int {
	return f.frameManager.GetFrameCount()
}

func (f *baseFlow) GetPixelDumpBases() []uint32 {
	return fpga.PixelDumpBases(f.port, f.dualPixelMode)
}

// DumpFramesToLimit waits for a stable output, then captures until the
// limit is reached or the timeout elapses.
func (f *baseFlow) DumpFramesToLimit(
	frameLimit int,
	crop *framemanager.CropRect,
	timeout time.Duration,
) error {
	if err := f.ops.WaitVideoOutputStable(0); err != nil {
		return err
	}

	err := f.frameManager.DumpFramesToLimit(frameLimit, crop, timeout)
	if errors.Is(err, framemanager.ErrCaptureTimeout) {
		log.Printf("%s: frames failed to reach %d", f.port, frameLimit)
		return fmt.Errorf("%s: %w", f.port, err)
	}

	return err
}

// StartDumpingFrames waits for a stable output, then starts a continuous
// capture bounded only by the hash retention cap.
func (f *baseFlow) StartDumpingFrames(
	frameBufferLimit int,
	crop *framemanager.CropRect,
	hashBufferLimit int,
) error {
	if err := f.ops.WaitVideoOutputStable(0); err != nil {
		return err
	}

	return f.frameManager.StartDumpingFrames(
		frameBufferLimit, crop, hashBufferLimit)
}

func (f *baseFlow) StopDumpingFrames() {
	f.frameManager.StopDumpingFrames()
}
