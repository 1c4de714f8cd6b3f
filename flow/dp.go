package flow

import (
	"fmt"
	"log"
	"time"

	"github.com/sensics/cros-chameleon/edid"
	"github.com/sensics/cros-chameleon/fpga"
	"github.com/sensics/cros-chameleon/ids"
	"github.com/sensics/cros-chameleon/io"
	"github.com/sensics/cros-chameleon/rx"
	"github.com/sensics/cros-chameleon/wait"
)

const (
	dpDelayVideoModeProbe = 1 * time.Second
	dpTimeoutVideoStable  = 5 * time.Second
	dpCorrectiveHpdPulse  = 100 * time.Millisecond
)

// AUX bypass lines, active-low.
var dpAuxBypassMasks = map[ids.PortID]byte{
	ids.DP1: io.MaskDp1AuxBypassL,
	ids.DP2: io.MaskDp2AuxBypassL,
}

// A DpFlow is the input flow for one DisplayPort connector. DP always runs
// single-pixel mode on this board.
type DpFlow struct {
	baseFlow
	rx rx.DpReceiver
}

// NewDpFlow creates the flow for a DP port.
func NewDpFlow(
	port ids.PortID,
	fpgaCtrl *fpga.Controller,
	muxIo *io.MuxIo,
	powerIo *io.PowerIo,
	receiver rx.DpReceiver,
) *DpFlow {
	f := &DpFlow{
		baseFlow: newBaseFlow(port, fpgaCtrl, muxIo, powerIo, false),
		rx:       receiver,
	}
	f.edid = edid.NewDpEdid(receiver)
	f.ops = f

	return f
}

func (f *DpFlow) ConnectorType() string {
	return "DP"
}

// Initialize resets the receiver and programs its pixel mode.
func (f *DpFlow) Initialize() error {
	log.Printf("Initialize input flow %s", f.port)
	f.powerIo.ResetReceiver(f.port)
	f.rx.Initialize(false)
	return nil
}

func (f *DpFlow) IsPhysicalPlugged() bool {
	return f.rx.IsCablePowered()
}

func (f *DpFlow) IsPlugged() bool {
	return f.fpga.Hpd.IsPlugged(f.port)
}

func (f *DpFlow) assertPlug() {
	f.fpga.Hpd.Plug(f.port)
}

func (f *DpFlow) deassertPlug() {
	f.fpga.Hpd.Unplug(f.port)
}

// FireHpdPulse drives timed pulses on the port's HPD line.
func (f *DpFlow) FireHpdPulse(
	deassertUsec, assertUsec, repeatCount, endLevel int,
) {
	f.fpga.Hpd.FireHpdPulse(
		f.port, deassertUsec, assertUsec, repeatCount, endLevel)
}

func (f *DpFlow) enableDdc() {
	// Clearing the bypass line routes AUX through to the DUT.
	f.muxIo.ClearOutputMask(dpAuxBypassMasks[f.port])
}

func (f *DpFlow) disableDdc() {
	f.muxIo.SetOutputMask(dpAuxBypassMasks[f.port])
}

func (f *DpFlow) WaitVideoInputStable(timeout time.Duration) bool {
	if timeout == 0 {
		timeout = dpTimeoutVideoStable
	}
	err := wait.ForCondition(
		f.rx.IsVideoInputStable, dpDelayVideoModeProbe, timeout)
	return err == nil
}

// isFrameLocked compares the resolution the FPGA measured with the one the
// receiver reports.
func (f *DpFlow) isFrameLocked() bool {
	fpgaWidth, fpgaHeight := f.frameManager.ComputeResolution()
	rxWidth, rxHeight := f.rx.GetFrameResolution()
	if fpgaWidth == rxWidth && fpgaHeight == rxHeight {
		log.Printf("%s: same resolution: %dx%d", f.port, fpgaWidth, fpgaHeight)
		return true
	}
	log.Printf("%s: diff resolution: fpga:%dx%d != rx:%dx%d",
		f.port, fpgaWidth, fpgaHeight, rxWidth, rxHeight)
	return false
}

func (f *DpFlow) WaitVideoOutputStable(timeout time.Duration) error {
	if timeout == 0 {
		timeout = dpTimeoutVideoStable
	}
	err := wait.ForCondition(f.isFrameLocked, dpDelayVideoModeProbe, timeout)
	if err != nil {
		log.Printf("%s: timeout waiting for video output stable", f.port)
		log.Printf("%s: RX dump: %x", f.port, f.rx.Dump())
		return fmt.Errorf("%s: video output not stable: %w", f.port, err)
	}
	return nil
}

func (f *DpFlow) GetResolution() (int, int, error) {
	if err := f.WaitVideoOutputStable(0); err != nil {
		fpgaWidth, fpgaHeight := f.frameManager.ComputeResolution()
		rxWidth, rxHeight := f.rx.GetFrameResolution()
		return 0, 0, fmt.Errorf(
			"%s: frame resolution not stable, rx:%dx%d fpga:%dx%d",
			f.port, rxWidth, rxHeight, fpgaWidth, fpgaHeight)
	}
	width, height := f.rx.GetFrameResolution()
	return width, height, nil
}

// DoFSM clears transient receiver faults: when the input is unstable or the
// frame is not locked, reset the receiver video logic and re-poll; if that
// is not enough, fire one corrective HPD pulse to force the source to
// retrain. A link that stays unlocked is logged, not fatal; the following
// capture surfaces the failure.
func (f *DpFlow) DoFSM() error {
	if f.rx.IsVideoInputStable() && f.isFrameLocked() {
		log.Printf("%s: skip resetting rx", f.port)
		return nil
	}

	f.rx.ResetVideoLogic()
	if f.WaitVideoInputStable(0) && f.WaitVideoOutputStable(0) == nil {
		return nil
	}

	log.Printf("%s: send HPD pulse to reset source", f.port)
	f.fpga.Hpd.Unplug(f.port)
	time.Sleep(dpCorrectiveHpdPulse)
	f.fpga.Hpd.Plug(f.port)

	if f.WaitVideoInputStable(0) && f.WaitVideoOutputStable(0) == nil {
		log.Printf("%s: FSM done", f.port)
	} else {
		log.Printf("%s: *** FSM failed", f.port)
	}

	return nil
}

func (f *DpFlow) SetContentProtection(enabled bool) error {
	return fmt.Errorf("%s: content protection: %w", f.port, ErrNotSupported)
}

func (f *DpFlow) IsContentProtectionEnabled() (bool, error) {
	return false, fmt.Errorf(
		"%s: content protection: %w", f.port, ErrNotSupported)
}

func (f *DpFlow) IsVideoInputEncrypted() (bool, error) {
	return false, fmt.Errorf(
		"%s: content protection: %w", f.port, ErrNotSupported)
}
