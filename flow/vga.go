package flow

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sensics/cros-chameleon/edid"
	"github.com/sensics/cros-chameleon/fpga"
	"github.com/sensics/cros-chameleon/ids"
	"github.com/sensics/cros-chameleon/io"
	"github.com/sensics/cros-chameleon/rx"
	"github.com/sensics/cros-chameleon/wait"
)

const (
	vgaDelayStableProbe     = 100 * time.Millisecond
	vgaTimeoutStable        = 5 * time.Second
	vgaDelayResolutionProbe = 50 * time.Millisecond
)

// A VgaFlow is the input flow for the VGA connector. VGA has no physical
// HPD line; plugging is emulated by unblocking the analog source, and
// presence is inferred from sync signals.
type VgaFlow struct {
	baseFlow
	rx          rx.VgaReceiver
	autoVgaMode bool
}

// NewVgaFlow creates the VGA flow in auto mode detection.
func NewVgaFlow(
	fpgaCtrl *fpga.Controller,
	muxIo *io.MuxIo,
	powerIo *io.PowerIo,
	receiver rx.VgaReceiver,
) *VgaFlow {
	f := &VgaFlow{
		baseFlow:    newBaseFlow(ids.VGA, fpgaCtrl, muxIo, powerIo, false),
		rx:          receiver,
		autoVgaMode: true,
	}
	f.edid = edid.NewControllerEdid(fpgaCtrl.VgaEdid)
	f.ops = f

	return f
}

func (f *VgaFlow) ConnectorType() string {
	return "VGA"
}

// Initialize resets the receiver.
func (f *VgaFlow) Initialize() error {
	log.Printf("Initialize input flow %s", f.port)
	f.powerIo.ResetReceiver(f.port)
	f.rx.Initialize()
	return nil
}

// IsPhysicalPlugged infers cable presence from the source signal: unblock
// the source, wait for sync, and restore the previous state. It cannot work
// if the DUT is not driving the output.
func (f *VgaFlow) IsPhysicalPlugged() bool {
	pluggedBefore := f.IsPlugged()
	if !pluggedBefore {
		f.Plug()
	}
	isStable := f.WaitVideoInputStable(0)
	if !pluggedBefore {
		f.Unplug()
	}
	return isStable
}

func (f *VgaFlow) IsPlugged() bool {
	return f.muxIo.GetOutput()&io.MaskVgaBlockSource == 0
}

func (f *VgaFlow) assertPlug() {
	// Unblock the RGB source to emulate plug.
	f.muxIo.ClearOutputMask(io.MaskVgaBlockSource)
}

func (f *VgaFlow) deassertPlug() {
	f.muxIo.SetOutputMask(io.MaskVgaBlockSource)
}

// FireHpdPulse is a silent no-op: VGA has no HPD line to pulse.
func (f *VgaFlow) FireHpdPulse(
	deassertUsec, assertUsec, repeatCount, endLevel int,
) {
}

// FireMixedHpdPulses is a silent no-op: VGA has no HPD line to pulse.
func (f *VgaFlow) FireMixedHpdPulses(widthsMsec []int) {
}

// The board cannot gate the DDC bus on VGA; enabling and disabling DDC
// falls back to enabling and disabling the EDID.
func (f *VgaFlow) enableDdc() {
	f.edid.Enable()
}

func (f *VgaFlow) disableDdc() {
	f.edid.Disable()
}

// SetVgaMode fixes the analog timing, or re-enables auto detection with
// "auto".
func (f *VgaFlow) SetVgaMode(mode string) error {
	if strings.EqualFold(mode, "auto") {
		f.autoVgaMode = true
		return nil
	}

	if err := f.rx.SetMode(mode); err != nil {
		return err
	}
	f.autoVgaMode = false

	return nil
}

// WaitVideoInputStable waits until H-Sync/V-Sync is received from the
// source.
func (f *VgaFlow) WaitVideoInputStable(timeout time.Duration) bool {
	if timeout == 0 {
		timeout = vgaTimeoutStable
	}
	err := wait.ForCondition(
		f.rx.IsSyncDetected, vgaDelayStableProbe, timeout)
	return err == nil
}

// isResolutionValid probes the measured resolution twice; an analog timing
// is stable when both probes agree and neither dimension floats at zero.
func (f *VgaFlow) isResolutionValid() bool {
	width1, height1 := f.frameManager.ComputeResolution()
	time.Sleep(vgaDelayResolutionProbe)
	width2, height2 := f.frameManager.ComputeResolution()
	return width1 == width2 && height1 == height2 && width1 != 0 && height1 != 0
}

func (f *VgaFlow) WaitVideoOutputStable(timeout time.Duration) error {
	if timeout == 0 {
		timeout = vgaTimeoutStable
	}
	err := wait.ForCondition(f.isResolutionValid, vgaDelayStableProbe, timeout)
	if err != nil {
		log.Printf("%s: timeout waiting for video output stable", f.port)
		log.Printf("%s: RX dump: %x", f.port, f.rx.Dump())
		return fmt.Errorf("%s: video output not stable: %w", f.port, err)
	}
	return nil
}

func (f *VgaFlow) GetResolution() (int, int, error) {
	if err := f.WaitVideoOutputStable(0); err != nil {
		return 0, 0, err
	}
	width, height := f.frameManager.ComputeResolution()
	if width == 0 || height == 0 {
		return 0, 0, fmt.Errorf(
			"%s: something wrong with the resolution: %dx%d",
			f.port, width, height)
	}
	return width, height, nil
}

// DoFSM detects the analog mode from the source when auto detection is on
// and programs the receiver with it. With a fixed mode there is nothing to
// clear.
func (f *VgaFlow) DoFSM() error {
	if !f.autoVgaMode {
		return nil
	}

	if !f.WaitVideoInputStable(0) {
		log.Printf("%s: skip receiver FSM, video input not stable", f.port)
		return nil
	}

	mode := f.rx.DetectMode()
	if mode == "" {
		log.Printf("%s: measured timing matches no known mode", f.port)
		return nil
	}
	if err := f.rx.SetMode(mode); err != nil {
		return err
	}

	return f.WaitVideoOutputStable(0)
}

func (f *VgaFlow) SetContentProtection(enabled bool) error {
	return fmt.Errorf("%s: content protection: %w", f.port, ErrNotSupported)
}

// IsContentProtectionEnabled always reports false: VGA carries no content
// protection.
func (f *VgaFlow) IsContentProtectionEnabled() (bool, error) {
	return false, nil
}

// IsVideoInputEncrypted always reports false: VGA carries no content
// protection.
func (f *VgaFlow) IsVideoInputEncrypted() (bool, error) {
	return false, nil
}
