package flow

import (
	"fmt"
	"log"
	"time"

	"github.com/sensics/cros-chameleon/edid"
	"github.com/sensics/cros-chameleon/fpga"
	"github.com/sensics/cros-chameleon/framemanager"
	"github.com/sensics/cros-chameleon/ids"
	"github.com/sensics/cros-chameleon/io"
	"github.com/sensics/cros-chameleon/rx"
	"github.com/sensics/cros-chameleon/wait"
)

// The receiver could run single-pixel mode up to a 160 MHz pixel clock, but
// the FPGA is only reliable under 125. The two thresholds form a hysteresis
// band so that pixel clock noise near the boundary cannot make the mode
// oscillate.
const (
	hdmiPclkThresholdHighMHz = 125.0
	hdmiPclkThresholdLowMHz  = 115.0
)

const (
	hdmiDelayVideoModeProbe = 100 * time.Millisecond
	hdmiTimeoutVideoStable  = 10 * time.Second
	// Settle time empirically required after a reset or mode change before
	// the pixels are good.
	hdmiDelayWaitingGoodPixels = 3 * time.Second
)

// A HdmiFlow is the input flow for the HDMI connector. It switches between
// single- and dual-pixel mode automatically based on the measured pixel
// clock.
type HdmiFlow struct {
	baseFlow
	rx rx.HdmiReceiver
}

// NewHdmiFlow creates the HDMI flow. It starts in dual-pixel mode.
func NewHdmiFlow(
	fpgaCtrl *fpga.Controller,
	muxIo *io.MuxIo,
	powerIo *io.PowerIo,
	receiver rx.HdmiReceiver,
) *HdmiFlow {
	f := &HdmiFlow{
		baseFlow: newBaseFlow(ids.HDMI, fpgaCtrl, muxIo, powerIo, true),
		rx:       receiver,
	}
	f.edid = edid.NewControllerEdid(fpgaCtrl.HdmiEdid)
	f.ops = f

	return f
}

func (f *HdmiFlow) ConnectorType() string {
	return "HDMI"
}

// Initialize resets the receiver and programs its pixel mode.
func (f *HdmiFlow) Initialize() error {
	log.Printf("Initialize input flow %s", f.port)
	f.powerIo.ResetReceiver(f.port)
	f.rx.Initialize(f.dualPixelMode)
	return nil
}

func (f *HdmiFlow) IsPhysicalPlugged() bool {
	return f.rx.IsCablePowered()
}

func (f *HdmiFlow) IsPlugged() bool {
	return f.fpga.Hpd.IsPlugged(f.port)
}

func (f *HdmiFlow) assertPlug() {
	f.fpga.Hpd.Plug(f.port)
}

func (f *HdmiFlow) deassertPlug() {
	f.fpga.Hpd.Unplug(f.port)
}

// FireHpdPulse drives timed pulses on the HPD line.
func (f *HdmiFlow) FireHpdPulse(
	deassertUsec, assertUsec, repeatCount, endLevel int,
) {
	f.fpga.Hpd.FireHpdPulse(
		f.port, deassertUsec, assertUsec, repeatCount, endLevel)
}

func (f *HdmiFlow) enableDdc() {
	f.muxIo.ClearOutputMask(io.MaskHdmiDdcBypassL)
}

func (f *HdmiFlow) disableDdc() {
	f.muxIo.SetOutputMask(io.MaskHdmiDdcBypassL)
}

func (f *HdmiFlow) WaitVideoInputStable(timeout time.Duration) bool {
	if timeout == 0 {
		timeout = hdmiTimeoutVideoStable
	}
	err := wait.ForCondition(
		f.rx.IsVideoInputStable, hdmiDelayVideoModeProbe, timeout)
	return err == nil
}

func (f *HdmiFlow) isFrameLocked() bool {
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

func (f *HdmiFlow) WaitVideoOutputStable(timeout time.Duration) error {
	if timeout == 0 {
		timeout = hdmiTimeoutVideoStable
	}
	err := wait.ForCondition(f.isFrameLocked, hdmiDelayVideoModeProbe, timeout)
	if err != nil {
		log.Printf("%s: timeout waiting for video output stable", f.port)
		log.Printf("%s: RX dump: %x", f.port, f.rx.Dump())
		return fmt.Errorf("%s: video output not stable: %w", f.port, err)
	}
	return nil
}

func (f *HdmiFlow) GetResolution() (int, int, error) {
	if err := f.WaitVideoOutputStable(0); err != nil {
		return 0, 0, err
	}
	width, height := f.rx.GetFrameResolution()
	return width, height, nil
}

// setPixelMode applies the pixel-mode policy to the measured pixel clock
// and reports whether the mode changed. Inside the hysteresis band the
// current mode is kept. A change reprograms the receiver, rebuilds the
// frame manager for the new dumper pairing, and re-runs Select.
func (f *HdmiFlow) setPixelMode() bool {
	pclk := f.rx.GetPixelClock()
	log.Printf("%s: PCLK = %.1f MHz", f.port, pclk)

	if pclk >= hdmiPclkThresholdLowMHz && pclk <= hdmiPclkThresholdHighMHz {
		return false
	}

	dualPixelMode := pclk >= hdmiPclkThresholdHighMHz
	if f.dualPixelMode == dualPixelMode {
		return false
	}

	f.dualPixelMode = dualPixelMode
	if dualPixelMode {
		f.rx.SetDualPixelMode()
		log.Printf("%s: changed to dual pixel mode", f.port)
	} else {
		f.rx.SetSinglePixelMode()
		log.Printf("%s: changed to single pixel mode", f.port)
	}

	f.frameManager = framemanager.New(
		f.port, dualPixelMode, effectiveDumpers(f.fpga, f.port, dualPixelMode))
	f.Select()

	return true
}

// DoFSM clears transient receiver faults: soft-reset the receiver if it
// flagged one, then apply the pixel-mode policy once the input is stable.
// After a reset or a mode change, wait for output stability plus a settle
// delay before reporting ready. An input that never stabilizes is a
// reported, non-fatal error.
func (f *HdmiFlow) DoFSM() error {
	resetNeeded := f.rx.IsResetNeeded()
	if resetNeeded {
		f.rx.Reset()
	}

	if !f.WaitVideoInputStable(0) {
		log.Printf("%s: video input not stable", f.port)
		return fmt.Errorf("%s: video input not stable", f.port)
	}

	pixelModeChanged := f.setPixelMode()
	if resetNeeded || pixelModeChanged {
		if err := f.WaitVideoOutputStable(0); err != nil {
			return err
		}
		time.Sleep(hdmiDelayWaitingGoodPixels)
	}

	return nil
}

func (f *HdmiFlow) SetContentProtection(enabled bool) error {
	f.rx.SetContentProtection(enabled)
	return nil
}

func (f *HdmiFlow) IsContentProtectionEnabled() (bool, error) {
	return f.rx.IsContentProtectionEnabled(), nil
}

func (f *HdmiFlow) IsVideoInputEncrypted() (bool, error) {
	return f.rx.IsVideoInputEncrypted(), nil
}
