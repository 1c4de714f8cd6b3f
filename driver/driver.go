// Package driver is the top-level facade over the input flows. It owns the
// process-wide state the flows do not: the EDID registry, the currently
// selected port, and the captured-frame session. All operations expect a
// single caller at a time; the hardware has no multi-client arbitration.
package driver

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/sensics/cros-chameleon/edid"
	"github.com/sensics/cros-chameleon/flow"
	"github.com/sensics/cros-chameleon/ids"
	"github.com/sensics/cros-chameleon/pixeldump"
)

var (
	// ErrUnknownPort reports a port id no flow is registered for.
	ErrUnknownPort = errors.New("unknown port")

	// ErrInvalidEdidID reports an EDID registry id that is out of range,
	// free, or the reserved default.
	ErrInvalidEdidID = errors.New("invalid EDID id")

	// ErrNoCaptureSession reports a captured-frame query with no live
	// session.
	ErrNoCaptureSession = errors.New("no captured session")
)

// An EventRecorder receives diagnostics events off the register hot path.
type EventRecorder interface {
	RecordPortEvent(port ids.PortID, event, detail string)
	RecordCapture(port ids.PortID, frames, width, height int,
		dualPixel bool, status string)
}

// A Driver multiplexes the per-connector input flows behind one facade.
type Driver struct {
	flows     map[ids.PortID]flow.InputFlow
	pixelDump pixeldump.Runner
	recorder  EventRecorder

	// EDID registry. Slot 0 is the reserved factory default; nil slots are
	// free for reuse.
	edids [][]byte

	selected ids.PortID
	session  *CapturedSession
}

// A Builder assembles a driver.
type Builder struct {
	flows           []flow.InputFlow
	pixelDump       pixeldump.Runner
	recorder        EventRecorder
	defaultEdid     []byte
	defaultEdidFile string
}

// MakeBuilder returns a builder with the external pixel readback tool on
// PATH as the default runner.
func MakeBuilder() Builder {
	return Builder{
		pixelDump: pixeldump.NewToolRunner(""),
	}
}

// WithFlow registers one connector's input flow.
func (b Builder) WithFlow(f flow.InputFlow) Builder {
	b.flows = append(b.flows, f)
	return b
}

// WithPixelDumpRunner overrides the pixel readback collaborator.
func (b Builder) WithPixelDumpRunner(r pixeldump.Runner) Builder {
	b.pixelDump = r
	return b
}

// WithRecorder attaches a diagnostics event recorder.
func (b Builder) WithRecorder(r EventRecorder) Builder {
	b.recorder = r
	return b
}

// WithDefaultEdidFile names the factory-default EDID asset on disk. Build
// fails fatally if it cannot be loaded.
func (b Builder) WithDefaultEdidFile(path string) Builder {
	b.defaultEdidFile = path
	return b
}

// WithDefaultEdid sets the factory-default EDID bytes directly.
func (b Builder) WithDefaultEdid(data []byte) Builder {
	b.defaultEdid = data
	return b
}

// Build creates the driver. A missing or malformed default EDID is fatal;
// the fixture cannot present a sane sink without it.
func (b Builder) Build() *Driver {
	if len(b.flows) == 0 {
		panic("driver needs at least one input flow")
	}

	defaultEdid := b.defaultEdid
	if b.defaultEdidFile != "" {
		data, err := os.ReadFile(b.defaultEdidFile)
		if err != nil {
			log.Panicf("cannot load default EDID %s: %v", b.defaultEdidFile, err)
		}
		defaultEdid = data
	}
	if len(defaultEdid) != edid.Size {
		log.Panicf("default EDID must be %d bytes, got %d",
			edid.Size, len(defaultEdid))
	}

	d := &Driver{
		flows:     make(map[ids.PortID]flow.InputFlow),
		pixelDump: b.pixelDump,
		recorder:  b.recorder,
		edids:     [][]byte{defaultEdid},
	}
	for _, f := range b.flows {
		if _, ok := d.flows[f.PortID()]; ok {
			panic(fmt.Sprintf("duplicate flow for port %s", f.PortID()))
		}
		d.flows[f.PortID()] = f
	}

	return d
}

func (d *Driver) flowFor(port ids.PortID) (flow.InputFlow, error) {
	f, ok := d.flows[port]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPort, port)
	}
	return f, nil
}

func (d *Driver) recordPortEvent(port ids.PortID, event, detail string) {
	if d.recorder != nil {
		d.recorder.RecordPortEvent(port, event, detail)
	}
}

// Initialize brings every flow's receiver into a known state and applies
// the default EDID.
func (d *Driver) Initialize() error {
	for _, port := range d.GetSupportedPorts() {
		f := d.flows[port]
		if err := f.Initialize(); err != nil {
			return fmt.Errorf("initialize %s: %w", port, err)
		}
		if err := f.WriteEdid(d.edids[ids.EdidIDDefault]); err != nil {
			return fmt.Errorf("apply default EDID on %s: %w", port, err)
		}
	}
	return nil
}

// Reset restores the default EDID on every flow.
func (d *Driver) Reset() error {
	log.Printf("Apply the default EDID to all ports")
	for _, port := range d.GetSupportedPorts() {
		if err := d.flows[port].WriteEdid(d.edids[ids.EdidIDDefault]); err != nil {
			return fmt.Errorf("reset %s: %w", port, err)
		}
		d.recordPortEvent(port, "reset", "default EDID applied")
	}
	return nil
}

// GetSupportedPorts returns the registered ports in stable order.
func (d *Driver) GetSupportedPorts() []ids.PortID {
	ports := make([]ids.PortID, 0, len(d.flows))
	for port := range d.flows {
		ports = append(ports, port)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
	return ports
}

// ProbePorts returns the subset of ports with a cable physically present.
func (d *Driver) ProbePorts() []ids.PortID {
	var ports []ids.PortID
	for _, port := range d.GetSupportedPorts() {
		if d.flows[port].IsPhysicalPlugged() {
			ports = append(ports, port)
		}
	}
	return ports
}

func (d *Driver) IsPhysicalPlugged(port ids.PortID) (bool, error) {
	f, err := d.flowFor(port)
	if err != nil {
		return false, err
	}
	return f.IsPhysicalPlugged(), nil
}

func (d *Driver) GetConnectorType(port ids.PortID) (string, error) {
	f, err := d.flowFor(port)
	if err != nil {
		return "", err
	}
	return f.ConnectorType(), nil
}

// SelectedPort returns the currently selected port, or zero if none was
// selected yet.
func (d *Driver) SelectedPort() ids.PortID {
	return d.selected
}

// selectInput wires the port through the muxes if it is not the selected
// one, invalidating any prior capture session, then runs the readiness FSM.
func (d *Driver) selectInput(port ids.PortID) (flow.InputFlow, error) {
	f, err := d.flowFor(port)
	if err != nil {
		return nil, err
	}

	if d.selected != port {
		f.Select()
		d.session = nil
		d.selected = port
	}

	if err := f.DoFSM(); err != nil {
		d.recordPortEvent(port, "fsm", err.Error())
		return nil, err
	}
	d.recordPortEvent(port, "fsm", "ok")

	return f, nil
}

func (d *Driver) IsPlugged(port ids.PortID) (bool, error) {
	f, err := d.flowFor(port)
	if err != nil {
		return false, err
	}
	return f.IsPlugged(), nil
}

func (d *Driver) Plug(port ids.PortID) error {
	f, err := d.flowFor(port)
	if err != nil {
		return err
	}
	f.Plug()
	d.recordPortEvent(port, "plug", "")
	return nil
}

func (d *Driver) Unplug(port ids.PortID) error {
	f, err := d.flowFor(port)
	if err != nil {
		return err
	}
	f.Unplug()
	d.recordPortEvent(port, "unplug", "")
	return nil
}

// FireHpdPulse drives timed deassert/assert cycles on the port's HPD line.
// assertUsec zero defaults to deassertUsec. The call blocks for the full
// pulse train.
func (d *Driver) FireHpdPulse(
	port ids.PortID,
	deassertUsec, assertUsec, repeatCount, endLevel int,
) error {
	f, err := d.flowFor(port)
	if err != nil {
		return err
	}
	f.FireHpdPulse(deassertUsec, assertUsec, repeatCount, endLevel)
	d.recordPortEvent(port, "hpd_pulse",
		fmt.Sprintf("deassert=%dus assert=%dus repeat=%d end=%d",
			deassertUsec, assertUsec, repeatCount, endLevel))
	return nil
}

// FireMixedHpdPulses drives a pulse train of mixed segment widths starting
// low.
func (d *Driver) FireMixedHpdPulses(port ids.PortID, widthsMsec []int) error {
	f, err := d.flowFor(port)
	if err != nil {
		return err
	}
	f.FireMixedHpdPulses(widthsMsec)
	d.recordPortEvent(port, "hpd_mixed_pulses",
		fmt.Sprintf("widths=%v", widthsMsec))
	return nil
}

func (d *Driver) SetEdidState(port ids.PortID, enabled bool) error {
	f, err := d.flowFor(port)
	if err != nil {
		return err
	}
	f.SetEdidState(enabled)
	return nil
}

func (d *Driver) IsEdidEnabled(port ids.PortID) (bool, error) {
	f, err := d.flowFor(port)
	if err != nil {
		return false, err
	}
	return f.IsEdidEnabled(), nil
}

func (d *Driver) SetDdcState(port ids.PortID, enabled bool) error {
	f, err := d.flowFor(port)
	if err != nil {
		return err
	}
	f.SetDdcState(enabled)
	return nil
}

func (d *Driver) IsDdcEnabled(port ids.PortID) (bool, error) {
	f, err := d.flowFor(port)
	if err != nil {
		return false, err
	}
	return f.IsDdcEnabled(), nil
}

// WaitVideoInputStable reports whether the receiver saw a stable input
// within the timeout (zero means the connector default).
func (d *Driver) WaitVideoInputStable(
	port ids.PortID,
	timeout time.Duration,
) (bool, error) {
	f, err := d.flowFor(port)
	if err != nil {
		return false, err
	}
	return f.WaitVideoInputStable(timeout), nil
}

// DetectResolution selects the port, runs its FSM, and returns the
// resolution the link settled on.
func (d *Driver) DetectResolution(port ids.PortID) (int, int, error) {
	f, err := d.selectInput(port)
	if err != nil {
		return 0, 0, err
	}
	return f.GetResolution()
}

func (d *Driver) GetMaxFrameLimit(
	port ids.PortID,
	width, height int,
) (int, error) {
	f, err := d.flowFor(port)
	if err != nil {
		return 0, err
	}
	return f.GetMaxFrameLimit(width, height), nil
}

// SetContentProtection enables or disables sink-side content protection.
// Only HDMI supports it.
func (d *Driver) SetContentProtection(port ids.PortID, enabled bool) error {
	f, err := d.flowFor(port)
	if err != nil {
		return err
	}
	return f.SetContentProtection(enabled)
}

func (d *Driver) IsContentProtectionEnabled(port ids.PortID) (bool, error) {
	f, err := d.flowFor(port)
	if err != nil {
		return false, err
	}
	return f.IsContentProtectionEnabled()
}

func (d *Driver) IsVideoInputEncrypted(port ids.PortID) (bool, error) {
	f, err := d.flowFor(port)
	if err != nil {
		return false, err
	}
	return f.IsVideoInputEncrypted()
}

// SetVgaMode fixes the analog timing on the VGA port, or restores auto
// detection with "auto".
func (d *Driver) SetVgaMode(port ids.PortID, mode string) error {
	f, err := d.flowFor(port)
	if err != nil {
		return err
	}
	v, ok := f.(interface{ SetVgaMode(string) error })
	if !ok {
		return fmt.Errorf("%s: SetVgaMode: %w", port, flow.ErrNotSupported)
	}
	return v.SetVgaMode(mode)
}
