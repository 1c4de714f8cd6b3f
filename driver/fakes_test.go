package driver

import (
	"time"

	"github.com/sensics/cros-chameleon/framemanager"
	"github.com/sensics/cros-chameleon/ids"
)

// fakeFlow is a scriptable in-memory input flow.
type fakeFlow struct {
	port      ids.PortID
	connector string

	plugged     bool
	physical    bool
	edidEnabled bool
	ddcEnabled  bool
	edid        []byte

	dual      bool
	width     int
	height    int
	maxLimit  int
	dumpBases []uint32
	hashes    [][]uint16

	fsmErr  error
	dumpErr error

	initCount   int
	selectCount int
	fsmCount    int
	dumpLimit   int
	startLimit  int
	dumping     bool
	dumpedCount int
}

func newFakeFlow(port ids.PortID, connector string) *fakeFlow {
	return &fakeFlow{
		port:      port,
		connector: connector,
		plugged:   true,
		physical:  true,
		width:     1920,
		height:    1080,
		maxLimit:  10,
		dumpBases: []uint32{0xc0000000},
	}
}

func (f *fakeFlow) PortID() ids.PortID { return f.port }

func (f *fakeFlow) ConnectorType() string { return f.connector }

func (f *fakeFlow) Initialize() error { f.initCount++; return nil }

func (f *fakeFlow) Select() { f.selectCount++ }

func (f *fakeFlow) DoFSM() error { f.fsmCount++; return f.fsmErr }

func (f *fakeFlow) IsDualPixelMode() bool { return f.dual }

func (f *fakeFlow) IsPhysicalPlugged() bool { return f.physical }

func (f *fakeFlow) IsPlugged() bool { return f.plugged }

func (f *fakeFlow) Plug() { f.plugged = true }

func (f *fakeFlow) Unplug() { f.plugged = false }

func (f *fakeFlow) FireHpdPulse(
	deassertUsec, assertUsec, repeatCount, endLevel int,
) {
	f.plugged = endLevel != 0
}

func (f *fakeFlow) FireMixedHpdPulses(widthsMsec []int) {
	f.plugged = len(widthsMsec)%2 == 1
}

func (f *fakeFlow) SetEdidState(enabled bool) { f.edidEnabled = enabled }

func (f *fakeFlow) IsEdidEnabled() bool { return f.edidEnabled }

func (f *fakeFlow) SetDdcState(enabled bool) { f.ddcEnabled = enabled }

func (f *fakeFlow) IsDdcEnabled() bool { return f.ddcEnabled }

func (f *fakeFlow) ReadEdid() []byte { return f.edid }

func (f *fakeFlow) WriteEdid(data []byte) error {
	f.edid = make([]byte, len(data))
	copy(f.edid, data)
	return nil
}

func (f *fakeFlow) WaitVideoInputStable(timeout time.Duration) bool {
	return true
}

func (f *fakeFlow) WaitVideoOutputStable(timeout time.Duration) error {
	return nil
}

func (f *fakeFlow) GetResolution() (int, int, error) {
	return f.width, f.height, nil
}

func (f *fakeFlow) GetMaxFrameLimit(width, height int) int {
	return f.maxLimit
}

func (f *fakeFlow) DumpFramesToLimit(
	frameLimit int,
	crop *framemanager.CropRect,
	timeout time.Duration,
) error {
	if f.dumpErr != nil {
		return f.dumpErr
	}
	f.dumpLimit = frameLimit
	f.dumpedCount = frameLimit
	return nil
}

func (f *fakeFlow) StartDumpingFrames(
	frameBufferLimit int,
	crop *framemanager.CropRect,
	hashBufferLimit int,
) error {
	if f.dumpErr != nil {
		return f.dumpErr
	}
	f.startLimit = frameBufferLimit
	f.dumping = true
	return nil
}

func (f *fakeFlow) StopDumpingFrames() { f.dumping = false }

func (f *fakeFlow) GetDumpedFrameCount() int { return f.dumpedCount }

func (f *fakeFlow) GetFrameHashes(start, stop int) ([][]uint16, error) {
	return f.hashes[start:stop], nil
}

func (f *fakeFlow) GetPixelDumpBases() []uint32 { return f.dumpBases }

func (f *fakeFlow) SetContentProtection(enabled bool) error { return nil }

func (f *fakeFlow) IsContentProtectionEnabled() (bool, error) {
	return false, nil
}

func (f *fakeFlow) IsVideoInputEncrypted() (bool, error) {
	return false, nil
}

// fakeVgaFlow adds the analog timing control on top of fakeFlow.
type fakeVgaFlow struct {
	fakeFlow
	mode string
}

func (f *fakeVgaFlow) SetVgaMode(mode string) error {
	f.mode = mode
	return nil
}

// fakeRunner records the pixel readback request and replies with canned
// bytes.
type fakeRunner struct {
	bases  []uint32
	offset uint32
	width  int
	height int

	data []byte
	err  error
}

func (r *fakeRunner) DumpPixels(
	bases []uint32,
	offset uint32,
	width, height int,
) ([]byte, error) {
	r.bases = bases
	r.offset = offset
	r.width = width
	r.height = height
	return r.data, r.err
}

type recordedEvent struct {
	port   ids.PortID
	event  string
	detail string
}

type fakeRecorder struct {
	events   []recordedEvent
	captures []string
}

func (r *fakeRecorder) RecordPortEvent(port ids.PortID, event, detail string) {
	r.events = append(r.events, recordedEvent{port, event, detail})
}

func (r *fakeRecorder) RecordCapture(
	port ids.PortID,
	frames, width, height int,
	dualPixel bool,
	status string,
) {
	r.captures = append(r.captures, status)
}
