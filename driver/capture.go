package driver

import (
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sensics/cros-chameleon/fpga"
	"github.com/sensics/cros-chameleon/framemanager"
	"github.com/sensics/cros-chameleon/ids"
)

// Capture timeout heuristic: assume at least 10 fps from the source plus a
// fixed margin for link settling.
const (
	captureTimeoutBase     = 5 * time.Second
	captureTimeoutPerFrame = 100 * time.Millisecond
)

// Hash entries retained by default in a continuous capture before the ring
// laps the reader.
const defaultHashBufferLimit = 1024

// A CapturedSession is the bookkeeping of the most recent capture: what was
// captured and how to read frames back out of capture memory. Exactly one
// session is live at a time; a new capture overwrites it and selecting
// another port invalidates it.
type CapturedSession struct {
	ID            string
	Port          ids.PortID
	TotalFrames   int
	Width         int
	Height        int
	DualPixelMode bool

	// Capture-memory base address per participating buffer, for the
	// external pixel readback tool.
	DumpBases []uint32
}

// Session returns the live capture session, or nil.
func (d *Driver) Session() *CapturedSession {
	return d.session
}

func (d *Driver) recordCapture(s *CapturedSession, status string) {
	if d.recorder != nil {
		d.recorder.RecordCapture(s.Port, s.TotalFrames, s.Width, s.Height,
			s.DualPixelMode, status)
	}
}

// prepareCapture selects the port, runs its FSM, and validates the request
// against the plugged state, the settled resolution, the crop alignment,
// and the buffer capacity. Nothing is written to capture hardware before
// all checks pass.
func (d *Driver) prepareCapture(
	port ids.PortID,
	totalFrames int,
	crop *framemanager.CropRect,
) (*CapturedSession, error) {
	f, err := d.selectInput(port)
	if err != nil {
		return nil, err
	}

	if !f.IsPlugged() {
		return nil, fmt.Errorf("%s: not plugged, cannot capture", port)
	}

	width, height, err := f.GetResolution()
	if err != nil {
		return nil, err
	}
	if crop != nil {
		if err := framemanager.ValidateCrop(crop, f.IsDualPixelMode()); err != nil {
			return nil, err
		}
		width, height = crop.Width, crop.Height
	}

	maxLimit := f.GetMaxFrameLimit(width, height)
	if totalFrames > maxLimit {
		return nil, fmt.Errorf(
			"%s: %d frames exceed the %d-frame buffer capacity at %dx%d",
			port, totalFrames, maxLimit, width, height)
	}

	return &CapturedSession{
		ID:            xid.New().String(),
		Port:          port,
		TotalFrames:   totalFrames,
		Width:         width,
		Height:        height,
		DualPixelMode: f.IsDualPixelMode(),
		DumpBases:     f.GetPixelDumpBases(),
	}, nil
}

// CaptureVideo captures totalFrames frames from the port and installs the
// session for frame readback. crop nil means full screen.
func (d *Driver) CaptureVideo(
	port ids.PortID,
	totalFrames int,
	crop *framemanager.CropRect,
) error {
	if totalFrames <= 0 {
		return fmt.Errorf("%s: total frame count must be positive, got %d",
			port, totalFrames)
	}

	session, err := d.prepareCapture(port, totalFrames, crop)
	if err != nil {
		return err
	}

	timeout := captureTimeoutBase +
		time.Duration(totalFrames)*captureTimeoutPerFrame
	f := d.flows[port]
	if err := f.DumpFramesToLimit(totalFrames, crop, timeout); err != nil {
		d.recordCapture(session, "failed: "+err.Error())
		return err
	}

	d.session = session
	d.recordCapture(session, "ok")
	return nil
}

// StartCapturingVideo starts a continuous capture on the port: the frame
// buffer wraps at its capacity and keeps overwriting until
// StopCapturingVideo. The session's frame count is settled at stop time.
func (d *Driver) StartCapturingVideo(
	port ids.PortID,
	crop *framemanager.CropRect,
) error {
	session, err := d.prepareCapture(port, 0, crop)
	if err != nil {
		return err
	}

	f := d.flows[port]
	frameBufferLimit := f.GetMaxFrameLimit(session.Width, session.Height)
	err = f.StartDumpingFrames(frameBufferLimit, crop, defaultHashBufferLimit)
	if err != nil {
		d.recordCapture(session, "failed: "+err.Error())
		return err
	}

	session.TotalFrames = frameBufferLimit
	d.session = session
	d.recordCapture(session, "started")
	return nil
}

// StopCapturingVideo stops the continuous capture and settles the session's
// frame count to what was actually dumped, capped at the buffer capacity.
func (d *Driver) StopCapturingVideo() error {
	if d.session == nil {
		return ErrNoCaptureSession
	}

	f := d.flows[d.session.Port]
	f.StopDumpingFrames()

	dumped := f.GetDumpedFrameCount()
	if dumped < d.session.TotalFrames {
		d.session.TotalFrames = dumped
	}
	d.recordCapture(d.session, "stopped")
	return nil
}

// GetCapturedFrameCount returns the frame count of the live session.
func (d *Driver) GetCapturedFrameCount() (int, error) {
	if d.session == nil {
		return 0, ErrNoCaptureSession
	}
	return d.session.TotalFrames, nil
}

// GetCapturedResolution returns the (possibly cropped) resolution of the
// live session.
func (d *Driver) GetCapturedResolution() (int, int, error) {
	if d.session == nil {
		return 0, 0, ErrNoCaptureSession
	}
	return d.session.Width, d.session.Height, nil
}

// ReadCapturedFrame reads one captured frame's raw pixels back out of
// capture memory. In dual-pixel mode each participating buffer holds the
// half-width frame, so the per-frame offset is computed on the halved
// width and applies to both buffers.
func (d *Driver) ReadCapturedFrame(index int) ([]byte, error) {
	s := d.session
	if s == nil {
		return nil, ErrNoCaptureSession
	}
	if index < 0 || index >= s.TotalFrames {
		return nil, fmt.Errorf("frame index %d out of range [0, %d)",
			index, s.TotalFrames)
	}

	bufferWidth := s.Width
	if s.DualPixelMode {
		bufferWidth /= 2
	}
	offset := uint32(index * fpga.FrameBufferSize(bufferWidth, s.Height))

	return d.pixelDump.DumpPixels(s.DumpBases, offset, s.Width, s.Height)
}

// GetCapturedChecksums returns the hardware frame hashes of session frames
// [start, stop). stop of zero means up to the session's frame count.
func (d *Driver) GetCapturedChecksums(start, stop int) ([][]uint16, error) {
	s := d.session
	if s == nil {
		return nil, ErrNoCaptureSession
	}
	if stop == 0 {
		stop = s.TotalFrames
	}
	if start < 0 || stop > s.TotalFrames || start > stop {
		return nil, fmt.Errorf("checksum range [%d, %d) out of range [0, %d)",
			start, stop, s.TotalFrames)
	}
	return d.flows[s.Port].GetFrameHashes(start, stop)
}

// DumpPixels captures one frame from the port and returns its raw pixels.
func (d *Driver) DumpPixels(port ids.PortID) ([]byte, error) {
	if err := d.CaptureVideo(port, 1, nil); err != nil {
		return nil, err
	}
	return d.ReadCapturedFrame(0)
}

// ComputePixelChecksum captures one frame from the port and returns its
// hardware hash.
func (d *Driver) ComputePixelChecksum(port ids.PortID) ([]uint16, error) {
	if err := d.CaptureVideo(port, 1, nil); err != nil {
		return nil, err
	}
	checksums, err := d.GetCapturedChecksums(0, 1)
	if err != nil {
		return nil, err
	}
	return checksums[0], nil
}

// GetPixelFormat names the pixel layout of captured frames.
func (d *Driver) GetPixelFormat() string {
	return "rgb"
}
