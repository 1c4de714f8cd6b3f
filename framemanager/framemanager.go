// Package framemanager presents one virtual dumper over one or two physical
// video dumper instances and owns frame-capture orchestration, independent
// of connector type.
package framemanager

import (
	"fmt"
	"time"

	"github.com/sensics/cros-chameleon/fpga"
	"github.com/sensics/cros-chameleon/ids"
	"github.com/sensics/cros-chameleon/wait"
)

// A CropRect is the capture area. A nil *CropRect means full screen.
type CropRect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// ErrCaptureTimeout reports that the requested frame count was not reached
// in time. The caller is expected to log receiver diagnostics before
// surfacing it.
var ErrCaptureTimeout = fmt.Errorf("frame capture: %w", wait.ErrTimeout)

const frameCountPollInterval = 100 * time.Millisecond

// ValidateCrop rejects crop rectangles the hardware cannot address. In
// single-pixel mode all of (x, y, width, height) must be divisible by 8; in
// dual-pixel mode x and width must be divisible by 16 (the two dumpers each
// take every other pixel) and y, height by 8.
func ValidateCrop(crop *CropRect, dualPixelMode bool) error {
	if crop == nil {
		return nil
	}

	if crop.X < 0 || crop.Y < 0 || crop.Width <= 0 || crop.Height <= 0 {
		return fmt.Errorf(
			"crop (%d, %d, %d, %d) not inside the frame",
			crop.X, crop.Y, crop.Width, crop.Height)
	}

	xAlign := 8
	if dualPixelMode {
		xAlign = 16
	}

	if crop.X%xAlign != 0 || crop.Width%xAlign != 0 ||
		crop.Y%8 != 0 || crop.Height%8 != 0 {
		return fmt.Errorf(
			"crop (%d, %d, %d, %d) not aligned: x/width must be multiples "+
				"of %d and y/height multiples of 8",
			crop.X, crop.Y, crop.Width, crop.Height, xAlign)
	}

	return nil
}

// A FrameManager orchestrates the dumper instances serving one port.
//
// In single-pixel mode it drives the port's primary dumper only. In
// dual-pixel mode it drives both, even-pixels instance first, and the
// hardware run-dual barrier keeps them in lockstep.
type FrameManager struct {
	port          ids.PortID
	dualPixelMode bool
	dumpers       []*fpga.VideoDumper

	hashBufferLimit int
}

// New creates a frame manager for the given port. dumpers must hold the
// effective instances for the mode: the primary one in single-pixel mode,
// or the even-pixels then odd-pixels instances in dual-pixel mode.
func New(
	port ids.PortID,
	dualPixelMode bool,
	dumpers []*fpga.VideoDumper,
) *FrameManager {
	want := 1
	if dualPixelMode {
		want = 2
	}
	if len(dumpers) != want {
		panic(fmt.Sprintf("frame manager for %s needs %d dumpers, got %d",
			port, want, len(dumpers)))
	}

	return &FrameManager{
		port:          port,
		dualPixelMode: dualPixelMode,
		dumpers:       dumpers,
	}
}

// ComputeResolution returns the resolution the FPGA measured on the video
// path. In dual-pixel mode each dumper only sees half the horizontal
// samples, so the widths add up.
func (m *FrameManager) ComputeResolution() (width, height int) {
	if m.dualPixelMode {
		return m.dumpers[0].GetWidth() + m.dumpers[1].GetWidth(),
			m.dumpers[0].GetHeight()
	}
	return m.dumpers[0].GetWidth(), m.dumpers[0].GetHeight()
}

// GetMaxFrameLimit returns how many frames of the given full-frame geometry
// fit in the capture buffer.
func (m *FrameManager) GetMaxFrameLimit(width, height int) int {
	if m.dualPixelMode {
		width /= 2
	}
	return fpga.MaxFrameLimit(width, height)
}

// GetFrameCount returns the number of frames captured so far, for progress
// polling.
func (m *FrameManager) GetFrameCount() int {
	return m.dumpers[0].GetFrameCount()
}

func (m *FrameManager) configure(frameLimit int, crop *CropRect, loop bool) {
	for _, d := range m.dumpers {
		d.Stop()
		if crop != nil {
			d.EnableCrop(crop.X, crop.Y, crop.Width, crop.Height)
		} else {
			d.DisableCrop()
		}
		d.SetFrameLimit(frameLimit, loop)
	}
	for _, d := range m.dumpers {
		d.Start(m.port, m.dualPixelMode)
	}
}

// DumpFramesToLimit captures until frameLimit frames were dumped or timeout
// elapsed. Unaligned crops are rejected before any register write.
func (m *FrameManager) DumpFramesToLimit(
	frameLimit int,
	crop *CropRect,
	timeout time.Duration,
) error {
	if err := ValidateCrop(crop, m.dualPixelMode); err != nil {
		return err
	}

	m.configure(frameLimit, crop, false)

	err := wait.ForCondition(func() bool {
		return m.GetFrameCount() >= frameLimit
	}, frameCountPollInterval, timeout)
	if err != nil {
		return fmt.Errorf("%w: reached %d of %d frames",
			ErrCaptureTimeout, m.GetFrameCount(), frameLimit)
	}

	return nil
}

// StartDumpingFrames starts an open-ended capture: the frame buffer wraps
// at frameBufferLimit frames and keeps overwriting until StopDumpingFrames.
// hashBufferLimit caps how many hash entries the caller intends to retain;
// the hash ring wraps silently past it, so the caller must drain hashes in
// time.
func (m *FrameManager) StartDumpingFrames(
	frameBufferLimit int,
	crop *CropRect,
	hashBufferLimit int,
) error {
	if err := ValidateCrop(crop, m.dualPixelMode); err != nil {
		return err
	}

	m.hashBufferLimit = hashBufferLimit
	m.configure(frameBufferLimit, crop, true)

	return nil
}

// StopDumpingFrames stops all participating dumpers.
func (m *FrameManager) StopDumpingFrames() {
	for _, d := range m.dumpers {
		d.Stop()
	}
}

// HashBufferLimit returns the retention cap given to StartDumpingFrames.
func (m *FrameManager) HashBufferLimit() int {
	return m.hashBufferLimit
}

// GetFrameHashes returns the hashes of frames [start, stop) in capture
// order, one slice of big-endian 16-bit values per frame. In dual-pixel
// mode the even-pixel halves precede the odd-pixel halves.
func (m *FrameManager) GetFrameHashes(start, stop int) ([][]uint16, error) {
	if start < 0 || stop < start {
		return nil, fmt.Errorf("invalid frame hash range [%d, %d)", start, stop)
	}

	hashes := make([][]uint16, 0, stop-start)
	for i := start; i < stop; i++ {
		if m.dualPixelMode {
			hash := m.dumpers[0].GetFrameHash(i, true)
			hash = append(hash, m.dumpers[1].GetFrameHash(i, true)...)
			hashes = append(hashes, hash)
		} else {
			hashes = append(hashes, m.dumpers[0].GetFrameHash(i, false))
		}
	}

	return hashes, nil
}
