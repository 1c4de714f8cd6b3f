// Package pixeldump reads captured raw pixels out of capture memory. The
// FPGA writes frames to physical memory the CPU cannot reach fast enough
// through /dev/mem word accesses, so the readback goes through the board's
// pixeldump helper binary which DMAs the buffer into a file.
package pixeldump

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

const defaultTool = "pixeldump"

// BytesPerPixel is the capture pixel depth (RGB, 8 bits per channel).
const BytesPerPixel = 3

// A Runner reads one frame's pixels out of capture memory.
type Runner interface {
	// DumpPixels reads width x height pixels starting at offset bytes into
	// the buffer(s). bases holds one physical base address in single-pixel
	// captures, or the even- and odd-pixel buffer bases in dual-pixel
	// captures, in that order.
	DumpPixels(bases []uint32, offset uint32, width, height int) ([]byte, error)
}

// A ToolRunner shells out to the pixeldump helper binary.
type ToolRunner struct {
	tool string
}

// NewToolRunner creates a runner using the given helper binary, or the one
// on PATH if tool is empty.
func NewToolRunner(tool string) *ToolRunner {
	if tool == "" {
		tool = defaultTool
	}
	return &ToolRunner{tool: tool}
}

func (r *ToolRunner) DumpPixels(
	bases []uint32,
	offset uint32,
	width, height int,
) ([]byte, error) {
	if len(bases) != 1 && len(bases) != 2 {
		return nil, fmt.Errorf("pixeldump: need 1 or 2 base addresses, got %d",
			len(bases))
	}

	f, err := os.CreateTemp("", "pixeldump-*.bgr")
	if err != nil {
		return nil, fmt.Errorf("pixeldump: %w", err)
	}
	f.Close()
	defer os.Remove(f.Name())

	args := []string{
		"-a", fmt.Sprintf("%#x", bases[0]+offset),
	}
	if len(bases) == 2 {
		args = append(args, "-b", fmt.Sprintf("%#x", bases[1]+offset))
	}
	args = append(args,
		f.Name(),
		strconv.Itoa(width),
		strconv.Itoa(height),
		strconv.Itoa(BytesPerPixel),
	)

	cmd := exec.Command(r.tool, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pixeldump: %s %v: %w: %s",
			r.tool, args, err, out)
	}

	pixels, err := os.ReadFile(f.Name())
	if err != nil {
		return nil, fmt.Errorf("pixeldump: %w", err)
	}

	want := width * height * BytesPerPixel
	if len(pixels) < want {
		return nil, fmt.Errorf("pixeldump: short read: %d of %d bytes",
			len(pixels), want)
	}

	return pixels[:want], nil
}
