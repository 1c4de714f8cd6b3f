package framemanager

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sensics/cros-chameleon/fpga"
	"github.com/sensics/cros-chameleon/ids"
	"github.com/sensics/cros-chameleon/memory"
)

// Dumper register addresses, for preloading the measured-timing registers
// the hardware would fill in.
const (
	dump0Ctrl       = 0xff210000
	dump0Loop       = 0xff210010
	dump0Width      = 0xff210018
	dump0Height     = 0xff21001c
	dump0FrameCount = 0xff210020
	dump0HashBase   = 0xff210400
	dump1Width      = 0xff211018
	dump1HashBase   = 0xff211400
)

var _ = Describe("ValidateCrop", func() {
	It("should accept a full-screen capture", func() {
		Expect(ValidateCrop(nil, false)).To(Succeed())
		Expect(ValidateCrop(nil, true)).To(Succeed())
	})

	It("should accept 8-aligned rectangles in single-pixel mode", func() {
		crop := &CropRect{X: 8, Y: 8, Width: 16, Height: 8}
		Expect(ValidateCrop(crop, false)).To(Succeed())
	})

	It("should reject unaligned rectangles in single-pixel mode", func() {
		crop := &CropRect{X: 4, Y: 8, Width: 16, Height: 8}
		Expect(ValidateCrop(crop, false)).NotTo(Succeed())
	})

	It("should reject x not divisible by 16 in dual-pixel mode", func() {
		crop := &CropRect{X: 8, Y: 0, Width: 16, Height: 8}
		Expect(ValidateCrop(crop, true)).NotTo(Succeed())
	})

	It("should accept 16-aligned x and width in dual-pixel mode", func() {
		crop := &CropRect{X: 16, Y: 8, Width: 16, Height: 8}
		Expect(ValidateCrop(crop, true)).To(Succeed())
	})

	It("should reject negative origins even when 8-aligned", func() {
		crop := &CropRect{X: -8, Y: 0, Width: 16, Height: 8}
		Expect(ValidateCrop(crop, false)).NotTo(Succeed())

		crop = &CropRect{X: 0, Y: -8, Width: 16, Height: 8}
		Expect(ValidateCrop(crop, false)).NotTo(Succeed())
	})

	It("should reject empty and negative extents", func() {
		crop := &CropRect{X: 0, Y: 0, Width: 0, Height: 8}
		Expect(ValidateCrop(crop, false)).NotTo(Succeed())

		crop = &CropRect{X: 16, Y: 0, Width: -16, Height: 8}
		Expect(ValidateCrop(crop, true)).NotTo(Succeed())
	})
})

var _ = Describe("FrameManager", func() {
	var (
		bank  *memory.SimBank
		dump0 *fpga.VideoDumper
		dump1 *fpga.VideoDumper
	)

	BeforeEach(func() {
		bank = memory.NewSimBank()
		dump0 = fpga.NewVideoDumper(bank, 0)
		dump1 = fpga.NewVideoDumper(bank, 1)
	})

	singleManager := func() *FrameManager {
		return New(ids.DP1, false, []*fpga.VideoDumper{dump0})
	}

	dualManager := func() *FrameManager {
		return New(ids.HDMI, true, []*fpga.VideoDumper{dump0, dump1})
	}

	It("should reject a dumper count not matching the mode", func() {
		Expect(func() {
			New(ids.DP1, false, []*fpga.VideoDumper{dump0, dump1})
		}).To(Panic())
		Expect(func() {
			New(ids.HDMI, true, []*fpga.VideoDumper{dump0})
		}).To(Panic())
	})

	Describe("ComputeResolution", func() {
		It("should read the primary dumper in single-pixel mode", func() {
			bank.Write(dump0Width, 1920)
			bank.Write(dump0Height, 1080)

			width, height := singleManager().ComputeResolution()

			Expect(width).To(Equal(1920))
			Expect(height).To(Equal(1080))
		})

		It("should add the half widths in dual-pixel mode", func() {
			bank.Write(dump0Width, 960)
			bank.Write(dump0Height, 1080)
			bank.Write(dump1Width, 960)

			width, height := dualManager().ComputeResolution()

			Expect(width).To(Equal(1920))
			Expect(height).To(Equal(1080))
		})
	})

	Describe("GetMaxFrameLimit", func() {
		It("should delegate the full width in single-pixel mode", func() {
			Expect(singleManager().GetMaxFrameLimit(1920, 1080)).
				To(Equal(fpga.MaxFrameLimit(1920, 1080)))
		})

		It("should halve the width in dual-pixel mode", func() {
			Expect(dualManager().GetMaxFrameLimit(1920, 1080)).
				To(Equal(fpga.MaxFrameLimit(960, 1080)))
		})
	})

	Describe("DumpFramesToLimit", func() {
		It("should return once the frame count reaches the limit", func() {
			bank.Write(dump0FrameCount, 10)

			err := singleManager().DumpFramesToLimit(10, nil, time.Second)

			Expect(err).To(Succeed())
		})

		It("should report a capture timeout when frames stall", func() {
			bank.Write(dump0FrameCount, 2)

			err := singleManager().DumpFramesToLimit(
				10, nil, 50*time.Millisecond)

			Expect(errors.Is(err, ErrCaptureTimeout)).To(BeTrue())
		})

		It("should reject an unaligned crop before touching registers", func() {
			crop := &CropRect{X: 8, Y: 0, Width: 16, Height: 8}

			err := dualManager().DumpFramesToLimit(1, crop, time.Second)

			Expect(err).NotTo(Succeed())
			Expect(bank.Read(dump0Ctrl)).To(BeZero())
		})
	})

	Describe("StartDumpingFrames", func() {
		It("should configure loop mode and keep the retention cap", func() {
			m := singleManager()

			err := m.StartDumpingFrames(100, nil, 512)

			Expect(err).To(Succeed())
			Expect(bank.Read(dump0Loop)).To(Equal(uint32(1)))
			Expect(m.HashBufferLimit()).To(Equal(512))
		})
	})

	Describe("GetFrameHashes", func() {
		It("should return four halves per frame in single-pixel mode", func() {
			bank.Write(dump0HashBase+0, 0x01020304)
			bank.Write(dump0HashBase+4, 0x05060708)

			hashes, err := singleManager().GetFrameHashes(0, 1)

			Expect(err).To(Succeed())
			Expect(hashes).To(Equal([][]uint16{
				{0x0506, 0x0708, 0x0102, 0x0304},
			}))
		})

		It("should put the even-pixel halves first in dual-pixel mode", func() {
			bank.Write(dump0HashBase+4, 0xaaaabbbb)
			bank.Write(dump1HashBase+4, 0xccccdddd)

			hashes, err := dualManager().GetFrameHashes(1, 2)

			Expect(err).To(Succeed())
			Expect(hashes).To(Equal([][]uint16{
				{0xaaaa, 0xbbbb, 0xcccc, 0xdddd},
			}))
		})

		It("should reject an inverted range", func() {
			_, err := singleManager().GetFrameHashes(3, 1)

			Expect(err).NotTo(Succeed())
		})
	})
})
