package fpga

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sensics/cros-chameleon/ids"
	"github.com/sensics/cros-chameleon/memory"
)

var _ = Describe("VideoDumper", func() {
	var (
		bank   *memory.SimBank
		dump0  *VideoDumper
		dump1  *VideoDumper
		ctrl0  uint32
		ctrl1  uint32
		limit0 uint32
		loop0  uint32
	)

	BeforeEach(func() {
		bank = memory.NewSimBank()
		dump0 = NewVideoDumper(bank, 0)
		dump1 = NewVideoDumper(bank, 1)
		ctrl0 = vdumpRegBases[0] + vdumpRegCtrl
		ctrl1 = vdumpRegBases[1] + vdumpRegCtrl
		limit0 = vdumpRegBases[0] + vdumpRegLimit
		loop0 = vdumpRegBases[0] + vdumpRegLoop
	})

	It("should reject an out-of-range instance index", func() {
		Expect(func() { NewVideoDumper(bank, 2) }).To(Panic())
	})

	Describe("Select", func() {
		It("should program the capture memory range", func() {
			dump1.Select(ids.DP2, false)

			Expect(bank.Read(vdumpRegBases[1] + vdumpRegStartAddr)).
				To(Equal(dumpStartAddresses[1]))
			Expect(bank.Read(vdumpRegBases[1] + vdumpRegEndAddr)).
				To(Equal(dumpStartAddresses[1] + DumpBufferSize))
		})

		It("should use the 64-bit hash in single-pixel mode", func() {
			dump0.Select(ids.DP1, false)

			Expect(bank.Read(ctrl0) & vdumpBitHash64).NotTo(BeZero())
		})

		It("should use the 32-bit hash in dual-pixel mode", func() {
			dump0.Select(ids.HDMI, true)

			Expect(bank.Read(ctrl0) & vdumpBitHash64).To(BeZero())
		})

		It("should pick the alternate clock lane off the primary", func() {
			// HDMI's primary instance is 1, so instance 0 runs off the
			// alternate lane.
			dump0.Select(ids.HDMI, true)
			dump1.Select(ids.HDMI, true)

			Expect(bank.Read(ctrl0) & vdumpBitClkAlt).NotTo(BeZero())
			Expect(bank.Read(ctrl1) & vdumpBitClkAlt).To(BeZero())
		})

		It("should reset the frame limit to the safe default", func() {
			bank.Write(limit0, 100)
			bank.Write(loop0, 1)

			dump0.Select(ids.DP1, false)

			Expect(bank.Read(limit0)).To(Equal(uint32(1)))
			Expect(bank.Read(loop0)).To(Equal(uint32(0)))
		})
	})

	Describe("Start and Stop", func() {
		It("should set the run-dual bit on both instances in dual mode", func() {
			dump0.Start(ids.HDMI, true)
			dump1.Start(ids.HDMI, true)

			Expect(bank.Read(ctrl0) & vdumpBitRunDual).NotTo(BeZero())
			Expect(bank.Read(ctrl1) & vdumpBitRunDual).NotTo(BeZero())
		})

		It("should only run the primary instance in single-pixel mode", func() {
			dump0.Start(ids.DP1, false)
			dump1.Start(ids.DP1, false)

			Expect(bank.Read(ctrl0) & vdumpBitRun).NotTo(BeZero())
			Expect(bank.Read(ctrl1) & vdumpBitRun).To(BeZero())
		})

		It("should clear the run bits on stop", func() {
			dump0.Start(ids.DP1, false)
			dump0.Stop()

			Expect(bank.Read(ctrl0) & (vdumpBitRun | vdumpBitRunDual)).
				To(BeZero())
		})
	})

	Describe("crop", func() {
		It("should pack the ranges as end<<16|start", func() {
			dump0.EnableCrop(16, 8, 320, 240)

			Expect(bank.Read(vdumpRegBases[0] + vdumpRegCropXRange)).
				To(Equal(uint32(336<<16 | 16)))
			Expect(bank.Read(vdumpRegBases[0] + vdumpRegCropYRange)).
				To(Equal(uint32(248<<16 | 8)))
			Expect(bank.Read(ctrl0) & vdumpBitCrop).NotTo(BeZero())
		})

		It("should clear the crop bit on disable", func() {
			dump0.EnableCrop(0, 0, 64, 64)
			dump0.DisableCrop()

			Expect(bank.Read(ctrl0) & vdumpBitCrop).To(BeZero())
		})
	})

	Describe("measured timing", func() {
		It("should read the width, height and frame count registers", func() {
			bank.Write(vdumpRegBases[0]+vdumpRegWidth, 1920)
			bank.Write(vdumpRegBases[0]+vdumpRegHeight, 1080)
			bank.Write(vdumpRegBases[0]+vdumpRegFrameCount, 42)

			Expect(dump0.GetWidth()).To(Equal(1920))
			Expect(dump0.GetHeight()).To(Equal(1080))
			Expect(dump0.GetFrameCount()).To(Equal(42))
		})
	})

	Describe("GetFrameHash", func() {
		It("should unpack one 32-bit slot per frame in dual mode", func() {
			bank.Write(vdumpRegBases[0]+vdumpRegHashBufBase+3*4, 0xdeadbeef)

			hash := dump0.GetFrameHash(3, true)

			Expect(hash).To(Equal([]uint16{0xdead, 0xbeef}))
		})

		It("should read two adjacent slots per frame in single mode", func() {
			bank.Write(vdumpRegBases[0]+vdumpRegHashBufBase+6*4, 0x01020304)
			bank.Write(vdumpRegBases[0]+vdumpRegHashBufBase+7*4, 0x05060708)

			hash := dump0.GetFrameHash(3, false)

			Expect(hash).To(Equal([]uint16{0x0506, 0x0708, 0x0102, 0x0304}))
		})

		It("should wrap the ring at 1024 bytes", func() {
			bank.Write(vdumpRegBases[0]+vdumpRegHashBufBase, 0xcafe0000)

			hash := dump0.GetFrameHash(256, true)

			Expect(hash).To(Equal([]uint16{0xcafe, 0x0000}))
		})
	})

	Describe("MaxFrameLimit", func() {
		It("should round a frame up to whole pages", func() {
			// 64x64x3 = 12288 bytes = exactly 3 pages.
			Expect(MaxFrameLimit(64, 64)).
				To(Equal(int(DumpBufferSize) / (3 * 4096)))

			// 65x64x3 = 12480 bytes rounds up to 4 pages.
			Expect(MaxFrameLimit(65, 64)).
				To(Equal(int(DumpBufferSize) / (4 * 4096)))
		})

		It("should be non-increasing in the pixel count", func() {
			limits := []int{
				MaxFrameLimit(640, 480),
				MaxFrameLimit(1280, 720),
				MaxFrameLimit(1920, 1080),
				MaxFrameLimit(3840, 2160),
			}

			for i := 1; i < len(limits); i++ {
				Expect(limits[i]).To(BeNumerically("<=", limits[i-1]))
			}
		})
	})

	Describe("PixelDumpBases", func() {
		It("should return one base for single-pixel mode", func() {
			Expect(PixelDumpBases(ids.DP2, false)).To(Equal([]uint32{
				DumpBaseAddress + dumpStartAddresses[1],
			}))
		})

		It("should return the even-pixel base first in dual mode", func() {
			Expect(PixelDumpBases(ids.HDMI, true)).To(Equal([]uint32{
				DumpBaseAddress + dumpStartAddresses[0],
				DumpBaseAddress + dumpStartAddresses[1],
			}))
		})
	})
})
