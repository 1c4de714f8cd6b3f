package flow

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/sensics/cros-chameleon/fpga"
	"github.com/sensics/cros-chameleon/i2c"
	"github.com/sensics/cros-chameleon/ids"
	"github.com/sensics/cros-chameleon/io"
	"github.com/sensics/cros-chameleon/memory"
)

// Measured-timing registers of dumper instance 0, DP1's primary.
const (
	dump0WidthReg      = 0xff210018
	dump0HeightReg     = 0xff21001c
	dump0FrameCountReg = 0xff210020
)

var _ = Describe("DpFlow", func() {
	var (
		mockCtrl *gomock.Controller
		bank     *memory.SimBank
		bus      *i2c.SimBus
		muxIo    *io.MuxIo
		mockRx   *MockDpReceiver
		f        *DpFlow
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		bank = memory.NewSimBank()
		bus = i2c.NewSimBus()
		muxIo = io.NewMuxIo(bus)
		mockRx = NewMockDpReceiver(mockCtrl)
		f = NewDpFlow(ids.DP1, fpga.NewController(bank), muxIo,
			io.NewPowerIo(bus), mockRx)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should report its connector type", func() {
		Expect(f.ConnectorType()).To(Equal("DP"))
		Expect(f.PortID()).To(Equal(ids.DP1))
		Expect(f.IsDualPixelMode()).To(BeFalse())
	})

	Describe("Plug and Unplug", func() {
		It("should enable EDID and DDC and assert HPD on plug", func() {
			muxIo.SetOutputMask(io.MaskDp1AuxBypassL)
			mockRx.EXPECT().SetEdidEnabled(true)

			f.Plug()

			Expect(f.IsPlugged()).To(BeTrue())
			Expect(muxIo.GetOutput() & io.MaskDp1AuxBypassL).To(BeZero())
		})

		It("should deassert HPD and disable EDID and DDC on unplug", func() {
			mockRx.EXPECT().SetEdidEnabled(true)
			mockRx.EXPECT().SetEdidEnabled(false)
			f.Plug()

			f.Unplug()

			Expect(f.IsPlugged()).To(BeFalse())
			Expect(muxIo.GetOutput() & io.MaskDp1AuxBypassL).NotTo(BeZero())
		})

		It("should not enable EDID on plug while the EDID state is off", func() {
			mockRx.EXPECT().SetEdidEnabled(false)
			f.SetEdidState(false)

			f.Plug()

			Expect(f.IsPlugged()).To(BeTrue())
			Expect(f.IsEdidEnabled()).To(BeFalse())
		})
	})

	Describe("FireMixedHpdPulses", func() {
		It("should end low after an even number of segments", func() {
			mockRx.EXPECT().SetEdidEnabled(false).Times(2)
			mockRx.EXPECT().SetEdidEnabled(true).Times(1)

			f.FireMixedHpdPulses([]int{1, 1})

			Expect(f.IsPlugged()).To(BeFalse())
		})

		It("should end high after an odd number of segments", func() {
			mockRx.EXPECT().SetEdidEnabled(false).Times(2)
			mockRx.EXPECT().SetEdidEnabled(true).Times(2)

			f.FireMixedHpdPulses([]int{1, 1, 1})

			Expect(f.IsPlugged()).To(BeTrue())
		})
	})

	Describe("DoFSM", func() {
		It("should skip the reset when the link is locked", func() {
			bank.Write(dump0WidthReg, 1920)
			bank.Write(dump0HeightReg, 1080)
			mockRx.EXPECT().IsVideoInputStable().Return(true).AnyTimes()
			mockRx.EXPECT().GetFrameResolution().Return(1920, 1080).AnyTimes()

			Expect(f.DoFSM()).To(Succeed())
		})
	})

	Describe("DumpFramesToLimit", func() {
		It("should capture once the output is stable", func() {
			bank.Write(dump0WidthReg, 1920)
			bank.Write(dump0HeightReg, 1080)
			bank.Write(dump0FrameCountReg, 5)
			mockRx.EXPECT().GetFrameResolution().Return(1920, 1080).AnyTimes()

			err := f.DumpFramesToLimit(5, nil, time.Second)

			Expect(err).To(Succeed())
		})
	})

	It("should expose one pixel dump base in single-pixel mode", func() {
		Expect(f.GetPixelDumpBases()).To(Equal([]uint32{0xc0000000}))
	})

	It("should not support content protection", func() {
		err := f.SetContentProtection(true)
		Expect(errors.Is(err, ErrNotSupported)).To(BeTrue())

		_, err = f.IsContentProtectionEnabled()
		Expect(errors.Is(err, ErrNotSupported)).To(BeTrue())

		_, err = f.IsVideoInputEncrypted()
		Expect(errors.Is(err, ErrNotSupported)).To(BeTrue())
	})
})
