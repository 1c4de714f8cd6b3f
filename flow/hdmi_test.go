package flow

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/sensics/cros-chameleon/fpga"
	"github.com/sensics/cros-chameleon/i2c"
	"github.com/sensics/cros-chameleon/io"
	"github.com/sensics/cros-chameleon/memory"
)

var _ = Describe("HdmiFlow", func() {
	var (
		mockCtrl *gomock.Controller
		bank     *memory.SimBank
		mockRx   *MockHdmiReceiver
		f        *HdmiFlow
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		bank = memory.NewSimBank()
		bus := i2c.NewSimBus()
		mockRx = NewMockHdmiReceiver(mockCtrl)
		f = NewHdmiFlow(fpga.NewController(bank), io.NewMuxIo(bus),
			io.NewPowerIo(bus), mockRx)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should start in dual-pixel mode", func() {
		Expect(f.IsDualPixelMode()).To(BeTrue())
	})

	It("should expose both pixel dump bases in dual-pixel mode", func() {
		Expect(f.GetPixelDumpBases()).To(Equal([]uint32{
			0xc0000000, 0xe0000000,
		}))
	})

	Describe("pixel-mode hysteresis", func() {
		It("should only leave dual mode below the low threshold", func() {
			gomock.InOrder(
				mockRx.EXPECT().GetPixelClock().Return(130.0),
				mockRx.EXPECT().GetPixelClock().Return(120.0),
				mockRx.EXPECT().GetPixelClock().Return(110.0),
			)
			mockRx.EXPECT().SetSinglePixelMode()

			Expect(f.setPixelMode()).To(BeFalse())
			Expect(f.IsDualPixelMode()).To(BeTrue())

			Expect(f.setPixelMode()).To(BeFalse())
			Expect(f.IsDualPixelMode()).To(BeTrue())

			Expect(f.setPixelMode()).To(BeTrue())
			Expect(f.IsDualPixelMode()).To(BeFalse())
		})

		It("should only enter dual mode above the high threshold", func() {
			gomock.InOrder(
				mockRx.EXPECT().GetPixelClock().Return(100.0),
				mockRx.EXPECT().GetPixelClock().Return(120.0),
				mockRx.EXPECT().GetPixelClock().Return(130.0),
			)
			mockRx.EXPECT().SetSinglePixelMode()
			mockRx.EXPECT().SetDualPixelMode()

			Expect(f.setPixelMode()).To(BeTrue())
			Expect(f.IsDualPixelMode()).To(BeFalse())

			Expect(f.setPixelMode()).To(BeFalse())
			Expect(f.IsDualPixelMode()).To(BeFalse())

			Expect(f.setPixelMode()).To(BeTrue())
			Expect(f.IsDualPixelMode()).To(BeTrue())
		})

		It("should switch the effective dumper count with the mode", func() {
			mockRx.EXPECT().GetPixelClock().Return(100.0)
			mockRx.EXPECT().SetSinglePixelMode()

			f.setPixelMode()

			Expect(f.GetPixelDumpBases()).To(HaveLen(1))
		})
	})

	Describe("DoFSM", func() {
		It("should do nothing when the link is settled in band", func() {
			mockRx.EXPECT().IsResetNeeded().Return(false)
			mockRx.EXPECT().IsVideoInputStable().Return(true).AnyTimes()
			mockRx.EXPECT().GetPixelClock().Return(120.0)

			Expect(f.DoFSM()).To(Succeed())
		})
	})

	Describe("content protection", func() {
		It("should delegate to the receiver", func() {
			mockRx.EXPECT().SetContentProtection(true)
			mockRx.EXPECT().IsContentProtectionEnabled().Return(true)
			mockRx.EXPECT().IsVideoInputEncrypted().Return(false)

			Expect(f.SetContentProtection(true)).To(Succeed())

			enabled, err := f.IsContentProtectionEnabled()
			Expect(err).To(Succeed())
			Expect(enabled).To(BeTrue())

			encrypted, err := f.IsVideoInputEncrypted()
			Expect(err).To(Succeed())
			Expect(encrypted).To(BeFalse())
		})
	})

	Describe("Plug and Unplug", func() {
		It("should drive the HPD line", func() {
			f.Plug()
			Expect(f.IsPlugged()).To(BeTrue())

			f.Unplug()
			Expect(f.IsPlugged()).To(BeFalse())
		})
	})
})

var _ = Describe("HdmiFlow EDID", func() {
	It("should latch EDID through the FPGA controller", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		defer mockCtrl.Finish()
		bank := memory.NewSimBank()
		bus := i2c.NewSimBus()
		f := NewHdmiFlow(fpga.NewController(bank), io.NewMuxIo(bus),
			io.NewPowerIo(bus), NewMockHdmiReceiver(mockCtrl))

		data := make([]byte, 256)
		for i := range data {
			data[i] = byte(i)
		}

		Expect(f.WriteEdid(data)).To(Succeed())
		Expect(f.ReadEdid()).To(Equal(data))
	})
})
