package fpga

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sensics/cros-chameleon/ids"
	"github.com/sensics/cros-chameleon/memory"
)

var _ = Describe("HpdController", func() {
	var (
		bank *memory.SimBank
		hpd  *HpdController
	)

	BeforeEach(func() {
		bank = memory.NewSimBank()
		hpd = NewHpdController(bank)
	})

	It("should report unplugged after unplug", func() {
		hpd.Plug(ids.DP1)
		hpd.Unplug(ids.DP1)

		Expect(hpd.IsPlugged(ids.DP1)).To(BeFalse())
	})

	It("should report plugged after plug", func() {
		hpd.Plug(ids.HDMI)

		Expect(hpd.IsPlugged(ids.HDMI)).To(BeTrue())
	})

	It("should drive each port's own line", func() {
		hpd.Plug(ids.DP1)

		Expect(hpd.IsPlugged(ids.DP1)).To(BeTrue())
		Expect(hpd.IsPlugged(ids.DP2)).To(BeFalse())
		Expect(hpd.IsPlugged(ids.HDMI)).To(BeFalse())
	})

	It("should panic on a port without an HPD line", func() {
		Expect(func() { hpd.Plug(ids.VGA) }).To(Panic())
	})

	Describe("FireHpdPulse", func() {
		It("should end low when endLevel is 0", func() {
			hpd.Plug(ids.DP1)

			hpd.FireHpdPulse(ids.DP1, 1000, 0, 3, 0)

			Expect(hpd.IsPlugged(ids.DP1)).To(BeFalse())
		})

		It("should end high when endLevel is 1", func() {
			hpd.FireHpdPulse(ids.DP2, 500, 500, 2, 1)

			Expect(hpd.IsPlugged(ids.DP2)).To(BeTrue())
		})

		It("should toggle the line once per requested cycle", func() {
			recording := &recordingBank{
				RegisterBank: bank,
				watchAddr:    hpdBase + hpdOffsets[ids.DP1],
			}
			hpd := NewHpdController(recording)

			hpd.FireHpdPulse(ids.DP1, 1000, 0, 3, 0)

			// Three deassert/assert cycles, then the final low level.
			Expect(recording.writes).To(Equal([]uint32{
				hpdBitUnplug, hpdBitPlug,
				hpdBitUnplug, hpdBitPlug,
				hpdBitUnplug, hpdBitPlug,
				hpdBitUnplug,
			}))
		})

		It("should not touch the line after the last assert with endLevel 1", func() {
			recording := &recordingBank{
				RegisterBank: bank,
				watchAddr:    hpdBase + hpdOffsets[ids.HDMI],
			}
			hpd := NewHpdController(recording)

			hpd.FireHpdPulse(ids.HDMI, 500, 500, 2, 1)

			Expect(recording.writes).To(Equal([]uint32{
				hpdBitUnplug, hpdBitPlug,
				hpdBitUnplug, hpdBitPlug,
			}))
		})
	})
})

// recordingBank passes accesses through and keeps the sequence of values
// written to one watched address.
type recordingBank struct {
	memory.RegisterBank
	watchAddr uint32
	writes    []uint32
}

func (b *recordingBank) Write(addr uint32, value uint32) {
	if addr == b.watchAddr {
		b.writes = append(b.writes, value)
	}
	b.RegisterBank.Write(addr, value)
}
