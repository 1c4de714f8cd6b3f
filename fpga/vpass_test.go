package fpga

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sensics/cros-chameleon/ids"
	"github.com/sensics/cros-chameleon/memory"
)

var _ = Describe("VideoPasser", func() {
	var (
		bank  *memory.SimBank
		vpass *VideoPasser
	)

	BeforeEach(func() {
		bank = memory.NewSimBank()
		vpass = NewVideoPasser(bank)
	})

	It("should route DP2 through the B lanes", func() {
		vpass.Select(ids.DP2)

		Expect(bank.Read(vpassRegCtrl)).
			To(Equal(vpassBitClkB | vpassBitDataB))
	})

	It("should route HDMI clock on B and data on A", func() {
		vpass.Select(ids.HDMI)

		Expect(bank.Read(vpassRegCtrl)).
			To(Equal(vpassBitClkB | vpassBitDataA))
	})

	It("should overwrite the previous selection", func() {
		vpass.Select(ids.DP2)
		vpass.Select(ids.DP1)

		Expect(bank.Read(vpassRegCtrl)).
			To(Equal(vpassBitClkA | vpassBitDataA))
	})
})
