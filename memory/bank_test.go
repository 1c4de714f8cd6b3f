package memory

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SimBank", func() {
	var bank *SimBank

	BeforeEach(func() {
		bank = NewSimBank()
	})

	It("should read zero from untouched registers", func() {
		Expect(bank.Read(0xff210000)).To(Equal(uint32(0)))
	})

	It("should read back what was written", func() {
		bank.Write(0xff210018, 1920)
		Expect(bank.Read(0xff210018)).To(Equal(uint32(1920)))
	})

	It("should keep registers on different pages apart", func() {
		bank.Write(0xff210000, 1)
		bank.Write(0xff211000, 2)

		Expect(bank.Read(0xff210000)).To(Equal(uint32(1)))
		Expect(bank.Read(0xff211000)).To(Equal(uint32(2)))
	})

	It("should set bits without touching others", func() {
		bank.Write(0xff21a004, 0b1001)
		bank.SetMask(0xff21a004, 0b0110)

		Expect(bank.Read(0xff21a004)).To(Equal(uint32(0b1111)))
	})

	It("should clear bits without touching others", func() {
		bank.Write(0xff21a004, 0b1111)
		bank.ClearMask(0xff21a004, 0b0101)

		Expect(bank.Read(0xff21a004)).To(Equal(uint32(0b1010)))
	})

	It("should panic on unaligned access", func() {
		Expect(func() { bank.Read(0xff210001) }).To(Panic())
		Expect(func() { bank.Write(0xff210002, 0) }).To(Panic())
	})
})
