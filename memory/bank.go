// Package memory provides access to the memory-mapped register space of the
// Chameleon FPGA.
package memory

import "fmt"

// A RegisterBank is a flat, word-addressed view of the FPGA register space.
//
// None of the operations return an error. A physical access that fails means
// the FPGA is unreachable and there is no recovery strategy, so the
// implementations panic instead.
type RegisterBank interface {
	// Read returns the word at the given address.
	Read(addr uint32) uint32

	// Write stores the word at the given address.
	Write(addr uint32, value uint32)

	// SetMask sets the given bits at the address, leaving the rest untouched.
	SetMask(addr uint32, bits uint32)

	// ClearMask clears the given bits at the address, leaving the rest
	// untouched.
	ClearMask(addr uint32, bits uint32)
}

const (
	pageBytes = 4096
	pageWords = pageBytes / 4
)

// A SimBank is a register bank backed by plain memory.
//
// The bank manages the address space in pages. A page is only allocated once
// a word in it is touched, so the full 32-bit register space can be covered
// without preallocation. It substitutes for real hardware in tests and when
// running the daemon off-target.
type SimBank struct {
	pages map[uint32][]uint32
}

// NewSimBank creates an empty simulated register bank. All registers read as
// zero until written.
func NewSimBank() *SimBank {
	return &SimBank{
		pages: make(map[uint32][]uint32),
	}
}

func (b *SimBank) pageFor(addr uint32) []uint32 {
	if addr%4 != 0 {
		panic(fmt.Sprintf("unaligned register access at %#08x", addr))
	}

	base := addr &^ uint32(pageBytes-1)
	page, ok := b.pages[base]
	if !ok {
		page = make([]uint32, pageWords)
		b.pages[base] = page
	}

	return page
}

// Read returns the word at the given address.
func (b *SimBank) Read(addr uint32) uint32 {
	return b.pageFor(addr)[addr%pageBytes/4]
}

// Write stores the word at the given address.
func (b *SimBank) Write(addr uint32, value uint32) {
	b.pageFor(addr)[addr%pageBytes/4] = value
}

// SetMask sets the given bits at the address.
func (b *SimBank) SetMask(addr uint32, bits uint32) {
	b.Write(addr, b.Read(addr)|bits)
}

// ClearMask clears the given bits at the address.
func (b *SimBank) ClearMask(addr uint32, bits uint32) {
	b.Write(addr, b.Read(addr)&^bits)
}
