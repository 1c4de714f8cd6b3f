package memory

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// A MmapBank accesses the FPGA registers through a /dev/mem mapping of the
// physical register window.
type MmapBank struct {
	base   uint32
	length uint32
	fd     int
	data   []byte
}

// NewMmapBank maps length bytes of physical address space starting at base.
// It panics if the mapping cannot be established, since nothing works without
// the FPGA.
func NewMmapBank(base uint32, length uint32) *MmapBank {
	fd, err := unix.Open("/dev/mem", unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		panic(fmt.Errorf("open /dev/mem: %w", err))
	}

	data, err := unix.Mmap(fd, int64(base), int(length),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		panic(fmt.Errorf("mmap register window %#08x+%#x: %w",
			base, length, err))
	}

	return &MmapBank{
		base:   base,
		length: length,
		fd:     fd,
		data:   data,
	}
}

// Close unmaps the register window.
func (b *MmapBank) Close() {
	_ = unix.Munmap(b.data)
	_ = unix.Close(b.fd)
}

func (b *MmapBank) wordPtr(addr uint32) *uint32 {
	if addr%4 != 0 {
		panic(fmt.Sprintf("unaligned register access at %#08x", addr))
	}
	if addr < b.base || addr+4 > b.base+b.length {
		panic(fmt.Sprintf("register access at %#08x outside window %#08x+%#x",
			addr, b.base, b.length))
	}

	return (*uint32)(unsafe.Pointer(&b.data[addr-b.base]))
}

// Read returns the word at the given address.
func (b *MmapBank) Read(addr uint32) uint32 {
	return atomic.LoadUint32(b.wordPtr(addr))
}

// Write stores the word at the given address.
func (b *MmapBank) Write(addr uint32, value uint32) {
	atomic.StoreUint32(b.wordPtr(addr), value)
}

// SetMask sets the given bits at the address.
func (b *MmapBank) SetMask(addr uint32, bits uint32) {
	b.Write(addr, b.Read(addr)|bits)
}

// ClearMask clears the given bits at the address.
func (b *MmapBank) ClearMask(addr uint32, bits uint32) {
	b.Write(addr, b.Read(addr)&^bits)
}
