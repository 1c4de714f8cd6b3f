package i2c

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// I2C_SLAVE ioctl request, from linux/i2c-dev.h.
const i2cSlaveRequest = 0x0703

// A DevBus drives a kernel i2c-dev adapter, e.g. /dev/i2c-0.
type DevBus struct {
	index  int
	fd     int
	slaves map[byte]*devSlave
}

// NewDevBus opens the i2c-dev adapter with the given index. It panics if the
// adapter cannot be opened; the receivers and IO expanders all sit behind it.
func NewDevBus(index int) *DevBus {
	path := fmt.Sprintf("/dev/i2c-%d", index)
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		panic(fmt.Errorf("open %s: %w", path, err))
	}

	return &DevBus{
		index:  index,
		fd:     fd,
		slaves: make(map[byte]*devSlave),
	}
}

// GetSlave returns a handle for the slave at the given address. Handles are
// cached, one per address.
func (b *DevBus) GetSlave(addr byte) Slave {
	if s, ok := b.slaves[addr]; ok {
		return s
	}

	s := &devSlave{bus: b, addr: addr}
	b.slaves[addr] = s

	return s
}

// Close releases the adapter.
func (b *DevBus) Close() {
	_ = unix.Close(b.fd)
}

func (b *DevBus) target(addr byte) {
	if err := unix.IoctlSetInt(b.fd, i2cSlaveRequest, int(addr)); err != nil {
		panic(fmt.Errorf("i2c-%d: select slave %#02x: %w", b.index, addr, err))
	}
}

type devSlave struct {
	bus  *DevBus
	addr byte
}

func (s *devSlave) Addr() byte {
	return s.addr
}

func (s *devSlave) Get(offset byte, count int) []byte {
	s.bus.target(s.addr)

	if _, err := unix.Write(s.bus.fd, []byte{offset}); err != nil {
		panic(fmt.Errorf("i2c slave %#02x: set offset %#02x: %w",
			s.addr, offset, err))
	}

	buf := make([]byte, count)
	n, err := unix.Read(s.bus.fd, buf)
	if err != nil || n != count {
		panic(fmt.Errorf("i2c slave %#02x: read %d bytes at %#02x: %w",
			s.addr, count, offset, err))
	}

	return buf
}

func (s *devSlave) Set(offset byte, data []byte) {
	s.bus.target(s.addr)

	msg := append([]byte{offset}, data...)
	if _, err := unix.Write(s.bus.fd, msg); err != nil {
		panic(fmt.Errorf("i2c slave %#02x: write %d bytes at %#02x: %w",
			s.addr, len(data), offset, err))
	}
}
