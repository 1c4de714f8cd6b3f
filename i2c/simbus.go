package i2c

// A SimBus is an in-memory bus for tests and off-target runs. Every slave is
// a plain 256-byte register file that reads back what was written.
type SimBus struct {
	slaves map[byte]*SimSlave
}

// NewSimBus creates a bus with no slaves. Slaves come into existence on
// first access.
func NewSimBus() *SimBus {
	return &SimBus{
		slaves: make(map[byte]*SimSlave),
	}
}

// GetSlave returns the simulated slave at the given address.
func (b *SimBus) GetSlave(addr byte) Slave {
	return b.Slave(addr)
}

// Slave is like GetSlave but returns the concrete type so tests can preload
// registers.
func (b *SimBus) Slave(addr byte) *SimSlave {
	if s, ok := b.slaves[addr]; ok {
		return s
	}

	s := &SimSlave{addr: addr}
	b.slaves[addr] = s

	return s
}

// A SimSlave holds one simulated register file.
type SimSlave struct {
	addr byte
	regs [256]byte
}

func (s *SimSlave) Addr() byte {
	return s.addr
}

func (s *SimSlave) Get(offset byte, count int) []byte {
	buf := make([]byte, count)
	for i := 0; i < count; i++ {
		buf[i] = s.regs[(int(offset)+i)%256]
	}
	return buf
}

func (s *SimSlave) Set(offset byte, data []byte) {
	for i, b := range data {
		s.regs[(int(offset)+i)%256] = b
	}
}
