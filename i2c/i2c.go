// Package i2c exposes the main I2C bus of the Chameleon board at its
// interface boundary. Receiver chips, IO expanders and power-control lines
// are addressed as slaves at fixed addresses; the wire framing underneath is
// owned by the kernel driver, not by this package.
package i2c

// A Bus hands out handles to the slaves on one physical I2C bus.
type Bus interface {
	// GetSlave returns a handle for the slave at the given 7-bit address.
	GetSlave(addr byte) Slave
}

// A Slave is one device on the bus, exposing register-style access.
//
// A failed transfer means the board wiring or the kernel bus driver is
// broken. As with FPGA registers there is no recovery strategy, so
// implementations panic rather than return an error.
type Slave interface {
	// Addr returns the 7-bit slave address.
	Addr() byte

	// Get reads count bytes starting at the given register offset.
	Get(offset byte, count int) []byte

	// Set writes data starting at the given register offset.
	Set(offset byte, data []byte)
}

// GetByte reads a single register.
func GetByte(s Slave, offset byte) byte {
	return s.Get(offset, 1)[0]
}

// SetByte writes a single register.
func SetByte(s Slave, offset byte, value byte) {
	s.Set(offset, []byte{value})
}

// SetByteMask sets bits in a register, read-modify-write.
func SetByteMask(s Slave, offset byte, mask byte) {
	SetByte(s, offset, GetByte(s, offset)|mask)
}

// ClearByteMask clears bits in a register, read-modify-write.
func ClearByteMask(s Slave, offset byte, mask byte) {
	SetByte(s, offset, GetByte(s, offset)&^mask)
}
