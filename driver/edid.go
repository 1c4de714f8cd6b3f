package driver

import (
	"fmt"

	"github.com/sensics/cros-chameleon/edid"
	"github.com/sensics/cros-chameleon/ids"
)

// CreateEdid registers an EDID block and returns its id. The first free
// slot is reused; with none free the registry grows.
func (d *Driver) CreateEdid(data []byte) (int, error) {
	if len(data) != edid.Size {
		return 0, fmt.Errorf("EDID must be %d bytes, got %d",
			edid.Size, len(data))
	}

	block := make([]byte, edid.Size)
	copy(block, data)

	for id := ids.EdidIDDefault + 1; id < len(d.edids); id++ {
		if d.edids[id] == nil {
			d.edids[id] = block
			return id, nil
		}
	}
	d.edids = append(d.edids, block)
	return len(d.edids) - 1, nil
}

// DestroyEdid frees a registry slot for reuse. The reserved default cannot
// be destroyed.
func (d *Driver) DestroyEdid(id int) error {
	if id == ids.EdidIDDefault {
		return fmt.Errorf("%w: %d is the reserved default", ErrInvalidEdidID, id)
	}
	if id < 0 || id >= len(d.edids) || d.edids[id] == nil {
		return fmt.Errorf("%w: %d", ErrInvalidEdidID, id)
	}
	d.edids[id] = nil
	return nil
}

// ApplyEdid copies the registry block with the given id into the port's
// EDID emulator. The registry keeps its copy; multiple ports may carry the
// same content. EdidIDDisable turns EDID emulation off instead, leaving the
// latched block in place.
func (d *Driver) ApplyEdid(port ids.PortID, id int) error {
	f, err := d.flowFor(port)
	if err != nil {
		return err
	}
	if id == ids.EdidIDDisable {
		f.SetEdidState(false)
		return nil
	}
	if id < 0 || id >= len(d.edids) || d.edids[id] == nil {
		return fmt.Errorf("%w: %d", ErrInvalidEdidID, id)
	}
	if !f.IsEdidEnabled() {
		f.SetEdidState(true)
	}
	return f.WriteEdid(d.edids[id])
}

// ReadEdid reads the EDID bytes currently emulated on the port.
func (d *Driver) ReadEdid(port ids.PortID) ([]byte, error) {
	f, err := d.flowFor(port)
	if err != nil {
		return nil, err
	}
	return f.ReadEdid(), nil
}
