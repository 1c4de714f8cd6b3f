package driver

import (
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// A daemon past this resident size is leaking capture buffers and due for
// a restart.
const healthMemoryLimitBytes = 512 << 20

// Receiver re-initialization settles well within this bound.
const repairWait = 3 * time.Second

// IsHealthy probes the daemon's own process stats.
func (d *Driver) IsHealthy() (bool, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return false, fmt.Errorf("health probe: %w", err)
	}
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return false, fmt.Errorf("health probe: %w", err)
	}
	return memInfo.RSS < healthMemoryLimitBytes, nil
}

// Repair re-initializes every receiver and re-selects the current port,
// and returns roughly how long the caller should wait before using the
// driver again.
func (d *Driver) Repair() (time.Duration, error) {
	for _, port := range d.GetSupportedPorts() {
		if err := d.flows[port].Initialize(); err != nil {
			return 0, fmt.Errorf("repair %s: %w", port, err)
		}
	}
	if d.selected != 0 {
		d.flows[d.selected].Select()
		d.session = nil
	}
	return repairWait, nil
}
