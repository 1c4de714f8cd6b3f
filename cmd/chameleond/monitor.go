package main

import (
	"github.com/sensics/cros-chameleon/driver"
	"github.com/sensics/cros-chameleon/monitoring"
)

func startMonitor(d *driver.Driver, port int) {
	m := monitoring.NewMonitor().WithPortNumber(port)
	m.RegisterDriver(d)
	m.StartServer()
}
