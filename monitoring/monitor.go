// Package monitoring serves the fixture's live state over HTTP for
// debugging and dashboards: port states, the selected input, the capture
// session, and process resources. It is read-only; control stays on the
// RPC boundary.
package monitoring

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"

	"github.com/sensics/cros-chameleon/driver"
	"github.com/sensics/cros-chameleon/ids"
)

// Monitor serves the driver's state as an HTTP API.
type Monitor struct {
	driver     *driver.Driver
	portNumber int
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the TCP port of the monitoring server.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterDriver registers the driver to serve state from.
func (m *Monitor) RegisterDriver(d *driver.Driver) {
	m.driver = d
}

// StartServer starts the monitoring server in the background.
func (m *Monitor) StartServer() {
	r := mux.NewRouter()

	r.HandleFunc("/api/ports", m.listPorts)
	r.HandleFunc("/api/port/{name}", m.portDetails)
	r.HandleFunc("/api/selected", m.selectedPort)
	r.HandleFunc("/api/session", m.captureSession)
	r.HandleFunc("/api/health", m.health)
	r.HandleFunc("/api/resource", m.listResources)
	http.Handle("/", r)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	fmt.Fprintf(
		os.Stderr,
		"Monitoring chameleond with http://localhost:%d\n",
		listener.Addr().(*net.TCPAddr).Port)

	go func() {
		err = http.Serve(listener, nil)
		dieOnErr(err)
	}()
}

type portRsp struct {
	Port          string `json:"port"`
	ConnectorType string `json:"connector_type"`
	Plugged       bool   `json:"plugged"`
}

func (m *Monitor) listPorts(w http.ResponseWriter, _ *http.Request) {
	rsp := []portRsp{}
	for _, port := range m.driver.GetSupportedPorts() {
		plugged, err := m.driver.IsPlugged(port)
		dieOnErr(err)
		connectorType, err := m.driver.GetConnectorType(port)
		dieOnErr(err)

		rsp = append(rsp, portRsp{
			Port:          port.String(),
			ConnectorType: connectorType,
			Plugged:       plugged,
		})
	}

	writeJSON(w, rsp)
}

type portDetailRsp struct {
	Port            string `json:"port"`
	ConnectorType   string `json:"connector_type"`
	Plugged         bool   `json:"plugged"`
	PhysicalPlugged bool   `json:"physical_plugged"`
	EdidEnabled     bool   `json:"edid_enabled"`
	DdcEnabled      bool   `json:"ddc_enabled"`
}

func (m *Monitor) portDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	port, ok := m.findPort(name)
	if !ok {
		http.Error(w, "port not found: "+name, http.StatusNotFound)
		return
	}

	plugged, err := m.driver.IsPlugged(port)
	dieOnErr(err)
	physicalPlugged, err := m.driver.IsPhysicalPlugged(port)
	dieOnErr(err)
	connectorType, err := m.driver.GetConnectorType(port)
	dieOnErr(err)
	edidEnabled, err := m.driver.IsEdidEnabled(port)
	dieOnErr(err)
	ddcEnabled, err := m.driver.IsDdcEnabled(port)
	dieOnErr(err)

	writeJSON(w, portDetailRsp{
		Port:            port.String(),
		ConnectorType:   connectorType,
		Plugged:         plugged,
		PhysicalPlugged: physicalPlugged,
		EdidEnabled:     edidEnabled,
		DdcEnabled:      ddcEnabled,
	})
}

func (m *Monitor) findPort(name string) (ids.PortID, bool) {
	for _, port := range m.driver.GetSupportedPorts() {
		if port.String() == name {
			return port, true
		}
	}
	return 0, false
}

func (m *Monitor) selectedPort(w http.ResponseWriter, _ *http.Request) {
	selected := ""
	if port := m.driver.SelectedPort(); port != 0 {
		selected = port.String()
	}
	writeJSON(w, map[string]string{"selected": selected})
}

type sessionRsp struct {
	ID          string `json:"id"`
	Port        string `json:"port"`
	TotalFrames int    `json:"total_frames"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	DualPixel   bool   `json:"dual_pixel"`
}

func (m *Monitor) captureSession(w http.ResponseWriter, _ *http.Request) {
	s := m.driver.Session()
	if s == nil {
		writeJSON(w, nil)
		return
	}

	writeJSON(w, sessionRsp{
		ID:          s.ID,
		Port:        s.Port.String(),
		TotalFrames: s.TotalFrames,
		Width:       s.Width,
		Height:      s.Height,
		DualPixel:   s.DualPixelMode,
	})
}

func (m *Monitor) health(w http.ResponseWriter, _ *http.Request) {
	healthy, err := m.driver.IsHealthy()
	dieOnErr(err)
	writeJSON(w, map[string]bool{"healthy": healthy})
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
