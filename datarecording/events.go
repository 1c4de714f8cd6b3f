package datarecording

import (
	"time"

	"github.com/sensics/cros-chameleon/ids"
)

const (
	portEventTable    = "port_events"
	captureEventTable = "capture_events"
)

// A PortEvent is one row of the port event log: plug/unplug transitions,
// HPD pulse trains, FSM runs.
type PortEvent struct {
	Time   string
	Port   string
	Event  string
	Detail string
}

// A CaptureEvent is one row of the capture log: one session start, stop, or
// completion.
type CaptureEvent struct {
	Time      string
	Port      string
	Frames    int
	Width     int
	Height    int
	DualPixel bool
	Status    string
}

// An EventRecorder logs fixture events through a DataRecorder backend.
type EventRecorder struct {
	backend DataRecorder
}

// NewEventRecorder creates the recorder and its tables.
func NewEventRecorder(backend DataRecorder) *EventRecorder {
	backend.CreateTable(portEventTable, PortEvent{})
	backend.CreateTable(captureEventTable, CaptureEvent{})
	return &EventRecorder{backend: backend}
}

func timestamp() string {
	return time.Now().Format(time.RFC3339Nano)
}

// RecordPortEvent logs one port event.
func (r *EventRecorder) RecordPortEvent(port ids.PortID, event, detail string) {
	r.backend.InsertData(portEventTable, PortEvent{
		Time:   timestamp(),
		Port:   port.String(),
		Event:  event,
		Detail: detail,
	})
}

// RecordCapture logs one capture session event.
func (r *EventRecorder) RecordCapture(
	port ids.PortID,
	frames, width, height int,
	dualPixel bool,
	status string,
) {
	r.backend.InsertData(captureEventTable, CaptureEvent{
		Time:      timestamp(),
		Port:      port.String(),
		Frames:    frames,
		Width:     width,
		Height:    height,
		DualPixel: dualPixel,
		Status:    status,
	})
}

// Flush forces buffered events into the database.
func (r *EventRecorder) Flush() {
	r.backend.Flush()
}
