package model

// EventKind discriminates the Event variants.
type EventKind int

const (
	EventAdded EventKind = iota
	EventStatusChanged
	EventProgressChanged
	EventSpeedChanged
	EventEtaChanged
)

func (k EventKind) String() string {
	switch k {
	case EventAdded:
		return "added"
	case EventStatusChanged:
		return "status_changed"
	case EventProgressChanged:
		return "progress_changed"
	case EventSpeedChanged:
		return "speed_changed"
	case EventEtaChanged:
		return "eta_changed"
	default:
		return "unknown"
	}
}

// Event is emitted for every observable change to a job.
// Events for the same job are delivered in emission order.
type Event interface {
	Kind() EventKind
	JobID() string
}

// JobAdded is published once when a job is submitted.
type JobAdded struct {
	Job *Job
}

// StatusChanged reports a status transition. Message carries the failure
// reason for StatusFailed.
type StatusChanged struct {
	ID      string
	Status  Status
	Message string
}

// ProgressChanged reports a new progress percentage (0-100).
type ProgressChanged struct {
	ID      string
	Percent int
}

// SpeedChanged reports the transfer speed. Text is formatted as "1.5 MB/s".
type SpeedChanged struct {
	ID          string
	BytesPerSec float64
	Text        string
}

// EtaChanged reports the remaining time. Text is "MM:SS" or "H hrs+".
type EtaChanged struct {
	ID      string
	Seconds int
	Text    string
}

func (e JobAdded) Kind() EventKind        { return EventAdded }
func (e JobAdded) JobID() string          { return e.Job.ID }
func (e StatusChanged) Kind() EventKind   { return EventStatusChanged }
func (e StatusChanged) JobID() string     { return e.ID }
func (e ProgressChanged) Kind() EventKind { return EventProgressChanged }
func (e ProgressChanged) JobID() string   { return e.ID }
func (e SpeedChanged) Kind() EventKind    { return EventSpeedChanged }
func (e SpeedChanged) JobID() string      { return e.ID }
func (e EtaChanged) Kind() EventKind      { return EventEtaChanged }
func (e EtaChanged) JobID() string        { return e.ID }
