package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/bowenkfan/multi-dl/internal/model"
)

// eventPrinter writes manager events as one line each. It is called from
// worker goroutines, so writes are serialized.
type eventPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
	labels  map[string]string
}

func newEventPrinter(out io.Writer, verbose bool) *eventPrinter {
	return &eventPrinter{out: out, verbose: verbose, labels: make(map[string]string)}
}

func (p *eventPrinter) handle(ev model.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e := ev.(type) {
	case model.JobAdded:
		p.labels[e.Job.ID] = e.Job.DisplayTitle()
		p.line("   ", e.Job.ID, "queued")
	case model.StatusChanged:
		switch e.Status {
		case model.StatusRunning:
			p.line("-> ", e.ID, "started")
		case model.StatusCompleted:
			p.line("ok ", e.ID, "completed")
		case model.StatusFailed:
			p.line("!! ", e.ID, "failed: "+e.Message)
		}
	case model.ProgressChanged:
		if p.verbose {
			p.line("   ", e.ID, fmt.Sprintf("%3d%%", e.Percent))
		}
	case model.SpeedChanged:
		if p.verbose {
			p.line("   ", e.ID, e.Text)
		}
	case model.EtaChanged:
		if p.verbose {
			p.line("   ", e.ID, "ETA "+e.Text)
		}
	}
}

func (p *eventPrinter) line(prefix, id, msg string) {
	label, ok := p.labels[id]
	if !ok {
		label = id
	}
	fmt.Fprintf(p.out, "%s%s: %s\n", prefix, label, msg)
}
