package api

import (
	"io"

	sse "github.com/tmaxmax/go-sse"
)

// DefaultEventType is the type of events sent without an event field
const DefaultEventType = "message"

// Event is one dispatched server-sent event
type Event struct {
	Type string
	ID   string
	Data string
}

// ReadEvents parses a text/event-stream body and calls fn for every
// complete event carrying data. Events larger than maxSize abort the read.
// It returns nil on a clean end of stream and the first error from fn
// otherwise.
func ReadEvents(r io.Reader, maxSize int, fn func(Event) error) error {
	for ev, err := range sse.Read(r, &sse.ReadConfig{MaxEventSize: maxSize}) {
		if err != nil {
			return err
		}
		if ev.Data == "" {
			continue
		}

		out := Event{Type: ev.Type, ID: ev.LastEventID, Data: ev.Data}
		if out.Type == "" {
			out.Type = DefaultEventType
		}
		if err := fn(out); err != nil {
			return err
		}
	}
	return nil
}
