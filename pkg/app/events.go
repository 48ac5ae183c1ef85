package app

import (
	"bufio"
	"io"
	"strings"
)

// EventKind identifies a discrete user event.
type EventKind int

const (
	// EventTriggerOCR requests one on-demand text reading.
	EventTriggerOCR EventKind = iota

	// EventQuit requests shutdown.
	EventQuit
)

// Event is one discrete user input.
type Event struct {
	Kind EventKind
}

// ReadEvents turns lines from r into events on the returned channel:
// "q" or "quit" requests shutdown, any other line (including empty,
// i.e. a bare Enter) triggers a text reading. The channel closes when
// r is exhausted.
func ReadEvents(r io.Reader) <-chan Event {
	events := make(chan Event, 8)

	go func() {
		defer close(events)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := strings.ToLower(strings.TrimSpace(scanner.Text()))
			switch line {
			case "q", "quit", "exit":
				events <- Event{Kind: EventQuit}
				return
			default:
				events <- Event{Kind: EventTriggerOCR}
			}
		}
	}()

	return events
}
