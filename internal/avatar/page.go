package avatar

import "errors"

// ErrLogUnsupported is returned by a LogSource that cannot provide network events.
var ErrLogUnsupported = errors.New("network log unsupported")

// EventKind classifies a captured network event.
type EventKind int

// Event kinds recorded in a network log.
const (
	EventOther EventKind = iota
	EventRequest
	EventResponse
)

// DevTools method names for the events the network extractor consumes.
const (
	MethodRequestWillBeSent = "Network.requestWillBeSent"
	MethodResponseReceived  = "Network.responseReceived"
)

// KindForMethod maps a DevTools method name to its EventKind.
func KindForMethod(method string) EventKind {
	switch method {
	case MethodRequestWillBeSent:
		return EventRequest
	case MethodResponseReceived:
		return EventResponse
	default:
		return EventOther
	}
}

// LogEntry is one observed network event.
type LogEntry struct {
	Kind   EventKind `json:"kind"`
	Method string    `json:"method"`
	URL    string    `json:"url"`
}

// LogSource yields network events in observation order.
type LogSource interface {
	Entries() ([]LogEntry, error)
}

// EntryList is an in-memory LogSource.
type EntryList []LogEntry

// Entries returns a copy of the list.
func (l EntryList) Entries() ([]LogEntry, error) {
	return append([]LogEntry(nil), l...), nil
}

// UnsupportedLog is the LogSource of renderers that cannot observe traffic.
type UnsupportedLog struct{}

// Entries always fails with ErrLogUnsupported.
func (UnsupportedLog) Entries() ([]LogEntry, error) {
	return nil, ErrLogUnsupported
}

// Page is a rendered profile page. It is created once per account and never
// mutated afterwards.
type Page struct {
	Account string
	URL     string
	Markup  string
	Log     LogSource
}
