package render

import (
	"sync"

	"github.com/chromedp/cdproto/network"

	"github.com/JakeFAU/profile-image-resolver/internal/avatar"
)

// networkRecorder keeps request/response events in observation order.
type networkRecorder struct {
	mu      sync.Mutex
	entries []avatar.LogEntry
}

func newNetworkRecorder() *networkRecorder {
	return &networkRecorder{}
}

func (r *networkRecorder) captureEvent(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		if e.Request != nil {
			r.add(avatar.MethodRequestWillBeSent, e.Request.URL)
		}
	case *network.EventResponseReceived:
		if e.Response != nil {
			r.add(avatar.MethodResponseReceived, e.Response.URL)
		}
	}
}

func (r *networkRecorder) add(method, url string) {
	r.mu.Lock()
	r.entries = append(r.entries, avatar.LogEntry{
		Kind:   avatar.KindForMethod(method),
		Method: method,
		URL:    url,
	})
	r.mu.Unlock()
}

// snapshot freezes the events seen so far.
func (r *networkRecorder) snapshot() avatar.EntryList {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append(avatar.EntryList(nil), r.entries...)
}
