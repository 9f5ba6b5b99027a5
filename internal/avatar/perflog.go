package avatar

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

type devtoolsEvent struct {
	Method string `json:"method"`
	// URL is set by records written from a LogEntry.
	URL    string `json:"url"`
	Params struct {
		Request *struct {
			URL string `json:"url"`
		} `json:"request"`
		Response *struct {
			URL string `json:"url"`
		} `json:"response"`
	} `json:"params"`
}

// ParsePerformanceLog reads Chrome performance-log records, either as a JSON
// array or one record per line. A record is a WebDriver log entry whose
// "message" holds an encoded DevTools event, the bare event itself, or a
// LogEntry as saved by a snapshot.
// Records that do not parse are skipped.
func ParsePerformanceLog(r io.Reader) (EntryList, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read performance log: %w", err)
	}
	data = bytes.TrimSpace(data)

	var records []json.RawMessage
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &records); err != nil {
			records = nil
		}
	}
	if records == nil {
		scanner := bufio.NewScanner(bytes.NewReader(data))
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) > 0 {
				records = append(records, append([]byte(nil), line...))
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("scan performance log: %w", err)
		}
	}

	entries := make(EntryList, 0, len(records))
	for _, raw := range records {
		ev, ok := decodeEvent(raw)
		if !ok {
			continue
		}
		entries = append(entries, ev.entry())
	}
	return entries, nil
}

func decodeEvent(raw []byte) (devtoolsEvent, bool) {
	var probe struct {
		Method  string          `json:"method"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return devtoolsEvent{}, false
	}
	switch {
	case probe.Method != "":
		var ev devtoolsEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return devtoolsEvent{}, false
		}
		return ev, true
	case len(probe.Message) > 0:
		var encoded string
		if err := json.Unmarshal(probe.Message, &encoded); err == nil {
			return decodeEvent([]byte(encoded))
		}
		return decodeEvent(probe.Message)
	default:
		return devtoolsEvent{}, false
	}
}

func (ev devtoolsEvent) entry() LogEntry {
	entry := LogEntry{Kind: KindForMethod(ev.Method), Method: ev.Method}
	switch entry.Kind {
	case EventRequest:
		if ev.Params.Request != nil {
			entry.URL = ev.Params.Request.URL
		}
	case EventResponse:
		if ev.Params.Response != nil {
			entry.URL = ev.Params.Response.URL
		}
	}
	if entry.URL == "" {
		entry.URL = ev.URL
	}
	return entry
}
