package avatar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePerformanceLogLines(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		`{"level":"INFO","message":"{\"message\":{\"method\":\"Network.requestWillBeSent\",\"params\":{\"request\":{\"url\":\"https://host/profile_images/a_normal.jpg\"}}},\"webview\":\"X\"}","timestamp":1}`,
		`not json at all`,
		`{"method":"Network.responseReceived","params":{"response":{"url":"https://host/profile_images/a_normal.jpg","status":200}}}`,
		``,
		`{"message":"{\"message\":{\"method\":\"Page.loadEventFired\",\"params\":{}}}"}`,
		`{"message":"plain console text"}`,
	}, "\n")

	entries, err := ParsePerformanceLog(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, LogEntry{Kind: EventRequest, Method: MethodRequestWillBeSent, URL: "https://host/profile_images/a_normal.jpg"}, entries[0])
	assert.Equal(t, LogEntry{Kind: EventResponse, Method: MethodResponseReceived, URL: "https://host/profile_images/a_normal.jpg"}, entries[1])
	assert.Equal(t, LogEntry{Kind: EventOther, Method: "Page.loadEventFired"}, entries[2])
}

func TestParsePerformanceLogArray(t *testing.T) {
	t.Parallel()

	input := `[
		{"message":"{\"message\":{\"method\":\"Network.responseReceived\",\"params\":{\"response\":{\"url\":\"https://host/profile_images/qrs.jpg\"}}}}"},
		{"message":42}
	]`

	entries, err := ParsePerformanceLog(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	url, ok := NetworkLogExtractor(testPrefix).Extract(&Page{Log: entries})
	require.True(t, ok)
	assert.Equal(t, "https://host/profile_images/qrs_400x400.jpg", url)
}

func TestParsePerformanceLogEmpty(t *testing.T) {
	t.Parallel()

	entries, err := ParsePerformanceLog(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParsePerformanceLogReadsSavedEntries(t *testing.T) {
	t.Parallel()

	input := `[{"kind":2,"method":"Network.responseReceived","url":"https://host/profile_images/a_400x400.png"}]`

	entries, err := ParsePerformanceLog(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, EntryList{{Kind: EventResponse, Method: MethodResponseReceived, URL: "https://host/profile_images/a_400x400.png"}}, entries)
}
